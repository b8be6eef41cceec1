package service

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/bpalanga/cryptoweb/internal/model"
	"github.com/bpalanga/cryptoweb/internal/repository"
)

type mockUserRepository struct {
	users    map[string]*model.User
	emailMap map[string]string
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:    make(map[string]*model.User),
		emailMap: make(map[string]string),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	if _, exists := m.users[user.UserID]; exists {
		return repository.ErrUserIDExists
	}
	if _, exists := m.emailMap[user.Email]; exists {
		return repository.ErrUserEmailExists
	}
	m.users[user.UserID] = user
	m.emailMap[user.Email] = user.UserID
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, userID string) (*model.User, error) {
	if user, exists := m.users[userID]; exists {
		return user, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if id, exists := m.emailMap[email]; exists {
		return m.users[id], nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) Update(ctx context.Context, user *model.User) error {
	if _, exists := m.users[user.UserID]; !exists {
		return repository.ErrUserNotFound
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepository) Delete(ctx context.Context, userID string) error {
	if user, exists := m.users[userID]; exists {
		delete(m.emailMap, user.Email)
		delete(m.users, userID)
		return nil
	}
	return repository.ErrUserNotFound
}

func (m *mockUserRepository) List(ctx context.Context, filter *repository.UserFilter, page *repository.Pagination) ([]*model.User, int64, error) {
	var result []*model.User
	for _, user := range m.users {
		if filter != nil && filter.Role != "" && user.Role != filter.Role {
			continue
		}
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, int64(len(result)), nil
}

func (m *mockUserRepository) ExistsByID(ctx context.Context, userID string) (bool, error) {
	_, exists := m.users[userID]
	return exists, nil
}

func (m *mockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, exists := m.emailMap[email]
	return exists, nil
}

type mockAccessLogRepository struct {
	logs []*model.AccessLog
	err  error
}

func (m *mockAccessLogRepository) Create(ctx context.Context, log *model.AccessLog) error {
	if m.err != nil {
		return m.err
	}
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockAccessLogRepository) List(ctx context.Context, filter *repository.AccessLogFilter, page *repository.Pagination) ([]*model.AccessLog, int64, error) {
	var result []*model.AccessLog
	for _, l := range m.logs {
		if filter != nil && filter.Action != "" && !strings.HasPrefix(l.Action, filter.Action) {
			continue
		}
		result = append(result, l)
	}
	return result, int64(len(result)), nil
}

// actions 返回已记录的动作序列
func (m *mockAccessLogRepository) actions() []string {
	var out []string
	for _, l := range m.logs {
		out = append(out, l.Action)
	}
	return out
}

func TestUserService_Create(t *testing.T) {
	userRepo := newMockUserRepository()
	svc := NewUserService(userRepo)
	ctx := context.Background()

	user := &model.User{UserID: "merchant01", Email: "m01@example.com", FullName: "商户一", Role: model.RoleMerchant}
	if err := svc.Create(ctx, user, "password123"); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	if !user.IsActive {
		t.Error("新用户应处于激活状态")
	}
	if user.PasswordHash == "" || user.PasswordHash == "password123" {
		t.Error("密码应以哈希形式存储")
	}

	// 重复用户 ID
	dup := &model.User{UserID: "merchant01", Email: "other@example.com", FullName: "重复"}
	if err := svc.Create(ctx, dup, "password123"); err != repository.ErrUserIDExists {
		t.Errorf("期望 ErrUserIDExists, 实际 %v", err)
	}
}

func TestUserService_Create_Validation(t *testing.T) {
	tests := []struct {
		name     string
		user     *model.User
		password string
		wantErr  error
	}{
		{"空用户 ID", &model.User{FullName: "a", Email: "a@example.com"}, "password123", ErrUserIDEmpty},
		{"非法用户 ID", &model.User{UserID: "a b", FullName: "a", Email: "a@example.com"}, "password123", ErrUserIDInvalid},
		{"空姓名", &model.User{UserID: "abc", Email: "a@example.com"}, "password123", ErrFullNameEmpty},
		{"空邮箱", &model.User{UserID: "abc", FullName: "a"}, "password123", ErrEmailEmpty},
		{"非法邮箱", &model.User{UserID: "abc", FullName: "a", Email: "not-an-email"}, "password123", ErrEmailInvalid},
		{"空密码", &model.User{UserID: "abc", FullName: "a", Email: "a@example.com"}, "", ErrPasswordEmpty},
		{"密码过短", &model.User{UserID: "abc", FullName: "a", Email: "a@example.com"}, "short", ErrPasswordTooShort},
		{"非法角色", &model.User{UserID: "abc", FullName: "a", Email: "a@example.com", Role: "root"}, "password123", ErrRoleInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewUserService(newMockUserRepository())
			err := svc.Create(context.Background(), tt.user, tt.password)
			if err != tt.wantErr {
				t.Errorf("期望错误 %v, 实际 %v", tt.wantErr, err)
			}
		})
	}
}

func TestUserService_DefaultRole(t *testing.T) {
	svc := NewUserService(newMockUserRepository())
	user := &model.User{UserID: "cust01", FullName: "客户", Email: "c@example.com"}
	if err := svc.Create(context.Background(), user, "password123"); err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	if user.Role != model.RoleCustomer {
		t.Errorf("默认角色期望 customer, 实际 %s", user.Role)
	}
}

func TestUserService_SetActiveAndList(t *testing.T) {
	userRepo := newMockUserRepository()
	svc := NewUserService(userRepo)
	ctx := context.Background()

	for _, id := range []string{"alice", "bob"} {
		u := &model.User{UserID: id, FullName: id, Email: id + "@example.com", Role: model.RoleAuditor}
		if err := svc.Create(ctx, u, "password123"); err != nil {
			t.Fatalf("创建用户失败: %v", err)
		}
	}

	if err := svc.SetActive(ctx, "bob", false); err != nil {
		t.Fatalf("停用用户失败: %v", err)
	}
	bob, _ := svc.GetByID(ctx, "bob")
	if bob.IsActive {
		t.Error("bob 应已停用")
	}

	users, total, err := svc.List(ctx, &repository.UserFilter{Role: model.RoleAuditor}, nil)
	if err != nil {
		t.Fatalf("列出用户失败: %v", err)
	}
	if total != 2 || len(users) != 2 {
		t.Errorf("期望 2 个用户, 实际 %d", total)
	}

	if err := svc.Delete(ctx, "alice"); err != nil {
		t.Errorf("删除用户失败: %v", err)
	}
	if _, err := svc.GetByID(ctx, "alice"); err != repository.ErrUserNotFound {
		t.Errorf("期望 ErrUserNotFound, 实际 %v", err)
	}
}
