// 修改现有用户角色的工具
// 角色写在票据中，修改后会终止该用户的全部会话，使其重新登录取得新票据
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/bpalanga/cryptoweb/internal/config"
	"github.com/bpalanga/cryptoweb/internal/database"
	"github.com/bpalanga/cryptoweb/internal/model"
	"github.com/bpalanga/cryptoweb/internal/redis"
	"github.com/bpalanga/cryptoweb/internal/repository"
	"github.com/bpalanga/cryptoweb/internal/service"
	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("assign-role", pflag.ExitOnError)
	flags.String("config", "", "配置文件路径")
	role := flags.String("role", model.RoleAdmin, "目标角色：admin / merchant / customer / auditor")
	_ = flags.Parse(os.Args[1:])

	if flags.NArg() < 1 {
		fmt.Println("用法: assign-role [--role admin] <用户 ID 或邮箱>")
		fmt.Println("示例: assign-role --role auditor auditor01")
		os.Exit(1)
	}
	if !model.ValidRole(*role) {
		log.Fatalf("角色无效: %s", *role)
	}
	target := flags.Arg(0)

	cfg, err := config.LoadWithFlags(flags)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	if err := database.Init(&cfg.Database, false); err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	userRepo := repository.NewUserRepository(database.GetDB())

	// 查找用户
	user, err := userRepo.GetByID(ctx, target)
	if err != nil {
		user, err = userRepo.GetByEmail(ctx, target)
		if err != nil {
			log.Fatalf("用户不存在: %s", target)
		}
	}

	user.Role = *role
	if err := userRepo.Update(ctx, user); err != nil {
		log.Fatalf("更新角色失败: %v", err)
	}
	fmt.Printf("已将用户 %s (%s) 的角色设置为 %s\n", user.UserID, user.Email, *role)

	// 终止旧会话
	if err := redis.Init(&cfg.Redis); err != nil {
		log.Printf("无法连接 Redis，旧会话将在票据过期后失效: %v", err)
		return
	}
	defer redis.Close()
	sessions := service.NewSessionService(redis.GetClient(), nil)
	if err := sessions.DeleteByUserID(ctx, user.UserID); err != nil {
		log.Printf("终止会话失败: %v", err)
		return
	}
	fmt.Println("已终止该用户的全部会话")
}
