// Package main 数据库迁移工具
package main

import (
	"context"
	"log"
	"os"

	"github.com/bpalanga/cryptoweb/internal/config"
	"github.com/bpalanga/cryptoweb/internal/database"
	"github.com/bpalanga/cryptoweb/internal/model"
	"github.com/bpalanga/cryptoweb/internal/repository"
	"github.com/bpalanga/cryptoweb/internal/service"
	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("migrate", pflag.ExitOnError)
	flags.String("config", "", "配置文件路径")
	adminID := flags.String("admin-userid", "", "初始管理员用户 ID，为空则不创建")
	adminEmail := flags.String("admin-email", "", "初始管理员邮箱")
	adminPassword := flags.String("admin-password", "", "初始管理员密码")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.LoadWithFlags(flags)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	if err := database.Init(&cfg.Database, true); err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	defer database.Close()
	log.Println("数据库连接成功")

	log.Println("开始执行数据库迁移...")
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("迁移失败: %v", err)
	}
	log.Println("数据库迁移完成！")
	log.Println("已创建/更新的表:")
	log.Println("  - users (用户表)")
	log.Println("  - access_logs (访问日志表)")

	if *adminID == "" {
		return
	}

	// 用户只能由管理员创建，首个管理员由迁移工具引导
	userService := service.NewUserService(repository.NewUserRepository(database.GetDB()))
	admin := &model.User{
		UserID:   *adminID,
		Email:    *adminEmail,
		FullName: "系统管理员",
		Role:     model.RoleAdmin,
	}
	if err := userService.Create(context.Background(), admin, *adminPassword); err != nil {
		log.Fatalf("创建管理员失败: %v", err)
	}
	log.Printf("已创建管理员: %s", admin.UserID)
}
