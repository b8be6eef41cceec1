package main

import (
	"fmt"
	"log"
	"os"

	"github.com/bpalanga/cryptoweb/internal/config"
	"github.com/bpalanga/cryptoweb/internal/database"
	"github.com/spf13/pflag"
)

// 只清理本服务的 users 与 access_logs 表，不会删除数据库或其它表
// 用法：
//
//	go run ./cmd/resetdb --force
//
// 可选参数：
//
//	--recreate  重建表（默认 true）
//	--force     必须为 true 才会执行（安全开关）
func main() {
	flags := pflag.NewFlagSet("resetdb", pflag.ExitOnError)
	flags.String("config", "", "配置文件路径")
	recreate := flags.Bool("recreate", true, "是否在清空后重建表")
	force := flags.Bool("force", false, "确认执行清空操作")
	_ = flags.Parse(os.Args[1:])

	if !*force {
		log.Fatal("为避免误操作，请加上 --force 参数：go run ./cmd/resetdb --force")
	}

	cfg, err := config.LoadWithFlags(flags)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if err := database.Init(&cfg.Database, false); err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	defer database.Close()

	fmt.Println("开始清空数据库中的票据服务相关表...")
	if err := database.DropAll(); err != nil {
		log.Fatalf("删除表失败: %v", err)
	}
	for _, t := range database.Models() {
		fmt.Printf("已删除表: %T\n", t)
	}

	if *recreate {
		if err := database.AutoMigrate(); err != nil {
			log.Fatalf("创建表失败: %v", err)
		}
		fmt.Println("已重建全部表")
	}

	fmt.Println("完成。")
}
