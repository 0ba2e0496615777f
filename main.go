// @title EduCopilot 后端 API
// @version 1.0
// @description 个性化学习推荐与学习计划生成服务。

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"edu_copilot_backend/internal/app"
	"edu_copilot_backend/internal/config"
	"edu_copilot_backend/pkg/logger"
	"flag"
	"log"
)

func main() {
	configDir := flag.String("config", "configs", "配置目录，需包含 config.yaml")
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config from %s: %v", *configDir, err)
	}
	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if cfg.MigrateOnly {
		logger.Log.Info("Migration finished, exiting")
		return
	}
	application.Run()
}
