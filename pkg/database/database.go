package database

import (
	"edu_copilot_backend/internal/config"
	"edu_copilot_backend/internal/model"
	applog "edu_copilot_backend/pkg/logger"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	level := logger.Warn
	if debug {
		level = logger.Info
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, err
	}

	applog.Log.Info("Database connection established",
		zap.String("host", cfg.Host),
		zap.String("db", cfg.DBName))
	return db, nil
}

// Migrate 建表；MySQL 启动和 sqlite 测试共用
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.StudentProfile{},
		&model.LearningPlan{},
		&model.LearningActivity{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	applog.Log.Info("Database migration completed")
	return nil
}
