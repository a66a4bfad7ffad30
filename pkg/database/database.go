package database

import (
	"bravolearn_backend/internal/config"
	"bravolearn_backend/internal/engine"
	"bravolearn_backend/internal/model"
	applog "bravolearn_backend/pkg/logger"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Dialector 根据配置选择数据库驱动
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host,
			cfg.Port,
			cfg.User,
			cfg.Password,
			cfg.DBName,
			cfg.SSLMode,
		)
		return postgres.Open(dsn), nil
	case "sqlite":
		path := cfg.Path
		if path == "" {
			path = "data/bravolearn.db"
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, err
			}
		}
		return sqlite.Open(path), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// Open 只建立连接，不做迁移
func Open(cfg *config.DatabaseConfig, mode string) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	level := logger.Warn
	if mode == "debug" {
		level = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Driver == "sqlite" {
		// SQLite 单写者，连接数限制为 1 避免 database is locked
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	applog.Log.Info("Database connection established", zap.String("dialect", db.Dialector.Name()))
	return db, nil
}

// InitDB 建立连接并执行迁移和默认数据初始化
func InitDB(cfg *config.DatabaseConfig, mode string) (*gorm.DB, error) {
	db, err := Open(cfg, mode)
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return err
	}

	applog.Log.Info("Database migration completed")

	return SeedDefaultAchievements(db)
}

// DefaultAchievements 成就目录为空时写入的默认成就
var DefaultAchievements = []model.Achievement{
	{Code: "first_steps", Name: "初出茅庐", Description: "完成第一节课", Icon: "🎯", RequirementType: engine.RequireLessonsCompleted, RequirementValue: 1},
	{Code: "explorer", Name: "探索者", Description: "报名一门课程", Icon: "🧭", RequirementType: engine.RequireCoursesEnrolled, RequirementValue: 1},
	{Code: "on_fire", Name: "连续三天", Description: "连续学习 3 天", Icon: "🔥", RequirementType: engine.RequireStreak, RequirementValue: 3},
	{Code: "flawless", Name: "满分通关", Description: "一节课拿到 100 分", Icon: "💯", RequirementType: engine.RequirePerfectLessons, RequirementValue: 1},
	{Code: "dedicated", Name: "勤学不辍", Description: "完成 5 节课", Icon: "📚", RequirementType: engine.RequireLessonsCompleted, RequirementValue: 5},
	{Code: "xp_500", Name: "经验丰富", Description: "累计获得 500 XP", Icon: "⭐", RequirementType: engine.RequireXP, RequirementValue: 500},
	{Code: "week_warrior", Name: "一周战士", Description: "连续学习 7 天", Icon: "🏆", RequirementType: engine.RequireStreak, RequirementValue: 7},
	{Code: "level_5", Name: "五级学者", Description: "达到 5 级", Icon: "🎓", RequirementType: engine.RequireLevel, RequirementValue: 5},
}

func SeedDefaultAchievements(db *gorm.DB) error {
	var count int64
	if err := db.Model(&model.Achievement{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaults := make([]model.Achievement, len(DefaultAchievements))
	copy(defaults, DefaultAchievements)
	return db.Create(&defaults).Error
}
