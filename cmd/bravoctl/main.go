// bravoctl 运维命令行：迁移、导入课程目录、查看排行榜
package main

import (
	"bravolearn_backend/internal/app"
	"bravolearn_backend/internal/config"
	"bravolearn_backend/pkg/database"
	"bravolearn_backend/pkg/logger"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:           "bravoctl",
	Short:         "BravoLearn 运维工具",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "configs", "配置文件目录")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(rankCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dir, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.InitLogger(cfg)
	return cfg, nil
}

// openServices 连接数据库（执行迁移）并组装业务服务
func openServices(cmd *cobra.Command) (*config.Config, *gorm.DB, *app.Services, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		return nil, nil, nil, err
	}
	services, err := app.NewServices(cfg, db, nil, nil)
	if err != nil {
		closeDB(db)
		return nil, nil, nil, err
	}
	return cfg, db, services, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
