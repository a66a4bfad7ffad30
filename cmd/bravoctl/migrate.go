package main

import (
	"bravolearn_backend/pkg/database"
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "执行数据库迁移并写入默认成就",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
		if err != nil {
			return err
		}
		defer closeDB(db)

		fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database\n", cfg.Database.Driver)
		return nil
	},
}
