package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed [catalog.yaml]",
	Short: "导入课程目录，可重复执行",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, services, err := openServices(cmd)
		if err != nil {
			return err
		}
		defer closeDB(db)

		path := cfg.Catalog.SeedPath
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("no catalog path given and catalog.seed_path is empty")
		}

		report, err := services.Catalog.SeedFile(cmd.Context(), path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %s: %d courses, %d units, %d lessons, %d exercises, %d achievements (%d new)\n",
			path, report.Courses, report.Units, report.Lessons, report.Exercises, report.Achievements, report.CreatedAchievements)
		return nil
	},
}
