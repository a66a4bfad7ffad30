package main

import (
	"bravolearn_backend/internal/service"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "按 XP 输出排行榜",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, services, err := openServices(cmd)
		if err != nil {
			return err
		}
		defer closeDB(db)

		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = cfg.Progression.LeaderboardSize
		}
		entries, err := services.Leaderboard.Top(cmd.Context(), limit)
		if err != nil {
			return err
		}
		printEntries(cmd.OutOrStdout(), entries)
		return nil
	},
}

var rankCmd = &cobra.Command{
	Use:   "rank <user-id>",
	Short: "查看某个学习者的排名",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid user id %q", args[0])
		}

		_, db, services, err := openServices(cmd)
		if err != nil {
			return err
		}
		defer closeDB(db)

		entry, total, err := services.Leaderboard.RankOf(cmd.Context(), uint(userID))
		if err != nil {
			return err
		}
		printEntries(cmd.OutOrStdout(), []service.LeaderboardEntry{entry})
		fmt.Fprintf(cmd.OutOrStdout(), "%d ranked learners\n", total)
		return nil
	},
}

func init() {
	leaderboardCmd.Flags().Int("limit", 0, "返回条数，默认取 progression.leaderboard_size")
}

func printEntries(out io.Writer, entries []service.LeaderboardEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tUSER\tNAME\tXP\tLEVEL")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%d\n", e.Position, e.UserID, e.DisplayName, e.XP, e.Level)
	}
	w.Flush()
}
