package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dobromatch/dobromatch/pkg/storage"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Show recent catalogue changes (default 50)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dbPath := catalogPath(cmd)
		limit, _ := cmd.Flags().GetInt("limit")
		if _, err := os.Stat(dbPath); err != nil {
			return fmt.Errorf("database not found: %s", dbPath)
		}
		db, err := storage.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()
		changes, err := db.ListRecentChanges(context.Background(), limit)
		if err != nil {
			return err
		}
		for _, c := range changes {
			ts := c.OccurredAt.Format("2006-01-02 15:04:05")
			fmt.Printf("%s  %-7s  %s  %s  %s  %s\n", ts, c.ChangeType, c.Source, c.Date, c.Title, c.Identity)
		}
		return nil
	},
}

func init() {
	dbCmd.AddCommand(changesCmd)
	changesCmd.Flags().Int("limit", 50, "Number of recent changes to show")
}
