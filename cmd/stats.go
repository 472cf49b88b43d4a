package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dobromatch/dobromatch/pkg/storage"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints statistics about the events in the catalogue.",
	Long:  "Prints the number of events per source domain and per city.",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := catalogPath(cmd)
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("database file not found: %s", dbPath)
		}

		db, err := storage.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats(context.Background())
		if err != nil {
			return err
		}

		if stats.Total == 0 {
			fmt.Println("No data in the database to generate stats.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		printCounts(w, "SOURCE", stats.BySource)
		fmt.Fprintln(w, " \t \t")
		printCounts(w, "CITY", stats.ByCity)
		fmt.Fprintln(w, " \t \t")
		fmt.Fprintf(w, "TOTAL\t%d\t\n", stats.Total)

		w.Flush()

		return nil
	},
}

func printCounts(w *tabwriter.Writer, header string, counts []storage.Count) {
	fmt.Fprintf(w, "%s\tEVENTS\t\n", header)
	for _, c := range counts {
		key := c.Key
		if key == "" {
			key = "(unknown)"
		}
		fmt.Fprintf(w, "%s\t%d\t\n", key, c.Events)
	}
}

func init() {
	dbCmd.AddCommand(statsCmd)
}
