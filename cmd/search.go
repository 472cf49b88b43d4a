package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dobromatch/dobromatch/pkg/daterange"
	"github.com/dobromatch/dobromatch/pkg/search"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search events by date, time and city",
	Example: `  dobromatch search --date 2025-06-15 --time 11:00 --city Москва
  dobromatch search --date 2025-06-XX --text "помощь животным"
  dobromatch search --date "завтра" --db`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		date, _ := cmd.Flags().GetString("date")
		timeStart, _ := cmd.Flags().GetString("time")
		city, _ := cmd.Flags().GetString("city")
		text, _ := cmd.Flags().GetString("text")
		window, _ := cmd.Flags().GetInt("window")
		maxResults, _ := cmd.Flags().GetInt("max")
		noJudge, _ := cmd.Flags().GetBool("no-judge")
		asJSON, _ := cmd.Flags().GetBool("json")
		useDB, _ := cmd.Flags().GetBool("db")
		dataset, _ := cmd.Flags().GetString("dataset")
		dbPath, _ := cmd.Flags().GetString("dbpath")

		if !cmd.Flags().Changed("window") {
			window = viper.GetInt("search.window_minutes")
		}
		if !cmd.Flags().Changed("max") {
			maxResults = viper.GetInt("search.max_results")
		}

		engine, err := newEngine(!noJudge)
		if err != nil {
			return err
		}
		src, _, closeSrc, err := openSource(useDB, dataset, dbPath)
		if err != nil {
			return err
		}
		defer closeSrc()

		res, err := engine.SearchSource(context.Background(), search.Query{
			City:          city,
			Date:          date,
			Time:          timeStart,
			WindowMinutes: window,
			MaxResults:    maxResults,
			Text:          text,
		}, src)
		if err != nil {
			return err
		}
		return printResult(res.WithMessage(), asJSON)
	},
}

func printResult(v interface{ Text() string }, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	fmt.Println(v.Text())
	return nil
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("db", false, "Search the SQLite catalogue instead of the JSON dataset")
	cmd.Flags().String("dataset", "", "Path to the JSON dataset (default: dataset.path from config)")
	cmd.Flags().String("dbpath", "", "Path to SQLite DB file (default: dataset.dbpath from config)")
	cmd.Flags().Bool("json", false, "Print the structured result as JSON")
	cmd.Flags().Bool("no-judge", false, "Skip the language model relevance pass")
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().String("date", "", "Date: YYYY-MM-DD, YYYY-MM-XX, YYYY-XX-XX or a phrase like \"15 июня\"")
	searchCmd.Flags().String("time", "", "Centre of the time window (HH:MM, default 12:00)")
	searchCmd.Flags().String("city", "", "City to match against city, address, title and description")
	searchCmd.Flags().String("text", "", "Free-text request for the relevance pass")
	searchCmd.Flags().Int("window", daterange.DefaultWindowMinutes, "Minutes on each side of --time")
	searchCmd.Flags().Int("max", 5, "Maximum number of results (0 for no limit)")
	addSourceFlags(searchCmd)
	searchCmd.MarkFlagRequired("date")
}
