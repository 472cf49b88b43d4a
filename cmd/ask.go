package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dobromatch/dobromatch/internal/server"
	"github.com/dobromatch/dobromatch/internal/utils"
	"github.com/dobromatch/dobromatch/pkg/search"
)

var askCmd = &cobra.Command{
	Use:   "ask <request>",
	Short: "Search events from a free-text request",
	Long: `ask lets the language model pull the city, date and start time out of a
free-text request, then searches with the request itself as the relevance text.`,
	Example: `  dobromatch ask "хочу помочь приюту для животных в Москве в эти выходные"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.TrimSpace(strings.Join(args, " "))
		noJudge, _ := cmd.Flags().GetBool("no-judge")
		asJSON, _ := cmd.Flags().GetBool("json")
		useDB, _ := cmd.Flags().GetBool("db")
		dataset, _ := cmd.Flags().GetString("dataset")
		dbPath, _ := cmd.Flags().GetString("dbpath")

		extractor, err := newExtractor()
		if err != nil {
			return err
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

		ctx := context.Background()
		fields, err := extractor.Extract(ctx, text)
		if err != nil {
			return err
		}
		utils.Log.Debugf("extracted city=%q date=%q time_start=%q", fields.City, fields.Date, fields.TimeStart)

		res, err := engine.SearchSource(ctx, search.Query{
			City:          fields.City,
			Date:          fields.Date,
			Time:          fields.TimeStart,
			WindowMinutes: viper.GetInt("search.window_minutes"),
			MaxResults:    viper.GetInt("search.max_results"),
			Text:          text,
		}, src)
		if err != nil {
			return err
		}
		return printResult(server.AskResponse{Fields: fields, Result: res.WithMessage()}, asJSON)
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	addSourceFlags(askCmd)
}
