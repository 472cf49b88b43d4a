package cmd

import (
	"fmt"
	"os"

	"github.com/dobromatch/dobromatch/internal/utils"
	"github.com/dobromatch/dobromatch/pkg/daterange"
	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dobromatch",
	Short: "Find volunteering events by date, time and city.",
	Long: `dobromatch matches volunteering events from a dobro.ru style dataset against
a date (exact day, whole month, whole year or a Russian phrase), a time window
and a city, optionally asking a language model to keep only events that fit a
free-text request. It can also verify photos of volunteering proof documents.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dobromatch.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

func setDefaults() {
	viper.SetDefault("dataset.path", "events.json")
	viper.SetDefault("dataset.dbpath", "dobromatch.sqlite")
	viper.SetDefault("search.window_minutes", daterange.DefaultWindowMinutes)
	viper.SetDefault("search.max_results", 5)
	viper.SetDefault("search.timezone", "Europe/Moscow")
	viper.SetDefault("llm.endpoint", "https://api.openai.com/v1/chat/completions")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.model", "gpt-4.1-mini")
	viper.SetDefault("llm.vision_model", "gpt-4.1-mini")
	viper.SetDefault("judge.enabled", true)
	viper.SetDefault("judge.concurrency", 4)
	viper.SetDefault("judge.prompt_path", "")
	viper.SetDefault("extract.prompt_path", "")
	viper.SetDefault("proof.describe_prompt_path", "")
	viper.SetDefault("proof.classify_prompt_path", "")
	viper.SetDefault("server.username", "")
	viper.SetDefault("server.password", "")
	viper.SetDefault("server.refresh", "*/15 * * * *")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Defaults go first so a freshly created config file carries them.
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".dobromatch")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.dobromatch.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Fprintf(os.Stderr, "Error creating config file: %s\n", err)
			}
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}
