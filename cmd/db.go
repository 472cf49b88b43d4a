package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dobromatch/dobromatch/internal/utils"
	"github.com/dobromatch/dobromatch/pkg/events"
	"github.com/dobromatch/dobromatch/pkg/ingest"
	"github.com/dobromatch/dobromatch/pkg/storage"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the dobromatch event catalogue",
}

func catalogPath(cmd *cobra.Command) string {
	dbPath, _ := cmd.Flags().GetString("dbpath")
	if dbPath == "" {
		dbPath = viper.GetString("dataset.dbpath")
	}
	if dbPath == "" {
		dbPath = "dobromatch.sqlite"
	}
	return dbPath
}

var importCmd = &cobra.Command{
	Use:   "import [dataset.json...]",
	Short: "Import JSON datasets into the catalogue",
	Long: `import loads each JSON dataset and makes it the current content of its source
(the file name, or --source when a single file is given). Events no longer
present are removed and every addition, update and removal is recorded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := catalogPath(cmd)
		source, _ := cmd.Flags().GetString("source")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		paths := args
		if len(paths) == 0 {
			paths = []string{viper.GetString("dataset.path")}
		}
		if source != "" && len(paths) > 1 {
			return fmt.Errorf("--source can only be used with a single dataset")
		}

		datasets := make([]ingest.Dataset, 0, len(paths))
		for _, path := range paths {
			name := source
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			}
			datasets = append(datasets, ingest.Dataset{Name: name, Source: events.FileSource{Path: path}})
		}

		ctx := context.Background()
		lock, err := utils.NewDBLock(dbPath)
		if err != nil {
			return err
		}
		if err := lock.Lock(ctx); err != nil {
			return err
		}
		defer lock.Unlock()

		db, err := storage.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		res := ingest.Run(ctx, ingest.Config{
			Datasets:    datasets,
			DB:          db,
			Concurrency: concurrency,
			Log:         utils.Log,
			OnDatasetDone: func(name string, loaded int, changes []storage.Change) {
				counts := map[string]int{}
				for _, c := range changes {
					counts[c.ChangeType]++
					utils.Log.Debugf("%s %s %s %s", name, c.ChangeType, c.Date, c.Title)
				}
				utils.Log.Infof("Imported %d events into %s: %d added, %d updated, %d removed",
					loaded, name, counts[storage.ChangeAdded], counts[storage.ChangeUpdated], counts[storage.ChangeRemoved])
			},
		})
		for _, err := range res.Errors {
			utils.Log.Error(err)
		}
		if len(res.Errors) > 0 {
			return fmt.Errorf("%d of %d datasets failed to import", len(res.Errors), len(datasets))
		}
		return nil
	},
}

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := catalogPath(cmd)

		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("database file not found: %s", dbPath)
		}

		// Check if sqlite3 is in PATH
		sqlitePath, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("sqlite3 command not found in your PATH. Please install it to use the db shell")
		}

		// Print schema first
		fmt.Println("--> Database schema:")
		schemaCmd := exec.Command(sqlitePath, dbPath, ".schema")
		schemaCmd.Stdout = os.Stdout
		schemaCmd.Stderr = os.Stderr
		if err := schemaCmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: couldn't retrieve schema: %v\n", err)
		}
		fmt.Println("\n--> Starting interactive shell... (Ctrl+D to exit)")

		c := exec.Command(sqlitePath, dbPath)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr

		return c.Run()
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(importCmd)
	dbCmd.AddCommand(shellCmd)
	dbCmd.PersistentFlags().String("dbpath", "", "Path to SQLite DB file (default: dataset.dbpath from config)")
	importCmd.Flags().String("source", "", "Source name the events are recorded under (single dataset only)")
	importCmd.Flags().Int("concurrency", ingest.DefaultConcurrency, "Number of datasets loaded in parallel")
}
