package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dobromatch/dobromatch/internal/server"
	"github.com/dobromatch/dobromatch/internal/utils"
	"github.com/dobromatch/dobromatch/pkg/events"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dobromatch HTTP API",
	Long: `serve exposes /api/search, /api/ask and /api/stats over HTTP. The dataset is
loaded once at startup and reloaded on the server.refresh cron schedule.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")
		noJudge, _ := cmd.Flags().GetBool("no-judge")
		useDB, _ := cmd.Flags().GetBool("db")
		dataset, _ := cmd.Flags().GetString("dataset")
		dbPath, _ := cmd.Flags().GetString("dbpath")
		if dbPath == "" {
			dbPath = viper.GetString("dataset.dbpath")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine, err := newEngine(!noJudge)
		if err != nil {
			return err
		}
		src, db, closeSrc, err := openSource(useDB, dataset, dbPath)
		if err != nil {
			return err
		}
		defer closeSrc()

		if db != nil {
			// Refreshes read every source at once; an import in flight would
			// show up half applied.
			lock, err := utils.NewDBLock(dbPath)
			if err != nil {
				return err
			}
			src = &lockedSource{Source: src, lock: lock}
		}

		cache := events.NewCache(src)
		if err := cache.Refresh(ctx); err != nil {
			// Requests answer 503 until a scheduled refresh succeeds.
			utils.Log.Warnf("Initial dataset load failed: %v", err)
		}

		srv := &server.Server{
			Engine:        engine,
			Source:        cache,
			Username:      viper.GetString("server.username"),
			Password:      viper.GetString("server.password"),
			DefaultWindow: viper.GetInt("search.window_minutes"),
			DefaultMax:    viper.GetInt("search.max_results"),
		}
		if db != nil {
			srv.Stats = db
		}
		if apiKey() != "" {
			if srv.Extractor, err = newExtractor(); err != nil {
				return err
			}
		} else {
			utils.Log.Info("No LLM API key configured, /api/ask is disabled")
		}

		if spec := viper.GetString("server.refresh"); spec != "" {
			c := cron.New()
			if _, err := c.AddFunc(spec, func() {
				if err := cache.Refresh(ctx); err != nil {
					utils.Log.Warnf("Dataset refresh failed: %v", err)
					return
				}
				_, n := cache.LoadedAt()
				utils.Log.Debugf("Dataset refreshed: %d events", n)
			}); err != nil {
				return err
			}
			c.Start()
			defer c.Stop()
		}

		return srv.Start(ctx, listenAddr)
	},
}

// lockedSource reads under the catalogue's shared lock.
type lockedSource struct {
	events.Source
	lock *utils.DBLock
}

func (s *lockedSource) Load(ctx context.Context) ([]events.Record, error) {
	if err := s.lock.RLock(ctx); err != nil {
		return nil, err
	}
	defer s.lock.Unlock()
	return s.Source.Load(ctx)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	addSourceFlags(serveCmd)
}
