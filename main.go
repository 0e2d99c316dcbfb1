package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const app = "udsu-dating-bot"

// Actual version can be specified in build command.
var version = "unknown"

var rootCmd = &cobra.Command{
	Use:   app,
	Short: "udsu-dating-bot is a telegram dating bot for UdSU students",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot",
	Run: func(cmd *cobra.Command, _ []string) {
		run()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("%s version: %s\n", app, version)
	},
}

func init() {
	cobra.CheckErr(viper.BindEnv("token", "TOKEN"))
	cobra.CheckErr(viper.BindEnv("database-url", "DATABASE_URL"))

	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	runCmd.Flags().String("metrics-addr", ":9100", "listen address for /metrics and /healthz")

	cobra.CheckErr(viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")))
	cobra.CheckErr(viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json")))
	cobra.CheckErr(viper.BindPFlag("metrics-addr", runCmd.Flags().Lookup("metrics-addr")))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() {
	logger, err := newLogger(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "creating a logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	token := viper.GetString("token")
	if token == "" {
		logger.Fatal("missing bot token", zap.String("hint", "set the TOKEN environment variable"))
	}
	dsn := viper.GetString("database-url")
	if dsn == "" {
		logger.Fatal("missing database DSN", zap.String("hint", "set the DATABASE_URL environment variable"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(dsn, logger)
	if err != nil {
		logger.Fatal("connecting to the database", zap.Error(err))
	}
	defer db.Close()

	if err := ensureSchema(ctx, db); err != nil {
		logger.Fatal("ensuring database schema", zap.Error(err))
	}

	tg, err := NewTelegram(token, viper.GetBool("debug"), logger)
	if err != nil {
		logger.Fatal("connecting to telegram", zap.Error(err))
	}

	metrics := NewMetrics(prometheus.DefaultRegisterer)
	profiles := NewProfileStore(db)
	ledger := NewLedger(db)
	sessions := NewSessions()

	onboarding := NewOnboarding(sessions, profiles, tg, logger, metrics)
	matcher := NewMatcher(profiles, ledger, tg, logger, metrics)
	bot := NewBot(onboarding, matcher, profiles, tg, logger, metrics)

	logger.Info("starting the bot", zap.String("version", version))

	g, ctx := errgroup.WithContext(ctx)

	updates := tg.Updates()
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				tg.Close()
				return nil
			case update, ok := <-updates:
				if !ok {
					return nil
				}
				bot.HandleUpdate(ctx, update)
			}
		}
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	srv := &http.Server{Addr: viper.GetString("metrics-addr"), Handler: mux}

	g.Go(func() error {
		logger.Info("metrics listener starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("shutting down", zap.Error(err))
	}
	logger.Info("stopped")
}
