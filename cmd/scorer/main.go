package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/DoyleJ11/cricket-live/internal/config"
	"github.com/DoyleJ11/cricket-live/internal/logging"
	"github.com/DoyleJ11/cricket-live/internal/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg         config.Client
	log         *zap.Logger
	stats       metrics.Metrics
	matchID     string
	apiURL      string
	wsURL       string
	metricsAddr string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "scorer",
	Short: "Score or follow a live cricket match",
	Long: `A command-line client for the live match relay. It can follow a match
as a viewer, score it ball by ball, set the batters and bowler, or print
the current scorecard.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadClient()
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("match") || cfg.MatchID == "" {
			cfg.MatchID = matchID
		}
		if flags.Changed("api") {
			cfg.BaseURL = apiURL
		}
		if flags.Changed("ws") {
			cfg.WSURL = wsURL
		}
		if verbose {
			cfg.LogLevel = "debug"
		}
		if cfg.MatchID == "" {
			return errors.New("no match id: pass --match or set CRICKET_MATCH_ID")
		}

		log, err = logging.New(cfg.LogLevel, cfg.Development)
		if err != nil {
			return err
		}

		stats = metrics.NewService()
		if metricsAddr != "" {
			srv := &http.Server{Addr: metricsAddr, Handler: metrics.NewMetricsHandler(), ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Warn("metrics listener", zap.Error(err))
				}
			}()
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&matchID, "match", "m", "", "Match id (defaults to CRICKET_MATCH_ID)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "http://localhost:8080", "Base URL of the REST API")
	rootCmd.PersistentFlags().StringVar(&wsURL, "ws", "ws://localhost:8080/ws", "STOMP over WebSocket endpoint")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "scorer: %s\n", err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
