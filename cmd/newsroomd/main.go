// Command newsroomd is a development server for the Newsroom news API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/pevans/newsroom/config"
	"github.com/pevans/newsroom/logging"
	"github.com/pevans/newsroom/store"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *log.Logger
)

var rootCmd = &cobra.Command{
	Use:   "newsroomd",
	Short: "Development server for the Newsroom news API",
	Long: `newsroomd serves the news API over a local SQLite database.

Example usage:
  newsroomd users add --token T          # Register a reader
  newsroomd feeds add https://example.com/rss
  newsroomd refresh                      # Fetch all feeds once
  newsroomd serve --refresh-interval 15m # Serve and keep feeds fresh`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.newsroom/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func initConfig() error {
	var err error

	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger, err = logging.New(os.Stderr, level)
	if err != nil {
		return err
	}

	logger.Debug("configuration loaded", "addr", cfg.Server.Addr, "dsn", cfg.Server.DSN)
	return nil
}

// openStore opens the database named by server.dsn.
func openStore() (*store.Store, error) {
	st, err := store.Open(cfg.Server.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
