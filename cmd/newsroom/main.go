// Command newsroom reads the news from a Newsroom server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/pevans/newsroom"
	"github.com/pevans/newsroom/config"
	"github.com/pevans/newsroom/logging"
	"github.com/pevans/newsroom/session"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *log.Logger
	profile *session.Profile
)

var rootCmd = &cobra.Command{
	Use:   "newsroom",
	Short: "Terminal client for the Newsroom news service",
	Long: `newsroom reads your news feed in the terminal.

Items are marked read as they scroll past the top of the list. Use j and k to
jump between items, o to open one in the browser and r to refresh.

Example usage:
  newsroom login --token T      # Store the bearer token
  newsroom read                 # Read unread news
  newsroom read --view saved    # Read saved news
  newsroom list --format json   # Print the first page as JSON`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.newsroom/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")
}

// initConfig loads the config, the profile and sets up logging. Commands
// log to stderr; the reader switches to a file since it owns the terminal.
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

	dir, err := config.Dir()
	if err != nil {
		return err
	}
	profile, err = session.Load(session.DefaultPath(dir))
	if err != nil {
		return err
	}

	logger.Debug("configuration loaded", "host", apiHost(), "status", profile.Status())
	return nil
}

// apiHost prefers the host the profile signed in to.
func apiHost() string {
	if host := profile.Host(); host != "" && os.Getenv("NEWSROOM_API_HOST") == "" {
		return host
	}
	return cfg.API.Host
}

// newClient builds an API client. A NEWSROOM_TOKEN in the environment
// takes the place of the profile.
func newClient() *newsroom.Client {
	var sess newsroom.Session = profile
	if cfg.API.Token != "" {
		sess = newsroom.NewStaticSession(cfg.API.Token)
	}

	return newsroom.NewClient(apiHost(), sess,
		newsroom.WithTimeout(cfg.API.Timeout),
		newsroom.WithRateLimit(cfg.API.RequestsPerSecond),
	)
}

// explain turns session errors into something the user can act on.
func explain(err error) error {
	switch {
	case errors.Is(err, newsroom.ErrSignedOut):
		return errors.New("not signed in: run newsroom login --token <token>")
	case errors.Is(err, newsroom.ErrUnauthorized):
		return errors.New("session expired: run newsroom login --token <token>")
	case errors.Is(err, newsroom.ErrPendingApproval):
		return errors.New("your account is waiting for approval")
	}
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", explain(err))
		os.Exit(1)
	}
}
