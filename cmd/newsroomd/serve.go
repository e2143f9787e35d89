package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pevans/newsroom/server"
	"github.com/pevans/newsroom/store"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the news API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default is server.addr from the config)")
	serveCmd.Flags().Duration("refresh-interval", 0, "refresh feeds this often while serving (0 disables)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	interval, _ := cmd.Flags().GetDuration("refresh-interval")
	if addr == "" {
		addr = cfg.Server.Addr
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	api := server.NewAPIServer(st, cfg.Server.PageSize, logger.WithPrefix("http"))
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		logger.Info("starting news API server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if interval > 0 {
		g.Go(func() error {
			refresher := store.NewRefresher(st, nil, logger.WithPrefix("refresh"))
			refresher.SetIconFinder(store.NewIconFinder(nil))
			if err := refresher.Run(ctx, interval); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}
