package main

import (
	"fmt"

	"github.com/pevans/newsroom"
	"github.com/pevans/newsroom/config"
	"github.com/pevans/newsroom/feed"
	"github.com/pevans/newsroom/logging"
	"github.com/pevans/newsroom/reader"
	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read news in the terminal",
	Long: `Open the terminal reader.

Keys:
  j / k        next / previous item
  o            open the current item in the browser
  s            save or unsave the current item
  u            keep the current item unread
  r            refresh
  tab          switch between unread, read and saved
  q            quit`,
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().String("view", "unread", "view to open: unread, read, saved")
}

func runRead(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("view")
	view, ok := feed.ParseView(name)
	if !ok {
		return fmt.Errorf("unknown view %q", name)
	}

	if _, signedIn := profile.CurrentToken(); !signedIn && cfg.API.Token == "" {
		return explain(newsroom.ErrSignedOut)
	}

	dir, err := config.Dir()
	if err != nil {
		return err
	}
	fileLogger, file, err := logging.NewFile(dir, cfg.Log.File, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer file.Close()

	fileLogger.Info("reader started", "view", view, "host", apiHost())
	defer fileLogger.Info("reader stopped")

	return reader.Run(cmd.Context(), newClient(), view, cfg.ReaderOptions(), reader.WithLogger(fileLogger))
}
