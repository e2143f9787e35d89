package main

import (
	"fmt"

	"github.com/pevans/newsroom/store"
	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch every feed once",
	RunE: func(cmd *cobra.Command, args []string) error {
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		refresher := store.NewRefresher(st, nil, logger)
		refresher.SetConcurrency(concurrency)
		refresher.SetIconFinder(store.NewIconFinder(nil))

		results, err := refresher.RefreshAll(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, result := range results {
			if result.Err != nil {
				failed++
				fmt.Fprintf(out, "FAIL %s: %v\n", result.URL, result.Err)
				continue
			}
			fmt.Fprintf(out, "ok   %s: %d new\n", result.URL, result.NewItems)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d feeds failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.Flags().Int("concurrency", 4, "feeds fetched at once")
}
