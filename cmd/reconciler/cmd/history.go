package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	appconfig "channel-reconciler/cmd/reconciler/config"
	apperrors "channel-reconciler/pkg/errors"
	"channel-reconciler/pkg/logger"
)

var historyFlags struct {
	configID string
	before   string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and prune the historical record store",
}

var historyBatchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "List uploaded batches for a config",
	RunE: wrapRun(func(args []string) error {
		settings := appconfig.Load()
		ctx := context.Background()

		store, err := openHistoryStore(ctx, settings, logger.Global())
		if err != nil {
			return err
		}
		defer store.Close()

		batches, err := store.Batches(ctx, historyFlags.configID)
		if err != nil {
			return err
		}
		if len(batches) == 0 {
			fmt.Println("no batches stored")
			return nil
		}
		for _, b := range batches {
			fmt.Printf("%s  %-20s  %s  %5d records  uploaded %s\n",
				b.BatchID, b.Source, b.OrderDate, b.RecordRows,
				b.UploadedAt.Format("2006-01-02 15:04"))
		}
		return nil
	}),
}

var historyCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete stored records older than a date",
	RunE: wrapRun(func(args []string) error {
		cutoff, err := time.ParseInLocation("2006-01-02", historyFlags.before, time.UTC)
		if err != nil {
			return apperrors.ConfigError(apperrors.CodeInvalidConfig, "before", historyFlags.before, err)
		}

		settings := appconfig.Load()
		ctx := context.Background()

		store, err := openHistoryStore(ctx, settings, logger.Global())
		if err != nil {
			return err
		}
		defer store.Close()

		removed, err := store.Cleanup(ctx, historyFlags.configID, cutoff)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d records before %s\n", removed, historyFlags.before)
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyBatchesCmd, historyCleanupCmd)

	historyCmd.PersistentFlags().StringVar(&historyFlags.configID, "config-id", "", "channel configuration id (required)")
	historyCmd.MarkPersistentFlagRequired("config-id")

	historyCleanupCmd.Flags().StringVar(&historyFlags.before, "before", "", "cutoff date, YYYY-MM-DD (required)")
	historyCleanupCmd.MarkFlagRequired("before")
}
