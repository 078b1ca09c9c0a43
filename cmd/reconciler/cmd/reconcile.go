package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	appconfig "channel-reconciler/cmd/reconciler/config"
	"channel-reconciler/internal/configstore"
	"channel-reconciler/internal/exporter"
	"channel-reconciler/internal/history"
	"channel-reconciler/internal/models"
	"channel-reconciler/internal/normalize"
	"channel-reconciler/internal/parsers"
	"channel-reconciler/internal/reconciler"
	"channel-reconciler/internal/tasks"
	"channel-reconciler/pkg/logger"
)

var reconcileFlags struct {
	configID    string
	sourceAFile string
	sourceBFile string
	taskName    string
	exportDir   string
	category    string
	excelFile   string
	saveHistory bool
	timeout     time.Duration
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run a reconciliation between two source files",
	Long: `Reconcile normalizes both source files through the channel's mapping
rules, merges stored history where the config asks for it, and matches
records on the configured identifier.

Examples:
  reconciler reconcile --config-id <id> --source-a bank.csv --source-b gateway.csv
  reconciler reconcile --config-id <id> --source-a a.csv --source-b b.csv --export out/ --category all
  reconciler reconcile --config-id <id> --source-a a.csv --source-b b.csv --excel result.xlsx --save-history`,
	RunE: func(cmd *cobra.Command, args []string) error {
		handler := NewCLIErrorHandler()
		if err := runReconcile(cmd.Context()); err != nil {
			os.Exit(handler.HandleError(err))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().StringVar(&reconcileFlags.configID, "config-id", "", "channel configuration id (required)")
	reconcileCmd.Flags().StringVar(&reconcileFlags.sourceAFile, "source-a", "", "source A CSV file (required)")
	reconcileCmd.Flags().StringVar(&reconcileFlags.sourceBFile, "source-b", "", "source B CSV file (required)")
	reconcileCmd.Flags().StringVar(&reconcileFlags.taskName, "task-name", "", "name for the recorded task")
	reconcileCmd.Flags().StringVar(&reconcileFlags.exportDir, "export", "", "directory to export result CSV files into")
	reconcileCmd.Flags().StringVar(&reconcileFlags.category, "category", "all", "bucket to export: matched, diff, only-a, only-b, all")
	reconcileCmd.Flags().StringVar(&reconcileFlags.excelFile, "excel", "", "write the full result as an Excel workbook")
	reconcileCmd.Flags().BoolVar(&reconcileFlags.saveHistory, "save-history", false, "persist both sides' records to the history store")
	reconcileCmd.Flags().DurationVar(&reconcileFlags.timeout, "timeout", 10*time.Minute, "overall run timeout")

	reconcileCmd.MarkFlagRequired("config-id")
	reconcileCmd.MarkFlagRequired("source-a")
	reconcileCmd.MarkFlagRequired("source-b")
}

// openHistoryStore picks MySQL when a DSN is configured, otherwise an
// in-process store.
func openHistoryStore(ctx context.Context, settings *appconfig.Settings, log logger.Logger) (history.Store, error) {
	if settings.MySQLDSN == "" {
		return history.NewMemoryStore(), nil
	}
	return history.OpenSQLStore(ctx, settings.MySQLDSN, log)
}

func runReconcile(ctx context.Context) error {
	settings := appconfig.Load()
	log := logger.Global()

	ctx, cancel := context.WithTimeout(ctx, reconcileFlags.timeout)
	defer cancel()

	configs, err := configstore.New(settings.ConfigsDir(), log)
	if err != nil {
		return err
	}
	cfg, err := configs.Load(reconcileFlags.configID)
	if err != nil {
		return err
	}

	reader := parsers.NewReader(log)
	rowsA, err := reader.ReadFile(reconcileFlags.sourceAFile)
	if err != nil {
		return err
	}
	rowsB, err := reader.ReadFile(reconcileFlags.sourceBFile)
	if err != nil {
		return err
	}

	store, err := openHistoryStore(ctx, settings, log)
	if err != nil {
		return err
	}
	defer store.Close()

	engine := reconciler.New(store, log)
	out, err := engine.Reconcile(ctx, reconciler.Input{
		Config:      cfg,
		SourceARows: rowsA,
		SourceBRows: rowsB,
	})
	if err != nil {
		return err
	}

	printRunSummary(cfg, out)

	if reconcileFlags.saveHistory {
		if err := engine.SaveBatches(ctx, cfg, cfg.SourceAName, reconcileFlags.sourceAFile, out.RecordsA, uuid.NewString); err != nil {
			return err
		}
		if err := engine.SaveBatches(ctx, cfg, cfg.SourceBName, reconcileFlags.sourceBFile, out.RecordsB, uuid.NewString); err != nil {
			return err
		}
	}

	exp := exporter.New(cfg, log)
	if reconcileFlags.exportDir != "" {
		paths, err := exp.WriteCSV(reconcileFlags.exportDir, "reconcile-"+time.Now().Format("20060102-150405"),
			exporter.Category(reconcileFlags.category), out.Result)
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Printf("exported %s\n", p)
		}
	}
	if reconcileFlags.excelFile != "" {
		if err := exp.WriteExcel(reconcileFlags.excelFile, out.Result); err != nil {
			return err
		}
		fmt.Printf("exported %s\n", reconcileFlags.excelFile)
	}

	return recordTask(settings, log, cfg, out, models.TaskReconcile)
}

// recordTask appends the run to the task history
func recordTask(settings *appconfig.Settings, log logger.Logger, cfg *models.ChannelConfig, out *reconciler.Output, taskType models.TaskType) error {
	taskStore, err := tasks.New(settings.TasksDir(), log)
	if err != nil {
		return err
	}

	name := reconcileFlags.taskName
	if name == "" {
		name = fmt.Sprintf("%s %s", cfg.Name, time.Now().Format("2006-01-02 15:04"))
	}
	task := &models.ReconciliationTask{
		TaskID:                uuid.NewString(),
		TaskName:              name,
		ConfigID:              cfg.ID,
		ConfigName:            cfg.Name,
		SourceAName:           cfg.SourceAName,
		SourceBName:           cfg.SourceBName,
		Type:                  taskType,
		CreatedAt:             time.Now().UTC(),
		SourceAFile:           reconcileFlags.sourceAFile,
		SourceBFile:           reconcileFlags.sourceBFile,
		Stats:                 out.Result.Stats,
		UsedHistoricalSourceA: out.UsedHistoricalSourceA,
		UsedHistoricalSourceB: out.UsedHistoricalSourceB,
	}
	if err := taskStore.Save(task, out.Result); err != nil {
		return err
	}
	fmt.Printf("task recorded: %s\n", task.TaskID)
	return nil
}

func printRunSummary(cfg *models.ChannelConfig, out *reconciler.Output) {
	stats := out.Result.Stats
	fmt.Printf("\nReconciliation: %s\n", cfg.Name)
	fmt.Printf("  matched:            %d\n", stats.MatchedCount)
	fmt.Printf("  amount differences: %d\n", stats.DiffAmountCount)
	fmt.Printf("  only in %-10s  %d\n", cfg.SourceAName+":", stats.OnlyInSourceACount)
	fmt.Printf("  only in %-10s  %d\n", cfg.SourceBName+":", stats.OnlyInSourceBCount)
	fmt.Printf("  totals:             %d / %d\n", stats.TotalSourceA, stats.TotalSourceB)

	printDiagnostics(cfg.SourceAName, out.DiagnosticsA)
	printDiagnostics(cfg.SourceBName, out.DiagnosticsB)
	if out.UsedHistoricalSourceA || out.UsedHistoricalSourceB {
		fmt.Printf("  historical records merged (A: %t, B: %t)\n",
			out.UsedHistoricalSourceA, out.UsedHistoricalSourceB)
	}
	fmt.Println()
}

func printDiagnostics(source string, diags *normalize.Diagnostics) {
	if diags == nil {
		return
	}
	if diags.DuplicatesRemoved > 0 {
		fmt.Printf("  %s: %d duplicate rows removed\n", source, diags.DuplicatesRemoved)
	}
	if diags.HasRowErrors() {
		fmt.Printf("  %s: %d rows excluded:\n", source, len(diags.RowErrors))
		for i, rowErr := range diags.RowErrors {
			if i >= 10 {
				fmt.Printf("    ... and %d more\n", len(diags.RowErrors)-10)
				break
			}
			fmt.Printf("    - %s\n", rowErr.Message)
		}
	}
	for _, warn := range diags.Warnings {
		fmt.Printf("  %s: warning: %s\n", source, warn.Message)
	}
}
