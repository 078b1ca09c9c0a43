package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	appconfig "channel-reconciler/cmd/reconciler/config"
	"channel-reconciler/internal/configstore"
	"channel-reconciler/internal/models"
	"channel-reconciler/internal/reconciler"
	"channel-reconciler/internal/tasks"
	apperrors "channel-reconciler/pkg/errors"
	"channel-reconciler/pkg/logger"
)

var tasksFlags struct {
	configID  string
	extraDays int
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect and re-run completed reconciliations",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List completed tasks, newest first",
	RunE: wrapRun(func(args []string) error {
		store, err := openTaskStore()
		if err != nil {
			return err
		}
		list, err := store.List(tasksFlags.configID)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("no tasks recorded")
			return nil
		}
		for _, task := range list {
			fmt.Printf("%s  %s  %-12s  matched=%d diff=%d onlyA=%d onlyB=%d\n",
				task.TaskID, task.CreatedAt.Format("2006-01-02 15:04"), task.Type,
				task.Stats.MatchedCount, task.Stats.DiffAmountCount,
				task.Stats.OnlyInSourceACount, task.Stats.OnlyInSourceBCount)
		}
		return nil
	}),
}

var tasksShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Print one task and its stats as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: wrapRun(func(args []string) error {
		store, err := openTaskStore()
		if err != nil {
			return err
		}
		task, err := store.Load(args[0])
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(task, "", "  ")
		if err != nil {
			return apperrors.InternalError("encode task", err)
		}
		fmt.Println(string(data))
		return nil
	}),
}

var tasksDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task and its stored result",
	Args:  cobra.ExactArgs(1),
	RunE: wrapRun(func(args []string) error {
		store, err := openTaskStore()
		if err != nil {
			return err
		}
		if err := store.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])
		return nil
	}),
}

var tasksDoubleCheckCmd = &cobra.Command{
	Use:   "double-check <task-id>",
	Short: "Re-run a task purely from stored history over a widened window",
	Long: `Double-check re-runs a completed reconciliation from the history store,
widening the original date range by --extra-days on both ends. Records
that arrived late on either side get a second chance to match.`,
	Args: cobra.ExactArgs(1),
	RunE: wrapRun(func(args []string) error {
		return runDoubleCheck(args[0])
	}),
}

func init() {
	rootCmd.AddCommand(tasksCmd)
	tasksCmd.AddCommand(tasksListCmd, tasksShowCmd, tasksDeleteCmd, tasksDoubleCheckCmd)

	tasksListCmd.Flags().StringVar(&tasksFlags.configID, "config-id", "", "only list tasks of this config")
	tasksDoubleCheckCmd.Flags().IntVar(&tasksFlags.extraDays, "extra-days", 2, "days to widen the window on each end")
}

func openTaskStore() (*tasks.Store, error) {
	settings := appconfig.Load()
	return tasks.New(settings.TasksDir(), logger.Global())
}

func runDoubleCheck(taskID string) error {
	settings := appconfig.Load()
	log := logger.Global()
	ctx := context.Background()

	taskStore, err := tasks.New(settings.TasksDir(), log)
	if err != nil {
		return err
	}
	original, err := taskStore.Load(taskID)
	if err != nil {
		return err
	}

	configs, err := configstore.New(settings.ConfigsDir(), log)
	if err != nil {
		return err
	}
	cfg, err := configs.Load(original.ConfigID)
	if err != nil {
		return err
	}

	store, err := openHistoryStore(ctx, settings, log)
	if err != nil {
		return err
	}
	defer store.Close()

	rangeStart, rangeEnd, err := taskRange(original.DateRange.Start, original.DateRange.End, original.CreatedAt)
	if err != nil {
		return err
	}

	engine := reconciler.New(store, log)
	out, err := engine.DoubleCheck(ctx, cfg, rangeStart, rangeEnd, tasksFlags.extraDays)
	if err != nil {
		return err
	}

	printRunSummary(cfg, out)
	reconcileFlags.taskName = fmt.Sprintf("double-check of %s", original.TaskName)
	return recordTask(settings, log, cfg, out, models.TaskDoubleCheck)
}

// taskRange parses the task's stored date range, defaulting both ends to
// the task's creation day when the range was never recorded.
func taskRange(start, end string, created time.Time) (time.Time, time.Time, error) {
	day := func(s string) (time.Time, error) {
		return time.ParseInLocation("2006-01-02", s, time.UTC)
	}
	if start == "" || end == "" {
		d := created.UTC().Truncate(24 * time.Hour)
		return d, d, nil
	}
	s, err := day(start)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.ConfigError(apperrors.CodeInvalidConfig, "dateRange.start", start, err)
	}
	e, err := day(end)
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.ConfigError(apperrors.CodeInvalidConfig, "dateRange.end", end, err)
	}
	return s, e, nil
}
