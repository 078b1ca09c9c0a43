package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	appconfig "channel-reconciler/cmd/reconciler/config"
	"channel-reconciler/internal/configstore"
	"channel-reconciler/internal/models"
	"channel-reconciler/internal/parsers"
	apperrors "channel-reconciler/pkg/errors"
	"channel-reconciler/pkg/logger"
)

var configsCmd = &cobra.Command{
	Use:   "configs",
	Short: "Manage channel configurations",
}

var configsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored channel configurations",
	RunE: wrapRun(func(args []string) error {
		store, err := openConfigStore()
		if err != nil {
			return err
		}
		configs, err := store.List()
		if err != nil {
			return err
		}
		if len(configs) == 0 {
			fmt.Println("no configurations stored")
			return nil
		}
		for _, cfg := range configs {
			fmt.Printf("%s  %-30s  %s vs %s\n", cfg.ID, cfg.Name, cfg.SourceAName, cfg.SourceBName)
		}
		return nil
	}),
}

var configsShowCmd = &cobra.Command{
	Use:   "show <config-id>",
	Short: "Print one configuration as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: wrapRun(func(args []string) error {
		store, err := openConfigStore()
		if err != nil {
			return err
		}
		cfg, err := store.Load(args[0])
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return apperrors.InternalError("encode config", err)
		}
		fmt.Println(string(data))
		return nil
	}),
}

var configsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a channel configuration from a JSON document",
	Args:  cobra.ExactArgs(1),
	RunE: wrapRun(func(args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			if os.IsNotExist(err) {
				return apperrors.FileError(apperrors.CodeFileNotFound, args[0], err)
			}
			return apperrors.FileError(apperrors.CodeFileRead, args[0], err)
		}
		cfg := &models.ChannelConfig{}
		if err := json.Unmarshal(data, cfg); err != nil {
			return apperrors.FileError(apperrors.CodeFileRead, args[0], err)
		}

		store, err := openConfigStore()
		if err != nil {
			return err
		}
		if err := store.Save(cfg); err != nil {
			return err
		}
		fmt.Printf("imported %s as %s\n", cfg.Name, cfg.ID)
		return nil
	}),
}

var configsDeleteCmd = &cobra.Command{
	Use:   "delete <config-id>",
	Short: "Delete a stored configuration",
	Args:  cobra.ExactArgs(1),
	RunE: wrapRun(func(args []string) error {
		store, err := openConfigStore()
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

var configsColumnsCmd = &cobra.Command{
	Use:   "columns <csv-file>",
	Short: "Show a CSV file's column names for mapping setup",
	Args:  cobra.ExactArgs(1),
	RunE: wrapRun(func(args []string) error {
		headers, err := parsers.NewReader(logger.Global()).PeekHeaders(args[0])
		if err != nil {
			return err
		}
		for i, name := range headers {
			fmt.Printf("%3d  %s\n", i, name)
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(configsCmd)
	configsCmd.AddCommand(configsListCmd, configsShowCmd, configsImportCmd, configsDeleteCmd, configsColumnsCmd)
}

func openConfigStore() (*configstore.Store, error) {
	settings := appconfig.Load()
	return configstore.New(settings.ConfigsDir(), logger.Global())
}

// wrapRun adapts a plain run function into cobra's RunE, routing failures
// through the CLI error handler's exit codes.
func wrapRun(run func(args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := run(args); err != nil {
			os.Exit(NewCLIErrorHandler().HandleError(err))
		}
		return nil
	}
}
