package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"channel-reconciler/pkg/logger"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Two-source record reconciliation tool",
	Long: `Reconciler normalizes two tabular sources through per-channel mapping
rules and matches them on a configured identifier. Results split into
matched, amount-difference, and one-side-only buckets.

Examples:
  reconciler configs import channel.json
  reconciler reconcile --config-id <id> --source-a bank.csv --source-b gateway.csv
  reconciler tasks list`,
	Version: getVersionString(),
}

// Execute runs the root command; called once from main
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("data-dir", "", "root directory for configs, tasks and exports")
	rootCmd.PersistentFlags().String("mysql-dsn", "", "MySQL DSN for the history store (parseTime=true required)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("data-dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("mysql-dsn", rootCmd.PersistentFlags().Lookup("mysql-dsn"))
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}
	}

	viper.SetEnvPrefix("RECONCILER")
	viper.AutomaticEnv()

	level := viper.GetString("log-level")
	if level == "" {
		level = "info"
	}
	if viper.GetBool("verbose") {
		level = "debug"
	}
	format := viper.GetString("log-format")
	if format == "" {
		format = "text"
	}
	if log, err := logger.New(&logger.Config{Level: level, Format: format, Output: os.Stderr}); err == nil {
		logger.SetGlobal(log)
	}
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
