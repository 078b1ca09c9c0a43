// Package config resolves the CLI's runtime settings from flags,
// environment variables and an optional config file, all through viper.
package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

// Settings is the resolved application configuration
type Settings struct {
	// DataDir is the root directory for configs, tasks and exports
	DataDir string

	// MySQLDSN enables the MySQL history store when non-empty; otherwise
	// runs use an in-memory store and historical matching is per-process.
	MySQLDSN string

	LogLevel  string
	LogFormat string
}

// Load reads the settings from viper with sensible defaults
func Load() *Settings {
	viper.SetDefault("data-dir", defaultDataDir())
	viper.SetDefault("log-level", "info")
	viper.SetDefault("log-format", "text")

	s := &Settings{
		DataDir:   viper.GetString("data-dir"),
		MySQLDSN:  viper.GetString("mysql-dsn"),
		LogLevel:  viper.GetString("log-level"),
		LogFormat: viper.GetString("log-format"),
	}
	if viper.GetBool("verbose") {
		s.LogLevel = "debug"
	}
	return s
}

// ConfigsDir is where channel configurations live
func (s *Settings) ConfigsDir() string {
	return filepath.Join(s.DataDir, "configs")
}

// TasksDir is where completed tasks and their results live
func (s *Settings) TasksDir() string {
	return filepath.Join(s.DataDir, "tasks")
}

// ExportsDir is the default export target
func (s *Settings) ExportsDir() string {
	return filepath.Join(s.DataDir, "exports")
}

func defaultDataDir() string {
	return filepath.Join(".", "reconciler-data")
}
