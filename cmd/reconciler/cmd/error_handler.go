package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	apperrors "channel-reconciler/pkg/errors"
	"channel-reconciler/pkg/logger"
)

// CLIErrorHandler turns errors into user-facing messages and exit codes
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// HandleError prints a friendly message for the error and returns the
// process exit code.
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Error("Command failed")

	if appErr, ok := apperrors.As(err); ok {
		return h.handleAppError(appErr)
	}
	return h.handleGenericError(err)
}

func (h *CLIErrorHandler) handleAppError(err *apperrors.Error) int {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "\nContext:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}
	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(os.Stderr, "\n%s\n", categoryHelp(err.Category))

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "\nUnderlying error: %v\n", err.Cause)
	}
	return err.ExitCode()
}

func (h *CLIErrorHandler) handleGenericError(err error) int {
	if os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}
	if os.IsPermission(err) {
		fmt.Fprintf(os.Stderr, "Error: Permission denied\n")
		fmt.Fprintf(os.Stderr, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if !h.verbose {
		fmt.Fprintf(os.Stderr, "Run with --verbose for more detail\n")
	}
	return 1
}

func categoryHelp(category apperrors.Category) string {
	switch category {
	case apperrors.CategoryFile:
		return `File error help:
• Check if the file exists and is readable
• Verify the file path is correct (use absolute paths if needed)
• Ensure you have proper permissions to access the file`

	case apperrors.CategoryConfig:
		return `Configuration error help:
• Check the channel configuration document for the named setting
• Each raw status may appear in only one status mapping
• historyDays must be positive when historical matching is enabled
• Use 'reconciler configs show <id>' to inspect the stored config`

	case apperrors.CategoryRule, apperrors.CategoryField:
		return `Data error help:
• Check the format rules on the named mapping and their operands
• Verify amounts are decimal numbers and times match the configured layout
• Rows that fail normalization are excluded and listed, not fatal`

	case apperrors.CategoryStore:
		return `Store error help:
• Verify the MySQL DSN (--mysql-dsn) and that the server is reachable
• The DSN must include parseTime=true
• Historical matching needs a configured store`

	default:
		return `For more help:
• Use 'reconciler --help' for general help
• Use 'reconciler reconcile --help' for command-specific help`
	}
}
