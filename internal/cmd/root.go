// Package cmd wires the s3scope command-line surface.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clouddepot/s3scope/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "s3scope",
	Short: "Folder statistics and mirroring for public object storage buckets",
	Long: `s3scope enumerates a public bucket under a key prefix, aggregates
per-folder statistics (file count, byte size, ignored entries), and can
mirror the counted objects into a local directory tree.

The target bucket and endpoint come from s3scope.yaml, S3SCOPE_* environment
variables, or flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		observability.Init(rootVerbose)
	},
}

var rootVerbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	defer observability.Sync()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		observability.CLILogger.Error("Command failed", zap.Error(err))

		var coded *exitCodeError
		if errors.As(err, &coded) {
			return coded.code
		}
		return 1
	}
	return 0
}

// exitCodeError carries a process exit code alongside the causal error.
type exitCodeError struct {
	code int
	msg  string
	err  error
}

func (e *exitCodeError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *exitCodeError) Unwrap() error {
	return e.err
}

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &exitCodeError{code: code, msg: message, err: err}
}
