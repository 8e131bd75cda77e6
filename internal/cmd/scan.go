package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clouddepot/s3scope/internal/config"
	"github.com/clouddepot/s3scope/internal/observability"
	"github.com/clouddepot/s3scope/pkg/match"
	"github.com/clouddepot/s3scope/pkg/provider"
	"github.com/clouddepot/s3scope/pkg/provider/s3"
	"github.com/clouddepot/s3scope/pkg/report"
	"github.com/clouddepot/s3scope/pkg/scan"
	"github.com/clouddepot/s3scope/pkg/transfer"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Aggregate folder statistics under a prefix, optionally downloading",
	Long: `Scan every object under a key prefix, grouping counts and sizes by
parent folder, and print a summary report. With --download, a second pass
mirrors the counted objects into a local directory.

Example:
  s3scope scan --prefix data/
  s3scope scan --prefix data/ --extensions .nc,.tar --details
  s3scope scan --prefix data/ -e .nc -e .tar --details
  s3scope scan --prefix data/ --extensions .nc --download --dest ./mirror
  s3scope scan --prefix data/ --quiet`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanPrefix     string
	scanExtensions []string
	scanExcludes   []string
	scanDetails    bool
	scanQuiet      bool
	scanDownload   bool
	scanDest       string
	scanConfigPath string
	scanBucket     string
	scanEndpoint   string
	scanRegion     string
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanPrefix, "prefix", "p", "", "Key prefix to scan (required)")
	scanCmd.Flags().StringSliceVarP(&scanExtensions, "extensions", "e", nil, "Accepted file extensions, comma-separated or repeated (e.g. .nc,.tar); empty accepts all")
	scanCmd.Flags().StringSliceVar(&scanExcludes, "exclude", nil, "Glob patterns for keys to ignore")
	scanCmd.Flags().BoolVar(&scanDetails, "details", false, "Show per-folder breakdown")
	scanCmd.Flags().BoolVarP(&scanQuiet, "quiet", "q", false, "Suppress progress indicators")
	scanCmd.Flags().BoolVar(&scanDownload, "download", false, "Download counted objects")
	scanCmd.Flags().StringVar(&scanDest, "dest", "", "Local destination directory (required with --download)")
	scanCmd.Flags().StringVar(&scanConfigPath, "config", "", "Path to config file (default: search s3scope.yaml)")
	scanCmd.Flags().StringVar(&scanBucket, "bucket", "", "Override configured bucket")
	scanCmd.Flags().StringVar(&scanEndpoint, "endpoint", "", "Override configured endpoint")
	scanCmd.Flags().StringVar(&scanRegion, "region", "", "Override configured region")

	_ = scanCmd.MarkFlagRequired("prefix")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Cross-field validation happens before any network activity.
	if err := validateTransferFlags(scanDownload, scanDest); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid arguments", err)
	}

	prefix := normalizePrefix(scanPrefix)

	cfg, err := config.Load(scanConfigPath)
	if err != nil {
		observability.CLILogger.Error("Failed to load config", zap.Error(err))
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
	applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	filter, err := match.New(match.Config{
		Extensions: scanExtensions,
		Excludes:   scanExcludes,
	})
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid filter", err)
	}

	prov, err := s3.New(ctx, s3.Config{
		Bucket:         cfg.Bucket,
		Region:         cfg.Region,
		Endpoint:       cfg.Endpoint,
		Anonymous:      cfg.Anonymous,
		ForcePathStyle: cfg.ForcePathStyle,
	})
	if err != nil {
		observability.CLILogger.Error("Failed to create provider", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to storage provider", err)
	}
	defer func() { _ = prov.Close() }()

	runID := uuid.New().String()
	observability.CLILogger.Info("Starting scan",
		zap.String("run_id", runID),
		zap.String("bucket", cfg.Bucket),
		zap.String("prefix", prefix),
		zap.Strings("extensions", scanExtensions),
		zap.Bool("filtered", filter.Restrictive()))

	res, err := runScanPass(ctx, prov, filter, prefix)
	if err != nil {
		if ctx.Err() != nil {
			observability.CLILogger.Warn("Scan cancelled", zap.String("run_id", runID))
			return exitError(foundry.ExitSignalInt, "Scan cancelled", err)
		}
		observability.CLILogger.Error("Scan failed", zap.String("run_id", runID), zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Scan failed", err)
	}

	observability.CLILogger.Debug("Scan completed",
		zap.String("run_id", runID),
		zap.Int64("files", res.Totals.Files),
		zap.Int64("bytes", res.Totals.Bytes),
		zap.Int64("ignored", res.Totals.Ignored),
		zap.Int("folders", len(res.Folders)))

	var xfer *transfer.Totals
	var destRoot string
	if scanDownload {
		destRoot, err = filepath.Abs(scanDest)
		if err != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid destination", err)
		}

		xfer, err = runTransferPass(ctx, prov, filter, prefix, destRoot, res.Totals.Bytes)
		if err != nil {
			// Partial progress is logged for operators but never rendered
			// as a report; an aborted transfer is a failed run.
			observability.CLILogger.Error("Transfer failed",
				zap.String("run_id", runID),
				zap.Int64("files_written", xfer.Files),
				zap.Int64("bytes_written", xfer.Bytes),
				zap.Error(err))
			if ctx.Err() != nil {
				return exitError(foundry.ExitSignalInt, "Transfer cancelled", err)
			}
			var provErr *provider.ProviderError
			if errors.As(err, &provErr) {
				return exitError(foundry.ExitExternalServiceUnavailable, "Transfer failed", err)
			}
			return exitError(foundry.ExitFileWriteError, "Transfer failed", err)
		}

		observability.CLILogger.Debug("Transfer completed",
			zap.String("run_id", runID),
			zap.Int64("files", xfer.Files),
			zap.Int64("bytes", xfer.Bytes))
	}

	rep := &report.Report{
		Prefix:      prefix,
		Folders:     res.Folders,
		Totals:      res.Totals,
		ShowDetails: scanDetails,
		Transfer:    xfer,
		DestRoot:    destRoot,
	}
	rep.Render(cmd.OutOrStdout())

	return nil
}

// runScanPass executes the statistics pass with an optional counter bar.
func runScanPass(ctx context.Context, prov provider.Provider, filter *match.Filter, prefix string) (*scan.Result, error) {
	scanner := scan.New(prov, filter)

	if !scanQuiet {
		bar := pb.ProgressBarTemplate(`scanning {{counters . }} files`).Start64(0)
		bar.SetWriter(os.Stderr)
		defer bar.Finish()

		scanner.WithProgress(func(counted int64) {
			bar.SetCurrent(counted)
		})
	}

	return scanner.Run(ctx, prefix)
}

// runTransferPass executes the download pass with an optional byte bar.
// totalBytes seeds the bar total from the scan pass; the transfer re-lists
// the prefix, so the bar total is an estimate if the bucket changed between
// passes.
func runTransferPass(ctx context.Context, prov provider.Provider, filter *match.Filter, prefix, destRoot string, totalBytes int64) (*transfer.Totals, error) {
	t := transfer.New(prov, filter, destRoot)

	if !scanQuiet {
		bar := pb.Full.Start64(totalBytes)
		bar.Set(pb.Bytes, true)
		bar.SetWriter(os.Stderr)
		defer bar.Finish()

		t.WithProgress(func(files, bytes int64) {
			bar.Add64(bytes)
		})
	}

	return t.Run(ctx, prefix)
}

// validateTransferFlags enforces that --download and --dest come together.
func validateTransferFlags(download bool, dest string) error {
	switch {
	case download && dest == "":
		return fmt.Errorf("--download requires --dest")
	case !download && dest != "":
		return fmt.Errorf("--dest requires --download")
	}
	return nil
}

// normalizePrefix appends the key separator when missing.
func normalizePrefix(prefix string) string {
	if strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}

// applyOverrides layers flag values over file/env configuration.
func applyOverrides(cfg *config.Config) {
	if scanBucket != "" {
		cfg.Bucket = scanBucket
	}
	if scanEndpoint != "" {
		cfg.Endpoint = scanEndpoint
		cfg.ForcePathStyle = true
	}
	if scanRegion != "" {
		cfg.Region = scanRegion
	}
}
