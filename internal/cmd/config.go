package cmd

import (
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clouddepot/s3scope/internal/config"
	"github.com/clouddepot/s3scope/internal/observability"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage tool configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default s3scope.yaml",
	Long: `Write a commented default configuration file. Edit it to point at
your bucket and endpoint, or override values with S3SCOPE_* environment
variables.`,
	RunE: runConfigInit,
}

var (
	configInitPath  string
	configInitForce bool
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().StringVar(&configInitPath, "path", config.FileName+".yaml", "Where to write the config file")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := config.WriteDefault(configInitPath, configInitForce); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write config", err)
	}
	observability.CLILogger.Info("Wrote config file", zap.String("path", configInitPath))
	cmd.Printf("Wrote %s\n", configInitPath)
	return nil
}
