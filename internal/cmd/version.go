package cmd

import (
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the s3scope version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("s3scope " + Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
