package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fileflow/internal/cli/config"
	"fileflow/pkg/client"
)

// defaultTimeout bounds the quick metadata-style calls; transfers get
// an unbounded context since they are sized by the file, not the clock.
const defaultTimeout = 30 * time.Second

var (
	cfg *config.CLIConfig
)

var rootCmd = &cobra.Command{
	Use:   "flowctl",
	Short: "FileFlow CLI client",
	Long:  "Command line interface for the FileFlow transfer and transformation service",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := cfg.Validate(); err != nil {
			fmt.Printf("Warning: Configuration validation failed: %v\n", err)
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cfg = config.LoadCLIConfig()

	rootCmd.PersistentFlags().StringVarP(&cfg.ServerURL, "server", "s", cfg.ServerURL,
		"Server base URL, e.g. http://localhost:8080")

	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newResumeCmd())
	rootCmd.AddCommand(newCancelCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newTransformCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newFilesCmd())
	rootCmd.AddCommand(newCloudCmd())
	rootCmd.AddCommand(newHealthCmd())
}

// Convenience function for CLI commands
func newAPIClient() *client.Client {
	return client.New(cfg.ServerURL)
}
