package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Inspect uploads and transformation jobs",
	}

	cmd.AddCommand(newUploadStatusCmd())
	cmd.AddCommand(newJobStatusCmd())

	return cmd
}

func newUploadStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <upload-id>",
		Short: "Show the state of an upload session",
		Args:  cobra.ExactArgs(1),
		RunE:  runUploadStatus,
	}
}

func runUploadStatus(cmd *cobra.Command, args []string) error {
	uploadID := args[0]

	api := newAPIClient()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	status, err := api.UploadStatus(ctx, uploadID)
	if err != nil {
		return fmt.Errorf("failed to get upload status: %v", err)
	}

	fmt.Printf("UploadId: %s\n", status.UploadID)
	fmt.Printf("Filename: %s\n", status.Filename)
	fmt.Printf("Status: %s\n", status.Status)
	fmt.Printf("Chunks: %d/%d\n", len(status.ReceivedChunks), status.TotalChunks)
	fmt.Printf("Bytes: %d (%.0f%%)\n", status.BytesUploaded, status.PercentComplete)
	if len(status.MissingChunks) > 0 {
		fmt.Printf("Missing: %v\n", status.MissingChunks)
	}

	return nil
}

func newJobStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "job <job-id>",
		Short: "Show the state of a transformation job",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobStatus,
	}
}

func runJobStatus(cmd *cobra.Command, args []string) error {
	jobID := args[0]

	api := newAPIClient()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	job, err := api.JobStatus(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to get job status: %v", err)
	}

	printJob(job)
	return nil
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE:  runHealth,
	}
}

func runHealth(cmd *cobra.Command, args []string) error {
	api := newAPIClient()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	health, err := api.Health(ctx)
	if err != nil {
		return fmt.Errorf("server unreachable: %v", err)
	}

	fmt.Printf("Status: %s\n", health.Status)
	fmt.Printf("Version: %s\n", health.Version)
	return nil
}
