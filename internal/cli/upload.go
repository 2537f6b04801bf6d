package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	uploadChunkSize int64
	uploadParallel  int
)

func newUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload a file in chunks",
		Long: `Upload a local file to the server as a chunked, resumable transfer.

Examples:
  flowctl upload ./video.mp4
  flowctl upload --chunk-size 8388608 --parallel 8 ./archive.tar
  flowctl --server http://files.internal:8080 upload report.pdf`,
		Args: cobra.ExactArgs(1),
		RunE: runUpload,
	}

	cmd.Flags().Int64Var(&uploadChunkSize, "chunk-size", 0, "Chunk size in bytes (0 uses the server default)")
	cmd.Flags().IntVar(&uploadParallel, "parallel", 4, "Number of chunks uploaded concurrently")

	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	path := args[0]

	api := newAPIClient()

	response, err := api.UploadFile(context.Background(), path, uploadChunkSize, uploadParallel)
	if err != nil {
		return fmt.Errorf("upload failed: %v", err)
	}

	fmt.Printf("Upload complete:\n")
	fmt.Printf("FileId: %s\n", response.FileID)
	fmt.Printf("Size: %d\n", response.Size)
	fmt.Printf("Checksum: %s\n", response.Checksum)

	return nil
}

func newResumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume <upload-id> <path>",
		Short: "Resume an interrupted upload",
		Long: `Resume an interrupted upload by sending only the chunks the server
has not received yet.

Example:
  flowctl resume 7f3a1c... ./video.mp4`,
		Args: cobra.ExactArgs(2),
		RunE: runResume,
	}

	cmd.Flags().IntVar(&uploadParallel, "parallel", 4, "Number of chunks uploaded concurrently")

	return cmd
}

func runResume(cmd *cobra.Command, args []string) error {
	uploadID := args[0]
	path := args[1]

	api := newAPIClient()

	response, err := api.ResumeUpload(context.Background(), uploadID, path, uploadParallel)
	if err != nil {
		return fmt.Errorf("resume failed: %v", err)
	}

	fmt.Printf("Upload complete:\n")
	fmt.Printf("FileId: %s\n", response.FileID)
	fmt.Printf("Size: %d\n", response.Size)
	fmt.Printf("Checksum: %s\n", response.Checksum)

	return nil
}

func newCancelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel <upload-id>",
		Short: "Cancel an in-flight upload and discard its chunks",
		Args:  cobra.ExactArgs(1),
		RunE:  runCancel,
	}

	return cmd
}

func runCancel(cmd *cobra.Command, args []string) error {
	uploadID := args[0]

	api := newAPIClient()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if err := api.CancelUpload(ctx, uploadID); err != nil {
		return fmt.Errorf("cancel failed: %v", err)
	}

	fmt.Printf("Upload %s canceled\n", uploadID)
	return nil
}
