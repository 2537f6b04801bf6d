package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	downloadOutput    string
	downloadChunkSize int64
	downloadParallel  int
	downloadStart     int64
	downloadEnd       int64
)

func newDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <file-id>",
		Short: "Download a stored file",
		Long: `Download a stored file to the local disk.

By default the file is fetched in parallel windows using the server's
download manifest. With --start/--end a single byte range is streamed
instead.

Examples:
  flowctl download 3d1f... -o video.mp4
  flowctl download 3d1f... --parallel 8 --chunk-size 8388608
  flowctl download 3d1f... --start 0 --end 1023 -o header.bin`,
		Args: cobra.ExactArgs(1),
		RunE: runDownload,
	}

	cmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "Output path (defaults to the stored filename)")
	cmd.Flags().Int64Var(&downloadChunkSize, "chunk-size", 0, "Window size in bytes for parallel download (0 uses the server default)")
	cmd.Flags().IntVar(&downloadParallel, "parallel", 4, "Number of windows fetched concurrently")
	cmd.Flags().Int64Var(&downloadStart, "start", -1, "Range start byte (streams a single range instead of the whole file)")
	cmd.Flags().Int64Var(&downloadEnd, "end", -1, "Range end byte, inclusive (-1 means to the end of the file)")

	return cmd
}

func runDownload(cmd *cobra.Command, args []string) error {
	fileID := args[0]

	api := newAPIClient()
	ctx := context.Background()

	output := downloadOutput
	if output == "" {
		meta, err := api.FileMetadata(ctx, fileID)
		if err != nil {
			return fmt.Errorf("download failed: %v", err)
		}
		output = filepath.Base(meta.Filename)
	}

	if downloadStart >= 0 {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()

		n, err := api.DownloadRange(ctx, fileID, downloadStart, downloadEnd, f)
		if err != nil {
			return fmt.Errorf("download failed: %v", err)
		}

		fmt.Printf("Downloaded %d bytes to %s\n", n, output)
		return nil
	}

	if err := api.DownloadToFile(ctx, fileID, output, downloadChunkSize, downloadParallel); err != nil {
		return fmt.Errorf("download failed: %v", err)
	}

	info, err := os.Stat(output)
	if err != nil {
		return err
	}

	fmt.Printf("Downloaded %d bytes to %s\n", info.Size(), output)
	return nil
}
