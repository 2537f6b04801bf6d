package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fileflow/internal/fileflow/api"
)

var checksumAlgorithm string

func newFilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Manage stored files",
	}

	cmd.AddCommand(newFilesListCmd())
	cmd.AddCommand(newFilesInfoCmd())
	cmd.AddCommand(newFilesRemoveCmd())
	cmd.AddCommand(newFilesChecksumCmd())

	return cmd
}

func newFilesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all stored files",
		RunE:  runFilesList,
	}
}

func runFilesList(cmd *cobra.Command, args []string) error {
	api := newAPIClient()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	response, err := api.ListFiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list files: %v", err)
	}

	if len(response.Files) == 0 {
		fmt.Println("No files found")
		return nil
	}

	for _, file := range response.Files {
		fmt.Printf("%s %10d %s Created: %s\n",
			file.FileID, file.Size, file.Filename, file.CreatedAt.Format(time.RFC3339))
	}

	return nil
}

func newFilesInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file-id>",
		Short: "Show metadata for a stored file",
		Args:  cobra.ExactArgs(1),
		RunE:  runFilesInfo,
	}
}

func runFilesInfo(cmd *cobra.Command, args []string) error {
	fileID := args[0]

	api := newAPIClient()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	file, err := api.FileMetadata(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to get file metadata: %v", err)
	}

	printFile(file)
	return nil
}

func printFile(file *api.FileResponse) {
	fmt.Printf("FileId: %s\n", file.FileID)
	fmt.Printf("Filename: %s\n", file.Filename)
	fmt.Printf("Size: %d\n", file.Size)
	fmt.Printf("MimeType: %s\n", file.MimeType)
	fmt.Printf("Checksum: %s\n", file.Checksum)
	fmt.Printf("Created: %s\n", file.CreatedAt.Format(time.RFC3339))
	if file.ExpiresAt != nil {
		fmt.Printf("Expires: %s\n", file.ExpiresAt.Format(time.RFC3339))
	}
	for key, value := range file.Metadata {
		fmt.Printf("Metadata.%s: %s\n", key, value)
	}
}

func newFilesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <file-id>",
		Short: "Delete a stored file and its content",
		Args:  cobra.ExactArgs(1),
		RunE:  runFilesRemove,
	}
}

func runFilesRemove(cmd *cobra.Command, args []string) error {
	fileID := args[0]

	api := newAPIClient()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	if err := api.DeleteFile(ctx, fileID); err != nil {
		return fmt.Errorf("failed to delete file: %v", err)
	}

	fmt.Printf("File %s deleted\n", fileID)
	return nil
}

func newFilesChecksumCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checksum <file-id>",
		Short: "Compute a digest of a stored file",
		Args:  cobra.ExactArgs(1),
		RunE:  runFilesChecksum,
	}

	cmd.Flags().StringVar(&checksumAlgorithm, "algorithm", "sha256", "Digest algorithm: sha256, sha512, sha1 or md5")

	return cmd
}

func runFilesChecksum(cmd *cobra.Command, args []string) error {
	fileID := args[0]

	client := newAPIClient()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	response, err := client.Checksum(ctx, &api.ChecksumRequest{
		FileID:    fileID,
		Algorithm: checksumAlgorithm,
	})
	if err != nil {
		return fmt.Errorf("failed to compute checksum: %v", err)
	}

	fmt.Printf("%s  %s\n", response.Checksum, response.FileID)
	return nil
}
