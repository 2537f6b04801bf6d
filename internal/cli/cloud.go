package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fileflow/internal/fileflow/api"
)

var (
	cloudRegion     string
	cloudEndpoint   string
	cloudFilename   string
	presignOp       string
	presignExpiry   int64
	presignMimeType string
)

func newCloudCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cloud",
		Short: "Move files between this service and cloud object stores",
		Long: `Move files between this service and cloud object stores.

Locations are written as <provider>://<bucket>/<key>, e.g.
s3://backups/video.mp4 or gcs://media/in/report.pdf. Credentials come
from the server's configuration; per-request credentials are only
available through the HTTP API.`,
	}

	cmd.PersistentFlags().StringVar(&cloudRegion, "region", "", "Provider region")
	cmd.PersistentFlags().StringVar(&cloudEndpoint, "endpoint", "", "Provider endpoint override")

	cmd.AddCommand(newCloudUploadCmd())
	cmd.AddCommand(newCloudDownloadCmd())
	cmd.AddCommand(newCloudCopyCmd())
	cmd.AddCommand(newCloudPresignCmd())

	return cmd
}

// parseLocation splits "provider://bucket/key" into a CloudLocation.
func parseLocation(raw string) (api.CloudLocation, error) {
	var loc api.CloudLocation

	provider, rest, found := strings.Cut(raw, "://")
	bucket, key, _ := strings.Cut(rest, "/")
	if !found || provider == "" || bucket == "" || key == "" {
		return loc, fmt.Errorf("invalid cloud location %q, expected provider://bucket/key", raw)
	}

	loc.Provider = provider
	loc.Bucket = bucket
	loc.Key = key
	loc.Region = cloudRegion
	loc.Endpoint = cloudEndpoint
	return loc, nil
}

func newCloudUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file-id> <provider://bucket/key>",
		Short: "Push a stored file to a cloud object store",
		Args:  cobra.ExactArgs(2),
		RunE:  runCloudUpload,
	}
}

func runCloudUpload(cmd *cobra.Command, args []string) error {
	fileID := args[0]

	loc, err := parseLocation(args[1])
	if err != nil {
		return err
	}

	client := newAPIClient()

	response, err := client.CloudUpload(context.Background(), &api.CloudUploadRequest{
		FileID:        fileID,
		CloudLocation: loc,
	})
	if err != nil {
		return fmt.Errorf("cloud upload failed: %v", err)
	}

	fmt.Printf("Uploaded %d bytes to %s\n", response.Size, response.URI)
	return nil
}

func newCloudDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download <provider://bucket/key>",
		Short: "Pull a cloud object into the service as a stored file",
		Args:  cobra.ExactArgs(1),
		RunE:  runCloudDownload,
	}

	cmd.Flags().StringVar(&cloudFilename, "filename", "", "Filename recorded on the stored file (defaults to the key's basename)")

	return cmd
}

func runCloudDownload(cmd *cobra.Command, args []string) error {
	loc, err := parseLocation(args[0])
	if err != nil {
		return err
	}

	client := newAPIClient()

	file, err := client.CloudDownload(context.Background(), &api.CloudDownloadRequest{
		CloudLocation: loc,
		Filename:      cloudFilename,
	})
	if err != nil {
		return fmt.Errorf("cloud download failed: %v", err)
	}

	printFile(file)
	return nil
}

func newCloudCopyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "copy <src provider://bucket/key> <dst provider://bucket/key>",
		Short: "Copy an object between cloud locations",
		Args:  cobra.ExactArgs(2),
		RunE:  runCloudCopy,
	}
}

func runCloudCopy(cmd *cobra.Command, args []string) error {
	source, err := parseLocation(args[0])
	if err != nil {
		return err
	}
	destination, err := parseLocation(args[1])
	if err != nil {
		return err
	}

	client := newAPIClient()

	response, err := client.CloudCopy(context.Background(), &api.CloudCopyRequest{
		Source:      source,
		Destination: destination,
	})
	if err != nil {
		return fmt.Errorf("cloud copy failed: %v", err)
	}

	mode := "relayed"
	if response.Native {
		mode = "native"
	}
	fmt.Printf("Copied to %s (%s)\n", response.URI, mode)
	return nil
}

func newCloudPresignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presign <provider://bucket/key>",
		Short: "Generate a presigned URL for direct client access",
		Args:  cobra.ExactArgs(1),
		RunE:  runCloudPresign,
	}

	cmd.Flags().StringVar(&presignOp, "op", "read", "Operation the URL grants: read or write")
	cmd.Flags().Int64Var(&presignExpiry, "expiry", 0, "URL lifetime in seconds (0 uses the server default)")
	cmd.Flags().StringVar(&presignMimeType, "content-type", "", "Content type enforced on a write URL")

	return cmd
}

func runCloudPresign(cmd *cobra.Command, args []string) error {
	loc, err := parseLocation(args[0])
	if err != nil {
		return err
	}

	client := newAPIClient()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	response, err := client.PresignedURL(ctx, &api.PresignedURLRequest{
		CloudLocation: loc,
		Operation:     presignOp,
		ExpirySeconds: presignExpiry,
		ContentType:   presignMimeType,
	})
	if err != nil {
		return fmt.Errorf("presign failed: %v", err)
	}

	fmt.Printf("URL: %s\n", response.URL)
	fmt.Printf("Expires: %s\n", response.ExpiresAt)
	for key, value := range response.Headers {
		fmt.Printf("Header.%s: %s\n", key, value)
	}
	return nil
}
