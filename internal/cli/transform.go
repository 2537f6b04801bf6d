package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fileflow/internal/fileflow/api"
)

var (
	transformParams   []string
	transformWait     bool
	transformInterval time.Duration
)

func newTransformCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transform <kind> <file-id> [file-id...]",
		Short: "Submit a transformation job",
		Long: `Submit a transformation job over one or more stored files.

Kinds: split-pdf, merge-pdf, compress, transcode, extract-audio,
thumbnail, checksum.

Examples:
  flowctl transform checksum 3d1f...
  flowctl transform split-pdf 3d1f... --param pages_per_file=10 --wait
  flowctl transform merge-pdf 3d1f... 9c2e... --wait
  flowctl transform transcode 3d1f... --param format=webm`,
		Args: cobra.MinimumNArgs(2),
		RunE: runTransform,
	}

	cmd.Flags().StringArrayVar(&transformParams, "param", nil, "Job parameter as key=value (repeatable)")
	cmd.Flags().BoolVar(&transformWait, "wait", false, "Poll until the job reaches a terminal state")
	cmd.Flags().DurationVar(&transformInterval, "interval", 500*time.Millisecond, "Poll interval used with --wait")

	return cmd
}

func runTransform(cmd *cobra.Command, args []string) error {
	kind := args[0]
	fileIDs := args[1:]

	params := make(map[string]string, len(transformParams))
	for _, p := range transformParams {
		key, value, found := strings.Cut(p, "=")
		if !found || key == "" {
			return fmt.Errorf("invalid --param %q, expected key=value", p)
		}
		params[key] = value
	}

	client := newAPIClient()
	ctx := context.Background()

	submitted, err := client.SubmitTransform(ctx, kind, &api.TransformRequest{
		InputFileIDs: fileIDs,
		Params:       params,
	})
	if err != nil {
		return fmt.Errorf("failed to submit job: %v", err)
	}

	fmt.Printf("Job submitted:\n")
	fmt.Printf("JobId: %s\n", submitted.JobID)
	fmt.Printf("Status: %s\n", submitted.Status)

	if !transformWait {
		fmt.Printf("StatusUrl: %s\n", submitted.StatusURL)
		return nil
	}

	job, err := client.WaitForJob(ctx, submitted.JobID, transformInterval)
	if err != nil {
		return fmt.Errorf("failed to wait for job: %v", err)
	}

	printJob(job)
	return nil
}

func printJob(job *api.JobResponse) {
	fmt.Printf("JobId: %s\n", job.JobID)
	fmt.Printf("Kind: %s\n", job.Kind)
	fmt.Printf("Status: %s\n", job.Status)
	fmt.Printf("Progress: %.0f%%\n", job.Progress)
	if len(job.OutputFileIDs) > 0 {
		fmt.Printf("Outputs: %s\n", strings.Join(job.OutputFileIDs, " "))
	}
	for key, value := range job.Result {
		fmt.Printf("Result.%s: %s\n", key, value)
	}
	if job.Error != "" {
		fmt.Printf("Error: %s\n", job.Error)
	}
}
