package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/echo-guard/internal/app"
)

var batchConcurrency int

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch [manifest.yaml]",
	Short: "Classify every pair listed in a manifest",
	Long: `Run detection over a YAML manifest of recorded pairs and print each
result followed by a summary: verdict counts, echo and real speech rates, and
confidence statistics (mean, median, p95, min, max, standard deviation).

Manifest format:
  pairs:
    - name: loopback
      primary: audio/mic.wav
      secondary: audio/speaker.wav

Relative paths are resolved against the manifest's directory. A pair that
fails to load is reported and does not stop the run.

Examples:
  # Run a manifest with the configured concurrency
  echo-guard batch pairs.yaml

  # Write a JSON report
  echo-guard batch pairs.yaml -o json --output-file reports/run.json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 0,
		"pairs loaded and in flight at once (default from batch.max_concurrency)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	echoGuard, err := app.NewEchoGuardApp(&app.Context{
		ManifestFile: args[0],
		OutputFile:   outputFile,
		Concurrency:  batchConcurrency,
	})
	if err != nil {
		return err
	}
	defer echoGuard.Close()

	return echoGuard.RunBatch(ctx)
}
