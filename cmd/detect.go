package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/echo-guard/internal/app"
)

var (
	detectPrimary   string
	detectSecondary string
	detectDetailed  bool
)

// detectCmd represents the detect command
var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Classify one primary capture against its secondary reference",
	Long: `Compare a primary recording (typically the microphone) with a secondary
reference (typically what was sent to the speaker) and report whether the
primary is an echo of the secondary or real speech.

Both files must be PCM WAV at the configured sample rate (16 kHz by default).
Stereo input is downmixed to mono.

Examples:
  # Classify a single pair
  echo-guard detect --primary mic.wav --secondary speaker.wav

  # Include per-stream features and lag alignment, as JSON
  echo-guard detect --primary mic.wav --secondary speaker.wav --detailed -o json`,
	Args: cobra.NoArgs,
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().StringVarP(&detectPrimary, "primary", "p", "",
		"primary (microphone) WAV file")
	detectCmd.Flags().StringVarP(&detectSecondary, "secondary", "s", "",
		"secondary (reference) WAV file")
	detectCmd.Flags().BoolVar(&detectDetailed, "detailed", false,
		"include per-stream features and frame flux diagnostics")

	detectCmd.MarkFlagRequired("primary")
	detectCmd.MarkFlagRequired("secondary")
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	echoGuard, err := app.NewEchoGuardApp(&app.Context{
		PrimaryFile:   detectPrimary,
		SecondaryFile: detectSecondary,
		OutputFile:    outputFile,
		Detailed:      detectDetailed,
	})
	if err != nil {
		return err
	}
	defer echoGuard.Close()

	return echoGuard.RunDetect(ctx)
}
