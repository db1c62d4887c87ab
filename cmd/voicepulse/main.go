// Package main provides the VoicePulse command line interface.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Load .env if present. Existing environment variables win.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "voicepulse",
		Short: "Audio emotion analysis service",
		Long: `VoicePulse analyzes the emotional journey of an audio recording.

It decodes the audio to 16 kHz mono PCM, classifies overlapping windows into
a seven-class emotion distribution, and derives a report with the emotion
timeline, transitions, confidence curve, heatmap, and overall sentiment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newVersionCmd())
	return root
}
