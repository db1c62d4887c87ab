package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/voicepulse/voicepulse-api/internal/bootstrap"
	"github.com/voicepulse/voicepulse-api/internal/config"
)

func newAnalyzeCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Analyze a local audio file and print the report JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to this path instead of stdout")
	return cmd
}

func runAnalyze(cmd *cobra.Command, path, output string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Keep stdout clean for the report document.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error("closing dependencies failed",
				slog.String("error", err.Error()),
			)
		}
	}()

	report, err := deps.AnalysisService.AnalyzeFile(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", path, err)
	}

	doc, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	doc = append(doc, '\n')

	if output != "" {
		if err := os.WriteFile(output, doc, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "report written to %s\n", output)
		return nil
	}

	_, err = cmd.OutOrStdout().Write(doc)
	return err
}
