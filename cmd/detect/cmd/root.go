package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"order-tracking-service/internal/config"
	"order-tracking-service/internal/recognition"
	"order-tracking-service/internal/upload"
)

const needsReview = "NEEDS_REVIEW"

type detectOptions struct {
	hint     string
	rotate   bool
	asJSON   bool
	timeout  time.Duration
	logLevel string
}

type detectResult struct {
	File        string   `json:"file"`
	Code        string   `json:"code,omitempty"`
	Source      string   `json:"source,omitempty"`
	NeedsReview bool     `json:"needs_review"`
	Candidates  []string `json:"candidates,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// NewRootCommand builds the detect command.
func NewRootCommand() *cobra.Command {
	opts := &detectOptions{}
	c := &cobra.Command{
		Use:   "detect [files...]",
		Short: "Read the tracking code from package photos",
		Long: `Runs the code resolution pipeline (hint, filename, recognition backends) on each
photo and prints the resolved code, or NEEDS_REVIEW when nothing was found.

Backends are configured through the same environment as the server
(TESSERACT_ENABLED, ONNX_MODEL_PATH, GOOGLE_CREDENTIALS_JSON, BARCODE_ENABLED).

Examples:
  detect label.jpg
  detect --rotate --json scans/*.png
  detect --hint CUST001 photo.jpg`,
		Args: cobra.MinimumNArgs(1),
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			_ = level.UnmarshalText([]byte(opts.logLevel))
			slog.SetDefault(slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, opts, args)
		},
	}

	c.Flags().StringVar(&opts.hint, "hint", "", "explicit code; skips recognition")
	c.Flags().BoolVar(&opts.rotate, "rotate", false, "also try every variant rotated by 90, 180 and 270 degrees")
	c.Flags().BoolVar(&opts.asJSON, "json", false, "print one JSON object per file")
	c.Flags().DurationVar(&opts.timeout, "timeout", 0, "overall recognition timeout per file (default from config)")
	c.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	return c
}

func runDetect(cmd *cobra.Command, opts *detectOptions, files []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	timeout := cfg.Recognition.Timeout
	if opts.timeout > 0 {
		timeout = opts.timeout
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pre := recognition.DefaultPreprocessor()
	pre.Rotate = opts.rotate || cfg.Recognition.RotateVariants
	svc := recognition.NewService(
		recognition.BuildBackends(ctx, cfg.Recognition),
		recognition.WithPreprocessor(pre),
		recognition.WithTimeouts(timeout, cfg.Recognition.CallTimeout),
	)

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, file := range files {
		res := detect(ctx, svc, file, opts.hint)
		if opts.asJSON {
			if err := enc.Encode(res); err != nil {
				return err
			}
			continue
		}
		switch {
		case res.Error != "":
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tERROR\t%s\n", file, res.Error)
		case res.NeedsReview:
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", file, needsReview)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", file, res.Code, res.Source)
		}
	}
	return nil
}

func detect(ctx context.Context, svc *recognition.Service, file, hint string) detectResult {
	out := detectResult{File: file}
	if _, err := os.Stat(file); err != nil {
		out.Error = err.Error()
		return out
	}

	// A photo that does not decode can still resolve from the hint or its name.
	img, err := upload.OpenImage(file)
	if err != nil {
		slog.Warn("image not decodable", "file", file, "error", err)
	}

	res := svc.Resolve(ctx, img, filepath.Base(file), hint)
	out.Code = res.Code
	out.Source = string(res.Source)
	out.NeedsReview = res.NeedsReview || res.Code == ""
	out.Candidates = res.Candidates
	return out
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
