package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"go-produce-inspector/internal/classifier"
	"go-produce-inspector/internal/config"
	"go-produce-inspector/internal/factory"
	"go-produce-inspector/internal/report"
	"go-produce-inspector/internal/service"
	"go-produce-inspector/pkg/validation"
)

type classifyOptions struct {
	modelPath string
	backend   string
	onnxLib   string
	outDir    string
	prefix    string
}

func newClassifyCmd() *cobra.Command {
	opts := classifyOptions{}

	cmd := &cobra.Command{
		Use:   "classify [files...]",
		Short: "Classify image files and write a CSV report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &config.Config{
				ModelPath:      opts.modelPath,
				ModelBackend:   opts.backend,
				ONNXRuntimeLib: opts.onnxLib,
			}
			loader, err := factory.NewModelFactory().CreateLoader(cfg)
			if err != nil {
				return err
			}
			defer loader.Close()

			if _, err := loader.Get(); err != nil {
				return err
			}

			svc := service.NewInspectionService(classifier.New(loader), service.Options{
				Uploads: validation.NewUploadValidator(0, 0),
			})
			return runClassify(cmd.Context(), svc, report.NewBuilder(opts.prefix), args, opts.outDir, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.modelPath, "model", envOr("MODEL_PATH", "models/mobile_net_v2.onnx"), "path to the model file")
	f.StringVar(&opts.backend, "backend", envOr("MODEL_BACKEND", config.BackendONNX), "onnx|opencv")
	f.StringVar(&opts.onnxLib, "onnx-lib", os.Getenv("ONNXRUNTIME_LIB"), "path to the ONNX Runtime shared library")
	f.StringVarP(&opts.outDir, "out", "o", ".", "directory for the CSV report")
	f.StringVar(&opts.prefix, "prefix", report.DefaultPrefix, "report file name prefix")
	return cmd
}

// runClassify classifies paths in order, prints one line per file and writes
// the report into outDir.
func runClassify(ctx context.Context, svc service.InspectionService, builder *report.Builder, paths []string, outDir string, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	uploads := make([]service.Upload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		uploads = append(uploads, service.Upload{Name: filepath.Base(p), Data: data})
	}

	batch, err := svc.ClassifyBatch(ctx, uploads)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tLABEL\tCONFIDENCE")
	for _, r := range batch.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Source, r.Label, report.FormatPercent(r.Confidence))
	}
	for _, f := range batch.Failures {
		fmt.Fprintf(tw, "%s\tskipped\t%s\n", f.Source, f.Message)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	stats := report.ForBatch(batch)
	fmt.Fprintf(w, "\nTotal: %d  Healthy: %d (%.2f%%)  Damaged: %d (%.2f%%)\n",
		stats.Total, stats.HealthyCount, stats.HealthyPercentage, stats.DamagedCount, stats.DamagedPercentage)

	r, err := builder.Build(batch)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(outDir, r.Name)
	if err := os.WriteFile(path, r.Data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(w, "Report: %s\n", path)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
