// Command train fits a fare model from a labeled CSV and writes the model
// and feature schema to the artifact directory the server loads from.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/farecast/internal/adapters/dataset"
	app "github.com/okian/farecast/internal/app"
	"github.com/okian/farecast/internal/config"
	"github.com/okian/farecast/pkg/logger"
)

var errNoData = errors.New("-data is required")

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		os.Stderr.WriteString("training failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// run parses args, trains and prints the report as JSON to out.
func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("train", flag.ContinueOnError)
	fs.SetOutput(out)
	var (
		data       = fs.String("data", "", "Labeled CSV with fare_amount")
		artifacts  = fs.String("artifacts", "", "Artifact directory (overrides artifact_dir)")
		sample     = fs.Float64("sample", 0, "Fraction of rows to keep (overrides sample_fraction)")
		seed       = fs.Int64("seed", 0, "Sampling seed (overrides sample_seed)")
		estimators = fs.Int("estimators", 0, "Number of trees (overrides estimators)")
		workers    = fs.Int("workers", 0, "Featurization workers (overrides worker_count)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *data == "" {
		return errNoData
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if *artifacts != "" {
		cfg.ArtifactDir = *artifacts
	}
	if *sample > 0 {
		cfg.SampleFraction = *sample
	}
	if *seed != 0 {
		cfg.SampleSeed = *seed
	}
	if *estimators > 0 {
		cfg.Estimators = *estimators
	}
	if *workers > 0 {
		cfg.WorkerCount = *workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}
	log := logger.Get().Named("train")

	reader := dataset.NewReader(
		dataset.WithLabel(true),
		dataset.WithSampler(dataset.NewSampler(cfg.SampleFraction, cfg.SampleSeed)),
	)
	res, err := reader.LoadFile(ctx, *data)
	if err != nil {
		return err
	}
	log.Info(ctx, "dataset loaded",
		logger.String("path", *data),
		logger.Int("records", len(res.Records)),
		logger.Int("sampledOut", res.Sampled),
		logger.Int("incomplete", res.Incomplete))

	store, err := app.StoreFromConfig(cfg)
	if err != nil {
		return err
	}
	opts := append(app.OptionsFromConfig(cfg), app.WithLogger(log), app.WithStore(store))
	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	report, err := svc.Train(ctx, res.Records)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	log.Info(ctx, "artifacts written",
		logger.String("model", store.ModelPath()),
		logger.String("schema", store.SchemaPath()))
	return nil
}
