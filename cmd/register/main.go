package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/adapters/secondary/artifact"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/adapters/secondary/registry"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/config"
)

var (
	modelFlag = &cli.StringFlag{
		Name:  "model",
		Usage: "Registered model name (defaults to MODEL_NAME)",
	}

	sourceFlag = &cli.StringFlag{
		Name:     "source",
		Usage:    "Artifact path or file:// URI produced by a training run",
		Required: true,
	}

	metricFlag = &cli.StringSliceFlag{
		Name:  "metric",
		Usage: "Metric recorded on the run, as key=value (repeatable)",
	}
)

func main() {
	app := &cli.App{
		Name:   "register",
		Usage:  "Record a trained artifact as a run and register it as a new model version",
		Flags:  []cli.Flag{modelFlag, sourceFlag, metricFlag},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Error("registration failed")
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	name := c.String(modelFlag.Name)
	if name == "" {
		name = cfg.Model.Name
	}
	source := c.String(sourceFlag.Name)

	metrics, err := parseMetrics(c.StringSlice(metricFlag.Name))
	if err != nil {
		return err
	}

	ctx := context.Background()

	// Refuse to register an artifact the serving process could not load.
	if _, err := artifact.NewLoader().Load(ctx, source); err != nil {
		return fmt.Errorf("verify artifact: %w", err)
	}

	reg, closeRegistry, err := registry.FromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRegistry()

	trainingRun, err := reg.CreateRun(ctx, cfg.Model.Experiment, source, metrics)
	if err != nil {
		return err
	}

	version, err := reg.CreateVersion(ctx, name, source, trainingRun.ID)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"model":   name,
		"version": version.Version,
		"run_id":  trainingRun.ID,
	}).Info("registered model version")
	return nil
}

func parseMetrics(raw []string) (map[string]float64, error) {
	metrics := make(map[string]float64, len(raw))
	for _, pair := range raw {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("metric %q is not key=value", pair)
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("metric %q: %w", pair, err)
		}
		metrics[key] = f
	}
	return metrics, nil
}
