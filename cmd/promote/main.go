package main

import (
	"context"
	"encoding/json"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/adapters/secondary/registry"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/config"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/services"
)

var (
	modelFlag = &cli.StringFlag{
		Name:  "model",
		Usage: "Registered model name (defaults to MODEL_NAME)",
	}

	versionFlag = &cli.IntFlag{
		Name:  "version",
		Usage: "Candidate version number (defaults to the latest registered version)",
	}
)

func main() {
	app := &cli.App{
		Name:   "promote",
		Usage:  "Promote a model version to Production when it beats the current champion",
		Flags:  []cli.Flag{modelFlag, versionFlag},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Error("promotion failed")
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

	ctx := context.Background()
	reg, closeRegistry, err := registry.FromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRegistry()

	candidate := c.Int(versionFlag.Name)
	if candidate == 0 {
		// Mirror the CI flow: evaluate the most recently registered version.
		versions, err := reg.ListVersions(ctx, name)
		if err != nil {
			return err
		}
		candidate = versions[0].Version
	}

	svc := services.NewPromotionService(reg, cfg.Model.PromotionMetric)
	decision, err := svc.PromoteIfBetter(ctx, name, candidate)
	if err != nil {
		return err
	}

	return json.NewEncoder(os.Stdout).Encode(decision)
}
