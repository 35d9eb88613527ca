package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/adapters/secondary/sqlite"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/config"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/domain"
)

const batchSize = 1000

var (
	csvFlag = &cli.StringFlag{
		Name:     "csv",
		Usage:    "Path to the transactions CSV",
		Required: true,
	}

	dbFlag = &cli.StringFlag{
		Name:  "db",
		Usage: "Path to the SQLite database file (defaults to FRAUD_DB_PATH)",
	}
)

func main() {
	app := &cli.App{
		Name:   "ingest",
		Usage:  "Load a transactions CSV into the SQLite store the training jobs read",
		Flags:  []cli.Flag{csvFlag, dbFlag},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Error("ingest failed")
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dbPath := c.String(dbFlag.Name)
	if dbPath == "" {
		dbPath = cfg.Data.DBPath
	}

	f, err := os.Open(c.String(csvFlag.Name))
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	store, err := sqlite.NewTransactionStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"step", "type", "amount", "isFraud"} {
		if _, ok := col[required]; !ok {
			return fmt.Errorf("csv missing column %q", required)
		}
	}

	ctx := context.Background()
	total := 0
	batch := make([]*domain.Transaction, 0, batchSize)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read csv row: %w", err)
		}

		t, err := parseRow(record, col)
		if err != nil {
			return fmt.Errorf("row %d: %w", total+1, err)
		}
		batch = append(batch, t)

		if len(batch) == batchSize {
			if err := store.InsertBatch(ctx, batch); err != nil {
				return err
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := store.InsertBatch(ctx, batch); err != nil {
			return err
		}
		total += len(batch)
	}

	log.WithFields(log.Fields{"rows": total, "db": dbPath}).Info("ingest complete")
	return nil
}

func parseRow(record []string, col map[string]int) (*domain.Transaction, error) {
	get := func(name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}
	atof := func(s string) float64 {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}

	step, err := strconv.Atoi(get("step"))
	if err != nil {
		return nil, fmt.Errorf("bad step %q", get("step"))
	}
	amount, err := strconv.ParseFloat(get("amount"), 64)
	if err != nil {
		return nil, fmt.Errorf("bad amount %q", get("amount"))
	}

	return &domain.Transaction{
		Step:           step,
		Type:           get("type"),
		Amount:         amount,
		NameOrig:       get("nameOrig"),
		OldBalanceOrg:  atof(get("oldbalanceOrg")),
		NewBalanceOrig: atof(get("newbalanceOrig")),
		NameDest:       get("nameDest"),
		OldBalanceDest: atof(get("oldbalanceDest")),
		NewBalanceDest: atof(get("newbalanceDest")),
		IsFraud:        atoi(get("isFraud")),
		IsFlaggedFraud: atoi(get("isFlaggedFraud")),
	}, nil
}
