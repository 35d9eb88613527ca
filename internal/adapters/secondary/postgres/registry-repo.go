package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/domain"
	ports "github.com/valerieholtz/fraud-mlops-pipeline/internal/core/ports/output"
)

// registryRepo implements the registry port directly against an
// MLflow-shaped store (model_versions, runs, metrics, experiments).
// Unlike the REST backend, a Production transition with archiveExisting
// demotes the incumbent inside one transaction.
type registryRepo struct {
	pool *pgxpool.Pool
}

func NewRegistryRepository(pool *pgxpool.Pool) ports.Registry {
	return &registryRepo{pool: pool}
}

func (r *registryRepo) ListVersions(ctx context.Context, name string) ([]*domain.ModelVersion, error) {
	query := `
		SELECT name, version, creation_time, last_updated_time,
		       current_stage, source, run_id
		FROM model_versions
		WHERE name = $1
		ORDER BY version DESC
	`
	rows, err := r.pool.Query(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("list model versions: %w", err)
	}
	defer rows.Close()

	var versions []*domain.ModelVersion
	for rows.Next() {
		var (
			v                domain.ModelVersion
			created, updated int64
			stage            string
		)
		if err := rows.Scan(&v.Name, &v.Version, &created, &updated, &stage, &v.Source, &v.RunID); err != nil {
			return nil, fmt.Errorf("scan model version: %w", err)
		}
		v.CreatedAt = time.UnixMilli(created)
		v.UpdatedAt = time.UnixMilli(updated)
		v.CurrentStage = domain.Stage(stage)
		versions = append(versions, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list model versions: %w", err)
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrModelNotFound, name)
	}
	return versions, nil
}

func (r *registryRepo) TransitionStage(ctx context.Context, name string, version int, stage domain.Stage, archiveExisting bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UnixMilli()

	if archiveExisting {
		demote := `
			UPDATE model_versions
			SET current_stage = $1, last_updated_time = $2
			WHERE name = $3 AND current_stage = $4 AND version <> $5
		`
		if _, err := tx.Exec(ctx, demote, string(domain.StageArchived), now, name, string(stage), version); err != nil {
			return fmt.Errorf("archive existing versions: %w", err)
		}
	}

	promote := `
		UPDATE model_versions
		SET current_stage = $1, last_updated_time = $2
		WHERE name = $3 AND version = $4
	`
	tag, err := tx.Exec(ctx, promote, string(stage), now, name, version)
	if err != nil {
		return fmt.Errorf("transition stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("model %s version %d: %w", name, version, domain.ErrVersionNotFound)
	}

	return tx.Commit(ctx)
}

func (r *registryRepo) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	query := `
		SELECT run_uuid, experiment_id::text, status, start_time,
		       COALESCE(end_time, 0), COALESCE(artifact_uri, '')
		FROM runs
		WHERE run_uuid = $1
	`
	var (
		run        domain.Run
		status     string
		start, end int64
	)
	err := r.pool.QueryRow(ctx, query, runID).Scan(&run.ID, &run.ExperimentID, &status, &start, &end, &run.ArtifactURI)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("run %s: %w", runID, domain.ErrRunNotFound)
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	run.Status = domain.RunStatus(status)
	run.StartTime = time.UnixMilli(start)
	if end > 0 {
		t := time.UnixMilli(end)
		run.EndTime = &t
	}

	metrics, err := r.runMetrics(ctx, runID)
	if err != nil {
		return nil, err
	}
	run.Metrics = metrics
	return &run, nil
}

func (r *registryRepo) ListRuns(ctx context.Context, experiment string) ([]*domain.Run, error) {
	var expID string
	err := r.pool.QueryRow(ctx,
		`SELECT experiment_id::text FROM experiments WHERE name = $1`, experiment,
	).Scan(&expID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("experiment %s: %w", experiment, domain.ErrExperimentNotFound)
		}
		return nil, fmt.Errorf("get experiment: %w", err)
	}

	query := `
		SELECT run_uuid, experiment_id::text, status, start_time,
		       COALESCE(end_time, 0), COALESCE(artifact_uri, '')
		FROM runs
		WHERE experiment_id::text = $1 AND lifecycle_stage = 'active'
		ORDER BY start_time DESC
	`
	rows, err := r.pool.Query(ctx, query, expID)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []*domain.Run{}
	for rows.Next() {
		var (
			run        domain.Run
			status     string
			start, end int64
		)
		if err := rows.Scan(&run.ID, &run.ExperimentID, &status, &start, &end, &run.ArtifactURI); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = domain.RunStatus(status)
		run.StartTime = time.UnixMilli(start)
		if end > 0 {
			t := time.UnixMilli(end)
			run.EndTime = &t
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func (r *registryRepo) CreateRun(ctx context.Context, experiment string, artifactURI string, metrics map[string]float64) (*domain.Run, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create run: %w", err)
	}
	defer tx.Rollback(ctx)

	var expID string
	err = tx.QueryRow(ctx, `
		INSERT INTO experiments (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING experiment_id::text
	`, experiment).Scan(&expID)
	if err != nil {
		return nil, fmt.Errorf("upsert experiment: %w", err)
	}

	runID := strings.ReplaceAll(uuid.New().String(), "-", "")
	now := time.Now()
	nowMs := now.UnixMilli()

	_, err = tx.Exec(ctx, `
		INSERT INTO runs
			(run_uuid, experiment_id, status, start_time, end_time, artifact_uri, lifecycle_stage)
		VALUES ($1, $2::integer, $3, $4, $5, $6, 'active')
	`, runID, expID, string(domain.RunStatusFinished), nowMs, nowMs, artifactURI)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	for key, value := range metrics {
		_, err = tx.Exec(ctx, `
			INSERT INTO metrics (run_uuid, key, value, timestamp, step)
			VALUES ($1, $2, $3, $4, 0)
		`, runID, key, value, nowMs)
		if err != nil {
			return nil, fmt.Errorf("log metric %s: %w", key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create run: %w", err)
	}

	end := now
	return &domain.Run{
		ID:           runID,
		ExperimentID: expID,
		Status:       domain.RunStatusFinished,
		StartTime:    now,
		EndTime:      &end,
		ArtifactURI:  artifactURI,
		Metrics:      metrics,
	}, nil
}

func (r *registryRepo) CreateVersion(ctx context.Context, name, source, runID string) (*domain.ModelVersion, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create version: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	nowMs := now.UnixMilli()

	var version int
	err = tx.QueryRow(ctx, `
		INSERT INTO model_versions
			(name, version, creation_time, last_updated_time, current_stage, source, run_id)
		SELECT $1, COALESCE(MAX(version), 0) + 1, $2, $2, $3, $4, $5
		FROM model_versions WHERE name = $1
		RETURNING version
	`, name, nowMs, string(domain.StageNone), source, runID).Scan(&version)
	if err != nil {
		return nil, fmt.Errorf("create model version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create version: %w", err)
	}

	return &domain.ModelVersion{
		Name:         name,
		Version:      version,
		CreatedAt:    now,
		UpdatedAt:    now,
		CurrentStage: domain.StageNone,
		Source:       source,
		RunID:        runID,
	}, nil
}

func (r *registryRepo) runMetrics(ctx context.Context, runID string) (map[string]float64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT key, value FROM metrics WHERE run_uuid = $1`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("get run metrics: %w", err)
	}
	defer rows.Close()

	metrics := make(map[string]float64)
	for rows.Next() {
		var (
			key   string
			value float64
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan metric: %w", err)
		}
		metrics[key] = value
	}
	return metrics, rows.Err()
}
