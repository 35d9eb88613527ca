package ports

import (
	"context"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/domain"
)

// Registry is the artifact store collaborator: a versioned mapping of model
// names to stage-labeled versions plus the run history behind them. It is a
// remote service that may be unavailable; callers own the fallback behavior.
type Registry interface {
	// ListVersions returns every version registered under name, newest
	// first. Returns domain.ErrModelNotFound when none exist.
	ListVersions(ctx context.Context, name string) ([]*domain.ModelVersion, error)

	// TransitionStage relabels one version. With archiveExisting set, any
	// other version of the same model currently carrying stage is demoted
	// to Archived in the same registry call, preserving the single-champion
	// invariant for sequential promotions.
	TransitionStage(ctx context.Context, name string, version int, stage domain.Stage, archiveExisting bool) error

	// GetRun fetches a run with its metric snapshot and artifact URI.
	GetRun(ctx context.Context, runID string) (*domain.Run, error)

	// ListRuns returns the runs of an experiment ordered by start time
	// descending. Returns domain.ErrExperimentNotFound for an unknown
	// experiment; an empty slice when it exists but has no runs.
	ListRuns(ctx context.Context, experiment string) ([]*domain.Run, error)

	// CreateRun records a finished training invocation under experiment,
	// creating the experiment when missing.
	CreateRun(ctx context.Context, experiment string, artifactURI string, metrics map[string]float64) (*domain.Run, error)

	// CreateVersion registers a new version of name pointing at source and
	// returns it with its assigned version number. The new version starts
	// at StageNone.
	CreateVersion(ctx context.Context, name, source, runID string) (*domain.ModelVersion, error)
}

// ArtifactLoader turns an artifact URI into a usable scorer.
type ArtifactLoader interface {
	Load(ctx context.Context, source string) (domain.Scorer, error)
}
