package domain

import (
	"time"
)

type Stage string

const (
	StageNone       Stage = "None"
	StageStaging    Stage = "Staging"
	StageProduction Stage = "Production"
	StageArchived   Stage = "Archived"
)

type RunStatus string

const (
	RunStatusRunning  RunStatus = "RUNNING"
	RunStatusFinished RunStatus = "FINISHED"
	RunStatusFailed   RunStatus = "FAILED"
)

// ModelVersion is one registered version of a named model. Version numbers
// are assigned by the registry and increase monotonically per model name.
type ModelVersion struct {
	Name         string             `json:"name"`
	Version      int                `json:"version"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
	CurrentStage Stage              `json:"current_stage"`
	Source       string             `json:"source"`
	RunID        string             `json:"run_id"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
}

// Run is a single training invocation recorded under an experiment.
// Immutable once finished.
type Run struct {
	ID           string             `json:"run_id"`
	ExperimentID string             `json:"experiment_id"`
	Status       RunStatus          `json:"status"`
	StartTime    time.Time          `json:"start_time"`
	EndTime      *time.Time         `json:"end_time,omitempty"`
	ArtifactURI  string             `json:"artifact_uri"`
	Metrics      map[string]float64 `json:"metrics,omitempty"`
}

// Scorer is a loaded model artifact. Implementations must be safe for
// concurrent use: the serving process shares one instance across requests.
type Scorer interface {
	// PredictClass scores one feature vector and returns the discrete
	// class label.
	PredictClass(features []float64) (int, error)
	// NumFeatures reports the input width the artifact was trained with,
	// or 0 if the artifact does not record it.
	NumFeatures() int
}

// ServingModel wraps a resolved, loaded artifact together with where it came
// from. Built once at process start and never mutated afterwards.
type ServingModel struct {
	ModelName string
	// Version is 0 when the model was loaded through the run fallback
	// rather than a registered version.
	Version int
	RunID   string
	Source  string
	Scorer  Scorer
}

// URI renders the identity reported by the health endpoint.
func (m *ServingModel) URI() string {
	if m.Version > 0 {
		return "models:/" + m.ModelName + "/" + string(StageProduction)
	}
	return m.Source
}

type PromotionOutcome string

const (
	OutcomePromoted     PromotionOutcome = "PROMOTED"
	OutcomeKeptExisting PromotionOutcome = "KEPT_EXISTING"
)

// PromotionDecision records which branch the promotion engine took and the
// scores it compared, so batch jobs can report it instead of swallowing it.
type PromotionDecision struct {
	Outcome          PromotionOutcome `json:"outcome"`
	ModelName        string           `json:"model_name"`
	CandidateVersion int              `json:"candidate_version"`
	CandidateScore   float64          `json:"candidate_score"`
	// ChampionVersion is 0 when the candidate bootstrapped an empty stage.
	ChampionVersion int     `json:"champion_version,omitempty"`
	ChampionScore   float64 `json:"champion_score,omitempty"`
}

func (d *PromotionDecision) Promoted() bool {
	return d.Outcome == OutcomePromoted
}
