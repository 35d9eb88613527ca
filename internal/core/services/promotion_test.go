package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/domain"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/testutil"
)

func version(name string, num int, stage domain.Stage, metrics map[string]float64) *domain.ModelVersion {
	return &domain.ModelVersion{
		Name:         name,
		Version:      num,
		CurrentStage: stage,
		RunID:        "",
		Metrics:      metrics,
	}
}

func TestPromoteIfBetter_BootstrapsFirstModel(t *testing.T) {
	registry := new(testutil.MockRegistry)
	svc := NewPromotionService(registry, "roc_auc")

	versions := []*domain.ModelVersion{
		version("fraud_model", 1, domain.StageNone, map[string]float64{"roc_auc": 0.75}),
	}
	registry.On("ListVersions", mock.Anything, "fraud_model").Return(versions, nil)
	registry.On("TransitionStage", mock.Anything, "fraud_model", 1, domain.StageProduction, true).Return(nil)

	decision, err := svc.PromoteIfBetter(context.Background(), "fraud_model", 1)
	assert.NoError(t, err)
	assert.Equal(t, domain.OutcomePromoted, decision.Outcome)
	assert.Equal(t, 1, decision.CandidateVersion)
	assert.Zero(t, decision.ChampionVersion)
	registry.AssertExpectations(t)
}

func TestPromoteIfBetter_PromotesOnHigherScore(t *testing.T) {
	registry := new(testutil.MockRegistry)
	svc := NewPromotionService(registry, "roc_auc")

	versions := []*domain.ModelVersion{
		version("fraud_model", 2, domain.StageNone, map[string]float64{"roc_auc": 0.83}),
		version("fraud_model", 1, domain.StageProduction, map[string]float64{"roc_auc": 0.80}),
	}
	registry.On("ListVersions", mock.Anything, "fraud_model").Return(versions, nil)
	registry.On("TransitionStage", mock.Anything, "fraud_model", 2, domain.StageProduction, true).Return(nil)

	decision, err := svc.PromoteIfBetter(context.Background(), "fraud_model", 2)
	assert.NoError(t, err)
	assert.Equal(t, domain.OutcomePromoted, decision.Outcome)
	assert.Equal(t, 0.83, decision.CandidateScore)
	assert.Equal(t, 1, decision.ChampionVersion)
	assert.Equal(t, 0.80, decision.ChampionScore)
	registry.AssertExpectations(t)
}

func TestPromoteIfBetter_TieKeepsIncumbent(t *testing.T) {
	registry := new(testutil.MockRegistry)
	svc := NewPromotionService(registry, "roc_auc")

	versions := []*domain.ModelVersion{
		version("fraud_model", 2, domain.StageNone, map[string]float64{"roc_auc": 0.80}),
		version("fraud_model", 1, domain.StageProduction, map[string]float64{"roc_auc": 0.80}),
	}
	registry.On("ListVersions", mock.Anything, "fraud_model").Return(versions, nil)

	decision, err := svc.PromoteIfBetter(context.Background(), "fraud_model", 2)
	assert.NoError(t, err)
	assert.Equal(t, domain.OutcomeKeptExisting, decision.Outcome)
	registry.AssertNotCalled(t, "TransitionStage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPromoteIfBetter_WorseCandidateKeepsIncumbent(t *testing.T) {
	registry := new(testutil.MockRegistry)
	svc := NewPromotionService(registry, "roc_auc")

	versions := []*domain.ModelVersion{
		version("fraud_model", 2, domain.StageNone, map[string]float64{"roc_auc": 0.71}),
		version("fraud_model", 1, domain.StageProduction, map[string]float64{"roc_auc": 0.80}),
	}
	registry.On("ListVersions", mock.Anything, "fraud_model").Return(versions, nil)

	decision, err := svc.PromoteIfBetter(context.Background(), "fraud_model", 2)
	assert.NoError(t, err)
	assert.Equal(t, domain.OutcomeKeptExisting, decision.Outcome)
}

func TestPromoteIfBetter_MissingMetricScoresZero(t *testing.T) {
	registry := new(testutil.MockRegistry)
	svc := NewPromotionService(registry, "roc_auc")

	// Neither version recorded the metric: candidate 0.0 vs champion 0.0,
	// strict comparison keeps the incumbent without erroring.
	versions := []*domain.ModelVersion{
		version("fraud_model", 2, domain.StageNone, map[string]float64{}),
		version("fraud_model", 1, domain.StageProduction, nil),
	}
	registry.On("ListVersions", mock.Anything, "fraud_model").Return(versions, nil)

	decision, err := svc.PromoteIfBetter(context.Background(), "fraud_model", 2)
	assert.NoError(t, err)
	assert.Equal(t, domain.OutcomeKeptExisting, decision.Outcome)
	assert.Equal(t, 0.0, decision.CandidateScore)
	assert.Equal(t, 0.0, decision.ChampionScore)
}

func TestPromoteIfBetter_ReadsScoreFromRun(t *testing.T) {
	registry := new(testutil.MockRegistry)
	svc := NewPromotionService(registry, "roc_auc")

	cand := version("fraud_model", 2, domain.StageNone, nil)
	cand.RunID = "run-2"
	prod := version("fraud_model", 1, domain.StageProduction, nil)
	prod.RunID = "run-1"

	registry.On("ListVersions", mock.Anything, "fraud_model").Return([]*domain.ModelVersion{cand, prod}, nil)
	registry.On("GetRun", mock.Anything, "run-2").Return(&domain.Run{ID: "run-2", Metrics: map[string]float64{"roc_auc": 0.88}}, nil)
	registry.On("GetRun", mock.Anything, "run-1").Return(&domain.Run{ID: "run-1", Metrics: map[string]float64{"roc_auc": 0.80}}, nil)
	registry.On("TransitionStage", mock.Anything, "fraud_model", 2, domain.StageProduction, true).Return(nil)

	decision, err := svc.PromoteIfBetter(context.Background(), "fraud_model", 2)
	assert.NoError(t, err)
	assert.Equal(t, domain.OutcomePromoted, decision.Outcome)
	assert.Equal(t, 0.88, decision.CandidateScore)
	registry.AssertExpectations(t)
}

func TestPromoteIfBetter_UnknownModel(t *testing.T) {
	registry := new(testutil.MockRegistry)
	svc := NewPromotionService(registry, "roc_auc")

	registry.On("ListVersions", mock.Anything, "ghost").Return(nil, domain.ErrModelNotFound)

	_, err := svc.PromoteIfBetter(context.Background(), "ghost", 1)
	assert.ErrorIs(t, err, domain.ErrModelNotFound)
}

func TestPromoteIfBetter_UnknownVersion(t *testing.T) {
	registry := new(testutil.MockRegistry)
	svc := NewPromotionService(registry, "roc_auc")

	versions := []*domain.ModelVersion{
		version("fraud_model", 1, domain.StageProduction, map[string]float64{"roc_auc": 0.80}),
	}
	registry.On("ListVersions", mock.Anything, "fraud_model").Return(versions, nil)

	_, err := svc.PromoteIfBetter(context.Background(), "fraud_model", 9)
	assert.ErrorIs(t, err, domain.ErrVersionNotFound)
}

func TestPromoteIfBetter_MultipleChampionsPicksHighest(t *testing.T) {
	registry := new(testutil.MockRegistry)
	svc := NewPromotionService(registry, "roc_auc")

	// Invariant violation in the registry: two Production labels. The
	// engine compares against the highest-numbered one.
	versions := []*domain.ModelVersion{
		version("fraud_model", 3, domain.StageNone, map[string]float64{"roc_auc": 0.85}),
		version("fraud_model", 2, domain.StageProduction, map[string]float64{"roc_auc": 0.84}),
		version("fraud_model", 1, domain.StageProduction, map[string]float64{"roc_auc": 0.60}),
	}
	registry.On("ListVersions", mock.Anything, "fraud_model").Return(versions, nil)
	registry.On("TransitionStage", mock.Anything, "fraud_model", 3, domain.StageProduction, true).Return(nil)

	decision, err := svc.PromoteIfBetter(context.Background(), "fraud_model", 3)
	assert.NoError(t, err)
	assert.Equal(t, domain.OutcomePromoted, decision.Outcome)
	assert.Equal(t, 2, decision.ChampionVersion)
	assert.Equal(t, 0.84, decision.ChampionScore)
}

func TestPromoteIfBetter_SequentialCallsKeepSingleChampion(t *testing.T) {
	// Simulated registry honoring archiveExisting, driven through several
	// promotions: at most one Production version must remain after each.
	registry := new(testutil.MockRegistry)
	svc := NewPromotionService(registry, "roc_auc")

	state := []*domain.ModelVersion{
		version("fraud_model", 1, domain.StageNone, map[string]float64{"roc_auc": 0.70}),
		version("fraud_model", 2, domain.StageNone, map[string]float64{"roc_auc": 0.80}),
		version("fraud_model", 3, domain.StageNone, map[string]float64{"roc_auc": 0.75}),
		version("fraud_model", 4, domain.StageNone, map[string]float64{"roc_auc": 0.90}),
	}

	registry.On("ListVersions", mock.Anything, "fraud_model").Return(state, nil)
	registry.On("TransitionStage", mock.Anything, "fraud_model", mock.Anything, domain.StageProduction, true).
		Run(func(args mock.Arguments) {
			target := args.Int(2)
			for _, v := range state {
				if v.CurrentStage == domain.StageProduction {
					v.CurrentStage = domain.StageArchived
				}
				if v.Version == target {
					v.CurrentStage = domain.StageProduction
				}
			}
		}).Return(nil)

	outcomes := make([]domain.PromotionOutcome, 0, 4)
	for _, cand := range []int{1, 2, 3, 4} {
		decision, err := svc.PromoteIfBetter(context.Background(), "fraud_model", cand)
		assert.NoError(t, err)
		outcomes = append(outcomes, decision.Outcome)

		champions := 0
		for _, v := range state {
			if v.CurrentStage == domain.StageProduction {
				champions++
			}
		}
		assert.Equal(t, 1, champions)
	}

	assert.Equal(t, []domain.PromotionOutcome{
		domain.OutcomePromoted,     // bootstrap
		domain.OutcomePromoted,     // 0.80 > 0.70
		domain.OutcomeKeptExisting, // 0.75 < 0.80
		domain.OutcomePromoted,     // 0.90 > 0.80
	}, outcomes)
}

func TestPromoteIfBetter_TransitionFailurePropagates(t *testing.T) {
	registry := new(testutil.MockRegistry)
	svc := NewPromotionService(registry, "roc_auc")

	versions := []*domain.ModelVersion{
		version("fraud_model", 1, domain.StageNone, map[string]float64{"roc_auc": 0.9}),
	}
	boom := errors.New("registry unavailable")
	registry.On("ListVersions", mock.Anything, "fraud_model").Return(versions, nil)
	registry.On("TransitionStage", mock.Anything, "fraud_model", 1, domain.StageProduction, true).Return(boom)

	_, err := svc.PromoteIfBetter(context.Background(), "fraud_model", 1)
	assert.ErrorIs(t, err, boom)
}
