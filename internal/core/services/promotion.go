package services

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/domain"
	ports "github.com/valerieholtz/fraud-mlops-pipeline/internal/core/ports/output"
)

// PromotionService decides whether a freshly registered version replaces the
// serving champion. A candidate wins only with a strictly better comparison
// metric; ties keep the incumbent. Versions without the metric score 0.0.
type PromotionService struct {
	registry  ports.Registry
	metricKey string
}

func NewPromotionService(registry ports.Registry, metricKey string) *PromotionService {
	return &PromotionService{registry: registry, metricKey: metricKey}
}

// PromoteIfBetter evaluates candidate version of name against the current
// Production version. With no incumbent the candidate is promoted
// unconditionally, bootstrapping the first serving model. The stage
// transition archives any incumbent in the same registry call, so at most
// one version carries Production afterwards.
func (s *PromotionService) PromoteIfBetter(ctx context.Context, name string, candidate int) (*domain.PromotionDecision, error) {
	versions, err := s.registry.ListVersions(ctx, name)
	if err != nil {
		return nil, err
	}

	var cand *domain.ModelVersion
	for _, v := range versions {
		if v.Version == candidate {
			cand = v
			break
		}
	}
	if cand == nil {
		return nil, fmt.Errorf("model %s version %d: %w", name, candidate, domain.ErrVersionNotFound)
	}

	candScore, err := s.comparisonScore(ctx, cand)
	if err != nil {
		return nil, fmt.Errorf("candidate v%d score: %w", candidate, err)
	}

	decision := &domain.PromotionDecision{
		ModelName:        name,
		CandidateVersion: candidate,
		CandidateScore:   candScore,
	}

	prod := currentProduction(versions)
	if prod == nil {
		if err := s.registry.TransitionStage(ctx, name, candidate, domain.StageProduction, true); err != nil {
			return nil, fmt.Errorf("promote v%d: %w", candidate, err)
		}
		log.WithFields(log.Fields{"model": name, "version": candidate}).Info("no Production model yet, promoting candidate")
		decision.Outcome = domain.OutcomePromoted
		return decision, nil
	}

	prodScore, err := s.comparisonScore(ctx, prod)
	if err != nil {
		return nil, fmt.Errorf("production v%d score: %w", prod.Version, err)
	}
	decision.ChampionVersion = prod.Version
	decision.ChampionScore = prodScore

	if candScore > prodScore {
		if err := s.registry.TransitionStage(ctx, name, candidate, domain.StageProduction, true); err != nil {
			return nil, fmt.Errorf("promote v%d: %w", candidate, err)
		}
		log.WithFields(log.Fields{
			"model":     name,
			"version":   candidate,
			"candidate": candScore,
			"champion":  prodScore,
		}).Info("candidate beats champion, promoting")
		decision.Outcome = domain.OutcomePromoted
		return decision, nil
	}

	log.WithFields(log.Fields{
		"model":     name,
		"version":   prod.Version,
		"candidate": candScore,
		"champion":  prodScore,
	}).Info("keeping current Production model")
	decision.Outcome = domain.OutcomeKeptExisting
	return decision, nil
}

// comparisonScore reads the configured metric from the version snapshot,
// falling back to the run that produced the version. A version with no
// recorded metric scores 0.0 rather than failing the job.
func (s *PromotionService) comparisonScore(ctx context.Context, v *domain.ModelVersion) (float64, error) {
	if score, ok := v.Metrics[s.metricKey]; ok {
		return score, nil
	}
	if v.RunID == "" {
		return 0.0, nil
	}
	run, err := s.registry.GetRun(ctx, v.RunID)
	if err != nil {
		return 0, err
	}
	return run.Metrics[s.metricKey], nil
}
