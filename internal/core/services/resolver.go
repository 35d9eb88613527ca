package services

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/domain"
	ports "github.com/valerieholtz/fraud-mlops-pipeline/internal/core/ports/output"
)

// ResolverService decides which trained artifact the serving process loads.
// The Production-labeled version is the fast path; when that fails for any
// reason the newest run of the configured training lineage is loaded
// directly, bypassing the stage mechanism. Read-only and idempotent: safe to
// call on every process start.
type ResolverService struct {
	registry   ports.Registry
	loader     ports.ArtifactLoader
	experiment string
}

func NewResolverService(registry ports.Registry, loader ports.ArtifactLoader, experiment string) *ResolverService {
	return &ResolverService{registry: registry, loader: loader, experiment: experiment}
}

// Resolve returns a loadable model for name, or domain.ErrNoServingModel
// when no usable artifact exists anywhere.
func (s *ResolverService) Resolve(ctx context.Context, name string) (*domain.ServingModel, error) {
	model, err := s.resolveProduction(ctx, name)
	if err == nil {
		log.WithFields(log.Fields{"model": name, "version": model.Version}).Info("loaded Production model")
		return model, nil
	}
	log.WithError(err).WithField("model", name).Warn("Production load failed, falling back to latest run")

	model, fberr := s.resolveLatestRun(ctx, name)
	if fberr != nil {
		return nil, fmt.Errorf("%w: production: %v, fallback: %v", domain.ErrNoServingModel, err, fberr)
	}
	log.WithFields(log.Fields{"model": name, "run_id": model.RunID}).Info("loaded model from latest run")
	return model, nil
}

func (s *ResolverService) resolveProduction(ctx context.Context, name string) (*domain.ServingModel, error) {
	versions, err := s.registry.ListVersions(ctx, name)
	if err != nil {
		return nil, err
	}

	prod := currentProduction(versions)
	if prod == nil {
		return nil, fmt.Errorf("model %s: no version in stage %s", name, domain.StageProduction)
	}

	scorer, err := s.loader.Load(ctx, prod.Source)
	if err != nil {
		return nil, fmt.Errorf("load version %d artifact: %w", prod.Version, err)
	}

	return &domain.ServingModel{
		ModelName: name,
		Version:   prod.Version,
		RunID:     prod.RunID,
		Source:    prod.Source,
		Scorer:    scorer,
	}, nil
}

func (s *ResolverService) resolveLatestRun(ctx context.Context, name string) (*domain.ServingModel, error) {
	runs, err := s.registry.ListRuns(ctx, s.experiment)
	if err != nil {
		return nil, fmt.Errorf("list runs of %s: %w", s.experiment, err)
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("experiment %s: %w", s.experiment, domain.ErrNoRuns)
	}

	// Runs arrive newest first.
	latest := runs[0]
	scorer, err := s.loader.Load(ctx, latest.ArtifactURI)
	if err != nil {
		return nil, fmt.Errorf("load run %s artifact: %w", latest.ID, err)
	}

	return &domain.ServingModel{
		ModelName: name,
		RunID:     latest.ID,
		Source:    latest.ArtifactURI,
		Scorer:    scorer,
	}, nil
}

// currentProduction picks the serving champion among versions. More than one
// Production label violates the single-champion invariant; the highest
// version number wins and the anomaly is logged, never repaired here.
func currentProduction(versions []*domain.ModelVersion) *domain.ModelVersion {
	var prod *domain.ModelVersion
	count := 0
	for _, v := range versions {
		if v.CurrentStage != domain.StageProduction {
			continue
		}
		count++
		if prod == nil || v.Version > prod.Version {
			prod = v
		}
	}
	if count > 1 {
		log.WithFields(log.Fields{
			"model":    prod.Name,
			"count":    count,
			"selected": prod.Version,
		}).Warn("multiple versions labeled Production, selecting highest")
	}
	return prod
}
