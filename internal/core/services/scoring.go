package services

import (
	"fmt"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/domain"
)

// ScoringService answers prediction requests against the one model resolved
// at startup. The model handle is read-only for the life of the process, so
// concurrent requests share it without locking.
type ScoringService struct {
	schema *SchemaDescriptor
	model  *domain.ServingModel
}

func NewScoringService(schema *SchemaDescriptor, model *domain.ServingModel) *ScoringService {
	return &ScoringService{schema: schema, model: model}
}

func (s *ScoringService) Schema() *SchemaDescriptor { return s.schema }

func (s *ScoringService) Model() *domain.ServingModel { return s.model }

// Score validates the payload against the schema, assembles the feature
// vector in manifest order and returns the predicted class label.
func (s *ScoringService) Score(payload map[string]float64) (int, error) {
	vec, err := s.schema.Decode(payload)
	if err != nil {
		return 0, err
	}

	if want := s.model.Scorer.NumFeatures(); want > 0 && want != len(vec) {
		return 0, fmt.Errorf("%w: got %d, model expects %d", domain.ErrFeatureMismatch, len(vec), want)
	}

	class, err := s.model.Scorer.PredictClass(vec)
	if err != nil {
		return 0, fmt.Errorf("score request: %w", err)
	}
	return class, nil
}
