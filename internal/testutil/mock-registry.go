package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/domain"
)

// MockRegistry is a mock of ports.Registry.
type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) ListVersions(ctx context.Context, name string) ([]*domain.ModelVersion, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ModelVersion), args.Error(1)
}

func (m *MockRegistry) TransitionStage(ctx context.Context, name string, version int, stage domain.Stage, archiveExisting bool) error {
	args := m.Called(ctx, name, version, stage, archiveExisting)
	return args.Error(0)
}

func (m *MockRegistry) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Run), args.Error(1)
}

func (m *MockRegistry) ListRuns(ctx context.Context, experiment string) ([]*domain.Run, error) {
	args := m.Called(ctx, experiment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Run), args.Error(1)
}

func (m *MockRegistry) CreateRun(ctx context.Context, experiment string, artifactURI string, metrics map[string]float64) (*domain.Run, error) {
	args := m.Called(ctx, experiment, artifactURI, metrics)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Run), args.Error(1)
}

func (m *MockRegistry) CreateVersion(ctx context.Context, name, source, runID string) (*domain.ModelVersion, error) {
	args := m.Called(ctx, name, source, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ModelVersion), args.Error(1)
}

// MockArtifactLoader is a mock of ports.ArtifactLoader.
type MockArtifactLoader struct {
	mock.Mock
}

func (m *MockArtifactLoader) Load(ctx context.Context, source string) (domain.Scorer, error) {
	args := m.Called(ctx, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.Scorer), args.Error(1)
}

// StaticScorer always predicts a fixed class. Width 0 disables input checks.
type StaticScorer struct {
	Class int
	Width int
	Err   error
}

func (s *StaticScorer) PredictClass(features []float64) (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	return s.Class, nil
}

func (s *StaticScorer) NumFeatures() int { return s.Width }
