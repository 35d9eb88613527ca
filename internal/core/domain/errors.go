package domain

import "errors"

// ============================================================================
// Resolution Errors
// ============================================================================

var (
	// ErrNoServingModel means neither the Production-labeled version nor the
	// run fallback produced a loadable artifact. Fatal at serving startup.
	ErrNoServingModel = errors.New("no loadable model found in registry or run history")
)

// ============================================================================
// Registry Errors
// ============================================================================

var (
	ErrModelNotFound      = errors.New("no versions registered for model")
	ErrVersionNotFound    = errors.New("model version not found")
	ErrRunNotFound        = errors.New("run not found")
	ErrExperimentNotFound = errors.New("experiment not found")
	ErrNoRuns             = errors.New("experiment has no runs")
)

// ============================================================================
// Request Errors
// ============================================================================

var (
	ErrUnknownFeature  = errors.New("payload contains a feature outside the manifest")
	ErrFeatureMismatch = errors.New("feature vector width does not match model input")
	ErrUnauthorized    = errors.New("invalid or missing API key")
)
