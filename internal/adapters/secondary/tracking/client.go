package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/config"
	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/domain"
	ports "github.com/valerieholtz/fraud-mlops-pipeline/internal/core/ports/output"
)

const apiPrefix = "/api/2.0/mlflow"

// trackingClient talks to an MLflow-compatible tracking server over REST.
// Stage transitions rely on the server's archive_existing_versions flag;
// across concurrent writers the transition is last-writer-wins, the server
// offers no conditional variant.
type trackingClient struct {
	baseURL string
	client  *http.Client
}

func NewClient(cfg *config.TrackingConfig) ports.Registry {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &trackingClient{
		baseURL: cfg.URI,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// ============================================================================
// Wire types
// ============================================================================

type modelVersionJSON struct {
	Name                 string `json:"name"`
	Version              string `json:"version"`
	CreationTimestamp    int64  `json:"creation_timestamp"`
	LastUpdatedTimestamp int64  `json:"last_updated_timestamp"`
	CurrentStage         string `json:"current_stage"`
	Source               string `json:"source"`
	RunID                string `json:"run_id"`
}

type metricJSON struct {
	Key       string  `json:"key"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
}

type runJSON struct {
	Info struct {
		RunID        string `json:"run_id"`
		ExperimentID string `json:"experiment_id"`
		Status       string `json:"status"`
		StartTime    int64  `json:"start_time"`
		EndTime      int64  `json:"end_time"`
		ArtifactURI  string `json:"artifact_uri"`
	} `json:"info"`
	Data struct {
		Metrics []metricJSON `json:"metrics"`
	} `json:"data"`
}

type apiError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// ============================================================================
// ports.Registry
// ============================================================================

func (c *trackingClient) ListVersions(ctx context.Context, name string) ([]*domain.ModelVersion, error) {
	params := url.Values{}
	params.Set("filter", fmt.Sprintf("name='%s'", name))

	var out struct {
		ModelVersions []modelVersionJSON `json:"model_versions"`
	}
	if err := c.do(ctx, http.MethodGet, "/model-versions/search?"+params.Encode(), nil, &out); err != nil {
		return nil, err
	}
	if len(out.ModelVersions) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrModelNotFound, name)
	}

	versions := make([]*domain.ModelVersion, 0, len(out.ModelVersions))
	for _, mv := range out.ModelVersions {
		v, err := toDomainVersion(mv)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Version > versions[j].Version })
	return versions, nil
}

func (c *trackingClient) TransitionStage(ctx context.Context, name string, version int, stage domain.Stage, archiveExisting bool) error {
	body := map[string]interface{}{
		"name":                      name,
		"version":                   strconv.Itoa(version),
		"stage":                     string(stage),
		"archive_existing_versions": archiveExisting,
	}
	return c.do(ctx, http.MethodPost, "/model-versions/transition-stage", body, nil)
}

func (c *trackingClient) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	params := url.Values{}
	params.Set("run_id", runID)

	var out struct {
		Run runJSON `json:"run"`
	}
	if err := c.do(ctx, http.MethodGet, "/runs/get?"+params.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return toDomainRun(out.Run), nil
}

func (c *trackingClient) ListRuns(ctx context.Context, experiment string) ([]*domain.Run, error) {
	expID, err := c.experimentID(ctx, experiment)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"experiment_ids": []string{expID},
		"order_by":       []string{"attributes.start_time DESC"},
		"max_results":    100,
	}
	var out struct {
		Runs []runJSON `json:"runs"`
	}
	if err := c.do(ctx, http.MethodPost, "/runs/search", body, &out); err != nil {
		return nil, err
	}

	runs := make([]*domain.Run, 0, len(out.Runs))
	for _, r := range out.Runs {
		runs = append(runs, toDomainRun(r))
	}
	return runs, nil
}

func (c *trackingClient) CreateRun(ctx context.Context, experiment string, artifactURI string, metrics map[string]float64) (*domain.Run, error) {
	expID, err := c.experimentID(ctx, experiment)
	if err != nil {
		if err := c.do(ctx, http.MethodPost, "/experiments/create", map[string]interface{}{"name": experiment}, &struct {
			ExperimentID string `json:"experiment_id"`
		}{}); err != nil {
			return nil, fmt.Errorf("create experiment %s: %w", experiment, err)
		}
		if expID, err = c.experimentID(ctx, experiment); err != nil {
			return nil, err
		}
	}

	now := time.Now().UnixMilli()
	var created struct {
		Run runJSON `json:"run"`
	}
	body := map[string]interface{}{
		"experiment_id": expID,
		"start_time":    now,
	}
	if err := c.do(ctx, http.MethodPost, "/runs/create", body, &created); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	runID := created.Run.Info.RunID

	if len(metrics) > 0 {
		batch := make([]metricJSON, 0, len(metrics))
		for k, v := range metrics {
			batch = append(batch, metricJSON{Key: k, Value: v, Timestamp: now})
		}
		logBody := map[string]interface{}{"run_id": runID, "metrics": batch}
		if err := c.do(ctx, http.MethodPost, "/runs/log-batch", logBody, nil); err != nil {
			return nil, fmt.Errorf("log metrics for run %s: %w", runID, err)
		}
	}

	update := map[string]interface{}{
		"run_id":   runID,
		"status":   string(domain.RunStatusFinished),
		"end_time": time.Now().UnixMilli(),
	}
	if err := c.do(ctx, http.MethodPost, "/runs/update", update, nil); err != nil {
		return nil, fmt.Errorf("finish run %s: %w", runID, err)
	}

	run := toDomainRun(created.Run)
	run.Status = domain.RunStatusFinished
	run.Metrics = metrics
	if artifactURI != "" {
		run.ArtifactURI = artifactURI
	}
	return run, nil
}

func (c *trackingClient) CreateVersion(ctx context.Context, name, source, runID string) (*domain.ModelVersion, error) {
	body := map[string]interface{}{
		"name":   name,
		"source": source,
		"run_id": runID,
	}
	var out struct {
		ModelVersion modelVersionJSON `json:"model_version"`
	}
	if err := c.do(ctx, http.MethodPost, "/model-versions/create", body, &out); err != nil {
		return nil, err
	}
	return toDomainVersion(out.ModelVersion)
}

// ============================================================================
// Internals
// ============================================================================

func (c *trackingClient) experimentID(ctx context.Context, name string) (string, error) {
	params := url.Values{}
	params.Set("experiment_name", name)

	var out struct {
		Experiment struct {
			ExperimentID string `json:"experiment_id"`
		} `json:"experiment"`
	}
	if err := c.do(ctx, http.MethodGet, "/experiments/get-by-name?"+params.Encode(), nil, &out); err != nil {
		return "", fmt.Errorf("experiment %s: %w", name, domain.ErrExperimentNotFound)
	}
	return out.Experiment.ExperimentID, nil
}

func (c *trackingClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("tracking server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		raw, _ := io.ReadAll(resp.Body)
		if jsonErr := json.Unmarshal(raw, &apiErr); jsonErr == nil && apiErr.Message != "" {
			return fmt.Errorf("tracking server %d %s: %s", resp.StatusCode, apiErr.ErrorCode, apiErr.Message)
		}
		return fmt.Errorf("tracking server returned %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func toDomainVersion(mv modelVersionJSON) (*domain.ModelVersion, error) {
	num, err := strconv.Atoi(mv.Version)
	if err != nil {
		return nil, fmt.Errorf("parse version %q: %w", mv.Version, err)
	}
	return &domain.ModelVersion{
		Name:         mv.Name,
		Version:      num,
		CreatedAt:    time.UnixMilli(mv.CreationTimestamp),
		UpdatedAt:    time.UnixMilli(mv.LastUpdatedTimestamp),
		CurrentStage: domain.Stage(mv.CurrentStage),
		Source:       mv.Source,
		RunID:        mv.RunID,
	}, nil
}

func toDomainRun(r runJSON) *domain.Run {
	run := &domain.Run{
		ID:           r.Info.RunID,
		ExperimentID: r.Info.ExperimentID,
		Status:       domain.RunStatus(r.Info.Status),
		StartTime:    time.UnixMilli(r.Info.StartTime),
		ArtifactURI:  r.Info.ArtifactURI,
	}
	if r.Info.EndTime > 0 {
		end := time.UnixMilli(r.Info.EndTime)
		run.EndTime = &end
	}
	if len(r.Data.Metrics) > 0 {
		run.Metrics = make(map[string]float64, len(r.Data.Metrics))
		for _, m := range r.Data.Metrics {
			run.Metrics[m.Key] = m.Value
		}
	}
	return run
}
