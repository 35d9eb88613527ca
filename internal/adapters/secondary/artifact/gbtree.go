package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/domain"
	ports "github.com/valerieholtz/fraud-mlops-pipeline/internal/core/ports/output"
)

const modelFileName = "model.json"

// Loader reads gradient-boosted-tree dumps from the local filesystem.
// A source may be a file path, a file:// URI, or a directory holding
// model.json (the layout training jobs write under the run artifact root).
type Loader struct{}

func NewLoader() ports.ArtifactLoader { return &Loader{} }

func (l *Loader) Load(_ context.Context, source string) (domain.Scorer, error) {
	path := strings.TrimPrefix(source, "file://")

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", source, err)
	}
	if info.IsDir() {
		path = filepath.Join(path, modelFileName)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}

	var model GBTree
	if err := json.Unmarshal(raw, &model); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	if err := model.validate(); err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	return &model, nil
}

// Node is one split or leaf of a boosted tree. Internal nodes route on
// feature[Split] < Threshold; Missing routes NaN inputs.
type Node struct {
	Split     int      `json:"split"`
	Threshold float64  `json:"threshold"`
	Yes       int      `json:"yes"`
	No        int      `json:"no"`
	Missing   int      `json:"missing"`
	Leaf      *float64 `json:"leaf,omitempty"`
}

// GBTree is a binary classifier dumped as a forest of regression trees.
// The predicted probability is sigmoid(base margin + sum of leaf values).
type GBTree struct {
	Trees      [][]Node `json:"trees"`
	BaseScore  float64  `json:"base_score"`
	NumFeature int      `json:"num_feature"`
}

func (m *GBTree) NumFeatures() int { return m.NumFeature }

// PredictClass returns 1 when the fraud probability reaches 0.5.
func (m *GBTree) PredictClass(features []float64) (int, error) {
	p, err := m.predictProbability(features)
	if err != nil {
		return 0, err
	}
	if p >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

func (m *GBTree) predictProbability(features []float64) (float64, error) {
	margin := logit(m.BaseScore)
	for i, tree := range m.Trees {
		leaf, err := evalTree(tree, features)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		margin += leaf
	}
	return sigmoid(margin), nil
}

func evalTree(nodes []Node, features []float64) (float64, error) {
	idx := 0
	for steps := 0; steps <= len(nodes); steps++ {
		if idx < 0 || idx >= len(nodes) {
			return 0, fmt.Errorf("node index %d out of range", idx)
		}
		n := nodes[idx]
		if n.Leaf != nil {
			return *n.Leaf, nil
		}
		if n.Split < 0 || n.Split >= len(features) {
			return 0, fmt.Errorf("split feature %d out of range", n.Split)
		}
		value := features[n.Split]
		switch {
		case math.IsNaN(value):
			idx = n.Missing
		case value < n.Threshold:
			idx = n.Yes
		default:
			idx = n.No
		}
	}
	return 0, fmt.Errorf("cycle detected")
}

func (m *GBTree) validate() error {
	if len(m.Trees) == 0 {
		return fmt.Errorf("model has no trees")
	}
	if m.BaseScore <= 0 || m.BaseScore >= 1 {
		return fmt.Errorf("base_score %v outside (0,1)", m.BaseScore)
	}
	for i, tree := range m.Trees {
		if len(tree) == 0 {
			return fmt.Errorf("tree %d is empty", i)
		}
	}
	return nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func logit(p float64) float64 {
	return math.Log(p / (1.0 - p))
}
