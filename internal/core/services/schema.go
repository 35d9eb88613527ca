package services

import (
	"fmt"
	"sort"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/domain"
)

// SchemaDescriptor is the accepted input shape of scoring requests,
// interpreted by a generic decoder instead of generated types.
//
// With a manifest the schema is closed: requests carry exactly the manifest's
// field names, each an optional float defaulting to 0.0, and the manifest
// order fixes the column order handed to the model. Without a manifest the
// schema is open: an arbitrary name-to-float mapping passed through with the
// caller fully responsible for matching the model's expected features.
type SchemaDescriptor struct {
	fields []string
	index  map[string]int
	open   bool
}

// BuildSchema constructs the descriptor for a manifest, or the open fallback
// when the manifest is absent.
func BuildSchema(manifest domain.FeatureManifest) *SchemaDescriptor {
	if len(manifest) == 0 {
		return &SchemaDescriptor{open: true}
	}
	index := make(map[string]int, len(manifest))
	fields := make([]string, len(manifest))
	for i, name := range manifest {
		fields[i] = name
		index[name] = i
	}
	return &SchemaDescriptor{fields: fields, index: index}
}

// Open reports whether the schema accepts arbitrary feature names.
func (d *SchemaDescriptor) Open() bool { return d.open }

// Fields returns the accepted field names in column order. Nil in open mode.
func (d *SchemaDescriptor) Fields() []string { return d.fields }

// Decode assembles the feature vector for one request payload.
//
// Closed mode: omitted manifest fields fill with 0.0 and any name outside
// the manifest is rejected. Open mode: values are laid out in sorted key
// order so repeated requests with the same keys score identically.
func (d *SchemaDescriptor) Decode(payload map[string]float64) ([]float64, error) {
	if d.open {
		keys := make([]string, 0, len(payload))
		for k := range payload {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		vec := make([]float64, len(keys))
		for i, k := range keys {
			vec[i] = payload[k]
		}
		return vec, nil
	}

	vec := make([]float64, len(d.fields))
	for name, value := range payload {
		i, ok := d.index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownFeature, name)
		}
		vec[i] = value
	}
	return vec, nil
}
