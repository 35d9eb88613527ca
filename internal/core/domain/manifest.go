package domain

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// FeatureManifest is the ordered list of feature names a model was trained
// with. The order defines the column order of every scoring request; the
// manifest served must be the one written alongside the resolved artifact.
type FeatureManifest []string

// ParseManifest reads one feature name per line, skipping blanks.
func ParseManifest(r io.Reader) (FeatureManifest, error) {
	var names FeatureManifest
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return names, nil
}

// LoadManifest reads a manifest file. A missing file is not an error: it
// returns (nil, nil), which switches the request schema into open mode.
func LoadManifest(path string) (FeatureManifest, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open manifest %s: %w", path, err)
	}
	defer f.Close()
	return ParseManifest(f)
}
