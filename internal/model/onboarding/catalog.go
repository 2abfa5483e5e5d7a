package onboarding

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrEmptyCatalog = errors.New("step catalog has no steps")

type catalogFile struct {
	Steps []stepFile `yaml:"steps"`
}

type stepFile struct {
	Key      string `yaml:"key"`
	Question string `yaml:"question"`
	Pattern  string `yaml:"pattern"`
	Error    string `yaml:"error"`
}

// LoadCatalog reads a YAML step catalog from path.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read step catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML step catalog. Every booking key must appear
// exactly once and each pattern must compile.
func ParseCatalog(data []byte) (Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Catalog{}, fmt.Errorf("decode step catalog: %w", err)
	}
	if len(file.Steps) == 0 {
		return Catalog{}, ErrEmptyCatalog
	}

	seen := make(map[string]bool, len(file.Steps))
	steps := make([]Step, 0, len(file.Steps))
	for i, raw := range file.Steps {
		key := strings.TrimSpace(raw.Key)
		if key == "" {
			return Catalog{}, fmt.Errorf("step %d: key is required", i)
		}
		if seen[key] {
			return Catalog{}, fmt.Errorf("step %d: duplicate key %q", i, key)
		}
		seen[key] = true

		question := strings.TrimSpace(raw.Question)
		if question == "" {
			return Catalog{}, fmt.Errorf("step %q: question is required", key)
		}

		step := Step{Key: key, Question: question, Error: strings.TrimSpace(raw.Error)}
		if raw.Pattern != "" {
			re, err := regexp.Compile(raw.Pattern)
			if err != nil {
				return Catalog{}, fmt.Errorf("step %q: invalid pattern: %w", key, err)
			}
			if step.Error == "" {
				return Catalog{}, fmt.Errorf("step %q: pattern requires an error message", key)
			}
			step.Validate = PatternValidator(re)
		}
		steps = append(steps, step)
	}

	for _, key := range RequiredKeys {
		if !seen[key] {
			return Catalog{}, fmt.Errorf("step catalog is missing required key %q", key)
		}
	}

	return NewCatalog(steps), nil
}
