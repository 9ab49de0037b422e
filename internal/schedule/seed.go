package schedule

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"onboarding-hub/internal/domain"
)

type seedFile struct {
	Weeks []domain.Week `yaml:"weeks"`
}

// LoadSeed reads a default schedule from a YAML file of the form
//
//	weeks:
//	  - week: 1
//	    title: ...
//	    days: [...]
func LoadSeed(path string) ([]domain.Week, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	return ParseSeed(raw)
}

func ParseSeed(raw []byte) ([]domain.Week, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if len(f.Weeks) == 0 {
		return nil, fmt.Errorf("parse seed: no weeks defined")
	}
	return f.Weeks, nil
}
