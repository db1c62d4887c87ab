package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds optional analysis overrides loaded from a YAML file. Nil
// fields leave the environment-configured value untouched.
type Tuning struct {
	WindowSeconds         *float64           `yaml:"window_seconds"`
	OverlapSeconds        *float64           `yaml:"overlap_seconds"`
	MinWindowFraction     *float64           `yaml:"min_window_fraction"`
	SignificanceThreshold *float64           `yaml:"significance_threshold"`
	PositiveThreshold     *float64           `yaml:"positive_threshold"`
	NegativeThreshold     *float64           `yaml:"negative_threshold"`
	SentimentTable        map[string]float64 `yaml:"sentiment_table"`
}

// LoadTuning parses the tuning file at path.
func LoadTuning(path string) (*Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read tuning file: %w", err)
	}

	var t Tuning
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("config: parse tuning file: %w", err)
	}
	return &t, nil
}
