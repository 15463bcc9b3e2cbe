package finder

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dupegraph/internal/apperr"
	"github.com/starford/dupegraph/internal/canon"
)

// Settings are the run-scoped knobs of a similarity search.
type Settings struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold" toml:"similarity_threshold"`
	GroupingThreshold   float64 `yaml:"grouping_threshold" json:"grouping_threshold" toml:"grouping_threshold"`
	ExcludeUnused       bool    `yaml:"exclude_unused" json:"exclude_unused" toml:"exclude_unused"`
	ExcludeOrganization bool    `yaml:"exclude_organization" json:"exclude_organization" toml:"exclude_organization"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		SimilarityThreshold: 0.8,
		GroupingThreshold:   0.82,
		ExcludeUnused:       true,
		ExcludeOrganization: true,
	}
}

// Validate checks both thresholds are within [0.5, 1].
func (s Settings) Validate() error {
	err := validation.ValidateStruct(&s,
		validation.Field(&s.SimilarityThreshold, validation.Min(0.5), validation.Max(1.0)),
		validation.Field(&s.GroupingThreshold, validation.Min(0.5), validation.Max(1.0)),
	)
	if err != nil {
		return fmt.Errorf("%w: settings: %v", apperr.ErrInvalid, err)
	}
	return nil
}

func (s Settings) canonOptions() canon.Options {
	return canon.Options{
		ExcludeUnused:       s.ExcludeUnused,
		ExcludeOrganization: s.ExcludeOrganization,
	}
}
