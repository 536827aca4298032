package model

import (
	"fmt"
	"regexp"
	"strings"
)

// Confidence bounds accepted for an evaluation.
const (
	MinConfidence   = 1
	MaxConfidence   = 10
	PreferenceCount = 3
)

// Well-known evaluation phases.
const (
	PhaseInitial = "initial"
	PhaseFinal   = "final"
)

var phasePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)

// Evaluation is a participant's answer for one phase.
type Evaluation struct {
	ResidingCountry    string   `json:"residingCountry"`
	PreferredCountries []string `json:"preferredCountries"`
	ConfidenceLevel    int      `json:"confidenceLevel"`
}

// Validate checks the shape of the response.
func (e Evaluation) Validate() error {
	if strings.TrimSpace(e.ResidingCountry) == "" {
		return fmt.Errorf("%w: residing country is required", ErrInvalidEvaluation)
	}
	if len(e.PreferredCountries) != PreferenceCount {
		return fmt.Errorf("%w: expected %d preferred countries, got %d",
			ErrInvalidEvaluation, PreferenceCount, len(e.PreferredCountries))
	}
	for i, c := range e.PreferredCountries {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("%w: preferred country %d is empty", ErrInvalidEvaluation, i+1)
		}
	}
	if e.ConfidenceLevel < MinConfidence || e.ConfidenceLevel > MaxConfidence {
		return fmt.Errorf("%w: confidence level %d outside [%d,%d]",
			ErrInvalidEvaluation, e.ConfidenceLevel, MinConfidence, MaxConfidence)
	}
	return nil
}

// ValidatePhase checks a phase name is usable as a storage key.
func ValidatePhase(phase string) error {
	if !phasePattern.MatchString(phase) {
		return fmt.Errorf("%w: invalid phase %q", ErrInvalidEvaluation, phase)
	}
	return nil
}
