// Package types contains the read shapes exposed to renderers.
package types

import "github.com/okian/ladder/internal/domain/model"

// Entry is one row of a ranked list.
type Entry struct {
	Rank    int                      `json:"rank"`
	Country string                   `json:"country"`
	Score   float64                  `json:"score"`
	Upper   *float64                 `json:"upper,omitempty"`
	Lower   *float64                 `json:"lower,omitempty"`
	Factors map[model.Factor]float64 `json:"factors,omitempty"`
}

// Entries ranks already ordered records from 1.
func Entries(records []model.CountryRecord) []Entry {
	out := make([]Entry, len(records))
	for i, r := range records {
		out[i] = Entry{
			Rank:    i + 1,
			Country: r.Country,
			Score:   r.LadderScore,
			Upper:   r.Upper,
			Lower:   r.Lower,
			Factors: r.Factors,
		}
	}
	return out
}

// FeatureFill is the per-feature projection a renderer draws.
type FeatureFill struct {
	FeatureID   string   `json:"featureId"`
	Name        string   `json:"name"`
	Fill        string   `json:"fill"`
	Highlighted bool     `json:"highlighted"`
	Selected    bool     `json:"selected"`
	MatchKind   string   `json:"matchKind"`
	Confidence  float64  `json:"confidence"`
	Country     string   `json:"country,omitempty"`
	Value       *float64 `json:"value,omitempty"`
}

// MapView is a full choropleth frame.
type MapView struct {
	Year     int           `json:"year,omitempty"`
	Version  uint64        `json:"version"`
	Features []FeatureFill `json:"features"`
}

// DatasetStatus describes one dataset's load state.
type DatasetStatus struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Version uint64 `json:"version,omitempty"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
}

// Frame is pushed to stream subscribers after a state change.
type Frame struct {
	Kind    string `json:"kind"`
	Payload any    `json:"payload"`
}

// Link is one shape's link outcome.
type Link struct {
	FeatureID  string  `json:"featureId"`
	Name       string  `json:"name"`
	MatchKind  string  `json:"matchKind"`
	Confidence float64 `json:"confidence"`
	Country    string  `json:"country,omitempty"`
}

// Selection is the cross-filter state as seen by renderers.
type Selection struct {
	Country   string   `json:"country,omitempty"`
	Score     *float64 `json:"score,omitempty"`
	Threshold float64  `json:"threshold"`
	Revision  uint64   `json:"revision"`
}
