package model

import (
	"fmt"
	"strings"
)

// Factor names a numeric column of a country record.
type Factor string

// Known factors. LadderScore and the affect scores are addressable through
// Value as well so views can rank or color by any of them.
const (
	GDP              Factor = "gdp"
	SocialSupport    Factor = "social_support"
	LifeExpectancy   Factor = "life_expectancy"
	Freedom          Factor = "freedom"
	Generosity       Factor = "generosity"
	Corruption       Factor = "corruption"
	DystopiaResidual Factor = "dystopia_residual"

	LadderScore    Factor = "ladder_score"
	PositiveAffect Factor = "positive_affect"
	NegativeAffect Factor = "negative_affect"
)

// ContributingFactors lists the explanatory factors in display order.
var ContributingFactors = []Factor{
	GDP,
	SocialSupport,
	LifeExpectancy,
	Freedom,
	Generosity,
	Corruption,
	DystopiaResidual,
}

var factorLabels = map[Factor]string{
	GDP:              "Log GDP per capita",
	SocialSupport:    "Social support",
	LifeExpectancy:   "Healthy life expectancy",
	Freedom:          "Freedom to make life choices",
	Generosity:       "Generosity",
	Corruption:       "Perceptions of corruption",
	DystopiaResidual: "Dystopia + residual",
	LadderScore:      "Ladder score",
	PositiveAffect:   "Positive affect",
	NegativeAffect:   "Negative affect",
}

// Label returns a human readable caption.
func (f Factor) Label() string {
	if l, ok := factorLabels[f]; ok {
		return l
	}
	return string(f)
}

// ParseFactor accepts the snake_case key or the label, case-insensitively.
func ParseFactor(s string) (Factor, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for f, label := range factorLabels {
		if key == string(f) || key == strings.ToLower(label) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown factor %q", ErrConfiguration, s)
}

// ParseFactors splits a comma separated list. Empty input yields nil.
func ParseFactors(s string) ([]Factor, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]Factor, 0, len(parts))
	for _, p := range parts {
		f, err := ParseFactor(p)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
