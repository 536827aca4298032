package loader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/okian/ladder/internal/domain/model"
)

type column int

const (
	colCountry column = iota
	colYear
	colLadder
	colUpper
	colLower
	colPositive
	colNegative
	colFactor
)

type header struct {
	kind   column
	factor model.Factor
}

// headerAliases maps normalized header text to its meaning. Both the yearly
// report columns and the panel columns are accepted, as well as snake_case.
var headerAliases = map[string]header{
	"country name": {kind: colCountry},
	"country":      {kind: colCountry},
	"year":         {kind: colYear},
	"ladder score": {kind: colLadder},
	"life ladder":  {kind: colLadder},
	"ladder_score": {kind: colLadder},
	"upperwhisker": {kind: colUpper},
	"lowerwhisker": {kind: colLower},
	"upper":        {kind: colUpper},
	"lower":        {kind: colLower},

	"positive affect": {kind: colPositive},
	"positive_affect": {kind: colPositive},
	"negative affect": {kind: colNegative},
	"negative_affect": {kind: colNegative},

	"explained by: log gdp per capita":             {kind: colFactor, factor: model.GDP},
	"log gdp per capita":                           {kind: colFactor, factor: model.GDP},
	"gdp":                                          {kind: colFactor, factor: model.GDP},
	"explained by: social support":                 {kind: colFactor, factor: model.SocialSupport},
	"social support":                               {kind: colFactor, factor: model.SocialSupport},
	"social_support":                               {kind: colFactor, factor: model.SocialSupport},
	"explained by: healthy life expectancy":        {kind: colFactor, factor: model.LifeExpectancy},
	"healthy life expectancy at birth":             {kind: colFactor, factor: model.LifeExpectancy},
	"healthy life expectancy":                      {kind: colFactor, factor: model.LifeExpectancy},
	"life_expectancy":                              {kind: colFactor, factor: model.LifeExpectancy},
	"explained by: freedom to make life choices":   {kind: colFactor, factor: model.Freedom},
	"freedom to make life choices":                 {kind: colFactor, factor: model.Freedom},
	"freedom":                                      {kind: colFactor, factor: model.Freedom},
	"explained by: generosity":                     {kind: colFactor, factor: model.Generosity},
	"generosity":                                   {kind: colFactor, factor: model.Generosity},
	"explained by: perceptions of corruption":      {kind: colFactor, factor: model.Corruption},
	"perceptions of corruption":                    {kind: colFactor, factor: model.Corruption},
	"corruption":                                   {kind: colFactor, factor: model.Corruption},
	"dystopia + residual":                          {kind: colFactor, factor: model.DystopiaResidual},
	"dystopia_residual":                            {kind: colFactor, factor: model.DystopiaResidual},
}

type layout struct {
	byIndex map[int]header
	has     map[column]bool
}

func parseHeader(row []string) layout {
	l := layout{byIndex: make(map[int]header), has: make(map[column]bool)}
	for i, h := range row {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if hd, ok := headerAliases[key]; ok {
			l.byIndex[i] = hd
			l.has[hd.kind] = true
		}
	}
	return l
}

// rowValues is one parsed CSV row.
type rowValues struct {
	country  string
	year     int
	ladder   float64
	upper    *float64
	lower    *float64
	positive float64
	negative float64
	factors  map[model.Factor]float64
}

func readRows(data []byte, requireYear bool) ([]rowValues, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	head, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrMalformed, err)
	}
	lay := parseHeader(head)
	if !lay.has[colCountry] {
		return nil, fmt.Errorf("%w: country", ErrMissingColumn)
	}
	if !lay.has[colLadder] {
		return nil, fmt.Errorf("%w: ladder score", ErrMissingColumn)
	}
	if requireYear && !lay.has[colYear] {
		return nil, fmt.Errorf("%w: year", ErrMissingColumn)
	}

	var out []rowValues
	line := 1
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformed, line, err)
		}
		row, ok, err := parseRow(rec, lay)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformed, line, err)
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

// parseRow skips rows without a country or ladder score. Empty factor cells
// are left out of the factor map.
func parseRow(rec []string, lay layout) (rowValues, bool, error) {
	row := rowValues{factors: make(map[model.Factor]float64)}
	hasLadder := false
	for i, cell := range rec {
		hd, ok := lay.byIndex[i]
		if !ok {
			continue
		}
		cell = strings.TrimSpace(cell)
		if hd.kind == colCountry {
			row.country = cell
			continue
		}
		if cell == "" {
			continue
		}
		if hd.kind == colYear {
			y, err := strconv.Atoi(cell)
			if err != nil {
				return row, false, fmt.Errorf("year %q: %w", cell, err)
			}
			row.year = y
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return row, false, fmt.Errorf("value %q: %w", cell, err)
		}
		switch hd.kind {
		case colLadder:
			row.ladder, hasLadder = v, true
		case colUpper:
			row.upper = &v
		case colLower:
			row.lower = &v
		case colPositive:
			row.positive = v
		case colNegative:
			row.negative = v
		case colFactor:
			row.factors[hd.factor] = v
		}
	}
	return row, row.country != "" && hasLadder, nil
}

// ParseRecords decodes the yearless snapshot CSV.
func ParseRecords(data []byte) ([]model.CountryRecord, error) {
	rows, err := readRows(data, false)
	if err != nil {
		return nil, err
	}
	out := make([]model.CountryRecord, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out, nil
}

// ParseSeries decodes the multi-year panel CSV.
func ParseSeries(data []byte) ([]model.TimeSeriesRecord, error) {
	rows, err := readRows(data, true)
	if err != nil {
		return nil, err
	}
	out := make([]model.TimeSeriesRecord, len(rows))
	for i, r := range rows {
		out[i] = model.TimeSeriesRecord{
			CountryRecord:  r.record(),
			Year:           r.year,
			PositiveAffect: r.positive,
			NegativeAffect: r.negative,
		}
	}
	return out, nil
}

func (r rowValues) record() model.CountryRecord {
	return model.CountryRecord{
		Country:     r.country,
		LadderScore: r.ladder,
		Factors:     r.factors,
		Upper:       r.upper,
		Lower:       r.lower,
	}
}
