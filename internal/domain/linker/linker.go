// Package linker resolves geographic shape names to country records.
//
// Resolution is exact on the normalized name first. Otherwise every record
// name is scored and the best candidate is accepted when its score is
// strictly above the threshold. Candidates are visited in lexicographic
// order of their normalized name and only a strictly better score replaces
// the current best, so ties always resolve to the same record.
package linker

import (
	"context"
	"fmt"
	"sort"

	"github.com/biter777/countries"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/snapshot"
	"github.com/okian/ladder/pkg/logger"
)

// Kind classifies a link outcome.
type Kind string

const (
	KindExact     Kind = "exact"
	KindFuzzy     Kind = "fuzzy"
	KindUnmatched Kind = "unmatched"
)

// Result is the outcome of linking one feature.
type Result struct {
	Feature    model.ShapeFeature
	Record     *model.CountryRecord
	Confidence float64
	Kind       Kind
}

// Matched reports whether a record was found.
func (r Result) Matched() bool { return r.Record != nil }

type candidate struct {
	normalized string
	code       countries.CountryCode
	index      int
}

// Linker links shape names against one record snapshot.
type Linker struct {
	records    *snapshot.Records
	all        []model.CountryRecord
	exact      map[string]int
	candidates []candidate

	threshold float64
	aliases   bool
	cache     *Cache
	logger    logger.Logger
}

// New indexes records. Records whose names collide after normalization are
// rejected because exact lookups would be ambiguous.
func New(records *snapshot.Records, opts ...Option) (*Linker, error) {
	l := &Linker{
		records:   records,
		threshold: DefaultThreshold,
		aliases:   true,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.threshold < 0 || l.threshold > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidThreshold, l.threshold)
	}

	l.all = records.All()
	l.exact = make(map[string]int, len(l.all))
	l.candidates = make([]candidate, 0, len(l.all))
	for i, rec := range l.all {
		key := Normalize(rec.Country)
		if prev, dup := l.exact[key]; dup {
			return nil, fmt.Errorf("%w: %q and %q", ErrAmbiguousName, l.all[prev].Country, rec.Country)
		}
		l.exact[key] = i
		c := candidate{normalized: key, index: i}
		if l.aliases {
			c.code = countryCode(rec.Country)
		}
		l.candidates = append(l.candidates, c)
	}
	l.dropSharedCodes()
	sort.Slice(l.candidates, func(i, j int) bool {
		return l.candidates[i].normalized < l.candidates[j].normalized
	})
	return l, nil
}

// dropSharedCodes clears alias codes claimed by more than one record, so a
// loose country lookup such as both Congos resolving to one code cannot
// score a perfect match against either.
func (l *Linker) dropSharedCodes() {
	seen := make(map[countries.CountryCode]int, len(l.candidates))
	for _, c := range l.candidates {
		if c.code != 0 {
			seen[c.code]++
		}
	}
	for i := range l.candidates {
		if seen[l.candidates[i].code] > 1 {
			l.candidates[i].code = 0
		}
	}
}

// Version returns the snapshot version this linker was built over.
func (l *Linker) Version() uint64 { return l.records.Version() }

// Threshold returns the fuzzy acceptance threshold.
func (l *Linker) Threshold() float64 { return l.threshold }

// Link resolves a bare name.
func (l *Linker) Link(name string) Result {
	return l.LinkFeature(model.ShapeFeature{Name: name})
}

// LinkFeature resolves one feature.
func (l *Linker) LinkFeature(f model.ShapeFeature) Result {
	key := cacheKey{name: f.Name, version: l.Version()}
	if l.cache != nil {
		if c, ok := l.cache.get(key); ok {
			return l.result(f, c)
		}
	}
	c := l.resolve(f.Name)
	if l.cache != nil {
		l.cache.put(key, c)
	}
	return l.result(f, c)
}

// LinkAll resolves every feature in order.
func (l *Linker) LinkAll(ctx context.Context, features []model.ShapeFeature) []Result {
	out := make([]Result, len(features))
	for i, f := range features {
		out[i] = l.LinkFeature(f)
		if out[i].Kind == KindUnmatched {
			l.logger.Debug(ctx, "shape left unmatched", logger.String("name", f.Name), logger.String("id", f.ID))
		}
	}
	return out
}

func (l *Linker) result(f model.ShapeFeature, c cached) Result {
	r := Result{Feature: f, Confidence: c.confidence, Kind: c.kind}
	if c.kind != KindUnmatched {
		rec := l.all[c.index]
		r.Record = &rec
	}
	return r
}

func (l *Linker) resolve(name string) cached {
	key := Normalize(name)
	if key == "" {
		return cached{index: -1, kind: KindUnmatched}
	}
	if i, ok := l.exact[key]; ok {
		return cached{index: i, confidence: 1, kind: KindExact}
	}

	var code countries.CountryCode
	if l.aliases {
		code = countryCode(name)
	}
	best, bestScore := -1, 0.0
	for _, c := range l.candidates {
		score := Similarity(key, c.normalized)
		if code != 0 && c.code == code {
			score = 1
		}
		if score > bestScore {
			best, bestScore = c.index, score
		}
	}
	if best < 0 || bestScore <= l.threshold {
		return cached{index: -1, confidence: bestScore, kind: KindUnmatched}
	}
	return cached{index: best, confidence: bestScore, kind: KindFuzzy}
}

// Summary counts outcomes by kind.
type Summary struct {
	Exact     int `json:"exact"`
	Fuzzy     int `json:"fuzzy"`
	Unmatched int `json:"unmatched"`
}

// Summarize tallies results.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		switch r.Kind {
		case KindExact:
			s.Exact++
		case KindFuzzy:
			s.Fuzzy++
		default:
			s.Unmatched++
		}
	}
	return s
}
