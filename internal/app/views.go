package service

import (
	"context"
	"fmt"

	"github.com/okian/ladder/internal/adapters/loader"
	"github.com/okian/ladder/internal/domain/aggregate"
	"github.com/okian/ladder/internal/domain/animation"
	"github.com/okian/ladder/internal/domain/colorscale"
	"github.com/okian/ladder/internal/domain/linker"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/snapshot"
	"github.com/okian/ladder/internal/domain/types"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// Legend views.
const (
	LegendSnapshot = "snapshot"
	LegendYear     = "year"
)

// LinkReport is the result of linking every shape against the snapshot.
type LinkReport struct {
	Version uint64         `json:"version"`
	Summary linker.Summary `json:"summary"`
	Links   []types.Link   `json:"links"`
}

// snapshotLinks returns the link results for the published shapes against
// the published records, computing them once per version pair.
func (s *Service) snapshotLinks(ctx context.Context, v view) []linker.Result {
	s.linkMu.Lock()
	defer s.linkMu.Unlock()

	key := [2]uint64{v.records.Version(), v.shapes.Version()}
	if s.links != nil && s.linksKey == key {
		return s.links
	}
	l := s.linker
	if l == nil || l.Version() != v.records.Version() {
		// The snapshot was replaced after require; link against what we read.
		var err error
		if l, err = s.newLinker(v.records); err != nil {
			return unmatchedAll(v.shapes.All())
		}
	}

	results := l.LinkAll(ctx, v.shapes.All())
	s.links, s.linksKey = results, key
	s.observeLinksLocked(ctx, results)
	return results
}

func (s *Service) newLinker(recs *snapshot.Records) (*linker.Linker, error) {
	return linker.New(recs,
		linker.WithThreshold(s.cfg.FuzzyThreshold),
		linker.WithAliases(s.cfg.CountryAliases),
		linker.WithCache(s.linkCache),
		linker.WithLogger(s.logger.Named("linker")),
	)
}

// yearLinker returns the linker for one year slice.
func (s *Service) yearLinker(slice *snapshot.Records) (*linker.Linker, error) {
	s.linkMu.Lock()
	defer s.linkMu.Unlock()
	if l, ok := s.yearLinkers[slice.Version()]; ok {
		return l, nil
	}
	l, err := s.newLinker(slice)
	if err != nil {
		return nil, err
	}
	s.yearLinkers[slice.Version()] = l
	return l, nil
}

func (s *Service) observeLinksLocked(ctx context.Context, results []linker.Result) {
	sum := linker.Summarize(results)
	metrics.RecordLinks(string(linker.KindExact), sum.Exact)
	metrics.RecordLinks(string(linker.KindFuzzy), sum.Fuzzy)
	metrics.RecordLinks(string(linker.KindUnmatched), sum.Unmatched)
	for _, r := range results {
		if r.Kind == linker.KindFuzzy {
			metrics.RecordLinkConfidence(r.Confidence)
		}
	}
	hits, misses := s.linkCache.Stats()
	metrics.RecordLinkCache(hits-s.cacheHits, misses-s.cacheMisses)
	s.cacheHits, s.cacheMisses = hits, misses

	s.logger.Info(ctx, "shapes linked",
		logger.Int("exact", sum.Exact),
		logger.Int("fuzzy", sum.Fuzzy),
		logger.Int("unmatched", sum.Unmatched),
	)
}

func unmatchedAll(features []model.ShapeFeature) []linker.Result {
	out := make([]linker.Result, len(features))
	for i, f := range features {
		out[i] = linker.Result{Feature: f, Kind: linker.KindUnmatched}
	}
	return out
}

// Links reports how every shape linked against the snapshot.
func (s *Service) Links(ctx context.Context) (LinkReport, error) {
	v, err := s.require(DatasetSnapshot, DatasetShapes)
	if err != nil {
		return LinkReport{}, err
	}
	results := s.snapshotLinks(ctx, v)
	report := LinkReport{
		Version: v.records.Version(),
		Summary: linker.Summarize(results),
		Links:   make([]types.Link, len(results)),
	}
	for i, r := range results {
		report.Links[i] = toLink(r)
	}
	return report, nil
}

func toLink(r linker.Result) types.Link {
	l := types.Link{
		FeatureID:  r.Feature.ID,
		Name:       r.Feature.Name,
		MatchKind:  string(r.Kind),
		Confidence: r.Confidence,
	}
	if r.Record != nil {
		l.Country = r.Record.Country
	}
	return l
}

// MapView projects the snapshot choropleth. Matched features take the
// snapshot scale color of their ladder score; unmatched ones the fallback.
// The selected country and blinking countries are highlighted, and a
// blinking country in its on phase is drawn in the highlight color.
func (s *Service) MapView(ctx context.Context) (types.MapView, error) {
	v, err := s.require(DatasetSnapshot, DatasetShapes)
	if err != nil {
		return types.MapView{}, err
	}
	results := s.snapshotLinks(ctx, v)
	sel := s.selection.State()

	out := types.MapView{Version: v.records.Version(), Features: make([]types.FeatureFill, len(results))}
	for i, r := range results {
		ff := types.FeatureFill{
			FeatureID:  r.Feature.ID,
			Name:       r.Feature.Name,
			Fill:       s.cfg.FallbackColor,
			MatchKind:  string(r.Kind),
			Confidence: r.Confidence,
		}
		if r.Record != nil {
			score := r.Record.LadderScore
			ff.Country = r.Record.Country
			ff.Value = &score
			ff.Fill = s.snapshotScale.Hex(score)
			ff.Selected = sel.Selected != nil && sel.Selected.Country == r.Record.Country
			if s.blink.IsHighlighted(r.Record.Country) {
				ff.Fill = s.cfg.HighlightColor
				ff.Highlighted = true
			}
			ff.Highlighted = ff.Highlighted || ff.Selected
		}
		out.Features[i] = ff
	}
	return out, nil
}

// YearMap projects one year of the series. Only countries scoring at least
// the reference score in that year are colored: the selected country's
// score when something is selected, else the configured reference
// country's. An empty reference colors every matched country; a reference
// with no row that year colors none.
func (s *Service) YearMap(ctx context.Context, year int) (types.MapView, error) {
	st := s.anim.State()
	if year < st.MinYear || year > st.MaxYear {
		return types.MapView{}, fmt.Errorf("%w: %d not in [%d, %d]", animation.ErrYearOutOfRange, year, st.MinYear, st.MaxYear)
	}
	v, err := s.require(DatasetSeries, DatasetShapes)
	if err != nil {
		return types.MapView{}, err
	}

	out := types.MapView{Year: year, Features: make([]types.FeatureFill, 0, v.shapes.Len())}
	slice, err := v.series.Slice(year)
	if err != nil {
		// A year inside the bounds with no rows renders every shape unmatched.
		for _, r := range unmatchedAll(v.shapes.All()) {
			out.Features = append(out.Features, types.FeatureFill{
				FeatureID: r.Feature.ID, Name: r.Feature.Name,
				Fill: s.cfg.FallbackColor, MatchKind: string(r.Kind),
			})
		}
		return out, nil
	}
	out.Version = slice.Version()

	l, err := s.yearLinker(slice)
	if err != nil {
		return types.MapView{}, err
	}
	threshold, filter := s.referenceScore(slice, l)
	sel := s.selection.State()

	for _, r := range l.LinkAll(ctx, v.shapes.All()) {
		ff := types.FeatureFill{
			FeatureID:  r.Feature.ID,
			Name:       r.Feature.Name,
			Fill:       s.cfg.FallbackColor,
			MatchKind:  string(r.Kind),
			Confidence: r.Confidence,
		}
		if r.Record != nil {
			score := r.Record.LadderScore
			ff.Country = r.Record.Country
			ff.Value = &score
			if filter == filterNone || (filter == filterScore && score >= threshold) {
				ff.Fill = s.seriesScale.Hex(score)
			}
			ff.Selected = sel.Selected != nil && sel.Selected.Country == r.Record.Country
			ff.Highlighted = ff.Selected
		}
		out.Features = append(out.Features, ff)
	}
	return out, nil
}

// yearFilter decides which matched countries a year map colors.
type yearFilter int

const (
	filterNone  yearFilter = iota // every matched country
	filterScore                   // countries at or above the threshold
	filterAll                     // nothing: the reference has no row this year
)

// referenceScore picks the year map threshold. The selected country wins;
// a selection without a row that year disables filtering. Otherwise the
// configured reference country is resolved through the year's linker so
// shape-style names reach the panel's spelling; when it cannot be found
// the year renders uncolored.
func (s *Service) referenceScore(slice *snapshot.Records, l *linker.Linker) (float64, yearFilter) {
	if score, ok := s.selection.ThresholdIn(slice); ok {
		return score, filterScore
	}
	if s.selection.State().HasSelection() {
		return 0, filterNone
	}
	if s.cfg.ReferenceCountry == "" {
		return 0, filterNone
	}
	ref := l.Link(s.cfg.ReferenceCountry)
	if ref.Record == nil {
		return 0, filterAll
	}
	return ref.Record.LadderScore, filterScore
}

// CurrentYearMap projects the year under the animation cursor.
func (s *Service) CurrentYearMap(ctx context.Context) (types.MapView, error) {
	return s.YearMap(ctx, s.anim.State().CurrentYear)
}

func (s *Service) limit(n int) int {
	if n <= 0 || n > s.cfg.MaxRankingLimit {
		return s.cfg.MaxRankingLimit
	}
	return n
}

func (s *Service) topK(n int) int {
	if n <= 0 {
		return s.cfg.DefaultTopN
	}
	return n
}

// Ranking returns the snapshot filtered by the selection threshold and
// sorted by ladder score.
func (s *Service) Ranking(_ context.Context, limit int) ([]types.Entry, error) {
	v, err := s.require(DatasetSnapshot)
	if err != nil {
		return nil, err
	}
	return types.Entries(s.selection.RankedSubset(v.records.All(), s.limit(limit))), nil
}

// Composite ranks the snapshot by the sum of factors.
func (s *Service) Composite(_ context.Context, factors []model.Factor, limit int) ([]aggregate.CompositeEntry, error) {
	v, err := s.require(DatasetSnapshot)
	if err != nil {
		return nil, err
	}
	out := aggregate.Composite(v.records.All(), factors)
	if n := s.limit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// Averages compares per-factor averages of the top records against all.
func (s *Service) Averages(_ context.Context, top int) ([]aggregate.Comparison, error) {
	v, err := s.require(DatasetSnapshot)
	if err != nil {
		return nil, err
	}
	return aggregate.Compare(v.records.All(), s.topK(top), nil), nil
}

// Bubbles sizes the top records by factor.
func (s *Service) Bubbles(_ context.Context, factor model.Factor, top int) ([]aggregate.Bubble, error) {
	v, err := s.require(DatasetSnapshot)
	if err != nil {
		return nil, err
	}
	return aggregate.Bubbles(v.records.All(), s.topK(top), factor), nil
}

// Legend returns evenly spaced stops for the snapshot or year scale.
func (s *Service) Legend(view string, steps int) ([]colorscale.Stop, error) {
	switch view {
	case "", LegendSnapshot:
		return s.snapshotScale.Legend(steps), nil
	case LegendYear:
		return s.seriesScale.Legend(steps), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, view)
	}
}

// ShapesGeoJSON renders the shape catalog with each feature's linked
// country, when the snapshot is available.
func (s *Service) ShapesGeoJSON(ctx context.Context) ([]byte, error) {
	v, err := s.require(DatasetShapes)
	if err != nil {
		return nil, err
	}
	extra := map[string]map[string]interface{}{}
	if full, err := s.require(DatasetSnapshot, DatasetShapes); err == nil {
		for _, r := range s.snapshotLinks(ctx, full) {
			if r.Record != nil {
				extra[r.Feature.ID] = map[string]interface{}{
					"country":   r.Record.Country,
					"matchKind": string(r.Kind),
				}
			}
		}
	}
	return loader.EncodeShapes(v.shapes.All(), extra)
}
