package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/ladder/internal/domain/aggregate"
	"github.com/okian/ladder/internal/domain/linker"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/snapshot"
	"github.com/okian/ladder/internal/domain/types"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

const shutdownTimeout = 5 * time.Second

// Dataset names one independently loaded source.
type Dataset string

const (
	DatasetSnapshot Dataset = "snapshot"
	DatasetSeries   Dataset = "series"
	DatasetShapes   Dataset = "shapes"
)

var allDatasets = []Dataset{DatasetSnapshot, DatasetSeries, DatasetShapes} //nolint:gochecknoglobals // fixed dataset order

// ParseDataset validates a dataset name.
func ParseDataset(name string) (Dataset, error) {
	for _, d := range allDatasets {
		if string(d) == name {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDataset, name)
}

type datasetState struct {
	status   snapshot.Status
	err      error
	count    int
	version  uint64
	loadedAt time.Time
}

func (s *Service) source(d Dataset) string {
	switch d {
	case DatasetSnapshot:
		return s.cfg.SnapshotSource
	case DatasetSeries:
		return s.cfg.SeriesSource
	case DatasetShapes:
		return s.cfg.ShapesSource
	default:
		return ""
	}
}

// Load fetches one dataset and publishes the result through the
// dispatcher. A failure marks only that dataset as failed; the previous
// data, if any, stays published.
func (s *Service) Load(ctx context.Context, d Dataset) error {
	src := s.source(d)
	if src == "" {
		return fmt.Errorf("%w: no source for %s", model.ErrLoadFailure, d)
	}

	loadCtx, cancel := context.WithTimeout(ctx, s.cfg.LoadTimeout())
	defer cancel()

	start := time.Now()
	var (
		publish func(context.Context) error
		err     error
	)
	switch d {
	case DatasetSnapshot:
		var recs *snapshot.Records
		if recs, err = s.loader.Records(loadCtx, src); err == nil {
			publish = func(ctx context.Context) error { s.installRecords(ctx, recs); return nil }
		}
	case DatasetSeries:
		var series *snapshot.Series
		if series, err = s.loader.Series(loadCtx, src); err == nil {
			publish = func(ctx context.Context) error { s.installSeries(ctx, series); return nil }
		}
	case DatasetShapes:
		var shapes *snapshot.Shapes
		if shapes, err = s.loader.Shapes(loadCtx, src); err == nil {
			publish = func(ctx context.Context) error { s.installShapes(ctx, shapes); return nil }
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDataset, d)
	}
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	if err != nil {
		metrics.RecordDatasetLoad(string(d), "failed", elapsed)
		metrics.RecordErrorByComponent("loader", string(d))
		loadErr := err
		if perr := s.dispatcher.Do(ctx, "load."+string(d), func(ctx context.Context) error {
			s.markFailed(ctx, d, loadErr)
			return nil
		}); perr != nil {
			return perr
		}
		return err
	}

	metrics.RecordDatasetLoad(string(d), "ready", elapsed)
	s.logger.Debug(ctx, "dataset fetched", logger.String("dataset", string(d)), logger.Duration("took", time.Since(start)))
	return s.dispatcher.Do(ctx, "load."+string(d), publish)
}

// ReplaceRecords publishes a snapshot record set.
func (s *Service) ReplaceRecords(ctx context.Context, recs *snapshot.Records) error {
	return s.dispatcher.Do(ctx, "replace.snapshot", func(ctx context.Context) error {
		s.installRecords(ctx, recs)
		return nil
	})
}

// ReplaceSeries publishes a time series.
func (s *Service) ReplaceSeries(ctx context.Context, series *snapshot.Series) error {
	return s.dispatcher.Do(ctx, "replace.series", func(ctx context.Context) error {
		s.installSeries(ctx, series)
		return nil
	})
}

// ReplaceShapes publishes a shape catalog.
func (s *Service) ReplaceShapes(ctx context.Context, shapes *snapshot.Shapes) error {
	return s.dispatcher.Do(ctx, "replace.shapes", func(ctx context.Context) error {
		s.installShapes(ctx, shapes)
		return nil
	})
}

// installRecords runs on the dispatcher.
func (s *Service) installRecords(ctx context.Context, recs *snapshot.Records) {
	l, err := linker.New(recs,
		linker.WithThreshold(s.cfg.FuzzyThreshold),
		linker.WithAliases(s.cfg.CountryAliases),
		linker.WithCache(s.linkCache),
		linker.WithLogger(s.logger.Named("linker")),
	)
	if err != nil {
		s.markFailed(ctx, DatasetSnapshot, err)
		return
	}

	s.mu.Lock()
	s.records = recs
	s.setReadyLocked(DatasetSnapshot, recs.Version(), recs.Len())
	s.mu.Unlock()

	s.linkMu.Lock()
	s.linker = l
	s.links = nil
	s.retainLocked()
	s.linkMu.Unlock()

	metrics.UpdateDatasetRecords(string(DatasetSnapshot), recs.Len())
	s.logger.Info(ctx, "snapshot published", logger.Uint64("version", recs.Version()), logger.Int("records", recs.Len()))

	if !s.selection.Revalidate(recs) {
		metrics.RecordSelection("cleared")
	}
	s.restartHighlight(ctx, recs)
	s.publishDatasets()
}

// installSeries runs on the dispatcher.
func (s *Service) installSeries(ctx context.Context, series *snapshot.Series) {
	s.mu.Lock()
	s.series = series
	s.setReadyLocked(DatasetSeries, series.Version(), series.Len())
	s.mu.Unlock()

	s.linkMu.Lock()
	s.yearLinkers = make(map[uint64]*linker.Linker)
	s.retainLocked()
	s.linkMu.Unlock()

	metrics.UpdateDatasetRecords(string(DatasetSeries), series.Len())
	s.logger.Info(ctx, "series published",
		logger.Uint64("version", series.Version()),
		logger.Int("rows", series.Len()),
		logger.Any("years", series.Years()),
	)
	s.publishDatasets()
}

// installShapes runs on the dispatcher.
func (s *Service) installShapes(ctx context.Context, shapes *snapshot.Shapes) {
	s.mu.Lock()
	s.shapes = shapes
	s.setReadyLocked(DatasetShapes, shapes.Version(), shapes.Len())
	s.mu.Unlock()

	s.linkMu.Lock()
	s.links = nil
	s.linkMu.Unlock()

	metrics.UpdateDatasetRecords(string(DatasetShapes), shapes.Len())
	s.logger.Info(ctx, "shapes published", logger.Uint64("version", shapes.Version()), logger.Int("features", shapes.Len()))
	s.publishDatasets()
}

func (s *Service) markFailed(ctx context.Context, d Dataset, err error) {
	s.mu.Lock()
	st := s.datasets[d]
	st.status = snapshot.StatusFailed
	st.err = err
	s.mu.Unlock()

	s.logger.Warn(ctx, "dataset load failed", logger.String("dataset", string(d)), logger.Error(err))
	s.publishDatasets()
}

func (s *Service) setReadyLocked(d Dataset, version uint64, count int) {
	st := s.datasets[d]
	st.status = snapshot.StatusReady
	st.err = nil
	st.version = version
	st.count = count
	st.loadedAt = time.Now()
}

// retainLocked drops cache entries that belong to replaced snapshots.
func (s *Service) retainLocked() {
	live := make([]uint64, 0, len(s.yearLinkers)+1)
	if s.linker != nil {
		live = append(live, s.linker.Version())
	}
	for v := range s.yearLinkers {
		live = append(live, v)
	}
	s.linkCache.Retain(live...)
}

// restartHighlight binds the blink to the leading countries of recs.
func (s *Service) restartHighlight(ctx context.Context, recs *snapshot.Records) {
	if s.cfg.HighlightTopN <= 0 {
		s.blink.Stop()
		return
	}
	top := aggregate.TopN(recs.All(), s.cfg.HighlightTopN, model.LadderScore)
	ids := make([]string, len(top))
	for i, r := range top {
		ids[i] = r.Country
	}
	if err := s.blink.Start(ids); err != nil {
		s.logger.Debug(ctx, "highlight not restarted", logger.Error(err))
	}
}

// Datasets reports the load status of every dataset.
func (s *Service) Datasets() []types.DatasetStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.DatasetStatus, 0, len(allDatasets))
	for _, d := range allDatasets {
		out = append(out, s.statusLocked(d))
	}
	return out
}

func (s *Service) statusLocked(d Dataset) types.DatasetStatus {
	st := s.datasets[d]
	out := types.DatasetStatus{
		Name:    string(d),
		Status:  st.status.String(),
		Version: st.version,
		Count:   st.count,
	}
	if st.err != nil {
		out.Error = st.err.Error()
	}
	return out
}

// view is the set of published datasets a projection reads from.
type view struct {
	records *snapshot.Records
	series  *snapshot.Series
	shapes  *snapshot.Shapes
}

// require returns the published datasets, or an UnavailableError naming
// the requested ones that are not ready. Data published before a failed
// reload is still served.
func (s *Service) require(ds ...Dataset) (view, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := view{records: s.records, series: s.series, shapes: s.shapes}
	var missing []types.DatasetStatus
	for _, d := range ds {
		var present bool
		switch d {
		case DatasetSnapshot:
			present = v.records != nil
		case DatasetSeries:
			present = v.series != nil
		case DatasetShapes:
			present = v.shapes != nil
		}
		if !present {
			missing = append(missing, s.statusLocked(d))
		}
	}
	if len(missing) > 0 {
		return view{}, &UnavailableError{Datasets: missing}
	}
	return v, nil
}
