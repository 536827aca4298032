// Package service owns the loaded datasets and the engine components, and
// projects their state for the HTTP API.
//
// Every state change (dataset replacement, selection, animation control,
// timer ticks, highlight flips) runs as a command on a single dispatcher,
// in arrival order. Reads take the owning component's lock only.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/ladder/internal/adapters/loader"
	eventqueue "github.com/okian/ladder/internal/adapters/mq/queue"
	workerpool "github.com/okian/ladder/internal/adapters/mq/worker"
	repository "github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/config"
	"github.com/okian/ladder/internal/domain/animation"
	"github.com/okian/ladder/internal/domain/colorscale"
	"github.com/okian/ladder/internal/domain/highlight"
	"github.com/okian/ladder/internal/domain/linker"
	"github.com/okian/ladder/internal/domain/selection"
	"github.com/okian/ladder/internal/domain/snapshot"
	"github.com/okian/ladder/internal/domain/timer"
	"github.com/okian/ladder/internal/domain/types"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// Service implements the API dependencies for the ladder engine.
type Service struct {
	mu sync.RWMutex

	cfg    *config.Config
	loader *loader.Loader
	store  repository.Store

	// Command plumbing
	queue      *eventqueue.InMemoryQueue
	dispatcher *workerpool.Dispatcher
	clock      timer.Scheduler

	// Components
	anim      *animation.Controller
	blink     *highlight.Blinker
	selection *selection.Coordinator
	linkCache *linker.Cache

	snapshotScale *colorscale.Scale
	seriesScale   *colorscale.Scale

	// Datasets, replaced wholesale under mu
	records  *snapshot.Records
	series   *snapshot.Series
	shapes   *snapshot.Shapes
	datasets map[Dataset]*datasetState

	// Version-scoped derived state, guarded by linkMu
	linkMu      sync.Mutex
	linker      *linker.Linker
	links       []linker.Result
	linksKey    [2]uint64
	yearLinkers map[uint64]*linker.Linker
	cacheHits   uint64
	cacheMisses uint64

	hub *hub

	// Lifecycle
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	stopped bool
	loads   sync.WaitGroup

	logger logger.Logger
}

// New validates cfg and builds every component. Configuration errors
// (inverted year bounds, bad domains, bad thresholds) are returned here.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.New(context.Background())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		cfg:         cfg,
		clock:       timer.NewTicker(),
		datasets:    make(map[Dataset]*datasetState, len(allDatasets)),
		yearLinkers: make(map[uint64]*linker.Linker),
		hub:         newHub(),
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	for _, d := range allDatasets {
		s.datasets[d] = &datasetState{status: snapshot.StatusPending}
	}

	if s.loader == nil {
		s.loader = loader.New(
			loader.WithNameProperty(cfg.ShapeNameProperty),
			loader.WithLogger(s.logger.Named("loader")),
		)
	}

	snapDomain, err := colorscale.Fixed(cfg.SnapshotDomainMin, cfg.SnapshotDomainMax)
	if err != nil {
		return nil, fmt.Errorf("snapshot domain: %w", err)
	}
	seriesDomain, err := colorscale.Fixed(cfg.SeriesDomainMin, cfg.SeriesDomainMax)
	if err != nil {
		return nil, fmt.Errorf("series domain: %w", err)
	}
	s.snapshotScale = colorscale.New(snapDomain, true, colorscale.WithRamp(colorscale.YlGnBu))
	s.seriesScale = colorscale.New(seriesDomain, true, colorscale.WithRamp(colorscale.YlGn))

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(cfg.QueueSize))
	s.dispatcher = workerpool.NewDispatcher(s.queue, workerpool.WithLogger(s.logger))
	s.linkCache = linker.NewCache(linker.WithMaxEntries(cfg.LinkCacheSize))
	s.selection = selection.New(selection.WithListener(s.onSelection))

	s.anim, err = animation.New(cfg.MinYear, cfg.MaxYear,
		animation.WithStepInterval(cfg.StepInterval()),
		animation.WithScheduler(s.through("animation.tick", metrics.RecordAnimationTick)),
		animation.WithLogger(s.logger.Named("animation")),
		animation.WithListener(s.onAnimation),
	)
	if err != nil {
		return nil, err
	}

	s.blink = highlight.New(
		highlight.WithPeriod(cfg.HighlightInterval()),
		highlight.WithScheduler(s.through("highlight.flip", metrics.RecordHighlightFlip)),
		highlight.WithListener(s.onHighlight),
	)

	st := s.anim.State()
	metrics.UpdateAnimation(st.CurrentYear, st.IsPlaying)

	return s, nil
}

// through routes timer callbacks onto the dispatcher. Timer goroutines
// never touch component state themselves.
func (s *Service) through(kind string, observe func()) timer.Scheduler {
	return timer.Wrap(s.clock, func(fn func()) func() {
		return func() {
			err := s.dispatcher.Submit(s.ctx, kind, func(context.Context) error {
				fn()
				observe()
				return nil
			})
			if err != nil {
				s.logger.Debug(s.ctx, "timer callback dropped after shutdown",
					logger.String("kind", kind), logger.Error(err))
			}
		}
	})
}

// Start runs the dispatcher and begins loading every configured dataset.
// Loads run in the background; their outcome is visible through Datasets.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.stopped {
		return ErrStopped
	}

	s.logger.Info(ctx, "starting ladder service...")

	if s.store == nil {
		store, err := repository.Open(s.cfg.StorePath,
			repository.WithInMemory(s.cfg.StoreInMemory),
			repository.WithLogger(s.logger.Named("store")),
		)
		if err != nil {
			return fmt.Errorf("open response store: %w", err)
		}
		s.store = store
	}

	go s.dispatcher.Run(s.ctx)

	for _, d := range allDatasets {
		if s.source(d) == "" {
			s.logger.Info(ctx, "no source configured, dataset stays pending", logger.String("dataset", string(d)))
			continue
		}
		s.loads.Add(1)
		go func(d Dataset) {
			defer s.loads.Done()
			if err := s.Load(s.ctx, d); err != nil {
				s.logger.Warn(s.ctx, "dataset unavailable", logger.String("dataset", string(d)), logger.Error(err))
			}
		}(d)
	}

	s.started = true
	s.logger.Info(ctx, "ladder service started",
		logger.Int("minYear", s.cfg.MinYear),
		logger.Int("maxYear", s.cfg.MaxYear),
		logger.Int("queueSize", s.cfg.QueueSize),
		logger.Bool("inMemoryStore", s.cfg.StoreInMemory),
	)
	return nil
}

// Stop cancels timers, drains the dispatcher and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.stopped = true
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.started = false
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping ladder service...")

	s.anim.Dispose()
	s.blink.Dispose()

	s.cancel()
	s.loads.Wait()
	_ = s.queue.Close()
	shutdownCtx, done := context.WithTimeout(ctx, shutdownTimeout)
	defer done()
	if err := s.dispatcher.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "dispatcher shutdown", logger.Error(err))
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "closing response store", logger.Error(err))
		}
	}
	s.hub.closeAll()

	s.logger.Info(ctx, "ladder service stopped")
}

// Flush waits until every command queued before the call has run.
func (s *Service) Flush(ctx context.Context) error {
	return s.dispatcher.Do(ctx, "flush", func(context.Context) error { return nil })
}

// Config returns the configuration the service was built with.
func (s *Service) Config() *config.Config { return s.cfg }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	started := s.started
	versions := map[string]uint64{}
	if s.records != nil {
		versions[string(DatasetSnapshot)] = s.records.Version()
	}
	if s.series != nil {
		versions[string(DatasetSeries)] = s.series.Version()
	}
	if s.shapes != nil {
		versions[string(DatasetShapes)] = s.shapes.Version()
	}
	s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":   started,
		"datasets":  s.Datasets(),
		"versions":  versions,
		"animation": s.anim.State(),
		"selection": s.Selection(),
		"highlight": s.blink.State(),
		"queue":     s.queue.Len(ctx),
		"clients":   s.hub.count(),
	}
	if started {
		stats["responses"] = s.store.Count(ctx)
	}

	s.linkMu.Lock()
	stats["linkCache"] = s.linkCache.Len()
	s.linkMu.Unlock()

	return stats
}

// Selection returns the current selection.
func (s *Service) Selection() types.Selection {
	st := s.selection.State()
	out := types.Selection{Threshold: st.Threshold, Revision: st.Revision}
	if st.Selected != nil {
		out.Country = st.Selected.Country
		out.Score = &st.Selected.LadderScore
	}
	return out
}

// Animation returns the animation state.
func (s *Service) Animation() animation.State { return s.anim.State() }
