package service

import (
	"github.com/okian/ladder/internal/adapters/loader"
	repository "github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/domain/timer"
	"github.com/okian/ladder/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service and its components.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore replaces the Badger response store opened by Start.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLoader replaces the default dataset loader.
func WithLoader(l *loader.Loader) Option {
	return func(s *Service) {
		if l != nil {
			s.loader = l
		}
	}
}

// WithScheduler replaces the wall clock that drives animation ticks and
// highlight flips. Callbacks are still routed through the dispatcher.
func WithScheduler(sched timer.Scheduler) Option {
	return func(s *Service) {
		if sched != nil {
			s.clock = sched
		}
	}
}
