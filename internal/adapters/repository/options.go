package repository

import "github.com/okian/ladder/pkg/logger"

// Option applies a configuration option to the BadgerStore.
type Option func(*BadgerStore)

// WithInMemory keeps data in memory only; the path is ignored.
func WithInMemory(enabled bool) Option {
	return func(s *BadgerStore) {
		s.inMemory = enabled
	}
}

// WithKeyPrefix namespaces keys, "evaluation/" by default.
func WithKeyPrefix(prefix string) Option {
	return func(s *BadgerStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *BadgerStore) {
		if l != nil {
			s.logger = l
		}
	}
}
