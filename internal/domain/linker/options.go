package linker

import "github.com/okian/ladder/pkg/logger"

// DefaultThreshold is the similarity a fuzzy candidate must exceed.
const DefaultThreshold = 0.8

// Option configures a Linker.
type Option func(*Linker)

// WithThreshold sets the fuzzy acceptance threshold. Scores must be strictly
// greater than the threshold to be accepted.
func WithThreshold(t float64) Option {
	return func(l *Linker) {
		l.threshold = t
	}
}

// WithAliases toggles country alias resolution during fuzzy scoring.
func WithAliases(enabled bool) Option {
	return func(l *Linker) {
		l.aliases = enabled
	}
}

// WithCache shares a result cache across linkers.
func WithCache(c *Cache) Option {
	return func(l *Linker) {
		if c != nil {
			l.cache = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Linker) {
		if lg != nil {
			l.logger = lg
		}
	}
}
