package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// BadgerStore keeps one JSON value per phase in a Badger database.
type BadgerStore struct {
	db       *badger.DB
	path     string
	prefix   string
	inMemory bool
	closed   atomic.Bool
	logger   logger.Logger
}

// Open opens or creates the store at path.
func Open(path string, opts ...Option) (*BadgerStore, error) {
	s := &BadgerStore{
		path:   path,
		prefix: "evaluation/",
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	bo := badger.DefaultOptions(path)
	if s.inMemory {
		bo = badger.DefaultOptions("").WithInMemory(true)
	}
	// Badger logs through its own logger; keep it quiet.
	bo.Logger = nil

	db, err := badger.Open(bo)
	if err != nil {
		return nil, fmt.Errorf("open evaluation store %q: %w", path, err)
	}
	s.db = db
	return s, nil
}

func (s *BadgerStore) key(phase string) []byte {
	return []byte(s.prefix + phase)
}

// Put validates and stores the response.
func (s *BadgerStore) Put(ctx context.Context, phase string, e model.Evaluation) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := model.ValidatePhase(phase); err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}
	val, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode evaluation: %w", err)
	}

	start := time.Now()
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.key(phase), val)
	})
	metrics.RecordStoreLatency("put", float64(time.Since(start).Microseconds())/1000.0)
	if err != nil {
		return fmt.Errorf("store evaluation %q: %w", phase, err)
	}
	metrics.RecordEvaluationSaved(phase)
	s.logger.Info(ctx, "evaluation stored", logger.String("phase", phase))
	return nil
}

// Get loads the response for phase.
func (s *BadgerStore) Get(_ context.Context, phase string) (model.Evaluation, error) {
	if s.closed.Load() {
		return model.Evaluation{}, ErrClosed
	}
	if err := model.ValidatePhase(phase); err != nil {
		return model.Evaluation{}, err
	}

	var val []byte
	start := time.Now()
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(phase))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	metrics.RecordStoreLatency("get", float64(time.Since(start).Microseconds())/1000.0)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return model.Evaluation{}, fmt.Errorf("%w: %s", ErrNotFound, phase)
	}
	if err != nil {
		return model.Evaluation{}, fmt.Errorf("load evaluation %q: %w", phase, err)
	}

	var e model.Evaluation
	if err := json.Unmarshal(val, &e); err != nil {
		return model.Evaluation{}, fmt.Errorf("%w: %s: %w", ErrCorrupt, phase, err)
	}
	return e, nil
}

// Delete removes the response for phase.
func (s *BadgerStore) Delete(_ context.Context, phase string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := model.ValidatePhase(phase); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(phase))
	})
}

// Export walks every stored phase.
func (s *BadgerStore) Export(_ context.Context) (map[string]model.Evaluation, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	out := make(map[string]model.Evaluation)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(s.prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			phase := strings.TrimPrefix(string(item.Key()), s.prefix)
			err := item.Value(func(v []byte) error {
				var e model.Evaluation
				if err := json.Unmarshal(v, &e); err != nil {
					return fmt.Errorf("%w: %s: %w", ErrCorrupt, phase, err)
				}
				out[phase] = e
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExportJSON renders every response as {"phase": {...}}.
func (s *BadgerStore) ExportJSON(ctx context.Context) ([]byte, error) {
	all, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(all, "", "  ")
}

// Count returns the number of stored phases.
func (s *BadgerStore) Count(ctx context.Context) int {
	all, err := s.Export(ctx)
	if err != nil {
		return 0
	}
	return len(all)
}

// Close releases the database. It is safe to call twice.
func (s *BadgerStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}
