package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/ladder/internal/domain/animation"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/types"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// OnFeatureActivated selects the country linked to a shape. An unknown or
// unmatched feature clears the selection and returns an error wrapping
// model.ErrInvalidSelectionTarget; the cleared state is still returned.
func (s *Service) OnFeatureActivated(ctx context.Context, featureID string) (types.Selection, error) {
	var selErr error
	err := s.dispatcher.Do(ctx, "select.feature", func(ctx context.Context) error {
		v, err := s.require(DatasetSnapshot, DatasetShapes)
		if err != nil {
			s.selection.Clear()
			selErr = fmt.Errorf("%w: %w", model.ErrInvalidSelectionTarget, err)
			return nil
		}
		if _, ok := v.shapes.Lookup(featureID); !ok {
			s.selection.Clear()
			selErr = fmt.Errorf("%w: unknown feature %q", model.ErrInvalidSelectionTarget, featureID)
			return nil
		}
		for _, r := range s.snapshotLinks(ctx, v) {
			if r.Feature.ID != featureID {
				continue
			}
			if r.Record == nil {
				s.selection.Clear()
				selErr = fmt.Errorf("%w: feature %q is unmatched", model.ErrInvalidSelectionTarget, featureID)
				return nil
			}
			selErr = s.selection.SelectIn(v.records, r.Record.Country)
			return nil
		}
		s.selection.Clear()
		selErr = fmt.Errorf("%w: feature %q", model.ErrInvalidSelectionTarget, featureID)
		return nil
	})
	if err != nil {
		return types.Selection{}, err
	}
	s.observeSelection(ctx, selErr)
	return s.Selection(), selErr
}

// SelectCountry selects a country by its snapshot name.
func (s *Service) SelectCountry(ctx context.Context, country string) (types.Selection, error) {
	var selErr error
	err := s.dispatcher.Do(ctx, "select.country", func(context.Context) error {
		v, err := s.require(DatasetSnapshot)
		if err != nil {
			s.selection.Clear()
			selErr = fmt.Errorf("%w: %w", model.ErrInvalidSelectionTarget, err)
			return nil
		}
		selErr = s.selection.SelectIn(v.records, country)
		return nil
	})
	if err != nil {
		return types.Selection{}, err
	}
	s.observeSelection(ctx, selErr)
	return s.Selection(), selErr
}

// ClearSelection removes the selection.
func (s *Service) ClearSelection(ctx context.Context) (types.Selection, error) {
	err := s.dispatcher.Do(ctx, "select.clear", func(context.Context) error {
		s.selection.Clear()
		return nil
	})
	if err != nil {
		return types.Selection{}, err
	}
	metrics.RecordSelection("cleared")
	return s.Selection(), nil
}

func (s *Service) observeSelection(ctx context.Context, err error) {
	switch {
	case err == nil:
		metrics.RecordSelection("selected")
	case errors.Is(err, model.ErrInvalidSelectionTarget):
		metrics.RecordSelection("rejected")
		s.logger.Debug(ctx, "selection cleared", logger.Error(err))
	}
}

// StartAnimation restarts playback from the first year.
func (s *Service) StartAnimation(ctx context.Context) (animation.State, error) {
	return s.animate(ctx, "animation.start", s.anim.Start)
}

// ToggleAnimation stops playback when playing, otherwise starts it.
func (s *Service) ToggleAnimation(ctx context.Context) (animation.State, error) {
	return s.animate(ctx, "animation.toggle", s.anim.Toggle)
}

// PauseAnimation holds the cursor where it is.
func (s *Service) PauseAnimation(ctx context.Context) (animation.State, error) {
	return s.animate(ctx, "animation.pause", s.anim.Pause)
}

// SeekAnimation moves the cursor to year.
func (s *Service) SeekAnimation(ctx context.Context, year int) (animation.State, error) {
	return s.animate(ctx, "animation.seek", func() error { return s.anim.Seek(year) })
}

func (s *Service) animate(ctx context.Context, kind string, fn func() error) (animation.State, error) {
	if err := s.dispatcher.Do(ctx, kind, func(context.Context) error { return fn() }); err != nil {
		return s.anim.State(), err
	}
	return s.anim.State(), nil
}

// SaveResponse validates and stores the evaluation for phase.
func (s *Service) SaveResponse(ctx context.Context, phase string, e model.Evaluation) error {
	if err := model.ValidatePhase(phase); err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if err := s.running(); err != nil {
		return err
	}
	return s.store.Put(ctx, phase, e)
}

// Response returns the evaluation stored for phase.
func (s *Service) Response(ctx context.Context, phase string) (model.Evaluation, error) {
	if err := model.ValidatePhase(phase); err != nil {
		return model.Evaluation{}, err
	}
	if err := s.running(); err != nil {
		return model.Evaluation{}, err
	}
	return s.store.Get(ctx, phase)
}

// DeleteResponse removes the evaluation for phase.
func (s *Service) DeleteResponse(ctx context.Context, phase string) error {
	if err := model.ValidatePhase(phase); err != nil {
		return err
	}
	if err := s.running(); err != nil {
		return err
	}
	return s.store.Delete(ctx, phase)
}

// ExportResponses renders every stored evaluation as one JSON document
// keyed by phase.
func (s *Service) ExportResponses(ctx context.Context) ([]byte, error) {
	if err := s.running(); err != nil {
		return nil, err
	}
	return s.store.ExportJSON(ctx)
}

func (s *Service) running() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started || s.stopped {
		return ErrStopped
	}
	return nil
}
