package publisher

import (
	"context"
	"errors"

	"engagement_tracker/internal/domain"
)

type PhaseNotifier interface {
	NotifyPhaseChange(ctx context.Context, t domain.PhaseTransition) error
}

// Multi delivers a transition to every sink. A failing sink does not stop
// delivery to the others; all failures are returned joined.
type Multi struct {
	sinks []PhaseNotifier
}

func NewMulti(sinks ...PhaseNotifier) *Multi {
	return &Multi{sinks: sinks}
}

func (m *Multi) Len() int {
	return len(m.sinks)
}

func (m *Multi) NotifyPhaseChange(ctx context.Context, t domain.PhaseTransition) error {
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.NotifyPhaseChange(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
