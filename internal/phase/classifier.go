// Package phase classifies posts into monotonic lifecycle phases from their
// engagement counters.
package phase

import "engagement_tracker/internal/domain"

// Threshold gates a phase step. Both values must be reached.
type Threshold struct {
	Views    int64 `yaml:"views"`
	Comments int64 `yaml:"comments"`
}

func (t Threshold) met(views, comments int64) bool {
	return views >= t.Views && comments >= t.Comments
}

var (
	DefaultPhase1 = Threshold{Views: 5_000, Comments: 5}
	DefaultPhase2 = Threshold{Views: 10_000, Comments: 20}
)

type Classifier struct {
	phase1 Threshold
	phase2 Threshold
}

func NewClassifier(phase1, phase2 Threshold) *Classifier {
	return &Classifier{phase1: phase1, phase2: phase2}
}

func NewDefaultClassifier() *Classifier {
	return NewClassifier(DefaultPhase1, DefaultPhase2)
}

// Classify returns the phase after evaluating one reading. It advances at most
// one step and never moves backward. Entry and completion of a phase share the
// same threshold, so IN_PHS1 and IN_PHS2 last a single evaluation once the
// threshold holds.
func (c *Classifier) Classify(current domain.Phase, views, comments int64) domain.Phase {
	switch current {
	case domain.PhaseNone:
		if c.phase1.met(views, comments) {
			return domain.PhaseInPhase1
		}
	case domain.PhaseInPhase1:
		if c.phase1.met(views, comments) {
			return domain.PhasePhase1Done
		}
	case domain.PhasePhase1Done:
		if c.phase2.met(views, comments) {
			return domain.PhaseInPhase2
		}
	case domain.PhaseInPhase2:
		if c.phase2.met(views, comments) {
			return domain.PhasePhase2Done
		}
	case domain.PhasePhase2Done:
	default:
		// unrecognized stored phase restarts from PHS0
		if c.phase1.met(views, comments) {
			return domain.PhaseInPhase1
		}
		return domain.PhaseNone
	}
	return current
}
