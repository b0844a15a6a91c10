package domain

import "time"

type OutcomeStatus string

const (
	OutcomeSuccess   OutcomeStatus = "success"
	OutcomeFailed    OutcomeStatus = "failed"
	OutcomeSkipped   OutcomeStatus = "skipped"
	OutcomeCancelled OutcomeStatus = "cancelled"
)

// PostOutcome is the result of one post's pipeline within a run.
type PostOutcome struct {
	PostID      int64         `json:"post_id"`
	URL         string        `json:"url"`
	Platform    Platform      `json:"platform"`
	Status      OutcomeStatus `json:"status"`
	FailureKind FailureKind   `json:"failure_kind,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	Counters    *Counters     `json:"counters,omitempty"`
	Warnings    []string      `json:"warnings,omitempty"`
	PhaseFrom   Phase         `json:"phase_from,omitempty"`
	PhaseTo     Phase         `json:"phase_to,omitempty"`
}

// PhaseChanged reports whether the outcome moved the post to a later phase.
func (o PostOutcome) PhaseChanged() bool {
	return o.Status == OutcomeSuccess && o.PhaseTo.Rank() > o.PhaseFrom.Rank()
}

// BatchStats counts outcomes of a single batch.
type BatchStats struct {
	Index      int `json:"index"`
	Size       int `json:"size"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
}

// ProcessingResult aggregates the outcomes of one engine execution.
type ProcessingResult struct {
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Cancelled  int           `json:"cancelled"`
	Batches    []BatchStats  `json:"batches"`
	Outcomes   []PostOutcome `json:"outcomes"`
}

// Add records an outcome and updates the counters.
func (r *ProcessingResult) Add(o PostOutcome) {
	switch o.Status {
	case OutcomeSuccess:
		r.Successful++
	case OutcomeFailed:
		r.Failed++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeCancelled:
		r.Cancelled++
	}
	r.Outcomes = append(r.Outcomes, o)
}

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunCancelled RunStatus = "cancelled"
	RunFailed    RunStatus = "failed"
)

// RunSummary is returned by one scheduler invocation.
type RunSummary struct {
	RunID      string        `json:"run_id"`
	Status     RunStatus     `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	TotalDue   int           `json:"total_due"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Cancelled  int           `json:"cancelled"`
	DurationMs int64         `json:"duration_ms"`
	Batches    []BatchStats  `json:"batches,omitempty"`
	Outcomes   []PostOutcome `json:"outcomes"`
}

// ScrapeRun is the persisted log entry of one invocation.
type ScrapeRun struct {
	ID           int64     `db:"id" json:"id"`
	RunID        string    `db:"run_id" json:"run_id"`
	StartedAt    time.Time `db:"started_at" json:"started_at"`
	FinishedAt   time.Time `db:"finished_at" json:"finished_at"`
	Status       RunStatus `db:"status" json:"status"`
	TotalDue     int       `db:"total_due" json:"total_due"`
	Successful   int       `db:"successful" json:"successful"`
	Failed       int       `db:"failed" json:"failed"`
	Skipped      int       `db:"skipped" json:"skipped"`
	Cancelled    int       `db:"cancelled" json:"cancelled"`
	ErrorMessage *string   `db:"error_message" json:"error_message,omitempty"`
}
