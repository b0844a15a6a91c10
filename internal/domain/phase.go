package domain

// Phase is the monotonic lifecycle classification of a post.
type Phase string

const (
	PhaseNone       Phase = "PHS0"
	PhaseInPhase1   Phase = "IN_PHS1"
	PhasePhase1Done Phase = "PHS1_COMPLETE"
	PhaseInPhase2   Phase = "IN_PHS2"
	PhasePhase2Done Phase = "PHS2_COMPLETE"
)

var phaseRank = map[Phase]int{
	PhaseNone:       0,
	PhaseInPhase1:   1,
	PhasePhase1Done: 2,
	PhaseInPhase2:   3,
	PhasePhase2Done: 4,
}

// Rank returns the position of p in the phase order. Unknown phases rank as PHS0.
func (p Phase) Rank() int {
	return phaseRank[p]
}

func (p Phase) Valid() bool {
	_, ok := phaseRank[p]
	return ok
}

// PhaseTransition is emitted when a measurement moves a post to a later phase.
type PhaseTransition struct {
	PostID   int64    `json:"post_id"`
	URL      string   `json:"url"`
	Platform Platform `json:"platform"`
	From     Phase    `json:"from"`
	To       Phase    `json:"to"`
	Views    int64    `json:"views"`
	Comments int64    `json:"comments"`
}
