package session

import (
	"time"

	"git.home.luguber.info/inful/fwbuilder/internal/combo"
	"git.home.luguber.info/inful/fwbuilder/internal/runner"
)

// AttemptResult records the outcome of one combination's build. Results are
// appended in combination order and never reordered or removed.
type AttemptResult struct {
	Index          int                   `json:"index"`
	Combination    combo.Combination     `json:"combination"`
	Classification runner.Classification `json:"classification"`
	Tail           []string              `json:"tail,omitempty"`
	BinPath        string                `json:"bin_path,omitempty"`
	StartedAt      time.Time             `json:"started_at"`
	FinishedAt     time.Time             `json:"finished_at"`
}

// Summary is the final state of a finished session.
type Summary struct {
	SessionID     string          `json:"session_id"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
	LinkerScripts []string        `json:"linker_scripts,omitempty"`
	Results       []AttemptResult `json:"results"`
	Success       bool            `json:"success"` // AND over per-combination successes
	Aborted       bool            `json:"aborted"` // fatal error cut the session short
	Cancelled     bool            `json:"cancelled"`
}

// Outcome renders the summary's final status for metrics and logs.
func (s *Summary) Outcome() string {
	switch {
	case s.Cancelled:
		return "canceled"
	case s.Aborted:
		return "aborted"
	case s.Success:
		return "success"
	default:
		return "failed"
	}
}
