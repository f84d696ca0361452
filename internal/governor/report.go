package governor

import (
	"time"

	"github.com/couchcryptid/rain-alert-service/internal/domain"
)

// Outcome is a candidate's terminal state for one cycle.
type Outcome string

const (
	// OutcomePosted: approved and submitted; the log holds the post id.
	OutcomePosted Outcome = "posted"
	// OutcomeDryLogged: approved and logged without a live post, either
	// because posting is disabled or because submission failed.
	OutcomeDryLogged Outcome = "dry_logged"
	// OutcomeHeld: approved but unposted this cycle (hourly cap). Not
	// logged; the candidate re-enters fresh next cycle.
	OutcomeHeld Outcome = "held"

	OutcomeRejectedDedup    Outcome = "rejected_dedup"
	OutcomeRejectedBudget   Outcome = "rejected_budget"
	OutcomeRejectedCooldown Outcome = "rejected_cooldown"
	OutcomeRejectedCap      Outcome = "rejected_cap"
	// OutcomeSuppressed: a backing store was unreachable; publication is
	// withheld rather than risking unbounded posting.
	OutcomeSuppressed Outcome = "suppressed"
)

// Accepted reports whether the outcome resulted in a log entry this cycle.
func (o Outcome) Accepted() bool {
	return o == OutcomePosted || o == OutcomeDryLogged
}

// Decision is the per-candidate diagnostic record in a cycle report.
type Decision struct {
	AreaID      string        `json:"areaId"`
	Scope       domain.Scope  `json:"scope"`
	Bucket      domain.Bucket `json:"bucket"`
	WindowLabel string        `json:"windowLabel"`
	Score       float64       `json:"score"`
	Outcome     Outcome       `json:"outcome"`
	Reason      string        `json:"reason,omitempty"`
	PostID      *string       `json:"postId"`
	Result      PostResult    `json:"result,omitempty"`
}

// Report is the per-cycle decision report: every evaluated candidate with its
// terminal outcome, in evaluation order.
type Report struct {
	CycleID    string     `json:"cycleId"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt time.Time  `json:"finishedAt"`
	Degraded   bool       `json:"degraded"`
	Decisions  []Decision `json:"decisions"`
}

// Accepted returns the decisions that produced a log entry this cycle.
func (r *Report) Accepted() []Decision {
	var out []Decision
	for _, d := range r.Decisions {
		if d.Outcome.Accepted() {
			out = append(out, d)
		}
	}
	return out
}

// Rejected returns the decisions that were evaluated but not accepted.
func (r *Report) Rejected() []Decision {
	var out []Decision
	for _, d := range r.Decisions {
		if !d.Outcome.Accepted() {
			out = append(out, d)
		}
	}
	return out
}
