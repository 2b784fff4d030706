package resolve

import (
	"time"

	"github.com/google/uuid"

	"stickermap/internal/catalog"
	"stickermap/internal/match"
)

// Outcome is the terminal state of a canonical feature for one document.
type Outcome string

const (
	Accepted              Outcome = "accepted"
	RejectedLowConfidence Outcome = "rejected_low_confidence"
	RejectedAmbiguous     Outcome = "rejected_ambiguous"
)

// Decision is the final accept/reject outcome for one canonical feature.
// Low-confidence and ambiguous outcomes are not errors; they are surfaced
// for human review, never dropped.
type Decision struct {
	Feature    catalog.FeatureID
	Outcome    Outcome
	Confidence float64
	Candidate  match.Candidate // supporting evidence
}

// Summary counts decisions by outcome.
type Summary struct {
	Accepted      int
	LowConfidence int
	Ambiguous     int
}

// Report is the aggregate result for one document. Decisions appear in
// catalog order, one per feature that had at least one candidate; features
// with no candidate are absent, which callers read as "no evidence found".
type Report struct {
	RunID     uuid.UUID
	SourceID  string
	CreatedAt time.Time
	Decisions []Decision
	Summary   Summary
}

// Decision returns the decision for a feature, if the report carries one.
func (r *Report) Decision(id catalog.FeatureID) (Decision, bool) {
	for _, d := range r.Decisions {
		if d.Feature == id {
			return d, true
		}
	}
	return Decision{}, false
}

// AcceptedFeatures lists the features the checkbox-update side should toggle
// on. Updates must be idempotent; an already-checked box is a no-op.
func (r *Report) AcceptedFeatures() []catalog.FeatureID {
	var out []catalog.FeatureID
	for _, d := range r.Decisions {
		if d.Outcome == Accepted {
			out = append(out, d.Feature)
		}
	}
	return out
}
