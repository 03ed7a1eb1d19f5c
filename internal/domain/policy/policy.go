// Package policy implements the content-safety gate applied to every reply
// draft before it can be published.
package policy

// Kind identifies the rule that produced a violation.
type Kind string

const (
	KindIncentive    Kind = "incentive"
	KindPII          Kind = "pii"
	KindSafety       Kind = "safety"
	KindLegal        Kind = "legal"
	KindMedical      Kind = "medical"
	KindLowRating    Kind = "low_rating_review"
	KindReviewGating Kind = "review_gating"
)

// Severity grades a violation.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Violation is a single flagged concern in a draft.
type Violation struct {
	Kind        Kind     `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
	Blocked     bool     `json:"blocked"`
}

// Result is the outcome of one policy check.
//
// Blocked is true when any violation blocks. NeedsReview is true when any
// non-blocking violation is present or the rating is low. Both can be true at
// once; Blocked wins for publish eligibility.
type Result struct {
	Violations  []Violation `json:"violations"`
	Blocked     bool        `json:"blocked"`
	NeedsReview bool        `json:"needs_review"`
}

// Clean reports whether the check produced no violations at all.
func (r Result) Clean() bool {
	return len(r.Violations) == 0
}

// Has reports whether a violation of the given kind is present.
func (r Result) Has(k Kind) bool {
	for i := range r.Violations {
		if r.Violations[i].Kind == k {
			return true
		}
	}
	return false
}

// Kinds returns the violation kinds in evaluation order.
func (r Result) Kinds() []Kind {
	out := make([]Kind, len(r.Violations))
	for i := range r.Violations {
		out[i] = r.Violations[i].Kind
	}
	return out
}
