package draft

import "github.com/Strob0t/ReplyForge/internal/domain/policy"

// lowRating is the highest rating that can never be auto-approved.
const lowRating = 3

type statusRule struct {
	name   string
	match  func(res policy.Result, rating int) bool
	status Status
}

// initialRules is evaluated top to bottom; the first match wins.
var initialRules = []statusRule{
	{
		name:   "blocked",
		match:  func(res policy.Result, _ int) bool { return res.Blocked },
		status: StatusDraft,
	},
	{
		name:   "needs review",
		match:  func(res policy.Result, rating int) bool { return res.NeedsReview || rating <= lowRating },
		status: StatusNeedsReview,
	},
	{
		name:   "clean positive",
		match:  func(res policy.Result, rating int) bool { return rating > lowRating && res.Clean() },
		status: StatusApproved,
	},
}

// AssignStatus computes the status of a freshly generated draft.
func AssignStatus(res policy.Result, rating int) Status {
	s, _ := Decide(res, rating)
	return s
}

// Decide is AssignStatus that also names the rule that fired. For results
// produced by policy.Check the trailing DRAFT default is unreachable: any
// violation either blocks or sets NeedsReview.
func Decide(res policy.Result, rating int) (Status, string) {
	for _, r := range initialRules {
		if r.match(res, rating) {
			return r.status, r.name
		}
	}
	return StatusDraft, "default"
}

// RecheckStatus computes the status after an explicit re-check of edited
// content. A re-check never auto-approves.
func RecheckStatus(res policy.Result) Status {
	if !res.Blocked && res.NeedsReview {
		return StatusNeedsReview
	}
	return StatusDraft
}
