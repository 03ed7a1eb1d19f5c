package draft

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/Strob0t/ReplyForge/internal/domain/policy"
)

// State constants for statekit. They stay untyped so they convert to
// statekit.StateID and to Status alike.
const (
	StateDraft       = "DRAFT"
	StateNeedsReview = "NEEDS_REVIEW"
	StateApproved    = "APPROVED"
	StateRejected    = "REJECTED"
)

// Event drives a lifecycle transition.
type Event string

const (
	EventEdit          Event = "edit"           // content replaced by a person
	EventFlag          Event = "flag"           // re-check found review-worthy content
	EventClear         Event = "clear"          // re-check found nothing needing review
	EventApprove       Event = "approve"        // explicit human approval
	EventPublishFailed Event = "publish_failed" // platform rejected the reply
	EventReject        Event = "reject"
)

// noops lists events that leave a status unchanged without being errors.
// statekit cannot observe self-transitions, so they are answered here.
var noops = map[Event][]Status{
	EventEdit:  {StatusDraft},
	EventClear: {StatusDraft},
	EventFlag:  {StatusNeedsReview},
}

type guardContext struct {
	blocked   bool
	stale     bool
	published bool
}

func newInterpreter(d *Draft) (*statekit.Interpreter[guardContext], error) {
	b := statekit.NewMachine[guardContext]("draft-lifecycle").
		WithInitial(statekit.StateID(d.Status)).
		WithContext(guardContext{
			blocked:   d.Policy.Blocked,
			stale:     d.PolicyStale,
			published: d.Published(),
		}).
		WithGuard("publishable", func(c guardContext, _ statekit.Event) bool {
			return !c.blocked && !c.stale
		}).
		WithGuard("unpublished", func(c guardContext, _ statekit.Event) bool {
			return !c.published
		})

	b.State(StateDraft).
		On(statekit.EventType(EventFlag)).Target(StateNeedsReview).
		On(statekit.EventType(EventApprove)).Target(StateApproved).Guard("publishable").
		On(statekit.EventType(EventReject)).Target(StateRejected).
		Done()

	b.State(StateNeedsReview).
		On(statekit.EventType(EventEdit)).Target(StateDraft).
		On(statekit.EventType(EventClear)).Target(StateDraft).
		On(statekit.EventType(EventApprove)).Target(StateApproved).Guard("publishable").
		On(statekit.EventType(EventReject)).Target(StateRejected).
		Done()

	b.State(StateApproved).
		On(statekit.EventType(EventEdit)).Target(StateDraft).Guard("unpublished").
		On(statekit.EventType(EventFlag)).Target(StateNeedsReview).Guard("unpublished").
		On(statekit.EventType(EventClear)).Target(StateDraft).Guard("unpublished").
		On(statekit.EventType(EventPublishFailed)).Target(StateDraft).Guard("unpublished").
		On(statekit.EventType(EventReject)).Target(StateRejected).Guard("unpublished").
		Done()

	// Terminal.
	b.State(StateRejected).Done()

	m, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build draft lifecycle: %w", err)
	}
	it := statekit.NewInterpreter(m)
	it.Start()
	return it, nil
}

// Fire applies ev to d.Status. It returns a typed error explaining why a
// transition was refused and leaves d untouched in that case.
func Fire(d *Draft, ev Event) error {
	if d.Status == StatusRejected {
		return ErrTerminal
	}
	for _, s := range noops[ev] {
		if d.Status == s {
			return nil
		}
	}

	it, err := newInterpreter(d)
	if err != nil {
		return err
	}
	before := d.Status
	it.Send(statekit.Event{Type: statekit.EventType(ev)})
	after := Status(it.State().Value)
	if after != before {
		d.Status = after
		return nil
	}
	return refusal(d, ev)
}

func refusal(d *Draft, ev Event) error {
	switch {
	case d.Published():
		return ErrAlreadyPublished
	case ev == EventApprove && d.Policy.Blocked:
		return ErrBlocked
	case ev == EventApprove && d.PolicyStale:
		return ErrStalePolicy
	default:
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, ev, d.Status)
	}
}

// Edit replaces the content and marks the policy result stale until the
// next Recheck.
func (d *Draft) Edit(content string, now time.Time) error {
	if d.Publishing(now) {
		return ErrPublishing
	}
	if err := Fire(d, EventEdit); err != nil {
		return err
	}
	d.Content = content
	d.PolicyStale = true
	d.UpdatedAt = now
	return nil
}

// Recheck stores a fresh policy result for the current content and moves the
// draft to the status it warrants. A re-check never approves.
func (d *Draft) Recheck(res policy.Result, now time.Time) error {
	if d.Status == StatusRejected {
		return ErrTerminal
	}
	if d.Published() {
		return ErrAlreadyPublished
	}
	if d.Publishing(now) {
		return ErrPublishing
	}
	ev := EventClear
	if RecheckStatus(res) == StatusNeedsReview {
		ev = EventFlag
	}
	prev := d.Policy
	prevStale := d.PolicyStale
	d.Policy, d.PolicyStale = res, false
	if err := Fire(d, ev); err != nil {
		d.Policy, d.PolicyStale = prev, prevStale
		return err
	}
	d.UpdatedAt = now
	return nil
}

// Approve readies the draft for publishing and takes the publish claim. A
// draft that was auto-approved at generation and never published is already
// approved. The claim must be stored before the reply is sent, so a second
// approval sees it and backs off.
func (d *Draft) Approve(now time.Time) error {
	if d.Publishing(now) {
		return ErrPublishing
	}
	if d.Status == StatusApproved && !d.Published() {
		if d.Policy.Blocked {
			return ErrBlocked
		}
	} else if err := Fire(d, EventApprove); err != nil {
		return err
	}
	d.PublishingSince = &now
	d.UpdatedAt = now
	return nil
}

// MarkPublished records the platform's reply id and releases the claim.
func (d *Draft) MarkPublished(providerReplyID string, now time.Time) {
	d.ProviderReplyID = providerReplyID
	d.PublishedAt = &now
	d.PublishingSince = nil
	d.UpdatedAt = now
}

// PublishFailed reverts an approved draft to DRAFT and releases the claim.
func (d *Draft) PublishFailed(now time.Time) error {
	if err := Fire(d, EventPublishFailed); err != nil {
		return err
	}
	d.PublishingSince = nil
	d.UpdatedAt = now
	return nil
}

// Reject moves the draft to the terminal REJECTED status.
func (d *Draft) Reject(now time.Time) error {
	if d.Publishing(now) {
		return ErrPublishing
	}
	if err := Fire(d, EventReject); err != nil {
		return err
	}
	d.UpdatedAt = now
	return nil
}
