package itip

import (
	"context"
	"fmt"
	"time"

	"libitip/metrics"
	"libitip/recurrence"
)

// Analyzer analyzes one scheduling message into an Analysis. Analyzers are
// stateless; every call operates only on its own data and may therefore be
// used concurrently.
type Analyzer interface {
	// Methods returns the iTIP methods this analyzer handles.
	Methods() []Method

	// SupportsLegacy reports whether the analyzer may be selected when
	// legacy scheduling is enabled.
	SupportsLegacy() bool

	// Analyze inspects the message and returns the engine's
	// recommendation. Business-rule outcomes are always expressed in the
	// returned Analysis; a non-nil error marks an infrastructure fault
	// or a dispatcher bug only.
	Analyze(ctx context.Context, msg *Message, headers map[string]string, format RenderFormat, session *Session) (*Analysis, error)
}

// baseAnalyzer carries the environment and the helpers shared by all
// method-specific analyzers.
type baseAnalyzer struct {
	env   Environment
	recur *recurrence.Engine
}

func (b *baseAnalyzer) requireMethod(msg *Message, supported ...Method) error {
	for _, m := range supported {
		if msg.Method == m {
			return nil
		}
	}
	return fmt.Errorf("%w: got %s", ErrWrongMethod, msg.Method)
}

// resolveOriginal looks up all stored events for a UID visible to the
// given calendar user and groups them as a calendar object resource. An
// unknown UID yields an empty resource, not an error.
func (b *baseAnalyzer) resolveOriginal(ctx context.Context, session *Session, uid string, calendarUserID int) (*CalendarObjectResource, error) {
	if b.env.Lookup == nil {
		return nil, ErrMissingLookup
	}
	events, err := b.env.Lookup.ResolveEventsByUID(ctx, session, uid, calendarUserID)
	if err != nil {
		return nil, fmt.Errorf("resolving events for uid %q: %w", uid, err)
	}
	return NewCalendarObjectResource(events), nil
}

// buildIncomingResource assembles a resource from the message's primary
// event and exceptions. With filterInvalid set, transmitted events failing
// the minimal iTIP shape (UID, ORGANIZER and at least one ATTENDEE) are
// dropped with a warning rather than failing the message.
func (b *baseAnalyzer) buildIncomingResource(msg *Message, filterInvalid bool, analysis *Analysis) *CalendarObjectResource {
	events := make([]*Event, 0, len(msg.Exceptions)+1)
	for _, e := range msg.Events() {
		if filterInvalid && !hasMinimalShape(e) {
			analysis.Warn(fmt.Sprintf("dropping invalid event (uid=%q, recurrence=%s): missing uid, organizer or attendees",
				e.UID, e.RecurrenceID.Format(time.RFC3339)))
			continue
		}
		events = append(events, e)
	}
	return NewCalendarObjectResource(events)
}

func hasMinimalShape(e *Event) bool {
	return e != nil && e.UID != "" && e.Organizer != "" && len(e.Attendees) > 0
}

// eventsDiffer reports whether a genuine difference exists between the
// updated and the original event. A difference consisting solely of the
// acting user's own participation status moving away from NEEDS-ACTION to
// a value this session already applied itself does not count.
func (b *baseAnalyzer) eventsDiffer(session *Session, updated, original *Event) bool {
	diff := NewEventUpdate(original, updated)
	if diff.IsEmpty() {
		return false
	}
	if attendee, ok := diff.AttendeeStatusOnly(); ok && session.Owns(attendee) {
		previous, _ := original.FindAttendee(attendee.URI)
		if previous.Status == StatusNeedsAction {
			if applied, ok := session.AppliedStatus(updated.UID); ok && applied == attendee.Status {
				return false
			}
		}
	}
	return true
}

// describeChange fills the change's introduction sentence and rendered
// description lines. For a pure participation-status update the status
// sentence replaces the generic one; for REPLY messages the rendered diff
// is restricted to attendee fields.
func (b *baseAnalyzer) describeChange(change *Change, format RenderFormat, msg *Message) {
	svc := b.env.Descriptions
	if svc == nil {
		return
	}
	var intro Sentence
	if change.Type == ChangeUpdate {
		if attendee, ok := change.Diff.AttendeeStatusOnly(); ok {
			intro = svc.StatusUpdate(attendee, attendee.Status)
		}
	}
	if intro == nil {
		intro = svc.Introduction(change)
	}
	if intro != nil {
		change.Introduction = intro.Render(format)
	}
	if change.Diff == nil || change.Diff.IsEmpty() {
		return
	}
	var sentences []Sentence
	if msg.Method == MethodReply {
		sentences = svc.DescribeOnly(change.Diff, FieldAttendees)
	} else {
		sentences = svc.Describe(change.Diff)
	}
	for _, s := range sentences {
		change.Descriptions = append(change.Descriptions, s.Render(format))
	}
}

// detectConflicts runs the conflict checker for the given event, degrading
// to an empty conflict list with a warning on failure.
func (b *baseAnalyzer) detectConflicts(ctx context.Context, analysis *Analysis, session *Session, event *Event) []Conflict {
	if b.env.Conflicts == nil || event == nil {
		return nil
	}
	conflicts, err := b.env.Conflicts.CheckForConflicts(ctx, session, event, event.Attendees)
	if err != nil {
		analysis.Warn(fmt.Sprintf("conflict check failed for %s: %v", event.UID, err))
		b.env.logger().Warn("conflict check failed, assuming no conflicts",
			"uid", event.UID, "error", err)
		metrics.CollaboratorFailures.WithLabelValues("conflicts").Inc()
		return nil
	}
	return conflicts
}

// ensureParticipant appends the owner's calendar user as an attendee with
// status NEEDS-ACTION when missing, preferring the original event's
// attendee list as the base set when available.
func (b *baseAnalyzer) ensureParticipant(original, event *Event, session *Session, ownerAddress string) {
	if event == nil || ownerAddress == "" {
		return
	}
	if original != nil && len(event.Attendees) == 0 {
		event.Attendees = append([]Attendee(nil), original.Attendees...)
	}
	if _, ok := event.FindAttendee(ownerAddress); ok {
		return
	}
	event.Attendees = append(event.Attendees, Attendee{
		URI:      "mailto:" + NormalizeAddress(ownerAddress),
		Status:   StatusNeedsAction,
		UserType: UserIndividual,
	})
}

// findAndRemoveMatchingException returns the exception matching the given
// event's recurrence id and removes it from the working set. The working
// set is owned by the current analysis call; exceptions left over at the
// end were never mentioned by the incoming message.
func findAndRemoveMatchingException(event *Event, remaining *[]*Event) *Event {
	if event == nil {
		return nil
	}
	for i, candidate := range *remaining {
		if candidate.RecurrenceID.Equal(event.RecurrenceID) {
			*remaining = append((*remaining)[:i], (*remaining)[i+1:]...)
			return candidate
		}
	}
	return nil
}

// isOutdated reports whether the incoming event is staler than the stored
// one. When both sides carry a sequence number, the sequence alone
// decides; timestamps (truncated to whole seconds) are a tiebreak only
// when sequence is absent on either side or equal. An incoming event
// without any timestamp cannot be proven stale.
func isOutdated(incoming, stored *Event) bool {
	if incoming == nil || stored == nil {
		return false
	}
	incomingSeq, incomingOK := incoming.Sequence.Get()
	storedSeq, storedOK := stored.Sequence.Get()
	if incomingOK && storedOK && incomingSeq != storedSeq {
		return incomingSeq < storedSeq
	}
	ts := timestampOf(incoming)
	if ts.IsZero() {
		return false
	}
	return ts.Before(timestampOf(stored))
}

// timestampOf returns the event's change timestamp: LAST-MODIFIED,
// falling back to CREATED and then DTSTAMP. Scheduling mails often carry
// only a DTSTAMP.
func timestampOf(e *Event) time.Time {
	t := e.LastModified
	if t.IsZero() {
		t = e.Created
	}
	if t.IsZero() {
		t = e.Timestamp
	}
	return t.Truncate(time.Second)
}
