package itip

import (
	"context"
	"fmt"
	"net/mail"
)

// replyAnalyzer handles REPLY. A reply merges the replying attendee's
// participation data into the stored attendee list; it never touches any
// other event field.
type replyAnalyzer struct {
	baseAnalyzer
}

func (a *replyAnalyzer) Methods() []Method { return []Method{MethodReply} }

func (a *replyAnalyzer) SupportsLegacy() bool { return true }

func (a *replyAnalyzer) Analyze(ctx context.Context, msg *Message, headers map[string]string, format RenderFormat, session *Session) (*Analysis, error) {
	if err := a.requireMethod(msg, MethodReply); err != nil {
		return nil, err
	}
	analysis := NewAnalysis(msg)

	original, err := a.resolveOriginal(ctx, session, msg.UID(), msg.Owner)
	if err != nil {
		return nil, err
	}
	if original.IsEmpty() {
		analysis.Warn(fmt.Sprintf("reply for unknown appointment %q", msg.UID()))
		analysis.Recommend(ActionIgnore)
		return analysis, nil
	}

	reference := original.FirstEvent()
	if !session.IsOrganizer(reference) && !a.actsOnBehalf(ctx, analysis, session, reference) {
		analysis.Annotate(AnnotationNoPermission, reference)
		analysis.Recommend(ActionIgnore)
		return analysis, nil
	}

	for _, event := range msg.Events() {
		a.analyzeReply(analysis, session, msg, format, original, event)
	}

	if a.hasPartyCrasher(analysis) {
		analysis.ClearActions()
		analysis.Recommend(ActionAcceptPartyCrasher)
		return analysis, nil
	}
	if len(analysis.Changes) > 0 {
		analysis.Recommend(ActionUpdate)
		a.warnOnUnknownSender(analysis, headers, original)
	}
	return analysis, nil
}

// analyzeReply merges the reply for one transmitted event into its stored
// counterpart and emits an UPDATE change when attendee data changed.
func (a *replyAnalyzer) analyzeReply(analysis *Analysis, session *Session, msg *Message, format RenderFormat, original *CalendarObjectResource, event *Event) {
	stored := storedCounterpart(original, event)
	exception := !event.IsSeriesMaster()
	if stored == nil {
		// A reply for an occurrence without a materialized exception is
		// applied against a copy of the series master.
		master := original.SeriesMaster()
		if master == nil {
			analysis.Warn(fmt.Sprintf("reply for unknown occurrence %s of %q",
				event.RecurrenceID, event.UID))
			return
		}
		stored = master.Clone()
		stored.RecurrenceID = event.RecurrenceID
		if !event.Start.IsZero() {
			stored.Start, stored.End = event.Start, event.End
		}
	}

	merged := stored.Clone()
	for _, replier := range event.Attendees {
		mergeReply(merged, replier)
	}
	if !a.eventsDiffer(session, merged, stored) {
		return
	}
	change := &Change{
		Type:         ChangeUpdate,
		Exception:    exception,
		CurrentEvent: stored,
		NewEvent:     merged,
		MasterEvent:  original.SeriesMaster(),
		Diff:         NewEventUpdate(stored, merged),
	}
	a.describeChange(change, format, msg)
	analysis.AddChange(change)
}

// mergeReply folds the replying attendee into the stored attendee list.
// Only comment, extended parameters, participation status and sent-by are
// taken from the reply; an unknown attendee is appended as-is.
func mergeReply(event *Event, replier Attendee) {
	for i, existing := range event.Attendees {
		if existing.Email() == replier.Email() {
			event.Attendees[i].Status = replier.Status
			event.Attendees[i].Comment = replier.Comment
			event.Attendees[i].SentBy = replier.SentBy
			event.Attendees[i].Extended = replier.Extended
			return
		}
	}
	event.Attendees = append(event.Attendees, replier)
}

func (a *replyAnalyzer) actsOnBehalf(ctx context.Context, analysis *Analysis, session *Session, event *Event) bool {
	if a.env.Permissions == nil {
		return false
	}
	onBehalf, err := a.env.Permissions.ActingOnBehalfOf(ctx, session, event)
	if err != nil {
		analysis.Warn("delegation check failed: " + err.Error())
		return false
	}
	return onBehalf
}

func (a *replyAnalyzer) hasPartyCrasher(analysis *Analysis) bool {
	for _, change := range analysis.Changes {
		if len(change.Diff.AddedAttendees()) > 0 {
			return true
		}
	}
	return false
}

// warnOnUnknownSender appends a non-blocking warning when the mail sender
// cannot be matched to any known attendee of the stored events.
func (a *replyAnalyzer) warnOnUnknownSender(analysis *Analysis, headers map[string]string, original *CalendarObjectResource) {
	from := headers["from"]
	if from == "" {
		return
	}
	address := from
	if parsed, err := mail.ParseAddress(from); err == nil {
		address = parsed.Address
	}
	events := append([]*Event{original.SeriesMaster()}, original.ChangeExceptions()...)
	for _, event := range events {
		if event == nil {
			continue
		}
		if _, ok := event.FindAttendee(address); ok {
			return
		}
	}
	analysis.Warn(fmt.Sprintf("sender %q is not an attendee of appointment %q", address, original.UID()))
}
