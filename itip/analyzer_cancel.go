package itip

import (
	"context"
	"fmt"
)

// cancelAnalyzer handles CANCEL. Each transmitted event is classified into
// the removal it implies: a known exception is deleted, an occurrence of
// the series that never materialized becomes a new delete exception, and a
// cancelled master removes the whole series.
type cancelAnalyzer struct {
	baseAnalyzer
}

func (a *cancelAnalyzer) Methods() []Method { return []Method{MethodCancel} }

func (a *cancelAnalyzer) SupportsLegacy() bool { return true }

func (a *cancelAnalyzer) Analyze(ctx context.Context, msg *Message, headers map[string]string, format RenderFormat, session *Session) (*Analysis, error) {
	if err := a.requireMethod(msg, MethodCancel); err != nil {
		return nil, err
	}
	analysis := NewAnalysis(msg)
	incoming := a.buildIncomingResource(msg, true, analysis)

	original, err := a.resolveOriginal(ctx, session, msg.UID(), msg.Owner)
	if err != nil {
		return nil, err
	}

	if stored, transmitted := original.FirstEvent(), incoming.FirstEvent(); stored != nil && transmitted != nil {
		if stored.Organizer != "" && transmitted.Organizer != "" &&
			NormalizeAddress(stored.Organizer) != NormalizeAddress(transmitted.Organizer) {
			analysis.Annotate(AnnotationUnallowedOrganizer, stored)
			analysis.Recommend(ActionIgnore)
			return analysis, nil
		}
	}

	if incoming.SeriesMaster() != nil {
		a.cancelSeries(analysis, msg, format, original)
	}
	for _, event := range incoming.ChangeExceptions() {
		a.cancelOccurrence(analysis, msg, format, original, event)
	}

	if len(analysis.Changes) == 0 {
		analysis.Annotate(AnnotationCancelUnknown, incoming.FirstEvent())
		analysis.Recommend(ActionIgnore)
		return analysis, nil
	}
	analysis.Recommend(ActionDelete)
	return analysis, nil
}

// cancelSeries removes the whole stored calendar object.
func (a *cancelAnalyzer) cancelSeries(analysis *Analysis, msg *Message, format RenderFormat, original *CalendarObjectResource) {
	target := original.SeriesMaster()
	if target == nil {
		target = original.FirstEvent()
	}
	if target == nil {
		return
	}
	change := &Change{
		Type:         ChangeDelete,
		DeletedEvent: target,
	}
	a.describeChange(change, format, msg)
	analysis.AddChange(change)
}

// cancelOccurrence removes a single occurrence, either by deleting its
// materialized exception or by recording a new delete exception on the
// series.
func (a *cancelAnalyzer) cancelOccurrence(analysis *Analysis, msg *Message, format RenderFormat, original *CalendarObjectResource, event *Event) {
	master := original.SeriesMaster()

	if known := original.ChangeException(event.RecurrenceID); known != nil {
		change := &Change{
			Type:         ChangeDelete,
			Exception:    true,
			DeletedEvent: known,
			MasterEvent:  master,
		}
		a.describeChange(change, format, msg)
		analysis.AddChange(change)
		return
	}

	if master == nil || !master.IsRecurring() {
		return
	}
	// An occurrence that is already a delete exception needs no change.
	if master.HasDeleteException(event.RecurrenceID) {
		return
	}
	isOccurrence, err := a.recur.IsOccurrence(master.Start, master.RecurrenceRule, master.DeleteExceptions, event.RecurrenceID)
	if err != nil {
		analysis.Warn(fmt.Sprintf("occurrence check failed for %q at %s: %v",
			event.UID, event.RecurrenceID, err))
		isOccurrence = true
	}
	if !isOccurrence {
		return
	}
	change := &Change{
		Type:         ChangeCreateDeleteException,
		Exception:    true,
		DeletedEvent: occurrenceOf(master, event),
		MasterEvent:  master,
	}
	a.describeChange(change, format, msg)
	analysis.AddChange(change)
}

// occurrenceOf materializes the as-yet-unmaterialized occurrence a cancel
// refers to, derived from the series master.
func occurrenceOf(master, event *Event) *Event {
	occurrence := master.Clone()
	occurrence.ID = ""
	occurrence.RecurrenceID = event.RecurrenceID
	occurrence.RecurrenceRule = ""
	occurrence.DeleteExceptions = nil
	occurrence.Start = event.RecurrenceID
	occurrence.End = event.RecurrenceID.Add(master.Duration())
	return occurrence
}
