package itip

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/mo"

	"libitip/metrics"
)

// patchEvent produces a comparison-ready copy of an incoming event: a
// field-unfiltered clone with normalized all-day boundaries, timezones
// aligned against the stored counterpart, attachments restored from the
// original where they are unchanged, and the recurrence id re-normalized
// against the possibly shifted start date. Collaborator failures degrade
// to the unpatched clone plus a warning on the analysis.
func (b *baseAnalyzer) patchEvent(ctx context.Context, analysis *Analysis, session *Session, event, original *Event, calendarUserID int) *Event {
	if event == nil {
		return nil
	}
	patched := event.Clone()
	normalizeAllDay(patched)

	if b.env.TimeZones != nil {
		adjusted, err := b.env.TimeZones.AdjustTimeZones(ctx, session, calendarUserID, patched, original)
		if err != nil {
			analysis.Warn(fmt.Sprintf("timezone adjustment failed for %s: %v", event.UID, err))
			b.env.logger().Warn("timezone adjustment failed, using event as-is",
				"uid", event.UID, "error", err)
			metrics.CollaboratorFailures.WithLabelValues("timezones").Inc()
		} else if adjusted != nil {
			patched = adjusted
		}
	}

	if original != nil {
		patched.Attachments = restoreAttachments(original.Attachments, patched.Attachments)
	}

	normalizeRecurrenceID(patched, event)
	return patched
}

// normalizeAllDay snaps the boundaries of an all-day event to whole days,
// with the end exclusive at midnight.
func normalizeAllDay(e *Event) {
	if e == nil || !e.AllDay {
		return
	}
	e.Start = truncateToDay(e.Start)
	end := truncateToDay(e.End)
	if !end.After(e.Start) {
		end = e.Start.AddDate(0, 0, 1)
	}
	e.End = end
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// normalizeRecurrenceID shifts the recurrence id by the same delta the
// patching applied to the start date, and snaps it to a whole day for
// all-day events, so that exceptions still line up with their series.
func normalizeRecurrenceID(patched, unpatched *Event) {
	if patched == nil || patched.RecurrenceID.IsZero() {
		return
	}
	if !patched.Start.Equal(unpatched.Start) {
		patched.RecurrenceID = patched.RecurrenceID.Add(patched.Start.Sub(unpatched.Start))
	}
	if patched.AllDay {
		patched.RecurrenceID = truncateToDay(patched.RecurrenceID)
	}
}

// attachmentMatcher locates a stored attachment matching the incoming one,
// returning its index within the stored pool.
type attachmentMatcher func(incoming Attachment, stored []Attachment) mo.Option[int]

// Matchers run in strict priority order; the first hit wins.
var attachmentMatchers = []attachmentMatcher{
	matchByManagedID,
	matchByURI,
	matchByChecksum,
	matchByMetadata,
}

// restoreAttachments replaces incoming attachments that are unchanged
// versus the stored ones with the stored record, so that a mere re-send
// never shows up as an attachment change. Every stored attachment is
// consumed at most once.
func restoreAttachments(stored, incoming []Attachment) []Attachment {
	if len(stored) == 0 || len(incoming) == 0 {
		return incoming
	}
	pool := append([]Attachment(nil), stored...)
	restored := make([]Attachment, 0, len(incoming))
	for _, att := range incoming {
		match := mo.None[int]()
		for _, matcher := range attachmentMatchers {
			if match = matcher(att, pool); match.IsPresent() {
				break
			}
		}
		if idx, ok := match.Get(); ok {
			restored = append(restored, pool[idx])
			pool = append(pool[:idx], pool[idx+1:]...)
		} else {
			restored = append(restored, att)
		}
	}
	return restored
}

func matchByManagedID(incoming Attachment, stored []Attachment) mo.Option[int] {
	if incoming.ManagedID == "" {
		return mo.None[int]()
	}
	for i, s := range stored {
		if s.ManagedID == incoming.ManagedID {
			return mo.Some(i)
		}
	}
	return mo.None[int]()
}

func matchByURI(incoming Attachment, stored []Attachment) mo.Option[int] {
	if incoming.URI == "" {
		return mo.None[int]()
	}
	for i, s := range stored {
		if s.URI == incoming.URI {
			return mo.Some(i)
		}
	}
	return mo.None[int]()
}

func matchByChecksum(incoming Attachment, stored []Attachment) mo.Option[int] {
	if incoming.Checksum == "" {
		return mo.None[int]()
	}
	for i, s := range stored {
		if s.Checksum == incoming.Checksum {
			return mo.Some(i)
		}
	}
	return mo.None[int]()
}

func matchByMetadata(incoming Attachment, stored []Attachment) mo.Option[int] {
	if incoming.Filename == "" {
		return mo.None[int]()
	}
	for i, s := range stored {
		if s.Filename == incoming.Filename && s.Size == incoming.Size && s.FormatType == incoming.FormatType {
			return mo.Some(i)
		}
	}
	return mo.None[int]()
}
