package itip

import (
	"fmt"
	"maps"
	"sort"
	"strings"
	"time"
)

// FieldName identifies one diffable event field.
type FieldName string

const (
	FieldSummary          FieldName = "summary"
	FieldLocation         FieldName = "location"
	FieldDescription      FieldName = "description"
	FieldStart            FieldName = "start"
	FieldEnd              FieldName = "end"
	FieldAllDay           FieldName = "all_day"
	FieldTimeZone         FieldName = "timezone"
	FieldOrganizer        FieldName = "organizer"
	FieldAttendees        FieldName = "attendees"
	FieldAttachments      FieldName = "attachments"
	FieldRecurrenceRule   FieldName = "recurrence_rule"
	FieldDeleteExceptions FieldName = "delete_exceptions"
	FieldTransparency     FieldName = "transparency"
	FieldCategories       FieldName = "categories"
)

// Fields synthesized by storage or covered by dedicated handling are never
// part of a diff: folder, id, series id, created-by/at, last-modified,
// modified-by, sequence, alarms, flags and attendee privileges.
type fieldDiffer struct {
	name  FieldName
	equal func(a, b *Event) bool
	value func(e *Event) any
}

var fieldDiffers = []fieldDiffer{
	{FieldSummary, func(a, b *Event) bool { return a.Summary == b.Summary }, func(e *Event) any { return e.Summary }},
	{FieldLocation, func(a, b *Event) bool { return a.Location == b.Location }, func(e *Event) any { return e.Location }},
	{FieldDescription, func(a, b *Event) bool { return a.Description == b.Description }, func(e *Event) any { return e.Description }},
	{FieldStart, func(a, b *Event) bool { return a.Start.Equal(b.Start) }, func(e *Event) any { return e.Start }},
	{FieldEnd, func(a, b *Event) bool { return a.End.Equal(b.End) }, func(e *Event) any { return e.End }},
	{FieldAllDay, func(a, b *Event) bool { return a.AllDay == b.AllDay }, func(e *Event) any { return e.AllDay }},
	{FieldTimeZone, func(a, b *Event) bool { return a.TimeZone == b.TimeZone }, func(e *Event) any { return e.TimeZone }},
	{FieldOrganizer, func(a, b *Event) bool {
		return NormalizeAddress(a.Organizer) == NormalizeAddress(b.Organizer)
	}, func(e *Event) any { return e.Organizer }},
	{FieldAttendees, attendeesEqual, func(e *Event) any { return e.Attendees }},
	{FieldAttachments, attachmentsEqual, func(e *Event) any { return e.Attachments }},
	{FieldRecurrenceRule, func(a, b *Event) bool { return a.RecurrenceRule == b.RecurrenceRule }, func(e *Event) any { return e.RecurrenceRule }},
	{FieldDeleteExceptions, func(a, b *Event) bool {
		return timeSetsEqual(a.DeleteExceptions, b.DeleteExceptions)
	}, func(e *Event) any { return e.DeleteExceptions }},
	{FieldTransparency, func(a, b *Event) bool { return a.Transparency == b.Transparency }, func(e *Event) any { return e.Transparency }},
	{FieldCategories, func(a, b *Event) bool {
		return strings.Join(a.Categories, "\x00") == strings.Join(b.Categories, "\x00")
	}, func(e *Event) any { return e.Categories }},
}

// FieldUpdate is one field-level difference between two event snapshots.
type FieldUpdate struct {
	Field    FieldName
	Original any
	Updated  any
}

// EventUpdate is the field-level update set between an original and an
// updated event snapshot.
type EventUpdate struct {
	Original *Event
	Updated  *Event
	updates  []FieldUpdate
}

// NewEventUpdate diffs the updated event against the original. A nil
// original yields an update set covering every non-zero field of the
// updated event; a nil updated event is diffed as an empty event.
func NewEventUpdate(original, updated *Event) *EventUpdate {
	u := &EventUpdate{Original: original, Updated: updated}
	left, right := original, updated
	if left == nil {
		left = &Event{}
	}
	if right == nil {
		right = &Event{}
	}
	for _, d := range fieldDiffers {
		if !d.equal(left, right) {
			u.updates = append(u.updates, FieldUpdate{
				Field:    d.name,
				Original: d.value(left),
				Updated:  d.value(right),
			})
		}
	}
	return u
}

// Updates returns the field updates in table order.
func (u *EventUpdate) Updates() []FieldUpdate {
	if u == nil {
		return nil
	}
	return u.updates
}

// IsEmpty reports whether no field differs.
func (u *EventUpdate) IsEmpty() bool {
	return u == nil || len(u.updates) == 0
}

// ContainsAnyOf reports whether the update set touches any given field.
func (u *EventUpdate) ContainsAnyOf(fields ...FieldName) bool {
	if u == nil {
		return false
	}
	for _, update := range u.updates {
		for _, f := range fields {
			if update.Field == f {
				return true
			}
		}
	}
	return false
}

// Update returns the update for the given field, if present.
func (u *EventUpdate) Update(field FieldName) (FieldUpdate, bool) {
	if u != nil {
		for _, update := range u.updates {
			if update.Field == field {
				return update, true
			}
		}
	}
	return FieldUpdate{}, false
}

// AttendeeStatusOnly reports whether the update set consists of nothing
// but a single attendee's participation status changing, and returns that
// attendee in its updated form.
func (u *EventUpdate) AttendeeStatusOnly() (Attendee, bool) {
	if u == nil || len(u.updates) != 1 || u.updates[0].Field != FieldAttendees {
		return Attendee{}, false
	}
	if u.Original == nil || u.Updated == nil {
		return Attendee{}, false
	}
	if len(u.Original.Attendees) != len(u.Updated.Attendees) {
		return Attendee{}, false
	}
	var changed []Attendee
	for _, updated := range u.Updated.Attendees {
		original, ok := u.Original.FindAttendee(updated.URI)
		if !ok {
			return Attendee{}, false
		}
		if original.Status != updated.Status {
			changed = append(changed, updated)
		} else if !attendeeEqual(original, updated) {
			return Attendee{}, false
		}
	}
	if len(changed) != 1 {
		return Attendee{}, false
	}
	return changed[0], true
}

// AddedAttendees returns attendees present in the updated event but
// missing from the original one (party-crashers).
func (u *EventUpdate) AddedAttendees() []Attendee {
	if u == nil || u.Updated == nil {
		return nil
	}
	var added []Attendee
	for _, a := range u.Updated.Attendees {
		if u.Original == nil {
			added = append(added, a)
			continue
		}
		if _, ok := u.Original.FindAttendee(a.URI); !ok {
			added = append(added, a)
		}
	}
	return added
}

func (u *EventUpdate) String() string {
	if u.IsEmpty() {
		return "no changes"
	}
	names := make([]string, len(u.updates))
	for i, update := range u.updates {
		names[i] = string(update.Field)
	}
	return fmt.Sprintf("changed: %s", strings.Join(names, ", "))
}

func attendeeEqual(a, b Attendee) bool {
	return a.Email() == b.Email() &&
		a.CommonName == b.CommonName &&
		a.Status == b.Status &&
		a.UserType == b.UserType &&
		a.SentBy == b.SentBy &&
		a.Comment == b.Comment &&
		maps.Equal(a.Extended, b.Extended)
}

func attendeesEqual(a, b *Event) bool {
	if len(a.Attendees) != len(b.Attendees) {
		return false
	}
	for _, att := range a.Attendees {
		other, ok := b.FindAttendee(att.URI)
		if !ok || !attendeeEqual(att, other) {
			return false
		}
	}
	return true
}

// attachmentsEqual compares attachment sets as unordered collections.
func attachmentsEqual(a, b *Event) bool {
	if len(a.Attachments) != len(b.Attachments) {
		return false
	}
	keys := func(atts []Attachment) []string {
		out := make([]string, len(atts))
		for i, att := range atts {
			out[i] = fmt.Sprintf("%s|%s|%s|%s|%d|%s",
				att.ManagedID, att.URI, att.Checksum, att.Filename, att.Size, att.FormatType)
		}
		sort.Strings(out)
		return out
	}
	ka, kb := keys(a.Attachments), keys(b.Attachments)
	for i := range ka {
		if ka[i] != kb[i] {
			return false
		}
	}
	return true
}

func timeSetsEqual(a, b []time.Time) bool {
	if len(a) != len(b) {
		return false
	}
	for _, ta := range a {
		found := false
		for _, tb := range b {
			if ta.Equal(tb) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
