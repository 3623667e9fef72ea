// Package describe is the default English description service for the
// analysis engine. It turns change classifications and field-level diffs
// into renderable sentences; HTML output is built as well-formed markup.
// Callers needing localization plug in their own itip.DescriptionService.
package describe

import (
	"fmt"
	"time"

	"libitip/itip"
)

// Service implements itip.DescriptionService.
type Service struct{}

// NewService creates a description service.
func NewService() *Service {
	return &Service{}
}

// Introduction returns the leading sentence for a change.
func (s *Service) Introduction(change *itip.Change) itip.Sentence {
	switch change.Type {
	case itip.ChangeCreate:
		if change.Exception {
			return newSentence("intro", "The appointment %q was changed for %s.",
				summaryOf(change.NewEvent), formatTime(change.NewEvent, recurrenceOf(change.NewEvent)))
		}
		return newSentence("intro", "You have been invited to the appointment %q.", summaryOf(change.NewEvent))
	case itip.ChangeUpdate:
		event := change.NewEvent
		if event == nil {
			event = change.CurrentEvent
		}
		if change.Exception {
			return newSentence("intro", "The occurrence of %q on %s was updated.",
				summaryOf(event), formatTime(event, recurrenceOf(event)))
		}
		return newSentence("intro", "The appointment %q was updated.", summaryOf(event))
	case itip.ChangeDelete:
		if change.Exception {
			return newSentence("intro", "The occurrence of %q on %s was cancelled.",
				summaryOf(change.DeletedEvent), formatTime(change.DeletedEvent, recurrenceOf(change.DeletedEvent)))
		}
		return newSentence("intro", "The appointment %q was cancelled.", summaryOf(change.DeletedEvent))
	case itip.ChangeCreateDeleteException:
		return newSentence("intro", "The occurrence of %q on %s was cancelled.",
			summaryOf(change.DeletedEvent), formatTime(change.DeletedEvent, recurrenceOf(change.DeletedEvent)))
	}
	return newSentence("intro", "The appointment %q was updated.", summaryOf(change.NewEvent))
}

// StatusUpdate returns the sentence for a single attendee's participation
// status change.
func (s *Service) StatusUpdate(attendee itip.Attendee, status itip.ParticipationStatus) itip.Sentence {
	name := attendee.CommonName
	if name == "" {
		name = attendee.Email()
	}
	switch status {
	case itip.StatusAccepted:
		return newSentence("status accepted", "%s has accepted the invitation.", name)
	case itip.StatusDeclined:
		return newSentence("status declined", "%s has declined the invitation.", name)
	case itip.StatusTentative:
		return newSentence("status tentative", "%s has tentatively accepted the invitation.", name)
	default:
		return newSentence("status", "%s has not yet responded to the invitation.", name)
	}
}

// Describe returns one sentence per updated field.
func (s *Service) Describe(update *itip.EventUpdate) []itip.Sentence {
	return s.describe(update, nil)
}

// DescribeOnly behaves like Describe restricted to the given fields.
func (s *Service) DescribeOnly(update *itip.EventUpdate, fields ...itip.FieldName) []itip.Sentence {
	allowed := make(map[itip.FieldName]bool, len(fields))
	for _, f := range fields {
		allowed[f] = true
	}
	return s.describe(update, allowed)
}

func (s *Service) describe(update *itip.EventUpdate, allowed map[itip.FieldName]bool) []itip.Sentence {
	var sentences []itip.Sentence
	for _, fu := range update.Updates() {
		if allowed != nil && !allowed[fu.Field] {
			continue
		}
		if sentence := describeField(update, fu); sentence != nil {
			sentences = append(sentences, sentence)
		}
	}
	return sentences
}

func describeField(update *itip.EventUpdate, fu itip.FieldUpdate) itip.Sentence {
	updated := update.Updated
	switch fu.Field {
	case itip.FieldSummary:
		return newSentence("summary", "The appointment was renamed to %q.", updated.Summary)
	case itip.FieldLocation:
		if updated.Location == "" {
			return newSentence("location", "The location was removed.")
		}
		return newSentence("location", "The appointment takes place at %q.", updated.Location)
	case itip.FieldDescription:
		return newSentence("description", "The description was changed.")
	case itip.FieldStart:
		return newSentence("start", "The appointment now starts on %s.", formatTime(updated, updated.Start))
	case itip.FieldEnd:
		return newSentence("end", "The appointment now ends on %s.", formatTime(updated, updated.End))
	case itip.FieldAllDay:
		if updated.AllDay {
			return newSentence("allday", "The appointment now lasts the whole day.")
		}
		return newSentence("allday", "The appointment is no longer an all-day event.")
	case itip.FieldTimeZone:
		return newSentence("timezone", "The timezone was changed to %s.", updated.TimeZone)
	case itip.FieldOrganizer:
		return newSentence("organizer", "The appointment is now organized by %s.", itip.NormalizeAddress(updated.Organizer))
	case itip.FieldAttendees:
		return describeAttendees(update)
	case itip.FieldAttachments:
		return newSentence("attachments", "The attachments were changed.")
	case itip.FieldRecurrenceRule:
		if updated.RecurrenceRule == "" {
			return newSentence("recurrence", "The appointment no longer repeats.")
		}
		return newSentence("recurrence", "The recurrence of the appointment was changed.")
	case itip.FieldDeleteExceptions:
		return newSentence("recurrence", "Occurrences were removed from the series.")
	case itip.FieldTransparency:
		return newSentence("transparency", "The appointment is now shown as %s.", updated.Transparency)
	case itip.FieldCategories:
		return newSentence("categories", "The categories were changed.")
	}
	return nil
}

func describeAttendees(update *itip.EventUpdate) itip.Sentence {
	if added := update.AddedAttendees(); len(added) == 1 {
		name := added[0].CommonName
		if name == "" {
			name = added[0].Email()
		}
		return newSentence("attendees", "%s was added as a participant.", name)
	}
	return newSentence("attendees", "The participants were changed.")
}

func summaryOf(event *itip.Event) string {
	if event == nil || event.Summary == "" {
		return "unknown"
	}
	return event.Summary
}

func recurrenceOf(event *itip.Event) time.Time {
	if event == nil {
		return time.Time{}
	}
	if !event.RecurrenceID.IsZero() {
		return event.RecurrenceID
	}
	return event.Start
}

func formatTime(event *itip.Event, t time.Time) string {
	if t.IsZero() {
		return "an unknown date"
	}
	if event != nil && event.AllDay {
		return t.Format("Monday, January 2, 2006")
	}
	return t.Format("Monday, January 2, 2006 15:04 MST")
}

func newSentence(class, format string, args ...any) itip.Sentence {
	return &sentence{class: class, text: fmt.Sprintf(format, args...)}
}
