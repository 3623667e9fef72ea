package itip

import (
	"strings"
	"time"

	"github.com/samber/mo"
)

// ParticipationStatus is an attendee's PARTSTAT value.
type ParticipationStatus string

const (
	StatusNeedsAction ParticipationStatus = "NEEDS-ACTION"
	StatusAccepted    ParticipationStatus = "ACCEPTED"
	StatusTentative   ParticipationStatus = "TENTATIVE"
	StatusDeclined    ParticipationStatus = "DECLINED"
)

// CalendarUserType is an attendee's CUTYPE value.
type CalendarUserType string

const (
	UserIndividual CalendarUserType = "INDIVIDUAL"
	UserResource   CalendarUserType = "RESOURCE"
)

// Attendee is one participant of an event. Attendees are matched across
// events by normalized e-mail address, never by identity.
type Attendee struct {
	URI        string // typically a mailto: URI
	CommonName string
	Status     ParticipationStatus
	UserType   CalendarUserType
	SentBy     string
	Comment    string
	Extended   map[string]string // extended (X-) parameters
}

// Email returns the normalized e-mail address of the attendee.
func (a Attendee) Email() string {
	return NormalizeAddress(a.URI)
}

// Is reports whether the attendee represents the given address.
func (a Attendee) Is(address string) bool {
	addr := NormalizeAddress(address)
	return addr != "" && a.Email() == addr
}

// NormalizeAddress strips a mailto: prefix and lower-cases an address so
// that attendee URIs from different sources compare equal.
func NormalizeAddress(uri string) string {
	uri = strings.TrimSpace(uri)
	uri = strings.TrimPrefix(strings.ToLower(uri), "mailto:")
	return uri
}

// Attachment is a file attached to an event. Attachments from an incoming
// message are re-matched against stored ones by ManagedID, then URI, then
// Checksum, then (Filename, Size, FormatType).
type Attachment struct {
	ManagedID  string
	URI        string
	Checksum   string
	Filename   string
	Size       int64
	FormatType string
}

// Event is one calendar occurrence or a series master. A zero RecurrenceID
// marks the series master; a set RecurrenceID uniquely identifies an
// exception within its UID.
type Event struct {
	ID       string
	FolderID string
	SeriesID string

	UID          string
	RecurrenceID time.Time
	Sequence     mo.Option[int]

	Summary     string
	Location    string
	Description string

	Organizer string
	Attendees []Attendee

	Start    time.Time
	End      time.Time
	AllDay   bool
	TimeZone string

	RecurrenceRule   string
	DeleteExceptions []time.Time

	Attachments []Attachment
	Categories  []string

	Transparency       string
	AttendeePrivileges string
	Alarms             []string
	Flags              []string

	CreatedBy    string
	ModifiedBy   string
	Created      time.Time
	LastModified time.Time
	Timestamp    time.Time
}

// IsSeriesMaster reports whether the event represents a whole series (or a
// single non-recurring appointment) rather than a recurrence exception.
func (e *Event) IsSeriesMaster() bool {
	return e != nil && e.RecurrenceID.IsZero()
}

// IsRecurring reports whether the event carries a recurrence rule.
func (e *Event) IsRecurring() bool {
	return e != nil && e.RecurrenceRule != ""
}

// Duration returns the length of the event.
func (e *Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// FindAttendee returns the attendee matching the given address, if any.
func (e *Event) FindAttendee(address string) (Attendee, bool) {
	addr := NormalizeAddress(address)
	for _, a := range e.Attendees {
		if a.Email() == addr {
			return a, true
		}
	}
	return Attendee{}, false
}

// HasDeleteException reports whether the given recurrence id has been
// removed from the series without a replacement event.
func (e *Event) HasDeleteException(recurrenceID time.Time) bool {
	if e == nil {
		return false
	}
	for _, d := range e.DeleteExceptions {
		if d.Equal(recurrenceID) {
			return true
		}
	}
	return false
}

// Clone returns a deep, field-unfiltered copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Attendees = make([]Attendee, len(e.Attendees))
	for i, a := range e.Attendees {
		clone.Attendees[i] = a
		if a.Extended != nil {
			clone.Attendees[i].Extended = make(map[string]string, len(a.Extended))
			for k, v := range a.Extended {
				clone.Attendees[i].Extended[k] = v
			}
		}
	}
	clone.Attachments = append([]Attachment(nil), e.Attachments...)
	clone.DeleteExceptions = append([]time.Time(nil), e.DeleteExceptions...)
	clone.Categories = append([]string(nil), e.Categories...)
	clone.Alarms = append([]string(nil), e.Alarms...)
	clone.Flags = append([]string(nil), e.Flags...)
	return &clone
}

// SameEvent reports whether two events refer to the same stored object,
// by object id when both carry one, otherwise by UID plus recurrence id.
func SameEvent(a, b *Event) bool {
	if a == nil || b == nil {
		return false
	}
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	return a.UID == b.UID && a.RecurrenceID.Equal(b.RecurrenceID)
}

// Conflict is one scheduling conflict reported for a change.
type Conflict struct {
	Event *Event
	Hard  bool // a conflict with a resource that cannot be double-booked
}
