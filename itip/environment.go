package itip

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// RenderFormat selects how sentences are rendered for the user.
type RenderFormat string

const (
	FormatHTML RenderFormat = "html"
	FormatText RenderFormat = "text"
)

// Sentence is one human-readable remark produced by the description
// service. Rendering content and locale are the service's business; the
// engine only selects which sentence applies.
type Sentence interface {
	Render(format RenderFormat) string
}

// CalendarLookup resolves stored calendar data. Implementations must not
// mutate anything on behalf of the engine.
type CalendarLookup interface {
	// ResolveEventsByUID returns all stored events sharing the given UID
	// that are visible to the given calendar user, across personal and
	// public folders. An empty result is not an error.
	ResolveEventsByUID(ctx context.Context, session *Session, uid string, calendarUserID int) ([]*Event, error)
}

// ConflictChecker computes free/busy conflicts for a prospective event.
type ConflictChecker interface {
	CheckForConflicts(ctx context.Context, session *Session, event *Event, attendees []Attendee) ([]Conflict, error)
}

// TimeZoneService aligns an incoming event's timezones with the acting
// calendar user's view, optionally against a stored reference event.
type TimeZoneService interface {
	AdjustTimeZones(ctx context.Context, session *Session, calendarUserID int, event *Event, reference *Event) (*Event, error)
}

// PermissionSource answers folder- and delegation-level questions.
type PermissionSource interface {
	// ActingOnBehalfOf reports whether the session user may act for the
	// organizer of the given event.
	ActingOnBehalfOf(ctx context.Context, session *Session, event *Event) (bool, error)

	// MayCreateIn reports whether the session user holds create rights
	// in the given calendar folder.
	MayCreateIn(ctx context.Context, session *Session, folderID string) (bool, error)

	// DefaultFolder returns the default calendar folder of the given
	// calendar user.
	DefaultFolder(ctx context.Context, session *Session, calendarUserID int) (string, error)
}

// DescriptionService turns diffs and change classifications into
// renderable sentences. Localization is the implementation's concern.
type DescriptionService interface {
	// Introduction returns the leading sentence for a change.
	Introduction(change *Change) Sentence

	// StatusUpdate returns the sentence for a pure participation-status
	// change of a single attendee.
	StatusUpdate(attendee Attendee, status ParticipationStatus) Sentence

	// Describe returns one sentence per updated field.
	Describe(update *EventUpdate) []Sentence

	// DescribeOnly behaves like Describe restricted to the given fields.
	DescribeOnly(update *EventUpdate, fields ...FieldName) []Sentence
}

// Environment bundles every collaborator an analyzer needs. It is passed
// explicitly at construction; the engine never consults ambient state.
// Conflicts and TimeZones may be nil, in which case the engine degrades
// to empty conflict lists and unadjusted events.
type Environment struct {
	Lookup       CalendarLookup
	Conflicts    ConflictChecker
	TimeZones    TimeZoneService
	Permissions  PermissionSource
	Descriptions DescriptionService

	// LegacyScheduling restricts dispatch to legacy-capable analyzers.
	LegacyScheduling bool

	Logger *slog.Logger
}

func (env Environment) logger() *slog.Logger {
	if env.Logger != nil {
		return env.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ErrWrongMethod signals that a message reached an analyzer that does not
// support its method. This is a dispatcher bug, not bad user input.
var ErrWrongMethod = errors.New("itip: method not supported by analyzer")

// ErrMissingLookup signals an Environment without a CalendarLookup, which
// no analyzer can work without.
var ErrMissingLookup = errors.New("itip: environment has no calendar lookup")
