package itip

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/mo"

	"libitip/recurrence"
)

// In-package collaborator stubs. The real backends live in storage/ and
// describe/; pulling them in here would make the test binary cyclic.

type stubLookup struct {
	events map[string][]*Event
	err    error
}

func (s *stubLookup) ResolveEventsByUID(ctx context.Context, session *Session, uid string, calendarUserID int) ([]*Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.events[uid], nil
}

type stubConflicts struct {
	conflicts []Conflict
	err       error
	calls     int
}

func (s *stubConflicts) CheckForConflicts(ctx context.Context, session *Session, event *Event, attendees []Attendee) ([]Conflict, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.conflicts, nil
}

type stubTimeZones struct {
	err   error
	shift time.Duration
}

func (s *stubTimeZones) AdjustTimeZones(ctx context.Context, session *Session, calendarUserID int, event *Event, reference *Event) (*Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.shift != 0 {
		event.Start = event.Start.Add(s.shift)
		event.End = event.End.Add(s.shift)
	}
	return event, nil
}

type stubPermissions struct {
	defaultFolders map[int]string
	createRights   map[string]bool
	onBehalf       bool
}

func (s *stubPermissions) ActingOnBehalfOf(ctx context.Context, session *Session, event *Event) (bool, error) {
	return s.onBehalf, nil
}

func (s *stubPermissions) MayCreateIn(ctx context.Context, session *Session, folderID string) (bool, error) {
	return s.createRights[folderID], nil
}

func (s *stubPermissions) DefaultFolder(ctx context.Context, session *Session, calendarUserID int) (string, error) {
	folder, ok := s.defaultFolders[calendarUserID]
	if !ok {
		return "", fmt.Errorf("no default folder for user %d", calendarUserID)
	}
	return folder, nil
}

type stubSentence string

func (s stubSentence) Render(format RenderFormat) string { return string(s) }

type stubDescriptions struct{}

func (stubDescriptions) Introduction(change *Change) Sentence {
	return stubSentence("intro:" + string(change.Type))
}

func (stubDescriptions) StatusUpdate(attendee Attendee, status ParticipationStatus) Sentence {
	return stubSentence("status:" + attendee.Email() + ":" + string(status))
}

func (stubDescriptions) Describe(update *EventUpdate) []Sentence {
	var sentences []Sentence
	for _, fu := range update.Updates() {
		sentences = append(sentences, stubSentence("field:"+string(fu.Field)))
	}
	return sentences
}

func (stubDescriptions) DescribeOnly(update *EventUpdate, fields ...FieldName) []Sentence {
	allowed := make(map[FieldName]bool)
	for _, f := range fields {
		allowed[f] = true
	}
	var sentences []Sentence
	for _, fu := range update.Updates() {
		if allowed[fu.Field] {
			sentences = append(sentences, stubSentence("field:"+string(fu.Field)))
		}
	}
	return sentences
}

func testEnv(stored ...*Event) Environment {
	events := make(map[string][]*Event)
	for _, event := range stored {
		events[event.UID] = append(events[event.UID], event)
	}
	return Environment{
		Lookup:       &stubLookup{events: events},
		Descriptions: stubDescriptions{},
	}
}

func testBase(env Environment) baseAnalyzer {
	return baseAnalyzer{env: env, recur: recurrence.NewEngine()}
}

func testSession() *Session {
	return &Session{
		UserID:          1,
		Address:         "erin@example.com",
		DefaultFolderID: "cal-1",
	}
}

var testDay = time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC)

// testEvent builds a one-hour appointment organized by olga with erin
// invited.
func testEvent(uid string) *Event {
	return &Event{
		ID:        "obj-" + uid,
		FolderID:  "cal-1",
		UID:       uid,
		Organizer: "mailto:olga@example.org",
		Summary:   "Weekly sync",
		Start:     testDay,
		End:       testDay.Add(time.Hour),
		Sequence:  mo.Some(1),
		Attendees: []Attendee{
			{URI: "mailto:olga@example.org", CommonName: "Olga", Status: StatusAccepted, UserType: UserIndividual},
			{URI: "mailto:erin@example.com", CommonName: "Erin", Status: StatusNeedsAction, UserType: UserIndividual},
		},
		LastModified: testDay.Add(-24 * time.Hour),
	}
}

// testSeries builds a daily recurring master.
func testSeries(uid string) *Event {
	event := testEvent(uid)
	event.RecurrenceRule = "FREQ=DAILY;COUNT=10"
	return event
}

// testException derives a change exception from a master.
func testException(master *Event, recurrenceID time.Time) *Event {
	exception := master.Clone()
	exception.ID = fmt.Sprintf("obj-%s-%d", master.UID, recurrenceID.Unix())
	exception.RecurrenceID = recurrenceID
	exception.RecurrenceRule = ""
	exception.Start = recurrenceID
	exception.End = recurrenceID.Add(master.Duration())
	return exception
}

// incoming strips storage identifiers from an event, as a transmitted
// message would never carry them.
func incoming(event *Event) *Event {
	clone := event.Clone()
	clone.ID = ""
	clone.FolderID = ""
	clone.SeriesID = ""
	return clone
}
