// Package memory provides an in-memory calendar backend implementing
// every collaborator contract of the analysis engine. It backs the test
// suites and the command line tool; production deployments plug in their
// own backends.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"libitip/itip"
	"libitip/recurrence"
	"libitip/storage"
)

// Store is an in-memory calendar store. All operations are safe for
// concurrent use.
type Store struct {
	mu             sync.RWMutex
	events         map[string][]*itip.Event // keyed by UID
	defaultFolders map[int]string
	createRights   map[string]map[int]bool // folder -> user -> may create
	delegates      map[string]map[int]bool // organizer -> user -> acts on behalf
	locations      map[int]*time.Location
	recur          *recurrence.Engine
}

// New creates an empty store.
func New() *Store {
	return &Store{
		events:         make(map[string][]*itip.Event),
		defaultFolders: make(map[int]string),
		createRights:   make(map[string]map[int]bool),
		delegates:      make(map[string]map[int]bool),
		locations:      make(map[int]*time.Location),
		recur:          recurrence.NewEngine(),
	}
}

// AddEvent stores an event, assigning an object id when missing, and
// returns the stored record.
func (s *Store) AddEvent(event *itip.Event) *itip.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := event.Clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	s.events[stored.UID] = append(s.events[stored.UID], stored)
	return stored
}

// SetDefaultFolder sets a calendar user's default folder.
func (s *Store) SetDefaultFolder(userID int, folderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaultFolders[userID] = folderID
}

// GrantCreate grants the user create rights in the folder.
func (s *Store) GrantCreate(folderID string, userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createRights[folderID] == nil {
		s.createRights[folderID] = make(map[int]bool)
	}
	s.createRights[folderID][userID] = true
}

// AddDelegate allows the user to act on behalf of the given organizer.
func (s *Store) AddDelegate(organizer string, userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	addr := itip.NormalizeAddress(organizer)
	if s.delegates[addr] == nil {
		s.delegates[addr] = make(map[int]bool)
	}
	s.delegates[addr][userID] = true
}

// SetLocation sets a calendar user's timezone.
func (s *Store) SetLocation(userID int, loc *time.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[userID] = loc
}

// ResolveEventsByUID implements itip.CalendarLookup.
func (s *Store) ResolveEventsByUID(ctx context.Context, session *itip.Session, uid string, calendarUserID int) ([]*itip.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.events[uid]
	result := make([]*itip.Event, 0, len(stored))
	for _, event := range stored {
		result = append(result, event.Clone())
	}
	return result, nil
}

// CheckForConflicts implements itip.ConflictChecker by scanning every
// stored event that shares an attendee with the prospective one for a
// temporal overlap.
func (s *Store) CheckForConflicts(ctx context.Context, session *itip.Session, event *itip.Event, attendees []itip.Attendee) ([]itip.Conflict, error) {
	if event == nil || event.Start.IsZero() {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var conflicts []itip.Conflict
	for uid, stored := range s.events {
		if uid == event.UID {
			continue
		}
		for _, candidate := range stored {
			shared, hard := sharedAttendee(candidate, attendees)
			if !shared {
				continue
			}
			overlaps, err := s.recur.HasOccurrenceInRange(
				candidate.Start, candidate.End, candidate.RecurrenceRule,
				candidate.DeleteExceptions, event.Start, event.End)
			if err != nil {
				return nil, &storage.Error{Type: storage.ErrInvalidInput, Message: "bad recurrence rule", Err: err}
			}
			if overlaps {
				conflicts = append(conflicts, itip.Conflict{Event: candidate.Clone(), Hard: hard})
			}
		}
	}
	return conflicts, nil
}

func sharedAttendee(event *itip.Event, attendees []itip.Attendee) (shared, hard bool) {
	for _, attendee := range attendees {
		if stored, ok := event.FindAttendee(attendee.URI); ok {
			if stored.UserType == itip.UserResource {
				return true, true
			}
			shared = true
		}
	}
	return shared, false
}

// AdjustTimeZones implements itip.TimeZoneService by expressing the event
// times in the calendar user's configured timezone.
func (s *Store) AdjustTimeZones(ctx context.Context, session *itip.Session, calendarUserID int, event *itip.Event, reference *itip.Event) (*itip.Event, error) {
	s.mu.RLock()
	loc := s.locations[calendarUserID]
	s.mu.RUnlock()
	if loc == nil || event == nil || event.AllDay {
		return event, nil
	}
	adjusted := event.Clone()
	adjusted.Start = adjusted.Start.In(loc)
	adjusted.End = adjusted.End.In(loc)
	adjusted.TimeZone = loc.String()
	if reference != nil && reference.TimeZone != "" {
		adjusted.TimeZone = reference.TimeZone
	}
	return adjusted, nil
}

// ActingOnBehalfOf implements itip.PermissionSource.
func (s *Store) ActingOnBehalfOf(ctx context.Context, session *itip.Session, event *itip.Event) (bool, error) {
	if event == nil || session == nil {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.delegates[itip.NormalizeAddress(event.Organizer)][session.UserID], nil
}

// MayCreateIn implements itip.PermissionSource.
func (s *Store) MayCreateIn(ctx context.Context, session *itip.Session, folderID string) (bool, error) {
	if session == nil {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.createRights[folderID][session.UserID], nil
}

// DefaultFolder implements itip.PermissionSource.
func (s *Store) DefaultFolder(ctx context.Context, session *itip.Session, calendarUserID int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	folder, ok := s.defaultFolders[calendarUserID]
	if !ok {
		return "", &storage.Error{Type: storage.ErrNotFound, Message: "no default folder for calendar user"}
	}
	return folder, nil
}
