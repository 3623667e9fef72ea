package itip

import "time"

// Session identifies the acting calendar user for one analysis call. It is
// read-only for the engine; warnings produced during analysis are attached
// to the Analysis, never to the session.
type Session struct {
	ContextID int
	UserID    int

	// Address and DisplayName identify the acting user's calendar address.
	Address     string
	DisplayName string

	// DefaultFolderID is the user's default calendar folder.
	DefaultFolderID string

	// Location is the user's configured timezone.
	Location *time.Location

	// AppliedStatuses records participation statuses this session has
	// already applied itself, keyed by UID. Used to avoid re-surfacing an
	// attendee-status change the caller just made.
	AppliedStatuses map[string]ParticipationStatus
}

// AppliedStatus returns the participation status this session has already
// applied for the given UID, if any.
func (s *Session) AppliedStatus(uid string) (ParticipationStatus, bool) {
	if s == nil || s.AppliedStatuses == nil {
		return "", false
	}
	status, ok := s.AppliedStatuses[uid]
	return status, ok
}

// Owns reports whether the given attendee is the session user.
func (s *Session) Owns(a Attendee) bool {
	return s != nil && a.Is(s.Address)
}

// IsOrganizer reports whether the session user is the organizer of the
// given event.
func (s *Session) IsOrganizer(e *Event) bool {
	if s == nil || e == nil {
		return false
	}
	return NormalizeAddress(e.Organizer) == NormalizeAddress(s.Address)
}
