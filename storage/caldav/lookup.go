// Package caldav provides a read-only calendar lookup backed by a CalDAV
// server. It implements itip.CalendarLookup via calendar-query REPORTs
// filtered by UID; the engine never writes through it.
package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	webcaldav "github.com/emersion/go-webdav/caldav"

	"libitip/internal/icalconv"
	"libitip/itip"
	"libitip/storage"
)

// customTransport adds Basic Auth to every request.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "libitip/1.0")
	return t.Transport.RoundTrip(req)
}

// Lookup resolves stored events from a CalDAV collection.
type Lookup struct {
	client       *webcaldav.Client
	logger       *slog.Logger
	calendarPath string
}

// NewLookup connects to the CalDAV endpoint and locates the calendar with
// the given display name.
func NewLookup(logger *slog.Logger, endpoint, username, password, calendarName string) (*Lookup, error) {
	httpClient := &http.Client{Transport: &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}}
	client, err := webcaldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	l := &Lookup{client: client, logger: logger}

	path, err := l.findCalendar(context.Background(), calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar %q: %w", calendarName, err)
	}
	l.calendarPath = path
	logger.Info("using caldav calendar", "path", path)
	return l, nil
}

// ResolveEventsByUID implements itip.CalendarLookup.
func (l *Lookup) ResolveEventsByUID(ctx context.Context, session *itip.Session, uid string, calendarUserID int) ([]*itip.Event, error) {
	query := &webcaldav.CalendarQuery{
		CompRequest: webcaldav.CalendarCompRequest{
			Name:     "VCALENDAR",
			AllProps: true,
			Comps:    []webcaldav.CalendarCompRequest{{Name: "VEVENT", AllProps: true}},
		},
		CompFilter: webcaldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []webcaldav.CompFilter{{
				Name: "VEVENT",
				Props: []webcaldav.PropFilter{{
					Name:      "UID",
					TextMatch: &webcaldav.TextMatch{Text: uid},
				}},
			}},
		},
	}
	objects, err := l.client.QueryCalendar(ctx, l.calendarPath, query)
	if err != nil {
		return nil, &storage.Error{Type: storage.ErrUnavailable, Message: "calendar-query failed", Err: err}
	}
	var events []*itip.Event
	for _, object := range objects {
		if object.Data == nil {
			continue
		}
		converted, err := icalconv.EventsFromCalendar(object.Data)
		if err != nil {
			l.logger.Warn("skipping unparsable calendar object",
				"path", object.Path, "error", err)
			continue
		}
		events = append(events, converted...)
	}
	return events, nil
}

func (l *Lookup) findCalendar(ctx context.Context, name string) (string, error) {
	principal, err := l.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}
	homeSet, err := l.client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}
	calendars, err := l.client.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}
	for _, calendar := range calendars {
		if calendar.Name == name {
			return calendar.Path, nil
		}
	}
	return "", &storage.Error{Type: storage.ErrNotFound, Message: "no calendar named " + name}
}
