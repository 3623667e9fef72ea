package icalconv

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libitip/itip"
)

const requestWithException = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Example//Scheduling//EN
METHOD:REQUEST
BEGIN:VEVENT
UID:series-1
SUMMARY:Daily standup
LOCATION:Room 4
DTSTART:20240110T100000Z
DTEND:20240110T103000Z
DTSTAMP:20240109T120000Z
LAST-MODIFIED:20240109T120000Z
SEQUENCE:2
RRULE:FREQ=DAILY;COUNT=10
EXDATE:20240112T100000Z,20240113T100000Z
ORGANIZER;CN=Olga:mailto:olga@example.org
ATTENDEE;CN=Olga;PARTSTAT=ACCEPTED:mailto:olga@example.org
ATTENDEE;CN=Erin;PARTSTAT=NEEDS-ACTION;X-NUMBER=17:mailto:erin@example.com
ATTENDEE;CN=Room 4;CUTYPE=RESOURCE;PARTSTAT=ACCEPTED:mailto:room-4@example.org
ATTACH;MANAGED-ID=m-1;FILENAME=agenda.pdf;SIZE=1024;FMTTYPE=application/pdf:https://files.example.org/agenda.pdf
END:VEVENT
BEGIN:VEVENT
UID:series-1
SUMMARY:Daily standup (moved)
DTSTART:20240111T140000Z
DTEND:20240111T143000Z
DTSTAMP:20240109T120000Z
SEQUENCE:2
RECURRENCE-ID:20240111T100000Z
ORGANIZER:mailto:olga@example.org
ATTENDEE;PARTSTAT=NEEDS-ACTION:mailto:erin@example.com
END:VEVENT
END:VCALENDAR
`

func TestParseMessage(t *testing.T) {
	msg, err := ParseMessage(strings.NewReader(requestWithException), 7)
	require.NoError(t, err)

	assert.Equal(t, itip.MethodRequest, msg.Method)
	assert.Equal(t, 7, msg.Owner)
	assert.Equal(t, "series-1", msg.UID())

	master := msg.Event
	require.NotNil(t, master)
	assert.True(t, master.IsSeriesMaster())
	assert.Equal(t, "Daily standup", master.Summary)
	assert.Equal(t, "Room 4", master.Location)
	assert.Equal(t, time.Date(2024, 1, 10, 10, 0, 0, 0, time.UTC), master.Start.UTC())
	assert.Equal(t, time.Date(2024, 1, 10, 10, 30, 0, 0, time.UTC), master.End.UTC())
	assert.Equal(t, 2, master.Sequence.OrElse(-1))
	assert.Equal(t, "FREQ=DAILY;COUNT=10", master.RecurrenceRule)
	require.Len(t, master.DeleteExceptions, 2)
	assert.Equal(t, time.Date(2024, 1, 12, 10, 0, 0, 0, time.UTC), master.DeleteExceptions[0].UTC())
	assert.Equal(t, time.Date(2024, 1, 13, 10, 0, 0, 0, time.UTC), master.DeleteExceptions[1].UTC())
	assert.Equal(t, "mailto:olga@example.org", master.Organizer)
	assert.Equal(t, time.Date(2024, 1, 9, 12, 0, 0, 0, time.UTC), master.LastModified.UTC())

	require.Len(t, master.Attendees, 3)
	erin, ok := master.FindAttendee("erin@example.com")
	require.True(t, ok)
	assert.Equal(t, "Erin", erin.CommonName)
	assert.Equal(t, itip.StatusNeedsAction, erin.Status)
	assert.Equal(t, itip.UserIndividual, erin.UserType)
	assert.Equal(t, "17", erin.Extended["X-NUMBER"])
	room, ok := master.FindAttendee("room-4@example.org")
	require.True(t, ok)
	assert.Equal(t, itip.UserResource, room.UserType)

	require.Len(t, master.Attachments, 1)
	assert.Equal(t, itip.Attachment{
		ManagedID:  "m-1",
		URI:        "https://files.example.org/agenda.pdf",
		Filename:   "agenda.pdf",
		Size:       1024,
		FormatType: "application/pdf",
	}, master.Attachments[0])

	require.Len(t, msg.Exceptions, 1)
	exception := msg.Exceptions[0]
	assert.False(t, exception.IsSeriesMaster())
	assert.Equal(t, time.Date(2024, 1, 11, 10, 0, 0, 0, time.UTC), exception.RecurrenceID.UTC())
	assert.Equal(t, "Daily standup (moved)", exception.Summary)
}

func TestParseMessage_RequiresMethod(t *testing.T) {
	withoutMethod := strings.Replace(requestWithException, "METHOD:REQUEST\n", "", 1)
	_, err := ParseMessage(strings.NewReader(withoutMethod), 1)
	assert.ErrorContains(t, err, "METHOD")
}

func TestParseEvents_AcceptsStoredCalendar(t *testing.T) {
	withoutMethod := strings.Replace(requestWithException, "METHOD:REQUEST\n", "", 1)
	events, err := ParseEvents(strings.NewReader(withoutMethod))
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestParseMessage_AllDay(t *testing.T) {
	const allDay = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Example//Scheduling//EN
METHOD:REQUEST
BEGIN:VEVENT
UID:holiday-1
SUMMARY:Offsite
DTSTAMP:20240109T120000Z
DTSTART;VALUE=DATE:20240201
DTEND;VALUE=DATE:20240202
ORGANIZER:mailto:olga@example.org
ATTENDEE:mailto:erin@example.com
END:VEVENT
END:VCALENDAR
`
	msg, err := ParseMessage(strings.NewReader(allDay), 1)
	require.NoError(t, err)
	require.NotNil(t, msg.Event)
	assert.True(t, msg.Event.AllDay)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), msg.Event.Start.UTC())
}

func TestParseMessage_BadSequence(t *testing.T) {
	broken := strings.Replace(requestWithException, "SEQUENCE:2\nRRULE", "SEQUENCE:two\nRRULE", 1)
	_, err := ParseMessage(strings.NewReader(broken), 1)
	assert.ErrorContains(t, err, "SEQUENCE")
}
