// Package icalconv converts iCalendar documents into the engine's event
// model. It covers the scheduling-relevant subset of RFC 5545: METHOD,
// UID, SEQUENCE, RECURRENCE-ID, RRULE, EXDATE, ORGANIZER, ATTENDEE
// (including CN, PARTSTAT, CUTYPE and SENT-BY parameters) and ATTACH.
package icalconv

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/samber/mo"

	"libitip/itip"
)

// Non-standard ATTACH parameters used by managed attachments.
const (
	paramManagedID = "MANAGED-ID"
	paramFilename  = "FILENAME"
	paramSize      = "SIZE"
)

// ParseMessage decodes one iCalendar document into a scheduling message
// for the given calendar owner.
func ParseMessage(r io.Reader, owner int) (*itip.Message, error) {
	cal, err := ical.NewDecoder(r).Decode()
	if err != nil {
		return nil, fmt.Errorf("decoding calendar: %w", err)
	}
	return MessageFromCalendar(cal, owner)
}

// ParseEvents decodes a stored calendar file, which unlike a scheduling
// message carries no METHOD.
func ParseEvents(r io.Reader) ([]*itip.Event, error) {
	cal, err := ical.NewDecoder(r).Decode()
	if err != nil {
		return nil, fmt.Errorf("decoding calendar: %w", err)
	}
	return EventsFromCalendar(cal)
}

// MessageFromCalendar builds a scheduling message from a decoded calendar.
func MessageFromCalendar(cal *ical.Calendar, owner int) (*itip.Message, error) {
	method := ""
	if prop := cal.Props.Get(ical.PropMethod); prop != nil {
		method = strings.ToUpper(strings.TrimSpace(prop.Value))
	}
	if method == "" {
		return nil, fmt.Errorf("calendar carries no METHOD")
	}
	events, err := EventsFromCalendar(cal)
	if err != nil {
		return nil, err
	}
	msg := &itip.Message{Method: itip.Method(method), Owner: owner}
	for _, event := range events {
		if event.IsSeriesMaster() && msg.Event == nil {
			msg.Event = event
			continue
		}
		msg.Exceptions = append(msg.Exceptions, event)
	}
	return msg, nil
}

// EventsFromCalendar converts every VEVENT of the calendar.
func EventsFromCalendar(cal *ical.Calendar) ([]*itip.Event, error) {
	var events []*itip.Event
	for _, child := range cal.Events() {
		event, err := eventFromComponent(child)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func eventFromComponent(src ical.Event) (*itip.Event, error) {
	uid, err := src.Props.Text(ical.PropUID)
	if err != nil {
		return nil, fmt.Errorf("reading UID: %w", err)
	}
	event := &itip.Event{UID: uid}

	event.Summary, _ = src.Props.Text(ical.PropSummary)
	event.Location, _ = src.Props.Text(ical.PropLocation)
	event.Description, _ = src.Props.Text(ical.PropDescription)

	if start, err := src.DateTimeStart(time.UTC); err == nil {
		event.Start = start
	}
	if end, err := src.DateTimeEnd(time.UTC); err == nil {
		event.End = end
	}
	if prop := src.Props.Get(ical.PropDateTimeStart); prop != nil {
		event.AllDay = strings.EqualFold(prop.Params.Get(ical.ParamValue), "DATE")
		event.TimeZone = prop.Params.Get(ical.ParamTimezoneID)
	}

	if prop := src.Props.Get(ical.PropSequence); prop != nil {
		seq, err := strconv.Atoi(strings.TrimSpace(prop.Value))
		if err != nil {
			return nil, fmt.Errorf("reading SEQUENCE of %q: %w", uid, err)
		}
		event.Sequence = mo.Some(seq)
	}

	if prop := src.Props.Get(ical.PropRecurrenceID); prop != nil {
		rid, err := prop.DateTime(time.UTC)
		if err != nil {
			return nil, fmt.Errorf("reading RECURRENCE-ID of %q: %w", uid, err)
		}
		event.RecurrenceID = rid
	}
	if prop := src.Props.Get(ical.PropRecurrenceRule); prop != nil {
		event.RecurrenceRule = prop.Value
	}
	for _, prop := range src.Props.Values(ical.PropExceptionDates) {
		exdates, err := parseDateTimeList(prop)
		if err != nil {
			return nil, fmt.Errorf("reading EXDATE of %q: %w", uid, err)
		}
		event.DeleteExceptions = append(event.DeleteExceptions, exdates...)
	}

	if prop := src.Props.Get(ical.PropOrganizer); prop != nil {
		event.Organizer = prop.Value
	}
	for _, prop := range src.Props.Values(ical.PropAttendee) {
		event.Attendees = append(event.Attendees, attendeeFromProp(prop))
	}
	for _, prop := range src.Props.Values(ical.PropAttach) {
		event.Attachments = append(event.Attachments, attachmentFromProp(prop))
	}

	if created, err := src.Props.DateTime(ical.PropCreated, time.UTC); err == nil {
		event.Created = created
	}
	if modified, err := src.Props.DateTime(ical.PropLastModified, time.UTC); err == nil {
		event.LastModified = modified
	}
	if stamp, err := src.Props.DateTime(ical.PropDateTimeStamp, time.UTC); err == nil {
		event.Timestamp = stamp
	}
	return event, nil
}

func attendeeFromProp(prop ical.Prop) itip.Attendee {
	attendee := itip.Attendee{
		URI:        prop.Value,
		CommonName: prop.Params.Get(ical.ParamCommonName),
		Status:     itip.StatusNeedsAction,
		UserType:   itip.UserIndividual,
		SentBy:     prop.Params.Get(ical.ParamSentBy),
	}
	if partstat := prop.Params.Get(ical.ParamParticipationStatus); partstat != "" {
		attendee.Status = itip.ParticipationStatus(strings.ToUpper(partstat))
	}
	if cutype := prop.Params.Get(ical.ParamCalendarUserType); cutype != "" {
		attendee.UserType = itip.CalendarUserType(strings.ToUpper(cutype))
	}
	for name, values := range prop.Params {
		if strings.HasPrefix(name, "X-") && len(values) > 0 {
			if attendee.Extended == nil {
				attendee.Extended = make(map[string]string)
			}
			attendee.Extended[name] = values[0]
		}
	}
	return attendee
}

func attachmentFromProp(prop ical.Prop) itip.Attachment {
	attachment := itip.Attachment{
		URI:        prop.Value,
		ManagedID:  prop.Params.Get(paramManagedID),
		Filename:   prop.Params.Get(paramFilename),
		FormatType: prop.Params.Get(ical.ParamFormatType),
	}
	if size := prop.Params.Get(paramSize); size != "" {
		if n, err := strconv.ParseInt(size, 10, 64); err == nil {
			attachment.Size = n
		}
	}
	return attachment
}

// parseDateTimeList handles comma-separated EXDATE values, which the
// single-value DateTime accessor does not.
func parseDateTimeList(prop ical.Prop) ([]time.Time, error) {
	if !strings.Contains(prop.Value, ",") {
		t, err := prop.DateTime(time.UTC)
		if err != nil {
			return nil, err
		}
		return []time.Time{t}, nil
	}
	var times []time.Time
	for _, part := range strings.Split(prop.Value, ",") {
		single := prop
		single.Value = strings.TrimSpace(part)
		t, err := single.DateTime(time.UTC)
		if err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, nil
}
