package itip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventUpdate_SelfDiffIsEmpty(t *testing.T) {
	event := testEvent("uid-1")
	update := NewEventUpdate(event, event.Clone())
	assert.True(t, update.IsEmpty(), "diffing an event against its own copy: %s", update)
}

func TestNewEventUpdate_IgnoresSyntheticFields(t *testing.T) {
	original := testEvent("uid-1")
	updated := original.Clone()
	updated.ID = "other-id"
	updated.FolderID = "other-folder"
	updated.SeriesID = "series-9"
	updated.Sequence = updated.Sequence.Map(func(s int) (int, bool) { return s + 1, true })
	updated.LastModified = time.Now()
	updated.CreatedBy = "someone"
	updated.Alarms = []string{"PT15M"}

	update := NewEventUpdate(original, updated)
	assert.True(t, update.IsEmpty(), "synthetic fields must not produce a diff: %s", update)
}

func TestNewEventUpdate_DetectsReschedule(t *testing.T) {
	original := testEvent("uid-1")
	updated := original.Clone()
	updated.Start = updated.Start.Add(time.Hour)
	updated.End = updated.End.Add(time.Hour)

	update := NewEventUpdate(original, updated)
	require.False(t, update.IsEmpty())
	assert.True(t, update.ContainsAnyOf(FieldStart, FieldEnd))
	assert.False(t, update.ContainsAnyOf(FieldSummary))

	start, ok := update.Update(FieldStart)
	require.True(t, ok)
	assert.Equal(t, original.Start, start.Original)
	assert.Equal(t, updated.Start, start.Updated)
}

func TestNewEventUpdate_AttendeeOrderDoesNotMatter(t *testing.T) {
	original := testEvent("uid-1")
	updated := original.Clone()
	updated.Attendees[0], updated.Attendees[1] = updated.Attendees[1], updated.Attendees[0]

	assert.True(t, NewEventUpdate(original, updated).IsEmpty())
}

func TestAttendeeStatusOnly(t *testing.T) {
	original := testEvent("uid-1")

	t.Run("single status change", func(t *testing.T) {
		updated := original.Clone()
		updated.Attendees[1].Status = StatusAccepted

		attendee, ok := NewEventUpdate(original, updated).AttendeeStatusOnly()
		require.True(t, ok)
		assert.Equal(t, "erin@example.com", attendee.Email())
		assert.Equal(t, StatusAccepted, attendee.Status)
	})

	t.Run("status change plus reschedule", func(t *testing.T) {
		updated := original.Clone()
		updated.Attendees[1].Status = StatusAccepted
		updated.Start = updated.Start.Add(time.Hour)

		_, ok := NewEventUpdate(original, updated).AttendeeStatusOnly()
		assert.False(t, ok)
	})

	t.Run("two statuses change", func(t *testing.T) {
		updated := original.Clone()
		updated.Attendees[0].Status = StatusTentative
		updated.Attendees[1].Status = StatusAccepted

		_, ok := NewEventUpdate(original, updated).AttendeeStatusOnly()
		assert.False(t, ok)
	})

	t.Run("added attendee", func(t *testing.T) {
		updated := original.Clone()
		updated.Attendees = append(updated.Attendees, Attendee{URI: "mailto:sam@example.net"})

		_, ok := NewEventUpdate(original, updated).AttendeeStatusOnly()
		assert.False(t, ok)
	})
}

func TestNewEventUpdate_DetectsExtendedParameterChange(t *testing.T) {
	original := testEvent("uid-1")
	updated := original.Clone()
	updated.Attendees[1].Extended = map[string]string{"X-NUM-GUESTS": "2"}

	update := NewEventUpdate(original, updated)
	require.False(t, update.IsEmpty())
	assert.True(t, update.ContainsAnyOf(FieldAttendees))

	_, ok := update.AttendeeStatusOnly()
	assert.False(t, ok, "an extended-parameter change is more than a status change")
}

func TestAddedAttendees(t *testing.T) {
	original := testEvent("uid-1")
	updated := original.Clone()
	updated.Attendees = append(updated.Attendees, Attendee{URI: "mailto:sam@example.net"})

	added := NewEventUpdate(original, updated).AddedAttendees()
	require.Len(t, added, 1)
	assert.Equal(t, "sam@example.net", added[0].Email())
}

func TestEventsDiffer_SuppressesSelfAppliedStatus(t *testing.T) {
	base := testBase(testEnv())
	original := testEvent("uid-1")
	updated := original.Clone()
	updated.Attendees[1].Status = StatusAccepted

	session := testSession()
	assert.True(t, base.eventsDiffer(session, updated, original),
		"without a session-applied status the change is genuine")

	session.AppliedStatuses = map[string]ParticipationStatus{"uid-1": StatusAccepted}
	assert.False(t, base.eventsDiffer(session, updated, original),
		"a status this session already applied must not re-surface")

	session.AppliedStatuses = map[string]ParticipationStatus{"uid-1": StatusDeclined}
	assert.True(t, base.eventsDiffer(session, updated, original),
		"a different status than the applied one is still a change")
}
