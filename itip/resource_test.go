package itip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCalendarObjectResource_GroupsMasterAndExceptions(t *testing.T) {
	master := testSeries("u1")
	first := testException(master, testDay.AddDate(0, 0, 1))
	second := testException(master, testDay.AddDate(0, 0, 2))

	resource := NewCalendarObjectResource([]*Event{first, master, second})
	assert.Equal(t, master, resource.SeriesMaster())
	assert.Equal(t, []*Event{first, second}, resource.ChangeExceptions())
	assert.Equal(t, "u1", resource.UID())
	assert.False(t, resource.IsEmpty())

	assert.Equal(t, second, resource.ChangeException(second.RecurrenceID))
	assert.Nil(t, resource.ChangeException(testDay.AddDate(0, 0, 5)))
}

func TestNewCalendarObjectResource_FirstWins(t *testing.T) {
	master := testSeries("u1")
	other := testSeries("u1")
	other.Summary = "duplicate master"

	rid := testDay.AddDate(0, 0, 1)
	exception := testException(master, rid)
	duplicate := testException(master, rid)
	duplicate.Summary = "duplicate exception"

	resource := NewCalendarObjectResource([]*Event{master, other, exception, duplicate})
	assert.Equal(t, master, resource.SeriesMaster())
	require.Len(t, resource.ChangeExceptions(), 1)
	assert.Equal(t, exception, resource.ChangeExceptions()[0])
}

func TestCalendarObjectResource_RecurrenceIDLocationInsensitive(t *testing.T) {
	master := testSeries("u1")
	rid := testDay.AddDate(0, 0, 1)
	exception := testException(master, rid)

	resource := NewCalendarObjectResource([]*Event{master, exception})
	elsewhere := rid.In(time.FixedZone("UTC+2", 2*3600))
	assert.Equal(t, exception, resource.ChangeException(elsewhere),
		"recurrence ids compare as instants, not as wall clocks")
}

func TestCalendarObjectResource_FirstEventFallsBackToException(t *testing.T) {
	master := testSeries("u1")
	exception := testException(master, testDay.AddDate(0, 0, 1))

	resource := NewCalendarObjectResource([]*Event{exception})
	assert.Nil(t, resource.SeriesMaster())
	assert.Equal(t, exception, resource.FirstEvent())
	assert.Equal(t, "u1", resource.UID())
}

func TestCalendarObjectResource_NilSafety(t *testing.T) {
	var resource *CalendarObjectResource
	assert.True(t, resource.IsEmpty())
	assert.Nil(t, resource.SeriesMaster())
	assert.Nil(t, resource.ChangeExceptions())
	assert.Nil(t, resource.FirstEvent())
	assert.Equal(t, "", resource.UID())

	assert.True(t, NewCalendarObjectResource(nil).IsEmpty())
	assert.True(t, NewCalendarObjectResource([]*Event{nil}).IsEmpty())
}
