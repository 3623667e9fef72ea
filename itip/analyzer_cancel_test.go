package itip

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCancelAnalyzer(env Environment) *cancelAnalyzer {
	return &cancelAnalyzer{testBase(env)}
}

func TestCancelAnalyzer_WholeSeries(t *testing.T) {
	master := testSeries("u1")
	analyzer := newCancelAnalyzer(testEnv(master))

	msg := &Message{Method: MethodCancel, Event: incoming(master)}
	analysis, err := analyzer.Analyze(context.Background(), msg, nil, FormatText, testSession())
	require.NoError(t, err)

	require.Len(t, analysis.Changes, 1)
	change := analysis.Changes[0]
	assert.Equal(t, ChangeDelete, change.Type)
	assert.False(t, change.Exception)
	assert.Equal(t, master.ID, change.DeletedEvent.ID)
	assert.Equal(t, []Action{ActionDelete}, analysis.Actions)
}

func TestCancelAnalyzer_KnownExceptionDeleted(t *testing.T) {
	master := testSeries("u1")
	exception := testException(master, testDay.AddDate(0, 0, 2))
	analyzer := newCancelAnalyzer(testEnv(master, exception))

	cancel := incoming(exception)
	msg := &Message{Method: MethodCancel, Event: cancel}

	analysis, err := analyzer.Analyze(context.Background(), msg, nil, FormatText, testSession())
	require.NoError(t, err)

	require.Len(t, analysis.Changes, 1)
	change := analysis.Changes[0]
	assert.Equal(t, ChangeDelete, change.Type)
	assert.True(t, change.Exception)
	assert.Equal(t, exception.ID, change.DeletedEvent.ID)
	assert.Equal(t, master.ID, change.MasterEvent.ID)
}

func TestCancelAnalyzer_UnmaterializedOccurrenceBecomesDeleteException(t *testing.T) {
	master := testSeries("u1")
	analyzer := newCancelAnalyzer(testEnv(master))

	occurrence := testDay.AddDate(0, 0, 4)
	cancel := incoming(master)
	cancel.RecurrenceID = occurrence
	cancel.RecurrenceRule = ""
	cancel.Start = occurrence
	cancel.End = occurrence.Add(master.Duration())
	msg := &Message{Method: MethodCancel, Event: cancel}

	analysis, err := analyzer.Analyze(context.Background(), msg, nil, FormatText, testSession())
	require.NoError(t, err)

	require.Len(t, analysis.Changes, 1)
	change := analysis.Changes[0]
	assert.Equal(t, ChangeCreateDeleteException, change.Type)
	assert.True(t, change.Exception)
	require.NotNil(t, change.DeletedEvent)
	assert.True(t, change.DeletedEvent.RecurrenceID.Equal(occurrence))
	assert.Equal(t, occurrence, change.DeletedEvent.Start, "the removed occurrence is materialized from the master")
	assert.Empty(t, change.DeletedEvent.RecurrenceRule)
	assert.Equal(t, master.ID, change.MasterEvent.ID)
	assert.Equal(t, []Action{ActionDelete}, analysis.Actions)
}

func TestCancelAnalyzer_AlreadyAppliedDeleteException(t *testing.T) {
	occurrence := testDay.AddDate(0, 0, 4)
	master := testSeries("u1")
	master.DeleteExceptions = []time.Time{occurrence}
	analyzer := newCancelAnalyzer(testEnv(master))

	cancel := incoming(master)
	cancel.RecurrenceID = occurrence
	cancel.RecurrenceRule = ""
	msg := &Message{Method: MethodCancel, Event: cancel}

	// A re-delivered cancel for an occurrence that is gone already
	// produces no change at all.
	analysis, err := analyzer.Analyze(context.Background(), msg, nil, FormatText, testSession())
	require.NoError(t, err)
	assert.Empty(t, analysis.Changes)
	require.Len(t, analysis.Annotations, 1)
	assert.Equal(t, AnnotationCancelUnknown, analysis.Annotations[0].Kind)
	assert.Equal(t, []Action{ActionIgnore}, analysis.Actions)
}

func TestCancelAnalyzer_NonOccurrenceIgnored(t *testing.T) {
	master := testSeries("u1")
	analyzer := newCancelAnalyzer(testEnv(master))

	// 2024-01-10T15:30 is not produced by FREQ=DAILY anchored at 10:00.
	cancel := incoming(master)
	cancel.RecurrenceID = testDay.Add(5*time.Hour + 30*time.Minute)
	cancel.RecurrenceRule = ""
	msg := &Message{Method: MethodCancel, Event: cancel}

	analysis, err := analyzer.Analyze(context.Background(), msg, nil, FormatText, testSession())
	require.NoError(t, err)
	assert.Empty(t, analysis.Changes)
	assert.Equal(t, []Action{ActionIgnore}, analysis.Actions)
}

func TestCancelAnalyzer_UnknownAppointment(t *testing.T) {
	analyzer := newCancelAnalyzer(testEnv())

	msg := &Message{Method: MethodCancel, Event: incoming(testEvent("u1"))}
	analysis, err := analyzer.Analyze(context.Background(), msg, nil, FormatText, testSession())
	require.NoError(t, err)

	assert.Empty(t, analysis.Changes)
	require.Len(t, analysis.Annotations, 1)
	assert.Equal(t, AnnotationCancelUnknown, analysis.Annotations[0].Kind)
	assert.Equal(t, []Action{ActionIgnore}, analysis.Actions)
}

func TestCancelAnalyzer_ForeignOrganizerRejected(t *testing.T) {
	stored := testEvent("u1")
	analyzer := newCancelAnalyzer(testEnv(stored))

	cancel := incoming(stored)
	cancel.Organizer = "mailto:mallory@example.net"
	msg := &Message{Method: MethodCancel, Event: cancel}

	analysis, err := analyzer.Analyze(context.Background(), msg, nil, FormatText, testSession())
	require.NoError(t, err)
	assert.Empty(t, analysis.Changes)
	require.Len(t, analysis.Annotations, 1)
	assert.Equal(t, AnnotationUnallowedOrganizer, analysis.Annotations[0].Kind)
	assert.Equal(t, []Action{ActionIgnore}, analysis.Actions)
}
