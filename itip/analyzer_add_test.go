package itip

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAddAnalyzer(env Environment) *addAnalyzer {
	return &addAnalyzer{testBase(env)}
}

// addedOccurrence builds the ADD payload for a fresh occurrence of the
// master outside its recurrence set.
func addedOccurrence(master *Event) *Event {
	occurrence := testDay.AddDate(0, 0, 20)
	event := incoming(master)
	event.RecurrenceID = occurrence
	event.RecurrenceRule = ""
	event.Start = occurrence
	event.End = occurrence.Add(master.Duration())
	return event
}

func TestAddAnalyzer_CreatesException(t *testing.T) {
	master := testSeries("u1")
	env := testEnv(master)
	conflicts := &stubConflicts{}
	env.Conflicts = conflicts
	analyzer := newAddAnalyzer(env)

	msg := &Message{Method: MethodAdd, Event: addedOccurrence(master)}
	analysis, err := analyzer.Analyze(context.Background(), msg, nil, FormatText, testSession())
	require.NoError(t, err)

	require.Len(t, analysis.Changes, 1)
	change := analysis.Changes[0]
	assert.Equal(t, ChangeCreate, change.Type)
	assert.True(t, change.Exception)
	assert.Equal(t, master.ID, change.MasterEvent.ID)
	_, ok := change.NewEvent.FindAttendee("erin@example.com")
	assert.True(t, ok, "the acting user participates in the added occurrence")
	assert.Equal(t, 1, conflicts.calls)

	assert.Equal(t, []Action{ActionUpdate, ActionAccept, ActionTentative, ActionDecline}, analysis.Actions)
}

func TestAddAnalyzer_ConflictsAddIgnoreConflictsAction(t *testing.T) {
	master := testSeries("u1")
	env := testEnv(master)
	env.Conflicts = &stubConflicts{conflicts: []Conflict{{Event: testEvent("busy")}}}
	analyzer := newAddAnalyzer(env)

	msg := &Message{Method: MethodAdd, Event: addedOccurrence(master)}
	analysis, err := analyzer.Analyze(context.Background(), msg, nil, FormatText, testSession())
	require.NoError(t, err)
	assert.True(t, analysis.Recommends(ActionAcceptIgnoreConflicts))
}

func TestAddAnalyzer_UnknownSeries(t *testing.T) {
	analyzer := newAddAnalyzer(testEnv())

	msg := &Message{Method: MethodAdd, Event: addedOccurrence(testSeries("u1"))}
	analysis, err := analyzer.Analyze(context.Background(), msg, nil, FormatText, testSession())
	require.NoError(t, err)

	assert.Empty(t, analysis.Changes)
	require.Len(t, analysis.Annotations, 1)
	assert.Equal(t, AnnotationAddToUnknown, analysis.Annotations[0].Kind)
	assert.Equal(t, []Action{ActionRefresh}, analysis.Actions)
}

func TestAddAnalyzer_ExistingExceptionForcesRefresh(t *testing.T) {
	master := testSeries("u1")
	exception := testException(master, testDay.AddDate(0, 0, 2))
	analyzer := newAddAnalyzer(testEnv(master, exception))

	added := incoming(exception)
	msg := &Message{Method: MethodAdd, Event: added}

	analysis, err := analyzer.Analyze(context.Background(), msg, nil, FormatText, testSession())
	require.NoError(t, err)
	assert.Empty(t, analysis.Changes, "an addition colliding with a stored exception is never applied")
	assert.Equal(t, []Action{ActionRefresh, ActionIgnore}, analysis.Actions)
}
