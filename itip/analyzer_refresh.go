package itip

import "context"

// refreshAnalyzer handles REFRESH. The organizer side resolves the
// referenced event purely for re-transmission; no change is produced.
type refreshAnalyzer struct {
	baseAnalyzer
}

func (a *refreshAnalyzer) Methods() []Method { return []Method{MethodRefresh} }

func (a *refreshAnalyzer) SupportsLegacy() bool { return false }

func (a *refreshAnalyzer) Analyze(ctx context.Context, msg *Message, headers map[string]string, format RenderFormat, session *Session) (*Analysis, error) {
	if err := a.requireMethod(msg, MethodRefresh); err != nil {
		return nil, err
	}
	analysis := NewAnalysis(msg)

	event, err := a.resolveReferenced(ctx, session, msg)
	if err != nil {
		return nil, err
	}
	if event == nil {
		analysis.Annotate(AnnotationRefreshForUnknown, nil)
		analysis.Recommend(ActionIgnore)
		return analysis, nil
	}
	analysis.Annotate(AnnotationRefreshRequested, event)
	analysis.Recommend(ActionSendAppointment)
	return analysis, nil
}

// resolveReferenced returns the stored master, or the specific exception
// when the message names a recurrence id.
func (b *baseAnalyzer) resolveReferenced(ctx context.Context, session *Session, msg *Message) (*Event, error) {
	original, err := b.resolveOriginal(ctx, session, msg.UID(), msg.Owner)
	if err != nil {
		return nil, err
	}
	if original.IsEmpty() {
		return nil, nil
	}
	if transmitted := msg.Event; transmitted != nil && !transmitted.IsSeriesMaster() {
		return original.ChangeException(transmitted.RecurrenceID), nil
	}
	if len(msg.Exceptions) > 0 {
		return original.ChangeException(msg.Exceptions[0].RecurrenceID), nil
	}
	return original.FirstEvent(), nil
}
