package itip

import "context"

// declineCounterAnalyzer handles DECLINECOUNTER: the organizer rejected a
// counter proposal previously sent by this user. The message is purely
// informational and never produces a calendar change.
type declineCounterAnalyzer struct {
	baseAnalyzer
}

func (a *declineCounterAnalyzer) Methods() []Method { return []Method{MethodDeclineCounter} }

func (a *declineCounterAnalyzer) SupportsLegacy() bool { return false }

func (a *declineCounterAnalyzer) Analyze(ctx context.Context, msg *Message, headers map[string]string, format RenderFormat, session *Session) (*Analysis, error) {
	if err := a.requireMethod(msg, MethodDeclineCounter); err != nil {
		return nil, err
	}
	analysis := NewAnalysis(msg)

	event, err := a.resolveReferenced(ctx, session, msg)
	if err != nil {
		return nil, err
	}
	if event == nil {
		analysis.Annotate(AnnotationDeclinedForUnknown, nil)
		analysis.Recommend(ActionIgnore, ActionRefresh)
		return analysis, nil
	}
	if isOutdated(msg.Event, event) {
		analysis.Annotate(AnnotationOldUpdate, event)
		analysis.Recommend(ActionIgnore)
		return analysis, nil
	}
	analysis.Annotate(AnnotationDeclinedCounterProposal, event)
	analysis.Recommend(ActionDecline, ActionRefresh)
	return analysis, nil
}
