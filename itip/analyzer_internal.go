package itip

import (
	"context"
	"fmt"
)

// internalAnalyzer handles messages generated by the calendar service
// itself. The stored calendar already reflects them, so the analysis only
// timezone-adjusts the event for display and notes its origin.
type internalAnalyzer struct {
	baseAnalyzer
}

func (a *internalAnalyzer) Methods() []Method {
	return []Method{
		MethodRequest, MethodReply, MethodCancel, MethodAdd,
		MethodRefresh, MethodCounter, MethodDeclineCounter, MethodPublish,
	}
}

func (a *internalAnalyzer) SupportsLegacy() bool { return true }

func (a *internalAnalyzer) Analyze(ctx context.Context, msg *Message, headers map[string]string, format RenderFormat, session *Session) (*Analysis, error) {
	analysis := NewAnalysis(msg)
	event := msg.Event
	if event == nil && len(msg.Exceptions) > 0 {
		event = msg.Exceptions[0]
	}
	if event != nil && a.env.TimeZones != nil {
		adjusted, err := a.env.TimeZones.AdjustTimeZones(ctx, session, msg.Owner, event.Clone(), nil)
		if err != nil {
			analysis.Warn(fmt.Sprintf("timezone adjustment failed for %s: %v", event.UID, err))
		} else if adjusted != nil {
			event = adjusted
		}
	}
	analysis.Annotate(AnnotationInternalMail, event)
	return analysis, nil
}
