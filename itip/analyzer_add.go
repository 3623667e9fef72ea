package itip

import "context"

// addAnalyzer handles ADD, which appends new occurrences to an already
// known recurring series.
type addAnalyzer struct {
	baseAnalyzer
}

func (a *addAnalyzer) Methods() []Method { return []Method{MethodAdd} }

func (a *addAnalyzer) SupportsLegacy() bool { return false }

func (a *addAnalyzer) Analyze(ctx context.Context, msg *Message, headers map[string]string, format RenderFormat, session *Session) (*Analysis, error) {
	if err := a.requireMethod(msg, MethodAdd); err != nil {
		return nil, err
	}
	analysis := NewAnalysis(msg)
	incoming := a.buildIncomingResource(msg, false, analysis)

	original, err := a.resolveOriginal(ctx, session, msg.UID(), msg.Owner)
	if err != nil {
		return nil, err
	}
	master := original.SeriesMaster()
	if master == nil {
		analysis.Annotate(AnnotationAddToUnknown, incoming.FirstEvent())
		analysis.Recommend(ActionRefresh)
		return analysis, nil
	}

	for _, event := range incoming.ChangeExceptions() {
		if known := original.ChangeException(event.RecurrenceID); known != nil {
			// Applying the addition would overwrite an existing
			// exception; the series needs to be re-requested instead.
			analysis.Recommend(ActionRefresh, ActionIgnore)
			continue
		}
		patched := a.patchEvent(ctx, analysis, session, event, master, msg.Owner)
		a.ensureParticipant(master, patched, session, session.Address)
		change := &Change{
			Type:        ChangeCreate,
			Exception:   true,
			NewEvent:    patched,
			MasterEvent: master,
			Conflicts:   a.detectConflicts(ctx, analysis, session, patched),
		}
		a.describeChange(change, format, msg)
		analysis.AddChange(change)
	}

	purgeConflicts(analysis)

	if len(analysis.Changes) > 0 {
		analysis.Recommend(ActionUpdate, ActionAccept, ActionTentative, ActionDecline)
		if analysis.HasConflicts() {
			analysis.Recommend(ActionAcceptIgnoreConflicts)
		}
	}
	return analysis, nil
}
