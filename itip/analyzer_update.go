package itip

import "context"

// updateAnalyzer handles REQUEST, COUNTER and PUBLISH. All three transmit
// a full (possibly recurring) calendar object that is reconciled against
// the stored one event by event.
type updateAnalyzer struct {
	baseAnalyzer
}

func (a *updateAnalyzer) Methods() []Method {
	return []Method{MethodRequest, MethodCounter, MethodPublish}
}

func (a *updateAnalyzer) SupportsLegacy() bool { return true }

func (a *updateAnalyzer) Analyze(ctx context.Context, msg *Message, headers map[string]string, format RenderFormat, session *Session) (*Analysis, error) {
	if err := a.requireMethod(msg, MethodRequest, MethodCounter, MethodPublish); err != nil {
		return nil, err
	}
	analysis := NewAnalysis(msg)
	incoming := a.buildIncomingResource(msg, msg.Method == MethodRequest, analysis)
	if incoming.IsEmpty() {
		analysis.Recommend(ActionIgnore)
		return analysis, nil
	}
	analysis.UID = incoming.UID()

	original, err := a.resolveOriginal(ctx, session, incoming.UID(), msg.Owner)
	if err != nil {
		return nil, err
	}

	if original.IsEmpty() && msg.Method == MethodCounter {
		analysis.Annotate(AnnotationCounterUnknown, incoming.FirstEvent())
		analysis.Recommend(ActionIgnore)
		return analysis, nil
	}

	if stored := storedCounterpart(original, incoming.FirstEvent()); stored != nil {
		if isOutdated(incoming.FirstEvent(), stored) {
			analysis.Annotate(AnnotationOldUpdate, stored)
			analysis.Recommend(ActionIgnore)
			analysis.Changes = []*Change{{Type: ChangeUpdate, CurrentEvent: stored}}
			return analysis, nil
		}
	}

	targetFolder, ok, err := a.resolveTargetFolder(ctx, analysis, session, msg.Owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		analysis.Annotate(AnnotationSharedFolder, incoming.FirstEvent())
		analysis.Recommend(ActionIgnore)
		return analysis, nil
	}

	storedMaster := original.SeriesMaster()
	remaining := append([]*Event(nil), original.ChangeExceptions()...)

	if primary := incoming.SeriesMaster(); primary != nil {
		a.analyzeEvent(ctx, analysis, session, msg, format, primary, storedMaster, storedMaster, targetFolder, false)
	}
	for _, exception := range incoming.ChangeExceptions() {
		counterpart := findAndRemoveMatchingException(exception, &remaining)
		a.analyzeEvent(ctx, analysis, session, msg, format, exception, counterpart, storedMaster, targetFolder, true)
	}

	// Stored exceptions the incoming series rewrite never mentions are
	// implicitly removed.
	if incoming.SeriesMaster() != nil {
		for _, leftover := range remaining {
			change := &Change{
				Type:         ChangeDelete,
				Exception:    true,
				DeletedEvent: leftover,
				MasterEvent:  storedMaster,
			}
			a.describeChange(change, format, msg)
			analysis.AddChange(change)
		}
	}

	purgeConflicts(analysis)

	if len(analysis.Changes) == 0 && len(analysis.Annotations) == 0 {
		a.addFallbackChange(ctx, analysis, session, msg, format, incoming, original)
	}

	a.recommend(analysis, msg)
	return analysis, nil
}

// analyzeEvent reconciles one transmitted event against its stored
// counterpart and emits a CREATE or UPDATE change when a genuine
// difference exists.
func (a *updateAnalyzer) analyzeEvent(ctx context.Context, analysis *Analysis, session *Session, msg *Message, format RenderFormat, event, stored, master *Event, targetFolder string, exception bool) {
	patched := a.patchEvent(ctx, analysis, session, event, stored, msg.Owner)
	patched.FolderID = targetFolder
	if stored != nil {
		patched.ID = stored.ID
		patched.SeriesID = stored.SeriesID
		carryOverResources(stored, patched)
	}

	var change *Change
	switch {
	case stored == nil:
		change = &Change{
			Type:        ChangeCreate,
			Exception:   exception,
			NewEvent:    patched,
			MasterEvent: master,
		}
	case a.eventsDiffer(session, patched, stored):
		change = &Change{
			Type:         ChangeUpdate,
			Exception:    exception,
			CurrentEvent: stored,
			NewEvent:     patched,
			MasterEvent:  master,
			Diff:         NewEventUpdate(stored, patched),
		}
	default:
		return
	}
	change.Conflicts = a.detectConflicts(ctx, analysis, session, patched)
	a.describeChange(change, format, msg)
	analysis.AddChange(change)
}

// resolveTargetFolder decides which calendar folder the change applies to.
// When the message owner differs from the acting user, the change is
// re-homed to the owner's default folder, which requires create rights
// there.
func (a *updateAnalyzer) resolveTargetFolder(ctx context.Context, analysis *Analysis, session *Session, owner int) (string, bool, error) {
	if owner == 0 || owner == session.UserID || a.env.Permissions == nil {
		return session.DefaultFolderID, true, nil
	}
	folder, err := a.env.Permissions.DefaultFolder(ctx, session, owner)
	if err != nil {
		analysis.Warn("default folder lookup failed: " + err.Error())
		return "", false, nil
	}
	allowed, err := a.env.Permissions.MayCreateIn(ctx, session, folder)
	if err != nil {
		analysis.Warn("folder permission check failed: " + err.Error())
		return "", false, nil
	}
	if !allowed {
		return "", false, nil
	}
	return folder, true, nil
}

// addFallbackChange keeps an otherwise no-op message actionable with one
// synthetic update change.
func (a *updateAnalyzer) addFallbackChange(ctx context.Context, analysis *Analysis, session *Session, msg *Message, format RenderFormat, incoming, original *CalendarObjectResource) {
	first := incoming.FirstEvent()
	stored := storedCounterpart(original, first)
	change := &Change{
		Type:         ChangeUpdate,
		Exception:    first != nil && !first.IsSeriesMaster(),
		CurrentEvent: stored,
		NewEvent:     a.patchEvent(ctx, analysis, session, first, stored, msg.Owner),
		MasterEvent:  original.SeriesMaster(),
	}
	a.describeChange(change, format, msg)
	analysis.AddChange(change)
}

func (a *updateAnalyzer) recommend(analysis *Analysis, msg *Message) {
	if len(analysis.Changes) == 0 {
		return
	}
	if msg.Method == MethodCounter {
		analysis.Recommend(ActionUpdate, ActionDeclineCounter)
		return
	}

	var hasCreate, hasUpdate, reschedules bool
	for _, change := range analysis.Changes {
		switch change.Type {
		case ChangeCreate:
			hasCreate = true
		case ChangeUpdate:
			hasUpdate = true
		}
		if change.IsReschedule() {
			reschedules = true
		}
	}

	analysis.Recommend(ActionAccept)
	if analysis.HasConflicts() {
		analysis.Recommend(ActionAcceptIgnoreConflicts)
	}
	analysis.Recommend(ActionDecline, ActionTentative, ActionDelegate, ActionCounter)
	if reschedules {
		return
	}
	if hasCreate {
		analysis.Recommend(ActionCreate)
	} else if hasUpdate {
		analysis.Recommend(ActionUpdate)
	}
}

// storedCounterpart resolves the stored event a transmitted one compares
// against: the master for a master, the matching exception (or the master
// as fallback reference) for an exception.
func storedCounterpart(original *CalendarObjectResource, event *Event) *Event {
	if event == nil || original.IsEmpty() {
		return nil
	}
	if event.IsSeriesMaster() {
		return original.SeriesMaster()
	}
	return original.ChangeException(event.RecurrenceID)
}

// carryOverResources copies RESOURCE-type attendees from the stored event
// that the incoming message omitted; scheduling peers usually do not know
// about booked resources.
func carryOverResources(stored, patched *Event) {
	for _, attendee := range stored.Attendees {
		if attendee.UserType != UserResource {
			continue
		}
		if _, ok := patched.FindAttendee(attendee.URI); !ok {
			patched.Attendees = append(patched.Attendees, attendee)
		}
	}
}
