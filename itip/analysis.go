package itip

// ChangeType classifies one semantic change recommended by the engine.
type ChangeType string

const (
	ChangeCreate ChangeType = "CREATE"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"

	// ChangeCreateDeleteException removes a single occurrence from a
	// recurring series that has no materialized exception event yet. It
	// always carries the would-be occurrence as DeletedEvent and is
	// always flagged as an exception.
	ChangeCreateDeleteException ChangeType = "CREATE_DELETE_EXCEPTION"
)

// Action is one follow-up operation the engine recommends to the caller.
type Action string

const (
	ActionIgnore                   Action = "IGNORE"
	ActionRefresh                  Action = "REFRESH"
	ActionUpdate                   Action = "UPDATE"
	ActionCreate                   Action = "CREATE"
	ActionAccept                   Action = "ACCEPT"
	ActionAcceptIgnoreConflicts    Action = "ACCEPT_AND_IGNORE_CONFLICTS"
	ActionAcceptPartyCrasher       Action = "ACCEPT_PARTY_CRASHER"
	ActionDecline                  Action = "DECLINE"
	ActionTentative                Action = "TENTATIVE"
	ActionDelegate                 Action = "DELEGATE"
	ActionCounter                  Action = "COUNTER"
	ActionDeclineCounter           Action = "DECLINECOUNTER"
	ActionDelete                   Action = "DELETE"
	ActionSendAppointment          Action = "SEND_APPOINTMENT"
)

// AnnotationKind names the sentence family an annotation renders to.
type AnnotationKind string

const (
	AnnotationOldUpdate               AnnotationKind = "OLD_UPDATE"
	AnnotationCounterUnknown          AnnotationKind = "COUNTER_UNKNOWN"
	AnnotationSharedFolder            AnnotationKind = "SHARED_FOLDER"
	AnnotationNoPermission            AnnotationKind = "NO_PERMISSION"
	AnnotationUnallowedOrganizer      AnnotationKind = "UNALLOWED_ORGANIZER_CHANGE"
	AnnotationCancelUnknown           AnnotationKind = "CANCEL_UNKNOWN_APPOINTMENT"
	AnnotationAddToUnknown            AnnotationKind = "ADD_TO_UNKNOWN"
	AnnotationRefreshForUnknown       AnnotationKind = "REFRESH_FOR_UNKNOWN"
	AnnotationRefreshRequested        AnnotationKind = "REFRESH_REQUESTED"
	AnnotationDeclinedForUnknown      AnnotationKind = "DECLINED_FOR_UNKNOWN"
	AnnotationDeclinedCounterProposal AnnotationKind = "DECLINED_COUNTER_PROPOSAL"
	AnnotationInternalMail            AnnotationKind = "INTERNAL_MAIL"
)

// Annotation is one informational remark about the analyzed message,
// optionally carrying the event it refers to.
type Annotation struct {
	Kind  AnnotationKind
	Event *Event
}

// Change is one semantic change the engine derived from the message.
type Change struct {
	Type      ChangeType
	Exception bool

	CurrentEvent *Event // the stored counterpart, if any
	NewEvent     *Event // the patched incoming event, if any
	DeletedEvent *Event // the event (or occurrence) being removed
	MasterEvent  *Event // the stored series master, for exception changes

	Conflicts []Conflict

	Diff         *EventUpdate
	Introduction string
	Descriptions []string
}

// IsReschedule reports whether the change moves the event in time.
func (c *Change) IsReschedule() bool {
	return c != nil && c.Diff != nil && c.Diff.ContainsAnyOf(FieldStart, FieldEnd)
}

// Analysis is the engine's result for one scheduling message. It is built
// fresh per call and never persisted by the engine.
type Analysis struct {
	UID     string
	Message *Message

	Changes     []*Change
	Annotations []Annotation
	Actions     []Action

	// Warnings records degraded collaborator calls and dropped invalid
	// payload parts. They never abort the analysis.
	Warnings []string
}

// NewAnalysis creates an empty analysis for the given message.
func NewAnalysis(msg *Message) *Analysis {
	return &Analysis{UID: msg.UID(), Message: msg}
}

// AddChange appends a change.
func (a *Analysis) AddChange(c *Change) {
	a.Changes = append(a.Changes, c)
}

// Annotate appends an annotation.
func (a *Analysis) Annotate(kind AnnotationKind, event *Event) {
	a.Annotations = append(a.Annotations, Annotation{Kind: kind, Event: event})
}

// Recommend appends actions, keeping the action set deduplicated while
// preserving insertion order.
func (a *Analysis) Recommend(actions ...Action) {
	for _, action := range actions {
		if !a.Recommends(action) {
			a.Actions = append(a.Actions, action)
		}
	}
}

// Recommends reports whether the given action is already recommended.
func (a *Analysis) Recommends(action Action) bool {
	for _, existing := range a.Actions {
		if existing == action {
			return true
		}
	}
	return false
}

// ClearActions drops all recommended actions.
func (a *Analysis) ClearActions() {
	a.Actions = nil
}

// Warn records a non-fatal processing warning.
func (a *Analysis) Warn(text string) {
	a.Warnings = append(a.Warnings, text)
}

// HasConflicts reports whether any change carries at least one conflict.
func (a *Analysis) HasConflicts() bool {
	for _, c := range a.Changes {
		if len(c.Conflicts) > 0 {
			return true
		}
	}
	return false
}
