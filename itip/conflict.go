package itip

import "time"

// rangesOverlap reports whether two time ranges overlap. Two ranges
// overlap unless one entirely precedes the other.
func rangesOverlap(start1, end1, start2, end2 time.Time) bool {
	if !end1.After(start2) {
		return false
	}
	if !end2.After(start1) {
		return false
	}
	return true
}

// purgeConflicts removes spurious conflicts from every change of the
// analysis. A conflict is spurious when the conflicting event is itself
// the current, master or deleted event of some change in the same analysis
// (it is being changed anyway), or when it matches another change's new
// event but no longer overlaps that change's new time window.
func purgeConflicts(analysis *Analysis) {
	for _, change := range analysis.Changes {
		if len(change.Conflicts) == 0 {
			continue
		}
		kept := change.Conflicts[:0]
		for _, conflict := range change.Conflicts {
			if !isSpuriousConflict(analysis, conflict) {
				kept = append(kept, conflict)
			}
		}
		change.Conflicts = kept
	}
}

func isSpuriousConflict(analysis *Analysis, conflict Conflict) bool {
	for _, change := range analysis.Changes {
		if SameEvent(conflict.Event, change.CurrentEvent) ||
			SameEvent(conflict.Event, change.MasterEvent) ||
			SameEvent(conflict.Event, change.DeletedEvent) {
			return true
		}
		if change.NewEvent != nil && SameEvent(conflict.Event, change.NewEvent) {
			if !rangesOverlap(conflict.Event.Start, conflict.Event.End,
				change.NewEvent.Start, change.NewEvent.End) {
				return true
			}
		}
	}
	return false
}
