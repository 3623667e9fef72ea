package itip

import "time"

// CalendarObjectResource groups one optional series master with its
// recurrence exceptions under a common UID, with lookup by recurrence id.
// It is a read-only view assembled either from an incoming message or from
// stored events; at most one exception exists per recurrence id.
type CalendarObjectResource struct {
	seriesMaster     *Event
	changeExceptions []*Event
}

// NewCalendarObjectResource assembles a resource from a flat event list.
// The event without a recurrence id becomes the series master; for
// duplicate recurrence ids the first event wins.
func NewCalendarObjectResource(events []*Event) *CalendarObjectResource {
	r := &CalendarObjectResource{}
	for _, e := range events {
		if e == nil {
			continue
		}
		if e.IsSeriesMaster() {
			if r.seriesMaster == nil {
				r.seriesMaster = e
			}
			continue
		}
		if r.ChangeException(e.RecurrenceID) == nil {
			r.changeExceptions = append(r.changeExceptions, e)
		}
	}
	return r
}

// SeriesMaster returns the series master event, or nil.
func (r *CalendarObjectResource) SeriesMaster() *Event {
	if r == nil {
		return nil
	}
	return r.seriesMaster
}

// ChangeExceptions returns the exception events in insertion order.
func (r *CalendarObjectResource) ChangeExceptions() []*Event {
	if r == nil {
		return nil
	}
	return r.changeExceptions
}

// ChangeException returns the exception with the given recurrence id, or nil.
func (r *CalendarObjectResource) ChangeException(recurrenceID time.Time) *Event {
	if r == nil {
		return nil
	}
	for _, e := range r.changeExceptions {
		if e.RecurrenceID.Equal(recurrenceID) {
			return e
		}
	}
	return nil
}

// FirstEvent returns the series master if present, otherwise the first
// exception, otherwise nil.
func (r *CalendarObjectResource) FirstEvent() *Event {
	if r == nil {
		return nil
	}
	if r.seriesMaster != nil {
		return r.seriesMaster
	}
	if len(r.changeExceptions) > 0 {
		return r.changeExceptions[0]
	}
	return nil
}

// UID returns the common UID of the grouped events.
func (r *CalendarObjectResource) UID() string {
	if e := r.FirstEvent(); e != nil {
		return e.UID
	}
	return ""
}

// IsEmpty reports whether the resource holds no events at all.
func (r *CalendarObjectResource) IsEmpty() bool {
	return r == nil || (r.seriesMaster == nil && len(r.changeExceptions) == 0)
}
