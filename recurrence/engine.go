// Package recurrence provides the occurrence math the scheduling engine
// needs: validating that a recurrence id really is an occurrence of a
// series, and probing a series for occurrences inside a time range.
package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// Engine expands and validates recurrence rules.
type Engine struct{}

// NewEngine creates a new recurrence engine instance.
func NewEngine() *Engine {
	return &Engine{}
}

// IsOccurrence reports whether the candidate time is a genuine occurrence
// of the series starting at masterStart with the given RRULE, excluding
// delete exceptions.
func (e *Engine) IsOccurrence(masterStart time.Time, rruleStr string, exdates []time.Time, candidate time.Time) (bool, error) {
	if e.isExcluded(candidate, exdates) {
		return false, nil
	}
	if candidate.Equal(masterStart) {
		return true, nil
	}
	if rruleStr == "" {
		return false, nil
	}
	// Between is inclusive of start, exclusive of end; probe a one-second
	// window around the candidate.
	occurrences, err := e.expandRRule(masterStart, rruleStr, candidate, candidate.Add(time.Second))
	if err != nil {
		return false, err
	}
	for _, occurrence := range occurrences {
		if occurrence.Equal(candidate) {
			return true, nil
		}
	}
	return false, nil
}

// NextOccurrences returns up to limit occurrences of the series starting
// at or after the given time, delete exceptions excluded.
func (e *Engine) NextOccurrences(masterStart time.Time, rruleStr string, exdates []time.Time, from time.Time, limit int) ([]time.Time, error) {
	if rruleStr == "" {
		if !masterStart.Before(from) && !e.isExcluded(masterStart, exdates) {
			return []time.Time{masterStart}, nil
		}
		return nil, nil
	}
	// A wide fixed horizon keeps the expansion bounded.
	occurrences, err := e.expandRRule(masterStart, rruleStr, from, from.AddDate(5, 0, 0))
	if err != nil {
		return nil, err
	}
	result := make([]time.Time, 0, limit)
	for _, occurrence := range occurrences {
		if e.isExcluded(occurrence, exdates) {
			continue
		}
		result = append(result, occurrence)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

// HasOccurrenceInRange checks if a possibly recurring event has any
// occurrence overlapping the time range. The overlap test is
// start <= rangeEnd AND end >= rangeStart.
func (e *Engine) HasOccurrenceInRange(masterStart, masterEnd time.Time, rruleStr string, exdates []time.Time, rangeStart, rangeEnd time.Time) (bool, error) {
	if !masterStart.After(rangeEnd) && !masterEnd.Before(rangeStart) {
		if !e.isExcluded(masterStart, exdates) {
			return true, nil
		}
	}
	if rruleStr == "" {
		return false, nil
	}
	occurrences, err := e.expandRRule(masterStart, rruleStr, rangeStart.Add(-masterEnd.Sub(masterStart)), rangeEnd)
	if err != nil {
		return false, fmt.Errorf("failed to check RRULE occurrences: %w", err)
	}
	duration := masterEnd.Sub(masterStart)
	for _, occurrence := range occurrences {
		occurrenceEnd := occurrence.Add(duration)
		if !occurrence.After(rangeEnd) && !occurrenceEnd.Before(rangeStart) && !e.isExcluded(occurrence, exdates) {
			return true, nil
		}
	}
	return false, nil
}

// expandRRule expands an RRULE within the given time range.
func (e *Engine) expandRRule(masterStart time.Time, rruleStr string, rangeStart, rangeEnd time.Time) ([]time.Time, error) {
	dtstart := masterStart.UTC().Format("20060102T150405Z")
	fullRRule := fmt.Sprintf("DTSTART:%s\nRRULE:%s", dtstart, rruleStr)

	ruleSet, err := rrule.StrToRRuleSet(fullRRule)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RRULE '%s': %w", rruleStr, err)
	}
	return ruleSet.Between(rangeStart, rangeEnd, true), nil
}

// isExcluded checks if a given time is in the EXDATE list.
func (e *Engine) isExcluded(t time.Time, exdates []time.Time) bool {
	for _, exdate := range exdates {
		if t.Equal(exdate) {
			return true
		}
		// Date-only exceptions are stored as midnight UTC and exclude the
		// whole day.
		if exdate.Hour() == 0 && exdate.Minute() == 0 && exdate.Second() == 0 && exdate.Location() == time.UTC {
			occurrenceAtMidnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			if occurrenceAtMidnight.Equal(exdate) {
				return true
			}
		}
	}
	return false
}
