package domain

import "time"

// MaxDayOfMonth caps the anchor so every month has the anchor day and the
// rollover below never needs month-length clamping.
const MaxDayOfMonth = 28

// ComputeNextGeneration returns the first generation timestamp at the anchor
// day on or after now: the anchor day within now's month, or the same day in
// the following month when that candidate has already passed. December rolls
// the year forward via time.Date normalization.
func ComputeNextGeneration(anchorDay int, now time.Time) time.Time {
	now = now.UTC()
	candidate := time.Date(now.Year(), now.Month(), anchorDay, 0, 0, 0, 0, time.UTC)
	if !candidate.After(now) {
		candidate = time.Date(now.Year(), now.Month()+1, anchorDay, 0, 0, 0, 0, time.UTC)
	}
	return candidate
}

// AdvanceGeneration computes the schedule position after a generation event:
// exactly one calendar month past the timestamp that was just consumed, never
// re-derived from the wall clock, so cadence drift cannot accumulate across
// late or skipped runs.
func AdvanceGeneration(consumed time.Time, anchorDay int) time.Time {
	consumed = consumed.UTC()
	return time.Date(consumed.Year(), consumed.Month()+1, anchorDay, 0, 0, 0, 0, time.UTC)
}
