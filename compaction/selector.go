package compaction

import "github.com/foldpg/foldpg/timeline"

// Run is a half-open index range [Start, End) into the working context.
type Run struct {
	Start int
	End   int
}

// Len returns the number of selected records.
func (r Run) Len() int {
	return r.End - r.Start
}

// SelectRun scans the ordered working context once, left to right, and
// returns the older half of the earliest contiguous same-level run whose
// cumulative cost reaches 2*budget. The boolean is false when no run
// qualifies.
//
// A level change always starts a new run, so a selection never crosses a
// level boundary. A single record whose own cost reaches the threshold
// forms a qualifying run of length one; its "older half" is itself, which
// yields a degenerate single-source summary and is a valid outcome.
func SelectRun(records []timeline.Record, budget int) (Run, bool) {
	threshold := 2 * budget

	runLevel := 0
	runStart := 0
	runSum := 0

	for i, rec := range records {
		level, cost := rec.CompactionLevel(), rec.Cost()

		if i == 0 || level != runLevel {
			runLevel = level
			runStart = i
			runSum = cost
		} else {
			runSum += cost
		}

		if runSum >= threshold {
			length := i - runStart + 1
			end := runStart + (length+1)/2 // ceil(length / 2)
			return Run{Start: runStart, End: end}, true
		}
	}

	return Run{}, false
}
