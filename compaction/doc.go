// Package compaction folds the oldest over-budget run of the working
// context into a single higher-level summary.
//
// The selector scans the chronologically ordered working context once,
// left to right, tracking the current contiguous run of same-level
// records. The first run whose cumulative token cost reaches twice the
// configured budget qualifies, and the older half of it is selected.
// Compacting half the run, rather than all of it, leaves roughly one
// budget's worth of content behind and amortizes how often compaction has
// to fire; always taking the earliest run keeps the newest content raw the
// longest.
//
// The compactor condenses the selected records through the completion
// provider, prices the condensed text through the cost provider, and
// persists the new summary with Store.AtomicCompact so the sources'
// parent references and the summary appear together or not at all. One
// compaction attempt runs per orchestrated send; deeper folding happens
// naturally on later sends.
package compaction
