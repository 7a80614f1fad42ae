// Package foldpg keeps a growing conversational log bounded in size by
// periodically folding older entries into synthesized summaries, so a
// language-model provider always receives a transcript of manageable cost.
//
// The log is append-only: raw exchanges are level-0 messages, and each
// compaction folds a contiguous run of same-level records into one summary
// a level above, reparenting the sources in a single atomic store
// transaction. The union of unparented records, ordered chronologically,
// is the working context sent to the model.
//
// Chat is the entry point. Each Send builds the working context, calls the
// completion provider, prices the exchange through the cost provider,
// persists the new message, and then triggers one best-effort compaction
// attempt. Persistence goes through timeline.Store, with PostgreSQL (pgx
// and database/sql) and in-memory implementations provided.
package foldpg
