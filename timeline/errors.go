package timeline

import "errors"

// Sentinel errors for timeline store operations.
var (
	// ErrDuplicateID is returned when appending a record whose id already
	// exists in its collection.
	ErrDuplicateID = errors.New("record id already exists")

	// ErrRecordNotFound is returned when a referenced record does not exist.
	ErrRecordNotFound = errors.New("record not found")

	// ErrSourceNotActive is returned by AtomicCompact when a named source
	// is missing or already parented. The parent reference transitions at
	// most once, so a second compaction naming the same source must fail
	// without applying anything.
	ErrSourceNotActive = errors.New("compaction source is not active")

	// ErrStorage is returned when an underlying database operation failed.
	ErrStorage = errors.New("storage operation failed")
)
