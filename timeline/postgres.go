package timeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the two timeline collections. The partial indexes back
// the active-set query (parent_summary_id IS NULL).
const Schema = `
CREATE TABLE IF NOT EXISTS foldpg_summaries (
	id                UUID PRIMARY KEY,
	date_from         TIMESTAMPTZ NOT NULL,
	date_to           TIMESTAMPTZ NOT NULL,
	content           TEXT NOT NULL,
	level             INTEGER NOT NULL CHECK (level >= 1),
	token_cost        INTEGER NOT NULL CHECK (token_cost >= 0),
	parent_summary_id UUID REFERENCES foldpg_summaries(id)
);

CREATE TABLE IF NOT EXISTS foldpg_messages (
	id                UUID PRIMARY KEY,
	created_at        TIMESTAMPTZ NOT NULL,
	user_content      TEXT NOT NULL,
	assistant_content TEXT NOT NULL,
	token_cost        INTEGER NOT NULL CHECK (token_cost >= 0),
	parent_summary_id UUID REFERENCES foldpg_summaries(id)
);

CREATE INDEX IF NOT EXISTS foldpg_messages_active_idx
	ON foldpg_messages (created_at) WHERE parent_summary_id IS NULL;

CREATE INDEX IF NOT EXISTS foldpg_summaries_active_idx
	ON foldpg_summaries (date_to) WHERE parent_summary_id IS NULL;
`

// Migrate applies the timeline schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("%w: apply schema: %v", ErrStorage, err)
	}
	return nil
}

// txContextKey is the context key for storing pgx.Tx.
type txContextKey struct{}

// WithTx returns a new context carrying the given transaction. Store
// methods called with this context run inside it.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext retrieves the transaction from context, or nil if not present.
func TxFromContext(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(txContextKey{}).(pgx.Tx); ok {
		return tx
	}
	return nil
}

// querier is the common interface of pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on PostgreSQL using pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// getQuerier returns the transaction from context if present, otherwise the pool.
func (s *PostgresStore) getQuerier(ctx context.Context) querier {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return s.pool
}

// AppendMessage inserts a new message row.
func (s *PostgresStore) AppendMessage(ctx context.Context, msg *Message) error {
	query := `
		INSERT INTO foldpg_messages (id, created_at, user_content, assistant_content, token_cost, parent_summary_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.getQuerier(ctx).Exec(ctx, query,
		msg.ID, msg.CreatedAt, msg.UserContent, msg.AssistantContent, msg.TokenCost, msg.ParentSummaryID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: message %s", ErrDuplicateID, msg.ID)
		}
		return fmt.Errorf("%w: append message: %v", ErrStorage, err)
	}

	return nil
}

// AppendSummary inserts a new summary row.
func (s *PostgresStore) AppendSummary(ctx context.Context, sum *Summary) error {
	query := `
		INSERT INTO foldpg_summaries (id, date_from, date_to, content, level, token_cost, parent_summary_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.getQuerier(ctx).Exec(ctx, query,
		sum.ID, sum.DateFrom, sum.DateTo, sum.Content, sum.Level, sum.TokenCost, sum.ParentSummaryID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: summary %s", ErrDuplicateID, sum.ID)
		}
		return fmt.Errorf("%w: append summary: %v", ErrStorage, err)
	}

	return nil
}

// ListActiveMessages returns all unparented messages ordered by creation time.
func (s *PostgresStore) ListActiveMessages(ctx context.Context) ([]*Message, error) {
	return s.queryMessages(ctx, `
		SELECT id, created_at, user_content, assistant_content, token_cost, parent_summary_id
		FROM foldpg_messages
		WHERE parent_summary_id IS NULL
		ORDER BY created_at ASC
	`)
}

// ListAllMessages returns every message ordered by creation time.
func (s *PostgresStore) ListAllMessages(ctx context.Context) ([]*Message, error) {
	return s.queryMessages(ctx, `
		SELECT id, created_at, user_content, assistant_content, token_cost, parent_summary_id
		FROM foldpg_messages
		ORDER BY created_at ASC
	`)
}

// ListActiveSummaries returns all unparented summaries ordered by their end timestamp.
func (s *PostgresStore) ListActiveSummaries(ctx context.Context) ([]*Summary, error) {
	return s.querySummaries(ctx, `
		SELECT id, date_from, date_to, content, level, token_cost, parent_summary_id
		FROM foldpg_summaries
		WHERE parent_summary_id IS NULL
		ORDER BY date_to ASC
	`)
}

// ListAllSummaries returns every summary ordered by its end timestamp.
func (s *PostgresStore) ListAllSummaries(ctx context.Context) ([]*Summary, error) {
	return s.querySummaries(ctx, `
		SELECT id, date_from, date_to, content, level, token_cost, parent_summary_id
		FROM foldpg_summaries
		ORDER BY date_to ASC
	`)
}

// AtomicCompact inserts the summary and reparents every source in a single
// transaction. The reparenting updates are guarded on the parent still
// being NULL; a row-count mismatch means some source was missing or
// already compacted, and the whole transaction rolls back.
func (s *PostgresStore) AtomicCompact(ctx context.Context, sum *Summary, messageIDs, summaryIDs []uuid.UUID) error {
	run := func(ctx context.Context) error {
		if err := s.AppendSummary(ctx, sum); err != nil {
			return err
		}

		if len(messageIDs) > 0 {
			tag, err := s.getQuerier(ctx).Exec(ctx, `
				UPDATE foldpg_messages
				SET parent_summary_id = $1
				WHERE id = ANY($2) AND parent_summary_id IS NULL
			`, sum.ID, messageIDs)
			if err != nil {
				return fmt.Errorf("%w: reparent messages: %v", ErrStorage, err)
			}
			if int(tag.RowsAffected()) != len(messageIDs) {
				return fmt.Errorf("%w: expected %d active messages, matched %d",
					ErrSourceNotActive, len(messageIDs), tag.RowsAffected())
			}
		}

		if len(summaryIDs) > 0 {
			tag, err := s.getQuerier(ctx).Exec(ctx, `
				UPDATE foldpg_summaries
				SET parent_summary_id = $1
				WHERE id = ANY($2) AND parent_summary_id IS NULL
			`, sum.ID, summaryIDs)
			if err != nil {
				return fmt.Errorf("%w: reparent summaries: %v", ErrStorage, err)
			}
			if int(tag.RowsAffected()) != len(summaryIDs) {
				return fmt.Errorf("%w: expected %d active summaries, matched %d",
					ErrSourceNotActive, len(summaryIDs), tag.RowsAffected())
			}
		}

		return nil
	}

	// Join a caller-provided transaction when present.
	if TxFromContext(ctx) != nil {
		return run(ctx)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin compact transaction: %v", ErrStorage, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if err := run(WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit compact transaction: %v", ErrStorage, err)
	}

	return nil
}

func (s *PostgresStore) queryMessages(ctx context.Context, query string) ([]*Message, error) {
	rows, err := s.getQuerier(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query messages: %v", ErrStorage, err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.CreatedAt, &msg.UserContent,
			&msg.AssistantContent, &msg.TokenCost, &msg.ParentSummaryID); err != nil {
			return nil, fmt.Errorf("%w: scan message: %v", ErrStorage, err)
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate messages: %v", ErrStorage, err)
	}

	return messages, nil
}

func (s *PostgresStore) querySummaries(ctx context.Context, query string) ([]*Summary, error) {
	rows, err := s.getQuerier(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query summaries: %v", ErrStorage, err)
	}
	defer rows.Close()

	var summaries []*Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.DateFrom, &sum.DateTo, &sum.Content,
			&sum.Level, &sum.TokenCost, &sum.ParentSummaryID); err != nil {
			return nil, fmt.Errorf("%w: scan summary: %v", ErrStorage, err)
		}
		summaries = append(summaries, &sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate summaries: %v", ErrStorage, err)
	}

	return summaries, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
