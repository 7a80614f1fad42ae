package timeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SQLStore implements Store on top of database/sql. It speaks the same
// schema as PostgresStore and is intended for applications that already
// hold a *sql.DB (lib/pq, pgx stdlib, or any PostgreSQL driver).
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store backed by the given database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// MigrateSQL applies the timeline schema through database/sql.
func MigrateSQL(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("%w: apply schema: %v", ErrStorage, err)
	}
	return nil
}

// AppendMessage inserts a new message row.
func (s *SQLStore) AppendMessage(ctx context.Context, msg *Message) error {
	return s.appendMessage(ctx, s.db, msg)
}

func (s *SQLStore) appendMessage(ctx context.Context, exec execer, msg *Message) error {
	query := `
		INSERT INTO foldpg_messages (id, created_at, user_content, assistant_content, token_cost, parent_summary_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := exec.ExecContext(ctx, query,
		msg.ID, msg.CreatedAt, msg.UserContent, msg.AssistantContent, msg.TokenCost, uuidPtr(msg.ParentSummaryID))
	if err != nil {
		if isPQUniqueViolation(err) {
			return fmt.Errorf("%w: message %s", ErrDuplicateID, msg.ID)
		}
		return fmt.Errorf("%w: append message: %v", ErrStorage, err)
	}

	return nil
}

// AppendSummary inserts a new summary row.
func (s *SQLStore) AppendSummary(ctx context.Context, sum *Summary) error {
	return s.appendSummary(ctx, s.db, sum)
}

func (s *SQLStore) appendSummary(ctx context.Context, exec execer, sum *Summary) error {
	query := `
		INSERT INTO foldpg_summaries (id, date_from, date_to, content, level, token_cost, parent_summary_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := exec.ExecContext(ctx, query,
		sum.ID, sum.DateFrom, sum.DateTo, sum.Content, sum.Level, sum.TokenCost, uuidPtr(sum.ParentSummaryID))
	if err != nil {
		if isPQUniqueViolation(err) {
			return fmt.Errorf("%w: summary %s", ErrDuplicateID, sum.ID)
		}
		return fmt.Errorf("%w: append summary: %v", ErrStorage, err)
	}

	return nil
}

// ListActiveMessages returns all unparented messages ordered by creation time.
func (s *SQLStore) ListActiveMessages(ctx context.Context) ([]*Message, error) {
	return s.queryMessages(ctx, `
		SELECT id, created_at, user_content, assistant_content, token_cost, parent_summary_id
		FROM foldpg_messages
		WHERE parent_summary_id IS NULL
		ORDER BY created_at ASC
	`)
}

// ListAllMessages returns every message ordered by creation time.
func (s *SQLStore) ListAllMessages(ctx context.Context) ([]*Message, error) {
	return s.queryMessages(ctx, `
		SELECT id, created_at, user_content, assistant_content, token_cost, parent_summary_id
		FROM foldpg_messages
		ORDER BY created_at ASC
	`)
}

// ListActiveSummaries returns all unparented summaries ordered by their end timestamp.
func (s *SQLStore) ListActiveSummaries(ctx context.Context) ([]*Summary, error) {
	return s.querySummaries(ctx, `
		SELECT id, date_from, date_to, content, level, token_cost, parent_summary_id
		FROM foldpg_summaries
		WHERE parent_summary_id IS NULL
		ORDER BY date_to ASC
	`)
}

// ListAllSummaries returns every summary ordered by its end timestamp.
func (s *SQLStore) ListAllSummaries(ctx context.Context) ([]*Summary, error) {
	return s.querySummaries(ctx, `
		SELECT id, date_from, date_to, content, level, token_cost, parent_summary_id
		FROM foldpg_summaries
		ORDER BY date_to ASC
	`)
}

// AtomicCompact inserts the summary and reparents every source inside one
// database/sql transaction.
func (s *SQLStore) AtomicCompact(ctx context.Context, sum *Summary, messageIDs, summaryIDs []uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin compact transaction: %v", ErrStorage, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := s.appendSummary(ctx, tx, sum); err != nil {
		return err
	}

	if len(messageIDs) > 0 {
		res, err := tx.ExecContext(ctx, `
			UPDATE foldpg_messages
			SET parent_summary_id = $1
			WHERE id = ANY($2) AND parent_summary_id IS NULL
		`, sum.ID, pq.Array(uuidStrings(messageIDs)))
		if err != nil {
			return fmt.Errorf("%w: reparent messages: %v", ErrStorage, err)
		}
		if err := checkReparented(res, len(messageIDs), "messages"); err != nil {
			return err
		}
	}

	if len(summaryIDs) > 0 {
		res, err := tx.ExecContext(ctx, `
			UPDATE foldpg_summaries
			SET parent_summary_id = $1
			WHERE id = ANY($2) AND parent_summary_id IS NULL
		`, sum.ID, pq.Array(uuidStrings(summaryIDs)))
		if err != nil {
			return fmt.Errorf("%w: reparent summaries: %v", ErrStorage, err)
		}
		if err := checkReparented(res, len(summaryIDs), "summaries"); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit compact transaction: %v", ErrStorage, err)
	}

	return nil
}

func (s *SQLStore) queryMessages(ctx context.Context, query string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query messages: %v", ErrStorage, err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var parent uuid.NullUUID
		if err := rows.Scan(&msg.ID, &msg.CreatedAt, &msg.UserContent,
			&msg.AssistantContent, &msg.TokenCost, &parent); err != nil {
			return nil, fmt.Errorf("%w: scan message: %v", ErrStorage, err)
		}
		if parent.Valid {
			id := parent.UUID
			msg.ParentSummaryID = &id
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate messages: %v", ErrStorage, err)
	}

	return messages, nil
}

func (s *SQLStore) querySummaries(ctx context.Context, query string) ([]*Summary, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query summaries: %v", ErrStorage, err)
	}
	defer rows.Close()

	var summaries []*Summary
	for rows.Next() {
		var sum Summary
		var parent uuid.NullUUID
		if err := rows.Scan(&sum.ID, &sum.DateFrom, &sum.DateTo, &sum.Content,
			&sum.Level, &sum.TokenCost, &parent); err != nil {
			return nil, fmt.Errorf("%w: scan summary: %v", ErrStorage, err)
		}
		if parent.Valid {
			id := parent.UUID
			sum.ParentSummaryID = &id
		}
		summaries = append(summaries, &sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate summaries: %v", ErrStorage, err)
	}

	return summaries, nil
}

// execer is the common interface of *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func checkReparented(res sql.Result, want int, kind string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", ErrStorage, err)
	}
	if int(affected) != want {
		return fmt.Errorf("%w: expected %d active %s, matched %d",
			ErrSourceNotActive, want, kind, affected)
	}
	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func uuidPtr(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

// isPQUniqueViolation reports whether err is a lib/pq unique_violation.
func isPQUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
