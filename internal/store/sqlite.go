package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/GalaxyBotTeam/captcha-gate/internal/domain"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS verifications (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		username TEXT NOT NULL,
		outcome TEXT NOT NULL,
		attempts_taken INTEGER NOT NULL,
		responses_json TEXT NOT NULL,
		answer TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_verifications_member ON verifications(member_id);
	CREATE INDEX IF NOT EXISTS idx_verifications_created ON verifications(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveVerification persists the terminal outcome of a session.
func (s *SQLiteStore) SaveVerification(ctx context.Context, rec *domain.VerificationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	responses, err := json.Marshal(rec.Responses)
	if err != nil {
		return fmt.Errorf("marshal responses: %w", err)
	}

	query := `
	INSERT INTO verifications (id, member_id, username, outcome, attempts_taken, responses_json, answer, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.MemberID, rec.Username, string(rec.Outcome),
		rec.AttemptsTaken, string(responses), rec.Answer, rec.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert verification: %w", err)
	}
	return nil
}

// ListVerifications returns the most recent records, newest first.
func (s *SQLiteStore) ListVerifications(ctx context.Context, limit int) ([]*domain.VerificationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
	SELECT id, member_id, username, outcome, attempts_taken, responses_json, answer, created_at
	FROM verifications ORDER BY created_at DESC, id LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query verifications: %w", err)
	}
	defer rows.Close()

	return scanVerifications(rows)
}

// GetVerificationsByMember returns all records for a member, newest first.
func (s *SQLiteStore) GetVerificationsByMember(ctx context.Context, memberID string) ([]*domain.VerificationRecord, error) {
	query := `
	SELECT id, member_id, username, outcome, attempts_taken, responses_json, answer, created_at
	FROM verifications WHERE member_id = ? ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("query member verifications: %w", err)
	}
	defer rows.Close()

	return scanVerifications(rows)
}

// CountByOutcome returns the number of stored records per outcome.
func (s *SQLiteStore) CountByOutcome(ctx context.Context) (map[domain.Outcome]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM verifications GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("count verifications: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Outcome]int64)
	for rows.Next() {
		var outcome string
		var n int64
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		counts[domain.Outcome(outcome)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate count rows: %w", err)
	}
	return counts, nil
}

func scanVerifications(rows *sql.Rows) ([]*domain.VerificationRecord, error) {
	var records []*domain.VerificationRecord
	for rows.Next() {
		var rec domain.VerificationRecord
		var outcome, responsesJSON string
		var createdAt int64

		err := rows.Scan(
			&rec.ID, &rec.MemberID, &rec.Username, &outcome,
			&rec.AttemptsTaken, &responsesJSON, &rec.Answer, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan verification row: %w", err)
		}

		if err := json.Unmarshal([]byte(responsesJSON), &rec.Responses); err != nil {
			return nil, fmt.Errorf("unmarshal responses: %w", err)
		}
		rec.Outcome = domain.Outcome(outcome)
		rec.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verification rows: %w", err)
	}
	return records, nil
}
