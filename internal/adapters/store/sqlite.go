// Package store persists finished consultations in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hugo-lorenzo-mato/medpanel/internal/core"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// SchemaVersion is the newest schema this build understands.
const SchemaVersion = 1

// DefaultListLimit bounds List when no limit is given.
const DefaultListLimit = 50

// SQLiteStore stores case results. The full result is kept as JSON; the
// assessments and turns are also broken out so they can be queried.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB
	mu     sync.RWMutex
	now    func() time.Time
}

// NewSQLiteStore opens (or creates) the database at dbPath. Use ":memory:"
// for a throwaway store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
		// WAL mode for concurrent readers while a case is being saved
		dsn = dbPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if dbPath == ":memory:" {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	}

	s := &SQLiteStore{dbPath: dbPath, db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

func (s *SQLiteStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Table doesn't exist yet, run initial migration
		version = 0
	}
	if version > SchemaVersion {
		return core.ErrState(core.CodeSchemaVersion,
			fmt.Sprintf("database schema v%d is newer than supported v%d", version, SchemaVersion))
	}
	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

// Save persists result, replacing any earlier copy of the same case.
func (s *SQLiteStore) Save(ctx context.Context, result *core.CaseResult) error {
	if result == nil || result.Case.ID == "" {
		return core.ErrValidation(core.CodeInvalidConfig, "case result without an ID")
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling case result: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sum := result.Summary()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO cases (
			id, question, tier, choice, consensus_achieved, agreement_rate,
			advisors, total_tokens, duration_ms, result, created_at, saved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			question = excluded.question,
			tier = excluded.tier,
			choice = excluded.choice,
			consensus_achieved = excluded.consensus_achieved,
			agreement_rate = excluded.agreement_rate,
			advisors = excluded.advisors,
			total_tokens = excluded.total_tokens,
			duration_ms = excluded.duration_ms,
			result = excluded.result,
			saved_at = excluded.saved_at
	`,
		sum.ID, sum.Question, string(sum.Tier), nullableString(sum.Choice),
		sum.ConsensusAchieved, sum.AgreementRate, sum.Advisors, sum.TotalTokens,
		sum.Duration.Milliseconds(), string(payload), sum.CreatedAt.UTC(), s.now().UTC(),
	)
	if err != nil {
		return core.ErrState(core.CodeStoreFailed, "upserting case").WithCause(err)
	}

	for _, table := range []string{"assessments", "turns"} {
		// #nosec G202 -- table names are constants
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE case_id = ?", sum.ID); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	for _, d := range result.Deliberations {
		if err := insertDeliberation(ctx, tx, sum.ID, d); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return core.ErrState(core.CodeStoreFailed, "committing case").WithCause(err)
	}
	return nil
}

func insertDeliberation(ctx context.Context, tx *sql.Tx, caseID string, d core.Deliberation) error {
	for _, a := range d.Assessments {
		body, err := json.Marshal(a.Assessment)
		if err != nil {
			return fmt.Errorf("marshaling assessment: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO assessments (case_id, team_key, advisor_id, specialty, recommended, assessment)
			VALUES (?, ?, ?, ?, ?, ?)
		`, caseID, d.TeamKey, a.AdvisorID, a.Specialty, nullableString(a.Assessment.RecommendedAnswer), string(body))
		if err != nil {
			return fmt.Errorf("inserting assessment %s: %w", a.AdvisorID, err)
		}
	}
	for i, t := range d.Turns {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO turns (case_id, team_key, seq, round, speaker, specialty, topic, message, at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, caseID, d.TeamKey, i, t.Round, t.Speaker, t.Specialty, nullableString(t.Topic), t.Message, t.At.UTC())
		if err != nil {
			return fmt.Errorf("inserting turn %d: %w", i, err)
		}
	}
	return nil
}

// Get loads the full result of a case.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*core.CaseResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT result FROM cases WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound("case", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading case %s: %w", id, err)
	}

	var result core.CaseResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("decoding case %s: %w", id, err)
	}
	return &result, nil
}

// ListOptions filters and pages List.
type ListOptions struct {
	Limit  int
	Offset int
	// Tier restricts results to one complexity tier when set.
	Tier core.Tier
}

// List returns case summaries, newest first.
func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]core.CaseSummary, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}

	query := `
		SELECT id, question, tier, choice, consensus_achieved, agreement_rate,
			advisors, total_tokens, duration_ms, created_at
		FROM cases`
	args := []interface{}{}
	if opts.Tier != "" {
		query += " WHERE tier = ?"
		args = append(args, string(opts.Tier))
	}
	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, opts.Limit, opts.Offset)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing cases: %w", err)
	}
	defer rows.Close()

	var out []core.CaseSummary
	for rows.Next() {
		var (
			sum        core.CaseSummary
			tier       string
			choice     sql.NullString
			durationMS int64
		)
		if err := rows.Scan(&sum.ID, &sum.Question, &tier, &choice, &sum.ConsensusAchieved,
			&sum.AgreementRate, &sum.Advisors, &sum.TotalTokens, &durationMS, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning case: %w", err)
		}
		sum.Tier = core.Tier(tier)
		sum.Choice = choice.String
		sum.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a case and its broken-out records.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM cases WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting case %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound("case", id)
	}
	return nil
}

// SpecialtyStats counts how often each specialty has been consulted and how
// often its silent assessment matched the final decision.
type SpecialtyStats struct {
	Specialty   string `json:"specialty"`
	Assessments int    `json:"assessments"`
	Agreed      int    `json:"agreed"`
}

// Stats aggregates per-specialty participation across stored cases.
func (s *SQLiteStore) Stats(ctx context.Context) ([]SpecialtyStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT a.specialty,
			COUNT(*),
			SUM(CASE WHEN a.recommended IS NOT NULL AND a.recommended = c.choice THEN 1 ELSE 0 END)
		FROM assessments a JOIN cases c ON c.id = a.case_id
		GROUP BY a.specialty
		ORDER BY COUNT(*) DESC, a.specialty
	`)
	if err != nil {
		return nil, fmt.Errorf("aggregating stats: %w", err)
	}
	defer rows.Close()

	var out []SpecialtyStats
	for rows.Next() {
		var st SpecialtyStats
		if err := rows.Scan(&st.Specialty, &st.Assessments, &st.Agreed); err != nil {
			return nil, fmt.Errorf("scanning stats: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
