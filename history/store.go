// Package history persists one row per pipeline run in the generations table.
package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/kenjpais/diagram-generator/db"
	"github.com/kenjpais/diagram-generator/errors"
)

// Run statuses
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// DefaultListLimit applies when List is called with limit <= 0
const DefaultListLimit = 20

// Generation is the record of one pipeline run
type Generation struct {
	ID           string        `json:"id"` // pipeline run id
	Request      string        `json:"request"`
	DocumentPath string        `json:"document_path,omitempty"`
	Title        string        `json:"title,omitempty"`
	Strategy     string        `json:"strategy"`
	Status       string        `json:"status"`
	Attempts     int           `json:"attempts"`
	Validations  int           `json:"validations"`
	ArtifactPath string        `json:"artifact_path,omitempty"`
	SourcePath   string        `json:"source_path,omitempty"`
	Format       string        `json:"format,omitempty"`
	Error        string        `json:"error,omitempty"`
	Duration     time.Duration `json:"duration"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Store reads and writes generation records
type Store struct {
	db *sql.DB
}

// NewStore wraps an open, migrated database
func NewStore(conn *sql.DB) *Store {
	return &Store{db: conn}
}

// Save inserts a record. A zero CreatedAt is set to now.
func (s *Store) Save(ctx context.Context, g *Generation) error {
	if g == nil || g.ID == "" {
		return errors.NewInvalidRequestError("generation record requires an id")
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO generations (
			id, request, document_path, title, strategy, status, attempts,
			validations, artifact_path, source_path, format, error_message,
			duration_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		g.ID, g.Request, nullable(g.DocumentPath), nullable(g.Title), g.Strategy, g.Status,
		g.Attempts, g.Validations, nullable(g.ArtifactPath), nullable(g.SourcePath),
		nullable(g.Format), nullable(g.Error), g.Duration.Milliseconds(), g.CreatedAt,
	)
	if err != nil {
		if db.IsDatabaseClosed(err) {
			return errors.Mark(errors.Wrapf(err, "failed to save generation %s", g.ID), db.ErrDatabaseClosed)
		}
		return errors.Wrapf(err, "failed to save generation %s", g.ID)
	}
	return nil
}

const selectColumns = `
	SELECT id, request, document_path, title, strategy, status, attempts,
		validations, artifact_path, source_path, format, error_message,
		duration_ms, created_at
	FROM generations`

// List returns the most recent records, newest first
func (s *Store) List(ctx context.Context, limit int) ([]Generation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query generations")
	}
	defer rows.Close()

	var out []Generation
	for rows.Next() {
		g, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate generations")
	}
	return out, nil
}

// Get returns one record by run id. A missing id gives sql.ErrNoRows.
func (s *Store) Get(ctx context.Context, id string) (*Generation, error) {
	g, err := scan(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if err != nil {
		return nil, errors.Wrapf(err, "generation %s", id)
	}
	return g, nil
}

// Stats summarizes all stored runs
type Stats struct {
	Total          int            `json:"total"`
	ByStatus       map[string]int `json:"by_status"`
	AvgValidations float64        `json:"avg_validations"`
	AvgDurationMS  float64        `json:"avg_duration_ms"`
	Last           *time.Time     `json:"last,omitempty"`
}

// Stats counts runs per status and averages validations and duration
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(validations), 0), COALESCE(SUM(duration_ms), 0)
		FROM generations
		GROUP BY status`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query generation stats")
	}
	defer rows.Close()

	st := &Stats{ByStatus: make(map[string]int)}
	var validations, durationMS int64
	for rows.Next() {
		var (
			status     string
			n          int
			vals, durs int64
		)
		if err := rows.Scan(&status, &n, &vals, &durs); err != nil {
			return nil, errors.Wrap(err, "failed to scan generation stats")
		}
		st.ByStatus[status] = n
		st.Total += n
		validations += vals
		durationMS += durs
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate generation stats")
	}
	if st.Total == 0 {
		return st, nil
	}
	st.AvgValidations = float64(validations) / float64(st.Total)
	st.AvgDurationMS = float64(durationMS) / float64(st.Total)

	var last time.Time
	if err := s.db.QueryRowContext(ctx, `SELECT created_at FROM generations ORDER BY created_at DESC, rowid DESC LIMIT 1`).Scan(&last); err != nil {
		return nil, errors.Wrap(err, "failed to query latest generation")
	}
	st.Last = &last
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*Generation, error) {
	var (
		g                                            Generation
		doc, title, artifact, source, format, errMsg sql.NullString
		durationMS                                   int64
	)
	err := row.Scan(&g.ID, &g.Request, &doc, &title, &g.Strategy, &g.Status, &g.Attempts,
		&g.Validations, &artifact, &source, &format, &errMsg, &durationMS, &g.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan generation")
	}
	g.DocumentPath = doc.String
	g.Title = title.String
	g.ArtifactPath = artifact.String
	g.SourcePath = source.String
	g.Format = format.String
	g.Error = errMsg.String
	g.Duration = time.Duration(durationMS) * time.Millisecond
	return &g, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
