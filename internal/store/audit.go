package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned by Get for an unknown ID.
var ErrNotFound = errors.New("audit entry not found")

// Status is the outcome of a tool call.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Entry is one recorded tool call.
type Entry struct {
	Seq       int64         `json:"seq"`
	ID        string        `json:"id"`
	Tool      string        `json:"tool"`
	Args      string        `json:"args"` // canonical JSON object
	Status    Status        `json:"status"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Output    string        `json:"output"`
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"`
}

// Filter narrows List. Zero values mean "no restriction".
type Filter struct {
	Tool  string
	Limit int // most recent N entries
}

// MarshalArgs renders tool arguments as canonical JSON: object keys are
// sorted, so equal argument maps always produce equal text.
func MarshalArgs(args map[string]any) (string, error) {
	if args == nil {
		return "{}", nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// Write appends an entry. ID and CreatedAt are assigned when empty; the
// returned entry carries its seq.
func (s *Store) Write(ctx context.Context, e Entry) (Entry, error) {
	if e.Tool == "" {
		return Entry{}, fmt.Errorf("write entry: tool name is required")
	}
	if e.Status == "" {
		e.Status = StatusSuccess
	}
	if e.ID == "" {
		e.ID = s.ids.Generate()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock.Now()
	}
	if strings.TrimSpace(e.Args) == "" {
		e.Args = "{}"
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tool_calls
		(id, tool, args, status, error_kind, output, duration_us, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Tool,
		e.Args,
		string(e.Status),
		e.ErrorKind,
		e.Output,
		e.Duration.Microseconds(),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("write entry: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("write entry: seq: %w", err)
	}
	e.Seq = seq
	return e, nil
}

// List returns entries in ascending seq order. With a Limit, only the most
// recent Limit entries are returned, still in ascending order.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	query := `SELECT seq, id, tool, args, status, error_kind, output, duration_us, created_at FROM tool_calls`
	var args []any
	if f.Tool != "" {
		query += ` WHERE tool = ?`
		args = append(args, f.Tool)
	}
	if f.Limit > 0 {
		query = `SELECT * FROM (` + query + ` ORDER BY seq DESC LIMIT ?)`
		args = append(args, f.Limit)
	}
	query += ` ORDER BY seq ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Get returns one entry by ID.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, tool, args, status, error_kind, output, duration_us, created_at
		FROM tool_calls WHERE id = ?
	`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

// Count returns the number of recorded entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tool_calls`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e          Entry
		status     string
		durationUS int64
		createdAt  string
	)
	if err := row.Scan(&e.Seq, &e.ID, &e.Tool, &e.Args, &status, &e.ErrorKind, &e.Output, &durationUS, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}
	e.Status = Status(status)
	e.Duration = time.Duration(durationUS) * time.Microsecond

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("scan entry %s: created_at: %w", e.ID, err)
	}
	e.CreatedAt = t
	return e, nil
}
