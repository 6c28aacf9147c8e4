package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const createJobsTable = `create table if not exists jobs(
	id text primary key,
	state text not null,
	outcome text not null default '',
	page_count integer not null default 0,
	record text not null,
	created_at DATETIME not null,
	updated_at DATETIME not null
);`

// SQLiteBackend stores records in a local SQLite database.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (or creates) the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(createJobsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create jobs table: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

// Load reads a record by id.
func (s *SQLiteBackend) Load(ctx context.Context, id string) (*Record, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `select record from jobs where id=?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select job: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("decode job record: %w", err)
	}
	return &rec, nil
}

// Save upserts a record.
func (s *SQLiteBackend) Save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode job record: %w", err)
	}

	statement := `insert into jobs (id, state, outcome, page_count, record, created_at, updated_at)
		values (?,?,?,?,?,?,?)
		on conflict(id) do update set
			state=excluded.state,
			outcome=excluded.outcome,
			page_count=excluded.page_count,
			record=excluded.record,
			updated_at=excluded.updated_at;`
	_, err = s.db.ExecContext(ctx, statement,
		rec.ID, string(rec.State), string(rec.Outcome), rec.PageCount, string(data), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert job: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}
