package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB creates a Postgres connection with sane defaults.
func NewDB(ctx context.Context, connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	return &DB{Client: db}, db.PingContext(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id              BIGSERIAL PRIMARY KEY,
	username        TEXT UNIQUE NOT NULL,
	full_name       TEXT NOT NULL DEFAULT '',
	hashed_password TEXT NOT NULL,
	role            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS attendance (
	id         BIGSERIAL PRIMARY KEY,
	student_id BIGINT NOT NULL,
	marked_by  BIGINT NOT NULL REFERENCES users(id),
	date       TEXT NOT NULL,
	status     TEXT NOT NULL,
	note       TEXT
);

CREATE TABLE IF NOT EXISTS marks (
	id          BIGSERIAL PRIMARY KEY,
	student_id  BIGINT NOT NULL,
	subject     TEXT NOT NULL,
	marks       INTEGER NOT NULL,
	uploaded_by BIGINT NOT NULL REFERENCES users(id),
	uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance(student_id);
CREATE INDEX IF NOT EXISTS idx_marks_student ON marks(student_id);
`

// Migrate creates the records tables if they do not exist.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.Client.ExecContext(ctx, schema)
	return err
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
