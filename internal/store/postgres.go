package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"campus/internal/auth"
	"campus/internal/records"
)

const uniqueViolation = "23505"

// Postgres persists records in Postgres.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a repository on an open connection.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) CreateUser(ctx context.Context, u records.User) (records.User, error) {
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO users (username, full_name, hashed_password, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, u.Username, u.FullName, u.HashedPassword, string(u.Role))
	if err := row.Scan(&u.ID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return records.User{}, records.ErrUsernameTaken
		}
		return records.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (p *Postgres) UserByUsername(ctx context.Context, username string) (*records.User, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id, username, full_name, hashed_password, role
		FROM users WHERE username = $1
	`, username)
	var (
		u    records.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.HashedPassword, &role); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Role = auth.Role(role)
	return &u, nil
}

func (p *Postgres) InsertAttendance(ctx context.Context, a records.Attendance) (records.Attendance, error) {
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO attendance (student_id, marked_by, date, status, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, a.StudentID, a.MarkedBy, a.Date, a.Status, a.Note)
	if err := row.Scan(&a.ID); err != nil {
		return records.Attendance{}, fmt.Errorf("insert attendance: %w", err)
	}
	return a, nil
}

func (p *Postgres) AttendanceByStudent(ctx context.Context, studentID int64) ([]records.Attendance, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, student_id, marked_by, date, status, note
		FROM attendance WHERE student_id = $1
		ORDER BY id
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []records.Attendance
	for rows.Next() {
		var a records.Attendance
		if err := rows.Scan(&a.ID, &a.StudentID, &a.MarkedBy, &a.Date, &a.Status, &a.Note); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (p *Postgres) InsertMark(ctx context.Context, m records.Mark) (records.Mark, error) {
	row := p.db.QueryRowContext(ctx, `
		INSERT INTO marks (student_id, subject, marks, uploaded_by, uploaded_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, m.StudentID, m.Subject, m.Marks, m.UploadedBy, m.UploadedAt)
	if err := row.Scan(&m.ID); err != nil {
		return records.Mark{}, fmt.Errorf("insert marks: %w", err)
	}
	return m, nil
}

func (p *Postgres) MarksByStudent(ctx context.Context, studentID int64) ([]records.Mark, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, student_id, subject, marks, uploaded_by, uploaded_at
		FROM marks WHERE student_id = $1
		ORDER BY id
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []records.Mark
	for rows.Next() {
		var m records.Mark
		if err := rows.Scan(&m.ID, &m.StudentID, &m.Subject, &m.Marks, &m.UploadedBy, &m.UploadedAt); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
