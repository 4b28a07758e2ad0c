package records

import "context"

// Repository persists users, attendance and marks.
type Repository interface {
	CreateUser(ctx context.Context, u User) (User, error)
	// UserByUsername returns nil, nil when no user matches.
	UserByUsername(ctx context.Context, username string) (*User, error)
	InsertAttendance(ctx context.Context, a Attendance) (Attendance, error)
	AttendanceByStudent(ctx context.Context, studentID int64) ([]Attendance, error)
	InsertMark(ctx context.Context, m Mark) (Mark, error)
	MarksByStudent(ctx context.Context, studentID int64) ([]Mark, error)
	Ping(ctx context.Context) error
}
