package records

import (
	"context"
	"fmt"
	"time"

	"campus/internal/auth"
)

// DateLayout is the layout of Attendance.Date.
const DateLayout = "2006-01-02T15:04:05.000000"

// Service applies the records rules on top of a repository.
type Service struct {
	repo       Repository
	bcryptCost int
	now        func() time.Time
}

// NewService creates a service backed by a repository.
func NewService(repo Repository, bcryptCost int) *Service {
	return &Service{repo: repo, bcryptCost: bcryptCost, now: time.Now}
}

// RegisterInput is the data needed to create an account.
type RegisterInput struct {
	Username string
	Password string
	Role     auth.Role
	FullName string
}

// Register validates and stores a new user.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	if !in.Role.Valid() {
		return User{}, ErrInvalidRole
	}
	existing, err := s.repo.UserByUsername(ctx, in.Username)
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return User{}, ErrUsernameTaken
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	return s.repo.CreateUser(ctx, User{
		Username:       in.Username,
		FullName:       in.FullName,
		HashedPassword: hash,
		Role:           in.Role,
	})
}

// Authenticate checks a username/password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, err := s.repo.UserByUsername(ctx, username)
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil || !auth.CheckPassword(u.HashedPassword, password) {
		return User{}, ErrInvalidCredentials
	}
	return *u, nil
}

// UserByUsername returns nil when the user does not exist.
func (s *Service) UserByUsername(ctx context.Context, username string) (*User, error) {
	return s.repo.UserByUsername(ctx, username)
}

// StudentAttendance lists a student's attendance. Students may only read their own.
func (s *Service) StudentAttendance(ctx context.Context, viewer User, studentID int64) ([]Attendance, error) {
	if !canView(viewer, studentID) {
		return nil, ErrForbidden
	}
	rows, err := s.repo.AttendanceByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Attendance{}
	}
	return rows, nil
}

// StudentMarks lists a student's marks. Students may only read their own.
func (s *Service) StudentMarks(ctx context.Context, viewer User, studentID int64) ([]Mark, error) {
	if !canView(viewer, studentID) {
		return nil, ErrForbidden
	}
	rows, err := s.repo.MarksByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []Mark{}
	}
	return rows, nil
}

// MarkAttendance records status for a student. The status is stored as given.
func (s *Service) MarkAttendance(ctx context.Context, by User, studentID int64, status string, note *string) (Attendance, error) {
	return s.repo.InsertAttendance(ctx, Attendance{
		StudentID: studentID,
		MarkedBy:  by.ID,
		Date:      s.now().UTC().Format(DateLayout),
		Status:    status,
		Note:      note,
	})
}

// UploadMarks records a score for a student in subject.
func (s *Service) UploadMarks(ctx context.Context, by User, studentID int64, subject string, marks int) (Mark, error) {
	return s.repo.InsertMark(ctx, Mark{
		StudentID:  studentID,
		Subject:    subject,
		Marks:      marks,
		UploadedBy: by.ID,
		UploadedAt: s.now().UTC(),
	})
}

// Healthy reports whether the repository answers.
func (s *Service) Healthy(ctx context.Context) bool {
	return s.repo.Ping(ctx) == nil
}

func canView(viewer User, studentID int64) bool {
	return viewer.Role != auth.RoleStudent || viewer.ID == studentID
}
