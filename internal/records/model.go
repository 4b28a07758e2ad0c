package records

import (
	"time"

	"campus/internal/auth"
)

// AttendanceStatus is the state recorded for a student on a date.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
)

// User is a registered account.
type User struct {
	ID             int64
	Username       string
	FullName       string
	HashedPassword string
	Role           auth.Role
}

// Attendance is one attendance entry for a student.
type Attendance struct {
	ID        int64   `json:"id"`
	StudentID int64   `json:"student_id"`
	MarkedBy  int64   `json:"marked_by"`
	Date      string  `json:"date"`
	Status    string  `json:"status"`
	Note      *string `json:"note"`
}

// Mark is one uploaded score for a student.
type Mark struct {
	ID         int64     `json:"id"`
	StudentID  int64     `json:"-"`
	Subject    string    `json:"subject"`
	Marks      int       `json:"marks"`
	UploadedBy int64     `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Event types published after a successful mutation.
const (
	EventAttendanceMarked = "attendance.marked"
	EventMarksUploaded    = "marks.uploaded"
)

// Event describes a record mutation for the audit trail.
type Event struct {
	Type      string    `json:"type"`
	RecordID  int64     `json:"record_id"`
	StudentID int64     `json:"student_id"`
	ActorID   int64     `json:"actor_id"`
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}
