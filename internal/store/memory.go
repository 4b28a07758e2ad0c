package store

import (
	"context"
	"sync"

	"campus/internal/records"
)

// Memory is a mutex-guarded repository for dev and tests. Contents are lost on exit.
type Memory struct {
	mu         sync.RWMutex
	users      map[string]records.User
	attendance []records.Attendance
	marks      []records.Mark
	nextUser   int64
	nextAtt    int64
	nextMark   int64
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{users: make(map[string]records.User)}
}

func (m *Memory) CreateUser(_ context.Context, u records.User) (records.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Username]; ok {
		return records.User{}, records.ErrUsernameTaken
	}
	m.nextUser++
	u.ID = m.nextUser
	m.users[u.Username] = u
	return u, nil
}

func (m *Memory) UserByUsername(_ context.Context, username string) (*records.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *Memory) InsertAttendance(_ context.Context, a records.Attendance) (records.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextAtt++
	a.ID = m.nextAtt
	m.attendance = append(m.attendance, a)
	return a, nil
}

func (m *Memory) AttendanceByStudent(_ context.Context, studentID int64) ([]records.Attendance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []records.Attendance
	for _, a := range m.attendance {
		if a.StudentID == studentID {
			res = append(res, a)
		}
	}
	return res, nil
}

func (m *Memory) InsertMark(_ context.Context, mk records.Mark) (records.Mark, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextMark++
	mk.ID = m.nextMark
	m.marks = append(m.marks, mk)
	return mk, nil
}

func (m *Memory) MarksByStudent(_ context.Context, studentID int64) ([]records.Mark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []records.Mark
	for _, mk := range m.marks {
		if mk.StudentID == studentID {
			res = append(res, mk)
		}
	}
	return res, nil
}

func (m *Memory) Ping(context.Context) error { return nil }
