// Package dashboard is the signed-in screen: the student record lookup plus the role-gated
// teacher and admin panels.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"sync"

	"campus/internal/apiclient"
	"campus/internal/auth"
	"campus/internal/notify"
	"campus/internal/session"
)

// ErrNotPermitted is returned by panel actions invoked under the wrong role.
var ErrNotPermitted = errors.New("not permitted for this role")

const (
	DefaultStatus  = "present"
	DefaultSubject = "Math"
	DefaultScore   = 80

	AdminNotice = "Admin features are available via API directly for now."
	studentHint = "Use your numeric user id (from registration response) as student id to test student endpoints."
)

// API is the authenticated half of the records client.
type API interface {
	AuthedGet(ctx context.Context, path, credential string) apiclient.Result
	AuthedPost(ctx context.Context, path string, query url.Values, credential string) apiclient.Result
}

type slot struct {
	data json.RawMessage
	gen  uint64
}

type Dashboard struct {
	api        API
	sess       session.Session
	notifier   notify.Notifier
	staleGuard bool

	mu         sync.Mutex
	attendance slot
	marks      slot
}

type Option func(*Dashboard)

// WithStaleGuard drops a fetch result when a newer load for the same slot has started since.
// Without it the last response to arrive wins.
func WithStaleGuard() Option {
	return func(d *Dashboard) { d.staleGuard = true }
}

func New(api API, sess session.Session, n notify.Notifier, opts ...Option) *Dashboard {
	d := &Dashboard{
		api:        api,
		sess:       sess,
		notifier:   n,
		attendance: slot{data: json.RawMessage("[]")},
		marks:      slot{data: json.RawMessage("[]")},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// LoadStudent fetches attendance and marks for a student concurrently. Each fetch fills its own
// slot as it completes and reports its own failure; neither waits on the other. LoadStudent
// returns once both have finished.
func (d *Dashboard) LoadStudent(ctx context.Context, studentID string) {
	id := url.PathEscape(studentID)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		d.fetch(ctx, "/attendance/student/"+id, &d.attendance, "Failed to fetch attendance")
	}()
	go func() {
		defer wg.Done()
		d.fetch(ctx, "/marks/student/"+id, &d.marks, "Failed to fetch marks")
	}()
	wg.Wait()
}

func (d *Dashboard) fetch(ctx context.Context, path string, s *slot, failure string) {
	d.mu.Lock()
	s.gen++
	gen := s.gen
	d.mu.Unlock()

	res := d.api.AuthedGet(ctx, path, d.sess.Credential)
	if !res.OK() {
		d.notifier.Notify(failure)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.staleGuard && gen != s.gen {
		return
	}
	s.data = res.Payload
}

// Attendance returns the attendance slot as received.
func (d *Dashboard) Attendance() json.RawMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attendance.data
}

// Marks returns the marks slot as received.
func (d *Dashboard) Marks() json.RawMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.marks.data
}

func (d *Dashboard) Identity() session.Identity {
	return d.sess.Identity
}

// TeacherPanel returns the record entry panel. It exists only for teachers.
func (d *Dashboard) TeacherPanel() (*TeacherPanel, bool) {
	if d.sess.Identity.Role != auth.RoleTeacher {
		return nil, false
	}
	return &TeacherPanel{d: d}, true
}

// AdminPanel returns the admin placeholder text. It exists only for admins.
func (d *Dashboard) AdminPanel() (string, bool) {
	if d.sess.Identity.Role != auth.RoleAdmin {
		return "", false
	}
	return AdminNotice, true
}

// TeacherPanel posts attendance and marks. Every action shows the backend payload verbatim.
type TeacherPanel struct {
	d *Dashboard
}

func (p *TeacherPanel) MarkAttendance(ctx context.Context, studentID, status string) apiclient.Result {
	return p.post(ctx, "/attendance/mark", url.Values{
		"student_id": {studentID},
		"status":     {status},
	})
}

func (p *TeacherPanel) UploadMarks(ctx context.Context, studentID, subject string, score int) apiclient.Result {
	return p.post(ctx, "/marks/upload", url.Values{
		"student_id": {studentID},
		"subject":    {subject},
		"marks":      {strconv.Itoa(score)},
	})
}

func (p *TeacherPanel) post(ctx context.Context, path string, query url.Values) apiclient.Result {
	if p == nil || p.d.sess.Identity.Role != auth.RoleTeacher {
		return apiclient.Result{Err: ErrNotPermitted}
	}
	res := p.d.api.AuthedPost(ctx, path, query, p.d.sess.Credential)
	p.d.notifier.Notify(res.Message())
	return res
}

// Render writes the dashboard as text.
func (d *Dashboard) Render(w io.Writer) error {
	id := d.sess.Identity
	var b bytes.Buffer
	fmt.Fprintf(&b, "Welcome, %s (%s)\n", id.Username, id.Role)
	fmt.Fprintf(&b, "%s\n\n", studentHint)

	fmt.Fprintln(&b, "Attendance")
	writeIndented(&b, d.Attendance())
	fmt.Fprintln(&b, "Marks")
	writeIndented(&b, d.Marks())

	if _, ok := d.TeacherPanel(); ok {
		fmt.Fprintln(&b, "\nTeacher actions")
		fmt.Fprintf(&b, "  mark <student_id> <present|absent>   (default %s)\n", DefaultStatus)
		fmt.Fprintf(&b, "  upload <student_id> <subject> <score> (default %s %d)\n", DefaultSubject, DefaultScore)
	}
	if msg, ok := d.AdminPanel(); ok {
		fmt.Fprintf(&b, "\nAdmin\n  %s\n", msg)
	}

	_, err := w.Write(b.Bytes())
	return err
}

func writeIndented(b *bytes.Buffer, raw json.RawMessage) {
	if err := json.Indent(b, raw, "", "  "); err != nil {
		b.Write(raw)
	}
	b.WriteByte('\n')
}
