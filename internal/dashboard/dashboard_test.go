package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"campus/internal/apiclient"
	"campus/internal/auth"
	"campus/internal/notify"
	"campus/internal/session"
)

type call struct {
	method, path, credential string
	query                    url.Values
}

type fakeAPI struct {
	mu    sync.Mutex
	calls []call
	get   map[string]apiclient.Result
	post  apiclient.Result
}

func (f *fakeAPI) AuthedGet(_ context.Context, path, credential string) apiclient.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: http.MethodGet, path: path, credential: credential})
	return f.get[path]
}

func (f *fakeAPI) AuthedPost(_ context.Context, path string, query url.Values, credential string) apiclient.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{method: http.MethodPost, path: path, credential: credential, query: query})
	return f.post
}

func ok(body string) apiclient.Result {
	return apiclient.Result{Status: http.StatusOK, Payload: json.RawMessage(body)}
}

func sessionFor(role auth.Role) session.Session {
	return session.Session{Credential: "tok", Identity: session.Identity{Username: "alice", Role: role}}
}

func TestPanelsFollowRole(t *testing.T) {
	cases := []struct {
		role           auth.Role
		teacher, admin bool
	}{
		{auth.RoleStudent, false, false},
		{auth.RoleTeacher, true, false},
		{auth.RoleAdmin, false, true},
	}
	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			d := New(&fakeAPI{}, sessionFor(tc.role), &notify.Recorder{})
			if _, ok := d.TeacherPanel(); ok != tc.teacher {
				t.Fatalf("teacher panel = %v", ok)
			}
			msg, ok := d.AdminPanel()
			if ok != tc.admin {
				t.Fatalf("admin panel = %v", ok)
			}
			if ok && msg != AdminNotice {
				t.Fatalf("admin text = %q", msg)
			}

			var out bytes.Buffer
			if err := d.Render(&out); err != nil {
				t.Fatal(err)
			}
			if strings.Contains(out.String(), "Teacher actions") != tc.teacher {
				t.Fatalf("teacher section rendered = %v", !tc.teacher)
			}
			if strings.Contains(out.String(), AdminNotice) != tc.admin {
				t.Fatalf("admin section rendered = %v", !tc.admin)
			}
		})
	}
}

func TestTeacherActionsRefuseOtherRoles(t *testing.T) {
	api := &fakeAPI{post: ok(`{}`)}
	d := New(api, sessionFor(auth.RoleStudent), &notify.Recorder{})
	forged := &TeacherPanel{d: d}

	if res := forged.MarkAttendance(context.Background(), "1", "present"); !errors.Is(res.Err, ErrNotPermitted) {
		t.Fatalf("mark = %+v", res)
	}
	if res := forged.UploadMarks(context.Background(), "1", "Math", 80); !errors.Is(res.Err, ErrNotPermitted) {
		t.Fatalf("upload = %+v", res)
	}
	if len(api.calls) != 0 {
		t.Fatalf("no request should be sent, got %v", api.calls)
	}
}

func TestTeacherWelcome(t *testing.T) {
	d := New(&fakeAPI{}, sessionFor(auth.RoleTeacher), &notify.Recorder{})
	var out bytes.Buffer
	if err := d.Render(&out); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "Welcome, alice (teacher)\n"+studentHint) {
		t.Fatalf("render = %q", out.String())
	}
}

func TestPartialFetchFailure(t *testing.T) {
	api := &fakeAPI{get: map[string]apiclient.Result{
		"/attendance/student/5": ok(`[{"id":1,"status":"present"}]`),
		"/marks/student/5":      {Status: http.StatusInternalServerError, Err: errors.New("500")},
	}}
	var rec notify.Recorder
	d := New(api, sessionFor(auth.RoleTeacher), &rec)

	d.LoadStudent(context.Background(), "5")

	if string(d.Attendance()) != `[{"id":1,"status":"present"}]` {
		t.Fatalf("attendance = %s", d.Attendance())
	}
	if string(d.Marks()) != "[]" {
		t.Fatalf("marks = %s", d.Marks())
	}
	if msgs := rec.Messages(); len(msgs) != 1 || msgs[0] != "Failed to fetch marks" {
		t.Fatalf("notices = %v", msgs)
	}
	for _, c := range api.calls {
		if c.credential != "tok" {
			t.Fatalf("call without bearer: %+v", c)
		}
	}
}

func TestBothFetchesFailIndependently(t *testing.T) {
	var rec notify.Recorder
	d := New(&fakeAPI{get: map[string]apiclient.Result{}}, sessionFor(auth.RoleStudent), &rec)
	d.LoadStudent(context.Background(), "9")

	msgs := rec.Messages()
	if len(msgs) != 2 {
		t.Fatalf("notices = %v", msgs)
	}
	got := map[string]bool{msgs[0]: true, msgs[1]: true}
	if !got["Failed to fetch attendance"] || !got["Failed to fetch marks"] {
		t.Fatalf("notices = %v", msgs)
	}
}

func TestMarkAttendanceShowsPayload(t *testing.T) {
	api := &fakeAPI{post: ok(`{"msg":"marked","attendance_id":7}`)}
	var rec notify.Recorder
	d := New(api, sessionFor(auth.RoleTeacher), &rec)
	panel, ok := d.TeacherPanel()
	if !ok {
		t.Fatal("teacher panel missing")
	}

	panel.MarkAttendance(context.Background(), "42", "absent")

	if len(api.calls) != 1 {
		t.Fatalf("calls = %v", api.calls)
	}
	c := api.calls[0]
	if c.path != "/attendance/mark" || c.credential != "tok" {
		t.Fatalf("call = %+v", c)
	}
	if c.query.Encode() != "status=absent&student_id=42" {
		t.Fatalf("query = %s", c.query.Encode())
	}
	if msgs := rec.Messages(); len(msgs) != 1 || msgs[0] != `{"msg":"marked","attendance_id":7}` {
		t.Fatalf("notices = %v", msgs)
	}
}

func TestUploadMarksQuery(t *testing.T) {
	api := &fakeAPI{post: apiclient.Result{Status: http.StatusForbidden, Payload: json.RawMessage(`{"detail":"Operation not permitted"}`), Err: errors.New("403")}}
	var rec notify.Recorder
	panel, _ := New(api, sessionFor(auth.RoleTeacher), &rec).TeacherPanel()

	panel.UploadMarks(context.Background(), "3", DefaultSubject, DefaultScore)

	if q := api.calls[0].query.Encode(); q != "marks=80&student_id=3&subject=Math" {
		t.Fatalf("query = %s", q)
	}
	if msgs := rec.Messages(); msgs[0] != `{"detail":"Operation not permitted"}` {
		t.Fatalf("failure payload should be shown verbatim, got %v", msgs)
	}
}

func TestRenderIndentsSlots(t *testing.T) {
	api := &fakeAPI{get: map[string]apiclient.Result{
		"/attendance/student/1": ok(`[{"id":1}]`),
		"/marks/student/1":      ok(`[]`),
	}}
	d := New(api, sessionFor(auth.RoleStudent), &notify.Recorder{})
	d.LoadStudent(context.Background(), "1")

	var out bytes.Buffer
	if err := d.Render(&out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Attendance\n[\n  {\n    \"id\": 1\n  }\n]\n") {
		t.Fatalf("render = %q", out.String())
	}
}

// gatedAPI holds each request until the test releases it.
type gatedAPI struct {
	started chan string
	release map[string]chan apiclient.Result
}

func (g *gatedAPI) AuthedGet(_ context.Context, path, _ string) apiclient.Result {
	g.started <- path
	return <-g.release[path]
}

func (g *gatedAPI) AuthedPost(context.Context, string, url.Values, string) apiclient.Result {
	return apiclient.Result{}
}

func overlappingLoads(t *testing.T, opts ...Option) *Dashboard {
	t.Helper()
	g := &gatedAPI{
		started: make(chan string, 4),
		release: map[string]chan apiclient.Result{
			"/attendance/student/1": make(chan apiclient.Result, 1),
			"/marks/student/1":      make(chan apiclient.Result, 1),
			"/attendance/student/2": make(chan apiclient.Result, 1),
			"/marks/student/2":      make(chan apiclient.Result, 1),
		},
	}
	d := New(g, sessionFor(auth.RoleTeacher), &notify.Recorder{}, opts...)

	var first sync.WaitGroup
	first.Add(1)
	go func() {
		defer first.Done()
		d.LoadStudent(context.Background(), "1")
	}()
	<-g.started
	<-g.started

	// second load completes while the first is still in flight
	g.release["/attendance/student/2"] <- ok(`["second"]`)
	g.release["/marks/student/2"] <- ok(`["second"]`)
	d.LoadStudent(context.Background(), "2")
	<-g.started
	<-g.started

	g.release["/attendance/student/1"] <- ok(`["first"]`)
	g.release["/marks/student/1"] <- ok(`["first"]`)
	first.Wait()
	return d
}

func TestOverlappingLoadsLastWriteWins(t *testing.T) {
	d := overlappingLoads(t)
	if string(d.Attendance()) != `["first"]` || string(d.Marks()) != `["first"]` {
		t.Fatalf("attendance=%s marks=%s", d.Attendance(), d.Marks())
	}
}

func TestStaleGuardKeepsNewestLoad(t *testing.T) {
	d := overlappingLoads(t, WithStaleGuard())
	if string(d.Attendance()) != `["second"]` || string(d.Marks()) != `["second"]` {
		t.Fatalf("attendance=%s marks=%s", d.Attendance(), d.Marks())
	}
}

func TestLoadStudentOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/attendance/student/5":
			_, _ = w.Write([]byte(`[{"id":1,"student_id":5,"marked_by":1,"date":"2024-01-01T00:00:00.000000","status":"present","note":null}]`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	var rec notify.Recorder
	d := New(apiclient.New(srv.URL), sessionFor(auth.RoleTeacher), &rec)
	d.LoadStudent(context.Background(), "5")

	if !strings.Contains(string(d.Attendance()), `"student_id":5`) {
		t.Fatalf("attendance = %s", d.Attendance())
	}
	if string(d.Marks()) != "[]" {
		t.Fatalf("marks = %s", d.Marks())
	}
	if msgs := rec.Messages(); len(msgs) != 1 || msgs[0] != "Failed to fetch marks" {
		t.Fatalf("notices = %v", msgs)
	}
}
