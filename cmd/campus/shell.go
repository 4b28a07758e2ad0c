package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"campus/internal/apiclient"
	"campus/internal/auth"
	"campus/internal/authflow"
	"campus/internal/dashboard"
	"campus/internal/notify"
	"campus/internal/session"
	"campus/internal/view"
)

// shell is the line-oriented front end. It renders whichever view the session selects and
// dispatches commands to it.
type shell struct {
	in       *bufio.Scanner
	out      io.Writer
	api      *apiclient.Client
	store    *session.Store
	flow     *authflow.Flow
	notifier notify.Notifier
	dashOpts []dashboard.Option

	// readPassword reads a secret; nil reads a plain line.
	readPassword func() (string, error)

	dash *dashboard.Dashboard
}

func newShell(in io.Reader, out io.Writer, api *apiclient.Client, n notify.Notifier, dashOpts ...dashboard.Option) *shell {
	store := session.NewStore()
	return &shell{
		in:       bufio.NewScanner(in),
		out:      out,
		api:      api,
		store:    store,
		flow:     authflow.New(api, store, n),
		notifier: n,
		dashOpts: dashOpts,
	}
}

// run reads commands until quit or end of input.
func (s *shell) run(ctx context.Context) error {
	s.render()
	for {
		fmt.Fprint(s.out, s.prompt())
		line, ok := s.readLine()
		if !ok {
			return s.in.Err()
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "quit" || fields[0] == "exit" {
			return nil
		}

		v := view.Select(s.store)
		if v.Kind == view.KindAuth {
			s.authCommand(ctx, fields)
		} else {
			s.dashboardCommand(ctx, v.Session, fields)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (s *shell) prompt() string {
	v := view.Select(s.store)
	if v.Kind == view.KindAuth {
		return s.flow.Mode().String() + "> "
	}
	return v.Session.Identity.Username + "> "
}

func (s *shell) readLine() (string, bool) {
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

func (s *shell) ask(label string) string {
	fmt.Fprint(s.out, label)
	line, _ := s.readLine()
	return line
}

func (s *shell) askPassword() string {
	fmt.Fprint(s.out, "password: ")
	if s.readPassword == nil {
		line, _ := s.readLine()
		return line
	}
	pw, err := s.readPassword()
	fmt.Fprintln(s.out)
	if err != nil {
		return ""
	}
	return pw
}

// render draws the current view.
func (s *shell) render() {
	v := view.Select(s.store)
	if v.Kind == view.KindAuth {
		s.dash = nil
		fmt.Fprintf(s.out, "School records (%s)\n", s.flow.Mode())
		fmt.Fprintln(s.out, "commands: login, register, toggle, quit")
		return
	}
	if s.dash == nil {
		s.dash = dashboard.New(s.api, v.Session, s.notifier, s.dashOpts...)
	}
	_ = s.dash.Render(s.out)
	fmt.Fprintln(s.out, "commands: load <id>, show, logout, quit")
}

func (s *shell) authCommand(ctx context.Context, fields []string) {
	switch fields[0] {
	case "toggle":
		s.flow.ToggleMode()
		s.render()
	case "login":
		username := argOr(fields, 1, "")
		if username == "" {
			username = s.ask("username: ")
		}
		password := s.askPassword()
		if _, err := s.flow.Login(ctx, username, password); err != nil {
			return
		}
		s.render()
	case "register":
		username := argOr(fields, 1, "")
		if username == "" {
			username = s.ask("username: ")
		}
		password := s.askPassword()
		role := auth.Role(argOr(fields, 2, ""))
		if role == "" {
			role = auth.Role(s.ask("role [student|teacher|admin]: "))
		}
		if role == "" {
			role = auth.RoleStudent
		}
		s.flow.Register(ctx, username, password, role)
		s.render()
	default:
		fmt.Fprintf(s.out, "unknown command %q\n", fields[0])
	}
}

func (s *shell) dashboardCommand(ctx context.Context, sess session.Session, fields []string) {
	if s.dash == nil {
		s.dash = dashboard.New(s.api, sess, s.notifier, s.dashOpts...)
	}
	switch fields[0] {
	case "load":
		if len(fields) < 2 {
			fmt.Fprintln(s.out, "usage: load <student_id>")
			return
		}
		s.dash.LoadStudent(ctx, fields[1])
		s.render()
	case "show":
		s.render()
	case "mark":
		panel, ok := s.dash.TeacherPanel()
		if !ok || len(fields) < 2 {
			s.unknown(fields[0], ok, "mark <student_id> <present|absent>")
			return
		}
		panel.MarkAttendance(ctx, fields[1], argOr(fields, 2, dashboard.DefaultStatus))
	case "upload":
		panel, ok := s.dash.TeacherPanel()
		if !ok || len(fields) < 2 {
			s.unknown(fields[0], ok, "upload <student_id> <subject> <score>")
			return
		}
		score := dashboard.DefaultScore
		if raw := argOr(fields, 3, ""); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				fmt.Fprintf(s.out, "score must be a number, got %q\n", raw)
				return
			}
			score = n
		}
		panel.UploadMarks(ctx, fields[1], argOr(fields, 2, dashboard.DefaultSubject), score)
	case "logout":
		s.flow.Logout()
		s.render()
	default:
		fmt.Fprintf(s.out, "unknown command %q\n", fields[0])
	}
}

func (s *shell) unknown(cmd string, permitted bool, usage string) {
	if !permitted {
		fmt.Fprintf(s.out, "unknown command %q\n", cmd)
		return
	}
	fmt.Fprintf(s.out, "usage: %s\n", usage)
}

func argOr(fields []string, i int, fallback string) string {
	if i < len(fields) {
		return fields[i]
	}
	return fallback
}
