// Package authflow drives login and registration against the records backend.
package authflow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"campus/internal/apiclient"
	"campus/internal/auth"
	"campus/internal/notify"
	"campus/internal/session"
)

// ErrLoginFailed is returned when the backend does not hand out a usable token.
var ErrLoginFailed = errors.New("login failed")

// Mode is the auth view's current form.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

func (m Mode) String() string {
	if m == ModeRegister {
		return "register"
	}
	return "login"
}

// API is the part of the records client the flow needs.
type API interface {
	PostForm(ctx context.Context, path string, fields url.Values) apiclient.Result
	PostJSON(ctx context.Context, path string, body any) apiclient.Result
}

// SessionWriter is the part of the session store the flow writes to.
type SessionWriter interface {
	Set(credential string, id session.Identity)
	Clear()
}

type Flow struct {
	api      API
	store    SessionWriter
	notifier notify.Notifier

	mu   sync.Mutex
	mode Mode
}

func New(api API, store SessionWriter, n notify.Notifier) *Flow {
	return &Flow{api: api, store: store, notifier: n, mode: ModeLogin}
}

func (f *Flow) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// ToggleMode switches between the login and register forms and returns the new mode.
func (f *Flow) ToggleMode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mode == ModeLogin {
		f.mode = ModeRegister
	} else {
		f.mode = ModeLogin
	}
	return f.mode
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
}

// Register creates an account. The response payload is shown to the user whatever the outcome,
// and the view returns to the login form afterwards.
func (f *Flow) Register(ctx context.Context, username, password string, role auth.Role) apiclient.Result {
	res := f.api.PostJSON(ctx, "/users/register", registerRequest{
		Username: username,
		Password: password,
		Role:     string(role),
		FullName: username,
	})
	f.notifier.Notify(res.Message())

	f.mu.Lock()
	f.mode = ModeLogin
	f.mu.Unlock()
	return res
}

// Login exchanges credentials for a token and opens a session. The role comes from the token
// payload, which is decoded but not verified; the backend remains the authority on every call.
func (f *Flow) Login(ctx context.Context, username, password string) (session.Identity, error) {
	res := f.api.PostForm(ctx, "/token", url.Values{
		"username": {username},
		"password": {password},
	})
	if !res.OK() {
		return f.fail(fmt.Errorf("%w: %s", ErrLoginFailed, res.Message()))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := res.Decode(&tok); err != nil || tok.AccessToken == "" {
		return f.fail(fmt.Errorf("%w: no access token in response", ErrLoginFailed))
	}
	role, err := auth.DecodeRole(tok.AccessToken)
	if err != nil {
		return f.fail(fmt.Errorf("%w: %w", ErrLoginFailed, err))
	}

	id := session.Identity{Username: username, Role: role}
	f.store.Set(tok.AccessToken, id)
	return id, nil
}

func (f *Flow) fail(err error) (session.Identity, error) {
	f.notifier.Notify("login failed")
	return session.Identity{}, err
}

// Logout drops the session.
func (f *Flow) Logout() {
	f.store.Clear()
}
