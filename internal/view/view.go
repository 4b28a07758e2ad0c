// Package view decides which top-level screen is shown.
package view

import "campus/internal/session"

type Kind int

const (
	KindAuth Kind = iota
	KindDashboard
)

func (k Kind) String() string {
	if k == KindDashboard {
		return "dashboard"
	}
	return "auth"
}

// View is the screen to render. Session is only set for the dashboard.
type View struct {
	Kind    Kind
	Session session.Session
}

// Source reports the current session.
type Source interface {
	Current() (session.Session, bool)
}

// Select returns the auth view when logged out and the dashboard otherwise.
func Select(src Source) View {
	s, ok := src.Current()
	if !ok {
		return View{Kind: KindAuth}
	}
	return View{Kind: KindDashboard, Session: s}
}
