// Package session keeps the per-session application state of signed-in
// users: the session itself, the profile, the reminder calendar and the
// notices waiting to be shown. State is created on first use after sign-in
// and torn down when the session signs out.
package session

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/pathakanu/claudia/internal/auth"
	"github.com/pathakanu/claudia/internal/model"
	"github.com/pathakanu/claudia/internal/reminders"
)

// Auth is the part of the auth service the manager depends on.
type Auth interface {
	Profile(ctx context.Context, sess *auth.Session) (*model.UserProfile, error)
	Subscribe(fn func(auth.Event)) func()
}

// Notice is a transient message for the user.
type Notice struct {
	Level   reminders.Level `json:"level"`
	Message string          `json:"message"`
}

// Notices is a queue of notices. It implements reminders.Notifier.
type Notices struct {
	mu    sync.Mutex
	items []Notice
}

// Notify queues a notice.
func (n *Notices) Notify(level reminders.Level, message string) {
	n.mu.Lock()
	n.items = append(n.items, Notice{Level: level, Message: message})
	n.mu.Unlock()
}

// Drain returns and clears the queued notices.
func (n *Notices) Drain() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	items := n.items
	n.items = nil
	return items
}

// State is the application state of one session.
type State struct {
	Session  *auth.Session
	Profile  *model.UserProfile
	Calendar *reminders.Calendar
	Notices  *Notices
}

// Contacts returns the reminder destinations: the profile number first, then
// the number recorded on the credential.
func (s *State) Contacts() reminders.Contacts {
	c := reminders.Contacts{Fallback: s.Session.Phone}
	if s.Profile != nil {
		c.Profile = s.Profile.Phone
	}
	return c
}

// Manager owns the State of every live session.
type Manager struct {
	auth    Auth
	store   reminders.Store
	calOpts reminders.Options
	logger  *log.Logger
	now     func() time.Time

	mu          sync.Mutex
	states      map[string]*State
	unsubscribe func()
}

// NewManager creates a manager and subscribes it to session changes.
func NewManager(a Auth, store reminders.Store, calOpts reminders.Options, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	m := &Manager{
		auth:    a,
		store:   store,
		calOpts: calOpts,
		logger:  logger,
		now:     time.Now,
		states:  make(map[string]*State),
	}
	m.unsubscribe = a.Subscribe(m.handle)
	return m
}

func (m *Manager) handle(ev auth.Event) {
	if ev.Session == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	switch ev.Kind {
	case auth.EventSignedIn:
		delete(m.states, ev.Session.ID)
	case auth.EventSignedOut:
		if _, ok := m.states[ev.Session.ID]; ok {
			m.logger.Printf("session: teardown %s for user %s", ev.Session.ID, ev.Session.UserID)
		}
		delete(m.states, ev.Session.ID)
	}
}

// State returns the state of sess, initialising it on first use. A failed
// reminder load is reported through the notices and does not fail State.
// States of expired sessions are dropped on every call.
func (m *Manager) State(ctx context.Context, sess *auth.Session) (*State, error) {
	m.mu.Lock()
	m.expire()
	if expired(sess, m.now()) {
		m.mu.Unlock()
		return nil, auth.ErrInvalidSession
	}
	st, ok := m.states[sess.ID]
	m.mu.Unlock()
	if ok {
		return st, nil
	}

	profile, err := m.auth.Profile(ctx, sess)
	if err != nil {
		return nil, err
	}

	notices := &Notices{}
	calendar := reminders.NewCalendar(m.store, notices, m.calOpts)
	if err := calendar.Load(ctx, sess.UserID); err != nil {
		m.logger.Printf("session: initial reminder load for %s: %v", sess.UserID, err)
	}
	st = &State{
		Session:  sess,
		Profile:  profile,
		Calendar: calendar,
		Notices:  notices,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.states[sess.ID]; ok {
		return existing, nil
	}
	m.states[sess.ID] = st
	return st, nil
}

func expired(sess *auth.Session, now time.Time) bool {
	return !sess.ExpiresAt.IsZero() && now.After(sess.ExpiresAt)
}

// expire must be called with mu held.
func (m *Manager) expire() {
	now := m.now()
	for id, st := range m.states {
		if expired(st.Session, now) {
			m.logger.Printf("session: expired %s for user %s", id, st.Session.UserID)
			delete(m.states, id)
		}
	}
}

// Len reports the number of live states.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

// Close unsubscribes from session changes and drops every state.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.mu.Lock()
	m.states = make(map[string]*State)
	m.mu.Unlock()
}
