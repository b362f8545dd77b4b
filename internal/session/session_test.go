package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pathakanu/claudia/internal/auth"
	"github.com/pathakanu/claudia/internal/model"
	"github.com/pathakanu/claudia/internal/reminders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth struct {
	profile  *model.UserProfile
	err      error
	listener func(auth.Event)
	calls    int
}

func (f *fakeAuth) Profile(context.Context, *auth.Session) (*model.UserProfile, error) {
	f.calls++
	return f.profile, f.err
}

func (f *fakeAuth) Subscribe(fn func(auth.Event)) func() {
	f.listener = fn
	return func() { f.listener = nil }
}

type memStore struct {
	rows    []model.Reminder
	listErr error
}

func (s *memStore) ListByUser(context.Context, string) ([]model.Reminder, error) {
	return s.rows, s.listErr
}

func (s *memStore) Insert(_ context.Context, r *model.Reminder) error {
	r.ID = "new"
	s.rows = append(s.rows, *r)
	return nil
}

func TestManagerLifecycle(t *testing.T) {
	t.Parallel()
	fa := &fakeAuth{profile: &model.UserProfile{ID: "u1", Phone: "573128310805"}}
	store := &memStore{rows: []model.Reminder{{ID: "a", UserID: "u1", Date: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)}}}
	m := NewManager(fa, store, reminders.Options{Location: time.UTC}, nil)
	ctx := context.Background()

	sess := &auth.Session{ID: "s1", UserID: "u1", Phone: "111"}
	st, err := m.State(ctx, sess)
	require.NoError(t, err)
	assert.Len(t, st.Calendar.Reminders(), 1)
	assert.Equal(t, reminders.Contacts{Profile: "573128310805", Fallback: "111"}, st.Contacts())

	again, err := m.State(ctx, sess)
	require.NoError(t, err)
	assert.Same(t, st, again)
	assert.Equal(t, 1, fa.calls)

	fa.listener(auth.Event{Kind: auth.EventSignedIn, Session: sess})
	fresh, err := m.State(ctx, sess)
	require.NoError(t, err)
	assert.NotSame(t, st, fresh)

	fa.listener(auth.Event{Kind: auth.EventSignedOut, Session: sess})
	assert.Equal(t, 0, m.Len())

	m.Close()
	assert.Nil(t, fa.listener)
}

func TestManagerLoadFailureBecomesNotice(t *testing.T) {
	t.Parallel()
	fa := &fakeAuth{profile: &model.UserProfile{ID: "u1"}}
	m := NewManager(fa, &memStore{listErr: errors.New("down")}, reminders.Options{}, nil)

	st, err := m.State(context.Background(), &auth.Session{ID: "s1", UserID: "u1"})
	require.NoError(t, err)
	notices := st.Notices.Drain()
	require.Len(t, notices, 1)
	assert.Equal(t, reminders.LevelError, notices[0].Level)
	assert.Empty(t, st.Notices.Drain())
}

func TestManagerProfileError(t *testing.T) {
	t.Parallel()
	fa := &fakeAuth{err: auth.ErrInvalidSession}
	m := NewManager(fa, &memStore{}, reminders.Options{}, nil)

	_, err := m.State(context.Background(), &auth.Session{ID: "s1", UserID: "u1"})
	assert.ErrorIs(t, err, auth.ErrInvalidSession)
	assert.Equal(t, 0, m.Len())
}

func TestPendingExpiry(t *testing.T) {
	t.Parallel()
	p := NewPending(time.Minute)
	now := time.Now()
	p.now = func() time.Time { return now }

	id := p.Put(auth.SignUpInput{Name: "Ana"})
	reg, ok := p.Get(id)
	require.True(t, ok)
	assert.Equal(t, "Ana", reg.Input.Name)

	now = now.Add(2 * time.Minute)
	_, ok = p.Get(id)
	assert.False(t, ok)

	id = p.Put(auth.SignUpInput{Name: "Luis"})
	_, ok = p.Pop(id)
	assert.True(t, ok)
	_, ok = p.Pop(id)
	assert.False(t, ok)
}

func TestManagerDropsExpiredSessions(t *testing.T) {
	t.Parallel()
	fa := &fakeAuth{profile: &model.UserProfile{ID: "u1"}}
	m := NewManager(fa, &memStore{}, reminders.Options{}, nil)
	now := time.Now()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	short := &auth.Session{ID: "s1", UserID: "u1", ExpiresAt: now.Add(time.Minute)}
	long := &auth.Session{ID: "s2", UserID: "u1", ExpiresAt: now.Add(time.Hour)}
	_, err := m.State(ctx, short)
	require.NoError(t, err)
	_, err = m.State(ctx, long)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	now = now.Add(2 * time.Minute)
	_, err = m.State(ctx, long)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	_, err = m.State(ctx, short)
	assert.ErrorIs(t, err, auth.ErrInvalidSession)
	assert.Equal(t, 1, m.Len())
}
