package reminders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pathakanu/claudia/internal/model"
)

type fakeStore struct {
	mu        sync.Mutex
	rows      []model.Reminder
	listErr   error
	insertErr error
	inserts   int
	nextID    int
}

func (s *fakeStore) ListByUser(_ context.Context, userID string) ([]model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.Reminder
	for _, r := range s.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) Insert(_ context.Context, r *model.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	if s.insertErr != nil {
		return s.insertErr
	}
	s.nextID++
	r.ID = fmt.Sprintf("rem-%d", s.nextID)
	s.rows = append(s.rows, *r)
	return nil
}

type recordingNotifier struct {
	notices []string
	levels  []Level
}

func (n *recordingNotifier) Notify(level Level, message string) {
	n.levels = append(n.levels, level)
	n.notices = append(n.notices, message)
}

func (n *recordingNotifier) has(level Level) bool {
	for _, l := range n.levels {
		if l == level {
			return true
		}
	}
	return false
}

type stubSummarizer struct {
	summary string
	err     error
}

func (s stubSummarizer) SummarizeReminder(context.Context, string) (string, error) {
	return s.summary, s.err
}

func day(y int, m time.Month, d int) Day { return Day{Year: y, Month: m, Day: d} }

func seeded() *fakeStore {
	return &fakeStore{rows: []model.Reminder{
		{ID: "a", UserID: "u1", Title: "rent", Date: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
		{ID: "b", UserID: "u1", Title: "call mom", Date: time.Date(2025, 3, 15, 23, 30, 0, 0, time.UTC)},
		{ID: "c", UserID: "u1", Title: "dentist", Date: time.Date(2025, 3, 14, 18, 0, 0, 0, time.FixedZone("COT", -5*3600))},
		{ID: "d", UserID: "u2", Title: "not mine", Date: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
	}}
}

func newLoadedCalendar(t *testing.T, store *fakeStore) (*Calendar, *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	c := NewCalendar(store, n, Options{Location: time.UTC})
	if err := c.Load(context.Background(), "u1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return c, n
}

func validDraft() Draft {
	return Draft{
		Title:   "  Pay rent ",
		Message: " Transfer to landlord ",
		Day:     day(2025, 4, 1),
		SendAt:  "2025-04-01T09:30",
	}
}

func TestLoadHighlightsDays(t *testing.T) {
	t.Parallel()
	c, _ := newLoadedCalendar(t, seeded())

	if got := len(c.Reminders()); got != 3 {
		t.Fatalf("loaded %d reminders, want 3", got)
	}
	got := c.Highlighted()
	want := []Day{day(2025, 3, 14), day(2025, 3, 15)}
	if len(got) != len(want) {
		t.Fatalf("Highlighted = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Highlighted[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLoadFailureKeepsState(t *testing.T) {
	t.Parallel()
	store := seeded()
	c, n := newLoadedCalendar(t, store)

	store.listErr = errors.New("backend down")
	if err := c.Load(context.Background(), "u1"); err == nil {
		t.Fatalf("expected load error")
	}
	if got := len(c.Reminders()); got != 3 {
		t.Fatalf("reminder set changed after failed load: %d", got)
	}
	if !n.has(LevelError) {
		t.Fatalf("expected an error notice, got %v", n.notices)
	}
}

func TestLoadFirstFailureLeavesEmpty(t *testing.T) {
	t.Parallel()
	n := &recordingNotifier{}
	c := NewCalendar(&fakeStore{listErr: errors.New("boom")}, n, Options{})
	if err := c.Load(context.Background(), "u1"); err == nil {
		t.Fatalf("expected error")
	}
	if len(c.Reminders()) != 0 || len(c.Highlighted()) != 0 {
		t.Fatalf("expected empty calendar after failed first load")
	}
	if err := c.Load(context.Background(), "  "); !errors.Is(err, ErrNoUser) {
		t.Fatalf("expected ErrNoUser, got %v", err)
	}
}

func TestListForDay(t *testing.T) {
	t.Parallel()
	c, _ := newLoadedCalendar(t, seeded())

	got := c.ListForDay(day(2025, 3, 14))
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("ListForDay(14) = %+v", got)
	}
	if got := c.ListForDay(day(2025, 3, 15)); len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("ListForDay(15) = %+v", got)
	}
	if got := c.ListForDay(day(2025, 3, 16)); len(got) != 0 {
		t.Fatalf("expected no reminders on 16th, got %+v", got)
	}

	for _, r := range c.Reminders() {
		d := DayOf(r.Date)
		found := false
		for _, x := range c.ListForDay(d) {
			if x.ID == r.ID {
				found = true
			}
		}
		if !found {
			t.Fatalf("reminder %s missing from its own day %v", r.ID, d)
		}
	}
}

func TestCreateRejectsMissingFields(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		mutate func(*Draft)
		want   error
	}{
		"title":     {func(d *Draft) { d.Title = "   " }, ErrTitleRequired},
		"message":   {func(d *Draft) { d.Message = "" }, ErrMessageRequired},
		"send date": {func(d *Draft) { d.SendAt = "" }, ErrSendDateRequired},
		"bad date":  {func(d *Draft) { d.SendAt = "tomorrow-ish" }, ErrInvalidSendDate},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			store := seeded()
			c, n := newLoadedCalendar(t, store)
			c.OpenDialog(day(2025, 4, 1))

			d := validDraft()
			tc.mutate(&d)
			if _, err := c.Create(context.Background(), Contacts{Profile: "573128310805"}, d); !errors.Is(err, tc.want) {
				t.Fatalf("Create error = %v, want %v", err, tc.want)
			}
			if store.inserts != 0 {
				t.Fatalf("store insert called %d times", store.inserts)
			}
			if got := len(c.Reminders()); got != 3 {
				t.Fatalf("reminder count = %d, want 3", got)
			}
			if !c.DialogOpen() {
				t.Fatalf("dialog closed after validation failure")
			}
			if !n.has(LevelWarning) {
				t.Fatalf("expected warning notice")
			}
		})
	}
}

func TestCreateSuccess(t *testing.T) {
	t.Parallel()
	store := seeded()
	c, n := newLoadedCalendar(t, store)
	c.OpenDialog(day(2025, 4, 1))

	before := len(c.Reminders())
	rem, err := c.Create(context.Background(), Contacts{Profile: "573128310805"}, validDraft())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if got := len(c.Reminders()); got != before+1 {
		t.Fatalf("reminder count = %d, want %d", got, before+1)
	}
	if !c.IsHighlighted(day(2025, 4, 1)) {
		t.Fatalf("new day not highlighted")
	}
	if rem.ID == "" || rem.Status != model.StatusPending || rem.Source != model.SourceManual {
		t.Fatalf("unexpected reminder: %+v", rem)
	}
	if rem.Title != "Pay rent" || rem.Message != "Transfer to landlord" {
		t.Fatalf("fields not trimmed: %+v", rem)
	}
	if rem.Phone != "573128310805" {
		t.Fatalf("Phone = %q", rem.Phone)
	}
	if want := time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC); !rem.SendDate.Equal(want) {
		t.Fatalf("SendDate = %v, want %v", rem.SendDate, want)
	}
	if c.DialogOpen() {
		t.Fatalf("dialog should close after success")
	}
	if c.Draft() != (Draft{}) {
		t.Fatalf("draft not reset: %+v", c.Draft())
	}
	if !n.has(LevelSuccess) {
		t.Fatalf("expected success notice")
	}
	if got := c.ListForDay(day(2025, 4, 1)); len(got) != 1 || got[0].ID != rem.ID {
		t.Fatalf("ListForDay after create = %+v", got)
	}
}

func TestCreateInsertFailure(t *testing.T) {
	t.Parallel()
	store := seeded()
	c, n := newLoadedCalendar(t, store)
	c.OpenDialog(day(2025, 4, 1))
	store.insertErr = errors.New("insert rejected")

	if _, err := c.Create(context.Background(), Contacts{Profile: "573128310805"}, validDraft()); err == nil {
		t.Fatalf("expected create error")
	}
	if got := len(c.Reminders()); got != 3 {
		t.Fatalf("reminder count = %d, want 3", got)
	}
	if c.IsHighlighted(day(2025, 4, 1)) {
		t.Fatalf("failed insert must not highlight the day")
	}
	if !c.DialogOpen() {
		t.Fatalf("dialog closed silently after failure")
	}
	if !n.has(LevelError) {
		t.Fatalf("expected error notice, got %v", n.notices)
	}
	if c.Draft().Title != "Pay rent" {
		t.Fatalf("draft should be kept for retry, got %+v", c.Draft())
	}
}

func TestCreateContactFallback(t *testing.T) {
	t.Parallel()

	c, n := newLoadedCalendar(t, seeded())
	rem, err := c.Create(context.Background(), Contacts{Fallback: "525512345678"}, validDraft())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rem.Phone != "525512345678" {
		t.Fatalf("fallback contact not used: %q", rem.Phone)
	}
	if n.has(LevelWarning) {
		t.Fatalf("unexpected warning: %v", n.notices)
	}

	c2, n2 := newLoadedCalendar(t, seeded())
	rem, err = c2.Create(context.Background(), Contacts{}, validDraft())
	if err != nil {
		t.Fatalf("Create without contact: %v", err)
	}
	if rem.Phone != model.NoContact || rem.HasContact() {
		t.Fatalf("expected no-contact marker, got %q", rem.Phone)
	}
	if !n2.has(LevelWarning) {
		t.Fatalf("expected warning for missing contact")
	}
}

func TestCreateUsesSelectedDayAndSummary(t *testing.T) {
	t.Parallel()
	n := &recordingNotifier{}
	c := NewCalendar(seeded(), n, Options{
		Location:   time.UTC,
		Summarizer: stubSummarizer{summary: "Pay the rent."},
	})
	if err := c.Load(context.Background(), "u1"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Select(day(2025, 5, 2))

	d := validDraft()
	d.Day = Day{}
	rem, err := c.Create(context.Background(), Contacts{Profile: "1"}, d)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if DayOf(rem.Date) != day(2025, 5, 2) {
		t.Fatalf("Date = %v, want selected day", rem.Date)
	}
	if rem.Description != "Pay the rent." {
		t.Fatalf("Description = %q", rem.Description)
	}

	c2 := NewCalendar(seeded(), n, Options{Summarizer: stubSummarizer{err: errors.New("quota")}})
	_ = c2.Load(context.Background(), "u1")
	rem, err = c2.Create(context.Background(), Contacts{Profile: "1"}, validDraft())
	if err != nil {
		t.Fatalf("Create with failing summarizer: %v", err)
	}
	if rem.Description != "" {
		t.Fatalf("Description = %q, want empty", rem.Description)
	}
}

func TestCreateRequiresLoadedUser(t *testing.T) {
	t.Parallel()
	store := &fakeStore{}
	c := NewCalendar(store, &recordingNotifier{}, Options{})
	if _, err := c.Create(context.Background(), Contacts{}, validDraft()); !errors.Is(err, ErrNoUser) {
		t.Fatalf("expected ErrNoUser, got %v", err)
	}
	if store.inserts != 0 {
		t.Fatalf("insert called without user")
	}
}

func TestParseSendDate(t *testing.T) {
	t.Parallel()
	bogota := time.FixedZone("COT", -5*3600)

	got, err := ParseSendDate("2025-04-01T09:30", bogota)
	if err != nil || !got.Equal(time.Date(2025, 4, 1, 14, 30, 0, 0, time.UTC)) {
		t.Fatalf("local layout: %v %v", got, err)
	}
	got, err = ParseSendDate("2025-04-01T09:30:00Z", bogota)
	if err != nil || !got.Equal(time.Date(2025, 4, 1, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("rfc3339: %v %v", got, err)
	}
	if _, err := ParseSendDate("01/04/2025", bogota); !errors.Is(err, ErrInvalidSendDate) {
		t.Fatalf("expected ErrInvalidSendDate, got %v", err)
	}
}

func TestMonthGrid(t *testing.T) {
	t.Parallel()
	c, _ := newLoadedCalendar(t, seeded())
	c.Select(day(2025, 3, 15))

	m := c.Month(2025, time.March)
	if len(m.Weeks) != 6 {
		t.Fatalf("March 2025 weeks = %d, want 6", len(m.Weeks))
	}
	if first := m.Weeks[0][0]; first.Day != day(2025, 2, 23) || first.InMonth {
		t.Fatalf("first cell = %+v", first)
	}

	var highlighted, selected int
	for _, week := range m.Weeks {
		for _, cell := range week {
			if cell.Highlighted {
				highlighted++
			}
			if cell.Selected {
				selected++
			}
		}
	}
	if highlighted != 2 || selected != 1 {
		t.Fatalf("highlighted=%d selected=%d", highlighted, selected)
	}
	if m.Prev != day(2025, 2, 1) || m.Next != day(2025, 4, 1) {
		t.Fatalf("prev/next = %v %v", m.Prev, m.Next)
	}
}

func TestDayHelpers(t *testing.T) {
	t.Parallel()
	d, err := ParseDay("2025-03-09")
	if err != nil || d != day(2025, 3, 9) || d.String() != "2025-03-09" {
		t.Fatalf("ParseDay: %v %v", d, err)
	}
	if _, err := ParseDay("09/03/2025"); err == nil {
		t.Fatalf("expected parse error")
	}
	if !day(2024, 12, 31).Before(day(2025, 1, 1)) || day(2025, 1, 2).Before(day(2025, 1, 1)) {
		t.Fatalf("Before ordering broken")
	}
}

// gatedStore takes its snapshot when ListByUser is called and holds the
// answer until release is closed.
type gatedStore struct {
	*fakeStore
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) ListByUser(ctx context.Context, userID string) ([]model.Reminder, error) {
	rows, err := g.fakeStore.ListByUser(ctx, userID)
	close(g.entered)
	<-g.release
	return rows, err
}

func TestCreateDuringReloadIsKept(t *testing.T) {
	t.Parallel()
	store := seeded()
	c, _ := newLoadedCalendar(t, store)

	gated := &gatedStore{fakeStore: store, entered: make(chan struct{}), release: make(chan struct{})}
	c.store = gated

	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background(), "u1") }()
	<-gated.entered

	created, err := c.Create(context.Background(), Contacts{Profile: "573128310805"}, validDraft())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	close(gated.release)
	if err := <-done; err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := c.ListForDay(day(2025, 4, 1))
	if len(got) != 1 || got[0].ID != created.ID {
		t.Fatalf("reminder created during reload was dropped: %+v", got)
	}
	if !c.IsHighlighted(day(2025, 4, 1)) {
		t.Fatalf("day of reminder created during reload is not highlighted")
	}
	if n := len(c.Reminders()); n != 4 {
		t.Fatalf("expected 4 reminders after reload, got %d", n)
	}

	c.store = store
	if err := c.Load(context.Background(), "u1"); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if n := len(c.Reminders()); n != 4 {
		t.Fatalf("reload duplicated reminders: got %d", n)
	}
}
