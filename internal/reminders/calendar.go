// Package reminders keeps the dashboard calendar in sync with the user's
// reminder collection: it loads the whole history, marks the days that carry
// reminders, filters by day and inserts new reminders.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pathakanu/claudia/internal/model"
)

// Errors returned by Calendar. Validation errors leave the draft in place.
var (
	ErrNoUser           = errors.New("reminders: no signed-in user")
	ErrTitleRequired    = errors.New("reminders: title is required")
	ErrMessageRequired  = errors.New("reminders: message is required")
	ErrSendDateRequired = errors.New("reminders: send date is required")
	ErrInvalidSendDate  = errors.New("reminders: send date is not a valid date and time")
	// ErrBusy is returned while another request of the same kind is in flight.
	ErrBusy = errors.New("reminders: request already in progress")
)

const (
	msgLoadFailed   = "No pudimos cargar tus recordatorios. Intenta de nuevo."
	msgCreateFailed = "No pudimos guardar el recordatorio. Intenta de nuevo."
	msgMissingField = "Completa el título, el mensaje y la fecha de envío."
	msgBadSendDate  = "La fecha de envío debe ser una fecha y hora válidas."
	msgNoContact    = "Tu perfil no tiene número de WhatsApp. El recordatorio se guardó pero no podrá enviarse."
	msgCreated      = "Recordatorio creado."
)

// Store is the remote reminders collection.
type Store interface {
	ListByUser(ctx context.Context, userID string) ([]model.Reminder, error)
	Insert(ctx context.Context, reminder *model.Reminder) error
}

// Summarizer writes a short description for a reminder message.
type Summarizer interface {
	SummarizeReminder(ctx context.Context, content string) (string, error)
}

// Level classifies a notice shown to the user.
type Level string

// Notice levels, from least to most severe.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier surfaces transient messages to the user.
type Notifier interface {
	Notify(level Level, message string)
}

// Draft is the input of the creation dialog.
type Draft struct {
	Title       string
	Message     string
	Description string
	Day         Day
	SendAt      string
}

// Contacts holds the candidate destination numbers, best first.
type Contacts struct {
	Profile  string
	Fallback string
}

func (c Contacts) resolve() string {
	if v := strings.TrimSpace(c.Profile); v != "" {
		return v
	}
	return strings.TrimSpace(c.Fallback)
}

// Options configures a Calendar.
type Options struct {
	Summarizer Summarizer
	Logger     *log.Logger
	// Location is used to interpret send dates typed without a zone.
	Location *time.Location
}

// Calendar is the per-session reminder state behind the dashboard calendar.
type Calendar struct {
	store      Store
	notifier   Notifier
	summarizer Summarizer
	logger     *log.Logger
	loc        *time.Location

	mu          sync.Mutex
	userID      string
	reminders   []model.Reminder
	highlighted map[Day]int
	selected    Day
	dialogOpen  bool
	draft       Draft
	loading     bool
	creating    bool
	// confirmed inserts made while a load is in flight
	sinceLoad []model.Reminder
}

// NewCalendar creates an empty calendar.
func NewCalendar(store Store, notifier Notifier, opts Options) *Calendar {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	return &Calendar{
		store:       store,
		notifier:    notifier,
		summarizer:  opts.Summarizer,
		logger:      logger,
		loc:         loc,
		highlighted: make(map[Day]int),
		selected:    Today(loc),
	}
}

// Load fetches the full reminder history of userID. On failure the current
// reminder set is kept and an error notice is raised.
func (c *Calendar) Load(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		c.notify(LevelError, msgLoadFailed)
		return ErrNoUser
	}

	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.loading = true
	c.sinceLoad = nil
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	list, err := c.store.ListByUser(ctx, userID)
	if err != nil {
		c.logger.Printf("reminders: load for %s: %v", userID, err)
		c.notify(LevelError, msgLoadFailed)
		return fmt.Errorf("load reminders: %w", err)
	}

	c.mu.Lock()
	list = mergeConfirmed(list, c.sinceLoad, userID)
	c.sinceLoad = nil
	highlighted := make(map[Day]int, len(list))
	for _, r := range list {
		highlighted[DayOf(r.Date)]++
	}
	c.userID = userID
	c.reminders = list
	c.highlighted = highlighted
	c.mu.Unlock()
	return nil
}

// mergeConfirmed appends the inserts of userID confirmed during a load that
// the fetched list does not contain yet.
func mergeConfirmed(list, confirmed []model.Reminder, userID string) []model.Reminder {
	if len(confirmed) == 0 {
		return list
	}
	seen := make(map[string]bool, len(list))
	for _, r := range list {
		seen[r.ID] = true
	}
	for _, r := range confirmed {
		if r.UserID == userID && !seen[r.ID] {
			list = append(list, r)
			seen[r.ID] = true
		}
	}
	return list
}

// ListForDay returns the loaded reminders whose date falls on day, in the
// order they were loaded or created.
func (c *Calendar) ListForDay(day Day) []model.Reminder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return filterDay(c.reminders, day)
}

func filterDay(list []model.Reminder, day Day) []model.Reminder {
	var out []model.Reminder
	for _, r := range list {
		if DayOf(r.Date) == day {
			out = append(out, r)
		}
	}
	return out
}

// Create validates draft and inserts a pending reminder. The in-memory set is
// only updated after the store confirms the insert.
func (c *Calendar) Create(ctx context.Context, contacts Contacts, draft Draft) (*model.Reminder, error) {
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Message = strings.TrimSpace(draft.Message)
	draft.Description = strings.TrimSpace(draft.Description)
	draft.SendAt = strings.TrimSpace(draft.SendAt)

	var missing error
	switch {
	case draft.Title == "":
		missing = ErrTitleRequired
	case draft.Message == "":
		missing = ErrMessageRequired
	case draft.SendAt == "":
		missing = ErrSendDateRequired
	}
	if missing != nil {
		c.keepDraft(draft)
		c.notify(LevelWarning, msgMissingField)
		return nil, missing
	}

	sendAt, err := ParseSendDate(draft.SendAt, c.loc)
	if err != nil {
		c.keepDraft(draft)
		c.notify(LevelWarning, msgBadSendDate)
		return nil, ErrInvalidSendDate
	}

	c.mu.Lock()
	if c.userID == "" {
		c.mu.Unlock()
		c.notify(LevelError, msgCreateFailed)
		return nil, ErrNoUser
	}
	if c.creating {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.creating = true
	c.draft = draft
	userID := c.userID
	day := draft.Day
	if day.IsZero() {
		day = c.selected
	}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.creating = false
		c.mu.Unlock()
	}()

	contact := contacts.resolve()
	if contact == "" {
		contact = model.NoContact
		c.notify(LevelWarning, msgNoContact)
	}

	if draft.Description == "" && c.summarizer != nil {
		summary, err := c.summarizer.SummarizeReminder(ctx, draft.Message)
		if err != nil {
			c.logger.Printf("reminders: summarize: %v", err)
		} else {
			draft.Description = summary
		}
	}

	reminder := model.Reminder{
		UserID:      userID,
		Title:       draft.Title,
		Message:     draft.Message,
		Description: draft.Description,
		Date:        day.Time(time.UTC),
		SendDate:    sendAt,
		Phone:       contact,
		Status:      model.StatusPending,
		Source:      model.SourceManual,
	}
	if err := c.store.Insert(ctx, &reminder); err != nil {
		c.logger.Printf("reminders: create for %s: %v", userID, err)
		c.notify(LevelError, msgCreateFailed)
		return nil, fmt.Errorf("create reminder: %w", err)
	}

	c.mu.Lock()
	if c.loading {
		c.sinceLoad = append(c.sinceLoad, reminder)
	}
	c.reminders = append(c.reminders, reminder)
	c.highlighted[DayOf(reminder.Date)]++
	c.dialogOpen = false
	c.draft = Draft{}
	c.mu.Unlock()

	c.notify(LevelSuccess, msgCreated)
	return &reminder, nil
}

var sendDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseSendDate accepts RFC 3339 timestamps and the HTML datetime-local
// format. Values without a zone are read in loc.
func ParseSendDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range sendDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidSendDate, s)
}

// Select marks day as the selected calendar cell.
func (c *Calendar) Select(day Day) {
	c.mu.Lock()
	c.selected = day
	c.mu.Unlock()
}

// SelectedDay returns the selected calendar cell.
func (c *Calendar) SelectedDay() Day {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// OpenDialog opens the creation dialog for day with a fresh draft.
func (c *Calendar) OpenDialog(day Day) {
	c.mu.Lock()
	c.selected = day
	c.dialogOpen = true
	c.draft = Draft{Day: day}
	c.mu.Unlock()
}

// CloseDialog closes the creation dialog and drops the draft.
func (c *Calendar) CloseDialog() {
	c.mu.Lock()
	c.dialogOpen = false
	c.draft = Draft{}
	c.mu.Unlock()
}

// DialogOpen reports whether the creation dialog is open.
func (c *Calendar) DialogOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dialogOpen
}

// Draft returns the input kept from the last unsuccessful submission.
func (c *Calendar) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Calendar) keepDraft(d Draft) {
	c.mu.Lock()
	c.draft = d
	c.mu.Unlock()
}

// Reminders returns a copy of the loaded reminders.
func (c *Calendar) Reminders() []model.Reminder {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Reminder, len(c.reminders))
	copy(out, c.reminders)
	return out
}

// Highlighted returns the days carrying at least one reminder, ascending.
func (c *Calendar) Highlighted() []Day {
	c.mu.Lock()
	days := make([]Day, 0, len(c.highlighted))
	for d := range c.highlighted {
		days = append(days, d)
	}
	c.mu.Unlock()

	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// IsHighlighted reports whether day carries at least one reminder.
func (c *Calendar) IsHighlighted(day Day) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.highlighted[day] > 0
}

// UserID returns the owner of the loaded reminders.
func (c *Calendar) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *Calendar) notify(level Level, message string) {
	if c.notifier != nil {
		c.notifier.Notify(level, message)
	}
}
