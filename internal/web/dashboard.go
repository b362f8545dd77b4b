package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pathakanu/claudia/internal/auth"
	"github.com/pathakanu/claudia/internal/model"
	"github.com/pathakanu/claudia/internal/reminders"
	"github.com/pathakanu/claudia/internal/session"
)

func (s *Server) state(c *gin.Context) (*session.State, error) {
	return s.sessions.State(c.Request.Context(), currentSession(c))
}

// dayParam reads a YYYY-MM-DD value, falling back to the selected day.
func dayParam(value string, cal *reminders.Calendar) reminders.Day {
	if day, err := reminders.ParseDay(strings.TrimSpace(value)); err == nil {
		return day
	}
	return cal.SelectedDay()
}

func dashboardURL(day reminders.Day) string {
	return "/dashboard?date=" + url.QueryEscape(day.String())
}

func (s *Server) dashboard(c *gin.Context) {
	st, err := s.state(c)
	if err != nil {
		s.failure(c, err)
		return
	}
	cal := st.Calendar
	if c.Query("reload") != "" {
		_ = cal.Load(c.Request.Context(), st.Session.UserID)
	}

	day := dayParam(c.Query("date"), cal)
	cal.Select(day)

	s.page(c, http.StatusOK, "dashboard", "Dashboard", gin.H{
		"Profile":      st.Profile,
		"Month":        cal.Month(day.Year, day.Month),
		"Selected":     day,
		"DayReminders": cal.ListForDay(day),
		"DialogOpen":   cal.DialogOpen(),
		"Draft":        cal.Draft(),
		"Notices":      st.Notices.Drain(),
	})
}

func (s *Server) newReminder(c *gin.Context) {
	st, err := s.state(c)
	if err != nil {
		s.failure(c, err)
		return
	}
	day := dayParam(c.Query("date"), st.Calendar)
	st.Calendar.OpenDialog(day)
	c.Redirect(http.StatusSeeOther, dashboardURL(day))
}

func (s *Server) cancelReminder(c *gin.Context) {
	st, err := s.state(c)
	if err != nil {
		s.failure(c, err)
		return
	}
	st.Calendar.CloseDialog()
	c.Redirect(http.StatusSeeOther, dashboardURL(st.Calendar.SelectedDay()))
}

type reminderForm struct {
	Title       string `form:"title" json:"title"`
	Message     string `form:"message" json:"message"`
	Description string `form:"description" json:"description"`
	Date        string `form:"date" json:"date"`
	SendAt      string `form:"send_at" json:"send_at"`
}

func (f reminderForm) draft(day reminders.Day) reminders.Draft {
	return reminders.Draft{
		Title:       f.Title,
		Message:     f.Message,
		Description: f.Description,
		Day:         day,
		SendAt:      f.SendAt,
	}
}

// createReminderForm handles the dashboard dialog. Outcomes are reported
// through the session notices and the browser is sent back to the day.
func (s *Server) createReminderForm(c *gin.Context) {
	st, err := s.state(c)
	if err != nil {
		s.failure(c, err)
		return
	}
	var form reminderForm
	if err := c.ShouldBind(&form); err != nil {
		st.Notices.Notify(reminders.LevelError, "No pudimos leer el formulario.")
		c.Redirect(http.StatusSeeOther, dashboardURL(st.Calendar.SelectedDay()))
		return
	}
	cal := st.Calendar
	day := dayParam(form.Date, cal)
	if !cal.DialogOpen() {
		cal.OpenDialog(day)
	}

	if _, err := cal.Create(c.Request.Context(), st.Contacts(), form.draft(day)); errors.Is(err, reminders.ErrBusy) {
		st.Notices.Notify(reminders.LevelWarning, "Ya estamos guardando un recordatorio. Espera un momento.")
	}
	c.Redirect(http.StatusSeeOther, dashboardURL(day))
}

func (s *Server) apiSession(c *gin.Context) {
	sess := currentSession(c)
	if sess == nil {
		c.JSON(http.StatusOK, gin.H{"signed_in": false})
		return
	}
	st, err := s.state(c)
	if err != nil {
		s.apiFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"signed_in":  true,
		"user_id":    sess.UserID,
		"expires_at": sess.ExpiresAt,
		"profile":    st.Profile,
	})
}

func (s *Server) apiListReminders(c *gin.Context) {
	st, err := s.state(c)
	if err != nil {
		s.apiFailure(c, err)
		return
	}
	days := st.Calendar.Highlighted()
	highlighted := make([]string, len(days))
	for i, d := range days {
		highlighted[i] = d.String()
	}
	c.JSON(http.StatusOK, gin.H{
		"reminders":   nonNil(st.Calendar.Reminders()),
		"highlighted": highlighted,
	})
}

func (s *Server) apiDayReminders(c *gin.Context) {
	day, err := reminders.ParseDay(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}
	st, err := s.state(c)
	if err != nil {
		s.apiFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":      day.String(),
		"reminders": nonNil(st.Calendar.ListForDay(day)),
	})
}

func (s *Server) apiCreateReminder(c *gin.Context) {
	var form reminderForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	st, err := s.state(c)
	if err != nil {
		s.apiFailure(c, err)
		return
	}
	day := dayParam(form.Date, st.Calendar)

	reminder, err := st.Calendar.Create(c.Request.Context(), st.Contacts(), form.draft(day))
	notices := st.Notices.Drain()
	if err != nil {
		c.JSON(createStatus(err), gin.H{"error": err.Error(), "notices": notices})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reminder": reminder, "notices": notices})
}

func createStatus(err error) int {
	switch {
	case errors.Is(err, reminders.ErrTitleRequired),
		errors.Is(err, reminders.ErrMessageRequired),
		errors.Is(err, reminders.ErrSendDateRequired),
		errors.Is(err, reminders.ErrInvalidSendDate):
		return http.StatusUnprocessableEntity
	case errors.Is(err, reminders.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, reminders.ErrNoUser):
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) apiFailure(c *gin.Context, err error) {
	s.logger.Printf("web: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	if errors.Is(err, auth.ErrInvalidSession) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func nonNil(list []model.Reminder) []model.Reminder {
	if list == nil {
		return []model.Reminder{}
	}
	return list
}
