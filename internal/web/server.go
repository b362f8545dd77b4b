// Package web serves the marketing pages, the registration and login forms,
// the authenticated dashboard and its JSON API.
package web

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pathakanu/claudia/internal/auth"
	"github.com/pathakanu/claudia/internal/chat"
	"github.com/pathakanu/claudia/internal/rates"
	"github.com/pathakanu/claudia/internal/session"
	"github.com/pathakanu/claudia/internal/verify"
)

const (
	sessionCookie = "claudia_session"
	pendingCookie = "claudia_pending"
	sessionKey    = "session"
)

// RateSource provides the exchange rate shown next to plan prices.
type RateSource interface {
	Rate() rates.Rate
}

// Options configures the server.
type Options struct {
	ChatNumber         string
	ChatMessage        string
	DefaultCountryCode string
	Location           *time.Location
	SecureCookies      bool
	SessionTTL         time.Duration
	PendingTTL         time.Duration
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	auth     *auth.Service
	sessions *session.Manager
	pending  *session.Pending
	verifier verify.Verifier
	rates    RateSource
	opts     Options
	logger   *log.Logger
	chatLink string
	engine   *gin.Engine
}

// New builds the gin engine and registers every route.
func New(authSvc *auth.Service, sessions *session.Manager, verifier verify.Verifier, rateSource RateSource, opts Options, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.DefaultCountryCode == "" {
		opts.DefaultCountryCode = "+57"
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}
	if opts.PendingTTL <= 0 {
		opts.PendingTTL = 15 * time.Minute
	}
	if verifier == nil {
		verifier = verify.Disabled{}
	}

	renderer, err := newPageRender(opts.Location)
	if err != nil {
		return nil, err
	}

	s := &Server{
		auth:     authSvc,
		sessions: sessions,
		pending:  session.NewPending(opts.PendingTTL),
		verifier: verifier,
		rates:    rateSource,
		opts:     opts,
		logger:   logger,
		chatLink: chat.Link(opts.ChatNumber, opts.ChatMessage),
	}

	engine := gin.New()
	engine.HTMLRender = renderer
	engine.Use(gin.Recovery(), s.requestLogger(), s.loadSession())
	s.engine = engine
	s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	r := s.engine

	r.GET("/", s.home)
	r.GET("/faq", s.static("faq", "Preguntas frecuentes"))
	r.GET("/terms", s.static("terms", "Términos"))
	r.GET("/know-claudia", s.static("know", "Conoce a Claudia"))

	r.GET("/register", s.registerForm)
	r.POST("/register", s.register)
	r.GET("/register/verify", s.verifyForm)
	r.POST("/register/verify", s.verifyCode)
	r.GET("/login", s.loginForm)
	r.POST("/login", s.login)
	r.POST("/logout", s.logout)

	dash := r.Group("/dashboard", s.requirePage())
	dash.GET("", s.dashboard)
	dash.GET("/reminders/new", s.newReminder)
	dash.POST("/reminders", s.createReminderForm)
	dash.POST("/reminders/cancel", s.cancelReminder)

	api := r.Group("/api")
	api.GET("/session", s.apiSession)
	api.GET("/rates", s.apiRates)
	reminders := api.Group("/reminders", s.requireAPI())
	reminders.GET("", s.apiListReminders)
	reminders.GET("/day", s.apiDayReminders)
	reminders.POST("", s.apiCreateReminder)

	r.NoRoute(s.notFound)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Printf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

// loadSession restores the session carried by the cookie, if any.
func (s *Server) loadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessionCookie)
		if err != nil || token == "" {
			c.Next()
			return
		}
		sess, err := s.auth.Restore(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidSession) {
				s.logger.Printf("web: restore session: %v", err)
			}
			s.clearCookie(c, sessionCookie)
			c.Next()
			return
		}
		c.Set(sessionKey, sess)
		c.Next()
	}
}

func (s *Server) requirePage() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentSession(c) == nil {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) requireAPI() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentSession(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func currentSession(c *gin.Context) *auth.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*auth.Session)
	return sess
}

func (s *Server) setSessionCookie(c *gin.Context, sess *auth.Session) {
	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, sess.Token, maxAge, "/", "", s.opts.SecureCookies, true)
}

func (s *Server) clearCookie(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, "", -1, "/", "", s.opts.SecureCookies, true)
}

// page renders name inside the layout with the fields every page uses.
func (s *Server) page(c *gin.Context, status int, name, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["SignedIn"] = currentSession(c) != nil
	data["ChatLink"] = s.chatLink
	if _, ok := data["Notices"]; !ok {
		data["Notices"] = []session.Notice(nil)
	}
	c.HTML(status, name, data)
}

func (s *Server) notFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	s.page(c, http.StatusNotFound, "notfound", "Página no encontrada", gin.H{
		"Message": "La página que buscas no existe.",
	})
}

func (s *Server) failure(c *gin.Context, err error) {
	if errors.Is(err, auth.ErrInvalidSession) {
		s.clearCookie(c, sessionCookie)
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}
	s.logger.Printf("web: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	s.page(c, http.StatusInternalServerError, "notfound", "Algo salió mal", gin.H{
		"Message": "Ocurrió un error inesperado. Intenta de nuevo en unos minutos.",
	})
}
