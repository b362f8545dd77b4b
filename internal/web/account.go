package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pathakanu/claudia/internal/auth"
	"github.com/pathakanu/claudia/internal/phone"
	"github.com/pathakanu/claudia/internal/reminders"
	"github.com/pathakanu/claudia/internal/session"
	"github.com/pathakanu/claudia/internal/verify"
)

type registerForm struct {
	Name            string `form:"name"`
	Lastname        string `form:"lastname"`
	Email           string `form:"email"`
	CountryCode     string `form:"country_code"`
	Phone           string `form:"phone"`
	Password        string `form:"password"`
	PasswordConfirm string `form:"password_confirm"`
}

func (f *registerForm) trim() {
	f.Name = strings.TrimSpace(f.Name)
	f.Lastname = strings.TrimSpace(f.Lastname)
	f.Email = strings.TrimSpace(f.Email)
	f.CountryCode = strings.TrimSpace(f.CountryCode)
	f.Phone = strings.TrimSpace(f.Phone)
}

// validate returns the first problem with the form, in Spanish, or "".
func (f *registerForm) validate() string {
	switch {
	case f.Name == "":
		return "Escribe tu nombre."
	case phone.LocalDigits(f.Phone) < phone.MinLocalDigits:
		return "Escribe un número de WhatsApp válido."
	case len(f.Password) < auth.MinPasswordLength:
		return "La contraseña debe tener al menos 6 caracteres."
	case f.Password != f.PasswordConfirm:
		return "Las contraseñas no coinciden."
	}
	return ""
}

func (f *registerForm) input() auth.SignUpInput {
	return auth.SignUpInput{
		Name:     f.Name,
		Lastname: f.Lastname,
		Email:    f.Email,
		Phone:    phone.Normalize(f.Phone, f.CountryCode),
		Password: f.Password,
	}
}

type loginForm struct {
	Identifier  string `form:"identifier"`
	CountryCode string `form:"country_code"`
	Password    string `form:"password"`
}

func errorNotice(message string) []session.Notice {
	return []session.Notice{{Level: reminders.LevelError, Message: message}}
}

func (s *Server) renderRegister(c *gin.Context, status int, form registerForm, notices []session.Notice) {
	if form.CountryCode == "" {
		form.CountryCode = s.opts.DefaultCountryCode
	}
	form.Password, form.PasswordConfirm = "", ""
	s.page(c, status, "register", "Crear cuenta", gin.H{
		"Form":         form,
		"CountryCodes": phone.CountryCodes,
		"Notices":      notices,
	})
}

func (s *Server) registerForm(c *gin.Context) {
	if currentSession(c) != nil {
		c.Redirect(http.StatusSeeOther, "/dashboard")
		return
	}
	s.renderRegister(c, http.StatusOK, registerForm{}, nil)
}

// register validates the form and either asks for a WhatsApp code or, when
// no verification service is configured, creates the account right away.
func (s *Server) register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderRegister(c, http.StatusBadRequest, form, errorNotice("No pudimos leer el formulario."))
		return
	}
	form.trim()
	if problem := form.validate(); problem != "" {
		s.renderRegister(c, http.StatusUnprocessableEntity, form, errorNotice(problem))
		return
	}
	in := form.input()

	if !s.verifier.Enabled() {
		s.completeSignUp(c, in, form)
		return
	}

	res, err := s.verifier.SendCode(c.Request.Context(), verifyRequest(in))
	if err != nil || !res.Success {
		if err != nil {
			s.logger.Printf("web: send verification code to %s: %v", in.Phone, err)
		}
		s.renderRegister(c, http.StatusBadGateway, form, errorNotice(verifyFailure(res, "No pudimos enviar el código. Intenta de nuevo.")))
		return
	}

	id := s.pending.Put(in)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(pendingCookie, id, int(s.opts.PendingTTL.Seconds()), "/register", "", s.opts.SecureCookies, true)
	c.Redirect(http.StatusSeeOther, "/register/verify")
}

func verifyRequest(in auth.SignUpInput) verify.Request {
	return verify.Request{Phone: in.Phone, Email: in.Email, Name: in.Name}
}

func verifyFailure(res verify.Result, fallback string) string {
	if msg := strings.TrimSpace(res.Message); msg != "" {
		return msg
	}
	return fallback
}

func (s *Server) pendingRegistration(c *gin.Context) (string, session.Registration, bool) {
	id, err := c.Cookie(pendingCookie)
	if err != nil || id == "" {
		return "", session.Registration{}, false
	}
	reg, ok := s.pending.Get(id)
	return id, reg, ok
}

func (s *Server) renderVerify(c *gin.Context, status int, reg session.Registration, notices []session.Notice) {
	tail := reg.Input.Phone
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	s.page(c, status, "verify", "Verifica tu WhatsApp", gin.H{
		"PhoneTail": tail,
		"Notices":   notices,
	})
}

func (s *Server) verifyForm(c *gin.Context) {
	_, reg, ok := s.pendingRegistration(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/register")
		return
	}
	s.renderVerify(c, http.StatusOK, reg, nil)
}

func (s *Server) verifyCode(c *gin.Context) {
	id, reg, ok := s.pendingRegistration(c)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/register")
		return
	}
	ctx := c.Request.Context()
	req := verifyRequest(reg.Input)

	if c.PostForm("action") == "resend" {
		res, err := s.verifier.SendCode(ctx, req)
		if err != nil || !res.Success {
			if err != nil {
				s.logger.Printf("web: resend verification code to %s: %v", req.Phone, err)
			}
			s.renderVerify(c, http.StatusBadGateway, reg, errorNotice(verifyFailure(res, "No pudimos reenviar el código.")))
			return
		}
		s.renderVerify(c, http.StatusOK, reg, []session.Notice{{Level: reminders.LevelInfo, Message: "Te enviamos un nuevo código."}})
		return
	}

	code := strings.TrimSpace(c.PostForm("code"))
	if code == "" {
		s.renderVerify(c, http.StatusUnprocessableEntity, reg, errorNotice("Escribe el código que recibiste."))
		return
	}
	res, err := s.verifier.VerifyCode(ctx, req, code)
	if err != nil {
		s.logger.Printf("web: verify code for %s: %v", req.Phone, err)
		s.renderVerify(c, http.StatusBadGateway, reg, errorNotice("No pudimos verificar el código. Intenta de nuevo."))
		return
	}
	if !res.Success {
		s.renderVerify(c, http.StatusUnprocessableEntity, reg, errorNotice(verifyFailure(res, "El código no es válido.")))
		return
	}

	s.pending.Pop(id)
	c.SetCookie(pendingCookie, "", -1, "/register", "", s.opts.SecureCookies, true)
	s.completeSignUp(c, reg.Input, registerForm{
		Name:     reg.Input.Name,
		Lastname: reg.Input.Lastname,
		Email:    reg.Input.Email,
		Phone:    reg.Input.Phone,
	})
}

func (s *Server) completeSignUp(c *gin.Context, in auth.SignUpInput, form registerForm) {
	sess, err := s.auth.SignUp(c.Request.Context(), in)
	switch {
	case errors.Is(err, auth.ErrAccountExists):
		s.renderRegister(c, http.StatusConflict, form, errorNotice("Ya existe una cuenta con ese email o número."))
		return
	case errors.Is(err, auth.ErrMissingIdentity), errors.Is(err, auth.ErrPasswordTooShort):
		s.renderRegister(c, http.StatusUnprocessableEntity, form, errorNotice("Revisa los datos del formulario."))
		return
	case err != nil:
		s.failure(c, err)
		return
	}
	s.logger.Printf("web: account %s created", sess.UserID)
	s.setSessionCookie(c, sess)
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (s *Server) renderLogin(c *gin.Context, status int, form loginForm, notices []session.Notice) {
	if form.CountryCode == "" {
		form.CountryCode = s.opts.DefaultCountryCode
	}
	form.Password = ""
	s.page(c, status, "login", "Ingresar", gin.H{
		"Form":         form,
		"CountryCodes": phone.CountryCodes,
		"Notices":      notices,
	})
}

func (s *Server) loginForm(c *gin.Context) {
	if currentSession(c) != nil {
		c.Redirect(http.StatusSeeOther, "/dashboard")
		return
	}
	s.renderLogin(c, http.StatusOK, loginForm{}, nil)
}

func (s *Server) login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		s.renderLogin(c, http.StatusBadRequest, form, errorNotice("No pudimos leer el formulario."))
		return
	}
	form.Identifier = strings.TrimSpace(form.Identifier)
	form.CountryCode = strings.TrimSpace(form.CountryCode)
	if form.CountryCode == "" {
		form.CountryCode = s.opts.DefaultCountryCode
	}

	sess, err := s.auth.SignIn(c.Request.Context(), form.Identifier, form.CountryCode, form.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.renderLogin(c, http.StatusUnauthorized, form, errorNotice("Email, número o contraseña incorrectos."))
		return
	}
	if err != nil {
		s.failure(c, err)
		return
	}
	s.setSessionCookie(c, sess)
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

func (s *Server) logout(c *gin.Context) {
	if sess := currentSession(c); sess != nil {
		s.auth.SignOut(c.Request.Context(), sess)
	}
	s.clearCookie(c, sessionCookie)
	c.Redirect(http.StatusSeeOther, "/")
}
