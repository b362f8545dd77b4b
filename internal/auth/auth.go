// Package auth owns credentials and sessions. It is the single contract the
// web layer uses to sign users up, in and out, restore a session from its
// token and resolve the profile behind a session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pathakanu/claudia/internal/database"
	"github.com/pathakanu/claudia/internal/model"
	"github.com/pathakanu/claudia/internal/phone"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted at sign-up.
const MinPasswordLength = 6

// Errors returned by Service.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrAccountExists      = errors.New("auth: an account with this email or phone already exists")
	ErrMissingIdentity    = errors.New("auth: email or phone is required")
	ErrPasswordTooShort   = errors.New("auth: password is too short")
	ErrInvalidSession     = errors.New("auth: invalid or expired session")
)

// Credentials is the sign-in record store.
type Credentials interface {
	Create(ctx context.Context, cred *model.Credential) error
	FindByEmail(ctx context.Context, email string) (*model.Credential, error)
	FindByID(ctx context.Context, id string) (*model.Credential, error)
}

// Profiles is the users collection.
type Profiles interface {
	FindByID(ctx context.Context, id string) (*model.UserProfile, error)
	FindByEmail(ctx context.Context, email string) (*model.UserProfile, error)
	FindByPhone(ctx context.Context, digits string) (*model.UserProfile, error)
	Insert(ctx context.Context, profile *model.UserProfile) error
}

// Session is an authenticated browser session.
type Session struct {
	ID        string
	UserID    string
	Email     string
	Phone     string
	Name      string
	ExpiresAt time.Time
	Token     string
}

// EventKind names a session change.
type EventKind string

const (
	EventSignedIn  EventKind = "signed_in"
	EventSignedOut EventKind = "signed_out"
)

// Event is delivered to subscribers on every session change.
type Event struct {
	Kind    EventKind
	Session *Session
}

// SignUpInput is the registration form after validation. Phone holds
// normalized digits.
type SignUpInput struct {
	Name     string
	Lastname string
	Email    string
	Phone    string
	Password string
}

// Options configures a Service.
type Options struct {
	Secret     []byte
	TTL        time.Duration
	Logger     *log.Logger
	Strategies []LookupStrategy
}

// Service implements sign-up, sign-in, sign-out and session restore.
type Service struct {
	creds      Credentials
	profiles   Profiles
	strategies []LookupStrategy
	secret     []byte
	ttl        time.Duration
	logger     *log.Logger
	now        func() time.Time

	mu        sync.Mutex
	listeners map[int]func(Event)
	nextID    int
	revoked   map[string]time.Time
}

// NewService creates a Service.
func NewService(creds Credentials, profiles Profiles, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	strategies := opts.Strategies
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Service{
		creds:      creds,
		profiles:   profiles,
		strategies: strategies,
		secret:     opts.Secret,
		ttl:        ttl,
		logger:     logger,
		now:        time.Now,
		listeners:  make(map[int]func(Event)),
		revoked:    make(map[string]time.Time),
	}
}

// SignUp creates the credential and the profile row and opens a session.
// Accounts without email sign in through the phone alias.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	digits := phone.Digits(in.Phone)
	if email == "" && digits == "" {
		return nil, ErrMissingIdentity
	}
	if len(in.Password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if digits != "" {
		if _, err := s.profiles.FindByPhone(ctx, digits); err == nil {
			return nil, ErrAccountExists
		}
	}

	loginEmail := email
	if loginEmail == "" {
		loginEmail = phone.Alias(digits)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	name := strings.TrimSpace(in.Name)
	cred := &model.Credential{
		Email:        loginEmail,
		PasswordHash: string(hash),
		Phone:        digits,
		Name:         name,
	}
	if err := s.creds.Create(ctx, cred); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create credential: %w", err)
	}

	profile := &model.UserProfile{
		ID:          cred.ID,
		Name:        name,
		Lastname:    strings.TrimSpace(in.Lastname),
		Email:       email,
		Phone:       digits,
		AccountType: model.AccountFree,
		Status:      model.ProfileActive,
	}
	if err := s.profiles.Insert(ctx, profile); err != nil {
		s.logger.Printf("auth: sign-up profile insert for %s: %v", cred.ID, err)
	}

	return s.open(cred)
}

// SignIn checks the password of the account identified by an email or a
// phone number. Phone numbers are normalized with countryCode and resolved
// through their alias, then through the profile holding that number.
func (s *Service) SignIn(ctx context.Context, identifier, countryCode, password string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var (
		cred *model.Credential
		err  error
	)
	if strings.Contains(identifier, "@") {
		cred, err = s.creds.FindByEmail(ctx, identifier)
	} else {
		cred, err = s.credentialForPhone(ctx, phone.Normalize(identifier, countryCode))
	}
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.open(cred)
}

func (s *Service) credentialForPhone(ctx context.Context, digits string) (*model.Credential, error) {
	cred, err := s.creds.FindByEmail(ctx, phone.Alias(digits))
	if err == nil || !errors.Is(err, database.ErrNotFound) {
		return cred, err
	}
	profile, err := s.profiles.FindByPhone(ctx, digits)
	if err != nil {
		return nil, err
	}
	return s.creds.FindByID(ctx, profile.ID)
}

// SignOut revokes the session token and notifies subscribers.
func (s *Service) SignOut(_ context.Context, sess *Session) {
	if sess == nil {
		return
	}
	s.mu.Lock()
	s.revoked[sess.ID] = sess.ExpiresAt
	s.mu.Unlock()
	s.emit(Event{Kind: EventSignedOut, Session: sess})
}

// Restore rebuilds the session carried by token. The account must still exist.
func (s *Service) Restore(ctx context.Context, token string) (*Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrInvalidSession
	}
	sess, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if s.isRevoked(sess.ID) {
		return nil, ErrInvalidSession
	}
	if _, err := s.creds.FindByID(ctx, sess.UserID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return sess, nil
}

// Subscribe registers fn for session changes and returns its cancel func.
func (s *Service) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) emit(ev Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (s *Service) open(cred *model.Credential) (*Session, error) {
	sess, err := s.issue(cred)
	if err != nil {
		return nil, err
	}
	s.emit(Event{Kind: EventSignedIn, Session: sess})
	return sess, nil
}

func (s *Service) isRevoked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for jti, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, jti)
		}
	}
	_, ok := s.revoked[id]
	return ok
}

// claims is the session token payload.
type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Name  string `json:"name,omitempty"`
}

func (s *Service) issue(cred *model.Credential) (*Session, error) {
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    cred.ID,
		Email:     cred.Email,
		Phone:     cred.Phone,
		Name:      cred.Name,
		ExpiresAt: now.Add(s.ttl).Truncate(time.Second),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
		Email: sess.Email,
		Phone: sess.Phone,
		Name:  sess.Name,
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	sess.Token = signed
	return sess, nil
}

func (s *Service) parse(tokenString string) (*Session, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}
	if c.Subject == "" || c.ID == "" || c.ExpiresAt == nil {
		return nil, ErrInvalidSession
	}
	return &Session{
		ID:        c.ID,
		UserID:    c.Subject,
		Email:     c.Email,
		Phone:     c.Phone,
		Name:      c.Name,
		ExpiresAt: c.ExpiresAt.Time,
		Token:     tokenString,
	}, nil
}
