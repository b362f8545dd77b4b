package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/pathakanu/claudia/internal/database"
	"github.com/pathakanu/claudia/internal/model"
	"github.com/pathakanu/claudia/internal/phone"
)

// ErrProfileNotFound is returned when no lookup strategy finds a profile.
var ErrProfileNotFound = errors.New("auth: profile not found")

// LookupStrategy finds the profile behind a session one way.
type LookupStrategy struct {
	Name string
	Find func(ctx context.Context, profiles Profiles, sess *Session) (*model.UserProfile, error)
}

// The built-in lookup strategies.
var (
	ByID = LookupStrategy{
		Name: "id",
		Find: func(ctx context.Context, profiles Profiles, sess *Session) (*model.UserProfile, error) {
			return profiles.FindByID(ctx, sess.UserID)
		},
	}
	ByEmail = LookupStrategy{
		Name: "email",
		Find: func(ctx context.Context, profiles Profiles, sess *Session) (*model.UserProfile, error) {
			return profiles.FindByEmail(ctx, sess.Email)
		},
	}
	ByPhone = LookupStrategy{
		Name: "phone",
		Find: func(ctx context.Context, profiles Profiles, sess *Session) (*model.UserProfile, error) {
			return profiles.FindByPhone(ctx, sessionPhone(sess))
		},
	}
)

// DefaultStrategies tries the row id, then the email, then the phone number.
func DefaultStrategies() []LookupStrategy {
	return []LookupStrategy{ByID, ByEmail, ByPhone}
}

// ResolveProfile runs strategies in order and returns the first hit.
// ErrProfileNotFound is returned only when every strategy reports a missing
// row. If no strategy hits and any lookup failed for another reason, the
// lookup errors are returned instead.
func ResolveProfile(ctx context.Context, profiles Profiles, sess *Session, strategies []LookupStrategy) (*model.UserProfile, string, error) {
	var errs []error
	for _, st := range strategies {
		p, err := st.Find(ctx, profiles, sess)
		if err == nil && p != nil {
			return p, st.Name, nil
		}
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			errs = append(errs, fmt.Errorf("lookup by %s: %w", st.Name, err))
		}
	}
	if len(errs) > 0 {
		return nil, "", errors.Join(errs...)
	}
	return nil, "", ErrProfileNotFound
}

// Profile returns the profile of sess. When no row exists a minimal one is
// inserted once, best-effort, and returned whether or not the insert worked.
func (s *Service) Profile(ctx context.Context, sess *Session) (*model.UserProfile, error) {
	if sess == nil || sess.UserID == "" {
		return nil, ErrInvalidSession
	}

	p, via, err := ResolveProfile(ctx, s.profiles, sess, s.strategies)
	if err == nil {
		if via != ByID.Name {
			s.logger.Printf("auth: profile for %s found by %s", sess.UserID, via)
		}
		return p, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return nil, fmt.Errorf("resolve profile: %w", err)
	}
	s.logger.Printf("auth: %v; repairing profile for %s", err, sess.UserID)

	email := sess.Email
	if _, isAlias := phone.FromAlias(email); isAlias {
		email = ""
	}
	minimal := &model.UserProfile{
		ID:          sess.UserID,
		Name:        sess.Name,
		Email:       email,
		Phone:       sessionPhone(sess),
		AccountType: model.AccountFree,
		Status:      model.ProfileActive,
	}
	if err := s.profiles.Insert(ctx, minimal); err != nil {
		s.logger.Printf("auth: profile repair for %s failed: %v", sess.UserID, err)
	} else {
		s.logger.Printf("auth: profile repair for %s succeeded", sess.UserID)
	}
	return minimal, nil
}

func sessionPhone(sess *Session) string {
	if sess.Phone != "" {
		return sess.Phone
	}
	digits, _ := phone.FromAlias(sess.Email)
	return digits
}
