package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pathakanu/claudia/internal/model"
	"gorm.io/gorm"
)

// ProfileRepository stores rows of the users collection.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository returns a repository over the users table.
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByID returns the profile with the given id or ErrNotFound.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*model.UserProfile, error) {
	return r.first(ctx, "id = ?", id)
}

// FindByEmail matches the email case-insensitively.
func (r *ProfileRepository) FindByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	return r.first(ctx, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
}

// FindByPhone matches the normalized phone digits.
func (r *ProfileRepository) FindByPhone(ctx context.Context, digits string) (*model.UserProfile, error) {
	return r.first(ctx, "phone = ?", digits)
}

// Insert saves profile, assigning an identifier when it has none.
func (r *ProfileRepository) Insert(ctx context.Context, profile *model.UserProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return fmt.Errorf("insert profile: %w", translate(err))
	}
	return nil
}

func (r *ProfileRepository) first(ctx context.Context, query string, arg any) (*model.UserProfile, error) {
	if s, ok := arg.(string); ok && s == "" {
		return nil, ErrNotFound
	}
	var profile model.UserProfile
	if err := r.db.WithContext(ctx).Where(query, arg).First(&profile).Error; err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

// CredentialRepository stores sign-in records.
type CredentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository returns a repository over the credentials table.
func NewCredentialRepository(db *gorm.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Create saves cred. Emails are stored lower-cased and must be unique.
func (r *CredentialRepository) Create(ctx context.Context, cred *model.Credential) error {
	if cred.ID == "" {
		cred.ID = uuid.NewString()
	}
	cred.Email = strings.ToLower(strings.TrimSpace(cred.Email))

	if _, err := r.FindByEmail(ctx, cred.Email); err == nil {
		return ErrDuplicate
	}
	if err := r.db.WithContext(ctx).Create(cred).Error; err != nil {
		return fmt.Errorf("create credential: %w", translate(err))
	}
	return nil
}

// FindByEmail looks up a credential by its lowercased login email.
func (r *CredentialRepository) FindByEmail(ctx context.Context, email string) (*model.Credential, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrNotFound
	}
	var cred model.Credential
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&cred).Error; err != nil {
		return nil, translate(err)
	}
	return &cred, nil
}

// FindByID returns the credential with the given id or ErrNotFound.
func (r *CredentialRepository) FindByID(ctx context.Context, id string) (*model.Credential, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	var cred model.Credential
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&cred).Error; err != nil {
		return nil, translate(err)
	}
	return &cred, nil
}
