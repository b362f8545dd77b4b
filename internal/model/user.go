package model

import "time"

// Account types and profile statuses.
const (
	AccountFree    = "free"
	AccountPremium = "premium"

	ProfileActive = "active"
)

// UserProfile is the application-level account record shown on the dashboard.
// It is stored in the users table and shares its ID with the Credential.
type UserProfile struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name            string    `json:"name"`
	Lastname        string    `json:"lastname"`
	Email           string    `gorm:"index" json:"email"`
	Phone           string    `gorm:"index" json:"phone"`
	Credits         int       `gorm:"not null;default:0" json:"credits"`
	ReminderCredits int       `gorm:"not null;default:0" json:"reminder_credits"`
	AccountType     string    `gorm:"type:varchar(16);not null;default:free" json:"account_type"`
	Status          string    `gorm:"type:varchar(16);not null;default:active" json:"status"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName keeps profiles in the users collection.
func (UserProfile) TableName() string {
	return "users"
}

// DisplayName joins name and lastname.
func (p UserProfile) DisplayName() string {
	switch {
	case p.Name == "":
		return p.Lastname
	case p.Lastname == "":
		return p.Name
	default:
		return p.Name + " " + p.Lastname
	}
}

// Credential is the sign-in record. Phone-only accounts use the synthetic
// alias email produced by phone.Alias.
type Credential struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Phone        string    `gorm:"index"`
	Name         string
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}
