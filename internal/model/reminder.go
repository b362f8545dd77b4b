package model

import "time"

// Status is the delivery lifecycle of a reminder. Only the delivery system
// moves a reminder past StatusPending.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// SourceManual tags reminders created from the dashboard calendar.
const SourceManual = "manual"

// NoContact marks a reminder saved without a destination number.
const NoContact = "no_contact"

// Reminder represents a scheduled WhatsApp notification owned by a user.
type Reminder struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string    `gorm:"index;not null" json:"user_id"`
	Title       string    `gorm:"not null" json:"title"`
	Message     string    `gorm:"type:text;not null" json:"message"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Date        time.Time `gorm:"type:date;not null" json:"date"`
	SendDate    time.Time `gorm:"not null" json:"send_date"`
	Phone       string    `gorm:"not null" json:"phone"`
	Status      Status    `gorm:"type:varchar(16);not null;default:pending" json:"status"`
	Source      string    `gorm:"type:varchar(32)" json:"source"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// HasContact reports whether the reminder can be delivered.
func (r Reminder) HasContact() bool {
	return r.Phone != "" && r.Phone != NoContact
}
