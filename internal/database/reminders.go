package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pathakanu/claudia/internal/model"
	"gorm.io/gorm"
)

// ReminderRepository stores rows of the reminders collection.
type ReminderRepository struct {
	db *gorm.DB
}

// NewReminderRepository binds a repository to db.
func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// ListByUser returns every reminder owned by userID in creation order.
func (r *ReminderRepository) ListByUser(ctx context.Context, userID string) ([]model.Reminder, error) {
	var reminders []model.Reminder
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return reminders, nil
}

// Insert saves reminder and fills in the identifier and creation time.
func (r *ReminderRepository) Insert(ctx context.Context, reminder *model.Reminder) error {
	if reminder.ID == "" {
		reminder.ID = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(reminder).Error; err != nil {
		return fmt.Errorf("insert reminder: %w", translate(err))
	}
	return nil
}
