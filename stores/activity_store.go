package stores

import (
	"time"

	"gorm.io/gorm"
)

// Activity actions.
const (
	ActionCreated   = "created"
	ActionCompleted = "completed"
	ActionUpdated   = "updated"
	ActionDeleted   = "deleted"
)

// TaskActivity records one task mutation for the dashboard activity feed.
// TaskID is kept as a plain uint (not a foreign key) so the record survives
// task deletion.
type TaskActivity struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	CreatedAt time.Time `json:"timestamp"`
	UserID    string    `gorm:"index:idx_activity_user;not null" json:"-"`
	TaskID    uint      `json:"task_id"`
	TaskTitle string    `json:"task_title"`
	Action    string    `gorm:"not null" json:"action"` // created, completed, updated, deleted
}

// ActivityStore persists and reads back the task activity feed.
type ActivityStore interface {
	RecordActivity(activity *TaskActivity) error
	RecentActivity(userID string, limit int) ([]TaskActivity, error)
}

func (s *gormStore) RecordActivity(activity *TaskActivity) error {
	if s.db == nil {
		return errNilDB
	}
	return s.db.Create(activity).Error
}

func (s *gormStore) RecentActivity(userID string, limit int) ([]TaskActivity, error) {
	if s.db == nil {
		return nil, errNilDB
	}
	if limit <= 0 {
		limit = 10
	}
	var items []TaskActivity
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// recordActivityTx writes an activity row inside an existing transaction so a
// rolled-back task mutation never leaves a phantom feed entry.
func recordActivityTx(tx *gorm.DB, userID string, taskID uint, title, action string) error {
	return tx.Create(&TaskActivity{
		UserID:    userID,
		TaskID:    taskID,
		TaskTitle: title,
		Action:    action,
	}).Error
}
