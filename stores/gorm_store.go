package stores

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
)

var errNilDB = errors.New("database connection is nil")

// gormStore implements the Store interface against any GORM dialect. The
// SQLite and Postgres stores embed it and only differ in how they connect.
type gormStore struct {
	db    *gorm.DB
	locks *convLocks
}

func (s *gormStore) migrate() error {
	if err := s.db.AutoMigrate(&Task{}, &Conversation{}, &Message{}, &TaskActivity{}); err != nil {
		return fmt.Errorf("failed to migrate database schema: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// TaskStore

func (s *gormStore) CreateTask(userID, title, description string) (*Task, error) {
	if s.db == nil {
		return nil, errNilDB
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrValidation)
	}
	if utf8.RuneCountInString(title) > 200 {
		return nil, fmt.Errorf("%w: title must be at most 200 characters", ErrValidation)
	}
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) > 1000 {
		return nil, fmt.Errorf("%w: description must be at most 1000 characters", ErrValidation)
	}

	task := Task{
		UserID:      userID,
		Title:       title,
		Description: description,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		return recordActivityTx(tx, userID, task.ID, task.Title, ActionCreated)
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *gormStore) ListTasks(userID, status string) ([]Task, error) {
	if s.db == nil {
		return nil, errNilDB
	}

	query := s.db.Where("user_id = ?", userID)
	switch status {
	case "", "all":
		// no filter
	case "pending":
		query = query.Where("completed = ?", false)
	case "completed":
		query = query.Where("completed = ?", true)
	default:
		return nil, fmt.Errorf("%w: status must be one of all, pending, completed", ErrValidation)
	}

	var tasks []Task
	if err := query.Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	return tasks, nil
}

func (s *gormStore) CompleteTask(userID string, taskID uint) (*Task, error) {
	if s.db == nil {
		return nil, errNilDB
	}

	var task Task
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", taskID, userID).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: task %d", ErrNotFound, taskID)
			}
			return fmt.Errorf("failed to fetch task %d: %w", taskID, err)
		}
		task.Completed = true
		if err := tx.Save(&task).Error; err != nil {
			return fmt.Errorf("failed to complete task %d: %w", taskID, err)
		}
		return recordActivityTx(tx, userID, task.ID, task.Title, ActionCompleted)
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *gormStore) DeleteTask(userID string, taskID uint) (bool, error) {
	if s.db == nil {
		return false, errNilDB
	}

	existed := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var task Task
		if err := tx.Where("id = ? AND user_id = ?", taskID, userID).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil // absent: not an error, existed stays false
			}
			return fmt.Errorf("failed to fetch task %d: %w", taskID, err)
		}
		existed = true
		if err := tx.Unscoped().Delete(&task).Error; err != nil {
			return fmt.Errorf("failed to delete task %d: %w", taskID, err)
		}
		return recordActivityTx(tx, userID, task.ID, task.Title, ActionDeleted)
	})
	if err != nil {
		return false, err
	}
	return existed, nil
}

func (s *gormStore) UpdateTask(userID string, taskID uint, title, description *string) (*Task, error) {
	if s.db == nil {
		return nil, errNilDB
	}
	if title == nil && description == nil {
		return nil, fmt.Errorf("%w: at least one of title or description must be provided", ErrValidation)
	}
	if title != nil {
		trimmed := strings.TrimSpace(*title)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: title must not be empty", ErrValidation)
		}
		if utf8.RuneCountInString(trimmed) > 200 {
			return nil, fmt.Errorf("%w: title must be at most 200 characters", ErrValidation)
		}
		title = &trimmed
	}
	if description != nil && utf8.RuneCountInString(*description) > 1000 {
		return nil, fmt.Errorf("%w: description must be at most 1000 characters", ErrValidation)
	}

	var task Task
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", taskID, userID).First(&task).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: task %d", ErrNotFound, taskID)
			}
			return fmt.Errorf("failed to fetch task %d: %w", taskID, err)
		}
		if title != nil {
			task.Title = *title
		}
		if description != nil {
			task.Description = strings.TrimSpace(*description)
		}
		if err := tx.Save(&task).Error; err != nil {
			return fmt.Errorf("failed to update task %d: %w", taskID, err)
		}
		return recordActivityTx(tx, userID, task.ID, task.Title, ActionUpdated)
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *gormStore) TaskStats(userID string) (TaskStats, error) {
	if s.db == nil {
		return TaskStats{}, errNilDB
	}

	var stats TaskStats
	if err := s.db.Model(&Task{}).Where("user_id = ?", userID).Count(&stats.Total).Error; err != nil {
		return TaskStats{}, fmt.Errorf("failed to count tasks: %w", err)
	}
	if err := s.db.Model(&Task{}).Where("user_id = ? AND completed = ?", userID, true).Count(&stats.Completed).Error; err != nil {
		return TaskStats{}, fmt.Errorf("failed to count completed tasks: %w", err)
	}
	stats.Pending = stats.Total - stats.Completed
	if stats.Total > 0 {
		stats.CompletionRate = float64(stats.Completed) / float64(stats.Total) * 100
	}
	return stats, nil
}

// ---------------------------------------------------------------------------
// ConversationStore

func (s *gormStore) GetOrCreateConversation(userID string, conversationID *uint) (*Conversation, error) {
	if s.db == nil {
		return nil, errNilDB
	}

	if conversationID != nil {
		var conv Conversation
		if err := s.db.First(&conv, *conversationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: conversation %d", ErrNotFound, *conversationID)
			}
			return nil, fmt.Errorf("failed to fetch conversation %d: %w", *conversationID, err)
		}
		if conv.UserID != userID {
			return nil, fmt.Errorf("%w: conversation %d belongs to another user", ErrUnauthorized, *conversationID)
		}
		return &conv, nil
	}

	conv := Conversation{UserID: userID}
	if err := s.db.Create(&conv).Error; err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return &conv, nil
}

func (s *gormStore) AppendMessages(conversationID uint, msgs []Message) error {
	if s.db == nil {
		return errNilDB
	}
	if len(msgs) == 0 {
		return nil
	}

	// Sequence assignment and insertion must not interleave with another
	// append to the same conversation, so the whole transaction runs under
	// the per-conversation lock.
	lock := s.locks.forConversation(conversationID)
	lock.Lock()
	defer lock.Unlock()

	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Message{}).Where("conversation_id = ?", conversationID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count existing messages: %w", err)
		}

		seq := int(count)
		for i := range msgs {
			seq++
			msgs[i].ID = 0
			msgs[i].ConversationID = conversationID
			msgs[i].Sequence = seq
			if err := tx.Create(&msgs[i]).Error; err != nil {
				return fmt.Errorf("failed to create message record: %w", err)
			}
		}

		if err := tx.Model(&Conversation{}).Where("id = ?", conversationID).Update("message_count", seq).Error; err != nil {
			return fmt.Errorf("failed to update conversation message count: %w", err)
		}
		return nil
	})
}

func (s *gormStore) LoadHistory(conversationID uint) ([]Message, error) {
	if s.db == nil {
		return nil, errNilDB
	}

	var msgs []Message
	err := s.db.Where("conversation_id = ?", conversationID).
		Order("sequence ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return msgs, nil
}

func (s *gormStore) ListConversationsForUser(userID string) ([]Conversation, error) {
	if s.db == nil {
		return nil, errNilDB
	}

	var convs []Conversation
	err := s.db.Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch conversations: %w", err)
	}
	return convs, nil
}

func (s *gormStore) ConversationMessages(userID string, conversationID uint) ([]Message, error) {
	if _, err := s.GetOrCreateConversation(userID, &conversationID); err != nil {
		return nil, err
	}
	return s.LoadHistory(conversationID)
}

func (s *gormStore) LastVisibleMessage(conversationID uint) (*Message, error) {
	if s.db == nil {
		return nil, errNilDB
	}
	var msg Message
	err := s.db.Where("conversation_id = ? AND type IN ?", conversationID,
		[]string{TypeUserMessage, TypeAssistantMessage}).
		Order("sequence DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch last message: %w", err)
	}
	return &msg, nil
}

// ---------------------------------------------------------------------------
// Connection management

func (s *gormStore) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

func (s *gormStore) Ping() error {
	if s.db == nil {
		return errNilDB
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
