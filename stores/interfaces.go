package stores

import (
	"errors"

	"gorm.io/gorm"
)

// Domain error sentinels. Store methods wrap these so callers can classify
// failures with errors.Is without matching on message text.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
)

// Message role values.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message type values. A tool_call carries the call arguments the assistant
// produced; a tool_result carries the adapter's serialized outcome.
const (
	TypeUserMessage      = "user_message"
	TypeAssistantMessage = "assistant_message"
	TypeToolCall         = "tool_call"
	TypeToolResult       = "tool_result"
)

// Task is one todo item owned by a user. The agent only ever touches tasks
// through the tool adapters, which scope every query by UserID.
type Task struct {
	gorm.Model
	UserID      string `gorm:"index;not null"`
	Title       string `gorm:"size:200;not null"`
	Description string `gorm:"size:1000"`
	Completed   bool   `gorm:"index;default:false"`
}

// Conversation holds metadata for a chat conversation
type Conversation struct {
	gorm.Model
	UserID       string    `gorm:"index;not null"`
	Title        string    `gorm:"type:text"`
	MessageCount int       `gorm:"default:0"`
	Messages     []Message `gorm:"foreignKey:ConversationID"`
}

// Message represents one turn unit within a conversation. Messages are
// append-only: nothing updates a row after insertion, and Sequence gives the
// total order the model context is replayed in.
type Message struct {
	gorm.Model
	ConversationID uint   `gorm:"index;not null"`
	Sequence       int    `gorm:"not null"`
	Role           string `gorm:"not null"` // "user", "assistant", "tool"
	Type           string `gorm:"not null"` // "user_message", "assistant_message", "tool_call", "tool_result"
	Content        string `gorm:"type:text"`
	ToolCallID     string `gorm:"index"` // links a tool_result back to its tool_call
	ToolName       string
}

// TaskStats aggregates a user's task counts for the dashboard endpoint.
type TaskStats struct {
	Total          int64   `json:"total_tasks"`
	Pending        int64   `json:"pending_tasks"`
	Completed      int64   `json:"completed_tasks"`
	CompletionRate float64 `json:"completion_rate"`
}

// TaskStore exposes the five task operations the agent's tools are built on.
// Every operation is scoped to the owning user: a task id belonging to a
// different user behaves exactly like a missing task.
type TaskStore interface {
	CreateTask(userID, title, description string) (*Task, error)
	ListTasks(userID, status string) ([]Task, error)
	CompleteTask(userID string, taskID uint) (*Task, error)
	// DeleteTask reports whether the task existed. Deleting an absent task is
	// not an error; the idempotence policy lives in the tool adapter.
	DeleteTask(userID string, taskID uint) (bool, error)
	UpdateTask(userID string, taskID uint, title, description *string) (*Task, error)
	TaskStats(userID string) (TaskStats, error)
}

// ConversationStore is the durable, append-only home of conversation state.
type ConversationStore interface {
	// GetOrCreateConversation resolves an existing conversation (which must
	// belong to userID) or creates a new one when conversationID is nil.
	GetOrCreateConversation(userID string, conversationID *uint) (*Conversation, error)
	// AppendMessages appends the full sequence atomically: either every
	// message lands with contiguous sequence numbers or none do. Appends to
	// the same conversation are serialized against each other.
	AppendMessages(conversationID uint, msgs []Message) error
	// LoadHistory returns the full message history, oldest first.
	LoadHistory(conversationID uint) ([]Message, error)
	ListConversationsForUser(userID string) ([]Conversation, error)
	// ConversationMessages is LoadHistory plus an ownership check.
	ConversationMessages(userID string, conversationID uint) ([]Message, error)
	// LastVisibleMessage returns the newest user or assistant message, or
	// nil when the conversation has none.
	LastVisibleMessage(conversationID uint) (*Message, error)
}

// Store is the full persistence surface handed to the server.
type Store interface {
	TaskStore
	ConversationStore
	ActivityStore

	Connect() error
	Close() error
	Ping() error
}

// StoreConfig holds configuration for database stores
type StoreConfig struct {
	Type       string            `json:"type"`       // "sqlite", "postgres"
	Connection string            `json:"connection"` // connection string
	Options    map[string]string `json:"options"`    // additional options
}

// NewStoreConfig creates a new store configuration
func NewStoreConfig(storeType, connection string) *StoreConfig {
	return &StoreConfig{
		Type:       storeType,
		Connection: connection,
		Options:    make(map[string]string),
	}
}

// WithOption adds an option to the store configuration
func (c *StoreConfig) WithOption(key, value string) *StoreConfig {
	c.Options[key] = value
	return c
}
