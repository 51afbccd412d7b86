package sessions

import (
	"context"
	"log"

	"github.com/Desarso/todoagent/models"
	"github.com/Desarso/todoagent/stores"
	"github.com/Desarso/todoagent/task_tools"
)

// AgentInterface defines the surface the session needs from an agent.
type AgentInterface interface {
	Run(ctx context.Context, request models.Model_Request, history []stores.Message) (models.Model_Response, error)
	ExecuteTool(userID, name string, args map[string]interface{}) task_tools.Result
}

// ChatSession drives one chat request through the tool-calling loop. It holds
// only the in-flight working copy of the conversation; nothing is persisted
// here. The handler appends the resulting message sequence atomically after
// the run completes, so a failed run leaves no partial state behind.
type ChatSession struct {
	Agent          AgentInterface
	UserID         string
	ConversationID uint
	MaxToolRounds  int
	Logger         *log.Logger
}

// Chat_Result is everything a completed run produces: the reply for the
// caller, the exact message sequence to persist, and the tool-call summary.
type Chat_Result struct {
	Reply       string
	NewMessages []stores.Message
	Tool_Calls  []models.Tool_Call_Summary
}
