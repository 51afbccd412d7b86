package sessions

import (
	"fmt"
	"log"
	"os"
)

// DefaultMaxToolRounds caps the tool-calling loop when no explicit limit is
// configured.
const DefaultMaxToolRounds = 6

// NewChatSession creates a session for one chat request.
func NewChatSession(agent AgentInterface, userID string, conversationID uint, maxToolRounds int) *ChatSession {
	if maxToolRounds <= 0 {
		maxToolRounds = DefaultMaxToolRounds
	}
	logger := log.New(os.Stdout, fmt.Sprintf("[CHAT %d] ", conversationID), log.LstdFlags)

	return &ChatSession{
		Agent:          agent,
		UserID:         userID,
		ConversationID: conversationID,
		MaxToolRounds:  maxToolRounds,
		Logger:         logger,
	}
}
