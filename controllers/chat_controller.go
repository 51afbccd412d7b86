package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Desarso/todoagent/models"
	"github.com/Desarso/todoagent/sessions"
	"github.com/Desarso/todoagent/stores"
)

// transportFailureReply is persisted as the assistant turn when the model
// could not be reached, so the stored history never ends on a bare user
// message.
const transportFailureReply = "I'm having trouble reaching the language model right now. Please try again in a moment."

// ChatController serves the chat API: sending messages, listing
// conversations, replaying message history, and the dashboard stats feed.
type ChatController struct {
	Agent          sessions.AgentInterface
	Store          stores.Store
	MaxToolRounds  int
	RequestTimeout time.Duration
	Logger         *log.Logger
}

// NewChatController wires a controller with its dependencies.
func NewChatController(agent sessions.AgentInterface, store stores.Store, maxToolRounds int, timeout time.Duration) *ChatController {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChatController{
		Agent:          agent,
		Store:          store,
		MaxToolRounds:  maxToolRounds,
		RequestTimeout: timeout,
		Logger:         log.New(os.Stdout, "[CHAT_API] ", log.LstdFlags),
	}
}

// RegisterRoutes mounts the chat API under the given router group. The group
// is expected to carry AuthMiddleware.
func (ctrl *ChatController) RegisterRoutes(r gin.IRouter) {
	r.POST("/chat", ctrl.HandleChat)
	r.GET("/conversations", ctrl.ListConversations)
	r.GET("/conversations/:id/messages", ctrl.ConversationMessages)
	r.GET("/dashboard/stats", ctrl.DashboardStats)
}

// HandleChat runs one user message through the agent loop and persists the
// resulting message sequence in a single append.
func (ctrl *ChatController) HandleChat(c *gin.Context) {
	userID := currentUserID(c)

	var req models.Chat_Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := ctrl.runChat(c.Request.Context(), userID, req)
	if err != nil {
		ctrl.respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// chatRunError pairs a failed run with the conversation it belongs to, so
// error handling can still persist the failure marker.
type chatRunError struct {
	conversationID uint
	text           string
	err            error
}

func (e *chatRunError) Error() string { return e.err.Error() }
func (e *chatRunError) Unwrap() error { return e.err }

// runChat resolves the conversation, replays its history, drives the agent
// loop, and persists the resulting messages in one append. It is shared by
// the HTTP and WebSocket surfaces.
func (ctrl *ChatController) runChat(ctx context.Context, userID string, req models.Chat_Request) (models.Chat_Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return models.Chat_Response{}, fmt.Errorf("%w: message must not be empty", stores.ErrValidation)
	}

	var convID *uint
	if req.Conversation_ID != 0 {
		convID = &req.Conversation_ID
	}

	conv, err := ctrl.Store.GetOrCreateConversation(userID, convID)
	if err != nil {
		return models.Chat_Response{}, err
	}

	history, err := ctrl.Store.LoadHistory(conv.ID)
	if err != nil {
		return models.Chat_Response{}, fmt.Errorf("failed to load conversation history: %w", err)
	}
	history = stores.SanitizeHistory(history)

	runCtx, cancel := context.WithTimeout(ctx, ctrl.RequestTimeout)
	defer cancel()

	session := sessions.NewChatSession(ctrl.Agent, userID, conv.ID, ctrl.MaxToolRounds)
	result, err := session.Run(runCtx, history, req.Message)
	if err != nil {
		if errors.Is(err, stores.ErrValidation) {
			return models.Chat_Response{}, err
		}
		return models.Chat_Response{}, &chatRunError{conversationID: conv.ID, text: req.Message, err: err}
	}

	if err := ctrl.Store.AppendMessages(conv.ID, result.NewMessages); err != nil {
		ctrl.Logger.Printf("failed to persist conversation %d: %v", conv.ID, err)
		return models.Chat_Response{}, fmt.Errorf("failed to persist conversation: %w", err)
	}

	return models.Chat_Response{
		Conversation_ID: conv.ID,
		Response:        result.Reply,
		Tool_Calls:      result.Tool_Calls,
	}, nil
}

// respondChatError maps a failed chat run to an HTTP status. For model
// transport failures the user message still lands in history, paired with a
// fallback assistant turn.
func (ctrl *ChatController) respondChatError(c *gin.Context, err error) {
	var runErr *chatRunError
	if errors.As(err, &runErr) {
		ctrl.persistFailureMarker(runErr.conversationID, runErr.text)
		switch {
		case models.IsRateLimited(runErr.err):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "the language model is rate limiting requests, try again shortly"})
		case errors.Is(runErr.err, context.DeadlineExceeded):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "the request timed out"})
		default:
			ctrl.Logger.Printf("agent run failed for conversation %d: %v", runErr.conversationID, runErr.err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate a response"})
		}
		return
	}

	switch {
	case errors.Is(err, stores.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message must not be empty"})
	case errors.Is(err, stores.ErrNotFound), errors.Is(err, stores.ErrUnauthorized):
		respondStoreError(c, err)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (ctrl *ChatController) persistFailureMarker(conversationID uint, text string) {
	msgs := []stores.Message{
		{
			ConversationID: conversationID,
			Role:           stores.RoleUser,
			Type:           stores.TypeUserMessage,
			Content:        text,
		},
		{
			ConversationID: conversationID,
			Role:           stores.RoleAssistant,
			Type:           stores.TypeAssistantMessage,
			Content:        transportFailureReply,
		},
	}
	if err := ctrl.Store.AppendMessages(conversationID, msgs); err != nil {
		ctrl.Logger.Printf("failed to persist failure marker for conversation %d: %v", conversationID, err)
	}
}

// ListConversations returns the caller's conversations, most recently
// updated first.
func (ctrl *ChatController) ListConversations(c *gin.Context) {
	userID := currentUserID(c)

	convs, err := ctrl.Store.ListConversationsForUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list conversations"})
		return
	}

	summaries := make([]models.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summary := models.ConversationSummary{
			ID:           conv.ID,
			CreatedAt:    conv.CreatedAt,
			UpdatedAt:    conv.UpdatedAt,
			MessageCount: conv.MessageCount,
		}
		if last, err := ctrl.Store.LastVisibleMessage(conv.ID); err == nil && last != nil {
			summary.LastMessage = last.Content
			summary.LastMessageRole = last.Role
		}
		summaries = append(summaries, summary)
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// ConversationMessages replays the stored history of one conversation.
func (ctrl *ChatController) ConversationMessages(c *gin.Context) {
	userID := currentUserID(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	msgs, err := ctrl.Store.ConversationMessages(userID, uint(id))
	if err != nil {
		respondStoreError(c, err)
		return
	}

	out := make([]models.ChatMessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, models.ChatMessageResponse{
			ID:             msg.ID,
			CreatedAt:      msg.CreatedAt,
			ConversationID: msg.ConversationID,
			Sequence:       msg.Sequence,
			Role:           msg.Role,
			Type:           msg.Type,
			Content:        msg.Content,
			ToolCallID:     msg.ToolCallID,
			ToolName:       msg.ToolName,
		})
	}

	c.JSON(http.StatusOK, gin.H{"messages": out})
}

// DashboardStats returns task counts plus the recent activity feed.
func (ctrl *ChatController) DashboardStats(c *gin.Context) {
	userID := currentUserID(c)

	stats, err := ctrl.Store.TaskStats(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute task stats"})
		return
	}

	activity, err := ctrl.Store.RecentActivity(userID, 10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load recent activity"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_tasks":     stats.Total,
		"pending_tasks":   stats.Pending,
		"completed_tasks": stats.Completed,
		"completion_rate": stats.CompletionRate,
		"recent_activity": activity,
	})
}

// respondStoreError maps store sentinels to HTTP statuses.
func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, stores.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	case errors.Is(err, stores.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "conversation belongs to a different user"})
	case errors.Is(err, stores.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
