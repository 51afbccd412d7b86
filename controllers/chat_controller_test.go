package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Desarso/todoagent/models"
	"github.com/Desarso/todoagent/sessions"
	"github.com/Desarso/todoagent/stores"
	"github.com/Desarso/todoagent/task_tools"
)

// echoAgent replies with fixed text and never calls tools.
type echoAgent struct {
	reply string
	err   error
}

func (a *echoAgent) Run(ctx context.Context, request models.Model_Request, history []stores.Message) (models.Model_Response, error) {
	if a.err != nil {
		return models.Model_Response{}, a.err
	}
	text := a.reply
	return models.Model_Response{Parts: []models.Model_Part{{Text: &text}}}, nil
}

func (a *echoAgent) ExecuteTool(userID, name string, args map[string]interface{}) task_tools.Result {
	return task_tools.Failf(task_tools.KindInternal, "unknown or unavailable tool: %s", name)
}

var _ sessions.AgentInterface = (*echoAgent)(nil)

func newTestServer(t *testing.T, agent sessions.AgentInterface) (*gin.Engine, stores.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	path := filepath.Join(t.TempDir(), "test.sqlite")
	store, err := stores.NewSQLiteStoreSimple(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctrl := NewChatController(agent, store, 6, 10*time.Second)
	router := gin.New()
	api := router.Group("/api/:userID", AuthMiddleware(nil))
	ctrl.RegisterRoutes(api)
	return router, store
}

func doJSON(t *testing.T, router *gin.Engine, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestChatRequiresAuth(t *testing.T) {
	router, _ := newTestServer(t, &echoAgent{reply: "hi"})

	w := doJSON(t, router, "POST", "/api/user1/chat", "", models.Chat_Request{Message: "hello"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestChatPathUserMismatch(t *testing.T) {
	router, _ := newTestServer(t, &echoAgent{reply: "hi"})

	w := doJSON(t, router, "POST", "/api/alice/chat", "bob", models.Chat_Request{Message: "hello"})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 when path user differs from credentials, got %d", w.Code)
	}
}

func TestChatEmptyMessage(t *testing.T) {
	router, _ := newTestServer(t, &echoAgent{reply: "hi"})

	w := doJSON(t, router, "POST", "/api/user1/chat", "user1", models.Chat_Request{Message: "   "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestChatHappyPath(t *testing.T) {
	router, store := newTestServer(t, &echoAgent{reply: "hello back"})

	w := doJSON(t, router, "POST", "/api/user1/chat", "user1", models.Chat_Request{Message: "hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.Chat_Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Conversation_ID == 0 {
		t.Error("expected a conversation id")
	}
	if resp.Response != "hello back" {
		t.Errorf("expected 'hello back', got %q", resp.Response)
	}

	history, err := store.LoadHistory(resp.Conversation_ID)
	if err != nil {
		t.Fatalf("LoadHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(history))
	}
	if history[0].Type != stores.TypeUserMessage || history[1].Type != stores.TypeAssistantMessage {
		t.Errorf("unexpected persisted types: %s, %s", history[0].Type, history[1].Type)
	}

	// A follow-up on the same conversation appends to it.
	w = doJSON(t, router, "POST", "/api/user1/chat", "user1", models.Chat_Request{
		Conversation_ID: resp.Conversation_ID,
		Message:         "and again",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on follow-up, got %d", w.Code)
	}
	history, _ = store.LoadHistory(resp.Conversation_ID)
	if len(history) != 4 {
		t.Errorf("expected 4 persisted messages after follow-up, got %d", len(history))
	}
}

func TestChatConversationOwnership(t *testing.T) {
	router, store := newTestServer(t, &echoAgent{reply: "ok"})

	conv, err := store.GetOrCreateConversation("alice", nil)
	if err != nil {
		t.Fatalf("failed to create conversation: %v", err)
	}

	w := doJSON(t, router, "POST", "/api/bob/chat", "bob", models.Chat_Request{
		Conversation_ID: conv.ID,
		Message:         "hijack attempt",
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", w.Code)
	}

	history, _ := store.LoadHistory(conv.ID)
	if len(history) != 0 {
		t.Errorf("nothing should have been persisted, got %d messages", len(history))
	}
}

func TestChatMissingConversation(t *testing.T) {
	router, _ := newTestServer(t, &echoAgent{reply: "ok"})

	w := doJSON(t, router, "POST", "/api/user1/chat", "user1", models.Chat_Request{
		Conversation_ID: 99999,
		Message:         "hello?",
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestChatModelFailureStillPersistsUserMessage(t *testing.T) {
	router, store := newTestServer(t, &echoAgent{err: fmt.Errorf("connection refused")})

	w := doJSON(t, router, "POST", "/api/user1/chat", "user1", models.Chat_Request{Message: "hello"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}

	convs, _ := store.ListConversationsForUser("user1")
	if len(convs) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(convs))
	}
	history, _ := store.LoadHistory(convs[0].ID)
	if len(history) != 2 {
		t.Fatalf("expected user message plus failure marker, got %d messages", len(history))
	}
	if history[0].Content != "hello" {
		t.Errorf("user message not persisted, got %q", history[0].Content)
	}
	if history[1].Type != stores.TypeAssistantMessage {
		t.Errorf("expected assistant failure marker, got %s", history[1].Type)
	}
}

func TestListConversations(t *testing.T) {
	router, _ := newTestServer(t, &echoAgent{reply: "ok"})

	doJSON(t, router, "POST", "/api/user1/chat", "user1", models.Chat_Request{Message: "first"})
	doJSON(t, router, "POST", "/api/user1/chat", "user1", models.Chat_Request{Message: "second"})
	doJSON(t, router, "POST", "/api/other/chat", "other", models.Chat_Request{Message: "noise"})

	w := doJSON(t, router, "GET", "/api/user1/conversations", "user1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Conversations) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(body.Conversations))
	}
	for _, conv := range body.Conversations {
		if conv.MessageCount != 2 {
			t.Errorf("expected message count 2, got %d", conv.MessageCount)
		}
		if conv.LastMessage != "ok" {
			t.Errorf("expected last message 'ok', got %q", conv.LastMessage)
		}
	}
}

func TestConversationMessages(t *testing.T) {
	router, _ := newTestServer(t, &echoAgent{reply: "the reply"})

	w := doJSON(t, router, "POST", "/api/user1/chat", "user1", models.Chat_Request{Message: "the question"})
	var resp models.Chat_Response
	json.Unmarshal(w.Body.Bytes(), &resp)

	w = doJSON(t, router, "GET", fmt.Sprintf("/api/user1/conversations/%d/messages", resp.Conversation_ID), "user1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Messages []models.ChatMessageResponse `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(body.Messages))
	}
	if body.Messages[0].Content != "the question" || body.Messages[1].Content != "the reply" {
		t.Errorf("unexpected message contents: %v", body.Messages)
	}

	// Another user cannot read them.
	w = doJSON(t, router, "GET", fmt.Sprintf("/api/intruder/conversations/%d/messages", resp.Conversation_ID), "intruder", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 for other user, got %d", w.Code)
	}

	w = doJSON(t, router, "GET", "/api/user1/conversations/notanumber/messages", "user1", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", w.Code)
	}
}

func TestDashboardStats(t *testing.T) {
	router, store := newTestServer(t, &echoAgent{reply: "ok"})

	task, _ := store.CreateTask("user1", "tracked", "")
	store.CompleteTask("user1", task.ID)

	w := doJSON(t, router, "GET", "/api/user1/dashboard/stats", "user1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body struct {
		TotalTasks     int64                 `json:"total_tasks"`
		CompletedTasks int64                 `json:"completed_tasks"`
		PendingTasks   int64                 `json:"pending_tasks"`
		CompletionRate float64               `json:"completion_rate"`
		RecentActivity []stores.TaskActivity `json:"recent_activity"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.TotalTasks != 1 || body.CompletedTasks != 1 {
		t.Errorf("unexpected counts: %+v", body)
	}
	if body.CompletionRate != 100 {
		t.Errorf("expected completion rate 100, got %f", body.CompletionRate)
	}
	if len(body.RecentActivity) != 2 {
		t.Errorf("expected 2 activity entries, got %d", len(body.RecentActivity))
	}
}
