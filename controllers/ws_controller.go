package controllers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Desarso/todoagent/models"
	"github.com/Desarso/todoagent/stores"
)

// wsErrorFrame is sent to the client when a chat run fails; the socket stays
// open so the client can retry.
type wsErrorFrame struct {
	Error string `json:"error"`
}

// WSController serves the chat API over a WebSocket. Each connection is one
// client session; every inbound frame is a Chat_Request and every outbound
// frame is either a Chat_Response or an error frame.
type WSController struct {
	Chat     *ChatController
	Upgrader websocket.Upgrader
	Logger   *log.Logger
}

// NewWSController wires the WebSocket surface around an existing chat
// controller.
func NewWSController(chat *ChatController) *WSController {
	return &WSController{
		Chat: chat,
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		Logger: log.New(os.Stdout, "[CHAT_WS] ", log.LstdFlags),
	}
}

// RegisterRoutes mounts the WebSocket endpoint under the given router group.
func (ctrl *WSController) RegisterRoutes(r gin.IRouter) {
	r.GET("/chat/ws", ctrl.HandleWS)
}

// HandleWS upgrades the connection and serves chat requests until the client
// disconnects.
func (ctrl *WSController) HandleWS(c *gin.Context) {
	userID := currentUserID(c)

	conn, err := ctrl.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		ctrl.Logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.New().String()
	ctrl.Logger.Printf("WebSocket session %s started for user %s", sessionID, userID)

	for {
		var req models.Chat_Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ctrl.Logger.Printf("WebSocket session %s read error: %v", sessionID, err)
			}
			break
		}

		resp, err := ctrl.Chat.runChat(context.Background(), userID, req)
		if err != nil {
			ctrl.handleRunError(conn, sessionID, err)
			continue
		}

		if err := conn.WriteJSON(resp); err != nil {
			ctrl.Logger.Printf("WebSocket session %s write error: %v", sessionID, err)
			break
		}
	}

	ctrl.Logger.Printf("WebSocket session %s ended", sessionID)
}

func (ctrl *WSController) handleRunError(conn *websocket.Conn, sessionID string, err error) {
	var runErr *chatRunError
	message := "internal error"
	switch {
	case errors.As(err, &runErr):
		ctrl.Chat.persistFailureMarker(runErr.conversationID, runErr.text)
		if models.IsRateLimited(runErr.err) {
			message = "the language model is rate limiting requests, try again shortly"
		} else {
			message = "failed to generate a response"
		}
	case errors.Is(err, stores.ErrValidation):
		message = "message must not be empty"
	case errors.Is(err, stores.ErrNotFound):
		message = "conversation not found"
	case errors.Is(err, stores.ErrUnauthorized):
		message = "conversation belongs to a different user"
	}

	ctrl.Logger.Printf("WebSocket session %s chat error: %v", sessionID, err)
	if writeErr := conn.WriteJSON(wsErrorFrame{Error: message}); writeErr != nil {
		ctrl.Logger.Printf("WebSocket session %s write error: %v", sessionID, writeErr)
	}
}
