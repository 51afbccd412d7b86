package models

import "time"

type Model_Response struct {
	Parts []Model_Part `json:"parts"`
}

//may be a string or a function call and it will be parts

type FunctionCall struct {
	ID   string                 `json:"id,omitempty"` // Unique ID for this specific call instance
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

type Model_Part struct {
	Text         *string       `json:"text,omitempty"`
	FunctionCall *FunctionCall `json:"functionCall,omitempty"`
}

// Tool_Call_Summary reports one executed tool call back to the API caller.
type Tool_Call_Summary struct {
	Tool      string                 `json:"tool"`
	Arguments map[string]interface{} `json:"arguments"`
	Outcome   string                 `json:"outcome"` // "success" or "failure"
}

type Chat_Response struct {
	Conversation_ID uint                `json:"conversation_id"`
	Response        string              `json:"response"`
	Tool_Calls      []Tool_Call_Summary `json:"tool_calls"`
}

// ChatMessageResponse is the API shape for one stored conversation message.
type ChatMessageResponse struct {
	ID             uint      `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	ConversationID uint      `json:"conversation_id"`
	Sequence       int       `json:"sequence"`
	Role           string    `json:"role"`
	Type           string    `json:"type"`
	Content        string    `json:"content"`
	ToolCallID     string    `json:"tool_call_id,omitempty"`
	ToolName       string    `json:"tool_name,omitempty"`
}

// ConversationSummary is the API shape for one conversation in a listing.
type ConversationSummary struct {
	ID              uint      `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	MessageCount    int       `json:"message_count"`
	LastMessage     string    `json:"last_message"`
	LastMessageRole string    `json:"last_message_role,omitempty"`
}
