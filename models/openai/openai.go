package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/Desarso/todoagent/models"
	"github.com/Desarso/todoagent/stores"
)

const defaultBaseURL = "https://api.openai.com/v1/chat/completions"

// OpenAI_Model talks to the OpenAI chat-completions API (or any
// API-compatible endpoint via BaseURL).
type OpenAI_Model struct {
	Model        string
	Temperature  *float64
	MaxTokens    *int
	SystemPrompt string
	BaseURL      string
	APIKeyEnv    string
}

func (m *OpenAI_Model) apiKey() (string, error) {
	env := m.APIKeyEnv
	if env == "" {
		env = "OPENAI_API_KEY"
	}
	key := os.Getenv(env)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", env)
	}
	return key, nil
}

func (m *OpenAI_Model) endpoint() string {
	if m.BaseURL != "" {
		return m.BaseURL
	}
	return defaultBaseURL
}

func (m *OpenAI_Model) modelName() string {
	if m.Model != "" {
		return m.Model
	}
	return "gpt-4o-mini"
}

// Model_Request sends a request to the OpenAI API and returns the response.
// The request carries only content not already present in history: either the
// current user message or the tool results for the previous round.
func (m *OpenAI_Model) Model_Request(ctx context.Context, request models.Model_Request, tools []models.FunctionDeclaration, history []stores.Message) (models.Model_Response, error) {
	apiKey, err := m.apiKey()
	if err != nil {
		return models.Model_Response{}, err
	}

	openaiReq, err := m.createRequest(request, tools, history)
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to create request: %w", err)
	}

	jsonData, err := json.Marshal(openaiReq)
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", m.endpoint(), bytes.NewBuffer(jsonData))
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		message := strings.TrimSpace(string(body))
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
			message = errResp.Error.Message
		}
		return models.Model_Response{}, &models.ProviderError{
			Provider: "OpenAI",
			Status:   resp.StatusCode,
			Message:  message,
		}
	}

	var openaiResp OpenAIResponse
	if err := json.Unmarshal(body, &openaiResp); err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return m.convertResponse(openaiResp), nil
}

// createRequest builds the OpenAI request from history plus the new content.
func (m *OpenAI_Model) createRequest(request models.Model_Request, tools []models.FunctionDeclaration, history []stores.Message) (OpenAIRequest, error) {
	var messages []Message

	if m.SystemPrompt != "" {
		messages = append(messages, Message{
			Role:    "system",
			Content: m.SystemPrompt,
		})
	}

	messages = append(messages, convertHistory(history)...)

	if request.Tool_Results != nil {
		for _, result := range *request.Tool_Results {
			toolCallID := result.Tool_ID
			messages = append(messages, Message{
				Role:       "tool",
				Content:    result.Tool_Output,
				ToolCallID: &toolCallID,
			})
		}
	} else if request.User_Message != nil {
		messages = append(messages, convertUserMessage(*request.User_Message))
	}

	openaiReq := OpenAIRequest{
		Model:       m.modelName(),
		Messages:    messages,
		Temperature: m.Temperature,
		MaxTokens:   m.MaxTokens,
	}

	if len(tools) > 0 {
		openaiReq.Tools = ConvertToOpenAITools(tools)
		openaiReq.ToolChoice = "auto"
	}

	return openaiReq, nil
}

// convertHistory converts stored messages to the OpenAI wire format. A run of
// consecutive tool_call messages comes from a single model turn, so it folds
// into one assistant message carrying the whole tool_calls array.
func convertHistory(history []stores.Message) []Message {
	var messages []Message
	for i := 0; i < len(history); i++ {
		if history[i].Type == stores.TypeToolCall {
			var calls []ToolCall
			for i < len(history) && history[i].Type == stores.TypeToolCall {
				calls = append(calls, ToolCall{
					ID:   history[i].ToolCallID,
					Type: "function",
					Function: ToolCallFunction{
						Name:      history[i].ToolName,
						Arguments: history[i].Content,
					},
				})
				i++
			}
			i--
			messages = append(messages, Message{Role: "assistant", ToolCalls: calls})
			continue
		}
		converted, ok := convertHistoryMessage(history[i])
		if ok {
			messages = append(messages, converted)
		}
	}
	return messages
}

// convertHistoryMessage converts a single stored message to the OpenAI wire
// format. Messages with types the wire format cannot express are skipped.
func convertHistoryMessage(msg stores.Message) (Message, bool) {
	switch msg.Type {
	case stores.TypeUserMessage:
		return Message{Role: "user", Content: msg.Content}, true
	case stores.TypeAssistantMessage:
		return Message{Role: "assistant", Content: msg.Content}, true
	case stores.TypeToolCall:
		return Message{
			Role: "assistant",
			ToolCalls: []ToolCall{
				{
					ID:   msg.ToolCallID,
					Type: "function",
					Function: ToolCallFunction{
						Name:      msg.ToolName,
						Arguments: msg.Content,
					},
				},
			},
		}, true
	case stores.TypeToolResult:
		toolCallID := msg.ToolCallID
		return Message{
			Role:       "tool",
			Content:    msg.Content,
			ToolCallID: &toolCallID,
		}, true
	default:
		log.Printf("Warning: skipping history message with unknown type %q", msg.Type)
		return Message{}, false
	}
}

// convertUserMessage converts a user message to OpenAI format
func convertUserMessage(userMsg models.User_Message) Message {
	var parts []string
	for _, part := range userMsg.Content.Parts {
		if part.Text != "" {
			parts = append(parts, part.Text)
		}
	}
	return Message{
		Role:    "user",
		Content: strings.Join(parts, "\n"),
	}
}

// convertResponse converts the OpenAI response to the internal format.
func (m *OpenAI_Model) convertResponse(resp OpenAIResponse) models.Model_Response {
	var parts []models.Model_Part

	if len(resp.Choices) == 0 {
		return models.Model_Response{Parts: parts}
	}

	choice := resp.Choices[0]

	if content, ok := choice.Message.Content.(string); ok && content != "" {
		parts = append(parts, models.Model_Part{Text: &content})
	}

	for _, toolCall := range choice.Message.ToolCalls {
		var args map[string]interface{}
		if toolCall.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(toolCall.Function.Arguments), &args); err != nil {
				log.Printf("Warning: failed to parse tool call arguments for %s: %v", toolCall.Function.Name, err)
				args = map[string]interface{}{
					"_raw":         toolCall.Function.Arguments,
					"_parse_error": err.Error(),
				}
			}
		} else {
			args = make(map[string]interface{})
		}

		parts = append(parts, models.Model_Part{
			FunctionCall: &models.FunctionCall{
				ID:   toolCall.ID,
				Name: toolCall.Function.Name,
				Args: args,
			},
		})
	}

	return models.Model_Response{Parts: parts}
}
