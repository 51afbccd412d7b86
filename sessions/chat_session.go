package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Desarso/todoagent/models"
	"github.com/Desarso/todoagent/stores"
)

// FallbackReply is returned when the model keeps requesting tools past the
// iteration cap.
const FallbackReply = "I reached the limit of tool calls for a single request. Here's where things stand; please ask again to continue."

// Run drives the bounded tool-calling loop for one user message.
//
// The loop's contract: every tool call the model emits resolves to exactly
// one tool result before the model is asked to continue, a tool failure is
// context for the next round rather than an abort, and only a failure to
// reach the model itself surfaces as an error. The returned Chat_Result
// carries the complete new-message sequence (user message, tool call/result
// pairs, final assistant message) for the caller to persist in one append.
func (s *ChatSession) Run(ctx context.Context, history []stores.Message, text string) (Chat_Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Chat_Result{}, fmt.Errorf("%w: message must not be empty", stores.ErrValidation)
	}

	result := Chat_Result{}
	result.NewMessages = append(result.NewMessages, stores.Message{
		ConversationID: s.ConversationID,
		Role:           stores.RoleUser,
		Type:           stores.TypeUserMessage,
		Content:        text,
	})

	userMsg := models.User_Message{
		Role: "user",
		Content: models.Content{
			Parts: []models.User_Part{{Text: text}},
		},
	}
	currentReq := models.Model_Request{User_Message: &userMsg}
	// Trailing messages of NewMessages that currentReq already carries; they
	// must not also appear in the history slice handed to the model.
	excludeTail := 1

	for round := 1; round <= s.MaxToolRounds; round++ {
		s.Logger.Printf("=== Round %d ===", round)

		contextHistory := append(append([]stores.Message{}, history...),
			result.NewMessages[:len(result.NewMessages)-excludeTail]...)

		response, err := s.Agent.Run(ctx, currentReq, contextHistory)
		if err != nil {
			return Chat_Result{}, fmt.Errorf("agent error: %w", err)
		}

		functionCalls, finalText := splitResponse(response)
		s.Logger.Printf("Model returned %d tool calls, text length %d", len(functionCalls), len(finalText))

		if len(functionCalls) == 0 {
			if finalText == "" {
				finalText = "I've processed your request."
			}
			result.Reply = finalText
			result.NewMessages = append(result.NewMessages, stores.Message{
				ConversationID: s.ConversationID,
				Role:           stores.RoleAssistant,
				Type:           stores.TypeAssistantMessage,
				Content:        finalText,
			})
			return result, nil
		}

		// Record every requested call first, then execute. The round's
		// messages land as a run of tool_calls followed by a run of
		// tool_results, so the tail exclusion below can strip exactly the
		// results (which ride in the next request) while every call stays
		// in the history the model sees.
		callIDs := make([]string, len(functionCalls))
		for i, fc := range functionCalls {
			callID := fc.ID
			if callID == "" {
				callID = fmt.Sprintf("call_%s_%d_%d", fc.Name, round, i)
			}
			callIDs[i] = callID

			argsJSON, err := json.Marshal(fc.Args)
			if err != nil {
				argsJSON = []byte("{}")
			}
			result.NewMessages = append(result.NewMessages, stores.Message{
				ConversationID: s.ConversationID,
				Role:           stores.RoleAssistant,
				Type:           stores.TypeToolCall,
				Content:        string(argsJSON),
				ToolCallID:     callID,
				ToolName:       fc.Name,
			})
		}

		// Execute every requested tool; each call yields exactly one result
		// message even when the tool name is unknown or the args are bad.
		toolResults := make([]models.Tool_Result, 0, len(functionCalls))
		for i, fc := range functionCalls {
			toolResult := s.Agent.ExecuteTool(s.UserID, fc.Name, fc.Args)
			outcome := "success"
			if !toolResult.Success {
				outcome = "failure"
				s.Logger.Printf("Tool %s failed (%s): %s", fc.Name, toolResult.Kind, toolResult.Error)
			}
			result.Tool_Calls = append(result.Tool_Calls, models.Tool_Call_Summary{
				Tool:      fc.Name,
				Arguments: fc.Args,
				Outcome:   outcome,
			})

			output := toolResult.JSON()
			result.NewMessages = append(result.NewMessages, stores.Message{
				ConversationID: s.ConversationID,
				Role:           stores.RoleTool,
				Type:           stores.TypeToolResult,
				Content:        output,
				ToolCallID:     callIDs[i],
				ToolName:       fc.Name,
			})
			toolResults = append(toolResults, models.Tool_Result{
				Tool_ID:     callIDs[i],
				Tool_Name:   fc.Name,
				Tool_Output: output,
			})
		}

		currentReq = models.Model_Request{Tool_Results: &toolResults}
		excludeTail = len(toolResults)
	}

	// Cap exceeded: answer with a fallback instead of looping forever.
	s.Logger.Printf("Tool round cap (%d) reached, returning fallback reply", s.MaxToolRounds)
	result.Reply = FallbackReply
	result.NewMessages = append(result.NewMessages, stores.Message{
		ConversationID: s.ConversationID,
		Role:           stores.RoleAssistant,
		Type:           stores.TypeAssistantMessage,
		Content:        FallbackReply,
	})
	return result, nil
}

// splitResponse separates a model response into its function calls and
// concatenated text.
func splitResponse(response models.Model_Response) ([]models.FunctionCall, string) {
	var calls []models.FunctionCall
	var text strings.Builder
	for _, part := range response.Parts {
		if part.FunctionCall != nil {
			calls = append(calls, *part.FunctionCall)
		}
		if part.Text != nil {
			text.WriteString(*part.Text)
		}
	}
	return calls, strings.TrimSpace(text.String())
}
