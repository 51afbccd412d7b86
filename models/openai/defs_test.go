package openai

import (
	"testing"

	"github.com/Desarso/todoagent/models"
	"github.com/Desarso/todoagent/stores"
)

func TestConvertToOpenAIToolSanitizesEmptySchema(t *testing.T) {
	fd := models.FunctionDeclaration{
		Name:        "list_tasks",
		Description: "List tasks",
	}
	tool := ConvertToOpenAITool(fd)
	if tool.Type != "function" {
		t.Errorf("expected type 'function', got %q", tool.Type)
	}
	params, ok := tool.Function.Parameters.(SanitizedParameters)
	if !ok {
		t.Fatalf("expected SanitizedParameters, got %T", tool.Function.Parameters)
	}
	if params.Type != "object" {
		t.Errorf("expected type 'object', got %q", params.Type)
	}
	if params.Properties == nil {
		t.Error("properties must never be null")
	}
	if params.Required == nil {
		t.Error("required must never be null")
	}
}

func TestConvertHistoryMessage(t *testing.T) {
	userMsg, ok := convertHistoryMessage(stores.Message{Type: stores.TypeUserMessage, Content: "hi"})
	if !ok || userMsg.Role != "user" || userMsg.Content != "hi" {
		t.Errorf("unexpected user message conversion: %+v", userMsg)
	}

	assistant, ok := convertHistoryMessage(stores.Message{Type: stores.TypeAssistantMessage, Content: "hello"})
	if !ok || assistant.Role != "assistant" {
		t.Errorf("unexpected assistant message conversion: %+v", assistant)
	}

	call, ok := convertHistoryMessage(stores.Message{
		Type:       stores.TypeToolCall,
		Content:    `{"title":"x"}`,
		ToolCallID: "call_1",
		ToolName:   "add_task",
	})
	if !ok || call.Role != "assistant" || len(call.ToolCalls) != 1 {
		t.Fatalf("unexpected tool call conversion: %+v", call)
	}
	if call.ToolCalls[0].ID != "call_1" || call.ToolCalls[0].Function.Name != "add_task" {
		t.Errorf("tool call fields wrong: %+v", call.ToolCalls[0])
	}
	if call.ToolCalls[0].Function.Arguments != `{"title":"x"}` {
		t.Errorf("arguments should pass through verbatim, got %q", call.ToolCalls[0].Function.Arguments)
	}

	result, ok := convertHistoryMessage(stores.Message{
		Type:       stores.TypeToolResult,
		Content:    `{"success":true}`,
		ToolCallID: "call_1",
	})
	if !ok || result.Role != "tool" {
		t.Fatalf("unexpected tool result conversion: %+v", result)
	}
	if result.ToolCallID == nil || *result.ToolCallID != "call_1" {
		t.Error("tool result must carry the call id")
	}

	if _, ok := convertHistoryMessage(stores.Message{Type: "mystery"}); ok {
		t.Error("unknown types must be skipped")
	}
}

func TestConvertHistoryGroupsSiblingToolCalls(t *testing.T) {
	history := []stores.Message{
		{Type: stores.TypeUserMessage, Content: "add milk and show my list"},
		{Type: stores.TypeToolCall, Content: `{"title":"milk"}`, ToolCallID: "call_a", ToolName: "add_task"},
		{Type: stores.TypeToolCall, Content: `{}`, ToolCallID: "call_b", ToolName: "list_tasks"},
		{Type: stores.TypeToolResult, Content: `{"success":true}`, ToolCallID: "call_a", ToolName: "add_task"},
		{Type: stores.TypeToolResult, Content: `{"success":true}`, ToolCallID: "call_b", ToolName: "list_tasks"},
		{Type: stores.TypeAssistantMessage, Content: "Done."},
	}

	messages := convertHistory(history)
	// user, one assistant message carrying both calls, two tool messages,
	// assistant text
	if len(messages) != 5 {
		t.Fatalf("expected 5 wire messages, got %d", len(messages))
	}
	grouped := messages[1]
	if grouped.Role != "assistant" || len(grouped.ToolCalls) != 2 {
		t.Fatalf("sibling calls must fold into one assistant message, got %+v", grouped)
	}
	if grouped.ToolCalls[0].ID != "call_a" || grouped.ToolCalls[1].ID != "call_b" {
		t.Errorf("tool calls out of order: %+v", grouped.ToolCalls)
	}
	if messages[2].Role != "tool" || messages[3].Role != "tool" {
		t.Errorf("results must stay individual tool messages, got %q %q", messages[2].Role, messages[3].Role)
	}
	if messages[4].Role != "assistant" || messages[4].Content != "Done." {
		t.Errorf("trailing assistant text wrong: %+v", messages[4])
	}
}

func TestConvertResponseParsesToolCalls(t *testing.T) {
	m := &OpenAI_Model{}
	resp := OpenAIResponse{
		Choices: []Choice{{
			Message: Message{
				Role: "assistant",
				ToolCalls: []ToolCall{{
					ID:   "call_9",
					Type: "function",
					Function: ToolCallFunction{
						Name:      "complete_task",
						Arguments: `{"task_id": 3}`,
					},
				}},
			},
		}},
	}

	converted := m.convertResponse(resp)
	if len(converted.Parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(converted.Parts))
	}
	fc := converted.Parts[0].FunctionCall
	if fc == nil || fc.Name != "complete_task" || fc.ID != "call_9" {
		t.Fatalf("unexpected function call: %+v", fc)
	}
	if fc.Args["task_id"] != float64(3) {
		t.Errorf("expected task_id 3, got %v", fc.Args["task_id"])
	}
}

func TestConvertResponseMalformedArguments(t *testing.T) {
	m := &OpenAI_Model{}
	resp := OpenAIResponse{
		Choices: []Choice{{
			Message: Message{
				Role: "assistant",
				ToolCalls: []ToolCall{{
					ID:       "call_1",
					Type:     "function",
					Function: ToolCallFunction{Name: "add_task", Arguments: `{not json`},
				}},
			},
		}},
	}

	converted := m.convertResponse(resp)
	if len(converted.Parts) != 1 || converted.Parts[0].FunctionCall == nil {
		t.Fatal("malformed arguments must still yield a function call part")
	}
	args := converted.Parts[0].FunctionCall.Args
	if args["_raw"] != `{not json` {
		t.Errorf("raw arguments should be preserved, got %v", args["_raw"])
	}
}
