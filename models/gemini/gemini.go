package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/Desarso/todoagent/models"
	"github.com/Desarso/todoagent/stores"
)

// Gemini_Model talks to the Gemini API through the official genai SDK.
type Gemini_Model struct {
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

func (g *Gemini_Model) modelName() string {
	if g.Model != "" {
		return g.Model
	}
	return "gemini-2.0-flash"
}

// Model_Request sends a request to the Gemini API and returns the response.
func (g *Gemini_Model) Model_Request(ctx context.Context, request models.Model_Request, tools []models.FunctionDeclaration, history []stores.Message) (models.Model_Response, error) {
	if request.User_Message == nil && request.Tool_Results == nil {
		return models.Model_Response{}, fmt.Errorf("request must contain either user message or tool results")
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return models.Model_Response{}, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return models.Model_Response{}, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	contents := buildContents(request, history)

	config := &genai.GenerateContentConfig{}
	if g.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: g.SystemPrompt}},
		}
	}
	if len(tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: convertTools(tools)}}
	}

	result, err := client.Models.GenerateContent(ctx, g.modelName(), contents, config)
	if err != nil {
		return models.Model_Response{}, classifyError(err)
	}

	return convertResponse(result), nil
}

// classifyError maps SDK failures onto the shared provider error type.
// Context cancellation and deadline errors pass through untouched so callers
// can match them with errors.Is. genai.APIError carries the HTTP status code
// in Code, which is what rate-limit detection keys on.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &models.ProviderError{
			Provider: "Gemini",
			Status:   apiErr.Code,
			Message:  apiErr.Message,
		}
	}
	return &models.ProviderError{
		Provider: "Gemini",
		Message:  err.Error(),
	}
}

// buildContents converts stored history plus the new request content into
// the SDK's content list. The request carries only content not already
// present in history.
func buildContents(request models.Model_Request, history []stores.Message) []*genai.Content {
	var contents []*genai.Content

	for i := 0; i < len(history); i++ {
		// Sibling tool calls (and their results) belong to one turn, so a
		// run of same-typed messages folds into a single content.
		if history[i].Type == stores.TypeToolCall || history[i].Type == stores.TypeToolResult {
			runType := history[i].Type
			var parts []*genai.Part
			for i < len(history) && history[i].Type == runType {
				if converted := convertHistoryMessage(history[i]); converted != nil {
					parts = append(parts, converted.Parts...)
				}
				i++
			}
			i--
			role := genai.RoleModel
			if runType == stores.TypeToolResult {
				role = genai.RoleUser
			}
			contents = append(contents, &genai.Content{Role: role, Parts: parts})
			continue
		}
		if converted := convertHistoryMessage(history[i]); converted != nil {
			contents = append(contents, converted)
		}
	}

	if request.Tool_Results != nil {
		var parts []*genai.Part
		for _, result := range *request.Tool_Results {
			parts = append(parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       result.Tool_ID,
					Name:     result.Tool_Name,
					Response: map[string]any{"output": result.Tool_Output},
				},
			})
		}
		contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: parts})
	} else if request.User_Message != nil {
		var texts []string
		for _, part := range request.User_Message.Content.Parts {
			if part.Text != "" {
				texts = append(texts, part.Text)
			}
		}
		contents = append(contents, &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: strings.Join(texts, "\n")}},
		})
	}

	return contents
}

func convertHistoryMessage(msg stores.Message) *genai.Content {
	switch msg.Type {
	case stores.TypeUserMessage:
		return &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: msg.Content}},
		}
	case stores.TypeAssistantMessage:
		return &genai.Content{
			Role:  genai.RoleModel,
			Parts: []*genai.Part{{Text: msg.Content}},
		}
	case stores.TypeToolCall:
		var args map[string]any
		if err := json.Unmarshal([]byte(msg.Content), &args); err != nil {
			log.Printf("Warning: failed to parse stored tool call arguments for %s: %v", msg.ToolName, err)
			args = map[string]any{}
		}
		return &genai.Content{
			Role: genai.RoleModel,
			Parts: []*genai.Part{{
				FunctionCall: &genai.FunctionCall{
					ID:   msg.ToolCallID,
					Name: msg.ToolName,
					Args: args,
				},
			}},
		}
	case stores.TypeToolResult:
		return &genai.Content{
			Role: genai.RoleUser,
			Parts: []*genai.Part{{
				FunctionResponse: &genai.FunctionResponse{
					ID:       msg.ToolCallID,
					Name:     msg.ToolName,
					Response: map[string]any{"output": msg.Content},
				},
			}},
		}
	default:
		log.Printf("Warning: skipping history message with unknown type %q", msg.Type)
		return nil
	}
}

// convertTools converts FunctionDeclarations to the SDK's declaration type.
func convertTools(tools []models.FunctionDeclaration) []*genai.FunctionDeclaration {
	declarations := make([]*genai.FunctionDeclaration, len(tools))
	for i, tool := range tools {
		declarations[i] = &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  convertParameters(tool.Parameters),
		}
	}
	return declarations
}

func convertParameters(params models.Parameters) *genai.Schema {
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{},
		Required:   params.Required,
	}
	for name, raw := range params.Properties {
		prop, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		propSchema := &genai.Schema{}
		if t, ok := prop["type"].(string); ok {
			propSchema.Type = genai.Type(strings.ToUpper(t))
		}
		if desc, ok := prop["description"].(string); ok {
			propSchema.Description = desc
		}
		if enum, ok := prop["enum"].([]string); ok {
			propSchema.Enum = enum
		} else if enumRaw, ok := prop["enum"].([]interface{}); ok {
			for _, v := range enumRaw {
				if s, ok := v.(string); ok {
					propSchema.Enum = append(propSchema.Enum, s)
				}
			}
		}
		schema.Properties[name] = propSchema
	}
	return schema
}

func convertResponse(result *genai.GenerateContentResponse) models.Model_Response {
	response := models.Model_Response{}
	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			var modelPart models.Model_Part
			if part.Text != "" {
				text := part.Text
				modelPart.Text = &text
			}
			if part.FunctionCall != nil {
				modelPart.FunctionCall = &models.FunctionCall{
					ID:   part.FunctionCall.ID,
					Name: part.FunctionCall.Name,
					Args: part.FunctionCall.Args,
				}
			}
			if modelPart.Text != nil || modelPart.FunctionCall != nil {
				response.Parts = append(response.Parts, modelPart)
			}
		}
	}
	return response
}
