package todoagent

import (
	"context"

	"github.com/Desarso/todoagent/models"
	"github.com/Desarso/todoagent/stores"
	"github.com/Desarso/todoagent/task_tools"
)

// Model is the language-model collaborator. Implementations render the
// conversation history plus the current request into their wire format and
// return either text parts, function-call parts, or both.
type Model interface {
	Model_Request(ctx context.Context, request models.Model_Request, tools []models.FunctionDeclaration, conversationHistory []stores.Message) (models.Model_Response, error)
}

// Agent binds a model to the tool registry it may call.
type Agent struct {
	Model    Model
	Registry *task_tools.Registry
}

func Create_Agent(model Model, registry *task_tools.Registry) Agent {
	return Agent{
		Model:    model,
		Registry: registry,
	}
}

// Run performs one model invocation with the agent's tool schemas advertised.
func (agent *Agent) Run(ctx context.Context, request models.Model_Request, conversationHistory []stores.Message) (models.Model_Response, error) {
	return agent.Model.Model_Request(ctx, request, agent.Registry.Declarations(), conversationHistory)
}

// ExecuteTool executes a tool by the name the model produced. An unknown name
// is never dispatched; it becomes an internal-kind failure result the model
// sees on its next turn.
func (agent *Agent) ExecuteTool(userID, functionName string, functionCallArgs map[string]interface{}) task_tools.Result {
	adapter, ok := agent.Registry.Lookup(functionName)
	if !ok {
		return task_tools.Failf(task_tools.KindInternal, "unknown or unavailable tool: %s", functionName)
	}
	if functionCallArgs == nil {
		functionCallArgs = map[string]interface{}{}
	}
	return adapter.Invoke(userID, functionCallArgs)
}
