package task_tools

import (
	"github.com/Desarso/todoagent/models"
	"github.com/Desarso/todoagent/stores"
)

// AddTaskTool returns the adapter for creating a task.
func AddTaskTool(store stores.TaskStore) *ToolAdapter {
	return &ToolAdapter{
		Decl: models.FunctionDeclaration{
			Name:        "add_task",
			Description: "Create a new task for the authenticated user. The user is identified automatically.",
			Parameters: models.Parameters{
				Type: "object",
				Properties: map[string]interface{}{
					"title": map[string]interface{}{
						"type":        "string",
						"description": "The title of the task (required, at most 200 characters)",
					},
					"description": map[string]interface{}{
						"type":        "string",
						"description": "The description of the task (optional, at most 1000 characters)",
					},
				},
				Required: []string{"title"},
			},
		},
		Invoke: func(userID string, args map[string]interface{}) Result {
			return addTask(store, userID, args)
		},
	}
}

// ListTasksTool returns the adapter for listing tasks.
func ListTasksTool(store stores.TaskStore) *ToolAdapter {
	return &ToolAdapter{
		Decl: models.FunctionDeclaration{
			Name:        "list_tasks",
			Description: "Retrieve tasks for the authenticated user, optionally filtered by status.",
			Parameters: models.Parameters{
				Type: "object",
				Properties: map[string]interface{}{
					"status": map[string]interface{}{
						"type":        "string",
						"description": "Filter tasks by status: 'all', 'pending', or 'completed'",
						"enum":        []string{"all", "pending", "completed"},
					},
				},
				Required: []string{},
			},
		},
		Invoke: func(userID string, args map[string]interface{}) Result {
			return listTasks(store, userID, args)
		},
	}
}

// CompleteTaskTool returns the adapter for marking a task complete.
func CompleteTaskTool(store stores.TaskStore) *ToolAdapter {
	return &ToolAdapter{
		Decl: models.FunctionDeclaration{
			Name:        "complete_task",
			Description: "Mark a task as complete for the authenticated user.",
			Parameters: models.Parameters{
				Type: "object",
				Properties: map[string]interface{}{
					"task_id": map[string]interface{}{
						"type":        "integer",
						"description": "The ID of the task to mark as complete",
					},
				},
				Required: []string{"task_id"},
			},
		},
		Invoke: func(userID string, args map[string]interface{}) Result {
			return completeTask(store, userID, args)
		},
	}
}

// DeleteTaskTool returns the adapter for deleting a task. Deleting an absent
// task reports success so retries stay safe.
func DeleteTaskTool(store stores.TaskStore) *ToolAdapter {
	return &ToolAdapter{
		Decl: models.FunctionDeclaration{
			Name:        "delete_task",
			Description: "Remove a task from the authenticated user's list.",
			Parameters: models.Parameters{
				Type: "object",
				Properties: map[string]interface{}{
					"task_id": map[string]interface{}{
						"type":        "integer",
						"description": "The ID of the task to delete",
					},
				},
				Required: []string{"task_id"},
			},
		},
		Invoke: func(userID string, args map[string]interface{}) Result {
			return deleteTask(store, userID, args)
		},
	}
}

// UpdateTaskTool returns the adapter for updating a task's title or description.
func UpdateTaskTool(store stores.TaskStore) *ToolAdapter {
	return &ToolAdapter{
		Decl: models.FunctionDeclaration{
			Name:        "update_task",
			Description: "Modify a task's title or description for the authenticated user. At least one field must be supplied.",
			Parameters: models.Parameters{
				Type: "object",
				Properties: map[string]interface{}{
					"task_id": map[string]interface{}{
						"type":        "integer",
						"description": "The ID of the task to update",
					},
					"title": map[string]interface{}{
						"type":        "string",
						"description": "The new title for the task (optional)",
					},
					"description": map[string]interface{}{
						"type":        "string",
						"description": "The new description for the task (optional)",
					},
				},
				Required: []string{"task_id"},
			},
		},
		Invoke: func(userID string, args map[string]interface{}) Result {
			return updateTask(store, userID, args)
		},
	}
}

// DefaultTaskTools returns the registry with the full task tool set.
func DefaultTaskTools(store stores.TaskStore) *Registry {
	return NewRegistry(
		AddTaskTool(store),
		ListTasksTool(store),
		CompleteTaskTool(store),
		DeleteTaskTool(store),
		UpdateTaskTool(store),
	)
}
