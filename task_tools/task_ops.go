package task_tools

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Desarso/todoagent/stores"
)

// describeTask formats one task line the way the model consumes it.
func describeTask(t stores.Task) string {
	status := "pending"
	if t.Completed {
		status = "completed"
	}
	return fmt.Sprintf("ID: %d, Title: %s, Status: %s", t.ID, t.Title, status)
}

// addTask creates a task after re-validating the model-produced arguments.
func addTask(store stores.TaskStore, userID string, args map[string]interface{}) Result {
	title, ok, err := stringArg(args, "title")
	if err != nil {
		return Fail(KindValidation, err.Error())
	}
	if !ok || strings.TrimSpace(title) == "" {
		return Fail(KindValidation, "title is required")
	}
	if utf8.RuneCountInString(strings.TrimSpace(title)) > 200 {
		return Fail(KindValidation, "title must be at most 200 characters")
	}

	description, _, err := stringArg(args, "description")
	if err != nil {
		return Fail(KindValidation, err.Error())
	}
	if utf8.RuneCountInString(description) > 1000 {
		return Fail(KindValidation, "description must be at most 1000 characters")
	}

	task, err := store.CreateTask(userID, title, description)
	if err != nil {
		return FailFromErr(err)
	}
	return Ok(fmt.Sprintf("Successfully created task: %s (ID: %d)", task.Title, task.ID))
}

func listTasks(store stores.TaskStore, userID string, args map[string]interface{}) Result {
	status, ok, err := stringArg(args, "status")
	if err != nil {
		return Fail(KindValidation, err.Error())
	}
	if !ok || status == "" {
		status = "all"
	}
	switch status {
	case "all", "pending", "completed":
	default:
		return Failf(KindValidation, "status must be one of all, pending, completed; got %q", status)
	}

	tasks, err := store.ListTasks(userID, status)
	if err != nil {
		return FailFromErr(err)
	}
	if len(tasks) == 0 {
		return Ok("No tasks found.")
	}

	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		lines = append(lines, describeTask(t))
	}
	return Ok(fmt.Sprintf("Tasks (%s):\n%s", status, strings.Join(lines, "\n")))
}

func completeTask(store stores.TaskStore, userID string, args map[string]interface{}) Result {
	taskID, ok, err := uintArg(args, "task_id")
	if err != nil {
		return Fail(KindValidation, err.Error())
	}
	if !ok {
		return Fail(KindValidation, "task_id is required")
	}

	task, err := store.CompleteTask(userID, taskID)
	if err != nil {
		return FailFromErr(err)
	}
	return Ok(fmt.Sprintf("Successfully marked task '%s' as complete.", task.Title))
}

// deleteTask treats an already-absent task as success so a natural-language
// "delete the X task" stays retry-safe. Documented policy, not a bug.
func deleteTask(store stores.TaskStore, userID string, args map[string]interface{}) Result {
	taskID, ok, err := uintArg(args, "task_id")
	if err != nil {
		return Fail(KindValidation, err.Error())
	}
	if !ok {
		return Fail(KindValidation, "task_id is required")
	}

	existed, err := store.DeleteTask(userID, taskID)
	if err != nil {
		return FailFromErr(err)
	}
	if !existed {
		return Ok(fmt.Sprintf("Task %d was already deleted.", taskID))
	}
	return Ok(fmt.Sprintf("Successfully deleted task %d.", taskID))
}

func updateTask(store stores.TaskStore, userID string, args map[string]interface{}) Result {
	taskID, ok, err := uintArg(args, "task_id")
	if err != nil {
		return Fail(KindValidation, err.Error())
	}
	if !ok {
		return Fail(KindValidation, "task_id is required")
	}

	var title, description *string
	if s, present, err := stringArg(args, "title"); err != nil {
		return Fail(KindValidation, err.Error())
	} else if present {
		title = &s
	}
	if s, present, err := stringArg(args, "description"); err != nil {
		return Fail(KindValidation, err.Error())
	} else if present {
		description = &s
	}

	if title == nil && description == nil {
		return Fail(KindValidation, "at least one of title or description must be provided")
	}
	if title != nil {
		if strings.TrimSpace(*title) == "" {
			return Fail(KindValidation, "title must not be empty")
		}
		if utf8.RuneCountInString(strings.TrimSpace(*title)) > 200 {
			return Fail(KindValidation, "title must be at most 200 characters")
		}
	}
	if description != nil && utf8.RuneCountInString(*description) > 1000 {
		return Fail(KindValidation, "description must be at most 1000 characters")
	}

	task, err := store.UpdateTask(userID, taskID, title, description)
	if err != nil {
		return FailFromErr(err)
	}
	desc := task.Description
	if desc == "" {
		desc = "N/A"
	}
	return Ok(fmt.Sprintf("Successfully updated task. New title: '%s', Description: '%s'", task.Title, desc))
}
