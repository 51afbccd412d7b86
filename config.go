package todoagent

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSystemPrompt instructs the model how to use the task tools. The
// list-then-act workflow matters: when the user names a task instead of
// giving an id, the model must resolve the id via list_tasks before calling
// delete_task or update_task.
const DefaultSystemPrompt = `You are a helpful assistant that manages todo tasks through natural language.

The user is already authenticated; you never need to ask who they are.

You can help with five operations using the available tools:
1. Add new tasks with add_task (title plus optional description)
2. List existing tasks with list_tasks (filter by status: all, pending, completed)
3. Mark tasks as complete with complete_task (requires task_id)
4. Delete tasks with delete_task (requires task_id)
5. Update task details with update_task (requires task_id, can change title and/or description)

When the user refers to a task by name rather than id, first call list_tasks
to find the matching task_id, then call the mutating tool with that id. Never
stop after finding a task; always follow through with the actual tool call.

If a tool reports that a task was not found, tell the user plainly that you
could not find it. Always use the tools to act; be helpful and conversational
in your replies.`

// Config collects everything the server needs to run. Values are filled from
// defaults, then an optional YAML file, then environment variables.
type Config struct {
	ListenAddr     string        `yaml:"listen_addr"`
	ModelProvider  string        `yaml:"model_provider"` // "openai" or "gemini"
	ModelName      string        `yaml:"model_name"`
	SystemPrompt   string        `yaml:"system_prompt"`
	StoreType      string        `yaml:"store_type"` // "sqlite" or "postgres"
	StoreDSN       string        `yaml:"store_dsn"`
	MaxToolRounds  int           `yaml:"max_tool_rounds"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// NewConfig returns a configuration with working defaults.
func NewConfig() *Config {
	return &Config{
		ListenAddr:     ":8080",
		ModelProvider:  "openai",
		ModelName:      "gpt-4o-mini",
		SystemPrompt:   DefaultSystemPrompt,
		StoreType:      "sqlite",
		StoreDSN:       "todoagent.sqlite",
		MaxToolRounds:  6,
		RequestTimeout: 60 * time.Second,
	}
}

// WithModel sets the model provider and name.
func (c *Config) WithModel(provider, name string) *Config {
	c.ModelProvider = provider
	c.ModelName = name
	return c
}

// WithStore sets the store type and connection string.
func (c *Config) WithStore(storeType, dsn string) *Config {
	c.StoreType = storeType
	c.StoreDSN = dsn
	return c
}

// WithSystemPrompt overrides the default system prompt.
func (c *Config) WithSystemPrompt(prompt string) *Config {
	c.SystemPrompt = prompt
	return c
}

// WithMaxToolRounds sets the tool-calling iteration cap.
func (c *Config) WithMaxToolRounds(rounds int) *Config {
	if rounds > 0 {
		c.MaxToolRounds = rounds
	}
	return c
}

// LoadFile merges settings from a YAML file. A missing file is not an error
// so deployments without one fall back to defaults and environment.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadEnv applies environment overrides on top of current values.
func (c *Config) LoadEnv() {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("MODEL_PROVIDER"); v != "" {
		c.ModelProvider = v
	}
	if v := os.Getenv("MODEL_NAME"); v != "" {
		c.ModelName = v
	}
	if v := os.Getenv("STORE_TYPE"); v != "" {
		c.StoreType = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.StoreDSN = v
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.RequestTimeout = d
		}
	}
}
