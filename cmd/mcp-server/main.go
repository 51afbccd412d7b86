// mcp-server exposes the task tools over the Model Context Protocol so MCP
// clients (editors, desktop assistants) can manage tasks against the same
// store the chat agent uses.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Desarso/todoagent/stores"
	"github.com/Desarso/todoagent/task_tools"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "todoagent.sqlite"
	}
	storeType := os.Getenv("STORE_TYPE")
	if storeType == "" {
		storeType = "sqlite"
	}

	store, err := stores.NewStore(stores.NewStoreConfig(storeType, dsn))
	if err != nil {
		log.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	registry := task_tools.DefaultTaskTools(store)

	s := server.NewMCPServer(
		"todo-mcp-server",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	// Every registry adapter becomes one MCP tool. MCP clients carry no
	// session identity, so each tool takes an explicit user_id argument on
	// top of the adapter's own schema.
	for _, name := range registry.Names() {
		adapter, ok := registry.Lookup(name)
		if !ok {
			continue
		}
		s.AddTool(buildTool(adapter), buildHandler(adapter))
	}

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func buildTool(adapter *task_tools.ToolAdapter) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(adapter.Decl.Description),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("ID of the user whose tasks to operate on"),
		),
	}

	for propName, raw := range adapter.Decl.Parameters.Properties {
		prop, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		desc, _ := prop["description"].(string)
		propType, _ := prop["type"].(string)

		var propOpts []mcp.PropertyOption
		propOpts = append(propOpts, mcp.Description(desc))
		if required(adapter.Decl.Parameters.Required, propName) {
			propOpts = append(propOpts, mcp.Required())
		}

		switch propType {
		case "integer", "number":
			opts = append(opts, mcp.WithNumber(propName, propOpts...))
		case "boolean":
			opts = append(opts, mcp.WithBoolean(propName, propOpts...))
		default:
			opts = append(opts, mcp.WithString(propName, propOpts...))
		}
	}

	return mcp.NewTool(adapter.Decl.Name, opts...)
}

func buildHandler(adapter *task_tools.ToolAdapter) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := req.Params.Arguments.(map[string]any)
		if args == nil {
			args = map[string]any{}
		}

		userID, _ := args["user_id"].(string)
		if userID == "" {
			return mcp.NewToolResultError("user_id is required"), nil
		}
		delete(args, "user_id")

		result := adapter.Invoke(userID, args)
		if !result.Success {
			return mcp.NewToolResultError(result.Error), nil
		}
		return mcp.NewToolResultText(result.Data), nil
	}
}

func required(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
