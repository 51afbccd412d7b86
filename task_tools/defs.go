package task_tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/Desarso/todoagent/models"
	"github.com/Desarso/todoagent/stores"
)

// Failure kinds carried on tool results. These are the only categories the
// orchestration loop and the API layer distinguish.
const (
	KindValidation    = "validation"
	KindNotFound      = "not_found"
	KindAuthorization = "authorization"
	KindInternal      = "internal"
)

// Result is the uniform outcome of one tool invocation. It is serialized to
// JSON and handed back to the model as a tool message, so failures must stay
// structured and human-readable rather than becoming Go errors.
type Result struct {
	Success bool   `json:"success"`
	Data    string `json:"data,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSON serializes the result for the model. Marshalling a flat struct of
// strings cannot fail, so the error is ignored.
func (r Result) JSON() string {
	b, _ := json.Marshal(r)
	return string(b)
}

// Ok builds a success result with a model-readable payload.
func Ok(data string) Result {
	return Result{Success: true, Data: data}
}

// Fail builds a structured failure result.
func Fail(kind, message string) Result {
	return Result{Success: false, Kind: kind, Error: message}
}

// Failf builds a structured failure result with a formatted message.
func Failf(kind, format string, args ...interface{}) Result {
	return Fail(kind, fmt.Sprintf(format, args...))
}

// FailFromErr classifies a store error into a failure result.
func FailFromErr(err error) Result {
	switch {
	case errors.Is(err, stores.ErrValidation):
		return Fail(KindValidation, err.Error())
	case errors.Is(err, stores.ErrNotFound):
		return Fail(KindNotFound, err.Error())
	case errors.Is(err, stores.ErrUnauthorized):
		return Fail(KindAuthorization, err.Error())
	default:
		return Fail(KindInternal, err.Error())
	}
}

// ToolAdapter pairs a tool's declaration with its executor. Invoke validates
// the raw model-produced arguments against the declaration's schema before
// touching storage; the authenticated user id is passed explicitly and never
// read from the arguments.
type ToolAdapter struct {
	Decl   models.FunctionDeclaration
	Invoke func(userID string, args map[string]interface{}) Result
}

// Registry maps tool names to adapters and preserves registration order for
// stable schema advertisement.
type Registry struct {
	adapters map[string]*ToolAdapter
	order    []string
}

// NewRegistry creates a registry from the given adapters.
func NewRegistry(adapters ...*ToolAdapter) *Registry {
	r := &Registry{adapters: make(map[string]*ToolAdapter)}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// Register adds an adapter, replacing any previous adapter with the same name.
func (r *Registry) Register(a *ToolAdapter) {
	if _, exists := r.adapters[a.Decl.Name]; !exists {
		r.order = append(r.order, a.Decl.Name)
	}
	r.adapters[a.Decl.Name] = a
}

// Lookup returns the adapter for a tool name.
func (r *Registry) Lookup(name string) (*ToolAdapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Declarations returns the schemas advertised to the model, in registration order.
func (r *Registry) Declarations() []models.FunctionDeclaration {
	decls := make([]models.FunctionDeclaration, 0, len(r.order))
	for _, name := range r.order {
		decls = append(decls, r.adapters[name].Decl)
	}
	return decls
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// ---------------------------------------------------------------------------
// Argument extraction helpers. Model-produced arguments arrive as untyped
// JSON, so every access re-validates type and presence.

func stringArg(args map[string]interface{}, key string) (string, bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("argument '%s' must be a string, got %T", key, v)
	}
	return s, true, nil
}

// uintArg accepts the number representations JSON decoding can produce.
// Models occasionally send ids as quoted strings, so digit strings pass too.
func uintArg(args map[string]interface{}, key string) (uint, bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		if n <= 0 || n != math.Trunc(n) {
			return 0, false, fmt.Errorf("argument '%s' must be a positive integer", key)
		}
		return uint(n), true, nil
	case int:
		if n <= 0 {
			return 0, false, fmt.Errorf("argument '%s' must be a positive integer", key)
		}
		return uint(n), true, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil || i <= 0 {
			return 0, false, fmt.Errorf("argument '%s' must be a positive integer", key)
		}
		return uint(i), true, nil
	case string:
		var i uint
		if _, err := fmt.Sscanf(n, "%d", &i); err != nil || i == 0 {
			return 0, false, fmt.Errorf("argument '%s' must be a positive integer", key)
		}
		return i, true, nil
	default:
		return 0, false, fmt.Errorf("argument '%s' must be a positive integer, got %T", key, v)
	}
}
