// Package tool implements the agent's tool registry: a fixed, ordered
// set of named capabilities with typed argument schemas and flat
// results, dispatched by name lookup.
package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/xeipuuv/gojsonschema"

	contractx "github.com/showeasy/concierge/agent/contract"
)

// Invoker executes one tool call. Returned errors mean the upstream
// collaborator failed; business-level misses are reported inside the
// result so the reasoning step can react to them.
type Invoker func(ctx context.Context, args map[string]any) (contractx.ToolResult, error)

// Tool is one registered capability.
type Tool struct {
	Name string
	// Info is the natural-language description and parameter shape
	// handed to the reasoning model.
	Info *schema.ToolInfo
	// ArgsSchema is the JSON schema arguments are validated against
	// before dispatch.
	ArgsSchema string
	// Write marks tools with side effects; the loop invokes them at
	// most once per execution.
	Write  bool
	Invoke Invoker

	compiled *gojsonschema.Schema
}

// Registry is the static name->tool map built once at startup.
// It is read-only after construction and safe for concurrent use.
type Registry struct {
	order []string
	tools map[string]*Tool
}

var _ contractx.ToolGateway = (*Registry)(nil)

func NewRegistry(tools ...*Tool) (*Registry, error) {
	r := &Registry{
		order: make([]string, 0, len(tools)),
		tools: make(map[string]*Tool, len(tools)),
	}
	for _, t := range tools {
		if t == nil || strings.TrimSpace(t.Name) == "" {
			return nil, fmt.Errorf("%w: tool without a name", contractx.ErrValidation)
		}
		if _, exists := r.tools[t.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate tool %q", contractx.ErrValidation, t.Name)
		}
		if t.ArgsSchema != "" {
			compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(t.ArgsSchema))
			if err != nil {
				return nil, fmt.Errorf("%w: compile args schema for %q: %v", contractx.ErrValidation, t.Name, err)
			}
			t.compiled = compiled
		}
		r.order = append(r.order, t.Name)
		r.tools[t.Name] = t
	}
	return r, nil
}

// Infos returns tool descriptors in registration order, for binding to
// the reasoning model.
func (r *Registry) Infos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		infos = append(infos, r.tools[name].Info)
	}
	return infos
}

// WriteTools lists the names of write-with-confirmation tools.
func (r *Registry) WriteTools() []string {
	var names []string
	for _, name := range r.order {
		if r.tools[name].Write {
			names = append(names, name)
		}
	}
	return names
}

// Execute validates and dispatches one tool request.
func (r *Registry) Execute(ctx context.Context, req contractx.ToolRequest) (contractx.ToolResult, error) {
	t, ok := r.tools[req.Tool]
	if !ok {
		return contractx.ToolResult{}, fmt.Errorf("%w: %q", contractx.ErrToolNotFound, req.Tool)
	}

	args := req.Args
	if args == nil {
		args = map[string]any{}
	}

	if t.compiled != nil {
		result, err := t.compiled.Validate(gojsonschema.NewGoLoader(args))
		if err != nil {
			return contractx.ToolResult{}, fmt.Errorf("%w: %s: %v", contractx.ErrToolInvalidArgs, req.Tool, err)
		}
		if !result.Valid() {
			return contractx.ToolResult{}, fmt.Errorf("%w: %s: %s", contractx.ErrToolInvalidArgs, req.Tool, describeSchemaErrors(result))
		}
	}

	res, err := t.Invoke(ctx, args)
	if err != nil {
		return contractx.ToolResult{}, fmt.Errorf("%w: %s: %v", contractx.ErrToolUpstream, req.Tool, err)
	}
	res.Tool = req.Tool
	return res, nil
}

func describeSchemaErrors(result *gojsonschema.Result) string {
	parts := make([]string, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		parts = append(parts, re.String())
	}
	return strings.Join(parts, "; ")
}
