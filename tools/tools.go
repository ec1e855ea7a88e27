// Package tools turns the operations of an OpenAPI document into tool
// definitions a chat model can call, and turns the model's tool calls back
// into HTTP requests.
package tools

import (
	"fmt"
	"slices"
	"strings"

	"github.com/kolah/talkit/internal/naming"
	"github.com/kolah/talkit/openapi"
	"github.com/openai/openai-go/v3"
	"go.uber.org/zap"
)

// BodyArgument is the argument name that carries a JSON request body.
const BodyArgument = "body"

// Tool is one callable operation.
type Tool struct {
	Name        string
	Description string
	Method      string
	Path        string
	Params      []Param
	Body        *Body
	// Security lists alternative sets of security scheme names.
	Security [][]string
	// Parameters is the JSON schema of the tool arguments.
	Parameters map[string]any
	Detail     *openapi.OperationDetail
}

// Param is an OpenAPI parameter the tool maps onto the request.
type Param struct {
	Name     string
	In       string
	Required bool
}

// Body describes the request body the tool sends.
type Body struct {
	MediaType string
	Required  bool
}

// Options configures tool building.
type Options struct {
	IncludeTags []string
	ExcludeTags []string
	Prefix      string
	Logger      *zap.Logger
}

// Toolset is the ordered set of tools built from one document.
type Toolset struct {
	tools  []*Tool
	byName map[string]*Tool
}

// Build creates one tool per operation of c, in document order.
func Build(c *openapi.Client, opts Options) (*Toolset, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "tool_builder"))

	set := &Toolset{byName: make(map[string]*Tool)}
	for _, op := range c.ListOperations() {
		detail, err := c.OperationDetails(op.Path, op.Method)
		if err != nil {
			return nil, fmt.Errorf("reading %s %s: %w", strings.ToUpper(op.Method), op.Path, err)
		}

		if len(opts.IncludeTags) > 0 && !hasAnyTag(detail.Tags, opts.IncludeTags) {
			logger.Debug("skipping operation", zap.String("path", op.Path), zap.String("method", op.Method))
			continue
		}
		if len(opts.ExcludeTags) > 0 && hasAnyTag(detail.Tags, opts.ExcludeTags) {
			logger.Debug("skipping operation", zap.String("path", op.Path), zap.String("method", op.Method))
			continue
		}

		tool, err := newTool(c, detail, opts.Prefix)
		if err != nil {
			return nil, err
		}
		if prev, ok := set.byName[tool.Name]; ok {
			return nil, fmt.Errorf("duplicate tool name %q for %s %s and %s %s",
				tool.Name, prev.Method, prev.Path, tool.Method, tool.Path)
		}
		set.tools = append(set.tools, tool)
		set.byName[tool.Name] = tool
	}

	logger.Info("built tools", zap.Int("count", len(set.tools)))
	return set, nil
}

// Tools returns the tools in document order.
func (s *Toolset) Tools() []*Tool {
	return slices.Clone(s.tools)
}

// Get returns the tool called name.
func (s *Toolset) Get(name string) (*Tool, bool) {
	t, ok := s.byName[name]
	return t, ok
}

// Len is the number of tools.
func (s *Toolset) Len() int {
	return len(s.tools)
}

// OpenAI returns the tools as OpenAI chat completion function tools.
func (s *Toolset) OpenAI() []openai.ChatCompletionToolUnionParam {
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(s.tools))
	for _, t := range s.tools {
		out = append(out, openai.ChatCompletionToolUnionParam{
			OfFunction: &openai.ChatCompletionFunctionToolParam{
				Function: openai.FunctionDefinitionParam{
					Name:        t.Name,
					Description: openai.String(t.Description),
					Parameters:  t.Parameters,
				},
			},
		})
	}
	return out
}

func newTool(c *openapi.Client, d *openapi.OperationDetail, prefix string) (*Tool, error) {
	tool := &Tool{
		Name:        naming.OperationName(prefix, d.OperationID, d.Method, d.Path),
		Description: description(d),
		Method:      strings.ToUpper(d.Method),
		Path:        d.Path,
		Security:    securityRequirements(c, d),
		Detail:      d,
	}

	properties := make(map[string]any)
	var required []string

	for i, p := range d.Parameters.Items() {
		param, err := c.Deref(p)
		if err != nil {
			return nil, fmt.Errorf("tool %s: parameter %d: %w", tool.Name, i, err)
		}
		name := param.Lookup("name").Str()
		if name == "" {
			continue
		}
		in := param.Lookup("in").Str()
		req := param.Lookup("required").Bool() || in == "path"

		prop, err := propertySchema(c, param.Lookup("schema"))
		if err != nil {
			return nil, fmt.Errorf("tool %s: parameter %s: %w", tool.Name, name, err)
		}
		if desc := param.Lookup("description").Str(); desc != "" {
			prop["description"] = desc
		}

		properties[name] = prop
		tool.Params = append(tool.Params, Param{Name: name, In: in, Required: req})
		if req {
			required = append(required, name)
		}
	}

	if d.RequestBody != nil {
		body, err := c.Deref(d.RequestBody)
		if err != nil {
			return nil, fmt.Errorf("tool %s: request body: %w", tool.Name, err)
		}
		mediaType, schema := openapi.ContentSchema(body.Lookup("content"))
		if schema != nil {
			prop, err := propertySchema(c, schema)
			if err != nil {
				return nil, fmt.Errorf("tool %s: request body: %w", tool.Name, err)
			}
			if desc := body.Lookup("description").Str(); desc != "" {
				prop["description"] = desc
			}
			properties[BodyArgument] = prop
			tool.Body = &Body{MediaType: mediaType, Required: body.Lookup("required").Bool()}
			if tool.Body.Required {
				required = append(required, BodyArgument)
			}
		}
	}

	tool.Parameters = map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		tool.Parameters["required"] = required
	}

	return tool, nil
}

// propertySchema resolves a top-level $ref and returns the schema as a fresh
// map the caller may modify.
func propertySchema(c *openapi.Client, schema *openapi.Node) (map[string]any, error) {
	if schema == nil {
		return map[string]any{"type": "string"}, nil
	}
	resolved, err := c.Deref(schema)
	if err != nil {
		return nil, err
	}
	if m, ok := resolved.Interface().(map[string]any); ok {
		return m, nil
	}
	return map[string]any{}, nil
}

func description(d *openapi.OperationDetail) string {
	if d.Summary != "" {
		return d.Summary
	}
	if d.Description != "" {
		return d.Description
	}
	return strings.ToUpper(d.Method) + " " + d.Path
}

func hasAnyTag(tags, targets []string) bool {
	for _, t := range targets {
		if slices.Contains(tags, t) {
			return true
		}
	}
	return false
}
