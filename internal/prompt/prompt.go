// Package prompt renders the system prompt that introduces an API and its
// tools to a chat model.
package prompt

import (
	"github.com/kolah/talkit/openapi"
	"github.com/kolah/talkit/tools"
)

// SystemTemplate is the template Render executes.
const SystemTemplate = "system.tmpl"

// Data is the value the system template is executed with.
type Data struct {
	Title        string
	Version      string
	Description  string
	BaseURL      string
	Tools        []ToolData
	HasBody      bool
	BodyArgument string
}

type ToolData struct {
	Name        string
	Description string
	Method      string
	Path        string
	Arguments   []string
}

// NewData collects the document info and the tools. baseURL falls back to
// the first server in the document.
func NewData(c *openapi.Client, set *tools.Toolset, baseURL string) Data {
	info := c.Document().Lookup("info")
	if baseURL == "" {
		baseURL = c.ServerURL()
	}

	data := Data{
		Title:        info.Lookup("title").Str(),
		Version:      info.Lookup("version").Str(),
		Description:  info.Lookup("description").Str(),
		BaseURL:      baseURL,
		BodyArgument: tools.BodyArgument,
	}
	if data.Title == "" {
		data.Title = "untitled"
	}

	for _, t := range set.Tools() {
		td := ToolData{
			Name:        t.Name,
			Description: t.Description,
			Method:      t.Method,
			Path:        t.Path,
		}
		for _, p := range t.Params {
			td.Arguments = append(td.Arguments, argument(p.Name, p.Required))
		}
		if t.Body != nil {
			td.Arguments = append(td.Arguments, argument(tools.BodyArgument, t.Body.Required))
			data.HasBody = true
		}
		data.Tools = append(data.Tools, td)
	}

	return data
}

func argument(name string, required bool) string {
	if required {
		return name + " (required)"
	}
	return name
}

// Render executes the system template for c and set.
func (e *Engine) Render(c *openapi.Client, set *tools.Toolset, baseURL string) (string, error) {
	return e.Execute(SystemTemplate, NewData(c, set, baseURL))
}
