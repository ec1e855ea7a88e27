package tools

import (
	"encoding/json"
	"testing"

	"github.com/kolah/talkit/openapi"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const usersSpec = `{
  "openapi": "3.0.0",
  "info": {"title": "Example API", "version": "1.0.0"},
  "paths": {
    "/api/users": {
      "get": {
        "summary": "Get all users",
        "description": "Returns a list of all users in the system",
        "operationId": "getUsers",
        "tags": ["users"],
        "parameters": [
          {"name": "limit", "in": "query", "description": "Page size", "schema": {"type": "integer"}},
          {"$ref": "#/components/parameters/Trace"}
        ],
        "responses": {
          "200": {
            "description": "Successful operation",
            "content": {"application/json": {"schema": {"type": "array", "items": {"$ref": "#/components/schemas/User"}}}}
          },
          "400": {"description": "Bad request"}
        }
      },
      "post": {
        "description": "Create a user",
        "tags": ["users", "admin"],
        "requestBody": {"$ref": "#/components/requestBodies/NewUser"},
        "responses": {"201": {"description": "Created"}}
      }
    },
    "/api/users/{id}": {
      "delete": {
        "tags": ["admin"],
        "parameters": [{"name": "id", "in": "path", "schema": {"type": "string"}}],
        "responses": {"204": {"description": "Deleted"}}
      }
    }
  },
  "components": {
    "schemas": {
      "User": {
        "type": "object",
        "required": ["name"],
        "properties": {"id": {"type": "integer"}, "name": {"type": "string"}, "email": {"type": "string"}}
      }
    },
    "parameters": {
      "Trace": {"name": "X-Trace-Id", "in": "header", "required": true, "schema": {"type": "string"}}
    },
    "requestBodies": {
      "NewUser": {
        "required": true,
        "description": "User to create",
        "content": {"application/json": {"schema": {"$ref": "#/components/schemas/User"}}}
      }
    }
  }
}`

func mustClient(t *testing.T, spec string) *openapi.Client {
	t.Helper()
	c, err := openapi.FromString(spec)
	require.NoError(t, err)
	return c
}

func TestBuild(t *testing.T) {
	set, err := Build(mustClient(t, usersSpec), Options{Logger: zap.NewNop()})
	require.NoError(t, err)
	require.Equal(t, 3, set.Len())

	var names []string
	for _, tool := range set.Tools() {
		names = append(names, tool.Name)
	}
	require.Equal(t, []string{"getUsers", "post_api_users", "delete_api_users_id"}, names)

	list, ok := set.Get("getUsers")
	require.True(t, ok)
	require.Equal(t, "Get all users", list.Description)
	require.Equal(t, "GET", list.Method)
	require.Equal(t, "/api/users", list.Path)
	require.Nil(t, list.Body)
	require.Equal(t, []Param{
		{Name: "limit", In: "query"},
		{Name: "X-Trace-Id", In: "header", Required: true},
	}, list.Params)
	require.Equal(t, map[string]any{
		"type": "object",
		"properties": map[string]any{
			"limit":      map[string]any{"type": "integer", "description": "Page size"},
			"X-Trace-Id": map[string]any{"type": "string"},
		},
		"required": []string{"X-Trace-Id"},
	}, list.Parameters)
	require.Equal(t, "getUsers", list.Detail.OperationID)

	create, ok := set.Get("post_api_users")
	require.True(t, ok)
	require.Equal(t, "Create a user", create.Description)
	require.Equal(t, &Body{MediaType: "application/json", Required: true}, create.Body)
	props := create.Parameters["properties"].(map[string]any)
	body := props[BodyArgument].(map[string]any)
	require.Equal(t, "object", body["type"])
	require.Equal(t, "User to create", body["description"])
	require.Equal(t, []string{BodyArgument}, create.Parameters["required"])

	del, ok := set.Get("delete_api_users_id")
	require.True(t, ok)
	require.Equal(t, "DELETE /api/users/{id}", del.Description)
	require.Equal(t, []Param{{Name: "id", In: "path", Required: true}}, del.Params)

	_, ok = set.Get("missing")
	require.False(t, ok)
}

func TestBuildDoesNotShareSchemas(t *testing.T) {
	c := mustClient(t, usersSpec)
	set, err := Build(c, Options{})
	require.NoError(t, err)

	create, _ := set.Get("post_api_users")
	body := create.Parameters["properties"].(map[string]any)[BodyArgument].(map[string]any)
	body["type"] = "changed"

	require.Equal(t, "object", c.Document().Lookup("components", "schemas", "User", "type").Str())
	require.False(t, c.Document().Lookup("components", "schemas", "User").Has("description"))
}

func TestBuildTagFilters(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		expected []string
	}{
		{
			name:     "include",
			opts:     Options{IncludeTags: []string{"admin"}},
			expected: []string{"post_api_users", "delete_api_users_id"},
		},
		{
			name:     "exclude",
			opts:     Options{ExcludeTags: []string{"admin"}},
			expected: []string{"getUsers"},
		},
		{
			name:     "include and exclude",
			opts:     Options{IncludeTags: []string{"users"}, ExcludeTags: []string{"admin"}},
			expected: []string{"getUsers"},
		},
		{
			name:     "prefix",
			opts:     Options{IncludeTags: []string{"users"}, Prefix: "example_"},
			expected: []string{"example_getUsers", "example_post_api_users"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := Build(mustClient(t, usersSpec), tt.opts)
			require.NoError(t, err)

			var names []string
			for _, tool := range set.Tools() {
				names = append(names, tool.Name)
			}
			require.Equal(t, tt.expected, names)
		})
	}
}

func TestBuildDuplicateNames(t *testing.T) {
	spec := `{
	  "openapi": "3.0.0", "info": {},
	  "paths": {
	    "/a": {"get": {"operationId": "same", "responses": {}}},
	    "/b": {"get": {"operationId": "same", "responses": {}}}
	  }
	}`

	_, err := Build(mustClient(t, spec), Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), `duplicate tool name "same"`)
}

func TestBuildBrokenReference(t *testing.T) {
	spec := `{
	  "openapi": "3.0.0", "info": {},
	  "paths": {"/a": {"get": {
	    "parameters": [{"$ref": "#/components/parameters/Gone"}],
	    "responses": {}
	  }}}
	}`

	_, err := Build(mustClient(t, spec), Options{})

	var nerr *openapi.NotFoundError
	require.ErrorAs(t, err, &nerr)
}

func TestOpenAI(t *testing.T) {
	set, err := Build(mustClient(t, usersSpec), Options{IncludeTags: []string{"users"}})
	require.NoError(t, err)

	defs := set.OpenAI()
	require.Len(t, defs, 2)
	require.NotNil(t, defs[0].OfFunction)
	require.Equal(t, "getUsers", defs[0].OfFunction.Function.Name)
	require.Equal(t, "Get all users", defs[0].OfFunction.Function.Description.Value)

	data, err := json.Marshal(defs[1])
	require.NoError(t, err)

	var decoded struct {
		Type     string `json:"type"`
		Function struct {
			Name       string         `json:"name"`
			Parameters map[string]any `json:"parameters"`
		} `json:"function"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "function", decoded.Type)
	require.Equal(t, "post_api_users", decoded.Function.Name)
	require.Equal(t, "object", decoded.Function.Parameters["type"])
}
