package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/kolah/talkit/openapi"
	"github.com/stretchr/testify/require"
)

const petsSpec = `{
  "openapi": "3.1.0",
  "info": {"title": "Pet Store", "version": "1.0.0"},
  "paths": {
    "/pets": {
      "get": {
        "operationId": "listPets",
        "summary": "List pets",
        "tags": ["pets"],
        "parameters": [{"name": "limit", "in": "query", "schema": {"type": "integer"}}],
        "responses": {
          "200": {
            "description": "ok",
            "content": {"application/json": {"schema": {"type": "array", "items": {"$ref": "#/components/schemas/Pet"}}}}
          }
        }
      },
      "post": {
        "operationId": "createPet",
        "summary": "Create a pet",
        "tags": ["pets", "admin"],
        "requestBody": {
          "required": true,
          "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}}
        },
        "responses": {"201": {"description": "created"}}
      }
    },
    "/pets/{id}": {
      "get": {
        "operationId": "getPet",
        "summary": "Get a pet",
        "tags": ["pets"],
        "parameters": [{"name": "id", "in": "path", "required": true, "schema": {"type": "string"}}],
        "responses": {
          "200": {
            "description": "ok",
            "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Pet"}}}
          }
        }
      }
    }
  },
  "components": {
    "schemas": {
      "Pet": {
        "type": "object",
        "required": ["name"],
        "properties": {"id": {"type": "integer"}, "name": {"type": "string"}}
      }
    }
  }
}`

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := RootCmd()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestValidate(t *testing.T) {
	spec := writeSpec(t, petsSpec)

	stdout, _, err := run(t, "validate", "-s", spec)
	require.NoError(t, err)
	require.Equal(t, "Valid: "+spec+"\n", stdout)
}

func TestValidateMissingKeys(t *testing.T) {
	spec := writeSpec(t, `{"openapi": "3.1.0"}`)

	_, stderr, err := run(t, "validate", "-s", spec)

	var verr *openapi.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []string{"info", "paths"}, verr.Missing)
	require.Contains(t, stderr, "missing: info")
	require.Contains(t, stderr, "missing: paths")
}

func TestValidateEscapedAndMalformedJSON(t *testing.T) {
	spec := writeSpec(t, `{"openapi": "3.1.0", "info": {"title": "Pets \ud83d\udc36"}, "paths": {"\/pets": {}}}`)
	stdout, _, err := run(t, "validate", "-s", spec)
	require.NoError(t, err)
	require.Equal(t, "Valid: "+spec+"\n", stdout)

	spec = writeSpec(t, `{"openapi": "3.1.0",`)
	_, _, err = run(t, "validate", "-s", spec)
	var perr *openapi.ParseError
	require.ErrorAs(t, err, &perr)
}

func TestValidateStrict(t *testing.T) {
	spec := writeSpec(t, petsSpec)

	stdout, _, err := run(t, "validate", "--strict", "-s", spec)
	require.NoError(t, err)
	require.Contains(t, stdout, "(OpenAPI 3.1.0)")
	require.Contains(t, stdout, "Schemas: 1")
	require.Contains(t, stdout, "Operations: 3")
}

func TestSpecRequired(t *testing.T) {
	_, _, err := run(t, "operations")
	require.Error(t, err)
	require.Contains(t, err.Error(), "spec file is required")
}

func TestOperations(t *testing.T) {
	spec := writeSpec(t, petsSpec)

	stdout, _, err := run(t, "operations", "-s", spec)
	require.NoError(t, err)
	require.Equal(t, "GET\t/pets\tlistPets\tList pets\n"+
		"POST\t/pets\tcreatePet\tCreate a pet\n"+
		"GET\t/pets/{id}\tgetPet\tGet a pet\n", stdout)

	stdout, _, err = run(t, "operations", "--json", "-s", spec)
	require.NoError(t, err)

	var ops []openapi.OperationSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &ops))
	require.Len(t, ops, 3)
	require.Equal(t, openapi.OperationSummary{Path: "/pets/{id}", Method: "get", OperationID: "getPet", Summary: "Get a pet"}, ops[2])
}

func TestOperationsEmptyJSON(t *testing.T) {
	spec := writeSpec(t, `{"openapi": "3.1.0", "info": {}, "paths": {}}`)

	stdout, _, err := run(t, "operations", "--json", "-s", spec)
	require.NoError(t, err)
	require.Equal(t, "[]\n", stdout)
}

func TestShow(t *testing.T) {
	spec := writeSpec(t, petsSpec)

	byPath, _, err := run(t, "show", "/pets/{id}", "GET", "-s", spec)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(byPath), &record))
	require.Equal(t, "/pets/{id}", record["path"])
	require.Equal(t, "get", record["method"])
	require.Equal(t, "getPet", record["operationId"])

	byID, _, err := run(t, "show", "--id", "getPet", "-s", spec)
	require.NoError(t, err)
	require.JSONEq(t, byPath, byID)
}

func TestShowErrors(t *testing.T) {
	spec := writeSpec(t, petsSpec)

	_, _, err := run(t, "show", "/pets", "-s", spec)
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected path and method")

	_, _, err = run(t, "show", "/pets", "get", "--id", "listPets", "-s", spec)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not both")

	_, _, err = run(t, "show", "/owners", "get", "-s", spec)
	var nerr *openapi.NotFoundError
	require.ErrorAs(t, err, &nerr)
	require.Equal(t, "path", nerr.Kind)
}

func TestResolve(t *testing.T) {
	spec := writeSpec(t, petsSpec)

	stdout, _, err := run(t, "resolve", "#/components/schemas/Pet", "-s", spec)
	require.NoError(t, err)
	require.JSONEq(t, `{
	  "type": "object",
	  "required": ["name"],
	  "properties": {"id": {"type": "integer"}, "name": {"type": "string"}}
	}`, stdout)

	_, _, err = run(t, "resolve", "#/components/schemas/Owner", "-s", spec)
	var nerr *openapi.NotFoundError
	require.ErrorAs(t, err, &nerr)

	_, _, err = run(t, "resolve", "components/schemas/Pet", "-s", spec)
	var rerr *openapi.InvalidReferenceError
	require.ErrorAs(t, err, &rerr)
}

func TestTools(t *testing.T) {
	spec := writeSpec(t, petsSpec)

	stdout, _, err := run(t, "tools", "--exclude-tags", "admin", "--prefix", "store_", "-s", spec)
	require.NoError(t, err)

	var defs []struct {
		Type     string `json:"type"`
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &defs))
	require.Len(t, defs, 2)
	require.Equal(t, "function", defs[0].Type)
	require.Equal(t, "store_listPets", defs[0].Function.Name)
	require.Equal(t, "store_getPet", defs[1].Function.Name)
}

func TestPrompt(t *testing.T) {
	spec := writeSpec(t, petsSpec)

	stdout, _, err := run(t, "prompt", "--base-url", "http://localhost:9000", "-s", spec)
	require.NoError(t, err)
	require.Contains(t, stdout, "Pet Store (version 1.0.0)")
	require.Contains(t, stdout, "Requests are sent to http://localhost:9000.")
	require.Contains(t, stdout, "- getPet: Get a pet (GET /pets/{id})")
}

func TestCall(t *testing.T) {
	var gotPath, gotKey string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 1, "name": "rex"}`))
	}))
	defer srv.Close()

	spec := writeSpec(t, petsSpec)

	stdout, stderr, err := run(t, "call", "createPet",
		"--args", `{"body": {"name": "rex"}}`,
		"--base-url", srv.URL,
		"-H", "X-Api-Key=secret",
		"-s", spec)
	require.NoError(t, err)
	require.JSONEq(t, `{"id": 1, "name": "rex"}`, stdout)
	require.Contains(t, stderr, "HTTP 201 application/json")

	require.Equal(t, "/pets", gotPath)
	require.Equal(t, "secret", gotKey)
	require.JSONEq(t, `{"name": "rex"}`, string(gotBody))
}

func TestCallErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	spec := writeSpec(t, petsSpec)

	t.Run("error status", func(t *testing.T) {
		stdout, _, err := run(t, "call", "getPet", "--args", `{"id": "7"}`, "--base-url", srv.URL, "-s", spec)
		require.Error(t, err)
		require.Contains(t, err.Error(), "getPet returned status 404")
		require.Contains(t, stdout, "not found")
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, _, err := run(t, "call", "deletePet", "--base-url", srv.URL, "-s", spec)
		require.Error(t, err)
		require.Contains(t, err.Error(), "unknown tool: deletePet")
	})

	t.Run("no base url", func(t *testing.T) {
		_, _, err := run(t, "call", "listPets", "-s", spec)
		require.Error(t, err)
		require.Contains(t, err.Error(), "no base URL")
	})

	t.Run("invalid request", func(t *testing.T) {
		_, _, err := run(t, "call", "createPet", "--args", `{"body": {"id": 3}}`, "--base-url", srv.URL, "-s", spec)
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed validation")
	})

	t.Run("missing argument", func(t *testing.T) {
		_, _, err := run(t, "call", "getPet", "--base-url", srv.URL, "--validate=false", "-s", spec)
		require.Error(t, err)
		require.Contains(t, err.Error(), `argument "id": required`)
	})
}

func TestCallWithCredentials(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"name": "me"}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	spec := filepath.Join(dir, "api.json")
	require.NoError(t, os.WriteFile(spec, []byte(`{
	  "openapi": "3.1.0",
	  "info": {"title": "Secured", "version": "1"},
	  "security": [{"bearerAuth": []}],
	  "paths": {"/me": {"get": {"operationId": "me", "responses": {"200": {"description": "ok"}}}}},
	  "components": {"securitySchemes": {"bearerAuth": {"type": "http", "scheme": "bearer"}}}
	}`), 0644))

	configPath := filepath.Join(dir, "talkit.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
spec: `+spec+`
api:
  base-url: `+srv.URL+`
  credentials:
    bearerAuth:
      token: ${TALKIT_TEST_TOKEN}
`), 0644))
	t.Setenv("TALKIT_TEST_TOKEN", "s3cret")

	stdout, _, err := run(t, "call", "me", "--validate=false", "-c", configPath)
	require.NoError(t, err)
	require.JSONEq(t, `{"name": "me"}`, stdout)
	require.Equal(t, "Bearer s3cret", gotAuth)
}
