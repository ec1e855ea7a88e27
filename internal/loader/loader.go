// Package loader runs the strict libopenapi checks that sit beside the
// permissive openapi.Client: full model building and request validation.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pb33f/libopenapi"
	"github.com/pb33f/libopenapi/datamodel"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

type Result struct {
	Document   *libopenapi.DocumentModel[v3.Document]
	Version    string
	Warnings   []string
	RawData    []byte
	Operations int
	Schemas    int
}

func LoadFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spec file: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	config := &datamodel.DocumentConfiguration{
		BasePath:            filepath.Dir(absPath),
		AllowFileReferences: true,
	}

	return loadWithConfig(data, config)
}

// Load builds the OpenAPI model of an in-memory document. External file
// references are not followed.
func Load(data []byte) (*Result, error) {
	return loadWithConfig(data, nil)
}

func loadWithConfig(data []byte, config *datamodel.DocumentConfiguration) (*Result, error) {
	var doc libopenapi.Document
	var err error

	if config != nil {
		doc, err = libopenapi.NewDocumentWithConfiguration(data, config)
	} else {
		doc, err = libopenapi.NewDocument(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing OpenAPI document: %w", err)
	}

	version := doc.GetVersion()
	if !strings.HasPrefix(version, "3.") {
		return nil, fmt.Errorf("unsupported OpenAPI version: %s (only 3.x supported)", version)
	}

	model, err := doc.BuildV3Model()
	if err != nil {
		return nil, fmt.Errorf("building OpenAPI model: %w", err)
	}

	result := &Result{
		Document:   model,
		Version:    version,
		RawData:    data,
		Operations: countOperations(&model.Model),
	}
	if c := model.Model.Components; c != nil && c.Schemas != nil {
		result.Schemas = c.Schemas.Len()
	}

	if strings.HasPrefix(version, "3.0") {
		result.Warnings = append(result.Warnings, "OpenAPI 3.0.x detected; some 3.1/3.2 features unavailable")
	}
	result.Warnings = append(result.Warnings, missingOperationIDs(&model.Model)...)

	return result, nil
}

func operations(item *v3.PathItem) []struct {
	method string
	op     *v3.Operation
} {
	return []struct {
		method string
		op     *v3.Operation
	}{
		{"get", item.Get},
		{"put", item.Put},
		{"post", item.Post},
		{"delete", item.Delete},
		{"options", item.Options},
		{"head", item.Head},
		{"patch", item.Patch},
		{"trace", item.Trace},
		{"query", item.Query}, // OpenAPI 3.2
	}
}

func countOperations(doc *v3.Document) int {
	if doc.Paths == nil || doc.Paths.PathItems == nil {
		return 0
	}
	n := 0
	for _, item := range doc.Paths.PathItems.FromOldest() {
		for _, m := range operations(item) {
			if m.op != nil {
				n++
			}
		}
	}
	return n
}

// missingOperationIDs warns about operations whose tool name falls back to
// method and path.
func missingOperationIDs(doc *v3.Document) []string {
	if doc.Paths == nil || doc.Paths.PathItems == nil {
		return nil
	}
	var warnings []string
	for path, item := range doc.Paths.PathItems.FromOldest() {
		for _, m := range operations(item) {
			if m.op != nil && m.op.OperationId == "" {
				warnings = append(warnings, fmt.Sprintf("%s %s has no operationId", strings.ToUpper(m.method), path))
			}
		}
	}
	return warnings
}
