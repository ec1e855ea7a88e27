package openapi

import (
	"fmt"
	"strings"
)

// Methods lists the path-item keys that name operations.
var Methods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace", "query"}

func isMethod(key string) bool {
	for _, m := range Methods {
		if m == key {
			return true
		}
	}
	return false
}

// OperationSummary identifies one operation of the document.
type OperationSummary struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	OperationID string `json:"operationId,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Description string `json:"description,omitempty"`
}

// OperationDetail is a read-only view of one operation with response schemas
// resolved.
type OperationDetail struct {
	OperationSummary
	Tags        []string
	Parameters  *Node
	RequestBody *Node
	Responses   []ResponseDetail

	// Record is the flattened detail record: path, method and every
	// operation field, where each response carries a resolved_schema key
	// when it declares a content schema.
	Record *Node
}

// MarshalJSON encodes the flattened record.
func (d *OperationDetail) MarshalJSON() ([]byte, error) {
	return d.Record.MarshalJSON()
}

// ResponseDetail is one entry of an operation's responses.
type ResponseDetail struct {
	StatusCode  string
	Description string
	// MediaType and the schemas are empty when the response has no content
	// schema.
	MediaType      string
	Schema         *Node
	ResolvedSchema *Node
}

// ListOperations returns one summary per (path, method) pair in document
// order.
func (c *Client) ListOperations() []OperationSummary {
	ops := []OperationSummary{}
	c.walkOperations(func(path, method string, op *Node) bool {
		ops = append(ops, summarize(path, method, op))
		return true
	})
	return ops
}

// OperationDetails returns the detail record for path and method. The method
// is matched case-insensitively.
func (c *Client) OperationDetails(path, method string) (*OperationDetail, error) {
	item, ok := c.doc.Lookup("paths").Get(path)
	if !ok {
		return nil, &NotFoundError{Kind: "path", Name: path}
	}

	method = strings.ToLower(method)
	op, ok := item.Get(method)
	if !ok || !isMethod(method) || op.Kind() != MappingKind {
		return nil, &NotFoundError{Kind: "method", Name: strings.ToUpper(method) + " " + path}
	}
	return c.detail(path, method, op)
}

// OperationDetailsByID returns the detail record of the first operation that
// declares id as its operationId.
func (c *Client) OperationDetailsByID(id string) (*OperationDetail, error) {
	var (
		found  bool
		path   string
		method string
		op     *Node
	)
	c.walkOperations(func(p, m string, o *Node) bool {
		if !o.Has("operationId") || o.Lookup("operationId").Str() != id {
			return true
		}
		found, path, method, op = true, p, m, o
		return false
	})
	if !found {
		return nil, &NotFoundError{Kind: "operation", Name: id}
	}
	return c.detail(path, method, op)
}

func (c *Client) walkOperations(fn func(path, method string, op *Node) bool) {
	paths := c.doc.Lookup("paths")
	for _, path := range paths.Keys() {
		item, _ := paths.Get(path)
		for _, method := range item.Keys() {
			if !isMethod(method) {
				continue
			}
			op, _ := item.Get(method)
			if op.Kind() != MappingKind {
				continue
			}
			if !fn(path, method, op) {
				return
			}
		}
	}
}

func summarize(path, method string, op *Node) OperationSummary {
	return OperationSummary{
		Path:        path,
		Method:      method,
		OperationID: op.Lookup("operationId").Str(),
		Summary:     op.Lookup("summary").Str(),
		Description: op.Lookup("description").Str(),
	}
}

func (c *Client) detail(path, method string, op *Node) (*OperationDetail, error) {
	d := &OperationDetail{
		OperationSummary: summarize(path, method, op),
		Parameters:       op.Lookup("parameters"),
		RequestBody:      op.Lookup("requestBody"),
	}
	for _, tag := range op.Lookup("tags").Items() {
		if tag.IsString() {
			d.Tags = append(d.Tags, tag.Str())
		}
	}

	record := NewMapping()
	record.Set("path", NewScalar(path))
	record.Set("method", NewScalar(method))
	for _, key := range op.Keys() {
		if key == "path" || key == "method" {
			continue
		}
		value, _ := op.Get(key)
		record.Set(key, value.Clone())
	}

	responses := record.Lookup("responses")
	for _, code := range responses.Keys() {
		resp, _ := responses.Get(code)
		rd, err := c.responseDetail(code, resp)
		if err != nil {
			return nil, err
		}
		if rd.ResolvedSchema != nil {
			resp.Set("resolved_schema", rd.ResolvedSchema.Clone())
		}
		d.Responses = append(d.Responses, rd)
	}
	d.Record = record

	return d, nil
}

func (c *Client) responseDetail(code string, resp *Node) (ResponseDetail, error) {
	rd := ResponseDetail{
		StatusCode:  code,
		Description: resp.Lookup("description").Str(),
	}

	mediaType, schema := ContentSchema(resp.Lookup("content"))
	if schema == nil {
		return rd, nil
	}

	resolved, err := c.Deref(schema)
	if err != nil {
		return rd, fmt.Errorf("resolving response %s schema: %w", code, err)
	}
	rd.MediaType = mediaType
	rd.Schema = schema
	rd.ResolvedSchema = resolved
	return rd, nil
}

// ContentSchema picks the schema of a content map: application/json when it
// carries one, otherwise the first media type with a schema.
func ContentSchema(content *Node) (string, *Node) {
	if schema, ok := content.Lookup("application/json").Get("schema"); ok {
		return "application/json", schema
	}
	for _, mediaType := range content.Keys() {
		if schema, ok := content.Lookup(mediaType).Get("schema"); ok {
			return mediaType, schema
		}
	}
	return "", nil
}

