// Package openapi reads OpenAPI documents: it checks their minimal shape,
// enumerates operations, resolves local $ref pointers and assembles
// per-operation detail records for tool builders.
//
// A Client never mutates its document, so it is safe for concurrent use as
// long as callers treat returned nodes as read-only.
package openapi

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var requiredKeys = []string{"openapi", "info", "paths"}

// Client answers structural queries over one OpenAPI document.
type Client struct {
	doc *Node
}

// New validates doc and returns a client owning it. A document missing any of
// openapi, info or paths yields a *ValidationError.
func New(doc *Node) (*Client, error) {
	if missing := missingKeys(doc); len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}
	return &Client{doc: doc}, nil
}

// Unchecked returns a client without construction-time validation. Use
// ValidateSpec to check such a client later.
func Unchecked(doc *Node) *Client {
	return &Client{doc: doc}
}

// FromMap converts a plain Go mapping with FromValue and validates it.
func FromMap(doc map[string]any) (*Client, error) {
	if doc == nil {
		return New(NewMapping())
	}
	n, err := FromValue(doc)
	if err != nil {
		return nil, err
	}
	return New(n)
}

// FromString parses text as JSON and validates the result.
func FromString(text string) (*Client, error) {
	doc, err := ParseJSON([]byte(text))
	if err != nil {
		return nil, err
	}
	return New(doc)
}

// FromFile reads the document at path with ParseFile and validates it.
func FromFile(path string) (*Client, error) {
	doc, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return New(doc)
}

// ParseFile reads the document at path without validating it. Files with a
// .yaml or .yml extension are parsed as YAML, everything else as JSON.
func ParseFile(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spec file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	}
	return ParseJSON(data)
}

// Document returns the stored document. Callers must not modify it.
func (c *Client) Document() *Node {
	return c.doc
}

// ValidateSpec reports whether the document has all required top-level keys.
func (c *Client) ValidateSpec() bool {
	return len(missingKeys(c.doc)) == 0
}

// ResolveRef returns the node a local reference such as
// "#/components/schemas/Pet" points to. Segments match keys literally.
func (c *Client) ResolveRef(ref string) (*Node, error) {
	if !strings.HasPrefix(ref, "#/") {
		return nil, &InvalidReferenceError{Ref: ref}
	}

	node := c.doc
	for _, segment := range strings.Split(ref[2:], "/") {
		next, ok := node.Get(segment)
		if !ok {
			return nil, &NotFoundError{Kind: "reference", Name: ref}
		}
		node = next
	}
	return node, nil
}

// Deref replaces a top-level $ref on n with its target and passes every other
// node through unchanged.
func (c *Client) Deref(n *Node) (*Node, error) {
	ref, ok := n.Get("$ref")
	if !ok || !ref.IsString() {
		return n, nil
	}
	return c.ResolveRef(ref.Str())
}

// ServerURL returns the url of the first servers entry, or "" when the
// document declares none.
func (c *Client) ServerURL() string {
	servers := c.doc.Lookup("servers").Items()
	if len(servers) == 0 {
		return ""
	}
	return servers[0].Lookup("url").Str()
}

func missingKeys(doc *Node) []string {
	var missing []string
	for _, key := range requiredKeys {
		if !doc.Has(key) {
			missing = append(missing, key)
		}
	}
	return missing
}
