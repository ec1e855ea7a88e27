package tools

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/kolah/talkit/openapi"
)

// SecurityHandler adds the credentials of one security scheme to a request.
type SecurityHandler interface {
	Apply(r *http.Request) error
}

// BearerToken sends "Authorization: Bearer <token>". It also serves oauth2
// and openIdConnect schemes.
type BearerToken string

func (t BearerToken) Apply(r *http.Request) error {
	r.Header.Set("Authorization", "Bearer "+string(t))
	return nil
}

// BasicAuth sends HTTP Basic credentials.
type BasicAuth struct {
	Username string
	Password string
}

func (b BasicAuth) Apply(r *http.Request) error {
	r.SetBasicAuth(b.Username, b.Password)
	return nil
}

// APIKey sends a key in a header, query parameter or cookie.
type APIKey struct {
	Location string
	Name     string
	Key      string
}

func (k APIKey) Apply(r *http.Request) error {
	switch k.Location {
	case "header":
		r.Header.Set(k.Name, k.Key)
	case "query":
		q := r.URL.Query()
		q.Set(k.Name, k.Key)
		r.URL.RawQuery = q.Encode()
	case "cookie":
		r.AddCookie(&http.Cookie{Name: k.Name, Value: k.Key})
	default:
		return fmt.Errorf("unsupported api key location: %q", k.Location)
	}
	return nil
}

// SecurityRegistry holds handlers for named security schemes.
type SecurityRegistry struct {
	handlers map[string]SecurityHandler
}

func NewSecurityRegistry() *SecurityRegistry {
	return &SecurityRegistry{handlers: make(map[string]SecurityHandler)}
}

// Register adds a handler for a named security scheme.
func (r *SecurityRegistry) Register(name string, handler SecurityHandler) {
	r.handlers[name] = handler
}

// Get returns the handler for a scheme, or nil if not registered.
func (r *SecurityRegistry) Get(name string) SecurityHandler {
	return r.handlers[name]
}

// Credential is the secret configured for one scheme. Token is the bearer
// token or the API key.
type Credential struct {
	Token    string
	Username string
	Password string
}

// SecurityFromDocument registers a handler for every scheme in creds, typed
// by its definition in components.securitySchemes.
func SecurityFromDocument(c *openapi.Client, creds map[string]Credential) (*SecurityRegistry, error) {
	reg := NewSecurityRegistry()
	schemes := c.Document().Lookup("components", "securitySchemes")

	for name, cred := range creds {
		def, ok := schemes.Get(name)
		if !ok {
			return nil, &openapi.NotFoundError{Kind: "security scheme", Name: name}
		}
		def, err := c.Deref(def)
		if err != nil {
			return nil, fmt.Errorf("security scheme %s: %w", name, err)
		}

		handler, err := handlerFor(def, cred)
		if err != nil {
			return nil, fmt.Errorf("security scheme %s: %w", name, err)
		}
		reg.Register(name, handler)
	}

	return reg, nil
}

func handlerFor(def *openapi.Node, cred Credential) (SecurityHandler, error) {
	switch typ := def.Lookup("type").Str(); typ {
	case "http":
		switch scheme := strings.ToLower(def.Lookup("scheme").Str()); scheme {
		case "bearer":
			return BearerToken(cred.Token), nil
		case "basic":
			return BasicAuth{Username: cred.Username, Password: cred.Password}, nil
		default:
			return nil, fmt.Errorf("unsupported http scheme: %q", scheme)
		}
	case "apiKey":
		return APIKey{
			Location: def.Lookup("in").Str(),
			Name:     def.Lookup("name").Str(),
			Key:      cred.Token,
		}, nil
	case "oauth2", "openIdConnect":
		return BearerToken(cred.Token), nil
	default:
		return nil, fmt.Errorf("unsupported type: %q", typ)
	}
}

// SecurityError reports a tool whose security requirements no registered
// credentials satisfy.
type SecurityError struct {
	Tool         string
	Requirements [][]string
}

func (e *SecurityError) Error() string {
	alternatives := make([]string, 0, len(e.Requirements))
	for _, req := range e.Requirements {
		alternatives = append(alternatives, strings.Join(req, "+"))
	}
	return fmt.Sprintf("tool %s: no credentials for security requirement %s", e.Tool, strings.Join(alternatives, " | "))
}

// apply uses the first requirement whose schemes are all registered.
// Schemes within a requirement are ANDed, requirements are alternatives.
func (r *SecurityRegistry) apply(req *http.Request, tool *Tool) error {
	if len(tool.Security) == 0 {
		return nil
	}

	for _, requirement := range tool.Security {
		handlers := make([]SecurityHandler, 0, len(requirement))
		for _, name := range requirement {
			h := r.Get(name)
			if h == nil {
				break
			}
			handlers = append(handlers, h)
		}
		if len(handlers) != len(requirement) {
			continue
		}
		for _, h := range handlers {
			if err := h.Apply(req); err != nil {
				return err
			}
		}
		return nil
	}

	return &SecurityError{Tool: tool.Name, Requirements: tool.Security}
}

// securityRequirements reads the operation's security, falling back to the
// document's. An empty requirement makes the operation callable anonymously.
func securityRequirements(c *openapi.Client, d *openapi.OperationDetail) [][]string {
	security, ok := d.Record.Get("security")
	if !ok {
		security = c.Document().Lookup("security")
	}

	var out [][]string
	for _, req := range security.Items() {
		out = append(out, req.Keys())
	}
	return out
}
