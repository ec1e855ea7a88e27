package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const maxResponseBody = 1 << 20

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestValidator checks a built request before it is sent.
type RequestValidator interface {
	Validate(req *http.Request) error
}

// ArgumentError reports tool call arguments that cannot form a request.
type ArgumentError struct {
	Tool     string
	Argument string
	Reason   string
}

func (e *ArgumentError) Error() string {
	if e.Argument == "" {
		return fmt.Sprintf("tool %s: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("tool %s: argument %q: %s", e.Tool, e.Argument, e.Reason)
}

// InvokerConfig configures the target API.
type InvokerConfig struct {
	BaseURL string
	Headers map[string]string
	Timeout time.Duration
}

// Result is the API response to one tool call. Non-2xx statuses are results,
// not errors, so the model can see them.
type Result struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Invoker executes tool calls against the API.
type Invoker struct {
	baseURL   string
	headers   map[string]string
	timeout   time.Duration
	client    Doer
	validator RequestValidator
	security  *SecurityRegistry
	logger    *zap.Logger
}

type InvokerOption func(*Invoker)

func WithHTTPClient(client Doer) InvokerOption {
	return func(i *Invoker) { i.client = client }
}

func WithValidator(v RequestValidator) InvokerOption {
	return func(i *Invoker) { i.validator = v }
}

// WithSecurity applies credentials to tools that declare security
// requirements. Without it requirements are ignored.
func WithSecurity(reg *SecurityRegistry) InvokerOption {
	return func(i *Invoker) { i.security = reg }
}

func WithLogger(logger *zap.Logger) InvokerOption {
	return func(i *Invoker) { i.logger = logger }
}

// NewInvoker creates an invoker for the API at cfg.BaseURL.
func NewInvoker(cfg InvokerConfig, opts ...InvokerOption) *Invoker {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	i := &Invoker{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		headers: cfg.Headers,
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.client == nil {
		i.client = &http.Client{Timeout: timeout}
	}
	if i.logger == nil {
		i.logger = zap.NewNop()
	}
	i.logger = i.logger.With(zap.String("component", "tool_invoker"))
	return i
}

// BuildRequest maps the JSON object args onto the tool's path, query, header
// and cookie parameters and its request body.
func (i *Invoker) BuildRequest(ctx context.Context, tool *Tool, args json.RawMessage) (*http.Request, error) {
	values := map[string]any{}
	if len(bytes.TrimSpace(args)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(args))
		dec.UseNumber()
		if err := dec.Decode(&values); err != nil {
			return nil, &ArgumentError{Tool: tool.Name, Reason: "arguments must be a JSON object: " + err.Error()}
		}
	}

	path := tool.Path
	query := url.Values{}
	header := http.Header{}
	var cookies []*http.Cookie

	for _, p := range tool.Params {
		v, ok := values[p.Name]
		if !ok || v == nil {
			if p.Required {
				return nil, &ArgumentError{Tool: tool.Name, Argument: p.Name, Reason: "required"}
			}
			continue
		}

		switch p.In {
		case "path":
			path = strings.ReplaceAll(path, "{"+p.Name+"}", url.PathEscape(formatValue(v)))
		case "query":
			if list, ok := v.([]any); ok {
				for _, item := range list {
					query.Add(p.Name, formatValue(item))
				}
			} else {
				query.Set(p.Name, formatValue(v))
			}
		case "header":
			header.Set(p.Name, formatValue(v))
		case "cookie":
			cookies = append(cookies, &http.Cookie{Name: p.Name, Value: formatValue(v)})
		}
	}

	var body []byte
	if tool.Body != nil {
		v, ok := values[BodyArgument]
		switch {
		case ok && v != nil:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, &ArgumentError{Tool: tool.Name, Argument: BodyArgument, Reason: err.Error()}
			}
			body = b
		case tool.Body.Required:
			return nil, &ArgumentError{Tool: tool.Name, Argument: BodyArgument, Reason: "required"}
		}
	}

	target := i.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, tool.Method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	for k, v := range i.headers {
		req.Header.Set(k, v)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	if body != nil {
		contentType := tool.Body.MediaType
		if contentType == "" {
			contentType = "application/json"
		}
		req.Header.Set("Content-Type", contentType)
	}
	if i.security != nil {
		if err := i.security.apply(req, tool); err != nil {
			return nil, err
		}
	}

	return req, nil
}

// Call builds the request for tool, validates it when a validator is set,
// sends it and reads the response.
func (i *Invoker) Call(ctx context.Context, tool *Tool, args json.RawMessage) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	req, err := i.BuildRequest(ctx, tool, args)
	if err != nil {
		return nil, err
	}

	if i.validator != nil {
		if err := i.validator.Validate(req); err != nil {
			return nil, err
		}
		if req.GetBody != nil {
			if req.Body, err = req.GetBody(); err != nil {
				return nil, fmt.Errorf("rewinding request body: %w", err)
			}
		}
	}

	start := time.Now()
	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	i.logger.Debug("tool call",
		zap.String("tool", tool.Name),
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	return &Result{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        data,
	}, nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
