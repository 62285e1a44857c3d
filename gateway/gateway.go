// Package gateway executes API requests on behalf of the session: it attaches
// the bearer token and, on a 401, refreshes and retries exactly once.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/portfolio-auth/internal/errors"
	"github.com/jrsteele09/portfolio-auth/internal/httpjson"
	"github.com/jrsteele09/portfolio-auth/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const RequestIDHeader = "X-Request-ID"

// Authenticator is the part of *session.Manager the gateway needs
type Authenticator interface {
	State() session.State
	AccessToken(ctx context.Context) (string, bool)
	Reload(ctx context.Context) error
	RefreshAccessToken(ctx context.Context) (string, bool)
}

var _ Authenticator = (*session.Manager)(nil)

// Request describes one call. Body is sent as-is when it is []byte or
// json.RawMessage and JSON encoded otherwise.
type Request struct {
	Method   string
	Body     any
	Header   http.Header
	SkipAuth bool
}

// Response is a successful (2xx) reply. JSON holds the body when the content
// type is JSON, Text otherwise.
type Response struct {
	Status int
	Header http.Header
	JSON   json.RawMessage
	Text   string
}

func (r *Response) IsJSON() bool {
	return r.JSON != nil
}

// Decode unmarshals a JSON body into v
func (r *Response) Decode(v any) error {
	if r.JSON == nil {
		return apperrors.New(apperrors.ErrServer, "Response is not JSON")
	}
	return json.Unmarshal(r.JSON, v)
}

type Gateway struct {
	baseURL    string
	auth       Authenticator
	httpClient *http.Client
	logger     zerolog.Logger

	mu      sync.Mutex
	lastErr error
}

type Option func(*Gateway)

// WithHTTPClient sets the transport. Timeouts, if any, belong to the client.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		g.httpClient = c
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = l
	}
}

func New(baseURL string, auth Authenticator, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		auth:       auth,
		httpClient: http.DefaultClient,
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Execute sends the request to baseURL+path. A failed call returns a nil
// response and the *errors.AuthError, which is also kept for LastError.
func (g *Gateway) Execute(ctx context.Context, path string, req Request) (*Response, error) {
	resp, err := g.execute(ctx, path, req)
	g.mu.Lock()
	g.lastErr = err
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ExecuteJSON runs Execute and decodes the JSON body into a T
func ExecuteJSON[T any](ctx context.Context, g *Gateway, path string, req Request) (*T, error) {
	resp, err := g.Execute(ctx, path, req)
	if err != nil {
		return nil, err
	}
	var out T
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LastError returns the error of the most recent Execute, or nil
func (g *Gateway) LastError() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}

func (g *Gateway) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastErr = nil
}

func (g *Gateway) execute(ctx context.Context, path string, req Request) (*Response, error) {
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	authRequired := !req.SkipAuth && g.auth.State().IsAuthenticated
	var accessToken string
	if authRequired {
		var ok bool
		if accessToken, ok = g.auth.AccessToken(ctx); !ok {
			if err := g.auth.Reload(ctx); err != nil {
				g.logger.Debug().Err(err).Msg("session reload failed")
			}
			accessToken, _ = g.auth.AccessToken(ctx)
		}
	}

	requestID := uuid.NewString()
	status, header, raw, err := g.send(ctx, path, req, body, accessToken, requestID)
	if err != nil {
		return nil, apperrors.Network(err)
	}
	if isSuccess(status) {
		return parse(status, header, raw), nil
	}

	origErr := httpjson.ErrorFromBody(httpjson.UnauthorizedOrServer(status), status, raw)
	if status != http.StatusUnauthorized || !authRequired {
		return nil, origErr
	}

	newToken, ok := g.auth.RefreshAccessToken(ctx)
	if !ok {
		return nil, origErr
	}
	status, header, raw, err = g.send(ctx, path, req, body, newToken, requestID)
	if err != nil || !isSuccess(status) {
		g.logger.Debug().Str("path", path).Int("status", status).Msg("retry after refresh failed")
		return nil, origErr
	}
	return parse(status, header, raw), nil
}

func (g *Gateway) send(ctx context.Context, path string, req Request, body []byte, accessToken, requestID string) (int, http.Header, []byte, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return 0, nil, nil, err
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", httpjson.ContentTypeJSON)
	}
	for k, v := range req.Header {
		httpReq.Header[k] = v
	}
	httpReq.Header.Set(RequestIDHeader, requestID)
	if accessToken != "" && !req.SkipAuth {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, err
	}
	return resp.StatusCode, resp.Header, raw, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	case string:
		return []byte(b), nil
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrValidation, err.Error())
	}
	return encoded, nil
}

func parse(status int, header http.Header, raw []byte) *Response {
	resp := &Response{Status: status, Header: header}
	if httpjson.IsJSON(header.Get("Content-Type")) && len(bytes.TrimSpace(raw)) > 0 {
		resp.JSON = json.RawMessage(raw)
	} else {
		resp.Text = string(raw)
	}
	return resp
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
