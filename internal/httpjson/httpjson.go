// Package httpjson issues JSON requests and converts non-2xx responses into
// AuthErrors carrying the server's message and status.
package httpjson

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/jrsteele09/portfolio-auth/authmodel"
	apperrors "github.com/jrsteele09/portfolio-auth/internal/errors"
)

const ContentTypeJSON = "application/json"

// KindFunc picks the error kind for a failed response status
type KindFunc func(status int) error

// Fixed always reports kind
func Fixed(kind error) KindFunc {
	return func(int) error { return kind }
}

// UnauthorizedOrServer maps 401 and 403 to ErrUnauthorized and everything else
// to ErrServer.
func UnauthorizedOrServer(status int) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return apperrors.ErrUnauthorized
	}
	return apperrors.ErrServer
}

// Request describes one JSON call. Body is marshalled when non-nil.
type Request struct {
	Method      string
	URL         string
	Header      http.Header
	Body        any
	ContentType string
}

// Do sends the request and decodes a 2xx body into out (when out is non-nil).
// A transport failure yields an ErrNetwork AuthError with no status.
func Do(ctx context.Context, client *http.Client, r Request, out any, kindOf KindFunc) error {
	var body io.Reader
	if r.Body != nil {
		b, err := json.Marshal(r.Body)
		if err != nil {
			return apperrors.New(apperrors.ErrValidation, err.Error())
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return apperrors.Network(err)
	}
	for k, v := range r.Header {
		req.Header[k] = v
	}
	if r.Body != nil {
		contentType := r.ContentType
		if contentType == "" {
			contentType = ContentTypeJSON
		}
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", ContentTypeJSON)

	resp, err := client.Do(req)
	if err != nil {
		return apperrors.Network(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Network(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ErrorFromBody(kindOf(resp.StatusCode), resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperrors.FromStatus(apperrors.ErrServer, resp.StatusCode, "Invalid response body", err.Error())
	}
	return nil
}

// ErrorFromBody builds the AuthError for a failed response. The message comes
// from the body's message field, then detail, then the status text. The decoded
// body (or raw text) is kept as Details.
func ErrorFromBody(kind error, status int, raw []byte) *apperrors.AuthError {
	var details any
	var message string

	if len(bytes.TrimSpace(raw)) > 0 {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			details = decoded
			var er authmodel.ErrorResponse
			if json.Unmarshal(raw, &er) == nil {
				message = er.Text()
			}
		} else {
			details = strings.TrimSpace(string(raw))
		}
	}
	return apperrors.FromStatus(kind, status, message, details)
}

// IsJSON reports whether a content type header names a JSON body
func IsJSON(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "application/json") || strings.Contains(ct, "+json")
}
