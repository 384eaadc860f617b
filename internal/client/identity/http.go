package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/catermarket/caterauth/internal/client/models"
)

const requestIDHeader = "X-Request-ID"

var _ Transport = (*HTTPTransport)(nil)

type HTTPOption func(*HTTPTransport)

// WithHTTPClient replaces the client used for calls. The session guard is
// installed by wrapping its Transport.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(t *HTTPTransport) { t.client = c }
}

// HTTPTransport calls the Identity API over HTTP/JSON:
//
//	POST {base}/{role}/auth/{op}
//	GET  {base}/auth/me
type HTTPTransport struct {
	base   string
	client *http.Client
}

func NewHTTPTransport(baseURL string, opts ...HTTPOption) *HTTPTransport {
	t := &HTTPTransport{base: strings.TrimRight(baseURL, "/"), client: http.DefaultClient}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

func (t *HTTPTransport) endpoint(role models.Role, op Op) (string, string) {
	if op == OpMe {
		return http.MethodGet, t.base + "/auth/me"
	}
	return http.MethodPost, fmt.Sprintf("%s/%s/auth/%s", t.base, role, op)
}

func (t *HTTPTransport) Call(ctx context.Context, role models.Role, op Op, payload any) (*Envelope, error) {
	method, url := t.endpoint(role, op)

	var body io.Reader
	if method == http.MethodPost {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, unavailable(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unavailable(err)
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// not an envelope: proxies, gateways, crashed upstreams
		env = Envelope{StatusCode: resp.StatusCode, Success: resp.StatusCode < http.StatusBadRequest}
		if resp.StatusCode < http.StatusBadRequest {
			return nil, fmt.Errorf("decode %s response: %w", op, err)
		}
	}
	if resp.StatusCode >= http.StatusBadRequest && env.StatusCode < http.StatusBadRequest {
		env.StatusCode = resp.StatusCode
	}

	if err := checkEnvelope(&env, resp.StatusCode); err != nil {
		return nil, err
	}
	return &env, nil
}
