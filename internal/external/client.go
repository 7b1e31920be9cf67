// Package external posts provisioning requests to third-party module endpoints.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/staffgate/staffgate/internal/config"
	"github.com/staffgate/staffgate/internal/db/models"
)

const (
	maxErrorBody    = 2048
	maxResponseBody = 1 << 20
)

// idFields are checked in order before the module specific field.
var idFields = []string{"id", "external_id", "externalId", "user_id", "userId", "uuid"}

// Decrypter opens stored module credentials. It returns "" when they cannot be read.
type Decrypter interface {
	Decrypt(ciphertext string) string
}

// Client sends authenticated JSON requests to module endpoints.
type Client struct {
	httpClient       *http.Client
	creds            Decrypter
	defaultKeyHeader string
}

// New creates a Client. Requests are bounded by cfg.Timeout.
func New(cfg config.External, creds Decrypter) *Client {
	header := cfg.DefaultAPIKeyHeader
	if header == "" {
		header = "X-API-Key"
	}

	return &Client{
		httpClient:       &http.Client{Timeout: cfg.Timeout},
		creds:            creds,
		defaultKeyHeader: header,
	}
}

// WithHTTPClient replaces the HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpClient = h
	return c
}

// Provision posts payload to the module endpoint and returns the identifier the
// third party assigned. A successful response without a known id field yields nil.
func (c *Client) Provision(ctx context.Context, module *models.Module, payload map[string]any) (*string, error) {
	if !module.HasExternalAPI() {
		return nil, ErrNoEndpoint
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &APIError{Module: module.Code, Err: fmt.Errorf("encode payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, *module.APIEndpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, &APIError{Module: module.Code, Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if err := c.authenticate(req, module); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Module: module.Code, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &APIError{Module: module.Code, Status: resp.StatusCode, Err: err}
	}

	log.Debug().
		Str("module", module.Code).
		Int("status", resp.StatusCode).
		Msg("external api request")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &APIError{Module: module.Code, Status: resp.StatusCode, Body: string(body)}
	}

	return extractID(body, module.ExternalIDField), nil
}

func (c *Client) authenticate(req *http.Request, module *models.Module) error {
	switch module.APIAuthMethod {
	case models.AuthMethodNone, "":
		return nil
	case models.AuthMethodBearer:
		token := c.secret(module)
		if token == "" {
			return ErrMissingCredentials
		}
		req.Header.Set("Authorization", "Bearer "+token)
	case models.AuthMethodAPIKey:
		key := c.secret(module)
		if key == "" {
			return ErrMissingCredentials
		}
		header := module.APIKeyHeader
		if header == "" {
			header = c.defaultKeyHeader
		}
		req.Header.Set(header, key)
	default:
		return &UnsupportedAuthMethodError{Method: string(module.APIAuthMethod)}
	}

	return nil
}

func (c *Client) secret(module *models.Module) string {
	if c.creds == nil {
		return ""
	}

	return c.creds.Decrypt(module.APICredentials)
}

func extractID(body []byte, moduleField string) *string {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil
	}

	fields := idFields
	if moduleField != "" {
		fields = append(append([]string(nil), idFields...), moduleField)
	}

	for _, f := range fields {
		if id, ok := stringify(doc[f]); ok {
			return &id
		}
	}

	return nil
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case json.Number:
		return t.String(), true
	default:
		return "", false
	}
}
