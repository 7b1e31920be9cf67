package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/staffgate/staffgate/internal/cache"
	"github.com/staffgate/staffgate/internal/config"
)

const (
	// TokenCacheKey is the fixed key the access token is cached under.
	TokenCacheKey = "directory:access_token"

	// tokenExpiryMargin keeps a cached token from outliving its real lifetime.
	tokenExpiryMargin = 5 * time.Minute

	maxResponseBody = 4 << 20
)

// Profile is the employee data a directory account is created from.
type Profile struct {
	EmployeeID string
	Name       string
	Email      string
	Phone      string
	Location   string
}

// Account is a directory user.
type Account struct {
	ID                string `json:"id"`
	PrincipalName     string `json:"userPrincipalName"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail,omitempty"`
	AccountEnabled    *bool  `json:"accountEnabled,omitempty"`
	TemporaryPassword string `json:"-"`
}

// AppRole is an app role declared by a service principal.
type AppRole struct {
	ID          string `json:"id"`
	Value       string `json:"value"`
	DisplayName string `json:"displayName"`
}

// AppRoleAssignment grants an app role of a resource to a principal.
type AppRoleAssignment struct {
	ID          string `json:"id,omitempty"`
	AppRoleID   string `json:"appRoleId"`
	PrincipalID string `json:"principalId"`
	ResourceID  string `json:"resourceId"`
}

// Client talks to Microsoft Graph with an application token.
type Client struct {
	graphURL       string
	domain         string
	usageLocation  string
	passwordLength int
	tokenTTL       time.Duration

	oauth      clientcredentials.Config
	cache      cache.Cache
	httpClient *http.Client
	limiter    *rate.Limiter
	password   func(int) (string, error)
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for token and Graph requests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithPasswordGenerator replaces the temporary password generator.
func WithPasswordGenerator(fn func(int) (string, error)) Option {
	return func(c *Client) {
		c.password = fn
	}
}

// New creates a Client. tokens is owned by the client and holds the shared access token.
func New(cfg config.Directory, tokens cache.Cache, opts ...Option) *Client {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		graphURL:       strings.TrimRight(cfg.GraphURL, "/"),
		domain:         cfg.Domain,
		usageLocation:  cfg.UsageLocation,
		passwordLength: cfg.PasswordLength,
		tokenTTL:       cfg.TokenCacheTTL,
		oauth: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       []string{cfg.Scope},
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		cache:      tokens,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, burst),
		password:   GeneratePassword,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.cache == nil {
		c.cache = cache.NewMemory()
	}

	return c
}

// Domain returns the principal name domain.
func (c *Client) Domain() string {
	return c.domain
}

// AccessToken returns a bearer token, from the cache when possible.
// Concurrent refreshes may both fetch a token; the last write wins and both are valid.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	cached, err := c.cache.Get(TokenCacheKey)
	if err != nil {
		log.Warn().Err(err).Msg("directory token cache read failed")
	}
	if len(cached) > 0 {
		return string(cached), nil
	}

	tok, err := c.oauth.Token(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient))
	if err != nil {
		return "", &AuthError{Err: err}
	}

	ttl := c.tokenTTL
	if !tok.Expiry.IsZero() {
		if remaining := time.Until(tok.Expiry) - tokenExpiryMargin; remaining < ttl {
			ttl = remaining
		}
	}

	if ttl > 0 {
		if err := c.cache.Set(TokenCacheKey, []byte(tok.AccessToken), ttl); err != nil {
			log.Warn().Err(err).Msg("directory token cache write failed")
		}
	}

	return tok.AccessToken, nil
}

// CreateAccount creates an enabled directory account with a temporary password
// that must be changed at next sign-in. A taken principal name is returned as a
// raw *DirectoryError; see IsPrincipalNameConflict.
func (c *Client) CreateAccount(ctx context.Context, p Profile) (*Account, error) {
	upn := PrincipalName(p.Name, p.EmployeeID, c.domain)

	password, err := c.password(c.passwordLength)
	if err != nil {
		return nil, &DirectoryError{Op: "create account", Err: err}
	}

	body := map[string]any{
		"accountEnabled":    true,
		"displayName":       p.Name,
		"mailNickname":      MailNickname(upn),
		"userPrincipalName": upn,
		"employeeId":        p.EmployeeID,
		"passwordProfile": map[string]any{
			"forceChangePasswordNextSignIn": true,
			"password":                      password,
		},
	}
	if p.Email != "" {
		body["mail"] = p.Email
	}
	if p.Phone != "" {
		body["mobilePhone"] = p.Phone
	}
	if p.Location != "" {
		body["officeLocation"] = p.Location
	}
	if c.usageLocation != "" {
		body["usageLocation"] = c.usageLocation
	}

	var created Account
	if err := c.do(ctx, "create account", http.MethodPost, "/users", body, &created); err != nil {
		return nil, err
	}

	created.TemporaryPassword = password

	return &created, nil
}

// GetAccount fetches a directory account by object id.
func (c *Client) GetAccount(ctx context.Context, id string) (*Account, error) {
	var acc Account
	if err := c.do(ctx, "get account", http.MethodGet, "/users/"+url.PathEscape(id), nil, &acc); err != nil {
		return nil, err
	}

	return &acc, nil
}

// FindAccountByPrincipalName looks an account up by login name. A missing account is nil, nil.
func (c *Client) FindAccountByPrincipalName(ctx context.Context, principalName string) (*Account, error) {
	acc, err := c.GetAccount(ctx, principalName)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}

		return nil, err
	}

	return acc, nil
}

// UpdateAccount patches the given Graph user properties.
func (c *Client) UpdateAccount(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	return c.do(ctx, "update account", http.MethodPatch, "/users/"+url.PathEscape(id), fields, nil)
}

// DisableAccount blocks sign-in.
func (c *Client) DisableAccount(ctx context.Context, id string) error {
	return c.do(ctx, "disable account", http.MethodPatch, "/users/"+url.PathEscape(id),
		map[string]any{"accountEnabled": false}, nil)
}

// EnableAccount allows sign-in.
func (c *Client) EnableAccount(ctx context.Context, id string) error {
	return c.do(ctx, "enable account", http.MethodPatch, "/users/"+url.PathEscape(id),
		map[string]any{"accountEnabled": true}, nil)
}

// DeleteAccount deletes the directory account.
func (c *Client) DeleteAccount(ctx context.Context, id string) error {
	return c.do(ctx, "delete account", http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil)
}

// RevokeSessions invalidates refresh tokens and session cookies of the account.
func (c *Client) RevokeSessions(ctx context.Context, id string) error {
	return c.do(ctx, "revoke sessions", http.MethodPost,
		"/users/"+url.PathEscape(id)+"/revokeSignInSessions", nil, nil)
}

// AddGroupMember adds the account to the group. An existing membership is success.
func (c *Client) AddGroupMember(ctx context.Context, groupID, accountID string) error {
	body := map[string]string{
		"@odata.id": c.graphURL + "/directoryObjects/" + url.PathEscape(accountID),
	}

	err := c.do(ctx, "add group member", http.MethodPost,
		"/groups/"+url.PathEscape(groupID)+"/members/$ref", body, nil)
	if err != nil && isAlreadyExists(err) {
		log.Debug().Str("group", groupID).Str("account", accountID).Msg("already a group member")
		return nil
	}

	return err
}

// RemoveGroupMember removes the account from the group. A missing membership is success.
func (c *Client) RemoveGroupMember(ctx context.Context, groupID, accountID string) error {
	err := c.do(ctx, "remove group member", http.MethodDelete,
		"/groups/"+url.PathEscape(groupID)+"/members/"+url.PathEscape(accountID)+"/$ref", nil, nil)
	if IsNotFound(err) {
		return nil
	}

	return err
}

// ListAppRoles returns the app roles of a service principal in declaration order.
func (c *Client) ListAppRoles(ctx context.Context, appID string) ([]AppRole, error) {
	var sp struct {
		AppRoles []AppRole `json:"appRoles"`
	}

	if err := c.do(ctx, "list app roles", http.MethodGet,
		"/servicePrincipals/"+url.PathEscape(appID), nil, &sp); err != nil {
		return nil, err
	}

	return sp.AppRoles, nil
}

// AssignAppRole grants appRoleID of the service principal appID to the account.
// An existing identical grant is success and returns a nil assignment.
func (c *Client) AssignAppRole(ctx context.Context, appID, accountID, appRoleID string) (*AppRoleAssignment, error) {
	body := AppRoleAssignment{
		PrincipalID: accountID,
		ResourceID:  appID,
		AppRoleID:   appRoleID,
	}

	var out AppRoleAssignment
	err := c.do(ctx, "assign app role", http.MethodPost,
		"/servicePrincipals/"+url.PathEscape(appID)+"/appRoleAssignments", body, &out)
	if err != nil {
		if isAlreadyExists(err) {
			return nil, nil
		}

		return nil, err
	}

	return &out, nil
}

// ListAccountAppRoleAssignments returns the app role grants of the account.
func (c *Client) ListAccountAppRoleAssignments(ctx context.Context, accountID string) ([]AppRoleAssignment, error) {
	var page struct {
		Value []AppRoleAssignment `json:"value"`
	}

	if err := c.do(ctx, "list app role assignments", http.MethodGet,
		"/users/"+url.PathEscape(accountID)+"/appRoleAssignments", nil, &page); err != nil {
		return nil, err
	}

	return page.Value, nil
}

// RemoveAppRoleAssignment deletes a grant. A missing grant is success.
func (c *Client) RemoveAppRoleAssignment(ctx context.Context, accountID, assignmentID string) error {
	err := c.do(ctx, "remove app role assignment", http.MethodDelete,
		"/users/"+url.PathEscape(accountID)+"/appRoleAssignments/"+url.PathEscape(assignmentID), nil, nil)
	if IsNotFound(err) {
		return nil
	}

	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &DirectoryError{Op: op, Err: err}
	}

	token, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return &DirectoryError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.graphURL+path, body)
	if err != nil {
		return &DirectoryError{Op: op, Err: err}
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &DirectoryError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return &DirectoryError{Op: op, Status: resp.StatusCode, Err: err}
	}

	log.Debug().
		Str("op", op).
		Str("method", method).
		Int("status", resp.StatusCode).
		Msg("directory request")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &DirectoryError{Op: op, Status: resp.StatusCode, Body: string(raw)}
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return &DirectoryError{Op: op, Status: resp.StatusCode, Body: string(raw), Err: fmt.Errorf("decode response: %w", err)}
		}
	}

	return nil
}
