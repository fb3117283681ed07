// Package client is a Go client for the campaigns API.
//
// Authentication state lives in a Session the caller owns and passes to
// every protected call. A Session starts logged out and changes only
// through Login, Register and Logout.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	models "github.com/phillip/charity-campaigns-go/models"
)

// Session holds the bearer token and identity of a logged-in user.
// It is safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	token string
	user  *models.User
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the logged-in identity, or nil.
func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

func (s *Session) set(token string, user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.user = token, &user
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.user = "", nil
}

// APIError is a non-2xx answer from the server. It matches the models
// error sentinels with errors.Is.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case models.ErrNotFound:
		return e.Status == http.StatusNotFound
	case models.ErrForbidden:
		return e.Status == http.StatusForbidden
	case models.ErrValidation:
		return e.Status == http.StatusBadRequest
	case models.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case models.ErrPersistence:
		return e.Status >= http.StatusInternalServerError
	}
	return false
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New returns a client for the server at baseURL, e.g. http://localhost:5000.
func New(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/api",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CampaignRequest carries create and update fields. Nil fields are left
// out of the request, so an update only touches what is set.
type CampaignRequest struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Goal        *float64 `json:"goal,omitempty"`
	Image       *string  `json:"image,omitempty"`
	// EndDate is RFC 3339 or YYYY-MM-DD; an empty string clears it.
	EndDate *string `json:"end_date,omitempty"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// ---------------- AUTH ----------------

func (c *Client) Register(ctx context.Context, sess *Session, name, email, password string) error {
	var res authResponse
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, nil, http.MethodPost, "/auth/register", body, &res); err != nil {
		return err
	}
	sess.set(res.Token, res.User)
	return nil
}

// Login replaces whatever the session held. On failure the session is
// left unchanged.
func (c *Client) Login(ctx context.Context, sess *Session, email, password string) error {
	var res authResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, nil, http.MethodPost, "/auth/login", body, &res); err != nil {
		return err
	}
	sess.set(res.Token, res.User)
	return nil
}

// Logout is local; tokens are stateless on the server.
func (c *Client) Logout(sess *Session) {
	sess.clear()
}

// ---------------- CAMPAIGNS ----------------

func (c *Client) ListCampaigns(ctx context.Context) ([]models.Campaign, error) {
	var out []models.Campaign
	if err := c.do(ctx, nil, http.MethodGet, "/campaigns", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MyCampaigns returns the campaigns owned by the session user. An empty
// result is returned as an empty slice.
func (c *Client) MyCampaigns(ctx context.Context, sess *Session) ([]models.Campaign, error) {
	var raw json.RawMessage
	if err := c.do(ctx, sess, http.MethodGet, "/campaigns/my", nil, &raw); err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return []models.Campaign{}, nil
	}
	var out []models.Campaign
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode campaigns: %w", err)
	}
	return out, nil
}

func (c *Client) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	var out models.Campaign
	if err := c.do(ctx, nil, http.MethodGet, "/campaigns/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCampaign(ctx context.Context, sess *Session, in CampaignRequest) (*models.Campaign, error) {
	var out models.Campaign
	if err := c.do(ctx, sess, http.MethodPost, "/campaigns", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCampaign(ctx context.Context, sess *Session, id string, in CampaignRequest) (*models.Campaign, error) {
	var out models.Campaign
	if err := c.do(ctx, sess, http.MethodPut, "/campaigns/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCampaign(ctx context.Context, sess *Session, id string) error {
	return c.do(ctx, sess, http.MethodDelete, "/campaigns/"+url.PathEscape(id), nil, nil)
}

// Donate records a donation and returns the updated campaign. A blank
// donorName is recorded as anonymous.
func (c *Client) Donate(ctx context.Context, sess *Session, id, donorName string, amount float64) (*models.Campaign, error) {
	var res struct {
		Campaign models.Campaign `json:"campaign"`
	}
	body := map[string]any{"donor_name": donorName, "amount": amount}
	if err := c.do(ctx, sess, http.MethodPost, "/campaigns/"+url.PathEscape(id)+"/donate", body, &res); err != nil {
		return nil, err
	}
	return &res.Campaign, nil
}

// ---------------- PROFILE ----------------

func (c *Client) Profile(ctx context.Context, sess *Session) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, sess, http.MethodGet, "/users/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile changes name and/or email and refreshes the session's
// copy of the identity.
func (c *Client) UpdateProfile(ctx context.Context, sess *Session, name, email *string) (*models.User, error) {
	body := map[string]*string{}
	if name != nil {
		body["name"] = name
	}
	if email != nil {
		body["email"] = email
	}
	var res struct {
		User models.User `json:"user"`
	}
	if err := c.do(ctx, sess, http.MethodPut, "/users/profile", body, &res); err != nil {
		return nil, err
	}
	sess.set(sess.Token(), res.User)
	return &res.User, nil
}

// do sends one request. A non-nil sess makes the call authenticated and
// fails locally when it is logged out.
func (c *Client) do(ctx context.Context, sess *Session, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if sess != nil {
		token := sess.Token()
		if token == "" {
			return &APIError{Status: http.StatusUnauthorized, Message: "not logged in"}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
