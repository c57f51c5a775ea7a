package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/keepmind9/slackbridge/internal/logger"
	"github.com/keepmind9/slackbridge/pkg/constants"
	"github.com/sirupsen/logrus"
)

// APIError is a Slack Web API failure with its machine-readable error code,
// e.g. "user_not_found" or "channel_not_found".
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack api %s failed: %s", e.Method, e.Code)
}

// WebClient is a thin Slack Web API caller.
//
// It holds a single-permit semaphore so at most one request is in flight at
// any time. Serializing requests keeps the adapter inside Slack's rate
// limits without a retry layer; it is a deliberate policy, not a bottleneck
// to optimize away.
type WebClient struct {
	httpClient *http.Client
	baseURL    string
	botToken   string
	appToken   string
	sem        chan struct{}
}

// WebClientOption customizes a WebClient
type WebClientOption func(*WebClient)

// WithBaseURL overrides the Web API base URL, mainly for tests
func WithBaseURL(baseURL string) WebClientOption {
	return func(c *WebClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(hc *http.Client) WebClientOption {
	return func(c *WebClient) {
		c.httpClient = hc
	}
}

// WithProxy routes all Web API traffic through the given proxy URL.
// An unparseable proxy URL is reported at construction time.
func WithProxy(proxyURL string) WebClientOption {
	return func(c *WebClient) {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"proxy_url": proxyURL,
				"error":     err,
			}).Error("invalid-proxy-url-ignored")
			return
		}
		c.httpClient.Transport = &http.Transport{Proxy: http.ProxyURL(parsed)}
	}
}

// NewWebClient creates a Web API client authenticated with the given tokens.
// The bot token authorizes Web API methods; the app token authorizes the
// Socket Mode handshake only.
func NewWebClient(botToken, appToken string, opts ...WebClientOption) *WebClient {
	c := &WebClient{
		httpClient: &http.Client{Timeout: constants.DefaultHTTPTimeout},
		baseURL:    constants.DefaultAPIBaseURL,
		botToken:   botToken,
		appToken:   appToken,
		sem:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	logger.WithFields(logrus.Fields{
		"bot_token": maskSecret(botToken),
		"app_token": maskSecret(appToken),
	}).Debug("web-client-created")
	return c
}

// maskSecret masks sensitive token material for logging
func maskSecret(s string) string {
	if len(s) <= constants.MinSecretLengthForMasking {
		return "***"
	}
	return s[:constants.SecretMaskPrefixLength] + "***" + s[len(s)-constants.SecretMaskSuffixLength:]
}

// call performs a single Web API request under the concurrency ceiling and
// decodes the response envelope into out. A response with ok=false becomes
// an *APIError carrying the platform's error code.
func (c *WebClient) call(ctx context.Context, method, token string, args map[string]any, out any) error {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.sem }()

	body, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to encode %s arguments: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}

	var envelope struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if !envelope.OK {
		return &APIError{Method: method, Code: envelope.Error}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", method, err)
		}
	}
	return nil
}

// AuthTest resolves the adapter's own identity via auth.test
func (c *WebClient) AuthTest(ctx context.Context) (*Identity, error) {
	var resp struct {
		UserID string `json:"user_id"`
		User   string `json:"user"`
		TeamID string `json:"team_id"`
	}
	if err := c.call(ctx, "auth.test", c.botToken, map[string]any{}, &resp); err != nil {
		return nil, err
	}
	return &Identity{UserID: resp.UserID, Name: resp.User, TeamID: resp.TeamID}, nil
}

// GetUserInfo fetches a single user via users.info
func (c *WebClient) GetUserInfo(ctx context.Context, userID string) (*User, error) {
	var resp struct {
		User *User `json:"user"`
	}
	args := map[string]any{"user": userID}
	if err := c.call(ctx, "users.info", c.botToken, args, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, &APIError{Method: "users.info", Code: "user_not_found"}
	}
	hydrateEmail(resp.User)
	return resp.User, nil
}

// ListUsers fetches one page of workspace members via users.list. The
// returned cursor is empty once the final page has been served.
func (c *WebClient) ListUsers(ctx context.Context, cursor string, limit int) ([]*User, string, error) {
	var resp struct {
		Members          []*User `json:"members"`
		ResponseMetadata struct {
			NextCursor string `json:"next_cursor"`
		} `json:"response_metadata"`
	}
	args := map[string]any{"limit": limit}
	if cursor != "" {
		args["cursor"] = cursor
	}
	if err := c.call(ctx, "users.list", c.botToken, args, &resp); err != nil {
		return nil, "", err
	}
	for _, u := range resp.Members {
		hydrateEmail(u)
	}
	return resp.Members, resp.ResponseMetadata.NextCursor, nil
}

// GetConversationInfo fetches conversation metadata via conversations.info
func (c *WebClient) GetConversationInfo(ctx context.Context, conversationID string) (*Conversation, error) {
	var resp struct {
		Channel *Conversation `json:"channel"`
	}
	args := map[string]any{"channel": conversationID}
	if err := c.call(ctx, "conversations.info", c.botToken, args, &resp); err != nil {
		return nil, err
	}
	if resp.Channel == nil {
		return nil, &APIError{Method: "conversations.info", Code: "channel_not_found"}
	}
	return resp.Channel, nil
}

// PostMessage sends a message via chat.postMessage with the given arguments
func (c *WebClient) PostMessage(ctx context.Context, args map[string]any) error {
	return c.call(ctx, "chat.postMessage", c.botToken, args, nil)
}

// SetTopic sets a conversation topic via conversations.setTopic
func (c *WebClient) SetTopic(ctx context.Context, conversationID, topic string) error {
	args := map[string]any{"channel": conversationID, "topic": topic}
	return c.call(ctx, "conversations.setTopic", c.botToken, args, nil)
}

// OpenConnection requests a Socket Mode websocket URL via
// apps.connections.open, authorized by the app-level token.
func (c *WebClient) OpenConnection(ctx context.Context) (string, error) {
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.call(ctx, "apps.connections.open", c.appToken, map[string]any{}, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", &APIError{Method: "apps.connections.open", Code: "missing_url"}
	}
	return resp.URL, nil
}

// hydrateEmail lifts profile.email into the dedicated EmailAddress field
func hydrateEmail(u *User) {
	if u.EmailAddress != "" || u.Profile == nil {
		return
	}
	if email, ok := u.Profile["email"].(string); ok {
		u.EmailAddress = email
	}
}
