package kis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rustyeddy/dca/broker"
)

// Tokens are refreshed this long before the gateway says they expire.
const tokenSlack = 60 * time.Second

type accessToken struct {
	Value     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expired_at"`
	Mode      Mode      `json:"mode"`
}

func (t accessToken) validAt(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

type tokenRequest struct {
	GrantType string `json:"grant_type"`
	AppKey    string `json:"appkey"`
	AppSecret string `json:"appsecret"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`

	ErrorCode        string `json:"error_code"`
	ErrorDescription string `json:"error_description"`
}

// accessToken returns a usable token, from memory, the side-file or a new
// issue, in that order.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token.validAt(c.now()) {
		return c.token.Value, nil
	}
	if t, ok := c.loadToken(); ok {
		c.token = t
		return t.Value, nil
	}
	if err := c.issueToken(ctx); err != nil {
		return "", err
	}
	return c.token.Value, nil
}

// Reauthenticate always issues a fresh token and replaces the cached one.
func (c *Client) Reauthenticate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.issueToken(ctx)
}

func (c *Client) issueToken(ctx context.Context) error {
	body, err := json.Marshal(tokenRequest{
		GrantType: "client_credentials",
		AppKey:    c.creds.AppKey,
		AppSecret: c.creds.AppSecret,
	})
	if err != nil {
		return fmt.Errorf("encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth2/tokenP", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	data, status, err := c.send(req)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		if status != http.StatusOK {
			return fmt.Errorf("issue token: %w", &APIError{Status: status, Message: string(data)})
		}
		return fmt.Errorf("%w: decode token: %w", broker.ErrTransport, err)
	}
	if status != http.StatusOK || tr.AccessToken == "" {
		return fmt.Errorf("issue token: %w", &APIError{Status: status, Code: tr.ErrorCode, Message: tr.ErrorDescription})
	}

	ttl := time.Duration(tr.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	c.token = accessToken{
		Value:     tr.AccessToken,
		ExpiresAt: c.now().Add(ttl - tokenSlack),
		Mode:      c.mode,
	}
	c.log.WithField("expires_at", c.token.ExpiresAt.Format(time.RFC3339)).Info("issued access token")

	c.saveToken()
	return nil
}

func (c *Client) loadToken() (accessToken, bool) {
	if c.tokenPath == "" {
		return accessToken{}, false
	}
	data, err := os.ReadFile(c.tokenPath)
	if err != nil {
		return accessToken{}, false
	}
	var t accessToken
	if err := json.Unmarshal(data, &t); err != nil {
		c.log.WithError(err).Warn("ignoring unreadable token cache")
		return accessToken{}, false
	}
	if t.Mode != c.mode || !t.validAt(c.now()) {
		return accessToken{}, false
	}
	c.log.Debug("loaded access token from cache")
	return t, true
}

func (c *Client) saveToken() {
	if c.tokenPath == "" {
		return
	}
	data, err := json.Marshal(c.token)
	if err != nil {
		c.log.WithError(err).Warn("encode token cache")
		return
	}
	if err := os.WriteFile(c.tokenPath, data, 0600); err != nil {
		c.log.WithError(err).Warn("write token cache")
	}
}
