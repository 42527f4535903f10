// Package genesys is a minimal client for the contact-center presence cloud:
// OAuth client-credentials auth, routing-queue lookup, and bulk presence.
package genesys

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

	"queueview/internal/backend"
)

// Client talks to the presence cloud API. Credentials are exchanged for a
// bearer token on first use and the token is reused until it expires.
type Client struct {
	ClientID     string
	ClientSecret string
	Region       string

	// BaseURL and AuthURL override the region-derived endpoints (tests).
	BaseURL string
	AuthURL string

	HTTPClient *http.Client
	Now        func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New creates a client with sane defaults. HTTPClient is set here so the
// client is safe to share across goroutines; request paths never mutate it.
func New(clientID, clientSecret, region string) *Client {
	return &Client{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Region:       region,
		HTTPClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Member is one roster entry of a routing queue.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// PresenceRecord is one entry of a bulk presence response.
type PresenceRecord struct {
	ID                 string `json:"id"`
	PresenceDefinition struct {
		SystemPresence string `json:"systemPresence"`
	} `json:"presenceDefinition"`
}

// SystemPresence returns the record's system presence, or "" when absent.
func (r PresenceRecord) SystemPresence() string {
	return r.PresenceDefinition.SystemPresence
}

// FindQueueID resolves a routing queue by exact name. A queue with no match
// returns found=false without an error.
func (c *Client) FindQueueID(ctx context.Context, name string) (string, bool, error) {
	var resp struct {
		Entities []struct {
			ID string `json:"id"`
		} `json:"entities"`
	}
	endpoint := "/api/v2/routing/queues?name=" + url.QueryEscape(name)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return "", false, err
	}
	if len(resp.Entities) == 0 {
		return "", false, nil
	}
	return resp.Entities[0].ID, true, nil
}

// ListQueueMembers returns the member roster of a queue.
func (c *Client) ListQueueMembers(ctx context.Context, queueID string) ([]Member, error) {
	var resp struct {
		Entities []Member `json:"entities"`
	}
	endpoint := fmt.Sprintf("/api/v2/routing/queues/%s/users", url.PathEscape(queueID))
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Entities, nil
}

// BulkGetPresence fetches current presence for all ids in one request.
func (c *Client) BulkGetPresence(ctx context.Context, ids []string) ([]PresenceRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var resp []PresenceRecord
	body := map[string]any{"id": ids}
	if err := c.do(ctx, http.MethodPost, "/api/v2/users/presences/purecloud/bulk", body, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// BearerToken returns a valid cached token, exchanging credentials when the
// cache is empty or expired. Failure is a hard auth error.
func (c *Client) BearerToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return "", &backend.AuthError{Op: "presence token", Err: err}
	}
	req.SetBasicAuth(c.ClientID, c.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", &backend.AuthError{Op: "presence token", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", &backend.AuthError{Op: "presence token", Err: &backend.APIError{StatusCode: resp.StatusCode, Body: string(b)}}
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", &backend.AuthError{Op: "presence token", Err: err}
	}
	if tok.AccessToken == "" {
		return "", &backend.AuthError{Op: "presence token", Err: fmt.Errorf("empty access_token in response")}
	}
	c.token = tok.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	if tok.ExpiresIn <= 0 {
		// Servers that omit expires_in get a conservative reuse window.
		c.tokenExpiry = c.now().Add(5 * time.Minute)
	}
	return c.token, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	token, err := c.BearerToken(ctx)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base()+endpoint, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &backend.APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return "https://api." + c.Region
}

func (c *Client) authURL() string {
	if c.AuthURL != "" {
		return c.AuthURL
	}
	return fmt.Sprintf("https://login.%s/oauth/token", c.Region)
}
