// Package queueviewsdk is a minimal client for the Queueview HTTP API.
package queueviewsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Queueview HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Ticket mirrors the API ticket model.
type Ticket struct {
	TicketID      string `json:"ticket_id"`
	Customer      string `json:"customer"`
	Title         string `json:"title"`
	OwnerFullName string `json:"owner_full_name"`
	Status        string `json:"status"`
	Severity      string `json:"severity"`
}

// CorrelatedRow is one report row.
type CorrelatedRow struct {
	Ticket              Ticket `json:"ticket"`
	OwnerNormalizedName string `json:"owner_normalized_name"`
	OwnerPresence       string `json:"owner_presence"`
}

// AgentPresence is one live roster entry.
type AgentPresence struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	NormalizedName string `json:"normalized_name"`
	State          string `json:"state"`
}

// ReportSnapshot is a persisted report run.
type ReportSnapshot struct {
	ID        string          `json:"id"`
	Queue     string          `json:"queue"`
	CreatedAt string          `json:"created_at"`
	Rows      []CorrelatedRow `json:"rows,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Report fetches the correlated report. Empty queue or statuses use the
// server's configured defaults.
func (c *Client) Report(ctx context.Context, queue string, statuses []string) ([]CorrelatedRow, error) {
	var resp struct {
		Queue string          `json:"queue"`
		Rows  []CorrelatedRow `json:"rows"`
	}
	err := c.do(ctx, "v0/report"+reportQuery(queue, statuses), &resp)
	return resp.Rows, err
}

// Presence fetches live presence for a queue's agents.
func (c *Client) Presence(ctx context.Context, queue string) ([]AgentPresence, error) {
	var resp struct {
		Queue  string          `json:"queue"`
		Agents []AgentPresence `json:"agents"`
	}
	err := c.do(ctx, "v0/presence"+reportQuery(queue, nil), &resp)
	return resp.Agents, err
}

// Tickets fetches the filtered ticket list.
func (c *Client) Tickets(ctx context.Context, statuses []string) ([]Ticket, error) {
	var resp struct {
		Tickets []Ticket `json:"tickets"`
	}
	err := c.do(ctx, "v0/tickets"+reportQuery("", statuses), &resp)
	return resp.Tickets, err
}

// Snapshots lists saved report snapshots.
func (c *Client) Snapshots(ctx context.Context, limit int) ([]ReportSnapshot, error) {
	endpoint := "v0/snapshots"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp struct {
		Items []ReportSnapshot `json:"items"`
	}
	err := c.do(ctx, endpoint, &resp)
	return resp.Items, err
}

// Snapshot fetches one saved snapshot with its rows.
func (c *Client) Snapshot(ctx context.Context, id string) (ReportSnapshot, error) {
	var resp ReportSnapshot
	err := c.do(ctx, "v0/snapshots/"+url.PathEscape(id), &resp)
	return resp, err
}

func reportQuery(queue string, statuses []string) string {
	q := url.Values{}
	if queue != "" {
		q.Set("queue", queue)
	}
	for _, s := range statuses {
		q.Add("status", s)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) do(ctx context.Context, endpoint string, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
