// Package mta is a client for the MTA ticketing backend.
package mta

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"queueview/internal/backend"
)

// RawTicket is a ticket record exactly as the backend returned it. Keys may
// be missing; callers apply defaulting.
type RawTicket map[string]any

// String returns the record's value for key, or fallback when the key is
// absent or not a string.
func (r RawTicket) String(key, fallback string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return fallback
}

// Client fetches tickets with a pre-issued bearer token.
type Client struct {
	TicketURL  string
	Token      string
	HTTPClient *http.Client
}

// New creates a client with sane defaults. HTTPClient is set here so the
// client is safe to share across goroutines; ListTickets never mutates it.
func New(ticketURL, token string) *Client {
	return &Client{
		TicketURL:  ticketURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// ListTickets returns the backend's full unfiltered ticket list. A 401 is
// reported as a hard auth error; other failures are plain backend errors.
func (c *Client) ListTickets(ctx context.Context) ([]RawTicket, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.TicketURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &backend.APIError{StatusCode: resp.StatusCode, Body: string(b)}
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, &backend.AuthError{Op: "list tickets", Err: apiErr}
		}
		return nil, apiErr
	}

	var tickets []RawTicket
	if err := json.NewDecoder(resp.Body).Decode(&tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}
