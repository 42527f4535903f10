package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"queueview/internal/config"
	"queueview/internal/db"
	"queueview/internal/engine"
	"queueview/internal/genesys"
	"queueview/internal/history"
	"queueview/internal/mta"
	"queueview/internal/presence"
	"queueview/internal/tickets"
)

const testSecret = "test-secret"

// newTestServer wires the full stack against fake presence and ticket
// backends and returns the API base URL.
func newTestServer(t *testing.T) string {
	t.Helper()

	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	}))
	t.Cleanup(authSrv.Close)

	presenceSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v2/routing/queues":
			json.NewEncoder(w).Encode(map[string]any{"entities": []map[string]string{{"id": "q-1"}}})
		case strings.HasSuffix(r.URL.Path, "/users"):
			json.NewEncoder(w).Encode(map[string]any{"entities": []map[string]string{{"id": "1", "name": "Smith, Robert"}}})
		default:
			json.NewEncoder(w).Encode([]map[string]any{
				{"id": "1", "presenceDefinition": map[string]string{"systemPresence": "ONLINE"}},
			})
		}
	}))
	t.Cleanup(presenceSrv.Close)

	ticketSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"ticketId":"T-1","customer":"Acme","title":"Login broken","ownerFullName":"Robert Smith","status":"In Queue","severity":"High"},
			{"ticketId":"T-2","status":"Closed"}
		]`))
	}))
	t.Cleanup(ticketSrv.Close)

	gc := genesys.New("cid", "secret", "example.test")
	gc.AuthURL = authSrv.URL
	gc.BaseURL = presenceSrv.URL

	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	eng := engine.New(
		&presence.Source{Backend: gc},
		&tickets.Source{Backend: mta.New(ticketSrv.URL, "tok")},
		nil,
	)
	handler, err := New(Config{
		Engine:  eng,
		History: &history.Store{DB: conn},
		Defaults: config.ReportConfig{
			Queue:    "Support",
			Statuses: []string{"In Queue"},
		},
		BasePath: "/v0",
		Auth:     AuthConfig{JWTSecret: testSecret},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func get(t *testing.T, url, token string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	return resp, body
}

func TestHealthNeedsNoAuth(t *testing.T) {
	base := newTestServer(t)
	resp, _ := get(t, base+"/v0/health", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestReportRequiresAuth(t *testing.T) {
	base := newTestServer(t)
	resp, _ := get(t, base+"/v0/report", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	resp, _ = get(t, base+"/v0/report", "garbage.token.here")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", resp.StatusCode)
	}
}

func TestReportEndpoint(t *testing.T) {
	base := newTestServer(t)
	resp, body := get(t, base+"/v0/report", signToken(t, "dashboard"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var out struct {
		Queue string `json:"queue"`
		Rows  []struct {
			Ticket struct {
				TicketID string `json:"ticket_id"`
			} `json:"ticket"`
			OwnerPresence string `json:"owner_presence"`
		} `json:"rows"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v (%s)", err, body)
	}
	if out.Queue != "Support" {
		t.Fatalf("expected default queue, got %q", out.Queue)
	}
	if len(out.Rows) != 1 || out.Rows[0].Ticket.TicketID != "T-1" {
		t.Fatalf("expected single In Queue row, got %+v", out.Rows)
	}
	if out.Rows[0].OwnerPresence != "ONLINE" {
		t.Fatalf("expected ONLINE owner, got %+v", out.Rows[0])
	}
}

func TestPresenceEndpoint(t *testing.T) {
	base := newTestServer(t)
	resp, body := get(t, base+"/v0/presence", signToken(t, "dashboard"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var out struct {
		Agents []struct {
			NormalizedName string `json:"normalized_name"`
			State          string `json:"state"`
		} `json:"agents"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode: %v (%s)", err, body)
	}
	if len(out.Agents) != 1 || out.Agents[0].NormalizedName != "robert smith" || out.Agents[0].State != "ONLINE" {
		t.Fatalf("unexpected agents %+v", out.Agents)
	}
}

func TestSnapshotNotFound(t *testing.T) {
	base := newTestServer(t)
	resp, _ := get(t, base+"/v0/snapshots/nope", signToken(t, "dashboard"))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
