// Smoke check: spin fake backends plus the API server and walk the report
// endpoints end to end.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"queueview/internal/config"
	"queueview/internal/engine"
	"queueview/internal/genesys"
	"queueview/internal/mta"
	"queueview/internal/presence"
	"queueview/internal/server"
	"queueview/internal/tickets"
	queueviewsdk "queueview/sdk/go"
)

func main() {
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	}))
	defer authSrv.Close()

	presenceSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v2/routing/queues":
			json.NewEncoder(w).Encode(map[string]any{"entities": []map[string]string{{"id": "q-1"}}})
		case strings.HasSuffix(r.URL.Path, "/users"):
			json.NewEncoder(w).Encode(map[string]any{"entities": []map[string]string{
				{"id": "1", "name": "Smith, Robert"},
				{"id": "2", "name": "Doe, Jane"},
			}})
		default:
			json.NewEncoder(w).Encode([]map[string]any{
				{"id": "1", "presenceDefinition": map[string]string{"systemPresence": "ONLINE"}},
				{"id": "2", "presenceDefinition": map[string]string{"systemPresence": "AWAY"}},
			})
		}
	}))
	defer presenceSrv.Close()

	ticketSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"ticketId":"T-1","customer":"Acme","title":"Login broken","ownerFullName":"Robert Smith","status":"In Queue","severity":"High"},
			{"ticketId":"T-2","customer":"Globex","title":"Slow reports","ownerFullName":"Jane Doe","status":"Closed","severity":"Low"}
		]`))
	}))
	defer ticketSrv.Close()

	gc := genesys.New("cid", "secret", "example.test")
	gc.AuthURL = authSrv.URL
	gc.BaseURL = presenceSrv.URL

	eng := engine.New(
		&presence.Source{Backend: gc},
		&tickets.Source{Backend: mta.New(ticketSrv.URL, "tok")},
		nil,
	)
	jwtSecret := "test-secret"
	handler, err := server.New(server.Config{
		Engine:   eng,
		Defaults: config.ReportConfig{Queue: "Support", Statuses: []string{"In Queue"}},
		BasePath: "/v0",
		Auth:     server.AuthConfig{JWTSecret: jwtSecret},
	})
	if err != nil {
		panic(err)
	}
	ts := httptest.NewServer(handler)
	defer ts.Close()

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "smoke",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString([]byte(jwtSecret))
	if err != nil {
		panic(err)
	}

	sdk := queueviewsdk.New(ts.URL)
	sdk.BearerToken = signed
	ctx := context.Background()

	rows, err := sdk.Report(ctx, "", nil)
	if err != nil {
		panic(err)
	}
	fmt.Printf("report rows: %d\n", len(rows))
	for _, r := range rows {
		fmt.Printf("  %s %s -> %s\n", r.Ticket.TicketID, r.Ticket.OwnerFullName, r.OwnerPresence)
	}

	agents, err := sdk.Presence(ctx, "Support")
	if err != nil {
		panic(err)
	}
	fmt.Printf("agents: %d\n", len(agents))

	list, err := sdk.Tickets(ctx, []string{"In Queue", "Closed"})
	if err != nil {
		panic(err)
	}
	fmt.Printf("tickets: %d\n", len(list))
}
