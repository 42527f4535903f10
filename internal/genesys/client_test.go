package genesys

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"queueview/internal/backend"
)

// newTestClient wires a client against a fake auth endpoint and API server.
func newTestClient(t *testing.T, api http.Handler) (*Client, *int) {
	t.Helper()
	tokenCalls := 0
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok, "token request must use basic auth")
		assert.Equal(t, "cid", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.FormValue("grant_type"))
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 3600})
	}))
	t.Cleanup(authSrv.Close)
	apiSrv := httptest.NewServer(api)
	t.Cleanup(apiSrv.Close)

	c := New("cid", "secret", "example.test")
	c.AuthURL = authSrv.URL
	c.BaseURL = apiSrv.URL
	return c, &tokenCalls
}

func TestFindQueueID(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/routing/queues", r.URL.Path)
		assert.Equal(t, "Support Tier 1", r.URL.Query().Get("name"))
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"entities": []map[string]string{{"id": "q-42"}}})
	}))

	id, found, err := c.FindQueueID(context.Background(), "Support Tier 1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "q-42", id)
}

func TestFindQueueIDNoMatch(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"entities": []any{}})
	}))

	_, found, err := c.FindQueueID(context.Background(), "Nope")
	require.NoError(t, err, "zero matches is not an error")
	assert.False(t, found)
}

func TestTokenIsCachedAcrossCalls(t *testing.T) {
	c, tokenCalls := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"entities": []any{}})
	}))

	_, _, err := c.FindQueueID(context.Background(), "a")
	require.NoError(t, err)
	_, err = c.ListQueueMembers(context.Background(), "q-1")
	require.NoError(t, err)
	assert.Equal(t, 1, *tokenCalls, "token must be exchanged once and reused")
}

func TestTokenRefreshedAfterExpiry(t *testing.T) {
	c, tokenCalls := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"entities": []any{}})
	}))
	now := time.Now()
	c.Now = func() time.Time { return now }

	_, _, err := c.FindQueueID(context.Background(), "a")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, _, err = c.FindQueueID(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 2, *tokenCalls, "expired token must be re-exchanged")
}

// One client instance backs every serve-mode handler, so concurrent calls
// must be safe and still share a single token exchange. Run with -race.
func TestConcurrentCallsShareOneToken(t *testing.T) {
	c, tokenCalls := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"entities": []any{}})
	}))

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.FindQueueID(context.Background(), "a")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, *tokenCalls, "concurrent first use must not re-exchange")
}

func TestTokenExchangeFailureIsAuthError(t *testing.T) {
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	}))
	defer authSrv.Close()

	c := New("cid", "wrong", "example.test")
	c.AuthURL = authSrv.URL
	c.BaseURL = "http://127.0.0.1:0"

	_, _, err := c.FindQueueID(context.Background(), "a")
	require.Error(t, err)
	assert.True(t, backend.IsAuth(err), "credential rejection must surface as auth error")
}

func TestBulkGetPresence(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v2/users/presences/purecloud/bulk", r.URL.Path)
		var body map[string][]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"1", "2"}, body["id"])
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "1", "presenceDefinition": map[string]string{"systemPresence": "ONLINE"}},
			{"id": "2", "presenceDefinition": map[string]string{"systemPresence": "AWAY"}},
		})
	}))

	records, err := c.BulkGetPresence(context.Background(), []string{"1", "2"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "ONLINE", records[0].SystemPresence())
	assert.Equal(t, "AWAY", records[1].SystemPresence())
}

func TestBulkGetPresenceEmptyInput(t *testing.T) {
	c := New("cid", "secret", "example.test")
	records, err := c.BulkGetPresence(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records, "no ids means no network call")
}

func TestAPIErrorOnServerFailure(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))

	_, err := c.ListQueueMembers(context.Background(), "q-1")
	require.Error(t, err)
	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.False(t, backend.IsAuth(err))
}
