package lockapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/kolna/keysync/internal/errors"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestTokenClientLogin(t *testing.T) {
	t.Run("posts credentials as form and caches token", func(t *testing.T) {
		var gotUsername, gotPassword string
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/api/login_check", r.URL.Path)
			require.NoError(t, r.ParseForm())
			gotUsername = r.PostForm.Get("_username")
			gotPassword = r.PostForm.Get("_password")
			json.NewEncoder(w).Encode(map[string]string{"token": "jwt-abc"})
		})

		cache := NewMemoryTokenCache()
		c := NewTokenClient(server.URL, "user@example.com", "s3cret", cache)

		require.NoError(t, c.Login(context.Background()))
		assert.Equal(t, "user@example.com", gotUsername)
		assert.Equal(t, "s3cret", gotPassword)

		token, err := cache.Get(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "jwt-abc", token)
	})

	t.Run("cached token skips the wire", func(t *testing.T) {
		calls := 0
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			json.NewEncoder(w).Encode(map[string]string{"token": "jwt-abc"})
		})

		cache := NewMemoryTokenCache()
		c := NewTokenClient(server.URL, "u", "p", cache)

		require.NoError(t, c.Login(context.Background()))
		require.NoError(t, c.Login(context.Background()))
		assert.Equal(t, 1, calls)
	})

	t.Run("bad credentials surface as auth error", func(t *testing.T) {
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		c := NewTokenClient(server.URL, "u", "wrong", NewMemoryTokenCache())
		err := c.Login(context.Background())

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeLockAuth, apperrors.GetCode(err))
	})

	t.Run("empty token in response is an auth error", func(t *testing.T) {
		server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]string{})
		})

		c := NewTokenClient(server.URL, "u", "p", NewMemoryTokenCache())
		assert.Error(t, c.Login(context.Background()))
	})
}

func TestTokenClientListCodes(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login_check":
			json.NewEncoder(w).Encode(map[string]string{"token": "jwt-abc"})
		case "/api/v2/serrure/3718/partages":
			assert.Equal(t, "Bearer jwt-abc", r.Header.Get("Authorization"))
			w.Write([]byte(`[
				{"id":42,"nom":"Anna Kowalska","code":"1234","description":"Smoobu#9001","date_debut":"2025-06-01","date_fin":"2025-06-05"},
				{"id":43,"nom":"Cleaner","code":"9999","description":"staff"}
			]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	c := NewTokenClient(server.URL, "u", "p", NewMemoryTokenCache())
	codes, err := c.ListCodes(context.Background(), 3718)

	require.NoError(t, err)
	require.Len(t, codes, 2)
	assert.Equal(t, int64(42), codes[0].ID)
	assert.Equal(t, int64(3718), codes[0].LockID)
	assert.Equal(t, "1234", codes[0].PIN)
	assert.Equal(t, "Smoobu#9001", codes[0].Description)
}

func TestTokenClientReauthOn401(t *testing.T) {
	logins := 0
	listCalls := 0
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login_check":
			logins++
			json.NewEncoder(w).Encode(map[string]string{"token": "jwt-fresh"})
		case "/api/v2/serrure/3718/partages":
			listCalls++
			// First try hits with a stale cached token.
			if r.Header.Get("Authorization") == "Bearer jwt-stale" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`[]`))
		}
	})

	cache := NewMemoryTokenCache()
	require.NoError(t, cache.Set(context.Background(), "jwt-stale", time.Hour))

	c := NewTokenClient(server.URL, "u", "p", cache)
	_, err := c.ListCodes(context.Background(), 3718)

	require.NoError(t, err)
	assert.Equal(t, 1, logins)
	assert.Equal(t, 2, listCalls)
}

func TestTokenClientCreateCode(t *testing.T) {
	var gotPayload map[string]any
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login_check":
			json.NewEncoder(w).Encode(map[string]string{"token": "jwt-abc"})
		case "/api/v2/partage/accessoire/create/3718":
			require.Equal(t, http.MethodPost, r.Method)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":777}`))
		}
	})

	c := NewTokenClient(server.URL, "u", "p", NewMemoryTokenCache())
	created, err := c.CreateCode(context.Background(), 3718, "4413", CodeParams{
		GuestName:      "Anna Kowalska",
		PIN:            "5687",
		StartDate:      "2025-06-01",
		EndDate:        "2025-06-05",
		CheckInHour:    15,
		CheckOutHour:   12,
		CheckOutMinute: 0,
		Description:    "Smoobu#9001",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(777), created.ID)
	// Fields the vendor omits in the response are backfilled from the request.
	assert.Equal(t, "5687", created.PIN)
	assert.Equal(t, "Smoobu#9001", created.Description)

	assert.Equal(t, "Anna Kowalska", gotPayload["nom"])
	assert.Equal(t, "4413", gotPayload["accessoire"])
	assert.Equal(t, "5687", gotPayload["code"])
	assert.Equal(t, "2025-06-01", gotPayload["date_debut"])
	assert.Equal(t, "2025-06-05", gotPayload["date_fin"])
	assert.Equal(t, true, gotPayload["actif"])
	heureDebut, ok := gotPayload["heure_debut"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(15), heureDebut["hour"])
}

func TestTokenClientDeleteCode(t *testing.T) {
	var gotMethod, gotPath string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/login_check" {
			json.NewEncoder(w).Encode(map[string]string{"token": "jwt-abc"})
			return
		}
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	c := NewTokenClient(server.URL, "u", "p", NewMemoryTokenCache())
	require.NoError(t, c.DeleteCode(context.Background(), 777))

	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/api/v2/partage/accessoire/777/delete", gotPath)
}
