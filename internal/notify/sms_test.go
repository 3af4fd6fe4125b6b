package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMSFactorSend(t *testing.T) {
	t.Run("sends expected query and auth", func(t *testing.T) {
		var gotAuth, gotTo, gotText, gotSender string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotTo = r.URL.Query().Get("to")
			gotText = r.URL.Query().Get("text")
			gotSender = r.URL.Query().Get("sender")
			w.Write([]byte(`{"status":1,"message":"OK","ticket":"t-1"}`))
		}))
		defer server.Close()

		c := NewSMSFactorClient(server.URL, "tok-123", "KOLNA")
		err := c.Send(context.Background(), "+48600100200", "your code is 005687")

		require.NoError(t, err)
		assert.Equal(t, "Bearer tok-123", gotAuth)
		assert.Equal(t, "+48600100200", gotTo)
		assert.Equal(t, "your code is 005687", gotText)
		assert.Equal(t, "KOLNA", gotSender)
	})

	t.Run("non-1 status is an error even on HTTP 200", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":-7,"message":"Invalid destination"}`))
		}))
		defer server.Close()

		c := NewSMSFactorClient(server.URL, "tok-123", "KOLNA")
		err := c.Send(context.Background(), "bad", "text")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "Invalid destination")
	})

	t.Run("http error status is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"status":0,"message":"Bad token"}`))
		}))
		defer server.Close()

		c := NewSMSFactorClient(server.URL, "tok-123", "KOLNA")
		assert.Error(t, c.Send(context.Background(), "+48600100200", "text"))
	})

	t.Run("disabled without token", func(t *testing.T) {
		assert.False(t, NewSMSFactorClient("https://api.smsfactor.com", "", "KOLNA").Enabled())
		assert.True(t, NewSMSFactorClient("https://api.smsfactor.com", "tok", "KOLNA").Enabled())
	})
}
