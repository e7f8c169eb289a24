package qstash

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{URL: "https://qstash.upstash.io", Destination: "https://example.com/hook"})
	require.Error(t, err)

	_, err = NewClient(Config{URL: "https://qstash.upstash.io", Token: "t", Destination: "not a url"})
	require.Error(t, err)

	assert.False(t, Config{Token: "t"}.Configured())
	assert.True(t, Config{Token: "t", Destination: "https://example.com/hook"}.Configured())
}

func TestPublishPostsToDestination(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth, gotRetries string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRetries = r.Header.Get("Upstash-Retries")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		_, _ = w.Write([]byte(`{"messageId":"msg_123"}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{URL: srv.URL, Token: "secret", Destination: "https://example.com/hook", Retries: 2})
	require.NoError(t, err)

	id, err := c.Publish(context.Background(), map[string]any{"due": 2})
	require.NoError(t, err)
	assert.Equal(t, "msg_123", id)
	assert.Equal(t, "/v2/publish/https://example.com/hook", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "2", gotRetries)
	assert.Equal(t, float64(2), gotBody["due"])
}

func TestPublishSurfacesErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid token"}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{URL: srv.URL, Token: "bad", Destination: "https://example.com/hook"})
	require.NoError(t, err)

	_, err = c.Publish(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
	assert.Contains(t, err.Error(), "401")
}
