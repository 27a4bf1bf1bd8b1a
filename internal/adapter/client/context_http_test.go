package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mcp-gateway/internal/adapter/client"
)

func TestHTTPContextProvider_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/context", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "reset password", body["query"])
		assert.Equal(t, float64(5), body["max_results"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"content":"Use the reset link","score":0.9}]}`))
	}))
	defer srv.Close()

	p := client.NewHTTPContextProvider(srv.URL+"/v1/", "secret")
	fetched, err := p.FetchContext(context.Background(), "reset password", 5)
	require.NoError(t, err)

	results, ok := fetched["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 1)
	assert.Equal(t, "Use the reset link", results[0].(map[string]any)["content"])
}

func TestHTTPContextProvider_Failures(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "upstream exploded", http.StatusBadGateway)
			},
		},
		{
			name: "malformed payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"results":`))
			},
		},
		{
			name: "not an object",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`null`))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			p := client.NewHTTPContextProvider(srv.URL, "")
			fetched, err := p.FetchContext(context.Background(), "q", 1)
			assert.Error(t, err)
			assert.Nil(t, fetched)
		})
	}
}

func TestHTTPContextProvider_Deadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.NewHTTPContextProvider(srv.URL, "").FetchContext(ctx, "slow", 1)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestHTTPContextProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := client.NewHTTPContextProvider(url, "").FetchContext(context.Background(), "q", 1)
	assert.Error(t, err)
}
