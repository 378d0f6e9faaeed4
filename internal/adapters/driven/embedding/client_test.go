package embedding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/custodia-labs/newsdesk/internal/core/domain"
)

func TestClient_PostSendsHeadersAndParses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/embed", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "yes", r.Header.Get("X-Test"))
		_, _ = w.Write([]byte(`{"vector":[1,2.5]}`))
	}))
	defer server.Close()

	c := NewClient("test", server.URL, time.Second, 0, map[string]string{"X-Test": "yes"})
	defer c.Close()

	resp, err := c.Post(context.Background(), "/embed", map[string]string{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2.5}, Vector(resp.Get("vector")))
}

func TestClient_ErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"openai style", `{"error":{"message":"bad key"}}`, "status 401: bad key"},
		{"ollama style", `{"error":"model not found"}`, "status 401: model not found"},
		{"plain body", strings.Repeat("x", 600), "status 401: " + strings.Repeat("x", 512)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient("test", server.URL, time.Second, 0, nil)
			_, err := c.Post(context.Background(), "/", nil)
			require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
			assert.Contains(t, err.Error(), tt.want)
			assert.ErrorIs(t, c.Get(context.Background(), "/"), domain.ErrEmbeddingUnavailable)
		})
	}
}

func TestClient_TooManyRequestsBacksOff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewClient("test", server.URL, time.Second, 0, nil)
	_, err := c.Post(context.Background(), "/", nil)

	require.Error(t, err)
	assert.False(t, c.Limiter().Allow())
}

func TestVector(t *testing.T) {
	assert.Nil(t, Vector(gjson.Parse(`[]`)))
	assert.Nil(t, Vector(gjson.Result{}))
	assert.Equal(t, []float32{0.5, -1}, Vector(gjson.Parse(`[0.5,-1]`)))
}
