package facebook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestToken(t *testing.T) {
	assert.Equal(t, "user-token", Config{AccessToken: "user-token", AppID: "1", AppSecret: "s"}.Token())
	assert.Equal(t, "1|s", Config{AppID: "1", AppSecret: "s"}.Token())
	assert.Empty(t, Config{AppID: "1"}.Token())
	assert.False(t, Config{}.HasCredentials())
}

func TestEvaluateWithoutCredentials(t *testing.T) {
	r := New(Config{}, zap.NewNop()).Evaluate(context.Background(), "news")
	assert.Zero(t, r.Score)
	assert.Equal(t, "Facebook API credentials not provided.", r.Narrative)
}

func TestEvaluateVerifiedPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pages/search", r.URL.Path)
		assert.Equal(t, "summit", r.URL.Query().Get("q"))
		assert.Equal(t, "1|s", r.URL.Query().Get("access_token"))
		w.Write([]byte(`{"data": [
			{"id": "1", "name": "News Corp", "verification_status": "blue_verified"},
			{"id": "2", "name": "Local", "verification_status": "gray_verified"},
			{"id": "3", "name": "Fan page", "verification_status": "not_verified"},
			{"id": "4", "name": "Other"}
		]}`))
	}))
	defer srv.Close()

	r := New(Config{AppID: "1", AppSecret: "s", BaseURL: srv.URL}, zap.NewNop()).Evaluate(context.Background(), "summit")
	assert.Equal(t, 0.5, r.Score)
	assert.Contains(t, r.Narrative, "Found 4 pages for keyword 'summit', 2 of them verified")
}

func TestSearchPagesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "Invalid OAuth access token.", "type": "OAuthException", "code": 190}}`))
	}))
	defer srv.Close()

	_, err := New(Config{AccessToken: "secret-token", BaseURL: srv.URL}, zap.NewNop()).SearchPages(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "190")
	assert.NotContains(t, err.Error(), "secret-token")
}

func TestSearchPagesTransportErrorHidesToken(t *testing.T) {
	s := New(Config{AccessToken: "secret-token", BaseURL: "http://127.0.0.1:1"}, zap.NewNop())
	_, err := s.SearchPages(context.Background(), "x")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-token")
}
