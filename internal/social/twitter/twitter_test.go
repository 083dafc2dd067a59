package twitter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEvaluateWithoutCredentials(t *testing.T) {
	r := New(Config{APIKey: "key"}, zap.NewNop()).Evaluate(context.Background(), "news")
	assert.Zero(t, r.Score)
	assert.Equal(t, "Twitter API credentials not provided.", r.Narrative)
}

func TestEvaluateVerifiedRatio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2/tweets/search/recent", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "flood lang:en", r.URL.Query().Get("query"))
		assert.Equal(t, "50", r.URL.Query().Get("max_results"))
		w.Write([]byte(`{
			"data": [
				{"id": "1", "text": "a", "author_id": "u1"},
				{"id": "2", "text": "b", "author_id": "u2"},
				{"id": "3", "text": "c", "author_id": "u1"},
				{"id": "4", "text": "d", "author_id": "u3"}
			],
			"includes": {"users": [
				{"id": "u1", "username": "agency", "verified": true},
				{"id": "u2", "username": "someone", "verified": false}
			]}
		}`))
	}))
	defer srv.Close()

	s := New(Config{BearerToken: "token", BaseURL: srv.URL}, zap.NewNop())
	r := s.Evaluate(context.Background(), "flood")

	assert.Equal(t, 0.5, r.Score)
	assert.Contains(t, r.Narrative, "Found 4 tweets for keyword 'flood', with 2 tweets from verified accounts")
}

func TestEvaluateNoTweets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meta": {"result_count": 0}}`))
	}))
	defer srv.Close()

	r := New(Config{BearerToken: "token", BaseURL: srv.URL}, zap.NewNop()).Evaluate(context.Background(), "quiet")
	assert.Zero(t, r.Score)
	assert.Contains(t, r.Narrative, "Found 0 tweets")
}

func TestSearchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"title":"Too Many Requests"}`))
	}))
	defer srv.Close()

	s := New(Config{BearerToken: "token", BaseURL: srv.URL}, zap.NewNop())
	_, err := s.Search(context.Background(), "news")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	r := s.Evaluate(context.Background(), "news")
	assert.Zero(t, r.Score)
	assert.Contains(t, r.Narrative, "Twitter analysis error")
}
