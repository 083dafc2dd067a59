package instagram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHashtag(t *testing.T) {
	assert.Equal(t, "breakingnews", Hashtag("Breaking News!"))
	assert.Equal(t, "covid_19", Hashtag("#covid_19"))
	assert.Empty(t, Hashtag("!!!"))
}

func TestEvaluateWithoutCredentials(t *testing.T) {
	r := New(Config{AccessToken: "token"}, zap.NewNop()).Evaluate(context.Background(), "news")
	assert.Zero(t, r.Score)
	assert.Equal(t, "Instagram API credentials not provided.", r.Narrative)
}

// graphServer serves a hashtag search and pages of perPage posts up to total
func graphServer(t *testing.T, total, perPage int) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/ig_hashtag_search":
			assert.Equal(t, "1789", r.URL.Query().Get("user_id"))
			w.Write([]byte(`{"data": [{"id": "tag-1"}]}`))
		case strings.HasSuffix(r.URL.Path, "/recent_media"):
			offset := 0
			fmt.Sscan(r.URL.Query().Get("offset"), &offset)
			n := min(perPage, total-offset)
			ids := make([]string, 0, n)
			for i := 0; i < n; i++ {
				ids = append(ids, fmt.Sprintf(`{"id":"%d"}`, offset+i))
			}
			next := ""
			if offset+n < total {
				next = fmt.Sprintf("%s/tag-1/recent_media?offset=%d", srv.URL, offset+n)
			}
			fmt.Fprintf(w, `{"data":[%s],"paging":{"next":%q}}`, strings.Join(ids, ","), next)
		default:
			http.NotFound(w, r)
		}
	}))
	return srv
}

func TestEvaluatePopularHashtag(t *testing.T) {
	srv := graphServer(t, 80, 25)
	defer srv.Close()

	s := New(Config{AccessToken: "token", UserID: "1789", BaseURL: srv.URL}, zap.NewNop())

	count, err := s.CountPosts(context.Background(), "news", 50)
	require.NoError(t, err)
	assert.Equal(t, 50, count)

	r := s.Evaluate(context.Background(), "News")
	assert.Equal(t, 0.6, r.Score)
	assert.Contains(t, r.Narrative, "Analyzed 50 posts for hashtag 'news'")
}

func TestEvaluateObscureHashtag(t *testing.T) {
	srv := graphServer(t, 20, 25)
	defer srv.Close()

	r := New(Config{AccessToken: "token", UserID: "1789", BaseURL: srv.URL}, zap.NewNop()).
		Evaluate(context.Background(), "niche")
	assert.Equal(t, 0.4, r.Score)
	assert.Contains(t, r.Narrative, "Analyzed 20 posts")
}

func TestEvaluateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"message": "Unsupported get request", "code": 100}}`))
	}))
	defer srv.Close()

	r := New(Config{AccessToken: "token", UserID: "1789", BaseURL: srv.URL}, zap.NewNop()).
		Evaluate(context.Background(), "news")
	assert.Zero(t, r.Score)
	assert.Contains(t, r.Narrative, "Instagram analysis error: instagram API error 100")
}
