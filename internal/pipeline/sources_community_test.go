package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trendingPage = `<html><body>
<article class="Box-row">
  <h2 class="h3 lh-condensed"><a href="/acme/llm-kit">acme / llm-kit</a></h2>
  <p class="col-9 color-fg-muted my-1 pr-4">Toolkit for LLM apps</p>
  <span class="d-inline-block float-sm-right">1,204 stars today</span>
</article>
<article class="Box-row">
  <h2 class="h3 lh-condensed"><a href="/solo/no-readme">solo / no-readme</a></h2>
</article>
<article class="Box-row"><h2 class="h3"></h2></article>
</body></html>`

func communityServer(t *testing.T) (*httptest.Server, Config) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/r/MachineLearning/.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AI Newsletter Bot 1.0", r.Header.Get("User-Agent"))
		fmt.Fprint(w, `{"data":{"children":[
			{"data":{"title":"[D] Question","permalink":"/r/MachineLearning/comments/1/q/","selftext":"Body text","is_self":true,"score":42,"created_utc":1772445600}},
			{"data":{"title":"Link post","permalink":"/r/MachineLearning/comments/2/l/","is_self":false,"score":7}}
		]}}`)
	})
	mux.HandleFunc("/api/models", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"modelId":"org/model-a","downloads":1200,"likes":33,"pipeline_tag":"text-generation","lastModified":"2026-03-01T00:00:00.000Z"},
			{"id":"org/model-b","downloads":5,"likes":0}]`)
	})
	mux.HandleFunc("/trending", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, trendingPage)
	})
	mux.HandleFunc("/raw/acme/llm-kit/HEAD/README.md", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "# llm-kit\n\n\n\nBuild   things.")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.Community.RedditURL = srv.URL + "/r/MachineLearning/.json"
	cfg.Community.HuggingFaceURL = srv.URL + "/api/models"
	cfg.Community.GitHubTrendingURL = srv.URL + "/trending"
	cfg.Community.GitHubBaseURL = "https://github.com"
	cfg.Community.GitHubRawURL = srv.URL + "/raw"
	return srv, cfg
}

func sourceByName(t *testing.T, sources []Source, name string) Source {
	t.Helper()
	for _, s := range sources {
		if s.Name() == name {
			return s
		}
	}
	t.Fatalf("source %q not found", name)
	return nil
}

func TestCommunitySourcesDisabled(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Community.Enabled = false
	assert.Empty(t, CommunitySources(http.DefaultClient, cfg))
}

func TestRedditSource(t *testing.T) {
	t.Parallel()

	srv, cfg := communityServer(t)
	src := sourceByName(t, CommunitySources(srv.Client(), cfg), RedditSourceName)

	articles, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 1, "link posts are skipped")

	a := articles[0]
	assert.Equal(t, "Reddit r/MachineLearning", a.Source)
	assert.Equal(t, "[D] Question", a.Title)
	assert.Equal(t, "https://reddit.com/r/MachineLearning/comments/1/q/", a.Link)
	assert.Equal(t, time.Unix(1772445600, 0).UTC().Format(time.RFC3339), a.Published)
	assert.Equal(t, "Body text", a.Content)
	require.NotNil(t, a.Score)
	assert.Equal(t, 42, *a.Score)
}

func TestHuggingFaceSource(t *testing.T) {
	t.Parallel()

	srv, cfg := communityServer(t)
	src := sourceByName(t, CommunitySources(srv.Client(), cfg), HuggingFaceSourceName)

	articles, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "Model: org/model-a", articles[0].Title)
	assert.Equal(t, "https://huggingface.co/org/model-a", articles[0].Link)
	assert.Equal(t, "Downloads: 1200, Likes: 33", articles[0].Summary)
	assert.Equal(t, "text-generation", articles[0].Content)
	assert.Equal(t, "Model: org/model-b", articles[1].Title, "id is used when modelId is missing")
}

func TestGitHubTrendingSource(t *testing.T) {
	t.Parallel()

	srv, cfg := communityServer(t)
	src := sourceByName(t, CommunitySources(srv.Client(), cfg), GitHubTrendingSourceName)

	articles, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, articles, 2, "rows without a repo link are skipped")

	a := articles[0]
	assert.Equal(t, "GitHub Trending", a.Source)
	assert.Equal(t, "acme/llm-kit", a.Title)
	assert.Equal(t, "https://github.com/acme/llm-kit", a.Link)
	assert.Equal(t, "Toolkit for LLM apps", a.Summary)
	assert.Equal(t, "Stars today: 1,204 stars today\n\n# llm-kit\n\nBuild things.", a.Content)

	b := articles[1]
	assert.Equal(t, "Stars today: 0", b.Content, "missing README leaves stars only")
	assert.Empty(t, b.Summary)
}

func TestCommunitySourceFailures(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".json") {
			fmt.Fprint(w, "{not json")
			return
		}
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Community.RedditURL = srv.URL + "/r.json"
	cfg.Community.HuggingFaceURL = srv.URL + "/models"
	cfg.Community.GitHubTrendingURL = srv.URL + "/trending"

	for _, src := range CommunitySources(srv.Client(), cfg) {
		_, err := src.Fetch(context.Background())
		assert.Error(t, err, src.Name())
	}
}
