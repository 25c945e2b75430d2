package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-github/v62/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/github-trending/internal/config"
	"github.com/naka-gawa/github-trending/internal/domain"
)

var fixedNow = time.Date(2026, 10, 15, 13, 45, 0, 0, time.UTC)

// setupTestGateway creates a GitHubGateway that communicates with a mock HTTP server.
func setupTestGateway(t *testing.T, handler http.Handler) (*GitHubGateway, *httptest.Server) {
	server := httptest.NewServer(handler)

	restClient := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	restClient.BaseURL = baseURL

	gateway := &GitHubGateway{
		restClient: restClient,
		window:     7,
		now:        func() time.Time { return fixedNow },
		logger:     log.New(io.Discard),
	}
	return gateway, server
}

func TestGitHubGateway_FetchRateLimit(t *testing.T) {
	testCases := []struct {
		name           string
		handlerFunc    func(w http.ResponseWriter, r *http.Request)
		expected       domain.RateLimitStatus
		expectError    bool
		expectedErrMsg string
	}{
		{
			name: "happy path - search and core only",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/rate_limit", r.URL.Path)
				fmt.Fprint(w, `{"resources":{"core":{"limit":60,"remaining":58,"reset":1760536800},"search":{"limit":10,"remaining":9,"reset":1760533260}}}`)
			},
			expected: domain.RateLimitStatus{Quotas: []domain.Quota{
				{Category: domain.CategorySearch, Limit: 10, Remaining: 9, Reset: time.Unix(1760533260, 0)},
				{Category: domain.CategoryCore, Limit: 60, Remaining: 58, Reset: time.Unix(1760536800, 0)},
			}},
		},
		{
			name: "happy path - graphql category is reported between search and core",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"resources":{"core":{"limit":5000,"remaining":4990,"reset":1760536800},"search":{"limit":30,"remaining":30,"reset":1760533260},"graphql":{"limit":5000,"remaining":5000,"reset":1760537000}}}`)
			},
			expected: domain.RateLimitStatus{Quotas: []domain.Quota{
				{Category: domain.CategorySearch, Limit: 30, Remaining: 30, Reset: time.Unix(1760533260, 0)},
				{Category: domain.CategoryGraphQL, Limit: 5000, Remaining: 5000, Reset: time.Unix(1760537000, 0)},
				{Category: domain.CategoryCore, Limit: 5000, Remaining: 4990, Reset: time.Unix(1760536800, 0)},
			}},
		},
		{
			name: "error case - GitHub API returns an error",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, `{"message": "Internal Server Error"}`)
			},
			expectError:    true,
			expectedErrMsg: "failed to fetch rate limit",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gateway, server := setupTestGateway(t, http.HandlerFunc(tc.handlerFunc))
			defer server.Close()
			status, err := gateway.FetchRateLimit(context.Background())
			if tc.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErrMsg)
				var statusErr *StatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
				assert.Equal(t, "Internal Server Error", statusErr.Reason)
			} else {
				require.NoError(t, err)
				require.Len(t, status.Quotas, len(tc.expected.Quotas))
				for i, q := range tc.expected.Quotas {
					assert.Equal(t, q.Category, status.Quotas[i].Category)
					assert.Equal(t, q.Limit, status.Quotas[i].Limit)
					assert.Equal(t, q.Remaining, status.Quotas[i].Remaining)
					assert.True(t, q.Reset.Equal(status.Quotas[i].Reset))
				}
			}
		})
	}
}

const searchBody = `{"total_count": 5, "items": [
	{"name": "alpha", "full_name": "octo/alpha", "owner": {"login": "octo"}, "stargazers_count": 900, "created_at": "2026-10-14T08:00:00Z", "html_url": "https://github.com/octo/alpha"},
	{"name": "old", "full_name": "octo/old", "owner": {"login": "octo"}, "stargazers_count": 800, "created_at": "2026-09-01T08:00:00Z"},
	{"name": "beta", "full_name": "cat/beta", "owner": {"login": "cat"}, "stargazers_count": 700, "created_at": "2026-10-09T08:00:00Z"},
	{"name": "gamma", "full_name": "dog/gamma", "owner": {"login": "dog"}, "stargazers_count": 600, "created_at": "2026-10-10T08:00:00Z"},
	{"name": "delta", "full_name": "eel/delta", "owner": {"login": "eel"}, "stargazers_count": 500, "created_at": "2026-10-11T08:00:00Z"}
]}`

func TestGitHubGateway_FetchTrending(t *testing.T) {
	testCases := []struct {
		name           string
		top            int
		handlerFunc    func(w http.ResponseWriter, r *http.Request)
		expectedNames  []string
		expectError    bool
		expectQuota    bool
		expectedErrMsg string
	}{
		{
			name: "happy path - sends the search query and keeps the top N",
			top:  3,
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/search/repositories", r.URL.Path)
				assert.Equal(t, "created:>2026-10-08", r.URL.Query().Get("q"))
				assert.Equal(t, "stars", r.URL.Query().Get("sort"))
				assert.Equal(t, "desc", r.URL.Query().Get("order"))
				assert.Equal(t, "3", r.URL.Query().Get("per_page"))
				w.Header().Set(headerRateRemaining, "9")
				fmt.Fprint(w, searchBody)
			},
			// "old" was created before the cutoff and is dropped.
			expectedNames: []string{"octo/alpha", "cat/beta", "dog/gamma"},
		},
		{
			name: "fewer results than requested",
			top:  50,
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "50", r.URL.Query().Get("per_page"))
				fmt.Fprint(w, searchBody)
			},
			expectedNames: []string{"octo/alpha", "cat/beta", "dog/gamma", "eel/delta"},
		},
		{
			name: "zero requested - no request is made",
			top:  0,
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				t.Errorf("unexpected request to %s", r.URL.Path)
			},
			expectedNames: []string{},
		},
		{
			name: "quota case - zero remaining on a successful response",
			top:  3,
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set(headerRateRemaining, "0")
				w.Header().Set(headerRateReset, "1760533260")
				fmt.Fprint(w, searchBody)
			},
			expectError: true,
			expectQuota: true,
		},
		{
			name: "quota case - zero remaining on a forbidden response",
			top:  3,
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set(headerRateRemaining, "0")
				w.Header().Set(headerRateReset, "1760533260")
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprint(w, `{"message": "API rate limit exceeded"}`)
			},
			expectError: true,
			expectQuota: true,
		},
		{
			name: "quota case - zero remaining on a server error",
			top:  3,
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set(headerRateRemaining, "0")
				w.WriteHeader(http.StatusBadGateway)
			},
			expectError: true,
			expectQuota: true,
		},
		{
			name: "error case - GitHub API returns an error",
			top:  3,
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set(headerRateRemaining, "5")
				w.WriteHeader(http.StatusUnprocessableEntity)
				fmt.Fprint(w, `{"message": "Validation Failed"}`)
			},
			expectError:    true,
			expectedErrMsg: "failed to search repositories",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gateway, server := setupTestGateway(t, http.HandlerFunc(tc.handlerFunc))
			defer server.Close()

			repos, err := gateway.FetchTrending(context.Background(), tc.top)

			if tc.expectError {
				require.Error(t, err)
				var quotaErr *QuotaExceededError
				assert.Equal(t, tc.expectQuota, errors.As(err, &quotaErr))
				if tc.expectQuota {
					assert.Equal(t, "0", quotaErr.Header.Get(headerRateRemaining))
				} else {
					assert.Contains(t, err.Error(), tc.expectedErrMsg)
				}
				assert.Nil(t, repos)
				return
			}
			require.NoError(t, err)
			assert.LessOrEqual(t, len(repos), tc.top)
			names := make([]string, 0, len(repos))
			for _, r := range repos {
				names = append(names, r.FullName())
				assert.False(t, r.CreatedAt.Before(gateway.Cutoff()))
			}
			assert.Equal(t, tc.expectedNames, names)
		})
	}
}

func TestGitHubGateway_FetchTrending_MapsFields(t *testing.T) {
	gateway, server := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchBody)
	}))
	defer server.Close()

	repos, err := gateway.FetchTrending(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, domain.Repository{
		Owner:     "octo",
		Name:      "alpha",
		Stars:     900,
		CreatedAt: time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC),
		HTMLURL:   "https://github.com/octo/alpha",
	}, repos[0])
}

func TestGitHubGateway_FetchOpenIssues(t *testing.T) {
	testCases := []struct {
		name           string
		handlerFunc    func(w http.ResponseWriter, r *http.Request)
		expected       []domain.Issue
		expectError    bool
		expectQuota    bool
		expectedStatus int
	}{
		{
			name: "happy path - pull requests are filtered out",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/repos/octo/alpha/issues", r.URL.Path)
				assert.Equal(t, "open", r.URL.Query().Get("state"))
				fmt.Fprint(w, `[
					{"url": "https://api.github.com/repos/octo/alpha/issues/3", "html_url": "https://github.com/octo/alpha/issues/3"},
					{"url": "https://api.github.com/repos/octo/alpha/issues/2", "html_url": "https://github.com/octo/alpha/pull/2", "pull_request": {"url": "https://api.github.com/repos/octo/alpha/pulls/2"}},
					{"url": "https://api.github.com/repos/octo/alpha/issues/1", "html_url": "https://github.com/octo/alpha/issues/1"}
				]`)
			},
			expected: []domain.Issue{
				{URL: "https://api.github.com/repos/octo/alpha/issues/3", HTMLURL: "https://github.com/octo/alpha/issues/3"},
				{URL: "https://api.github.com/repos/octo/alpha/issues/1", HTMLURL: "https://github.com/octo/alpha/issues/1"},
			},
		},
		{
			name: "empty case - no open issues",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `[]`)
			},
			expected: []domain.Issue{},
		},
		{
			name: "quota case - zero remaining",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set(headerRateRemaining, "0")
				fmt.Fprint(w, `[]`)
			},
			expectError: true,
			expectQuota: true,
		},
		{
			name: "error case - repository not found",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"message": "Not Found"}`)
			},
			expectError:    true,
			expectedStatus: http.StatusNotFound,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gateway, server := setupTestGateway(t, http.HandlerFunc(tc.handlerFunc))
			defer server.Close()

			issues, err := gateway.FetchOpenIssues(context.Background(), "octo", "alpha")

			if tc.expectError {
				require.Error(t, err)
				var quotaErr *QuotaExceededError
				assert.Equal(t, tc.expectQuota, errors.As(err, &quotaErr))
				if tc.expectedStatus != 0 {
					var statusErr *StatusError
					require.ErrorAs(t, err, &statusErr)
					assert.Equal(t, tc.expectedStatus, statusErr.Code)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, issues)
			for _, issue := range issues {
				assert.False(t, issue.IsPullRequest)
			}
		})
	}
}

func TestGitHubGateway_TransportErrors(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		gateway, server := setupTestGateway(t, http.NotFoundHandler())
		server.Close()

		_, err := gateway.FetchRateLimit(context.Background())
		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, KindConnection, transportErr.Kind)
	})

	t.Run("too many redirects", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			http.Redirect(w, r, r.URL.String(), http.StatusFound)
		}))
		defer server.Close()

		cfg := config.Default()
		cfg.APIURL = server.URL
		cfg.NoCache = true
		gateway, err := NewGitHubGateway(cfg, log.New(io.Discard))
		require.NoError(t, err)

		_, err = gateway.FetchOpenIssues(context.Background(), "octo", "alpha")
		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, KindTooManyRedirects, transportErr.Kind)
		assert.ErrorIs(t, err, errTooManyRedirects)
		assert.Equal(t, int32(maxRedirects), hits.Load())
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		gateway, server := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		client := server.Client()
		client.Timeout = 50 * time.Millisecond
		gateway.restClient = github.NewClient(client)
		gateway.restClient.BaseURL, _ = url.Parse(server.URL + "/")

		_, err := gateway.FetchRateLimit(context.Background())
		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, KindTimeout, transportErr.Kind)
	})

	t.Run("malformed body", func(t *testing.T) {
		gateway, server := setupTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"items": [`)
		}))
		defer server.Close()

		_, err := gateway.FetchTrending(context.Background(), 3)
		var transportErr *TransportError
		require.ErrorAs(t, err, &transportErr)
		assert.Equal(t, KindMalformed, transportErr.Kind)
	})
}

func TestNewGitHubGateway_Transport(t *testing.T) {
	testCases := []struct {
		name         string
		token        string
		noCache      bool
		expectedAuth string
		expectedHits int32
	}{
		{name: "authenticated and cached", token: "secret", expectedAuth: "Bearer secret", expectedHits: 1},
		{name: "anonymous and cached", expectedAuth: "", expectedHits: 1},
		{name: "cache disabled", token: "secret", noCache: true, expectedAuth: "Bearer secret", expectedHits: 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				assert.Equal(t, tc.expectedAuth, r.Header.Get("Authorization"))
				w.Header().Set("Cache-Control", "private, max-age=60")
				fmt.Fprint(w, `{"resources":{"core":{"limit":60,"remaining":60,"reset":1760536800},"search":{"limit":10,"remaining":10,"reset":1760533260}}}`)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.APIURL = server.URL
			cfg.CacheDir = t.TempDir()
			cfg.Token = tc.token
			cfg.NoCache = tc.noCache
			gateway, err := NewGitHubGateway(cfg, log.New(io.Discard))
			require.NoError(t, err)

			for i := 0; i < 2; i++ {
				_, err := gateway.FetchRateLimit(context.Background())
				require.NoError(t, err)
			}
			assert.Equal(t, tc.expectedHits, hits.Load())
		})
	}
}

func TestNewGitHubGateway_SecondaryLimitIsNotRetried(t *testing.T) {
	testCases := []struct {
		name  string
		reset time.Time
	}{
		{name: "reset already passed", reset: time.Now().Add(-time.Second)},
		{name: "reset in the future", reset: time.Now().Add(time.Minute)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var hits atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if hits.Add(1) > 1 {
					fmt.Fprint(w, `[]`)
					return
				}
				w.Header().Set("X-RateLimit-Remaining", "5")
				w.Header().Set("X-RateLimit-Reset", fmt.Sprint(tc.reset.Unix()))
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprint(w, `{"message":"You have exceeded a secondary rate limit","documentation_url":"https://docs.github.com/rest/overview/rate-limits-for-the-rest-api#about-secondary-rate-limits"}`)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.APIURL = server.URL
			cfg.NoCache = true
			gateway, err := NewGitHubGateway(cfg, log.New(io.Discard))
			require.NoError(t, err)

			_, err = gateway.FetchOpenIssues(context.Background(), "octo", "alpha")

			var quotaErr *QuotaExceededError
			require.ErrorAs(t, err, &quotaErr)
			assert.Equal(t, int32(1), hits.Load())
		})
	}
}

func TestGitHubGateway_Cutoff(t *testing.T) {
	gateway := &GitHubGateway{window: 7, now: func() time.Time { return fixedNow }}
	assert.Equal(t, time.Date(2026, 10, 8, 0, 0, 0, 0, time.UTC), gateway.Cutoff())

	gateway.window = 0
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), gateway.Cutoff())
}
