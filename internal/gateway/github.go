// Package gateway provides a gateway to the GitHub REST API,
// abstracting away the underlying client, transport and error mapping.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-github/v62/github"

	"github.com/naka-gawa/github-trending/internal/config"
	"github.com/naka-gawa/github-trending/internal/domain"
)

const (
	searchDateLayout = "2006-01-02"
	maxPerPage       = 100
)

// Fetcher defines the behavior of a gateway for fetching information from GitHub.
type Fetcher interface {
	FetchRateLimit(ctx context.Context) (domain.RateLimitStatus, error)
	FetchTrending(ctx context.Context, n int) ([]domain.Repository, error)
	FetchOpenIssues(ctx context.Context, owner, name string) ([]domain.Issue, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient *github.Client
	window     int
	now        func() time.Time
	logger     *log.Logger
}

var _ Fetcher = (*GitHubGateway)(nil)

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(cfg config.Config, logger *log.Logger) (*GitHubGateway, error) {
	httpClient, err := newHTTPClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	baseURL, err := cfg.BaseURL()
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	restClient := github.NewClient(httpClient)
	restClient.BaseURL = baseURL
	return &GitHubGateway{
		restClient: restClient,
		window:     cfg.Window,
		now:        time.Now,
		logger:     logger,
	}, nil
}

// FetchRateLimit reads the caller's current request quota.
func (g *GitHubGateway) FetchRateLimit(ctx context.Context) (domain.RateLimitStatus, error) {
	g.logger.Debug("fetching rate limit status")
	limits, resp, err := g.restClient.RateLimit.Get(ctx)
	if err := mapError(resp, err); err != nil {
		return domain.RateLimitStatus{}, fmt.Errorf("failed to fetch rate limit: %w", err)
	}

	var status domain.RateLimitStatus
	add := func(category string, rate *github.Rate) {
		if rate == nil {
			return
		}
		status.Quotas = append(status.Quotas, domain.Quota{
			Category:  category,
			Limit:     rate.Limit,
			Remaining: rate.Remaining,
			Reset:     rate.Reset.Time,
		})
	}
	add(domain.CategorySearch, limits.Search)
	add(domain.CategoryGraphQL, limits.GraphQL)
	add(domain.CategoryCore, limits.Core)
	return status, nil
}

// FetchTrending returns at most n repositories created after the cutoff
// date, most starred first.
func (g *GitHubGateway) FetchTrending(ctx context.Context, n int) ([]domain.Repository, error) {
	if n <= 0 {
		return []domain.Repository{}, nil
	}
	cutoff := g.Cutoff()
	query := fmt.Sprintf("created:>%s", cutoff.Format(searchDateLayout))
	g.logger.Debug("searching trending repositories", "query", query, "top", n)

	opts := &github.SearchOptions{
		Sort:        "stars",
		Order:       "desc",
		ListOptions: github.ListOptions{PerPage: min(n, maxPerPage)},
	}
	result, resp, err := g.restClient.Search.Repositories(ctx, query, opts)
	if err := guard(resp, err); err != nil {
		return nil, fmt.Errorf("failed to search repositories: %w", err)
	}

	repos := make([]domain.Repository, 0, n)
	for _, r := range result.Repositories {
		if len(repos) == n {
			break
		}
		created := r.GetCreatedAt().Time
		if created.Before(cutoff) {
			g.logger.Debug("skipping repository created before cutoff", "repo", r.GetFullName(), "created", created)
			continue
		}
		repos = append(repos, domain.Repository{
			Owner:     r.GetOwner().GetLogin(),
			Name:      r.GetName(),
			Stars:     r.GetStargazersCount(),
			CreatedAt: created,
			HTMLURL:   r.GetHTMLURL(),
		})
	}
	g.logger.Debug("completed repository search", "found", len(repos))
	return repos, nil
}

// FetchOpenIssues returns the open issues of a repository in API order,
// pull requests excluded.
func (g *GitHubGateway) FetchOpenIssues(ctx context.Context, owner, name string) ([]domain.Issue, error) {
	g.logger.Debug("fetching open issues", "repo", owner+"/"+name)
	opts := &github.IssueListByRepoOptions{State: "open"}
	issues, resp, err := g.restClient.Issues.ListByRepo(ctx, owner, name, opts)
	if err := guard(resp, err); err != nil {
		return nil, fmt.Errorf("failed to list open issues of %s/%s: %w", owner, name, err)
	}

	all := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		all = append(all, domain.Issue{
			URL:           issue.GetURL(),
			HTMLURL:       issue.GetHTMLURL(),
			IsPullRequest: issue.IsPullRequest(),
		})
	}
	return withoutPullRequests(all), nil
}

// Cutoff is midnight UTC of the day Window days before today.
func (g *GitHubGateway) Cutoff() time.Time {
	y, m, d := g.now().UTC().Date()
	return time.Date(y, m, d-g.window, 0, 0, 0, 0, time.UTC)
}

func withoutPullRequests(issues []domain.Issue) []domain.Issue {
	filtered := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		if !issue.IsPullRequest {
			filtered = append(filtered, issue)
		}
	}
	return filtered
}
