// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/montanaflynn/stats"

	"github.com/naka-gawa/github-trending/internal/config"
	"github.com/naka-gawa/github-trending/internal/domain"
	"github.com/naka-gawa/github-trending/internal/gateway"
)

// Reporter is the use case for building the trending report.
// It orchestrates the fetching and correlating of data.
type Reporter struct {
	fetcher gateway.Fetcher
	cfg     config.Config
	logger  *log.Logger
}

// NewReporter creates a new Reporter instance.
func NewReporter(fetcher gateway.Fetcher, cfg config.Config, logger *log.Logger) *Reporter {
	return &Reporter{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger,
	}
}

// RateLimit returns the current request quota.
func (r *Reporter) RateLimit(ctx context.Context) (domain.RateLimitStatus, error) {
	return r.fetcher.FetchRateLimit(ctx)
}

// Trending fetches the configured number of trending repositories and
// enriches each with its open issues.
func (r *Reporter) Trending(ctx context.Context) ([]domain.EnrichedRepository, error) {
	r.logger.Debug("usecase: fetching trending repositories", "top", r.cfg.TopCount, "window", r.cfg.Window)
	repos, err := r.fetcher.FetchTrending(ctx, r.cfg.TopCount)
	if err != nil {
		return nil, err
	}
	return r.Enrich(ctx, repos)
}

// Enrich pairs every repository with its open issue links, one repository
// after another and in input order. The first failure aborts the whole
// batch and nothing fetched so far is returned.
func (r *Reporter) Enrich(ctx context.Context, repos []domain.Repository) ([]domain.EnrichedRepository, error) {
	enriched := make([]domain.EnrichedRepository, 0, len(repos))
	for i, repo := range repos {
		r.logger.Debug("usecase: enriching repository", "repo", repo.FullName(), "n", i+1, "of", len(repos))
		issues, err := r.fetcher.FetchOpenIssues(ctx, repo.Owner, repo.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to enrich %s: %w", repo.FullName(), err)
		}
		urls := make([]string, 0, len(issues))
		for _, issue := range issues {
			urls = append(urls, issue.Link())
		}
		enriched = append(enriched, domain.EnrichedRepository{Repository: repo, IssueURLs: urls})
	}
	r.logger.Debug("usecase: enrichment complete", "repositories", len(enriched))
	return enriched, nil
}

// Summarize computes aggregate figures over an enriched report.
// An empty report yields a zero Summary.
func Summarize(enriched []domain.EnrichedRepository) domain.Summary {
	summary := domain.Summary{Repositories: len(enriched)}
	if len(enriched) == 0 {
		return summary
	}

	starData := make(stats.Float64Data, 0, len(enriched))
	issueData := make(stats.Float64Data, 0, len(enriched))
	for _, e := range enriched {
		starData = append(starData, float64(e.Stars))
		issueData = append(issueData, float64(e.OpenIssues()))
		summary.TotalIssues += e.OpenIssues()
	}

	// Errors only occur on empty input, which is ruled out above.
	summary.MeanStars, _ = stats.Mean(starData)
	summary.MedianStars, _ = stats.Median(starData)
	summary.MeanIssues, _ = stats.Mean(issueData)
	return summary
}
