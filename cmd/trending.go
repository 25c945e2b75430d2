package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-trending/internal/domain"
	"github.com/naka-gawa/github-trending/internal/gateway"
	"github.com/naka-gawa/github-trending/internal/usecase"
)

func (a *app) trendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trending",
		Short: "Lists the most starred new repositories with their open issues",
		Long: `Prints the API quota, then searches for the repositories created within --days days
with the most stars, keeps the top --top of them and lists each with its open issues.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTrending(cmd.Context())
		},
	}
}

func (a *app) quotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Prints the current GitHub API request quota",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reporter, err := a.newReporter()
			if err != nil {
				return err
			}
			return a.showRateLimit(cmd.Context(), reporter)
		},
	}
}

// runTrending prints the quota, then the enriched report. When the quota
// runs out midway the quota is printed again and nothing else.
func (a *app) runTrending(ctx context.Context) error {
	reporter, err := a.newReporter()
	if err != nil {
		return err
	}

	if err := a.showRateLimit(ctx, reporter); err != nil {
		return err
	}

	a.console.Loading(a.cfg.TopCount, a.cfg.Window)
	enriched, err := reporter.Trending(ctx)
	var quotaErr *gateway.QuotaExceededError
	if errors.As(err, &quotaErr) {
		a.logger.Debug("quota exceeded", "reset", quotaErr.Reset, "err", err)
		a.console.QuotaExceeded()
		if err := a.showRateLimit(ctx, reporter); err != nil {
			return err
		}
		return errReported
	}
	if err != nil {
		a.logger.Debug("trending report failed", "err", err)
		a.console.Error(err)
		return errReported
	}

	a.console.Repositories(enriched)
	a.console.Summary(usecase.Summarize(enriched))
	return nil
}

func (a *app) showRateLimit(ctx context.Context, reporter *usecase.Reporter) error {
	status, err := reporter.RateLimit(ctx)
	if err != nil {
		a.logger.Debug("rate limit check failed", "err", err)
		a.console.Error(err)
		return errReported
	}
	a.console.RateLimit(status)
	if q, ok := status.Quota(domain.CategorySearch); ok && q.Remaining == 0 {
		a.logger.Warn("search quota already exhausted", "reset", q.Reset)
	}
	return nil
}
