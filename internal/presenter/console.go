// Package presenter renders the report and its errors as localized console text.
package presenter

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/message"

	"github.com/naka-gawa/github-trending/internal/domain"
	"github.com/naka-gawa/github-trending/internal/gateway"
)

const resetLayout = "15:04:05 02.01.2006"

// Console writes report output to out and error messages to errOut.
type Console struct {
	out    io.Writer
	errOut io.Writer
	p      *message.Printer
	loc    *time.Location

	title lipgloss.Style
	value lipgloss.Style
	link  lipgloss.Style
	warn  lipgloss.Style
}

// NewConsole creates a Console printing in lang, a BCP 47 tag such as "ru"
// or "en-US". Reset times are shown in loc; a nil loc means time.Local.
func NewConsole(out, errOut io.Writer, lang string, loc *time.Location) *Console {
	if loc == nil {
		loc = time.Local
	}
	outRenderer := lipgloss.NewRenderer(out)
	errRenderer := lipgloss.NewRenderer(errOut)
	return &Console{
		out:    out,
		errOut: errOut,
		p:      message.NewPrinter(matchLanguage(lang), message.Catalog(newCatalog())),
		loc:    loc,
		title:  outRenderer.NewStyle().Bold(true).Foreground(lipgloss.Color("36")),
		value:  outRenderer.NewStyle().Foreground(lipgloss.Color("255")),
		link:   outRenderer.NewStyle().Foreground(lipgloss.Color("75")).Underline(true),
		warn:   errRenderer.NewStyle().Foreground(lipgloss.Color("167")),
	}
}

// RateLimit prints remaining/limit and the reset time of every category
// present, search first and core last.
func (c *Console) RateLimit(status domain.RateLimitStatus) {
	for i, q := range status.Quotas {
		if i > 0 {
			c.p.Fprintln(c.out)
		}
		c.p.Fprintln(c.out, c.p.Sprintf(quotaMessage(q.Category), q.Remaining, q.Limit))
		c.p.Fprintln(c.out, c.p.Sprintf(msgResetsAt, q.Reset.In(c.loc).Format(resetLayout)))
	}
}

func quotaMessage(category string) string {
	switch category {
	case domain.CategorySearch:
		return msgSearchQuota
	case domain.CategoryGraphQL:
		return msgGraphQLQuota
	default:
		return msgCoreQuota
	}
}

// Loading announces the search.
func (c *Console) Loading(top, window int) {
	c.p.Fprintln(c.out)
	c.p.Fprintln(c.out, c.p.Sprintf(msgLoading, top, window))
	c.p.Fprintln(c.out, c.p.Sprintf(msgLoadingStars))
}

// Repositories prints each repository in input order with its issue count
// and, when there are any, its issue links.
func (c *Console) Repositories(enriched []domain.EnrichedRepository) {
	if len(enriched) == 0 {
		c.p.Fprintln(c.out)
		c.p.Fprintln(c.out, c.p.Sprintf(msgNoResults))
		return
	}

	labels := []string{
		c.p.Sprintf(msgOwner),
		c.p.Sprintf(msgRepository),
		c.p.Sprintf(msgStars),
		c.p.Sprintf(msgIssues),
	}
	width := 0
	for _, l := range labels {
		width = max(width, runewidth.StringWidth(l))
	}
	width++

	for _, e := range enriched {
		c.p.Fprintln(c.out)
		c.p.Fprintln(c.out, padRight(labels[0], width)+c.title.Render(e.Owner))
		c.p.Fprintln(c.out, padRight(labels[1], width)+c.title.Render(e.Name))
		c.p.Fprintln(c.out, padRight(labels[2], width)+c.value.Render(c.p.Sprintf("%d", e.Stars)))
		c.p.Fprintln(c.out, padRight(labels[3], width)+c.value.Render(c.p.Sprintf("%d", e.OpenIssues())))
		if e.OpenIssues() == 0 {
			continue
		}
		c.p.Fprintln(c.out, c.p.Sprintf(msgIssueLinks))
		for _, u := range e.IssueURLs {
			c.p.Fprintln(c.out, c.link.Render(u))
		}
	}
}

// Summary prints the aggregate figures of the report.
func (c *Console) Summary(s domain.Summary) {
	if s.Repositories == 0 {
		return
	}
	c.p.Fprintln(c.out)
	c.p.Fprintln(c.out, c.p.Sprintf(msgSummary, s.Repositories, s.TotalIssues))
	c.p.Fprintln(c.out, c.p.Sprintf(msgSummaryStats, s.MeanStars, s.MedianStars, s.MeanIssues))
}

// QuotaExceeded announces that the request quota ran out.
func (c *Console) QuotaExceeded() {
	c.p.Fprintln(c.errOut)
	c.p.Fprintln(c.errOut, c.warn.Render(c.p.Sprintf(msgQuotaExceeded)))
}

// CacheEmpty reports that there was no cache to clear.
func (c *Console) CacheEmpty() {
	c.p.Fprintln(c.out, c.p.Sprintf(msgCacheEmpty))
}

// CacheCleared reports how many cache entries were removed from dir.
func (c *Console) CacheCleared(count int, dir string) {
	c.p.Fprintln(c.out, c.p.Sprintf(msgCacheCleared, count, dir))
}

// Error prints a short localized message for err.
func (c *Console) Error(err error) {
	c.p.Fprintln(c.errOut, c.warn.Render(c.describe(err)))
}

// ConfigError prints a localized message for an invalid configuration.
func (c *Console) ConfigError(err error) {
	c.p.Fprintln(c.errOut, c.warn.Render(c.p.Sprintf(msgConfig, err)))
}

func (c *Console) describe(err error) string {
	var quotaErr *gateway.QuotaExceededError
	if errors.As(err, &quotaErr) {
		return c.p.Sprintf(msgQuotaExceeded)
	}
	var statusErr *gateway.StatusError
	if errors.As(err, &statusErr) {
		return c.p.Sprintf(msgStatus, statusErr.Reason, statusErr.Code)
	}
	var transportErr *gateway.TransportError
	if errors.As(err, &transportErr) {
		switch transportErr.Kind {
		case gateway.KindTimeout:
			return c.p.Sprintf(msgTimeout)
		case gateway.KindTooManyRedirects:
			return c.p.Sprintf(msgRedirects)
		case gateway.KindMalformed:
			return c.p.Sprintf(msgMalformed)
		default:
			return c.p.Sprintf(msgConnection)
		}
	}
	return c.p.Sprintf(msgGeneric, err)
}

func padRight(str string, width int) string {
	w := runewidth.StringWidth(str)
	if w < width {
		return str + strings.Repeat(" ", width-w)
	}
	return str
}
