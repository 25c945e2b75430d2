// Package domain contains the core data structures and domain logic for the application.
package domain

import "time"

// Repository is a snapshot of a single search result.
type Repository struct {
	Owner     string
	Name      string
	Stars     int
	CreatedAt time.Time
	HTMLURL   string
}

// FullName returns "owner/name".
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

// Issue is an entry of a repository's issue list.
// The issues endpoint returns pull requests too; IsPullRequest marks them.
type Issue struct {
	URL           string
	HTMLURL       string
	IsPullRequest bool
}

// Link returns the browser URL of the issue, falling back to the API URL.
func (i Issue) Link() string {
	if i.HTMLURL != "" {
		return i.HTMLURL
	}
	return i.URL
}

// EnrichedRepository pairs a repository with the links of its open issues.
// It is the core domain entity of this application.
type EnrichedRepository struct {
	Repository
	IssueURLs []string
}

// OpenIssues returns the number of open issues, pull requests excluded.
func (e EnrichedRepository) OpenIssues() int {
	return len(e.IssueURLs)
}

// Summary holds aggregate figures over a trending report.
type Summary struct {
	Repositories int
	TotalIssues  int
	MeanStars    float64
	MedianStars  float64
	MeanIssues   float64
}
