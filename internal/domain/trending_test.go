package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitStatus_Quota(t *testing.T) {
	status := RateLimitStatus{Quotas: []Quota{
		{Category: CategorySearch, Limit: 10, Remaining: 0},
		{Category: CategoryCore, Limit: 60, Remaining: 42},
	}}

	q, ok := status.Quota(CategoryCore)
	assert.True(t, ok)
	assert.Equal(t, 42, q.Remaining)

	_, ok = status.Quota(CategoryGraphQL)
	assert.False(t, ok)
}

func TestIssue_Link(t *testing.T) {
	assert.Equal(t, "web", Issue{URL: "api", HTMLURL: "web"}.Link())
	assert.Equal(t, "api", Issue{URL: "api"}.Link())
}

func TestEnrichedRepository(t *testing.T) {
	e := EnrichedRepository{
		Repository: Repository{Owner: "octo", Name: "alpha"},
		IssueURLs:  []string{"a", "b"},
	}
	assert.Equal(t, "octo/alpha", e.FullName())
	assert.Equal(t, 2, e.OpenIssues())
}
