package domain

import "time"

// Quota categories reported by the rate limit endpoint.
const (
	CategorySearch  = "search"
	CategoryGraphQL = "graphql"
	CategoryCore    = "core"
)

// Quota is the request allowance of one category.
type Quota struct {
	Category  string
	Limit     int
	Remaining int
	Reset     time.Time
}

// RateLimitStatus lists the quotas the API reported, in display order.
type RateLimitStatus struct {
	Quotas []Quota
}

// Quota looks up a category.
func (s RateLimitStatus) Quota(category string) (Quota, bool) {
	for _, q := range s.Quotas {
		if q.Category == category {
			return q, true
		}
	}
	return Quota{}, false
}
