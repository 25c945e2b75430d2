package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
)

const (
	headerRateRemaining = "X-RateLimit-Remaining"
	headerRateReset     = "X-RateLimit-Reset"
)

// errTooManyRedirects is returned by the client's CheckRedirect.
var errTooManyRedirects = errors.New("too many redirects")

// TransportKind tells transport failures apart.
type TransportKind int

const (
	KindConnection TransportKind = iota
	KindTimeout
	KindTooManyRedirects
	KindMalformed
)

func (k TransportKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindTooManyRedirects:
		return "too many redirects"
	case KindMalformed:
		return "malformed response"
	default:
		return "connection error"
	}
}

// QuotaExceededError reports that the API request quota is used up.
// Header holds the headers of the response that signalled it, if any.
type QuotaExceededError struct {
	Header http.Header
	Reset  time.Time
	err    error
}

func (e *QuotaExceededError) Error() string {
	if e.Reset.IsZero() {
		return "API rate limit exceeded"
	}
	return fmt.Sprintf("API rate limit exceeded, resets at %s", e.Reset.Format(time.RFC3339))
}

func (e *QuotaExceededError) Unwrap() error { return e.err }

// TransportError is a failure to get any HTTP response, or a usable one.
type TransportError struct {
	Kind TransportKind
	Err  error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %v", e.Kind, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// StatusError is a non-success HTTP status returned by the API.
type StatusError struct {
	Code    int
	Reason  string
	Message string
	Err     error
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %d: %s", e.Reason, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %d", e.Reason, e.Code)
}

func (e *StatusError) Unwrap() error { return e.Err }

// guard checks the quota header of a search or issues response before the
// body is trusted, then maps err like mapError.
func guard(resp *github.Response, err error) error {
	if resp != nil && resp.Response != nil && quotaExhausted(resp.Header) {
		return &QuotaExceededError{
			Header: resp.Header.Clone(),
			Reset:  parseReset(resp.Header),
			err:    err,
		}
	}
	return mapError(resp, err)
}

// mapError turns the error of a go-github call into a QuotaExceededError,
// a StatusError or a TransportError. A nil err maps to nil.
func mapError(resp *github.Response, err error) error {
	if err == nil {
		return nil
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		q := &QuotaExceededError{Reset: rateErr.Rate.Reset.Time, err: err}
		if rateErr.Response != nil {
			q.Header = rateErr.Response.Header.Clone()
		}
		return q
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		q := &QuotaExceededError{err: err}
		if abuseErr.RetryAfter != nil {
			q.Reset = time.Now().Add(*abuseErr.RetryAfter)
		}
		if abuseErr.Response != nil {
			q.Header = abuseErr.Response.Header.Clone()
		}
		return q
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		code := respErr.Response.StatusCode
		return &StatusError{Code: code, Reason: http.StatusText(code), Message: respErr.Message, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Kind: KindTimeout, Err: err}
	}
	if errors.Is(err, errTooManyRedirects) {
		return &TransportError{Kind: KindTooManyRedirects, Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return &TransportError{Kind: KindTimeout, Err: err}
		}
		return &TransportError{Kind: KindConnection, Err: err}
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &TransportError{Kind: KindMalformed, Err: err}
	}
	if resp != nil && resp.Response != nil && resp.StatusCode >= http.StatusBadRequest {
		return &StatusError{Code: resp.StatusCode, Reason: http.StatusText(resp.StatusCode), Err: err}
	}
	return &TransportError{Kind: KindConnection, Err: err}
}

func quotaExhausted(h http.Header) bool {
	v := strings.TrimSpace(h.Get(headerRateRemaining))
	if v == "" {
		return false
	}
	n, err := strconv.Atoi(v)
	return err == nil && n == 0
}

func parseReset(h http.Header) time.Time {
	sec, err := strconv.ParseInt(strings.TrimSpace(h.Get(headerRateReset)), 10, 64)
	if err != nil || sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
