package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"golang.org/x/oauth2"

	"github.com/naka-gawa/github-trending/internal/config"
)

// newHTTPClient builds the single HTTP client shared by every call:
// logging -> oauth2 (when a token is set) -> disk cache -> single attempt ->
// secondary limit guard -> network.
func newHTTPClient(cfg config.Config, logger *log.Logger) (*http.Client, error) {
	// A secondary limit is reported, never slept on: a zero single sleep limit
	// makes the waiter hand the 403 back to go-github instead of retrying.
	// The waiter still retries a limit whose reset already passed, so sendOnce
	// below it refuses any second send of the same call.
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(&sendOnce{base: http.DefaultTransport},
		github_ratelimit.WithSingleSleepLimit(0, func(cbContext *github_ratelimit.CallbackContext) {
			fields := []any{}
			if cbContext.Request != nil {
				fields = append(fields, "path", cbContext.Request.URL.Path)
			}
			if cbContext.SleepUntil != nil {
				fields = append(fields, "until", cbContext.SleepUntil.Format(time.TimeOnly))
			}
			logger.Warn("secondary rate limit hit", fields...)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}

	var rt http.RoundTripper = &noResend{base: rateLimitWaiter, logger: logger}
	if !cfg.NoCache {
		rt = &httpcache.Transport{
			Transport:           rt,
			Cache:               diskcache.New(cfg.CacheDir),
			MarkCachedResponses: true,
		}
	}
	if cfg.Token != "" {
		rt = &oauth2.Transport{
			Base:   rt,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}),
		}
	} else {
		logger.Debug("no token configured, using anonymous requests")
	}

	return &http.Client{
		Transport:     &loggingTransport{base: rt, logger: logger},
		Timeout:       cfg.Timeout,
		CheckRedirect: checkRedirect,
	}, nil
}

// maxRedirects matches the net/http default.
const maxRedirects = 10

func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errTooManyRedirects
	}
	return nil
}

type loggingTransport struct {
	base   http.RoundTripper
	logger *log.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Debug("request failed", "method", req.Method, "path", req.URL.Path, "err", err)
		return nil, err
	}
	t.logger.Debug("request done",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"remaining", resp.Header.Get(headerRateRemaining),
		"cached", resp.Header.Get(httpcache.XFromCache) != "",
		"took", time.Since(start).Round(time.Millisecond),
	)
	return resp, nil
}

// errResent stops a request from reaching the network a second time.
var errResent = errors.New("request already sent")

type sentKey struct{}

type sent struct {
	resp *http.Response
}

// noResend gives every call a single attempt. When the transport below it
// tries to send the request again, the first response is returned instead.
type noResend struct {
	base   http.RoundTripper
	logger *log.Logger
}

func (t *noResend) RoundTrip(req *http.Request) (*http.Response, error) {
	s := &sent{}
	resp, err := t.base.RoundTrip(req.WithContext(context.WithValue(req.Context(), sentKey{}, s)))
	if errors.Is(err, errResent) && s.resp != nil {
		t.logger.Warn("secondary rate limit hit, not retrying", "path", req.URL.Path, "status", s.resp.StatusCode)
		return s.resp, nil
	}
	return resp, err
}

// sendOnce sends a request at most once per noResend call.
type sendOnce struct {
	base http.RoundTripper
}

func (t *sendOnce) RoundTrip(req *http.Request) (*http.Response, error) {
	s, _ := req.Context().Value(sentKey{}).(*sent)
	if s != nil && s.resp != nil {
		return nil, errResent
	}
	resp, err := t.base.RoundTrip(req)
	if s != nil && err == nil {
		s.resp = resp
	}
	return resp, err
}
