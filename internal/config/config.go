// Package config holds the run-time settings of the trending report.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultWindow      = 7
	DefaultTopCount    = 20
	DefaultCacheDir    = ".webcache"
	DefaultAPIURL      = "https://api.github.com/"
	DefaultSecretsFile = ".secrets"
	DefaultTimeout     = 30 * time.Second
)

// Config is built once at startup and handed to the gateway and the use case.
type Config struct {
	// Window is the number of days a repository may be old to count as trending.
	Window int
	// TopCount is the number of repositories kept from the search.
	TopCount int
	CacheDir string
	NoCache  bool
	APIURL   string
	// Token is optional; an empty token makes anonymous requests.
	Token       string
	SecretsFile string
	Lang        string
	Timeout     time.Duration
}

// Default returns a Config populated with the built-in defaults.
func Default() Config {
	return Config{
		Window:      DefaultWindow,
		TopCount:    DefaultTopCount,
		CacheDir:    DefaultCacheDir,
		APIURL:      DefaultAPIURL,
		SecretsFile: DefaultSecretsFile,
		Timeout:     DefaultTimeout,
	}
}

// LoadEnv loads the secrets file into the process environment, without
// overriding variables that are already set, and then fills Token, APIURL
// and Lang from the environment where they are still empty.
// A missing secrets file is not an error.
func (c *Config) LoadEnv() error {
	if c.Lang == "" {
		c.Lang = langFromEnv()
	}
	if c.SecretsFile != "" {
		if err := godotenv.Load(c.SecretsFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load secrets file %s: %w", c.SecretsFile, err)
		}
	}
	if c.Token == "" {
		c.Token = os.Getenv("GITHUB_TOKEN")
	}
	if v := os.Getenv("GITHUB_API_URL"); v != "" && (c.APIURL == "" || c.APIURL == DefaultAPIURL) {
		c.APIURL = v
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Window < 0 {
		return fmt.Errorf("window must not be negative, got %d", c.Window)
	}
	if c.TopCount < 0 {
		return fmt.Errorf("top count must not be negative, got %d", c.TopCount)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid API URL %q: %w", c.APIURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid API URL %q: scheme must be http or https", c.APIURL)
	}
	return nil
}

// BaseURL returns the API URL with the trailing slash go-github requires.
func (c Config) BaseURL() (*url.URL, error) {
	raw := c.APIURL
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	return url.Parse(raw)
}

// langFromEnv derives a language tag from the POSIX locale variables,
// e.g. "ru_RU.UTF-8" becomes "ru-RU".
func langFromEnv() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		v := os.Getenv(key)
		if v == "" || v == "C" || v == "POSIX" {
			continue
		}
		if i := strings.IndexAny(v, ".@"); i >= 0 {
			v = v[:i]
		}
		return strings.ReplaceAll(v, "_", "-")
	}
	return ""
}
