// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-trending/internal/config"
	"github.com/naka-gawa/github-trending/internal/gateway"
	"github.com/naka-gawa/github-trending/internal/presenter"
	"github.com/naka-gawa/github-trending/internal/usecase"
)

// errReported marks a failure whose message was already printed.
var errReported = errors.New("error already reported")

// app carries what every command needs once flags are parsed.
type app struct {
	cfg     config.Config
	verbose bool
	stdout  io.Writer
	stderr  io.Writer
	logger  *log.Logger
	console *presenter.Console
}

// NewRootCmd builds the command tree writing to stdout and stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{cfg: config.Default(), stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "github-trending",
		Short: "Reports trending GitHub repositories and their open issues.",
		Long: `github-trending searches GitHub for the most starred repositories created
within the last days and lists each one with its open issues (pull requests excluded).
Run without a subcommand it behaves like "github-trending trending".`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTrending(cmd.Context())
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose/debug logging")
	flags.IntVarP(&a.cfg.Window, "days", "d", config.DefaultWindow, "Only repositories created within this many days")
	flags.IntVarP(&a.cfg.TopCount, "top", "n", config.DefaultTopCount, "Number of repositories to report")
	flags.StringVar(&a.cfg.APIURL, "api-url", config.DefaultAPIURL, "GitHub REST API base URL (env GITHUB_API_URL)")
	flags.StringVar(&a.cfg.CacheDir, "cache-dir", config.DefaultCacheDir, "Directory of the HTTP response cache")
	flags.BoolVar(&a.cfg.NoCache, "no-cache", false, "Do not use the HTTP response cache")
	flags.StringVar(&a.cfg.SecretsFile, "secrets", config.DefaultSecretsFile, "dotenv file providing GITHUB_TOKEN")
	flags.StringVar(&a.cfg.Lang, "lang", "", "Output language, e.g. en or ru (defaults to LANG)")
	flags.DurationVar(&a.cfg.Timeout, "timeout", config.DefaultTimeout, "Timeout of a single HTTP request")

	rootCmd.AddCommand(a.trendingCmd())
	rootCmd.AddCommand(a.quotaCmd())
	rootCmd.AddCommand(a.cacheCmd())
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). Any failure exits with status 1. Errors cobra
// reports before the console exists, such as unknown flags, are printed as is.
func Execute() {
	if err := NewRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func (a *app) setup() error {
	level := log.WarnLevel
	if a.verbose {
		level = log.DebugLevel
	}
	a.logger = newLogger(a.stderr, level)

	err := a.cfg.LoadEnv()
	a.console = presenter.NewConsole(a.stdout, a.stderr, a.cfg.Lang, nil)
	if err == nil {
		err = a.cfg.Validate()
	}
	if err != nil {
		a.logger.Debug("invalid configuration", "err", err)
		a.console.ConfigError(err)
		return errReported
	}
	a.logger.Debug("configuration loaded",
		"api", a.cfg.APIURL,
		"days", a.cfg.Window,
		"top", a.cfg.TopCount,
		"cache", !a.cfg.NoCache,
		"authenticated", a.cfg.Token != "",
	)
	return nil
}

// newReporter wires the gateway into the use case.
func (a *app) newReporter() (*usecase.Reporter, error) {
	githubGateway, err := gateway.NewGitHubGateway(a.cfg, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
	}
	return usecase.NewReporter(githubGateway, a.cfg, a.logger), nil
}

// newLogger creates a logger with timestamp formatting at the given level.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}
