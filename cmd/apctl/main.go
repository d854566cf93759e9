// Package main provides the apctl CLI: it resolves the application URLs and
// drives the access points declared in a config file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vebgen/accesskit/internal/config"
	"github.com/vebgen/accesskit/internal/endpoint"
	"github.com/vebgen/accesskit/internal/metrics"
	"github.com/vebgen/accesskit/internal/transport"
	"github.com/vebgen/accesskit/pkg/apierr"
	"github.com/vebgen/accesskit/pkg/applog"
	"github.com/vebgen/accesskit/pkg/appurls"
)

var (
	// configFile is set by the --config flag.
	configFile string

	// logLevel is set by the --log-level flag and overrides log.level.
	logLevel string

	// app is initialized by PersistentPreRunE for every command.
	app *env
)

// env is what every command works with.
type env struct {
	cfg      *config.Config
	urls     appurls.URLs
	session  endpoint.Session
	registry *endpoint.Registry
	metrics  *metrics.Collector
	log      *slog.Logger
	level    *slog.LevelVar
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "apctl",
	Short: "apctl calls the access points of a web application API",
	Long: `apctl resolves the webapp, API and auth URLs from the config file and the
REACT_APP_* / NX_* environment variables, and calls the endpoints the config
file declares.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: initEnv,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "apctl.yaml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (default: log.level from the config file)")

	rootCmd.AddCommand(urlsCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(serveCmd)
}

// initEnv loads the config and builds the shared HTTP client and registry.
func initEnv(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := new(slog.LevelVar)
	if err := setLevel(level, cfg.Log.Level); err != nil {
		return err
	}
	log := slog.New(applog.NewHandler(os.Stderr, level, cfg.Log.Format != "text"))
	slog.SetDefault(log)

	urls, err := appurls.Resolve(cfg.URLs)
	if err != nil {
		return err
	}

	client, err := transport.New(cfg.HTTP)
	if err != nil {
		return fmt.Errorf("http client: %w", err)
	}

	m := metrics.New()
	app = &env{
		cfg:      cfg,
		urls:     urls,
		session:  endpoint.Session{Authenticated: cfg.HTTP.Auth.Credentialed()},
		registry: endpoint.NewRegistry(cfg.Endpoints, urls, client, log, m),
		metrics:  m,
		log:      log,
		level:    level,
	}

	ctx := applog.WithLogger(cmd.Context(), log)
	cmd.SetContext(appurls.WithURLs(ctx, urls))

	log.Debug("apctl: config loaded",
		"config", configFile,
		"endpoints", len(cfg.Endpoints),
		"api_root", urls.APIRoot(),
		"auth_mode", cfg.HTTP.Auth.Mode,
	)
	return nil
}

// setLevel applies the --log-level flag, or fallback when the flag is unset.
func setLevel(v *slog.LevelVar, fallback string) error {
	s := logLevel
	if s == "" {
		s = fallback
	}
	l, err := applog.ParseLevel(s)
	if err != nil {
		return err
	}
	v.Set(l)
	return nil
}

// printError reports err on stderr; classified API errors show their code.
func printError(err error) {
	red := color.New(color.FgRed, color.Bold)
	if e, ok := apierr.As(err); ok {
		red.Fprintf(os.Stderr, "%s", e.Code)
		if e.Status != 0 {
			fmt.Fprintf(os.Stderr, " (HTTP %d)", e.Status)
		}
		fmt.Fprintf(os.Stderr, ": %s\n", e.Message)
		return
	}
	red.Fprint(os.Stderr, "error")
	fmt.Fprintf(os.Stderr, ": %v\n", err)
}
