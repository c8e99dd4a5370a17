// Package commands implements the jdy command line interface.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/Sternrassler/jdy-client/pkg/client"
	"github.com/Sternrassler/jdy-client/pkg/logging"
	"github.com/Sternrassler/jdy-client/pkg/metrics"
)

// Configuration keys. Each is also a persistent flag and a JDY_ variable
// (for example JDY_API_KEY).
const (
	keyConfig      = "config"
	keyAppID       = "app-id"
	keyEntryID     = "entry-id"
	keyAPIKey      = "api-key"
	keyBaseURL     = "base-url"
	keyOutput      = "output"
	keyLogLevel    = "log-level"
	keyMetricsAddr = "metrics-addr"
	keyNoRetry     = "no-retry"
	keyRetryDelay  = "retry-delay"
)

// BuildInfo is the version information printed by the version command.
type BuildInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"built" yaml:"built"`
}

// app carries the state shared by all commands of one invocation.
type app struct {
	v       *viper.Viper
	logger  zerolog.Logger
	metrics *http.Server
}

// NewRootCommand builds the jdy command tree. Every call uses its own
// configuration, so trees can be executed side by side in tests.
func NewRootCommand(info BuildInfo) *cobra.Command {
	a := &app{v: viper.New(), logger: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "jdy",
		Short: "Jiandaoyun form data CLI",
		Long: `A command-line interface for the Jiandaoyun form data API.

Reads widgets and records of one entry, creates, updates and deletes
records, and mirrors the full record set into Redis or NATS.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.shutdown()
		},
	}

	flags := root.PersistentFlags()
	flags.StringP(keyConfig, "c", "", "config file (default is $HOME/.jdy/config.yml)")
	flags.String(keyAppID, "", "application id")
	flags.String(keyEntryID, "", "entry (form) id")
	flags.String(keyAPIKey, "", "API key")
	flags.String(keyBaseURL, client.DefaultBaseURL, "service base URL")
	flags.StringP(keyOutput, "o", formatJSON, "output format (json, yaml, table)")
	flags.String(keyLogLevel, "info", "log level (trace, debug, info, warn, error, disabled)")
	flags.String(keyMetricsAddr, "", "serve Prometheus metrics on this address (for example :9090)")
	flags.Bool(keyNoRetry, false, "fail on rate limiting instead of waiting and retrying")
	flags.Duration(keyRetryDelay, 0, "wait between rate limited attempts (default 5s)")
	_ = a.v.BindPFlags(flags)

	root.AddCommand(
		newVersionCommand(a, info),
		newWidgetsCommand(a),
		newDataCommand(a),
		newAllCommand(a),
		newGetCommand(a),
		newCreateCommand(a),
		newUpdateCommand(a),
		newDeleteCommand(a),
		newDemoCommand(a),
		newSyncCommand(a),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := a.readConfig(); err != nil {
		return err
	}

	a.logger = a.setupLogging(cmd.ErrOrStderr())

	if addr := a.v.GetString(keyMetricsAddr); addr != "" {
		a.metrics = metrics.NewServer(addr)
		go func() {
			if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
			}
		}()
		a.logger.Info().Str("addr", addr).Str("path", metrics.Path).Msg("Serving metrics")
	}
	return nil
}

func (a *app) readConfig() error {
	a.v.SetEnvPrefix("JDY")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if cfgFile := a.v.GetString(keyConfig); cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	a.v.AddConfigPath(filepath.Join(home, ".jdy"))
	a.v.SetConfigType("yml")
	a.v.SetConfigName("config")

	// The default config file is optional.
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func (a *app) setupLogging(w io.Writer) zerolog.Logger {
	format := logging.FormatJSON
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		format = logging.FormatConsole
	}
	return logging.Setup(logging.Config{
		Level:  a.v.GetString(keyLogLevel),
		Format: format,
		Output: w,
	}).With().Str("component", "jdy").Logger()
}

func (a *app) shutdown() error {
	if a.metrics == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return a.metrics.Shutdown(ctx)
}

// newClient builds a client from the resolved configuration.
func (a *app) newClient() (*client.Client, error) {
	cfg := client.DefaultConfig(
		a.v.GetString(keyAppID),
		a.v.GetString(keyEntryID),
		a.v.GetString(keyAPIKey),
	)
	if baseURL := a.v.GetString(keyBaseURL); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.DisableRateLimitRetry = a.v.GetBool(keyNoRetry)
	cfg.RetryDelay = a.v.GetDuration(keyRetryDelay)

	logger := a.logger
	cfg.Logger = &logger

	return client.New(cfg)
}
