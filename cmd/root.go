package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/tgtg/config"
	"github.com/s0up4200/tgtg/filter"
	"github.com/s0up4200/tgtg/session"
	"github.com/s0up4200/tgtg/tgtg"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	client  *tgtg.Client
	store   session.Store

	// Command flags
	filterExpr string
	preset     string
	jsonOutput bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tgtg",
	Short: "Browse and reserve Too Good To Go surprise bags from the terminal",
	Long: `tgtg is a CLI for the Too Good To Go app API. Log in once with your
email address, then list nearby or favorite bags, filter them with
expressions, and reserve or cancel orders.`,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: closeSessionStore,
	SilenceUsage:       true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

// initializeApp loads the configuration, the stored session and the client
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging)

	store, err = openSessionStore(cmd.Context(), cfg.Session)
	if err != nil {
		return err
	}

	opts := []tgtg.Option{
		tgtg.WithBaseURL(cfg.API.BaseURL),
		tgtg.WithAPKVersion(cfg.API.APKVersion),
		tgtg.WithLanguage(cfg.API.Language),
		tgtg.WithTimeout(cfg.API.Timeout),
		tgtg.WithDeviceType(cfg.API.DeviceType),
		tgtg.WithAccessTokenLifetime(cfg.API.AccessTokenLifetime),
		tgtg.WithPolling(cfg.Polling.MaxAttempts, cfg.Polling.Interval),
		tgtg.WithSessionObserver(session.NewRecorder(store, logger)),
	}
	if cfg.API.UserAgent != "" {
		opts = append(opts, tgtg.WithUserAgent(cfg.API.UserAgent))
	}

	saved, err := store.Load(cmd.Context())
	switch {
	case errors.Is(err, session.ErrNotFound):
		logger.Debug().Msg("No saved session")
	case err != nil:
		logger.Warn().Err(err).Msg("Ignoring unreadable session")
	default:
		opts = append(opts, tgtg.WithSession(saved))
	}

	client, err = tgtg.NewClient(cfg.Account.Email, logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to create tgtg client: %w", err)
	}

	return nil
}

func openSessionStore(ctx context.Context, cfg config.SessionConfig) (session.Store, error) {
	switch cfg.Backend {
	case "redis":
		s, err := session.NewRedisStore(ctx, session.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open session store: %w", err)
		}
		return s, nil
	default:
		return session.NewFileStore(cfg.Path), nil
	}
}

func closeSessionStore(cmd *cobra.Command, args []string) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !isatty.IsTerminal(os.Stderr.Fd()),
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// applyFilter filters items by, in priority order, the --filter flag, the
// --preset flag or the configured default expression
func applyFilter(ctx context.Context, items []tgtg.PickupItem) ([]tgtg.PickupItem, error) {
	m := filter.NewManager()

	presets := make(map[string]string, len(cfg.Filter.Presets))
	for name, p := range cfg.Filter.Presets {
		presets[name] = p.Expression
	}
	if err := m.RegisterFilters(presets); err != nil {
		return nil, fmt.Errorf("invalid filter preset: %w", err)
	}

	if filterExpr == "" && preset != "" {
		return m.ApplyPreset(ctx, preset, items)
	}

	expression := filterExpr
	if expression == "" {
		expression = cfg.Filter.DefaultExpression
	}
	if expression == "" {
		return items, nil
	}

	f, err := m.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid filter expression: %w", err)
	}
	logger.Debug().Str("filter", f.Expression()).Msg("Filtering items")

	return m.Apply(ctx, f, items)
}

// skipInit replaces the root hooks for commands that need no account
func skipInit(cmd *cobra.Command, args []string) error {
	return nil
}
