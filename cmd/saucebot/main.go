package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/SauceBot/internal/bot"
	"github.com/IshaanNene/SauceBot/internal/browser"
	"github.com/IshaanNene/SauceBot/internal/config"
	"github.com/IshaanNene/SauceBot/internal/logging"
	"github.com/IshaanNene/SauceBot/internal/observability"
)

// cliFlags holds the command-line values. Only flags the user actually set
// override the loaded configuration.
type cliFlags struct {
	cfgFile     string
	verbose     bool
	usernames   []string
	password    string
	proxy       string
	headless    bool
	screenshot  bool
	timeout     float64
	metricsPort int
}

func main() {
	if err := newRootCmd(&cliFlags{}).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(f *cliFlags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "saucebot [--usernames name...]",
		Short: "SauceBot: human-like browsing sessions on saucedemo.com",
		Long: `SauceBot drives a real Chromium through the saucedemo.com shop for each
account in turn: login, sorting, cart, checkout and logout, with randomized
pauses and pointer movement between actions.

Every run writes a session log that is folded into logs/saucedemobot.log.`,
		Args:          usernameArgs,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd, f, args)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&f.cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "enable debug logging")

	flags := rootCmd.Flags()
	flags.StringSliceVar(&f.usernames, "usernames", nil, "one or more logins (default: every demo account)")
	flags.StringVar(&f.password, "password", "secret_sauce", "account password")
	flags.StringVar(&f.proxy, "proxy", "", "proxy server, http://user:pass@ip:port or ip:port")
	flags.BoolVar(&f.headless, "headless", false, "run without a visible browser window")
	flags.BoolVar(&f.screenshot, "screenshot", false, "save screenshots on failures and after each order")
	flags.Float64Var(&f.timeout, "timeout", 10, "element wait timeout in seconds")
	flags.IntVar(&f.metricsPort, "metrics-port", 0, "serve Prometheus metrics on this port (0 = disabled)")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd(f))

	return rootCmd
}

// runBot executes the bot over every configured account.
func runBot(cmd *cobra.Command, f *cliFlags, args []string) error {
	cfg, err := loadConfig(cmd, f, args)
	if err != nil {
		return err
	}

	sess, err := setupSession(cfg, f.verbose)
	if err != nil {
		return fmt.Errorf("create session log: %w", err)
	}
	defer sess.Close()

	logger := sess.Slog()
	logger.Info("starting run",
		"accounts", cfg.Accounts.Usernames,
		"headless", cfg.Browser.Headless,
		"proxy", cfg.Browser.Proxy != "",
		"timeout", cfg.EffectiveTimeout(),
	)

	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = metrics.Shutdown(ctx)
		}()
	}

	// Handle graceful shutdown, including while the browser downloads or starts
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driver, err := browser.Launch(browser.OptionsFromConfig(cfg), logger)
	if err != nil {
		sess.Error("failed to launch the browser: ", err)
		return fmt.Errorf("launch browser: %w", err)
	}
	defer driver.Close()

	if err := ctx.Err(); err != nil {
		sess.Warning("interrupted before the run started")
		return nil
	}

	ctl := browser.NewController(driver, logger)
	results := bot.New(cfg, ctl, sess, bot.WithMetrics(metrics)).Run(ctx)

	printSummary(results)
	return nil
}

// loadConfig loads the file/env configuration and applies the flags the
// user set on top of it.
func loadConfig(cmd *cobra.Command, f *cliFlags, args []string) (*config.Config, error) {
	cfg, err := config.Load(f.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	applyCLIOverrides(cmd, f, args, cfg)

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cmd *cobra.Command, f *cliFlags, args []string, cfg *config.Config) {
	changed := cmd.Flags().Changed

	// --usernames a b c leaves b and c as positional arguments
	if changed("usernames") {
		cfg.Accounts.Usernames = append(append([]string(nil), f.usernames...), args...)
	}
	if changed("password") {
		cfg.Accounts.Password = f.password
	}
	if changed("proxy") {
		cfg.Browser.Proxy = f.proxy
	}
	if changed("headless") {
		cfg.Browser.Headless = f.headless
	}
	if changed("screenshot") {
		cfg.Output.Screenshots = f.screenshot
	}
	if changed("timeout") {
		cfg.Browser.Timeout = time.Duration(f.timeout * float64(time.Second))
	}
	if changed("metrics-port") && f.metricsPort > 0 {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Port = f.metricsPort
	}
	if f.verbose {
		cfg.Logging.Level = "debug"
	}
}

// usernameArgs accepts positional arguments only as the tail of --usernames.
func usernameArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 && !cmd.Flags().Changed("usernames") {
		return fmt.Errorf("unexpected arguments %v: list accounts with --usernames", args)
	}
	return nil
}

// setupSession opens the run's session log.
func setupSession(cfg *config.Config, verbose bool) (*logging.Session, error) {
	level := parseLevel(cfg.Logging.Level)
	if verbose {
		level = slog.LevelDebug
	}
	return logging.NewSession(cfg.Output.LogDir, bot.Name,
		logging.WithLevel(level),
		logging.WithMaxSize(cfg.Output.MaxLogSize),
	)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printSummary(results []bot.AccountResult) {
	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	fmt.Printf("\n✅ Run complete: %d accounts, %d with failures\n", len(results), failed)
	for _, r := range results {
		status := "ok"
		switch {
		case !r.LoggedIn:
			status = "login failed"
		case r.Failed():
			var steps []string
			for _, s := range r.Steps {
				if s.Outcome != bot.OutcomeOK {
					steps = append(steps, s.Step+"="+string(s.Outcome))
				}
			}
			status = strings.Join(steps, ", ")
		}
		fmt.Printf("   %-24s %s\n", r.Account, status)
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("SauceBot %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd(f *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.cfgFile)
			if err != nil {
				return err
			}
			out, err := config.Dump(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
