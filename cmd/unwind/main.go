package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mitchellh/go-homedir"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deepnoodle-ai/unwind"
	"github.com/deepnoodle-ai/unwind/config"
	"github.com/deepnoodle-ai/unwind/journal"
	"github.com/deepnoodle-ai/unwind/metrics"
	"github.com/deepnoodle-ai/unwind/shell"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// errCommandFailed makes the process exit non-zero without printing
// anything more; the failure was already reported.
var errCommandFailed = errors.New("command failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()
	if err := newRootCmd(viper.New()).ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errCommandFailed) {
			fatal(err)
		}
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "unwind [flags] [script]",
		Short:         "Command shell with structured error recovery",
		Long:          "Runs commands interactively, from a script or from --command flags. A failing command is reported and abandoned; the shell carries on.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, v, args)
		},
	}
	f := cmd.PersistentFlags()
	f.String("config", "", "Path to a YAML config file")
	f.Int("annotate", 0, "Annotation level (0-2)")
	f.Bool("no-color", false, "Disable colored output")
	f.String("journal", "", "Failure journal: memory:, sqlite:<path> or postgres://...")
	f.String("log-level", "", "Log level (debug, info, warn, error)")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().StringArrayP("command", "c", nil, "Execute a command (may be repeated)")
	cmd.Flags().Bool("batch", false, "Exit after running commands instead of starting a shell")
	_ = v.BindPFlags(f)
	_ = v.BindPFlags(cmd.Flags())

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "unwind %s (commit %s, built %s)\n", version, commit, date)
		},
	})
	return cmd
}

// loadConfig reads the config file and environment, then applies any flags
// given explicitly on the command line.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("annotate") {
		cfg.AnnotationLevel = v.GetInt("annotate")
	}
	if flags.Changed("no-color") {
		cfg.NoColor = v.GetBool("no-color")
	}
	if flags.Changed("journal") {
		cfg.Journal = v.GetString("journal")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = v.GetString("log-level")
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = v.GetString("metrics-addr")
	}
	return cfg, cfg.Validate()
}

func run(cmd *cobra.Command, v *viper.Viper, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}
	if cfg.NoColor {
		color.NoColor = true
	}

	// Read directly from the flag set: viper would split values on commas.
	commands, err := cmd.Flags().GetStringArray("command")
	if err != nil {
		return err
	}
	interactive := len(args) == 0 && len(commands) == 0 && !v.GetBool("batch") && isTerminalIO()

	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if interactive {
		// The line editor puts the terminal in raw mode.
		stdout, stderr = crlfWriter{stdout}, crlfWriter{stderr}
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: cfg.NoColor}).
		Level(cfg.Level()).With().Timestamp().Logger()
	opts := []unwind.Option{
		unwind.WithOutput(stdout),
		unwind.WithErrorOutput(stderr),
		unwind.WithLogger(log),
		unwind.WithAnnotationLevel(cfg.AnnotationLevel),
		unwind.WithColor(!cfg.NoColor && isTerminal(os.Stderr)),
		unwind.WithAsync(cfg.Async),
	}

	if cfg.MetricsAddr != "" {
		obs, err := metrics.New(prometheus.NewRegistry())
		if err != nil {
			return err
		}
		srv := serveMetrics(cfg.MetricsAddr, obs, log)
		defer shutdown(srv)
		opts = append(opts, unwind.WithObserver(obs))
	}

	store, err := journal.Open(ctx, cfg.Journal)
	if err != nil {
		return err
	}
	defer store.Close()

	engine := unwind.New(opts...)
	engine.HandleInterrupts(ctx)
	sh := shell.New(engine, shell.WithJournal(store), shell.WithColor(!cfg.NoColor))

	for _, c := range commands {
		sh.Execute(ctx, c, false)
		if sh.Exited() {
			return batchResult(sh)
		}
	}
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		if err := sh.Run(ctx, f); err != nil {
			return err
		}
	}
	switch {
	case len(args) > 0 || len(commands) > 0 || v.GetBool("batch"):
		return batchResult(sh)
	case interactive:
		return runInteractive(ctx, sh, cfg, log)
	}
	if err := sh.Run(ctx, cmd.InOrStdin()); err != nil {
		return err
	}
	return batchResult(sh)
}

func batchResult(sh *shell.Shell) error {
	if sh.Failures() > 0 {
		return errCommandFailed
	}
	return nil
}

func runInteractive(ctx context.Context, sh *shell.Shell, cfg *config.Config, log zerolog.Logger) error {
	historyPath, err := homedir.Expand(cfg.HistoryFile)
	if err != nil {
		log.Warn().Err(err).Msg("history disabled")
		historyPath = ""
	}
	return runRepl(ctx, sh, os.Stdout, cfg.Prompt, historyPath)
}

func serveMetrics(addr string, obs *metrics.Observer, log zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", obs.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving metrics")
	return srv
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
