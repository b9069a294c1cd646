package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/dyike/StockAnalyzer/config"
	"github.com/dyike/StockAnalyzer/internal/analyzer"
	"github.com/dyike/StockAnalyzer/internal/dataflows"
	"github.com/dyike/StockAnalyzer/internal/display"
	"github.com/dyike/StockAnalyzer/internal/scheduler"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(newApp())
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stockanalyzer",
		Short: "StockAnalyzer - company fundamentals and next-day price estimate",
		Long: `StockAnalyzer looks up fundamental data for a company by name and fits a
straight line through the last year of closing prices to estimate the next
day's close.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default behavior: start interactive mode
			return runInteractiveMode(cmd.Context(), a)
		},
	}

	rootCmd.AddCommand(newDetailsCmd(a))
	rootCmd.AddCommand(newPredictCmd(a))
	rootCmd.AddCommand(newAnalyzeCmd(a))
	rootCmd.AddCommand(newWatchCmd(a))
	rootCmd.AddCommand(newBatchCmd(a))
	rootCmd.AddCommand(newExportCmd(a))
	rootCmd.AddCommand(newHistoryCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newVersionCmd())

	// Global flags
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file path")
	rootCmd.PersistentFlags().StringVar(&a.provider, "provider", "", "Data provider (yahoo, longport or finnhub)")

	return rootCmd
}

func newDetailsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "details COMPANY...",
		Short: "Show fundamentals for a company",
		Example: `  stockanalyzer details Reliance Industries
  stockanalyzer details TCS --provider yahoo`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOnce(cmd.Context(), strings.Join(args, " "), actionDetails)
		},
	}
}

func newPredictCmd(a *app) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:     "predict COMPANY...",
		Short:   "Estimate the next day's closing price",
		Example: `  stockanalyzer predict Infosys --period 6mo`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setPeriod(period); err != nil {
				return err
			}
			return a.runOnce(cmd.Context(), strings.Join(args, " "), actionPredict)
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "History window: 1mo, 3mo, 6mo, 1y, 2y or 5y (default from config)")
	return cmd
}

// newAnalyzeCmd runs details and then predict, like pressing both buttons
func newAnalyzeCmd(a *app) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "analyze COMPANY...",
		Short: "Show fundamentals followed by the next-day estimate",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setPeriod(period); err != nil {
				return err
			}
			return a.runOnce(cmd.Context(), strings.Join(args, " "), actionDetails, actionPredict)
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "History window for the estimate (default from config)")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		period string
		spec   string
		now    bool
	)
	cmd := &cobra.Command{
		Use:   "watch COMPANY...",
		Short: "Repeat details and the estimate on a cron schedule",
		Long: `Repeat details and the estimate on a six-field cron schedule (seconds first)
until interrupted. Changes to the --config file are picked up between runs.`,
		Example: `  stockanalyzer watch Tata Motors --cron "0 */5 * * * *"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setPeriod(period); err != nil {
				return err
			}
			if spec != "" {
				a.cfg.WatchCron = spec
				if err := a.cfg.Validate(); err != nil {
					return err
				}
			}
			return a.runWatch(cmd.Context(), strings.Join(args, " "), now)
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "History window for the estimate (default from config)")
	cmd.Flags().StringVar(&spec, "cron", "", "Cron schedule (default from config)")
	cmd.Flags().BoolVar(&now, "now", true, "Run once immediately before the first tick")
	return cmd
}

func newBatchCmd(a *app) *cobra.Command {
	var (
		period     string
		file       string
		concurrent int
	)
	cmd := &cobra.Command{
		Use:   "batch [COMPANY]...",
		Short: "Show fundamentals and the estimate for several companies",
		Long: `Run details and the estimate for each company concurrently. Companies are
given as arguments, one per argument, or read from --file with one name per
line.`,
		Example: `  stockanalyzer batch "Reliance Industries" Infosys TCS
  stockanalyzer batch --file watchlist.txt --concurrent 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setPeriod(period); err != nil {
				return err
			}
			companies := args
			if file != "" {
				fromFile, err := LoadCompaniesFromFile(file)
				if err != nil {
					return err
				}
				companies = append(companies, fromFile...)
			}
			if len(companies) == 0 {
				return errors.New("no companies provided for batch analysis")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.runBatch(ctx, companies, concurrent)
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "History window for the estimate (default from config)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "File with one company name per line")
	cmd.Flags().IntVarP(&concurrent, "concurrent", "c", defaultConcurrency, "Companies analyzed at once (1-10)")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:     "export COMPANY...",
		Short:   "Save daily closes to CSV under the data directory",
		Example: `  stockanalyzer export Wipro --period 6mo`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setPeriod(period); err != nil {
				return err
			}
			return a.runExport(cmd.Context(), strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "History window (default from config)")
	return cmd
}

func (a *app) runExport(ctx context.Context, entry string) error {
	symbol, err := dataflows.NormalizeCompanyName(entry, a.cfg.ExchangeSuffix)
	if err != nil {
		return errors.New(analyzer.MsgInvalidInput)
	}
	p, err := dataflows.ParsePeriod(a.cfg.HistoryPeriod)
	if err != nil {
		return err
	}
	provider, err := dataflows.NewProvider(a.cfg, a.log)
	if err != nil {
		return err
	}

	series, err := provider.History(ctx, symbol, p)
	if err != nil {
		return fmt.Errorf("fetch history for %s: %w", symbol, err)
	}
	if len(series) == 0 {
		return errors.New(analyzer.MsgNoHistory)
	}

	path, err := dataflows.NewCSVManager(a.cfg.DataDir).WriteSeries(symbol, series)
	if err != nil {
		return err
	}
	DisplaySuccess(a.out, fmt.Sprintf("Saved %d closes for %s to %s", len(series), symbol, path))
	return nil
}

func newHistoryCmd(a *app) *cobra.Command {
	var (
		symbol string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded lookups (requires HISTORY_DB)",
		RunE: func(cmd *cobra.Command, args []string) error {
			lookups, err := a.recorder.ListLookups(cmd.Context(), symbol, limit)
			if err != nil {
				return err
			}
			if len(lookups) == 0 {
				DisplayInfo(a.out, "No lookups recorded yet.")
				return nil
			}
			fmt.Fprintln(a.out, RenderHistory(lookups, time.Now()))
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "Only show lookups for this symbol (e.g. TCS.NS)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of rows")
	return cmd
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "StockAnalyzer v%s\n", Version)
		},
	}
}

// newConfigCmd creates the config command
func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(a)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and check connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cmd.Context(), a)
		},
	})

	return configCmd
}

type action int

const (
	actionDetails action = iota
	actionPredict
)

func (a *app) job(an *analyzer.Analyzer, act action, entry string) analyzer.Job {
	return func(ctx context.Context) analyzer.Outcome {
		if act == actionPredict {
			return an.Predict(ctx, entry)
		}
		return an.Details(ctx, entry)
	}
}

func (a *app) setPeriod(period string) error {
	if period == "" {
		return nil
	}
	p, err := dataflows.ParsePeriod(period)
	if err != nil {
		return err
	}
	a.cfg.HistoryPeriod = string(p)
	return nil
}

// runOnce performs the actions in order against a fresh session and prints
// the result box.
func (a *app) runOnce(ctx context.Context, entry string, actions ...action) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	an, err := a.newAnalyzer(a.cfg)
	if err != nil {
		return err
	}

	disp := analyzer.NewDispatcher(ctx)
	defer disp.Close()

	session := analyzer.NewSession(display.NewWriterAlerter(a.err))
	session.Entry = entry

	for _, act := range actions {
		out, err := disp.Run(ctx, a.job(an, act, session.Entry))
		if err != nil {
			return err
		}
		session.Apply(out)
		if out.Mode == analyzer.ModeNone && out.Alert != "" {
			break
		}
	}

	if session.Box.Text() != "" {
		return session.Box.Print(a.out)
	}
	return nil
}

func (a *app) runWatch(ctx context.Context, entry string, now bool) error {
	if _, err := dataflows.NormalizeCompanyName(entry, a.cfg.ExchangeSuffix); err != nil {
		return errors.New(analyzer.MsgInvalidInput)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	an, err := a.newAnalyzer(a.cfg)
	if err != nil {
		return err
	}
	var current atomic.Pointer[analyzer.Analyzer]
	current.Store(an)

	period := a.cfg.HistoryPeriod
	err = a.manager.Watch(ctx, func(cfg config.Config) {
		if err := a.applyFlags(&cfg); err != nil {
			a.log.WithError(err).Warn("ignoring reloaded config")
			return
		}
		cfg.HistoryPeriod = period
		next, err := a.newAnalyzer(&cfg)
		if err != nil {
			a.log.WithError(err).Warn("ignoring reloaded config")
			return
		}
		current.Store(next)
		a.log.WithField("provider", cfg.Provider).Debug("analyzer rebuilt")
	})
	if err != nil {
		return err
	}

	tick := func() {
		an := current.Load()
		session := analyzer.NewSession(display.NewWriterAlerter(a.err))
		session.Apply(an.Details(ctx, entry))
		session.Apply(an.Predict(ctx, entry))
		if ctx.Err() != nil {
			return
		}
		DisplayInfo(a.out, fmt.Sprintf("%s (%s)", entry, time.Now().Format("2006-01-02 15:04:05")))
		if err := session.Box.Print(a.out); err != nil {
			a.log.WithError(err).Warn("failed to print results")
		}
	}

	DisplayInfo(a.out, fmt.Sprintf("Watching %s on %q, press Ctrl-C to stop", entry, a.cfg.WatchCron))
	return scheduler.NewScheduler(a.log).Run(ctx, a.cfg.WatchCron, now, tick)
}

// showConfig displays the current configuration
func showConfig(a *app) {
	cfg := a.cfg
	fmt.Fprintln(a.out, titleStyle.Render("📋 Current StockAnalyzer Configuration"))
	rows := [][2]string{
		{"Config File", orDash(a.manager.Path())},
		{"Provider", cfg.Provider},
		{"Exchange Suffix", orDash(cfg.ExchangeSuffix)},
		{"Currency", orDash(cfg.Currency)},
		{"History Period", cfg.HistoryPeriod},
		{"Probe URL", cfg.ProbeURL},
		{"HTTP Timeout", cfg.HTTPTimeout.String()},
		{"Max Retries", fmt.Sprint(cfg.MaxRetries)},
		{"Test Size", fmt.Sprint(cfg.TestSize)},
		{"Split Seed", fmt.Sprint(cfg.SplitSeed)},
		{"Cache", enabled(cfg.CacheEnabled, cfg.DataCacheDir)},
		{"History DB", orDash(cfg.HistoryDB)},
		{"CSV Fallback", enabled(cfg.CSVFallback, cfg.DataDir)},
		{"Watch Cron", cfg.WatchCron},
		{"Debug", fmt.Sprint(cfg.Debug)},
	}
	if cfg.Provider == config.ProviderLongport {
		rows = append(rows, [2]string{"Longport API", configured(cfg.LongportAppKey != "" && cfg.LongportAccessToken != "")})
	}
	if cfg.Provider == config.ProviderFinnhub {
		rows = append(rows, [2]string{"Finnhub API", configured(cfg.FinnhubAPIKey != "")})
	}
	for _, r := range rows {
		fmt.Fprintf(a.out, "%-18s %s\n", r[0]+":", r[1])
	}
}

// validateConfig validates the configuration and checks connectivity
func validateConfig(ctx context.Context, a *app) error {
	fmt.Fprintln(a.out, titleStyle.Render("🔍 Validating StockAnalyzer Configuration"))

	fmt.Fprint(a.out, "⚙️  Checking configuration values... ")
	if err := a.cfg.Validate(); err != nil {
		fmt.Fprintln(a.out, "❌")
		return err
	}
	fmt.Fprintln(a.out, "✅")

	fmt.Fprint(a.out, "📁 Checking directories... ")
	if err := a.cfg.EnsureDirectories(); err != nil {
		fmt.Fprintln(a.out, "❌")
		return fmt.Errorf("directory validation failed: %w", err)
	}
	fmt.Fprintln(a.out, "✅")

	fmt.Fprint(a.out, "🌐 Checking connectivity... ")
	start := time.Now()
	if err := dataflows.NewHTTPProber(a.cfg).Probe(ctx); err != nil {
		fmt.Fprintln(a.out, "⚠️")
		DisplayError(a.out, err)
		return nil
	}
	fmt.Fprintf(a.out, "✅ (%s)\n", time.Since(start).Round(time.Millisecond))

	DisplaySuccess(a.out, "Configuration validation completed successfully!")
	return nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func enabled(on bool, detail string) string {
	if !on {
		return "disabled"
	}
	return "enabled (" + detail + ")"
}

func configured(ok bool) string {
	if ok {
		return "✅ Configured"
	}
	return "❌ Not configured"
}
