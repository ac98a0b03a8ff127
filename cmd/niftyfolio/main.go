// niftyfolio — NIFTY 100 equal-weight index replication for retail investors.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/seenimoa/niftyfolio/internal/allocation"
	"github.com/seenimoa/niftyfolio/internal/config"
	"github.com/seenimoa/niftyfolio/internal/csvio"
	"github.com/seenimoa/niftyfolio/internal/news"
	"github.com/seenimoa/niftyfolio/internal/quote"
	"github.com/seenimoa/niftyfolio/internal/resolver"
	"github.com/seenimoa/niftyfolio/pkg/models"
	"github.com/seenimoa/niftyfolio/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, initialized by the root command.
var (
	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "niftyfolio",
	Short: "niftyfolio — NIFTY 100 equal-weight index replication",
	Long: `niftyfolio replicates the NIFTY 100 index with an equal-weight portfolio.
Given an investment amount it fetches current prices for every constituent,
splits the budget equally across them, and reports how many whole shares to
buy of each along with the amount left unallocated by rounding.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		levelOverride, _ := cmd.Flags().GetString("log-level")
		logger, err = initializeLogger(cfg.Logging, levelOverride)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync() //nolint:errcheck // stderr sync can fail on some platforms
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(statusCmd)
}

// initializeLogger builds the zap logger from config, with an optional CLI
// level override taking precedence.
func initializeLogger(logCfg config.LoggingConfig, levelOverride string) (*zap.Logger, error) {
	level := logCfg.Level
	if levelOverride != "" {
		level = levelOverride
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "", "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	var zc zap.Config
	switch logCfg.Format {
	case "", "console":
		zc = zap.NewDevelopmentConfig()
	case "json":
		zc = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", logCfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(zapLevel)

	if logCfg.OutputFile != "" {
		if dir := filepath.Dir(logCfg.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
			}
		}
		zc.OutputPaths = []string{logCfg.OutputFile}
		zc.ErrorOutputPaths = []string{logCfg.OutputFile}
	}

	return zc.Build()
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("niftyfolio %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Plan Command ---

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute an equal-weight allocation plan for an investment amount",
	Long: `Compute the full replication plan: load the constituent list, fetch a
current price per security, split the budget equally, and write the share
counts to a timestamped CSV report plus a summary text file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, _ := cmd.Flags().GetFloat64("amount")
		if amount == 0 {
			var err error
			amount, err = promptAmount(cmd.InOrStdin())
			if err != nil {
				return err
			}
		}
		if err := cfg.ValidateAmount(amount); err != nil {
			return err
		}

		securitiesFile, _ := cmd.Flags().GetString("securities")
		if securitiesFile == "" {
			securitiesFile = cfg.Paths.SecuritiesFile
		}
		exclusionFile, _ := cmd.Flags().GetString("exclusion")
		outputDir, _ := cmd.Flags().GetString("output-dir")
		if outputDir == "" {
			outputDir = cfg.Paths.OutputDir
		}

		return runPlan(cmd, amount, securitiesFile, exclusionFile, outputDir)
	},
}

func init() {
	planCmd.Flags().Float64("amount", 0, "investment amount in rupees (prompted if omitted)")
	planCmd.Flags().String("securities", "", "constituent list CSV (default from config)")
	planCmd.Flags().String("exclusion", "", "exclusion list CSV (optional)")
	planCmd.Flags().String("output-dir", "", "report output directory (default from config)")
}

func runPlan(cmd *cobra.Command, amount float64, securitiesFile, exclusionFile, outputDir string) error {
	ctx := cmd.Context()
	handler := csvio.NewHandler(logger)
	now := utils.NowIST()

	fmt.Printf("NIFTY 100 Index Tracker\n")
	fmt.Printf("  Investment:    %s\n", utils.FormatINR(amount))
	fmt.Printf("  Constituents:  %s\n", securitiesFile)
	if exclusionFile != "" {
		fmt.Printf("  Exclusions:    %s\n", exclusionFile)
	}
	fmt.Printf("  Market Status: %s\n\n", utils.MarketStatus(now))

	securities, err := handler.LoadSecurities(securitiesFile)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Loaded %d securities\n", len(securities))

	var excl []models.ExclusionEntry
	if exclusionFile != "" {
		excl, err = handler.LoadExclusions(exclusionFile)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Loaded %d exclusions\n", len(excl))
	}

	chain := quote.NewDefaultChain(logger)
	res := resolver.New(chain, resolver.Config{
		Timeout:     cfg.Fetch.Timeout(),
		MaxRetries:  cfg.Fetch.MaxRetries,
		BackoffBase: cfg.Fetch.BackoffBase(),
		BackoffCap:  cfg.Fetch.BackoffCap(),
		Concurrency: cfg.Fetch.Concurrency,
	}, logger)

	fmt.Printf("Fetching prices (%d workers)...\n", cfg.Fetch.Concurrency)
	failures, err := res.Resolve(ctx, securities)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Priced %d of %d securities\n", len(securities)-len(failures), len(securities))
	for _, f := range failures {
		fmt.Printf("  ✗ %s: %s (after %d attempts)\n", f.Symbol, f.Reason, f.Attempts)
	}

	engine := allocation.NewEngine(logger)
	allocations, summary, err := engine.Allocate(amount, securities, excl, now)
	if err != nil {
		return err
	}

	reportPath := filepath.Join(outputDir, csvio.AllocationFilename(now))
	if err := handler.WriteAllocations(reportPath, allocations); err != nil {
		return err
	}
	if err := handler.WriteSummary(csvio.SummaryPath(reportPath), summary, now); err != nil {
		return err
	}

	fmt.Printf("\n── Portfolio Summary ──────────────────────\n")
	fmt.Printf("  Total Investment: %s\n", utils.FormatINR(summary.TotalInvestment))
	fmt.Printf("  Total Allocated:  %s (%.2f%%)\n", utils.FormatINR(summary.TotalAllocated), summary.UtilizationPct)
	fmt.Printf("  Unallocated:      %s\n", utils.FormatINR(summary.TotalUnallocated))
	fmt.Printf("  Shares to Buy:    %s across %d securities\n", utils.FormatShares(summary.TotalShares), summary.IncludedSecurities)
	fmt.Printf("  Success Rate:     %.1f%%\n", summary.SuccessRatePct)
	fmt.Printf("\n✓ Report written to %s\n", reportPath)
	return nil
}

// promptAmount reads the investment amount interactively.
func promptAmount(in io.Reader) (float64, error) {
	fmt.Printf("Enter investment amount (%s – %s): ₹",
		utils.FormatINRCompact(config.MinInvestment), utils.FormatINRCompact(config.MaxInvestment))

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return 0, fmt.Errorf("no amount entered")
	}
	raw := strings.TrimSpace(scanner.Text())
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.TrimPrefix(raw, "₹")

	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

// --- Fetch Command ---

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the official NIFTY 100 constituent list",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = cfg.Paths.SecuritiesFile
		}

		handler := csvio.NewHandler(logger)
		if err := handler.DownloadConstituents(cmd.Context(), cfg.Paths.ConstituentsURL, output); err != nil {
			return err
		}

		securities, err := handler.LoadSecurities(output)
		if err != nil {
			return fmt.Errorf("downloaded file failed to parse: %w", err)
		}
		fmt.Printf("✓ Saved %d constituents to %s\n", len(securities), output)
		return nil
	},
}

func init() {
	fetchCmd.Flags().String("output", "", "destination file (default from config)")
}

// --- Metrics Command ---

var metricsCmd = &cobra.Command{
	Use:   "metrics [symbol]",
	Short: "Show fundamental ratios for a constituent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := utils.NormalizeSymbol(args[0])

		ratios, err := quote.NewScreener().GetRatios(cmd.Context(), symbol)
		if err != nil {
			return err
		}

		fmt.Printf("📊 %s — Fundamentals\n", symbol)
		fmt.Printf("  Current Price:   %s\n", utils.FormatINR(ratios.CurrentPrice))
		fmt.Printf("  Market Cap:      %s\n", utils.FormatINRCompact(ratios.MarketCap))
		fmt.Printf("  P/E:             %.2f\n", ratios.PE)
		fmt.Printf("  P/B:             %.2f\n", ratios.PB)
		fmt.Printf("  Book Value:      %s\n", utils.FormatINR(ratios.BookValue))
		fmt.Printf("  EPS:             %.2f\n", ratios.EPS)
		fmt.Printf("  Dividend Yield:  %.2f%%\n", ratios.DividendYield)
		fmt.Printf("  ROCE:            %.2f%%\n", ratios.ROCE)
		fmt.Printf("  ROE:             %.2f%%\n", ratios.ROE)
		return nil
	},
}

// --- News Command ---

var newsCmd = &cobra.Command{
	Use:   "news [symbol]",
	Short: "Show recent Indian market news, optionally for one constituent",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit == 0 {
			limit = cfg.News.Limit
		}

		svc := news.NewService(nil)
		var (
			articles []models.NewsArticle
			err      error
		)
		if len(args) == 1 {
			symbol := utils.NormalizeSymbol(args[0])
			articles, err = svc.StockNews(cmd.Context(), symbol, limit)
			if err == nil && len(articles) == 0 {
				fmt.Printf("No recent headlines mention %s.\n", symbol)
				return nil
			}
		} else {
			articles, err = svc.MarketNews(cmd.Context(), limit)
		}
		if err != nil {
			return err
		}

		for _, a := range articles {
			fmt.Printf("• %s\n", a.Title)
			fmt.Printf("  %s — %s\n", a.Source, a.PublishedAt.Format("02 Jan 15:04"))
			fmt.Printf("  %s\n\n", a.URL)
		}
		return nil
	},
}

func init() {
	newsCmd.Flags().Int("limit", 0, "maximum headlines to show (default from config)")
}

// --- Sample Command ---

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write sample constituent and exclusion files for a quick try-out",
	RunE: func(cmd *cobra.Command, args []string) error {
		handler := csvio.NewHandler(logger)

		secPath := cfg.Paths.SecuritiesFile
		if err := handler.WriteSampleSecurities(secPath); err != nil {
			return err
		}
		fmt.Printf("✓ Sample constituents written to %s\n", secPath)

		exclPath := filepath.Join(filepath.Dir(secPath), "sample_exclusions.csv")
		if err := handler.WriteSampleExclusions(exclPath); err != nil {
			return err
		}
		fmt.Printf("✓ Sample exclusion list written to %s\n", exclPath)
		return nil
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		now := utils.NowIST()
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  niftyfolio — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Market Status: %s\n", utils.MarketStatus(now))
		fmt.Printf("  Time (IST):    %s\n", utils.FormatDateTimeIST(now))
		fmt.Println()
		fmt.Println("  Configuration:")
		fmt.Printf("    Investment:   %s – %s\n",
			utils.FormatINRCompact(cfg.Investment.MinAmount), utils.FormatINRCompact(cfg.Investment.MaxAmount))
		fmt.Printf("    Constituents: %s\n", cfg.Paths.SecuritiesFile)
		fmt.Printf("    Output Dir:   %s\n", cfg.Paths.OutputDir)
		fmt.Printf("    Fetch:        timeout %ds, %d retries, %d workers\n",
			cfg.Fetch.TimeoutSec, cfg.Fetch.MaxRetries, cfg.Fetch.Concurrency)
		fmt.Printf("    Logging:      %s (%s)\n", cfg.Logging.Level, cfg.Logging.Format)
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
