// Package csvio reads constituent and exclusion lists and writes allocation
// reports. Two input layouts are supported: the header layout published by
// niftyindices.com ("Company Name", "Industry", "Symbol", "Series", "ISIN
// Code") and a legacy lowercase layout ("symbol", "company_name", "isin").
package csvio

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seenimoa/niftyfolio/internal/infra"
	"github.com/seenimoa/niftyfolio/pkg/models"
	"github.com/seenimoa/niftyfolio/pkg/utils"
)

// ConstituentsURL is the official NIFTY 100 constituent list.
const ConstituentsURL = "https://www.niftyindices.com/IndexConstituent/ind_nifty100list.csv"

// outputHeaders is the column layout of allocation report CSVs.
var outputHeaders = []string{
	"company_name",
	"symbol",
	"current_price",
	"target_allocation_pct",
	"target_amount",
	"shares_to_buy",
	"actual_allocation_amount",
	"actual_allocation_pct",
	"unallocated_amount",
	"timestamp",
}

// Handler performs all CSV reads and writes.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a CSV handler.
func NewHandler(logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logger: logger}
}

// LoadSecurities reads a constituent list. Rows with missing symbol or
// company name are skipped with a warning rather than failing the load;
// duplicate symbols keep the first occurrence.
func (h *Handler) LoadSecurities(path string) ([]models.Security, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open securities file: %w", err)
	}
	defer f.Close()

	securities, err := h.parseSecurities(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	h.logger.Info("loaded securities",
		zap.String("file", path),
		zap.Int("count", len(securities)))
	return securities, nil
}

// LoadExclusions reads an exclusion list. It accepts the same layouts as
// LoadSecurities; only symbol and ISIN are used for matching.
func (h *Handler) LoadExclusions(path string) ([]models.ExclusionEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open exclusion file: %w", err)
	}
	defer f.Close()

	securities, err := h.parseSecurities(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	entries := make([]models.ExclusionEntry, 0, len(securities))
	for _, sec := range securities {
		entries = append(entries, models.ExclusionEntry{
			Symbol: sec.Symbol,
			ISIN:   sec.ISIN,
		})
	}

	h.logger.Info("loaded exclusion list",
		zap.String("file", path),
		zap.Int("count", len(entries)))
	return entries, nil
}

func (h *Handler) parseSecurities(r io.Reader) ([]models.Security, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, legacy, err := detectLayout(header)
	if err != nil {
		return nil, err
	}

	var securities []models.Security
	seen := make(map[string]bool)

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			h.logger.Warn("skipping malformed row", zap.Int("line", line), zap.Error(err))
			continue
		}

		sec, err := securityFromRecord(record, cols, legacy)
		if err != nil {
			h.logger.Warn("skipping invalid row", zap.Int("line", line), zap.Error(err))
			continue
		}
		if seen[sec.Symbol] {
			h.logger.Warn("skipping duplicate symbol", zap.Int("line", line), zap.String("symbol", sec.Symbol))
			continue
		}
		seen[sec.Symbol] = true
		securities = append(securities, sec)
	}

	return securities, nil
}

// columns maps logical fields to header indexes; -1 means absent.
type columns struct {
	symbol, company, isin, industry, series, price int
}

// detectLayout matches the header row against the two supported layouts.
func detectLayout(header []string) (columns, bool, error) {
	cols := columns{symbol: -1, company: -1, isin: -1, industry: -1, series: -1, price: -1}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	find := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		return -1
	}

	// niftyindices.com layout.
	if sym, com := find("Symbol"), find("Company Name"); sym >= 0 && com >= 0 {
		cols.symbol = sym
		cols.company = com
		cols.isin = find("ISIN Code")
		cols.industry = find("Industry")
		cols.series = find("Series")
		return cols, false, nil
	}

	// Legacy lowercase layout, with an optional preloaded price column.
	if sym, com := find("symbol"), find("company_name"); sym >= 0 && com >= 0 {
		cols.symbol = sym
		cols.company = com
		cols.isin = find("isin")
		cols.price = find("current_price")
		return cols, true, nil
	}

	return cols, false, fmt.Errorf("unrecognized CSV headers: %v", header)
}

func securityFromRecord(record []string, cols columns, legacy bool) (models.Security, error) {
	field := func(i int) string {
		if i < 0 || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	sec, err := models.NewSecurity(field(cols.symbol), field(cols.company), field(cols.isin))
	if err != nil {
		return models.Security{}, err
	}
	sec.Industry = field(cols.industry)
	sec.Series = field(cols.series)

	// Legacy files may carry a pre-fetched price; a valid one marks the
	// security resolved so the pipeline can skip the network lookup.
	if legacy && cols.price >= 0 {
		if raw := field(cols.price); raw != "" {
			price, err := strconv.ParseFloat(raw, 64)
			if err == nil && price > 0 {
				if err := sec.SetPrice(price); err != nil {
					return models.Security{}, err
				}
			}
		}
	}

	return sec, nil
}

// --- Output writers ---

// AllocationFilename returns the timestamped report name for a run.
func AllocationFilename(now time.Time) string {
	return fmt.Sprintf("nifty100_allocation_%s.csv", now.Format("20060102_150405"))
}

// SummaryPath derives the summary file path from a report path.
func SummaryPath(csvPath string) string {
	return strings.TrimSuffix(csvPath, ".csv") + "_summary.txt"
}

// WriteAllocations writes the allocation report. Currency columns carry two
// decimals, percentage columns four; unresolved securities show "N/A" as
// their price.
func (h *Handler) WriteAllocations(path string, allocations []models.Allocation) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(outputHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, a := range allocations {
		price := "N/A"
		if a.Security.PriceAvailable() {
			price = fmt.Sprintf("%.2f", a.Security.CurrentPrice)
		}
		record := []string{
			a.Security.CompanyName,
			a.Security.Symbol,
			price,
			fmt.Sprintf("%.2f", a.TargetPct),
			fmt.Sprintf("%.2f", a.TargetAmount),
			strconv.FormatInt(a.SharesToBuy, 10),
			fmt.Sprintf("%.2f", a.ActualAmount),
			fmt.Sprintf("%.4f", a.ActualPct),
			fmt.Sprintf("%.2f", a.UnallocatedAmount),
			a.Timestamp.Format("2006-01-02 15:04:05"),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row for %s: %w", a.Security.Symbol, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	h.logger.Info("allocation report written",
		zap.String("file", path),
		zap.Int("rows", len(allocations)))
	return nil
}

// WriteSummary writes the human-readable run summary next to the report.
func (h *Handler) WriteSummary(path string, summary models.PortfolioSummary, now time.Time) error {
	var b strings.Builder
	b.WriteString("NIFTY 100 INDEX TRACKER - PORTFOLIO SUMMARY\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&b, "Generated on: %s\n\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Total Investment Amount: %s\n", utils.FormatINR(summary.TotalInvestment))
	fmt.Fprintf(&b, "Total Allocated Amount:  %s\n", utils.FormatINR(summary.TotalAllocated))
	fmt.Fprintf(&b, "Total Unallocated:       %s\n", utils.FormatINR(summary.TotalUnallocated))
	fmt.Fprintf(&b, "Utilization Rate:        %.2f%%\n\n", summary.UtilizationPct)
	fmt.Fprintf(&b, "Total Shares to Buy:     %s\n", utils.FormatShares(summary.TotalShares))
	fmt.Fprintf(&b, "Successful Securities:   %d\n", summary.ResolvedSecurities)
	fmt.Fprintf(&b, "Failed Securities:       %d\n", summary.FailedSecurities)
	fmt.Fprintf(&b, "Success Rate:            %.1f%%\n", summary.SuccessRatePct)

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	h.logger.Info("summary written", zap.String("file", path))
	return nil
}

// --- Constituent download and samples ---

// DownloadConstituents fetches the official constituent list and writes it
// to path. The downloaded file is in the niftyindices.com layout and loads
// directly with LoadSecurities.
func (h *Handler) DownloadConstituents(ctx context.Context, url, path string) error {
	if url == "" {
		url = ConstituentsURL
	}

	h.logger.Info("downloading constituent list", zap.String("url", url))

	body, _, err := infra.DoGet(ctx, nil, url, map[string]string{
		"Accept": "text/csv, */*",
	})
	if err != nil {
		return fmt.Errorf("download constituents: %w", err)
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create constituents file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, body)
	if err != nil {
		return fmt.Errorf("save constituents: %w", err)
	}

	h.logger.Info("constituent list saved",
		zap.String("file", path),
		zap.Int64("bytes", n))
	return nil
}

var sampleSecurities = []models.Security{
	{Symbol: "RELIANCE", CompanyName: "Reliance Industries Limited", Industry: "Oil Gas & Consumable Fuels", Series: "EQ", ISIN: "INE002A01018"},
	{Symbol: "TCS", CompanyName: "Tata Consultancy Services Limited", Industry: "Information Technology", Series: "EQ", ISIN: "INE467B01029"},
	{Symbol: "INFY", CompanyName: "Infosys Limited", Industry: "Information Technology", Series: "EQ", ISIN: "INE009A01021"},
	{Symbol: "HDFCBANK", CompanyName: "HDFC Bank Limited", Industry: "Financial Services", Series: "EQ", ISIN: "INE040A01034"},
	{Symbol: "ICICIBANK", CompanyName: "ICICI Bank Limited", Industry: "Financial Services", Series: "EQ", ISIN: "INE090A01021"},
}

var sampleExclusions = []models.Security{
	{Symbol: "ADANIENT", CompanyName: "Adani Enterprises Ltd.", Industry: "Metals & Mining", Series: "EQ", ISIN: "INE423A01024"},
	{Symbol: "ADANIPORTS", CompanyName: "Adani Ports and Special Economic Zone Ltd.", Industry: "Services", Series: "EQ", ISIN: "INE742F01042"},
}

// WriteSampleSecurities writes a small constituent file for trying the tool
// without a download.
func (h *Handler) WriteSampleSecurities(path string) error {
	return h.writeConstituentFile(path, sampleSecurities)
}

// WriteSampleExclusions writes a sample exclusion list.
func (h *Handler) WriteSampleExclusions(path string) error {
	return h.writeConstituentFile(path, sampleExclusions)
}

func (h *Handler) writeConstituentFile(path string, securities []models.Security) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Company Name", "Industry", "Symbol", "Series", "ISIN Code"}); err != nil {
		return err
	}
	for _, sec := range securities {
		if err := w.Write([]string{sec.CompanyName, sec.Industry, sec.Symbol, sec.Series, sec.ISIN}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}

	h.logger.Info("sample file written",
		zap.String("file", path),
		zap.Int("rows", len(securities)))
	return nil
}
