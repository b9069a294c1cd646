package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/dyike/StockAnalyzer/internal/analyzer"
	"github.com/dyike/StockAnalyzer/internal/display"
)

const (
	defaultConcurrency = 3
	maxConcurrency     = 10
)

// BatchStatus represents the status of one company in a batch
type BatchStatus int

const (
	BatchPending BatchStatus = iota
	BatchRunning
	BatchCompleted
	BatchFailed
)

func (bs BatchStatus) String() string {
	switch bs {
	case BatchPending:
		return "⏳ Pending"
	case BatchRunning:
		return "🔄 Running"
	case BatchCompleted:
		return "✅ Completed"
	case BatchFailed:
		return "❌ Failed"
	default:
		return "❓ Unknown"
	}
}

// BatchResult is the outcome of details plus predict for one company.
// Each company gets its own result box.
type BatchResult struct {
	Company  string
	Symbol   string
	Status   BatchStatus
	Alert    string
	Box      *display.ResultBox
	Duration time.Duration
}

// collectingAlerter keeps the first alert instead of showing it.
type collectingAlerter struct {
	first string
}

func (c *collectingAlerter) Alert(message string) {
	if c.first == "" {
		c.first = message
	}
}

// RunBatch analyzes companies with at most concurrent lookups in flight.
// Results keep the input order.
func RunBatch(ctx context.Context, an *analyzer.Analyzer, companies []string, concurrent int) []BatchResult {
	if concurrent <= 0 || concurrent > maxConcurrency {
		concurrent = defaultConcurrency
	}

	results := make([]BatchResult, len(companies))
	for i, c := range companies {
		results[i] = BatchResult{Company: c, Status: BatchPending}
	}

	semaphore := make(chan struct{}, concurrent)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(r *BatchResult) {
			defer wg.Done()
			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				r.Status, r.Alert = BatchFailed, ctx.Err().Error()
				return
			}
			analyzeOne(ctx, an, r)
		}(&results[i])
	}
	wg.Wait()
	return results
}

func analyzeOne(ctx context.Context, an *analyzer.Analyzer, r *BatchResult) {
	start := time.Now()
	r.Status = BatchRunning

	alerts := &collectingAlerter{}
	session := analyzer.NewSession(alerts)
	session.Entry = r.Company

	out := an.Details(ctx, session.Entry)
	session.Apply(out)
	r.Symbol = out.Symbol
	if alerts.first == "" {
		session.Apply(an.Predict(ctx, session.Entry))
	}

	r.Box = session.Box
	r.Alert = alerts.first
	r.Duration = time.Since(start)
	if r.Alert != "" {
		r.Status = BatchFailed
	} else {
		r.Status = BatchCompleted
	}
}

// LoadCompaniesFromFile reads one company name per line. Blank lines and
// lines starting with # are skipped.
func LoadCompaniesFromFile(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read companies file: %w", err)
	}
	defer f.Close()
	return readCompanies(f, filename)
}

func readCompanies(r io.Reader, name string) ([]string, error) {
	var companies []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		companies = append(companies, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read companies file: %w", err)
	}
	if len(companies) == 0 {
		return nil, fmt.Errorf("no companies found in file: %s", name)
	}
	return companies, nil
}

// RenderBatchSummary draws one row per company.
func RenderBatchSummary(results []BatchResult) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		duration := "N/A"
		if r.Duration > 0 {
			duration = r.Duration.Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			truncateString(r.Company, 24),
			orDash(r.Symbol),
			r.Status.String(),
			duration,
			truncateString(r.Alert, 40),
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))).
		Headers("COMPANY", "SYMBOL", "STATUS", "DURATION", "ALERT").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCellStyle
			}
			return cellStyle
		}).
		String()
}

// runBatch prints each company's result box and then the summary.
func (a *app) runBatch(ctx context.Context, companies []string, concurrent int) error {
	an, err := a.newAnalyzer(a.cfg)
	if err != nil {
		return err
	}

	DisplayInfo(a.out, fmt.Sprintf("Analyzing %d companies", len(companies)))
	start := time.Now()
	results := RunBatch(ctx, an, companies, concurrent)

	failed := 0
	for _, r := range results {
		if r.Status == BatchFailed {
			failed++
		}
		if r.Box == nil || r.Box.Text() == "" {
			continue
		}
		if err := r.Box.Print(a.out); err != nil {
			return err
		}
	}

	fmt.Fprintln(a.out, titleStyle.Render("📋 Batch Summary"))
	fmt.Fprintln(a.out, RenderBatchSummary(results))
	DisplayInfo(a.out, fmt.Sprintf("Total Time: %s", time.Since(start).Round(time.Millisecond)))
	if failed > 0 {
		DisplayError(a.out, fmt.Errorf("%d of %d companies failed", failed, len(results)))
	} else {
		DisplaySuccess(a.out, fmt.Sprintf("Completed: %d", len(results)))
	}
	return ctx.Err()
}
