package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/dyike/StockAnalyzer/internal/display"
	"github.com/dyike/StockAnalyzer/internal/storage"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1).
			MarginBottom(1)

	inProgressStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	completedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6"))

	headerCellStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle       = lipgloss.NewStyle().Padding(0, 1)
)

// DisplayWelcomeBanner shows the welcome banner
func DisplayWelcomeBanner(w io.Writer) {
	welcomeStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F5C518")).
		Bold(true).
		Align(lipgloss.Center).
		Width(80).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(lipgloss.Color("#F5C518"))

	taglineStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#3B82F6")).
		Italic(true).
		Align(lipgloss.Center).
		Width(80).
		MarginBottom(1)

	fmt.Fprintln(w, welcomeStyle.Render(display.Title))
	fmt.Fprintln(w, taglineStyle.Render("Fundamentals lookup and next-day price estimate"))
}

// ClearScreen clears the terminal screen
func ClearScreen(w io.Writer) {
	if os.Getenv("STOCKANALYZER_NO_CLEAR") != "" {
		return
	}
	fmt.Fprint(w, "\033[2J\033[H")
}

// DisplayWorking shows the in-flight message
func DisplayWorking(w io.Writer, message string) {
	fmt.Fprintln(w, inProgressStyle.Render("🔄 "+message))
}

// DisplayError shows an error message
func DisplayError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("❌ Error: %s", err.Error())))
}

// DisplayInfo shows an info message
func DisplayInfo(w io.Writer, message string) {
	fmt.Fprintln(w, infoStyle.Render("ℹ️  "+message))
}

// DisplaySuccess shows a success message
func DisplaySuccess(w io.Writer, message string) {
	fmt.Fprintln(w, completedStyle.Render("✅ "+message))
}

// RenderHistory draws recorded lookups as a table, newest first.
func RenderHistory(lookups []storage.Lookup, now time.Time) string {
	rows := make([][]string, 0, len(lookups))
	for _, l := range lookups {
		result := l.Summary
		if l.Action == storage.ActionPredict && l.Status == storage.StatusOK {
			result = humanize.FormatFloat("#,###.##", l.Price)
		}
		rows = append(rows, []string{
			humanize.RelTime(l.Timestamp, now, "ago", "from now"),
			l.Symbol,
			l.Action,
			l.Status,
			truncateString(result, 40),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))).
		Headers("WHEN", "SYMBOL", "ACTION", "STATUS", "RESULT").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCellStyle
			}
			return cellStyle
		})
	return t.String()
}

func truncateString(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
