package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/revdeps/pkg/scan"
)

// Terminal styling. Colors are 256-color codes so output looks the same
// under light and dark themes.
var (
	accent = lipgloss.Color("36")
	good   = lipgloss.Color("35")
	warn   = lipgloss.Color("220")
	bad    = lipgloss.Color("167")
	bright = lipgloss.Color("255")
	muted  = lipgloss.Color("245")
	faint  = lipgloss.Color("240")

	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	styleDim     = lipgloss.NewStyle().Foreground(faint)
	styleValue   = lipgloss.NewStyle().Foreground(bright)
	styleNumber  = lipgloss.NewStyle().Foreground(accent)
	styleSuccess = lipgloss.NewStyle().Foreground(good)
	styleWarning = lipgloss.NewStyle().Foreground(warn)

	styleIconSuccess = styleSuccess
	styleIconError   = lipgloss.NewStyle().Foreground(bad)
	styleIconInfo    = lipgloss.NewStyle().Foreground(muted)
	styleIconSpinner = styleNumber
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconInfo    = "›"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

func printStatus(w io.Writer, icon lipgloss.Style, glyph, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", icon.Render(glyph), fmt.Sprintf(format, args...))
}

func printSuccess(w io.Writer, format string, args ...any) {
	printStatus(w, styleIconSuccess, iconSuccess, format, args...)
}

func printError(w io.Writer, format string, args ...any) {
	printStatus(w, styleIconError, iconError, format, args...)
}

func printInfo(w io.Writer, format string, args ...any) {
	printStatus(w, styleIconInfo, iconInfo, format, args...)
}

// printDetail prints an indented, dimmed line.
func printDetail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "  "+styleDim.Render(fmt.Sprintf(format, args...)))
}

// printKeyValue prints a labeled value.
func printKeyValue(w io.Writer, key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(muted).Width(12)
	fmt.Fprintln(w, keyStyle.Render(key)+" "+styleValue.Render(value))
}

// printVerdict prints whether a verdict came from the cache.
func printVerdict(w io.Writer, cached bool) {
	status, style := iconFresh, styleIconInfo
	if cached {
		status, style = iconCached, styleSuccess
	}
	fmt.Fprintln(w, "  "+style.Render(status))
}

// renderStats renders the counters of a scan as a two-column table.
func renderStats(s scan.StatsSnapshot) string {
	rows := [][]string{
		{"pages", strconv.FormatInt(s.Pages, 10)},
		{"enqueued", strconv.FormatInt(s.Enqueued, 10)},
		{"scanned", strconv.FormatInt(s.Scanned, 10)},
		{"cached", strconv.FormatInt(s.Cached, 10)},
		{"failed", strconv.FormatInt(s.Failed, 10)},
		{"matched", strconv.FormatInt(s.Matched, 10)},
		{"queue peak", strconv.FormatInt(s.QueueHighMark, 10)},
		{"elapsed", s.Elapsed.Round(time.Millisecond).String()},
	}

	headerStyle := lipgloss.NewStyle().Foreground(muted).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(faint)).
		Headers("Scan", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0:
				return lipgloss.NewStyle().Foreground(muted)
			case rows[row][0] == "failed" && s.Failed > 0:
				return styleWarning
			case rows[row][0] == "matched" && s.Matched > 0:
				return styleSuccess
			}
			return styleNumber
		})
	return t.Render()
}
