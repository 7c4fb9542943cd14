package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/revdeps/pkg/observability"
	"github.com/matzehuels/revdeps/pkg/scan"
)

const (
	progressInterval = 200 * time.Millisecond
	recentMatches    = 8
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var (
	progressLabelStyle = lipgloss.NewStyle().Foreground(muted)
	progressMatchStyle = lipgloss.NewStyle().Foreground(good)
)

// =============================================================================
// Messages
// =============================================================================

type tickMsg time.Time

// pageMsg reports a fetched search page.
type pageMsg struct {
	skip  int
	count int
}

// matchMsg reports a package that references the target.
type matchMsg struct {
	id      string
	version string
}

// scanDoneMsg ends the program once the coordinator returns.
type scanDoneMsg struct {
	err error
}

func tick() tea.Cmd {
	return tea.Tick(progressInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// =============================================================================
// ProgressModel - live scan progress
// =============================================================================

// ProgressModel renders the counters of a running scan and the latest matches.
// Stats are polled on every tick; pages and matches arrive as messages.
type ProgressModel struct {
	Target   string
	Stats    func() scan.StatsSnapshot
	Cancel   context.CancelFunc
	Snap     scan.StatsSnapshot
	Skip     int
	Matches  []string
	Frame    int
	Stopping bool
	Done     bool
	Err      error
}

// NewProgressModel creates a model polling stats. cancel is invoked when the
// user interrupts.
func NewProgressModel(target string, stats func() scan.StatsSnapshot, cancel context.CancelFunc) ProgressModel {
	return ProgressModel{Target: target, Stats: stats, Cancel: cancel}
}

func (m ProgressModel) Init() tea.Cmd {
	return tick()
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.Done {
			return m, nil
		}
		m.Snap = m.Stats()
		m.Frame++
		return m, tick()

	case pageMsg:
		m.Skip = msg.skip + msg.count

	case matchMsg:
		m.Matches = append(m.Matches, msg.id+" "+msg.version)
		if len(m.Matches) > recentMatches {
			m.Matches = m.Matches[len(m.Matches)-recentMatches:]
		}

	case scanDoneMsg:
		m.Done = true
		m.Err = msg.err
		m.Snap = m.Stats()
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			// the scan winds down and reports scanDoneMsg
			if !m.Stopping && m.Cancel != nil {
				m.Cancel()
			}
			m.Stopping = true
		}
	}
	return m, nil
}

func (m ProgressModel) View() string {
	var b strings.Builder

	status := styleIconSpinner.Render(spinnerFrames[m.Frame%len(spinnerFrames)])
	switch {
	case m.Done && m.Err != nil:
		status = styleIconError.Render(iconError)
	case m.Done:
		status = styleIconSuccess.Render(iconSuccess)
	}
	b.WriteString(status + " " + styleTitle.Render("Scanning for "+m.Target))
	b.WriteString("\n")

	s := m.Snap
	fmt.Fprintf(&b, "  %s %s  %s %s  %s %s  %s %s\n",
		progressLabelStyle.Render("pages"), styleNumber.Render(fmt.Sprint(s.Pages)),
		progressLabelStyle.Render("scanned"), styleNumber.Render(fmt.Sprintf("%d/%d", s.Scanned, s.Enqueued)),
		progressLabelStyle.Render("cached"), styleNumber.Render(fmt.Sprint(s.Cached)),
		progressLabelStyle.Render("failed"), styleNumber.Render(fmt.Sprint(s.Failed)),
	)
	fmt.Fprintf(&b, "  %s %s  %s %s  %s %s\n",
		progressLabelStyle.Render("queue"), styleNumber.Render(fmt.Sprintf("%d (peak %d)", s.QueueLen, s.QueueHighMark)),
		progressLabelStyle.Render("workers"), styleNumber.Render(fmt.Sprint(s.ActiveWorkers)),
		progressLabelStyle.Render("elapsed"), styleNumber.Render(s.Elapsed.Round(time.Second).String()),
	)

	if len(m.Matches) > 0 {
		b.WriteString("\n")
		for _, match := range m.Matches {
			b.WriteString("  " + progressMatchStyle.Render(iconSuccess+" "+match) + "\n")
		}
	}

	b.WriteString("\n")
	if m.Stopping && !m.Done {
		b.WriteString(styleDim.Render("  stopping..."))
	} else {
		b.WriteString(styleDim.Render("  q quit"))
	}
	b.WriteString("\n")
	return b.String()
}

// =============================================================================
// Hooks
// =============================================================================

// progressHooks forwards page and match events to a running program.
type progressHooks struct {
	observability.NoopScanHooks
	send func(tea.Msg)
}

func (h progressHooks) OnPageFetched(_ context.Context, skip, count int, _ time.Duration, err error) {
	if err == nil {
		h.send(pageMsg{skip: skip, count: count})
	}
}

func (h progressHooks) OnMatch(_ context.Context, id, version string, _ []string) {
	h.send(matchMsg{id: id, version: version})
}
