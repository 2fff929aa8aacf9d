package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Status is the lifecycle state of one invocation.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Indicator prints invocation status lines and the final run summary.
type Indicator struct {
	writer io.Writer
	styles styles
	mu     sync.Mutex
}

// Config holds configuration for progress indicator
type Config struct {
	Writer io.Writer
}

type styles struct {
	running   lipgloss.Style
	completed lipgloss.Style
	failed    lipgloss.Style
	skipped   lipgloss.Style
	title     lipgloss.Style
	label     lipgloss.Style
	box       lipgloss.Style
}

// NewIndicator creates a new progress indicator. Colors follow the
// capabilities of the writer.
func NewIndicator(cfg Config) *Indicator {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}
	r := lipgloss.NewRenderer(cfg.Writer)
	return &Indicator{
		writer: cfg.Writer,
		styles: styles{
			running:   r.NewStyle().Foreground(lipgloss.Color("86")),
			completed: r.NewStyle().Foreground(lipgloss.Color("46")),
			failed:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
			skipped:   r.NewStyle().Foreground(lipgloss.Color("214")),
			title:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
			label:     r.NewStyle().Foreground(lipgloss.Color("241")),
			box:       r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1),
		},
	}
}

// Update prints one status line for an invocation.
func (p *Indicator) Update(id string, status Status, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	symbol, style := "⟲", p.styles.running
	switch status {
	case StatusRunning:
		symbol = "▶"
	case StatusCompleted:
		symbol, style = "✓", p.styles.completed
	case StatusFailed:
		symbol, style = "✗", p.styles.failed
	case StatusSkipped:
		symbol, style = "⊘", p.styles.skipped
	}

	msg := fmt.Sprintf("%s %s [%s]", symbol, id, status)
	if err != nil {
		msg += fmt.Sprintf(" - %v", err)
	}
	fmt.Fprintln(p.writer, style.Render(msg))
}

// Summary is the outcome of a run as shown to the user.
type Summary struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Duration  time.Duration
	// Failures describe each failed invocation.
	Failures []string
}

// SuccessRate returns the succeeded share of all invocations in percent.
func (s Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 100
	}
	return float64(s.Succeeded) / float64(s.Total) * 100
}

// PrintSummary prints final execution summary
func (p *Indicator) PrintSummary(s Summary) {
	p.mu.Lock()
	defer p.mu.Unlock()

	row := func(label, value string) string {
		return p.styles.label.Render(fmt.Sprintf("%-14s", label)) + value
	}

	lines := []string{
		p.styles.title.Render("Execution Summary"),
		row("Run:", s.RunID),
		row("Invocations:", fmt.Sprintf("%d", s.Total)),
		row("Succeeded:", p.styles.completed.Render(fmt.Sprintf("%d ✓", s.Succeeded))),
		row("Failed:", p.styles.failed.Render(fmt.Sprintf("%d ✗", s.Failed))),
		row("Skipped:", p.styles.skipped.Render(fmt.Sprintf("%d ⊘", s.Skipped))),
		row("Success Rate:", fmt.Sprintf("%.1f%%", s.SuccessRate())),
		row("Total Time:", formatDuration(s.Duration)),
	}
	fmt.Fprintln(p.writer, p.styles.box.Render(strings.Join(lines, "\n")))

	if len(s.Failures) > 0 {
		fmt.Fprintln(p.writer, p.styles.failed.Render("Failed Invocations:"))
		for _, f := range s.Failures {
			fmt.Fprintf(p.writer, "  ✗ %s\n", f)
		}
	}
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
