package progress

import (
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// ProgressTracker shows a spinner for the page being processed and an
// overall bar across all pages. A nil *ProgressTracker does nothing.
type ProgressTracker struct {
	out             io.Writer
	overallProgress progress.Model
	spin            *spinner.Spinner
	totalPages      int
	processedPages  int
	failedPages     int
	mu              sync.Mutex
}

// New creates a new ProgressTracker writing to out
func New(out io.Writer, totalPages int) *ProgressTracker {
	return &ProgressTracker{
		out:             out,
		overallProgress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spin:            spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(out)),
		totalPages:      totalPages,
	}
}

// SetTotalPages sets the total number of pages to process
func (p *ProgressTracker) SetTotalPages(total int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.totalPages = total
}

// StartProcessingPage spins while url is being processed
func (p *ProgressTracker) StartProcessingPage(url string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.spin.Suffix = fmt.Sprintf(" [%d/%d] %s", p.processedPages+1, p.totalPages, formatSpinnerMessage(url))
	p.spin.Start()
}

// FinishProcessingPage stops the spinner and redraws the overall bar
func (p *ProgressTracker) FinishProcessingPage(url string, ok bool) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.spin.Stop()
	p.processedPages++
	mark := okStyle.Render("✓")
	if !ok {
		p.failedPages++
		mark = failStyle.Render("✗")
	}

	fmt.Fprintf(p.out, "%s %s\n", mark, formatSpinnerMessage(url))
	if p.totalPages > 0 {
		fmt.Fprintf(p.out, "Progress: %s %d/%d pages\n",
			p.overallProgress.ViewAs(p.percent()),
			p.processedPages,
			p.totalPages)
	}
}

// Done prints the final success/failure line
func (p *ProgressTracker) Done(summaryPath string) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	line := okStyle.Render(fmt.Sprintf("%d succeeded", p.processedPages-p.failedPages))
	if p.failedPages > 0 {
		line += ", " + failStyle.Render(fmt.Sprintf("%d failed", p.failedPages))
	}
	if summaryPath != "" {
		line += dimStyle.Render(" (summary: " + summaryPath + ")")
	}
	fmt.Fprintln(p.out, line)
}

// GetProgress returns the current progress as a fraction
func (p *ProgressTracker) GetProgress() float64 {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.percent()
}

func (p *ProgressTracker) percent() float64 {
	if p.totalPages == 0 {
		return 0
	}
	return float64(p.processedPages) / float64(p.totalPages)
}

// formatSpinnerMessage shortens long URLs, keeping the host and the tail of
// the path
func formatSpinnerMessage(urlStr string) string {
	maxLen := 40
	if len(urlStr) <= maxLen {
		return urlStr
	}
	u, err := url.Parse(urlStr)
	if err == nil && len(u.Host) < maxLen-3 {
		domain := u.Host
		path := u.Path
		if len(path) > maxLen-len(domain)-3 {
			path = "..." + path[len(path)-(maxLen-len(domain)-3):]
		}
		return domain + path
	}
	return "..." + urlStr[len(urlStr)-maxLen:]
}
