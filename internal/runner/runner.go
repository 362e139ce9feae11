// Package runner drives the per-URL pipeline: capture the page, save its
// artifacts, extract the conversation and record the outcome.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/go-scripts/chatextract/internal/browser"
	"github.com/go-scripts/chatextract/internal/extract"
	"github.com/go-scripts/chatextract/internal/progress"
	"github.com/go-scripts/chatextract/internal/types"
	"github.com/go-scripts/chatextract/internal/writer"
)

const probePreviewLimit = 500

// ErrUnexpectedStatus is returned when the main document response is not 2xx.
var ErrUnexpectedStatus = errors.New("unexpected status code")

// Fetcher loads and captures a page. *browser.Browser implements it.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts ...browser.FetchOption) (*browser.Page, error)
}

// Runner processes share URLs one after another
type Runner struct {
	fetcher  Fetcher
	registry *extract.Registry
	writer   *writer.FileWriter
	logger   *log.Logger
	progress *progress.ProgressTracker
	now      func() time.Time
}

// Option configures a Runner
type Option func(*Runner)

// WithProgress reports each URL to p.
func WithProgress(p *progress.ProgressTracker) Option {
	return func(r *Runner) { r.progress = p }
}

// WithRegistry replaces the default provider registry.
func WithRegistry(reg *extract.Registry) Option {
	return func(r *Runner) { r.registry = reg }
}

// WithClock replaces time.Now for record and summary timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New creates a Runner
func New(f Fetcher, w *writer.FileWriter, logger *log.Logger, opts ...Option) *Runner {
	r := &Runner{
		fetcher:  f,
		registry: extract.DefaultRegistry(),
		writer:   w,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run extracts every URL in order and writes the run summary. Per-URL
// failures are recorded in the summary; only a summary write failure is
// returned.
func (r *Runner) Run(ctx context.Context, urls []string) (*types.Summary, string, error) {
	summary := types.NewSummary(r.now())
	r.progress.SetTotalPages(len(urls))

	for _, u := range urls {
		r.progress.StartProcessingPage(u)
		entry := r.ExtractOne(ctx, u)
		summary.Add(entry)
		r.progress.FinishProcessingPage(u, entry.OK())
	}

	path, err := r.writer.WriteSummary(summary)
	if err != nil {
		return summary, "", err
	}
	r.progress.Done(path)
	r.logger.Info("Run complete",
		"total", summary.TotalURLs,
		"successful", summary.Successful,
		"failed", summary.Failed,
		"summary", path)
	return summary, path, nil
}

// ExtractOne processes one URL and writes <slug>_chat.json. Any error is
// turned into a failure entry.
func (r *Runner) ExtractOne(ctx context.Context, url string) types.Entry {
	rec, err := r.capture(ctx, url)
	if err == nil {
		_, err = r.writer.WriteChat(writer.Slug(url), rec)
	}
	if err != nil {
		r.logger.Error("Extraction failed", "url", url, "err", err)
		return types.Failed(url, err)
	}
	return types.Succeeded(rec)
}

// ExtractTo processes one URL like ExtractOne and also writes the record, or
// the error record, to path. No summary is written.
func (r *Runner) ExtractTo(ctx context.Context, url, path string) (types.Entry, error) {
	entry := r.ExtractOne(ctx, url)
	if err := writer.WriteJSON(path, entry); err != nil {
		return entry, err
	}
	r.logger.Info("Wrote result", "url", url, "file", path)
	return entry, nil
}

func (r *Runner) capture(ctx context.Context, url string) (*types.ChatRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("not started: %w", err)
	}

	r.logger.Info("Fetching", "url", url)
	page, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	slug := writer.Slug(url)
	htmlFile, err := r.writer.WriteHTML(slug, page.HTML)
	if err != nil {
		return nil, err
	}
	var screenshotFile string
	if len(page.Screenshot) > 0 {
		screenshotFile, err = r.writer.WriteScreenshot(slug, page.Screenshot)
		if err != nil {
			r.logger.Warn("Could not save screenshot", "url", url, "err", err)
			screenshotFile = ""
		}
	}

	// 0 means the response was not observed
	if page.StatusCode != 0 && (page.StatusCode < 200 || page.StatusCode > 299) {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, page.StatusCode)
	}

	ex := r.registry.For(url, page.FinalURL)
	res, err := ex.Extract(page.HTML)
	if err != nil {
		return nil, err
	}

	rec := &types.ChatRecord{
		URL:            url,
		FinalURL:       page.FinalURL,
		Provider:       ex.Name,
		Strategy:       res.Strategy,
		Timestamp:      r.now(),
		PageTitle:      extract.TitleOr(res.Title, page.Title),
		StatusCode:     page.StatusCode,
		Messages:       res.Messages,
		TextPreview:    res.Preview,
		HTMLFile:       htmlFile,
		ScreenshotFile: screenshotFile,
	}

	logger := r.logger.With("url", url, "status", page.StatusCode, "messages", len(res.Messages))
	if len(res.Messages) == 0 {
		logger.Warn("No messages found", "provider", ex.Name)
	} else {
		logger.Info("Extracted chat", "provider", ex.Name, "strategy", res.Strategy)
	}
	return rec, nil
}

// ProbeResult describes what a plain page load returned
type ProbeResult struct {
	URL        string
	FinalURL   string
	StatusCode int
	Title      string
	HTMLLength int
	Preview    string
	HTMLFile   string
}

// Probe loads url without scrolling, screenshots or extraction and saves
// <slug>_probe.html.
func (r *Runner) Probe(ctx context.Context, url string) (*ProbeResult, error) {
	page, err := r.fetcher.Fetch(ctx, url, browser.Light())
	if err != nil {
		return nil, err
	}

	htmlFile, err := r.writer.WriteProbeHTML(writer.Slug(url), page.HTML)
	if err != nil {
		return nil, err
	}

	preview := []rune(page.HTML)
	if len(preview) > probePreviewLimit {
		preview = preview[:probePreviewLimit]
	}

	res := &ProbeResult{
		URL:        url,
		FinalURL:   page.FinalURL,
		StatusCode: page.StatusCode,
		Title:      page.Title,
		HTMLLength: len(page.HTML),
		Preview:    string(preview),
		HTMLFile:   htmlFile,
	}
	r.logger.Info("Probed", "url", url, "status", res.StatusCode, "final_url", res.FinalURL, "bytes", res.HTMLLength)
	return res, nil
}
