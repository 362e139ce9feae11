package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/go-scripts/chatextract/internal/browser"
	"github.com/go-scripts/chatextract/internal/config"
	"github.com/go-scripts/chatextract/internal/progress"
	"github.com/go-scripts/chatextract/internal/runner"
	"github.com/go-scripts/chatextract/internal/writer"
)

// Globals are the flags shared by every command
type Globals struct {
	Config       string        `help:"Path to configuration file" default:"chatextract.json5" type:"path"`
	Verbose      bool          `help:"Enable debug logging" short:"v"`
	Quiet        bool          `help:"Only log warnings and errors, no progress output" short:"q"`
	OutputDir    string        `help:"Directory for extracted artifacts" short:"o"`
	NoScreenshot bool          `help:"Do not save full-page screenshots"`
	Headful      bool          `help:"Show the browser window"`
	Timeout      time.Duration `help:"Navigation timeout (e.g. 30s)"`
	Settle       time.Duration `help:"Delay after load before scrolling (e.g. 5s)"`
	MaxScrolls   int           `help:"Maximum scroll attempts for lazy content" default:"-1"`
}

// CLI is the command line of chatextract
type CLI struct {
	Globals

	Extract ExtractCmd `cmd:"" default:"withargs" help:"Extract conversations from share pages (default)"`
	Probe   ProbeCmd   `cmd:"" help:"Load share pages and report what the server returned"`
}

// ExtractCmd extracts one or more share URLs
type ExtractCmd struct {
	OutputFile string   `help:"Write the single URL's record to this file instead of a run summary" short:"f"`
	URLs       []string `arg:"" optional:"" name:"url" help:"Share URLs; a second non-URL argument is taken as the output file"`
}

// ProbeCmd checks that share URLs can be reached
type ProbeCmd struct {
	URLs []string `arg:"" optional:"" name:"url" help:"Share URLs to probe"`
}

type app struct {
	ctx    context.Context
	cfg    config.Config
	logger *log.Logger
	out    io.Writer
	quiet  bool
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// resolveArgs supports `chatextract URL OUTPUT.json`.
func (c *ExtractCmd) resolveArgs() error {
	if c.OutputFile == "" && len(c.URLs) == 2 && !isHTTPURL(c.URLs[1]) {
		c.OutputFile = c.URLs[1]
		c.URLs = c.URLs[:1]
	}
	if c.OutputFile != "" && len(c.URLs) != 1 {
		return fmt.Errorf("--output-file needs exactly one URL, got %d", len(c.URLs))
	}
	return nil
}

func (c *ExtractCmd) Run(a *app) error {
	if err := c.resolveArgs(); err != nil {
		return err
	}
	urls := c.URLs
	if len(urls) == 0 {
		urls = a.cfg.URLs
	}

	b, w, err := a.setup()
	if err != nil {
		return err
	}
	defer b.Close()

	var opts []runner.Option
	if !a.quiet {
		opts = append(opts, runner.WithProgress(progress.New(a.out, len(urls))))
	}
	r := runner.New(b, w, a.logger, opts...)

	if c.OutputFile != "" {
		_, err := r.ExtractTo(a.ctx, urls[0], c.OutputFile)
		return err
	}

	a.logger.Info("Extracting chat history", "urls", len(urls), "output", w.Dir())
	summary, _, err := r.Run(a.ctx, urls)
	if err != nil {
		return err
	}
	if !a.quiet {
		renderSummary(a.out, summary)
	}
	return nil
}

func (c *ProbeCmd) Run(a *app) error {
	urls := c.URLs
	if len(urls) == 0 {
		urls = a.cfg.URLs
	}

	b, w, err := a.setup()
	if err != nil {
		return err
	}
	defer b.Close()

	r := runner.New(b, w, a.logger)
	outcomes := make([]probeOutcome, 0, len(urls))
	for _, u := range urls {
		res, err := r.Probe(a.ctx, u)
		if err != nil {
			a.logger.Error("Probe failed", "url", u, "err", err)
		}
		outcomes = append(outcomes, probeOutcome{url: u, result: res, err: err})
	}
	renderProbes(a.out, outcomes)
	return nil
}

func (a *app) setup() (*browser.Browser, *writer.FileWriter, error) {
	w, err := writer.New(a.cfg.OutputDir)
	if err != nil {
		return nil, nil, err
	}
	opts, err := a.cfg.BrowserOptions()
	if err != nil {
		return nil, nil, err
	}
	b, err := browser.New(a.ctx, opts, a.logger)
	if err != nil {
		return nil, nil, err
	}
	return b, w, nil
}

// applyFlags lets command line flags override the loaded configuration.
func (g *Globals) applyFlags(cfg *config.Config) {
	if g.OutputDir != "" {
		cfg.OutputDir = g.OutputDir
	}
	if g.NoScreenshot {
		cfg.NoScreenshot = true
	}
	if g.Headful {
		cfg.Headful = true
	}
	if g.Timeout > 0 {
		cfg.NavigationTimeout = g.Timeout.String()
	}
	if g.Settle > 0 {
		cfg.SettleDelay = g.Settle.String()
	}
	if g.MaxScrolls >= 0 {
		n := g.MaxScrolls
		cfg.MaxScrolls = &n
	}
}

func newLogger(g *Globals) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "chatextract",
	})
	switch {
	case g.Verbose:
		logger.SetLevel(log.DebugLevel)
	case g.Quiet:
		logger.SetLevel(log.WarnLevel)
	}
	return logger
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("chatextract"),
		kong.Description("Extract conversations from shared Claude and Gemini chat pages."),
		kong.UsageOnError(),
	)

	logger := newLogger(&cli.Globals)
	log.SetDefault(logger)

	cfg, err := config.Load(cli.Config)
	kctx.FatalIfErrorf(err)
	cli.applyFlags(&cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = kctx.Run(&app{
		ctx:    ctx,
		cfg:    cfg,
		logger: logger,
		out:    os.Stdout,
		quiet:  cli.Quiet,
	})
	if errors.Is(err, context.Canceled) {
		logger.Warn("Interrupted")
	}
	kctx.FatalIfErrorf(err)
}
