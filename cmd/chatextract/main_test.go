package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-scripts/chatextract/internal/config"
	"github.com/go-scripts/chatextract/internal/runner"
	"github.com/go-scripts/chatextract/internal/types"
)

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("chatextract"), kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	return &cli, kctx
}

func TestParseCommands(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		command string
		urls    []string
	}{
		{name: "no args", args: nil, command: "extract"},
		{name: "bare urls", args: []string{"https://claude.ai/share/a", "https://g.co/gemini/share/b"}, command: "extract", urls: []string{"https://claude.ai/share/a", "https://g.co/gemini/share/b"}},
		{name: "explicit extract", args: []string{"extract", "-f", "out.json", "https://claude.ai/share/a"}, command: "extract", urls: []string{"https://claude.ai/share/a"}},
		{name: "probe", args: []string{"probe", "https://claude.ai/share/a"}, command: "probe", urls: []string{"https://claude.ai/share/a"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cli, kctx := parse(t, tc.args...)
			assert.True(t, strings.HasPrefix(kctx.Command(), tc.command), kctx.Command())
			if tc.command == "probe" {
				assert.ElementsMatch(t, tc.urls, cli.Probe.URLs)
			} else {
				assert.ElementsMatch(t, tc.urls, cli.Extract.URLs)
			}
		})
	}
}

func TestResolveArgs(t *testing.T) {
	testCases := []struct {
		name       string
		cmd        ExtractCmd
		wantURLs   []string
		wantOutput string
		wantErr    bool
	}{
		{
			name:       "url and output file",
			cmd:        ExtractCmd{URLs: []string{"https://claude.ai/share/a", "out.json"}},
			wantURLs:   []string{"https://claude.ai/share/a"},
			wantOutput: "out.json",
		},
		{
			name:     "two urls",
			cmd:      ExtractCmd{URLs: []string{"https://claude.ai/share/a", "http://g.co/gemini/share/b"}},
			wantURLs: []string{"https://claude.ai/share/a", "http://g.co/gemini/share/b"},
		},
		{
			name:       "flag",
			cmd:        ExtractCmd{OutputFile: "out.json", URLs: []string{"https://claude.ai/share/a"}},
			wantURLs:   []string{"https://claude.ai/share/a"},
			wantOutput: "out.json",
		},
		{
			name:    "flag with two urls",
			cmd:     ExtractCmd{OutputFile: "out.json", URLs: []string{"https://claude.ai/share/a", "https://claude.ai/share/b"}},
			wantErr: true,
		},
		{
			name:    "flag without url",
			cmd:     ExtractCmd{OutputFile: "out.json"},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cmd.resolveArgs()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantURLs, tc.cmd.URLs)
			assert.Equal(t, tc.wantOutput, tc.cmd.OutputFile)
		})
	}
}

func TestApplyFlags(t *testing.T) {
	cli, _ := parse(t, "-o", "runs", "--no-screenshot", "--timeout", "10s", "--max-scrolls", "0", "https://claude.ai/share/a")

	cfg := config.Default()
	cli.applyFlags(&cfg)

	assert.Equal(t, "runs", cfg.OutputDir)
	assert.True(t, cfg.NoScreenshot)
	assert.False(t, cfg.Headful)
	assert.Equal(t, "10s", cfg.NavigationTimeout)
	assert.Equal(t, "5s", cfg.SettleDelay)
	require.NotNil(t, cfg.MaxScrolls)
	assert.Equal(t, 0, *cfg.MaxScrolls)

	opts, err := cfg.BrowserOptions()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, opts.NavigationTimeout)
	assert.Zero(t, opts.MaxScrolls)
}

func TestApplyFlagsKeepsConfig(t *testing.T) {
	cli, _ := parse(t)

	cfg := config.Default()
	cli.applyFlags(&cfg)
	assert.Equal(t, config.Default(), cfg)
}

func TestRenderProbes(t *testing.T) {
	var out bytes.Buffer
	renderProbes(&out, []probeOutcome{
		{
			url: "https://g.co/gemini/share/abc",
			result: &runner.ProbeResult{
				URL:        "https://g.co/gemini/share/abc",
				FinalURL:   "https://gemini.google.com/share/abc",
				StatusCode: 200,
				Title:      "Gemini",
				HTMLLength: 1234,
				Preview:    "<html><body>hello",
				HTMLFile:   "output/abc_probe.html",
			},
		},
		{url: "https://claude.ai/share/down", err: errors.New("navigation failed")},
	})

	text := out.String()
	assert.Contains(t, text, "https://gemini.google.com/share/abc")
	assert.Contains(t, text, "1234")
	assert.Contains(t, text, "output/abc_probe.html")
	assert.Contains(t, text, "navigation failed")
	assert.Contains(t, text, "<html><body>hello")
	assert.Contains(t, text, "╭")
}

func TestRenderSummary(t *testing.T) {
	s := types.NewSummary(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	s.Add(types.Succeeded(&types.ChatRecord{
		URL:        "https://claude.ai/share/abc",
		StatusCode: 200,
		Strategy:   "font-classes",
		Messages:   []types.Message{{Role: types.RoleUser, Content: "hi"}},
	}))
	s.Add(types.Failed("https://g.co/gemini/share/xyz", errors.New("unexpected status code: 404")))

	var out bytes.Buffer
	renderSummary(&out, s)

	text := out.String()
	assert.Contains(t, text, "font-classes")
	assert.Contains(t, text, "https://g.co/gemini/share/xyz")
	assert.Contains(t, text, "unexpected status code: 404")
	assert.Contains(t, text, "1 OK, 1 FAILED")
}
