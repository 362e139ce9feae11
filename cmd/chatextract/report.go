package main

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/go-scripts/chatextract/internal/runner"
	"github.com/go-scripts/chatextract/internal/types"
)

type probeOutcome struct {
	url    string
	result *runner.ProbeResult
	err    error
}

func renderProbes(w io.Writer, outcomes []probeOutcome) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"URL", "Status", "Final URL", "Title", "HTML bytes", "Saved"})
	for _, o := range outcomes {
		if o.err != nil {
			t.AppendRow(table.Row{o.url, "error", "", o.err.Error(), "", ""})
			continue
		}
		res := o.result
		t.AppendRow(table.Row{res.URL, res.StatusCode, res.FinalURL, res.Title, res.HTMLLength, res.HTMLFile})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()

	for _, o := range outcomes {
		if o.err != nil {
			continue
		}
		fmt.Fprintf(w, "\nHTML preview of %s (first 500 chars):\n%s\n", o.result.URL, o.result.Preview)
	}
}

func renderSummary(w io.Writer, s *types.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "URL", "Result", "Messages", "Detail"})
	for i, e := range s.Results {
		if !e.OK() {
			msg := ""
			if e.Failure != nil {
				msg = e.Failure.Error
			}
			t.AppendRow(table.Row{i + 1, e.URL(), "failed", "", msg})
			continue
		}
		t.AppendRow(table.Row{i + 1, e.URL(), e.Record.StatusCode, len(e.Record.Messages), e.Record.Strategy})
	}
	t.AppendFooter(table.Row{"", "Total", s.TotalURLs, "", fmt.Sprintf("%d ok, %d failed", s.Successful, s.Failed)})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
