package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker(t *testing.T) {
	var out bytes.Buffer
	p := New(&out, 2)

	p.StartProcessingPage("https://claude.ai/share/a")
	p.FinishProcessingPage("https://claude.ai/share/a", true)
	assert.InDelta(t, 0.5, p.GetProgress(), 0.0001)

	p.StartProcessingPage("https://claude.ai/share/b")
	p.FinishProcessingPage("https://claude.ai/share/b", false)
	assert.InDelta(t, 1.0, p.GetProgress(), 0.0001)

	p.Done("output/summary_20250101_000000.json")

	text := out.String()
	assert.Contains(t, text, "1/2 pages")
	assert.Contains(t, text, "2/2 pages")
	assert.Contains(t, text, "1 succeeded")
	assert.Contains(t, text, "1 failed")
	assert.Contains(t, text, "summary_20250101_000000.json")
}

func TestNilTrackerIsNoop(t *testing.T) {
	var p *ProgressTracker

	assert.NotPanics(t, func() {
		p.SetTotalPages(3)
		p.StartProcessingPage("https://example.com")
		p.FinishProcessingPage("https://example.com", true)
		p.Done("")
	})
	assert.Zero(t, p.GetProgress())
}

func TestFormatSpinnerMessage(t *testing.T) {
	assert.Equal(t, "https://g.co/gemini/share/x", formatSpinnerMessage("https://g.co/gemini/share/x"))

	long := "https://claude.ai/share/62bc6fc6-d53a-4f65-8ad3-f42bb8941952"
	got := formatSpinnerMessage(long)
	assert.True(t, strings.HasPrefix(got, "claude.ai..."), got)
	assert.True(t, strings.HasSuffix(got, "f42bb8941952"), got)
	assert.Len(t, got, 40)
}
