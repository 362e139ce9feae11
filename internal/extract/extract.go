// Package extract turns rendered share-page HTML into chat messages using
// per-provider heuristic cascades. The heuristics track third-party markup
// and are expected to need updates whenever the providers change their pages.
package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/go-scripts/chatextract/internal/types"
)

const (
	noTitle        = "No title"
	previewLimit   = 2000
	genericMinText = 30
)

var genericClassKeywords = []string{"message", "chat", "conversation", "turn", "response", "query"}

// Extractor is a provider adapter.
type Extractor struct {
	Name    string
	Match   func(u *url.URL) bool
	Cascade Cascade
}

// Result is what an extractor found in a page
type Result struct {
	Title    string
	Messages []types.Message
	Strategy string
	// Preview holds the start of the body text when no messages were found.
	Preview string
}

// Extract parses page and runs the cascade.
func (e *Extractor) Extract(page string) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	msgs, strategy := e.Cascade.Apply(doc)
	res := &Result{
		Title:    strings.TrimSpace(doc.Find("title").First().Text()),
		Messages: msgs,
		Strategy: strategy,
	}
	if len(msgs) == 0 {
		res.Preview = truncate(Text(doc.Find("body"), "\n"), previewLimit)
	}
	return res, nil
}

// Generic is used for hosts no provider adapter claims.
func Generic() *Extractor {
	return &Extractor{
		Name:  "generic",
		Match: func(*url.URL) bool { return true },
		Cascade: Cascade{
			classKeywords("class-keywords", "div, p, article, section", genericClassKeywords, genericMinText),
			selectorGuesses("selector-guesses", messageSelectors, 10),
			textBlocks("text-blocks", false, 20),
		},
	}
}

// Registry picks the adapter for a URL.
type Registry struct {
	extractors []*Extractor
	fallback   *Extractor
}

// NewRegistry builds a registry that tries extractors in order and falls
// back to Generic.
func NewRegistry(extractors ...*Extractor) *Registry {
	return &Registry{extractors: extractors, fallback: Generic()}
}

// DefaultRegistry knows Claude and Gemini.
func DefaultRegistry() *Registry {
	return NewRegistry(Claude(), Gemini())
}

// For returns the adapter for the requested URL, or for the URL the browser
// ended up on after redirects.
func (r *Registry) For(rawURL, finalURL string) *Extractor {
	for _, candidate := range []string{rawURL, finalURL} {
		if candidate == "" {
			continue
		}
		u, err := url.Parse(candidate)
		if err != nil {
			continue
		}
		for _, e := range r.extractors {
			if e.Match(u) {
				return e
			}
		}
	}
	return r.fallback
}

func hostIs(u *url.URL, host string) bool {
	h := strings.ToLower(u.Hostname())
	return h == host || strings.HasSuffix(h, "."+host)
}

// TitleOr returns title, or fallback, or "No title".
func TitleOr(title, fallback string) string {
	if title != "" {
		return title
	}
	if fallback = strings.TrimSpace(fallback); fallback != "" {
		return fallback
	}
	return noTitle
}
