package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/go-scripts/chatextract/internal/types"
)

const (
	claudeUserClass      = "font-user-message"
	claudeAssistantClass = "font-claude-message"
)

// Claude handles claude.ai share pages.
func Claude() *Extractor {
	return &Extractor{
		Name: "claude",
		Match: func(u *url.URL) bool {
			return hostIs(u, "claude.ai")
		},
		Cascade: Cascade{
			{Name: "font-classes", Run: claudeFontClasses},
			{Name: "main-leaves", Run: claudeMainLeaves},
			textBlocks("text-blocks", true, 20),
		},
	}
}

// claudeFontClasses relies on the font-* classes Claude puts on message
// bodies. Nested matches are folded into their outermost ancestor.
func claudeFontClasses(doc *goquery.Document) []types.Message {
	selector := "[class*='" + claudeUserClass + "'], [class*='" + claudeAssistantClass + "']"
	matches := doc.Find(selector)

	b := newBuilder(0)
	matches.Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered(selector).Length() > 0 {
			return
		}

		role := types.RoleAssistant
		if strings.Contains(classOf(s), claudeUserClass) {
			role = types.RoleUser
		}

		b.keepTurn(role, Text(s, "\n"), s)
	})
	return b.messages()
}

// claudeMainLeaves walks the divs under the main content area and keeps the
// ones that hold their own text rather than just wrapping other blocks.
// Roles alternate because the markup carries no reliable author hint.
func claudeMainLeaves(doc *goquery.Document) []types.Message {
	main := firstOf(doc, "main", "article", "#root", "body")
	if main == nil {
		return nil
	}

	b := newBuilder(0)
	main.ChildrenFiltered("div, section, article").Each(func(_ int, container *goquery.Selection) {
		container.Find("div").Each(func(_ int, div *goquery.Selection) {
			text := Text(div, "\n")
			if runeLen(text) < 10 {
				return
			}
			if isWrapper(div, text) {
				return
			}
			b.addTurn(b.nextRole(), text, div)
		})
	})
	return b.messages()
}

// isWrapper reports whether most of div's text lives in its element children.
func isWrapper(div *goquery.Selection, text string) bool {
	var childTexts []string
	div.Children().Each(func(_ int, c *goquery.Selection) {
		childTexts = append(childTexts, Text(c, ""))
	})
	if len(childTexts) == 0 {
		return false
	}
	return float64(runeLen(strings.Join(childTexts, " "))) > float64(runeLen(text))*0.8
}

func firstOf(doc *goquery.Document, selectors ...string) *goquery.Selection {
	for _, selector := range selectors {
		if s := doc.Find(selector).First(); s.Length() > 0 {
			return s
		}
	}
	return nil
}
