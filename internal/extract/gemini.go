package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/go-scripts/chatextract/internal/types"
)

// messageSelectors are the selector guesses shared by the Gemini and generic
// cascades, most specific first.
var messageSelectors = []string{
	".conversation-turn",
	`[class*="message"]`,
	`[class*="chat"]`,
	"[data-message-author]",
	".model-response-text",
	".user-query",
}

// Gemini handles gemini.google.com share pages and their g.co short links.
func Gemini() *Extractor {
	return &Extractor{
		Name: "gemini",
		Match: func(u *url.URL) bool {
			if hostIs(u, "gemini.google.com") {
				return true
			}
			return hostIs(u, "g.co") && strings.HasPrefix(u.Path, "/gemini/")
		},
		Cascade: Cascade{
			{Name: "share-turn-viewer", Run: geminiTurnViewers},
			selectorGuesses("selector-guesses", messageSelectors, 10),
			textBlocks("text-blocks", false, 20),
		},
	}
}

// geminiTurnViewers reads the share-turn-viewer elements. Each one holds a
// user-query and a message-content with the rendered response.
func geminiTurnViewers(doc *goquery.Document) []types.Message {
	b := newBuilder(0)
	doc.Find("share-turn-viewer").Each(func(turn int, viewer *goquery.Selection) {
		query := viewer.Find("user-query").First().Find("div.query-text").First()
		if query.Length() > 0 {
			if text := Text(query, "\n"); text != "" {
				b.keep(types.Message{
					Turn:    types.Turn(turn),
					Role:    types.RoleUser,
					Content: text,
				})
			}
		}

		response := viewer.Find("message-content").First().Find("div.markdown").First()
		if response.Length() == 0 {
			return
		}
		markdown := Markdown(response)
		if markdown == "" {
			return
		}
		b.keep(types.Message{
			Turn:            types.Turn(turn),
			Role:            types.RoleAssistant,
			Content:         Text(response, "\n"),
			ContentMarkdown: markdown,
			Links:           Links(response),
		})
	})
	return b.messages()
}
