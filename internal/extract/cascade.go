package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/go-scripts/chatextract/internal/types"
)

// maxFallbackMessages caps the text-block strategies, which otherwise pick up
// every paragraph on the page.
const maxFallbackMessages = 50

// Strategy is one guess about where the messages live in a page.
type Strategy struct {
	Name string
	Run  func(doc *goquery.Document) []types.Message
}

// Cascade is an ordered list of strategies. The first one that yields at
// least one message wins.
type Cascade []Strategy

// Apply runs the cascade and returns the winning messages and strategy name.
// The returned slice is never nil.
func (c Cascade) Apply(doc *goquery.Document) ([]types.Message, string) {
	for _, s := range c {
		if msgs := s.Run(doc); len(msgs) > 0 {
			return msgs, s.Name
		}
	}
	return []types.Message{}, ""
}

// builder accumulates messages, assigning indexes and dropping repeated text.
type builder struct {
	msgs  []types.Message
	seen  map[string]struct{}
	turns int
	limit int
}

func newBuilder(limit int) *builder {
	return &builder{
		msgs:  []types.Message{},
		seen:  make(map[string]struct{}),
		limit: limit,
	}
}

func (b *builder) full() bool {
	return b.limit > 0 && len(b.msgs) >= b.limit
}

func (b *builder) has(content string) bool {
	_, ok := b.seen[content]
	return ok
}

// add appends m unless its content is empty or already seen.
func (b *builder) add(m types.Message) bool {
	if b.has(m.Content) {
		return false
	}
	return b.keep(m)
}

// keep appends m even when the same content was seen before. Strategies that
// read roles from the markup use it so repeated prompts are not lost.
func (b *builder) keep(m types.Message) bool {
	if m.Content == "" || b.full() {
		return false
	}
	m.Index = len(b.msgs)
	b.seen[m.Content] = struct{}{}
	b.msgs = append(b.msgs, m)
	return true
}

// nextRole alternates with the last accepted message, starting with the user.
func (b *builder) nextRole() types.Role {
	if len(b.msgs) == 0 || b.msgs[len(b.msgs)-1].Role != types.RoleUser {
		return types.RoleUser
	}
	return types.RoleAssistant
}

// addTurn appends a message that takes part in user/assistant turn
// numbering. Assistant messages carry markdown and links and close the turn.
func (b *builder) addTurn(role types.Role, content string, sel *goquery.Selection) bool {
	return b.turn(b.add, role, content, sel)
}

// keepTurn is addTurn without the seen-text check.
func (b *builder) keepTurn(role types.Role, content string, sel *goquery.Selection) bool {
	return b.turn(b.keep, role, content, sel)
}

func (b *builder) turn(push func(types.Message) bool, role types.Role, content string, sel *goquery.Selection) bool {
	m := types.Message{
		Turn:    types.Turn(b.turns),
		Role:    role,
		Content: content,
	}
	if role == types.RoleAssistant && sel != nil {
		m.ContentMarkdown = Markdown(sel)
		m.Links = Links(sel)
	}
	if !push(m) {
		return false
	}
	if role == types.RoleAssistant {
		b.turns++
	}
	return true
}

func (b *builder) messages() []types.Message {
	return b.msgs
}

func classOf(sel *goquery.Selection) string {
	class, _ := sel.Attr("class")
	return strings.Join(strings.Fields(class), " ")
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

var (
	userClassKeywords      = []string{"user", "prompt", "query"}
	assistantClassKeywords = []string{"model", "response", "assistant"}
)

// roleFromClass guesses a role from class names.
func roleFromClass(class string) types.Role {
	class = strings.ToLower(class)
	switch {
	case containsAny(class, userClassKeywords):
		return types.RoleUser
	case containsAny(class, assistantClassKeywords):
		return types.RoleAssistant
	}
	return types.RoleUnknown
}

// selectorGuesses tries each selector in order and keeps the hits of the
// first selector that produced messages. Roles come from class names.
func selectorGuesses(name string, selectors []string, minLen int) Strategy {
	return Strategy{
		Name: name,
		Run: func(doc *goquery.Document) []types.Message {
			for _, selector := range selectors {
				b := newBuilder(0)
				doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
					text := Text(s, "\n")
					if runeLen(text) <= minLen {
						return
					}
					role := roleFromClass(classOf(s))
					m := types.Message{Role: role, Content: text}
					if role == types.RoleAssistant {
						m.ContentMarkdown = Markdown(s)
						m.Links = Links(s)
					}
					b.add(m)
				})
				if msgs := b.messages(); len(msgs) > 0 {
					return msgs
				}
			}
			return nil
		},
	}
}

// classKeywords keeps elements whose class mentions one of keywords.
func classKeywords(name, selector string, keywords []string, minLen int) Strategy {
	return Strategy{
		Name: name,
		Run: func(doc *goquery.Document) []types.Message {
			b := newBuilder(0)
			doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
				if !containsAny(strings.ToLower(classOf(s)), keywords) {
					return
				}
				text := Text(s, "\n")
				if runeLen(Text(s, "")) <= minLen {
					return
				}
				b.add(types.Message{Role: types.RoleUnknown, Content: text})
			})
			return b.messages()
		},
	}
}

// textBlocks is the last resort: every p, div or span with enough text. With
// alternate set, roles alternate starting with the user.
func textBlocks(name string, alternate bool, minLen int) Strategy {
	return Strategy{
		Name: name,
		Run: func(doc *goquery.Document) []types.Message {
			b := newBuilder(maxFallbackMessages)
			doc.Find("p, div, span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
				text := Text(s, "\n")
				if runeLen(text) < minLen {
					return true
				}
				if alternate {
					b.addTurn(b.nextRole(), text, s)
				} else {
					b.add(types.Message{Role: types.RoleUnknown, Content: text})
				}
				return !b.full()
			})
			return b.messages()
		},
	}
}
