package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/go-scripts/chatextract/internal/types"
)

var converter = md.NewConverter("", true, &md.Options{HeadingStyle: "atx"})

// Text joins the stripped, non-empty text nodes under sel with sep. Script,
// style, noscript and template contents are skipped.
func Text(sel *goquery.Selection, sep string) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, sep)
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Template:
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}

// Markdown renders sel as markdown with ATX headings.
func Markdown(sel *goquery.Selection) string {
	return strings.TrimSpace(converter.Convert(sel))
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, s)
}

// Links returns the anchors under sel that have both text and an href.
func Links(sel *goquery.Selection) []types.Link {
	var links []types.Link
	sel.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)

		text := removeNonPrintable(Text(a, " "))
		text = innerWhitespace.ReplaceAllString(strings.TrimSpace(text), " ")

		if text == "" || href == "" {
			return
		}
		links = append(links, types.Link{Text: text, URL: href})
	})
	return links
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func truncate(s string, n int) string {
	if runeLen(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
