// =============================================================================
// sanitize.go - Text sanitizer
// =============================================================================
//
// Clean turns feed HTML into plain text:
//
//  1. Parse with goquery (falls back to regex stripping if parsing fails)
//  2. Drop script/style/nav/footer/aside subtrees and boilerplate blocks
//  3. Emit text, breaking lines at block elements
//  4. Fix encoding artifacts (NBSP, zero-width, control chars, NFC)
//  5. Collapse 2+ spaces to one and 3+ newlines to exactly two
//
// =============================================================================
package pipeline

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	nethtml "golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

var (
	reScriptTags    = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	reHTMLTags      = regexp.MustCompile(`<[^>]*>`)
	reMultiSpace    = regexp.MustCompile(` {2,}`)
	reSpaceAroundNL = regexp.MustCompile(` *\n *`)
	reManyNewlines  = regexp.MustCompile(`\n{3,}`)
)

// nonContentSelector lists subtrees that never carry article text.
const nonContentSelector = "script, style, nav, footer, aside, noscript, iframe, form"

// boilerplateSelector lists common ad/share/sidebar containers.
const boilerplateSelector = ".advertisement, .ads, .social-share, .share, .related-posts, .sidebar"

// paragraphBreak and lineBreak elements split text into paragraphs/lines.
var (
	paragraphBreak = map[string]bool{
		"p": true, "div": true, "section": true, "article": true, "main": true,
		"header": true, "blockquote": true, "pre": true, "figure": true,
		"figcaption": true, "table": true, "ul": true, "ol": true, "hr": true,
		"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	}
	lineBreak = map[string]bool{
		"li": true, "tr": true, "dt": true, "dd": true,
	}
)

// Clean strips markup from raw and returns normalized plain text. It never
// fails; empty input yields "".
func Clean(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return normalizeText(stripTags(raw))
	}
	doc.Find(nonContentSelector).Remove()
	doc.Find(boilerplateSelector).Remove()

	var b strings.Builder
	for _, n := range doc.Selection.Nodes {
		writeBlockText(&b, n)
	}
	return normalizeText(b.String())
}

// stripTags is the regex fallback used when the HTML parser gives up.
func stripTags(raw string) string {
	text := reScriptTags.ReplaceAllString(raw, "")
	text = reHTMLTags.ReplaceAllString(text, " ")
	return html.UnescapeString(text)
}

// writeBlockText renders n as text. Source whitespace inside text nodes is
// insignificant (as in a browser); only block boundaries and <br> produce
// line breaks.
func writeBlockText(b *strings.Builder, n *nethtml.Node) {
	switch n.Type {
	case nethtml.TextNode:
		b.WriteString(strings.Map(func(r rune) rune {
			if r == '\n' || r == '\r' || r == '\t' {
				return ' '
			}
			return r
		}, n.Data))
		return
	case nethtml.CommentNode, nethtml.DoctypeNode:
		return
	case nethtml.ElementNode:
		if n.Data == "br" {
			b.WriteString("\n")
			return
		}
	}

	sep := ""
	if n.Type == nethtml.ElementNode {
		switch {
		case paragraphBreak[n.Data]:
			sep = "\n\n"
		case lineBreak[n.Data]:
			sep = "\n"
		}
	}

	b.WriteString(sep)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeBlockText(b, c)
	}
	b.WriteString(sep)
}

// joinedText concatenates the trimmed, non-empty text nodes under sel with
// sep between them.
func joinedText(sel *goquery.Selection, sep string) string {
	var parts []string
	var walk func(*nethtml.Node)
	walk = func(n *nethtml.Node) {
		if n.Type == nethtml.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, sep)
}

// normalizeText repairs encoding artifacts and collapses whitespace.
func normalizeText(s string) string {
	s = fixEncodingArtifacts(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\t", " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reSpaceAroundNL.ReplaceAllString(s, "\n")
	s = reManyNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// fixEncodingArtifacts drops invalid UTF-8, zero-width and control
// characters, maps exotic spaces to ' ', and composes to NFC.
func fixEncodingArtifacts(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\t', '\r':
			return r
		case '\u00a0', '\u2007', '\u202f', '\u2009', '\u200a':
			return ' '
		case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff', '\ufffd':
			return -1
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return norm.NFC.String(s)
}
