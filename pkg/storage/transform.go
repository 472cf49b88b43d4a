package storage

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/weppos/publicsuffix-go/publicsuffix"
	"golang.org/x/net/html"
)

// SourceDomain returns the registrable domain an event URL belongs to.
// e.g., "https://msk.dobro.ru/event/1" -> "dobro.ru"
func SourceDomain(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return ""
	}

	// If a string looks like a domain but lacks a scheme, url.Parse can fail to
	// identify the host. Prepending a scheme makes parsing more reliable.
	if !strings.Contains(s, "://") && strings.Contains(s, ".") {
		s = "http://" + s
	}

	host := ""
	if u, err := url.Parse(s); err == nil && u.Host != "" {
		host = strings.ToLower(u.Hostname())
	}
	if !strings.Contains(host, ".") {
		return ""
	}

	domain, err := publicsuffix.Domain(host)
	if err != nil {
		return host
	}
	return domain
}

// PlainText strips HTML markup from s and collapses whitespace.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	doc.Find("script, style").Remove()

	var b strings.Builder
	for _, n := range doc.Nodes {
		collectText(n, &b)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

var inlineTags = map[string]bool{
	"a": true, "abbr": true, "b": true, "em": true, "i": true, "mark": true,
	"small": true, "span": true, "strong": true, "sub": true, "sup": true, "u": true,
}

// collectText writes the text of n, separating block elements with a space
// so "<p>a</p><p>b</p>" reads as "a b".
func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
	if n.Type == html.ElementNode && !inlineTags[n.Data] {
		b.WriteByte(' ')
	}
}
