package lint

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

// extractMarkdownLinks returns every link and image destination in a
// markdown document, reference definitions included.
func extractMarkdownLinks(data []byte) []string {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(data))

	var links []string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.AutoLink:
			links = append(links, string(node.URL(data)))
		case *gmast.Image:
			links = append(links, string(node.Destination))
		case *gmast.Link:
			links = append(links, string(node.Destination))
		}
		return gmast.WalkContinue, nil
	})
	return links
}

// extractHTMLLinks returns href and src attribute values from an HTML
// document. Parse errors yield whatever was recovered; the HTML parser
// never fails on malformed input.
func extractHTMLLinks(data []byte) []string {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				if attr.Key == "href" || attr.Key == "src" {
					links = append(links, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

var slugStripRe = regexp.MustCompile(`[^a-z0-9 \-_]`)

// slugify converts a heading title to its anchor id the way GitHub does:
// lowercase, punctuation stripped, spaces to hyphens.
func slugify(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = slugStripRe.ReplaceAllString(s, "")
	return strings.ReplaceAll(s, " ", "-")
}

// hasAnchor reports whether a markdown document has a heading whose slug
// matches anchor.
func hasAnchor(data []byte, anchor string) bool {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(data))

	found := false
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering || found {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok {
			return gmast.WalkContinue, nil
		}
		var b strings.Builder
		_ = gmast.Walk(h, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
			if entering {
				if t, ok := c.(*gmast.Text); ok {
					b.Write(t.Segment.Value(data))
				}
			}
			return gmast.WalkContinue, nil
		})
		if slugify(b.String()) == strings.ToLower(anchor) {
			found = true
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})
	return found
}
