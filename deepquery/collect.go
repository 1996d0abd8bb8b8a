package deepquery

import (
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/hazyhaar/pierce/dom"
)

// collect gathers every element below root, descending into each open
// shadow root it meets. A host is emitted first, then its shadow contents,
// then its light children. When root itself owns a shadow root, that root's
// contents come before root's light descendants. A nil filter keeps
// everything; otherwise only elements matching it are kept, in discovery
// order.
func collect(doc *dom.Document, root *html.Node, filter cascadia.Matcher) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if filter == nil || filter.Match(c) {
				out = append(out, c)
			}
			if sr := doc.ShadowRoot(c); sr != nil {
				walk(sr)
			}
			walk(c)
		}
	}
	if sr := doc.ShadowRoot(root); sr != nil {
		walk(sr)
	}
	walk(root)
	return out
}
