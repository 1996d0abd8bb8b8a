package deepquery

import (
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/hazyhaar/pierce/dom"
)

// parentOrHost returns n's logical parent for matching. A shadow root is
// replaced by its host. The walk never returns root or anything above it,
// and never returns a non-element; nil means no further ancestor.
func parentOrHost(doc *dom.Document, n, root *html.Node) *html.Node {
	p := n.Parent
	if p == nil || p == root {
		return nil
	}
	if h := doc.Host(p); h != nil {
		p = h
	}
	if p == root || p.Type != html.ElementNode {
		return nil
	}
	return p
}

// chain checks a candidate against compiled components, rightmost first.
// The candidate itself must match the last component; the others are looked
// for among its ancestors, hosts included. The walk is greedy: the nearest
// ancestor matching the current component consumes it, and no other
// assignment is tried afterwards.
type chain struct {
	doc   *dom.Document
	root  *html.Node
	parts []cascadia.Selector
}

// target is the component the candidate itself must match.
func (c chain) target() cascadia.Selector { return c.parts[len(c.parts)-1] }

func (c chain) Match(n *html.Node) bool {
	if len(c.parts) == 0 || !c.target().Match(n) {
		return false
	}
	pos := len(c.parts) - 2
	if pos < 0 {
		return true
	}
	for cur := parentOrHost(c.doc, n, c.root); cur != nil; cur = parentOrHost(c.doc, cur, c.root) {
		if !c.parts[pos].Match(cur) {
			continue
		}
		if pos == 0 {
			return true
		}
		pos--
	}
	return false
}

// anyOf matches an element matching any of its selectors.
type anyOf []cascadia.Selector

func (a anyOf) Match(n *html.Node) bool {
	for _, s := range a {
		if s.Match(n) {
			return true
		}
	}
	return false
}
