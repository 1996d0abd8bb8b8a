package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type parseConfig struct {
	shadow bool
}

// Option customises Parse.
type Option func(*parseConfig)

// WithoutShadowRoots leaves declarative shadow templates inline and marks the
// document as lacking encapsulation support. Queries then fall back to plain
// native matching.
func WithoutShadowRoots() Option { return func(c *parseConfig) { c.shadow = false } }

// Parse reads HTML and attaches every declarative shadow root it contains.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return FromNode(root, opts...), nil
}

// ParseString is Parse over an in-memory string.
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// FromNode wraps an already parsed tree. Declarative shadow templates are
// detached from the tree and attached to their host, so the tree is modified
// in place unless WithoutShadowRoots is given.
func FromNode(root *html.Node, opts ...Option) *Document {
	cfg := parseConfig{shadow: true}
	for _, o := range opts {
		o(&cfg)
	}
	d := newDocument(root, cfg.shadow)
	if cfg.shadow {
		d.attachDeclarative(root)
	}
	return d
}

// attachDeclarative converts <template shadowrootmode="open|closed"> children
// into shadow roots, recursing into the new roots so nested hosts attach too.
func (d *Document) attachDeclarative(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type != html.ElementNode {
			c = next
			continue
		}
		if mode, ok := shadowTemplateMode(c); ok && n.Type == html.ElementNode {
			if _, owned := d.byHost[n]; !owned {
				sr := &html.Node{Type: html.DocumentNode}
				n.RemoveChild(c)
				for gc := c.FirstChild; gc != nil; {
					gnext := gc.NextSibling
					c.RemoveChild(gc)
					sr.AppendChild(gc)
					gc = gnext
				}
				d.attach(n, sr, mode)
				d.attachDeclarative(sr)
				c = next
				continue
			}
		}
		d.attachDeclarative(c)
		c = next
	}
}

// shadowTemplateMode reports whether n is a declarative shadow root template
// and which mode it declares. Unknown modes leave the template inert.
func shadowTemplateMode(n *html.Node) (Mode, bool) {
	if n.DataAtom != atom.Template {
		return "", false
	}
	v, ok := attrValue(n, "shadowrootmode")
	if !ok {
		v, ok = attrValue(n, "shadowroot")
	}
	if !ok {
		return "", false
	}
	switch Mode(strings.ToLower(strings.TrimSpace(v))) {
	case ModeOpen:
		return ModeOpen, true
	case ModeClosed:
		return ModeClosed, true
	}
	return "", false
}

func attrValue(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
