package dom

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Attr returns the value of the attribute key on n.
func Attr(n *html.Node, key string) string {
	v, _ := attrValue(n, key)
	return v
}

// HasAttr reports whether n carries the attribute key.
func HasAttr(n *html.Node, key string) bool {
	_, ok := attrValue(n, key)
	return ok
}

// Attrs returns n's attributes as a map. Later duplicates win.
func Attrs(n *html.Node) map[string]string {
	if len(n.Attr) == 0 {
		return nil
	}
	m := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		m[a.Key] = a.Val
	}
	return m
}

// Text collects the visible text under n, open shadow content first, then
// light children. Script, style and noscript are skipped. Fragments are
// joined by a single space.
func (d *Document) Text(n *html.Node) string {
	var sb strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
			if sr := d.ShadowRoot(n); sr != nil {
				f(sr)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return sb.String()
}

// Render serialises n with every attached shadow root written back as a
// declarative <template shadowrootmode> first child of its host. Parsing the
// output yields an equivalent Document.
func (d *Document) Render(n *html.Node) (string, error) {
	return d.render(d.cloneDeclarative(n))
}

// RenderFlat serialises n with open shadow content inlined in place of the
// template, ahead of the host's light children. Closed content is omitted.
// The output is meant for reading, not for re-parsing.
func (d *Document) RenderFlat(n *html.Node) (string, error) {
	return d.render(d.cloneFlat(n))
}

func (d *Document) render(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if n.Type == html.DocumentNode {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return "", err
			}
		}
		return buf.String(), nil
	}
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func shallowClone(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	return c
}

func (d *Document) cloneDeclarative(n *html.Node) *html.Node {
	c := shallowClone(n)
	if s, ok := d.byHost[n]; ok {
		tpl := &html.Node{
			Type:     html.ElementNode,
			DataAtom: atom.Template,
			Data:     "template",
			Attr:     []html.Attribute{{Key: "shadowrootmode", Val: string(s.mode)}},
		}
		for gc := s.root.FirstChild; gc != nil; gc = gc.NextSibling {
			tpl.AppendChild(d.cloneDeclarative(gc))
		}
		c.AppendChild(tpl)
	}
	for gc := n.FirstChild; gc != nil; gc = gc.NextSibling {
		c.AppendChild(d.cloneDeclarative(gc))
	}
	return c
}

func (d *Document) cloneFlat(n *html.Node) *html.Node {
	c := shallowClone(n)
	if sr := d.ShadowRoot(n); sr != nil {
		for gc := sr.FirstChild; gc != nil; gc = gc.NextSibling {
			c.AppendChild(d.cloneFlat(gc))
		}
	}
	for gc := n.FirstChild; gc != nil; gc = gc.NextSibling {
		c.AppendChild(d.cloneFlat(gc))
	}
	return c
}
