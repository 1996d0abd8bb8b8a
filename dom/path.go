package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Path returns an XPath-like location for n. Crossing into a shadow tree adds
// a "/shadow-root" step after the host, so the path of an element inside
// <x-card>'s shadow root reads /html/body/x-card/shadow-root/div.
// Sibling indexes appear only when several siblings share the tag.
func (d *Document) Path(n *html.Node) string {
	var steps []string
	for cur := n; cur != nil; {
		if host := d.Host(cur); host != nil {
			steps = append(steps, "shadow-root")
			cur = host
			continue
		}
		switch cur.Type {
		case html.DocumentNode:
			cur = nil
			continue
		case html.TextNode:
			steps = append(steps, "text()")
		case html.CommentNode:
			steps = append(steps, "comment()")
		case html.ElementNode:
			steps = append(steps, elementStep(cur))
		}
		cur = cur.Parent
	}
	if len(steps) == 0 {
		return "/"
	}
	var b strings.Builder
	for i := len(steps) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(steps[i])
	}
	return b.String()
}

func elementStep(n *html.Node) string {
	name := n.Data
	if n.Parent == nil {
		return name
	}
	idx, total := 0, 0
	for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
		if s.Type != html.ElementNode || s.Data != name {
			continue
		}
		total++
		if s == n {
			idx = total
		}
	}
	if total > 1 {
		return fmt.Sprintf("%s[%d]", name, idx)
	}
	return name
}
