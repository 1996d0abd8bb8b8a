package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/go-rod/rod/lib/proto"
)

// CDP node types, see https://developer.mozilla.org/docs/Web/API/Node/nodeType.
const (
	cdpElement  = 1
	cdpText     = 3
	cdpComment  = 8
	cdpDocument = 9
	cdpDoctype  = 10
	cdpFragment = 11
)

// FromCDP converts the tree returned by DOM.getDocument (depth -1, pierce true)
// into a Document. Open and closed shadow roots are attached to their hosts;
// user-agent roots are dropped, as are frame documents and template contents.
// Every converted node keeps its backend node ID.
func FromCDP(root *proto.DOMNode) *Document {
	d := newDocument(nil, true)
	d.backend = make(map[*html.Node]proto.DOMBackendNodeID)
	if root == nil {
		d.root = &html.Node{Type: html.DocumentNode}
		return d
	}
	d.root = d.convertCDP(root)
	if d.root == nil || d.root.Type != html.DocumentNode {
		doc := &html.Node{Type: html.DocumentNode}
		if d.root != nil {
			doc.AppendChild(d.root)
		}
		d.root = doc
	}
	return d
}

func (d *Document) convertCDP(n *proto.DOMNode) *html.Node {
	var out *html.Node
	switch n.NodeType {
	case cdpDocument, cdpFragment:
		out = &html.Node{Type: html.DocumentNode}
	case cdpElement:
		name := n.LocalName
		if name == "" {
			name = strings.ToLower(n.NodeName)
		}
		out = &html.Node{Type: html.ElementNode, Data: name, DataAtom: atom.Lookup([]byte(name))}
		for i := 0; i+1 < len(n.Attributes); i += 2 {
			out.Attr = append(out.Attr, html.Attribute{Key: n.Attributes[i], Val: n.Attributes[i+1]})
		}
		if n.IsSVG {
			out.Namespace = "svg"
		}
	case cdpText:
		out = &html.Node{Type: html.TextNode, Data: n.NodeValue}
	case cdpComment:
		out = &html.Node{Type: html.CommentNode, Data: n.NodeValue}
	case cdpDoctype:
		out = &html.Node{Type: html.DoctypeNode, Data: strings.ToLower(n.NodeName)}
	default:
		return nil
	}
	d.backend[out] = n.BackendNodeID

	for _, c := range n.Children {
		if cn := d.convertCDP(c); cn != nil {
			out.AppendChild(cn)
		}
	}

	if out.Type != html.ElementNode {
		return out
	}
	for _, sr := range n.ShadowRoots {
		var mode Mode
		switch sr.ShadowRootType {
		case proto.DOMShadowRootTypeOpen:
			mode = ModeOpen
		case proto.DOMShadowRootTypeClosed:
			mode = ModeClosed
		default:
			continue
		}
		srn := d.convertCDP(sr)
		if srn == nil {
			continue
		}
		if srn.Type != html.DocumentNode {
			wrap := &html.Node{Type: html.DocumentNode}
			wrap.AppendChild(srn)
			srn = wrap
		}
		d.attach(out, srn, mode)
	}
	return out
}
