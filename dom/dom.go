// Package dom models an HTML document whose elements may own encapsulated
// shadow trees.
//
// A shadow root is an html.DocumentNode detached from the light tree, so the
// standard node walk (and any cascadia query) stops at the host exactly like
// a browser's querySelector does. The Document keeps the linkage in both
// directions: host → shadow root for descent, shadow root → host for upward
// traversal. Closed roots are recorded but never handed out.
//
// Documents come from three places:
//
//	dom.Parse(r)              // declarative shadow DOM (<template shadowrootmode>)
//	dom.FromCDP(root)         // Chrome DOM.getDocument with pierce=true
//	dom.Parse(r, dom.WithoutShadowRoots())  // flat tree, no encapsulation
package dom

import (
	"golang.org/x/net/html"

	"github.com/go-rod/rod/lib/proto"
)

// Mode is the encapsulation mode of a shadow root.
type Mode string

const (
	ModeOpen   Mode = "open"
	ModeClosed Mode = "closed"
)

// shadow is the attachment record for one shadow root.
type shadow struct {
	root *html.Node
	host *html.Node
	mode Mode
}

// Document is a parsed tree plus its shadow-root linkage.
// It is a read-only view once built; nothing in this module mutates it.
type Document struct {
	root        *html.Node
	byHost      map[*html.Node]*shadow
	byRoot      map[*html.Node]*shadow
	backend     map[*html.Node]proto.DOMBackendNodeID
	encapsulate bool
}

func newDocument(root *html.Node, encapsulate bool) *Document {
	return &Document{
		root:        root,
		byHost:      make(map[*html.Node]*shadow),
		byRoot:      make(map[*html.Node]*shadow),
		encapsulate: encapsulate,
	}
}

// attach records sr as the shadow root of host. A host owns at most one root;
// a second attach is ignored and reported as false.
func (d *Document) attach(host, sr *html.Node, mode Mode) bool {
	if _, ok := d.byHost[host]; ok {
		return false
	}
	s := &shadow{root: sr, host: host, mode: mode}
	d.byHost[host] = s
	d.byRoot[sr] = s
	return true
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Encapsulation reports whether this document supports shadow trees at all.
// It is false for documents parsed WithoutShadowRoots.
func (d *Document) Encapsulation() bool { return d.encapsulate }

// ShadowRoot returns the open shadow root owned by el, or nil.
func (d *Document) ShadowRoot(el *html.Node) *html.Node {
	s, ok := d.byHost[el]
	if !ok || s.mode != ModeOpen {
		return nil
	}
	return s.root
}

// Host returns the element owning the shadow root n, or nil when n is not a
// shadow root.
func (d *Document) Host(n *html.Node) *html.Node {
	if s, ok := d.byRoot[n]; ok {
		return s.host
	}
	return nil
}

// IsShadowRoot reports whether n is the root node of a shadow tree.
func (d *Document) IsShadowRoot(n *html.Node) bool {
	_, ok := d.byRoot[n]
	return ok
}

// Mode returns the mode of the shadow root owned by host, if any.
func (d *Document) Mode(host *html.Node) (Mode, bool) {
	s, ok := d.byHost[host]
	if !ok {
		return "", false
	}
	return s.mode, true
}

// BackendID returns the Chrome backend node ID recorded for n when the
// document was built from a CDP snapshot.
func (d *Document) BackendID(n *html.Node) (proto.DOMBackendNodeID, bool) {
	if d.backend == nil {
		return 0, false
	}
	id, ok := d.backend[n]
	return id, ok
}

// Live reports whether the document was built from a live page and carries
// backend node IDs.
func (d *Document) Live() bool { return d.backend != nil }

// ShadowDepth returns how many shadow boundaries separate n from the
// document's light tree. Light-tree nodes have depth 0.
func (d *Document) ShadowDepth(n *html.Node) int {
	depth := 0
	for cur := n; cur != nil; {
		if s, ok := d.byRoot[cur]; ok {
			depth++
			cur = s.host
			continue
		}
		cur = cur.Parent
	}
	return depth
}

// Stats summarises the document's shape.
type Stats struct {
	Elements    int `json:"elements"`
	Hosts       int `json:"hosts"`
	OpenRoots   int `json:"open_roots"`
	ClosedRoots int `json:"closed_roots"`
	MaxDepth    int `json:"max_shadow_depth"`
}

// Stats walks the whole document, descending into open shadow roots.
func (d *Document) Stats() Stats {
	var st Stats
	var walk func(n *html.Node, depth int)
	walk = func(n *html.Node, depth int) {
		if depth > st.MaxDepth {
			st.MaxDepth = depth
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			st.Elements++
			if s, ok := d.byHost[c]; ok {
				st.Hosts++
				if s.mode == ModeOpen {
					st.OpenRoots++
					walk(s.root, depth+1)
				} else {
					st.ClosedRoots++
				}
			}
			walk(c, depth)
		}
	}
	walk(d.root, 0)
	return st
}
