// Package deepquery resolves CSS selectors across shadow-root boundaries.
//
// A selector is split on ">>>" into stages. Every stage but the last must
// resolve to one element, which becomes the scope of the next stage. Within
// a stage, descendant combinators cross shadow boundaries: "x-app .card>h2"
// finds an h2 inside any open shadow tree under x-app as long as the chain
// of ancestors (hosts standing in for shadow roots) matches right to left.
// Child and sibling combinators are checked natively and stay inside one
// tree.
//
//	q := deepquery.New(doc)
//	btn, err := q.First("x-app >>> x-toolbar button.primary")
//	all, err := q.All("x-list li")
//
// Not found is (nil, nil) or an empty slice; only rejected selectors are
// errors, and they match ErrInvalidSelector.
package deepquery

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/hazyhaar/pierce/dom"
)

var errEmpty = errors.New("empty selector")

// Querier runs selectors against one Document.
// It holds no per-query state and may be shared between goroutines as long
// as the Document is not modified.
type Querier struct {
	doc    *dom.Document
	logger *slog.Logger
}

// Option configures a Querier.
type Option func(*Querier)

// WithLogger sets the logger used for stage diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(q *Querier) {
		if l != nil {
			q.logger = l
		}
	}
}

// New returns a Querier over doc.
func New(doc *dom.Document, opts ...Option) *Querier {
	q := &Querier{doc: doc, logger: slog.Default()}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Document returns the queried document.
func (q *Querier) Document() *dom.Document { return q.doc }

// First returns the first element matching selector, or nil.
func (q *Querier) First(selector string) (*html.Node, error) {
	return q.FirstFrom(q.doc.Root(), selector)
}

// All returns every element matching selector in discovery order.
func (q *Querier) All(selector string) ([]*html.Node, error) {
	return q.AllFrom(q.doc.Root(), selector)
}

// FirstFrom is First scoped to root. Ancestor matching never climbs to root
// or above it.
func (q *Querier) FirstFrom(root *html.Node, selector string) (*html.Node, error) {
	out, err := q.resolve(root, selector, false)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return out[0], nil
}

// AllFrom is All scoped to root.
func (q *Querier) AllFrom(root *html.Node, selector string) ([]*html.Node, error) {
	out, err := q.resolve(root, selector, true)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []*html.Node{}
	}
	return out, nil
}

// stage is one compiled boundary segment.
type stage struct {
	src    string
	native cascadia.Selector
	alts   []alternative
}

// alternative is one comma-separated branch of a stage.
type alternative struct {
	src   string
	comps []string
}

// compile validates every stage before anything is matched. Only the whole
// stage goes through the native parser; components are compiled later, and
// only when a stage has to cross shadow boundaries.
func compile(selector string) ([]stage, error) {
	if strings.TrimSpace(selector) == "" {
		return nil, &SelectorError{Selector: selector, Stage: -1, Err: errEmpty}
	}
	raw := splitStages(selector)
	stages := make([]stage, 0, len(raw))
	for i, r := range raw {
		src := strings.TrimSpace(r)
		if src == "" {
			return nil, &SelectorError{Selector: selector, Stage: i, Err: errEmpty}
		}
		native, err := cascadia.Compile(src)
		if err != nil {
			return nil, &SelectorError{Selector: selector, Stage: i, Err: err}
		}
		st := stage{src: src, native: native}
		for _, a := range splitUnquoted(src, ',') {
			alt := alternative{src: strings.TrimSpace(a), comps: segment(a)}
			if len(alt.comps) == 0 {
				return nil, &SelectorError{Selector: selector, Stage: i, Err: errEmpty}
			}
			st.alts = append(st.alts, alt)
		}
		stages = append(stages, st)
	}
	return stages, nil
}

// chains compiles the components of every alternative of st, scoped to
// root. ok is false when a component is not a selector on its own; such a
// stage is resolved with native queries only.
func (q *Querier) chains(root *html.Node, st stage) (out []chain, ok bool) {
	for _, alt := range st.alts {
		c := chain{doc: q.doc, root: root}
		for _, src := range alt.comps {
			sel, err := cascadia.Compile(src)
			if err != nil {
				q.logger.Debug("deepquery: component not compilable, native only",
					"stage", st.src, "component", src, "error", err)
				return nil, false
			}
			c.parts = append(c.parts, sel)
		}
		out = append(out, c)
	}
	return out, true
}

func (q *Querier) resolve(root *html.Node, selector string, all bool) ([]*html.Node, error) {
	stages, err := compile(selector)
	if err != nil {
		return nil, err
	}
	if root == nil {
		root = q.doc.Root()
	}
	encapsulated := q.doc.Encapsulation()

	last := len(stages) - 1
	for i := 0; i < last; i++ {
		found := q.first(root, stages[i], encapsulated)
		if found == nil {
			q.logger.Info("deepquery: stage matched nothing",
				"stage", i, "selector", stages[i].src, "query", selector)
			return nil, nil
		}
		root = found
	}
	if all {
		return q.all(root, stages[last], encapsulated), nil
	}
	if n := q.first(root, stages[last], encapsulated); n != nil {
		return []*html.Node{n}, nil
	}
	return nil, nil
}

// first resolves a stage to one element. A native hit inside root's own
// shadow tree, then below root, wins before any cross-boundary search.
// Otherwise the comma alternatives are tried in order and the first one
// with a match decides.
func (q *Querier) first(root *html.Node, st stage, encapsulated bool) *html.Node {
	if !encapsulated {
		return cascadia.Query(root, st.native)
	}
	if sr := q.doc.ShadowRoot(root); sr != nil {
		if n := cascadia.Query(sr, st.native); n != nil {
			return n
		}
	}
	if n := cascadia.Query(root, st.native); n != nil {
		return n
	}
	chains, ok := q.chains(root, st)
	if !ok {
		return nil
	}
	for _, c := range chains {
		for _, n := range collect(q.doc, root, c.target()) {
			if c.Match(n) {
				return n
			}
		}
	}
	return nil
}

// all resolves the final stage to every match. The union over comma
// alternatives is deduplicated and kept in discovery order.
func (q *Querier) all(root *html.Node, st stage, encapsulated bool) []*html.Node {
	if !encapsulated {
		return cascadia.QueryAll(root, st.native)
	}
	chains, ok := q.chains(root, st)
	if !ok {
		var out []*html.Node
		if sr := q.doc.ShadowRoot(root); sr != nil {
			out = cascadia.QueryAll(sr, st.native)
		}
		return append(out, cascadia.QueryAll(root, st.native)...)
	}
	targets := make(anyOf, 0, len(chains))
	for _, c := range chains {
		targets = append(targets, c.target())
	}
	var out []*html.Node
	for _, n := range collect(q.doc, root, targets) {
		for _, c := range chains {
			if c.Match(n) {
				out = append(out, n)
				break
			}
		}
	}
	return out
}
