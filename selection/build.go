package selection

import (
	"fmt"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/hazyhaar/pierce/dom"
)

// Options controls what Build puts in each Match.
type Options struct {
	Selector string
	Source   string
	Mode     Mode
	HTML     bool // include declarative outer HTML
	Markdown bool // include markdown of the flattened subtree
	Sanitize bool // pass HTML through the UGC policy before output
	MaxText  int  // truncate Text to this many bytes, 0 = no limit
	BaseURL  string
	Started  time.Time // when set, ElapsedMS is measured from it
}

var (
	mdConverter = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	ugc = bluemonday.UGCPolicy()
)

// Build describes nodes found in doc.
func Build(doc *dom.Document, nodes []*html.Node, opts Options) (*Result, error) {
	if opts.Mode == "" {
		opts.Mode = ModeAll
	}
	res := &Result{
		Selector: opts.Selector,
		Source:   opts.Source,
		Mode:     opts.Mode,
		Count:    len(nodes),
		Matches:  make([]Match, 0, len(nodes)),
		Stats:    doc.Stats(),
	}
	hashes := make([]string, 0, len(nodes))
	for i, n := range nodes {
		m, err := buildMatch(doc, n, i, opts)
		if err != nil {
			return nil, fmt.Errorf("selection: match %d: %w", i, err)
		}
		res.Matches = append(res.Matches, m)
		hashes = append(hashes, m.Hash)
	}
	res.Hash = HashHTML([]byte(strings.Join(hashes, "\n")))
	now := time.Now()
	res.Timestamp = now.UnixMilli()
	if !opts.Started.IsZero() {
		res.ElapsedMS = now.Sub(opts.Started).Milliseconds()
	}
	return res, nil
}

func buildMatch(doc *dom.Document, n *html.Node, i int, opts Options) (Match, error) {
	depth := doc.ShadowDepth(n)
	m := Match{
		Index:       i,
		Path:        doc.Path(n),
		Tag:         n.Data,
		Attrs:       dom.Attrs(n),
		InShadow:    depth > 0,
		ShadowDepth: depth,
		Text:        truncate(doc.Text(n), opts.MaxText),
	}
	if id, ok := doc.BackendID(n); ok {
		m.BackendID = int(id)
	}

	outer, err := doc.Render(n)
	if err != nil {
		return m, fmt.Errorf("render: %w", err)
	}
	m.Hash = HashHTML([]byte(outer))
	if opts.HTML {
		if opts.Sanitize {
			outer = ugc.Sanitize(outer)
		}
		m.HTML = outer
	}

	if opts.Markdown {
		flat, err := doc.RenderFlat(n)
		if err != nil {
			return m, fmt.Errorf("render flat: %w", err)
		}
		if opts.Sanitize {
			flat = ugc.Sanitize(flat)
		}
		md, err := ToMarkdown(flat, opts.BaseURL)
		if err != nil {
			return m, err
		}
		m.Markdown = md
	}
	return m, nil
}

// ToMarkdown converts an HTML fragment to markdown. Relative links resolve
// against baseURL when it is set.
func ToMarkdown(fragment, baseURL string) (string, error) {
	var (
		md  string
		err error
	)
	if baseURL != "" {
		md, err = mdConverter.ConvertString(fragment, converter.WithDomain(baseURL))
	} else {
		md, err = mdConverter.ConvertString(fragment)
	}
	if err != nil {
		return "", fmt.Errorf("selection: markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// truncate cuts s to at most max bytes without splitting a UTF-8 sequence.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8Start(s[cut]) {
		cut--
	}
	return s[:cut]
}

func utf8Start(b byte) bool { return b&0xC0 != 0x80 }
