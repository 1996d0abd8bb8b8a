package fetcher

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Analysis describes what a static HTML body offers to a selector query.
type Analysis struct {
	Size            int
	TextBytes       int // non-whitespace text outside script/style
	MarkupBytes     int
	CustomElements  int  // start tags whose name contains a hyphen
	ShadowTemplates int  // <template shadowrootmode|shadowroot>
	DefinesElements bool // an inline script calls customElements.define
	SPAShell        bool
}

var spaIndicators = [][]byte{
	[]byte(`<div id="root"></div>`),
	[]byte(`<div id="app"></div>`),
	[]byte(`<div id="__next"></div>`),
	[]byte(`<noscript>you need to enable javascript`),
	[]byte(`<noscript>enable javascript`),
}

// Analyze tokenises body once and gathers the signals used to decide
// whether a browser is needed.
func Analyze(body []byte) Analysis {
	a := Analysis{Size: len(body)}
	lower := bytes.ToLower(body)
	for _, ind := range spaIndicators {
		if bytes.Contains(lower, ind) {
			a.SPAShell = true
			break
		}
	}

	z := html.NewTokenizer(bytes.NewReader(body))
	var raw atom.Atom // inside script or style
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return a
		case html.TextToken:
			data := z.Raw()
			if raw != 0 {
				a.MarkupBytes += len(data)
				if raw == atom.Script && bytes.Contains(data, []byte("customElements.define")) {
					a.DefinesElements = true
				}
				continue
			}
			for _, c := range data {
				if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
					a.TextBytes++
				}
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			a.MarkupBytes += len(z.Raw())
			name, hasAttr := z.TagName()
			tag := atom.Lookup(name)
			if tag == 0 && strings.Contains(string(name), "-") {
				a.CustomElements++
			}
			if tag == atom.Template && hasAttr && isShadowTemplate(z) {
				a.ShadowTemplates++
			}
			if tt == html.StartTagToken && (tag == atom.Script || tag == atom.Style) {
				raw = tag
			}
		case html.EndTagToken:
			a.MarkupBytes += len(z.Raw())
			raw = 0
		default:
			a.MarkupBytes += len(z.Raw())
		}
	}
}

func isShadowTemplate(z *html.Tokenizer) bool {
	for {
		key, _, more := z.TagAttr()
		k := string(key)
		if k == "shadowrootmode" || k == "shadowroot" {
			return true
		}
		if !more {
			return false
		}
	}
}

// Sufficient reports whether the static body carries enough content that a
// browser is unlikely to render more: at least 256 bytes, 200 bytes of
// text, a text share of 10% or more, and no SPA mount-point signature.
func (a Analysis) Sufficient() bool {
	if a.Size < 256 || a.SPAShell {
		return false
	}
	total := a.TextBytes + a.MarkupBytes
	if total == 0 || a.TextBytes < 200 {
		return false
	}
	return float64(a.TextBytes)/float64(total) >= 0.10
}

// HiddenShadow reports whether the page uses custom elements that only get
// their shadow trees from script. Those trees exist only in a browser.
func (a Analysis) HiddenShadow() bool {
	return (a.CustomElements > 0 || a.DefinesElements) && a.ShadowTemplates == 0
}

// NeedsBrowser combines both signals for stealth level "auto".
func (a Analysis) NeedsBrowser() (bool, string) {
	switch {
	case !a.Sufficient():
		return true, "thin static content"
	case a.HiddenShadow():
		return true, "custom elements without declarative shadow roots"
	}
	return false, ""
}
