package deepquery

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/hazyhaar/pierce/dom"
)

const appHTML = `<!DOCTYPE html>
<html>
<body>
<div id="light"><p class="note">light note</p></div>
<x-app id="app">
  <template shadowrootmode="open">
    <header><h1>App</h1></header>
    <x-list id="list">
      <template shadowrootmode="open">
        <ul><li class="item" data-x="1,2">a</li><li class="item">b</li></ul>
      </template>
    </x-list>
    <p class="note">shadow note</p>
  </template>
  <span class="slotted">light child</span>
</x-app>
<x-other><template shadowrootmode="open"><li class="item">other</li></template></x-other>
<x-closed><template shadowrootmode="closed"><li class="item">hidden</li></template></x-closed>
</body>
</html>`

func newQuerier(t *testing.T, src string, opts ...dom.Option) *Querier {
	t.Helper()
	doc, err := dom.ParseString(src, opts...)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return New(doc)
}

// texts returns the trimmed text of each node, for compact assertions.
func texts(q *Querier, nodes []*html.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, q.Document().Text(n))
	}
	return out
}

func mustAll(t *testing.T, q *Querier, sel string) []*html.Node {
	t.Helper()
	nodes, err := q.All(sel)
	if err != nil {
		t.Fatalf("All(%q): %v", sel, err)
	}
	return nodes
}

func TestAll_PiercesOpenRoots(t *testing.T) {
	q := newQuerier(t, appHTML)
	got := texts(q, mustAll(t, q, "li.item"))
	want := []string{"a", "b", "other"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFirst_DiscoveryOrder(t *testing.T) {
	q := newQuerier(t, appHTML)
	n, err := q.First("li.item")
	if err != nil {
		t.Fatalf("First: %v", err)
	}
	if n == nil || q.Document().Text(n) != "a" {
		t.Fatalf("First: got %v", n)
	}
}

func TestFirst_NativeFastPath(t *testing.T) {
	q := newQuerier(t, appHTML)
	n, err := q.First(".note")
	if err != nil {
		t.Fatal(err)
	}
	if got := q.Document().Text(n); got != "light note" {
		t.Errorf("got %q, want the light-tree note", got)
	}
}

func TestAll_DescendantCrossesBoundary(t *testing.T) {
	q := newQuerier(t, appHTML)
	tests := []struct {
		sel  string
		want string
	}{
		{"x-app li", "a,b"},
		{"x-app .note", "shadow note"},
		{".note", "light note,shadow note"},
		{"x-app x-list ul li.item", "a,b"},
		{"x-other li", "other"},
		{"body x-app h1", "App"},
	}
	for _, tt := range tests {
		got := strings.Join(texts(q, mustAll(t, q, tt.sel)), ",")
		if got != tt.want {
			t.Errorf("All(%q): got %q, want %q", tt.sel, got, tt.want)
		}
	}
}

func TestAll_ChildCombinatorStaysInTree(t *testing.T) {
	q := newQuerier(t, appHTML)
	if n := len(mustAll(t, q, "ul>li")); n != 2 {
		t.Errorf("ul>li: got %d, want 2", n)
	}
	// ul is a top-level child of x-list's shadow root, not of x-list.
	if n := len(mustAll(t, q, "x-list>ul")); n != 0 {
		t.Errorf("x-list>ul: got %d, want 0", n)
	}
	if n := len(mustAll(t, q, "x-list ul")); n != 1 {
		t.Errorf("x-list ul: got %d, want 1", n)
	}
	if n := len(mustAll(t, q, "li.item + li")); n != 1 {
		t.Errorf("li + li: got %d, want 1", n)
	}
}

func TestAll_ClosedRootsHidden(t *testing.T) {
	q := newQuerier(t, appHTML)
	for _, n := range mustAll(t, q, "li") {
		if q.Document().Text(n) == "hidden" {
			t.Fatal("closed shadow content must not be matched")
		}
	}
	if n := mustAll(t, q, "x-closed li"); len(n) != 0 {
		t.Errorf("x-closed li: got %d", len(n))
	}
}

func TestAll_CommaUnion(t *testing.T) {
	q := newQuerier(t, appHTML)
	got := texts(q, mustAll(t, q, "li.item, h1, x-app li"))
	want := "App,a,b,other"
	if strings.Join(got, ",") != want {
		t.Errorf("got %v, want %s", got, want)
	}
}

func TestAll_QuotedCommaInAttribute(t *testing.T) {
	q := newQuerier(t, appHTML)
	got := texts(q, mustAll(t, q, `li[data-x="1,2"], h1`))
	if strings.Join(got, ",") != "App,a" {
		t.Errorf("got %v", got)
	}
}

func TestBoundaryStages(t *testing.T) {
	q := newQuerier(t, appHTML)
	got := texts(q, mustAll(t, q, "x-app >>> x-list >>> li"))
	if strings.Join(got, ",") != "a,b" {
		t.Errorf("x-app >>> x-list >>> li: got %v", got)
	}
	// The second stage is scoped to x-other; x-app's items are out of reach.
	got = texts(q, mustAll(t, q, "x-other >>> li"))
	if strings.Join(got, ",") != "other" {
		t.Errorf("x-other >>> li: got %v", got)
	}
	n, err := q.First("#app >>> .note")
	if err != nil {
		t.Fatal(err)
	}
	if q.Document().Text(n) != "shadow note" {
		t.Errorf("#app >>> .note: got %q", q.Document().Text(n))
	}
}

func TestBoundaryStages_ShortCircuit(t *testing.T) {
	doc, err := dom.ParseString(appHTML)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	q := New(doc, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	n, err := q.First("missing >>> li")
	if err != nil || n != nil {
		t.Errorf("First: got %v, %v; want nil, nil", n, err)
	}
	all, err := q.All("missing >>> li")
	if err != nil {
		t.Fatal(err)
	}
	if all == nil || len(all) != 0 {
		t.Errorf("All: got %v, want empty non-nil slice", all)
	}
	if !strings.Contains(buf.String(), "stage matched nothing") || !strings.Contains(buf.String(), "stage=0") {
		t.Errorf("expected a stage diagnostic, got %q", buf.String())
	}
}

func TestFromRoot_Bounded(t *testing.T) {
	q := newQuerier(t, appHTML)
	list, err := q.First("x-list")
	if err != nil || list == nil {
		t.Fatalf("x-list: %v %v", list, err)
	}
	n, err := q.FirstFrom(list, "li")
	if err != nil || n == nil || q.Document().Text(n) != "a" {
		t.Fatalf("FirstFrom(x-list, li): got %v %v", n, err)
	}
	// x-app sits above the root, so the chain cannot reach it.
	all, err := q.AllFrom(list, "x-app li")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("AllFrom(x-list, x-app li): got %d, want 0", len(all))
	}
}

func TestInvalidSelector(t *testing.T) {
	q := newQuerier(t, appHTML)
	tests := []struct {
		sel   string
		stage int
	}{
		{"", -1},
		{"   ", -1},
		{"x-app >>> ", 1},
		{">>> li", 0},
		{"div[", 0},
		{"x-app >>> li:bogus", 1},
		{"li,", 0},
	}
	for _, tt := range tests {
		_, err := q.First(tt.sel)
		if !errors.Is(err, ErrInvalidSelector) {
			t.Errorf("First(%q): got %v, want ErrInvalidSelector", tt.sel, err)
			continue
		}
		var se *SelectorError
		if !errors.As(err, &se) {
			t.Errorf("First(%q): not a *SelectorError", tt.sel)
			continue
		}
		if se.Stage != tt.stage {
			t.Errorf("First(%q): stage %d, want %d", tt.sel, se.Stage, tt.stage)
		}
		if _, err := q.All(tt.sel); !errors.Is(err, ErrInvalidSelector) {
			t.Errorf("All(%q): got %v", tt.sel, err)
		}
	}
}

func TestIdempotent(t *testing.T) {
	q := newQuerier(t, appHTML)
	a := mustAll(t, q, "li, .note, h1")
	b := mustAll(t, q, "li, .note, h1")
	if len(a) != len(b) {
		t.Fatalf("len: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("element %d differs", i)
		}
	}
}

const flatHTML = `<!DOCTYPE html>
<html><head><title>t</title></head>
<body>
<section class="s1"><div><p class="x">1<span>in</span><b>bold</b></p><p>2</p></div><p class="x">3</p></section>
<section class="s2"><ul><li class="a">4</li><li class="b">5</li><li class="a">6</li></ul></section>
<div><div><span>7</span></div></div>
</body></html>`

func TestNativeAgreement(t *testing.T) {
	q := newQuerier(t, flatHTML)
	root := q.Document().Root()
	selectors := []string{
		"p", "div p", "div > p", "section p.x", "ul li + li", "li ~ li",
		".a, .b", "div div span", "body *", "section.s1 > p", "li.a, p.x, span",
		"html body section div p", "div p span", "section b", "div *",
		"li:not(.a, .b)", "ul li:not(ul .b)", "section :not(p, div)",
	}
	for _, sel := range selectors {
		native := cascadia.MustCompile(sel)
		want := cascadia.QueryAll(root, native)
		got := mustAll(t, q, sel)
		if len(got) != len(want) {
			t.Errorf("All(%q): got %d, native %d", sel, len(got), len(want))
			continue
		}
		for i := range got {
			if got[i] != want[i] {
				t.Errorf("All(%q): element %d differs from native", sel, i)
				break
			}
		}
		first, err := q.First(sel)
		if err != nil {
			t.Fatal(err)
		}
		if first != cascadia.Query(root, native) {
			t.Errorf("First(%q): differs from native", sel)
		}
	}
}

func TestNoEncapsulationFallsBackToNative(t *testing.T) {
	q := newQuerier(t, appHTML, dom.WithoutShadowRoots())
	root := q.Document().Root()
	for _, sel := range []string{"li.item", "x-app li", "x-list>ul", ".note"} {
		want := cascadia.QueryAll(root, cascadia.MustCompile(sel))
		got := mustAll(t, q, sel)
		if len(got) != len(want) {
			t.Errorf("All(%q): got %d, native %d", sel, len(got), len(want))
		}
	}
	// Stages still narrow the scope, using plain descendant queries.
	got := texts(q, mustAll(t, q, "x-other >>> li"))
	if strings.Join(got, ",") != "other" {
		t.Errorf("x-other >>> li: got %v", got)
	}
}

func TestExplain(t *testing.T) {
	p, err := Explain("x-app >>> ul > li.item, h1")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Stages) != 2 {
		t.Fatalf("stages: got %d", len(p.Stages))
	}
	if p.Stages[0].Final || !p.Stages[1].Final {
		t.Error("only the last stage is final")
	}
	alts := p.Stages[1].Alternatives
	if len(alts) != 2 {
		t.Fatalf("alternatives: got %d", len(alts))
	}
	if strings.Join(alts[0].Components, "|") != "ul>li.item" {
		t.Errorf("components: got %q", alts[0].Components)
	}
	if alts[1].Selector != "h1" {
		t.Errorf("alt 1: got %q", alts[1].Selector)
	}
	if _, err := Explain(""); !errors.Is(err, ErrInvalidSelector) {
		t.Errorf("Explain(\"\"): got %v", err)
	}
}

func TestAll_TargetMustMatchCandidate(t *testing.T) {
	q := newQuerier(t, `<div><p><span></span><b></b></p></div>
<section><x-h><template shadowrootmode="open"><p><i></i></p></template></x-h></section>`)
	got := mustAll(t, q, "div p")
	if len(got) != 1 || got[0].Data != "p" {
		t.Errorf("div p: got %d nodes, want the one p", len(got))
	}
	got = mustAll(t, q, "section p")
	if len(got) != 1 || got[0].Data != "p" {
		t.Errorf("section p: got %d nodes, want the shadow p", len(got))
	}
	n, err := q.First("section i, section p")
	if err != nil {
		t.Fatal(err)
	}
	if n == nil || n.Data != "i" {
		t.Errorf("First: got %v, want i", n)
	}
}

func TestPseudoClassArguments(t *testing.T) {
	q := newQuerier(t, appHTML)
	got := texts(q, mustAll(t, q, "x-app li:not([data-x], .missing)"))
	if strings.Join(got, ",") != "b" {
		t.Errorf("got %v, want [b]", got)
	}
	n, err := q.First("x-list li:not(ul .missing)")
	if err != nil {
		t.Fatal(err)
	}
	if n == nil || q.Document().Text(n) != "a" {
		t.Errorf("First: got %v", n)
	}

	flat := newQuerier(t, appHTML, dom.WithoutShadowRoots())
	for _, sel := range []string{"li:not(.a, .b)", "ul li:not(ul .a)"} {
		want := cascadia.QueryAll(flat.Document().Root(), cascadia.MustCompile(sel))
		if got := mustAll(t, flat, sel); len(got) != len(want) {
			t.Errorf("All(%q): got %d, native %d", sel, len(got), len(want))
		}
		if _, err := flat.First(sel); err != nil {
			t.Errorf("First(%q): %v", sel, err)
		}
	}
}

// The nearest ancestor matching a component consumes it, then the walk goes
// on above it; a component is never retried further up.
func TestAll_GreedyAncestorWalk(t *testing.T) {
	q := newQuerier(t, `
<div class="a"><div class="b">
  <x-host class="a"><template shadowrootmode="open"><div class="c" id="t1">1</div></template></x-host>
</div></div>
<div class="b"><div class="a"><div class="a"><span class="c" id="t2">2</span></div></div></div>
<div class="a"><div class="b"><div class="a"><div class="b"><div class="a"><em class="c" id="t3">3</em></div></div></div></div></div>`)
	got := texts(q, mustAll(t, q, ".a .b .a .c"))
	if strings.Join(got, ",") != "1,3" {
		t.Errorf("got %v, want [1 3]", got)
	}
	// In the light tree the walk agrees with the native matcher.
	native := cascadia.QueryAll(q.Document().Root(), cascadia.MustCompile(".a .b .a .c"))
	if len(native) != 1 || q.Document().Text(native[0]) != "3" {
		t.Fatalf("native: got %d", len(native))
	}
}

func TestFirst_AlternativeOrderWins(t *testing.T) {
	q := newQuerier(t, `
<x-one><template shadowrootmode="open"><h2>early</h2></template></x-one>
<x-two><template shadowrootmode="open"><h3>late</h3></template></x-two>`)
	n, err := q.First("h3, h2")
	if err != nil {
		t.Fatal(err)
	}
	if n == nil || q.Document().Text(n) != "late" {
		t.Errorf("First(h3, h2): got %v, want the h3", n)
	}
	n, err = q.First("h2, h3")
	if err != nil || n == nil || q.Document().Text(n) != "early" {
		t.Errorf("First(h2, h3): got %v, %v", n, err)
	}
	got := texts(q, mustAll(t, q, "h3, h2"))
	if strings.Join(got, ",") != "early,late" {
		t.Errorf("All(h3, h2): got %v, want discovery order", got)
	}
}
