package deepquery

import (
	"reflect"
	"testing"
)

func TestSplitUnquoted(t *testing.T) {
	tests := []struct {
		in   string
		sep  byte
		want []string
	}{
		{`a[data-x="1,2"],b`, ',', []string{`a[data-x="1,2"]`, "b"}},
		{`a[title='x, "y"'],b`, ',', []string{`a[title='x, "y"']`, "b"}},
		{`a[title="it's"],b`, ',', []string{`a[title="it's"]`, "b"}},
		{`a\,b,c`, ',', []string{`a\,b`, "c"}},
		{`a[x="\",y"],b`, ',', []string{`a[x="\",y"]`, "b"}},
		{"", ',', []string{""}},
		{"a,,b", ',', []string{"a", "", "b"}},
		{`a[x="unterminated,b`, ',', []string{`a[x="unterminated,b`}},
		{`div p[title="a b"]`, ' ', []string{"div", `p[title="a b"]`}},
		{`li:not(.a, .b),h1`, ',', []string{"li:not(.a, .b)", "h1"}},
		{`ul li:not(ul .a)`, ' ', []string{"ul", "li:not(ul .a)"}},
		{`a[x="("],b`, ',', []string{`a[x="("]`, "b"}},
		{`a:not(b,c`, ',', []string{`a:not(b,c`}},
	}
	for _, tt := range tests {
		got := splitUnquoted(tt.in, tt.sep)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitUnquoted(%q, %q): got %q, want %q", tt.in, tt.sep, got, tt.want)
		}
	}
}

func TestSplitStages(t *testing.T) {
	got := splitStages("x-app >>> x-list>>>li")
	want := []string{"x-app ", " x-list", "li"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"div  >  p", "div>p"},
		{"  x-app \t .card > h2 ", "x-app .card>h2"},
		{"a + b ~ c", "a+b~c"},
		{"a\n\nb", "a b"},
		{`p[title="x  >  y"]  b`, `p[title="x  >  y"] b`},
		{`p[title='a ~ b']>i`, `p[title='a ~ b']>i`},
	}
	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.want {
			t.Errorf("normalize(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSegment(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"x-app .card > h2", []string{"x-app", ".card>h2"}},
		{"  ul   li  ", []string{"ul", "li"}},
		{`div[title="a b"] span`, []string{`div[title="a b"]`, "span"}},
		{"li", []string{"li"}},
		{"ul li:not(ul > .a)", []string{"ul", "li:not(ul>.a)"}},
		{"   ", nil},
	}
	for _, tt := range tests {
		got := segment(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("segment(%q): got %q, want %q", tt.in, got, tt.want)
		}
	}
}
