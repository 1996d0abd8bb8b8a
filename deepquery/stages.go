package deepquery

import "strings"

// boundary separates stages that live in successive shadow scopes.
const boundary = ">>>"

// splitStages cuts a selector on the boundary marker. The marker is not
// looked for inside quotes; attribute values containing ">>>" are not
// supported.
func splitStages(sel string) []string {
	return strings.Split(sel, boundary)
}

func isCombinator(c byte) bool {
	return c == '>' || c == '+' || c == '~'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

// normalize drops whitespace around >, + and ~ and collapses every other
// whitespace run to a single space. Quoted spans are copied untouched.
func normalize(s string) string {
	var (
		b       strings.Builder
		single  bool
		double  bool
		pending bool // whitespace seen, not yet written
	)
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !single && !double {
			if isSpace(c) {
				pending = true
				continue
			}
			if isCombinator(c) {
				pending = false
				b.WriteByte(c)
				for i+1 < len(s) && isSpace(s[i+1]) {
					i++
				}
				continue
			}
		}
		if pending {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			pending = false
		}
		b.WriteByte(c)
		switch {
		case c == '\\' && i+1 < len(s):
			i++
			b.WriteByte(s[i])
		case c == '"' && !single:
			double = !double
		case c == '\'' && !double:
			single = !single
		}
	}
	return b.String()
}

// segment turns one comma-free stage into its compound components, outermost
// ancestor first and the target element last. Child and sibling combinators
// stay inside their component ("div>p"), so each component is itself a valid
// selector.
func segment(stage string) []string {
	var out []string
	for _, p := range splitUnquoted(normalize(stage), ' ') {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
