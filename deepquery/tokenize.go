package deepquery

// splitUnquoted splits s on every sep that is outside single or double
// quotes and outside parentheses or brackets, so ":not(.a, .b)" and
// ":is(ul li)" stay whole. A backslash makes the next byte literal.
// Unbalanced quotes keep their state to the end of s. An empty s yields [""].
func splitUnquoted(s string, sep byte) []string {
	var (
		parts  []string
		start  int
		depth  int
		single bool
		double bool
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			i++
		case c == '"' && !single:
			double = !double
		case c == '\'' && !double:
			single = !single
		case single || double:
		case c == '(' || c == '[':
			depth++
		case (c == ')' || c == ']') && depth > 0:
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
