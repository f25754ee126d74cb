package parse

import "strings"

// Quote returns a representation of s that lexes back to s as a single
// word. Plain text is left alone; anything containing metacharacters is
// single-quoted, with embedded single quotes escaped via backslash outside
// the quotes.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if !needsQuote(s) {
		return s
	}
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		if r == '\'' {
			b.WriteString(`'\''`)
		} else {
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func needsQuote(s string) bool {
	return strings.ContainsAny(s, " \t|;&<>'\"\\$*?[]{}~#()=")
}
