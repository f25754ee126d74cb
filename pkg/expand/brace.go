package expand

import (
	"strconv"
	"strings"
)

// expandBraces performs brace expansion on s. {a,b} lists siblings, {n..m}
// counts numerically in either direction, {a..z} counts through letters.
// Braces that form neither a list nor a range, such as {a}, pass through
// verbatim.
func expandBraces(s string) []string {
	open := strings.IndexByte(s, '{')
	for open >= 0 {
		end := matchingBrace(s, open)
		if end < 0 {
			break
		}
		body := s[open+1 : end]
		alts := splitAlternatives(body)
		if len(alts) == 1 {
			rng, ok := expandRange(body)
			if !ok {
				// Not a brace construct; try the next opening brace.
				next := strings.IndexByte(s[open+1:], '{')
				if next < 0 {
					break
				}
				open += 1 + next
				continue
			}
			alts = rng
		}
		prefix, suffix := s[:open], s[end+1:]
		var out []string
		for _, alt := range alts {
			for _, a := range expandBraces(alt) {
				for _, b := range expandBraces(suffix) {
					out = append(out, prefix+a+b)
				}
			}
		}
		return out
	}
	return []string{s}
}

// matchingBrace returns the index of the brace closing s[open], or -1.
func matchingBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitAlternatives splits a brace body on top-level commas.
func splitAlternatives(body string) []string {
	var alts []string
	depth := 0
	start := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				alts = append(alts, body[start:i])
				start = i + 1
			}
		}
	}
	return append(alts, body[start:])
}

// expandRange interprets a brace body of the form lo..hi.
func expandRange(body string) ([]string, bool) {
	i := strings.Index(body, "..")
	if i < 0 {
		return nil, false
	}
	lo, hi := body[:i], body[i+2:]

	if nlo, err1 := strconv.Atoi(lo); err1 == nil {
		nhi, err2 := strconv.Atoi(hi)
		if err2 != nil {
			return nil, false
		}
		return numericRange(nlo, nhi), true
	}

	rlo := []rune(lo)
	rhi := []rune(hi)
	if len(rlo) != 1 || len(rhi) != 1 || !isLetter(rlo[0]) || !isLetter(rhi[0]) {
		return nil, false
	}
	var out []string
	if rlo[0] <= rhi[0] {
		for r := rlo[0]; r <= rhi[0]; r++ {
			out = append(out, string(r))
		}
	} else {
		for r := rlo[0]; r >= rhi[0]; r-- {
			out = append(out, string(r))
		}
	}
	return out, true
}

func numericRange(lo, hi int) []string {
	var out []string
	if lo <= hi {
		for n := lo; n <= hi; n++ {
			out = append(out, strconv.Itoa(n))
		}
	} else {
		for n := lo; n >= hi; n-- {
			out = append(out, strconv.Itoa(n))
		}
	}
	return out
}

func isLetter(r rune) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}
