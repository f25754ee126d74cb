package glob

import "unicode/utf8"

// Match reports whether the parsed pattern matches one path component.
// Names starting with "." only match when the pattern itself starts with a
// literal ".".
func Match(segs []Segment, name string) bool {
	if len(segs) == 0 {
		return name == ""
	}
	if len(name) > 0 && name[0] == '.' && !startsWithDot(segs) {
		return false
	}
	return match(segs, name)
}

func startsWithDot(segs []Segment) bool {
	lit, ok := segs[0].(Literal)
	return ok && len(lit.Data) > 0 && lit.Data[0] == '.'
}

func match(segs []Segment, name string) bool {
segs:
	for len(segs) > 0 {
		// Find a chunk: an optional leading Star followed by a run of
		// fixed-length segments (Literal, Question, Class).
		var i int
		for i = 1; i < len(segs); i++ {
			if _, isStar := segs[i].(Star); isStar {
				break
			}
		}
		chunk := segs[:i]
		_, startsWithStar := chunk[0].(Star)
		if startsWithStar {
			chunk = chunk[1:]
		}
		segs = segs[i:]

		// Match at the current position. If this is the last chunk, the
		// whole name must be consumed.
		ok, rest := matchFixedLength(chunk, name)
		if ok && (rest == "" || len(segs) > 0) {
			name = rest
			continue
		}

		if startsWithStar {
			// Let the star swallow one more rune each iteration and retry
			// the fixed-length chunk after it.
			for i, r := range name {
				j := i + len(string(r))
				ok, rest := matchFixedLength(chunk, name[j:])
				if ok && (rest == "" || len(segs) > 0) {
					name = rest
					continue segs
				}
			}
		}
		return false
	}
	return name == ""
}

// matchFixedLength matches a run of fixed-length segments against a prefix
// of name, returning whether it matched and the remainder.
func matchFixedLength(segs []Segment, name string) (bool, string) {
	for _, seg := range segs {
		switch seg := seg.(type) {
		case Literal:
			n := len(seg.Data)
			if len(name) < n || name[:n] != seg.Data {
				return false, ""
			}
			name = name[n:]
		case Question:
			if name == "" {
				return false, ""
			}
			_, n := utf8.DecodeRuneInString(name)
			name = name[n:]
		case Class:
			if name == "" {
				return false, ""
			}
			r, n := utf8.DecodeRuneInString(name)
			if !seg.Match(r) {
				return false, ""
			}
			name = name[n:]
		default:
			panic("matchFixedLength given star segment")
		}
	}
	return true, name
}
