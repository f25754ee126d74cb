package glob

import (
	"strings"
	"unicode/utf8"
)

// Segment is a piece of a glob pattern within one path component.
type Segment interface {
	isSegment()
}

// Literal matches its text exactly.
type Literal struct {
	Data string
}

// Star matches any run of characters, possibly empty.
type Star struct{}

// Question matches exactly one character.
type Question struct{}

// Class matches one character against a [...] set.
type Class struct {
	Negated bool
	Ranges  []RuneRange
}

// RuneRange is an inclusive range inside a class; single characters have
// Lo == Hi.
type RuneRange struct {
	Lo, Hi rune
}

func (Literal) isSegment()  {}
func (Star) isSegment()     {}
func (Question) isSegment() {}
func (Class) isSegment()    {}

// Match reports whether the class matches r.
func (c Class) Match(r rune) bool {
	in := false
	for _, rg := range c.Ranges {
		if rg.Lo <= r && r <= rg.Hi {
			in = true
			break
		}
	}
	return in != c.Negated
}

// HasMeta reports whether the pattern contains any unescaped glob
// metacharacter. Patterns without metacharacters are plain paths.
func HasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[")
}

// Parse parses one path component of a pattern. An unterminated [ is
// treated as a literal bracket.
func Parse(component string) []Segment {
	var segs []Segment
	add := func(seg Segment) { segs = append(segs, seg) }
	p := &parser{src: component}

	for {
		r := p.next()
		switch r {
		case eof:
			return segs
		case '*':
			// Adjacent stars collapse.
			for p.next() == '*' {
			}
			p.backup()
			add(Star{})
		case '?':
			add(Question{})
		case '[':
			if class, ok := p.parseClass(); ok {
				add(class)
			} else {
				add(Literal{"["})
			}
		default:
			var b strings.Builder
		literal:
			for {
				switch r {
				case '*', '?', '[', eof:
					break literal
				case '\\':
					r = p.next()
					if r == eof {
						break literal
					}
					b.WriteRune(r)
				default:
					b.WriteRune(r)
				}
				r = p.next()
			}
			p.backup()
			add(Literal{b.String()})
		}
	}
}

// parseClass parses the remainder of a [...] set; the opening bracket has
// been consumed. On failure (no closing bracket) the position is restored.
func (p *parser) parseClass() (Class, bool) {
	start := p.pos
	var class Class
	if p.peek() == '!' || p.peek() == '^' {
		p.next()
		class.Negated = true
	}
	first := true
	for {
		r := p.next()
		switch {
		case r == eof:
			p.pos = start
			p.overEOF = 0
			return Class{}, false
		case r == ']' && !first:
			return class, true
		default:
			lo := r
			hi := r
			if p.peek() == '-' {
				p.next()
				if end := p.peek(); end != ']' && end != eof {
					hi = p.next()
				} else {
					// Trailing - is a literal.
					p.backup()
				}
			}
			class.Ranges = append(class.Ranges, RuneRange{lo, hi})
		}
		first = false
	}
}

type parser struct {
	src     string
	pos     int
	overEOF int
}

const eof rune = -1

func (p *parser) next() rune {
	if p.pos == len(p.src) {
		p.overEOF++
		return eof
	}
	r, s := utf8.DecodeRuneInString(p.src[p.pos:])
	p.pos += s
	return r
}

func (p *parser) backup() {
	if p.overEOF > 0 {
		p.overEOF--
		return
	}
	_, s := utf8.DecodeLastRuneInString(p.src[:p.pos])
	p.pos -= s
}

func (p *parser) peek() rune {
	r := p.next()
	p.backup()
	return r
}
