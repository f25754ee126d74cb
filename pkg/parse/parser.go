package parse

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Error is a lex error.
type Error struct {
	Message string
	Pos     int
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse error at column %d: %s", e.Pos+1, e.Message)
}

// Parse parses a raw input line. The returned error, if not nil, has type
// *Error.
func Parse(src string) (*Line, error) {
	ps := &parser{src: src}
	line, err := ps.parseLine()
	if err != nil {
		return nil, err
	}
	return line, nil
}

// parser maintains the mutable state of lexing.
//
// NOTE: The src member is assumed to be valid UTF-8.
type parser struct {
	src     string
	pos     int
	overEOF int
}

const eof rune = -1

func (ps *parser) next() rune {
	if ps.pos == len(ps.src) {
		ps.overEOF++
		return eof
	}
	r, s := utf8.DecodeRuneInString(ps.src[ps.pos:])
	ps.pos += s
	return r
}

func (ps *parser) backup() {
	if ps.overEOF > 0 {
		ps.overEOF--
		return
	}
	_, s := utf8.DecodeLastRuneInString(ps.src[:ps.pos])
	ps.pos -= s
}

func (ps *parser) peek() rune {
	r := ps.next()
	ps.backup()
	return r
}

func (ps *parser) errorf(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...), Pos: ps.pos}
}

func (ps *parser) skipSpaces() {
	for {
		r := ps.next()
		if r != ' ' && r != '\t' {
			ps.backup()
			return
		}
	}
}

func (ps *parser) parseLine() (*Line, error) {
	line := &Line{}
	afterAnd := false
	for {
		pipeline, err := ps.parsePipeline()
		if err != nil {
			return nil, err
		}
		if pipeline == nil && afterAnd {
			return nil, ps.errorf("missing command after &&")
		}
		afterAnd = false
		if pipeline != nil {
			line.Pipelines = append(line.Pipelines, pipeline)
		}
		ps.skipSpaces()
		switch r := ps.next(); r {
		case eof:
			return line, nil
		case ';':
			continue
		case '&':
			if ps.peek() == '&' {
				ps.next()
				if pipeline == nil {
					return nil, ps.errorf("&& with nothing before it")
				}
				pipeline.AndNext = true
				afterAnd = true
				continue
			}
			if len(line.Pipelines) == 0 {
				return nil, ps.errorf("& with nothing to background")
			}
			ps.skipSpaces()
			if r := ps.next(); r != eof {
				return nil, ps.errorf("unexpected %q after &", r)
			}
			line.Pipelines[len(line.Pipelines)-1].Background = true
			return line, nil
		default:
			return nil, ps.errorf("unexpected %q", r)
		}
	}
}

// parsePipeline returns nil (and no error) for an empty pipeline, so that
// stray separators are tolerated.
func (ps *parser) parsePipeline() (*Pipeline, error) {
	pipeline := &Pipeline{}
	for {
		stage, err := ps.parseStage()
		if err != nil {
			return nil, err
		}
		if stage == nil {
			if len(pipeline.Stages) > 0 {
				return nil, ps.errorf("missing command after |")
			}
			return nil, nil
		}
		pipeline.Stages = append(pipeline.Stages, stage)
		ps.skipSpaces()
		if ps.peek() != '|' {
			return pipeline, nil
		}
		ps.next()
	}
}

// parseStage returns nil (and no error) when no word starts a stage.
func (ps *parser) parseStage() (*Stage, error) {
	stage := &Stage{}
	for {
		ps.skipSpaces()
		switch r := ps.peek(); r {
		case '<', '>':
			ps.next()
			mode := RedirIn
			if r == '>' {
				mode = RedirOut
				if ps.peek() == '>' {
					ps.next()
					mode = RedirAppend
				}
			}
			ps.skipSpaces()
			target, err := ps.parseWord()
			if err != nil {
				return nil, err
			}
			if target == nil {
				return nil, ps.errorf("missing redirection target after %v", mode)
			}
			stage.Redirs = append(stage.Redirs, Redir{mode, target})
		default:
			word, err := ps.parseWord()
			if err != nil {
				return nil, err
			}
			if word == nil {
				if len(stage.Words) == 0 && len(stage.Redirs) == 0 {
					return nil, nil
				}
				if len(stage.Words) == 0 {
					return nil, ps.errorf("redirection without a command")
				}
				return stage, nil
			}
			stage.Words = append(stage.Words, word)
		}
	}
}

func isWordEnd(r rune) bool {
	switch r {
	case eof, ' ', '\t', '|', ';', '&', '<', '>':
		return true
	}
	return false
}

// parseWord returns nil (and no error) when the next rune cannot start a
// word.
func (ps *parser) parseWord() (Word, error) {
	var word Word
	var bare strings.Builder
	flushBare := func() {
		if bare.Len() > 0 {
			word = append(word, Segment{Bare, bare.String()})
			bare.Reset()
		}
	}
	for {
		r := ps.next()
		switch {
		case isWordEnd(r):
			ps.backup()
			flushBare()
			if len(word) == 0 {
				return nil, nil
			}
			return word, nil
		case r == '\'':
			flushBare()
			seg, err := ps.parseSingleQuoted()
			if err != nil {
				return nil, err
			}
			word = append(word, seg)
		case r == '"':
			flushBare()
			segs, err := ps.parseDoubleQuoted()
			if err != nil {
				return nil, err
			}
			word = append(word, segs...)
		case r == '\\':
			escaped := ps.next()
			if escaped == eof {
				return nil, ps.errorf("dangling backslash")
			}
			flushBare()
			word = append(word, Segment{Literal, string(escaped)})
		case r == '$' && ps.peek() == '(':
			ps.next()
			flushBare()
			seg, err := ps.parseCmdSubst()
			if err != nil {
				return nil, err
			}
			word = append(word, seg)
		default:
			bare.WriteRune(r)
		}
	}
}

// parseSingleQuoted parses the remainder of a '...' string; the opening
// quote has been consumed.
func (ps *parser) parseSingleQuoted() (Segment, error) {
	var b strings.Builder
	for {
		switch r := ps.next(); r {
		case eof:
			return Segment{}, ps.errorf("unterminated single-quoted string")
		case '\'':
			return Segment{Literal, b.String()}, nil
		default:
			b.WriteRune(r)
		}
	}
}

// parseDoubleQuoted parses the remainder of a "..." string; the opening
// quote has been consumed. The content may mix variable-expandable text,
// escaped literals and command substitutions, hence multiple segments.
func (ps *parser) parseDoubleQuoted() ([]Segment, error) {
	var segs []Segment
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			segs = append(segs, Segment{Quoted, text.String()})
			text.Reset()
		}
	}
	for {
		switch r := ps.next(); r {
		case eof:
			return nil, ps.errorf("unterminated double-quoted string")
		case '"':
			flush()
			if len(segs) == 0 {
				// "" is an empty but present word part.
				segs = append(segs, Segment{Literal, ""})
			}
			return segs, nil
		case '\\':
			escaped := ps.next()
			if escaped == eof {
				return nil, ps.errorf("unterminated double-quoted string")
			}
			flush()
			segs = append(segs, Segment{Literal, string(escaped)})
		case '$':
			if ps.peek() == '(' {
				ps.next()
				flush()
				seg, err := ps.parseCmdSubst()
				if err != nil {
					return nil, err
				}
				segs = append(segs, seg)
			} else {
				text.WriteRune('$')
			}
		default:
			text.WriteRune(r)
		}
	}
}

// parseCmdSubst parses the body of $(...); the "$(" has been consumed.
// Parens nest; quotes inside the body are kept verbatim for the recursive
// parse at substitution time.
func (ps *parser) parseCmdSubst() (Segment, error) {
	var b strings.Builder
	depth := 1
	for {
		switch r := ps.next(); r {
		case eof:
			return Segment{}, ps.errorf("unterminated $(")
		case '(':
			depth++
			b.WriteRune(r)
		case ')':
			depth--
			if depth == 0 {
				return Segment{CmdSubst, b.String()}, nil
			}
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
}
