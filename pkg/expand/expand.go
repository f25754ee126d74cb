// Package expand turns lexed words into argument strings. Per word, the
// expansions run in order: braces, tilde, variables, command substitution,
// then globbing. There is no word splitting; field boundaries are fixed by
// the lexer, so one word multiplies only through braces and glob matches.
package expand

import (
	"strings"

	"src.oopis.sh/pkg/glob"
	"src.oopis.sh/pkg/oserr"
	"src.oopis.sh/pkg/parse"
	"src.oopis.sh/pkg/vfs"
)

// Expander carries the session state that expansion consults.
type Expander struct {
	FS   *vfs.FS
	User vfs.User
	PWD  string
	// Home is what a leading ~ expands to.
	Home string
	// Getenv returns the value of a variable, or "" when unset. The last
	// exit status is the variable "?".
	Getenv func(name string) string
	// CmdSubst evaluates the body of $(...) and returns its stdout. A failed
	// command yields empty output and a nil error; the error return is for
	// cancellation. When nil, command substitution is rejected.
	CmdSubst func(body string) (string, error)
	// StrictGlob makes a pattern with no matches an error instead of
	// passing through verbatim.
	StrictGlob bool
}

// Stage expands a stage's words into a flat argument list.
func (ex *Expander) Stage(words []parse.Word) ([]string, error) {
	var args []string
	for _, w := range words {
		fields, err := ex.Word(w)
		if err != nil {
			return nil, err
		}
		args = append(args, fields...)
	}
	return args, nil
}

// Word expands a single word, possibly into several fields.
func (ex *Expander) Word(w parse.Word) ([]string, error) {
	var fields []string
	for _, v := range braceWord(w) {
		// Expansion below mutates segments; keep the parsed word intact.
		bw := make(parse.Word, len(v))
		copy(bw, v)
		tildeWord(bw, ex.Home)
		if err := ex.substitute(bw); err != nil {
			return nil, err
		}
		fs, err := ex.globWord(bw)
		if err != nil {
			return nil, err
		}
		fields = append(fields, fs...)
	}
	return fields, nil
}

// One expands a word that must produce exactly one field, such as a
// redirection target.
func (ex *Expander) One(w parse.Word) (string, error) {
	fields, err := ex.Word(w)
	if err != nil {
		return "", err
	}
	if len(fields) != 1 {
		text, _ := w.Literal()
		return "", oserr.Newf(oserr.InvalidInput, "%v: ambiguous redirect", text)
	}
	return fields[0], nil
}

// braceWord applies brace expansion to the bare segments of a word,
// multiplying the word. A brace construct must be contained in one bare
// segment; quoted braces are never special.
func braceWord(w parse.Word) []parse.Word {
	for i, seg := range w {
		if seg.Kind != parse.Bare {
			continue
		}
		variants := expandBraces(seg.Text)
		if len(variants) == 1 && variants[0] == seg.Text {
			continue
		}
		var out []parse.Word
		for _, v := range variants {
			nw := make(parse.Word, len(w))
			copy(nw, w)
			nw[i] = parse.Segment{Kind: parse.Bare, Text: v}
			out = append(out, braceWord(nw)...)
		}
		return out
	}
	return []parse.Word{w}
}

// tildeWord rewrites a leading bare ~ to the home directory, in place.
func tildeWord(w parse.Word, home string) {
	if len(w) == 0 || w[0].Kind != parse.Bare || home == "" {
		return
	}
	text := w[0].Text
	if text == "~" {
		w[0].Text = home
	} else if strings.HasPrefix(text, "~/") {
		w[0].Text = home + text[1:]
	}
}

// substitute expands variables and command substitutions in place. The
// results stay in their segment: substituted text in a bare segment remains
// subject to globbing, quoted text does not.
func (ex *Expander) substitute(w parse.Word) error {
	for i, seg := range w {
		switch seg.Kind {
		case parse.Bare, parse.Quoted:
			w[i].Text = ex.expandVars(seg.Text)
		case parse.CmdSubst:
			if ex.CmdSubst == nil {
				return oserr.Newf(oserr.InvalidInput, "command substitution is not allowed here")
			}
			out, err := ex.CmdSubst(seg.Text)
			if err != nil {
				return err
			}
			w[i] = parse.Segment{Kind: parse.Bare, Text: strings.TrimRight(out, "\n")}
		}
	}
	return nil
}

// expandVars replaces $NAME, ${NAME} and $? in s. Unset variables expand
// to empty; a $ that starts no variable is literal.
func (ex *Expander) expandVars(s string) string {
	var b strings.Builder
	for {
		i := strings.IndexByte(s, '$')
		if i < 0 || i == len(s)-1 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i])
		rest := s[i+1:]
		switch {
		case rest[0] == '?':
			b.WriteString(ex.getenv("?"))
			s = rest[1:]
		case rest[0] == '{':
			end := strings.IndexByte(rest, '}')
			if end < 0 {
				b.WriteByte('$')
				s = rest
				continue
			}
			b.WriteString(ex.getenv(rest[1:end]))
			s = rest[end+1:]
		default:
			n := nameLen(rest)
			if n == 0 {
				b.WriteByte('$')
				s = rest
				continue
			}
			b.WriteString(ex.getenv(rest[:n]))
			s = rest[n:]
		}
	}
}

func (ex *Expander) getenv(name string) string {
	if ex.Getenv == nil {
		return ""
	}
	return ex.Getenv(name)
}

// nameLen returns the length of the variable name prefix of s.
func nameLen(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		ok := c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') ||
			(i > 0 && '0' <= c && c <= '9')
		if !ok {
			return i
		}
	}
	return len(s)
}

// globWord matches the fully substituted word against the filesystem. Only
// bare text carries active metacharacters; quoted and escaped text is
// matched literally. With no matches the word passes through verbatim,
// unless strict globbing is on.
func (ex *Expander) globWord(w parse.Word) ([]string, error) {
	var pattern, verbatim strings.Builder
	meta := false
	for _, seg := range w {
		verbatim.WriteString(seg.Text)
		if seg.Kind == parse.Bare {
			pattern.WriteString(seg.Text)
			meta = meta || glob.HasMeta(seg.Text)
		} else {
			pattern.WriteString(escapeMeta(seg.Text))
		}
	}
	if !meta || ex.FS == nil {
		return []string{verbatim.String()}, nil
	}
	matches := glob.Glob(ex.FS, ex.User, ex.PWD, pattern.String())
	if len(matches) == 0 {
		if ex.StrictGlob {
			return nil, oserr.Newf(oserr.NotFound, "%v: no matches", verbatim.String())
		}
		return []string{verbatim.String()}, nil
	}
	return matches, nil
}

// escapeMeta backslash-escapes glob metacharacters.
func escapeMeta(s string) string {
	if !strings.ContainsAny(s, `*?[\`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
