// Package parse implements the shell lexer. It converts a raw input line
// into pipelines of stages, preserving enough quoting structure for the
// expander to know which parts of each word are literal.
//
// The grammar:
//
//	line     := pipeline ((';'|'&&') pipeline)* ['&']
//	pipeline := stage ('|' stage)*
//	stage    := word+ ( ('<'|'>'|'>>') word )*
package parse

// Line is a parsed input line.
type Line struct {
	Pipelines []*Pipeline
}

// Pipeline is a sequence of stages connected by |.
type Pipeline struct {
	Stages []*Stage
	// Background is set when the pipeline is followed by &.
	Background bool
	// AndNext is set when the pipeline is followed by &&: the next pipeline
	// only runs if this one succeeds.
	AndNext bool
}

// Stage is a single command invocation within a pipeline.
type Stage struct {
	Words  []Word
	Redirs []Redir
}

// RedirMode is the kind of a redirection.
type RedirMode uint8

// Possible values for RedirMode.
const (
	RedirIn RedirMode = iota
	RedirOut
	RedirAppend
)

func (m RedirMode) String() string {
	switch m {
	case RedirIn:
		return "<"
	case RedirOut:
		return ">"
	default:
		return ">>"
	}
}

// Redir is a redirection attached to a stage.
type Redir struct {
	Mode   RedirMode
	Target Word
}

// SegKind classifies a word segment by how much expansion applies to it.
type SegKind uint8

// Possible values for SegKind.
const (
	// Bare text is unquoted: variables expand and glob, brace and tilde
	// metacharacters are active.
	Bare SegKind = iota
	// Literal text comes from single quotes or backslash escapes; nothing
	// in it expands.
	Literal
	// Quoted text comes from double quotes: variables expand but globbing
	// and braces do not apply.
	Quoted
	// CmdSubst is the body of a $(...) substitution.
	CmdSubst
)

// Segment is a run of text in a word with uniform expansion semantics.
type Segment struct {
	Kind SegKind
	Text string
}

// Word is a sequence of adjacent segments forming one shell word.
type Word []Segment

// Literal returns the concatenated text of the word if no segment requires
// evaluation (no command substitution), along with whether that holds. It is
// what alias lookup matches against.
func (w Word) Literal() (string, bool) {
	var text string
	for _, seg := range w {
		if seg.Kind == CmdSubst {
			return "", false
		}
		text += seg.Text
	}
	return text, true
}
