package eval

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"src.oopis.sh/pkg/auth"
	"src.oopis.sh/pkg/vfs"
)

// Command is a shell built-in: static contract metadata plus the core
// logic. The harness validates everything the metadata declares before Run
// is invoked, so Run can assume its inputs are well-formed.
type Command struct {
	Name        string
	Description string
	// Usage is the synopsis shown by help and man, without the leading
	// command name.
	Usage string
	// Help is the longer text shown by man.
	Help string

	Flags []FlagDef
	// RawFlags disables flag parsing; everything after the name is a
	// positional argument. Needed by commands like kill whose arguments
	// look like flags.
	RawFlags bool
	Args     ArgSpec
	Paths    []PathSpec
	// Completion tells the host completer what the arguments are; the core
	// only carries it.
	Completion Completion
	// InputStream makes the harness gather input items from stdin or from
	// the positional arguments starting at StreamFrom.
	InputStream bool
	StreamFrom  int

	Run func(ctx *Context) error
}

// FlagDef declares one flag. A flag without TakesValue is boolean.
type FlagDef struct {
	Long       string
	Short      string
	TakesValue bool
	Help       string
}

// ArgSpec bounds the positional argument count. Max of -1 means unlimited.
type ArgSpec struct {
	Min int
	Max int
}

// Common argument specs.
var (
	NoArgs  = ArgSpec{0, 0}
	AnyArgs = ArgSpec{0, -1}
)

func ExactArgs(n int) ArgSpec        { return ArgSpec{n, n} }
func MinArgs(n int) ArgSpec          { return ArgSpec{n, -1} }
func RangeArgs(min, max int) ArgSpec { return ArgSpec{min, max} }

// AllArgs as a PathSpec argument index applies the spec to every
// positional argument.
const AllArgs = -1

// PathSpec declares that a positional argument is a path the harness must
// resolve and check before the command runs.
type PathSpec struct {
	// Arg is the positional index the spec applies to, or AllArgs.
	Arg int
	// Expect constrains the node type when the path exists.
	Expect vfs.Expect
	// Perms are required on the resolved node.
	Perms vfs.Perm
	// AllowMissing accepts a missing final component; the command sees a
	// Resolved with Missing set.
	AllowMissing bool
	// NoFollow keeps a trailing symlink unresolved.
	NoFollow bool
	// RequireOwner restricts the operation to the node's owner and root.
	RequireOwner bool
}

// Path is a validated path argument.
type Path struct {
	// Arg is the positional index the path came from.
	Arg int
	// Raw is the argument as typed.
	Raw string
	*vfs.Resolved
}

// Completion classifies what a command's arguments complete to.
type Completion uint8

// Possible values for Completion.
const (
	CompleteNone Completion = iota
	CompletePaths
	CompleteCommands
	CompleteUsers
	CompleteGroups
)

// InputItem is one unit of input for a stream-consuming command: the
// content of a file argument, or the accumulated stdin with an empty path.
type InputItem struct {
	Path    string
	Content string
}

// Context is what a command's Run receives: the validated invocation plus
// handles to the session. The embedded context carries the job's
// cancellation.
type Context struct {
	context.Context

	Session *Session
	Job     *Job
	// Name is the command name as invoked.
	Name  string
	Args  []string
	Flags *pflag.FlagSet
	// Paths holds the validated paths, in the order of the positional
	// arguments they came from.
	Paths []Path
	// Stdin is the upstream output or redirected input; empty for the first
	// stage without redirection.
	Stdin string
	// HasStdin distinguishes empty stdin from no stdin.
	HasStdin bool
	// Items is set for InputStream commands.
	Items []InputItem

	out             strings.Builder
	stateModified   bool
	suppressNewline bool
}

// User returns the identity the command runs as.
func (ctx *Context) User() *auth.Identity { return ctx.Session.Identity() }

// Print appends text to the stage's output.
func (ctx *Context) Print(text string) { ctx.out.WriteString(text) }

// Println appends a line to the stage's output.
func (ctx *Context) Println(text string) {
	ctx.out.WriteString(text)
	ctx.out.WriteByte('\n')
}

// Printf appends formatted text to the stage's output.
func (ctx *Context) Printf(format string, args ...any) {
	fmt.Fprintf(&ctx.out, format, args...)
}

// MarkStateModified requests one filesystem save after the pipeline.
func (ctx *Context) MarkStateModified() { ctx.stateModified = true }

// SuppressNewline stops the presenter from appending a final newline.
func (ctx *Context) SuppressNewline() { ctx.suppressNewline = true }

// Cancelled reports whether the job has been aborted; long-running loops
// poll it.
func (ctx *Context) Cancelled() bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Bool returns a boolean flag value.
func (ctx *Context) Bool(name string) bool {
	v, _ := ctx.Flags.GetBool(name)
	return v
}

// String returns a string flag value.
func (ctx *Context) String(name string) string {
	v, _ := ctx.Flags.GetString(name)
	return v
}
