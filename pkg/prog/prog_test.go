package prog_test

import (
	"io"
	"os"
	"strings"
	"testing"

	"src.oopis.sh/pkg/must"
	"src.oopis.sh/pkg/prog"
)

type result struct {
	exit           int
	stdout, stderr string
}

// capture runs the program with piped stdout and stderr.
func capture(p prog.Program, args ...string) result {
	r1, w1 := must.OK2(os.Pipe())
	r2, w2 := must.OK2(os.Pipe())
	devNull := must.OK1(os.Open(os.DevNull))
	defer devNull.Close()
	exit := prog.Run([3]*os.File{devNull, w1, w2}, append([]string{"oopis"}, args...), p)
	w1.Close()
	w2.Close()
	stdout := string(must.OK1(io.ReadAll(r1)))
	stderr := string(must.OK1(io.ReadAll(r2)))
	return result{exit, stdout, stderr}
}

type fixedProgram struct {
	err  error
	ran  *bool
	args *[]string
}

func (p fixedProgram) Run(fds [3]*os.File, f *prog.Flags, args []string) error {
	if p.ran != nil {
		*p.ran = true
	}
	if p.args != nil {
		*p.args = args
	}
	return p.err
}

func TestRunOK(t *testing.T) {
	var args []string
	r := capture(fixedProgram{args: &args}, "a", "b")
	if r.exit != 0 {
		t.Errorf("exit = %d, want 0", r.exit)
	}
	if len(args) != 2 || args[0] != "a" || args[1] != "b" {
		t.Errorf("args = %v", args)
	}
}

func TestBadFlag(t *testing.T) {
	r := capture(fixedProgram{}, "-bad-flag")
	if r.exit != 2 {
		t.Errorf("exit = %d, want 2", r.exit)
	}
	if !strings.Contains(r.stderr, "Usage:") {
		t.Errorf("stderr does not show usage:\n%s", r.stderr)
	}
}

func TestHelp(t *testing.T) {
	var ran bool
	r := capture(fixedProgram{ran: &ran}, "-help")
	if r.exit != 0 || ran {
		t.Errorf("exit = %d, ran = %v", r.exit, ran)
	}
	if !strings.Contains(r.stdout, "Usage:") {
		t.Errorf("stdout does not show usage:\n%s", r.stdout)
	}
}

func TestBadUsage(t *testing.T) {
	r := capture(fixedProgram{err: prog.BadUsage("lorem ipsum")})
	if r.exit != 2 {
		t.Errorf("exit = %d, want 2", r.exit)
	}
	if !strings.Contains(r.stderr, "lorem ipsum") || !strings.Contains(r.stderr, "Usage:") {
		t.Errorf("stderr = %q", r.stderr)
	}
}

func TestExit(t *testing.T) {
	r := capture(fixedProgram{err: prog.Exit(3)})
	if r.exit != 3 || r.stderr != "" {
		t.Errorf("got (%d, %q), want (3, \"\")", r.exit, r.stderr)
	}
	if prog.Exit(0) != nil {
		t.Errorf("Exit(0) is not nil")
	}
}

func TestComposite(t *testing.T) {
	var ran bool
	notSuitable := fixedProgram{err: prog.ErrNotSuitable}
	r := capture(prog.Composite(notSuitable, fixedProgram{ran: &ran}))
	if r.exit != 0 || !ran {
		t.Errorf("exit = %d, ran = %v", r.exit, ran)
	}

	r = capture(prog.Composite(notSuitable, notSuitable))
	if r.exit != 2 {
		t.Errorf("exit of all-unsuitable composite = %d, want 2", r.exit)
	}
}
