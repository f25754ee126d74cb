package shell

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"src.oopis.sh/pkg/eval"
)

// script executes a script in non-interactive mode: either the text itself
// (with -c) or the content of a host file. Returns the exit status.
func script(s *eval.Session, fds [3]*os.File, arg string, cmd bool) int {
	var code string
	if cmd {
		code = arg
	} else {
		data, err := os.ReadFile(arg)
		if err != nil {
			fmt.Fprintf(fds[2], "cannot read script %q: %v\n", arg, err)
			return 2
		}
		if !utf8.Valid(data) {
			fmt.Fprintf(fds[2], "script %q is not valid UTF-8\n", arg)
			return 2
		}
		code = string(data)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh, stop := notifyInterrupts()
	defer stop()
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return s.ExecScript(ctx, code, eval.ScriptOpts{})
}
