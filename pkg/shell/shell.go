// Package shell is the entry point for the terminal interface of OopisOS.
package shell

import (
	"fmt"
	"os"

	"src.oopis.sh/pkg/logutil"
	"src.oopis.sh/pkg/prog"
)

var logger = logutil.GetLogger("[shell] ")

// Program is the shell subprogram. It runs last in the composite: every
// invocation that is not claimed by another subprogram lands here.
type Program struct{}

func (p Program) Run(fds [3]*os.File, f *prog.Flags, args []string) error {
	rcPath := f.RC
	if rcPath == "" {
		var err error
		rcPath, err = defaultConfigPath()
		if err != nil {
			fmt.Fprintln(fds[2], "Warning:", err)
		}
	}
	cfg, err := loadConfig(rcPath)
	if err != nil {
		fmt.Fprintln(fds[2], "Warning:", err)
	}

	s, cleanup, err := setupSession(f, cfg, fds)
	if err != nil {
		fmt.Fprintln(fds[2], err)
		return prog.Exit(2)
	}
	defer cleanup()

	if f.CodeInArg || len(args) > 0 {
		if len(args) == 0 {
			return prog.BadUsage("-c requires an argument")
		}
		return prog.Exit(script(s, fds, args[0], f.CodeInArg))
	}
	interact(s, fds, cfg, f.NoRc)
	return nil
}
