package shell

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"src.oopis.sh/pkg/eval"
	"src.oopis.sh/pkg/vfs"
)

// rcScriptPath is the in-system rc script, executed on interactive startup.
const rcScriptPath = "/etc/oopisrc"

// interact runs the interactive read-eval loop until EOF or an exit
// request. SIGINT cancels the line under execution instead of killing the
// process.
func interact(s *eval.Session, fds [3]*os.File, cfg Config, noRc bool) {
	s.Interactive = true

	if !noRc {
		sourceRC(s)
	}

	sigCh, stop := notifyInterrupts()
	defer stop()

	tty := isatty.IsTerminal(fds[0].Fd()) || isatty.IsCygwinTerminal(fds[0].Fd())
	promptTemplate := cfg.Prompt
	if promptTemplate == "" {
		promptTemplate = DefaultPrompt
	}

	in := bufio.NewScanner(fds[0])
	for {
		if tty {
			fmt.Fprint(fds[1], prompt(s, promptTemplate))
		}
		if !in.Scan() {
			if err := in.Err(); err != nil {
				fmt.Fprintln(fds[2], "read error:", err)
			}
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		lineDone := make(chan struct{})
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-lineDone:
			}
		}()
		s.ExecLine(ctx, in.Text())
		close(lineDone)
		cancel()

		if s.ExitRequested() {
			return
		}
	}
}

// sourceRC runs /etc/oopisrc if it exists. Errors are reported through the
// output port but never abort startup.
func sourceRC(s *eval.Session) {
	content, err := s.FS.ReadFile(rcScriptPath, "/", s.Identity())
	if err != nil {
		return
	}
	if status := s.ExecScript(context.Background(), content, eval.ScriptOpts{ContinueOnError: true}); status != 0 {
		logger.Printf("%v exited with status %v", rcScriptPath, status)
	}
}

// prompt renders the prompt template for the current session state. The
// final $ becomes # for root.
func prompt(s *eval.Session, template string) string {
	host, _ := s.Env.Get("HOST")
	p := strings.NewReplacer(
		"{user}", s.UserName(),
		"{host}", host,
		"{pwd}", s.Pwd(),
	).Replace(template)
	if s.UserName() == vfs.Root && strings.HasSuffix(p, "$ ") {
		p = strings.TrimSuffix(p, "$ ") + "# "
	}
	return p
}
