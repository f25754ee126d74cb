package eval

import (
	"context"
	"strings"

	"src.oopis.sh/pkg/oserr"
)

// ScriptOpts controls script execution.
type ScriptOpts struct {
	// ContinueOnError keeps running after a line exits non-zero.
	ContinueOnError bool
}

// ExecScript runs a script: every line goes through the normal execution
// pipeline, non-interactively, under one shared cancellation. Blank lines
// and # comments are skipped. By default the script halts on the first
// failing line; the final status is that of the last line run.
func (s *Session) ExecScript(ctx context.Context, src string, opts ScriptOpts) int {
	interactive := s.Interactive
	s.Interactive = false
	defer func() { s.Interactive = interactive }()

	status := oserr.StatusOK
	for _, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if ctx.Err() != nil {
			s.setStatus(oserr.StatusCancelled)
			return oserr.StatusCancelled
		}
		status = s.ExecLine(ctx, line)
		if s.exitRequested {
			break
		}
		if status != oserr.StatusOK && !opts.ContinueOnError {
			break
		}
	}
	return status
}
