package eval

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"src.oopis.sh/pkg/env"
	"src.oopis.sh/pkg/expand"
	"src.oopis.sh/pkg/oserr"
	"src.oopis.sh/pkg/parse"
)

// ExecLine runs one raw input line: parse, record history, then run each
// pipeline in order. A failing pipeline followed by && skips the rest of
// its && chain; execution resumes after the chain. ExecLine returns the
// exit status of the last pipeline run and records it in $?.
func (s *Session) ExecLine(ctx context.Context, raw string) int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return oserr.StatusOK
	}
	line, err := parse.Parse(raw)
	if err != nil {
		s.Ports.Output.Append("oopis: " + err.Error())
		s.setStatus(oserr.StatusUsage)
		return oserr.StatusUsage
	}
	if s.Interactive {
		s.History.Add(trimmed)
	}
	status := oserr.StatusOK
	skip := false
	for _, p := range line.Pipelines {
		if skip {
			skip = p.AndNext
			continue
		}
		status = s.runPipeline(ctx, p, nil)
		s.setStatus(status)
		if s.exitRequested {
			break
		}
		skip = p.AndNext && status != oserr.StatusOK
	}
	return status
}

func (s *Session) setStatus(status int) {
	s.Env.Set(env.STATUS, strconv.Itoa(status))
}

// runPipeline executes one pipeline. With a nil capture the last stage's
// output is presented through the Output port; otherwise it is captured,
// as during command substitution. Background pipelines return immediately
// with status 0.
func (s *Session) runPipeline(ctx context.Context, p *parse.Pipeline, capture *strings.Builder) int {
	for _, stage := range p.Stages {
		s.aliasExpand(stage)
	}
	job, jobCtx := s.Jobs.Add(ctx, pipelineText(p), p.Background)
	if p.Background && capture == nil {
		go func() {
			status := s.runStages(jobCtx, job, p, nil)
			job.finish(status)
			job.cancel()
		}()
		return oserr.StatusOK
	}
	status := s.runStages(jobCtx, job, p, capture)
	job.finish(status)
	job.cancel()
	return status
}

// aliasExpand rewrites the head word of a stage through the alias table.
// Expansion is single-pass, so aliases cannot loop.
func (s *Session) aliasExpand(stage *parse.Stage) {
	if len(stage.Words) == 0 {
		return
	}
	name, ok := stage.Words[0].Literal()
	if !ok {
		return
	}
	value, ok := s.Aliases.Get(name)
	if !ok {
		return
	}
	line, err := parse.Parse(value)
	if err != nil || len(line.Pipelines) == 0 || len(line.Pipelines[0].Stages) == 0 {
		return
	}
	head := line.Pipelines[0].Stages[0].Words
	stage.Words = append(append([]parse.Word{}, head...), stage.Words[1:]...)
}

// runStages runs a pipeline's stages in strict sequence, feeding each
// stage's output to the next as an in-memory buffer.
func (s *Session) runStages(ctx context.Context, job *Job, p *parse.Pipeline, capture *strings.Builder) int {
	stdin := ""
	hasStdin := false
	stateModified := false
	suppress := false

	for _, stage := range p.Stages {
		if err := job.Checkpoint(ctx); err != nil {
			return oserr.StatusCancelled
		}
		ex := s.expander(ctx)
		args, err := ex.Stage(stage.Words)
		if err != nil {
			return s.presentError("oopis", err)
		}
		if len(args) == 0 {
			return s.presentError("oopis", oserr.Newf(oserr.Usage, "missing command"))
		}
		cmd, err := s.Registry.EnsureLoaded(args[0])
		if err != nil {
			return s.presentError(args[0], err)
		}

		// Input redirection overrides the pipe.
		for _, redir := range stage.Redirs {
			if redir.Mode != parse.RedirIn {
				continue
			}
			target, err := ex.One(redir.Target)
			if err != nil {
				return s.presentError(args[0], err)
			}
			content, err := s.FS.ReadFile(target, s.Pwd(), s.Identity())
			if err != nil {
				return s.presentError(args[0], err)
			}
			stdin, hasStdin = content, true
		}

		result, err := s.runHarness(ctx, job, cmd, args, stdin, hasStdin)
		if err != nil {
			return s.presentError(args[0], err)
		}
		stateModified = stateModified || result.stateModified
		suppress = result.suppressNewline

		output := result.output
		for _, redir := range stage.Redirs {
			if redir.Mode == parse.RedirIn {
				continue
			}
			target, err := ex.One(redir.Target)
			if err != nil {
				return s.presentError(args[0], err)
			}
			if redir.Mode == parse.RedirAppend {
				err = s.FS.AppendFile(target, s.Pwd(), s.Identity(), output)
			} else {
				err = s.FS.WriteFile(target, s.Pwd(), s.Identity(), output)
			}
			if err != nil {
				return s.presentError(args[0], err)
			}
			stateModified = true
			output = ""
		}
		stdin, hasStdin = output, true
	}

	s.present(stdin, suppress, capture)
	if stateModified {
		if err := s.FS.Save(); err != nil {
			logger.Printf("save failed: %v", err)
			s.Ports.Output.Append("oopis: " + err.Error())
		}
	}
	return oserr.StatusOK
}

// present delivers a pipeline's final output, either into the capture
// buffer or to the Output port with the trailing newline stripped.
func (s *Session) present(output string, suppress bool, capture *strings.Builder) {
	if capture != nil {
		capture.WriteString(output)
		return
	}
	if output == "" {
		return
	}
	if !suppress {
		output = strings.TrimSuffix(output, "\n")
	}
	s.Ports.Output.Append(output)
}

// presentError prints an error prefixed by the offending command and
// returns its exit status. Suggestions print as a following hint line.
func (s *Session) presentError(name string, err error) int {
	msg := err.Error()
	if !strings.HasPrefix(msg, name+":") {
		msg = name + ": " + msg
	}
	s.Ports.Output.Append(msg)
	var e *oserr.Error
	if errors.As(err, &e) && e.Suggestion != "" {
		s.Ports.Output.Append(e.Suggestion)
	}
	return oserr.ExitCodeOf(err)
}

// expander builds the word expander for the session's current state. The
// command-substitution hook reenters the executor with output captured.
func (s *Session) expander(ctx context.Context) *expand.Expander {
	home, _ := s.Env.Get(env.HOME)
	return &expand.Expander{
		FS:         s.FS,
		User:       s.Identity(),
		PWD:        s.Pwd(),
		Home:       home,
		Getenv:     func(name string) string { v, _ := s.Env.Get(name); return v },
		CmdSubst:   s.substHook(ctx),
		StrictGlob: s.StrictGlob,
	}
}

// substHook evaluates $(...) bodies: the pipelines run in the current
// session with stdout captured. A failing substitution yields empty text
// and leaves its status in $?.
func (s *Session) substHook(ctx context.Context) func(string) (string, error) {
	return func(body string) (string, error) {
		line, err := parse.Parse(body)
		if err != nil {
			s.setStatus(oserr.StatusUsage)
			return "", nil
		}
		var capture strings.Builder
		status := oserr.StatusOK
		skip := false
		for _, p := range line.Pipelines {
			if skip {
				skip = p.AndNext
				continue
			}
			status = s.runPipeline(ctx, p, &capture)
			s.setStatus(status)
			skip = p.AndNext && status != oserr.StatusOK
		}
		if ctx.Err() != nil {
			return "", oserr.ErrCancelled
		}
		if status != oserr.StatusOK {
			return "", nil
		}
		return capture.String(), nil
	}
}

// pipelineText reconstructs a displayable command line for the job table.
func pipelineText(p *parse.Pipeline) string {
	var stages []string
	for _, stage := range p.Stages {
		var words []string
		for _, w := range stage.Words {
			var b strings.Builder
			for _, seg := range w {
				b.WriteString(seg.Text)
			}
			words = append(words, b.String())
		}
		stages = append(stages, strings.Join(words, " "))
	}
	return strings.Join(stages, " | ")
}
