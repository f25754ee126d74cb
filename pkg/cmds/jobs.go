package cmds

import (
	"strconv"
	"strings"
	"time"

	"src.oopis.sh/pkg/eval"
	"src.oopis.sh/pkg/oserr"
)

func jobsCmd() *eval.Command {
	return &eval.Command{
		Name:        "jobs",
		Description: "list background jobs",
		Args:        eval.NoArgs,
		Run: func(ctx *eval.Context) error {
			for _, j := range ctx.Session.Jobs.Jobs() {
				if !j.Background {
					continue
				}
				ctx.Printf("[%d]  %-8s  %s\n", j.ID, j.Status(), j.Line)
			}
			return nil
		},
	}
}

func parseJobID(arg string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(arg, "%"))
	if err != nil {
		return 0, oserr.Newf(oserr.InvalidInput, "bad job id %q", arg)
	}
	return id, nil
}

func bgCmd() *eval.Command {
	return &eval.Command{
		Name:        "bg",
		Description: "resume a stopped job in the background",
		Usage:       "job-id",
		Args:        eval.ExactArgs(1),
		Run: func(ctx *eval.Context) error {
			id, err := parseJobID(ctx.Args[0])
			if err != nil {
				return err
			}
			return ctx.Session.Jobs.Signal(id, eval.SigCont)
		},
	}
}

func fgCmd() *eval.Command {
	return &eval.Command{
		Name:        "fg",
		Description: "resume a job and wait for it to finish",
		Usage:       "job-id",
		Args:        eval.ExactArgs(1),
		Run: func(ctx *eval.Context) error {
			id, err := parseJobID(ctx.Args[0])
			if err != nil {
				return err
			}
			job, ok := ctx.Session.Jobs.Get(id)
			if !ok {
				return oserr.Newf(oserr.NotFound, "fg: no such job: %v", id)
			}
			if err := ctx.Session.Jobs.Signal(id, eval.SigCont); err != nil {
				return err
			}
			for job.Status() != eval.Done {
				select {
				case <-ctx.Done():
					return oserr.ErrCancelled
				case <-time.After(5 * time.Millisecond):
				}
			}
			if exit := job.Exit(); exit != 0 {
				return oserr.Newf(oserr.Internal, "fg: job %v exited with status %v", id, exit)
			}
			return nil
		},
	}
}

// signalNumbers maps conventional signal numbers to job signals.
var signalNumbers = map[int]eval.Signal{
	9:  eval.SigKill,
	15: eval.SigTerm,
	18: eval.SigCont,
	19: eval.SigStop,
}

func killCmd() *eval.Command {
	return &eval.Command{
		Name:        "kill",
		Description: "send a signal to a job",
		Usage:       "[-SIGNAL] job-id",
		RawFlags:    true,
		Args:        eval.RangeArgs(1, 2),
		Run: func(ctx *eval.Context) error {
			args := ctx.Args
			sig := eval.SigTerm
			if strings.HasPrefix(args[0], "-") {
				name := strings.TrimPrefix(args[0], "-")
				if n, err := strconv.Atoi(name); err == nil {
					var ok bool
					if sig, ok = signalNumbers[n]; !ok {
						return oserr.Newf(oserr.InvalidInput, "kill: unsupported signal %v", name)
					}
				} else {
					var ok bool
					if sig, ok = eval.ParseSignal(name); !ok {
						return oserr.Newf(oserr.InvalidInput, "kill: unsupported signal %v", name)
					}
				}
				args = args[1:]
			}
			if len(args) != 1 {
				return oserr.Newf(oserr.Usage, "kill: expected a job id")
			}
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.Session.Jobs.Signal(id, sig)
		},
	}
}

func psCmd() *eval.Command {
	return &eval.Command{
		Name:        "ps",
		Description: "report all jobs and their status",
		Args:        eval.NoArgs,
		Run: func(ctx *eval.Context) error {
			now := ctx.Session.Ports.Clock.Now()
			ctx.Printf("%5s %-8s %8s %s\n", "JOB", "STATUS", "TIME", "COMMAND")
			for _, j := range ctx.Session.Jobs.Jobs() {
				elapsed := now.Sub(j.Started).Round(time.Second)
				ctx.Printf("%5d %-8s %8s %s\n", j.ID, j.Status(), elapsed, j.Line)
			}
			return nil
		},
	}
}

func delayCmd() *eval.Command {
	return &eval.Command{
		Name:        "delay",
		Description: "wait for a number of milliseconds",
		Usage:       "milliseconds",
		Args:        eval.ExactArgs(1),
		Run: func(ctx *eval.Context) error {
			ms, err := strconv.Atoi(ctx.Args[0])
			if err != nil || ms < 0 {
				return oserr.Newf(oserr.InvalidInput, "delay: bad duration %q", ctx.Args[0])
			}
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
				return nil
			case <-ctx.Done():
				return oserr.ErrCancelled
			}
		},
	}
}
