package eval

import (
	"context"
	"io"

	"github.com/spf13/pflag"

	"src.oopis.sh/pkg/oserr"
	"src.oopis.sh/pkg/vfs"
)

// stageResult is what one executed stage hands back to the executor.
type stageResult struct {
	output          string
	stateModified   bool
	suppressNewline bool
}

// runHarness validates a stage's invocation against the command's contract
// and, when everything checks out, invokes its Run. The validation order
// is: flags, argument count, paths, ownership, input stream.
func (s *Session) runHarness(ctx context.Context, job *Job, cmd *Command, args []string, stdin string, hasStdin bool) (stageResult, error) {
	c := &Context{
		Context:  ctx,
		Session:  s,
		Job:      job,
		Name:     args[0],
		Stdin:    stdin,
		HasStdin: hasStdin,
	}

	flags, positional, err := parseFlags(cmd, args)
	if err != nil {
		return stageResult{}, err
	}
	c.Flags = flags
	c.Args = positional

	if err := checkArgCount(cmd, positional); err != nil {
		return stageResult{}, err
	}
	paths, err := s.validatePaths(cmd, positional)
	if err != nil {
		return stageResult{}, err
	}
	c.Paths = paths

	if cmd.InputStream {
		items, err := s.gatherInput(c, cmd, positional)
		if err != nil {
			return stageResult{}, err
		}
		c.Items = items
	}

	if err := cmd.Run(c); err != nil {
		return stageResult{}, err
	}
	return stageResult{
		output:          c.out.String(),
		stateModified:   c.stateModified,
		suppressNewline: c.suppressNewline,
	}, nil
}

// parseFlags builds a pflag set from the command's flag definitions and
// parses the arguments after the command name. Unknown flags are usage
// errors.
func parseFlags(cmd *Command, args []string) (*pflag.FlagSet, []string, error) {
	flags := pflag.NewFlagSet(cmd.Name, pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	for _, def := range cmd.Flags {
		if def.TakesValue {
			flags.StringP(def.Long, def.Short, "", def.Help)
		} else {
			flags.BoolP(def.Long, def.Short, false, def.Help)
		}
	}
	if cmd.RawFlags {
		return flags, args[1:], nil
	}
	if err := flags.Parse(args[1:]); err != nil {
		return nil, nil, oserr.Newf(oserr.Usage, "%v: %v", cmd.Name, err)
	}
	return flags, flags.Args(), nil
}

func checkArgCount(cmd *Command, args []string) error {
	spec := cmd.Args
	if len(args) < spec.Min {
		return usage(cmd, "missing operand")
	}
	if spec.Max >= 0 && len(args) > spec.Max {
		return usage(cmd, "extra operand %q", args[spec.Max])
	}
	return nil
}

func usage(cmd *Command, format string, args ...any) error {
	err := oserr.Newf(oserr.Usage, cmd.Name+": "+format, args...)
	if cmd.Usage != "" {
		return err.WithSuggestion("usage: " + cmd.Name + " " + cmd.Usage)
	}
	return err
}

// validatePaths resolves and checks every path argument the command
// declares.
func (s *Session) validatePaths(cmd *Command, args []string) ([]Path, error) {
	var paths []Path
	u := s.Identity()
	for _, spec := range cmd.Paths {
		idxs := []int{spec.Arg}
		if spec.Arg == AllArgs {
			idxs = idxs[:0]
			for i := range args {
				idxs = append(idxs, i)
			}
		}
		for _, i := range idxs {
			if i >= len(args) {
				continue
			}
			p, err := s.validatePath(u, args[i], spec)
			if err != nil {
				return nil, err
			}
			p.Arg = i
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func (s *Session) validatePath(u vfs.User, arg string, spec PathSpec) (Path, error) {
	r, err := s.FS.Resolve(arg, s.Pwd(), u, vfs.ResolveOpts{
		AllowMissing:      spec.AllowMissing,
		FollowLastSymlink: !spec.NoFollow,
		Expect:            spec.Expect,
	})
	if err != nil {
		return Path{}, err
	}
	p := Path{Raw: arg, Resolved: r}
	if r.Missing != "" {
		return p, nil
	}
	if spec.Perms != 0 && !vfs.HasPermission(r.Node, u, spec.Perms) {
		return Path{}, oserr.Newf(oserr.PermissionDenied, "%v: permission denied", arg)
	}
	if spec.RequireOwner && u.Name() != r.Node.Owner && u.Name() != vfs.Root {
		return Path{}, oserr.Newf(oserr.PermissionDenied, "%v: not owner", arg)
	}
	return p, nil
}

// RunElevated executes one already-expanded command as root, keeping the
// working directory. Output and state flags flow into the calling
// command's context; sudo is the only caller.
func (s *Session) RunElevated(ctx *Context, args []string) error {
	cmd, err := s.Registry.EnsureLoaded(args[0])
	if err != nil {
		return err
	}
	pwd := s.Pwd()
	s.PushUser(vfs.Root)
	s.Chdir(pwd)
	defer func() {
		s.PopUser()
		s.Chdir(pwd)
	}()
	res, err := s.runHarness(ctx.Context, ctx.Job, cmd, args, ctx.Stdin, ctx.HasStdin)
	if err != nil {
		return err
	}
	ctx.Print(res.output)
	if res.stateModified {
		ctx.MarkStateModified()
	}
	if res.suppressNewline {
		ctx.SuppressNewline()
	}
	return nil
}

// gatherInput assembles the input items for a stream-consuming command:
// the connected stdin as a single anonymous item, or the content of each
// file argument from StreamFrom on.
func (s *Session) gatherInput(c *Context, cmd *Command, args []string) ([]InputItem, error) {
	files := args
	if cmd.StreamFrom < len(args) {
		files = args[cmd.StreamFrom:]
	} else {
		files = nil
	}
	if len(files) == 0 {
		return []InputItem{{Content: c.Stdin}}, nil
	}
	u := s.Identity()
	var items []InputItem
	for _, f := range files {
		content, err := s.FS.ReadFile(f, s.Pwd(), u)
		if err != nil {
			return nil, err
		}
		items = append(items, InputItem{Path: f, Content: content})
	}
	return items, nil
}
