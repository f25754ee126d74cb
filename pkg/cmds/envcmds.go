package cmds

import (
	"strings"

	"src.oopis.sh/pkg/eval"
	"src.oopis.sh/pkg/oserr"
	"src.oopis.sh/pkg/parse"
)

func historyCmd() *eval.Command {
	return &eval.Command{
		Name:        "history",
		Description: "show or clear the command history",
		Usage:       "[-c]",
		Flags: []eval.FlagDef{
			{Long: "clear", Short: "c", Help: "clear the history"},
		},
		Args: eval.NoArgs,
		Run: func(ctx *eval.Context) error {
			if ctx.Bool("clear") {
				ctx.Session.History.Clear()
				return nil
			}
			for i, line := range ctx.Session.History.All() {
				ctx.Printf("%5d  %s\n", i+1, line)
			}
			return nil
		},
	}
}

func aliasCmd() *eval.Command {
	return &eval.Command{
		Name:        "alias",
		Description: "define or display aliases",
		Usage:       "[name[=value]...]",
		Args:        eval.AnyArgs,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			if len(ctx.Args) == 0 {
				for _, name := range s.Aliases.Names() {
					value, _ := s.Aliases.Get(name)
					ctx.Println("alias " + name + "=" + parse.Quote(value))
				}
				return nil
			}
			changed := false
			for _, arg := range ctx.Args {
				if i := strings.IndexByte(arg, '='); i >= 0 {
					s.Aliases.Set(arg[:i], arg[i+1:])
					changed = true
					continue
				}
				value, ok := s.Aliases.Get(arg)
				if !ok {
					return oserr.Newf(oserr.NotFound, "alias: %v: not found", arg)
				}
				ctx.Println("alias " + arg + "=" + parse.Quote(value))
			}
			if changed {
				return s.Aliases.Save(s.Store)
			}
			return nil
		},
	}
}

func unaliasCmd() *eval.Command {
	return &eval.Command{
		Name:        "unalias",
		Description: "remove aliases",
		Usage:       "name...",
		Args:        eval.MinArgs(1),
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			for _, name := range ctx.Args {
				if !s.Aliases.Delete(name) {
					return oserr.Newf(oserr.NotFound, "unalias: %v: not found", name)
				}
			}
			return s.Aliases.Save(s.Store)
		},
	}
}

func unsetCmd() *eval.Command {
	return &eval.Command{
		Name:        "unset",
		Description: "remove environment variables",
		Usage:       "name...",
		Args:        eval.MinArgs(1),
		Run: func(ctx *eval.Context) error {
			for _, name := range ctx.Args {
				ctx.Session.Env.Unset(name)
			}
			return nil
		},
	}
}

// setEnv implements both set and export, which share semantics here: with
// no arguments list the environment, otherwise assign NAME=value (or NAME
// value) pairs.
func setEnv(ctx *eval.Context) error {
	args := ctx.Args
	if len(args) == 0 {
		for _, line := range ctx.Session.Env.List() {
			ctx.Println(line)
		}
		return nil
	}
	if i := strings.IndexByte(args[0], '='); i >= 0 {
		for _, arg := range args {
			j := strings.IndexByte(arg, '=')
			if j < 0 {
				return oserr.Newf(oserr.Usage, "%v: expected NAME=value, got %q", ctx.Name, arg)
			}
			ctx.Session.Env.Set(arg[:j], arg[j+1:])
		}
		return nil
	}
	if len(args) > 2 {
		return oserr.Newf(oserr.Usage, "%v: expected NAME [value]", ctx.Name)
	}
	value := ""
	if len(args) == 2 {
		value = args[1]
	}
	ctx.Session.Env.Set(args[0], value)
	return nil
}

func setCmd() *eval.Command {
	return &eval.Command{
		Name:        "set",
		Description: "set environment variables or list them",
		Usage:       "[NAME=value... | NAME [value]]",
		Args:        eval.AnyArgs,
		Run:         setEnv,
	}
}

func exportCmd() *eval.Command {
	return &eval.Command{
		Name:        "export",
		Description: "set environment variables",
		Usage:       "NAME=value...",
		Args:        eval.AnyArgs,
		Run:         setEnv,
	}
}

func envCmd() *eval.Command {
	return &eval.Command{
		Name:        "env",
		Description: "print the environment",
		Args:        eval.NoArgs,
		Run: func(ctx *eval.Context) error {
			for _, line := range ctx.Session.Env.List() {
				ctx.Println(line)
			}
			return nil
		},
	}
}
