package cmds

import (
	"strconv"

	"src.oopis.sh/pkg/auth"
	"src.oopis.sh/pkg/eval"
	"src.oopis.sh/pkg/oserr"
	"src.oopis.sh/pkg/vfs"
)

func chmodCmd() *eval.Command {
	return &eval.Command{
		Name:        "chmod",
		Description: "change a node's permission bits",
		Usage:       "octal-mode path",
		Args:        eval.ExactArgs(2),
		Completion:  eval.CompletePaths,
		Run: func(ctx *eval.Context) error {
			mode, err := strconv.ParseUint(ctx.Args[0], 8, 16)
			if err != nil {
				return oserr.Newf(oserr.InvalidInput, "chmod: bad mode %q", ctx.Args[0])
			}
			s := ctx.Session
			if err := s.FS.Chmod(ctx.Args[1], s.Pwd(), ctx.User(), uint16(mode)); err != nil {
				return err
			}
			ctx.MarkStateModified()
			return nil
		},
	}
}

func chownCmd() *eval.Command {
	return &eval.Command{
		Name:        "chown",
		Description: "change a node's owner",
		Usage:       "owner path",
		Args:        eval.ExactArgs(2),
		Completion:  eval.CompletePaths,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			owner := ctx.Args[0]
			if !s.Auth.UserExists(owner) {
				return oserr.Newf(oserr.NotFound, "chown: %v: no such user", owner)
			}
			if err := s.FS.Chown(ctx.Args[1], s.Pwd(), ctx.User(), owner); err != nil {
				return err
			}
			ctx.MarkStateModified()
			return nil
		},
	}
}

func chgrpCmd() *eval.Command {
	return &eval.Command{
		Name:        "chgrp",
		Description: "change a node's group",
		Usage:       "group path",
		Args:        eval.ExactArgs(2),
		Completion:  eval.CompleteGroups,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			group := ctx.Args[0]
			if !s.Auth.GroupExists(group) {
				return oserr.Newf(oserr.NotFound, "chgrp: %v: no such group", group)
			}
			if err := s.FS.Chgrp(ctx.Args[1], s.Pwd(), ctx.User(), group); err != nil {
				return err
			}
			ctx.MarkStateModified()
			return nil
		},
	}
}

const sudoersPath = "/etc/sudoers"

func sudoCmd() *eval.Command {
	return &eval.Command{
		Name:        "sudo",
		Description: "run a command as root",
		Usage:       "[-k] command [arg...]",
		RawFlags:    true,
		Args:        eval.AnyArgs,
		Completion:  eval.CompleteCommands,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			user := s.UserName()
			args := ctx.Args
			if len(args) > 0 && args[0] == "-k" {
				s.Auth.ClearTimestamp(user)
				args = args[1:]
			}
			if len(args) == 0 {
				return nil
			}
			if !s.Auth.CanRunAsRoot(user, args[0]) {
				return oserr.Newf(oserr.PermissionDenied,
					"sudo: %v is not allowed to run %v", user, args[0])
			}
			if user != vfs.Root && !s.Auth.IsTimestampValid(user) {
				if s.Auth.HasPassword(user) {
					password, err := promptPassword(ctx, "[sudo] password for "+user+":")
					if err != nil {
						return err
					}
					if !s.Auth.Verify(user, password) {
						return oserr.Newf(oserr.PermissionDenied, "sudo: incorrect password")
					}
				}
				s.Auth.UpdateTimestamp(user)
			}
			return s.RunElevated(ctx, args)
		},
	}
}

func visudoCmd() *eval.Command {
	return &eval.Command{
		Name:        "visudo",
		Description: "validate the sudoers file",
		Args:        eval.NoArgs,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			if s.UserName() != vfs.Root {
				return oserr.Newf(oserr.PermissionDenied, "visudo: only root may inspect the sudoers file")
			}
			content, err := s.FS.ReadFile(sudoersPath, "/", ctx.User())
			if err != nil {
				return err
			}
			if _, err := auth.ParseSudoers(content); err != nil {
				return oserr.Newf(oserr.InvalidInput, "visudo: %v", err)
			}
			ctx.Println(sudoersPath + ": parsed OK")
			return nil
		},
	}
}
