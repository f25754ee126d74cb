package cmds

import (
	"errors"
	"strings"

	"src.oopis.sh/pkg/eval"
	"src.oopis.sh/pkg/host"
	"src.oopis.sh/pkg/oserr"
	"src.oopis.sh/pkg/vfs"
)

func whoamiCmd() *eval.Command {
	return &eval.Command{
		Name:        "whoami",
		Description: "print the current user name",
		Args:        eval.NoArgs,
		Run: func(ctx *eval.Context) error {
			ctx.Println(ctx.Session.UserName())
			return nil
		},
	}
}

func groupsCmd() *eval.Command {
	return &eval.Command{
		Name:        "groups",
		Description: "print group memberships",
		Usage:       "[user]",
		Args:        eval.RangeArgs(0, 1),
		Completion:  eval.CompleteUsers,
		Run: func(ctx *eval.Context) error {
			name := ctx.Session.UserName()
			if len(ctx.Args) == 1 {
				name = ctx.Args[0]
			}
			if !ctx.Session.Auth.UserExists(name) {
				return oserr.Newf(oserr.NotFound, "groups: %v: no such user", name)
			}
			ctx.Println(strings.Join(ctx.Session.Auth.GroupsOf(name), " "))
			return nil
		},
	}
}

func listusersCmd() *eval.Command {
	return &eval.Command{
		Name:        "listusers",
		Description: "list all user accounts",
		Args:        eval.NoArgs,
		Run: func(ctx *eval.Context) error {
			for _, name := range ctx.Session.Auth.Users() {
				ctx.Println(name)
			}
			return nil
		},
	}
}

// promptPassword reads an obscured line, mapping prompt cancellation to a
// cancelled error.
func promptPassword(ctx *eval.Context, message string) (string, error) {
	answer, err := ctx.Session.Ports.Prompt.Input(message, true)
	if err != nil {
		if errors.Is(err, host.ErrPromptCancelled) {
			return "", oserr.ErrCancelled
		}
		return "", err
	}
	return answer, nil
}

// promptNewPassword asks for a password twice and insists the answers
// match. An empty answer means a passwordless account.
func promptNewPassword(ctx *eval.Context) (string, error) {
	first, err := promptPassword(ctx, "New password:")
	if err != nil {
		return "", err
	}
	second, err := promptPassword(ctx, "Retype new password:")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", oserr.Newf(oserr.InvalidInput, "passwords do not match")
	}
	return first, nil
}

// authenticate checks a password for target, prompting when none is
// supplied. root and passwordless targets pass without a prompt.
func authenticate(ctx *eval.Context, target, provided string) error {
	s := ctx.Session
	if s.UserName() == vfs.Root || !s.Auth.HasPassword(target) {
		return nil
	}
	password := provided
	if password == "" {
		var err error
		password, err = promptPassword(ctx, "Password:")
		if err != nil {
			return err
		}
	}
	if !s.Auth.Verify(target, password) {
		return oserr.Newf(oserr.PermissionDenied, "incorrect password")
	}
	return nil
}

func useraddCmd() *eval.Command {
	return &eval.Command{
		Name:        "useradd",
		Description: "create a user account",
		Usage:       "name",
		Args:        eval.ExactArgs(1),
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			name := ctx.Args[0]
			if s.Auth.UserExists(name) {
				return oserr.Newf(oserr.Exists, "useradd: %v: user exists", name)
			}
			password, err := promptNewPassword(ctx)
			if err != nil {
				return err
			}
			if err := s.Auth.AddUser(name, password); err != nil {
				return err
			}
			// The home directory is created by root so that any user may run
			// useradd under sudo.
			rootID := s.Auth.Identity(vfs.Root)
			home := eval.Home(name)
			if err := s.FS.MkdirAll(home, "/", rootID, vfs.DefaultDirMode); err != nil {
				return err
			}
			if err := s.FS.Chown(home, "/", rootID, name); err != nil {
				return err
			}
			if err := s.FS.Chgrp(home, "/", rootID, name); err != nil {
				return err
			}
			if err := s.Auth.Save(); err != nil {
				return err
			}
			ctx.MarkStateModified()
			return nil
		},
	}
}

func userdelCmd() *eval.Command {
	return &eval.Command{
		Name:        "userdel",
		Description: "delete a user account",
		Usage:       "[-r] name",
		Flags: []eval.FlagDef{
			{Long: "remove-home", Short: "r", Help: "also remove the home directory"},
		},
		Args:       eval.ExactArgs(1),
		Completion: eval.CompleteUsers,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			name := ctx.Args[0]
			if name == s.UserName() {
				return oserr.Newf(oserr.InvalidInput, "userdel: cannot delete the active user")
			}
			if err := s.Auth.DelUser(name); err != nil {
				return err
			}
			if ctx.Bool("remove-home") {
				rootID := s.Auth.Identity(vfs.Root)
				if err := s.FS.RemoveAll(eval.Home(name), "/", rootID); err != nil &&
					oserr.KindOf(err) != oserr.NotFound {
					return err
				}
				ctx.MarkStateModified()
			}
			return s.Auth.Save()
		},
	}
}

func passwdCmd() *eval.Command {
	return &eval.Command{
		Name:        "passwd",
		Description: "change a user's password",
		Usage:       "[user]",
		Args:        eval.RangeArgs(0, 1),
		Completion:  eval.CompleteUsers,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			target := s.UserName()
			if len(ctx.Args) == 1 {
				target = ctx.Args[0]
			}
			if !s.Auth.UserExists(target) {
				return oserr.Newf(oserr.NotFound, "passwd: %v: no such user", target)
			}
			if target != s.UserName() && s.UserName() != vfs.Root {
				return oserr.Newf(oserr.PermissionDenied, "passwd: only root may change another user's password")
			}
			if s.UserName() != vfs.Root && s.Auth.HasPassword(target) {
				current, err := promptPassword(ctx, "Current password:")
				if err != nil {
					return err
				}
				if !s.Auth.Verify(target, current) {
					return oserr.Newf(oserr.PermissionDenied, "incorrect password")
				}
			}
			password, err := promptNewPassword(ctx)
			if err != nil {
				return err
			}
			if err := s.Auth.SetPassword(target, password); err != nil {
				return err
			}
			return s.Auth.Save()
		},
	}
}

func groupaddCmd() *eval.Command {
	return &eval.Command{
		Name:        "groupadd",
		Description: "create a group",
		Usage:       "name",
		Args:        eval.ExactArgs(1),
		Run: func(ctx *eval.Context) error {
			if err := ctx.Session.Auth.AddGroup(ctx.Args[0]); err != nil {
				return err
			}
			return ctx.Session.Auth.Save()
		},
	}
}

func usermodCmd() *eval.Command {
	return &eval.Command{
		Name:        "usermod",
		Description: "modify a user's group memberships",
		Usage:       "-aG group[,group...] user",
		Flags: []eval.FlagDef{
			{Long: "append", Short: "a", Help: "append to the groups"},
			{Long: "groups", Short: "G", TakesValue: true, Help: "groups to join"},
		},
		Args:       eval.ExactArgs(1),
		Completion: eval.CompleteUsers,
		Run: func(ctx *eval.Context) error {
			if !ctx.Bool("append") || ctx.String("groups") == "" {
				return oserr.Newf(oserr.Usage, "usermod: only -aG group user is supported")
			}
			s := ctx.Session
			user := ctx.Args[0]
			for _, group := range strings.Split(ctx.String("groups"), ",") {
				if err := s.Auth.AddUserToGroup(user, group); err != nil {
					return err
				}
			}
			return s.Auth.Save()
		},
	}
}

func suCmd() *eval.Command {
	return &eval.Command{
		Name:        "su",
		Description: "switch to another user, stacking the current session",
		Usage:       "[user] [password]",
		Args:        eval.RangeArgs(0, 2),
		Completion:  eval.CompleteUsers,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			target := vfs.Root
			if len(ctx.Args) >= 1 {
				target = ctx.Args[0]
			}
			if !s.Auth.UserExists(target) {
				return oserr.Newf(oserr.NotFound, "su: %v: no such user", target)
			}
			if target == s.UserName() {
				return nil
			}
			provided := ""
			if len(ctx.Args) == 2 {
				provided = ctx.Args[1]
			}
			if err := authenticate(ctx, target, provided); err != nil {
				return err
			}
			s.PushUser(target)
			return nil
		},
	}
}

func loginCmd() *eval.Command {
	return &eval.Command{
		Name:        "login",
		Description: "log in as a user, replacing the session stack",
		Usage:       "user [password]",
		Args:        eval.RangeArgs(1, 2),
		Completion:  eval.CompleteUsers,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			target := ctx.Args[0]
			if !s.Auth.UserExists(target) {
				return oserr.Newf(oserr.NotFound, "login: %v: no such user", target)
			}
			provided := ""
			if len(ctx.Args) == 2 {
				provided = ctx.Args[1]
			}
			if err := authenticate(ctx, target, provided); err != nil {
				return err
			}
			s.BecomeUser(target)
			return nil
		},
	}
}

func logoutCmd() *eval.Command {
	return &eval.Command{
		Name:        "logout",
		Description: "return to the previous stacked user",
		Args:        eval.NoArgs,
		Run: func(ctx *eval.Context) error {
			if !ctx.Session.PopUser() {
				return oserr.Newf(oserr.InvalidInput, "logout: no stacked session")
			}
			return nil
		},
	}
}

func exitCmd() *eval.Command {
	return &eval.Command{
		Name:        "exit",
		Description: "leave the current stacked user, or the shell",
		Args:        eval.NoArgs,
		Run: func(ctx *eval.Context) error {
			if !ctx.Session.PopUser() {
				ctx.Session.RequestExit()
			}
			return nil
		},
	}
}
