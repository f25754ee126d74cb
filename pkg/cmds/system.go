package cmds

import (
	"fmt"

	"src.oopis.sh/pkg/eval"
	"src.oopis.sh/pkg/hal"
	"src.oopis.sh/pkg/oserr"
	"src.oopis.sh/pkg/snapshot"
	"src.oopis.sh/pkg/vfs"
)

func backupCmd() *eval.Command {
	return &eval.Command{
		Name:        "backup",
		Description: "write a full system backup to a file",
		Usage:       "[file]",
		Args:        eval.RangeArgs(0, 1),
		Completion:  eval.CompletePaths,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			if err := s.FS.Save(); err != nil {
				return err
			}
			if err := s.Auth.Save(); err != nil {
				return err
			}
			b, err := snapshot.Create(s.Store, s.Ports.Crypto, s.Ports.Clock)
			if err != nil {
				return err
			}
			data, err := b.Encode()
			if err != nil {
				return err
			}
			name := "oopis_backup_" + s.Ports.Clock.Now().UTC().Format("2006-01-02") + ".json"
			if len(ctx.Args) == 1 {
				name = ctx.Args[0]
			}
			if err := s.FS.WriteFile(name, s.Pwd(), ctx.User(), string(data)); err != nil {
				return err
			}
			ctx.Println("backup written to " + name)
			ctx.MarkStateModified()
			return nil
		},
	}
}

func restoreCmd() *eval.Command {
	return &eval.Command{
		Name:        "restore",
		Description: "restore the system from a backup file",
		Usage:       "file",
		Args:        eval.ExactArgs(1),
		Completion:  eval.CompletePaths,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			content, err := s.FS.ReadFile(ctx.Args[0], s.Pwd(), ctx.User())
			if err != nil {
				return err
			}
			b, err := snapshot.Decode([]byte(content))
			if err != nil {
				return err
			}
			if err := b.Verify(s.Ports.Crypto); err != nil {
				return err
			}
			ok, err := s.Ports.Prompt.Confirm("restore will overwrite all current state. continue?")
			if err != nil {
				return oserr.ErrCancelled
			}
			if !ok {
				ctx.Println("restore aborted")
				return nil
			}
			if err := snapshot.Restore(s.Store, b); err != nil {
				return err
			}
			if err := s.FS.Load(); err != nil {
				return err
			}
			if err := s.Auth.Load(); err != nil {
				return err
			}
			if err := s.Aliases.Load(s.Store); err != nil {
				return err
			}
			ctx.Println("system state restored")
			return nil
		},
	}
}

func resetCmd() *eval.Command {
	return &eval.Command{
		Name:        "reset",
		Description: "erase all persisted state and reinitialize",
		Args:        eval.NoArgs,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			ok, err := s.Ports.Prompt.Confirm("reset erases all files, users and sessions. continue?")
			if err != nil {
				return oserr.ErrCancelled
			}
			if !ok {
				ctx.Println("reset aborted")
				return nil
			}
			if err := s.Store.Clear(); err != nil {
				return err
			}
			if err := s.FS.Load(); err != nil {
				return err
			}
			if err := s.Auth.Load(); err != nil {
				return err
			}
			if err := s.Aliases.Load(s.Store); err != nil {
				return err
			}
			s.History.Clear()
			s.BecomeUser(eval.DefaultUser)
			ctx.Println("system reset to first boot")
			return nil
		},
	}
}

func savestateCmd() *eval.Command {
	return &eval.Command{
		Name:        "savestate",
		Description: "save a manual snapshot of the filesystem for this user",
		Args:        eval.NoArgs,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			if err := s.FS.Save(); err != nil {
				return err
			}
			data, err := s.Store.Load(hal.KeyFS)
			if err != nil {
				return err
			}
			key := hal.PrefixManualSession + s.UserName()
			if err := s.Store.Save(key, data); err != nil {
				return err
			}
			ctx.Println("state saved for " + s.UserName())
			return nil
		},
	}
}

func loadstateCmd() *eval.Command {
	return &eval.Command{
		Name:        "loadstate",
		Description: "restore this user's manual filesystem snapshot",
		Args:        eval.NoArgs,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			key := hal.PrefixManualSession + s.UserName()
			data, err := s.Store.Load(key)
			if err != nil {
				return err
			}
			if data == nil {
				return oserr.Newf(oserr.NotFound, "loadstate: no saved state for %v", s.UserName())
			}
			if err := s.Store.Save(hal.KeyFS, data); err != nil {
				return err
			}
			if err := s.FS.Load(); err != nil {
				return err
			}
			ctx.Println("state restored for " + s.UserName())
			return nil
		},
	}
}

func runCmd() *eval.Command {
	return &eval.Command{
		Name:        "run",
		Description: "execute a script file",
		Usage:       "file",
		Args:        eval.ExactArgs(1),
		Paths: []eval.PathSpec{
			{Arg: 0, Expect: vfs.WantFile, Perms: vfs.PermRead | vfs.PermExec},
		},
		Completion: eval.CompletePaths,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			content, err := s.FS.ReadFile(ctx.Paths[0].Path, "/", ctx.User())
			if err != nil {
				return err
			}
			if status := s.ExecScript(ctx.Context, content, eval.ScriptOpts{}); status != 0 {
				err := oserr.Newf(oserr.Internal, "run: %v exited with status %v", ctx.Args[0], status)
				err.Code = status
				return err
			}
			return nil
		},
	}
}

func manCmd() *eval.Command {
	return &eval.Command{
		Name:        "man",
		Description: "show a command's manual entry",
		Usage:       "command",
		Args:        eval.ExactArgs(1),
		Completion:  eval.CompleteCommands,
		Run: func(ctx *eval.Context) error {
			cmd, err := ctx.Session.Registry.EnsureLoaded(ctx.Args[0])
			if err != nil {
				return err
			}
			ctx.Println("NAME")
			ctx.Printf("    %s - %s\n", cmd.Name, cmd.Description)
			ctx.Println("")
			ctx.Println("SYNOPSIS")
			synopsis := cmd.Name
			if cmd.Usage != "" {
				synopsis += " " + cmd.Usage
			}
			ctx.Println("    " + synopsis)
			if cmd.Help != "" {
				ctx.Println("")
				ctx.Println("DESCRIPTION")
				ctx.Println("    " + cmd.Help)
			}
			for _, f := range cmd.Flags {
				ctx.Printf("    -%s, --%s  %s\n", f.Short, f.Long, f.Help)
			}
			return nil
		},
	}
}

func helpCmd() *eval.Command {
	return &eval.Command{
		Name:        "help",
		Description: "list commands or show one command's usage",
		Usage:       "[command]",
		Args:        eval.RangeArgs(0, 1),
		Completion:  eval.CompleteCommands,
		Run: func(ctx *eval.Context) error {
			r := ctx.Session.Registry
			if len(ctx.Args) == 1 {
				cmd, err := r.EnsureLoaded(ctx.Args[0])
				if err != nil {
					return err
				}
				usage := cmd.Name
				if cmd.Usage != "" {
					usage += " " + cmd.Usage
				}
				ctx.Println("usage: " + usage)
				return nil
			}
			for _, name := range r.Names() {
				cmd, err := r.EnsureLoaded(name)
				if err != nil {
					continue
				}
				ctx.Println(fmt.Sprintf("%-10s %s", name, cmd.Description))
			}
			return nil
		},
	}
}
