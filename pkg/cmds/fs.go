package cmds

import (
	"fmt"
	"strings"

	"src.oopis.sh/pkg/eval"
	"src.oopis.sh/pkg/oserr"
	"src.oopis.sh/pkg/vfs"
)

func cdCmd() *eval.Command {
	return &eval.Command{
		Name:        "cd",
		Description: "change the working directory",
		Usage:       "[directory]",
		Args:        eval.RangeArgs(0, 1),
		Paths: []eval.PathSpec{
			{Arg: 0, Expect: vfs.WantDir, Perms: vfs.PermExec},
		},
		Completion: eval.CompletePaths,
		Run: func(ctx *eval.Context) error {
			if len(ctx.Paths) == 0 {
				home, _ := ctx.Session.Env.Get("HOME")
				r, err := ctx.Session.FS.Resolve(home, "/", ctx.User(), vfs.ResolveOpts{
					FollowLastSymlink: true, Expect: vfs.WantDir,
				})
				if err != nil {
					return err
				}
				ctx.Session.Chdir(r.Path)
				return nil
			}
			ctx.Session.Chdir(ctx.Paths[0].Path)
			return nil
		},
	}
}

func pwdCmd() *eval.Command {
	return &eval.Command{
		Name:        "pwd",
		Description: "print the working directory",
		Args:        eval.NoArgs,
		Run: func(ctx *eval.Context) error {
			ctx.Println(ctx.Session.Pwd())
			return nil
		},
	}
}

func lsCmd() *eval.Command {
	return &eval.Command{
		Name:        "ls",
		Description: "list directory contents",
		Usage:       "[-alR] [path...]",
		Flags: []eval.FlagDef{
			{Long: "long", Short: "l", Help: "long listing"},
			{Long: "all", Short: "a", Help: "include hidden entries"},
			{Long: "recursive", Short: "R", Help: "recurse into subdirectories"},
		},
		Args:       eval.AnyArgs,
		Completion: eval.CompletePaths,
		Run: func(ctx *eval.Context) error {
			args := ctx.Args
			if len(args) == 0 {
				args = []string{"."}
			}
			long, all, recursive := ctx.Bool("long"), ctx.Bool("all"), ctx.Bool("recursive")
			headers := len(args) > 1 || recursive
			for i, arg := range args {
				r, err := ctx.Session.FS.Resolve(arg, ctx.Session.Pwd(), ctx.User(),
					vfs.ResolveOpts{FollowLastSymlink: true})
				if err != nil {
					return err
				}
				if i > 0 {
					ctx.Println("")
				}
				if r.Node.Type != vfs.TypeDir {
					ctx.Print(listEntry(vfs.DirEntry{Name: arg, Node: r.Node}, long))
					continue
				}
				if err := listDir(ctx, r.Path, arg, long, all, recursive, headers); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func listDir(ctx *eval.Context, path, display string, long, all, recursive, headers bool) error {
	entries, err := ctx.Session.FS.ReadDir(path, "/", ctx.User())
	if err != nil {
		return err
	}
	if headers {
		ctx.Println(display + ":")
	}
	var subdirs []vfs.DirEntry
	for _, e := range entries {
		if !all && strings.HasPrefix(e.Name, ".") {
			continue
		}
		ctx.Print(listEntry(e, long))
		if recursive && e.Node.Type == vfs.TypeDir {
			subdirs = append(subdirs, e)
		}
	}
	for _, e := range subdirs {
		ctx.Println("")
		sub := path + "/" + e.Name
		if path == "/" {
			sub = "/" + e.Name
		}
		subDisplay := display + "/" + e.Name
		if err := listDir(ctx, sub, subDisplay, long, all, true, true); err != nil {
			return err
		}
	}
	return nil
}

func listEntry(e vfs.DirEntry, long bool) string {
	if !long {
		return e.Name + "\n"
	}
	n := e.Node
	size := len(n.Content)
	if n.Type == vfs.TypeDir {
		size = len(n.Children)
	}
	name := e.Name
	if n.Type == vfs.TypeSymlink {
		name += " -> " + n.Target
	}
	return fmt.Sprintf("%s %-8s %-8s %6d %s %s\n",
		vfs.ModeString(n.Type, n.Mode), n.Owner, n.Group, size,
		n.Mtime.Format("Jan _2 15:04"), name)
}

func mkdirCmd() *eval.Command {
	return &eval.Command{
		Name:        "mkdir",
		Description: "create directories",
		Usage:       "[-p] directory...",
		Flags: []eval.FlagDef{
			{Long: "parents", Short: "p", Help: "create missing parents; existing directories are fine"},
		},
		Args:       eval.MinArgs(1),
		Completion: eval.CompletePaths,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			for _, arg := range ctx.Args {
				var err error
				if ctx.Bool("parents") {
					err = s.FS.MkdirAll(arg, s.Pwd(), ctx.User(), vfs.DefaultDirMode)
				} else {
					err = s.FS.Mkdir(arg, s.Pwd(), ctx.User(), vfs.DefaultDirMode)
				}
				if err != nil {
					return err
				}
			}
			ctx.MarkStateModified()
			return nil
		},
	}
}

func rmdirCmd() *eval.Command {
	return &eval.Command{
		Name:        "rmdir",
		Description: "remove empty directories",
		Usage:       "directory...",
		Args:        eval.MinArgs(1),
		Completion:  eval.CompletePaths,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			for _, arg := range ctx.Args {
				if err := s.FS.Rmdir(arg, s.Pwd(), ctx.User()); err != nil {
					return err
				}
			}
			ctx.MarkStateModified()
			return nil
		},
	}
}

func rmCmd() *eval.Command {
	return &eval.Command{
		Name:        "rm",
		Description: "remove files and directories",
		Usage:       "[-rf] path...",
		Flags: []eval.FlagDef{
			{Long: "recursive", Short: "r", Help: "remove directories and their contents"},
			{Long: "force", Short: "f", Help: "ignore missing paths"},
		},
		Args:       eval.MinArgs(1),
		Completion: eval.CompletePaths,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			recursive, force := ctx.Bool("recursive"), ctx.Bool("force")
			removed := false
			for _, arg := range ctx.Args {
				r, err := s.FS.Resolve(arg, s.Pwd(), ctx.User(), vfs.ResolveOpts{AllowMissing: force})
				if err != nil {
					return err
				}
				if r.Missing != "" {
					continue
				}
				if r.Node.Type == vfs.TypeDir && !recursive {
					return oserr.Newf(oserr.IsADirectory, "%v: is a directory", arg)
				}
				if recursive {
					err = s.FS.RemoveAll(r.Path, "/", ctx.User())
				} else {
					err = s.FS.Unlink(r.Path, "/", ctx.User())
				}
				if err != nil {
					return err
				}
				removed = true
			}
			if removed {
				ctx.MarkStateModified()
			}
			return nil
		},
	}
}

func cpCmd() *eval.Command {
	return &eval.Command{
		Name:        "cp",
		Description: "copy files and directories",
		Usage:       "[-r] source... dest",
		Flags: []eval.FlagDef{
			{Long: "recursive", Short: "r", Help: "copy directories recursively"},
		},
		Args:       eval.MinArgs(2),
		Completion: eval.CompletePaths,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			dest := ctx.Args[len(ctx.Args)-1]
			for _, src := range ctx.Args[:len(ctx.Args)-1] {
				if err := s.FS.Copy(src, dest, s.Pwd(), ctx.User(), ctx.Bool("recursive")); err != nil {
					return err
				}
			}
			ctx.MarkStateModified()
			return nil
		},
	}
}

func mvCmd() *eval.Command {
	return &eval.Command{
		Name:        "mv",
		Description: "move or rename files and directories",
		Usage:       "source... dest",
		Args:        eval.MinArgs(2),
		Completion:  eval.CompletePaths,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			dest := ctx.Args[len(ctx.Args)-1]
			for _, src := range ctx.Args[:len(ctx.Args)-1] {
				if err := s.FS.Move(src, dest, s.Pwd(), ctx.User()); err != nil {
					return err
				}
			}
			ctx.MarkStateModified()
			return nil
		},
	}
}

func renameCmd() *eval.Command {
	return &eval.Command{
		Name:        "rename",
		Description: "rename a single node in place",
		Usage:       "old new",
		Args:        eval.ExactArgs(2),
		Completion:  eval.CompletePaths,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			if err := s.FS.Rename(ctx.Args[0], ctx.Args[1], s.Pwd(), ctx.User()); err != nil {
				return err
			}
			ctx.MarkStateModified()
			return nil
		},
	}
}

func touchCmd() *eval.Command {
	return &eval.Command{
		Name:        "touch",
		Description: "create files or refresh their timestamps",
		Usage:       "path...",
		Args:        eval.MinArgs(1),
		Completion:  eval.CompletePaths,
		Run: func(ctx *eval.Context) error {
			s := ctx.Session
			for _, arg := range ctx.Args {
				if err := s.FS.Touch(arg, s.Pwd(), ctx.User()); err != nil {
					return err
				}
			}
			ctx.MarkStateModified()
			return nil
		},
	}
}

func syncCmd() *eval.Command {
	return &eval.Command{
		Name:        "sync",
		Description: "persist the filesystem immediately",
		Args:        eval.NoArgs,
		Run: func(ctx *eval.Context) error {
			return ctx.Session.FS.Save()
		},
	}
}
