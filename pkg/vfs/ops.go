package vfs

import (
	"sort"
	"strings"
	"time"

	"src.oopis.sh/pkg/oserr"
)

// DirEntry is one entry of a directory listing.
type DirEntry struct {
	Name string
	Node *Node
}

// checkName rejects names that cannot be stored as child keys.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, '/') {
		return oserr.Newf(oserr.InvalidInput, "invalid name %q", name)
	}
	return nil
}

// ReadFile returns the content of the file at path. Requires read permission
// on the file; terminal symlinks are followed.
func (fs *FS) ReadFile(path, pwd string, u User) (string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	r, err := fs.resolve(path, pwd, u, ResolveOpts{FollowLastSymlink: true, Expect: WantFile}, 0)
	if err != nil {
		return "", err
	}
	if !HasPermission(r.Node, u, PermRead) {
		return "", permissionDenied(r.Path)
	}
	return r.Node.Content, nil
}

// ReadDir lists the directory at path in lexicographic order. Requires read
// permission on the directory.
func (fs *FS) ReadDir(path, pwd string, u User) ([]DirEntry, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	r, err := fs.resolve(path, pwd, u, ResolveOpts{FollowLastSymlink: true, Expect: WantDir}, 0)
	if err != nil {
		return nil, err
	}
	if !HasPermission(r.Node, u, PermRead) {
		return nil, permissionDenied(r.Path)
	}
	return sortedEntries(r.Node), nil
}

func sortedEntries(dir *Node) []DirEntry {
	names := make([]string, 0, len(dir.Children))
	for name := range dir.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	entries := make([]DirEntry, len(names))
	for i, name := range names {
		entries[i] = DirEntry{name, dir.Children[name]}
	}
	return entries
}

// WriteFile writes content to the file at path, creating it when absent.
// Creation requires write and execute on the parent; overwriting requires
// write on the file.
func (fs *FS) WriteFile(path, pwd string, u User, content string) error {
	return fs.writeFile(path, pwd, u, content, false)
}

// AppendFile appends content to the file at path, creating it when absent.
func (fs *FS) AppendFile(path, pwd string, u User, content string) error {
	return fs.writeFile(path, pwd, u, content, true)
}

func (fs *FS) writeFile(path, pwd string, u User, content string, appending bool) error {
	fs.mu.Lock()
	r, err := fs.resolve(path, pwd, u,
		ResolveOpts{AllowMissing: true, FollowLastSymlink: true, Expect: WantFile}, 0)
	if err != nil {
		fs.mu.Unlock()
		return err
	}
	now := fs.clock.Now()
	if r.Node == nil {
		if err := fs.checkCreate(r, u); err != nil {
			fs.mu.Unlock()
			return err
		}
		r.Parent.Children[r.Missing] = newFile(u.Name(), primaryGroup(u), DefaultFileMode, now, content)
	} else {
		if !HasPermission(r.Node, u, PermWrite) {
			fs.mu.Unlock()
			return permissionDenied(r.Path)
		}
		if appending {
			r.Node.Content += content
		} else {
			r.Node.Content = content
		}
		r.Node.Mtime = now
	}
	path = r.Path
	fs.mu.Unlock()
	fs.notifyWrite(path)
	return nil
}

// checkCreate validates that the missing entry of r may be created by u.
func (fs *FS) checkCreate(r *Resolved, u User) error {
	if err := checkName(r.Missing); err != nil {
		return err
	}
	if !HasPermission(r.Parent, u, PermWrite) || !HasPermission(r.Parent, u, PermExec) {
		return permissionDenied(r.Path)
	}
	return nil
}

// Mkdir creates a directory. The path must not exist; the parent must grant
// write and execute.
func (fs *FS) Mkdir(path, pwd string, u User, mode uint16) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	r, err := fs.resolve(path, pwd, u, ResolveOpts{AllowMissing: true}, 0)
	if err != nil {
		return err
	}
	if r.Node != nil {
		return oserr.Newf(oserr.Exists, "%v: file exists", r.Path)
	}
	if err := fs.checkCreate(r, u); err != nil {
		return err
	}
	r.Parent.Children[r.Missing] = newDir(u.Name(), primaryGroup(u), mode, fs.clock.Now())
	return nil
}

// MkdirAll creates a directory along with any missing parents, which get the
// default directory mode. Existing directories along the way are fine.
func (fs *FS) MkdirAll(path, pwd string, u User, mode uint16) error {
	full := path
	if !strings.HasPrefix(path, "/") {
		full = pwd + "/" + path
	}
	segs := splitPath(full)
	cur := "/"
	for i, seg := range segs {
		next := cur
		if next == "/" {
			next += seg
		} else {
			next += "/" + seg
		}
		m := DefaultDirMode
		if i == len(segs)-1 {
			m = mode
		}
		err := fs.Mkdir(next, "/", u, m)
		if err != nil && oserr.KindOf(err) != oserr.Exists {
			return err
		}
		cur = next
	}
	// A final resolve catches the case where an existing segment is not a
	// directory.
	_, err := fs.Resolve(full, "/", u, ResolveOpts{Expect: WantDir})
	return err
}

// Touch bumps the mtime of the node at path, creating an empty file when the
// path is absent.
func (fs *FS) Touch(path, pwd string, u User) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	r, err := fs.resolve(path, pwd, u,
		ResolveOpts{AllowMissing: true, FollowLastSymlink: true}, 0)
	if err != nil {
		return err
	}
	now := fs.clock.Now()
	if r.Node == nil {
		if err := fs.checkCreate(r, u); err != nil {
			return err
		}
		r.Parent.Children[r.Missing] = newFile(u.Name(), primaryGroup(u), DefaultFileMode, now, "")
		return nil
	}
	if !HasPermission(r.Node, u, PermWrite) {
		return permissionDenied(r.Path)
	}
	r.Node.Mtime = now
	return nil
}

// Symlink creates a symlink at path pointing at target.
func (fs *FS) Symlink(target, path, pwd string, u User) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	r, err := fs.resolve(path, pwd, u, ResolveOpts{AllowMissing: true}, 0)
	if err != nil {
		return err
	}
	if r.Node != nil {
		return oserr.Newf(oserr.Exists, "%v: file exists", r.Path)
	}
	if err := fs.checkCreate(r, u); err != nil {
		return err
	}
	r.Parent.Children[r.Missing] = &Node{
		Type: TypeSymlink, Owner: u.Name(), Group: primaryGroup(u),
		Mode: 0o777, Mtime: fs.clock.Now(), Target: target,
	}
	return nil
}

// Unlink removes the file or symlink at path. Directories are refused.
func (fs *FS) Unlink(path, pwd string, u User) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	r, err := fs.resolve(path, pwd, u, ResolveOpts{}, 0)
	if err != nil {
		return err
	}
	if r.Node.IsDir() {
		return oserr.Newf(oserr.IsADirectory, "%v: is a directory", r.Path)
	}
	return fs.removeEntry(r, u)
}

// Rmdir removes the directory at path, which must be empty.
func (fs *FS) Rmdir(path, pwd string, u User) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	r, err := fs.resolve(path, pwd, u, ResolveOpts{Expect: WantDir}, 0)
	if err != nil {
		return err
	}
	if len(r.Node.Children) > 0 {
		return oserr.Newf(oserr.NotEmpty, "%v: directory not empty", r.Path)
	}
	return fs.removeEntry(r, u)
}

// RemoveAll removes the node at path recursively. Protected paths are always
// refused.
func (fs *FS) RemoveAll(path, pwd string, u User) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	r, err := fs.resolve(path, pwd, u, ResolveOpts{}, 0)
	if err != nil {
		return err
	}
	if fs.protected(r.Path) {
		return oserr.Newf(oserr.PermissionDenied, "%v: refusing to remove protected path", r.Path)
	}
	return fs.removeEntry(r, u)
}

// removeEntry unlinks the resolved node from its parent. Deleting within a
// directory requires write and execute on the directory. Must be called with
// fs.mu held.
func (fs *FS) removeEntry(r *Resolved, u User) error {
	if r.Parent == nil {
		return oserr.Newf(oserr.PermissionDenied, "/: refusing to remove the root directory")
	}
	if !HasPermission(r.Parent, u, PermWrite) || !HasPermission(r.Parent, u, PermExec) {
		return permissionDenied(r.Path)
	}
	delete(r.Parent.Children, r.Name())
	r.Parent.Mtime = fs.clock.Now()
	return nil
}

// Rename atomically renames from to to. It fails when to already exists.
func (fs *FS) Rename(from, to, pwd string, u User) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	src, err := fs.resolve(from, pwd, u, ResolveOpts{}, 0)
	if err != nil {
		return err
	}
	dst, err := fs.resolve(to, pwd, u, ResolveOpts{AllowMissing: true}, 0)
	if err != nil {
		return err
	}
	if dst.Node != nil {
		return oserr.Newf(oserr.Exists, "%v: file exists", dst.Path)
	}
	return fs.relink(src, dst, u)
}

// Move moves from to to. A destination that is an existing directory
// receives the source under its base name; an existing file is overwritten.
func (fs *FS) Move(from, to, pwd string, u User) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	src, err := fs.resolve(from, pwd, u, ResolveOpts{}, 0)
	if err != nil {
		return err
	}
	dst, err := fs.resolve(to, pwd, u, ResolveOpts{AllowMissing: true}, 0)
	if err != nil {
		return err
	}
	if dst.Node != nil && dst.Node.IsDir() {
		dst, err = fs.resolve(dst.Path+"/"+src.Name(), "/", u, ResolveOpts{AllowMissing: true}, 0)
		if err != nil {
			return err
		}
	}
	if dst.Path == src.Path {
		return nil
	}
	if dst.Node != nil {
		if dst.Node.IsDir() {
			return oserr.Newf(oserr.Exists, "%v: file exists", dst.Path)
		}
		if err := fs.removeEntry(dst, u); err != nil {
			return err
		}
		dst.Missing = dst.Name()
		dst.Node = nil
	}
	return fs.relink(src, dst, u)
}

// relink detaches src and attaches it at dst, which must be missing. Must be
// called with fs.mu held.
func (fs *FS) relink(src, dst *Resolved, u User) error {
	if src.Parent == nil {
		return oserr.Newf(oserr.PermissionDenied, "/: cannot move the root directory")
	}
	if strings.HasPrefix(dst.Path, src.Path+"/") {
		return oserr.Newf(oserr.InvalidInput, "cannot move %v into itself", src.Path)
	}
	if err := fs.checkCreate(dst, u); err != nil {
		return err
	}
	if !HasPermission(src.Parent, u, PermWrite) || !HasPermission(src.Parent, u, PermExec) {
		return permissionDenied(src.Path)
	}
	delete(src.Parent.Children, src.Name())
	dst.Parent.Children[dst.Missing] = src.Node
	now := fs.clock.Now()
	src.Parent.Mtime = now
	dst.Parent.Mtime = now
	return nil
}

// Copy copies from to to. Copying a directory requires recursive.
func (fs *FS) Copy(from, to, pwd string, u User, recursive bool) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	src, err := fs.resolve(from, pwd, u, ResolveOpts{FollowLastSymlink: true}, 0)
	if err != nil {
		return err
	}
	if src.Node.IsDir() && !recursive {
		return oserr.Newf(oserr.IsADirectory, "%v: is a directory (not copied)", src.Path)
	}
	if !HasPermission(src.Node, u, PermRead) {
		return permissionDenied(src.Path)
	}
	dst, err := fs.resolve(to, pwd, u, ResolveOpts{AllowMissing: true}, 0)
	if err != nil {
		return err
	}
	if dst.Node != nil && dst.Node.IsDir() {
		dst, err = fs.resolve(dst.Path+"/"+src.Name(), "/", u, ResolveOpts{AllowMissing: true}, 0)
		if err != nil {
			return err
		}
	}
	if strings.HasPrefix(dst.Path+"/", src.Path+"/") && src.Node.IsDir() {
		return oserr.Newf(oserr.InvalidInput, "cannot copy %v into itself", src.Path)
	}
	now := fs.clock.Now()
	if dst.Node != nil {
		if dst.Node.IsDir() {
			return oserr.Newf(oserr.Exists, "%v: file exists", dst.Path)
		}
		if !HasPermission(dst.Node, u, PermWrite) {
			return permissionDenied(dst.Path)
		}
		if src.Node.Type != TypeFile {
			return oserr.Newf(oserr.InvalidInput, "cannot overwrite %v with %v", dst.Path, src.Node.Type)
		}
		dst.Node.Content = src.Node.Content
		dst.Node.Mtime = now
		return nil
	}
	if err := fs.checkCreate(dst, u); err != nil {
		return err
	}
	copied := src.Node.clone()
	stampTree(copied, u.Name(), primaryGroup(u), now)
	dst.Parent.Children[dst.Missing] = copied
	return nil
}

// stampTree makes the copying user the owner of a copied tree and refreshes
// mtimes.
func stampTree(n *Node, owner, group string, now time.Time) {
	n.Owner = owner
	n.Group = group
	n.Mtime = now
	for _, child := range n.Children {
		stampTree(child, owner, group, now)
	}
}

// primaryGroup returns the group for nodes created by u.
func primaryGroup(u User) string { return u.PrimaryGroup() }

// Chmod sets the mode of the node at path. Only the owner and root may do
// this. Bits above 0o777 are masked off.
func (fs *FS) Chmod(path, pwd string, u User, mode uint16) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	r, err := fs.resolve(path, pwd, u, ResolveOpts{FollowLastSymlink: true}, 0)
	if err != nil {
		return err
	}
	if err := requireOwner(r, u); err != nil {
		return err
	}
	r.Node.Mode = mode & 0o777
	r.Node.Mtime = fs.clock.Now()
	return nil
}

// Chown changes the owner of the node at path. Root only.
func (fs *FS) Chown(path, pwd string, u User, owner string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	r, err := fs.resolve(path, pwd, u, ResolveOpts{FollowLastSymlink: true}, 0)
	if err != nil {
		return err
	}
	if u.Name() != Root {
		return permissionDenied(r.Path)
	}
	r.Node.Owner = owner
	r.Node.Mtime = fs.clock.Now()
	return nil
}

// Chgrp changes the group of the node at path. The owner and root may do
// this.
func (fs *FS) Chgrp(path, pwd string, u User, group string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	r, err := fs.resolve(path, pwd, u, ResolveOpts{FollowLastSymlink: true}, 0)
	if err != nil {
		return err
	}
	if err := requireOwner(r, u); err != nil {
		return err
	}
	r.Node.Group = group
	r.Node.Mtime = fs.clock.Now()
	return nil
}

func requireOwner(r *Resolved, u User) error {
	if u.Name() != Root && u.Name() != r.Node.Owner {
		return permissionDenied(r.Path)
	}
	return nil
}
