package vfs

import (
	"strings"

	"src.oopis.sh/pkg/oserr"
)

// ResolveOpts controls path resolution.
type ResolveOpts struct {
	// AllowMissing permits the final segment to be absent; the result then
	// carries the parent directory and the missing name.
	AllowMissing bool
	// FollowLastSymlink resolves a terminal symlink to its target.
	// Non-terminal symlinks are always followed.
	FollowLastSymlink bool
	// Expect constrains the type of the resolved node. The zero value
	// accepts anything.
	Expect Expect
}

// Expect is a constraint on the type of a resolved node.
type Expect uint8

// Possible values for Expect.
const (
	AnyType Expect = iota
	WantFile
	WantDir
)

// Resolved is the result of a path resolution.
type Resolved struct {
	// Path is the canonical absolute path.
	Path string
	// Node is the resolved node, nil when the final segment is missing.
	Node *Node
	// Parent is the directory containing the final segment. It is nil only
	// for the root directory.
	Parent *Node
	// Missing is the name of the absent final segment when Node is nil.
	Missing string
}

// Name returns the final path segment, or "/" for the root.
func (r *Resolved) Name() string {
	if r.Path == "/" {
		return "/"
	}
	return r.Path[strings.LastIndexByte(r.Path, '/')+1:]
}

const maxSymlinkDepth = 40

// Resolve resolves a path against pwd for the given user. Traversal requires
// execute permission on every directory walked through.
func (fs *FS) Resolve(path, pwd string, u User, opts ResolveOpts) (*Resolved, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.resolve(path, pwd, u, opts, 0)
}

// resolve must be called with fs.mu held.
func (fs *FS) resolve(path, pwd string, u User, opts ResolveOpts, depth int) (*Resolved, error) {
	if depth > maxSymlinkDepth {
		return nil, oserr.Newf(oserr.InvalidInput, "%v: too many levels of symbolic links", path)
	}
	if path == "" {
		return nil, oserr.Newf(oserr.InvalidInput, "empty path")
	}
	full := path
	if !strings.HasPrefix(path, "/") {
		if pwd == "" {
			pwd = "/"
		}
		full = pwd + "/" + path
	}

	segs := splitPath(full)
	cur := fs.root
	if cur == nil {
		return nil, oserr.Newf(oserr.StorageUnavailable, "filesystem not initialized")
	}
	var resolved []string
	var parent *Node

	for i := 0; i < len(segs); i++ {
		seg := segs[i]
		switch seg {
		case ".":
			continue
		case "..":
			if len(resolved) > 0 {
				resolved = resolved[:len(resolved)-1]
				cur, parent = fs.walkTo(resolved)
			}
			continue
		}
		if !cur.IsDir() {
			return nil, oserr.Newf(oserr.NotADirectory, "%v: not a directory", joinPath(resolved))
		}
		if !HasPermission(cur, u, PermExec) {
			return nil, permissionDenied(joinPath(resolved))
		}
		child, ok := cur.Children[seg]
		last := i == len(segs)-1
		if !ok {
			if last && opts.AllowMissing {
				return &Resolved{
					Path: joinPath(append(resolved, seg)), Parent: cur, Missing: seg,
				}, nil
			}
			return nil, notFound(joinPath(append(resolved, seg)))
		}
		if child.Type == TypeSymlink && (!last || opts.FollowLastSymlink) {
			target := child.Target
			linkDir := joinPath(resolved)
			rest := strings.Join(segs[i+1:], "/")
			if rest != "" {
				target = target + "/" + rest
			}
			return fs.resolve(target, linkDir, u, opts, depth+1)
		}
		parent = cur
		cur = child
		resolved = append(resolved, seg)
	}

	r := &Resolved{Path: joinPath(resolved), Node: cur, Parent: parent}
	if err := checkExpect(r, opts.Expect); err != nil {
		return nil, err
	}
	return r, nil
}

func checkExpect(r *Resolved, expect Expect) error {
	if expect == AnyType || r.Node == nil {
		return nil
	}
	switch {
	case expect == WantDir && r.Node.Type != TypeDir:
		return oserr.Newf(oserr.NotADirectory, "%v: not a directory", r.Path)
	case expect == WantFile && r.Node.Type == TypeDir:
		return oserr.Newf(oserr.IsADirectory, "%v: is a directory", r.Path)
	}
	return nil
}

// walkTo follows already-validated segments from the root, returning the
// final node and its parent. Used when ".." pops a segment.
func (fs *FS) walkTo(segs []string) (node, parent *Node) {
	cur := fs.root
	for _, seg := range segs {
		parent = cur
		cur = cur.Children[seg]
	}
	return cur, parent
}

// splitPath splits an absolute or joined path into segments, dropping empty
// ones produced by repeated slashes.
func splitPath(path string) []string {
	var segs []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

func joinPath(segs []string) string {
	if len(segs) == 0 {
		return "/"
	}
	return "/" + strings.Join(segs, "/")
}
