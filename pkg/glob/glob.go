// Package glob implements pathname pattern matching over the virtual
// filesystem. Patterns support *, ? and [...] character classes; a pattern
// component starting with a wildcard does not match hidden names.
package glob

import (
	"sort"
	"strings"

	"src.oopis.sh/pkg/vfs"
)

// Glob returns the sorted paths matching pattern, resolved against pwd for
// relative patterns. Directories the user cannot read are silently skipped.
// A pattern with no matches yields an empty slice.
func Glob(fs *vfs.FS, u vfs.User, pwd, pattern string) []string {
	dir := pwd
	prefix := ""
	if strings.HasPrefix(pattern, "/") {
		dir = "/"
		prefix = "/"
		pattern = strings.TrimLeft(pattern, "/")
	}
	components := strings.Split(pattern, "/")

	var matches []string
	glob(fs, u, dir, prefix, components, func(path string) {
		matches = append(matches, path)
	})
	sort.Strings(matches)
	return matches
}

// glob matches the remaining pattern components under dir. dir is the
// resolution base; rel is the matched portion of the pattern so far, which
// is what gets reported (relative patterns produce relative paths).
func glob(fs *vfs.FS, u vfs.User, dir, rel string, components []string, cb func(string)) {
	// Follow literal components by plain resolution, so that "." and ".."
	// work even though directory listings never contain them.
	for len(components) > 1 && !HasMeta(components[0]) {
		elem := components[0]
		components = components[1:]
		dir = join(dir, elem)
		rel = joinRel(rel, elem)
		r, err := fs.Resolve(dir, "/", u, vfs.ResolveOpts{FollowLastSymlink: true})
		if err != nil || r.Node.Type != vfs.TypeDir {
			return
		}
	}

	last := len(components) == 1
	pat := components[0]

	if !HasMeta(pat) {
		// A fully literal final component matches iff it exists.
		path := join(dir, pat)
		if _, err := fs.Resolve(path, "/", u, vfs.ResolveOpts{FollowLastSymlink: true}); err == nil {
			cb(joinRel(rel, pat))
		}
		return
	}

	entries, err := fs.ReadDir(dir, "/", u)
	if err != nil {
		return
	}
	segs := Parse(pat)
	for _, e := range entries {
		if !Match(segs, e.Name) {
			continue
		}
		if last {
			cb(joinRel(rel, e.Name))
			continue
		}
		if node := resolveEntry(fs, u, join(dir, e.Name), e.Node); node != nil && node.Type == vfs.TypeDir {
			glob(fs, u, join(dir, e.Name), joinRel(rel, e.Name), components[1:], cb)
		}
	}
}

// resolveEntry follows a symlinked directory entry; other nodes pass
// through.
func resolveEntry(fs *vfs.FS, u vfs.User, path string, n *vfs.Node) *vfs.Node {
	if n.Type != vfs.TypeSymlink {
		return n
	}
	r, err := fs.Resolve(path, "/", u, vfs.ResolveOpts{FollowLastSymlink: true})
	if err != nil {
		return nil
	}
	return r.Node
}

func join(dir, elem string) string {
	if dir == "/" {
		return "/" + elem
	}
	return dir + "/" + elem
}

func joinRel(rel, elem string) string {
	switch rel {
	case "":
		return elem
	case "/":
		return "/" + elem
	}
	return rel + "/" + elem
}
