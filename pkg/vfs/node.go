// Package vfs implements the persistent in-memory filesystem: node tree,
// path resolution, the permission and ownership model, and persistence
// through the storage HAL.
package vfs

import (
	"time"
)

// NodeType identifies the variant of a node.
type NodeType uint8

// Possible values for NodeType.
const (
	TypeFile NodeType = iota
	TypeDir
	TypeSymlink
)

func (t NodeType) String() string {
	switch t {
	case TypeFile:
		return "file"
	case TypeDir:
		return "directory"
	case TypeSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Node is a filesystem entry. The name of a node is not stored on the node
// itself; it is the key in the parent's Children map.
type Node struct {
	Type  NodeType
	Owner string
	Group string
	// Mode keeps the 9 rwx bits for owner, group and other.
	Mode  uint16
	Mtime time.Time

	// Content is set for files.
	Content string
	// Children is set for directories.
	Children map[string]*Node
	// Target is set for symlinks and resolved lazily.
	Target string
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool { return n.Type == TypeDir }

// Default modes for newly created nodes.
const (
	DefaultFileMode uint16 = 0o644
	DefaultDirMode  uint16 = 0o755
)

// Perm is one of the three permission bits.
type Perm uint16

// Permission bits, in the conventional positions of an "other" triplet.
const (
	PermRead  Perm = 4
	PermWrite Perm = 2
	PermExec  Perm = 1
)

func (p Perm) String() string {
	switch p {
	case PermRead:
		return "read"
	case PermWrite:
		return "write"
	case PermExec:
		return "execute"
	default:
		return "?"
	}
}

// User is the identity against which permissions are checked. It is
// implemented by the auth package; vfs only needs the name and group
// membership.
type User interface {
	Name() string
	PrimaryGroup() string
	MemberOf(group string) bool
}

// Root is the superuser name. The root user bypasses all permission checks.
const Root = "root"

// HasPermission reports whether the user holds the permission on the node.
// The effective triplet is the owner triplet when the user owns the node,
// else the group triplet when the user is a member of the node's group, else
// the other triplet.
func HasPermission(n *Node, u User, perm Perm) bool {
	if u.Name() == Root {
		return true
	}
	var triplet uint16
	switch {
	case u.Name() == n.Owner:
		triplet = n.Mode >> 6
	case u.MemberOf(n.Group):
		triplet = n.Mode >> 3
	default:
		triplet = n.Mode
	}
	return triplet&uint16(perm) != 0
}

// ModeString renders a node's type and mode the way ls -l shows it, e.g.
// "drwxr-xr-x".
func ModeString(t NodeType, mode uint16) string {
	var b [10]byte
	switch t {
	case TypeDir:
		b[0] = 'd'
	case TypeSymlink:
		b[0] = 'l'
	default:
		b[0] = '-'
	}
	bits := "rwxrwxrwx"
	for i := 0; i < 9; i++ {
		if mode&(1<<uint(8-i)) != 0 {
			b[i+1] = bits[i]
		} else {
			b[i+1] = '-'
		}
	}
	return string(b[:])
}

// newFile creates a file node.
func newFile(owner, group string, mode uint16, mtime time.Time, content string) *Node {
	return &Node{Type: TypeFile, Owner: owner, Group: group, Mode: mode, Mtime: mtime, Content: content}
}

// newDir creates an empty directory node.
func newDir(owner, group string, mode uint16, mtime time.Time) *Node {
	return &Node{Type: TypeDir, Owner: owner, Group: group, Mode: mode, Mtime: mtime,
		Children: make(map[string]*Node)}
}

// clone deep-copies a node tree.
func (n *Node) clone() *Node {
	n2 := *n
	if n.Children != nil {
		n2.Children = make(map[string]*Node, len(n.Children))
		for name, child := range n.Children {
			n2.Children[name] = child.clone()
		}
	}
	return &n2
}
