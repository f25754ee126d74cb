package auth

import (
	"sort"

	"src.oopis.sh/pkg/oserr"
)

// GroupExists reports whether the group exists.
func (db *DB) GroupExists(name string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.groups[name] != nil
}

// Groups returns all group names, sorted.
func (db *DB) Groups() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	names := make([]string, 0, len(db.groups))
	for name := range db.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddGroup creates an empty group.
func (db *DB) AddGroup(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if name == "" {
		return oserr.Newf(oserr.InvalidInput, "empty group name")
	}
	if db.groups[name] != nil {
		return oserr.Newf(oserr.Exists, "group %v already exists", name)
	}
	db.groups[name] = map[string]bool{}
	return nil
}

// AddUserToGroup adds a user to a group's member set.
func (db *DB) AddUserToGroup(user, group string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.users[user] == nil {
		return oserr.Newf(oserr.NotFound, "user %v does not exist", user)
	}
	members := db.groups[group]
	if members == nil {
		return oserr.Newf(oserr.NotFound, "group %v does not exist", group)
	}
	members[user] = true
	return nil
}

// GroupsOf returns the groups the user belongs to, primary group first and
// the rest sorted.
func (db *DB) GroupsOf(user string) []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	rec := db.users[user]
	if rec == nil {
		return nil
	}
	var rest []string
	for name, members := range db.groups {
		if members[user] && name != rec.PrimaryGroup {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append([]string{rec.PrimaryGroup}, rest...)
}

// Identity returns the user's identity for permission checks. It remains
// valid as group membership changes.
func (db *DB) Identity(name string) *Identity {
	return &Identity{name: name, db: db}
}

// Identity is a user identity backed by the database. It implements
// vfs.User.
type Identity struct {
	name string
	db   *DB
}

func (id *Identity) Name() string { return id.name }

func (id *Identity) PrimaryGroup() string {
	id.db.mu.Lock()
	defer id.db.mu.Unlock()
	if rec := id.db.users[id.name]; rec != nil {
		return rec.PrimaryGroup
	}
	return id.name
}

func (id *Identity) MemberOf(group string) bool {
	id.db.mu.Lock()
	defer id.db.mu.Unlock()
	if rec := id.db.users[id.name]; rec != nil && rec.PrimaryGroup == group {
		return true
	}
	members := id.db.groups[group]
	return members != nil && members[id.name]
}
