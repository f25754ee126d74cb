// Package auth implements identity: the user and group tables, password
// verification, and the sudoers policy with its timestamp cache.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"src.oopis.sh/pkg/hal"
	"src.oopis.sh/pkg/host"
	"src.oopis.sh/pkg/logutil"
	"src.oopis.sh/pkg/oserr"
	"src.oopis.sh/pkg/vfs"
)

var logger = logutil.GetLogger("[auth] ")

// Root and Guest always exist and cannot be deleted.
const (
	Root  = "root"
	Guest = "Guest"
)

// userRecord is the stored form of one user. A nil PasswordHash denotes an
// account with no password.
type userRecord struct {
	PasswordHash *string `json:"passwordHash"`
	Salt         string  `json:"salt,omitempty"`
	PrimaryGroup string  `json:"primaryGroup"`
}

// credFile is the serialized credentials table.
type credFile struct {
	Users  map[string]*userRecord `json:"users"`
	Groups map[string][]string    `json:"groups"`
}

// DB is the identity database.
type DB struct {
	mu     sync.Mutex
	users  map[string]*userRecord
	groups map[string]map[string]bool

	store  hal.Store
	crypto host.Crypto
	clock  host.Clock

	fs      *vfs.FS
	sudoers *Sudoers
	stamps  map[string]time.Time
}

// New creates a DB with only the built-in accounts. Call Load to replace it
// with the stored table.
func New(store hal.Store, crypto host.Crypto, clock host.Clock) *DB {
	db := &DB{
		users:  make(map[string]*userRecord),
		groups: make(map[string]map[string]bool),
		store:  store,
		crypto: crypto,
		clock:  clock,
		stamps: make(map[string]time.Time),
	}
	db.seed()
	return db
}

func (db *DB) seed() {
	db.users[Root] = &userRecord{PrimaryGroup: Root}
	db.users[Guest] = &userRecord{PrimaryGroup: Guest}
	db.groups[Root] = map[string]bool{Root: true}
	db.groups[Guest] = map[string]bool{Guest: true}
}

// AttachFS wires the filesystem in, so that the sudoers policy can be read
// from /etc/sudoers and invalidated when that file changes.
func (db *DB) AttachFS(fs *vfs.FS) {
	db.mu.Lock()
	db.fs = fs
	db.mu.Unlock()
	fs.OnWrite(func(path string) {
		if path == sudoersPath {
			db.mu.Lock()
			db.sudoers = nil
			db.mu.Unlock()
			logger.Println("sudoers cache invalidated")
		}
	})
}

// Load replaces the tables with the stored credentials. An absent record
// leaves the seeded accounts in place and persists them.
func (db *DB) Load() error {
	data, err := db.store.Load(hal.KeyCredentials)
	if err != nil {
		return err
	}
	if data == nil {
		return db.Save()
	}
	var f credFile
	if err := json.Unmarshal(data, &f); err != nil {
		return oserr.Newf(oserr.InvalidInput, "malformed credentials table: %v", err)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users = f.Users
	db.groups = make(map[string]map[string]bool, len(f.Groups))
	for name, members := range f.Groups {
		set := make(map[string]bool, len(members))
		for _, m := range members {
			set[m] = true
		}
		db.groups[name] = set
	}
	// The built-in accounts are always present, whatever was stored.
	if db.users[Root] == nil || db.users[Guest] == nil {
		db.seed()
	}
	return nil
}

// Save persists the credentials table.
func (db *DB) Save() error {
	db.mu.Lock()
	f := credFile{Users: db.users, Groups: make(map[string][]string, len(db.groups))}
	for name, set := range db.groups {
		members := make([]string, 0, len(set))
		for m := range set {
			members = append(members, m)
		}
		sort.Strings(members)
		f.Groups[name] = members
	}
	data, err := json.Marshal(f)
	db.mu.Unlock()
	if err != nil {
		return oserr.Newf(oserr.Internal, "cannot encode credentials: %v", err)
	}
	return db.store.Save(hal.KeyCredentials, data)
}

// UserExists reports whether the user exists.
func (db *DB) UserExists(name string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.users[name] != nil
}

// Users returns all user names, sorted.
func (db *DB) Users() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	names := make([]string, 0, len(db.users))
	for name := range db.users {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddUser creates a user along with its primary group of the same name. An
// empty password creates a passwordless account.
func (db *DB) AddUser(name, password string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if name == "" {
		return oserr.Newf(oserr.InvalidInput, "empty user name")
	}
	if db.users[name] != nil {
		return oserr.Newf(oserr.Exists, "user %v already exists", name)
	}
	rec := &userRecord{PrimaryGroup: name}
	if password != "" {
		rec.Salt, rec.PasswordHash = db.hash(password)
	}
	db.users[name] = rec
	if db.groups[name] == nil {
		db.groups[name] = map[string]bool{}
	}
	db.groups[name][name] = true
	return nil
}

// DelUser removes a user. The built-in accounts are refused.
func (db *DB) DelUser(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if name == Root || name == Guest {
		return oserr.Newf(oserr.PermissionDenied, "cannot delete system user %v", name)
	}
	if db.users[name] == nil {
		return oserr.Newf(oserr.NotFound, "user %v does not exist", name)
	}
	delete(db.users, name)
	for _, members := range db.groups {
		delete(members, name)
	}
	delete(db.stamps, name)
	return nil
}

// SetPassword replaces the user's password. An empty password removes it.
func (db *DB) SetPassword(name, password string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	rec := db.users[name]
	if rec == nil {
		return oserr.Newf(oserr.NotFound, "user %v does not exist", name)
	}
	if password == "" {
		rec.Salt, rec.PasswordHash = "", nil
	} else {
		rec.Salt, rec.PasswordHash = db.hash(password)
	}
	return nil
}

// HasPassword reports whether the account has a password set.
func (db *DB) HasPassword(name string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	rec := db.users[name]
	return rec != nil && rec.PasswordHash != nil
}

// Verify checks a plaintext password. It succeeds only when a hash is stored
// and matches; the comparison is constant-time on the hex form.
func (db *DB) Verify(name, plaintext string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	rec := db.users[name]
	if rec == nil || rec.PasswordHash == nil {
		return false
	}
	sum := db.crypto.SHA256([]byte(rec.Salt + plaintext))
	return subtle.ConstantTimeCompare([]byte(sum), []byte(*rec.PasswordHash)) == 1
}

// hash computes a fresh salt and the salted hash of a password. Must be
// called with db.mu held.
func (db *DB) hash(password string) (salt string, sum *string) {
	salt = db.crypto.SHA256(db.crypto.RandomBytes(16))[:16]
	s := db.crypto.SHA256([]byte(salt + password))
	return salt, &s
}
