package auth

import (
	"strconv"
	"strings"

	"src.oopis.sh/pkg/oserr"
)

const sudoersPath = "/etc/sudoers"

// DefaultTimeoutMinutes is the sudo timestamp timeout used when the sudoers
// file does not override it.
const DefaultTimeoutMinutes = 15

// Sudoers is the parsed policy from /etc/sudoers. A permission string is
// either "ALL" or a comma-separated list of command basenames.
type Sudoers struct {
	Users          map[string]string
	Groups         map[string]string
	TimeoutMinutes int
}

// ParseSudoers parses the sudoers grammar:
//
//	# comment
//	Defaults timestamp_timeout=N
//	<user> <perm>
//	%<group> <perm>
func ParseSudoers(text string) (*Sudoers, error) {
	s := &Sudoers{
		Users:          make(map[string]string),
		Groups:         make(map[string]string),
		TimeoutMinutes: DefaultTimeoutMinutes,
	}
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if fields[0] == "Defaults" {
			if len(fields) != 2 || !strings.HasPrefix(fields[1], "timestamp_timeout=") {
				return nil, oserr.Newf(oserr.InvalidInput,
					"sudoers line %d: unsupported Defaults %q", i+1, line)
			}
			n, err := strconv.Atoi(strings.TrimPrefix(fields[1], "timestamp_timeout="))
			if err != nil {
				return nil, oserr.Newf(oserr.InvalidInput,
					"sudoers line %d: bad timeout: %v", i+1, err)
			}
			s.TimeoutMinutes = n
			continue
		}
		if len(fields) != 2 {
			return nil, oserr.Newf(oserr.InvalidInput,
				"sudoers line %d: want \"<entity> <perm>\", got %q", i+1, line)
		}
		entity, perm := fields[0], fields[1]
		if strings.HasPrefix(entity, "%") {
			s.Groups[entity[1:]] = perm
		} else {
			s.Users[entity] = perm
		}
	}
	return s, nil
}

// permMatches reports whether a permission string covers the command.
func permMatches(perm, commandBase string) bool {
	if perm == "ALL" {
		return true
	}
	for _, item := range strings.Split(perm, ",") {
		item = strings.TrimSpace(item)
		// Entries may be full paths; only the basename counts.
		if i := strings.LastIndexByte(item, '/'); i >= 0 {
			item = item[i+1:]
		}
		if item == commandBase {
			return true
		}
	}
	return false
}

// sudoersPolicy returns the parsed policy, re-reading /etc/sudoers when the
// cache has been invalidated. An unreadable or malformed file denies
// everything but root.
func (db *DB) sudoersPolicy() *Sudoers {
	db.mu.Lock()
	cached, fs := db.sudoers, db.fs
	db.mu.Unlock()
	if cached != nil {
		return cached
	}
	empty := &Sudoers{
		Users:          map[string]string{},
		Groups:         map[string]string{},
		TimeoutMinutes: DefaultTimeoutMinutes,
	}
	if fs == nil {
		return empty
	}
	content, err := fs.ReadFile(sudoersPath, "/", db.Identity(Root))
	if err != nil {
		logger.Printf("cannot read %v: %v", sudoersPath, err)
		return empty
	}
	parsed, err := ParseSudoers(content)
	if err != nil {
		logger.Printf("cannot parse %v: %v", sudoersPath, err)
		return empty
	}
	db.mu.Lock()
	db.sudoers = parsed
	db.mu.Unlock()
	return parsed
}

// CanRunAsRoot reports whether the user may run the command (a basename)
// with root privileges.
func (db *DB) CanRunAsRoot(user, commandBase string) bool {
	if user == Root {
		return true
	}
	policy := db.sudoersPolicy()
	if perm, ok := policy.Users[user]; ok {
		return permMatches(perm, commandBase)
	}
	for _, group := range db.GroupsOf(user) {
		if perm, ok := policy.Groups[group]; ok && permMatches(perm, commandBase) {
			return true
		}
	}
	return false
}

// IsTimestampValid reports whether the user authenticated recently enough
// that sudo does not need to re-prompt.
func (db *DB) IsTimestampValid(user string) bool {
	timeout := db.sudoersPolicy().TimeoutMinutes
	if timeout <= 0 {
		return false
	}
	db.mu.Lock()
	stamp, ok := db.stamps[user]
	now := db.clock.Now()
	db.mu.Unlock()
	return ok && now.Sub(stamp).Minutes() < float64(timeout)
}

// UpdateTimestamp records a successful authentication.
func (db *DB) UpdateTimestamp(user string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.stamps[user] = db.clock.Now()
}

// ClearTimestamp invalidates the user's cached authentication.
func (db *DB) ClearTimestamp(user string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.stamps, user)
}
