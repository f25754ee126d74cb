package eval

import (
	"src.oopis.sh/pkg/auth"
	"src.oopis.sh/pkg/env"
	"src.oopis.sh/pkg/hal"
	"src.oopis.sh/pkg/host"
	"src.oopis.sh/pkg/vfs"
)

// DefaultUser is the account a fresh session starts in.
const DefaultUser = "Guest"

// Session owns one user's shell state: a filesystem handle, the identity
// stack, environment, aliases, history, the command registry and the job
// table. Multiple sessions over the same store can coexist in one process.
type Session struct {
	Store    hal.Store
	FS       *vfs.FS
	Auth     *auth.DB
	Env      *env.Env
	Aliases  *env.Aliases
	History  *env.History
	Registry *Registry
	Jobs     *JobTable
	Ports    host.Ports

	// Interactive enables history recording and prompting behavior.
	Interactive bool
	// StrictGlob makes non-matching glob patterns errors.
	StrictGlob bool

	// users is the identity stack: login replaces it, su pushes, exit and
	// logout pop. The last element is the active user.
	users []string

	exitRequested bool
}

// NewSession assembles a session over the given store and ports, starting
// as the Guest user in its home directory. The caller is expected to have
// loaded or seeded the filesystem and credentials.
func NewSession(store hal.Store, fs *vfs.FS, db *auth.DB, ports host.Ports) *Session {
	s := &Session{
		Store:    store,
		FS:       fs,
		Auth:     db,
		Env:      env.New(),
		Aliases:  env.NewAliases(),
		History:  env.NewHistory(env.DefaultHistoryCap),
		Registry: NewRegistry(),
		Jobs:     NewJobTable(),
		Ports:    ports,
	}
	s.Jobs.SetClock(ports.Clock.Now)
	s.users = []string{DefaultUser}
	s.Env.Set(env.HOST, "oopis")
	s.Env.Set(env.PATH, "/bin")
	s.Env.Set(env.STATUS, "0")
	s.setUserEnv(DefaultUser)
	return s
}

// UserName returns the active user's name.
func (s *Session) UserName() string { return s.users[len(s.users)-1] }

// Identity returns the active user's identity for filesystem operations.
func (s *Session) Identity() *auth.Identity {
	return s.Auth.Identity(s.UserName())
}

// Pwd returns the working directory.
func (s *Session) Pwd() string {
	pwd, ok := s.Env.Get(env.PWD)
	if !ok {
		return "/"
	}
	return pwd
}

// Chdir sets the working directory.
func (s *Session) Chdir(path string) { s.Env.Set(env.PWD, path) }

// Home returns the home directory of a user.
func Home(name string) string {
	if name == vfs.Root {
		return "/home/root"
	}
	return "/home/" + name
}

// PushUser stacks a new identity on top of the current one, as su does.
func (s *Session) PushUser(name string) {
	s.users = append(s.users, name)
	s.setUserEnv(name)
}

// PopUser drops the top identity and restores the previous one. It reports
// false when only the base identity remains.
func (s *Session) PopUser() bool {
	if len(s.users) <= 1 {
		return false
	}
	s.users = s.users[:len(s.users)-1]
	s.setUserEnv(s.UserName())
	return true
}

// BecomeUser replaces the whole identity stack, as login does.
func (s *Session) BecomeUser(name string) {
	s.users = []string{name}
	s.setUserEnv(name)
}

func (s *Session) setUserEnv(name string) {
	home := Home(name)
	s.Env.Set(env.USER, name)
	s.Env.Set(env.HOME, home)
	s.Env.Set(env.PWD, home)
}

// RequestExit asks the surrounding shell loop to terminate.
func (s *Session) RequestExit() { s.exitRequested = true }

// ExitRequested reports whether a command asked the shell to terminate.
func (s *Session) ExitRequested() bool { return s.exitRequested }

// Status returns the last exit status as recorded in $?.
func (s *Session) Status() string {
	v, _ := s.Env.Get(env.STATUS)
	return v
}
