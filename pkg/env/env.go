// Package env keeps per-session shell state: environment variables, the
// alias table, and the command history ring.
package env

import (
	"fmt"
	"sort"
	"sync"
)

// Names of environment variables with special significance to the shell.
const (
	USER = "USER"
	HOME = "HOME"
	HOST = "HOST"
	PWD  = "PWD"
	PATH = "PATH"
	// STATUS is the name under which the last exit status is stored; it is
	// written by the executor after every foreground command and read back
	// as $?.
	STATUS = "?"
)

// Env is a per-session environment: a mapping from variable names to string
// values.
type Env struct {
	mu   sync.Mutex
	vars map[string]string
}

// New returns an empty environment.
func New() *Env {
	return &Env{vars: make(map[string]string)}
}

// Get returns the value of a variable and whether it is set.
func (e *Env) Get(name string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.vars[name]
	return v, ok
}

// Set sets a variable.
func (e *Env) Set(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars[name] = value
}

// Unset removes a variable.
func (e *Env) Unset(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.vars, name)
}

// List returns all variables as "NAME=value" lines, sorted by name.
func (e *Env) List() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = fmt.Sprintf("%s=%s", name, e.vars[name])
	}
	return lines
}
