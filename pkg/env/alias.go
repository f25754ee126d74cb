package env

import (
	"encoding/json"
	"sort"
	"sync"

	"src.oopis.sh/pkg/hal"
)

// Aliases is the alias table: alias name to command-line string.
type Aliases struct {
	mu sync.Mutex
	m  map[string]string
}

// NewAliases returns an empty alias table.
func NewAliases() *Aliases {
	return &Aliases{m: make(map[string]string)}
}

// Get returns the expansion of an alias and whether it exists.
func (a *Aliases) Get(name string) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.m[name]
	return v, ok
}

// Set defines or redefines an alias.
func (a *Aliases) Set(name, value string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.m[name] = value
}

// Delete removes an alias, reporting whether it existed.
func (a *Aliases) Delete(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.m[name]
	delete(a.m, name)
	return ok
}

// Names returns all alias names, sorted.
func (a *Aliases) Names() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	names := make([]string, 0, len(a.m))
	for name := range a.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save persists the table through the HAL.
func (a *Aliases) Save(store hal.Store) error {
	a.mu.Lock()
	data, err := json.Marshal(a.m)
	a.mu.Unlock()
	if err != nil {
		return err
	}
	return store.Save(hal.KeyAliases, data)
}

// Load replaces the table with the stored one; an absent record leaves the
// table empty.
func (a *Aliases) Load(store hal.Store) error {
	data, err := store.Load(hal.KeyAliases)
	if err != nil || data == nil {
		return err
	}
	m := make(map[string]string)
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	a.mu.Lock()
	a.m = m
	a.mu.Unlock()
	return nil
}
