package eval

import (
	"sort"
	"sync"

	"src.oopis.sh/pkg/logutil"
	"src.oopis.sh/pkg/oserr"
)

var logger = logutil.GetLogger("[eval] ")

// Loader builds a command on first use. Loaders let the registry know the
// full command manifest without constructing every command up front.
type Loader func() *Command

// Registry maps command names to commands. Commands either register
// eagerly or lazily through a Loader; lookup is uniform.
type Registry struct {
	mu       sync.Mutex
	cmds     map[string]*Command
	loaders  map[string]Loader
	inflight map[string]chan struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		cmds:     make(map[string]*Command),
		loaders:  make(map[string]Loader),
		inflight: make(map[string]chan struct{}),
	}
}

// Register adds a command. Nameless commands are rejected; re-registering
// an existing name is a logged no-op, so that idempotent loaders stay
// cheap.
func (r *Registry) Register(c *Command) error {
	if c == nil || c.Name == "" {
		return oserr.Newf(oserr.InvalidInput, "cannot register a nameless command")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cmds[c.Name]; ok {
		logger.Printf("duplicate registration of %q ignored", c.Name)
		return nil
	}
	r.cmds[c.Name] = c
	return nil
}

// RegisterLoader declares that name can be loaded on demand.
func (r *Registry) RegisterLoader(name string, l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.loaders[name]; ok {
		logger.Printf("duplicate loader for %q ignored", name)
		return
	}
	r.loaders[name] = l
}

// EnsureLoaded returns the named command, invoking its loader if it has not
// been built yet. Concurrent calls for the same name share one load. An
// unknown name yields a NotFound error with exit code 127 and, when a known
// name is close enough, a suggestion.
func (r *Registry) EnsureLoaded(name string) (*Command, error) {
	for {
		r.mu.Lock()
		if c, ok := r.cmds[name]; ok {
			r.mu.Unlock()
			return c, nil
		}
		if ch, ok := r.inflight[name]; ok {
			r.mu.Unlock()
			<-ch
			continue
		}
		loader, ok := r.loaders[name]
		if !ok {
			r.mu.Unlock()
			return nil, r.notFound(name)
		}
		ch := make(chan struct{})
		r.inflight[name] = ch
		r.mu.Unlock()

		c := loader()
		r.mu.Lock()
		delete(r.inflight, name)
		if c != nil && c.Name == name {
			r.cmds[name] = c
		} else {
			logger.Printf("loader for %q produced no matching command", name)
			delete(r.loaders, name)
		}
		r.mu.Unlock()
		close(ch)
	}
}

func (r *Registry) notFound(name string) error {
	err := oserr.Newf(oserr.NotFound, "%v: command not found", name)
	err.Code = oserr.StatusCmdNotFound
	if near := nearest(name, r.names()); near != "" {
		return err.WithSuggestion("did you mean '" + near + "'?")
	}
	return err
}

// Names returns the sorted manifest of all known command names, loaded or
// not.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.names()
}

// names must be called with r.mu held.
func (r *Registry) names() []string {
	seen := make(map[string]bool, len(r.cmds)+len(r.loaders))
	for name := range r.cmds {
		seen[name] = true
	}
	for name := range r.loaders {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// nearest returns the candidate with the smallest edit distance from name,
// if that distance is at most 2.
func nearest(name string, candidates []string) string {
	best, bestDist := "", 3
	for _, c := range candidates {
		if d := editDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// editDistance is the Levenshtein distance between a and b.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
