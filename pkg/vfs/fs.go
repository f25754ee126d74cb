package vfs

import (
	"sync"

	"src.oopis.sh/pkg/hal"
	"src.oopis.sh/pkg/host"
	"src.oopis.sh/pkg/logutil"
	"src.oopis.sh/pkg/oserr"
)

var logger = logutil.GetLogger("[vfs] ")

// Config holds filesystem policy knobs.
type Config struct {
	// ProtectedPaths are refused by RemoveAll regardless of permissions.
	// Only "/" is protected by default.
	ProtectedPaths []string
}

// FS is a filesystem: one root directory plus the machinery to persist it
// through the storage HAL.
//
// Mutations from concurrent background jobs are serialized by an internal
// mutex; there is no intra-node locking.
type FS struct {
	mu    sync.RWMutex
	root  *Node
	store hal.Store
	clock host.Clock
	cfg   Config

	observers []func(path string)

	saveMu  sync.Mutex
	saving  bool
	pending bool
}

// New creates an FS backed by the given store. The tree is empty until Load
// or Seed runs.
func New(store hal.Store, clock host.Clock) *FS {
	return &FS{store: store, clock: clock, cfg: Config{ProtectedPaths: []string{"/"}}}
}

// Root returns the root directory node.
func (fs *FS) Root() *Node {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.root
}

// OnWrite registers an observer called with the canonical path of every
// content write. The sudoers cache invalidation hangs off this.
func (fs *FS) OnWrite(f func(path string)) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.observers = append(fs.observers, f)
}

func (fs *FS) notifyWrite(path string) {
	for _, f := range fs.observers {
		f(path)
	}
}

// Load replaces the in-memory tree with the stored image. When the store has
// no image, the initial layout is seeded instead.
func (fs *FS) Load() error {
	data, err := fs.store.Load(hal.KeyFS)
	if err != nil {
		return err
	}
	if data == nil {
		logger.Println("no stored image, seeding initial layout")
		fs.Seed()
		return fs.Save()
	}
	img, err := DecodeImage(data)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	fs.root = img.Root.node()
	fs.mu.Unlock()
	return nil
}

// Seed builds the initial filesystem layout:
//
//	/            root:root 0755
//	/home        root:root 0755
//	/home/Guest  Guest:Guest 0755
//	/home/root   root:root 0700
//	/etc         root:root 0755
//	/etc/sudoers root:root 0440
//	/tmp         root:root 0777 (modes keep only the 9 rwx bits, so the
//	             conventional sticky bit on /tmp is dropped)
func (fs *FS) Seed() {
	now := fs.clock.Now()
	root := newDir(Root, Root, 0o755, now)
	home := newDir(Root, Root, 0o755, now)
	guest := newDir("Guest", "Guest", 0o755, now)
	rootHome := newDir(Root, Root, 0o700, now)
	etc := newDir(Root, Root, 0o755, now)
	tmp := newDir(Root, Root, 0o777, now)
	sudoers := newFile(Root, Root, 0o440, now, DefaultSudoers)

	home.Children["Guest"] = guest
	home.Children["root"] = rootHome
	etc.Children["sudoers"] = sudoers
	root.Children["home"] = home
	root.Children["etc"] = etc
	root.Children["tmp"] = tmp

	fs.mu.Lock()
	fs.root = root
	fs.mu.Unlock()
}

// DefaultSudoers is the content seeded into /etc/sudoers.
const DefaultSudoers = "# /etc/sudoers\n" +
	"Defaults timestamp_timeout=15\n" +
	"root ALL\n"

// Save serializes the whole tree through the HAL. Saves are coalesced: while
// one is in flight, further requests queue exactly one follow-up.
func (fs *FS) Save() error {
	fs.saveMu.Lock()
	if fs.saving {
		fs.pending = true
		fs.saveMu.Unlock()
		return nil
	}
	fs.saving = true
	fs.saveMu.Unlock()

	var err error
	for {
		data, encErr := fs.EncodeImage()
		if encErr != nil {
			err = encErr
		} else if saveErr := fs.store.Save(hal.KeyFS, data); saveErr != nil {
			err = saveErr
		}
		fs.saveMu.Lock()
		if fs.pending {
			fs.pending = false
			fs.saveMu.Unlock()
			continue
		}
		fs.saving = false
		fs.saveMu.Unlock()
		return err
	}
}

// protected reports whether the canonical path is in the protected list.
func (fs *FS) protected(path string) bool {
	for _, p := range fs.cfg.ProtectedPaths {
		if p == path {
			return true
		}
	}
	return false
}

func notFound(path string) error {
	return oserr.Newf(oserr.NotFound, "%v: no such file or directory", path)
}

func permissionDenied(path string) error {
	return oserr.Newf(oserr.PermissionDenied, "%v: permission denied", path)
}
