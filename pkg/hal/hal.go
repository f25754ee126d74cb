// Package hal defines the persistence boundary of the core: a keyed blob
// store with pluggable backends. The filesystem image, the credentials
// table and session snapshots are all records in one Store.
package hal

// Well-known record keys.
const (
	KeyFS          = "fs"
	KeyCredentials = "credentials"
	KeyAliases     = "aliases"
	KeyEditorWrap  = "editor/wordwrap"

	// Session snapshots are stored under these prefixes, followed by the
	// user name (automatic) or a user-chosen name (manual).
	PrefixAutoSession   = "session/auto/"
	PrefixManualSession = "session/manual/"
)

// Store is the persistence capability. Load returns (nil, nil) when the key
// is absent; Save is a total overwrite. Implementations are assumed to have
// a single writer.
type Store interface {
	// Init prepares the backend for use. It must be called before any other
	// method and is idempotent.
	Init() error
	Load(key string) ([]byte, error)
	Save(key string, data []byte) error
	Delete(key string) error
	// Keys returns all keys with the given prefix, sorted.
	Keys(prefix string) ([]string, error)
	// Clear removes every record.
	Clear() error
	Close() error
}
