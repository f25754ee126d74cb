package shell

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"src.oopis.sh/pkg/auth"
	"src.oopis.sh/pkg/cmds"
	"src.oopis.sh/pkg/daemon"
	"src.oopis.sh/pkg/env"
	"src.oopis.sh/pkg/eval"
	"src.oopis.sh/pkg/hal"
	"src.oopis.sh/pkg/hal/boltstore"
	"src.oopis.sh/pkg/host"
	"src.oopis.sh/pkg/prog"
	"src.oopis.sh/pkg/vfs"
)

// openStore picks the storage backend: the daemon socket when one is
// configured, otherwise the bolt state file. Storage failures degrade to an
// in-memory store so the shell still comes up; nothing persists then.
func openStore(f *prog.Flags, cfg Config, stderr io.Writer) hal.Store {
	if sock := firstNonEmpty(f.Sock, cfg.Sock); sock != "" {
		client, err := daemon.Dial(sock)
		if err == nil {
			if err = client.Init(); err == nil {
				return client
			}
			client.Close()
		}
		fmt.Fprintln(stderr, "Warning:", err)
		fmt.Fprintln(stderr, "Continuing without persistent storage.")
		return hal.NewMemStore()
	}

	dbPath := firstNonEmpty(f.DB, cfg.DB)
	if dbPath == "" {
		var err error
		dbPath, err = defaultDBPath()
		if err != nil {
			fmt.Fprintln(stderr, "Warning: cannot determine state file location:", err)
			fmt.Fprintln(stderr, "Continuing without persistent storage.")
			return hal.NewMemStore()
		}
		os.MkdirAll(filepath.Dir(dbPath), 0o700)
	}
	st, err := boltstore.Open(dbPath)
	if err == nil {
		if err = st.Init(); err == nil {
			return st
		}
		st.Close()
	}
	fmt.Fprintln(stderr, "Warning:", err)
	fmt.Fprintln(stderr, "Continuing without persistent storage.")
	return hal.NewMemStore()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// setupSession assembles a full session over the store: filesystem,
// credentials, environment and the whole command set. The returned cleanup
// persists the filesystem and closes the store.
func setupSession(f *prog.Flags, cfg Config, fds [3]*os.File) (*eval.Session, func(), error) {
	store := openStore(f, cfg, fds[2])
	ports := host.NewTermPorts(fds[0], fds[1])
	fs := vfs.New(store, ports.Clock)
	if err := fs.Load(); err != nil {
		store.Close()
		return nil, nil, err
	}
	db := auth.New(store, ports.Crypto, ports.Clock)
	db.AttachFS(fs)
	if err := db.Load(); err != nil {
		store.Close()
		return nil, nil, err
	}
	s := eval.NewSession(store, fs, db, ports)
	if cfg.HistoryCap > 0 {
		s.History = env.NewHistory(cfg.HistoryCap)
	}
	s.StrictGlob = cfg.StrictGlob
	cmds.RegisterAll(s.Registry)

	cleanup := func() {
		if err := fs.Save(); err != nil {
			logger.Printf("failed to save filesystem: %v", err)
		}
		if err := store.Close(); err != nil {
			logger.Printf("failed to close store: %v", err)
		}
	}
	return s, cleanup, nil
}
