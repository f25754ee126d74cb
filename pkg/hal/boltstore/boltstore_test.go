package boltstore

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"src.oopis.sh/pkg/testutil"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := testutil.TempDir(t)
	s, err := Open(filepath.Join(dir, "state.bolt"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if data, err := s.Load("fs"); err != nil || data != nil {
		t.Errorf("Load of absent key -> (%v, %v), want (nil, nil)", data, err)
	}
	if err := s.Save("fs", []byte(`{"version":1}`)); err != nil {
		t.Fatal(err)
	}
	data, err := s.Load("fs")
	if err != nil || string(data) != `{"version":1}` {
		t.Errorf("Load -> (%q, %v)", data, err)
	}
}

func TestKeysAndClear(t *testing.T) {
	s := openTestStore(t)

	s.Save("session/auto/Guest", []byte("g"))
	s.Save("session/auto/root", []byte("r"))
	s.Save("credentials", []byte("c"))

	keys, err := s.Keys("session/auto/")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"session/auto/Guest", "session/auto/root"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("Keys (-want +got):\n%s", diff)
	}

	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if data, _ := s.Load("credentials"); data != nil {
		t.Errorf("Load after Clear -> %q, want nil", data)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	s.Save("fs", []byte("x"))
	if err := s.Delete("fs"); err != nil {
		t.Fatal(err)
	}
	if data, _ := s.Load("fs"); data != nil {
		t.Errorf("Load after Delete -> %q, want nil", data)
	}
}
