package env

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"src.oopis.sh/pkg/hal"
)

func TestEnv(t *testing.T) {
	e := New()
	e.Set("USER", "Guest")
	e.Set("PWD", "/home/Guest")
	if v, ok := e.Get("USER"); !ok || v != "Guest" {
		t.Errorf("Get(USER) -> (%q, %v)", v, ok)
	}
	e.Unset("USER")
	if _, ok := e.Get("USER"); ok {
		t.Errorf("unset variable still set")
	}
	want := []string{"PWD=/home/Guest"}
	if diff := cmp.Diff(want, e.List()); diff != "" {
		t.Errorf("List (-want +got):\n%s", diff)
	}
}

func TestAliases(t *testing.T) {
	a := NewAliases()
	a.Set("ll", "ls -l")
	if v, ok := a.Get("ll"); !ok || v != "ls -l" {
		t.Errorf("Get -> (%q, %v)", v, ok)
	}
	if !a.Delete("ll") {
		t.Errorf("Delete of existing alias returned false")
	}
	if a.Delete("ll") {
		t.Errorf("Delete of missing alias returned true")
	}
	if _, ok := a.Get("ll"); ok {
		t.Errorf("deleted alias still resolves")
	}
}

func TestAliasPersistence(t *testing.T) {
	store := hal.NewMemStore()
	a := NewAliases()
	a.Set("ll", "ls -l")
	a.Set("rmi", "rm -i")
	if err := a.Save(store); err != nil {
		t.Fatal(err)
	}

	b := NewAliases()
	if err := b.Load(store); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"ll", "rmi"}, b.Names()); diff != "" {
		t.Errorf("reloaded aliases (-want +got):\n%s", diff)
	}
}

func TestHistory(t *testing.T) {
	h := NewHistory(3)
	h.Add("a")
	h.Add("b")
	h.Add("b") // consecutive duplicate collapsed
	h.Add("c")
	h.Add("d") // evicts "a"

	if h.Len() != 3 {
		t.Errorf("Len = %d, want 3", h.Len())
	}
	if diff := cmp.Diff([]string{"b", "c", "d"}, h.All()); diff != "" {
		t.Errorf("All (-want +got):\n%s", diff)
	}
	if line, ok := h.At(1); !ok || line != "b" {
		t.Errorf("At(1) -> (%q, %v)", line, ok)
	}
	if _, ok := h.At(4); ok {
		t.Errorf("At out of range succeeded")
	}
	if diff := cmp.Diff([]string{"c", "d"}, h.Last(2)); diff != "" {
		t.Errorf("Last (-want +got):\n%s", diff)
	}
	h.Clear()
	if h.Len() != 0 {
		t.Errorf("Len after Clear = %d", h.Len())
	}
}
