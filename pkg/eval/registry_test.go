package eval

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"src.oopis.sh/pkg/oserr"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&Command{}); err == nil {
		t.Errorf("registering a nameless command did not fail")
	}
	a := &Command{Name: "a"}
	if err := r.Register(a); err != nil {
		t.Fatal(err)
	}
	// Duplicate registration is a no-op and keeps the original.
	if err := r.Register(&Command{Name: "a", Description: "impostor"}); err != nil {
		t.Errorf("duplicate registration errored: %v", err)
	}
	got, err := r.EnsureLoaded("a")
	if err != nil || got != a {
		t.Errorf("EnsureLoaded -> (%v, %v), want original", got, err)
	}
}

func TestRegistryLoader(t *testing.T) {
	r := NewRegistry()
	loads := 0
	r.RegisterLoader("lazy", func() *Command {
		loads++
		return &Command{Name: "lazy"}
	})

	if diff := cmp.Diff([]string{"lazy"}, r.Names()); diff != "" {
		t.Errorf("Names before load (-want +got):\n%s", diff)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.EnsureLoaded("lazy"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if loads != 1 {
		t.Errorf("loader ran %d times, want 1", loads)
	}
}

func TestRegistryNotFound(t *testing.T) {
	r := NewRegistry()
	r.RegisterLoader("ls", func() *Command { return &Command{Name: "ls"} })

	_, err := r.EnsureLoaded("lss")
	if oserr.KindOf(err) != oserr.NotFound {
		t.Fatalf("kind = %v", oserr.KindOf(err))
	}
	if got := oserr.ExitCodeOf(err); got != oserr.StatusCmdNotFound {
		t.Errorf("exit code = %d, want 127", got)
	}
	e := err.(*oserr.Error)
	if e.Suggestion != "did you mean 'ls'?" {
		t.Errorf("suggestion = %q", e.Suggestion)
	}

	_, err = r.EnsureLoaded("zzzzzz")
	if e := err.(*oserr.Error); e.Suggestion != "" {
		t.Errorf("far-off name got suggestion %q", e.Suggestion)
	}
}

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"a", "", 1},
		{"kitten", "sitting", 3},
		{"ls", "lss", 1},
		{"grep", "grep", 0},
	}
	for _, test := range tests {
		if got := editDistance(test.a, test.b); got != test.want {
			t.Errorf("editDistance(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}
