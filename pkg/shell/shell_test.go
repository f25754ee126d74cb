package shell

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"src.oopis.sh/pkg/auth"
	"src.oopis.sh/pkg/eval"
	"src.oopis.sh/pkg/hal"
	"src.oopis.sh/pkg/host/hosttest"
	"src.oopis.sh/pkg/must"
	"src.oopis.sh/pkg/testutil"
	"src.oopis.sh/pkg/vfs"
)

func TestLoadConfig(t *testing.T) {
	dir := testutil.TempDir(t)
	path := filepath.Join(dir, "rc.yaml")
	must.OK(os.WriteFile(path, []byte("db: /tmp/state.bolt\nprompt: '{user}> '\nstrict-glob: true\n"), 0o600))

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DB != "/tmp/state.bolt" || cfg.Prompt != "{user}> " || !cfg.StrictGlob {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfigAbsent(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(testutil.TempDir(t), "nope.yaml"))
	if err != nil || cfg != (Config{}) {
		t.Errorf("got (%+v, %v), want zero config", cfg, err)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(testutil.TempDir(t), "rc.yaml")
	must.OK(os.WriteFile(path, []byte(":\n:::not yaml"), 0o600))
	if _, err := loadConfig(path); err == nil {
		t.Error("malformed rc file did not error")
	}
}

func newSession(t *testing.T) (*eval.Session, *hosttest.Output) {
	t.Helper()
	store := hal.NewMemStore()
	ports, out, _, clock := hosttest.Ports()
	fs := vfs.New(store, clock)
	if err := fs.Load(); err != nil {
		t.Fatal(err)
	}
	db := auth.New(store, ports.Crypto, clock)
	db.AttachFS(fs)
	if err := db.Load(); err != nil {
		t.Fatal(err)
	}
	return eval.NewSession(store, fs, db, ports), out
}

func TestPrompt(t *testing.T) {
	s, _ := newSession(t)
	if got := prompt(s, DefaultPrompt); got != "Guest@oopis:/home/Guest$ " {
		t.Errorf("prompt = %q", got)
	}
	if got := prompt(s, "{pwd}> "); got != "/home/Guest> " {
		t.Errorf("prompt = %q", got)
	}
	s.PushUser(vfs.Root)
	if got := prompt(s, DefaultPrompt); got != "root@oopis:/home/root# " {
		t.Errorf("root prompt = %q", got)
	}
}

func TestScriptFile(t *testing.T) {
	s, out := newSession(t)
	registerEcho(s)
	path := filepath.Join(testutil.TempDir(t), "script")
	must.OK(os.WriteFile(path, []byte("# comment\necho scripted\n"), 0o600))

	devNull := must.OK1(os.OpenFile(os.DevNull, os.O_RDWR, 0))
	defer devNull.Close()
	fds := [3]*os.File{devNull, devNull, devNull}
	if exit := script(s, fds, path, false); exit != 0 {
		t.Fatalf("exit = %d", exit)
	}
	lines := out.Lines()
	if len(lines) != 1 || lines[0] != "scripted" {
		t.Errorf("output = %v", lines)
	}
}

func TestScriptCode(t *testing.T) {
	s, out := newSession(t)
	registerEcho(s)
	devNull := must.OK1(os.OpenFile(os.DevNull, os.O_RDWR, 0))
	defer devNull.Close()
	fds := [3]*os.File{devNull, devNull, devNull}
	if exit := script(s, fds, "echo inline", true); exit != 0 {
		t.Fatalf("exit = %d", exit)
	}
	if lines := out.Lines(); len(lines) != 1 || lines[0] != "inline" {
		t.Errorf("output = %v", lines)
	}
}

func TestSourceRC(t *testing.T) {
	s, out := newSession(t)
	registerEcho(s)
	rootID := s.Auth.Identity(vfs.Root)
	must.OK(s.FS.WriteFile(rcScriptPath, "/", rootID, "echo from-rc\n"))

	sourceRC(s)
	if lines := out.Lines(); len(lines) != 1 || lines[0] != "from-rc" {
		t.Errorf("output = %v", lines)
	}
}

func TestSourceRCAbsent(t *testing.T) {
	s, out := newSession(t)
	sourceRC(s)
	if lines := out.Lines(); len(lines) != 0 {
		t.Errorf("output = %v", lines)
	}
}

// registerEcho registers a minimal echo so the tests do not depend on the
// full command set.
func registerEcho(s *eval.Session) {
	s.Registry.Register(&eval.Command{
		Name: "echo",
		Args: eval.AnyArgs,
		Run: func(ctx *eval.Context) error {
			ctx.Println(strings.Join(ctx.Args, " "))
			return nil
		},
	})
}
