package cmds

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"src.oopis.sh/pkg/auth"
	"src.oopis.sh/pkg/eval"
	"src.oopis.sh/pkg/hal"
	"src.oopis.sh/pkg/host/hosttest"
	"src.oopis.sh/pkg/oserr"
	"src.oopis.sh/pkg/vfs"
)

// newShell boots a full session over a fresh in-memory store, with every
// built-in registered. Prompt answers feed password and confirmation
// prompts in order.
func newShell(t *testing.T, answers ...string) (*eval.Session, *hosttest.Output) {
	t.Helper()
	store := hal.NewMemStore()
	ports, out, _, clock := hosttest.Ports(answers...)
	fs := vfs.New(store, clock)
	if err := fs.Load(); err != nil {
		t.Fatal(err)
	}
	db := auth.New(store, ports.Crypto, clock)
	db.AttachFS(fs)
	if err := db.Load(); err != nil {
		t.Fatal(err)
	}
	s := eval.NewSession(store, fs, db, ports)
	s.Interactive = true
	RegisterAll(s.Registry)
	return s, out
}

func run(t *testing.T, s *eval.Session, line string) int {
	t.Helper()
	return s.ExecLine(context.Background(), line)
}

func lastLine(out *hosttest.Output) string {
	lines := out.Lines()
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

func TestMkdirTouchLs(t *testing.T) {
	s, out := newShell(t)
	run(t, s, "mkdir -p a/b/c && touch a/b/c/f")
	if status := run(t, s, "ls -l a/b/c"); status != 0 {
		t.Fatalf("ls failed with %d: %v", status, out.Lines())
	}
	got := lastLine(out)
	if !strings.HasPrefix(got, "-rw-r--r-- Guest    Guest") || !strings.HasSuffix(got, " f") {
		t.Errorf("long listing = %q", got)
	}
}

func TestEchoBracePipeCat(t *testing.T) {
	s, out := newShell(t)
	run(t, s, "echo {1..3} | cat -n")
	if got := lastLine(out); got != "     1  1 2 3" {
		t.Errorf("output = %q", got)
	}
}

func TestUseraddSuWhoami(t *testing.T) {
	s, out := newShell(t, "secret", "secret", "secret")
	if status := run(t, s, "useradd alice"); status != 0 {
		t.Fatalf("useradd failed: %v", out.Lines())
	}
	run(t, s, "su alice")
	run(t, s, "whoami")
	if got := lastLine(out); got != "alice" {
		t.Fatalf("whoami after su = %q", got)
	}
	if s.Pwd() != "/home/alice" {
		t.Errorf("pwd after su = %q", s.Pwd())
	}
	run(t, s, "exit")
	run(t, s, "whoami")
	if got := lastLine(out); got != "Guest" {
		t.Errorf("whoami after exit = %q", got)
	}
	if s.ExitRequested() {
		t.Errorf("exit from a stacked user requested shell termination")
	}
}

func TestSudoersPermissions(t *testing.T) {
	s, out := newShell(t)
	if status := run(t, s, "cat /etc/sudoers"); status != oserr.StatusPermissionDenied {
		t.Fatalf("cat as Guest: status %d, want 126", status)
	}
	run(t, s, "su root")
	run(t, s, "cat /etc/sudoers")
	if got := out.String(); !strings.Contains(got, "root ALL") {
		t.Errorf("cat as root did not print sudoers:\n%s", got)
	}
}

func TestJobControl(t *testing.T) {
	s, out := newShell(t)
	if status := run(t, s, "delay 500 &"); status != 0 {
		t.Fatal("backgrounding failed")
	}
	run(t, s, "jobs")
	if got := lastLine(out); !strings.Contains(got, "[1]") || !strings.Contains(got, "Running") {
		t.Fatalf("jobs = %q", got)
	}
	run(t, s, "kill -STOP 1")
	run(t, s, "jobs")
	if got := lastLine(out); !strings.Contains(got, "Stopped") {
		t.Fatalf("jobs after STOP = %q", got)
	}
	run(t, s, "kill -CONT 1")
	job, _ := s.Jobs.Get(1)
	waitDone(t, job)
	run(t, s, "jobs")
	if got := lastLine(out); !strings.Contains(got, "Done") {
		t.Errorf("jobs after CONT = %q", got)
	}
}

func waitDone(t *testing.T, j *eval.Job) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if j.Status() == eval.Done {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job never finished (status %v)", j.Status())
}

func TestRedirectAndGrep(t *testing.T) {
	s, out := newShell(t)
	run(t, s, "echo hello > /tmp/x && grep -c l /tmp/x")
	if got := lastLine(out); got != "1" {
		t.Errorf("grep -c = %q", got)
	}
}

func TestCatWcByteCount(t *testing.T) {
	s, out := newShell(t)
	run(t, s, "echo -n 12345 > f; cat f | wc -c")
	if got := lastLine(out); got != "5" {
		t.Errorf("wc -c = %q", got)
	}
}

func TestAliasRoundTrip(t *testing.T) {
	s, out := newShell(t)
	run(t, s, "alias ll='ls -l'")
	run(t, s, "alias ll")
	if got := lastLine(out); got != "alias ll='ls -l'" {
		t.Errorf("alias display = %q", got)
	}
	run(t, s, "unalias ll")
	if status := run(t, s, "alias ll"); status == 0 {
		t.Errorf("removed alias still resolves")
	}
}

func TestHistoryCommand(t *testing.T) {
	s, out := newShell(t)
	run(t, s, "echo one")
	run(t, s, "history")
	got := out.Lines()
	want := []string{"one", "    1  echo one\n    2  history"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("history (-want +got):\n%s", diff)
	}
	run(t, s, "history -c")
	if s.History.Len() != 0 {
		t.Errorf("history after clear has %d entries", s.History.Len())
	}
}

func TestChmodChownChgrp(t *testing.T) {
	s, _ := newShell(t)
	run(t, s, "touch f; chmod 700 f")
	r, err := s.FS.Resolve("f", s.Pwd(), s.Identity(), vfs.ResolveOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if r.Node.Mode != 0o700 {
		t.Errorf("mode = %o", r.Node.Mode)
	}
	run(t, s, "su root")
	if status := run(t, s, "chown root /home/Guest/f"); status != 0 {
		t.Fatalf("chown failed")
	}
	if status := run(t, s, "chgrp root /home/Guest/f"); status != 0 {
		t.Fatalf("chgrp failed")
	}
	r, _ = s.FS.Resolve("/home/Guest/f", "/", s.Identity(), vfs.ResolveOpts{})
	if r.Node.Owner != "root" || r.Node.Group != "root" {
		t.Errorf("owner:group = %s:%s", r.Node.Owner, r.Node.Group)
	}
	if status := run(t, s, "chown nosuch /home/Guest/f"); status == 0 {
		t.Errorf("chown to a missing user succeeded")
	}
}

func TestRmBoundaries(t *testing.T) {
	s, _ := newShell(t)
	run(t, s, "mkdir d; touch d/f")
	if status := run(t, s, "rm d"); status == 0 {
		t.Errorf("rm of a directory without -r succeeded")
	}
	if status := run(t, s, "rmdir d"); status == 0 {
		t.Errorf("rmdir of a non-empty directory succeeded")
	}
	if status := run(t, s, "rm -r d"); status != 0 {
		t.Errorf("rm -r failed")
	}
	run(t, s, "su root")
	if status := run(t, s, "rm -r /"); status == 0 {
		t.Errorf("rm -r / succeeded")
	}
	// Missing paths fail without -f and pass with it.
	if status := run(t, s, "rm nosuch"); status == 0 {
		t.Errorf("rm of a missing path succeeded")
	}
	if status := run(t, s, "rm -f nosuch"); status != 0 {
		t.Errorf("rm -f of a missing path failed")
	}
}

func TestMvRoundTrip(t *testing.T) {
	s, _ := newShell(t)
	run(t, s, "echo payload > a")
	before, _ := s.FS.ReadFile("a", s.Pwd(), s.Identity())
	run(t, s, "mv a b; mv b a")
	after, err := s.FS.ReadFile("a", s.Pwd(), s.Identity())
	if err != nil || after != before {
		t.Errorf("mv round trip: (%q, %v), want %q", after, err, before)
	}
}

func TestSedCutUniqNl(t *testing.T) {
	s, out := newShell(t)
	run(t, s, "echo a,b,c > f")
	run(t, s, "cut -d , -f 1,3 f")
	if got := lastLine(out); got != "a,c" {
		t.Errorf("cut = %q", got)
	}
	run(t, s, "sed s/a/X/ f")
	if got := lastLine(out); got != "X,b,c" {
		t.Errorf("sed = %q", got)
	}
	run(t, s, "echo x > g; echo x >> g; echo y >> g")
	run(t, s, "uniq -c g")
	if got := lastLine(out); got != "      2 x\n      1 y" {
		t.Errorf("uniq -c = %q", got)
	}
	run(t, s, "nl g")
	if got := lastLine(out); got != "     1\tx\n     2\tx\n     3\ty" {
		t.Errorf("nl = %q", got)
	}
}

func TestDiffAndCsplit(t *testing.T) {
	s, out := newShell(t)
	run(t, s, "echo same > a; echo same > b")
	run(t, s, "diff a b")
	run(t, s, "echo other >> b; diff a b")
	if got := lastLine(out); got != "> other" {
		t.Errorf("diff = %q", got)
	}

	run(t, s, "echo 1 > n; echo 2 >> n; echo 3 >> n")
	if status := run(t, s, "csplit n 2"); status != 0 {
		t.Fatalf("csplit failed: %v", out.Lines())
	}
	first, _ := s.FS.ReadFile("xx00", s.Pwd(), s.Identity())
	second, _ := s.FS.ReadFile("xx01", s.Pwd(), s.Identity())
	if first != "1\n" || second != "2\n3\n" {
		t.Errorf("pieces = %q, %q", first, second)
	}
}

func TestSudo(t *testing.T) {
	s, out := newShell(t, "secret", "secret", "secret", "secret")
	run(t, s, "su root")
	run(t, s, "useradd bob")
	run(t, s, "echo 'bob ALL' >> /etc/sudoers")
	run(t, s, "exit")
	run(t, s, "su bob")

	if status := run(t, s, "cat /etc/sudoers"); status != oserr.StatusPermissionDenied {
		t.Fatalf("unprivileged cat: status %d", status)
	}
	if status := run(t, s, "sudo cat /etc/sudoers"); status != 0 {
		t.Fatalf("sudo cat failed: %v", out.Lines())
	}
	// The timestamp suppresses the second password prompt; the scripted
	// answers are exhausted by now, so a prompt would cancel.
	if status := run(t, s, "sudo cat /etc/sudoers"); status != 0 {
		t.Errorf("sudo within the timestamp window prompted again")
	}
	run(t, s, "sudo -k")
	if status := run(t, s, "sudo cat /etc/sudoers"); status == 0 {
		t.Errorf("sudo after -k did not require a password")
	}
}

func TestSudoDenied(t *testing.T) {
	s, _ := newShell(t)
	if status := run(t, s, "sudo cat /etc/sudoers"); status != oserr.StatusPermissionDenied {
		t.Errorf("sudo as Guest: status %d, want 126", status)
	}
}

func TestBackupRestore(t *testing.T) {
	s, out := newShell(t, "y")
	run(t, s, "echo keep > /tmp/keep")
	if status := run(t, s, "backup /tmp/b.json"); status != 0 {
		t.Fatalf("backup failed: %v", out.Lines())
	}
	run(t, s, "rm /tmp/keep")
	if status := run(t, s, "restore /tmp/b.json"); status != 0 {
		t.Fatalf("restore failed: %v", out.Lines())
	}
	content, err := s.FS.ReadFile("/tmp/keep", "/", s.Identity())
	if err != nil || content != "keep\n" {
		t.Errorf("restored file = (%q, %v)", content, err)
	}
}

func TestSaveLoadState(t *testing.T) {
	s, _ := newShell(t)
	run(t, s, "echo v1 > f; savestate")
	run(t, s, "echo v2 > f")
	if status := run(t, s, "loadstate"); status != 0 {
		t.Fatalf("loadstate failed")
	}
	content, _ := s.FS.ReadFile("f", s.Pwd(), s.Identity())
	if content != "v1\n" {
		t.Errorf("after loadstate: %q", content)
	}
}

func TestRunScript(t *testing.T) {
	s, out := newShell(t)
	script := "# demo\necho from-script\n"
	if err := s.FS.WriteFile("sc", s.Pwd(), s.Identity(), script); err != nil {
		t.Fatal(err)
	}
	run(t, s, "chmod 755 sc")
	if status := run(t, s, "run sc"); status != 0 {
		t.Fatalf("run failed: %v", out.Lines())
	}
	if got := lastLine(out); got != "from-script" {
		t.Errorf("script output = %q", got)
	}
}

func TestManAndHelp(t *testing.T) {
	s, out := newShell(t)
	run(t, s, "man ls")
	if got := out.String(); !strings.Contains(got, "NAME") || !strings.Contains(got, "ls - list directory contents") {
		t.Errorf("man output:\n%s", got)
	}
	run(t, s, "help echo")
	if got := lastLine(out); got != "usage: echo [-n] [text...]" {
		t.Errorf("help = %q", got)
	}
}

func TestCdRequiresExec(t *testing.T) {
	s, _ := newShell(t)
	run(t, s, "mkdir d")
	run(t, s, "chmod 600 d")
	if status := run(t, s, "cd d"); status != oserr.StatusPermissionDenied {
		t.Errorf("cd into no-exec dir: status %d, want 126", status)
	}
	run(t, s, "chmod 700 d; cd d")
	if s.Pwd() != "/home/Guest/d" {
		t.Errorf("pwd = %q", s.Pwd())
	}
	run(t, s, "cd")
	if s.Pwd() != "/home/Guest" {
		t.Errorf("cd with no argument went to %q", s.Pwd())
	}
}

func TestEnvCommands(t *testing.T) {
	s, out := newShell(t)
	run(t, s, "export GREETING=hi")
	run(t, s, "echo $GREETING")
	if got := lastLine(out); got != "hi" {
		t.Errorf("expanded = %q", got)
	}
	run(t, s, "unset GREETING; echo [$GREETING]")
	if got := lastLine(out); got != "[]" {
		t.Errorf("after unset = %q", got)
	}
	run(t, s, "set A b")
	if v, _ := s.Env.Get("A"); v != "b" {
		t.Errorf("set A b -> %q", v)
	}
}

func TestUserGroupCommands(t *testing.T) {
	s, out := newShell(t, "", "")
	run(t, s, "su root")
	run(t, s, "useradd carol") // empty answers: passwordless account
	run(t, s, "groupadd devs")
	run(t, s, "usermod -a -G devs carol")
	run(t, s, "groups carol")
	if got := lastLine(out); got != "carol devs" {
		t.Errorf("groups = %q", got)
	}
	run(t, s, "listusers")
	if got := out.String(); !strings.Contains(got, "carol") || !strings.Contains(got, "Guest") {
		t.Errorf("listusers output:\n%s", got)
	}
	run(t, s, "userdel -r carol")
	if s.Auth.UserExists("carol") {
		t.Errorf("carol survived userdel")
	}
}

func TestVisudo(t *testing.T) {
	s, out := newShell(t)
	if status := run(t, s, "visudo"); status != oserr.StatusPermissionDenied {
		t.Fatalf("visudo as Guest: status %d", status)
	}
	run(t, s, "su root")
	if status := run(t, s, "visudo"); status != 0 {
		t.Fatalf("visudo as root failed: %v", out.Lines())
	}
	run(t, s, "echo 'broken line here' >> /etc/sudoers")
	if status := run(t, s, "visudo"); status == 0 {
		t.Errorf("visudo accepted a malformed sudoers")
	}
}

func TestUnknownCommandExit127(t *testing.T) {
	s, _ := newShell(t)
	if status := run(t, s, "frobnicate"); status != oserr.StatusCmdNotFound {
		t.Errorf("status = %d, want 127", status)
	}
}
