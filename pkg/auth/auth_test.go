package auth

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"src.oopis.sh/pkg/hal"
	"src.oopis.sh/pkg/host/hosttest"
	"src.oopis.sh/pkg/oserr"
	"src.oopis.sh/pkg/tt"
	"src.oopis.sh/pkg/vfs"
)

func testDB(t *testing.T) (*DB, *hosttest.Clock) {
	t.Helper()
	ports, _, _, clock := hosttest.Ports()
	db := New(hal.NewMemStore(), ports.Crypto, clock)
	return db, clock
}

func testDBWithFS(t *testing.T) (*DB, *vfs.FS, *hosttest.Clock) {
	t.Helper()
	db, clock := testDB(t)
	fs := vfs.New(hal.NewMemStore(), clock)
	fs.Seed()
	db.AttachFS(fs)
	return db, fs, clock
}

func TestBuiltinAccounts(t *testing.T) {
	db, _ := testDB(t)
	for _, name := range []string{Root, Guest} {
		if !db.UserExists(name) {
			t.Errorf("built-in user %v missing", name)
		}
		if db.HasPassword(name) {
			t.Errorf("built-in user %v has a password", name)
		}
	}
	if err := db.DelUser(Root); oserr.KindOf(err) != oserr.PermissionDenied {
		t.Errorf("DelUser(root) -> %v, want PermissionDenied", err)
	}
}

func TestAddVerifyDelete(t *testing.T) {
	db, _ := testDB(t)
	if err := db.AddUser("alice", "s3cret"); err != nil {
		t.Fatal(err)
	}
	if err := db.AddUser("alice", "other"); oserr.KindOf(err) != oserr.Exists {
		t.Errorf("duplicate AddUser -> %v, want Exists", err)
	}

	if !db.Verify("alice", "s3cret") {
		t.Errorf("Verify with correct password failed")
	}
	if db.Verify("alice", "wrong") {
		t.Errorf("Verify with wrong password succeeded")
	}
	// Accounts without a stored hash never verify.
	if db.Verify(Guest, "") {
		t.Errorf("Verify on passwordless account succeeded")
	}
	if db.Verify("nobody", "x") {
		t.Errorf("Verify on unknown user succeeded")
	}

	if err := db.DelUser("alice"); err != nil {
		t.Fatal(err)
	}
	if db.UserExists("alice") {
		t.Errorf("deleted user still exists")
	}
}

func TestGroups(t *testing.T) {
	db, _ := testDB(t)
	db.AddUser("alice", "")
	if err := db.AddGroup("devs"); err != nil {
		t.Fatal(err)
	}
	if err := db.AddUserToGroup("alice", "devs"); err != nil {
		t.Fatal(err)
	}
	want := []string{"alice", "devs"}
	if diff := cmp.Diff(want, db.GroupsOf("alice")); diff != "" {
		t.Errorf("GroupsOf (-want +got):\n%s", diff)
	}

	id := db.Identity("alice")
	if !id.MemberOf("devs") || !id.MemberOf("alice") || id.MemberOf("root") {
		t.Errorf("Identity membership wrong")
	}
	if id.PrimaryGroup() != "alice" {
		t.Errorf("PrimaryGroup = %v", id.PrimaryGroup())
	}
}

func TestPersistence(t *testing.T) {
	ports, _, _, clock := hosttest.Ports()
	store := hal.NewMemStore()
	db := New(store, ports.Crypto, clock)
	db.AddUser("alice", "pw")
	db.AddGroup("devs")
	db.AddUserToGroup("alice", "devs")
	if err := db.Save(); err != nil {
		t.Fatal(err)
	}

	db2 := New(store, ports.Crypto, clock)
	if err := db2.Load(); err != nil {
		t.Fatal(err)
	}
	if !db2.Verify("alice", "pw") {
		t.Errorf("reloaded DB does not verify alice")
	}
	if diff := cmp.Diff([]string{"alice", "devs"}, db2.GroupsOf("alice")); diff != "" {
		t.Errorf("reloaded groups (-want +got):\n%s", diff)
	}
}

func TestParseSudoers(t *testing.T) {
	s, err := ParseSudoers("# comment\n\nDefaults timestamp_timeout=30\nroot ALL\nalice ls,cat\n%devs ALL\n")
	if err != nil {
		t.Fatal(err)
	}
	want := &Sudoers{
		Users:          map[string]string{"root": "ALL", "alice": "ls,cat"},
		Groups:         map[string]string{"devs": "ALL"},
		TimeoutMinutes: 30,
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("ParseSudoers (-want +got):\n%s", diff)
	}

	for _, bad := range []string{"alice", "Defaults frobnicate", "Defaults timestamp_timeout=x"} {
		if _, err := ParseSudoers(bad); err == nil {
			t.Errorf("ParseSudoers(%q) did not fail", bad)
		}
	}
}

func TestPermMatches(t *testing.T) {
	tt.Test(t, tt.Fn("permMatches", permMatches), tt.Table{
		tt.Args("ALL", "anything").Rets(true),
		tt.Args("ls,cat", "cat").Rets(true),
		tt.Args("ls, cat", "cat").Rets(true),
		tt.Args("ls,cat", "rm").Rets(false),
		tt.Args("/bin/ls", "ls").Rets(true),
	})
}

func TestCanRunAsRoot(t *testing.T) {
	db, fs, _ := testDBWithFS(t)
	db.AddUser("alice", "")
	db.AddUser("bob", "")
	db.AddGroup("wheel")
	db.AddUserToGroup("bob", "wheel")

	rootID := db.Identity(Root)
	fs.WriteFile("/etc/sudoers", "/", rootID,
		"root ALL\nalice ls,cat\n%wheel rm\n")

	tests := []struct {
		user, cmd string
		want      bool
	}{
		{"root", "anything", true},
		{"alice", "ls", true},
		{"alice", "rm", false},
		{"bob", "rm", true},
		{"bob", "ls", false},
		{"Guest", "ls", false},
	}
	for _, tc := range tests {
		if got := db.CanRunAsRoot(tc.user, tc.cmd); got != tc.want {
			t.Errorf("CanRunAsRoot(%v, %v) = %v, want %v", tc.user, tc.cmd, got, tc.want)
		}
	}
}

func TestSudoersCacheInvalidation(t *testing.T) {
	db, fs, _ := testDBWithFS(t)
	db.AddUser("alice", "")

	if db.CanRunAsRoot("alice", "ls") {
		t.Fatalf("alice can sudo under the default policy")
	}
	fs.WriteFile("/etc/sudoers", "/", db.Identity(Root), "alice ALL\n")
	if !db.CanRunAsRoot("alice", "ls") {
		t.Errorf("sudoers write did not invalidate the cache")
	}
}

func TestTimestamps(t *testing.T) {
	db, fs, clock := testDBWithFS(t)
	db.AddUser("alice", "pw")

	if db.IsTimestampValid("alice") {
		t.Errorf("timestamp valid before any auth")
	}
	db.UpdateTimestamp("alice")
	if !db.IsTimestampValid("alice") {
		t.Errorf("timestamp invalid right after auth")
	}
	clock.Advance(14 * time.Minute)
	if !db.IsTimestampValid("alice") {
		t.Errorf("timestamp invalid before the default timeout")
	}
	clock.Advance(2 * time.Minute)
	if db.IsTimestampValid("alice") {
		t.Errorf("timestamp still valid after the default timeout")
	}

	db.UpdateTimestamp("alice")
	db.ClearTimestamp("alice")
	if db.IsTimestampValid("alice") {
		t.Errorf("timestamp valid after clearing")
	}

	// timestamp_timeout=0 disables the cache entirely.
	fs.WriteFile("/etc/sudoers", "/", db.Identity(Root), "Defaults timestamp_timeout=0\n")
	db.UpdateTimestamp("alice")
	if db.IsTimestampValid("alice") {
		t.Errorf("timestamp valid with timeout 0")
	}
}
