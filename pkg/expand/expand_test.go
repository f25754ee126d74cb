package expand

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"src.oopis.sh/pkg/hal"
	"src.oopis.sh/pkg/host/hosttest"
	"src.oopis.sh/pkg/oserr"
	"src.oopis.sh/pkg/parse"
	"src.oopis.sh/pkg/vfs"
)

type testUser string

func (u testUser) Name() string           { return string(u) }
func (u testUser) PrimaryGroup() string   { return string(u) }
func (u testUser) MemberOf(g string) bool { return g == string(u) }

func testExpander(t *testing.T) *Expander {
	t.Helper()
	_, _, _, clock := hosttest.Ports()
	fs := vfs.New(hal.NewMemStore(), clock)
	fs.Seed()
	u := testUser("root")
	for _, f := range []string{"/home/Guest/a.txt", "/home/Guest/b.txt", "/home/Guest/c.md"} {
		if err := fs.WriteFile(f, "/", u, ""); err != nil {
			t.Fatal(err)
		}
	}
	env := map[string]string{
		"USER": "Guest",
		"HOME": "/home/Guest",
		"?":    "0",
	}
	return &Expander{
		FS:     fs,
		User:   u,
		PWD:    "/home/Guest",
		Home:   "/home/Guest",
		Getenv: func(name string) string { return env[name] },
		CmdSubst: func(body string) (string, error) {
			switch body {
			case "whoami":
				return "Guest\n", nil
			case "fail":
				return "", nil
			}
			return "out(" + body + ")\n\n", nil
		},
	}
}

// expand lexes src as a single stage and expands its words.
func expand(t *testing.T, ex *Expander, src string) []string {
	t.Helper()
	line, err := parse.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	args, err := ex.Stage(line.Pipelines[0].Stages[0].Words)
	if err != nil {
		t.Fatalf("expand %q: %v", src, err)
	}
	return args
}

var expandTests = []struct {
	src  string
	want []string
}{
	// Braces.
	{"x{1,2}", []string{"x1", "x2"}},
	{"x{1,2}{a,b}", []string{"x1a", "x1b", "x2a", "x2b"}},
	{"{a..c}", []string{"a", "b", "c"}},
	{"{3..1}", []string{"3", "2", "1"}},
	{"{a}", []string{"{a}"}},
	{"{a,{b,c}}", []string{"a", "b", "c"}},
	{"'{1,2}'", []string{"{1,2}"}},

	// Tilde.
	{"~", []string{"/home/Guest"}},
	{"~/docs", []string{"/home/Guest/docs"}},
	{"a~", []string{"a~"}},
	{"'~'", []string{"~"}},

	// Variables.
	{"$USER", []string{"Guest"}},
	{"${USER}x", []string{"Guestx"}},
	{"$NOSUCH", []string{""}},
	{"$?", []string{"0"}},
	{`"$USER"`, []string{"Guest"}},
	{"'$USER'", []string{"$USER"}},
	{"a$", []string{"a$"}},

	// Command substitution trims trailing newlines only.
	{"$(whoami)", []string{"Guest"}},
	{"hi-$(echo x)", []string{"hi-out(echo x)"}},
	{`"$(whoami)!"`, []string{"Guest!"}},
	{"$(fail)", []string{""}},

	// Globbing.
	{"*.txt", []string{"a.txt", "b.txt"}},
	{"/home/Guest/*.md", []string{"/home/Guest/c.md"}},
	{"*.go", []string{"*.go"}},
	{`'*'.txt`, []string{"*.txt"}},
	{`"*.txt"`, []string{"*.txt"}},
}

func TestExpand(t *testing.T) {
	ex := testExpander(t)
	for _, test := range expandTests {
		got := expand(t, ex, test.src)
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("expand %q (-want +got):\n%s", test.src, diff)
		}
	}
}

func TestExpandVarThenGlob(t *testing.T) {
	ex := testExpander(t)
	env := map[string]string{"PAT": "*.txt"}
	ex.Getenv = func(name string) string { return env[name] }
	got := expand(t, ex, "$PAT")
	if diff := cmp.Diff([]string{"a.txt", "b.txt"}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestStrictGlob(t *testing.T) {
	ex := testExpander(t)
	ex.StrictGlob = true
	line, _ := parse.Parse("*.go")
	_, err := ex.Stage(line.Pipelines[0].Stages[0].Words)
	if oserr.KindOf(err) != oserr.NotFound {
		t.Errorf("strict glob with no matches: got %v", err)
	}
}

func TestOne(t *testing.T) {
	ex := testExpander(t)
	line, _ := parse.Parse("x out.txt")
	target, err := ex.One(line.Pipelines[0].Stages[0].Words[1])
	if err != nil || target != "out.txt" {
		t.Errorf("One -> (%q, %v)", target, err)
	}
	line, _ = parse.Parse("x {a,b}.txt")
	if _, err := ex.One(line.Pipelines[0].Stages[0].Words[1]); err == nil {
		t.Errorf("multi-field redirect target did not fail")
	}
}

func TestNoCmdSubstHook(t *testing.T) {
	ex := testExpander(t)
	ex.CmdSubst = nil
	line, _ := parse.Parse("$(whoami)")
	if _, err := ex.Stage(line.Pipelines[0].Stages[0].Words); err == nil {
		t.Errorf("command substitution without a hook did not fail")
	}
}

func TestExpandBraces(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"plain", []string{"plain"}},
		{"{a,b}", []string{"a", "b"}},
		{"{a,}", []string{"a", ""}},
		{"{1..3}", []string{"1", "2", "3"}},
		{"{-1..1}", []string{"-1", "0", "1"}},
		{"{c..a}", []string{"c", "b", "a"}},
		{"{a..5}", []string{"{a..5}"}},
		{"{a..}", []string{"{a..}"}},
		{"pre{x,y}post", []string{"prexpost", "preypost"}},
		{"{a,b{1,2}}", []string{"a", "b1", "b2"}},
		{"{}", []string{"{}"}},
		{"unbalanced{a,b", []string{"unbalanced{a,b"}},
	}
	for _, test := range tests {
		if diff := cmp.Diff(test.want, expandBraces(test.in)); diff != "" {
			t.Errorf("expandBraces(%q) (-want +got):\n%s", test.in, diff)
		}
	}
}
