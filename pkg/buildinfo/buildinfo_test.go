package buildinfo

import (
	"io"
	"os"
	"runtime"
	"strings"
	"testing"

	"src.oopis.sh/pkg/must"
	"src.oopis.sh/pkg/prog"
)

func capture(args ...string) (int, string) {
	r, w := must.OK2(os.Pipe())
	devNull := must.OK1(os.Open(os.DevNull))
	defer devNull.Close()
	exit := prog.Run([3]*os.File{devNull, w, w}, append([]string{"oopis"}, args...), Program)
	w.Close()
	return exit, string(must.OK1(io.ReadAll(r)))
}

func TestVersion(t *testing.T) {
	exit, out := capture("-version")
	if exit != 0 || out != Version+VersionSuffix+"\n" {
		t.Errorf("got (%d, %q)", exit, out)
	}
}

func TestBuildInfo(t *testing.T) {
	exit, out := capture("-buildinfo")
	if exit != 0 {
		t.Errorf("exit = %d", exit)
	}
	if !strings.Contains(out, Version) || !strings.Contains(out, runtime.Version()) {
		t.Errorf("out = %q", out)
	}
}

func TestBuildInfoJSON(t *testing.T) {
	_, out := capture("-buildinfo", "-json")
	want := `{"version":` + must.ToJSON(Version+VersionSuffix) +
		`,"goversion":` + must.ToJSON(runtime.Version()) + "}\n"
	if out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestNotSuitable(t *testing.T) {
	err := Program.Run([3]*os.File{nil, nil, nil}, &prog.Flags{}, nil)
	if err != prog.ErrNotSuitable {
		t.Errorf("err = %v", err)
	}
}
