// Package buildinfo contains build information.
//
// Build information should be set during compilation by passing
// -ldflags "-X src.oopis.sh/pkg/buildinfo.Var=value" to "go build".
package buildinfo

import (
	"fmt"
	"os"
	"runtime"

	"src.oopis.sh/pkg/must"
	"src.oopis.sh/pkg/prog"
)

// Version identifies the version of OopisOS. On development commits, it
// identifies the next release.
const Version = "v1.0.0"

// VersionSuffix is appended to Version in the output of "oopis -version" and
// "oopis -buildinfo" to build the full version string. This can be overridden
// when building.
var VersionSuffix = "-dev.unknown"

// Program is the buildinfo subprogram.
var Program prog.Program = program{}

type program struct{}

func (program) Run(fds [3]*os.File, f *prog.Flags, _ []string) error {
	if !f.Version && !f.BuildInfo {
		return prog.ErrNotSuitable
	}
	fullVersion := Version + VersionSuffix
	if f.Version {
		fmt.Fprintln(fds[1], fullVersion)
		return nil
	}
	if f.JSON {
		fmt.Fprintf(fds[1],
			`{"version":%s,"goversion":%s}`+"\n",
			must.ToJSON(fullVersion), must.ToJSON(runtime.Version()))
	} else {
		fmt.Fprintln(fds[1], "Version:", fullVersion)
		fmt.Fprintln(fds[1], "Go version:", runtime.Version())
	}
	return nil
}
