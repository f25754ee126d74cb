// Oopis is a self-contained simulated operating system: a persistent
// filesystem, a multi-user permission model and a shell with pipelines and
// job control, all hosted inside a single state file. It is suitable for
// both interactive use and scripting.
package main

import (
	"os"

	"src.oopis.sh/pkg/buildinfo"
	"src.oopis.sh/pkg/daemon"
	"src.oopis.sh/pkg/prog"
	"src.oopis.sh/pkg/shell"
)

func main() {
	os.Exit(prog.Run(
		[3]*os.File{os.Stdin, os.Stdout, os.Stderr}, os.Args,
		prog.Composite(
			buildinfo.Program, daemon.Program{}, shell.Program{})))
}
