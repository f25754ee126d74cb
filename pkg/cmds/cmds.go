// Package cmds implements the built-in command set. Every command is
// declared as a builder in the manifest below and constructed lazily the
// first time it is invoked.
package cmds

import "src.oopis.sh/pkg/eval"

var builders = map[string]func() *eval.Command{
	// Filesystem.
	"cd":     cdCmd,
	"pwd":    pwdCmd,
	"ls":     lsCmd,
	"mkdir":  mkdirCmd,
	"rmdir":  rmdirCmd,
	"rm":     rmCmd,
	"cp":     cpCmd,
	"mv":     mvCmd,
	"rename": renameCmd,
	"touch":  touchCmd,
	"sync":   syncCmd,

	// Text utilities.
	"cat":    catCmd,
	"nl":     nlCmd,
	"cut":    cutCmd,
	"sed":    sedCmd,
	"uniq":   uniqCmd,
	"grep":   grepCmd,
	"diff":   diffCmd,
	"csplit": csplitCmd,
	"echo":   echoCmd,
	"wc":     wcCmd,

	// Environment, aliases, history.
	"history": historyCmd,
	"alias":   aliasCmd,
	"unalias": unaliasCmd,
	"unset":   unsetCmd,
	"set":     setCmd,
	"export":  exportCmd,
	"env":     envCmd,

	// Users, groups and sessions.
	"whoami":    whoamiCmd,
	"groups":    groupsCmd,
	"listusers": listusersCmd,
	"useradd":   useraddCmd,
	"userdel":   userdelCmd,
	"passwd":    passwdCmd,
	"groupadd":  groupaddCmd,
	"usermod":   usermodCmd,
	"su":        suCmd,
	"login":     loginCmd,
	"logout":    logoutCmd,
	"exit":      exitCmd,

	// Permissions and policy.
	"chmod":  chmodCmd,
	"chown":  chownCmd,
	"chgrp":  chgrpCmd,
	"sudo":   sudoCmd,
	"visudo": visudoCmd,

	// Jobs.
	"jobs":  jobsCmd,
	"bg":    bgCmd,
	"fg":    fgCmd,
	"kill":  killCmd,
	"ps":    psCmd,
	"delay": delayCmd,

	// System state.
	"backup":    backupCmd,
	"restore":   restoreCmd,
	"reset":     resetCmd,
	"savestate": savestateCmd,
	"loadstate": loadstateCmd,
	"run":       runCmd,
	"man":       manCmd,
	"help":      helpCmd,
}

// RegisterAll declares a lazy loader for every built-in command.
func RegisterAll(r *eval.Registry) {
	for name, build := range builders {
		r.RegisterLoader(name, build)
	}
}
