//go:build !windows

package shell

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// notifyInterrupts returns a channel delivering SIGINT and SIGTERM, and a
// function undoing the registration.
func notifyInterrupts() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGINT, unix.SIGTERM)
	return ch, func() { signal.Stop(ch) }
}
