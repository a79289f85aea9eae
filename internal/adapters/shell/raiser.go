package shell

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// Raiser re-raises a signal against mk itself so that the parent sees the
// conventional exit status.
type Raiser struct{}

// Raise restores the default disposition of sig and sends it to this process.
func (Raiser) Raise(sig os.Signal) {
	s, ok := sig.(syscall.Signal)
	if !ok {
		return
	}
	signal.Reset(sig)
	_ = unix.Kill(os.Getpid(), s)
}
