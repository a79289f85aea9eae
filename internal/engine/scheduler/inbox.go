package scheduler

import (
	"os"
	"os/signal"
	"syscall"
)

// InterruptSignals stop a run.
var InterruptSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGHUP,
	syscall.SIGQUIT,
	syscall.SIGTERM,
}

func isInterrupt(sig os.Signal) bool {
	for _, s := range InterruptSignals {
		if s == sig {
			return true
		}
	}
	return false
}

// Inbox holds signals until the scheduler loop gets to them. Handlers never
// act on a signal directly; the loop drains the inbox once per iteration.
type Inbox struct {
	ch chan os.Signal
}

// NewInbox creates an empty Inbox.
func NewInbox() *Inbox {
	return &Inbox{ch: make(chan os.Signal, 16)}
}

// Listen routes the interrupt signals and SIGCONT to the inbox until the
// returned function is called.
func (i *Inbox) Listen() (stop func()) {
	signal.Notify(i.ch, append(InterruptSignals, syscall.SIGCONT)...)
	return func() { signal.Stop(i.ch) }
}

// Deliver posts sig as if it had been received. A full inbox drops it.
func (i *Inbox) Deliver(sig os.Signal) {
	select {
	case i.ch <- sig:
	default:
	}
}

// C returns the channel the loop waits on.
func (i *Inbox) C() <-chan os.Signal {
	if i == nil {
		return nil
	}
	return i.ch
}

// drain returns every signal posted so far without blocking.
func (i *Inbox) drain() []os.Signal {
	if i == nil {
		return nil
	}
	var out []os.Signal
	for {
		select {
		case sig := <-i.ch:
			out = append(out, sig)
		default:
			return out
		}
	}
}
