package daemon

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
)

// StopFlag is a one-way stop request. Raising it has no other effect; the
// dispatcher observes it between iterations.
type StopFlag struct {
	raised atomic.Bool
	once   sync.Once
	done   chan struct{}
}

// NewStopFlag returns a lowered flag.
func NewStopFlag() *StopFlag {
	return &StopFlag{done: make(chan struct{})}
}

// Raise sets the flag. It is safe to call from any goroutine, repeatedly.
func (f *StopFlag) Raise() {
	f.raised.Store(true)
	f.once.Do(func() { close(f.done) })
}

// Raised reports whether the flag is set.
func (f *StopFlag) Raised() bool {
	return f.raised.Load()
}

// Done is closed once the flag is raised.
func (f *StopFlag) Done() <-chan struct{} {
	return f.done
}

// RaiseOnSignal raises f when any of sigs arrives. The returned function
// stops listening.
func (f *StopFlag) RaiseOnSignal(sigs ...os.Signal) (cancel func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)
	quit := make(chan struct{})

	go func() {
		select {
		case <-ch:
			f.Raise()
		case <-quit:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(quit)
		})
	}
}
