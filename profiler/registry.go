package profiler

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// Registry maps goroutines to their States. A State is created the first time
// a goroutine asks for one and lives until the goroutine calls Release.
type Registry struct {
	states sync.Map // goroutine id -> *State
	opts   []Option
}

// NewRegistry creates a registry whose States are built with opts.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{opts: opts}
}

// DefaultRegistry backs the package-level Enter, Do, Reset, Current and Release.
var DefaultRegistry = NewRegistry()

// State returns the calling goroutine's State, creating it on first use.
func (r *Registry) State() *State {
	gid := goroutineID()
	if st, ok := r.states.Load(gid); ok {
		return st.(*State)
	}
	st := NewState(r.opts...)
	st.owner = gid
	r.states.Store(gid, st)
	return st
}

// Lookup returns the calling goroutine's State without creating one.
func (r *Registry) Lookup() (*State, bool) {
	st, ok := r.states.Load(goroutineID())
	if !ok {
		return nil, false
	}
	return st.(*State), true
}

// Release detaches the calling goroutine's State from the registry and returns
// it, or nil if the goroutine never profiled anything. Goroutines that profile
// should release before exiting.
func (r *Registry) Release() *State {
	st, ok := r.states.LoadAndDelete(goroutineID())
	if !ok {
		return nil
	}
	return st.(*State)
}

// Len returns the number of goroutines with a live State.
func (r *Registry) Len() int {
	n := 0
	r.states.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Enter opens a scope in the calling goroutine's default State.
func Enter(name string) (Guard, error) {
	return DefaultRegistry.State().Enter(name)
}

// Do measures fn as a scope in the calling goroutine's default State.
func Do(name string, fn func() error) error {
	return DefaultRegistry.State().Do(name, fn)
}

// Reset clears the calling goroutine's default State. Other goroutines are not affected.
func Reset() error {
	st, ok := DefaultRegistry.Lookup()
	if !ok {
		return nil
	}
	return st.Reset()
}

// Current returns the calling goroutine's default State, creating it if needed.
func Current() *State {
	return DefaultRegistry.State()
}

// Release detaches the calling goroutine's default State.
func Release() *State {
	return DefaultRegistry.Release()
}

// goroutineID extracts the current goroutine ID from the runtime.Stack header
// "goroutine 123 [running]:".
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]

	const prefix = "goroutine "
	if !bytes.HasPrefix(b, []byte(prefix)) {
		return 0
	}
	b = b[len(prefix):]
	end := bytes.IndexByte(b, ' ')
	if end < 0 {
		return 0
	}
	gid, err := strconv.ParseUint(string(b[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return gid
}
