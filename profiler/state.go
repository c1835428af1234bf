package profiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// PathSeparator joins scope names into paths. Scope names may not contain it.
const PathSeparator = "/"

// State is one goroutine's scope tree together with its stack of open scopes.
// A State must only be used by the goroutine that owns it.
type State struct {
	root  *Node
	stack []*Node
	gen   uint64
	clock Clock

	owner      uint64
	checkOwner bool
}

// Option configures a State.
type Option func(*State)

// WithClock replaces the monotonic wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(s *State) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithOwnerCheck makes Enter, End and Reset fail with ErrForeignGoroutine when
// called from a goroutine other than the one that created the State.
// The check parses runtime.Stack on every call and is meant for debugging.
func WithOwnerCheck() Option {
	return func(s *State) {
		s.checkOwner = true
	}
}

// NewState creates an empty State owned by the calling goroutine.
func NewState(opts ...Option) *State {
	s := &State{
		root:  newNode(""),
		stack: make([]*Node, 0, 16),
		clock: MonotonicClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.checkOwner {
		s.owner = goroutineID()
	}
	return s
}

// Root returns the sentinel root node. Its children are the root-level scopes.
func (s *State) Root() *Node { return s.root }

// Generation counts how many times the State has been reset.
func (s *State) Generation() uint64 { return s.gen }

// Depth returns the number of scopes currently open.
func (s *State) Depth() int { return len(s.stack) }

// Enter opens the scope name below the innermost open scope and starts measuring it.
// Names must be non-empty UTF-8 without control characters or PathSeparator.
// Entering the innermost open scope's own name again is treated as recursion and
// reuses that node. The returned Guard must be ended on every exit path, usually
// with defer.
func (s *State) Enter(name string) (Guard, error) {
	if err := validateName(name); err != nil {
		return Guard{}, err
	}
	if err := s.ownedByCaller(); err != nil {
		return Guard{}, err
	}

	parent := s.root
	if n := len(s.stack); n > 0 {
		parent = s.stack[n-1]
	}
	node := parent
	if parent == s.root || parent.name != name {
		node = parent.child(name)
	}

	node.active++
	s.stack = append(s.stack, node)
	return Guard{
		state: s,
		node:  node,
		slot:  len(s.stack) - 1,
		gen:   s.gen,
		start: s.clock.Now(),
	}, nil
}

// Do measures fn as the scope name. The scope is closed even when fn returns an
// error or panics.
func (s *State) Do(name string, fn func() error) (err error) {
	g, err := s.Enter(name)
	if err != nil {
		return err
	}
	defer func() {
		if endErr := g.End(); endErr != nil && err == nil {
			err = endErr
		}
	}()
	return fn()
}

// Reset discards the whole tree. Guards still open from before the reset end
// without recording anything.
func (s *State) Reset() error {
	if err := s.ownedByCaller(); err != nil {
		return err
	}
	s.root = newNode("")
	clear(s.stack)
	s.stack = s.stack[:0]
	s.gen++
	return nil
}

func (s *State) ownedByCaller() error {
	if !s.checkOwner {
		return nil
	}
	if gid := goroutineID(); gid != s.owner {
		return fmt.Errorf("%w: owner %d, caller %d", ErrForeignGoroutine, s.owner, gid)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidName, name)
	}
	if strings.Contains(name, PathSeparator) {
		return fmt.Errorf("%w: %q contains the path separator %q", ErrInvalidName, name, PathSeparator)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains control characters", ErrInvalidName, name)
		}
	}
	return nil
}
