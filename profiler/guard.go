package profiler

import (
	"fmt"
	"time"
)

// Guard is the handle of one open scope invocation. It refers to, but does not
// own, the node it measures.
type Guard struct {
	state *State
	node  *Node
	slot  int
	gen   uint64
	start time.Time
	done  bool
}

// End stops the measurement, records the elapsed time and closes the scope.
// Ending a guard twice, or a zero Guard, does nothing. A guard that is not the
// innermost open scope fails with ErrUnbalanced and leaves the state unchanged.
func (g *Guard) End() error {
	if g.state == nil || g.done {
		return nil
	}
	s := g.state
	if err := s.ownedByCaller(); err != nil {
		return err
	}
	if g.gen != s.gen {
		// the tree this guard belonged to was reset
		g.done = true
		return nil
	}
	if g.slot != len(s.stack)-1 || s.stack[g.slot] != g.node {
		return fmt.Errorf("%w: %q at depth %d, %d scopes open", ErrUnbalanced, g.node.name, g.slot+1, len(s.stack))
	}

	d := elapsed(g.start, s.clock.Now())
	g.node.stats.Update(d)
	s.stack[g.slot] = nil
	s.stack = s.stack[:g.slot]
	g.node.active--
	g.done = true
	return nil
}

// Name returns the measured scope name, or "" for a zero Guard.
func (g *Guard) Name() string {
	if g.node == nil {
		return ""
	}
	return g.node.name
}
