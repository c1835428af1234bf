package profiler

import "context"

type ctxKey struct{}

// WithState attaches a State to ctx so that call chains running on the owning
// goroutine can profile without the registry lookup.
func WithState(ctx context.Context, st *State) context.Context {
	return context.WithValue(ctx, ctxKey{}, st)
}

// FromContext returns the State stored in ctx, falling back to the calling
// goroutine's default State.
func FromContext(ctx context.Context) *State {
	if ctx != nil {
		if st, ok := ctx.Value(ctxKey{}).(*State); ok && st != nil {
			return st
		}
	}
	return Current()
}
