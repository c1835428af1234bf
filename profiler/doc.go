// Package profiler measures nested, named code regions across repeated
// invocations and aggregates them into a call tree per goroutine.
//
// # Usage
//
// Every goroutine owns an independent State. The package-level functions find
// it through DefaultRegistry, creating it on first use:
//
//	for frame := 0; frame < n; frame++ {
//		g, _ := profiler.Enter("frame")
//		update()
//		render()
//		g.End()
//	}
//
// Inside a function, defer ends the scope on every return path:
//
//	func render() {
//		g, _ := profiler.Enter("render")
//		defer g.End()
//		...
//	}
//
// Do wraps a region and also closes it when the region fails or panics:
//
//	err := profiler.Do("physics", stepPhysics)
//
// # Tree
//
// A scope entered while another is open becomes its child. Repeated entries of
// the same name under the same parent merge into one Node whose Stats hold
// count, total, last, min, max, mean and standard deviation. Children keep the
// order in which they were first entered.
//
// # Goroutines
//
// Nodes are not synchronized. Only the owning goroutine may enter, end, reset or
// walk a State; reporting elsewhere goes through a snapshot taken on the owner.
// Goroutines that profile should call Release before they exit.
package profiler
