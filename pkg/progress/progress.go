// Package progress reports the advancement of concurrent repository tasks.
// A single coordinator goroutine owns the output; tasks obtain their handle
// by registering with it.
package progress

import (
	"context"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// Handle is the per-task progress sink. Implementations are safe for use by
// the one goroutine that registered them.
type Handle interface {
	// Increment advances the commit counter by n.
	Increment(n int)
	// SetStatus replaces the status line.
	SetStatus(status string)
	// Done marks the task as successfully finished.
	Done()
	// Abort marks the task as failed.
	Abort(err error)
}

// Renderer turns registrations into handles and flushes the output once all
// of them have finished.
type Renderer interface {
	// Add creates the handle of task index named name.
	Add(index int, name string) Handle
	// Wait blocks until every handle is done or aborted.
	Wait()
}

type registration struct {
	index int
	name  string
	reply chan Handle
}

// Coordinator hands out exactly the expected number of handles, then waits
// for the renderer to drain.
type Coordinator struct {
	renderer Renderer
	expected int
	register chan registration
	done     chan struct{}
}

// NewCoordinator returns a coordinator expecting the given number of
// registrations.
func NewCoordinator(renderer Renderer, expected int) *Coordinator {
	return &Coordinator{
		renderer: renderer,
		expected: expected,
		register: make(chan registration),
		done:     make(chan struct{}),
	}
}

// Start runs the coordinator loop until all expected handles are registered
// or ctx is cancelled, then waits for the renderer.
func (c *Coordinator) Start(ctx context.Context) {
	go func() {
		defer close(c.done)

		for range c.expected {
			select {
			case reg := <-c.register:
				reg.reply <- c.renderer.Add(reg.index, reg.name)
			case <-ctx.Done():
				c.renderer.Wait()

				return
			}
		}

		c.renderer.Wait()
	}()
}

// Register obtains the handle of task index. After ctx is cancelled it may
// return a handle that reports nothing.
func (c *Coordinator) Register(ctx context.Context, index int, name string) Handle {
	reply := make(chan Handle, 1)

	select {
	case c.register <- registration{index: index, name: name, reply: reply}:
		return <-reply
	case <-ctx.Done():
		return Discard()
	case <-c.done:
		return Discard()
	}
}

// Wait blocks until the coordinator loop has finished.
func (c *Coordinator) Wait() {
	<-c.done
}

// Options selects a renderer.
type Options struct {
	// Quiet disables interactive bars; status changes are still logged.
	Quiet bool
	// Output is where bars are drawn. Nil means os.Stderr.
	Output io.Writer
	// Logger receives status changes when bars are not drawn.
	Logger *slog.Logger
}

// NewRenderer draws bars when the output is a terminal and Quiet is unset,
// and logs otherwise.
func NewRenderer(opts Options) Renderer {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	if !opts.Quiet && isTerminal(out) {
		return NewBarRenderer(out)
	}

	return NewLogRenderer(opts.Logger)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}
