package progress

import (
	"log/slog"
	"sync"
)

// LogRenderer reports status changes through a logger instead of drawing.
type LogRenderer struct {
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewLogRenderer returns a renderer logging to logger. A nil logger discards.
func NewLogRenderer(logger *slog.Logger) *LogRenderer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &LogRenderer{logger: logger}
}

// Add implements Renderer.
func (r *LogRenderer) Add(index int, name string) Handle {
	r.wg.Add(1)

	return &logHandle{
		logger: r.logger.With("project", name, "index", index),
		wg:     &r.wg,
	}
}

// Wait implements Renderer.
func (r *LogRenderer) Wait() {
	r.wg.Wait()
}

type logHandle struct {
	logger   *slog.Logger
	wg       *sync.WaitGroup
	commits  int
	finished sync.Once
}

func (h *logHandle) Increment(n int) {
	h.commits += n
}

func (h *logHandle) SetStatus(status string) {
	h.logger.Info(status)
}

func (h *logHandle) Done() {
	h.finished.Do(func() {
		h.logger.Info("done", "commits", h.commits)
		h.wg.Done()
	})
}

func (h *logHandle) Abort(err error) {
	h.finished.Do(func() {
		h.logger.Warn("failed", "commits", h.commits, "error", err)
		h.wg.Done()
	})
}

// Discard returns a handle that reports nothing.
func Discard() Handle {
	return discard{}
}

type discard struct{}

func (discard) Increment(int)    {}
func (discard) SetStatus(string) {}
func (discard) Done()            {}
func (discard) Abort(error)      {}
