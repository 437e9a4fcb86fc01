package progress

import (
	"io"
	"sync/atomic"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/vbauerster/mpb/v5"
	"github.com/vbauerster/mpb/v5/decor"
)

const (
	barWidth           = 40
	nameColumnWidth    = 30
	counterColumnWidth = 16
	counterFormat      = "%d commits"
)

// BarRenderer draws one spinner line per task with mpb.
type BarRenderer struct {
	progress *mpb.Progress
}

// NewBarRenderer returns a renderer drawing on out.
func NewBarRenderer(out io.Writer) *BarRenderer {
	return &BarRenderer{progress: mpb.New(mpb.WithWidth(barWidth), mpb.WithOutput(out))}
}

// Add implements Renderer. Lines are ordered by index, not by registration.
func (r *BarRenderer) Add(index int, name string) Handle {
	h := &barHandle{}
	h.status.Store("waiting")

	statusDecorator := decor.Any(func(decor.Statistics) string {
		status, _ := h.status.Load().(string)

		return status
	})

	h.bar = r.progress.AddSpinner(-1, mpb.SpinnerOnLeft,
		mpb.BarPriority(index),
		mpb.BarFillerClearOnComplete(),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: nameColumnWidth, C: decor.DidentRight}),
			decor.CurrentNoUnit(counterFormat, decor.WC{W: counterColumnWidth}),
		),
		mpb.AppendDecorators(decor.OnComplete(statusDecorator, text.FgGreen.Sprint("done"))),
	)

	return h
}

// Wait implements Renderer.
func (r *BarRenderer) Wait() {
	r.progress.Wait()
}

type barHandle struct {
	bar     *mpb.Bar
	status  atomic.Value
	current atomic.Int64
}

func (h *barHandle) Increment(n int) {
	h.current.Add(int64(n))
	h.bar.IncrBy(n)
}

func (h *barHandle) SetStatus(status string) {
	h.status.Store(status)
}

func (h *barHandle) Done() {
	h.bar.SetTotal(h.current.Load(), true)
}

func (h *barHandle) Abort(err error) {
	h.status.Store(text.FgRed.Sprint("failed: " + err.Error()))
	h.bar.Abort(false)
}
