// Package progress reports compute_signal_column iteration progress with an
// mpb bar. The reporter wraps the signal's output channel: it never alters
// cancellation or error semantics, only decorates the stream with a bar
// increment per element.
package progress

import (
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"dataset-engine/internal/signal"
)

// Reporter owns one mpb progress container for a single compute_signal_column
// call.
type Reporter struct {
	container *mpb.Progress
	bar       *mpb.Bar
}

// NewReporter starts a bar titled name tracking total elements.
func NewReporter(name string, total int64) *Reporter {
	p := mpb.New(mpb.WithWidth(80))
	bar := p.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name+": "),
			decor.Percentage(decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO), "done"),
		),
	)
	return &Reporter{container: p, bar: bar}
}

// Wrap returns a channel that forwards every signal.ComputeOutput from in,
// incrementing the bar once per forwarded element, and closes when in
// closes. The caller still owns cancellation: Wrap only observes the
// stream, it never stops early.
func (r *Reporter) Wrap(in <-chan signal.ComputeOutput) <-chan signal.ComputeOutput {
	out := make(chan signal.ComputeOutput)
	go func() {
		defer close(out)
		defer r.container.Wait()
		for o := range in {
			r.bar.Increment()
			out <- o
		}
	}()
	return out
}
