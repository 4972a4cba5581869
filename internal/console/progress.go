package console

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
)

// ProgressBar renders a single byte-counting tracker.
type ProgressBar struct {
	writer  progress.Writer
	tracker *progress.Tracker
	name    string
}

func StartProgressBar(out io.Writer, message string, total int64) *ProgressBar {
	pw := progress.NewWriter()
	pw.SetOutputWriter(out)
	pw.SetAutoStop(true)
	pw.SetTrackerLength(30)
	pw.SetUpdateFrequency(time.Millisecond * 100)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Colors = progress.StyleColorsExample
	pw.Style().Visibility.ETA = true
	pw.Style().Visibility.Speed = true
	// the percentage is part of the message, go-pretty would round it up
	pw.Style().Visibility.Percentage = false
	pw.Style().Visibility.Value = false

	tracker := &progress.Tracker{
		Message: fmt.Sprintf("%s %d%%", message, 0),
		Total:   total,
		Units:   progress.UnitsBytes,
	}
	pw.AppendTracker(tracker)
	go pw.Render()

	bar := &ProgressBar{writer: pw, tracker: tracker, name: message}
	bar.waitRender(true)
	return bar
}

// Update sets the number of bytes received so far and the percentage shown
// next to the name. total may change when the size of the stream is only known
// once it started.
func (b *ProgressBar) Update(received, total int64, percent int) {
	if total > 0 && total != b.tracker.Total {
		b.tracker.UpdateTotal(total)
	}
	b.tracker.UpdateMessage(fmt.Sprintf("%s %d%%", b.name, percent))
	b.tracker.SetValue(received)
}

func (b *ProgressBar) waitRender(running bool) {
	deadline := time.Now().Add(time.Second * 2)
	for b.writer.IsRenderInProgress() != running && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond * 10)
	}
}

// the writer stops by itself once the tracker is marked done or errored
func (b *ProgressBar) finish() {
	b.waitRender(false)
}

func (b *ProgressBar) Done() {
	b.tracker.MarkAsDone()
	b.finish()
}

func (b *ProgressBar) Fail() {
	b.tracker.MarkAsErrored()
	b.finish()
}
