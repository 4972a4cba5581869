package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner is a transient status line that ends in a success or failure mark.
type Spinner struct {
	out   io.Writer
	color text.Color

	mutex   sync.Mutex
	message string
	width   int

	done    chan struct{}
	cleared chan struct{}
	once    sync.Once
}

func StartSpinner(out io.Writer, color text.Color, message string) *Spinner {
	s := &Spinner{
		out:     out,
		color:   color,
		message: message,
		done:    make(chan struct{}),
		cleared: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Spinner) run() {
	i := 0
	for {
		select {
		case <-s.done:
			s.mutex.Lock()
			fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", s.width))
			s.mutex.Unlock()
			close(s.cleared)
			return
		case <-time.After(80 * time.Millisecond):
			s.mutex.Lock()
			line := fmt.Sprintf("%s %s", s.color.Sprint(frames[i%len(frames)]), s.message)
			if len(line) < s.width {
				line += strings.Repeat(" ", s.width-len(line))
			}
			s.width = len(line)
			fmt.Fprintf(s.out, "\r%s", line)
			s.mutex.Unlock()
			i++
		}
	}
}

func (s *Spinner) stop(mark string, message string) {
	s.once.Do(func() {
		close(s.done)
		<-s.cleared
		fmt.Fprintf(s.out, "%s %s\n", mark, message)
	})
}

func (s *Spinner) Succeed(message string) {
	s.stop(text.FgGreen.Sprint("✔"), message)
}

func (s *Spinner) Fail(message string) {
	s.stop(text.FgRed.Sprint("✖"), message)
}
