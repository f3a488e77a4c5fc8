package ui

import (
	"fmt"
	"io"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner is a lightweight line spinner for commands that wait on the
// chain, such as a transaction confirmation.
type Spinner struct {
	out   io.Writer
	msg   string
	every time.Duration
	stop  chan struct{}
	done  chan struct{}
}

// NewSpinnerTo creates a spinner that draws on out. Commands pass stderr so
// stdout stays clean for piped output.
func NewSpinnerTo(out io.Writer, msg string) *Spinner {
	return &Spinner{
		out:   out,
		msg:   msg,
		every: 80 * time.Millisecond,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start begins the animation in a goroutine.
func (s *Spinner) Start() {
	go func() {
		defer close(s.done)
		t := time.NewTicker(s.every)
		defer t.Stop()
		for i := 0; ; i++ {
			frame := StyleChain.Render(spinnerFrames[i%len(spinnerFrames)])
			fmt.Fprintf(s.out, "\r%s  %s", frame, s.msg)
			select {
			case <-s.stop:
				fmt.Fprintf(s.out, "\r%-60s\r", "")
				return
			case <-t.C:
			}
		}
	}()
}

// Stop halts the spinner and waits for the line to be cleared.
func (s *Spinner) Stop() {
	close(s.stop)
	<-s.done
}

// StopWithMsg halts the spinner and prints a final message.
func (s *Spinner) StopWithMsg(msg string) {
	s.Stop()
	fmt.Fprintln(s.out, msg)
}
