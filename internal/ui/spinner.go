package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

var frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner shows a message with an animated frame while a run is in progress.
// On a non-terminal writer it prints the message once instead.
type Spinner struct {
	w       io.Writer
	animate bool
	message string
	active  bool
	mu      sync.Mutex
	done    chan struct{}
	stopped chan struct{}
}

// NewSpinner creates a spinner writing to w. animate should be false when w
// is not a terminal or colour output is disabled.
func NewSpinner(w io.Writer, message string, animate bool) *Spinner {
	return &Spinner{
		w:       w,
		animate: animate,
		message: message,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins spinning.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true

	if !s.animate {
		fmt.Fprintf(s.w, "%s...\n", s.message)
		close(s.stopped)
		return
	}

	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		i := 0
		for {
			select {
			case <-s.done:
				fmt.Fprint(s.w, "\r\033[K")
				return
			case <-ticker.C:
				s.mu.Lock()
				fmt.Fprintf(s.w, "\r\033[K%s %s", frames[i], s.message)
				s.mu.Unlock()
				i = (i + 1) % len(frames)
			}
		}
	}()
}

// Stop halts the spinner and prints finalMessage when it is not empty.
func (s *Spinner) Stop(finalMessage string) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.mu.Unlock()

	close(s.done)
	<-s.stopped

	if finalMessage != "" {
		fmt.Fprintln(s.w, finalMessage)
	}
}

// Update changes the message while the spinner runs.
func (s *Spinner) Update(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Track runs fn while refreshing the spinner message from status every
// interval. The spinner is stopped before Track returns.
func Track(s *Spinner, interval time.Duration, status func() string, fn func() error) error {
	s.Start()
	stop := make(chan struct{})
	var wg sync.WaitGroup
	if s.animate && status != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-stop:
					return
				case <-ticker.C:
					s.Update(status())
				}
			}
		}()
	}

	err := fn()
	close(stop)
	wg.Wait()
	s.Stop("")
	return err
}
