package ui

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestSpinnerPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	s := NewSpinner(&buf, "Importing", false)
	s.Start()
	s.Start()
	s.Stop("done")
	s.Stop("again")

	if got := buf.String(); got != "Importing...\ndone\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestSpinnerAnimates(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(&buf, "Importing", true)
	s.Start()
	time.Sleep(250 * time.Millisecond)
	s.Update("Still importing")
	time.Sleep(150 * time.Millisecond)
	s.Stop("")

	out := buf.String()
	if !strings.Contains(out, "Importing") || !strings.Contains(out, "Still importing") {
		t.Errorf("expected both messages in output, got %q", out)
	}
	if !strings.HasSuffix(out, "\r\033[K") {
		t.Errorf("expected the line to be cleared on stop, got %q", out)
	}
}

func TestTrackReturnsError(t *testing.T) {
	var buf bytes.Buffer
	want := errors.New("boom")
	calls := 0
	err := Track(NewSpinner(&buf, "Working", false), time.Millisecond, func() string { return "x" }, func() error {
		calls++
		return want
	})
	if !errors.Is(err, want) || calls != 1 {
		t.Errorf("expected fn to run once and its error returned, got %v after %d calls", err, calls)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
