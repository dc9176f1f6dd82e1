package session

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeTyper records emissions in order. Text writes and key presses
// share one op list so tests can assert their interleaving.
type fakeTyper struct {
	mu       sync.Mutex
	ops      []string
	failText bool
}

func (f *fakeTyper) TypeText(text string) error {
	if f.failText {
		return errors.New("injector fault")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "text:"+text)
	return nil
}

func (f *fakeTyper) PressKey(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "key:"+name)
	return nil
}

func (f *fakeTyper) opList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

// typed reconstructs the emitted text, mapping the key presses that
// stand in for characters back to their runes.
func (f *fakeTyper) typed() string {
	var b strings.Builder
	for _, op := range f.opList() {
		switch {
		case strings.HasPrefix(op, "text:"):
			b.WriteString(strings.TrimPrefix(op, "text:"))
		case op == "key:enter":
			b.WriteByte('\n')
		case op == "key:tab":
			b.WriteByte('\t')
		}
	}
	return b.String()
}

type fakeForeground struct {
	mu    sync.Mutex
	title string
	err   error
}

func (f *fakeForeground) ActiveWindowTitle() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.title, f.err
}

func (f *fakeForeground) set(title string) {
	f.mu.Lock()
	f.title = title
	f.mu.Unlock()
}

// recordingNotifier captures controller notifications. Terminal
// outcomes, errors and focus pauses land on buffered channels so
// tests can wait on them.
type recordingNotifier struct {
	mu       sync.Mutex
	progress []int
	outcomes chan string
	errs     chan string
	focus    chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		outcomes: make(chan string, 16),
		errs:     make(chan string, 16),
		focus:    make(chan struct{}, 16),
	}
}

func (n *recordingNotifier) Progress(percent int) {
	n.mu.Lock()
	n.progress = append(n.progress, percent)
	n.mu.Unlock()
}

func (n *recordingNotifier) Finished()        { n.outcomes <- "finished" }
func (n *recordingNotifier) Stopped()         { n.outcomes <- "stopped" }
func (n *recordingNotifier) Error(msg string) { n.errs <- msg }
func (n *recordingNotifier) FocusPaused()     { n.focus <- struct{}{} }

func (n *recordingNotifier) progressList() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int(nil), n.progress...)
}

func waitOutcome(t *testing.T, n *recordingNotifier, want string) {
	t.Helper()
	select {
	case got := <-n.outcomes:
		if got != want {
			t.Fatalf("outcome = %q, want %q", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %q outcome", want)
	}
}

func waitError(t *testing.T, n *recordingNotifier) string {
	t.Helper()
	select {
	case msg := <-n.errs:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for error notification")
		return ""
	}
}

func waitFocusPause(t *testing.T, n *recordingNotifier) {
	t.Helper()
	select {
	case <-n.focus:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for focus pause")
	}
}

func waitProgressAtLeast(t *testing.T, n *recordingNotifier, min int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		p := n.progressList()
		if len(p) > 0 && p[len(p)-1] >= min {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("progress never reached %d", min)
}
