package session

import (
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"markestedt/keydrip/platform"
)

type eventKind int

const (
	eventProgress eventKind = iota
	eventFocusPaused
	eventFinished
	eventStopped
	eventError
)

// event flows from the worker goroutine back to the controller
type event struct {
	kind    eventKind
	percent int
	err     string
}

// worker emits one text block into the focused window on its own
// goroutine. The controller signals it exclusively through the stop and
// pause flags, which the worker observes at the top of every emission
// unit and on every pause poll tick.
type worker struct {
	text      []rune
	baseDelay time.Duration
	jitter    bool
	jitterMin time.Duration
	jitterMax time.Duration

	typer    platform.Typer
	fallback platform.Typer
	fg       platform.Foreground

	stop  atomic.Bool
	pause atomic.Bool

	mu     sync.Mutex
	target string

	events chan event
}

func newWorker(cfg Config, typer, fallback platform.Typer, fg platform.Foreground) *worker {
	return &worker{
		text:      []rune(cfg.Text),
		baseDelay: cfg.BaseDelay,
		jitter:    cfg.Jitter,
		jitterMin: cfg.JitterMin,
		jitterMax: cfg.JitterMax,
		typer:     typer,
		fallback:  fallback,
		fg:        fg,
		events:    make(chan event, 64),
	}
}

// setTarget updates the window title keystrokes are expected to land in.
// Called at session start and again at every resume.
func (w *worker) setTarget(title string) {
	w.mu.Lock()
	w.target = title
	w.mu.Unlock()
}

func (w *worker) requestStop()  { w.stop.Store(true) }
func (w *worker) requestPause() { w.pause.Store(true) }
func (w *worker) resume()       { w.pause.Store(false) }

// run is the emission loop. It closes the events channel when done.
func (w *worker) run() {
	defer close(w.events)

	length := len(w.text)
	if length == 0 {
		w.events <- event{kind: eventFinished}
		return
	}

	fastMode := w.baseDelay == 0 && !w.jitter

	i := 0
	for i < length {
		if w.stop.Load() {
			w.events <- event{kind: eventStopped}
			return
		}

		w.checkFocus()

		for w.pause.Load() && !w.stop.Load() {
			time.Sleep(pausePoll)
		}

		if w.stop.Load() {
			w.events <- event{kind: eventStopped}
			return
		}

		if fastMode && isFastRune(w.text[i]) {
			start := i
			for i < length && i-start < maxBatch && isFastRune(w.text[i]) {
				i++
			}
			if err := w.write(string(w.text[start:i])); err != nil {
				w.events <- event{kind: eventError, err: err.Error()}
				return
			}
		} else {
			if err := w.typeRune(w.text[i]); err != nil {
				w.events <- event{kind: eventError, err: err.Error()}
				return
			}
			i++
		}

		w.events <- event{kind: eventProgress, percent: i * 100 / length}

		if !fastMode {
			if delay := w.unitDelay(); delay > 0 {
				time.Sleep(delay)
			}
		}
	}

	w.events <- event{kind: eventFinished}
}

// unitDelay returns the pause inserted after one emission unit on the
// paced path. Jitter is sampled uniformly from the configured range.
func (w *worker) unitDelay() time.Duration {
	delay := w.baseDelay
	if w.jitter {
		delay += w.jitterMin + time.Duration(rand.Int63n(int64(w.jitterMax-w.jitterMin)+1))
	}
	return delay
}

// checkFocus compares the current foreground title to the target and
// self-pauses on a mismatch. The current character is not consumed; it
// is retried after resume.
func (w *worker) checkFocus() {
	w.mu.Lock()
	target := w.target
	w.mu.Unlock()

	if target == "" || w.stop.Load() || w.pause.Load() {
		return
	}

	title, err := w.fg.ActiveWindowTitle()
	if err != nil {
		return
	}

	if title == "" || title != target {
		w.pause.Store(true)
		w.events <- event{kind: eventFocusPaused}
	}
}

// isFastRune reports whether a rune may be batched on the fast path.
// Newline and tab need dedicated key presses and never batch.
func isFastRune(r rune) bool {
	if r == '\n' || r == '\t' {
		return false
	}
	return r >= 32
}

// write emits a literal string, falling back to the secondary injector
// when the primary faults
func (w *worker) write(text string) error {
	if err := w.typer.TypeText(text); err != nil {
		if w.fallback == nil {
			return fmt.Errorf("text injection failed: %w", err)
		}
		if err := w.fallback.TypeText(text); err != nil {
			return fmt.Errorf("text injection failed: %w", err)
		}
	}
	return nil
}

// typeRune emits a single character on the paced path
func (w *worker) typeRune(r rune) error {
	switch r {
	case '\n':
		if err := w.typer.PressKey("enter"); err != nil {
			return w.write("\n")
		}
		return nil
	case '\t':
		if err := w.typer.PressKey("tab"); err != nil {
			return w.write("\t")
		}
		return nil
	}

	if r < 32 {
		// Only two control characters have a key equivalent; the rest
		// are dropped.
		switch r {
		case 8:
			return w.typer.PressKey("backspace")
		case 27:
			return w.typer.PressKey("esc")
		}
		return nil
	}

	return w.write(string(r))
}
