package session

import (
	"errors"
	"sync"
	"time"

	"markestedt/keydrip/platform"
)

var (
	ErrEmptyText  = errors.New("no text to type")
	ErrNoTarget   = errors.New("no foreground window")
	ErrSelfTarget = errors.New("foreground window is the tool itself")
	ErrNotPaused  = errors.New("session is not paused")
)

// Controller owns the typing state machine: Idle, Countdown, Typing,
// Paused. Commands may arrive on any goroutine (web handlers, tray
// menu, hotkey callback). The start and resume countdowns run on
// controller-owned tickers, never on the worker goroutine, and are
// stopped whenever the state that owns them is left. At most one
// worker is live at a time; starting a new session cancels the prior
// one first.
type Controller struct {
	typer    platform.Typer
	fallback platform.Typer
	fg       platform.Foreground
	notifier Notifier

	mu            sync.Mutex
	cfg           Config
	state         State
	worker        *worker
	progress      int
	remaining     time.Duration
	target        string
	lastErr       string
	countdownStop chan struct{}
	resumeStop    chan struct{}
}

// New creates a controller. The fallback typer may be nil; it is tried
// whenever the primary injector faults on a literal write.
func New(typer, fallback platform.Typer, fg platform.Foreground, n Notifier) *Controller {
	return &Controller{
		typer:    typer,
		fallback: fallback,
		fg:       fg,
		notifier: n,
		state:    StateIdle,
	}
}

// Start begins a new session, going through the start-delay countdown
// when one is configured. A live session is cancelled first.
func (c *Controller) Start(cfg Config) error {
	return c.start(cfg, false)
}

// StartImmediate begins a new session skipping the countdown. Used by
// the hotkey trigger.
func (c *Controller) StartImmediate(cfg Config) error {
	return c.start(cfg, true)
}

func (c *Controller) start(cfg Config, skipCountdown bool) error {
	c.mu.Lock()

	if cfg.Text == "" {
		c.mu.Unlock()
		return ErrEmptyText
	}

	canceled := c.cancelLocked()
	cfg.normalize()
	c.cfg = cfg
	c.progress = 0
	c.lastErr = ""

	if !skipCountdown && cfg.StartDelay > 0 {
		c.state = StateCountdown
		c.remaining = cfg.StartDelay
		stop := make(chan struct{})
		c.countdownStop = stop
		go c.runCountdown(stop)
		c.mu.Unlock()
		if canceled {
			c.notifier.Stopped()
		}
		return nil
	}

	err := c.beginTypingLocked()
	c.mu.Unlock()
	if canceled {
		c.notifier.Stopped()
	}
	if err != nil {
		c.notifier.Error(err.Error())
	}
	return err
}

// Pause suspends typing. While already paused it cancels a pending
// resume countdown instead.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateTyping:
		if c.worker == nil {
			return
		}
		c.stopResumeLocked()
		c.worker.requestPause()
		c.state = StatePaused
	case StatePaused:
		c.stopResumeLocked()
	}
}

// Resume continues a paused session, optionally after a resume-delay
// countdown. Resuming retargets the session to whatever window is
// focused when the countdown fires; it fails, leaving the session
// Paused, when no window is focused or the focused window is the tool
// itself.
func (c *Controller) Resume(delay time.Duration, fromHotkey bool) error {
	c.mu.Lock()

	if c.state != StatePaused || c.worker == nil {
		c.mu.Unlock()
		return ErrNotPaused
	}

	if fromHotkey || delay <= 0 {
		err := c.resumeNowLocked()
		c.mu.Unlock()
		if err != nil {
			c.notifier.Error(err.Error())
		}
		return err
	}

	c.stopResumeLocked()
	c.remaining = delay
	stop := make(chan struct{})
	c.resumeStop = stop
	go c.runResumeCountdown(stop)
	c.mu.Unlock()
	return nil
}

// Stop cancels whatever is in flight and returns the controller to
// Idle. A no-op when already Idle.
func (c *Controller) Stop() {
	c.mu.Lock()
	canceled := c.cancelLocked()
	c.mu.Unlock()
	if canceled {
		c.notifier.Stopped()
	}
}

// State returns the current lifecycle state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a point-in-time view for status queries
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		State:     c.state,
		Progress:  c.progress,
		Target:    c.target,
		LastError: c.lastErr,
	}
	if c.state == StateCountdown || c.resumeStop != nil {
		s.Remaining = c.remaining
	}
	return s
}

// cancelLocked signals the live worker to stop and discards the
// handle. The worker goroutine drains on its own; its terminal event
// is swallowed as stale. Reports whether anything was actually
// cancelled.
func (c *Controller) cancelLocked() bool {
	c.stopCountdownLocked()
	c.stopResumeLocked()

	canceled := false
	if c.worker != nil {
		c.worker.requestStop()
		c.worker = nil
		canceled = true
	}
	if c.state != StateIdle {
		c.state = StateIdle
		canceled = true
	}
	return canceled
}

func (c *Controller) stopCountdownLocked() {
	if c.countdownStop != nil {
		close(c.countdownStop)
		c.countdownStop = nil
	}
}

func (c *Controller) stopResumeLocked() {
	if c.resumeStop != nil {
		close(c.resumeStop)
		c.resumeStop = nil
	}
}

// beginTypingLocked captures the foreground target and launches the
// worker. The target must be non-empty and must not be the control
// surface itself.
func (c *Controller) beginTypingLocked() error {
	title, err := c.fg.ActiveWindowTitle()
	if err != nil || title == "" {
		c.state = StateIdle
		c.lastErr = ErrNoTarget.Error()
		return ErrNoTarget
	}
	if title == c.cfg.SelfTitle {
		c.state = StateIdle
		c.lastErr = ErrSelfTarget.Error()
		return ErrSelfTarget
	}

	w := newWorker(c.cfg, c.typer, c.fallback, c.fg)
	w.setTarget(title)
	c.worker = w
	c.target = title
	c.state = StateTyping

	go w.run()
	go c.consume(w)
	return nil
}

// runCountdown ticks down the start delay and launches the worker when
// it reaches zero
func (c *Controller) runCountdown(stop chan struct{}) {
	t := time.NewTicker(countdownTick)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C:
			c.mu.Lock()
			if c.state != StateCountdown {
				c.mu.Unlock()
				return
			}
			c.remaining -= countdownTick
			if c.remaining > 0 {
				c.mu.Unlock()
				continue
			}
			c.countdownStop = nil
			err := c.beginTypingLocked()
			c.mu.Unlock()
			if err != nil {
				c.notifier.Error(err.Error())
			}
			return
		}
	}
}

// runResumeCountdown ticks down the resume delay and revalidates focus
// when it fires. On failure the session stays Paused.
func (c *Controller) runResumeCountdown(stop chan struct{}) {
	t := time.NewTicker(countdownTick)
	defer t.Stop()

	for {
		select {
		case <-stop:
			return
		case <-t.C:
			c.mu.Lock()
			if c.state != StatePaused || c.worker == nil {
				c.resumeStop = nil
				c.mu.Unlock()
				return
			}
			c.remaining -= countdownTick
			if c.remaining > 0 {
				c.mu.Unlock()
				continue
			}
			c.resumeStop = nil
			err := c.resumeNowLocked()
			c.mu.Unlock()
			if err != nil {
				c.notifier.Error(err.Error())
			}
			return
		}
	}
}

// resumeNowLocked validates the foreground window and unpauses the
// worker, retargeting it to the window focused now
func (c *Controller) resumeNowLocked() error {
	title, err := c.fg.ActiveWindowTitle()
	if err != nil || title == "" {
		c.lastErr = ErrNoTarget.Error()
		return ErrNoTarget
	}
	if title == c.cfg.SelfTitle {
		c.lastErr = ErrSelfTarget.Error()
		return ErrSelfTarget
	}

	c.worker.setTarget(title)
	c.worker.resume()
	c.target = title
	c.state = StateTyping
	c.lastErr = ""
	return nil
}

// consume forwards worker events to the notifier, updating controller
// state for the worker it launched. Events from a discarded worker are
// swallowed.
func (c *Controller) consume(w *worker) {
	for ev := range w.events {
		switch ev.kind {
		case eventProgress:
			c.mu.Lock()
			live := c.worker == w
			if live {
				c.progress = ev.percent
			}
			c.mu.Unlock()
			if live {
				c.notifier.Progress(ev.percent)
			}

		case eventFocusPaused:
			c.mu.Lock()
			live := c.worker == w
			if live && c.state == StateTyping {
				c.stopResumeLocked()
				c.state = StatePaused
			}
			c.mu.Unlock()
			if live {
				c.notifier.FocusPaused()
			}

		case eventFinished:
			if c.retire(w, "") {
				c.notifier.Finished()
			}

		case eventStopped:
			if c.retire(w, "") {
				c.notifier.Stopped()
			}

		case eventError:
			if c.retire(w, ev.err) {
				c.notifier.Error(ev.err)
			}
		}
	}
}

// retire returns the controller to Idle if w is still the live worker
func (c *Controller) retire(w *worker, errMsg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.worker != w {
		return false
	}
	c.stopResumeLocked()
	c.worker = nil
	c.state = StateIdle
	c.lastErr = errMsg
	return true
}
