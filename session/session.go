package session

import "time"

// State is the typing-session lifecycle state
type State int

const (
	StateIdle State = iota
	StateCountdown
	StateTyping
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCountdown:
		return "countdown"
	case StateTyping:
		return "typing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

const (
	// countdownTick is the step of the start and resume countdowns
	countdownTick = 100 * time.Millisecond

	// pausePoll is how often a paused worker checks for resume or stop
	pausePoll = 50 * time.Millisecond

	// maxBatch is the longest run of plain characters the fast path
	// emits as a single write
	maxBatch = 40
)

// Config describes one typing run
type Config struct {
	Text       string
	BaseDelay  time.Duration
	Jitter     bool
	JitterMin  time.Duration
	JitterMax  time.Duration
	StartDelay time.Duration

	// SelfTitle is the control surface's own window title; typing into
	// a window with this title is refused
	SelfTitle string
}

// normalize swaps inverted jitter bounds so JitterMin <= JitterMax
func (c *Config) normalize() {
	if c.JitterMax < c.JitterMin {
		c.JitterMin, c.JitterMax = c.JitterMax, c.JitterMin
	}
}

// Notifier receives the controller's asynchronous notifications.
// Methods are called from controller-owned goroutines with no
// controller lock held, so implementations may query Snapshot.
type Notifier interface {
	Progress(percent int)
	Finished()
	Stopped()
	Error(msg string)
	FocusPaused()
}

// Snapshot is a point-in-time view of the controller for status queries
type Snapshot struct {
	State     State         `json:"state"`
	Progress  int           `json:"progress"`
	Remaining time.Duration `json:"remaining"`
	Target    string        `json:"target,omitempty"`
	LastError string        `json:"lastError,omitempty"`
}
