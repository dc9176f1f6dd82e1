package web

// Websocket message types pushed to the dashboard
const (
	MessageTypeStatus   = "status"
	MessageTypeProgress = "progress"
	MessageTypeRun      = "run"
)

// Message is the envelope for all websocket pushes
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// StatusMessage mirrors the controller snapshot
type StatusMessage struct {
	State          string `json:"state"`
	Progress       int    `json:"progress"`
	RemainingMs    int64  `json:"remainingMs"`
	Error          string `json:"error,omitempty"`
	HotkeyOccupied bool   `json:"hotkeyOccupied"`
}

// ProgressMessage carries a single emission progress update
type ProgressMessage struct {
	Percent int `json:"percent"`
}

// RunMessage announces a newly recorded run
type RunMessage struct {
	ID        int64  `json:"id"`
	Outcome   string `json:"outcome"`
	CharCount int    `json:"charCount"`
	Timestamp string `json:"timestamp"`
}
