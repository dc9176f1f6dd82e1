package web

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"markestedt/keydrip/config"
	"markestedt/keydrip/storage"
)

//go:embed static/*
var staticFiles embed.FS

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Local-only server
	},
}

// Status is the controller view reported to the dashboard
type Status struct {
	State          string `json:"state"`
	Progress       int    `json:"progress"`
	RemainingMs    int64  `json:"remainingMs"`
	LastError      string `json:"lastError,omitempty"`
	Hotkey         string `json:"hotkey"`
	HotkeyOccupied bool   `json:"hotkeyOccupied"`
}

// Commander is the command channel from the web surface into the
// typing controller
type Commander interface {
	StartTyping(text string) error
	PauseTyping()
	ResumeTyping() error
	StopTyping()
	// StageText remembers the dashboard's current text so the global
	// hotkey can start it without a round trip to the browser.
	StageText(text string)
	Status() Status
	// SetHotkey validates and rebinds the global hotkey, returning the
	// canonical combo. On a validation error the prior binding is
	// retained.
	SetHotkey(combo string) (string, error)
	// ConfigSnapshot returns a copy of the current configuration.
	ConfigSnapshot() config.Config
	// UpdateConfig applies fn to a copy of the current configuration,
	// persists it and publishes the copy. Published configurations are
	// never mutated in place.
	UpdateConfig(fn func(*config.Config)) error
}

// Server represents the web server
type Server struct {
	db        *storage.DB
	commander Commander
	port      int
	hub       *Hub
}

// NewServer creates a new web server
func NewServer(db *storage.DB, commander Commander, port int) *Server {
	hub := NewHub()
	go hub.Run()

	return &Server{
		db:        db,
		commander: commander,
		port:      port,
		hub:       hub,
	}
}

// Start starts the web server
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/session/", s.handleSession)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/history/", s.handleHistory)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/ws", s.handleWebSocket)

	// Static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("failed to load static files: %w", err)
	}
	mux.Handle("/", http.FileServer(http.FS(staticFS)))

	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	slog.Info("Starting web server", "port", s.port, "url", fmt.Sprintf("http://localhost:%d", s.port))

	return http.ListenAndServe(addr, mux)
}

// BroadcastStatus pushes a controller status change to all clients
func (s *Server) BroadcastStatus(st Status) {
	s.hub.BroadcastMessage(Message{
		Type: MessageTypeStatus,
		Data: StatusMessage{
			State:          st.State,
			Progress:       st.Progress,
			RemainingMs:    st.RemainingMs,
			Error:          st.LastError,
			HotkeyOccupied: st.HotkeyOccupied,
		},
	})
}

// BroadcastProgress pushes an emission progress update to all clients
func (s *Server) BroadcastProgress(percent int) {
	s.hub.BroadcastMessage(Message{
		Type: MessageTypeProgress,
		Data: ProgressMessage{Percent: percent},
	})
}

// BroadcastRun pushes a newly recorded run to all clients
func (s *Server) BroadcastRun(r *storage.Run) {
	s.hub.BroadcastMessage(Message{
		Type: MessageTypeRun,
		Data: RunMessage{
			ID:        r.ID,
			Outcome:   r.Outcome,
			CharCount: r.CharCount,
			Timestamp: r.Timestamp.Format("2006-01-02T15:04:05Z"),
		},
	})
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	client.hub.register <- client

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}
