package systray

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"

	"github.com/getlantern/systray"
)

// Controls are the session commands reachable from the tray menu
type Controls interface {
	PauseTyping()
	ResumeTyping() error
	StopTyping()
}

// Manager manages the system tray icon and menu
type Manager struct {
	webPort  int
	iconData []byte
	controls Controls
	quit     chan struct{}
}

// NewManager creates a new systray manager
func NewManager(webPort int, iconData []byte, controls Controls) *Manager {
	return &Manager{
		webPort:  webPort,
		iconData: iconData,
		controls: controls,
		quit:     make(chan struct{}),
	}
}

// Run starts the system tray (blocking call)
func (m *Manager) Run() {
	systray.Run(m.onReady, m.onExit)
}

// Stop stops the system tray
func (m *Manager) Stop() {
	systray.Quit()
}

// WaitForQuit returns a channel that will be closed when user clicks Quit
func (m *Manager) WaitForQuit() <-chan struct{} {
	return m.quit
}

// onReady is called when the systray is ready
func (m *Manager) onReady() {
	if len(m.iconData) > 0 {
		systray.SetIcon(m.iconData)
	}

	systray.SetTitle("keydrip")
	systray.SetTooltip("keydrip - Paced Keystroke Replay")

	mPause := systray.AddMenuItem("Pause", "Pause the current typing session")
	mResume := systray.AddMenuItem("Resume", "Resume a paused typing session")
	mStop := systray.AddMenuItem("Stop", "Cancel the current typing session")
	systray.AddSeparator()
	mOpenWebUI := systray.AddMenuItem("Open Dashboard", "Open the keydrip dashboard")
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Exit keydrip")

	go func() {
		for {
			select {
			case <-mPause.ClickedCh:
				m.controls.PauseTyping()
			case <-mResume.ClickedCh:
				if err := m.controls.ResumeTyping(); err != nil {
					slog.Warn("Resume from tray failed", "error", err)
				}
			case <-mStop.ClickedCh:
				m.controls.StopTyping()
			case <-mOpenWebUI.ClickedCh:
				m.openWebUI()
			case <-mQuit.ClickedCh:
				slog.Info("User requested quit from system tray")
				close(m.quit)
				systray.Quit()
				return
			}
		}
	}()
}

// onExit is called when the systray is exiting
func (m *Manager) onExit() {
	slog.Info("System tray exited")
}

// openWebUI opens the dashboard in the default browser
func (m *Manager) openWebUI() {
	url := fmt.Sprintf("http://localhost:%d", m.webPort)
	slog.Info("Opening dashboard", "url", url)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	default:
		slog.Error("Unsupported platform for opening browser", "platform", runtime.GOOS)
		return
	}

	if err := cmd.Start(); err != nil {
		slog.Error("Failed to open dashboard", "error", err)
	}
}
