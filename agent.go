package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"markestedt/keydrip/config"
	"markestedt/keydrip/platform"
	"markestedt/keydrip/session"
	"markestedt/keydrip/storage"
	"markestedt/keydrip/systray"
	"markestedt/keydrip/textproc"
	"markestedt/keydrip/web"
)

// Agent wires the typing controller to the global hotkey, the web
// dashboard, the tray menu and run storage. It implements
// session.Notifier for controller events and web.Commander for
// dashboard commands.
type Agent struct {
	controller *session.Controller
	hotkey     platform.Hotkey
	db         *storage.DB
	server     *web.Server
	tray       *systray.Manager
	pipeline   *textproc.Pipeline

	mu           sync.Mutex
	cfg          *config.Config
	staged       string
	occupied     bool
	runActive    bool
	runStart     time.Time
	runCfg       session.Config
	lastProgress int
}

// NewAgent creates a new agent instance
func NewAgent(cfg *config.Config) (*Agent, error) {
	configDir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open run storage: %w", err)
	}

	a := &Agent{
		cfg:      cfg,
		db:       db,
		hotkey:   platform.NewHotkey(),
		pipeline: textproc.NewPipeline(textproc.StripBOM, textproc.NormalizeNewlines),
	}

	a.controller = session.New(
		platform.NewTyper(),
		platform.NewFallbackTyper(),
		platform.NewForeground(),
		a,
	)
	a.server = web.NewServer(db, a, cfg.Web.Port)
	a.tray = systray.NewManager(cfg.Web.Port, nil, a)

	return a, nil
}

// Tray exposes the systray manager; systray.Run has to block the main
// goroutine.
func (a *Agent) Tray() *systray.Manager {
	return a.tray
}

// Run starts the hotkey listener and web server and processes hotkey
// triggers until ctx is cancelled
func (a *Agent) Run(ctx context.Context) error {
	events, err := a.hotkey.Start(ctx)
	if err != nil {
		return fmt.Errorf("failed to start hotkey listener: %w", err)
	}

	combo := a.currentConfig().Hotkey.Combo
	if err := a.applyHotkey(combo); err != nil {
		slog.Warn("Failed to bind configured hotkey", "combo", combo, "error", err)
	}

	if a.currentConfig().Web.Enabled {
		go func() {
			if err := a.server.Start(); err != nil {
				slog.Error("Web server error", "error", err)
			}
		}()
	}

	slog.Info("keydrip started", "hotkey", combo, "port", a.currentConfig().Web.Port)

	for {
		select {
		case <-ctx.Done():
			a.controller.Stop()
			a.db.Close()
			return nil

		case <-events:
			a.onHotkey()
		}
	}
}

// onHotkey dispatches the global hotkey: resume when paused, cancel
// when typing or counting down, otherwise start the staged text
// immediately (no countdown)
func (a *Agent) onHotkey() {
	switch a.controller.State() {
	case session.StatePaused:
		if err := a.controller.Resume(0, true); err != nil {
			slog.Warn("Resume from hotkey failed", "error", err)
		} else {
			slog.Info("Typing resumed from hotkey")
		}

	case session.StateTyping, session.StateCountdown:
		a.controller.Stop()

	default:
		a.mu.Lock()
		text := a.staged
		a.mu.Unlock()
		if text == "" {
			slog.Warn("Hotkey pressed with no text staged")
			return
		}
		cfg := a.sessionConfig(text)
		a.beginRun(cfg)
		if err := a.controller.StartImmediate(cfg); err != nil {
			a.abandonRun()
			slog.Warn("Start from hotkey failed", "error", err)
		}
	}
	a.broadcastStatus()
}

// ----- web.Commander -----

// StageText remembers the dashboard's current text so the hotkey can
// start it from anywhere
func (a *Agent) StageText(text string) {
	a.mu.Lock()
	a.staged = text
	a.mu.Unlock()
}

// StartTyping begins a session for the given text, cancelling any live
// one first
func (a *Agent) StartTyping(text string) error {
	processed, err := a.pipeline.Process(context.Background(), text)
	if err == nil {
		text = processed
	}
	a.StageText(text)

	// Stop the prior session first so its run is recorded against its
	// own config and timings.
	if a.controller.State() != session.StateIdle {
		a.controller.Stop()
	}

	cfg := a.sessionConfig(text)
	a.beginRun(cfg)
	if err := a.controller.Start(cfg); err != nil {
		a.abandonRun()
		return err
	}
	a.broadcastStatus()
	return nil
}

// PauseTyping suspends the current session
func (a *Agent) PauseTyping() {
	a.controller.Pause()
	a.broadcastStatus()
}

// ResumeTyping continues a paused session after the configured resume
// delay
func (a *Agent) ResumeTyping() error {
	delay := time.Duration(a.currentConfig().Typing.StartDelayMs) * time.Millisecond
	err := a.controller.Resume(delay, false)
	a.broadcastStatus()
	return err
}

// StopTyping cancels the current session
func (a *Agent) StopTyping() {
	a.controller.Stop()
	a.broadcastStatus()
}

// Status reports the controller and hotkey state for the dashboard
func (a *Agent) Status() web.Status {
	snap := a.controller.Snapshot()

	a.mu.Lock()
	combo := a.cfg.Hotkey.Combo
	occupied := a.occupied
	a.mu.Unlock()

	return web.Status{
		State:          snap.State.String(),
		Progress:       snap.Progress,
		RemainingMs:    snap.Remaining.Milliseconds(),
		LastError:      snap.LastError,
		Hotkey:         combo,
		HotkeyOccupied: occupied,
	}
}

// SetHotkey validates a committed combo, rebinds it and persists the
// canonical form. Validation failure keeps the prior binding; a
// registration conflict keeps the combo but flags it occupied.
func (a *Agent) SetHotkey(raw string) (string, error) {
	canonical, err := config.ValidateCombo(raw)
	if err != nil {
		return "", err
	}

	if err := a.applyHotkey(canonical); err != nil {
		slog.Warn("Hotkey registration failed", "combo", canonical, "error", err)
	}

	err = a.UpdateConfig(func(cfg *config.Config) {
		cfg.Hotkey.Combo = canonical
	})
	if err != nil {
		slog.Error("Failed to save config", "error", err)
	}

	return canonical, nil
}

// ConfigSnapshot returns a copy of the current configuration
func (a *Agent) ConfigSnapshot() config.Config {
	return *a.currentConfig()
}

// UpdateConfig applies fn to a copy of the current configuration,
// persists the copy and publishes it. Configurations are swapped
// whole, never mutated in place, so snapshot holders are safe.
func (a *Agent) UpdateConfig(fn func(*config.Config)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := *a.cfg
	fn(&next)
	a.cfg = &next
	return next.Save()
}

// applyHotkey rebinds the global hotkey and tracks the occupied flag
func (a *Agent) applyHotkey(combo string) error {
	kc, err := config.ParseHotkey(combo)
	if err != nil {
		return err
	}

	vk, err := platform.VKCode(kc.Key)
	if err != nil {
		return err
	}

	bindErr := a.hotkey.Rebind(platform.KeyCombo{
		Ctrl:  kc.Ctrl,
		Shift: kc.Shift,
		Alt:   kc.Alt,
		Win:   kc.Win,
		Key:   vk,
	})

	a.mu.Lock()
	a.occupied = bindErr != nil
	a.mu.Unlock()

	return bindErr
}

// ----- session.Notifier -----

// Progress forwards emission progress to the dashboard
func (a *Agent) Progress(percent int) {
	a.mu.Lock()
	a.lastProgress = percent
	a.mu.Unlock()
	a.server.BroadcastProgress(percent)
}

// Finished records a completed run
func (a *Agent) Finished() {
	slog.Info("Typing finished")
	a.recordRun(storage.OutcomeFinished, "")
	a.broadcastStatus()
}

// Stopped records a cancelled run
func (a *Agent) Stopped() {
	slog.Info("Typing stopped")
	a.recordRun(storage.OutcomeStopped, "")
	a.broadcastStatus()
}

// Error surfaces a session error. Only terminal errors end a run;
// a refused resume leaves the session paused and is status-only.
func (a *Agent) Error(msg string) {
	slog.Error("Typing session error", "error", msg)
	if a.controller.State() == session.StateIdle {
		a.recordRun(storage.OutcomeError, msg)
	}
	a.broadcastStatus()
}

// FocusPaused surfaces the automatic pause on focus loss
func (a *Agent) FocusPaused() {
	slog.Info("Target window lost focus, typing paused")
	a.broadcastStatus()
}

// ----- run bookkeeping -----

func (a *Agent) beginRun(cfg session.Config) {
	a.mu.Lock()
	a.runActive = true
	a.runStart = time.Now()
	a.runCfg = cfg
	a.lastProgress = 0
	a.mu.Unlock()
}

func (a *Agent) abandonRun() {
	a.mu.Lock()
	a.runActive = false
	a.mu.Unlock()
}

func (a *Agent) recordRun(outcome, errMsg string) {
	target := a.controller.Snapshot().Target

	a.mu.Lock()
	if !a.runActive {
		a.mu.Unlock()
		return
	}
	a.runActive = false
	run := &storage.Run{
		Timestamp:    time.Now(),
		Outcome:      outcome,
		ErrorMessage: errMsg,
		CharCount:    len([]rune(a.runCfg.Text)),
		FinalPercent: a.lastProgress,
		DurationMs:   time.Since(a.runStart).Milliseconds(),
		BaseDelayMs:  a.runCfg.BaseDelay.Milliseconds(),
		Jitter:       a.runCfg.Jitter,
		JitterMinMs:  a.runCfg.JitterMin.Milliseconds(),
		JitterMaxMs:  a.runCfg.JitterMax.Milliseconds(),
		TargetTitle:  target,
	}
	a.mu.Unlock()

	if err := a.db.SaveRun(run); err != nil {
		slog.Error("Failed to save run", "error", err)
		return
	}
	a.server.BroadcastRun(run)
}

func (a *Agent) broadcastStatus() {
	a.server.BroadcastStatus(a.Status())
}

// currentConfig returns the published configuration. Published configs
// are never mutated (UpdateConfig swaps in a fresh copy), so the
// returned pointer may be read without holding the lock.
func (a *Agent) currentConfig() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg
}

func (a *Agent) sessionConfig(text string) session.Config {
	a.mu.Lock()
	defer a.mu.Unlock()

	t := a.cfg.Typing
	return session.Config{
		Text:       text,
		BaseDelay:  time.Duration(t.BaseDelayMs) * time.Millisecond,
		Jitter:     t.Jitter,
		JitterMin:  time.Duration(t.JitterMinMs) * time.Millisecond,
		JitterMax:  time.Duration(t.JitterMaxMs) * time.Millisecond,
		StartDelay: time.Duration(t.StartDelayMs) * time.Millisecond,
		SelfTitle:  a.cfg.App.WindowTitle,
	}
}
