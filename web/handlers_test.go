package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"markestedt/keydrip/config"
	"markestedt/keydrip/storage"
)

// fakeCommander records commands arriving from the web surface
type fakeCommander struct {
	mu      sync.Mutex
	cfg     config.Config
	started []string
	staged  []string
	paused  int
	resumed int
	stopped int
	hotkeys []string

	startErr  error
	resumeErr error
	hotkeyErr error
	saveErr   error
	status    Status
}

func (f *fakeCommander) StartTyping(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.started = append(f.started, text)
	return nil
}

func (f *fakeCommander) PauseTyping() {
	f.mu.Lock()
	f.paused++
	f.mu.Unlock()
}

func (f *fakeCommander) ResumeTyping() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resumeErr != nil {
		return f.resumeErr
	}
	f.resumed++
	return nil
}

func (f *fakeCommander) StopTyping() {
	f.mu.Lock()
	f.stopped++
	f.mu.Unlock()
}

func (f *fakeCommander) StageText(text string) {
	f.mu.Lock()
	f.staged = append(f.staged, text)
	f.mu.Unlock()
}

func (f *fakeCommander) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeCommander) SetHotkey(combo string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hotkeyErr != nil {
		return "", f.hotkeyErr
	}
	canonical := strings.ToLower(combo)
	f.hotkeys = append(f.hotkeys, canonical)
	f.cfg.Hotkey.Combo = canonical
	return canonical, nil
}

func (f *fakeCommander) ConfigSnapshot() config.Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg
}

func (f *fakeCommander) UpdateConfig(fn func(*config.Config)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	next := f.cfg
	fn(&next)
	f.cfg = next
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App:    config.AppConfig{WindowTitle: "keydrip"},
		Typing: config.TypingConfig{JitterMinMs: 5, JitterMaxMs: 10, StartDelayMs: 3000},
		Hotkey: config.HotkeyConfig{Combo: "ctrl+shift+t"},
		Web:    config.WebConfig{Enabled: true, Port: 8765},
	}
}

func newTestServer(t *testing.T, cmd *fakeCommander) *Server {
	t.Helper()
	cmd.cfg = *testConfig()
	db, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewServer(db, cmd, 0)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func TestHandleSessionStart(t *testing.T) {
	cmd := &fakeCommander{}
	s := newTestServer(t, cmd)

	rr := postJSON(t, s.handleSession, "/api/session/start", `{"text":"hello world"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if len(cmd.started) != 1 || cmd.started[0] != "hello world" {
		t.Errorf("started = %v, want [hello world]", cmd.started)
	}
}

func TestHandleSessionStartConflict(t *testing.T) {
	cmd := &fakeCommander{startErr: errors.New("no foreground window")}
	s := newTestServer(t, cmd)

	rr := postJSON(t, s.handleSession, "/api/session/start", `{"text":"hello"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"] != "no foreground window" {
		t.Errorf("error = %q", resp["error"])
	}
}

func TestHandleSessionStage(t *testing.T) {
	cmd := &fakeCommander{}
	s := newTestServer(t, cmd)

	rr := postJSON(t, s.handleSession, "/api/session/stage", `{"text":"draft"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if len(cmd.staged) != 1 || cmd.staged[0] != "draft" {
		t.Errorf("staged = %v, want [draft]", cmd.staged)
	}
	if len(cmd.started) != 0 {
		t.Errorf("staging must not start a session, started = %v", cmd.started)
	}
}

func TestHandleSessionControls(t *testing.T) {
	cmd := &fakeCommander{}
	s := newTestServer(t, cmd)

	for _, action := range []string{"pause", "resume", "stop"} {
		rr := postJSON(t, s.handleSession, "/api/session/"+action, "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d, want 200", action, rr.Code)
		}
	}
	if cmd.paused != 1 || cmd.resumed != 1 || cmd.stopped != 1 {
		t.Errorf("commands = %d/%d/%d, want 1/1/1", cmd.paused, cmd.resumed, cmd.stopped)
	}
}

func TestHandleSessionResumeConflict(t *testing.T) {
	cmd := &fakeCommander{resumeErr: errors.New("session is not paused")}
	s := newTestServer(t, cmd)

	rr := postJSON(t, s.handleSession, "/api/session/resume", "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rr.Code)
	}
}

func TestHandleSessionRejects(t *testing.T) {
	cmd := &fakeCommander{}
	s := newTestServer(t, cmd)

	t.Run("unknown action", func(t *testing.T) {
		rr := postJSON(t, s.handleSession, "/api/session/launch", "")
		if rr.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rr.Code)
		}
	})

	t.Run("bad body", func(t *testing.T) {
		rr := postJSON(t, s.handleSession, "/api/session/start", "{not json")
		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/session/start", nil)
		rr := httptest.NewRecorder()
		s.handleSession(rr, req)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rr.Code)
		}
	})
}

func TestHandleStatus(t *testing.T) {
	cmd := &fakeCommander{status: Status{
		State:    "typing",
		Progress: 42,
		Hotkey:   "ctrl+shift+t",
	}}
	s := newTestServer(t, cmd)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rr := httptest.NewRecorder()
	s.handleStatus(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var got Status
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.State != "typing" || got.Progress != 42 || got.Hotkey != "ctrl+shift+t" {
		t.Errorf("status = %+v", got)
	}
}

func TestHandleGetConfig(t *testing.T) {
	s := newTestServer(t, &fakeCommander{})

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	rr := httptest.NewRecorder()
	s.handleConfig(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var got map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["hotkey"] != "ctrl+shift+t" {
		t.Errorf("hotkey = %v", got["hotkey"])
	}
	if got["startDelayMs"] != float64(3000) {
		t.Errorf("startDelayMs = %v, want 3000", got["startDelayMs"])
	}
}

func TestHandlePutConfig(t *testing.T) {
	cmd := &fakeCommander{}
	s := newTestServer(t, cmd)

	body := `{"hotkey":"ctrl+alt+k","baseDelayMs":15,"jitter":true,"jitterMaxMs":-2}`
	req := httptest.NewRequest(http.MethodPut, "/api/config", strings.NewReader(body))
	rr := httptest.NewRecorder()
	s.handleConfig(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	if len(cmd.hotkeys) != 1 || cmd.hotkeys[0] != "ctrl+alt+k" {
		t.Errorf("hotkeys = %v, want [ctrl+alt+k]", cmd.hotkeys)
	}

	cfg := cmd.ConfigSnapshot()
	if cfg.Typing.BaseDelayMs != 15 || !cfg.Typing.Jitter {
		t.Errorf("pacing not applied: %+v", cfg.Typing)
	}
	if cfg.Typing.JitterMaxMs != 10 {
		t.Errorf("negative jitter bound applied: %d", cfg.Typing.JitterMaxMs)
	}
}

func TestHandlePutConfigInvalidHotkey(t *testing.T) {
	cmd := &fakeCommander{hotkeyErr: errors.New("hotkey must start with ctrl, shift or alt")}
	s := newTestServer(t, cmd)

	body := `{"hotkey":"t","baseDelayMs":99}`
	req := httptest.NewRequest(http.MethodPut, "/api/config", strings.NewReader(body))
	rr := httptest.NewRecorder()
	s.handleConfig(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	// A rejected hotkey fails the whole update.
	if got := cmd.ConfigSnapshot().Typing.BaseDelayMs; got != 0 {
		t.Errorf("BaseDelayMs = %d, want untouched 0", got)
	}
}

func TestHandlePutConfigSaveFailure(t *testing.T) {
	cmd := &fakeCommander{saveErr: errors.New("disk full")}
	s := newTestServer(t, cmd)

	body := `{"baseDelayMs":15}`
	req := httptest.NewRequest(http.MethodPut, "/api/config", strings.NewReader(body))
	rr := httptest.NewRecorder()
	s.handleConfig(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if got := cmd.ConfigSnapshot().Typing.BaseDelayMs; got != 0 {
		t.Errorf("BaseDelayMs = %d, want untouched 0", got)
	}
}

func TestConfigReadsConcurrentWithUpdates(t *testing.T) {
	cmd := &fakeCommander{}
	s := newTestServer(t, cmd)

	// Handlers only touch configuration through commander snapshots
	// and whole-copy updates, so concurrent reads and writes must be
	// clean under the race detector.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				body := fmt.Sprintf(`{"baseDelayMs":%d}`, n*25+j)
				req := httptest.NewRequest(http.MethodPut, "/api/config", strings.NewReader(body))
				s.handleConfig(httptest.NewRecorder(), req)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
				s.handleConfig(httptest.NewRecorder(), req)
			}
		}()
	}
	wg.Wait()

	if got := cmd.ConfigSnapshot().Typing.BaseDelayMs; got < 0 || got > 99 {
		t.Errorf("BaseDelayMs = %d, want a value one of the writers set", got)
	}
}

func TestHandleHistory(t *testing.T) {
	s := newTestServer(t, &fakeCommander{})

	var ids []int64
	for i := 0; i < 3; i++ {
		r := storage.Run{Outcome: storage.OutcomeFinished, CharCount: 10 * (i + 1), FinalPercent: 100, TargetTitle: "notepad"}
		if err := s.db.SaveRun(&r); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
		ids = append(ids, r.ID)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/history?limit=2", nil)
	rr := httptest.NewRecorder()
	s.handleHistory(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp struct {
		Runs  []storage.Run `json:"runs"`
		Total int           `json:"total"`
		Limit int           `json:"limit"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Runs) != 2 || resp.Total != 3 || resp.Limit != 2 {
		t.Errorf("got %d runs, total %d, limit %d; want 2/3/2", len(resp.Runs), resp.Total, resp.Limit)
	}

	del := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/history/%d", ids[0]), nil)
	rr = httptest.NewRecorder()
	s.handleHistory(rr, del)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", rr.Code)
	}

	count, err := s.db.GetRunCount()
	if err != nil {
		t.Fatalf("GetRunCount: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	bad := httptest.NewRequest(http.MethodDelete, "/api/history/notanid", nil)
	rr = httptest.NewRecorder()
	s.handleHistory(rr, bad)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", rr.Code)
	}
}

func TestHandleStats(t *testing.T) {
	s := newTestServer(t, &fakeCommander{})

	for _, outcome := range []string{storage.OutcomeFinished, storage.OutcomeStopped} {
		r := storage.Run{Outcome: outcome, CharCount: 40, FinalPercent: 100, TargetTitle: "notepad"}
		if err := s.db.SaveRun(&r); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/stats?days=7", nil)
	rr := httptest.NewRecorder()
	s.handleStats(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var resp struct {
		Overall storage.OverallStats `json:"overall"`
		Daily   []storage.DailyStats `json:"daily"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Overall.TotalRuns != 2 || resp.Overall.TotalChars != 80 {
		t.Errorf("overall = %+v", resp.Overall)
	}
	if len(resp.Daily) != 1 {
		t.Errorf("daily buckets = %d, want 1", len(resp.Daily))
	}
}
