//go:build windows

package platform

import (
	"context"
	"fmt"
	"runtime"
	"time"
	"unsafe"
)

var (
	registerHotKey   = user32.NewProc("RegisterHotKey")
	unregisterHotKey = user32.NewProc("UnregisterHotKey")
	peekMessage      = user32.NewProc("PeekMessageW")
	vkKeyScanW       = user32.NewProc("VkKeyScanW")
)

const (
	modAlt      = 0x0001
	modControl  = 0x0002
	modShift    = 0x0004
	modWin      = 0x0008
	modNorepeat = 0x4000

	wmHotkey = 0x0312
	pmRemove = 0x0001

	// Single binding per process, so one fixed id suffices
	hotkeyID = 1
)

type msg struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      struct{ x, y int32 }
}

type bindReq struct {
	unbind bool
	combo  KeyCombo
	reply  chan error
}

// WindowsHotkey implements the Hotkey interface via RegisterHotKey.
// RegisterHotKey binds to the calling thread's message queue, so all
// registration work and the message loop share one locked OS thread;
// Rebind and Unbind hand commands to it over a channel.
type WindowsHotkey struct {
	events chan struct{}
	cmds   chan bindReq
}

// NewHotkey creates a new Windows hotkey listener
func NewHotkey() Hotkey {
	return &WindowsHotkey{
		events: make(chan struct{}, 10),
		cmds:   make(chan bindReq),
	}
}

// Start launches the message-loop thread. Triggers arrive on the
// returned channel until ctx is cancelled.
func (h *WindowsHotkey) Start(ctx context.Context) (<-chan struct{}, error) {
	go h.loop(ctx)
	return h.events, nil
}

// Rebind replaces the active binding with combo. The prior binding is
// unregistered first, so on failure no binding remains and the caller
// should reflect an occupied state.
func (h *WindowsHotkey) Rebind(combo KeyCombo) error {
	req := bindReq{combo: combo, reply: make(chan error, 1)}
	h.cmds <- req
	return <-req.reply
}

// Unbind releases the active binding
func (h *WindowsHotkey) Unbind() error {
	req := bindReq{unbind: true, reply: make(chan error, 1)}
	h.cmds <- req
	return <-req.reply
}

func (h *WindowsHotkey) loop(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	registered := false
	defer func() {
		if registered {
			unregisterHotKey.Call(0, hotkeyID)
		}
	}()

	var m msg
	for {
		select {
		case <-ctx.Done():
			return

		case req := <-h.cmds:
			if registered {
				unregisterHotKey.Call(0, hotkeyID)
				registered = false
			}
			if req.unbind {
				req.reply <- nil
				continue
			}

			r, _, err := registerHotKey.Call(
				0,
				hotkeyID,
				uintptr(modifierFlags(req.combo)),
				uintptr(req.combo.Key),
			)
			if r == 0 {
				// Most likely the combination is claimed by another
				// process.
				req.reply <- fmt.Errorf("RegisterHotKey failed: %w", err)
				continue
			}
			registered = true
			req.reply <- nil

		default:
			// Non-blocking peek; WM_HOTKEY lands on this thread's queue
			r, _, _ := peekMessage.Call(
				uintptr(unsafe.Pointer(&m)),
				0,
				0,
				0,
				pmRemove,
			)
			if r != 0 {
				if m.message == wmHotkey {
					select {
					case h.events <- struct{}{}:
					default:
					}
				}
				continue
			}
			// Small sleep to prevent busy loop
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func modifierFlags(combo KeyCombo) uint32 {
	var mods uint32 = modNorepeat
	if combo.Ctrl {
		mods |= modControl
	}
	if combo.Shift {
		mods |= modShift
	}
	if combo.Alt {
		mods |= modAlt
	}
	if combo.Win {
		mods |= modWin
	}
	return mods
}

// VKCode returns the Windows virtual key code for a key name
func VKCode(key string) (int, error) {
	if key == "" {
		return 0, fmt.Errorf("empty key")
	}

	// Map common keys to VK codes
	codes := map[string]int{
		"a": 0x41, "b": 0x42, "c": 0x43, "d": 0x44, "e": 0x45,
		"f": 0x46, "g": 0x47, "h": 0x48, "i": 0x49, "j": 0x4A,
		"k": 0x4B, "l": 0x4C, "m": 0x4D, "n": 0x4E, "o": 0x4F,
		"p": 0x50, "q": 0x51, "r": 0x52, "s": 0x53, "t": 0x54,
		"u": 0x55, "v": 0x56, "w": 0x57, "x": 0x58, "y": 0x59, "z": 0x5A,
		"0": 0x30, "1": 0x31, "2": 0x32, "3": 0x33, "4": 0x34,
		"5": 0x35, "6": 0x36, "7": 0x37, "8": 0x38, "9": 0x39,
		"f1": 0x70, "f2": 0x71, "f3": 0x72, "f4": 0x73,
		"f5": 0x74, "f6": 0x75, "f7": 0x76, "f8": 0x77,
		"f9": 0x78, "f10": 0x79, "f11": 0x7A, "f12": 0x7B,
		"f13": 0x7C, "f14": 0x7D, "f15": 0x7E, "f16": 0x7F,
		"f17": 0x80, "f18": 0x81, "f19": 0x82, "f20": 0x83,
		"f21": 0x84, "f22": 0x85, "f23": 0x86, "f24": 0x87,
		"space": 0x20, "enter": 0x0D, "esc": 0x1B,
		"tab": 0x09, "backspace": 0x08,
	}

	if code, ok := codes[key]; ok {
		return code, nil
	}

	// Other single printable characters go through the keyboard layout
	if runes := []rune(key); len(runes) == 1 {
		r, _, _ := vkKeyScanW.Call(uintptr(runes[0]))
		if code := int(r) & 0xFF; code != 0xFF {
			return code, nil
		}
	}

	return 0, fmt.Errorf("unknown key: %s", key)
}
