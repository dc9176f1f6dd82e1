//go:build windows

package platform

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	getForegroundWindow = user32.NewProc("GetForegroundWindow")
	getWindowTextW      = user32.NewProc("GetWindowTextW")
)

// WindowsForeground implements the Foreground interface via
// GetForegroundWindow
type WindowsForeground struct{}

// NewForeground creates the foreground-window query primitive
func NewForeground() Foreground {
	return &WindowsForeground{}
}

// ActiveWindowTitle returns the title of the window receiving input.
// An empty string means no window has focus (or the window has no
// title, which the session controller treats the same way).
func (f *WindowsForeground) ActiveWindowTitle() (string, error) {
	hwnd, _, _ := getForegroundWindow.Call()
	if hwnd == 0 {
		return "", nil
	}

	var buf [512]uint16
	n, _, _ := getWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return "", nil
	}

	return windows.UTF16ToString(buf[:n]), nil
}
