//go:build windows

package platform

import (
	"fmt"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	openClipboard    = user32.NewProc("OpenClipboard")
	closeClipboard   = user32.NewProc("CloseClipboard")
	emptyClipboard   = user32.NewProc("EmptyClipboard")
	getClipboardData = user32.NewProc("GetClipboardData")
	setClipboardData = user32.NewProc("SetClipboardData")
	globalAlloc      = kernel32.NewProc("GlobalAlloc")
	globalLock       = kernel32.NewProc("GlobalLock")
	globalUnlock     = kernel32.NewProc("GlobalUnlock")
)

const (
	cfUnicodeText = 13
	gmemMoveable  = 0x0002

	vkControl = 0x11
	vkV       = 0x56
)

// ClipboardTyper is the alternate injection primitive: it routes text
// through the clipboard and a synthesized Ctrl+V, preserving whatever
// the clipboard held before. Slower than direct SendInput but works in
// targets that drop raw unicode input events.
type ClipboardTyper struct{}

// NewFallbackTyper creates the clipboard-paste injector
func NewFallbackTyper() Typer {
	return &ClipboardTyper{}
}

// TypeText pastes the text via the clipboard, restoring the previous
// clipboard content afterwards
func (t *ClipboardTyper) TypeText(text string) error {
	if text == "" {
		return nil
	}

	original, err := clipboardGet()
	if err != nil {
		// Not fatal; paste anyway and skip the restore.
		original = ""
	}

	if err := clipboardSet(text); err != nil {
		return fmt.Errorf("failed to set clipboard: %w", err)
	}

	// Give the clipboard a moment to settle before pasting
	time.Sleep(50 * time.Millisecond)

	if err := t.paste(); err != nil {
		return fmt.Errorf("failed to paste: %w", err)
	}

	time.Sleep(100 * time.Millisecond)

	if original != "" {
		clipboardSet(original)
	}

	return nil
}

// PressKey only knows the keys that have a text equivalent; anything
// else has no clipboard rendition
func (t *ClipboardTyper) PressKey(name string) error {
	switch name {
	case "enter":
		return t.TypeText("\n")
	case "tab":
		return t.TypeText("\t")
	}
	return fmt.Errorf("key %q has no clipboard fallback", name)
}

// paste simulates Ctrl+V with scan codes for better compatibility with
// elevated applications
func (t *ClipboardTyper) paste() error {
	ctrlScan, _, _ := mapVirtualKeyW.Call(vkControl, mapvkVkToVsc)
	vScan, _, _ := mapVirtualKeyW.Call(vkV, mapvkVkToVsc)

	inputs := []input{
		{inputType: inputKeyboard, ki: keyboardInput{wVk: vkControl, wScan: uint16(ctrlScan)}},
		{inputType: inputKeyboard, ki: keyboardInput{wVk: vkV, wScan: uint16(vScan)}},
		{inputType: inputKeyboard, ki: keyboardInput{wVk: vkV, wScan: uint16(vScan), dwFlags: keyeventfKeyup}},
		{inputType: inputKeyboard, ki: keyboardInput{wVk: vkControl, wScan: uint16(ctrlScan), dwFlags: keyeventfKeyup}},
	}

	if err := send(inputs); err != nil {
		return err
	}

	// Small delay to ensure input is processed
	time.Sleep(20 * time.Millisecond)
	return nil
}

func clipboardGet() (string, error) {
	if err := clipboardOpen(); err != nil {
		return "", err
	}
	defer closeClipboard.Call()

	h, _, err := getClipboardData.Call(cfUnicodeText)
	if h == 0 {
		if err != nil && err != syscall.Errno(0) {
			return "", fmt.Errorf("GetClipboardData failed: %w", err)
		}
		return "", nil // No text data
	}

	l, _, err := globalLock.Call(h)
	if l == 0 {
		return "", fmt.Errorf("GlobalLock failed: %w", err)
	}
	defer globalUnlock.Call(h)

	return windows.UTF16PtrToString((*uint16)(unsafe.Pointer(l))), nil
}

func clipboardSet(text string) error {
	if err := clipboardOpen(); err != nil {
		return err
	}
	defer closeClipboard.Call()

	emptyClipboard.Call()

	units, err := windows.UTF16FromString(text)
	if err != nil {
		return fmt.Errorf("UTF16 conversion failed: %w", err)
	}

	n := len(units) * 2 // UTF-16 uses 2 bytes per unit
	h, _, err := globalAlloc.Call(gmemMoveable, uintptr(n))
	if h == 0 {
		return fmt.Errorf("GlobalAlloc failed: %w", err)
	}

	l, _, err := globalLock.Call(h)
	if l == 0 {
		return fmt.Errorf("GlobalLock failed: %w", err)
	}

	dest := unsafe.Slice((*uint16)(unsafe.Pointer(l)), len(units))
	copy(dest, units)

	globalUnlock.Call(h)

	if r, _, err := setClipboardData.Call(cfUnicodeText, h); r == 0 {
		return fmt.Errorf("SetClipboardData failed: %w", err)
	}

	return nil
}

func clipboardOpen() error {
	// The clipboard is a contended global; retry briefly.
	for i := 0; i < 10; i++ {
		if r, _, _ := openClipboard.Call(0); r != 0 {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("failed to open clipboard after retries")
}
