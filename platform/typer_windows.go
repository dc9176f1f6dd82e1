//go:build windows

package platform

import (
	"fmt"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32         = windows.NewLazySystemDLL("user32.dll")
	kernel32       = windows.NewLazySystemDLL("kernel32.dll")
	sendInput      = user32.NewProc("SendInput")
	mapVirtualKeyW = user32.NewProc("MapVirtualKeyW")
)

const (
	inputKeyboard    = 1
	keyeventfKeyup   = 0x0002
	keyeventfUnicode = 0x0004
	mapvkVkToVsc     = 0
)

type keyboardInput struct {
	wVk         uint16
	wScan       uint16
	dwFlags     uint32
	time        uint32
	dwExtraInfo uintptr
}

type input struct {
	inputType uint32
	ki        keyboardInput
	padding   [8]byte // Padding to match C struct size
}

// namedKeys maps key names used by the paced path to VK codes
var namedKeys = map[string]uint16{
	"enter":     0x0D,
	"tab":       0x09,
	"backspace": 0x08,
	"esc":       0x1B,
	"space":     0x20,
}

// WindowsTyper implements the Typer interface via SendInput
type WindowsTyper struct{}

// NewTyper creates the primary Windows keystroke injector
func NewTyper() Typer {
	return &WindowsTyper{}
}

// TypeText injects a literal string as KEYEVENTF_UNICODE events, one
// down/up pair per UTF-16 unit. Surrogate pairs pass through as two
// units, which is how the input queue expects astral characters.
func (t *WindowsTyper) TypeText(text string) error {
	if text == "" {
		return nil
	}

	units := utf16.Encode([]rune(text))
	inputs := make([]input, 0, len(units)*2)
	for _, u := range units {
		inputs = append(inputs,
			input{
				inputType: inputKeyboard,
				ki: keyboardInput{
					wScan:   u,
					dwFlags: keyeventfUnicode,
				},
			},
			input{
				inputType: inputKeyboard,
				ki: keyboardInput{
					wScan:   u,
					dwFlags: keyeventfUnicode | keyeventfKeyup,
				},
			},
		)
	}

	return send(inputs)
}

// PressKey presses and releases a named key with scan codes for better
// compatibility with elevated applications
func (t *WindowsTyper) PressKey(name string) error {
	vk, ok := namedKeys[name]
	if !ok {
		return fmt.Errorf("unknown key: %s", name)
	}

	scan, _, _ := mapVirtualKeyW.Call(uintptr(vk), mapvkVkToVsc)

	inputs := []input{
		{
			inputType: inputKeyboard,
			ki: keyboardInput{
				wVk:   vk,
				wScan: uint16(scan),
			},
		},
		{
			inputType: inputKeyboard,
			ki: keyboardInput{
				wVk:     vk,
				wScan:   uint16(scan),
				dwFlags: keyeventfKeyup,
			},
		},
	}

	return send(inputs)
}

// send submits a batch of input events in one SendInput call
func send(inputs []input) error {
	ret, _, err := sendInput.Call(
		uintptr(len(inputs)),
		uintptr(unsafe.Pointer(&inputs[0])),
		unsafe.Sizeof(inputs[0]),
	)
	if ret == 0 {
		return fmt.Errorf("SendInput failed: %w", err)
	}
	if int(ret) != len(inputs) {
		return fmt.Errorf("SendInput injected %d of %d events", ret, len(inputs))
	}
	return nil
}
