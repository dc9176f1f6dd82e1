package config

import (
	"fmt"
	"strconv"
	"strings"
)

// KeyCombo represents a parsed keyboard combination
type KeyCombo struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Win   bool
	Key   string
}

// ParseHotkey parses a hotkey combo string like "ctrl+shift+t"
func ParseHotkey(combo string) (KeyCombo, error) {
	var kc KeyCombo
	parts := strings.Split(strings.ToLower(combo), "+")

	if len(parts) == 0 {
		return kc, fmt.Errorf("empty hotkey combo")
	}

	for i, part := range parts {
		part = strings.TrimSpace(part)

		// Check if this part is a modifier
		isModifier := false
		switch part {
		case "ctrl", "control":
			kc.Ctrl = true
			isModifier = true
		case "shift":
			kc.Shift = true
			isModifier = true
		case "alt", "menu":
			kc.Alt = true
			isModifier = true
		case "win", "windows", "meta", "super":
			kc.Win = true
			isModifier = true
		}

		// If it's not a modifier and it's the last part, it's the key
		if !isModifier {
			if i == len(parts)-1 {
				kc.Key = part
			} else {
				return kc, fmt.Errorf("unknown modifier: %s", part)
			}
		}
	}

	if !kc.Ctrl && !kc.Shift && !kc.Alt && !kc.Win {
		return kc, fmt.Errorf("no modifiers specified in combo")
	}

	if kc.Key == "" {
		return kc, fmt.Errorf("no main key specified in combo")
	}

	return kc, nil
}

// ValidateCombo checks a committed hotkey string against the binding rules
// and returns its canonical lower-case form:
//   - at least two tokens
//   - the first token is a modifier (ctrl, shift or alt)
//   - the last token is a single printable character or F1-F24
//
// An invalid combo returns an error and the caller keeps the prior binding.
func ValidateCombo(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty hotkey combo")
	}

	var parts []string
	for _, p := range strings.Split(raw, "+") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	if len(parts) < 2 {
		return "", fmt.Errorf("hotkey needs a modifier and a main key: %q", raw)
	}

	switch strings.ToLower(parts[0]) {
	case "ctrl", "control", "shift", "alt":
	default:
		return "", fmt.Errorf("hotkey must start with ctrl, shift or alt: %q", raw)
	}

	main := strings.ToLower(parts[len(parts)-1])
	if !isMainKey(main) {
		return "", fmt.Errorf("hotkey must end in a printable key or F1-F24: %q", raw)
	}

	canonical := make([]string, 0, len(parts))
	for _, p := range parts {
		canonical = append(canonical, canonicalToken(p))
	}
	return strings.Join(canonical, "+"), nil
}

// isMainKey reports whether a token can be the combo's terminal key:
// a single printable character or a function key F1-F24.
func isMainKey(tok string) bool {
	if len(tok) == 1 {
		return true
	}
	if strings.HasPrefix(tok, "f") {
		n, err := strconv.Atoi(tok[1:])
		return err == nil && n >= 1 && n <= 24
	}
	return false
}

func canonicalToken(tok string) string {
	switch strings.ToLower(tok) {
	case "ctrl", "control":
		return "ctrl"
	case "shift":
		return "shift"
	case "alt", "menu":
		return "alt"
	case "win", "windows", "meta", "super":
		return "windows"
	default:
		return strings.ToLower(tok)
	}
}
