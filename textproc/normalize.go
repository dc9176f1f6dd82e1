package textproc

import (
	"context"
	"strings"
)

// NormalizeNewlines converts CRLF and bare CR line endings to LF.
// Carriage returns are control characters the paced path would drop,
// which would swallow line breaks in Windows-style text.
func NormalizeNewlines(_ context.Context, text string) (string, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return text, nil
}

// StripBOM removes a leading byte-order mark, common in files dragged
// in from Windows editors
func StripBOM(_ context.Context, text string) (string, error) {
	return strings.TrimPrefix(text, "\uFEFF"), nil
}
