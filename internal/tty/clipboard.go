package tty

import (
	"io"

	"github.com/aymanbagabas/go-osc52/v2"
)

// EncodeClipboardSet builds the OSC 52 sequence that forwards a pane's
// clipboard-set request (decoded by internal/vt's OnOSC52 hook) on to the
// attached client's real terminal — the server has no clipboard of its
// own, so every `set-clipboard` round trips through whichever terminal is
// actually attached.
func EncodeClipboardSet(selection string, data []byte) string {
	seq := osc52.New(string(data))
	switch selection {
	case "p", "primary":
		seq = seq.Primary()
	default:
		seq = seq.Clipboard()
	}
	return seq.String()
}

// WriteClipboardSet writes the OSC 52 clipboard-set sequence directly to w.
func WriteClipboardSet(w io.Writer, selection string, data []byte) error {
	_, err := io.WriteString(w, EncodeClipboardSet(selection, data))
	return err
}
