// Package jsonutil holds the JSON helpers shared by the repository layer:
// records persisted to the remote store must stay human-diffable.
package jsonutil

import (
	"bytes"
	"encoding/json"
)

// MarshalIndentNoEscape encodes v with two-space indentation and with HTML
// escaping off, so the persisted records diff cleanly in the remote
// repository's UI.
func MarshalIndentNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
