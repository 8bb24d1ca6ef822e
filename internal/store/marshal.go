package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/hirssa/internal/diagnostics"
)

// marshalDiagnostics converts diagnostics to JSON TEXT for storage.
// An empty list is stored as "[]", never "null".
func marshalDiagnostics(diags []*diagnostics.Diagnostic) (string, error) {
	if len(diags) == 0 {
		return "[]", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // Messages quote source text; keep < > & readable
	if err := enc.Encode(diags); err != nil {
		return "", fmt.Errorf("marshal diagnostics: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalDiagnostics parses JSON TEXT to diagnostics. Returns nil for an
// empty list so a read run compares equal to the written one.
func unmarshalDiagnostics(data string) ([]*diagnostics.Diagnostic, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var diags []*diagnostics.Diagnostic
	if err := json.Unmarshal([]byte(data), &diags); err != nil {
		return nil, fmt.Errorf("unmarshal diagnostics: %w", err)
	}
	return diags, nil
}
