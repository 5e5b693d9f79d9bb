// Package sign computes request signatures for the integrator gateway.
// A signature binds the call fields to the shared secret key without sending the key.
package sign

import (
	"bytes"
	"crypto/md5" //nolint:gosec // the gateway mandates MD5 signatures
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Sign returns the lowercase hex MD5 of the field values concatenated in
// ascending key order, followed by secret. Keys are not part of the input.
func Sign(fields map[string]string, secret string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(fields[k])
	}
	b.WriteString(secret)

	sum := md5.Sum([]byte(b.String())) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// CompactJSON serializes v without insignificant whitespace and without
// escaping HTML characters, so non-ASCII text is kept verbatim.
func CompactJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("sign: encode params: %w", err)
	}
	// Encode terminates with a newline.
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
