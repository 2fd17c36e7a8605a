package core

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Fingerprint derives a deterministic cache key from a request's method,
// target, and parameters. Parameters are serialized with sorted keys, so two
// calls with the same parameters in different insertion order always produce
// the same fingerprint.
func Fingerprint(method string, target string, params map[string]string) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(strings.TrimSpace(method)))
	b.WriteByte('\n')
	b.WriteString(strings.TrimSpace(target))

	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for key := range params {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			b.WriteByte('\n')
			b.WriteString(key)
			b.WriteByte('=')
			b.WriteString(params[key])
		}
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
