// Package fingerprint derives deterministic, order-insensitive cache keys
// from an operation name and a structured input value.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// keyLength is the number of hex characters kept from the SHA-256 digest.
const keyLength = 24

// Key derives a 24-hex-char cache key from prefix and obj. obj is serialised
// with its top-level keys sorted lexicographically before hashing, so two
// maps with the same top-level keys in different insertion order produce the
// same key.
func Key(prefix string, obj map[string]any) string {
	canonical := canonicalize(obj)

	h := sha256.New()
	h.Write([]byte(prefix))
	h.Write([]byte(":"))
	h.Write(canonical)

	digest := hex.EncodeToString(h.Sum(nil))
	return digest[:keyLength]
}

// canonicalize serialises obj as JSON with top-level keys emitted in sorted
// order. Nested values are serialised with encoding/json's own (also sorted,
// for map values) key ordering.
func canonicalize(obj map[string]any) []byte {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, _ := json.Marshal(k)
		buf = append(buf, kb...)
		buf = append(buf, ':')
		vb, _ := json.Marshal(obj[k])
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf
}
