// Package metadata parses the OTA package's metadata entry into an ordered
// key/value mapping. It never touches zip internals directly — callers hand
// it the already-extracted bytes of the metadata entry.
package metadata

import (
	"strings"
)

// KV is a single metadata key/value pair, preserved in file order.
type KV struct {
	Key   string
	Value string
}

// Metadata is the parsed "META-INF/com/android/metadata" entry: an ordered
// mapping with last-write-wins semantics on duplicate keys.
type Metadata struct {
	order []string
	byKey map[string]string
}

// Parse splits raw on newlines, trims each line, ignores lines without "=",
// and keeps the last occurrence of any duplicated key. Key/value pairs are
// trimmed of surrounding whitespace.
func Parse(raw []byte) *Metadata {
	m := &Metadata{byKey: make(map[string]string)}

	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])
		if _, exists := m.byKey[key]; !exists {
			m.order = append(m.order, key)
		}
		m.byKey[key] = value
	}

	return m
}

// Get returns the value for key and whether it was present.
func (m *Metadata) Get(key string) (string, bool) {
	v, ok := m.byKey[key]
	return v, ok
}

// GetOrEmpty returns the value for key, or "" if absent.
func (m *Metadata) GetOrEmpty(key string) string {
	return m.byKey[key]
}

// Keys returns the metadata keys in the order they first appeared.
func (m *Metadata) Keys() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Known metadata keys, per the OTA metadata contract.
const (
	KeyPreDevice            = "pre-device"
	KeySerialNo             = "serialno"
	KeyOTAType              = "ota-type"
	KeyPreBuildIncremental  = "pre-build-incremental"
	KeyPostBuildIncremental = "post-build-incremental"
	KeyPreBuild             = "pre-build"
	KeyPostTimestamp        = "post-timestamp"
	KeyOTADowngrade         = "ota-downgrade"
)
