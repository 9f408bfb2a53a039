package persistence

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// ModelKey derives a filesystem-safe key from an embedding model name.
// Path separators, drive colons and any rune outside [A-Za-z0-9._-] become '_'.
// When a rune had to be replaced, an FNV-1a hash of the original name is
// appended so "a/b" and "a_b" map to different keys.
func ModelKey(model string) string {
	if model == "" {
		return "default"
	}

	var b strings.Builder
	b.Grow(len(model))
	for _, r := range model {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	key := b.String()
	if strings.Trim(key, ".") == "" {
		key = strings.Repeat("_", len(key))
	}
	if key == model {
		return key
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(model))
	return fmt.Sprintf("%s-%08x", key, h.Sum32())
}

// IndexName returns the index artifact name for key.
func IndexName(key string) string { return "index_" + key + ".idx" }

// MetadataName returns the metadata artifact name for key.
func MetadataName(key string) string { return "metadata_" + key + ".json" }

// NamespacesName returns the namespace artifact name for key.
func NamespacesName(key string) string { return "namespaces_" + key + ".json" }

// LockName returns the lock file name for key.
func LockName(key string) string { return ".lock_" + key }
