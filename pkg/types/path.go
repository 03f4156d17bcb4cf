package types

import (
	"path"
	"strings"
)

// NormalizePath converts a file reference to the crate-relative,
// forward-slash form stored in contentUrl. A file:// scheme and leading
// slashes are stripped and backslashes become slashes, so "data\sub\f.csv"
// and "/data/sub/f.csv" both yield "data/sub/f.csv".
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimPrefix(p, "file://")
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return ""
	}
	return path.Clean(p)
}

// IsNormalizedPath reports whether p is already a clean crate-relative
// forward-slash path that stays inside the crate.
func IsNormalizedPath(p string) bool {
	if p == "" || p == "." || strings.Contains(p, `\`) || strings.Contains(p, "://") {
		return false
	}
	if strings.HasPrefix(p, "/") || EscapesRoot(p) {
		return false
	}
	return path.Clean(p) == p
}

// EscapesRoot reports whether the normalized path p climbs above the crate root.
func EscapesRoot(p string) bool {
	return p == ".." || strings.HasPrefix(p, "../")
}
