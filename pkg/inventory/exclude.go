package inventory

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Excludes matches keys against doublestar patterns. A pattern ending in "/"
// matches every key below a matching directory.
type Excludes []string

// Validate reports the first malformed pattern.
func (e Excludes) Validate() error {
	for _, pattern := range e {
		if !doublestar.ValidatePattern(strings.TrimSuffix(pattern, "/")) {
			return fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	return nil
}

// MatchDir reports whether dir is excluded as a whole by a pattern ending
// in "/". Such a directory need not be walked.
func (e Excludes) MatchDir(dir string) bool {
	for _, pattern := range e {
		if d, ok := strings.CutSuffix(pattern, "/"); ok {
			if matched, _ := doublestar.Match(d, dir); matched {
				return true
			}
		}
	}
	return false
}

// Match reports whether key is excluded.
func (e Excludes) Match(key string) bool {
	for _, pattern := range e {
		if dir, ok := strings.CutSuffix(pattern, "/"); ok {
			parts := strings.Split(key, "/")
			for i := 1; i < len(parts); i++ {
				if matched, _ := doublestar.Match(dir, strings.Join(parts[:i], "/")); matched {
					return true
				}
			}
			continue
		}
		if matched, _ := doublestar.Match(pattern, key); matched {
			return true
		}
	}
	return false
}
