// Package permission defines the agent file-path allow-list.
package permission

import (
	"path"
	"strings"
	"time"
)

// Entry is one allow-listed path rule. A pattern with a trailing slash allows
// the whole directory subtree; any other pattern must match the file exactly.
type Entry struct {
	ID          string    `json:"id"`
	PathPattern string    `json:"path_pattern"`
	Comment     string    `json:"comment,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateRequest holds the fields needed to create a new allow-list entry.
type CreateRequest struct {
	PathPattern string `json:"path_pattern"`
	Comment     string `json:"comment,omitempty"`
}

// Normalize cleans a candidate path for matching: slash separators, no
// leading "./", ".." segments collapsed. A trailing slash is preserved so
// directory rules stay distinguishable from file rules.
func Normalize(p string) string {
	p = strings.TrimSpace(p)
	trailing := strings.HasSuffix(p, "/")
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	p = strings.TrimPrefix(p, "./")
	if trailing && p != "/" {
		p += "/"
	}
	return p
}

// Match reports whether target is covered by the rule set.
func Match(entries []Entry, target string) bool {
	t := Normalize(target)
	for _, e := range entries {
		rule := Normalize(e.PathPattern)
		if strings.HasSuffix(rule, "/") {
			if strings.HasPrefix(t, rule) {
				return true
			}
			continue
		}
		if t == rule {
			return true
		}
	}
	return false
}
