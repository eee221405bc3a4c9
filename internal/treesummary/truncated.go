package treesummary

import (
	"sort"
	"strings"

	"github.com/puzpuzpuz/xsync/v4"
)

// TruncatedSet collects the relative paths of directories whose contents were
// hidden during one traversal. Concurrent additions are safe.
type TruncatedSet struct {
	paths *xsync.Map[string, struct{}]
}

// NewTruncatedSet returns an empty set.
func NewTruncatedSet() *TruncatedSet {
	return &TruncatedSet{paths: xsync.NewMap[string, struct{}]()}
}

// Add registers relativePath. Repeated additions are no-ops.
func (set *TruncatedSet) Add(relativePath string) {
	set.paths.Store(relativePath, struct{}{})
}

// Contains reports whether relativePath was registered.
func (set *TruncatedSet) Contains(relativePath string) bool {
	_, found := set.paths.Load(relativePath)
	return found
}

// Len returns the number of registered paths.
func (set *TruncatedSet) Len() int {
	return set.paths.Size()
}

// Sorted returns the registered paths in lexical order.
func (set *TruncatedSet) Sorted() []string {
	sorted := make([]string, 0, set.paths.Size())
	set.paths.Range(func(relativePath string, _ struct{}) bool {
		sorted = append(sorted, relativePath)
		return true
	})
	sort.Strings(sorted)
	return sorted
}

// IsUnderAny reports whether relativePath equals or lies below one of the
// truncated directories.
func IsUnderAny(relativePath string, truncatedDirectories []string) bool {
	for _, truncatedDirectory := range truncatedDirectories {
		if truncatedDirectory == "" {
			continue
		}
		if relativePath == truncatedDirectory || strings.HasPrefix(relativePath, truncatedDirectory+pathSeparator) {
			return true
		}
	}
	return false
}

// FilterTruncated drops every path that equals or lies below a truncated
// directory, preserving order.
func FilterTruncated(paths []string, truncatedDirectories []string) []string {
	filtered := make([]string, 0, len(paths))
	for _, candidate := range paths {
		if IsUnderAny(candidate, truncatedDirectories) {
			continue
		}
		filtered = append(filtered, candidate)
	}
	return filtered
}
