package treesummary

import (
	"path"
	"sort"
	"strings"
)

const pathSeparator = "/"

// SelectionIndex answers ancestry questions about a set of selected paths in
// constant time. It is read-only after construction.
type SelectionIndex struct {
	selected         map[string]struct{}
	ancestorPrefixes map[string]struct{}
}

// NewSelectionIndex normalizes the provided relative paths and indexes every
// cumulative prefix of each one.
func NewSelectionIndex(paths []string) *SelectionIndex {
	index := &SelectionIndex{
		selected:         make(map[string]struct{}, len(paths)),
		ancestorPrefixes: make(map[string]struct{}, len(paths)*2),
	}
	for _, candidate := range paths {
		normalized := NormalizeRelativePath(candidate)
		if normalized == "" {
			continue
		}
		index.selected[normalized] = struct{}{}
		segments := strings.Split(normalized, pathSeparator)
		for segmentIndex := range segments {
			prefix := strings.Join(segments[:segmentIndex+1], pathSeparator)
			index.ancestorPrefixes[prefix] = struct{}{}
		}
	}
	return index
}

// NormalizeRelativePath converts a user supplied relative path into the
// slash-separated form used throughout the package. The root maps to "".
func NormalizeRelativePath(relativePath string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(relativePath), "\\", pathSeparator)
	normalized = strings.Trim(normalized, pathSeparator)
	if normalized == "" {
		return ""
	}
	normalized = path.Clean(normalized)
	if normalized == "." || normalized == ".." || strings.HasPrefix(normalized, "../") {
		return ""
	}
	return normalized
}

// Len returns the number of distinct selected paths.
func (index *SelectionIndex) Len() int {
	if index == nil {
		return 0
	}
	return len(index.selected)
}

// Paths returns the selected paths in lexical order.
func (index *SelectionIndex) Paths() []string {
	if index == nil {
		return nil
	}
	paths := make([]string, 0, len(index.selected))
	for selectedPath := range index.selected {
		paths = append(paths, selectedPath)
	}
	sort.Strings(paths)
	return paths
}

// IsSelected reports whether relativePath was selected explicitly.
func (index *SelectionIndex) IsSelected(relativePath string) bool {
	if index == nil {
		return false
	}
	_, exists := index.selected[relativePath]
	return exists
}

// IsAncestorOf reports whether directoryPath is a prefix of some selected
// path, the selected path itself included.
func (index *SelectionIndex) IsAncestorOf(directoryPath string) bool {
	if index == nil {
		return false
	}
	_, exists := index.ancestorPrefixes[directoryPath]
	return exists
}

// HasSelectionInside reports whether directoryPath is selected or contains a
// selected path. The root contains every selection.
func (index *SelectionIndex) HasSelectionInside(directoryPath string) bool {
	if index == nil || len(index.selected) == 0 {
		return false
	}
	if directoryPath == "" {
		return true
	}
	return index.IsAncestorOf(directoryPath)
}

// Covers reports whether relativePath or one of its ancestors is selected.
func (index *SelectionIndex) Covers(relativePath string) bool {
	if index == nil || len(index.selected) == 0 || relativePath == "" {
		return false
	}
	current := relativePath
	for {
		if index.IsSelected(current) {
			return true
		}
		separatorIndex := strings.LastIndex(current, pathSeparator)
		if separatorIndex < 0 {
			return false
		}
		current = current[:separatorIndex]
	}
}

// Protects reports whether an entry at relativePath must never be hidden.
func (index *SelectionIndex) Protects(relativePath string) bool {
	return index.HasSelectionInside(relativePath) || index.Covers(relativePath)
}

// SelectedUnder returns the number of selected paths strictly below
// directoryPath.
func (index *SelectionIndex) SelectedUnder(directoryPath string) int {
	if index == nil {
		return 0
	}
	if directoryPath == "" {
		return len(index.selected)
	}
	prefix := directoryPath + pathSeparator
	count := 0
	for selectedPath := range index.selected {
		if strings.HasPrefix(selectedPath, prefix) {
			count++
		}
	}
	return count
}
