// Package utils contains general helper functions used across the ctxtree tool.
package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Ignore file constants used across the project.
const (
	// IgnoreFileName is the name of the project's ignore file.
	IgnoreFileName = ".ignore"
	// GitIgnoreFileName is the name of the Git ignore file.
	GitIgnoreFileName = ".gitignore"
	// ExclusionPrefix marks patterns that exclude directories from processing.
	ExclusionPrefix = "EXCL:"
	// GitDirectoryName is the name of the Git repository directory.
	GitDirectoryName = ".git"
)

const (
	currentDirectoryMarker = "."
	parentDirectoryPrefix  = ".."

	errorSelectionOutsideRootFormat = "selected path %s is outside %s"
)

var serviceFiles = map[string]struct{}{
	IgnoreFileName:    {},
	GitIgnoreFileName: {},
}

// DeduplicatePatterns removes duplicate patterns from a slice while preserving order.
// The first occurrence of each unique pattern is kept.
func DeduplicatePatterns(patterns []string) []string {
	encounteredPatterns := make(map[string]struct{})
	result := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, exists := encounteredPatterns[pattern]; !exists {
			encounteredPatterns[pattern] = struct{}{}
			result = append(result, pattern)
		}
	}
	return result
}

// ContainsString checks if a slice of strings contains a specific target string.
func ContainsString(stringSlice []string, targetString string) bool {
	for _, currentString := range stringSlice {
		if currentString == targetString {
			return true
		}
	}
	return false
}

// RelativePathOrSelf calculates the relative path from root to fullPath.
// Returns the cleaned fullPath if relative calculation fails.
// Returns "." if fullPath and root resolve to the same directory.
func RelativePathOrSelf(fullPath, root string) string {
	cleanPath := filepath.Clean(fullPath)
	absoluteRoot, err := filepath.Abs(root)
	if err != nil {
		return cleanPath
	}
	cleanAbsoluteRoot := filepath.Clean(absoluteRoot)

	if cleanPath == cleanAbsoluteRoot {
		return "."
	}

	relativePath, relErr := filepath.Rel(cleanAbsoluteRoot, cleanPath)
	if relErr != nil {
		return cleanPath
	}
	return filepath.ToSlash(relativePath)
}

// IsServiceFile reports whether name is an ignore file that never appears in
// a summary.
func IsServiceFile(name string) bool {
	_, isServiceFile := serviceFiles[name]
	return isServiceFile
}

// SelectionPathRelativeToRoot converts a selected path given on the command
// line or in a selection file into a forward-slash path relative to root.
// Relative candidates are resolved against root.
func SelectionPathRelativeToRoot(root, candidate string) (string, error) {
	trimmedCandidate := strings.TrimSpace(candidate)
	absoluteRoot, absoluteError := filepath.Abs(root)
	if absoluteError != nil {
		return "", absoluteError
	}
	absoluteCandidate := trimmedCandidate
	if !filepath.IsAbs(absoluteCandidate) {
		absoluteCandidate = filepath.Join(absoluteRoot, filepath.FromSlash(trimmedCandidate))
	}
	relativePath, relativeError := filepath.Rel(absoluteRoot, filepath.Clean(absoluteCandidate))
	if relativeError != nil {
		return "", fmt.Errorf(errorSelectionOutsideRootFormat, candidate, absoluteRoot)
	}
	relativePath = filepath.ToSlash(relativePath)
	if relativePath == currentDirectoryMarker {
		return "", nil
	}
	if relativePath == parentDirectoryPrefix || strings.HasPrefix(relativePath, parentDirectoryPrefix+"/") {
		return "", fmt.Errorf(errorSelectionOutsideRootFormat, candidate, absoluteRoot)
	}
	return relativePath, nil
}
