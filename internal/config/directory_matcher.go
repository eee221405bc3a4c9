package config

import (
	"path/filepath"
	"strings"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/tyemirov/ctxtree/internal/ignore"
	"github.com/tyemirov/ctxtree/internal/treesummary"
)

const relativePathSeparator = "/"

// DirectoryMatcher applies the root ignore patterns and loads the ignore files
// of a nested directory the first time a path below it is checked. Only the
// directories a summary actually reaches are read, and ignore files inside
// ignored directories never are. A DirectoryMatcher is safe for concurrent use.
type DirectoryMatcher struct {
	rootDirectoryPath string
	options           IgnoreOptions
	root              *ignore.Matcher
	nested            *xsync.Map[string, *ignore.Matcher]
	reporter          treesummary.Reporter
}

var _ treesummary.Matcher = (*DirectoryMatcher)(nil)

// Len returns the number of root rules.
func (matcher *DirectoryMatcher) Len() int {
	return matcher.root.Len()
}

// LoadedDirectories returns how many nested directories had their ignore
// files read so far.
func (matcher *DirectoryMatcher) LoadedDirectories() int {
	return matcher.nested.Size()
}

// Ignores reports whether relativePath is excluded by the root rules or by the
// ignore files of any directory between the root and the path. A path below
// an ignored directory is ignored.
func (matcher *DirectoryMatcher) Ignores(relativePath string, isDirectory bool) bool {
	normalized := strings.Trim(filepath.ToSlash(relativePath), relativePathSeparator)
	if normalized == "" {
		return false
	}
	segments := strings.Split(normalized, relativePathSeparator)
	for depth := 1; depth < len(segments); depth++ {
		ancestor := strings.Join(segments[:depth], relativePathSeparator)
		if matcher.ignoresAt(ancestor, true, depth) {
			return true
		}
	}
	return matcher.ignoresAt(normalized, isDirectory, len(segments))
}

// ignoresAt checks relativePath against the root rules and the rules of its
// first depth-1 ancestors.
func (matcher *DirectoryMatcher) ignoresAt(relativePath string, isDirectory bool, depth int) bool {
	if matcher.root.Ignores(relativePath, isDirectory) {
		return true
	}
	segments := strings.Split(relativePath, relativePathSeparator)
	for ancestorDepth := 1; ancestorDepth < depth; ancestorDepth++ {
		ancestor := strings.Join(segments[:ancestorDepth], relativePathSeparator)
		if matcher.directoryRules(ancestor).Ignores(relativePath, isDirectory) {
			return true
		}
	}
	return false
}

// directoryRules returns the compiled, prefixed rules of one nested directory,
// reading its ignore files on first use.
func (matcher *DirectoryMatcher) directoryRules(relativeDirectory string) *ignore.Matcher {
	if rules, found := matcher.nested.Load(relativeDirectory); found {
		return rules
	}
	rules, _ := matcher.nested.LoadOrStore(relativeDirectory, matcher.loadDirectoryRules(relativeDirectory))
	return rules
}

func (matcher *DirectoryMatcher) loadDirectoryRules(relativeDirectory string) *ignore.Matcher {
	directoryPath := filepath.Join(matcher.rootDirectoryPath, filepath.FromSlash(relativeDirectory))
	ignorePatterns, binaryPatterns, loadError := loadDirectoryIgnoreFiles(directoryPath, matcher.options)
	if loadError != nil {
		matcher.reporter.Warn(directoryPath, loadError)
		return ignore.NewMatcher(nil)
	}
	if !matcher.options.IncludeBinary {
		ignorePatterns = append(ignorePatterns, binaryPatterns...)
	}
	prefix := relativeDirectory + relativePathSeparator
	prefixed := make([]string, 0, len(ignorePatterns))
	for _, pattern := range ignorePatterns {
		prefixed = append(prefixed, prefix+pattern)
	}
	return ignore.NewMatcher(prefixed)
}
