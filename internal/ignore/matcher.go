// Package ignore decides which relative paths are excluded from a tree summary.
package ignore

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tyemirov/ctxtree/internal/utils"
)

const (
	pathSegmentSeparator = "/"
	anchorPrefix         = "/"
	negationPrefix       = "!"
	commentPrefix        = "#"
	doubleStarToken      = "**"
)

type ruleKind int

const (
	// ruleName matches one segment anywhere in the path; ancestors count as
	// directories.
	ruleName ruleKind = iota
	// rulePath matches the full path segment by segment.
	rulePath
	// rulePrefix matches the leading segments of the path.
	rulePrefix
	// ruleGlob matches the full path with doublestar semantics.
	ruleGlob
)

type rule struct {
	kind          ruleKind
	segments      []string
	glob          string
	directoryOnly bool
}

// Matcher holds compiled ignore patterns. A Matcher is immutable and safe for
// concurrent use.
type Matcher struct {
	rules []rule
}

// NewMatcher compiles patterns. Blank lines, comments and negations are
// skipped; patterns prefixed with utils.ExclusionPrefix exclude a path prefix.
func NewMatcher(patterns []string) *Matcher {
	matcher := &Matcher{rules: make([]rule, 0, len(patterns))}
	for _, pattern := range patterns {
		compiled, ok := compile(pattern)
		if ok {
			matcher.rules = append(matcher.rules, compiled)
		}
	}
	return matcher
}

// Len returns the number of compiled rules.
func (matcher *Matcher) Len() int {
	if matcher == nil {
		return 0
	}
	return len(matcher.rules)
}

func compile(pattern string) (rule, bool) {
	normalized := strings.TrimSpace(strings.ReplaceAll(pattern, "\\", pathSegmentSeparator))
	if normalized == "" || strings.HasPrefix(normalized, commentPrefix) || strings.HasPrefix(normalized, negationPrefix) {
		return rule{}, false
	}

	if strings.HasPrefix(normalized, utils.ExclusionPrefix) {
		exclusion := strings.Trim(strings.TrimPrefix(normalized, utils.ExclusionPrefix), pathSegmentSeparator)
		if exclusion == "" {
			return rule{}, false
		}
		return rule{kind: rulePrefix, segments: strings.Split(exclusion, pathSegmentSeparator)}, true
	}

	directoryOnly := strings.HasSuffix(normalized, pathSegmentSeparator)
	anchored := strings.HasPrefix(normalized, anchorPrefix)
	trimmed := strings.Trim(normalized, pathSegmentSeparator)
	if trimmed == "" || !doublestar.ValidatePattern(trimmed) {
		return rule{}, false
	}

	if strings.Contains(trimmed, doubleStarToken) {
		return rule{kind: ruleGlob, glob: trimmed, directoryOnly: directoryOnly}, true
	}
	segments := strings.Split(trimmed, pathSegmentSeparator)
	switch {
	case len(segments) == 1 && !anchored:
		return rule{kind: ruleName, segments: segments, directoryOnly: directoryOnly}, true
	case directoryOnly:
		return rule{kind: rulePrefix, segments: segments, directoryOnly: true}, true
	default:
		return rule{kind: rulePath, segments: segments}, true
	}
}

// Ignores reports whether relativePath, written with forward slashes and
// relative to the summarized root, is excluded. Service files such as
// .gitignore are always excluded.
func (matcher *Matcher) Ignores(relativePath string, isDirectory bool) bool {
	normalized := strings.Trim(strings.ReplaceAll(relativePath, "\\", pathSegmentSeparator), pathSegmentSeparator)
	if normalized == "" {
		return false
	}
	pathSegments := strings.Split(normalized, pathSegmentSeparator)
	if utils.IsServiceFile(pathSegments[len(pathSegments)-1]) {
		return true
	}
	if matcher == nil {
		return false
	}
	for _, candidate := range matcher.rules {
		if candidate.matches(normalized, pathSegments, isDirectory) {
			return true
		}
	}
	return false
}

func (candidate rule) matches(normalized string, pathSegments []string, isDirectory bool) bool {
	lastIndex := len(pathSegments) - 1
	switch candidate.kind {
	case ruleName:
		for segmentIndex, segment := range pathSegments {
			if candidate.directoryOnly && segmentIndex == lastIndex && !isDirectory {
				continue
			}
			if segmentMatches(candidate.segments[0], segment) {
				return true
			}
		}
		return false
	case rulePrefix:
		if len(pathSegments) < len(candidate.segments) {
			return false
		}
		if candidate.directoryOnly && len(pathSegments) == len(candidate.segments) && !isDirectory {
			return false
		}
		return segmentsMatch(pathSegments[:len(candidate.segments)], candidate.segments)
	case rulePath:
		return len(pathSegments) == len(candidate.segments) && segmentsMatch(pathSegments, candidate.segments)
	case ruleGlob:
		if !candidate.directoryOnly || isDirectory {
			if matched, _ := doublestar.Match(candidate.glob, normalized); matched {
				return true
			}
		}
		if !candidate.directoryOnly {
			return false
		}
		for prefixLength := 1; prefixLength < len(pathSegments); prefixLength++ {
			ancestor := strings.Join(pathSegments[:prefixLength], pathSegmentSeparator)
			if matched, _ := doublestar.Match(candidate.glob, ancestor); matched {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// segmentsMatch reports whether each pattern segment matches the corresponding
// path segment.
func segmentsMatch(pathSegments, patternSegments []string) bool {
	for segmentIndex, patternSegment := range patternSegments {
		if !segmentMatches(patternSegment, pathSegments[segmentIndex]) {
			return false
		}
	}
	return true
}

func segmentMatches(pattern, segment string) bool {
	matched, matchError := doublestar.Match(pattern, segment)
	return matchError == nil && matched
}
