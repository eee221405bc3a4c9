package treesummary

import (
	"path/filepath"
)

// TruncationReason explains why entries were hidden.
type TruncationReason string

const (
	// ReasonHeavy marks a subtree collapsed because of its weight.
	ReasonHeavy TruncationReason = "heavy"
	// ReasonSmart marks entries hidden between the kept head and tail.
	ReasonSmart TruncationReason = "smart"
)

// TruncationEvent describes one placeholder emitted by the policy.
type TruncationEvent struct {
	Reason         TruncationReason
	ParentPath     string
	RelativePath   string
	SkippedEntries int
	AggregateCount int
}

// Reporter receives diagnostics produced during a traversal. Implementations
// must be safe for concurrent use.
type Reporter interface {
	Warn(path string, err error)
	Truncated(event TruncationEvent)
}

// NopReporter discards every diagnostic.
type NopReporter struct{}

func (NopReporter) Warn(string, error) {}

func (NopReporter) Truncated(TruncationEvent) {}

var _ Reporter = NopReporter{}

func relativeOrAbsolute(root, absolutePath string) string {
	relativePath, relativeError := filepath.Rel(root, absolutePath)
	if relativeError != nil {
		return absolutePath
	}
	return filepath.ToSlash(relativePath)
}
