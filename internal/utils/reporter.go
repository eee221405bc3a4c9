package utils

import (
	"go.uber.org/zap"

	"github.com/tyemirov/ctxtree/internal/treesummary"
)

const (
	unreadableDirectoryMessage = "unreadable directory"
	truncationMessage          = "truncated"
)

// ZapReporter forwards tree builder diagnostics to a zap logger. Unreadable
// directories are warnings; truncation decisions are debug entries.
type ZapReporter struct {
	logger *zap.Logger
}

// NewZapReporter wraps logger. A nil logger discards every event.
func NewZapReporter(logger *zap.Logger) *ZapReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapReporter{logger: logger}
}

// Warn logs a directory that could not be listed.
func (reporter *ZapReporter) Warn(path string, err error) {
	reporter.logger.Warn(unreadableDirectoryMessage, zap.String("path", path), zap.Error(err))
}

// Truncated logs one truncation decision.
func (reporter *ZapReporter) Truncated(event treesummary.TruncationEvent) {
	reporter.logger.Debug(truncationMessage,
		zap.String("reason", string(event.Reason)),
		zap.String("parent", event.ParentPath),
		zap.String("path", event.RelativePath),
		zap.Int("skipped", event.SkippedEntries),
		zap.Int("aggregate", event.AggregateCount),
	)
}
