// Package commands contains the core logic for data collection for each command.
package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/tyemirov/ctxtree/internal/config"
	"github.com/tyemirov/ctxtree/internal/output"
	"github.com/tyemirov/ctxtree/internal/tokenizer"
	"github.com/tyemirov/ctxtree/internal/treesummary"
	"github.com/tyemirov/ctxtree/internal/types"
	"github.com/tyemirov/ctxtree/internal/utils"
)

const (
	// errorAbsolutePathFormat is used when the absolute path cannot be determined.
	errorAbsolutePathFormat = "getting absolute path for %s: %w"

	// errorLoadIgnorePatternsFormat is used when ignore files cannot be aggregated.
	errorLoadIgnorePatternsFormat = "loading ignore patterns for %s: %w"

	// errorBuildTreeFormat is used when building the tree fails.
	errorBuildTreeFormat = "building tree for %s: %w"

	// warningTokenCountFormat is used when token estimation fails for the rendered tree.
	warningTokenCountFormat = "failed to count tokens"
)

// GetTreeData summarizes the directory at rootDirectoryPath. Selected paths are
// relative to the root and stay visible regardless of truncation. The returned
// document is ready for any renderer.
func (treeBuilder *TreeBuilder) GetTreeData(ctx context.Context, rootDirectoryPath string, selection []string, mode treesummary.Mode) (*types.SummaryDocument, error) {
	absoluteRootDirPath, absolutePathError := filepath.Abs(rootDirectoryPath)
	if absolutePathError != nil {
		return nil, fmt.Errorf(errorAbsolutePathFormat, rootDirectoryPath, absolutePathError)
	}
	logger := treeBuilder.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	reporter := utils.NewZapReporter(logger)
	matcher, matcherError := config.LoadMatcher(absoluteRootDirPath, treeBuilder.Ignore, reporter)
	if matcherError != nil {
		return nil, fmt.Errorf(errorLoadIgnorePatternsFormat, rootDirectoryPath, matcherError)
	}
	logger.Debug("summarizing",
		zap.String("root", absoluteRootDirPath),
		zap.String("mode", mode.String()),
		zap.Int("selected", len(selection)),
		zap.Int("rootIgnoreRules", matcher.Len()),
	)

	summaryBuilder := treesummary.NewBuilder(treesummary.Options{
		Limits:           treeBuilder.Limits,
		Heuristics:       treeBuilder.Heuristics,
		Workers:          treeBuilder.Workers,
		OperationTimeout: treeBuilder.OperationTimeout,
		Reporter:         reporter,
	})
	result, buildError := summaryBuilder.Build(ctx, treesummary.Request{
		RootPath:  absoluteRootDirPath,
		Matcher:   matcher,
		Selection: selection,
		Mode:      mode,
	})
	if buildError != nil {
		return nil, fmt.Errorf(errorBuildTreeFormat, rootDirectoryPath, buildError)
	}
	logger.Debug("summary built",
		zap.Int("entries", result.Count),
		zap.Int("truncated", len(result.Truncated)),
		zap.Int("directoriesListed", result.DirectoriesListed),
		zap.Int("ignoreDirectoriesLoaded", matcher.LoadedDirectories()),
	)

	document := output.BuildDocument(output.DocumentInput{
		RootPath:  absoluteRootDirPath,
		Mode:      mode,
		Limits:    summaryBuilder.Limits(),
		Selection: selection,
		Result:    result,
		ListFiles: treeBuilder.ListFiles,
	})
	if treeBuilder.TokenCounter != nil {
		counted, countError := tokenizer.CountText(treeBuilder.TokenCounter, document.ASCII)
		if countError != nil {
			logger.Warn(warningTokenCountFormat, zap.String("root", absoluteRootDirPath), zap.Error(countError))
		} else if counted.Counted {
			document.Tokens = counted.Tokens
			document.Model = treeBuilder.TokenModel
		}
	}
	return document, nil
}
