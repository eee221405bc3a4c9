package treesummary

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultWorkers is the number of concurrent filesystem operations.
	DefaultWorkers = 16
	// DefaultOperationTimeout bounds a single directory listing.
	DefaultOperationTimeout = 5 * time.Second

	errorAbsoluteRootFormat    = "resolving root %s: %w"
	errorUnsupportedModeFormat = "unsupported mode %q"
)

// Mode selects how a selection shapes the summary.
type Mode int

const (
	// ModeDirectory renders the whole tree and uses the selection only to
	// protect selected paths from truncation.
	ModeDirectory Mode = iota
	// ModeFiles renders only the selected paths and their ancestors.
	ModeFiles
)

// String returns the configuration name of the mode.
func (mode Mode) String() string {
	if mode == ModeFiles {
		return "files"
	}
	return "directory"
}

// ParseMode converts a configuration name into a Mode.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "directory", "dir":
		return ModeDirectory, nil
	case "files", "file":
		return ModeFiles, nil
	default:
		return ModeDirectory, fmt.Errorf(errorUnsupportedModeFormat, name)
	}
}

// Options configures a Builder.
type Options struct {
	Limits           Limits
	Heuristics       Heuristics
	Workers          int
	OperationTimeout time.Duration
	Provider         EntryProvider
	Reporter         Reporter
}

// Request describes one summary to build.
type Request struct {
	RootPath  string
	Matcher   Matcher
	Selection []string
	Mode      Mode
}

// Result is the outcome of one Build call. Truncated lists the relative paths
// of collapsed directories in lexical order.
type Result struct {
	Root              *TreeNode
	Count             int
	Truncated         []string
	DirectoriesListed int
}

// FilePaths returns the rendered file paths, excluding anything below a
// truncated directory.
func (result Result) FilePaths() []string {
	return FilterTruncated(Flatten(result.Root), result.Truncated)
}

// Builder produces bounded tree summaries. A Builder is safe for concurrent
// use; every Build call owns its cache and truncated set.
type Builder struct {
	policy   truncationPolicy
	workers  int
	timeout  time.Duration
	provider EntryProvider
	reporter Reporter
}

// NewBuilder constructs a Builder, filling unset options with defaults.
func NewBuilder(options Options) *Builder {
	workers := options.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	timeout := options.OperationTimeout
	if timeout == 0 {
		timeout = DefaultOperationTimeout
	}
	provider := options.Provider
	if provider == nil {
		provider = OSEntryProvider{}
	}
	reporter := options.Reporter
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Builder{
		policy:   newTruncationPolicy(options.Limits, options.Heuristics),
		workers:  workers,
		timeout:  timeout,
		provider: provider,
		reporter: reporter,
	}
}

// Limits returns the effective limits.
func (builder *Builder) Limits() Limits {
	return builder.policy.limits
}

// Build summarizes request.RootPath. Unreadable directories become empty and
// are reported; only cancellation of ctx fails the call.
func (builder *Builder) Build(ctx context.Context, request Request) (Result, error) {
	absoluteRoot, absoluteError := filepath.Abs(request.RootPath)
	if absoluteError != nil {
		return Result{}, fmt.Errorf(errorAbsoluteRootFormat, request.RootPath, absoluteError)
	}
	matcher := request.Matcher
	if matcher == nil {
		matcher = matchNothing{}
	}
	lister := newCachedLister(builder.provider, semaphore.NewWeighted(int64(builder.workers)), builder.timeout, builder.reporter, absoluteRoot)
	walk := &traversal{
		policy:    builder.policy,
		lister:    lister,
		counter:   &descendantCounter{lister: lister, matcher: matcher},
		matcher:   matcher,
		selection: NewSelectionIndex(request.Selection),
		truncated: NewTruncatedSet(),
		reporter:  builder.reporter,
		workers:   builder.workers,
	}

	built, buildError := walk.buildDirectory(ctx, absoluteRoot, "", filepath.Base(absoluteRoot), request.Mode, true)
	if buildError != nil {
		return Result{}, buildError
	}
	return Result{
		Root:              built.node,
		Count:             built.count,
		Truncated:         walk.truncated.Sorted(),
		DirectoriesListed: lister.size(),
	}, nil
}

type builtNode struct {
	node  *TreeNode
	count int
}

// traversal holds the state of a single Build call.
type traversal struct {
	policy    truncationPolicy
	lister    *cachedLister
	counter   *descendantCounter
	matcher   Matcher
	selection *SelectionIndex
	truncated *TruncatedSet
	reporter  Reporter
	workers   int
}

// buildDirectory summarizes one directory. scopeRoot marks the directory the
// current mode started from; it is never smart-truncated.
func (walk *traversal) buildDirectory(ctx context.Context, absolutePath, relativePath, name string, mode Mode, scopeRoot bool) (builtNode, error) {
	if mode == ModeFiles {
		delegate, delegateError := walk.selectionIsExhaustive(ctx, absolutePath, relativePath)
		if delegateError != nil {
			return builtNode{}, delegateError
		}
		if delegate {
			return walk.buildDirectory(ctx, absolutePath, relativePath, name, ModeDirectory, true)
		}
	}

	entries, listError := walk.lister.list(ctx, absolutePath)
	if listError != nil {
		return builtNode{}, listError
	}
	relevant := walk.relevantChildren(absolutePath, relativePath, entries, mode)
	measured, totalWeight, measureError := walk.measure(ctx, relevant)
	if measureError != nil {
		return builtNode{}, measureError
	}
	sortMeasured(measured)

	slots := walk.plan(relativePath, measured, totalWeight, mode, scopeRoot)
	children, count, expandError := walk.expand(ctx, relativePath, slots, mode)
	if expandError != nil {
		return builtNode{}, expandError
	}
	return builtNode{node: newDirectoryNode(name, relativePath, children), count: count}, nil
}

// selectionIsExhaustive reports whether a files-mode directory can be handed to
// the directory-mode algorithm because the selection no longer constrains it.
func (walk *traversal) selectionIsExhaustive(ctx context.Context, absolutePath, relativePath string) (bool, error) {
	if walk.selection.Len() == 0 {
		return false, nil
	}
	if relativePath != "" && walk.selection.IsSelected(relativePath) {
		return true, nil
	}
	return walk.counter.filesExactlySelected(ctx, absolutePath, relativePath, walk.selection)
}

func (walk *traversal) relevantChildren(absolutePath, relativePath string, entries []Entry, mode Mode) []measuredEntry {
	restrictToSelection := mode == ModeFiles && walk.selection.Len() > 0
	relevant := make([]measuredEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsSymlink() {
			continue
		}
		childRelative := joinRelative(relativePath, entry.Name)
		if walk.matcher.Ignores(childRelative, entry.IsDirectory()) {
			continue
		}
		if restrictToSelection {
			if entry.IsDirectory() && !walk.selection.IsAncestorOf(childRelative) {
				continue
			}
			if !entry.IsDirectory() && !walk.selection.IsSelected(childRelative) {
				continue
			}
		}
		relevant = append(relevant, measuredEntry{
			absolutePath: filepath.Join(absolutePath, entry.Name),
			relativePath: childRelative,
			entry:        entry,
			weight:       1,
			protected:    walk.selection.Protects(childRelative),
		})
	}
	return relevant
}

// measure weighs every directory child concurrently. Files keep weight 1.
func (walk *traversal) measure(ctx context.Context, relevant []measuredEntry) ([]measuredEntry, int, error) {
	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(walk.workers)
	limit := walk.policy.countLimit()
	for index := range relevant {
		if !relevant[index].entry.IsDirectory() {
			continue
		}
		group.Go(func() error {
			weight, countError := walk.counter.count(groupContext, relevant[index].absolutePath, relevant[index].relativePath, limit)
			if countError != nil {
				return countError
			}
			relevant[index].weight = weight
			relevant[index].capped = weight >= limit
			return nil
		})
	}
	if waitError := group.Wait(); waitError != nil {
		return nil, 0, waitError
	}
	totalWeight := 0
	for _, measured := range relevant {
		totalWeight += measured.weight
	}
	return relevant, totalWeight, nil
}

func (walk *traversal) plan(relativePath string, measured []measuredEntry, totalWeight int, mode Mode, scopeRoot bool) []plannedSlot {
	if walk.policy.fits(len(measured), totalWeight) {
		slots := make([]plannedSlot, 0, len(measured))
		for _, candidate := range measured {
			slots = append(slots, plannedSlot{action: slotExpand, measured: candidate})
		}
		return slots
	}
	slots := walk.policy.applyHeavy(measured, totalWeight)
	if scopeRoot || (mode == ModeFiles && walk.selection.HasSelectionInside(relativePath)) {
		return slots
	}
	return walk.policy.applySmart(slots)
}

// expand turns planned slots into child nodes, recursing into kept
// directories concurrently. The order of slots is preserved.
func (walk *traversal) expand(ctx context.Context, parentPath string, slots []plannedSlot, mode Mode) ([]*TreeNode, int, error) {
	results := make([]builtNode, len(slots))
	group, groupContext := errgroup.WithContext(ctx)
	group.SetLimit(walk.workers)
	for index, slot := range slots {
		switch slot.action {
		case slotCollapse:
			results[index] = walk.collapse(parentPath, slot)
		case slotMiddle:
			results[index] = walk.collapseMiddle(parentPath, slot)
		default:
			measured := slot.measured
			if !measured.entry.IsDirectory() {
				results[index] = builtNode{node: newFileNode(measured.entry.Name, measured.relativePath), count: 1}
				continue
			}
			group.Go(func() error {
				built, buildError := walk.buildDirectory(groupContext, measured.absolutePath, measured.relativePath, measured.entry.Name, mode, false)
				if buildError != nil {
					return buildError
				}
				if mode == ModeFiles && walk.omitEmpty(built.node) {
					return nil
				}
				built.count++
				results[index] = built
				return nil
			})
		}
	}
	if waitError := group.Wait(); waitError != nil {
		return nil, 0, waitError
	}

	children := make([]*TreeNode, 0, len(results))
	count := 0
	for _, result := range results {
		if result.node == nil {
			continue
		}
		children = append(children, result.node)
		count += result.count
	}
	return children, count, nil
}

// omitEmpty reports whether a files-mode directory without children should be
// left out of its parent.
func (walk *traversal) omitEmpty(node *TreeNode) bool {
	if node == nil || node.Kind != KindDirectory || len(node.Children) > 0 {
		return false
	}
	return !walk.selection.IsAncestorOf(node.RelativePath) && !walk.selection.IsSelected(node.RelativePath)
}

func (walk *traversal) collapse(parentPath string, slot plannedSlot) builtNode {
	measured := slot.measured
	node := newCollapsedNode(measured, measured.capped)
	count := 1
	if measured.entry.IsDirectory() {
		walk.truncated.Add(measured.relativePath)
		count += measured.weight
	}
	walk.reporter.Truncated(TruncationEvent{
		Reason:         slot.reason,
		ParentPath:     parentPath,
		RelativePath:   measured.relativePath,
		SkippedEntries: 1,
		AggregateCount: node.AggregateCount,
	})
	return builtNode{node: node, count: count}
}

func (walk *traversal) collapseMiddle(parentPath string, slot plannedSlot) builtNode {
	capped := false
	count := 0
	for _, skipped := range slot.skipped {
		capped = capped || skipped.capped
		count++
		if skipped.entry.IsDirectory() {
			count += skipped.weight
		}
	}
	node := newMiddleNode(slot.skipped, capped)
	walk.reporter.Truncated(TruncationEvent{
		Reason:         slot.reason,
		ParentPath:     parentPath,
		SkippedEntries: node.SkippedEntries,
		AggregateCount: node.AggregateCount,
	})
	return builtNode{node: node, count: count}
}

// IsCancellation reports whether err came from a cancelled or expired context.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
