// Package treesummary builds bounded summaries of directory trees. Large
// subtrees collapse into placeholders while explicitly selected paths stay
// reachable.
package treesummary

import (
	"fmt"
	"sort"
)

// NodeKind discriminates the variants of TreeNode.
type NodeKind int

const (
	KindDirectory NodeKind = iota
	KindFile
	KindPlaceholder
)

const (
	collapsedDirectoryLabelFormat = "%s/ [%s entries truncated]"
	collapsedFileLabelFormat      = "%s [truncated]"
	middleLabelFormat             = "[%d items truncated with %s entries]"
	cappedCountFormat             = "%d+"
)

// String returns the lower-case kind name used in structured output.
func (kind NodeKind) String() string {
	switch kind {
	case KindDirectory:
		return "directory"
	case KindFile:
		return "file"
	case KindPlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// TreeNode is one node of a summarized tree. Directory nodes own Children;
// placeholder nodes stand for entries that are not rendered individually.
type TreeNode struct {
	Kind         NodeKind
	Name         string
	RelativePath string
	Children     []*TreeNode

	// AggregateCount is the weight a placeholder represents.
	AggregateCount int
	// SkippedEntries is the number of sibling entries a placeholder replaces.
	SkippedEntries int
	// Capped reports that AggregateCount stopped at the counting limit.
	Capped bool
	// CollapsedDirectory marks a placeholder that replaces a single directory.
	CollapsedDirectory bool
}

// IsPlaceholder reports whether the node is a placeholder.
func (node *TreeNode) IsPlaceholder() bool {
	return node != nil && node.Kind == KindPlaceholder
}

// Label returns the text rendered for the node.
func (node *TreeNode) Label() string {
	if node == nil {
		return ""
	}
	if node.Kind != KindPlaceholder {
		return node.Name
	}
	count := fmt.Sprintf("%d", node.AggregateCount)
	if node.Capped {
		count = fmt.Sprintf(cappedCountFormat, node.AggregateCount)
	}
	if node.SkippedEntries <= 1 && node.Name != "" {
		if node.CollapsedDirectory {
			return fmt.Sprintf(collapsedDirectoryLabelFormat, node.Name, count)
		}
		return fmt.Sprintf(collapsedFileLabelFormat, node.Name)
	}
	return fmt.Sprintf(middleLabelFormat, node.SkippedEntries, count)
}

func newDirectoryNode(name, relativePath string, children []*TreeNode) *TreeNode {
	return &TreeNode{
		Kind:         KindDirectory,
		Name:         name,
		RelativePath: relativePath,
		Children:     children,
	}
}

func newFileNode(name, relativePath string) *TreeNode {
	return &TreeNode{Kind: KindFile, Name: name, RelativePath: relativePath}
}

// newCollapsedNode builds the placeholder that replaces exactly one entry.
func newCollapsedNode(measured measuredEntry, capped bool) *TreeNode {
	aggregate := measured.weight
	if !measured.entry.IsDirectory() {
		aggregate = 1
	}
	return &TreeNode{
		Kind:               KindPlaceholder,
		Name:               measured.entry.Name,
		RelativePath:       measured.relativePath,
		AggregateCount:     aggregate,
		SkippedEntries:     1,
		Capped:             capped,
		CollapsedDirectory: measured.entry.IsDirectory(),
	}
}

// newMiddleNode builds the placeholder standing in for several skipped siblings.
func newMiddleNode(skipped []measuredEntry, capped bool) *TreeNode {
	aggregate := 0
	for _, measured := range skipped {
		aggregate += measured.weight
	}
	return &TreeNode{
		Kind:           KindPlaceholder,
		AggregateCount: aggregate,
		SkippedEntries: len(skipped),
		Capped:         capped,
	}
}

// sortMeasured orders entries directories first, then by relative path.
func sortMeasured(entries []measuredEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		leftDirectory := entries[i].entry.IsDirectory()
		rightDirectory := entries[j].entry.IsDirectory()
		if leftDirectory != rightDirectory {
			return leftDirectory
		}
		return entries[i].relativePath < entries[j].relativePath
	})
}
