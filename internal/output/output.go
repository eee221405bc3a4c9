package output

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/tyemirov/ctxtree/internal/treesummary"
	"github.com/tyemirov/ctxtree/internal/types"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	xmlHeader = xml.Header

	treeBranchConnector = "├─ "
	treeLastConnector   = "└─ "
	treeBranchPadding   = "│  "
	treeLastPadding     = "   "

	truncatedHeader = "Truncated directories:"
	filesHeader     = "Files:"
	listItemFormat  = "  %s\n"
)

func treeNodeLinePrefix(prefix string, isLast bool) (string, string) {
	if isLast {
		return prefix + treeLastConnector, prefix + treeLastPadding
	}
	return prefix + treeBranchConnector, prefix + treeBranchPadding
}

func renderTreeNode(builder *strings.Builder, node *treesummary.TreeNode, prefix string) {
	for index, child := range node.Children {
		if child == nil {
			continue
		}
		linePrefix, childPrefix := treeNodeLinePrefix(prefix, index == len(node.Children)-1)
		builder.WriteString(linePrefix)
		builder.WriteString(child.Label())
		builder.WriteString("\n")
		if child.Kind == treesummary.KindDirectory {
			renderTreeNode(builder, child, childPrefix)
		}
	}
}

// RenderASCII renders the children of node, one line per node, with prefix
// prepended to every line.
func RenderASCII(node *treesummary.TreeNode, prefix string) string {
	if node == nil {
		return ""
	}
	var builder strings.Builder
	renderTreeNode(&builder, node, prefix)
	return builder.String()
}

// RenderTree renders node as a complete tree headed by the root label.
func RenderTree(node *treesummary.TreeNode) string {
	if node == nil {
		return ""
	}
	return node.Label() + "\n" + RenderASCII(node, "")
}

// WriteTreeRaw renders a summarized tree to the provided writer.
func WriteTreeRaw(writer io.Writer, node *treesummary.TreeNode) error {
	_, writeError := io.WriteString(writer, RenderTree(node))
	return writeError
}

// ConvertTree maps a summarized tree onto its serializable form.
func ConvertTree(node *treesummary.TreeNode) *types.SummaryNode {
	if node == nil {
		return nil
	}
	converted := &types.SummaryNode{
		Type: node.Kind.String(),
		Name: node.Name,
		Path: node.RelativePath,
	}
	if node.IsPlaceholder() {
		converted.Label = node.Label()
		converted.AggregateCount = node.AggregateCount
		converted.SkippedEntries = node.SkippedEntries
		converted.Capped = node.Capped
		return converted
	}
	if len(node.Children) > 0 {
		converted.Children = make([]*types.SummaryNode, 0, len(node.Children))
		for _, child := range node.Children {
			if child == nil {
				continue
			}
			converted.Children = append(converted.Children, ConvertTree(child))
		}
	}
	return converted
}

// DocumentInput carries everything BuildDocument needs besides the tree.
type DocumentInput struct {
	RootPath  string
	Mode      treesummary.Mode
	Limits    treesummary.Limits
	Selection []string
	Result    treesummary.Result
	ListFiles bool
}

// BuildDocument assembles the document rendered by every output format.
func BuildDocument(input DocumentInput) *types.SummaryDocument {
	truncated := input.Result.Truncated
	if truncated == nil {
		truncated = []string{}
	}
	document := &types.SummaryDocument{
		Root: input.RootPath,
		Mode: input.Mode.String(),
		Limits: types.SummaryLimits{
			MaxTotalDescendants: input.Limits.MaxTotalDescendants,
			MaxDirectChildren:   input.Limits.MaxDirectChildren,
		},
		Entries:              input.Result.Count,
		Selection:            input.Selection,
		Tree:                 ConvertTree(input.Result.Root),
		ASCII:                RenderTree(input.Result.Root),
		TruncatedDirectories: truncated,
	}
	if input.ListFiles {
		document.Files = input.Result.FilePaths()
	}
	return document
}

// FormatSummaryLine formats the one-line summary printed by the raw renderer.
func FormatSummaryLine(document *types.SummaryDocument) string {
	if document == nil {
		document = &types.SummaryDocument{}
	}
	entryLabel := "entries"
	if document.Entries == 1 {
		entryLabel = "entry"
	}
	directoryLabel := "directories"
	if len(document.TruncatedDirectories) == 1 {
		directoryLabel = "directory"
	}
	extra := ""
	if document.Tokens > 0 {
		extra = fmt.Sprintf(", %d tokens", document.Tokens)
	}
	modelSuffix := ""
	if document.Model != "" {
		modelSuffix = fmt.Sprintf(" (model: %s)", document.Model)
	}
	return fmt.Sprintf("Summary: %d %s, %d truncated %s%s%s", document.Entries, entryLabel, len(document.TruncatedDirectories), directoryLabel, extra, modelSuffix)
}
