package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/tyemirov/ctxtree/internal/treesummary"
	"github.com/tyemirov/ctxtree/internal/utils"
)

const (
	selectionFileCommentPrefix   = "#"
	errorReadSelectionFileFormat = "reading selection file %s: %w"
	errorSelectionPathFormat     = "selection %q: %w"
)

// CollectSelection merges explicitly selected paths with the lines of
// selectionFile. Every path is converted relative to rootDirectoryPath,
// normalized and deduplicated in first-seen order.
func CollectSelection(rootDirectoryPath string, selected []string, selectionFile string) ([]string, error) {
	candidates := append([]string{}, selected...)
	if selectionFile != "" {
		fileCandidates, readError := readSelectionFile(selectionFile)
		if readError != nil {
			return nil, readError
		}
		candidates = append(candidates, fileCandidates...)
	}
	var selection []string
	for _, candidate := range candidates {
		relativePath, relativeError := utils.SelectionPathRelativeToRoot(rootDirectoryPath, candidate)
		if relativeError != nil {
			return nil, fmt.Errorf(errorSelectionPathFormat, candidate, relativeError)
		}
		normalized := treesummary.NormalizeRelativePath(relativePath)
		if normalized == "" {
			continue
		}
		selection = append(selection, normalized)
	}
	return utils.DeduplicatePatterns(selection), nil
}

// readSelectionFile returns the non-blank, non-comment lines of path.
//
// #nosec G304
func readSelectionFile(path string) ([]string, error) {
	fileHandle, openError := os.Open(path)
	if openError != nil {
		return nil, fmt.Errorf(errorReadSelectionFileFormat, path, openError)
	}
	defer fileHandle.Close()

	var lines []string
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, selectionFileCommentPrefix) {
			continue
		}
		lines = append(lines, line)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, fmt.Errorf(errorReadSelectionFileFormat, path, scanError)
	}
	return lines, nil
}
