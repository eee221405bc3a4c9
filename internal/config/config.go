// Package config loads ignore files and the ctxtree application configuration.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/tyemirov/ctxtree/internal/ignore"
	"github.com/tyemirov/ctxtree/internal/treesummary"
	"github.com/tyemirov/ctxtree/internal/utils"
)

const (
	// gitDirectoryPattern represents the pattern that matches the Git directory.
	gitDirectoryPattern = utils.GitDirectoryName + "/"
	// binarySectionHeader identifies the section listing binary file patterns.
	binarySectionHeader = "[binary]"
	// ignoreSectionHeader identifies the section listing ignore patterns.
	ignoreSectionHeader = "[ignore]"

	errorLoadIgnoreFileFormat = "loading %s from %s: %w"
	warningCloseFileFormat    = "Warning: failed to close %s: %v\n"
)

// DefaultBinaryPatterns hide common binary artifacts unless binary files are
// requested explicitly.
var DefaultBinaryPatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.bmp", "*.ico", "*.webp",
	"*.pdf", "*.zip", "*.gz", "*.tgz", "*.tar", "*.bz2", "*.xz", "*.7z", "*.rar",
	"*.exe", "*.dll", "*.so", "*.dylib", "*.a", "*.o", "*.obj", "*.class", "*.jar",
	"*.pyc", "*.wasm", "*.bin", "*.woff", "*.woff2", "*.ttf", "*.otf", "*.eot",
	"*.mp3", "*.mp4", "*.mov", "*.avi", "*.wav", "*.sqlite", "*.db",
}

// IgnoreOptions selects the ignore sources aggregated for one root.
type IgnoreOptions struct {
	ExclusionPatterns []string
	UseGitignore      bool
	UseIgnoreFile     bool
	IncludeGit        bool
	IncludeBinary     bool
}

// LoadIgnoreFilePatterns reads a specified ignore file and returns ignore patterns and binary file patterns.
//
// #nosec G304
func LoadIgnoreFilePatterns(ignoreFilePath string) ([]string, []string, error) {
	fileHandle, openFileError := os.Open(ignoreFilePath)
	if openFileError != nil {
		if os.IsNotExist(openFileError) {
			return nil, nil, nil
		}
		return nil, nil, openFileError
	}
	defer func() {
		closeError := fileHandle.Close()
		if closeError != nil {
			fmt.Fprintf(os.Stderr, warningCloseFileFormat, ignoreFilePath, closeError)
		}
	}()

	var ignorePatterns []string
	var binaryPatterns []string
	currentSectionHeader := ignoreSectionHeader
	scanner := bufio.NewScanner(fileHandle)
	for scanner.Scan() {
		trimmedLine := strings.TrimSpace(scanner.Text())
		if trimmedLine == "" || strings.HasPrefix(trimmedLine, "#") {
			continue
		}
		if strings.EqualFold(trimmedLine, binarySectionHeader) {
			currentSectionHeader = binarySectionHeader
			continue
		}
		if strings.EqualFold(trimmedLine, ignoreSectionHeader) {
			currentSectionHeader = ignoreSectionHeader
			continue
		}
		if currentSectionHeader == binarySectionHeader {
			binaryPatterns = append(binaryPatterns, trimmedLine)
			continue
		}
		ignorePatterns = append(ignorePatterns, trimmedLine)
	}
	if scanError := scanner.Err(); scanError != nil {
		return nil, nil, scanError
	}
	return ignorePatterns, binaryPatterns, nil
}

// LoadRootIgnorePatterns returns the patterns that apply from the top of
// rootDirectoryPath: the root utils.IgnoreFileName and utils.GitIgnoreFileName,
// the utils.GitDirectoryName directory unless IncludeGit is set, binary
// patterns (defaults and the root [binary] section) unless IncludeBinary is set,
// and the exclusion patterns last. Nested ignore files are read lazily by
// DirectoryMatcher.
func LoadRootIgnorePatterns(rootDirectoryPath string, options IgnoreOptions) ([]string, error) {
	rootPatterns, rootBinaryPatterns, loadError := loadDirectoryIgnoreFiles(rootDirectoryPath, options)
	if loadError != nil {
		return nil, loadError
	}
	if !options.IncludeGit {
		rootPatterns = append(rootPatterns, gitDirectoryPattern)
	}
	if !options.IncludeBinary {
		rootPatterns = append(rootPatterns, DefaultBinaryPatterns...)
		rootPatterns = append(rootPatterns, rootBinaryPatterns...)
	}

	deduplicatedPatterns := utils.DeduplicatePatterns(rootPatterns)
	for _, pattern := range trimPatterns(options.ExclusionPatterns) {
		if !utils.ContainsString(deduplicatedPatterns, pattern) {
			deduplicatedPatterns = append(deduplicatedPatterns, pattern)
		}
	}
	return deduplicatedPatterns, nil
}

// loadDirectoryIgnoreFiles reads the ignore files enabled by options from one
// directory and returns its ignore and binary patterns, unprefixed.
func loadDirectoryIgnoreFiles(directoryPath string, options IgnoreOptions) ([]string, []string, error) {
	var ignorePatterns []string
	var binaryPatterns []string
	if options.UseIgnoreFile {
		patterns, binary, loadError := LoadIgnoreFilePatterns(filepath.Join(directoryPath, utils.IgnoreFileName))
		if loadError != nil {
			return nil, nil, fmt.Errorf(errorLoadIgnoreFileFormat, utils.IgnoreFileName, directoryPath, loadError)
		}
		ignorePatterns = append(ignorePatterns, patterns...)
		binaryPatterns = append(binaryPatterns, binary...)
	}
	if options.UseGitignore {
		patterns, _, loadError := LoadIgnoreFilePatterns(filepath.Join(directoryPath, utils.GitIgnoreFileName))
		if loadError != nil {
			return nil, nil, fmt.Errorf(errorLoadIgnoreFileFormat, utils.GitIgnoreFileName, directoryPath, loadError)
		}
		ignorePatterns = append(ignorePatterns, patterns...)
	}
	return ignorePatterns, binaryPatterns, nil
}

// LoadMatcher compiles the root ignore patterns of rootDirectoryPath into a
// DirectoryMatcher. Unreadable nested ignore files are reported to reporter
// and treated as empty.
func LoadMatcher(rootDirectoryPath string, options IgnoreOptions, reporter treesummary.Reporter) (*DirectoryMatcher, error) {
	patterns, loadError := LoadRootIgnorePatterns(rootDirectoryPath, options)
	if loadError != nil {
		return nil, loadError
	}
	if reporter == nil {
		reporter = treesummary.NopReporter{}
	}
	return &DirectoryMatcher{
		rootDirectoryPath: rootDirectoryPath,
		options:           options,
		root:              ignore.NewMatcher(patterns),
		nested:            xsync.NewMap[string, *ignore.Matcher](),
		reporter:          reporter,
	}, nil
}

func trimPatterns(patterns []string) []string {
	trimmed := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		trimmedPattern := strings.TrimSpace(pattern)
		if trimmedPattern == "" {
			continue
		}
		trimmed = append(trimmed, trimmedPattern)
	}
	return trimmed
}
