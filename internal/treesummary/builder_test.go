package treesummary

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func heavyVendorFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, "src/a.ts", "src/b.ts")
	writeTree(t, root, numberedFiles("vendor", "lib%04d.js", 999)...)
	writeTree(t, root, "vendor/keep.ts")
	return root
}

func TestBuildCollapsesHeavyDirectory(t *testing.T) {
	root := heavyVendorFixture(t)
	reporter := newRecordingReporter()

	result, buildError := NewBuilder(Options{Reporter: reporter}).Build(context.Background(), Request{RootPath: root})
	require.NoError(t, buildError)

	require.Equal(t, filepath.Base(root), result.Root.Name)
	require.Equal(t, []string{"src", "vendor/ [1000 entries truncated]"}, childNames(result.Root))
	vendor := findChild(result.Root, "vendor")
	require.NotNil(t, vendor)
	require.True(t, vendor.IsPlaceholder())
	require.Equal(t, 1000, vendor.AggregateCount)
	require.False(t, vendor.Capped)

	require.Equal(t, []string{"vendor"}, result.Truncated)
	require.Equal(t, []string{"src/a.ts", "src/b.ts"}, Flatten(result.Root))
	require.Equal(t, []string{"src/a.ts", "src/b.ts"}, result.FilePaths())
	require.Equal(t, 1004, result.Count)
	require.Equal(t, 3, result.DirectoriesListed)

	require.Len(t, reporter.truncated, 1)
	require.Equal(t, ReasonHeavy, reporter.truncated[0].Reason)
	require.Equal(t, "vendor", reporter.truncated[0].RelativePath)
}

func TestBuildKeepsSelectionInsideHeavyDirectory(t *testing.T) {
	root := heavyVendorFixture(t)

	testCases := []struct {
		name          string
		mode          Mode
		expectedFiles []string
	}{
		{name: "directory mode", mode: ModeDirectory},
		{name: "files mode", mode: ModeFiles, expectedFiles: []string{"vendor/keep.ts"}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			result, buildError := NewBuilder(Options{}).Build(context.Background(), Request{
				RootPath:  root,
				Selection: []string{"vendor/keep.ts"},
				Mode:      testCase.mode,
			})
			require.NoError(t, buildError)
			require.NotContains(t, result.Truncated, "vendor")
			vendor := findChild(result.Root, "vendor")
			require.NotNil(t, vendor)
			require.Equal(t, KindDirectory, vendor.Kind)

			files := result.FilePaths()
			require.Contains(t, files, "vendor/keep.ts")
			require.False(t, IsUnderAny("vendor/keep.ts", result.Truncated))
			if testCase.expectedFiles != nil {
				require.Equal(t, testCase.expectedFiles, files)
			}
		})
	}
}

func TestBuildSmartTruncatesManySiblings(t *testing.T) {
	var files []string
	for index := 0; index < 200; index++ {
		files = append(files, fmt.Sprintf("packages/pkg%03d/index.ts", index))
	}
	provider := newMemoryProvider(memoryRoot, files...)
	reporter := newRecordingReporter()

	result := buildInMemory(t, provider, Options{
		Limits:   Limits{MaxTotalDescendants: 1000, MaxDirectChildren: 50},
		Reporter: reporter,
	}, Request{})

	packages := findChild(result.Root, "packages")
	require.NotNil(t, packages)
	require.Len(t, packages.Children, 51)
	require.Equal(t, "pkg000", packages.Children[0].Name)
	require.Equal(t, "pkg024", packages.Children[24].Name)
	middle := packages.Children[25]
	require.True(t, middle.IsPlaceholder())
	require.Equal(t, 150, middle.SkippedEntries)
	require.Equal(t, "[150 items truncated with 150 entries]", middle.Label())
	require.Equal(t, "pkg175", packages.Children[26].Name)
	require.Equal(t, "pkg199", packages.Children[50].Name)

	flattened := Flatten(result.Root)
	require.Len(t, flattened, 50)
	require.Equal(t, "packages/pkg000/index.ts", flattened[0])
	require.Equal(t, "packages/pkg199/index.ts", flattened[49])
	require.NotContains(t, flattened, "packages/pkg100/index.ts")
	require.Empty(t, result.Truncated)

	require.Len(t, reporter.truncated, 1)
	require.Equal(t, ReasonSmart, reporter.truncated[0].Reason)
	require.Equal(t, 150, reporter.truncated[0].SkippedEntries)
}

func TestBuildNeverTruncatesRootChildren(t *testing.T) {
	provider := newMemoryProvider(memoryRoot, numberedFiles("", "file%03d.txt", 100)...)

	result := buildInMemory(t, provider, Options{Limits: Limits{MaxTotalDescendants: 30, MaxDirectChildren: 10}}, Request{})

	require.Len(t, result.Root.Children, 100)
	for _, child := range result.Root.Children {
		require.False(t, child.IsPlaceholder())
	}
}

func TestBuildBoundsChildrenOfNestedDirectories(t *testing.T) {
	var files []string
	files = append(files, numberedFiles("flat", "file%03d.txt", 100)...)
	files = append(files, numberedFiles("wide", "entry%03d/item.txt", 120)...)
	provider := newMemoryProvider(memoryRoot, files...)
	limits := Limits{MaxTotalDescendants: 1000, MaxDirectChildren: 10}

	result := buildInMemory(t, provider, Options{Limits: limits}, Request{})

	var visit func(node *TreeNode)
	visit = func(node *TreeNode) {
		for _, child := range node.Children {
			if child.Kind != KindDirectory {
				continue
			}
			require.LessOrEqual(t, len(child.Children), limits.MaxDirectChildren+1, child.RelativePath)
			visit(child)
		}
	}
	visit(result.Root)
}

func TestBuildScalesChildLimitWithWeight(t *testing.T) {
	provider := newMemoryProvider(memoryRoot, numberedFiles("flat", "file%03d.txt", 600)...)

	result := buildInMemory(t, provider, Options{Limits: Limits{MaxTotalDescendants: 1000, MaxDirectChildren: 40}}, Request{})
	flat := findChild(result.Root, "flat")
	require.Len(t, flat.Children, 41)

	var files []string
	for directoryIndex := 0; directoryIndex < 30; directoryIndex++ {
		files = append(files, numberedFiles(fmt.Sprintf("wide/s%02d", directoryIndex), "f%02d.txt", 20)...)
	}
	provider = newMemoryProvider(memoryRoot, files...)
	result = buildInMemory(t, provider, Options{Limits: Limits{MaxTotalDescendants: 300, MaxDirectChildren: 40}}, Request{
		Selection: []string{"wide/s00/f00.txt"},
		Mode:      ModeDirectory,
	})
	wide := findChild(result.Root, "wide")
	require.Equal(t, KindDirectory, wide.Kind)
	require.Len(t, wide.Children, 21)
	require.Equal(t, "[10 items truncated with 200 entries]", wide.Children[10].Label())
}

func TestBuildIsDeterministic(t *testing.T) {
	root := heavyVendorFixture(t)
	writeTree(t, root, numberedFiles("docs", "page%02d.md", 60)...)
	builder := NewBuilder(Options{Workers: 4, Limits: Limits{MaxTotalDescendants: 300, MaxDirectChildren: 12}})

	first, firstError := builder.Build(context.Background(), Request{RootPath: root})
	require.NoError(t, firstError)
	for attempt := 0; attempt < 5; attempt++ {
		repeated, repeatedError := builder.Build(context.Background(), Request{RootPath: root})
		require.NoError(t, repeatedError)
		require.Equal(t, renderForTest(first.Root), renderForTest(repeated.Root))
		require.Equal(t, first.Truncated, repeated.Truncated)
	}
}

func TestBuildFilesModeDelegatesExhaustiveSelection(t *testing.T) {
	var libraryFiles []string
	libraryFiles = append(libraryFiles, "lib/x.ts", "lib/y/w.ts", "lib/y/z.ts")
	libraryFiles = append(libraryFiles, numberedFiles("lib/gen", "g%02d.ts", 30)...)
	root := t.TempDir()
	writeTree(t, root, "src/a.ts", "src/b.ts")
	writeTree(t, root, libraryFiles...)
	limits := Limits{MaxTotalDescendants: 300, MaxDirectChildren: 8}
	builder := NewBuilder(Options{Limits: limits})

	selection := append([]string{"src/a.ts"}, libraryFiles...)
	filesResult, filesError := builder.Build(context.Background(), Request{RootPath: root, Selection: selection, Mode: ModeFiles})
	require.NoError(t, filesError)

	rebased := make([]string, 0, len(libraryFiles))
	for _, libraryFile := range libraryFiles {
		rebased = append(rebased, strings.TrimPrefix(libraryFile, "lib/"))
	}
	directoryResult, directoryError := builder.Build(context.Background(), Request{
		RootPath:  filepath.Join(root, "lib"),
		Selection: rebased,
		Mode:      ModeDirectory,
	})
	require.NoError(t, directoryError)

	library := findChild(filesResult.Root, "lib")
	require.NotNil(t, library)
	require.Equal(t, renderForTest(directoryResult.Root), renderForTest(library))

	var libraryPaths []string
	for _, filePath := range Flatten(filesResult.Root) {
		if strings.HasPrefix(filePath, "lib/") {
			libraryPaths = append(libraryPaths, strings.TrimPrefix(filePath, "lib/"))
		}
	}
	require.Equal(t, Flatten(directoryResult.Root), libraryPaths)
	require.Equal(t, []string{"a.ts"}, childNames(findChild(filesResult.Root, "src")))
}

func TestBuildSelectionAlwaysReachable(t *testing.T) {
	var files []string
	for directoryIndex := 0; directoryIndex < 20; directoryIndex++ {
		files = append(files, numberedFiles(fmt.Sprintf("vendor/d%02d", directoryIndex), "f%03d.js", 50)...)
	}
	files = append(files, "vendor/deep/nested/keep.ts", "src/a.ts", "src/b.ts")

	selections := [][]string{
		{"vendor/deep/nested/keep.ts"},
		{"vendor/d05/f010.js", "src/a.ts"},
		{"vendor/d19/f049.js", "vendor/d00/f000.js", "vendor/d10/f025.js"},
	}
	for _, mode := range []Mode{ModeDirectory, ModeFiles} {
		for _, selection := range selections {
			t.Run(fmt.Sprintf("%s %v", mode, selection), func(t *testing.T) {
				provider := newMemoryProvider(memoryRoot, files...)
				result := buildInMemory(t, provider, Options{}, Request{Selection: selection, Mode: mode})
				flattened := result.FilePaths()
				for _, selected := range selection {
					require.Contains(t, flattened, selected)
					require.False(t, IsUnderAny(selected, result.Truncated))
				}
			})
		}
	}
}

func TestBuildFlattenMatchesRenderedFiles(t *testing.T) {
	var files []string
	for directoryIndex := 0; directoryIndex < 12; directoryIndex++ {
		files = append(files, numberedFiles(fmt.Sprintf("m%02d", directoryIndex), "f%02d.go", 15)...)
	}
	files = append(files, "m03/nested/deep.go", "README.md")
	provider := newMemoryProvider(memoryRoot, files...)
	result := buildInMemory(t, provider, Options{Limits: Limits{MaxTotalDescendants: 100, MaxDirectChildren: 6}}, Request{})

	rendered := renderForTest(result.Root)
	require.Contains(t, rendered, "items truncated with")

	renderedFiles := renderedFilePaths(rendered)
	flattened := Flatten(result.Root)
	require.NotEmpty(t, renderedFiles)
	require.ElementsMatch(t, renderedFiles, flattened)

	seen := map[string]struct{}{}
	for _, filePath := range flattened {
		_, duplicate := seen[filePath]
		require.False(t, duplicate, "path %s flattened twice", filePath)
		seen[filePath] = struct{}{}
	}
}

// renderedFilePaths rebuilds relative file paths from an ASCII rendering. A
// line followed by a deeper line is a directory; placeholder lines are skipped.
func renderedFilePaths(rendered string) []string {
	type renderedLine struct {
		depth int
		label string
	}
	const connectorTail = "─ "
	var lines []renderedLine
	for _, line := range strings.Split(strings.TrimSuffix(rendered, "\n"), "\n")[1:] {
		labelStart := strings.Index(line, connectorTail) + len(connectorTail)
		label := line[labelStart:]
		depth := (len([]rune(line))-len([]rune(label)))/3 - 1
		lines = append(lines, renderedLine{depth: depth, label: label})
	}

	var directories []string
	var paths []string
	for index, line := range lines {
		directories = directories[:line.depth]
		if index+1 < len(lines) && lines[index+1].depth > line.depth {
			directories = append(directories, line.label)
			continue
		}
		if strings.Contains(line.label, "[") {
			continue
		}
		paths = append(paths, strings.Join(append(append([]string{}, directories...), line.label), "/"))
	}
	return paths
}

func TestBuildSkipsIgnoredEntriesAndSymlinks(t *testing.T) {
	provider := newMemoryProvider(memoryRoot, "src/a.ts", "node_modules/pkg/index.js", "README.md")
	provider.addSymlink(memoryRoot, "link")

	result := buildInMemory(t, provider, Options{}, Request{Matcher: prefixMatcher{"node_modules"}})

	require.Equal(t, []string{"src", "README.md"}, childNames(result.Root))
	require.Equal(t, 0, provider.callCount(filepath.Join(memoryRoot, "node_modules")))
	require.Equal(t, 3, result.Count)
}

func TestBuildFilesModeOmitsEmptyDirectories(t *testing.T) {
	provider := newMemoryProvider(memoryRoot, "a/b.ts")
	provider.entries[memoryRoot] = append(provider.entries[memoryRoot], Entry{Name: "empty", Kind: EntryDirectory})
	provider.entries[filepath.Join(memoryRoot, "empty")] = nil

	directoryResult := buildInMemory(t, provider, Options{}, Request{Mode: ModeDirectory})
	require.Equal(t, []string{"a", "empty"}, childNames(directoryResult.Root))

	filesResult := buildInMemory(t, provider, Options{}, Request{Mode: ModeFiles})
	require.Equal(t, []string{"a"}, childNames(filesResult.Root))
}

func TestBuildRecoversFromUnreadableDirectory(t *testing.T) {
	provider := newMemoryProvider(memoryRoot, "locked/secret.txt", "open/visible.txt")
	provider.fail(filepath.Join(memoryRoot, "locked"), errPermissionDenied)
	reporter := newRecordingReporter()

	result := buildInMemory(t, provider, Options{Reporter: reporter}, Request{})

	locked := findChild(result.Root, "locked")
	require.NotNil(t, locked)
	require.Equal(t, KindDirectory, locked.Kind)
	require.Empty(t, locked.Children)
	require.ErrorIs(t, reporter.warning("locked"), errPermissionDenied)
	require.Equal(t, []string{"open/visible.txt"}, Flatten(result.Root))
	require.Equal(t, 1, provider.callCount(filepath.Join(memoryRoot, "locked")))
}

func TestBuildTreatsListingTimeoutAsUnreadable(t *testing.T) {
	provider := newMemoryProvider(memoryRoot, "slow/file.txt", "fast/file.txt")
	provider.block(filepath.Join(memoryRoot, "slow"))
	reporter := newRecordingReporter()

	result := buildInMemory(t, provider, Options{Reporter: reporter, OperationTimeout: 50 * time.Millisecond}, Request{})

	slow := findChild(result.Root, "slow")
	require.NotNil(t, slow)
	require.Empty(t, slow.Children)
	require.ErrorIs(t, reporter.warning("slow"), ErrListingTimeout)
	require.Equal(t, []string{"fast/file.txt"}, Flatten(result.Root))
}

func TestBuildFailsFastOnCancellation(t *testing.T) {
	t.Run("cancelled before start", func(t *testing.T) {
		provider := newMemoryProvider(memoryRoot, "a/b.txt")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, buildError := NewBuilder(Options{Provider: provider}).Build(ctx, Request{RootPath: memoryRoot})
		require.Error(t, buildError)
		require.True(t, IsCancellation(buildError))
	})

	t.Run("cancelled while listing", func(t *testing.T) {
		provider := newMemoryProvider(memoryRoot, "stuck/b.txt", "other/c.txt")
		provider.block(filepath.Join(memoryRoot, "stuck"))
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, buildError := NewBuilder(Options{Provider: provider, OperationTimeout: time.Minute}).Build(ctx, Request{RootPath: memoryRoot})
		require.Error(t, buildError)
		require.True(t, IsCancellation(buildError))
	})
}

func TestBuildReportsCappedCounts(t *testing.T) {
	provider := newMemoryProvider(memoryRoot, append([]string{"src/a.ts"}, numberedFiles("cache", "blob%04d", 1000)...)...)

	result := buildInMemory(t, provider, Options{
		Limits:     Limits{MaxTotalDescendants: 300, MaxDirectChildren: 40},
		Heuristics: Heuristics{CountCap: 400},
	}, Request{})

	cache := findChild(result.Root, "cache")
	require.True(t, cache.IsPlaceholder())
	require.True(t, cache.Capped)
	require.Equal(t, "cache/ [400+ entries truncated]", cache.Label())
}

func TestIsCancellation(t *testing.T) {
	require.True(t, IsCancellation(context.Canceled))
	require.True(t, IsCancellation(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	require.False(t, IsCancellation(errors.New("other")))
	require.False(t, IsCancellation(ErrListingTimeout))
}

func TestParseMode(t *testing.T) {
	testCases := []struct {
		input       string
		expected    Mode
		expectError bool
	}{
		{input: "directory", expected: ModeDirectory},
		{input: "dir", expected: ModeDirectory},
		{input: "files", expected: ModeFiles},
		{input: "file", expected: ModeFiles},
		{input: "tree", expectError: true},
	}
	for _, testCase := range testCases {
		mode, parseError := ParseMode(testCase.input)
		if testCase.expectError {
			require.Error(t, parseError, testCase.input)
			continue
		}
		require.NoError(t, parseError, testCase.input)
		require.Equal(t, testCase.expected, mode)
		require.Equal(t, testCase.expected.String(), mode.String())
	}
}
