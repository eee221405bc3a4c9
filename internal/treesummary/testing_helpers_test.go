package treesummary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeTree creates every relative file path below root.
func writeTree(t *testing.T, root string, relativePaths ...string) {
	t.Helper()
	for _, relativePath := range relativePaths {
		absolutePath := filepath.Join(root, filepath.FromSlash(relativePath))
		require.NoError(t, os.MkdirAll(filepath.Dir(absolutePath), 0o755))
		require.NoError(t, os.WriteFile(absolutePath, []byte("x"), 0o600))
	}
}

func numberedFiles(directory, format string, count int) []string {
	files := make([]string, 0, count)
	for index := 0; index < count; index++ {
		files = append(files, path.Join(directory, fmt.Sprintf(format, index)))
	}
	return files
}

// renderForTest draws a tree the same way the output package does, so that
// tests here can compare shapes without importing it.
func renderForTest(node *TreeNode) string {
	var builder strings.Builder
	builder.WriteString(node.Label())
	builder.WriteString("\n")
	var walk func(current *TreeNode, prefix string)
	walk = func(current *TreeNode, prefix string) {
		for index, child := range current.Children {
			connector, continuation := "├─ ", "│  "
			if index == len(current.Children)-1 {
				connector, continuation = "└─ ", "   "
			}
			builder.WriteString(prefix + connector + child.Label() + "\n")
			if child.Kind == KindDirectory {
				walk(child, prefix+continuation)
			}
		}
	}
	walk(node, "")
	return builder.String()
}

func childNames(node *TreeNode) []string {
	names := make([]string, 0, len(node.Children))
	for _, child := range node.Children {
		names = append(names, child.Label())
	}
	return names
}

func findChild(node *TreeNode, name string) *TreeNode {
	for _, child := range node.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// memoryProvider serves listings from an in-memory tree keyed by absolute
// path. Paths in failing return an error; paths in blocking wait for ctx.
type memoryProvider struct {
	mutex    sync.Mutex
	entries  map[string][]Entry
	failing  map[string]error
	blocking map[string]struct{}
	calls    map[string]int
}

func newMemoryProvider(root string, files ...string) *memoryProvider {
	provider := &memoryProvider{
		entries:  make(map[string][]Entry),
		failing:  make(map[string]error),
		blocking: make(map[string]struct{}),
		calls:    make(map[string]int),
	}
	seen := make(map[string]struct{})
	provider.entries[root] = nil
	for _, file := range files {
		segments := strings.Split(file, "/")
		parent := root
		for index, segment := range segments {
			current := filepath.Join(parent, segment)
			if _, exists := seen[current]; !exists {
				seen[current] = struct{}{}
				kind := EntryDirectory
				if index == len(segments)-1 {
					kind = EntryFile
				}
				provider.entries[parent] = append(provider.entries[parent], Entry{Name: segment, Kind: kind})
				if kind == EntryDirectory {
					if _, listed := provider.entries[current]; !listed {
						provider.entries[current] = nil
					}
				}
			}
			parent = current
		}
	}
	for directory := range provider.entries {
		sort.Slice(provider.entries[directory], func(i, j int) bool {
			return provider.entries[directory][i].Name > provider.entries[directory][j].Name
		})
	}
	return provider
}

func (provider *memoryProvider) addSymlink(directory, name string) {
	provider.mutex.Lock()
	defer provider.mutex.Unlock()
	provider.entries[directory] = append(provider.entries[directory], Entry{Name: name, Kind: EntrySymlink})
}

func (provider *memoryProvider) fail(directory string, err error) {
	provider.mutex.Lock()
	defer provider.mutex.Unlock()
	provider.failing[directory] = err
}

func (provider *memoryProvider) block(directory string) {
	provider.mutex.Lock()
	defer provider.mutex.Unlock()
	provider.blocking[directory] = struct{}{}
}

func (provider *memoryProvider) callCount(directory string) int {
	provider.mutex.Lock()
	defer provider.mutex.Unlock()
	return provider.calls[directory]
}

func (provider *memoryProvider) ListEntries(ctx context.Context, absolutePath string) ([]Entry, error) {
	provider.mutex.Lock()
	provider.calls[absolutePath]++
	failure := provider.failing[absolutePath]
	_, blocked := provider.blocking[absolutePath]
	entries, exists := provider.entries[absolutePath]
	provider.mutex.Unlock()

	if blocked {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if failure != nil {
		return nil, failure
	}
	if !exists {
		return nil, os.ErrNotExist
	}
	return append([]Entry(nil), entries...), nil
}

// recordingReporter keeps every diagnostic it receives.
type recordingReporter struct {
	mutex     sync.Mutex
	warnings  map[string]error
	truncated []TruncationEvent
}

func newRecordingReporter() *recordingReporter {
	return &recordingReporter{warnings: make(map[string]error)}
}

func (reporter *recordingReporter) Warn(path string, err error) {
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	reporter.warnings[path] = err
}

func (reporter *recordingReporter) Truncated(event TruncationEvent) {
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	reporter.truncated = append(reporter.truncated, event)
}

func (reporter *recordingReporter) warning(path string) error {
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	return reporter.warnings[path]
}

// prefixMatcher ignores any path equal to or below one of its prefixes.
type prefixMatcher []string

func (matcher prefixMatcher) Ignores(relativePath string, _ bool) bool {
	for _, prefix := range matcher {
		if relativePath == prefix || strings.HasPrefix(relativePath, prefix+"/") {
			return true
		}
	}
	return false
}

var errPermissionDenied = errors.New("permission denied")

const memoryRoot = "/memory/root"

func buildInMemory(t *testing.T, provider *memoryProvider, options Options, request Request) Result {
	t.Helper()
	options.Provider = provider
	if options.OperationTimeout == 0 {
		options.OperationTimeout = time.Second
	}
	request.RootPath = memoryRoot
	result, buildError := NewBuilder(options).Build(context.Background(), request)
	require.NoError(t, buildError)
	return result
}
