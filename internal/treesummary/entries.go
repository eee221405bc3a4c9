package treesummary

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/semaphore"
)

const (
	errorListingTimeoutFormat = "listing %s exceeded %s"
	errorListDirectoryFormat  = "reading directory %s: %w"
)

// ErrListingTimeout marks a directory listing that did not finish before its
// deadline.
var ErrListingTimeout = errors.New("directory listing timed out")

// EntryKind classifies a directory entry.
type EntryKind int

const (
	EntryFile EntryKind = iota
	EntryDirectory
	EntrySymlink
)

// Entry is one immediate child of a directory.
type Entry struct {
	Name string
	Kind EntryKind
}

// IsDirectory reports whether the entry is a real directory.
func (entry Entry) IsDirectory() bool {
	return entry.Kind == EntryDirectory
}

// IsSymlink reports whether the entry is a symbolic link.
func (entry Entry) IsSymlink() bool {
	return entry.Kind == EntrySymlink
}

// EntryProvider lists the immediate children of a directory.
type EntryProvider interface {
	ListEntries(ctx context.Context, absolutePath string) ([]Entry, error)
}

// OSEntryProvider lists directories on the local filesystem.
type OSEntryProvider struct{}

// ListEntries reads absolutePath without following symbolic links.
func (OSEntryProvider) ListEntries(ctx context.Context, absolutePath string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	directoryEntries, readError := os.ReadDir(absolutePath)
	if readError != nil {
		return nil, fmt.Errorf(errorListDirectoryFormat, absolutePath, readError)
	}
	entries := make([]Entry, 0, len(directoryEntries))
	for _, directoryEntry := range directoryEntries {
		entries = append(entries, Entry{
			Name: directoryEntry.Name(),
			Kind: entryKindOf(directoryEntry.Type()),
		})
	}
	return entries, nil
}

func entryKindOf(mode fs.FileMode) EntryKind {
	switch {
	case mode&fs.ModeSymlink != 0:
		return EntrySymlink
	case mode.IsDir():
		return EntryDirectory
	default:
		return EntryFile
	}
}

type listingResult struct {
	entries []Entry
	err     error
}

// cachedLister wraps an EntryProvider with a per-call cache, the shared worker
// pool and a per-operation deadline. Failures other than cancellation are
// reported and cached as empty listings.
type cachedLister struct {
	provider EntryProvider
	pool     *semaphore.Weighted
	timeout  time.Duration
	reporter Reporter
	root     string
	cache    *xsync.Map[string, []Entry]
}

func newCachedLister(provider EntryProvider, pool *semaphore.Weighted, timeout time.Duration, reporter Reporter, root string) *cachedLister {
	return &cachedLister{
		provider: provider,
		pool:     pool,
		timeout:  timeout,
		reporter: reporter,
		root:     root,
		cache:    xsync.NewMap[string, []Entry](),
	}
}

// list returns the cached entries for absolutePath, reading them on a miss.
// Concurrent misses on the same path may read twice; the writes are identical.
func (lister *cachedLister) list(ctx context.Context, absolutePath string) ([]Entry, error) {
	if cached, found := lister.cache.Load(absolutePath); found {
		return cached, nil
	}
	entries, listError := lister.listWithDeadline(ctx, absolutePath)
	if listError != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lister.reporter.Warn(relativeOrAbsolute(lister.root, absolutePath), listError)
		entries = nil
	}
	lister.cache.Store(absolutePath, entries)
	return entries, nil
}

func (lister *cachedLister) listWithDeadline(ctx context.Context, absolutePath string) ([]Entry, error) {
	if acquireError := lister.pool.Acquire(ctx, 1); acquireError != nil {
		return nil, acquireError
	}
	if lister.timeout <= 0 {
		defer lister.pool.Release(1)
		return lister.provider.ListEntries(ctx, absolutePath)
	}

	operationContext, cancel := context.WithTimeout(ctx, lister.timeout)
	defer cancel()

	results := make(chan listingResult, 1)
	go func() {
		// The slot stays taken until the read returns, even after a deadline.
		defer lister.pool.Release(1)
		entries, err := lister.provider.ListEntries(operationContext, absolutePath)
		results <- listingResult{entries: entries, err: err}
	}()

	select {
	case result := <-results:
		if result.err != nil && ctx.Err() == nil && errors.Is(operationContext.Err(), context.DeadlineExceeded) {
			return nil, lister.timeoutError(absolutePath)
		}
		return result.entries, result.err
	case <-operationContext.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, lister.timeoutError(absolutePath)
	}
}

func (lister *cachedLister) timeoutError(absolutePath string) error {
	return fmt.Errorf(errorListingTimeoutFormat+": %w", absolutePath, lister.timeout, ErrListingTimeout)
}

// size reports how many directories were listed during the call.
func (lister *cachedLister) size() int {
	return lister.cache.Size()
}
