package treesummary

import (
	"context"
	"path/filepath"
)

// Matcher decides whether a relative path is excluded from the summary.
type Matcher interface {
	Ignores(relativePath string, isDirectory bool) bool
}

type matchNothing struct{}

func (matchNothing) Ignores(string, bool) bool { return false }

// descendantCounter estimates the filtered size of a subtree up to a limit.
type descendantCounter struct {
	lister  *cachedLister
	matcher Matcher
}

type pendingDirectory struct {
	absolutePath string
	relativePath string
}

// count walks the subtree below absolutePath with an explicit stack and stops
// as soon as the running total reaches limit. Symlinks and ignored entries are
// never counted; only cancellation is returned as an error.
func (counter *descendantCounter) count(ctx context.Context, absolutePath, relativePath string, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}
	total := 0
	stack := []pendingDirectory{{absolutePath: absolutePath, relativePath: relativePath}}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, listError := counter.lister.list(ctx, current.absolutePath)
		if listError != nil {
			return total, listError
		}
		for _, entry := range entries {
			if entry.IsSymlink() {
				continue
			}
			childRelative := joinRelative(current.relativePath, entry.Name)
			if counter.matcher.Ignores(childRelative, entry.IsDirectory()) {
				continue
			}
			total++
			if total >= limit {
				return total, nil
			}
			if entry.IsDirectory() {
				stack = append(stack, pendingDirectory{
					absolutePath: filepath.Join(current.absolutePath, entry.Name),
					relativePath: childRelative,
				})
			}
		}
	}
	return total, nil
}

// filesExactlySelected reports whether the real files below absolutePath are
// exactly the selected paths below relativePath. The walk is uncapped but
// stops at the first unselected file.
func (counter *descendantCounter) filesExactlySelected(ctx context.Context, absolutePath, relativePath string, selection *SelectionIndex) (bool, error) {
	expected := selection.SelectedUnder(relativePath)
	if expected == 0 {
		return false, nil
	}
	found := 0
	stack := []pendingDirectory{{absolutePath: absolutePath, relativePath: relativePath}}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, listError := counter.lister.list(ctx, current.absolutePath)
		if listError != nil {
			return false, listError
		}
		for _, entry := range entries {
			if entry.IsSymlink() {
				continue
			}
			childRelative := joinRelative(current.relativePath, entry.Name)
			if counter.matcher.Ignores(childRelative, entry.IsDirectory()) {
				continue
			}
			if entry.IsDirectory() {
				stack = append(stack, pendingDirectory{
					absolutePath: filepath.Join(current.absolutePath, entry.Name),
					relativePath: childRelative,
				})
				continue
			}
			if !selection.IsSelected(childRelative) {
				return false, nil
			}
			found++
		}
	}
	return found == expected, nil
}

func joinRelative(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + pathSeparator + name
}
