package treesummary

// Flatten returns the file paths of node in depth-first order, skipping
// placeholders. Each path appears once.
func Flatten(node *TreeNode) []string {
	if node == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var paths []string
	stack := []*TreeNode{node}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch current.Kind {
		case KindPlaceholder:
			continue
		case KindFile:
			if _, duplicate := seen[current.RelativePath]; duplicate {
				continue
			}
			seen[current.RelativePath] = struct{}{}
			paths = append(paths, current.RelativePath)
		case KindDirectory:
			for childIndex := len(current.Children) - 1; childIndex >= 0; childIndex-- {
				if current.Children[childIndex] != nil {
					stack = append(stack, current.Children[childIndex])
				}
			}
		}
	}
	return paths
}
