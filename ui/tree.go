// Package ui holds the box-drawing vocabulary used when rendering run
// results as a tree.
package ui

// Tree hierarchy symbols using box drawing characters
const (
	TreeBranch     = "├── " // Branch connector
	TreeLastBranch = "└── " // Last branch connector
	TreeVertical   = "│"    // Vertical line for continuing hierarchy

	TreeContinue = "│   " // Parent has more siblings
	TreeIndent   = "    " // Parent was last, no vertical line needed
)

// Connector returns the branch connector for entry i of n siblings.
func Connector(i, n int) string {
	if i == n-1 {
		return TreeLastBranch
	}
	return TreeBranch
}

// ChildIndent returns the indentation children of entry i of n siblings
// should carry.
func ChildIndent(i, n int) string {
	if i == n-1 {
		return TreeIndent
	}
	return TreeContinue
}
