package tree

import (
	"errors"
	"strings"
)

// PathSeparator joins category names into a materialized path.
const PathSeparator = " > "

// ErrInvalidCategory marks input records that cannot be placed in a tree at all.
var ErrInvalidCategory = errors.New("tree: invalid category")

// Category is a flat category record with an optional parent pointer.
type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parentCategoryId"`
}

// Node is a category placed in the forest.
type Node struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	ParentID *int64  `json:"parentCategoryId"`
	Path     string  `json:"path"`
	Children []*Node `json:"children"`
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n == nil || len(n.Children) == 0
}

// DiagnosticKind classifies a structural problem found while building.
type DiagnosticKind string

const (
	KindOrphan      DiagnosticKind = "orphan"
	KindCycle       DiagnosticKind = "cycle"
	KindDuplicateID DiagnosticKind = "duplicate_id"
)

// Diagnostic describes a record the builder had to repair.
type Diagnostic struct {
	Kind       DiagnosticKind `json:"kind"`
	CategoryID int64          `json:"categoryId"`
	ParentID   *int64         `json:"parentCategoryId,omitempty"`
	Name       string         `json:"name"`
}

// JoinPath joins names with PathSeparator.
func JoinPath(names ...string) string {
	return strings.Join(names, PathSeparator)
}

// SplitPath splits a materialized path back into its names.
func SplitPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, PathSeparator)
}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
