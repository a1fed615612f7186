package selector

import (
	"strconv"
	"strings"

	"github.com/product-catalog/catalog/internal/catalog/tree"
)

// Option is a selectable category inside a picker.
type Option struct {
	ID          int64
	Name        string
	Path        string
	Depth       int
	HasChildren bool
}

// Label indents the option name by its depth for flat selects.
func (o Option) Label() string {
	return strings.Repeat("\u00a0\u00a0", o.Depth) + o.Name
}

// Level is one select box of the cascading picker.
type Level struct {
	Depth    int
	Options  []Option
	Selected int64
}

// Cascade is the cascading parent picker: one level per depth of the selected
// chain plus a trailing level for the children of the deepest selection.
type Cascade struct {
	Levels []Level
}

// SelectedID returns the deepest selected category, or nil for "no parent".
func (c Cascade) SelectedID() *int64 {
	for i := len(c.Levels) - 1; i >= 0; i-- {
		if c.Levels[i].Selected != 0 {
			v := c.Levels[i].Selected
			return &v
		}
	}
	return nil
}

// SelectionPath returns the selected id of every level, nil where a level has
// no selection.
func (c Cascade) SelectionPath() []*int64 {
	out := make([]*int64, len(c.Levels))
	for i, l := range c.Levels {
		if l.Selected != 0 {
			v := l.Selected
			out[i] = &v
		}
	}
	return out
}

// NewCascade rebuilds the picker from the ancestor chain of selectedID.
// exclude removes a category and its whole subtree from every level so a
// category cannot be moved below itself. A selection that is unknown or
// excluded is dropped.
func NewCascade(forest *tree.Forest, selectedID, exclude *int64) Cascade {
	excluded := excludedSet(forest, exclude)
	var chain []*tree.Node
	if selectedID != nil && !excluded[*selectedID] {
		chain = forest.Ancestors(*selectedID)
	}

	var roots []*tree.Node
	if forest != nil {
		roots = forest.Roots
	}
	c := Cascade{Levels: []Level{{Depth: 0, Options: options(roots, 0, excluded)}}}
	for depth, n := range chain {
		c.Levels[depth].Selected = n.ID
		children := options(n.Children, depth+1, excluded)
		if len(children) == 0 {
			break
		}
		c.Levels = append(c.Levels, Level{Depth: depth + 1, Options: children})
	}
	return c
}

// ParentFromLevels resolves the values submitted by the level selects. It walks
// the levels top-down and stops at the first empty value or at the first value
// that is not a child of the previous selection, which happens when an upper
// level changed without the lower ones being rebuilt.
func ParentFromLevels(forest *tree.Forest, values []string, exclude *int64) *int64 {
	excluded := excludedSet(forest, exclude)
	var current *tree.Node
	for _, raw := range values {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			break
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || excluded[v] {
			break
		}
		n, ok := forest.Node(v)
		if !ok {
			break
		}
		if current == nil {
			if _, hasParent := forest.Parent(n.ID); hasParent {
				break
			}
		} else if p, ok := forest.Parent(n.ID); !ok || p.ID != current.ID {
			break
		}
		current = n
	}
	if current == nil {
		return nil
	}
	v := current.ID
	return &v
}

// Options flattens the forest into indented options in display order.
func Options(forest *tree.Forest, exclude *int64) []Option {
	excluded := excludedSet(forest, exclude)
	var out []Option
	forest.Walk(func(n *tree.Node, depth int) bool {
		if excluded[n.ID] {
			return false
		}
		out = append(out, Option{ID: n.ID, Name: n.Name, Path: n.Path, Depth: depth, HasChildren: len(n.Children) > 0})
		return true
	})
	return out
}

func options(nodes []*tree.Node, depth int, excluded map[int64]bool) []Option {
	out := make([]Option, 0, len(nodes))
	for _, n := range nodes {
		if excluded[n.ID] {
			continue
		}
		out = append(out, Option{ID: n.ID, Name: n.Name, Path: n.Path, Depth: depth, HasChildren: len(n.Children) > 0})
	}
	return out
}

func excludedSet(forest *tree.Forest, exclude *int64) map[int64]bool {
	set := make(map[int64]bool)
	if exclude == nil {
		return set
	}
	set[*exclude] = true
	for _, d := range forest.Descendants(*exclude) {
		set[d] = true
	}
	return set
}
