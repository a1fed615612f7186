// Package selector turns a category forest into the view models behind the
// admin category pickers: the hover menu, the cascading parent picker, flat
// option lists and search.
package selector

import (
	"time"

	"github.com/product-catalog/catalog/internal/catalog/tree"
)

// HoverDelay is how long the pointer has to rest on (or leave) an entry before
// its submenu opens (or closes).
const HoverDelay = 150 * time.Millisecond

// AllLabel is the caption of the synthetic entry that clears the filter.
const AllLabel = "All categories"

// Entry is one item of the hierarchical menu.
type Entry struct {
	ID       int64
	Name     string
	Path     string
	Depth    int
	Selected bool
	Open     bool
	Children []*Entry
}

// HasChildren reports whether the entry opens a submenu.
func (e *Entry) HasChildren() bool {
	return len(e.Children) > 0
}

// Menu is the nested category menu used by list filters.
type Menu struct {
	All        Entry
	Entries    []*Entry
	Selected   string
	HoverDelay time.Duration
}

// NewMenu mirrors the forest as menu entries. The entry whose path equals
// selectedPath is marked selected and its ancestors are marked open. An
// unknown selectedPath selects the synthetic "all" entry.
func NewMenu(forest *tree.Forest, selectedPath string) *Menu {
	m := &Menu{
		All:        Entry{Name: AllLabel, Path: ""},
		HoverDelay: HoverDelay,
	}
	var selected *tree.Node
	if n, ok := forest.FindByPath(selectedPath); ok {
		selected = n
		m.Selected = n.Path
	}
	open := make(map[int64]bool)
	if selected != nil {
		for _, a := range forest.Ancestors(selected.ID) {
			if a.ID != selected.ID {
				open[a.ID] = true
			}
		}
	}
	if forest != nil {
		m.Entries = entries(forest.Roots, 0, selected, open)
	}
	m.All.Selected = selected == nil
	return m
}

// Label is the caption shown on the closed menu button.
func (m *Menu) Label() string {
	if m.Selected == "" {
		return AllLabel
	}
	return m.Selected
}

// HoverDelayMillis exposes the hover delay to templates.
func (m *Menu) HoverDelayMillis() int64 {
	return m.HoverDelay.Milliseconds()
}

// Select returns the filter value for a chosen entry: the computed path of the
// node, or the empty string for the "all" entry and unknown ids.
func Select(forest *tree.Forest, id int64) string {
	n, ok := forest.Node(id)
	if !ok {
		return ""
	}
	return n.Path
}

func entries(nodes []*tree.Node, depth int, selected *tree.Node, open map[int64]bool) []*Entry {
	out := make([]*Entry, 0, len(nodes))
	for _, n := range nodes {
		e := &Entry{
			ID:       n.ID,
			Name:     n.Name,
			Path:     n.Path,
			Depth:    depth,
			Selected: selected != nil && selected.ID == n.ID,
			Open:     open[n.ID],
		}
		if len(n.Children) > 0 {
			e.Children = entries(n.Children, depth+1, selected, open)
		}
		out = append(out, e)
	}
	return out
}
