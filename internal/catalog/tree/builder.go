// Package tree turns flat parent-pointer category records into a sorted forest
// with materialized " > " paths.
package tree

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Builder builds category forests. A Builder holds no per-build state and may be
// shared between goroutines.
type Builder struct {
	logger *slog.Logger
	locale language.Tag
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger routes diagnostics to the given logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithLocale sets the collation locale used to order siblings.
func WithLocale(tag language.Tag) Option {
	return func(b *Builder) {
		b.locale = tag
	}
}

// NewBuilder constructs a Builder. Without options diagnostics are discarded and
// siblings are ordered with the root collation.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		locale: language.Und,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build is a convenience wrapper returning only the roots of the forest.
func Build(categories []Category) ([]*Node, error) {
	forest, err := NewBuilder().Build(categories)
	if err != nil {
		return nil, err
	}
	return forest.Roots, nil
}

// Build places every category exactly once. Missing parents and cycles are
// repaired by promoting the affected node to a root and recording a diagnostic.
func (b *Builder) Build(categories []Category) (*Forest, error) {
	st := &buildState{
		nodes:    make(map[int64]*Node, len(categories)),
		order:    make([]int64, 0, len(categories)),
		paths:    make(map[int64]string, len(categories)),
		detached: make(map[int64]bool),
		logger:   b.logger,
	}

	for i, c := range categories {
		if c.ID <= 0 {
			return nil, fmt.Errorf("%w: non-positive id %d at position %d", ErrInvalidCategory, c.ID, i)
		}
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("%w: blank name for id %d", ErrInvalidCategory, c.ID)
		}
		if existing, ok := st.nodes[c.ID]; ok {
			existing.Name = c.Name
			existing.ParentID = cloneID(c.ParentID)
			st.report(Diagnostic{Kind: KindDuplicateID, CategoryID: c.ID, ParentID: cloneID(c.ParentID), Name: c.Name})
			continue
		}
		st.nodes[c.ID] = &Node{
			ID:       c.ID,
			Name:     c.Name,
			ParentID: cloneID(c.ParentID),
			Children: []*Node{},
		}
		st.order = append(st.order, c.ID)
	}

	for _, id := range st.order {
		st.resolve(id)
	}

	forest := &Forest{
		Roots:       []*Node{},
		Diagnostics: st.diagnostics,
		index:       st.nodes,
		parent:      make(map[int64]*Node, len(st.nodes)),
		byPath:      make(map[string]*Node, len(st.nodes)),
	}
	for _, id := range st.order {
		node := st.nodes[id]
		node.Path = st.paths[id]
		if node.ParentID == nil || st.detached[id] {
			forest.Roots = append(forest.Roots, node)
			continue
		}
		parent := st.nodes[*node.ParentID]
		parent.Children = append(parent.Children, node)
		forest.parent[id] = parent
	}

	col := collate.New(b.locale)
	sortNodes(col, forest.Roots)
	forest.Walk(func(n *Node, _ int) bool {
		if _, taken := forest.byPath[n.Path]; !taken {
			forest.byPath[n.Path] = n
		}
		return true
	})
	return forest, nil
}

type buildState struct {
	nodes       map[int64]*Node
	order       []int64
	paths       map[int64]string
	detached    map[int64]bool
	diagnostics []Diagnostic
	logger      *slog.Logger
}

// resolve computes the path of id and of every unresolved ancestor on the way
// up. The walk is iterative; a node seen twice in one walk closes a cycle and
// the first cycle member the walk entered becomes a root.
func (st *buildState) resolve(id int64) {
	if _, done := st.paths[id]; done {
		return
	}
	var chain []int64
	onChain := make(map[int64]int)
	cur := id
	for {
		if _, done := st.paths[cur]; done {
			break
		}
		if idx, seen := onChain[cur]; seen {
			entry := st.nodes[chain[idx]]
			st.paths[entry.ID] = entry.Name
			st.detached[entry.ID] = true
			st.report(Diagnostic{Kind: KindCycle, CategoryID: entry.ID, ParentID: cloneID(entry.ParentID), Name: entry.Name})
			break
		}
		onChain[cur] = len(chain)
		chain = append(chain, cur)

		node := st.nodes[cur]
		if node.ParentID == nil {
			st.paths[cur] = node.Name
			break
		}
		parent, ok := st.nodes[*node.ParentID]
		if !ok {
			st.paths[cur] = node.Name
			st.detached[cur] = true
			st.report(Diagnostic{Kind: KindOrphan, CategoryID: cur, ParentID: cloneID(node.ParentID), Name: node.Name})
			break
		}
		cur = parent.ID
	}

	for i := len(chain) - 1; i >= 0; i-- {
		nid := chain[i]
		if _, done := st.paths[nid]; done {
			continue
		}
		node := st.nodes[nid]
		st.paths[nid] = st.paths[*node.ParentID] + PathSeparator + node.Name
	}
}

func (st *buildState) report(d Diagnostic) {
	st.diagnostics = append(st.diagnostics, d)
	attrs := []any{slog.Int64("category_id", d.CategoryID), slog.String("name", d.Name)}
	if d.ParentID != nil {
		attrs = append(attrs, slog.Int64("parent_id", *d.ParentID))
	}
	switch d.Kind {
	case KindOrphan:
		st.logger.Warn("category parent not found, promoted to root", attrs...)
	case KindCycle:
		st.logger.Warn("category cycle detected, entry point promoted to root", attrs...)
	case KindDuplicateID:
		st.logger.Warn("duplicate category id, last record wins", attrs...)
	}
}

func sortNodes(col *collate.Collator, nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if c := col.CompareString(nodes[i].Name, nodes[j].Name); c != 0 {
			return c < 0
		}
		return nodes[i].ID < nodes[j].ID
	})
	for _, n := range nodes {
		if len(n.Children) > 0 {
			sortNodes(col, n.Children)
		}
	}
}
