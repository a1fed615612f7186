package selector

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/product-catalog/catalog/internal/catalog/tree"
)

// Search matches query against every category path and returns the nodes
// ranked by edit distance, best first. Equal ranks keep display order.
func Search(forest *tree.Forest, query string, limit int) []*tree.Node {
	query = strings.TrimSpace(query)
	if query == "" || forest == nil {
		return nil
	}
	flat := forest.Flatten()
	paths := make([]string, len(flat))
	for i, n := range flat {
		paths[i] = n.Path
	}

	ranks := fuzzy.RankFindNormalizedFold(query, paths)
	sort.SliceStable(ranks, func(i, j int) bool {
		if ranks[i].Distance != ranks[j].Distance {
			return ranks[i].Distance < ranks[j].Distance
		}
		return ranks[i].OriginalIndex < ranks[j].OriginalIndex
	})

	out := make([]*tree.Node, 0, len(ranks))
	for _, rank := range ranks {
		out = append(out, flat[rank.OriginalIndex])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
