package admin

import (
	"strconv"

	"github.com/product-catalog/catalog/internal/catalog/selector"
	"github.com/product-catalog/catalog/internal/products"
	"github.com/product-catalog/catalog/internal/shared"
)

// menuItem is a selector entry with the listing URL it applies.
type menuItem struct {
	Name     string
	Path     string
	URL      string
	Depth    int
	Selected bool
	Open     bool
	Children []menuItem
}

type menuView struct {
	Label      string
	HoverDelay int64
	All        menuItem
	Items      []menuItem
}

type sortColumn struct {
	Label  string
	URL    string
	Active bool
	Desc   bool
}

type pageLink struct {
	Label   string
	URL     string
	Current bool
}

type productListView struct {
	Filter    products.Filter
	MinPrice  string
	MaxPrice  string
	Page      shared.Page[products.Product]
	Menu      menuView
	Columns   []sortColumn
	Pages     []pageLink
	PrevURL   string
	NextURL   string
	ExportURL string
	Error     string
}

var productColumns = []struct {
	Field string
	Label string
}{
	{"name", "Name"},
	{"categoryPath", "Category"},
	{"price", "Price"},
	{"stockQuantity", "Stock"},
	{"updatedAt", "Updated"},
}

func listURL(base string, f products.Filter) string {
	if q := f.Values().Encode(); q != "" {
		return base + "?" + q
	}
	return base
}

func newMenuView(menu *selector.Menu, f products.Filter) menuView {
	withPath := func(path string) string {
		next := f
		next.CategoryPath = path
		next.Page = 0
		return listURL("/products", next)
	}
	var convert func(entries []*selector.Entry) []menuItem
	convert = func(entries []*selector.Entry) []menuItem {
		out := make([]menuItem, 0, len(entries))
		for _, e := range entries {
			out = append(out, menuItem{
				Name:     e.Name,
				Path:     e.Path,
				URL:      withPath(e.Path),
				Depth:    e.Depth,
				Selected: e.Selected,
				Open:     e.Open,
				Children: convert(e.Children),
			})
		}
		return out
	}
	return menuView{
		Label:      menu.Label(),
		HoverDelay: menu.HoverDelayMillis(),
		All:        menuItem{Name: menu.All.Name, URL: withPath(""), Selected: menu.All.Selected},
		Items:      convert(menu.Entries),
	}
}

func sortColumns(f products.Filter) []sortColumn {
	cols := make([]sortColumn, 0, len(productColumns))
	for _, c := range productColumns {
		next := f
		next.Page = 0
		next.SortBy = c.Field
		next.SortDir = "asc"
		active := f.SortBy == c.Field
		if active && !f.Descending() {
			next.SortDir = "desc"
		}
		cols = append(cols, sortColumn{
			Label:  c.Label,
			URL:    listURL("/products", next),
			Active: active,
			Desc:   active && f.Descending(),
		})
	}
	return cols
}

func pageLinks(f products.Filter, page shared.Page[products.Product]) (links []pageLink, prev, next string) {
	at := func(n int) string {
		g := f
		g.Page = n
		return listURL("/products", g)
	}
	for _, n := range page.Pages(7) {
		links = append(links, pageLink{Label: strconv.Itoa(n + 1), URL: at(n), Current: n == page.Number})
	}
	if page.HasPrevious() {
		prev = at(page.Number - 1)
	}
	if page.HasNext() && page.TotalPages > 0 {
		next = at(page.Number + 1)
	}
	return links, prev, next
}

func decimalString(f products.Filter) (minPrice, maxPrice string) {
	if f.MinPrice != nil {
		minPrice = f.MinPrice.String()
	}
	if f.MaxPrice != nil {
		maxPrice = f.MaxPrice.String()
	}
	return minPrice, maxPrice
}

func exportURL(f products.Filter) string {
	v := f.Values()
	v.Del("page")
	v.Del("size")
	if q := v.Encode(); q != "" {
		return "/products/export?" + q
	}
	return "/products/export"
}

