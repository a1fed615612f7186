package admin

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/product-catalog/catalog/internal/catalog/selector"
	"github.com/product-catalog/catalog/internal/catalog/tree"
	"github.com/product-catalog/catalog/internal/catalogapi"
	"github.com/product-catalog/catalog/internal/categories"
	"github.com/product-catalog/catalog/internal/shared"
)

const searchLimit = 50

type categoryRow struct {
	ID       int64
	Name     string
	Path     string
	Depth    int
	Children int
}

type categoryListView struct {
	Query       string
	Rows        []categoryRow
	Diagnostics []tree.Diagnostic
}

type categoryForm struct {
	Name   string   `form:"name"`
	Action string   `form:"action"`
	Levels []string `form:"parent_level"`
}

type categoryFormView struct {
	Heading string
	Action  string
	ID      int64
	Name    string
	Cascade selector.Cascade
	Errors  map[string]string
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	forest, err := h.forest(r.Context(), token(r))
	if err != nil {
		h.fail(w, r, "list categories", err)
		return
	}
	view := categoryListView{
		Query:       strings.TrimSpace(r.URL.Query().Get("q")),
		Diagnostics: forest.Diagnostics,
	}
	if view.Query != "" {
		for _, n := range selector.Search(forest, view.Query, searchLimit) {
			view.Rows = append(view.Rows, categoryRow{ID: n.ID, Name: n.Name, Path: n.Path, Depth: 0, Children: len(n.Children)})
		}
	} else {
		forest.Walk(func(n *tree.Node, depth int) bool {
			view.Rows = append(view.Rows, categoryRow{ID: n.ID, Name: n.Name, Path: n.Path, Depth: depth, Children: len(n.Children)})
			return true
		})
	}
	h.render(w, r, "pages/categories.html", "Categories", view, http.StatusOK)
}

func (h *Handler) newCategory(w http.ResponseWriter, r *http.Request) {
	forest, err := h.forest(r.Context(), token(r))
	if err != nil {
		h.fail(w, r, "load categories", err)
		return
	}
	var parent *int64
	if id, err := strconv.ParseInt(r.URL.Query().Get("parent"), 10, 64); err == nil && id > 0 {
		parent = &id
	}
	h.render(w, r, "pages/category_form.html", "New category", categoryFormView{
		Heading: "New category",
		Action:  "/categories/new",
		Cascade: selector.NewCascade(forest, parent, nil),
		Errors:  map[string]string{},
	}, http.StatusOK)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	h.saveCategory(w, r, 0)
}

func (h *Handler) editCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid category ID", http.StatusBadRequest)
		return
	}
	c, err := h.api.Category(r.Context(), token(r), id)
	if err != nil {
		h.fail(w, r, "get category", err)
		return
	}
	forest, err := h.forest(r.Context(), token(r))
	if err != nil {
		h.fail(w, r, "load categories", err)
		return
	}
	h.render(w, r, "pages/category_form.html", "Edit category", categoryFormView{
		Heading: "Edit category",
		Action:  editCategoryURL(id),
		ID:      id,
		Name:    c.Name,
		Cascade: selector.NewCascade(forest, c.ParentID, &id),
		Errors:  map[string]string{},
	}, http.StatusOK)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid category ID", http.StatusBadRequest)
		return
	}
	h.saveCategory(w, r, id)
}

// saveCategory handles both forms. The "refresh" action only rebuilds the
// cascading parent picker after a level changed.
func (h *Handler) saveCategory(w http.ResponseWriter, r *http.Request, id int64) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	var f categoryForm
	if err := h.forms.Decode(&f, r.PostForm); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	forest, err := h.forest(r.Context(), token(r))
	if err != nil {
		h.fail(w, r, "load categories", err)
		return
	}

	v := categoryFormView{Heading: "New category", Action: "/categories/new", Name: strings.TrimSpace(f.Name), Errors: map[string]string{}}
	var exclude *int64
	if id > 0 {
		v.Heading, v.Action, v.ID = "Edit category", editCategoryURL(id), id
		exclude = &id
	}
	parent := selector.ParentFromLevels(forest, f.Levels, exclude)
	v.Cascade = selector.NewCascade(forest, parent, exclude)

	if f.Action == "refresh" {
		h.render(w, r, "pages/category_form.html", v.Heading, v, http.StatusOK)
		return
	}

	in := categories.Input{Name: v.Name, ParentID: parent}
	if err := h.validator.Struct(in); err != nil {
		v.Errors = shared.FieldErrors(err)
	} else if strings.Contains(in.Name, tree.PathSeparator) {
		v.Errors["name"] = "name must not contain \"" + tree.PathSeparator + "\""
	}
	if len(v.Errors) > 0 {
		h.render(w, r, "pages/category_form.html", v.Heading, v, http.StatusBadRequest)
		return
	}

	var saved categories.Category
	if id > 0 {
		saved, err = h.api.UpdateCategory(r.Context(), token(r), id, in)
	} else {
		saved, err = h.api.CreateCategory(r.Context(), token(r), in)
	}
	switch {
	case err == nil:
		h.redirectWithFlash(w, r, "/categories", "success", "Category \""+saved.Path+"\" saved")
	case errors.Is(err, catalogapi.ErrValidation), errors.Is(err, catalogapi.ErrConflict):
		v.Errors["general"] = shared.UserSafeMessage(err)
		h.render(w, r, "pages/category_form.html", v.Heading, v, http.StatusBadRequest)
	default:
		h.fail(w, r, "save category", err)
	}
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid category ID", http.StatusBadRequest)
		return
	}
	err := h.api.DeleteCategory(r.Context(), token(r), id)
	switch {
	case err == nil:
		h.redirectWithFlash(w, r, "/categories", "success", "Category deleted")
	case errors.Is(err, catalogapi.ErrUnauthorized):
		h.expireLogin(w, r)
	default:
		h.redirectWithFlash(w, r, "/categories", "danger", shared.UserSafeMessage(err))
	}
}

func editCategoryURL(id int64) string {
	return "/categories/" + strconv.FormatInt(id, 10) + "/edit"
}
