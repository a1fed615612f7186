package admin

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/product-catalog/catalog/internal/catalog/selector"
	"github.com/product-catalog/catalog/internal/catalogapi"
	"github.com/product-catalog/catalog/internal/categories"
	"github.com/product-catalog/catalog/internal/products"
	"github.com/product-catalog/catalog/internal/shared"
)

type productForm struct {
	Name          string `form:"name" validate:"required,max=255"`
	Description   string `form:"description" validate:"max=4000"`
	Price         string `form:"price" validate:"required"`
	CategoryID    int64  `form:"categoryId" validate:"required,gt=0"`
	StockQuantity int    `form:"stockQuantity" validate:"gte=0"`
	SKU           string `form:"sku" validate:"max=100"`
}

type productFormView struct {
	Heading string
	Action  string
	ID      int64
	Form    productForm
	Options []selector.Option
	Errors  map[string]string
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	view := productListView{}
	f, err := products.ParseFilter(r.URL.Query())
	if err != nil {
		view.Error = shared.UserSafeMessage(err)
		f = products.DefaultFilter()
	}

	tok := token(r)
	var cats []categories.Category
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		page, err := h.api.Products(ctx, tok, f)
		view.Page = page
		return err
	})
	g.Go(func() error {
		list, err := h.api.Categories(ctx, tok)
		cats = list
		return err
	})
	if err := g.Wait(); err != nil {
		h.fail(w, r, "list products", err)
		return
	}

	forest, err := h.buildForest(cats)
	if err != nil {
		h.fail(w, r, "build category tree", err)
		return
	}
	view.Filter = f
	view.MinPrice, view.MaxPrice = decimalString(f)
	view.Menu = newMenuView(selector.NewMenu(forest, f.CategoryPath), f)
	view.Columns = sortColumns(f)
	view.Pages, view.PrevURL, view.NextURL = pageLinks(f, view.Page)
	view.ExportURL = exportURL(f)
	h.render(w, r, "pages/products.html", "Products", view, http.StatusOK)
}

func (h *Handler) exportProducts(w http.ResponseWriter, r *http.Request) {
	f, err := products.ParseFilter(r.URL.Query())
	if err != nil {
		h.redirectWithFlash(w, r, "/products", "danger", shared.UserSafeMessage(err))
		return
	}
	body, err := h.api.ExportProducts(r.Context(), token(r), f)
	if err != nil {
		h.fail(w, r, "export products", err)
		return
	}
	name := "products-" + time.Now().UTC().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	_, _ = w.Write(body)
}

func (h *Handler) newProduct(w http.ResponseWriter, r *http.Request) {
	form := productForm{}
	if id, err := strconv.ParseInt(r.URL.Query().Get("categoryId"), 10, 64); err == nil {
		form.CategoryID = id
	}
	h.renderProductForm(w, r, productFormView{
		Heading: "New product",
		Action:  "/products/new",
		Form:    form,
		Errors:  map[string]string{},
	}, http.StatusOK)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	v := productFormView{Heading: "New product", Action: "/products/new"}
	in, ok := h.decodeProduct(w, r, &v)
	if !ok {
		return
	}
	created, err := h.api.CreateProduct(r.Context(), token(r), in)
	if err != nil {
		h.productRejected(w, r, v, err)
		return
	}
	h.redirectWithFlash(w, r, "/products", "success", "Product \""+created.Name+"\" created")
}

func (h *Handler) editProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}
	p, err := h.api.Product(r.Context(), token(r), id)
	if err != nil {
		h.fail(w, r, "get product", err)
		return
	}
	h.renderProductForm(w, r, productFormView{
		Heading: "Edit product",
		Action:  "/products/" + strconv.FormatInt(id, 10) + "/edit",
		ID:      id,
		Form: productForm{
			Name:          p.Name,
			Description:   p.Description,
			Price:         p.Price.StringFixed(2),
			CategoryID:    p.CategoryID,
			StockQuantity: p.StockQuantity,
			SKU:           p.SKU,
		},
		Errors: map[string]string{},
	}, http.StatusOK)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}
	v := productFormView{Heading: "Edit product", Action: "/products/" + strconv.FormatInt(id, 10) + "/edit", ID: id}
	in, ok := h.decodeProduct(w, r, &v)
	if !ok {
		return
	}
	if _, err := h.api.UpdateProduct(r.Context(), token(r), id, in); err != nil {
		h.productRejected(w, r, v, err)
		return
	}
	h.redirectWithFlash(w, r, "/products", "success", "Product updated")
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}
	err := h.api.DeleteProduct(r.Context(), token(r), id)
	switch {
	case err == nil:
		h.redirectWithFlash(w, r, "/products", "success", "Product deleted")
	case errors.Is(err, catalogapi.ErrUnauthorized):
		h.expireLogin(w, r)
	default:
		h.redirectWithFlash(w, r, "/products", "danger", shared.UserSafeMessage(err))
	}
}

// decodeProduct parses and validates the posted form. On failure it renders
// the form again and reports false.
func (h *Handler) decodeProduct(w http.ResponseWriter, r *http.Request, v *productFormView) (products.Input, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return products.Input{}, false
	}
	v.Errors = map[string]string{}
	if err := h.forms.Decode(&v.Form, r.PostForm); err != nil {
		v.Errors["general"] = "Some fields could not be read, check numbers and try again"
	}
	v.Form.Name = strings.TrimSpace(v.Form.Name)
	v.Form.SKU = strings.TrimSpace(v.Form.SKU)
	v.Form.Price = strings.TrimSpace(v.Form.Price)
	if err := h.validator.Struct(v.Form); err != nil {
		for k, msg := range shared.FieldErrors(err) {
			v.Errors[k] = msg
		}
	}
	price, err := decimal.NewFromString(v.Form.Price)
	if _, seen := v.Errors["price"]; !seen && v.Form.Price != "" {
		switch {
		case err != nil:
			v.Errors["price"] = "price must be a number"
		case !price.IsPositive():
			v.Errors["price"] = "price must be greater than 0"
		}
	}
	if len(v.Errors) > 0 {
		h.renderProductForm(w, r, *v, http.StatusBadRequest)
		return products.Input{}, false
	}
	return products.Input{
		Name:          v.Form.Name,
		Description:   strings.TrimSpace(v.Form.Description),
		Price:         price,
		CategoryID:    v.Form.CategoryID,
		StockQuantity: v.Form.StockQuantity,
		SKU:           v.Form.SKU,
	}, true
}

func (h *Handler) productRejected(w http.ResponseWriter, r *http.Request, v productFormView, err error) {
	if errors.Is(err, catalogapi.ErrUnauthorized) {
		h.expireLogin(w, r)
		return
	}
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, catalogapi.ErrConflict):
		status = http.StatusConflict
		v.Errors["sku"] = shared.UserSafeMessage(err)
	case errors.Is(err, catalogapi.ErrValidation), errors.Is(err, catalogapi.ErrNotFound):
		v.Errors["general"] = shared.UserSafeMessage(err)
	default:
		h.fail(w, r, "save product", err)
		return
	}
	h.renderProductForm(w, r, v, status)
}

func (h *Handler) renderProductForm(w http.ResponseWriter, r *http.Request, v productFormView, status int) {
	forest, err := h.forest(r.Context(), token(r))
	if err != nil {
		h.fail(w, r, "load categories", err)
		return
	}
	v.Options = selector.Options(forest, nil)
	h.render(w, r, "pages/product_form.html", v.Heading, v, status)
}
