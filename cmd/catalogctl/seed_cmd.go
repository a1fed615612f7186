package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/product-catalog/catalog/internal/catalog/tree"
	"github.com/product-catalog/catalog/internal/catalogapi"
	"github.com/product-catalog/catalog/internal/categories"
	"github.com/product-catalog/catalog/internal/products"
)

// seedFile is the YAML document accepted by the seed command.
type seedFile struct {
	Categories []seedCategory `yaml:"categories"`
	Products   []seedProduct  `yaml:"products"`
}

type seedCategory struct {
	Name     string         `yaml:"name"`
	Children []seedCategory `yaml:"children"`
}

type seedProduct struct {
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Price       string `yaml:"price"`
	Stock       int    `yaml:"stock"`
	SKU         string `yaml:"sku"`
	Description string `yaml:"description"`
}

type seedSummary struct {
	CategoriesCreated int `json:"categoriesCreated"`
	CategoriesExisted int `json:"categoriesExisting"`
	ProductsCreated   int `json:"productsCreated"`
	ProductsExisted   int `json:"productsExisting"`
}

func newSeedCmd(opts *globalOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create categories and products from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := loadSeed(file)
			if err != nil {
				return err
			}
			sess, done, err := opts.signIn(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			summary, err := runSeed(cmd.Context(), sess, doc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "categories: %d created, %d existing\nproducts: %d created, %d existing\n",
				summary.CategoriesCreated, summary.CategoriesExisted, summary.ProductsCreated, summary.ProductsExisted)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Path to the seed YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func loadSeed(path string) (seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return seedFile{}, fmt.Errorf("read seed file: %w", err)
	}
	var doc seedFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return seedFile{}, fmt.Errorf("parse seed file: %w", err)
	}
	return doc, nil
}

func runSeed(ctx context.Context, sess *apiSession, doc seedFile) (seedSummary, error) {
	var summary seedSummary
	existing, err := sess.client.Categories(ctx, sess.token)
	if err != nil {
		return summary, err
	}
	byPath := make(map[string]int64, len(existing))
	for _, c := range existing {
		byPath[c.Path] = c.ID
	}

	var walk func(nodes []seedCategory, parentPath string, parentID *int64) error
	walk = func(nodes []seedCategory, parentPath string, parentID *int64) error {
		for _, node := range nodes {
			name := strings.TrimSpace(node.Name)
			if name == "" {
				return fmt.Errorf("category below %q has no name", parentPath)
			}
			path := name
			if parentPath != "" {
				path = tree.JoinPath(parentPath, name)
			}
			id, ok := byPath[path]
			if ok {
				summary.CategoriesExisted++
			} else {
				created, err := sess.client.CreateCategory(ctx, sess.token, categories.Input{Name: name, ParentID: parentID})
				if err != nil {
					return fmt.Errorf("create category %q: %w", path, err)
				}
				id = created.ID
				byPath[path] = id
				summary.CategoriesCreated++
			}
			if err := walk(node.Children, path, &id); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(doc.Categories, "", nil); err != nil {
		return summary, err
	}

	known, err := existingProducts(ctx, sess)
	if err != nil {
		return summary, err
	}
	for _, p := range doc.Products {
		categoryID, ok := byPath[strings.TrimSpace(p.Category)]
		if !ok {
			return summary, fmt.Errorf("product %q: unknown category %q", p.Name, p.Category)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(p.Price))
		if err != nil {
			return summary, fmt.Errorf("product %q: invalid price %q", p.Name, p.Price)
		}
		in := products.Input{
			Name:          strings.TrimSpace(p.Name),
			Description:   p.Description,
			Price:         price,
			CategoryID:    categoryID,
			StockQuantity: p.Stock,
			SKU:           strings.TrimSpace(p.SKU),
		}
		if known.has(in) {
			summary.ProductsExisted++
			continue
		}
		_, err = sess.client.CreateProduct(ctx, sess.token, in)
		switch {
		case errors.Is(err, catalogapi.ErrConflict):
			summary.ProductsExisted++
		case err != nil:
			return summary, fmt.Errorf("create product %q: %w", p.Name, err)
		default:
			summary.ProductsCreated++
		}
		known.add(in.Name, in.CategoryID, in.SKU)
	}
	return summary, nil
}

type productKey struct {
	name       string
	categoryID int64
}

// productIndex identifies products already in the catalog by SKU or, for
// products without one, by name within their category.
type productIndex struct {
	skus  map[string]bool
	names map[productKey]bool
}

func (x productIndex) add(name string, categoryID int64, sku string) {
	if sku != "" {
		x.skus[sku] = true
	}
	x.names[productKey{name: name, categoryID: categoryID}] = true
}

func (x productIndex) has(in products.Input) bool {
	if in.SKU != "" && x.skus[in.SKU] {
		return true
	}
	return x.names[productKey{name: in.Name, categoryID: in.CategoryID}]
}

func existingProducts(ctx context.Context, sess *apiSession) (productIndex, error) {
	idx := productIndex{skus: map[string]bool{}, names: map[productKey]bool{}}
	f := products.DefaultFilter()
	f.Size = products.MaxPageSize
	for {
		page, err := sess.client.Products(ctx, sess.token, f)
		if err != nil {
			return idx, fmt.Errorf("list products: %w", err)
		}
		for _, p := range page.Content {
			idx.add(p.Name, p.CategoryID, p.SKU)
		}
		if page.Last || page.Empty {
			return idx, nil
		}
		f.Page++
	}
}
