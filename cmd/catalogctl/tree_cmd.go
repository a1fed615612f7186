package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/product-catalog/catalog/internal/catalog/tree"
	"github.com/product-catalog/catalog/internal/categories"
)

type treeOutput struct {
	Roots       []*tree.Node      `json:"roots"`
	Diagnostics []tree.Diagnostic `json:"diagnostics"`
}

func newTreeCmd(opts *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the category tree built from the API's flat category list",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("invalid --format %q (text|json)", format)
			}
			sess, done, err := opts.signIn(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			cats, err := sess.client.Categories(cmd.Context(), sess.token)
			if err != nil {
				return err
			}
			forest, err := buildForest(cats)
			if err != nil {
				return err
			}
			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), treeOutput{Roots: forest.Roots, Diagnostics: forest.Diagnostics})
			}
			writeTree(cmd.OutOrStdout(), forest)
			writeDiagnostics(cmd.ErrOrStderr(), forest.Diagnostics)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}

func buildForest(cats []categories.Category) (*tree.Forest, error) {
	records := make([]tree.Category, len(cats))
	for i, c := range cats {
		records[i] = c.Record()
	}
	return tree.NewBuilder().Build(records)
}

func writeTree(w io.Writer, forest *tree.Forest) {
	forest.Walk(func(n *tree.Node, depth int) bool {
		fmt.Fprintf(w, "%s%s (#%d)\n", strings.Repeat("  ", depth), n.Name, n.ID)
		return true
	})
}

func writeDiagnostics(w io.Writer, diags []tree.Diagnostic) {
	for _, d := range diags {
		parent := "-"
		if d.ParentID != nil {
			parent = fmt.Sprint(*d.ParentID)
		}
		fmt.Fprintf(w, "warning: %s: %s (#%d, parent %s)\n", d.Kind, d.Name, d.CategoryID, parent)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
