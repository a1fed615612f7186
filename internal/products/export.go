package products

import (
	"io"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Products"

var exportHeader = []any{"ID", "SKU", "Name", "Category", "Price", "Stock", "Description", "Updated"}

// WriteWorkbook renders products as a single-sheet XLSX workbook.
func WriteWorkbook(w io.Writer, products []Product) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return err
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, bold); err != nil {
		return err
	}
	for i, p := range products {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		price, _ := p.Price.Float64()
		row := []any{p.ID, p.SKU, p.Name, p.CategoryPath, price, p.StockQuantity, p.Description, p.UpdatedAt.Format("2006-01-02 15:04")}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(exportSheet, "C", "D", 32); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}
