package medication

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const inventorySheet = "Inventory"

var inventoryHeader = []interface{}{"Name", "Description", "Category", "Form", "Stock", "Price", "Status"}

// WriteInventory writes the catalog as an .xlsx workbook with one row per
// medication under a bold header row.
func WriteInventory(w io.Writer, meds []*Medication) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", inventorySheet); err != nil {
		return fmt.Errorf("inventory sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("inventory style: %w", err)
	}
	if err := f.SetSheetRow(inventorySheet, "A1", &inventoryHeader); err != nil {
		return fmt.Errorf("inventory header: %w", err)
	}
	if err := f.SetCellStyle(inventorySheet, "A1", "G1", bold); err != nil {
		return fmt.Errorf("inventory header: %w", err)
	}

	for i, m := range meds {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{m.Name, m.Description, m.Category, m.Form, m.Stock, m.Price, m.Status}
		if err := f.SetSheetRow(inventorySheet, cell, &row); err != nil {
			return fmt.Errorf("inventory row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(inventorySheet, "A", "A", 32); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}
