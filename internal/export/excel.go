// Package export renders finalized expense records into hand-off
// documents. The pipeline itself never formats anything; it only passes
// an ordered record list in here.
package export

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/zombor/spesen-tracker/internal/expense"
)

// Meta labels an exported report.
type Meta struct {
	Name  string
	Monat string
}

// WriteExcel writes a category-grouped expense report and returns the
// grand total. Records are grouped in taxonomy order and sorted by date
// within each category.
func WriteExcel(path string, meta Meta, records []*expense.Record) (decimal.Decimal, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"333333"}},
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("creating style: %w", err)
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return decimal.Zero, fmt.Errorf("creating style: %w", err)
	}

	f.SetCellValue(sheet, "A1", fmt.Sprintf("Spesenabrechnung %s", meta.Monat))
	f.SetCellValue(sheet, "A2", meta.Name)
	f.SetCellValue(sheet, "D1", fmt.Sprintf("Erstellt: %s", time.Now().Format("02.01.2006")))
	f.SetCellStyle(sheet, "A1", "A1", boldStyle)

	byCategory := make(map[expense.Category][]*expense.Record)
	for _, r := range records {
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}
	for _, group := range byCategory {
		sort.Slice(group, func(i, j int) bool { return group[i].Date.Before(group[j].Date) })
	}

	row := 4
	total := decimal.Zero

	for _, category := range expense.Categories {
		group := byCategory[category]
		if len(group) == 0 {
			continue
		}

		f.SetCellValue(sheet, cell(1, row), expense.CategoryLabels[category])
		headers := []string{"Datum", "Beschreibung", "Anbieter", "Betrag"}
		for i, h := range headers {
			f.SetCellValue(sheet, cell(i+2, row), h)
		}
		f.SetCellStyle(sheet, cell(1, row), cell(5, row), headerStyle)
		row++

		categorySum := decimal.Zero
		for _, r := range group {
			description := r.Description
			if r.NeedsReview {
				description = description + " [prüfen]"
			}
			f.SetCellValue(sheet, cell(2, row), r.Date.Format("02.01.2006"))
			f.SetCellValue(sheet, cell(3, row), description)
			f.SetCellValue(sheet, cell(4, row), r.Vendor)
			f.SetCellValue(sheet, cell(5, row), fmt.Sprintf("%s EUR", r.Amount.StringFixed(2)))
			categorySum = categorySum.Add(r.Amount)
			row++
		}

		f.SetCellValue(sheet, cell(4, row), "Summe:")
		f.SetCellValue(sheet, cell(5, row), fmt.Sprintf("%s EUR", categorySum.StringFixed(2)))
		f.SetCellStyle(sheet, cell(4, row), cell(5, row), boldStyle)
		total = total.Add(categorySum)
		row += 2
	}

	f.SetCellValue(sheet, cell(4, row), "GESAMT:")
	f.SetCellValue(sheet, cell(5, row), fmt.Sprintf("%s EUR", total.StringFixed(2)))
	f.SetCellStyle(sheet, cell(4, row), cell(5, row), boldStyle)

	widths := map[string]float64{"A": 5, "B": 12, "C": 35, "D": 25, "E": 15}
	for col, width := range widths {
		f.SetColWidth(sheet, col, col, width)
	}

	if err := f.SaveAs(path); err != nil {
		return decimal.Zero, fmt.Errorf("saving excel file: %w", err)
	}
	return total, nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
