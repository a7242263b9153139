package reports

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const monthlySheet = "Report"

var fileNameReplacer = strings.NewReplacer(" ", "_", "/", "", "\\", "", "..", "")

// ExportFileName is Monthly_Report_{state}_{year}_{month}.xlsx.
func ExportFileName(stateName string, year, month int) string {
	state := fileNameReplacer.Replace(strings.TrimSpace(stateName))
	return fmt.Sprintf("Monthly_Report_%s_%d_%d.xlsx", state, year, month)
}

func cellAddr(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

type monthlyStyles struct {
	header    int
	cell      int
	highlight int
	total     int
}

func newMonthlyStyles(f *excelize.File) (monthlyStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "BFBFBF", Style: 1},
		{Type: "right", Color: "BFBFBF", Style: 1},
		{Type: "top", Color: "BFBFBF", Style: 1},
		{Type: "bottom", Color: "BFBFBF", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}

	var s monthlyStyles
	var err error
	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: center,
		Border:    border,
	}); err != nil {
		return s, err
	}
	if s.cell, err = f.NewStyle(&excelize.Style{Alignment: center, Border: border}); err != nil {
		return s, err
	}
	if s.highlight, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "0F5132"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"D1E7DD"}, Pattern: 1},
		Alignment: center,
		Border:    border,
	}); err != nil {
		return s, err
	}
	if s.total, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"F2F2F2"}, Pattern: 1},
		Alignment: center,
		Border:    border,
	}); err != nil {
		return s, err
	}
	return s, nil
}

// monthlyColumns fixes the 1-based column of every band for a grid.
type monthlyColumns struct {
	date, department, state int
	lighthouse              int // first lighthouse column
	nonLighthouse           int // first non-lighthouse column
	subTotal, total         int
	count, countOfTrainings int
}

func newMonthlyColumns(g *Grid) monthlyColumns {
	c := monthlyColumns{date: 1, department: 2, state: 3}
	c.lighthouse = c.state + 1
	c.nonLighthouse = c.lighthouse + len(g.Lighthouse)
	c.subTotal = c.nonLighthouse + len(g.NonLighthouse)
	c.total = c.subTotal + 1
	c.count = c.total + 1
	c.countOfTrainings = c.count + 1
	return c
}

func (c monthlyColumns) last() int { return c.countOfTrainings }

// WriteMonthlyReportExcel renders g into a one-sheet workbook. It reads only the
// grid, so every value matches what the dashboard shows for the same report.
func WriteMonthlyReportExcel(g *Grid) ([]byte, error) {
	if g == nil {
		return nil, ErrNoReport
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", monthlySheet); err != nil {
		return nil, err
	}
	styles, err := newMonthlyStyles(f)
	if err != nil {
		return nil, err
	}
	cols := newMonthlyColumns(g)

	if err := writeMonthlyHeader(f, g, cols, styles); err != nil {
		return nil, err
	}
	row := 3
	for _, group := range g.Dates {
		next, err := writeDateGroup(f, g, cols, styles, group, row)
		if err != nil {
			return nil, err
		}
		row = next
	}
	if err := writeGrandTotal(f, g, cols, styles, row); err != nil {
		return nil, err
	}

	f.SetColWidth(monthlySheet, "A", "B", 16)
	lastCol, _ := excelize.ColumnNumberToName(cols.last())
	f.SetColWidth(monthlySheet, "C", lastCol, 12)
	f.SetPanes(monthlySheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      2,
		YSplit:      2,
		TopLeftCell: "C3",
		ActivePane:  "bottomRight",
	})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setHeader(f *excelize.File, styles monthlyStyles, fromCol, toCol, fromRow, toRow int, label string) error {
	start, end := cellAddr(fromCol, fromRow), cellAddr(toCol, toRow)
	if err := f.SetCellValue(monthlySheet, start, label); err != nil {
		return err
	}
	if start != end {
		if err := f.MergeCell(monthlySheet, start, end); err != nil {
			return err
		}
	}
	return f.SetCellStyle(monthlySheet, start, end, styles.header)
}

func writeMonthlyHeader(f *excelize.File, g *Grid, cols monthlyColumns, styles monthlyStyles) error {
	single := []struct {
		col   int
		label string
	}{
		{cols.date, "Date"},
		{cols.department, "Department"},
		{cols.state, "State"},
		{cols.subTotal, "Sub Total"},
		{cols.total, "Total"},
		{cols.count, "Count"},
		{cols.countOfTrainings, "Count of Trainings"},
	}
	for _, h := range single {
		if err := setHeader(f, styles, h.col, h.col, 1, 2, h.label); err != nil {
			return err
		}
	}

	if n := len(g.Lighthouse); n > 0 {
		if err := setHeader(f, styles, cols.lighthouse, cols.lighthouse+n-1, 1, 1, "Lighthouse Districts"); err != nil {
			return err
		}
		for i, d := range g.Lighthouse {
			if err := setHeader(f, styles, cols.lighthouse+i, cols.lighthouse+i, 2, 2, d.DistrictNameEng); err != nil {
				return err
			}
		}
	}
	if n := len(g.NonLighthouse); n > 0 {
		if err := setHeader(f, styles, cols.nonLighthouse, cols.nonLighthouse+n-1, 1, 1, "Non-Lighthouse Districts"); err != nil {
			return err
		}
		for i, d := range g.NonLighthouse {
			if err := setHeader(f, styles, cols.nonLighthouse+i, cols.nonLighthouse+i, 2, 2, d.DistrictNameEng); err != nil {
				return err
			}
		}
	}
	return nil
}

func setValue(f *excelize.File, styles monthlyStyles, col, row int, v GridValue) error {
	addr := cellAddr(col, row)
	if err := f.SetCellValue(monthlySheet, addr, v.Value); err != nil {
		return err
	}
	style := styles.cell
	if v.Active {
		style = styles.highlight
	}
	return f.SetCellStyle(monthlySheet, addr, addr, style)
}

// setMerged writes v into col and merges it down the rows fromRow..toRow.
func setMerged(f *excelize.File, styles monthlyStyles, col, fromRow, toRow int, v any, style int) error {
	start, end := cellAddr(col, fromRow), cellAddr(col, toRow)
	if err := f.SetCellValue(monthlySheet, start, v); err != nil {
		return err
	}
	if fromRow != toRow {
		if err := f.MergeCell(monthlySheet, start, end); err != nil {
			return err
		}
	}
	return f.SetCellStyle(monthlySheet, start, end, style)
}

func valueStyle(styles monthlyStyles, v GridValue) int {
	if v.Active {
		return styles.highlight
	}
	return styles.cell
}

// writeDateGroup writes one date's rows starting at row and returns the next free row.
func writeDateGroup(f *excelize.File, g *Grid, cols monthlyColumns, styles monthlyStyles, group DateGroup, row int) (int, error) {
	if group.NoDepartments || len(group.Rows) == 0 {
		if err := setMerged(f, styles, cols.date, row, row, group.Date, styles.cell); err != nil {
			return row, err
		}
		start, end := cellAddr(cols.department, row), cellAddr(cols.last(), row)
		if err := f.SetCellValue(monthlySheet, start, "No Departments"); err != nil {
			return row, err
		}
		if err := f.MergeCell(monthlySheet, start, end); err != nil {
			return row, err
		}
		return row + 1, f.SetCellStyle(monthlySheet, start, end, styles.cell)
	}

	first, lastRow := row, row+len(group.Rows)-1
	if err := setMerged(f, styles, cols.date, first, lastRow, group.Date, styles.cell); err != nil {
		return row, err
	}
	if err := setMerged(f, styles, cols.total, first, lastRow, group.Total.Value, valueStyle(styles, group.Total)); err != nil {
		return row, err
	}
	if err := setMerged(f, styles, cols.countOfTrainings, first, lastRow, group.CountOfTrainings.Value, valueStyle(styles, group.CountOfTrainings)); err != nil {
		return row, err
	}

	for _, r := range group.Rows {
		addr := cellAddr(cols.department, row)
		if err := f.SetCellValue(monthlySheet, addr, r.Department); err != nil {
			return row, err
		}
		if err := f.SetCellStyle(monthlySheet, addr, addr, styles.cell); err != nil {
			return row, err
		}
		if err := setValue(f, styles, cols.state, row, r.State); err != nil {
			return row, err
		}
		for i, v := range r.Lighthouse {
			if err := setValue(f, styles, cols.lighthouse+i, row, v); err != nil {
				return row, err
			}
		}
		for i, v := range r.NonLighthouse {
			if err := setValue(f, styles, cols.nonLighthouse+i, row, v); err != nil {
				return row, err
			}
		}
		if err := setValue(f, styles, cols.subTotal, row, r.SubTotal); err != nil {
			return row, err
		}
		if err := setValue(f, styles, cols.count, row, r.Count); err != nil {
			return row, err
		}
		row++
	}
	return row, nil
}

func writeGrandTotal(f *excelize.File, g *Grid, cols monthlyColumns, styles monthlyStyles, row int) error {
	start, end := cellAddr(cols.date, row), cellAddr(cols.department, row)
	if err := f.SetCellValue(monthlySheet, start, "Grand Total"); err != nil {
		return err
	}
	if err := f.MergeCell(monthlySheet, start, end); err != nil {
		return err
	}

	gt := g.GrandTotals
	values := map[int]int{
		cols.state:            gt.State,
		cols.subTotal:         gt.SubTotal,
		cols.total:            gt.Total,
		cols.count:            gt.Count,
		cols.countOfTrainings: gt.CountOfTrainings,
	}
	for i, v := range gt.Lighthouse {
		values[cols.lighthouse+i] = v
	}
	for i, v := range gt.NonLighthouse {
		values[cols.nonLighthouse+i] = v
	}
	for col, v := range values {
		if err := f.SetCellValue(monthlySheet, cellAddr(col, row), v); err != nil {
			return err
		}
	}
	return f.SetCellStyle(monthlySheet, start, cellAddr(cols.last(), row), styles.total)
}
