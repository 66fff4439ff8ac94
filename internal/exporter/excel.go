package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"EventPull/internal/domain/models"
)

// ExcelExporter writes study results into a workbook: one Results sheet
// per table, plus Tests and Distribution sheets for batch output.
type ExcelExporter struct{}

func NewExcelExporter() *ExcelExporter { return &ExcelExporter{} }

var resultHeader = []string{"Offset", "AR", "Var(AR)", "CAR", "Var(CAR)", "T-stat", "P-value", "Significance"}
var aggregateHeader = []string{"Offset", "AAR", "Var(AAR)", "CAAR", "Var(CAAR)", "T-stat", "P-value", "Significance"}

// ExportSingle writes one event's result table to path.
func (e *ExcelExporter) ExportSingle(res *models.SingleEventResult, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Results"
	f.SetSheetName("Sheet1", sheet)
	f.SetCellValue(sheet, "A1", res.Description)
	writeRows(f, sheet, 3, resultHeader, res.Table())

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// ExportBatch writes the aggregate tables, the nonparametric tests, the
// CAR distribution and the error report to path.
func (e *ExcelExporter) ExportBatch(res *models.MultipleEventResult, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const results = "Results"
	f.SetSheetName("Sheet1", results)
	f.SetCellValue(results, "A1", fmt.Sprintf("%d surviving events, %d excluded", len(res.Results), len(res.Errors)))
	writeRows(f, results, 3, aggregateHeader, res.Table())

	const tests = "Tests"
	if _, err := f.NewSheet(tests); err != nil {
		return fmt.Errorf("tests sheet: %w", err)
	}
	writeTest(f, tests, 1, res.SignTest)
	writeTest(f, tests, 2, res.RankTest)

	const dist = "Distribution"
	if _, err := f.NewSheet(dist); err != nil {
		return fmt.Errorf("distribution sheet: %w", err)
	}
	distHeader := []string{"Offset", "Mean", "Variance", "Kurtosis", "Min", "Q25", "Median", "Q75", "Max"}
	for i, name := range distHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(dist, cell, name)
	}
	for r, row := range res.CARDist {
		vals := []interface{}{row.Offset, row.Mean, row.Variance, row.Kurtosis, row.Min, row.Q25, row.Median, row.Q75, row.Max}
		for c, v := range vals {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			f.SetCellValue(dist, cell, v)
		}
	}

	if len(res.Errors) > 0 {
		const errors = "Errors"
		if _, err := f.NewSheet(errors); err != nil {
			return fmt.Errorf("errors sheet: %w", err)
		}
		f.SetCellValue(errors, "A1", "Event")
		f.SetCellValue(errors, "B1", "Kind")
		f.SetCellValue(errors, "C1", "Message")
		for i, ee := range res.Errors {
			row := i + 2
			f.SetCellValue(errors, fmt.Sprintf("A%d", row), ee.Event)
			f.SetCellValue(errors, fmt.Sprintf("B%d", row), ee.Kind)
			f.SetCellValue(errors, fmt.Sprintf("C%d", row), ee.Msg)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, startRow int, header []string, rows []models.OffsetRow) {
	for i, name := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, startRow)
		f.SetCellValue(sheet, cell, name)
	}
	for r, row := range rows {
		vals := []interface{}{row.Offset, row.AR, row.VarAR, row.CAR, row.VarCAR, row.TStat, row.PValue, row.Significance}
		for c, v := range vals {
			cell, _ := excelize.CoordinatesToCellName(c+1, startRow+r+1)
			f.SetCellValue(sheet, cell, v)
		}
	}
}

func writeTest(f *excelize.File, sheet string, row int, test models.TestResult) {
	base := (row-1)*4 + 1
	f.SetCellValue(sheet, fmt.Sprintf("A%d", base), test.Name)
	f.SetCellValue(sheet, fmt.Sprintf("A%d", base+1), "offset")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", base+1), test.Offset)
	f.SetCellValue(sheet, fmt.Sprintf("A%d", base+2), "statistic")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", base+2), test.Statistic)
	f.SetCellValue(sheet, fmt.Sprintf("A%d", base+3), "p-value")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", base+3), test.PValue)
}
