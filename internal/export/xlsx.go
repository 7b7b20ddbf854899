package export

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/TimBim12345/SME/internal/models"
	"github.com/TimBim12345/SME/internal/statistics"
)

// Workbook sheet names
const (
	SheetRevenue    = "Revenue"
	SheetRegions    = "Regions"
	SheetIndustries = "Industries"
	SheetBanks      = "Banks"
)

// BuildStatisticsWorkbook lays out the dataset statistics, one sheet per breakdown
func BuildStatisticsWorkbook(d *models.Dataset) (*excelize.File, error) {
	if d == nil || d.Statistics == nil {
		return nil, errors.New("dataset has no statistics")
	}
	stats := d.Statistics

	descriptions := make(map[int]string, len(d.RevenueCategories))
	for _, c := range d.RevenueCategories {
		descriptions[c.Index] = c.Description
	}
	revenue := [][]any{{"Категория", "Выручка", "Описание", "Компаний", "Доля, %"}}
	for _, idx := range stats.RevenueDistribution.Indices() {
		rs := stats.RevenueDistribution[idx]
		revenue = append(revenue, []any{idx, rs.Name, descriptions[idx], rs.Count, rs.Percentage})
	}

	type sheet struct {
		name string
		rows [][]any
	}
	sheets := []sheet{{SheetRevenue, revenue}}
	for _, b := range []struct {
		name, label string
		counts      []models.NamedCount
	}{
		{SheetRegions, "Регион", stats.TopRegions},
		{SheetIndustries, "Категория отрасли", stats.TopIndustries},
		{SheetBanks, "Банк", stats.BankDistribution},
	} {
		rows, err := countRows(b.label, b.counts, stats.TotalCompanies)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, sheet{b.name, rows})
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetRevenue); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to rename sheet")
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to create header style")
	}

	for _, s := range sheets {
		if s.name != SheetRevenue {
			if _, err := f.NewSheet(s.name); err != nil {
				f.Close()
				return nil, errors.Wrapf(err, "failed to create sheet %s", s.name)
			}
		}
		if err := writeRows(f, s.name, s.rows); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetRowStyle(s.name, 1, 1, headerStyle); err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "failed to style %s header", s.name)
		}
		f.SetColWidth(s.name, "A", "A", 8)
		f.SetColWidth(s.name, "B", "C", 30)
		f.SetColWidth(s.name, "D", "E", 14)
	}

	return f, nil
}

// WriteStatisticsWorkbook saves the statistics workbook to path atomically
func WriteStatisticsWorkbook(path string, d *models.Dataset) error {
	s, err := StageStatisticsWorkbook(path, d)
	if err != nil {
		return err
	}
	return s.Commit()
}

// StageStatisticsWorkbook renders the workbook next to path without replacing it
func StageStatisticsWorkbook(path string, d *models.Dataset) (*Staged, error) {
	f, err := BuildStatisticsWorkbook(d)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Stage(path, func(w io.Writer) error {
		if _, err := f.WriteTo(w); err != nil {
			return errors.Wrap(err, "failed to render workbook")
		}
		return nil
	})
}

func countRows(label string, counts []models.NamedCount, total int64) ([][]any, error) {
	rows := [][]any{{"#", label, "Компаний", "Доля, %"}}
	for i, nc := range counts {
		pct, err := statistics.Percentage(nc.Count, total)
		if err != nil {
			return nil, errors.Wrapf(err, "%s share of %s", label, nc.Name)
		}
		rows = append(rows, []any{i + 1, nc.Name, nc.Count, pct})
	}
	return rows, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.Wrap(err, "invalid cell")
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrapf(err, "failed to write %s row %d", sheet, i+1)
		}
	}
	return nil
}
