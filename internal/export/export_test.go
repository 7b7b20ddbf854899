package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/TimBim12345/SME/internal/models"
	"github.com/TimBim12345/SME/internal/statistics"
)

func testDataset() *models.Dataset {
	groups := []models.CompanyGroup{
		{
			ID: "group_000001", Count: 150, RevenueCategory: 0,
			IndustryCode: "47", IndustryName: "Розничная торговля", IndustryCategory: "Торговля",
			RegionCode: "77", RegionName: "Москва", FederalDistrict: "Центральный",
			BankID: "sber", BankName: "Сбербанк",
			Coordinates: models.Coordinates{Lat: 55.75, Lon: 37.62},
			Position3D:  models.Position3D{X: 1, Y: -2, Z: 3.5},
			Metadata: models.GroupMetadata{
				RevenueRange:  models.DefaultRevenueCategories()[0],
				IndustryColor: "#FF6B6B",
				BankColor:     "#21A038",
			},
		},
		{
			ID: "group_000002", Count: 50, RevenueCategory: 2,
			IndustryCode: "62", IndustryName: "Разработка ПО", IndustryCategory: "IT",
			RegionCode: "16", RegionName: "Татарстан", FederalDistrict: "Приволжский",
			BankID: "vtb", BankName: "ВТБ",
			Coordinates: models.Coordinates{Lat: 55.79, Lon: 49.12},
		},
	}
	return &models.Dataset{
		Metadata: models.DatasetMetadata{
			GeneratedAt:    "2025-01-02",
			TotalCompanies: 200,
			TotalGroups:    2,
			Description:    models.DatasetDescription,
			Seed:           42,
		},
		RevenueCategories: models.DefaultRevenueCategories(),
		Companies:         groups,
		Statistics: &models.Statistics{
			TotalCompanies: 200,
			TotalGroups:    2,
			RevenueDistribution: models.RevenueStats{
				0: {Count: 150, Percentage: 75, Name: "0-5 млн руб"},
				1: {Count: 0, Percentage: 0, Name: "5-20 млн руб"},
				2: {Count: 50, Percentage: 25, Name: "20-80 млн руб"},
				3: {Count: 0, Percentage: 0, Name: "80-400 млн руб"},
				4: {Count: 0, Percentage: 0, Name: "400+ млн руб"},
			},
			TopRegions:       models.RankedCounts{{Name: "Москва", Count: 150}, {Name: "Татарстан", Count: 50}},
			TopIndustries:    models.RankedCounts{{Name: "Торговля", Count: 150}, {Name: "IT", Count: 50}},
			BankDistribution: models.OrderedCounts{{Name: "Сбербанк", Count: 150}, {Name: "ВТБ", Count: 50}},
		},
	}
}

func TestWriteDataset_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "companies.json")
	d := testDataset()

	if err := WriteDataset(path, d); err != nil {
		t.Fatalf("WriteDataset failed: %v", err)
	}

	back, err := ReadDataset(path)
	if err != nil {
		t.Fatalf("ReadDataset failed: %v", err)
	}
	if !reflect.DeepEqual(back, d) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back, d)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the output file, found %d entries", len(entries))
	}
}

func TestWriteDataset_Layout(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeDataset(&buf, testDataset()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	for _, want := range []string{
		"\n  \"metadata\": {",
		`"description": "Агрегированные данные о компаниях МСП России"`,
		`"position_3d": {`,
		`"top_regions": [`,
		`"bank_distribution": {`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, `\u`) {
		t.Error("non-ASCII text should not be escaped")
	}
	if strings.Index(out, `"Сбербанк": 150`) > strings.Index(out, `"ВТБ": 50`) {
		t.Error("bank distribution lost insertion order")
	}
}

var errBoom = errors.New("boom")

func TestWriteDataset_FailureKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "companies.json")
	if err := os.WriteFile(path, []byte("previous"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := WriteDataset(path, nil); err == nil {
		t.Fatal("expected error for nil dataset")
	}

	err := writeFileAtomic(path, func(w io.Writer) error {
		w.Write([]byte("partial"))
		return errBoom
	})
	if err != errBoom {
		t.Fatalf("writeFileAtomic error = %v, want %v", err, errBoom)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "previous" {
		t.Errorf("existing file overwritten: %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp file left behind: %d entries", len(entries))
	}
}

func TestWriteGroupsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteGroupsCSV(&buf, testDataset().Companies); err != nil {
		t.Fatalf("WriteGroupsCSV failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if !reflect.DeepEqual(records[0], CSVHeader) {
		t.Errorf("header = %v", records[0])
	}
	want := []string{"group_000001", "150", "0", "47", "Розничная торговля", "Торговля", "77", "Москва", "Центральный", "sber", "Сбербанк", "55.75", "37.62"}
	if !reflect.DeepEqual(records[1], want) {
		t.Errorf("row = %v, want %v", records[1], want)
	}
}

func TestWriteStatisticsWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statistics.xlsx")
	if err := WriteStatisticsWorkbook(path, testDataset()); err != nil {
		t.Fatalf("WriteStatisticsWorkbook failed: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer f.Close()

	want := []string{SheetRevenue, SheetRegions, SheetIndustries, SheetBanks}
	if got := f.GetSheetList(); !reflect.DeepEqual(got, want) {
		t.Errorf("sheets = %v, want %v", got, want)
	}

	cells := []struct {
		sheet, cell, want string
	}{
		{SheetRevenue, "B2", "0-5 млн руб"},
		{SheetRevenue, "C2", "Микро"},
		{SheetRevenue, "D2", "150"},
		{SheetRevenue, "E4", "25"},
		{SheetRegions, "B2", "Москва"},
		{SheetRegions, "D3", "25"},
		{SheetBanks, "B3", "ВТБ"},
	}
	for _, c := range cells {
		got, err := f.GetCellValue(c.sheet, c.cell)
		if err != nil {
			t.Fatalf("%s!%s: %v", c.sheet, c.cell, err)
		}
		if got != c.want {
			t.Errorf("%s!%s = %q, want %q", c.sheet, c.cell, got, c.want)
		}
	}
}

func TestBuildStatisticsWorkbook_NoStatistics(t *testing.T) {
	d := testDataset()
	d.Statistics = nil
	if _, err := BuildStatisticsWorkbook(d); err == nil {
		t.Error("expected error for dataset without statistics")
	}
}

func TestBuildStatisticsWorkbook_ZeroTotal(t *testing.T) {
	d := testDataset()
	d.Statistics.TotalCompanies = 0

	f, err := BuildStatisticsWorkbook(d)
	if !errors.Is(err, statistics.ErrDivisionByZero) {
		t.Fatalf("error = %v, want %v", err, statistics.ErrDivisionByZero)
	}
	if f != nil {
		t.Error("expected no workbook on error")
	}
}

func TestStage(t *testing.T) {
	write := func(w io.Writer) error {
		_, err := io.WriteString(w, "new")
		return err
	}

	tests := []struct {
		name   string
		finish func(*Staged) error
		want   string
	}{
		{name: "commit replaces destination", finish: (*Staged).Commit, want: "new"},
		{name: "discard keeps destination", finish: func(s *Staged) error { s.Discard(); return nil }, want: "old"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "out.json")
			if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
				t.Fatal(err)
			}

			s, err := Stage(path, write)
			if err != nil {
				t.Fatalf("Stage failed: %v", err)
			}
			if s.Path() != path {
				t.Errorf("Path() = %q, want %q", s.Path(), path)
			}
			if data, _ := os.ReadFile(path); string(data) != "old" {
				t.Errorf("destination changed before finishing: %q", data)
			}

			if err := tt.finish(s); err != nil {
				t.Fatalf("finish failed: %v", err)
			}
			if data, _ := os.ReadFile(path); string(data) != tt.want {
				t.Errorf("destination = %q, want %q", data, tt.want)
			}
			entries, _ := os.ReadDir(dir)
			if len(entries) != 1 {
				t.Errorf("directory has %d entries, want 1", len(entries))
			}
		})
	}
}

func TestStage_WriteError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	failure := errors.New("encode failed")

	_, err := Stage(path, func(io.Writer) error { return failure })
	if !errors.Is(err, failure) {
		t.Fatalf("error = %v, want %v", err, failure)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("temp file left behind: %d entries", len(entries))
	}
}
