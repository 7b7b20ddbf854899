package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"

	"github.com/TimBim12345/SME/internal/models"
)

// CSVHeader is the column order of the group export
var CSVHeader = []string{
	"ID",
	"Количество компаний",
	"Категория выручки",
	"Код отрасли",
	"Название отрасли",
	"Категория отрасли",
	"Код региона",
	"Название региона",
	"Федеральный округ",
	"ID банка",
	"Название банка",
	"Широта",
	"Долгота",
}

func groupRecord(g models.CompanyGroup) []string {
	return []string{
		g.ID,
		strconv.FormatInt(g.Count, 10),
		strconv.Itoa(g.RevenueCategory),
		g.IndustryCode,
		g.IndustryName,
		g.IndustryCategory,
		g.RegionCode,
		g.RegionName,
		g.FederalDistrict,
		g.BankID,
		g.BankName,
		strconv.FormatFloat(g.Coordinates.Lat, 'f', -1, 64),
		strconv.FormatFloat(g.Coordinates.Lon, 'f', -1, 64),
	}
}

// WriteGroupsCSV writes a header row followed by one row per group
func WriteGroupsCSV(w io.Writer, groups []models.CompanyGroup) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return errors.Wrap(err, "failed to write csv header")
	}
	for _, g := range groups {
		if err := cw.Write(groupRecord(g)); err != nil {
			return errors.Wrapf(err, "failed to write csv row %s", g.ID)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "failed to flush csv")
}

// WriteCSVFile writes the group export to path atomically
func WriteCSVFile(path string, groups []models.CompanyGroup) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return WriteGroupsCSV(w, groups)
	})
}

// StageCSVFile writes the group export next to path without replacing it
func StageCSVFile(path string, groups []models.CompanyGroup) (*Staged, error) {
	return Stage(path, func(w io.Writer) error {
		return WriteGroupsCSV(w, groups)
	})
}
