package reference

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/TimBim12345/SME/internal/models"
	"github.com/TimBim12345/SME/internal/validation"
)

// File names inside the reference data directory
const (
	RegionsFile    = "regions.json"
	IndustriesFile = "industries.json"
	BanksFile      = "banks.json"
)

// Loader reads the lookup tables the generator samples from
type Loader struct {
	validator *validation.ReferenceValidator
}

// NewLoader creates a reference data loader
func NewLoader(v *validation.ReferenceValidator) *Loader {
	if v == nil {
		v = validation.NewReferenceValidator()
	}
	return &Loader{validator: v}
}

// LoadAll reads regions, industries and banks from dir and validates them
func (l *Loader) LoadAll(dir string) (*models.ReferenceData, error) {
	regions, err := l.LoadRegions(filepath.Join(dir, RegionsFile))
	if err != nil {
		return nil, err
	}
	industries, err := l.LoadIndustries(filepath.Join(dir, IndustriesFile))
	if err != nil {
		return nil, err
	}
	banks, err := l.LoadBanks(filepath.Join(dir, BanksFile))
	if err != nil {
		return nil, err
	}

	ref := &models.ReferenceData{
		Regions:    regions,
		Industries: industries,
		Banks:      banks,
	}
	log.Printf("Loaded reference data: %d regions, %d industries, %d banks",
		len(regions), len(industries), len(banks))
	return ref, nil
}

// LoadRegions loads the regions table
func (l *Loader) LoadRegions(path string) ([]models.Region, error) {
	regions, err := loadTable[models.Region](path, "regions")
	if err != nil {
		return nil, err
	}
	for i := range regions {
		if err := l.validator.ValidateRegion(i, &regions[i]); err != nil {
			return nil, errors.Wrap(err, path)
		}
	}
	return regions, nil
}

// LoadIndustries loads the industries table
func (l *Loader) LoadIndustries(path string) ([]models.Industry, error) {
	industries, err := loadTable[models.Industry](path, "industries")
	if err != nil {
		return nil, err
	}
	for i := range industries {
		if err := l.validator.ValidateIndustry(i, &industries[i]); err != nil {
			return nil, errors.Wrap(err, path)
		}
	}
	return industries, nil
}

// LoadBanks loads the banks table
func (l *Loader) LoadBanks(path string) ([]models.Bank, error) {
	banks, err := loadTable[models.Bank](path, "banks")
	if err != nil {
		return nil, err
	}
	for i := range banks {
		if err := l.validator.ValidateBank(i, &banks[i]); err != nil {
			return nil, errors.Wrap(err, path)
		}
	}
	return banks, nil
}

// loadTable decodes either {"<key>": [...]} or a bare array. An absent
// file or empty table is ErrReferenceDataMissing.
func loadTable[T any](path, key string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(validation.ErrReferenceDataMissing, "%s: file not found", path)
		}
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	// Try the wrapped layout first
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(data, &wrapped); err == nil {
		raw, ok := wrapped[key]
		if !ok || isNull(raw) {
			return nil, errors.Wrapf(validation.ErrReferenceDataMissing, "%s: no %q table", path, key)
		}
		data = raw
	}

	var table []T
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, errors.Wrapf(validation.ErrMalformedReferenceEntry, "%s: %v", path, err)
	}
	if len(table) == 0 {
		return nil, errors.Wrapf(validation.ErrReferenceDataMissing, "%s: %s table is empty", path, key)
	}
	return table, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
