package validation

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/TimBim12345/SME/internal/models"
)

func validReference() *models.ReferenceData {
	return &models.ReferenceData{
		Regions: []models.Region{{
			Code: "77", Name: "Москва", FederalDistrict: "Центральный", Population: 13010112,
			Coordinates: &models.Coordinates{Lat: 55.7558, Lon: 37.6173},
		}},
		Industries: []models.Industry{{Code: "62", Name: "Разработка ПО", Category: "IT", Color: "#4ecdc4"}},
		Banks:      []models.Bank{{ID: "sber", Name: "Сбербанк", MarketShare: 32.5, Color: "#21a038"}},
	}
}

func TestValidateReferenceData(t *testing.T) {
	v := NewReferenceValidator()
	if err := v.ValidateReferenceData(validReference()); err != nil {
		t.Fatalf("valid reference data rejected: %v", err)
	}

	tests := []struct {
		name      string
		mutate    func(*models.ReferenceData)
		wantErr   error
		wantField string
	}{
		{"nil regions", func(r *models.ReferenceData) { r.Regions = nil }, ErrReferenceDataMissing, "regions"},
		{"empty banks", func(r *models.ReferenceData) { r.Banks = []models.Bank{} }, ErrReferenceDataMissing, "banks"},
		{"missing coordinates", func(r *models.ReferenceData) { r.Regions[0].Coordinates = nil }, ErrMalformedReferenceEntry, "Coordinates"},
		{"latitude out of range", func(r *models.ReferenceData) { r.Regions[0].Coordinates.Lat = 95 }, ErrMalformedReferenceEntry, "Lat"},
		{"negative population", func(r *models.ReferenceData) { r.Regions[0].Population = -1 }, ErrMalformedReferenceEntry, "Population"},
		{"industry without category", func(r *models.ReferenceData) { r.Industries[0].Category = "" }, ErrMalformedReferenceEntry, "Category"},
		{"bank without id", func(r *models.ReferenceData) { r.Banks[0].ID = "" }, ErrMalformedReferenceEntry, "bank #0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := validReference()
			tt.mutate(ref)
			err := v.ValidateReferenceData(ref)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantField) {
				t.Errorf("error %q does not mention %q", err, tt.wantField)
			}
		})
	}
}

func TestRequireTables_Nil(t *testing.T) {
	if err := RequireTables(nil); !errors.Is(err, ErrReferenceDataMissing) {
		t.Errorf("RequireTables(nil) = %v, want ErrReferenceDataMissing", err)
	}
}

func TestValidateDistribution(t *testing.T) {
	if err := ValidateDistribution(models.DefaultRevenueDistribution()); err != nil {
		t.Fatalf("default distribution rejected: %v", err)
	}

	tests := []struct {
		name string
		dist map[int]float64
	}{
		{"too few entries", map[int]float64{0: 100}},
		{"wrong index", map[int]float64{0: 20, 1: 20, 2: 20, 3: 20, 5: 20}},
		{"negative weight", map[int]float64{0: 120, 1: -20, 2: 0, 3: 0, 4: 0}},
		{"nan weight", map[int]float64{0: math.NaN(), 1: 25, 2: 25, 3: 25, 4: 25}},
		{"sum below 100", map[int]float64{0: 20, 1: 20, 2: 20, 3: 20, 4: 19}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateDistribution(tt.dist); !errors.Is(err, ErrInvalidDistribution) {
				t.Errorf("error = %v, want ErrInvalidDistribution", err)
			}
		})
	}

	if err := ValidateDistribution(map[int]float64{0: 100, 1: 0, 2: 0, 3: 0, 4: 0}); err != nil {
		t.Errorf("single-category distribution rejected: %v", err)
	}
}
