package validation

import (
	"math"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/TimBim12345/SME/internal/models"
)

// distributionTolerance absorbs float error when summing percentages
const distributionTolerance = 1e-6

// ReferenceValidator checks reference tables and generator inputs
type ReferenceValidator struct {
	validate *validator.Validate
}

// NewReferenceValidator creates a validator for reference data
func NewReferenceValidator() *ReferenceValidator {
	return &ReferenceValidator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// ValidateRegion validates a single region entry
func (v *ReferenceValidator) ValidateRegion(i int, region *models.Region) error {
	return v.entry("region", i, region)
}

// ValidateIndustry validates a single industry entry
func (v *ReferenceValidator) ValidateIndustry(i int, industry *models.Industry) error {
	return v.entry("industry", i, industry)
}

// ValidateBank validates a single bank entry
func (v *ReferenceValidator) ValidateBank(i int, bank *models.Bank) error {
	return v.entry("bank", i, bank)
}

func (v *ReferenceValidator) entry(kind string, i int, entry any) error {
	err := v.validate.Struct(entry)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fe.Namespace()+" ("+fe.Tag()+")")
		}
		return errors.Wrapf(ErrMalformedReferenceEntry, "%s #%d: %s", kind, i, strings.Join(fields, ", "))
	}
	return errors.Wrapf(ErrMalformedReferenceEntry, "%s #%d: %v", kind, i, err)
}

// ValidateReferenceData requires every table to be present and every entry to be well formed
func (v *ReferenceValidator) ValidateReferenceData(ref *models.ReferenceData) error {
	if err := RequireTables(ref); err != nil {
		return err
	}

	for i := range ref.Regions {
		if err := v.ValidateRegion(i, &ref.Regions[i]); err != nil {
			return err
		}
	}
	for i := range ref.Industries {
		if err := v.ValidateIndustry(i, &ref.Industries[i]); err != nil {
			return err
		}
	}
	for i := range ref.Banks {
		if err := v.ValidateBank(i, &ref.Banks[i]); err != nil {
			return err
		}
	}
	return nil
}

// RequireTables fails with ErrReferenceDataMissing when any lookup table is absent or empty
func RequireTables(ref *models.ReferenceData) error {
	if ref == nil {
		return errors.Wrap(ErrReferenceDataMissing, "no reference data")
	}
	switch {
	case len(ref.Regions) == 0:
		return errors.Wrap(ErrReferenceDataMissing, "regions table is empty")
	case len(ref.Industries) == 0:
		return errors.Wrap(ErrReferenceDataMissing, "industries table is empty")
	case len(ref.Banks) == 0:
		return errors.Wrap(ErrReferenceDataMissing, "banks table is empty")
	}
	return nil
}

// ValidateDistribution checks that the revenue distribution covers indices 0-4
// with non-negative weights summing to 100
func ValidateDistribution(dist map[int]float64) error {
	if len(dist) != models.RevenueCategoryCount {
		return errors.Wrapf(ErrInvalidDistribution, "expected %d entries, got %d", models.RevenueCategoryCount, len(dist))
	}

	keys := make([]int, 0, len(dist))
	for k := range dist {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	var sum float64
	for i, k := range keys {
		if k != i {
			return errors.Wrapf(ErrInvalidDistribution, "unexpected category index %d", k)
		}
		w := dist[k]
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return errors.Wrapf(ErrInvalidDistribution, "category %d has weight %v", k, w)
		}
		sum += w
	}
	if math.Abs(sum-100) > distributionTolerance {
		return errors.Wrapf(ErrInvalidDistribution, "weights sum to %v, want 100", sum)
	}
	return nil
}
