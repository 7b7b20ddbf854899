package generator

import (
	"fmt"
	"log"
	"math"

	"github.com/pkg/errors"

	"github.com/TimBim12345/SME/internal/models"
	"github.com/TimBim12345/SME/internal/sampling"
	"github.com/TimBim12345/SME/internal/validation"
)

const (
	// Per-group count multiplier range around the base count
	minVariation = 0.5
	maxVariation = 2.0

	// Coordinate jitter so groups of one region do not overlap on the map
	coordinateJitter = 0.5

	// Half-size of the cube the initial 3D layout is seeded in
	layoutExtent = 100.0

	progressInterval = 1000
)

// Industry category weight tiers
var (
	highFrequencyCategories   = map[string]bool{"Торговля": true, "Услуги": true, "Строительство": true}
	mediumFrequencyCategories = map[string]bool{"IT": true, "Производство": true, "Транспорт": true}
)

// IndustryWeight returns the sampling weight tier for an industry category
func IndustryWeight(category string) float64 {
	switch {
	case highFrequencyCategories[category]:
		return 3.0
	case mediumFrequencyCategories[category]:
		return 2.0
	default:
		return 1.0
	}
}

// GroupID formats the 1-based sequential identifier of a group
func GroupID(n int) string {
	return fmt.Sprintf("group_%06d", n)
}

// ProgressFunc receives advisory progress notifications
type ProgressFunc func(done, total int)

// LogProgress logs every progressInterval groups
func LogProgress(done, total int) {
	if done%progressInterval == 0 {
		log.Printf("Generated %d/%d groups", done, total)
	}
}

// Config holds the generation parameters
type Config struct {
	TargetGroups        int
	TotalCompanies      int64
	RevenueDistribution map[int]float64
	// Seed of the random source; 0 derives one from the clock
	Seed int64
}

// DefaultConfig returns the parameters for the full-size demo dataset
func DefaultConfig() Config {
	return Config{
		TargetGroups:        15000,
		TotalCompanies:      6000000,
		RevenueDistribution: models.DefaultRevenueDistribution(),
	}
}

// BaseCount is the nominal number of companies per group
func (c Config) BaseCount() int64 {
	if c.TargetGroups <= 0 {
		return 0
	}
	return c.TotalCompanies / int64(c.TargetGroups)
}

// Validate checks the parameters
func (c Config) Validate() error {
	if c.TargetGroups < 0 {
		return errors.Wrapf(validation.ErrInvalidConfig, "target groups must not be negative, got %d", c.TargetGroups)
	}
	if c.TotalCompanies < 0 {
		return errors.Wrapf(validation.ErrInvalidConfig, "total companies must not be negative, got %d", c.TotalCompanies)
	}
	return validation.ValidateDistribution(c.RevenueDistribution)
}

// Generator produces company groups from reference data
type Generator struct {
	rng        sampling.Source
	ref        *models.ReferenceData
	config     Config
	categories []models.RevenueCategory
	progress   ProgressFunc
}

// NewGenerator creates a generator drawing from rng
func NewGenerator(rng sampling.Source, ref *models.ReferenceData, config Config) *Generator {
	return &Generator{
		rng:        rng,
		ref:        ref,
		config:     config,
		categories: models.DefaultRevenueCategories(),
		progress:   LogProgress,
	}
}

// WithProgress replaces the progress callback; nil disables notifications
func (g *Generator) WithProgress(fn ProgressFunc) *Generator {
	g.progress = fn
	return g
}

// Generate produces exactly TargetGroups groups. Reference tables and
// parameters are checked before the first draw.
func (g *Generator) Generate() ([]models.CompanyGroup, error) {
	if err := g.config.Validate(); err != nil {
		return nil, err
	}
	if err := validation.RequireTables(g.ref); err != nil {
		return nil, err
	}

	revenueIdx := make([]int, models.RevenueCategoryCount)
	revenueWeights := make([]float64, models.RevenueCategoryCount)
	for i := range revenueIdx {
		revenueIdx[i] = i
		revenueWeights[i] = g.config.RevenueDistribution[i]
	}
	revenue := sampling.NewPicker(revenueIdx, func(i int) float64 { return revenueWeights[i] })
	regions := sampling.NewPicker(g.ref.Regions, func(r models.Region) float64 { return r.Population })
	industries := sampling.NewPicker(g.ref.Industries, func(ind models.Industry) float64 { return IndustryWeight(ind.Category) })
	banks := sampling.NewPicker(g.ref.Banks, func(b models.Bank) float64 { return b.MarketShare })

	total := g.config.TargetGroups
	base := g.config.BaseCount()
	groups := make([]models.CompanyGroup, 0, total)

	log.Printf("Generating %d company groups (base %d companies per group)", total, base)

	for i := 0; i < total; i++ {
		if g.progress != nil {
			g.progress(i, total)
		}

		category := revenue.Pick(g.rng)
		region := regions.Pick(g.rng)
		industry := industries.Pick(g.rng)
		bank := banks.Pick(g.rng)

		if region.Coordinates == nil {
			return nil, errors.Wrapf(validation.ErrMalformedReferenceEntry, "region %s has no coordinates", region.Code)
		}

		variation := sampling.Uniform(g.rng, minVariation, maxVariation)
		count := int64(math.Floor(float64(base) * variation))
		if count < 1 {
			count = 1
		}

		latOffset := sampling.Uniform(g.rng, -coordinateJitter, coordinateJitter)
		lonOffset := sampling.Uniform(g.rng, -coordinateJitter, coordinateJitter)

		position := models.Position3D{
			X: sampling.Uniform(g.rng, -layoutExtent, layoutExtent),
			Y: sampling.Uniform(g.rng, -layoutExtent, layoutExtent),
			Z: sampling.Uniform(g.rng, -layoutExtent, layoutExtent),
		}

		groups = append(groups, models.CompanyGroup{
			ID:               GroupID(i + 1),
			Count:            count,
			RevenueCategory:  category,
			IndustryCode:     industry.Code,
			IndustryName:     industry.Name,
			IndustryCategory: industry.Category,
			RegionCode:       region.Code,
			RegionName:       region.Name,
			FederalDistrict:  region.FederalDistrict,
			BankID:           bank.ID,
			BankName:         bank.Name,
			Coordinates: models.Coordinates{
				Lat: region.Coordinates.Lat + latOffset,
				Lon: region.Coordinates.Lon + lonOffset,
			},
			Position3D: position,
			Metadata: models.GroupMetadata{
				RevenueRange:  g.categories[category],
				IndustryColor: industry.Color,
				BankColor:     bank.Color,
			},
		})
	}

	if g.progress != nil {
		g.progress(total, total)
	}
	return groups, nil
}
