package statistics

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/TimBim12345/SME/internal/models"
)

// DefaultTopN is the length of the region and industry rankings
const DefaultTopN = 10

// ErrDivisionByZero is returned when percentages are requested over zero companies
var ErrDivisionByZero = errors.New("division by zero: total company count is 0")

// ErrUnknownCategory is returned for a group whose revenue category is not one of the aggregator's
var ErrUnknownCategory = errors.New("unknown revenue category")

var hundred = decimal.NewFromInt(100)

// Percentage returns part/total*100 rounded half-up to one decimal place
func Percentage(part, total int64) (float64, error) {
	if total == 0 {
		return 0, ErrDivisionByZero
	}
	pct := decimal.NewFromInt(part).Mul(hundred).Div(decimal.NewFromInt(total)).Round(1)
	return pct.InexactFloat64(), nil
}

// Aggregator computes summary statistics over company groups
type Aggregator struct {
	categories []models.RevenueCategory
	topN       int
}

// NewAggregator creates an aggregator for the given revenue categories
func NewAggregator(categories []models.RevenueCategory, topN int) *Aggregator {
	if len(categories) == 0 {
		categories = models.DefaultRevenueCategories()
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Aggregator{categories: categories, topN: topN}
}

// Compute summarizes groups. It holds no state between calls, so equal
// input yields identical output.
func (a *Aggregator) Compute(groups []models.CompanyGroup) (*models.Statistics, error) {
	var total int64
	for _, g := range groups {
		total += g.Count
	}
	if total == 0 {
		return nil, ErrDivisionByZero
	}

	revenue := make(models.RevenueStats, len(a.categories))
	perCategory := make(map[int]int64, len(a.categories))
	for _, c := range a.categories {
		perCategory[c.Index] = 0
	}
	for _, g := range groups {
		if _, ok := perCategory[g.RevenueCategory]; !ok {
			return nil, errors.Wrapf(ErrUnknownCategory, "group %s has category %d", g.ID, g.RevenueCategory)
		}
		perCategory[g.RevenueCategory] += g.Count
	}
	for _, c := range a.categories {
		count := perCategory[c.Index]
		pct, err := Percentage(count, total)
		if err != nil {
			return nil, err
		}
		revenue[c.Index] = models.RevenueStat{Count: count, Percentage: pct, Name: c.Name}
	}

	return &models.Statistics{
		TotalCompanies:      total,
		TotalGroups:         len(groups),
		RevenueDistribution: revenue,
		TopRegions:          Top(SumBy(groups, func(g models.CompanyGroup) string { return g.RegionName }), a.topN),
		TopIndustries:       Top(SumBy(groups, func(g models.CompanyGroup) string { return g.IndustryCategory }), a.topN),
		BankDistribution:    models.OrderedCounts(SumBy(groups, func(g models.CompanyGroup) string { return g.BankName })),
	}, nil
}

// SumBy sums group counts per key, keeping keys in first-seen order
func SumBy(groups []models.CompanyGroup, key func(models.CompanyGroup) string) []models.NamedCount {
	index := make(map[string]int)
	var out []models.NamedCount
	for _, g := range groups {
		k := key(g)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, models.NamedCount{Name: k})
		}
		out[i].Count += g.Count
	}
	return out
}

// Top sorts counts descending, keeping first-seen order among ties, and
// truncates to n entries
func Top(counts []models.NamedCount, n int) models.RankedCounts {
	ranked := make(models.RankedCounts, len(counts))
	copy(ranked, counts)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Count > ranked[j].Count })
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
