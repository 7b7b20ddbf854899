package filter

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/TimBim12345/SME/internal/models"
	"github.com/TimBim12345/SME/internal/statistics"
	"github.com/TimBim12345/SME/internal/validation"
)

// Criteria selects company groups. Values within one dimension are OR-ed,
// dimensions are AND-ed, and an empty dimension matches everything.
type Criteria struct {
	Revenue    []int    `json:"revenue,omitempty"`
	Industries []string `json:"industries,omitempty"` // industry codes
	Regions    []string `json:"regions,omitempty"`    // region codes
	Banks      []string `json:"banks,omitempty"`      // bank ids
}

// IsEmpty reports whether no dimension is constrained
func (c Criteria) IsEmpty() bool {
	return len(c.Revenue) == 0 && len(c.Industries) == 0 && len(c.Regions) == 0 && len(c.Banks) == 0
}

// Count returns the number of selected values across all dimensions
func (c Criteria) Count() int {
	return len(c.Revenue) + len(c.Industries) + len(c.Regions) + len(c.Banks)
}

// Matches reports whether g satisfies every constrained dimension
func (c Criteria) Matches(g models.CompanyGroup) bool {
	if len(c.Revenue) > 0 && !slices.Contains(c.Revenue, g.RevenueCategory) {
		return false
	}
	if len(c.Industries) > 0 && !slices.Contains(c.Industries, g.IndustryCode) {
		return false
	}
	if len(c.Regions) > 0 && !slices.Contains(c.Regions, g.RegionCode) {
		return false
	}
	if len(c.Banks) > 0 && !slices.Contains(c.Banks, g.BankID) {
		return false
	}
	return true
}

// Key returns a canonical representation, identical for criteria that
// select the same groups regardless of value order
func (c Criteria) Key() string {
	revenue := make([]string, len(c.Revenue))
	for i, r := range c.Revenue {
		revenue[i] = strconv.Itoa(r)
	}
	parts := []string{
		sortedJoin(revenue),
		sortedJoin(c.Industries),
		sortedJoin(c.Regions),
		sortedJoin(c.Banks),
	}
	return strings.Join(parts, "|")
}

// Apply returns the groups matching c, in their original order
func Apply(groups []models.CompanyGroup, c Criteria) []models.CompanyGroup {
	if c.IsEmpty() {
		return groups
	}
	var out []models.CompanyGroup
	for _, g := range groups {
		if c.Matches(g) {
			out = append(out, g)
		}
	}
	return out
}

// ParseCriteria reads the revenue, industry, region and bank query
// parameters. Each may be repeated or hold comma-separated values.
func ParseCriteria(q url.Values) (Criteria, error) {
	var c Criteria
	for _, v := range splitParam(q, "revenue") {
		idx, err := strconv.Atoi(v)
		if err != nil || idx < 0 || idx >= models.RevenueCategoryCount {
			return Criteria{}, errors.Wrapf(validation.ErrInvalidFilter, "revenue category %q", v)
		}
		c.Revenue = append(c.Revenue, idx)
	}
	c.Industries = splitParam(q, "industry")
	c.Regions = splitParam(q, "region")
	c.Banks = splitParam(q, "bank")
	return c, nil
}

// Result is a filtered selection together with its statistics
type Result struct {
	Companies  []models.CompanyGroup `json:"companies"`
	Statistics *models.Statistics    `json:"statistics"`
}

// Cache memoizes filtered results for one dataset
type Cache struct {
	mu         sync.Mutex
	groups     []models.CompanyGroup
	aggregator *statistics.Aggregator
	entries    map[string]*Result
}

// NewCache creates a cache over groups
func NewCache(groups []models.CompanyGroup, aggregator *statistics.Aggregator) *Cache {
	if aggregator == nil {
		aggregator = statistics.NewAggregator(nil, 0)
	}
	return &Cache{
		groups:     groups,
		aggregator: aggregator,
		entries:    make(map[string]*Result),
	}
}

// Get returns the filtered groups and their statistics. An empty selection
// fails with statistics.ErrDivisionByZero and is not cached.
func (c *Cache) Get(criteria Criteria) (*Result, error) {
	key := criteria.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.entries[key]; ok {
		return r, nil
	}

	selected := Apply(c.groups, criteria)
	stats, err := c.aggregator.Compute(selected)
	if err != nil {
		return nil, errors.Wrapf(err, "filter %q", key)
	}

	r := &Result{Companies: selected, Statistics: stats}
	c.entries[key] = r
	return r, nil
}

// Reset replaces the underlying groups and drops all cached results
func (c *Cache) Reset(groups []models.CompanyGroup) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups = groups
	c.entries = make(map[string]*Result)
}

// Len returns the number of cached results
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func splitParam(q url.Values, name string) []string {
	var out []string
	for _, raw := range q[name] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func sortedJoin(values []string) string {
	s := slices.Clone(values)
	slices.Sort(s)
	return strings.Join(s, ",")
}
