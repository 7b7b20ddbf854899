package filter

import (
	"errors"
	"net/url"
	"reflect"
	"testing"

	"github.com/TimBim12345/SME/internal/models"
	"github.com/TimBim12345/SME/internal/statistics"
	"github.com/TimBim12345/SME/internal/validation"
)

func testGroups() []models.CompanyGroup {
	return []models.CompanyGroup{
		{ID: "group_000001", Count: 10, RevenueCategory: 0, IndustryCode: "47", IndustryCategory: "Торговля", RegionCode: "77", RegionName: "Москва", BankID: "sber", BankName: "Сбербанк"},
		{ID: "group_000002", Count: 20, RevenueCategory: 1, IndustryCode: "62", IndustryCategory: "IT", RegionCode: "78", RegionName: "Санкт-Петербург", BankID: "vtb", BankName: "ВТБ"},
		{ID: "group_000003", Count: 30, RevenueCategory: 0, IndustryCode: "62", IndustryCategory: "IT", RegionCode: "77", RegionName: "Москва", BankID: "vtb", BankName: "ВТБ"},
		{ID: "group_000004", Count: 40, RevenueCategory: 2, IndustryCode: "41", IndustryCategory: "Строительство", RegionCode: "16", RegionName: "Татарстан", BankID: "sber", BankName: "Сбербанк"},
	}
}

func ids(groups []models.CompanyGroup) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.ID)
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{"empty matches all", Criteria{}, []string{"group_000001", "group_000002", "group_000003", "group_000004"}},
		{"revenue", Criteria{Revenue: []int{0}}, []string{"group_000001", "group_000003"}},
		{"or within dimension", Criteria{Revenue: []int{1, 2}}, []string{"group_000002", "group_000004"}},
		{"and across dimensions", Criteria{Industries: []string{"62"}, Regions: []string{"77"}}, []string{"group_000003"}},
		{"bank", Criteria{Banks: []string{"sber"}}, []string{"group_000001", "group_000004"}},
		{"no match", Criteria{Regions: []string{"99"}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Apply(testGroups(), tt.criteria))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Apply = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKey_OrderIndependent(t *testing.T) {
	a := Criteria{Revenue: []int{2, 0}, Banks: []string{"vtb", "sber"}}
	b := Criteria{Revenue: []int{0, 2}, Banks: []string{"sber", "vtb"}}
	if a.Key() != b.Key() {
		t.Errorf("keys differ: %q vs %q", a.Key(), b.Key())
	}
	if a.Key() != "0,2|||sber,vtb" {
		t.Errorf("Key = %q", a.Key())
	}
	if a.Revenue[0] != 2 {
		t.Error("Key reordered the criteria values")
	}
}

func TestParseCriteria(t *testing.T) {
	q := url.Values{}
	q.Set("revenue", "0, 3")
	q.Add("industry", "62")
	q.Add("industry", "47,41")
	q.Set("bank", "")

	c, err := ParseCriteria(q)
	if err != nil {
		t.Fatalf("ParseCriteria failed: %v", err)
	}
	want := Criteria{Revenue: []int{0, 3}, Industries: []string{"62", "47", "41"}}
	if !reflect.DeepEqual(c, want) {
		t.Errorf("ParseCriteria = %+v, want %+v", c, want)
	}

	for _, bad := range []string{"x", "5", "-1"} {
		if _, err := ParseCriteria(url.Values{"revenue": {bad}}); !errors.Is(err, validation.ErrInvalidFilter) {
			t.Errorf("revenue=%s: error = %v, want ErrInvalidFilter", bad, err)
		}
	}
}

func TestCache(t *testing.T) {
	cache := NewCache(testGroups(), nil)

	r, err := cache.Get(Criteria{Regions: []string{"77"}})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if r.Statistics.TotalCompanies != 40 || r.Statistics.TotalGroups != 2 {
		t.Errorf("statistics = %d companies / %d groups, want 40 / 2", r.Statistics.TotalCompanies, r.Statistics.TotalGroups)
	}
	if got := r.Statistics.RevenueDistribution[0].Percentage; got != 100 {
		t.Errorf("revenue 0 percentage = %v, want 100", got)
	}

	again, err := cache.Get(Criteria{Regions: []string{"77"}})
	if err != nil {
		t.Fatal(err)
	}
	if again != r {
		t.Error("second Get did not return the cached result")
	}

	if _, err := cache.Get(Criteria{Regions: []string{"99"}}); !errors.Is(err, statistics.ErrDivisionByZero) {
		t.Errorf("empty selection error = %v, want ErrDivisionByZero", err)
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}

	cache.Reset(testGroups()[:1])
	if cache.Len() != 0 {
		t.Errorf("Len after Reset = %d, want 0", cache.Len())
	}
	r, err = cache.Get(Criteria{Regions: []string{"77"}})
	if err != nil {
		t.Fatal(err)
	}
	if r.Statistics.TotalCompanies != 10 {
		t.Errorf("TotalCompanies after Reset = %d, want 10", r.Statistics.TotalCompanies)
	}
}
