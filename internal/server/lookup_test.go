package server

import (
	"net/http"
	"testing"

	"github.com/TimBim12345/SME/internal/models"
)

func TestAllData(t *testing.T) {
	s := NewServer(nil)
	s.SetDataset(testDataset("run-1"))

	rr := get(t, s.Handler(), "/api/data")
	if rr.Code != http.StatusOK {
		t.Fatalf("data = %d", rr.Code)
	}
	var all AllData
	decode(t, rr, &all)
	if len(all.Companies) != 3 || len(all.Regions) != 2 || len(all.Industries) != 3 || len(all.Banks) != 2 {
		t.Errorf("data sizes = %d companies, %d regions, %d industries, %d banks",
			len(all.Companies), len(all.Regions), len(all.Industries), len(all.Banks))
	}
	if len(all.RevenueCategories) != models.RevenueCategoryCount || all.Statistics == nil {
		t.Errorf("data missing categories or statistics: %d, %v", len(all.RevenueCategories), all.Statistics)
	}
	if len(all.IndustryCategories) != 2 || all.IndustryCategories[1].Category != "IT" ||
		len(all.IndustryCategories[1].Industries) != 2 {
		t.Errorf("industry categories = %+v", all.IndustryCategories)
	}
}

func TestSummary(t *testing.T) {
	s := NewServer(nil)
	s.SetDataset(testDataset("run-1"))
	h := s.Handler()

	rr := get(t, h, "/api/summary?region=77,16&bank=vtb")
	if rr.Code != http.StatusOK {
		t.Fatalf("summary = %d", rr.Code)
	}
	var got Summary
	decode(t, rr, &got)
	want := Summary{
		TotalCompanies:     100,
		TotalGroups:        3,
		RegionsCount:       2,
		IndustriesCount:    3,
		BanksCount:         2,
		ActiveFiltersCount: 3,
	}
	if got != want {
		t.Errorf("summary = %+v, want %+v", got, want)
	}

	if rr := get(t, h, "/api/summary?revenue=x"); rr.Code != http.StatusBadRequest {
		t.Errorf("bad filter = %d, want 400", rr.Code)
	}
}

func TestLookups(t *testing.T) {
	s := NewServer(nil)
	s.SetDataset(testDataset("run-1"))
	h := s.Handler()

	t.Run("company", func(t *testing.T) {
		rr := get(t, h, "/api/companies/group_000002")
		if rr.Code != http.StatusOK {
			t.Fatalf("company = %d", rr.Code)
		}
		var g models.CompanyGroup
		decode(t, rr, &g)
		if g.ID != "group_000002" || g.Count != 10 || g.BankID != "vtb" {
			t.Errorf("company = %+v", g)
		}
	})

	t.Run("region", func(t *testing.T) {
		var region models.Region
		rr := get(t, h, "/api/regions/16")
		decode(t, rr, &region)
		if rr.Code != http.StatusOK || region.Name != "Татарстан" || region.Coordinates == nil {
			t.Errorf("region = %d %+v", rr.Code, region)
		}
	})

	t.Run("industry", func(t *testing.T) {
		var industry models.Industry
		rr := get(t, h, "/api/industries/62")
		decode(t, rr, &industry)
		if rr.Code != http.StatusOK || industry.Category != "IT" {
			t.Errorf("industry = %d %+v", rr.Code, industry)
		}
	})

	t.Run("bank", func(t *testing.T) {
		var bank models.Bank
		rr := get(t, h, "/api/banks/sber")
		decode(t, rr, &bank)
		if rr.Code != http.StatusOK || bank.Name != "Сбербанк" {
			t.Errorf("bank = %d %+v", rr.Code, bank)
		}
	})

	t.Run("lists", func(t *testing.T) {
		var regions []models.Region
		decode(t, get(t, h, "/api/regions"), &regions)
		var industries []models.Industry
		decode(t, get(t, h, "/api/industries"), &industries)
		var banks []models.Bank
		decode(t, get(t, h, "/api/banks"), &banks)
		var categories []models.IndustryCategory
		decode(t, get(t, h, "/api/industry-categories"), &categories)
		if len(regions) != 2 || len(industries) != 3 || len(banks) != 2 || len(categories) != 2 {
			t.Errorf("lists = %d regions, %d industries, %d banks, %d categories",
				len(regions), len(industries), len(banks), len(categories))
		}
	})

	for _, target := range []string{
		"/api/companies/group_999999",
		"/api/regions/99",
		"/api/industries/00",
		"/api/banks/nope",
	} {
		if rr := get(t, h, target); rr.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", target, rr.Code)
		}
	}
}

func TestLookups_Unavailable(t *testing.T) {
	h := NewServer(nil).Handler()
	for _, target := range []string{"/api/data", "/api/summary", "/api/companies/group_000001", "/api/regions", "/api/banks/sber"} {
		if rr := get(t, h, target); rr.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s without dataset = %d, want 503", target, rr.Code)
		}
	}

	s := NewServer(nil)
	d := testDataset("run-1")
	d.Reference = nil
	s.SetDataset(d)
	h = s.Handler()
	if rr := get(t, h, "/api/regions"); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("regions without reference data = %d, want 503", rr.Code)
	}
	if rr := get(t, h, "/api/companies/group_000001"); rr.Code != http.StatusOK {
		t.Errorf("company lookup without reference data = %d, want 200", rr.Code)
	}
}
