package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/TimBim12345/SME/internal/filter"
	"github.com/TimBim12345/SME/internal/models"
)

// AllData is the dataset bundled with the reference tables it was drawn from
type AllData struct {
	Companies          []models.CompanyGroup     `json:"companies"`
	Regions            []models.Region           `json:"regions"`
	Industries         []models.Industry         `json:"industries"`
	Banks              []models.Bank             `json:"banks"`
	RevenueCategories  []models.RevenueCategory  `json:"revenue_categories"`
	Statistics         *models.Statistics        `json:"statistics"`
	IndustryCategories []models.IndustryCategory `json:"industry_categories"`
}

// Summary gives the headline counts of the served dataset
type Summary struct {
	TotalCompanies     int64 `json:"total_companies"`
	TotalGroups        int   `json:"total_groups"`
	RegionsCount       int   `json:"regions_count"`
	IndustriesCount    int   `json:"industries_count"`
	BanksCount         int   `json:"banks_count"`
	ActiveFiltersCount int   `json:"active_filters_count"`
}

// withReference resolves the served reference data, writing the error response itself
func (s *Server) withReference(w http.ResponseWriter) (*models.Dataset, *models.ReferenceIndex, bool) {
	s.mu.RLock()
	d, idx := s.dataset, s.refIndex
	s.mu.RUnlock()

	if d == nil {
		respondWithError(w, http.StatusServiceUnavailable, "dataset not generated yet")
		return nil, nil, false
	}
	if d.Reference == nil || idx == nil {
		respondWithError(w, http.StatusServiceUnavailable, "reference data not loaded")
		return nil, nil, false
	}
	return d, idx, true
}

func (s *Server) allDataHandler(w http.ResponseWriter, r *http.Request) {
	d, _, ok := s.withReference(w)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, AllData{
		Companies:          d.Companies,
		Regions:            d.Reference.Regions,
		Industries:         d.Reference.Industries,
		Banks:              d.Reference.Banks,
		RevenueCategories:  d.RevenueCategories,
		Statistics:         d.Statistics,
		IndustryCategories: d.Reference.IndustryCategories(),
	})
}

func (s *Server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	d, _, ok := s.withReference(w)
	if !ok {
		return
	}
	criteria, err := filter.ParseCriteria(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary := Summary{
		TotalGroups:        len(d.Companies),
		RegionsCount:       len(d.Reference.Regions),
		IndustriesCount:    len(d.Reference.Industries),
		BanksCount:         len(d.Reference.Banks),
		ActiveFiltersCount: criteria.Count(),
	}
	if d.Statistics != nil {
		summary.TotalCompanies = d.Statistics.TotalCompanies
	}
	respondWithJSON(w, http.StatusOK, summary)
}

func (s *Server) companyHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.RLock()
	d := s.dataset
	i, found := s.companyAt[id]
	s.mu.RUnlock()

	if d == nil {
		respondWithError(w, http.StatusServiceUnavailable, "dataset not generated yet")
		return
	}
	if !found {
		respondWithError(w, http.StatusNotFound, "company group "+id+" not found")
		return
	}
	respondWithJSON(w, http.StatusOK, d.Companies[i])
}

func (s *Server) regionsHandler(w http.ResponseWriter, r *http.Request) {
	if d, _, ok := s.withReference(w); ok {
		respondWithJSON(w, http.StatusOK, d.Reference.Regions)
	}
}

func (s *Server) regionHandler(w http.ResponseWriter, r *http.Request) {
	_, idx, ok := s.withReference(w)
	if !ok {
		return
	}
	code := mux.Vars(r)["code"]
	region, found := idx.Region(code)
	if !found {
		respondWithError(w, http.StatusNotFound, "region "+code+" not found")
		return
	}
	respondWithJSON(w, http.StatusOK, region)
}

func (s *Server) industriesHandler(w http.ResponseWriter, r *http.Request) {
	if d, _, ok := s.withReference(w); ok {
		respondWithJSON(w, http.StatusOK, d.Reference.Industries)
	}
}

func (s *Server) industryHandler(w http.ResponseWriter, r *http.Request) {
	_, idx, ok := s.withReference(w)
	if !ok {
		return
	}
	code := mux.Vars(r)["code"]
	industry, found := idx.Industry(code)
	if !found {
		respondWithError(w, http.StatusNotFound, "industry "+code+" not found")
		return
	}
	respondWithJSON(w, http.StatusOK, industry)
}

func (s *Server) industryCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	if d, _, ok := s.withReference(w); ok {
		respondWithJSON(w, http.StatusOK, d.Reference.IndustryCategories())
	}
}

func (s *Server) banksHandler(w http.ResponseWriter, r *http.Request) {
	if d, _, ok := s.withReference(w); ok {
		respondWithJSON(w, http.StatusOK, d.Reference.Banks)
	}
}

func (s *Server) bankHandler(w http.ResponseWriter, r *http.Request) {
	_, idx, ok := s.withReference(w)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	bank, found := idx.Bank(id)
	if !found {
		respondWithError(w, http.StatusNotFound, "bank "+id+" not found")
		return
	}
	respondWithJSON(w, http.StatusOK, bank)
}
