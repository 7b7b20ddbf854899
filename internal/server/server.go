package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"

	"github.com/TimBim12345/SME/internal/export"
	"github.com/TimBim12345/SME/internal/filter"
	"github.com/TimBim12345/SME/internal/models"
	"github.com/TimBim12345/SME/internal/publish"
	"github.com/TimBim12345/SME/internal/statistics"
)

// RunLookup returns the latest completed run. *db.Database implements it.
type RunLookup interface {
	LatestRun(ctx context.Context) (*models.GenerationRun, error)
}

// Server serves the current dataset over HTTP
type Server struct {
	router *mux.Router
	events *hub
	runs   RunLookup

	mu        sync.RWMutex
	dataset   *models.Dataset
	cache     *filter.Cache
	refIndex  *models.ReferenceIndex
	companyAt map[string]int
}

// NewServer creates a server; runs may be nil
func NewServer(runs RunLookup) *Server {
	s := &Server{
		router: mux.NewRouter(),
		events: newHub(),
		runs:   runs,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/api/health", s.healthHandler).Methods("GET")
	s.router.HandleFunc("/api/dataset", s.datasetHandler).Methods("GET")
	s.router.HandleFunc("/api/data", s.allDataHandler).Methods("GET")
	s.router.HandleFunc("/api/summary", s.summaryHandler).Methods("GET")
	s.router.HandleFunc("/api/companies", s.companiesHandler).Methods("GET")
	s.router.HandleFunc("/api/companies/{id}", s.companyHandler).Methods("GET")
	s.router.HandleFunc("/api/regions", s.regionsHandler).Methods("GET")
	s.router.HandleFunc("/api/regions/{code}", s.regionHandler).Methods("GET")
	s.router.HandleFunc("/api/industries", s.industriesHandler).Methods("GET")
	s.router.HandleFunc("/api/industries/{code}", s.industryHandler).Methods("GET")
	s.router.HandleFunc("/api/industry-categories", s.industryCategoriesHandler).Methods("GET")
	s.router.HandleFunc("/api/banks", s.banksHandler).Methods("GET")
	s.router.HandleFunc("/api/banks/{id}", s.bankHandler).Methods("GET")
	s.router.HandleFunc("/api/statistics", s.statisticsHandler).Methods("GET")
	s.router.HandleFunc("/api/revenue-categories", s.revenueCategoriesHandler).Methods("GET")
	s.router.HandleFunc("/api/export.csv", s.exportCSVHandler).Methods("GET")
	s.router.HandleFunc("/api/runs/latest", s.latestRunHandler).Methods("GET")
	s.router.HandleFunc("/api/events", s.eventsHandler)
}

// Handler returns the router wrapped with CORS
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// SetDataset replaces the served dataset, drops cached filter results and
// notifies event clients
func (s *Server) SetDataset(d *models.Dataset) {
	companyAt := make(map[string]int, len(d.Companies))
	for i, g := range d.Companies {
		companyAt[g.ID] = i
	}
	var refIndex *models.ReferenceIndex
	if d.Reference != nil {
		refIndex = models.NewReferenceIndex(d.Reference)
	}

	s.mu.Lock()
	s.dataset = d
	s.companyAt = companyAt
	s.refIndex = refIndex
	if s.cache == nil {
		s.cache = filter.NewCache(d.Companies, nil)
	} else {
		s.cache.Reset(d.Companies)
	}
	s.mu.Unlock()

	log.Printf("Serving dataset %s with %d groups", d.Metadata.RunID, len(d.Companies))
	s.events.broadcast(Event{Type: EventDataset, Data: publish.NewRunSummary(d, 0)})
}

func (s *Server) current() (*models.Dataset, *filter.Cache) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset, s.cache
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting API server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return errors.Wrap(err, "error starting server")
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	s.events.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "error during server shutdown")
	}
	log.Println("Server gracefully stopped")
	return nil
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	d, _ := s.current()
	health := map[string]interface{}{
		"status":         "ok",
		"timestamp":      time.Now().Format(time.RFC3339),
		"dataset_loaded": d != nil,
		"event_clients":  s.events.count(),
	}
	if d != nil {
		health["run_id"] = d.Metadata.RunID
		health["total_groups"] = d.Metadata.TotalGroups
	}
	respondWithJSON(w, http.StatusOK, health)
}

func (s *Server) datasetHandler(w http.ResponseWriter, r *http.Request) {
	d, _ := s.current()
	if d == nil {
		respondWithError(w, http.StatusServiceUnavailable, "dataset not generated yet")
		return
	}
	respondWithJSON(w, http.StatusOK, d)
}

// filtered resolves the request's filter parameters, writing the error response itself
func (s *Server) filtered(w http.ResponseWriter, r *http.Request) (*filter.Result, bool) {
	_, cache := s.current()
	if cache == nil {
		respondWithError(w, http.StatusServiceUnavailable, "dataset not generated yet")
		return nil, false
	}

	criteria, err := filter.ParseCriteria(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	result, err := cache.Get(criteria)
	if errors.Is(err, statistics.ErrDivisionByZero) {
		respondWithError(w, http.StatusUnprocessableEntity, "no companies match the filter")
		return nil, false
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return result, true
}

func (s *Server) companiesHandler(w http.ResponseWriter, r *http.Request) {
	result, ok := s.filtered(w, r)
	if !ok {
		return
	}

	companies := result.Companies
	total := len(companies)
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if offset > 0 {
		companies = companies[min(offset, total):]
	}
	if limit > 0 && limit < len(companies) {
		companies = companies[:limit]
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"total":     total,
		"companies": companies,
	})
}

func (s *Server) statisticsHandler(w http.ResponseWriter, r *http.Request) {
	result, ok := s.filtered(w, r)
	if !ok {
		return
	}
	respondWithJSON(w, http.StatusOK, result.Statistics)
}

func (s *Server) revenueCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories := models.DefaultRevenueCategories()
	if d, _ := s.current(); d != nil && len(d.RevenueCategories) > 0 {
		categories = d.RevenueCategories
	}
	respondWithJSON(w, http.StatusOK, categories)
}

func (s *Server) exportCSVHandler(w http.ResponseWriter, r *http.Request) {
	result, ok := s.filtered(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="companies.csv"`)
	if err := export.WriteGroupsCSV(w, result.Companies); err != nil {
		log.Printf("Error writing csv export: %v", err)
	}
}

func (s *Server) latestRunHandler(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		respondWithError(w, http.StatusNotFound, "run history not configured")
		return
	}
	run, err := s.runs.LatestRun(r.Context())
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, run)
}

func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.events.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Error upgrading connection: %v", err)
		return
	}
	client := &safeConn{conn: conn}
	s.events.add(client)
	defer func() {
		s.events.remove(client)
		client.Close()
	}()

	if d, _ := s.current(); d != nil {
		if err := client.WriteJSON(Event{Type: EventDataset, Data: publish.NewRunSummary(d, 0)}); err != nil {
			return
		}
	}

	// Clients only listen; reading detects disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Error marshaling JSON"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
