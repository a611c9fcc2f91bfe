// Package server exposes the processed dataset to the dashboard over a small
// JSON API.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/spendview-dev/spendview/internal/aggregate"
	"github.com/spendview-dev/spendview/internal/category"
	"github.com/spendview-dev/spendview/internal/model"
	"github.com/spendview-dev/spendview/internal/notes"
)

// Server serves the processed dataset. Reads are served from memory; mapping
// and note updates write through their stores to disk and re-resolve the
// in-memory transactions so the dashboard reflects the change immediately.
type Server struct {
	mu      sync.RWMutex
	mapper  *category.Mapper
	notes   *notes.Store
	txns    []model.Transaction
	txnKeys map[string]bool
	series  []model.RecurringSeries
	summary aggregate.Summary
	log     zerolog.Logger
}

// New creates a Server over an already-processed dataset.
func New(mapper *category.Mapper, notesStore *notes.Store, txns []model.Transaction, series []model.RecurringSeries, summary aggregate.Summary, log zerolog.Logger) *Server {
	// Prime the unmapped report from the persisted dataset so the dashboard
	// lists merchants needing review without a pipeline run.
	txnKeys := make(map[string]bool, len(txns))
	for _, t := range txns {
		mapper.Resolve(t.MerchantKey, t.BankCategory)
		txnKeys[notes.Key(t)] = true
	}
	return &Server{
		mapper:  mapper,
		notes:   notesStore,
		txns:    txns,
		txnKeys: txnKeys,
		series:  series,
		summary: summary,
		log:     log,
	}
}

// Router builds the API routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/transactions", s.handleTransactions).Methods(http.MethodGet)
	r.HandleFunc("/api/recurring", s.handleRecurring).Methods(http.MethodGet)
	r.HandleFunc("/api/summary", s.handleSummary).Methods(http.MethodGet)
	r.HandleFunc("/api/categories", s.handleCategories).Methods(http.MethodGet)
	r.HandleFunc("/api/mappings", s.handleMappings).Methods(http.MethodGet)
	r.HandleFunc("/api/unmapped", s.handleUnmapped).Methods(http.MethodGet)
	r.HandleFunc("/api/mappings/{key}", s.handleUpdateMapping).Methods(http.MethodPut)
	r.HandleFunc("/api/notes", s.handleNotes).Methods(http.MethodGet)
	r.HandleFunc("/api/notes/{key}", s.handleUpdateNote).Methods(http.MethodPut)
	return r
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.writeJSON(w, http.StatusOK, s.txns)
}

func (s *Server) handleRecurring(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.writeJSON(w, http.StatusOK, s.series)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.writeJSON(w, http.StatusOK, s.summary)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, category.Budget)
}

func (s *Server) handleMappings(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.writeJSON(w, http.StatusOK, s.mapper.Store().All())
}

func (s *Server) handleUnmapped(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.writeJSON(w, http.StatusOK, s.mapper.Unmapped())
}

type mappingUpdate struct {
	Category string `json:"category"`
}

func (s *Server) handleUpdateMapping(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var body mappingUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.mapper.Update(key, body.Category); err != nil {
		var invalid *category.InvalidCategoryError
		if errors.As(err, &invalid) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error().Err(err).Str("key", key).Msg("persisting mapping update")
		s.writeError(w, http.StatusInternalServerError, "failed to persist mapping")
		return
	}

	for i := range s.txns {
		if s.txns[i].MerchantKey == key {
			s.txns[i].Category = body.Category
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]string{key: body.Category})
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.writeJSON(w, http.StatusOK, s.notes.All())
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	var body notes.Entry
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.txnKeys[key] {
		s.writeError(w, http.StatusNotFound, "no such transaction")
		return
	}

	if err := s.notes.Put(key, body); err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("persisting note update")
		s.writeError(w, http.StatusInternalServerError, "failed to persist note")
		return
	}

	stored, _ := s.notes.Get(key)
	s.writeJSON(w, http.StatusOK, map[string]notes.Entry{key: stored})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encoding response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
