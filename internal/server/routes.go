package server

import (
	"net/http"
	"strings"

	"github.com/bobmcallan/roundup/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Transactions and round-ups
	mux.HandleFunc("/api/transactions/import", s.handleTransactionImport)
	mux.HandleFunc("/api/transactions", s.handleTransactions)
	mux.HandleFunc("/api/roundups/pending", s.handleRoundUpsPending)
	mux.HandleFunc("/api/roundups/monthly/chart", s.handleRoundUpsMonthlyChart)
	mux.HandleFunc("/api/roundups/monthly", s.handleRoundUpsMonthly)

	// Portfolios
	mux.HandleFunc("/api/portfolios/active", s.handlePortfolioActive)
	mux.HandleFunc("/api/portfolios/", s.routePortfolios)
	mux.HandleFunc("/api/portfolios", s.handlePortfolios)

	// Risk
	mux.HandleFunc("/api/risk/questionnaire", s.handleRiskQuestionnaire)
	mux.HandleFunc("/api/risk/assessments/latest", s.handleRiskLatest)
	mux.HandleFunc("/api/risk/assessments", s.handleRiskSubmit)
	mux.HandleFunc("/api/risk/recommendation", s.handleRiskRecommendation)
}

// routePortfolios dispatches /api/portfolios/{id}/...
func (s *Server) routePortfolios(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/portfolios/")
	if path == "" {
		s.handlePortfolios(w, r)
		return
	}

	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	subpath := ""
	if len(parts) > 1 {
		subpath = strings.TrimSuffix(parts[1], "/")
	}

	switch subpath {
	case "":
		s.handlePortfolioValuation(w, r, id)
	case "positions":
		s.handlePositions(w, r, id)
	case "lots":
		s.handleAddLot(w, r, id)
	case "duplicates":
		s.handleDuplicates(w, r, id)
	case "consolidate":
		s.handleConsolidate(w, r, id)
	case "invest":
		s.handleInvest(w, r, id)
	case "reprice":
		s.handleReprice(w, r, id)
	case "allocation":
		s.handleAllocation(w, r, id)
	case "allocation/adjust":
		s.handleAllocationAdjust(w, r, id)
	case "allocation/recommended":
		s.handleAllocationRecommended(w, r, id)
	case "allocation/chart":
		s.handleAllocationChart(w, r, id)
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, common.GetVersionInfo())
}
