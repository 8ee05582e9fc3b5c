package server

import (
	"errors"
	"net/http"

	"github.com/bobmcallan/roundup/internal/interfaces"
	"github.com/bobmcallan/roundup/internal/models"
)

// handlePortfolios serves GET (list) and POST (create).
func (s *Server) handlePortfolios(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	if r.Method == http.MethodGet {
		ps, err := s.app.PortfolioService.List(r.Context())
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{"portfolios": ps})
		return
	}

	var in models.NewPortfolio
	if !DecodeJSON(w, r, &in) {
		return
	}
	p, err := s.app.PortfolioService.Create(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, p)
}

func (s *Server) handlePortfolioActive(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	p, err := s.app.PortfolioService.Active(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

func (s *Server) handlePortfolioValuation(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	v, err := s.app.PortfolioService.GetValuation(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, v)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	rows, err := s.app.LedgerService.Positions(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"positions": rows})
}

func (s *Server) handleAddLot(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var lot models.Lot
	if !DecodeJSON(w, r, &lot) {
		return
	}
	inv, err := s.app.LedgerService.AddLot(r.Context(), id, lot)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, inv)
}

func (s *Server) handleDuplicates(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	dups, err := s.app.LedgerService.Duplicates(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if dups == nil {
		dups = models.IntegrityWarning{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"duplicates": dups,
		"message":    dups.String(),
	})
}

func (s *Server) handleConsolidate(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	report, err := s.app.LedgerService.Consolidate(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

// investResponse wraps an execution result; Message is set on partial runs.
type investResponse struct {
	*models.ExecutionResult
	Partial bool   `json:"partial"`
	Message string `json:"message,omitempty"`
}

// handleInvest runs the executor. An empty body invests the pending round-ups.
func (s *Server) handleInvest(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req interfaces.ExecuteRequest
	if !DecodeOptionalJSON(w, r, &req) {
		return
	}

	var (
		res *models.ExecutionResult
		err error
	)
	if req.Amount == 0 && len(req.TransactionIDs) == 0 {
		res, err = s.app.ExecutorService.InvestPending(r.Context(), id)
	} else {
		req.PortfolioID = id
		res, err = s.app.ExecutorService.Execute(r.Context(), req)
	}

	var partial *models.PartialExecutionError
	if errors.As(err, &partial) && res != nil {
		WriteJSON(w, http.StatusMultiStatus, investResponse{ExecutionResult: res, Partial: true, Message: partial.Error()})
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, investResponse{ExecutionResult: res})
}

// handleReprice applies the given quotes, or refreshes from the price source
// when no prices are sent.
func (s *Server) handleReprice(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Prices map[string]float64 `json:"prices"`
	}
	if !DecodeOptionalJSON(w, r, &req) {
		return
	}

	var (
		updated []models.Investment
		err     error
	)
	if len(req.Prices) > 0 {
		updated, err = s.app.LedgerService.Reprice(r.Context(), id, req.Prices)
	} else {
		updated, err = s.app.ExecutorService.RefreshPrices(r.Context(), id)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"updated": updated})
}
