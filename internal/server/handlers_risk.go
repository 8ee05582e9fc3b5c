package server

import "net/http"

func (s *Server) handleRiskQuestionnaire(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, s.app.RiskService.Questionnaire())
}

func (s *Server) handleRiskSubmit(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Responses map[string]int `json:"responses"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	a, err := s.app.RiskService.Submit(r.Context(), req.Responses)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, a)
}

func (s *Server) handleRiskLatest(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	a, err := s.app.RiskService.Latest(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, a)
}

func (s *Server) handleRiskRecommendation(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	rec, err := s.app.RiskService.Recommendation(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}
