package server

import (
	"net/http"

	"github.com/bobmcallan/roundup/internal/models"
)

// handleAllocation serves GET and PUT of the committed allocation.
func (s *Server) handleAllocation(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPut) {
		return
	}

	if r.Method == http.MethodGet {
		a, err := s.app.AllocationService.Get(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, a)
		return
	}

	var a models.Allocation
	if !DecodeJSON(w, r, &a) {
		return
	}
	p, err := s.app.AllocationService.Set(r.Context(), id, a)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

func (s *Server) handleAllocationAdjust(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Bucket string   `json:"bucket"`
		Value  *float64 `json:"value"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	bucket, err := models.ParseBucket(req.Bucket)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if req.Value == nil {
		s.writeServiceError(w, r, models.NewValidationError("value", "is required"))
		return
	}

	out, err := s.app.AllocationService.Adjust(r.Context(), id, bucket, *req.Value)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleAllocationRecommended(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	p, err := s.app.AllocationService.ApplyRecommended(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

func (s *Server) handleAllocationChart(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	png, err := s.app.AllocationService.RenderChart(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writePNG(w, png)
}
