package server

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/bobmcallan/roundup/internal/models"
	"github.com/bobmcallan/roundup/internal/services/roundup"
)

const maxStatementSize = 10 << 20

// handleTransactions serves GET (list, ?pending=true) and POST (ingest).
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	if r.Method == http.MethodGet {
		pendingOnly, _ := strconv.ParseBool(r.URL.Query().Get("pending"))
		txs, err := s.app.TransactionService.List(r.Context(), pendingOnly)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, map[string]interface{}{
			"transactions": txs,
			"count":        len(txs),
		})
		return
	}

	var in models.NewTransaction
	if !DecodeJSON(w, r, &in) {
		return
	}
	tx, err := s.app.TransactionService.Ingest(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, tx)
}

// handleTransactionImport accepts a statement as a multipart "statement"
// file or as the raw request body (PDF or plain text).
func (s *Server) handleTransactionImport(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxStatementSize)

	var (
		data        []byte
		contentType = r.Header.Get("Content-Type")
		err         error
	)
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "multipart/form-data" {
		file, header, ferr := r.FormFile("statement")
		if ferr != nil {
			WriteError(w, http.StatusBadRequest, "Missing statement file: "+ferr.Error())
			return
		}
		defer file.Close()
		contentType = header.Header.Get("Content-Type")
		data, err = io.ReadAll(file)
	} else {
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		WriteError(w, http.StatusBadRequest, "Failed to read statement: "+err.Error())
		return
	}
	if len(data) == 0 {
		WriteError(w, http.StatusBadRequest, "Statement is empty")
		return
	}

	result, err := s.app.TransactionService.ImportStatement(r.Context(), data, contentType)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleRoundUpsPending(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	pool, err := s.app.TransactionService.Pending(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, pool)
}

func (s *Server) handleRoundUpsMonthly(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	stats, err := s.app.TransactionService.MonthlyStats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"months": stats})
}

func (s *Server) handleRoundUpsMonthlyChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	stats, err := s.app.TransactionService.MonthlyStats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	png, err := roundup.RenderMonthlyChart(stats)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writePNG(w, png)
}

func writePNG(w http.ResponseWriter, png []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
