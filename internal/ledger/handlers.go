package ledger

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kanjo-app/kanjo/internal/scanning"
)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError encodes an error message, using 400 for validation errors
func writeError(w http.ResponseWriter, err error, fallback int) {
	setCORSHeaders(w)
	code := fallback
	var verr *ValidationError
	if errors.As(err, &verr) {
		code = http.StatusBadRequest
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// handleOpenLedger opens (or returns) the ledger for a date and employee
func (s *Server) handleOpenLedger(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date         string `json:"date"`
		EmployeeName string `json:"employee_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ledger, err := s.service.OpenLedger(req.Date, req.EmployeeName)
	if err != nil {
		slog.Error("Error opening ledger", "date", req.Date, "error", err)
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, ledger)
}

// handleListLedgers returns all ledgers, newest date first
func (s *Server) handleListLedgers(w http.ResponseWriter, r *http.Request) {
	ledgers, err := s.service.ListLedgers()
	if err != nil {
		slog.Error("Error listing ledgers", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Ensure we always return an array, not nil
	if ledgers == nil {
		ledgers = []*DailyLedger{}
	}

	writeJSON(w, http.StatusOK, ledgers)
}

// handleGetLedger returns a single ledger
func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Ledger ID required", http.StatusBadRequest)
		return
	}
	ledger, err := s.service.GetLedger(id)
	if err != nil {
		corsError(w, "Ledger not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, ledger)
}

// handleLedgerTotals returns the derived totals for a ledger
func (s *Server) handleLedgerTotals(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Ledger ID required", http.StatusBadRequest)
		return
	}
	totals, err := s.service.ComputeTotals(id)
	if err != nil {
		corsError(w, "Ledger not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, totals)
}

// handleAddReceipt appends a receipt to a ledger
func (s *Server) handleAddReceipt(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Ledger ID required", http.StatusBadRequest)
		return
	}

	var receipt Receipt
	if err := json.NewDecoder(r.Body).Decode(&receipt); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ledger, err := s.service.AddReceipt(id, receipt)
	if err != nil {
		slog.Error("Error adding receipt", "ledger_id", id, "error", err)
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, ledger)
}

// handleAddExpense appends an expense to a ledger
func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Ledger ID required", http.StatusBadRequest)
		return
	}

	var expense Expense
	if err := json.NewDecoder(r.Body).Decode(&expense); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ledger, err := s.service.AddExpense(id, expense)
	if err != nil {
		slog.Error("Error adding expense", "ledger_id", id, "error", err)
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, ledger)
}

// handleSetCash replaces a ledger's cash settings
func (s *Server) handleSetCash(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Ledger ID required", http.StatusBadRequest)
		return
	}

	var settings CashSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ledger, err := s.service.SetCashSettings(id, settings)
	if err != nil {
		slog.Error("Error setting cash", "ledger_id", id, "error", err)
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ledger)
}

// handleSetAlcoholExpense replaces a ledger's alcohol purchase amount
func (s *Server) handleSetAlcoholExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Ledger ID required", http.StatusBadRequest)
		return
	}

	var req struct {
		Amount int `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ledger, err := s.service.SetAlcoholExpense(id, req.Amount)
	if err != nil {
		slog.Error("Error setting alcohol expense", "ledger_id", id, "error", err)
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, ledger)
}

// handleScanReceipt runs OCR extraction on a captured receipt image
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	var req scanning.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ImageData == "" {
		corsError(w, "image_data required", http.StatusBadRequest)
		return
	}

	resp, err := s.service.ScanReceipt(r.Context(), req)
	if err != nil {
		slog.Error("Error scanning receipt", "error", err)
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleConfirmScan confirms a scan into a receipt on a ledger
func (s *Server) handleConfirmScan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Scan ID required", http.StatusBadRequest)
		return
	}

	var req scanning.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := s.service.ConfirmScan(id, req)
	if err != nil {
		slog.Error("Error confirming scan", "scan_id", id, "error", err)
		corsError(w, "Scan not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleScanHistory returns scan records, newest first
func (s *Server) handleScanHistory(w http.ResponseWriter, r *http.Request) {
	ledgerID := r.URL.Query().Get("daily_report_id")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			corsError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := s.service.ScanHistory(ledgerID, limit)
	if err != nil {
		slog.Error("Error listing scan history", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if records == nil {
		records = []*ScanRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

// handleScanImage returns the stored image for a scan record
func (s *Server) handleScanImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Scan ID required", http.StatusBadRequest)
		return
	}
	data, contentType, err := s.service.ScanImage(id)
	if err != nil {
		corsError(w, "Image not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteScan deletes an unconfirmed scan record
func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Scan ID required", http.StatusBadRequest)
		return
	}
	if err := s.service.DeleteScan(id); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			writeError(w, err, http.StatusBadRequest)
			return
		}
		corsError(w, "Scan not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
