package scanning

// Wire types for the scan and confirm endpoints. The server and the Remote
// client share these so the two sides cannot drift.

// ScanRequest carries one captured receipt image to the scan endpoint.
// ImageData is base64, optionally in data-URL form
// ("data:image/jpeg;base64,...").
type ScanRequest struct {
	ImageData string `json:"image_data"`
	LedgerID  string `json:"daily_report_id,omitempty"`
}

// ScanResponse is the scan endpoint's reply. Success false means the OCR
// step itself failed; Error then holds a human-readable reason.
type ScanResponse struct {
	Success         bool           `json:"success"`
	ScanID          string         `json:"receipt_image_id,omitempty"`
	ExtractedData   *ExtractedData `json:"extracted_data,omitempty"`
	ConfidenceScore float64        `json:"confidence_score,omitempty"`
	OCRText         string         `json:"ocr_text,omitempty"`
	IsTestMode      bool           `json:"is_test_mode,omitempty"`
	Error           string         `json:"error,omitempty"`
}

// ConfirmRequest finalizes a scan: the human-confirmed field values plus
// the audit trail of what was corrected by hand.
type ConfirmRequest struct {
	ConfirmedData     *ExtractedData    `json:"confirmed_data"`
	ManualCorrections map[string]Change `json:"manual_corrections"`
	LedgerID          string            `json:"daily_report_id,omitempty"`
}

// ConfirmResponse is the confirm endpoint's reply.
type ConfirmResponse struct {
	Success   bool   `json:"success"`
	ReceiptID string `json:"receipt_id,omitempty"`
	LedgerID  string `json:"daily_report_id,omitempty"`
	Message   string `json:"message,omitempty"`
}
