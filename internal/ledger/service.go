package ledger

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kanjo-app/kanjo/internal/scanning"
)

// maxImageBytes caps a decoded capture at 10 MB.
const maxImageBytes = 10 << 20

// IDGenerator generates unique IDs for ledgers, receipts and scan records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles ledger and scan operations
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, scanner scanning.Scanner, storage Storage) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// OpenLedger returns the ledger for a date and employee, creating it when
// the reporting session opens for the first time.
func (s *Service) OpenLedger(date, employeeName string) (*DailyLedger, error) {
	if date == "" {
		return nil, &ValidationError{Field: "date", Reason: "must not be empty"}
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, &ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	if strings.TrimSpace(employeeName) == "" {
		return nil, &ValidationError{Field: "employee_name", Reason: "must not be empty"}
	}

	existing, err := s.db.FindLedger(date, employeeName)
	if err != nil {
		return nil, fmt.Errorf("finding ledger: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	now := s.timeSource.Now()
	ledger := &DailyLedger{
		ID:           s.idGenerator.Generate(),
		Date:         date,
		EmployeeName: strings.TrimSpace(employeeName),
		Receipts:     []Receipt{},
		Expenses:     []Expense{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.SaveLedger(ledger); err != nil {
		return nil, fmt.Errorf("saving ledger: %w", err)
	}
	return ledger, nil
}

// GetLedger retrieves a ledger by ID
func (s *Service) GetLedger(id string) (*DailyLedger, error) {
	ledger, err := s.db.GetLedger(id)
	if err != nil {
		return nil, fmt.Errorf("getting ledger: %w", err)
	}
	return ledger, nil
}

// ListLedgers returns all ledgers, newest date first
func (s *Service) ListLedgers() ([]*DailyLedger, error) {
	ledgers, err := s.db.ListLedgers()
	if err != nil {
		return nil, fmt.Errorf("listing ledgers: %w", err)
	}
	sort.Slice(ledgers, func(i, j int) bool {
		return ledgers[i].Date > ledgers[j].Date
	})
	return ledgers, nil
}

// AddReceipt validates and appends a receipt to a ledger. An empty receipt
// ID gets one assigned; an existing one is kept (receipt IDs are immutable).
func (s *Service) AddReceipt(ledgerID string, r Receipt) (*DailyLedger, error) {
	ledger, err := s.db.GetLedger(ledgerID)
	if err != nil {
		return nil, fmt.Errorf("getting ledger: %w", err)
	}

	if r.ID == "" {
		r.ID = s.idGenerator.Generate()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.timeSource.Now()
	}
	if err := ledger.AddReceipt(r); err != nil {
		return nil, err
	}
	ledger.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveLedger(ledger); err != nil {
		return nil, fmt.Errorf("saving ledger: %w", err)
	}
	return ledger, nil
}

// AddExpense validates and appends an expense to a ledger.
func (s *Service) AddExpense(ledgerID string, e Expense) (*DailyLedger, error) {
	ledger, err := s.db.GetLedger(ledgerID)
	if err != nil {
		return nil, fmt.Errorf("getting ledger: %w", err)
	}
	if err := ledger.AddExpense(e); err != nil {
		return nil, err
	}
	ledger.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveLedger(ledger); err != nil {
		return nil, fmt.Errorf("saving ledger: %w", err)
	}
	return ledger, nil
}

// SetCashSettings replaces a ledger's starting cash.
func (s *Service) SetCashSettings(ledgerID string, c CashSettings) (*DailyLedger, error) {
	ledger, err := s.db.GetLedger(ledgerID)
	if err != nil {
		return nil, fmt.Errorf("getting ledger: %w", err)
	}
	ledger.SetCashSettings(c)
	ledger.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveLedger(ledger); err != nil {
		return nil, fmt.Errorf("saving ledger: %w", err)
	}
	return ledger, nil
}

// SetAlcoholExpense replaces a ledger's alcohol purchase amount.
func (s *Service) SetAlcoholExpense(ledgerID string, amount int) (*DailyLedger, error) {
	ledger, err := s.db.GetLedger(ledgerID)
	if err != nil {
		return nil, fmt.Errorf("getting ledger: %w", err)
	}
	if err := ledger.SetAlcoholExpense(amount); err != nil {
		return nil, err
	}
	ledger.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveLedger(ledger); err != nil {
		return nil, fmt.Errorf("saving ledger: %w", err)
	}
	return ledger, nil
}

// ComputeTotals derives the totals for a ledger snapshot.
func (s *Service) ComputeTotals(ledgerID string) (*Totals, error) {
	ledger, err := s.db.GetLedger(ledgerID)
	if err != nil {
		return nil, fmt.Errorf("getting ledger: %w", err)
	}
	t := ledger.ComputeTotals()
	return &t, nil
}

// ScanReceipt decodes a captured image, stores it, runs the scanner and
// persists a scan record. OCR failures come back as success:false in the
// response rather than an error: the capture workflow treats them as
// recoverable and re-captures.
func (s *Service) ScanReceipt(ctx context.Context, req scanning.ScanRequest) (*scanning.ScanResponse, error) {
	imageData, contentType, err := decodeImagePayload(req.ImageData)
	if err != nil {
		return nil, err
	}

	normalized, finalType, _, err := scanning.NormalizeImage(imageData, contentType)
	if err != nil {
		return &scanning.ScanResponse{Success: false, Error: fmt.Sprintf("unreadable image: %v", err)}, nil
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_receipt.png", id), normalized)
	if err != nil {
		return nil, fmt.Errorf("saving image: %w", err)
	}

	outcome, err := s.scanner.Scan(ctx, normalized, finalType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"scan_id", id,
			"content_type", finalType,
			"image_size", len(normalized),
			"error", err,
		)
		// Clean up the saved image since scanning failed
		s.storage.Delete(savedPath)
		return &scanning.ScanResponse{Success: false, Error: fmt.Sprintf("scanning receipt: %v", err)}, nil
	}

	confidence := scanning.Score(outcome.Data, outcome.ModelConfidence)

	record := &ScanRecord{
		ID:          id,
		LedgerID:    req.LedgerID,
		ImagePath:   savedPath,
		ContentType: finalType,
		OCRText:     outcome.RawText,
		Extracted:   outcome.Data,
		Confidence:  confidence,
		TestMode:    outcome.TestMode,
		UploadedAt:  now,
		ProcessedAt: s.timeSource.Now(),
	}
	if err := s.db.SaveScan(record); err != nil {
		s.storage.Delete(savedPath)
		return nil, fmt.Errorf("saving scan record: %w", err)
	}

	return &scanning.ScanResponse{
		Success:         true,
		ScanID:          id,
		ExtractedData:   outcome.Data,
		ConfidenceScore: confidence,
		OCRText:         outcome.RawText,
		IsTestMode:      outcome.TestMode,
	}, nil
}

// ConfirmScan turns a scan record plus human-confirmed data into a receipt
// on the target ledger. Business-level refusals (unknown ledger, missing
// total) come back as success:false; only a missing scan record or storage
// trouble is an error.
func (s *Service) ConfirmScan(scanID string, req scanning.ConfirmRequest) (*scanning.ConfirmResponse, error) {
	record, err := s.db.GetScan(scanID)
	if err != nil {
		return nil, fmt.Errorf("getting scan record: %w", err)
	}

	ledgerID := req.LedgerID
	if ledgerID == "" {
		ledgerID = record.LedgerID
	}
	if ledgerID == "" {
		return &scanning.ConfirmResponse{Success: false, Message: "no ledger specified"}, nil
	}

	ledger, err := s.db.GetLedger(ledgerID)
	if err != nil {
		return &scanning.ConfirmResponse{Success: false, Message: "ledger not found"}, nil
	}

	confirmed := req.ConfirmedData
	if confirmed == nil || confirmed.TotalAmount == nil {
		return &scanning.ConfirmResponse{Success: false, Message: "total amount is required"}, nil
	}

	receipt := receiptFromConfirmed(confirmed, ledger.EmployeeName)
	receipt.ID = s.idGenerator.Generate()
	receipt.ScanID = record.ID
	receipt.AutoGenerated = true
	receipt.ManualCorrections = req.ManualCorrections
	receipt.CreatedAt = s.timeSource.Now()

	if err := ledger.AddReceipt(receipt); err != nil {
		return &scanning.ConfirmResponse{Success: false, Message: err.Error()}, nil
	}
	ledger.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveLedger(ledger); err != nil {
		return nil, fmt.Errorf("saving ledger: %w", err)
	}

	record.Verified = true
	record.LedgerID = ledgerID
	if err := s.db.SaveScan(record); err != nil {
		return nil, fmt.Errorf("updating scan record: %w", err)
	}

	return &scanning.ConfirmResponse{
		Success:   true,
		ReceiptID: receipt.ID,
		LedgerID:  ledgerID,
		Message:   "receipt added to ledger",
	}, nil
}

// ScanHistory returns scan records, newest first, optionally filtered by
// ledger.
func (s *Service) ScanHistory(ledgerID string, limit int) ([]*ScanRecord, error) {
	records, err := s.db.ListScans()
	if err != nil {
		return nil, fmt.Errorf("listing scan records: %w", err)
	}

	filtered := make([]*ScanRecord, 0, len(records))
	for _, r := range records {
		if ledgerID != "" && r.LedgerID != ledgerID {
			continue
		}
		filtered = append(filtered, r)
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].UploadedAt.After(filtered[j].UploadedAt)
	})
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

// DeleteScan removes an unconfirmed scan record and its stored image.
// Records already confirmed into a receipt are kept for the audit trail.
func (s *Service) DeleteScan(id string) error {
	record, err := s.db.GetScan(id)
	if err != nil {
		return fmt.Errorf("getting scan record: %w", err)
	}
	if record.Verified {
		return &ValidationError{Field: "scan", Reason: "already confirmed into a receipt"}
	}

	if err := s.storage.Delete(record.ImagePath); err != nil {
		slog.Warn("Failed to delete image", "path", record.ImagePath, "error", err)
	}
	if err := s.db.DeleteScan(id); err != nil {
		return fmt.Errorf("deleting scan record: %w", err)
	}
	return nil
}

// ScanImage retrieves the stored image for a scan record.
func (s *Service) ScanImage(id string) ([]byte, string, error) {
	record, err := s.db.GetScan(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting scan record: %w", err)
	}
	data, err := s.storage.Get(record.ImagePath)
	if err != nil {
		return nil, "", fmt.Errorf("getting scan image: %w", err)
	}
	return data, record.ContentType, nil
}

// receiptFromConfirmed maps confirmed field values onto a receipt,
// applying the same defaults the slip would get if typed in by hand:
// unknown customer, the ledger's employee, zero counts.
func receiptFromConfirmed(confirmed *scanning.ExtractedData, ledgerEmployee string) Receipt {
	receipt := Receipt{
		CustomerName: "不明",
		EmployeeName: ledgerEmployee,
		TotalAmount:  *confirmed.TotalAmount,
	}
	if confirmed.CustomerName != nil && strings.TrimSpace(*confirmed.CustomerName) != "" {
		receipt.CustomerName = strings.TrimSpace(*confirmed.CustomerName)
	}
	if confirmed.EmployeeName != nil && strings.TrimSpace(*confirmed.EmployeeName) != "" {
		receipt.EmployeeName = strings.TrimSpace(*confirmed.EmployeeName)
	}
	if confirmed.IsCard != nil {
		receipt.IsCard = *confirmed.IsCard
	}
	if confirmed.DrinkCount != nil && *confirmed.DrinkCount > 0 {
		receipt.Drinks = []DrinkLineItem{{
			EmployeeName: receipt.EmployeeName,
			DrinkCount:   *confirmed.DrinkCount,
		}}
	}
	if confirmed.ChampagneType != nil && strings.TrimSpace(*confirmed.ChampagneType) != "" {
		item := ChampagneLineItem{Name: strings.TrimSpace(*confirmed.ChampagneType)}
		if confirmed.ChampagnePrice != nil && *confirmed.ChampagnePrice > 0 {
			item.Amount = *confirmed.ChampagnePrice
		}
		receipt.Champagnes = []ChampagneLineItem{item}
	}
	return receipt
}

// decodeImagePayload accepts raw base64 or a data URL
// ("data:image/jpeg;base64,...") and returns the image bytes and content
// type. Oversized payloads are rejected before any further work.
func decodeImagePayload(payload string) ([]byte, string, error) {
	contentType := "image/jpeg"
	if strings.HasPrefix(payload, "data:") {
		meta, rest, ok := strings.Cut(payload, ",")
		if !ok {
			return nil, "", &ValidationError{Field: "image_data", Reason: "malformed data URL"}
		}
		meta = strings.TrimPrefix(meta, "data:")
		meta = strings.TrimSuffix(meta, ";base64")
		if meta != "" {
			contentType = meta
		}
		payload = rest
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", &ValidationError{Field: "image_data", Reason: "invalid base64"}
	}
	if len(data) == 0 {
		return nil, "", &ValidationError{Field: "image_data", Reason: "empty image"}
	}
	if len(data) > maxImageBytes {
		return nil, "", &ValidationError{Field: "image_data", Reason: "image exceeds 10 MB"}
	}
	return data, contentType, nil
}
