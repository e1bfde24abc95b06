package ledger

import (
	"fmt"
	"time"

	"github.com/kanjo-app/kanjo/internal/scanning"
)

// ValidationError rejects bad local input deterministically. It never
// reaches the network layer; callers surface it and keep going.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DrinkLineItem is one drink entry on a slip, attributed to the hostess
// who earned it.
type DrinkLineItem struct {
	EmployeeName string `json:"employee_name"`
	DrinkCount   int    `json:"drink_count"`
	Amount       int    `json:"amount"` // yen
}

// ChampagneLineItem is one opened bottle on a slip.
type ChampagneLineItem struct {
	Name   string `json:"name"`
	Amount int    `json:"amount"` // yen
}

// Receipt is a single itemized sale. The ID is assigned at creation and
// never changes.
type Receipt struct {
	ID           string              `json:"id"`
	CustomerName string              `json:"customer_name"`
	EmployeeName string              `json:"employee_name"`
	TotalAmount  int                 `json:"total_amount"` // yen
	IsCard       bool                `json:"is_card"`
	Drinks       []DrinkLineItem     `json:"drinks,omitempty"`
	Champagnes   []ChampagneLineItem `json:"champagnes,omitempty"`

	// Set when the receipt came through the scan workflow.
	ScanID            string                     `json:"scan_id,omitempty"`
	AutoGenerated     bool                       `json:"auto_generated,omitempty"`
	ManualCorrections map[string]scanning.Change `json:"manual_corrections,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Expense is a cash outlay during the shift other than the standing
// alcohol cost.
type Expense struct {
	Type        string `json:"type"`
	Amount      int    `json:"amount"` // yen, strictly positive
	Description string `json:"description,omitempty"`
}

// CashSettings holds the float the register was opened with.
type CashSettings struct {
	StartingCash int `json:"starting_cash"` // yen
}

// DailyLedger is the aggregated financial state for one employee's
// reporting day. It is append-only: receipts and expenses are added, never
// edited or removed, and totals are derived on demand.
type DailyLedger struct {
	ID             string       `json:"id"`
	Date           string       `json:"date"` // ISO 8601
	EmployeeName   string       `json:"employee_name"`
	Receipts       []Receipt    `json:"receipts"`
	AlcoholExpense int          `json:"alcohol_expense"` // yen
	Expenses       []Expense    `json:"expenses"`
	Cash           CashSettings `json:"cash_settings"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Totals is the reconciled cash position derived from a ledger snapshot.
type Totals struct {
	TotalSales    int `json:"total_sales"`
	CardSales     int `json:"card_sales"`
	CashSales     int `json:"cash_sales"`
	TotalExpenses int `json:"total_expenses"`
	CashRemaining int `json:"cash_remaining"`
	NetProfit     int `json:"net_profit"`
}

// AddReceipt appends a receipt after validating it. Totals are not
// recomputed here; they are derived on demand.
func (l *DailyLedger) AddReceipt(r Receipt) error {
	if r.TotalAmount < 0 {
		return &ValidationError{Field: "total_amount", Reason: "must not be negative"}
	}
	for _, d := range r.Drinks {
		if d.DrinkCount < 0 {
			return &ValidationError{Field: "drink_count", Reason: "must not be negative"}
		}
		if d.Amount < 0 {
			return &ValidationError{Field: "drink amount", Reason: "must not be negative"}
		}
	}
	for _, c := range r.Champagnes {
		if c.Amount < 0 {
			return &ValidationError{Field: "champagne amount", Reason: "must not be negative"}
		}
	}
	l.Receipts = append(l.Receipts, r)
	return nil
}

// AddExpense appends an expense after validating it.
func (l *DailyLedger) AddExpense(e Expense) error {
	if e.Type == "" {
		return &ValidationError{Field: "expense type", Reason: "must not be empty"}
	}
	if e.Amount <= 0 {
		return &ValidationError{Field: "expense amount", Reason: "must be positive"}
	}
	l.Expenses = append(l.Expenses, e)
	return nil
}

// SetCashSettings replaces the starting cash unconditionally.
func (l *DailyLedger) SetCashSettings(c CashSettings) {
	l.Cash = c
}

// SetAlcoholExpense replaces the shift's alcohol purchase amount.
func (l *DailyLedger) SetAlcoholExpense(amount int) error {
	if amount < 0 {
		return &ValidationError{Field: "alcohol_expense", Reason: "must not be negative"}
	}
	l.AlcoholExpense = amount
	return nil
}

// ComputeTotals derives the reconciled cash position from the current
// snapshot. Pure and idempotent: calling it any number of times on the
// same snapshot yields the same result. Cash sales equal to total sales is
// a legitimate outcome when no receipt was paid by card.
func (l *DailyLedger) ComputeTotals() Totals {
	var t Totals
	for _, r := range l.Receipts {
		t.TotalSales += r.TotalAmount
		if r.IsCard {
			t.CardSales += r.TotalAmount
		}
	}
	t.CashSales = t.TotalSales - t.CardSales

	t.TotalExpenses = l.AlcoholExpense
	for _, e := range l.Expenses {
		t.TotalExpenses += e.Amount
	}

	t.CashRemaining = l.Cash.StartingCash + t.CashSales - t.TotalExpenses
	t.NetProfit = t.TotalSales - t.TotalExpenses
	return t
}

// ScanRecord is the persisted trace of one scan attempt: where the image
// went, what the scanner proposed and whether a human has confirmed it
// into a receipt yet. Mirrors the receipt_image rows the confirm endpoint
// works against.
type ScanRecord struct {
	ID          string                  `json:"id"`
	LedgerID    string                  `json:"ledger_id,omitempty"`
	ImagePath   string                  `json:"image_path"`
	ContentType string                  `json:"content_type"`
	OCRText     string                  `json:"ocr_text,omitempty"`
	Extracted   *scanning.ExtractedData `json:"extracted_data"`
	Confidence  float64                 `json:"confidence_score"`
	TestMode    bool                    `json:"is_test_mode,omitempty"`
	Verified    bool                    `json:"is_verified"`
	UploadedAt  time.Time               `json:"uploaded_at"`
	ProcessedAt time.Time               `json:"processed_at"`
}
