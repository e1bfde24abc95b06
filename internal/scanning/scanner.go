package scanning

import "context"

// ExtractedData holds the field values proposed by a scan of a receipt
// image. Every field is nullable: nil means the scanner could not read the
// field, which is different from an empty or zero value. Proposed data is
// never recorded as a receipt directly; it always passes through human
// confirmation first.
type ExtractedData struct {
	TotalAmount    *int    `json:"total_amount"`
	CustomerName   *string `json:"customer_name"`
	EmployeeName   *string `json:"employee_name"`
	Date           *string `json:"date"` // ISO 8601 format
	DrinkCount     *int    `json:"drink_count"`
	ChampagneType  *string `json:"champagne_type"`
	ChampagnePrice *int    `json:"champagne_price"`
	IsCard         *bool   `json:"is_card"`
}

// Clone returns a deep copy. The capture workflow seeds its editable copy
// from the scan result with this so edits never touch the original.
func (d *ExtractedData) Clone() *ExtractedData {
	if d == nil {
		return nil
	}
	c := &ExtractedData{}
	if d.TotalAmount != nil {
		v := *d.TotalAmount
		c.TotalAmount = &v
	}
	if d.CustomerName != nil {
		v := *d.CustomerName
		c.CustomerName = &v
	}
	if d.EmployeeName != nil {
		v := *d.EmployeeName
		c.EmployeeName = &v
	}
	if d.Date != nil {
		v := *d.Date
		c.Date = &v
	}
	if d.DrinkCount != nil {
		v := *d.DrinkCount
		c.DrinkCount = &v
	}
	if d.ChampagneType != nil {
		v := *d.ChampagneType
		c.ChampagneType = &v
	}
	if d.ChampagnePrice != nil {
		v := *d.ChampagnePrice
		c.ChampagnePrice = &v
	}
	if d.IsCard != nil {
		v := *d.IsCard
		c.IsCard = &v
	}
	return c
}

// Outcome is what a scanner backend produces for one receipt image.
type Outcome struct {
	Data *ExtractedData
	// ModelConfidence is the backend's own estimate in [0,1]. The final
	// score reported to the caller also weighs field coverage, see Score.
	ModelConfidence float64
	RawText         string
	TestMode        bool
}

// Scanner defines the interface for receipt scanning backends.
type Scanner interface {
	// Scan analyzes a receipt image and proposes field values.
	Scan(ctx context.Context, imageData []byte, contentType string) (*Outcome, error)
	// Close closes the scanner and releases resources
	Close() error
}
