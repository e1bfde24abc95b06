package scanning

import (
	"context"
	"time"
)

// Stub is a scanner backend that proposes canned sample data. It backs the
// server when no model API key is configured, so the capture flow can be
// exercised end to end; every outcome is flagged as test mode and the
// confirmation screen warns the user accordingly.
type Stub struct{}

func NewStub() *Stub {
	return &Stub{}
}

func (s *Stub) Scan(ctx context.Context, imageData []byte, contentType string) (*Outcome, error) {
	total := 15000
	customer := "田中様"
	date := time.Now().Format("2006-01-02")
	drinks := 3
	champagne := "モエ"
	champagnePrice := 8000
	isCard := false

	return &Outcome{
		Data: &ExtractedData{
			TotalAmount:    &total,
			CustomerName:   &customer,
			Date:           &date,
			DrinkCount:     &drinks,
			ChampagneType:  &champagne,
			ChampagnePrice: &champagnePrice,
			IsCard:         &isCard,
		},
		ModelConfidence: 0.85,
		RawText:         "sample slip: 合計 ¥15,000 田中様 ドリンク3 モエ ¥8,000 現金",
		TestMode:        true,
	}, nil
}

func (s *Stub) Close() error {
	return nil
}
