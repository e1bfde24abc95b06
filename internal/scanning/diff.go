package scanning

import "strings"

// Change records one field-level manual correction: the value the scanner
// proposed and the value the human confirmed. A nil side means the field
// was null, which is distinct from zero or empty string.
type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// Corrections computes the field-level differences between the originally
// proposed data and the human-finalized data. A field appears in the result
// only when the two sides differ; numeric fields are compared as numbers,
// string fields after trimming. The result is deterministic and is sent
// with the confirm request as the audit trail.
func Corrections(original, edited *ExtractedData) map[string]Change {
	corrections := make(map[string]Change)
	if original == nil {
		original = &ExtractedData{}
	}
	if edited == nil {
		edited = &ExtractedData{}
	}
	if intDiffers(original.TotalAmount, edited.TotalAmount) {
		corrections["total_amount"] = Change{From: anyInt(original.TotalAmount), To: anyInt(edited.TotalAmount)}
	}
	if strDiffers(original.CustomerName, edited.CustomerName) {
		corrections["customer_name"] = Change{From: anyStr(original.CustomerName), To: anyStr(edited.CustomerName)}
	}
	if strDiffers(original.EmployeeName, edited.EmployeeName) {
		corrections["employee_name"] = Change{From: anyStr(original.EmployeeName), To: anyStr(edited.EmployeeName)}
	}
	if strDiffers(original.Date, edited.Date) {
		corrections["date"] = Change{From: anyStr(original.Date), To: anyStr(edited.Date)}
	}
	if intDiffers(original.DrinkCount, edited.DrinkCount) {
		corrections["drink_count"] = Change{From: anyInt(original.DrinkCount), To: anyInt(edited.DrinkCount)}
	}
	if strDiffers(original.ChampagneType, edited.ChampagneType) {
		corrections["champagne_type"] = Change{From: anyStr(original.ChampagneType), To: anyStr(edited.ChampagneType)}
	}
	if intDiffers(original.ChampagnePrice, edited.ChampagnePrice) {
		corrections["champagne_price"] = Change{From: anyInt(original.ChampagnePrice), To: anyInt(edited.ChampagnePrice)}
	}
	if boolDiffers(original.IsCard, edited.IsCard) {
		corrections["is_card"] = Change{From: anyBool(original.IsCard), To: anyBool(edited.IsCard)}
	}
	return corrections
}

func intDiffers(a, b *int) bool {
	if a == nil || b == nil {
		return (a == nil) != (b == nil)
	}
	return *a != *b
}

func strDiffers(a, b *string) bool {
	if a == nil || b == nil {
		return (a == nil) != (b == nil)
	}
	return strings.TrimSpace(*a) != strings.TrimSpace(*b)
}

func boolDiffers(a, b *bool) bool {
	if a == nil || b == nil {
		return (a == nil) != (b == nil)
	}
	return *a != *b
}

func anyInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func anyStr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func anyBool(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}
