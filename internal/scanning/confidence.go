package scanning

// Tier is a coarse classification of how much a scan proposal can be
// trusted. It only annotates the confirmation screen; it never gates
// whether confirmation is allowed.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	default:
		return "low"
	}
}

// TierOf maps a confidence score in [0,1] to a tier.
func TierOf(score float64) Tier {
	switch {
	case score >= 0.8:
		return TierHigh
	case score >= 0.6:
		return TierMedium
	default:
		return TierLow
	}
}

// Field weights for the confidence score. The total amount dominates
// because it is the one value the ledger cannot do without.
const (
	weightTotalAmount   = 0.35
	weightDate          = 0.15
	weightCustomerName  = 0.15
	weightDrinkCount    = 0.10
	weightChampagneType = 0.10
	weightIsCard        = 0.05
	weightModel         = 0.10
)

// Score combines field coverage of the extracted data with the scanner
// backend's own confidence estimate. The result is capped at 1.0.
func Score(data *ExtractedData, modelConfidence float64) float64 {
	score := 0.0
	if data != nil {
		if data.TotalAmount != nil {
			score += weightTotalAmount
		}
		if data.Date != nil {
			score += weightDate
		}
		if data.CustomerName != nil {
			score += weightCustomerName
		}
		if data.DrinkCount != nil {
			score += weightDrinkCount
		}
		if data.ChampagneType != nil {
			score += weightChampagneType
		}
		if data.IsCard != nil {
			score += weightIsCard
		}
	}
	score += weightModel * modelConfidence
	if score > 1.0 {
		score = 1.0
	}
	return score
}
