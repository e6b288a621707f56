package services

import (
	"strings"

	"github.com/fuelpoint/fuelpoint-server/internal/store"
)

// fuelTypeAliases maps trade names seen on meter labels to canonical fuel
// types. MS/HSD are the Indian retail abbreviations for petrol/diesel.
var fuelTypeAliases = map[string]string{
	"ms":                "petrol",
	"motor spirit":      "petrol",
	"hsd":               "diesel",
	"high speed diesel": "diesel",
	"power":             "premium",
	"xp":                "premium",
	"speed":             "premium",
}

func NormalizeFuelType(fuelType string) string {
	ft := strings.ToLower(strings.TrimSpace(fuelType))
	if canonical, ok := fuelTypeAliases[ft]; ok {
		return canonical
	}
	return ft
}

// FuelUsage is the dispensed volume for a shift, grouped by canonical fuel type.
type FuelUsage struct {
	ByType      map[string]float64 `json:"by_type"`
	TotalLitres float64            `json:"total_litres"`
}

// CalculateFuelUsage derives dispensed litres from opening/closing meter
// readings. A reading with no closing value dispenses nothing; a closing
// below the opening clamps to zero rather than going negative.
func CalculateFuelUsage(readings []*store.Reading) FuelUsage {
	usage := FuelUsage{ByType: map[string]float64{}}

	for _, r := range readings {
		var dispensed float64
		if r.ClosingReading != nil {
			dispensed = *r.ClosingReading - r.OpeningReading
		}
		if dispensed < 0 {
			dispensed = 0
		}

		usage.TotalLitres += dispensed
		usage.ByType[NormalizeFuelType(r.FuelType)] += dispensed
	}

	return usage
}

// SellableLitres nets out per-type testing fuel from dispensed volume.
// Testing fuel is dispensed for quality checks and is not sold, so the
// result is clamped at zero per type.
func SellableLitres(usage FuelUsage, testingByType map[string]float64) map[string]float64 {
	sellable := make(map[string]float64, len(usage.ByType))
	for fuelType, litres := range usage.ByType {
		litres -= testingByType[fuelType]
		if litres < 0 {
			litres = 0
		}
		sellable[fuelType] = litres
	}
	return sellable
}

// ExpectedSaleAmount values sellable litres at per-type current prices.
func ExpectedSaleAmount(sellable map[string]float64, prices map[string]float64) float64 {
	var amount float64
	for fuelType, litres := range sellable {
		amount += litres * prices[fuelType]
	}
	return amount
}
