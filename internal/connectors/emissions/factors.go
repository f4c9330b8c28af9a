package emissions

import "github.com/shopspring/decimal"

// Emission factors, kg CO2e per unit of activity.
var (
	ElectricityKgPerKWh    = decimal.RequireFromString("0.193")
	GasKgPerKWh            = decimal.RequireFromString("0.184")
	DieselKgPerLitre       = decimal.RequireFromString("2.687")
	ComputeKgPerHour       = decimal.RequireFromString("0.000065")
	SpendKgPerCurrencyUnit = decimal.RequireFromString("0.1")
)

// resultPlaces is the number of decimal places every reported mass is rounded to.
const resultPlaces = 2

// Round rounds d to two decimal places, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(resultPlaces)
}

// RoundKg rounds a float mass to two decimal places using its shortest
// decimal representation, so 12.345 becomes 12.35 rather than 12.34.
func RoundKg(v float64) float64 {
	return Round(decimal.NewFromFloat(v)).InexactFloat64()
}
