package emissions

import (
	"time"

	"github.com/shopspring/decimal"
)

// Every formula is linear: the summed quantity times a fixed factor, rounded
// to two places. An empty input always yields a zero total.

func Utility(readings []UtilityReading, now time.Time) Result {
	electricity := decimal.Zero
	gas := decimal.Zero
	for _, r := range readings {
		electricity = electricity.Add(r.ElectricityKWh)
		gas = gas.Add(r.GasKWh)
	}
	electricityKg := electricity.Mul(ElectricityKgPerKWh)
	gasKg := gas.Mul(GasKgPerKWh)
	// The total rounds the exact sum, so it can differ by 0.01 from the sum of
	// the rounded breakdown.
	return Result{
		TotalCO2eKg: Round(electricityKg.Add(gasKg)).InexactFloat64(),
		Breakdown: map[string]float64{
			"electricity_emissions": Round(electricityKg).InexactFloat64(),
			"gas_emissions":         Round(gasKg).InexactFloat64(),
		},
		CalculatedAt: now,
	}
}

func Cloud(usage []CloudUsage, now time.Time) Result {
	hours := decimal.Zero
	for _, u := range usage {
		hours = hours.Add(u.UsageHours)
	}
	computeKg := Round(hours.Mul(ComputeKgPerHour))
	return Result{
		TotalCO2eKg: computeKg.InexactFloat64(),
		Breakdown: map[string]float64{
			"compute_emissions": computeKg.InexactFloat64(),
			"usage_hours":       hours.InexactFloat64(),
		},
		CalculatedAt: now,
	}
}

func Transport(vehicles []VehicleUsage, now time.Time) Result {
	litres := decimal.Zero
	for _, v := range vehicles {
		litres = litres.Add(v.FuelConsumption)
	}
	fuelKg := Round(litres.Mul(DieselKgPerLitre))
	return Result{
		TotalCO2eKg: fuelKg.InexactFloat64(),
		Breakdown: map[string]float64{
			"fuel_emissions": fuelKg.InexactFloat64(),
			"fuel_litres":    litres.InexactFloat64(),
		},
		CalculatedAt: now,
	}
}

// Finance is the spend-based fallback used when only expense data is available.
func Finance(expenses []Expense, now time.Time) Result {
	spend := decimal.Zero
	for _, e := range expenses {
		spend = spend.Add(e.Amount)
	}
	spendKg := Round(spend.Mul(SpendKgPerCurrencyUnit))
	return Result{
		TotalCO2eKg: spendKg.InexactFloat64(),
		Breakdown: map[string]float64{
			"spend_emissions": spendKg.InexactFloat64(),
			"spend_total":     Round(spend).InexactFloat64(),
		},
		CalculatedAt: now,
	}
}
