package emissions

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// UtilityReading is one metering record from a utility provider.
type UtilityReading struct {
	ElectricityKWh decimal.Decimal `json:"electricity_kwh"`
	GasKWh         decimal.Decimal `json:"gas_kwh"`
}

func (r UtilityReading) Validate() error {
	if err := nonNegative("electricity_kwh", r.ElectricityKWh); err != nil {
		return err
	}
	return nonNegative("gas_kwh", r.GasKWh)
}

// CloudUsage is one usage line from a cloud billing API.
type CloudUsage struct {
	Service    string          `json:"service"`
	UsageHours decimal.Decimal `json:"usage_hours"`
}

func (r CloudUsage) Validate() error {
	return nonNegative("usage_hours", r.UsageHours)
}

// VehicleUsage is one vehicle's consumption from a telematics provider.
type VehicleUsage struct {
	VehicleID       string          `json:"vehicle_id"`
	FuelConsumption decimal.Decimal `json:"fuel_consumption"`
	DistanceKm      decimal.Decimal `json:"distance_km"`
}

func (r VehicleUsage) Validate() error {
	if err := nonNegative("fuel_consumption", r.FuelConsumption); err != nil {
		return err
	}
	return nonNegative("distance_km", r.DistanceKm)
}

// Expense is one spend line from an ERP or finance system.
type Expense struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Category string          `json:"category"`
}

func (r Expense) Validate() error {
	return nonNegative("amount", r.Amount)
}

func nonNegative(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return fmt.Errorf("%s must not be negative, got %s", field, v.String())
	}
	return nil
}
