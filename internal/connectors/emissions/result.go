package emissions

import (
	"encoding/json"
	"maps"
	"time"
)

// Result is the derived emissions output of one connector.
type Result struct {
	TotalCO2eKg  float64
	Breakdown    map[string]float64
	CalculatedAt time.Time
}

// Clone returns a copy that shares no mutable state with r.
func (r Result) Clone() Result {
	out := r
	out.Breakdown = maps.Clone(r.Breakdown)
	return out
}

// MarshalJSON flattens the breakdown next to the total:
// {"total_co2e_kg": 28.5, "electricity_emissions": 19.3, ..., "calculation_timestamp": "..."}.
func (r Result) MarshalJSON() ([]byte, error) {
	payload := make(map[string]any, len(r.Breakdown)+2)
	for k, v := range r.Breakdown {
		payload[k] = v
	}
	payload["total_co2e_kg"] = r.TotalCO2eKg
	payload["calculation_timestamp"] = r.CalculatedAt.UTC().Format(time.RFC3339Nano)
	return json.Marshal(payload)
}
