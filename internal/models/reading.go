// Package models defines data structures and domain types.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Reading is a single metric value that may be unavailable. An unavailable
// reading is distinct from a measured zero.
type Reading struct {
	Value     float64
	Available bool
	// Estimated marks values derived from other readings rather than measured
	// by a sensor.
	Estimated bool
}

// Measured returns an available, sensor-backed reading.
func Measured(v float64) Reading {
	return Reading{Value: v, Available: true}
}

// Estimate returns an available reading flagged as derived.
func Estimate(v float64) Reading {
	return Reading{Value: v, Available: true, Estimated: true}
}

// Missing returns an unavailable reading.
func Missing() Reading {
	return Reading{}
}

// Get returns the value and whether it is available.
func (r Reading) Get() (float64, bool) {
	return r.Value, r.Available
}

// String formats the reading for logs and terminal output.
func (r Reading) String() string {
	switch {
	case !r.Available:
		return "n/a"
	case r.Estimated:
		return fmt.Sprintf("~%.1f", r.Value)
	default:
		return fmt.Sprintf("%.1f", r.Value)
	}
}

type estimatedReading struct {
	Value     float64 `json:"value"`
	Estimated bool    `json:"estimated"`
}

// MarshalJSON encodes unavailable readings as null, measured readings as a
// bare number and estimated readings as {"value": v, "estimated": true}.
func (r Reading) MarshalJSON() ([]byte, error) {
	switch {
	case !r.Available:
		return []byte("null"), nil
	case r.Estimated:
		return json.Marshal(estimatedReading{Value: r.Value, Estimated: true})
	default:
		return json.Marshal(r.Value)
	}
}

// UnmarshalJSON accepts the three encodings produced by MarshalJSON.
func (r *Reading) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = Missing()
		return nil
	}

	if len(data) > 0 && data[0] == '{' {
		var er estimatedReading
		if err := json.Unmarshal(data, &er); err != nil {
			return fmt.Errorf("invalid reading: %w", err)
		}
		*r = Reading{Value: er.Value, Available: true, Estimated: er.Estimated}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid reading: %w", err)
	}
	*r = Measured(v)
	return nil
}
