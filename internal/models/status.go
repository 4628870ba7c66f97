package models

import "time"

// State is the composite wellbeing classification.
type State string

// Wellbeing states.
const (
	StateOptimal State = "optimal"
	StateGood    State = "good"
	StateCare    State = "care"
	StateRest    State = "rest"
	StateUnknown State = "unknown"
)

// Confidence reflects how much source data backed a StatusResult.
type Confidence string

// Confidence levels.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Domain is one of the primary scoring domains.
type Domain string

// Scoring domains.
const (
	DomainHRV      Domain = "hrv"
	DomainSleep    Domain = "sleep"
	DomainActivity Domain = "activity"
)

// DomainScore is the normalized sub-score for one domain.
type DomainScore struct {
	Domain   Domain    `json:"domain"`
	Metric   MetricKey `json:"metric,omitempty"`
	Usable   bool      `json:"usable"`
	Current  float64   `json:"current"`
	Baseline float64   `json:"baseline"`
	Spread   float64   `json:"spread"`
	Score    float64   `json:"score"`
	Weight   float64   `json:"weight"`
}

// StatusResult is the derived wellbeing classification of one Snapshot.
type StatusResult struct {
	SnapshotID    string        `json:"snapshotId"`
	Score         float64       `json:"score"`
	State         State         `json:"state"`
	Confidence    Confidence    `json:"confidence"`
	Coverage      float64       `json:"coverage"`
	UsableDomains int           `json:"usableDomains"`
	Domains       []DomainScore `json:"domains"`
}

// Domain returns the score for d, if present.
func (r StatusResult) Domain(d Domain) (DomainScore, bool) {
	for _, ds := range r.Domains {
		if ds.Domain == d {
			return ds, true
		}
	}
	return DomainScore{}, false
}

// StatusLogEntry is a persisted StatusResult summary.
type StatusLogEntry struct {
	Day        string     `json:"day"`
	SnapshotID string     `json:"snapshotId"`
	Score      float64    `json:"score"`
	State      State      `json:"state"`
	Confidence Confidence `json:"confidence"`
	Coverage   float64    `json:"coverage"`
	ComputedAt time.Time  `json:"computedAt"`
}
