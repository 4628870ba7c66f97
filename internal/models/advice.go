package models

import (
	"encoding/json"
	"time"
)

// UserProfile is the user context sent with each advice request.
type UserProfile struct {
	Nickname      string   `json:"nickname,omitempty" yaml:"nickname"`
	Age           int      `json:"age,omitempty" yaml:"age"`
	Gender        string   `json:"gender,omitempty" yaml:"gender"`
	WeightKg      float64  `json:"weightKg,omitempty" yaml:"weight_kg"`
	HeightCm      float64  `json:"heightCm,omitempty" yaml:"height_cm"`
	ActivityLevel string   `json:"activityLevel,omitempty" yaml:"activity_level"`
	Goals         []string `json:"goals,omitempty" yaml:"goals"`
	Interests     []string `json:"interests,omitempty" yaml:"interests"`
}

// LocationContext describes where the user is.
type LocationContext struct {
	Latitude  float64 `json:"latitude,omitempty" yaml:"latitude"`
	Longitude float64 `json:"longitude,omitempty" yaml:"longitude"`
	City      string  `json:"city,omitempty" yaml:"city"`
	Timezone  string  `json:"timezone,omitempty" yaml:"timezone"`
}

// Advice is the payload returned by the advisory service.
type Advice struct {
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// AdviceResult is a decoded advisory response plus delivery metadata.
type AdviceResult struct {
	SnapshotID string          `json:"snapshotId"`
	RequestID  string          `json:"requestId"`
	Advice     Advice          `json:"advice"`
	Raw        json.RawMessage `json:"raw,omitempty"`
	Attempts   int             `json:"attempts"`
	ReceivedAt time.Time       `json:"receivedAt"`
}
