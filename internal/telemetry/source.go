// Package telemetry reads biometric samples from the health platform and
// aggregates them into Snapshots.
package telemetry

import (
	"context"
	"slices"
	"time"

	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
)

// SampleType identifies a platform metric.
type SampleType string

// Platform sample types.
const (
	SampleHeartRate        SampleType = "heart_rate"
	SampleRestingHeartRate SampleType = "resting_heart_rate"
	SampleHRV              SampleType = "heart_rate_variability"
	SampleRespiratoryRate  SampleType = "respiratory_rate"
	SampleOxygenSaturation SampleType = "oxygen_saturation"
	SampleBodyTemperature  SampleType = "body_temperature"

	SampleSteps          SampleType = "step_count"
	SampleDistance       SampleType = "distance_walking_running"
	SampleActiveEnergy   SampleType = "active_energy"
	SampleExerciseTime   SampleType = "exercise_time"
	SampleStandHour      SampleType = "stand_hour"
	SampleFlightsClimbed SampleType = "flights_climbed"

	SampleBodyMass     SampleType = "body_mass"
	SampleHeight       SampleType = "height"
	SampleBodyFat      SampleType = "body_fat_percentage"
	SampleBMI          SampleType = "body_mass_index"
	SampleLeanBodyMass SampleType = "lean_body_mass"

	SampleSleepInBed  SampleType = "sleep_in_bed"
	SampleSleepAsleep SampleType = "sleep_asleep"
	SampleSleepDeep   SampleType = "sleep_deep"
	SampleSleepREM    SampleType = "sleep_rem"
	SampleSleepCore   SampleType = "sleep_core"
	SampleSleepAwake  SampleType = "sleep_awake"

	SampleDietaryEnergy SampleType = "dietary_energy"
	SampleProtein       SampleType = "dietary_protein"
	SampleCarbohydrates SampleType = "dietary_carbohydrates"
	SampleFat           SampleType = "dietary_fat"
	SampleWater         SampleType = "dietary_water"
)

var categorySamples = map[models.Category][]SampleType{
	models.CategoryVitals: {
		SampleHeartRate, SampleRestingHeartRate, SampleHRV,
		SampleRespiratoryRate, SampleOxygenSaturation, SampleBodyTemperature,
	},
	models.CategoryActivity: {
		SampleSteps, SampleDistance, SampleActiveEnergy,
		SampleExerciseTime, SampleStandHour, SampleFlightsClimbed,
	},
	models.CategoryBody: {
		SampleBodyMass, SampleHeight, SampleBodyFat, SampleBMI, SampleLeanBodyMass,
	},
	models.CategorySleep: {
		SampleSleepInBed, SampleSleepAsleep, SampleSleepDeep,
		SampleSleepREM, SampleSleepCore, SampleSleepAwake,
	},
	models.CategoryNutrition: {
		SampleDietaryEnergy, SampleProtein, SampleCarbohydrates, SampleFat, SampleWater,
	},
}

// SampleTypes returns the platform sample types queried for a category.
func SampleTypes(c models.Category) []SampleType {
	return slices.Clone(categorySamples[c])
}

// CategoryOf returns the category a sample type belongs to.
func CategoryOf(t SampleType) (models.Category, bool) {
	for c, types := range categorySamples {
		if slices.Contains(types, t) {
			return c, true
		}
	}
	return "", false
}

// Sample is one platform reading. Quantity samples use Value; sleep samples
// are interval-only and use End - Start.
type Sample struct {
	Type  SampleType `json:"type"`
	Value float64    `json:"value"`
	Start time.Time  `json:"start"`
	End   time.Time  `json:"end"`
}

// Duration returns the sample interval.
func (s Sample) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// AuthorizationResult lists the categories the user granted or declined.
type AuthorizationResult struct {
	Granted []models.Category `json:"granted"`
	Denied  []models.Category `json:"denied,omitempty"`
}

// Allows reports whether read access to c was granted.
func (r AuthorizationResult) Allows(c models.Category) bool {
	return slices.Contains(r.Granted, c)
}

// HealthStore is the platform health database.
type HealthStore interface {
	Available() bool
	RequestAuthorization(ctx context.Context, categories []models.Category) (AuthorizationResult, error)
	Query(ctx context.Context, sampleType SampleType, from, to time.Time) ([]Sample, error)
	Subscribe(category models.Category, onChange func()) (cancel func(), err error)
}

// DataSource is the capability the Aggregator reads from. Adapter is the
// live variant and FixtureSource the fixed-fixture variant.
type DataSource interface {
	RequestAuthorization(ctx context.Context) (AuthorizationResult, error)
	FetchCategory(ctx context.Context, kind models.Category) (models.CategoryRecord, error)
}
