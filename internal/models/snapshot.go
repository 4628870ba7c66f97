package models

import (
	"slices"
	"time"
)

// DayLayout is the calendar-day key format used by the cache.
const DayLayout = "2006-01-02"

// Category identifies a telemetry domain queried from the health platform.
type Category string

// Telemetry categories.
const (
	CategoryVitals    Category = "vitals"
	CategoryActivity  Category = "activity"
	CategoryBody      Category = "body"
	CategorySleep     Category = "sleep"
	CategoryNutrition Category = "nutrition"
)

// AllCategories returns every category in aggregation order.
func AllCategories() []Category {
	return []Category{
		CategoryVitals,
		CategoryActivity,
		CategoryBody,
		CategorySleep,
		CategoryNutrition,
	}
}

// MetricKey names a single numeric metric inside a Snapshot.
type MetricKey string

// Metric keys, grouped by category.
const (
	MetricHeartRateCurrent MetricKey = "vitals.heart_rate.current"
	MetricHeartRateResting MetricKey = "vitals.heart_rate.resting"
	MetricHeartRateAverage MetricKey = "vitals.heart_rate.average"
	MetricHeartRateMin     MetricKey = "vitals.heart_rate.min"
	MetricHeartRateMax     MetricKey = "vitals.heart_rate.max"
	MetricHRV              MetricKey = "vitals.hrv"
	MetricRespiratoryRate  MetricKey = "vitals.respiratory_rate"
	MetricOxygenSaturation MetricKey = "vitals.oxygen_saturation"
	MetricBodyTemperature  MetricKey = "vitals.body_temperature"

	MetricSteps           MetricKey = "activity.steps"
	MetricDistance        MetricKey = "activity.distance"
	MetricActiveEnergy    MetricKey = "activity.active_energy"
	MetricExerciseMinutes MetricKey = "activity.exercise_minutes"
	MetricStandHours      MetricKey = "activity.stand_hours"
	MetricFlightsClimbed  MetricKey = "activity.flights_climbed"

	MetricWeight   MetricKey = "body.weight"
	MetricHeight   MetricKey = "body.height"
	MetricBodyFat  MetricKey = "body.body_fat"
	MetricBMI      MetricKey = "body.bmi"
	MetricLeanMass MetricKey = "body.lean_mass"

	MetricSleepTotal      MetricKey = "sleep.total"
	MetricSleepDeep       MetricKey = "sleep.deep"
	MetricSleepREM        MetricKey = "sleep.rem"
	MetricSleepLight      MetricKey = "sleep.light"
	MetricSleepAwake      MetricKey = "sleep.awake"
	MetricSleepEfficiency MetricKey = "sleep.efficiency"

	MetricDietaryEnergy MetricKey = "nutrition.energy"
	MetricProtein       MetricKey = "nutrition.protein"
	MetricCarbohydrates MetricKey = "nutrition.carbohydrates"
	MetricFat           MetricKey = "nutrition.fat"
	MetricWater         MetricKey = "nutrition.water"
)

// CategoryRecord is implemented by every per-category record.
type CategoryRecord interface {
	Category() Category
	Readings() map[MetricKey]Reading
}

// HeartRate holds heart-rate statistics in beats per minute.
type HeartRate struct {
	Current Reading `json:"current"`
	Resting Reading `json:"resting"`
	Average Reading `json:"average"`
	Min     Reading `json:"min"`
	Max     Reading `json:"max"`
}

// VitalsRecord holds cardiovascular and respiratory readings.
type VitalsRecord struct {
	HeartRate        HeartRate `json:"heartRate"`
	HRV              Reading   `json:"hrv"`              // SDNN, ms
	RespiratoryRate  Reading   `json:"respiratoryRate"`  // breaths/min
	OxygenSaturation Reading   `json:"oxygenSaturation"` // percent
	BodyTemperature  Reading   `json:"bodyTemperature"`  // celsius
}

// Category implements CategoryRecord.
func (VitalsRecord) Category() Category { return CategoryVitals }

// Readings implements CategoryRecord.
func (r VitalsRecord) Readings() map[MetricKey]Reading {
	return map[MetricKey]Reading{
		MetricHeartRateCurrent: r.HeartRate.Current,
		MetricHeartRateResting: r.HeartRate.Resting,
		MetricHeartRateAverage: r.HeartRate.Average,
		MetricHeartRateMin:     r.HeartRate.Min,
		MetricHeartRateMax:     r.HeartRate.Max,
		MetricHRV:              r.HRV,
		MetricRespiratoryRate:  r.RespiratoryRate,
		MetricOxygenSaturation: r.OxygenSaturation,
		MetricBodyTemperature:  r.BodyTemperature,
	}
}

// ActivityRecord holds movement totals since local midnight.
type ActivityRecord struct {
	Steps            Reading `json:"steps"`
	DistanceMeters   Reading `json:"distanceMeters"`
	ActiveEnergyKcal Reading `json:"activeEnergyKcal"`
	ExerciseMinutes  Reading `json:"exerciseMinutes"`
	StandHours       Reading `json:"standHours"`
	FlightsClimbed   Reading `json:"flightsClimbed"`
}

// Category implements CategoryRecord.
func (ActivityRecord) Category() Category { return CategoryActivity }

// Readings implements CategoryRecord.
func (r ActivityRecord) Readings() map[MetricKey]Reading {
	return map[MetricKey]Reading{
		MetricSteps:           r.Steps,
		MetricDistance:        r.DistanceMeters,
		MetricActiveEnergy:    r.ActiveEnergyKcal,
		MetricExerciseMinutes: r.ExerciseMinutes,
		MetricStandHours:      r.StandHours,
		MetricFlightsClimbed:  r.FlightsClimbed,
	}
}

// BodyRecord holds the latest body measurements.
type BodyRecord struct {
	WeightKg       Reading `json:"weightKg"`
	HeightCm       Reading `json:"heightCm"`
	BodyFatPercent Reading `json:"bodyFatPercent"`
	BMI            Reading `json:"bmi"`
	LeanMassKg     Reading `json:"leanMassKg"`
}

// Category implements CategoryRecord.
func (BodyRecord) Category() Category { return CategoryBody }

// Readings implements CategoryRecord.
func (r BodyRecord) Readings() map[MetricKey]Reading {
	return map[MetricKey]Reading{
		MetricWeight:   r.WeightKg,
		MetricHeight:   r.HeightCm,
		MetricBodyFat:  r.BodyFatPercent,
		MetricBMI:      r.BMI,
		MetricLeanMass: r.LeanMassKg,
	}
}

// SleepRecord holds last night's sleep. Durations are in minutes and
// Efficiency is a ratio in [0,1].
type SleepRecord struct {
	TotalMinutes Reading `json:"totalMinutes"`
	DeepMinutes  Reading `json:"deepMinutes"`
	REMMinutes   Reading `json:"remMinutes"`
	LightMinutes Reading `json:"lightMinutes"`
	AwakeMinutes Reading `json:"awakeMinutes"`
	Efficiency   Reading `json:"efficiency"`
}

// Category implements CategoryRecord.
func (SleepRecord) Category() Category { return CategorySleep }

// Readings implements CategoryRecord.
func (r SleepRecord) Readings() map[MetricKey]Reading {
	return map[MetricKey]Reading{
		MetricSleepTotal:      r.TotalMinutes,
		MetricSleepDeep:       r.DeepMinutes,
		MetricSleepREM:        r.REMMinutes,
		MetricSleepLight:      r.LightMinutes,
		MetricSleepAwake:      r.AwakeMinutes,
		MetricSleepEfficiency: r.Efficiency,
	}
}

// NutritionRecord holds dietary intake since local midnight.
type NutritionRecord struct {
	EnergyKcal   Reading `json:"energyKcal"`
	ProteinGrams Reading `json:"proteinGrams"`
	CarbsGrams   Reading `json:"carbsGrams"`
	FatGrams     Reading `json:"fatGrams"`
	WaterLiters  Reading `json:"waterLiters"`
}

// Category implements CategoryRecord.
func (NutritionRecord) Category() Category { return CategoryNutrition }

// Readings implements CategoryRecord.
func (r NutritionRecord) Readings() map[MetricKey]Reading {
	return map[MetricKey]Reading{
		MetricDietaryEnergy: r.EnergyKcal,
		MetricProtein:       r.ProteinGrams,
		MetricCarbohydrates: r.CarbsGrams,
		MetricFat:           r.FatGrams,
		MetricWater:         r.WaterLiters,
	}
}

// Snapshot is one immutable bundle of all categories collected in a single
// aggregation pass. Later aggregations supersede it; nothing edits it.
type Snapshot struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Vitals      VitalsRecord    `json:"vitals"`
	Activity    ActivityRecord  `json:"activity"`
	Body        BodyRecord      `json:"body"`
	Sleep       SleepRecord     `json:"sleep"`
	Nutrition   NutritionRecord `json:"nutrition"`
	Unavailable []Category      `json:"unavailable,omitempty"`
}

// Day returns the calendar-day key of the snapshot in loc.
func (s Snapshot) Day(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return s.Timestamp.In(loc).Format(DayLayout)
}

// Records returns the category records in aggregation order.
func (s Snapshot) Records() []CategoryRecord {
	return []CategoryRecord{s.Vitals, s.Activity, s.Body, s.Sleep, s.Nutrition}
}

// Readings flattens every category into one map.
func (s Snapshot) Readings() map[MetricKey]Reading {
	out := make(map[MetricKey]Reading, 32)
	for _, rec := range s.Records() {
		for k, v := range rec.Readings() {
			out[k] = v
		}
	}
	return out
}

// Values returns only the available metric values.
func (s Snapshot) Values() map[MetricKey]float64 {
	out := make(map[MetricKey]float64)
	for k, r := range s.Readings() {
		if r.Available {
			out[k] = r.Value
		}
	}
	return out
}

// Reading returns a single metric by key.
func (s Snapshot) Reading(key MetricKey) Reading {
	return s.Readings()[key]
}

// CategoryAvailable reports whether the category was collected.
func (s Snapshot) CategoryAvailable(c Category) bool {
	return !slices.Contains(s.Unavailable, c)
}

// UnavailableCategories returns a copy of the unavailable category list.
func (s Snapshot) UnavailableCategories() []Category {
	return slices.Clone(s.Unavailable)
}
