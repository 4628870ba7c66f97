package telemetry

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Bluefinee/tempo-ai-sub007/internal/logger"
	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
)

const (
	vitalsLookback = 24 * time.Hour
	bodyLookback   = 30 * 24 * time.Hour
	// Sleep windows open at noon of the previous day so last night is
	// covered whether or not it crossed midnight.
	sleepLeadIn = 12 * time.Hour
)

// AdapterConfig configures the live platform adapter.
type AdapterConfig struct {
	Categories []models.Category
	Location   *time.Location
	Now        func() time.Time
}

// Adapter is the live DataSource backed by the platform HealthStore.
type Adapter struct {
	store      HealthStore
	categories []models.Category
	loc        *time.Location
	now        func() time.Time

	mu   sync.Mutex
	auth *AuthorizationResult
}

var _ DataSource = (*Adapter)(nil)

// NewAdapter creates an adapter over store.
func NewAdapter(store HealthStore, cfg AdapterConfig) *Adapter {
	if len(cfg.Categories) == 0 {
		cfg.Categories = models.AllCategories()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Adapter{
		store:      store,
		categories: slices.Clone(cfg.Categories),
		loc:        cfg.Location,
		now:        cfg.Now,
	}
}

// RequestAuthorization prompts the platform for the configured category set.
// A successful grant is remembered, so later calls do not prompt again.
func (a *Adapter) RequestAuthorization(ctx context.Context) (AuthorizationResult, error) {
	if a.store == nil || !a.store.Available() {
		return AuthorizationResult{}, ErrPlatformUnavailable
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.auth != nil {
		return *a.auth, nil
	}

	res, err := a.store.RequestAuthorization(ctx, a.categories)
	if err != nil {
		return AuthorizationResult{}, fmt.Errorf("request authorization: %w", err)
	}

	if len(res.Denied) > 0 {
		return res, fmt.Errorf("%w: %v", ErrAuthorizationDenied, res.Denied)
	}

	logger.Debug("health authorization granted", "granted", res.Granted, "denied", res.Denied)
	a.auth = &res
	return res, nil
}

// Authorized reports whether kind is readable under the cached grant.
func (a *Adapter) Authorized(kind models.Category) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.auth != nil && a.auth.Allows(kind)
}

// FetchCategory queries the most recent values for kind inside its lookback
// window. Metrics without samples come back as unavailable readings.
func (a *Adapter) FetchCategory(ctx context.Context, kind models.Category) (models.CategoryRecord, error) {
	if a.store == nil || !a.store.Available() {
		return nil, ErrPlatformUnavailable
	}
	if !a.Authorized(kind) {
		return nil, fmt.Errorf("%s: %w", kind, ErrNotAuthorized)
	}

	from, to := a.window(kind)
	samples := make(map[SampleType][]Sample)
	total := 0
	for _, t := range SampleTypes(kind) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		got, err := a.store.Query(ctx, t, from, to)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", t, err)
		}
		samples[t] = got
		total += len(got)
	}

	if total == 0 {
		return nil, fmt.Errorf("%s: %w", kind, ErrNoRecentData)
	}

	switch kind {
	case models.CategoryVitals:
		return buildVitals(samples), nil
	case models.CategoryActivity:
		return buildActivity(samples), nil
	case models.CategoryBody:
		return buildBody(samples), nil
	case models.CategorySleep:
		return buildSleep(samples), nil
	case models.CategoryNutrition:
		return buildNutrition(samples), nil
	default:
		return nil, fmt.Errorf("unknown category %q", kind)
	}
}

// window returns the query range for a category.
func (a *Adapter) window(kind models.Category) (time.Time, time.Time) {
	now := a.now().In(a.loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.loc)

	switch kind {
	case models.CategoryVitals:
		return now.Add(-vitalsLookback), now
	case models.CategorySleep:
		return midnight.Add(-sleepLeadIn), now
	case models.CategoryBody:
		return now.Add(-bodyLookback), now
	default:
		return midnight, now
	}
}

func buildVitals(s map[SampleType][]Sample) models.VitalsRecord {
	hr := s[SampleHeartRate]
	return models.VitalsRecord{
		HeartRate: models.HeartRate{
			Current: latest(hr),
			Resting: latest(s[SampleRestingHeartRate]),
			Average: mean(hr),
			Min:     minimum(hr),
			Max:     maximum(hr),
		},
		HRV:              mean(s[SampleHRV]),
		RespiratoryRate:  mean(s[SampleRespiratoryRate]),
		OxygenSaturation: latest(s[SampleOxygenSaturation]),
		BodyTemperature:  latest(s[SampleBodyTemperature]),
	}
}

func buildActivity(s map[SampleType][]Sample) models.ActivityRecord {
	return models.ActivityRecord{
		Steps:            sum(s[SampleSteps]),
		DistanceMeters:   sum(s[SampleDistance]),
		ActiveEnergyKcal: sum(s[SampleActiveEnergy]),
		ExerciseMinutes:  sum(s[SampleExerciseTime]),
		StandHours:       sum(s[SampleStandHour]),
		FlightsClimbed:   sum(s[SampleFlightsClimbed]),
	}
}

func buildBody(s map[SampleType][]Sample) models.BodyRecord {
	rec := models.BodyRecord{
		WeightKg:       latest(s[SampleBodyMass]),
		HeightCm:       latest(s[SampleHeight]),
		BodyFatPercent: latest(s[SampleBodyFat]),
		BMI:            latest(s[SampleBMI]),
		LeanMassKg:     latest(s[SampleLeanBodyMass]),
	}

	// BMI is only derived when the platform has no reading of its own.
	if !rec.BMI.Available && rec.WeightKg.Available && rec.HeightCm.Available && rec.HeightCm.Value > 0 {
		m := rec.HeightCm.Value / 100
		rec.BMI = models.Estimate(rec.WeightKg.Value / (m * m))
	}
	return rec
}

func buildSleep(s map[SampleType][]Sample) models.SleepRecord {
	deep := minutes(s[SampleSleepDeep])
	rem := minutes(s[SampleSleepREM])
	light := minutes(s[SampleSleepCore])
	awake := minutes(s[SampleSleepAwake])
	unspecified := minutes(s[SampleSleepAsleep])
	inBed := minutes(s[SampleSleepInBed])

	rec := models.SleepRecord{
		DeepMinutes:  deep,
		REMMinutes:   rem,
		LightMinutes: light,
		AwakeMinutes: awake,
	}

	var asleep float64
	anyAsleep := false
	for _, r := range []models.Reading{deep, rem, light, unspecified} {
		if r.Available {
			asleep += r.Value
			anyAsleep = true
		}
	}
	if anyAsleep {
		rec.TotalMinutes = models.Measured(asleep)
	}

	switch {
	case !anyAsleep:
	case inBed.Available && inBed.Value > 0:
		rec.Efficiency = models.Estimate(clamp(asleep/inBed.Value, 0, 1))
	case awake.Available && asleep+awake.Value > 0:
		rec.Efficiency = models.Estimate(asleep / (asleep + awake.Value))
	}
	return rec
}

func buildNutrition(s map[SampleType][]Sample) models.NutritionRecord {
	return models.NutritionRecord{
		EnergyKcal:   sum(s[SampleDietaryEnergy]),
		ProteinGrams: sum(s[SampleProtein]),
		CarbsGrams:   sum(s[SampleCarbohydrates]),
		FatGrams:     sum(s[SampleFat]),
		WaterLiters:  sum(s[SampleWater]),
	}
}
