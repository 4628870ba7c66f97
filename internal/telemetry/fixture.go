package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
)

// Fixture is a fixed set of category records. A nil field means the category
// has no data.
type Fixture struct {
	Vitals    *models.VitalsRecord    `json:"vitals,omitempty"`
	Activity  *models.ActivityRecord  `json:"activity,omitempty"`
	Body      *models.BodyRecord      `json:"body,omitempty"`
	Sleep     *models.SleepRecord     `json:"sleep,omitempty"`
	Nutrition *models.NutritionRecord `json:"nutrition,omitempty"`
}

// LoadFixture reads a fixture from a JSON file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}

	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return &f, nil
}

// FixtureSource is the DataSource variant that serves a fixed Fixture. It is
// selected at construction time and never consults the platform.
type FixtureSource struct {
	fixture Fixture
}

var _ DataSource = (*FixtureSource)(nil)

// NewFixtureSource creates a source serving f.
func NewFixtureSource(f Fixture) *FixtureSource {
	return &FixtureSource{fixture: f}
}

// RequestAuthorization grants every category.
func (s *FixtureSource) RequestAuthorization(_ context.Context) (AuthorizationResult, error) {
	return AuthorizationResult{Granted: models.AllCategories()}, nil
}

// FetchCategory returns the fixture record or ErrNoRecentData.
func (s *FixtureSource) FetchCategory(ctx context.Context, kind models.Category) (models.CategoryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec models.CategoryRecord
	switch kind {
	case models.CategoryVitals:
		if s.fixture.Vitals != nil {
			rec = *s.fixture.Vitals
		}
	case models.CategoryActivity:
		if s.fixture.Activity != nil {
			rec = *s.fixture.Activity
		}
	case models.CategoryBody:
		if s.fixture.Body != nil {
			rec = *s.fixture.Body
		}
	case models.CategorySleep:
		if s.fixture.Sleep != nil {
			rec = *s.fixture.Sleep
		}
	case models.CategoryNutrition:
		if s.fixture.Nutrition != nil {
			rec = *s.fixture.Nutrition
		}
	default:
		return nil, fmt.Errorf("unknown category %q", kind)
	}

	if rec == nil {
		return nil, fmt.Errorf("%s: %w", kind, ErrNoRecentData)
	}
	return rec, nil
}
