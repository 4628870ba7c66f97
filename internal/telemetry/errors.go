package telemetry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
)

var (
	// ErrPlatformUnavailable means the host has no health store.
	ErrPlatformUnavailable = errors.New("health platform unavailable")

	// ErrNotAuthorized means read access to a category was not granted.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrAuthorizationDenied means the user declined a required category.
	ErrAuthorizationDenied = fmt.Errorf("authorization denied: %w", ErrNotAuthorized)

	// ErrNoRecentData means a category was queried successfully but had no
	// samples inside its lookback window.
	ErrNoRecentData = errors.New("no recent data")

	// ErrInsufficientData is matched by *InsufficientDataError.
	ErrInsufficientData = errors.New("insufficient data")
)

// CategoryError attaches the failing category to a fetch error.
type CategoryError struct {
	Category models.Category
	Err      error
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Category, e.Err)
}

func (e *CategoryError) Unwrap() error {
	return e.Err
}

// InsufficientDataError is returned when too few core metrics are present
// to produce a meaningful Snapshot.
type InsufficientDataError struct {
	Missing         []string
	Recommendations []string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: missing %s", strings.Join(e.Missing, ", "))
}

// Is lets errors.Is match ErrInsufficientData.
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}
