package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
)

// Profile is the user context attached to advice requests.
type Profile struct {
	User     models.UserProfile     `yaml:"user"`
	Location models.LocationContext `yaml:"location"`
	Locale   string                 `yaml:"locale"`
}

// LoadProfile reads a YAML profile. A missing file yields an empty profile.
func LoadProfile(path string) (*Profile, error) {
	var p Profile
	if path == "" {
		return &p, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	return &p, nil
}
