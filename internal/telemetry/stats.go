package telemetry

import (
	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
)

func latest(samples []Sample) models.Reading {
	if len(samples) == 0 {
		return models.Missing()
	}
	best := samples[0]
	for _, s := range samples[1:] {
		if s.End.After(best.End) {
			best = s
		}
	}
	return models.Measured(best.Value)
}

func sum(samples []Sample) models.Reading {
	if len(samples) == 0 {
		return models.Missing()
	}
	var total float64
	for _, s := range samples {
		total += s.Value
	}
	return models.Measured(total)
}

func mean(samples []Sample) models.Reading {
	if len(samples) == 0 {
		return models.Missing()
	}
	return models.Measured(sum(samples).Value / float64(len(samples)))
}

func minimum(samples []Sample) models.Reading {
	if len(samples) == 0 {
		return models.Missing()
	}
	m := samples[0].Value
	for _, s := range samples[1:] {
		m = min(m, s.Value)
	}
	return models.Measured(m)
}

func maximum(samples []Sample) models.Reading {
	if len(samples) == 0 {
		return models.Missing()
	}
	m := samples[0].Value
	for _, s := range samples[1:] {
		m = max(m, s.Value)
	}
	return models.Measured(m)
}

// minutes totals interval samples.
func minutes(samples []Sample) models.Reading {
	if len(samples) == 0 {
		return models.Missing()
	}
	var total float64
	for _, s := range samples {
		if d := s.Duration(); d > 0 {
			total += d.Minutes()
		}
	}
	return models.Measured(total)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
