// Package weather looks up historical conditions for an activity's start point.
package weather

import (
	"context"
	"time"
)

// Conditions at the start of an activity
type Conditions struct {
	Time             time.Time `json:"time"`
	TemperatureC     *float64  `json:"temperature_c,omitempty"`
	RelativeHumidity *float64  `json:"relative_humidity,omitempty"`
	WindSpeedKmh     *float64  `json:"wind_speed_kmh,omitempty"`
	PrecipitationMm  *float64  `json:"precipitation_mm,omitempty"`
	WeatherCode      *int      `json:"weather_code,omitempty"`
	Source           string    `json:"source"`
}

// Provider returns nil conditions, without error, when it has no data for the point.
type Provider interface {
	Lookup(ctx context.Context, lat, lng float64, at time.Time) (*Conditions, error)
}

// Nop never has data
type Nop struct{}

var _ Provider = Nop{}

func (Nop) Lookup(context.Context, float64, float64, time.Time) (*Conditions, error) {
	return nil, nil
}
