package model

import "math"

// AirReading is a min/max temperature and humidity log entry.
type AirReading struct {
	ID          ID        `json:"id"`
	Datetime    Timestamp `json:"datetime"`
	TempMin     float64   `json:"tempMin"`
	TempMax     float64   `json:"tempMax"`
	HumidityMin float64   `json:"humidityMin"`
	HumidityMax float64   `json:"humidityMax"`
}

// NewAirReading validates input: every value is required and each minimum
// must not exceed its maximum.
func NewAirReading(at Timestamp, tempMin, tempMax, humidityMin, humidityMax *float64) (AirReading, error) {
	if at.IsZero() {
		return AirReading{}, invalid("datetime", "date and time are required")
	}
	for _, v := range []*float64{tempMin, tempMax, humidityMin, humidityMax} {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			return AirReading{}, invalid("values", "all numeric values are required")
		}
	}
	if *tempMin > *tempMax {
		return AirReading{}, invalid("tempMin", "minimum temperature cannot exceed the maximum")
	}
	if *humidityMin > *humidityMax {
		return AirReading{}, invalid("humidityMin", "minimum humidity cannot exceed the maximum")
	}
	return AirReading{
		ID:          NewID(),
		Datetime:    at,
		TempMin:     *tempMin,
		TempMax:     *tempMax,
		HumidityMin: *humidityMin,
		HumidityMax: *humidityMax,
	}, nil
}
