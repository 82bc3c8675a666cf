package model

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Param names a water-chemistry parameter.
type Param string

const (
	ParamPH   Param = "ph"
	ParamKH   Param = "kh"
	ParamGH   Param = "gh"
	ParamNO2  Param = "no2"
	ParamNO3  Param = "no3"
	ParamNH4  Param = "nh4"
	ParamTemp Param = "temp"
	ParamCond Param = "cond"
)

// Params lists the water parameters in display order.
var Params = []Param{ParamPH, ParamKH, ParamGH, ParamNO2, ParamNO3, ParamNH4, ParamTemp, ParamCond}

// ParseParam validates a parameter name.
func ParseParam(s string) (Param, error) {
	p := Param(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Params {
		if p == known {
			return p, nil
		}
	}
	return "", invalid("param", "unknown water parameter %q", s)
}

// WaterReading is one water test. Every value is optional.
type WaterReading struct {
	ID        ID        `json:"id"`
	Timestamp Timestamp `json:"ts"`
	PH        *float64  `json:"ph"`
	KH        *float64  `json:"kh"`
	GH        *float64  `json:"gh"`
	NO2       *float64  `json:"no2"`
	NO3       *float64  `json:"no3"`
	NH4       *float64  `json:"nh4"`
	Temp      *float64  `json:"temp"`
	Cond      *float64  `json:"cond"`
}

func (w *WaterReading) field(p Param) **float64 {
	switch p {
	case ParamPH:
		return &w.PH
	case ParamKH:
		return &w.KH
	case ParamGH:
		return &w.GH
	case ParamNO2:
		return &w.NO2
	case ParamNO3:
		return &w.NO3
	case ParamNH4:
		return &w.NH4
	case ParamTemp:
		return &w.Temp
	case ParamCond:
		return &w.Cond
	}
	return nil
}

// Value returns the value of p, nil when unset or p is unknown.
func (w WaterReading) Value(p Param) *float64 {
	f := w.field(p)
	if f == nil || *f == nil {
		return nil
	}
	v := **f
	return &v
}

// SetValue replaces the value of p. Negative values clamp to zero and nil
// clears the field.
func (w *WaterReading) SetValue(p Param, v *float64) error {
	f := w.field(p)
	if f == nil {
		return invalid("param", "unknown water parameter %q", p)
	}
	*f = NonNegative(v)
	return nil
}

// Clone returns a deep copy.
func (w WaterReading) Clone() WaterReading {
	out := w
	for _, p := range Params {
		*out.field(p) = w.Value(p)
	}
	return out
}

// NewWaterReading validates user input and builds a reading with a fresh id.
func NewWaterReading(ts Timestamp, values map[Param]*float64) (WaterReading, error) {
	if ts.IsZero() {
		return WaterReading{}, invalid("ts", "date and time are required")
	}
	r := WaterReading{ID: NewID(), Timestamp: ts}
	for p, v := range values {
		if err := r.SetValue(p, v); err != nil {
			return WaterReading{}, err
		}
	}
	return r, nil
}

// NonNegative clamps v to zero, and maps NaN and infinities to nil.
func NonNegative(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	out := math.Max(0, *v)
	return &out
}

// ParseValue converts form input into an optional non-negative value.
// Empty or non-numeric input yields nil.
func ParseValue(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return NonNegative(&f)
}

// Chronological returns a copy of readings sorted oldest first.
func Chronological(readings []WaterReading) []WaterReading {
	out := append([]WaterReading(nil), readings...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp.Time)
	})
	return out
}

// NewestFirst returns a copy of readings sorted newest first.
func NewestFirst(readings []WaterReading) []WaterReading {
	out := append([]WaterReading(nil), readings...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp.Time)
	})
	return out
}

// FindWater returns the index of the reading with id, or -1.
func FindWater(readings []WaterReading, id ID) int {
	for i := range readings {
		if readings[i].ID == id {
			return i
		}
	}
	return -1
}
