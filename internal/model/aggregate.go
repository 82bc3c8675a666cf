package model

import "encoding/json"

// Aggregate is the full in-memory state mirrored by every store.
type Aggregate struct {
	Water       []WaterReading `json:"water"`
	DayTemplate DayTemplate    `json:"dayTemplate"`
	Settings    Settings       `json:"settings"`
}

// DefaultAggregate returns the state of a fresh installation.
func DefaultAggregate() Aggregate {
	return Aggregate{
		Water:       []WaterReading{},
		DayTemplate: DefaultDayTemplate(),
		Settings:    DefaultSettings(),
	}
}

// Clone returns a deep copy.
func (a Aggregate) Clone() Aggregate {
	return Aggregate{
		Water:       CloneWater(a.Water),
		DayTemplate: a.DayTemplate.Clone(),
		Settings:    a.Settings.Clone(),
	}
}

// CloneWater deep-copies a reading list. The result is never nil.
func CloneWater(in []WaterReading) []WaterReading {
	out := make([]WaterReading, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

// DecodeSettings decodes a full settings document over the defaults.
func DecodeSettings(raw []byte) (Settings, error) {
	return MergeSettings(DefaultSettings(), raw)
}

// DecodeWater decodes a water document; null decodes to an empty list.
func DecodeWater(raw []byte) ([]WaterReading, error) {
	var out []WaterReading
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []WaterReading{}
	}
	return out, nil
}

// DecodeDayTemplate decodes a day template document.
func DecodeDayTemplate(raw []byte) (DayTemplate, error) {
	out := DefaultDayTemplate()
	if err := json.Unmarshal(raw, &out); err != nil {
		return DefaultDayTemplate(), err
	}
	return out, nil
}
