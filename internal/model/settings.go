package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultIcon is used whenever a stored icon is missing or not an emoji.
const DefaultIcon = "🌱"

const (
	DefaultTitle    = "🌱 Paludario"
	DefaultSubtitle = "Sistema di monitoraggio e controllo ambientale"
)

// Threshold is the acceptable range of a water parameter.
type Threshold struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Thresholds maps water parameters to their acceptable range.
type Thresholds map[Param]Threshold

// DefaultThresholds returns the built-in ranges.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ParamPH:   {Min: 6, Max: 8},
		ParamKH:   {Min: 2, Max: 15},
		ParamGH:   {Min: 3, Max: 20},
		ParamNO2:  {Min: 0, Max: 0.5},
		ParamNO3:  {Min: 0, Max: 50},
		ParamNH4:  {Min: 0, Max: 0.5},
		ParamTemp: {Min: 20, Max: 30},
		ParamCond: {Min: 100, Max: 1000},
	}
}

// IsOutOfRange reports whether v lies outside the range of p. A missing value
// or a parameter without a threshold is never out of range.
func (t Thresholds) IsOutOfRange(p Param, v *float64) bool {
	if v == nil {
		return false
	}
	th, ok := t[p]
	if !ok {
		return false
	}
	return *v < th.Min || *v > th.Max
}

// Clone returns a copy of the map.
func (t Thresholds) Clone() Thresholds {
	if t == nil {
		return nil
	}
	out := make(Thresholds, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Liters is the tank volume. Older files store it as the raw form string.
type Liters float64

func (l *Liters) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := ParseLiters(s)
		if err != nil {
			return err
		}
		*l = parsed
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("liters must be a number: %w", err)
	}
	*l = Liters(f)
	return nil
}

// ParseLiters parses form input; the empty string is zero.
func ParseLiters(s string) (Liters, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, invalid("liters", "%q is not a number", s)
	}
	if f < 0 {
		return 0, invalid("liters", "volume cannot be negative")
	}
	return Liters(f), nil
}

func (l Liters) String() string {
	if l == 0 {
		return ""
	}
	return strconv.FormatFloat(float64(l), 'f', -1, 64)
}

// Settings holds dashboard preferences together with the animal inventory and
// air readings.
type Settings struct {
	Title           string       `json:"title"`
	Subtitle        string       `json:"subtitle"`
	Icon            string       `json:"icon"`
	Liters          Liters       `json:"liters"`
	DarkMode        bool         `json:"darkMode"`
	MobileMode      bool         `json:"mobileMode"`
	LockedMode      bool         `json:"lockedMode"`
	WaterThresholds Thresholds   `json:"waterThresholds"`
	Animals         []Animal     `json:"animals"`
	AirReadings     []AirReading `json:"airReadings"`
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() Settings {
	return Settings{
		Title:           DefaultTitle,
		Subtitle:        DefaultSubtitle,
		Icon:            DefaultIcon,
		WaterThresholds: DefaultThresholds(),
		Animals:         []Animal{},
		AirReadings:     []AirReading{},
	}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	out.WaterThresholds = s.WaterThresholds.Clone()
	out.Animals = append([]Animal{}, s.Animals...)
	out.AirReadings = append([]AirReading{}, s.AirReadings...)
	return out
}

func (s *Settings) normalize() {
	s.Icon = SanitizeIcon(s.Icon)
	if s.WaterThresholds == nil {
		s.WaterThresholds = DefaultThresholds()
	}
	if s.Animals == nil {
		s.Animals = []Animal{}
	}
	if s.AirReadings == nil {
		s.AirReadings = []AirReading{}
	}
}

// MergeSettings overlays the top-level fields present in raw onto a copy of
// base. Fields missing from raw keep their base value; a field present in raw
// replaces the base value entirely.
func MergeSettings(base Settings, raw []byte) (Settings, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return base, fmt.Errorf("failed to decode settings: %w", err)
	}
	out := base.Clone()
	if _, ok := fields["waterThresholds"]; ok {
		out.WaterThresholds = nil
	}
	if _, ok := fields["animals"]; ok {
		out.Animals = nil
	}
	if _, ok := fields["airReadings"]; ok {
		out.AirReadings = nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return base, fmt.Errorf("failed to decode settings: %w", err)
	}
	out.normalize()
	return out, nil
}

// emojiRanges are the code point blocks accepted as a dashboard icon.
var emojiRanges = [][2]rune{
	{0x1F600, 0x1F64F},
	{0x1F300, 0x1F5FF},
	{0x1F680, 0x1F6FF},
	{0x1F1E0, 0x1F1FF},
	{0x2600, 0x26FF},
	{0x2700, 0x27BF},
	{0x1F900, 0x1F9FF},
	{0x1FA70, 0x1FAFF},
	{0x1F018, 0x1F0F5},
	{0x1F200, 0x1F2FF},
}

func isEmoji(r rune) bool {
	for _, rg := range emojiRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}

// SanitizeIcon returns the first emoji in s, or DefaultIcon.
func SanitizeIcon(s string) string {
	for _, r := range s {
		if isEmoji(r) {
			return string(r)
		}
	}
	return DefaultIcon
}
