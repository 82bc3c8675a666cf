package model

import (
	"encoding/json"
	"math"
	"sort"
)

// Interval is an on period of a device within the day. Intervals may overlap.
type Interval struct {
	Start ClockTime `json:"s"`
	End   ClockTime `json:"e"`
}

// NewInterval validates entry input: both times required and end after start.
func NewInterval(start, end string) (Interval, error) {
	if start == "" || end == "" {
		return Interval{}, invalid("interval", "start and end times are required")
	}
	s, err := ParseClock(start)
	if err != nil {
		return Interval{}, invalid("start", "%v", err)
	}
	e, err := ParseClock(end)
	if err != nil {
		return Interval{}, invalid("end", "%v", err)
	}
	if e <= s {
		return Interval{}, invalid("end", "end time must be after start time")
	}
	return Interval{Start: s, End: e}, nil
}

// Channel is a lighting channel number, 1 to ChannelCount.
type Channel int

// ChannelCount is the number of lighting channels.
const ChannelCount = 5

// Channels lists every lighting channel.
var Channels = []Channel{1, 2, 3, 4, 5}

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool { return c >= 1 && c <= ChannelCount }

// LightKeyframe sets lighting channel intensities (0..100) at a time of day.
// Channels without a value are left unchanged by the keyframe.
type LightKeyframe struct {
	Time ClockTime `json:"t"`
	Ch1  *float64  `json:"ch1,omitempty"`
	Ch2  *float64  `json:"ch2,omitempty"`
	Ch3  *float64  `json:"ch3,omitempty"`
	Ch4  *float64  `json:"ch4,omitempty"`
	Ch5  *float64  `json:"ch5,omitempty"`
}

func (k *LightKeyframe) slot(c Channel) **float64 {
	switch c {
	case 1:
		return &k.Ch1
	case 2:
		return &k.Ch2
	case 3:
		return &k.Ch3
	case 4:
		return &k.Ch4
	case 5:
		return &k.Ch5
	}
	return nil
}

// Get returns the value of channel c, nil when unset.
func (k LightKeyframe) Get(c Channel) *float64 {
	s := k.slot(c)
	if s == nil || *s == nil {
		return nil
	}
	v := **s
	return &v
}

// Set replaces the value of channel c; nil clears it.
func (k *LightKeyframe) Set(c Channel, v *float64) {
	s := k.slot(c)
	if s == nil {
		return
	}
	if v == nil {
		*s = nil
		return
	}
	val := *v
	*s = &val
}

// HasChannels reports whether any channel carries a value.
func (k LightKeyframe) HasChannels() bool {
	for _, c := range Channels {
		if k.Get(c) != nil {
			return true
		}
	}
	return false
}

// Total sums all channel values.
func (k LightKeyframe) Total() float64 {
	var sum float64
	for _, c := range Channels {
		if v := k.Get(c); v != nil {
			sum += *v
		}
	}
	return sum
}

func (k LightKeyframe) clone() LightKeyframe {
	out := LightKeyframe{Time: k.Time}
	for _, c := range Channels {
		out.Set(c, k.Get(c))
	}
	return out
}

// Keyframe is a single channel value at a time of day.
type Keyframe struct {
	Time  ClockTime `json:"time"`
	Value float64   `json:"value"`
}

// ClampPercent limits v to [0, 100]; NaN becomes 0.
func ClampPercent(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

// DayTemplate is the repeating 24-hour device schedule.
type DayTemplate struct {
	Spray  []Interval      `json:"spray"`
	Fan    []Interval      `json:"fan"`
	Lights []LightKeyframe `json:"lights"`
}

// UnmarshalJSON tolerates missing or null lists.
func (d *DayTemplate) UnmarshalJSON(data []byte) error {
	type plain DayTemplate
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = DayTemplate(p)
	d.normalize()
	return nil
}

func (d *DayTemplate) normalize() {
	if d.Spray == nil {
		d.Spray = []Interval{}
	}
	if d.Fan == nil {
		d.Fan = []Interval{}
	}
	if d.Lights == nil {
		d.Lights = []LightKeyframe{}
	}
}

// DefaultDayTemplate returns an empty schedule.
func DefaultDayTemplate() DayTemplate {
	return DayTemplate{Spray: []Interval{}, Fan: []Interval{}, Lights: []LightKeyframe{}}
}

// IsEmpty reports whether the template has no interval and no keyframe.
func (d DayTemplate) IsEmpty() bool {
	return len(d.Spray) == 0 && len(d.Fan) == 0 && len(d.Lights) == 0
}

// Clone returns a deep copy.
func (d DayTemplate) Clone() DayTemplate {
	out := DayTemplate{
		Spray:  append([]Interval{}, d.Spray...),
		Fan:    append([]Interval{}, d.Fan...),
		Lights: make([]LightKeyframe, len(d.Lights)),
	}
	for i, k := range d.Lights {
		out.Lights[i] = k.clone()
	}
	return out
}

// ChannelKeyframes returns the keyframes of channel c sorted by time.
func (d DayTemplate) ChannelKeyframes(c Channel) []Keyframe {
	var out []Keyframe
	for _, k := range d.Lights {
		if v := k.Get(c); v != nil {
			out = append(out, Keyframe{Time: k.Time, Value: *v})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// SetChannel replaces every value of channel c with items. Values are clamped
// to [0, 100], keyframes are merged by time, keyframes left without any
// channel are dropped and the lights stay sorted by time.
func (d *DayTemplate) SetChannel(c Channel, items []Keyframe) error {
	if !c.Valid() {
		return invalid("channel", "channel must be between 1 and %d", ChannelCount)
	}
	sorted := append([]Keyframe(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	byTime := make(map[ClockTime]int, len(d.Lights))
	lights := make([]LightKeyframe, 0, len(d.Lights)+len(sorted))
	for _, k := range d.Lights {
		k = k.clone()
		k.Set(c, nil)
		if idx, ok := byTime[k.Time]; ok {
			for _, other := range Channels {
				if v := k.Get(other); v != nil {
					lights[idx].Set(other, v)
				}
			}
			continue
		}
		byTime[k.Time] = len(lights)
		lights = append(lights, k)
	}
	for _, item := range sorted {
		v := ClampPercent(item.Value)
		if idx, ok := byTime[item.Time]; ok {
			lights[idx].Set(c, &v)
			continue
		}
		k := LightKeyframe{Time: item.Time}
		k.Set(c, &v)
		byTime[item.Time] = len(lights)
		lights = append(lights, k)
	}

	kept := lights[:0]
	for _, k := range lights {
		if k.HasChannels() {
			kept = append(kept, k)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Time < kept[j].Time })
	d.Lights = kept
	return nil
}
