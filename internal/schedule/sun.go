package schedule

import (
	"sort"

	"github.com/tia2694/paludario/internal/model"
)

// SunTimes are minutes of day derived from the lighting keyframes. A nil field
// means the time is undefined.
type SunTimes struct {
	Sunrise *int `json:"sunrise"`
	Sunset  *int `json:"sunset"`
	Noon    *int `json:"noon"`
	Moon    *int `json:"moon"`
}

// sunsetFallback is added to the last lit keyframe when the lights never go
// dark afterwards.
const sunsetFallback = 60

// ComputeSun finds sunrise (first lit keyframe) and sunset (first dark
// keyframe strictly later in time than the last lit one). Noon is midway between the first and last
// keyframes and the moon sits twelve hours later.
func ComputeSun(lights []model.LightKeyframe) SunTimes {
	sorted := append([]model.LightKeyframe(nil), lights...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	var st SunTimes
	lastLit := -1
	for _, k := range sorted {
		if k.Total() > 0 {
			if st.Sunrise == nil {
				st.Sunrise = minute(k.Time.Minutes())
			}
			lastLit = k.Time.Minutes()
		}
	}
	if lastLit < 0 {
		return st
	}
	// keyframes sharing the last lit time do not end the day
	for _, k := range sorted {
		if k.Total() == 0 && k.Time.Minutes() > lastLit {
			st.Sunset = minute(k.Time.Minutes())
			break
		}
	}
	if st.Sunset == nil {
		st.Sunset = minute(min(lastLit+sunsetFallback, model.MinutesPerDay))
	}
	if len(sorted) >= 2 {
		noon := (sorted[0].Time.Minutes() + sorted[len(sorted)-1].Time.Minutes()) / 2
		st.Noon = minute(noon)
		st.Moon = minute((noon + model.MinutesPerDay/2) % model.MinutesPerDay)
	}
	return st
}

// Daylight reports whether minute m falls between sunrise and sunset.
func (st SunTimes) Daylight(m int) bool {
	if st.Sunrise == nil || st.Sunset == nil {
		return false
	}
	return m >= *st.Sunrise && m < *st.Sunset
}

func minute(m int) *int { return &m }
