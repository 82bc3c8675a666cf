// Package schedule derives chart series and solar times from a day template.
package schedule

import (
	"sort"

	"github.com/tia2694/paludario/internal/model"
)

// Point is one vertex of a step series: minute of day and value.
type Point struct {
	Minute int     `json:"x"`
	Value  float64 `json:"y"`
}

// FromIntervals builds an on/off step series at height high. It returns nil
// when no point rises above zero.
func FromIntervals(intervals []model.Interval, high float64) []Point {
	sorted := append([]model.Interval(nil), intervals...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	pts := make([]Point, 0, 2+4*len(sorted))
	pts = append(pts, Point{0, 0})
	for _, iv := range sorted {
		s, e := iv.Start.Minutes(), iv.End.Minutes()
		pts = append(pts,
			Point{s, 0},
			Point{s, high},
			Point{e, high},
			Point{e, 0},
		)
	}
	pts = append(pts, Point{model.MinutesPerDay, 0})
	if !anyPositive(pts) {
		return nil
	}

	out := pts[:1]
	for _, p := range pts[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

// FromKeyframes builds the step series of channel c. A keyframe without a
// value for c switches the channel off. It returns nil when the channel is
// never on.
func FromKeyframes(lights []model.LightKeyframe, c model.Channel) []Point {
	sorted := append([]model.LightKeyframe(nil), lights...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	var cur float64
	pts := make([]Point, 0, 2+2*len(sorted))
	pts = append(pts, Point{0, cur})
	for _, k := range sorted {
		t := k.Time.Minutes()
		pts = append(pts, Point{t, cur})
		cur = 0
		if v := k.Get(c); v != nil {
			cur = model.ClampPercent(*v)
		}
		pts = append(pts, Point{t, cur})
	}
	pts = append(pts, Point{model.MinutesPerDay, cur})
	if !anyPositive(pts) {
		return nil
	}
	return pts
}

// Chart bundles every series of the day chart.
type Chart struct {
	Spray    []Point                   `json:"spray"`
	Fan      []Point                   `json:"fan"`
	Channels map[model.Channel][]Point `json:"channels"`
	Sun      SunTimes                  `json:"sun"`
}

// BuildChart computes all series of d. Device series are drawn at full scale.
func BuildChart(d model.DayTemplate) Chart {
	ch := Chart{
		Spray:    FromIntervals(d.Spray, 100),
		Fan:      FromIntervals(d.Fan, 100),
		Channels: make(map[model.Channel][]Point),
		Sun:      ComputeSun(d.Lights),
	}
	for _, c := range model.Channels {
		if pts := FromKeyframes(d.Lights, c); pts != nil {
			ch.Channels[c] = pts
		}
	}
	return ch
}

func anyPositive(pts []Point) bool {
	for _, p := range pts {
		if p.Value > 0 {
			return true
		}
	}
	return false
}
