package sync

import (
	"context"
	"fmt"

	"github.com/tia2694/paludario/internal/model"
)

// IntervalKind selects a device schedule.
type IntervalKind string

const (
	Spray IntervalKind = "spray"
	Fan   IntervalKind = "fan"
)

// mutate applies fn to a copy of the aggregate and installs the result only
// when fn succeeds. Listeners are told, then the aggregate is persisted.
func (s *Store) mutate(ctx context.Context, kind changeKind, evt EventType, fn func(*model.Aggregate) error) (Outcome, error) {
	s.mu.Lock()
	next := s.data.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return Outcome{}, err
	}
	s.data = next
	snap := next.Clone()
	s.mu.Unlock()

	s.notify(kind, snap, Event{Type: evt, Source: SourceLocal, At: s.now()})
	return s.commit(ctx), nil
}

// UpdateWater replaces the water readings.
func (s *Store) UpdateWater(ctx context.Context, water []model.WaterReading) Outcome {
	out, _ := s.mutate(ctx, changeWater, EventUpdate, func(a *model.Aggregate) error {
		a.Water = model.CloneWater(water)
		return nil
	})
	return out
}

// UpdateDayTemplate replaces the day template.
func (s *Store) UpdateDayTemplate(ctx context.Context, tpl model.DayTemplate) Outcome {
	out, _ := s.mutate(ctx, changeSchedule, EventUpdate, func(a *model.Aggregate) error {
		a.DayTemplate = tpl.Clone()
		return nil
	})
	return out
}

// UpdateSettings applies fn to the settings. The icon is sanitised
// afterwards. An error from fn leaves the aggregate untouched.
func (s *Store) UpdateSettings(ctx context.Context, fn func(*model.Settings) error) (Outcome, error) {
	return s.mutate(ctx, changeSettings, EventSettings, func(a *model.Aggregate) error {
		if err := fn(&a.Settings); err != nil {
			return err
		}
		a.Settings.Icon = model.SanitizeIcon(a.Settings.Icon)
		return nil
	})
}

// AddWaterReading validates and appends a reading.
func (s *Store) AddWaterReading(ctx context.Context, ts model.Timestamp, values map[model.Param]*float64) (model.WaterReading, Outcome, error) {
	r, err := model.NewWaterReading(ts, values)
	if err != nil {
		return model.WaterReading{}, Outcome{}, err
	}
	out, err := s.mutate(ctx, changeWater, EventUpdate, func(a *model.Aggregate) error {
		a.Water = append(a.Water, r.Clone())
		return nil
	})
	return r, out, err
}

// EditWaterReading sets one value of an existing reading; nil clears it.
func (s *Store) EditWaterReading(ctx context.Context, id model.ID, p model.Param, v *float64) (Outcome, error) {
	return s.mutate(ctx, changeWater, EventUpdate, func(a *model.Aggregate) error {
		i := model.FindWater(a.Water, id)
		if i < 0 {
			return fmt.Errorf("water reading %s: %w", id, model.ErrNotFound)
		}
		return a.Water[i].SetValue(p, v)
	})
}

// DeleteWaterReading removes a reading.
func (s *Store) DeleteWaterReading(ctx context.Context, id model.ID) (Outcome, error) {
	return s.mutate(ctx, changeWater, EventUpdate, func(a *model.Aggregate) error {
		i := model.FindWater(a.Water, id)
		if i < 0 {
			return fmt.Errorf("water reading %s: %w", id, model.ErrNotFound)
		}
		a.Water = append(a.Water[:i], a.Water[i+1:]...)
		return nil
	})
}

// ClearWater removes every reading.
func (s *Store) ClearWater(ctx context.Context) Outcome {
	return s.UpdateWater(ctx, []model.WaterReading{})
}

// AddSprayInterval validates and appends a misting interval.
func (s *Store) AddSprayInterval(ctx context.Context, start, end string) (Outcome, error) {
	return s.addInterval(ctx, Spray, start, end)
}

// AddFanInterval validates and appends a fan interval.
func (s *Store) AddFanInterval(ctx context.Context, start, end string) (Outcome, error) {
	return s.addInterval(ctx, Fan, start, end)
}

func (s *Store) addInterval(ctx context.Context, kind IntervalKind, start, end string) (Outcome, error) {
	iv, err := model.NewInterval(start, end)
	if err != nil {
		return Outcome{}, err
	}
	return s.mutate(ctx, changeSchedule, EventUpdate, func(a *model.Aggregate) error {
		list, err := intervals(&a.DayTemplate, kind)
		if err != nil {
			return err
		}
		*list = append(*list, iv)
		return nil
	})
}

// RemoveInterval deletes the interval at index from the kind schedule.
func (s *Store) RemoveInterval(ctx context.Context, kind IntervalKind, index int) (Outcome, error) {
	return s.mutate(ctx, changeSchedule, EventUpdate, func(a *model.Aggregate) error {
		list, err := intervals(&a.DayTemplate, kind)
		if err != nil {
			return err
		}
		if index < 0 || index >= len(*list) {
			return fmt.Errorf("%s interval %d: %w", kind, index, model.ErrNotFound)
		}
		*list = append((*list)[:index], (*list)[index+1:]...)
		return nil
	})
}

func intervals(d *model.DayTemplate, kind IntervalKind) (*[]model.Interval, error) {
	switch kind {
	case Spray:
		return &d.Spray, nil
	case Fan:
		return &d.Fan, nil
	}
	return nil, &model.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown schedule %q", kind)}
}

// SetChannel replaces every keyframe value of a lighting channel.
func (s *Store) SetChannel(ctx context.Context, c model.Channel, items []model.Keyframe) (Outcome, error) {
	return s.mutate(ctx, changeSchedule, EventUpdate, func(a *model.Aggregate) error {
		return a.DayTemplate.SetChannel(c, items)
	})
}

// AddAnimal validates and appends an animal group.
func (s *Store) AddAnimal(ctx context.Context, in model.AnimalInput) (model.Animal, Outcome, error) {
	animal, err := model.NewAnimal(in, s.now())
	if err != nil {
		return model.Animal{}, Outcome{}, err
	}
	out, err := s.UpdateSettings(ctx, func(st *model.Settings) error {
		st.Animals = append(st.Animals, animal)
		return nil
	})
	return animal, out, err
}

// RemoveAnimal deletes an animal group.
func (s *Store) RemoveAnimal(ctx context.Context, id model.ID) (Outcome, error) {
	return s.UpdateSettings(ctx, func(st *model.Settings) error {
		for i := range st.Animals {
			if st.Animals[i].ID == id {
				st.Animals = append(st.Animals[:i], st.Animals[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("animal %s: %w", id, model.ErrNotFound)
	})
}

// SetAnimalStatus changes the status of an animal group.
func (s *Store) SetAnimalStatus(ctx context.Context, id model.ID, status string) (Outcome, error) {
	st, err := model.ParseAnimalStatus(status)
	if err != nil {
		return Outcome{}, err
	}
	return s.UpdateSettings(ctx, func(settings *model.Settings) error {
		for i := range settings.Animals {
			if settings.Animals[i].ID == id {
				settings.Animals[i].Status = st
				return nil
			}
		}
		return fmt.Errorf("animal %s: %w", id, model.ErrNotFound)
	})
}

// AddAirReading validates and appends an air reading.
func (s *Store) AddAirReading(ctx context.Context, at model.Timestamp, tempMin, tempMax, humidityMin, humidityMax *float64) (model.AirReading, Outcome, error) {
	r, err := model.NewAirReading(at, tempMin, tempMax, humidityMin, humidityMax)
	if err != nil {
		return model.AirReading{}, Outcome{}, err
	}
	out, err := s.UpdateSettings(ctx, func(st *model.Settings) error {
		st.AirReadings = append(st.AirReadings, r)
		return nil
	})
	return r, out, err
}

// RemoveAirReading deletes an air reading.
func (s *Store) RemoveAirReading(ctx context.Context, id model.ID) (Outcome, error) {
	return s.UpdateSettings(ctx, func(st *model.Settings) error {
		for i := range st.AirReadings {
			if st.AirReadings[i].ID == id {
				st.AirReadings = append(st.AirReadings[:i], st.AirReadings[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("air reading %s: %w", id, model.ErrNotFound)
	})
}

// SetThresholds sets the acceptable range of a water parameter.
func (s *Store) SetThresholds(ctx context.Context, p model.Param, minimum, maximum float64) (Outcome, error) {
	if _, err := model.ParseParam(string(p)); err != nil {
		return Outcome{}, err
	}
	if minimum > maximum {
		return Outcome{}, &model.ValidationError{Field: string(p), Message: "minimum cannot exceed maximum"}
	}
	return s.UpdateSettings(ctx, func(st *model.Settings) error {
		if st.WaterThresholds == nil {
			st.WaterThresholds = model.DefaultThresholds()
		}
		st.WaterThresholds[p] = model.Threshold{Min: minimum, Max: maximum}
		return nil
	})
}

// ResetThresholds restores the built-in ranges.
func (s *Store) ResetThresholds(ctx context.Context) Outcome {
	out, _ := s.UpdateSettings(ctx, func(st *model.Settings) error {
		st.WaterThresholds = model.DefaultThresholds()
		return nil
	})
	return out
}
