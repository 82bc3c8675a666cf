package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/tia2694/paludario/internal/model"
)

// Prefix namespaces every key written by the dashboard.
const Prefix = "paludario."

// Keys of the flat layout.
const (
	KeyWater       = Prefix + "waterReadings"
	KeyDayTemplate = Prefix + "dayPlanTemplate"
	KeyTitle       = Prefix + "title"
	KeySubtitle    = Prefix + "subtitle"
	KeyIcon        = Prefix + "icon"
	KeyLiters      = Prefix + "liters"
	KeyDarkMode    = Prefix + "darkMode"
	KeyMobileMode  = Prefix + "mobileMode"
	KeyLockedMode  = Prefix + "lockedMode"
	KeyThresholds  = Prefix + "waterThresholds"
	KeyAnimals     = Prefix + "animals"
	KeyAirReadings = Prefix + "airReadings"
	KeyToken       = Prefix + "githubToken"
)

// Store maps the aggregate onto a KV.
type Store struct {
	kv     KV
	logger *zap.Logger
}

// New wraps kv. A nil logger discards warnings.
func New(kv KV, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{kv: kv, logger: logger}
}

// LoadAggregate reads every key. Missing keys take their default and
// unparseable values are replaced by the default with a warning; only KV
// failures are returned.
func (s *Store) LoadAggregate(ctx context.Context) (model.Aggregate, error) {
	agg := model.DefaultAggregate()

	raw, ok, err := s.kv.Get(ctx, KeyWater)
	if err != nil {
		return agg, err
	}
	if ok {
		if water, err := model.DecodeWater([]byte(raw)); err != nil {
			s.corrupt(KeyWater, err)
		} else {
			agg.Water = water
		}
	}

	raw, ok, err = s.kv.Get(ctx, KeyDayTemplate)
	if err != nil {
		return agg, err
	}
	if ok {
		if tpl, err := model.DecodeDayTemplate([]byte(raw)); err != nil {
			s.corrupt(KeyDayTemplate, err)
		} else {
			agg.DayTemplate = tpl
		}
	}

	settings, err := s.loadSettings(ctx)
	if err != nil {
		return agg, err
	}
	agg.Settings = settings
	return agg, nil
}

func (s *Store) loadSettings(ctx context.Context) (model.Settings, error) {
	st := model.DefaultSettings()

	strs := map[string]*string{
		KeyTitle:    &st.Title,
		KeySubtitle: &st.Subtitle,
		KeyIcon:     &st.Icon,
	}
	for key, dst := range strs {
		v, ok, err := s.kv.Get(ctx, key)
		if err != nil {
			return st, err
		}
		if ok && v != "" {
			*dst = v
		}
	}
	st.Icon = model.SanitizeIcon(st.Icon)

	if v, ok, err := s.kv.Get(ctx, KeyLiters); err != nil {
		return st, err
	} else if ok {
		if l, err := model.ParseLiters(v); err != nil {
			s.corrupt(KeyLiters, err)
		} else {
			st.Liters = l
		}
	}

	bools := map[string]*bool{
		KeyDarkMode:   &st.DarkMode,
		KeyMobileMode: &st.MobileMode,
		KeyLockedMode: &st.LockedMode,
	}
	for key, dst := range bools {
		v, ok, err := s.kv.Get(ctx, key)
		if err != nil {
			return st, err
		}
		if ok {
			*dst = v == "true"
		}
	}

	if err := s.loadJSON(ctx, KeyThresholds, func(raw []byte) error {
		var th model.Thresholds
		if err := json.Unmarshal(raw, &th); err != nil {
			return err
		}
		if len(th) > 0 {
			st.WaterThresholds = th
		}
		return nil
	}); err != nil {
		return st, err
	}
	if err := s.loadJSON(ctx, KeyAnimals, func(raw []byte) error {
		var animals []model.Animal
		if err := json.Unmarshal(raw, &animals); err != nil {
			return err
		}
		if animals != nil {
			st.Animals = animals
		}
		return nil
	}); err != nil {
		return st, err
	}
	if err := s.loadJSON(ctx, KeyAirReadings, func(raw []byte) error {
		var readings []model.AirReading
		if err := json.Unmarshal(raw, &readings); err != nil {
			return err
		}
		if readings != nil {
			st.AirReadings = readings
		}
		return nil
	}); err != nil {
		return st, err
	}
	return st, nil
}

func (s *Store) loadJSON(ctx context.Context, key string, decode func([]byte) error) error {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil || !ok {
		return err
	}
	if err := decode([]byte(raw)); err != nil {
		s.corrupt(key, err)
	}
	return nil
}

func (s *Store) corrupt(key string, err error) {
	s.logger.Warn("ignoring unreadable local value", zap.String("key", key), zap.Error(err))
}

// SaveAggregate writes every key of agg in one batch.
func (s *Store) SaveAggregate(ctx context.Context, agg model.Aggregate) error {
	entries, err := Entries(agg)
	if err != nil {
		return err
	}
	if err := s.kv.SetMany(ctx, entries); err != nil {
		return fmt.Errorf("failed to save local data: %w", err)
	}
	return nil
}

// Entries flattens agg into the key layout.
func Entries(agg model.Aggregate) (map[string]string, error) {
	entries := map[string]string{
		KeyTitle:      agg.Settings.Title,
		KeySubtitle:   agg.Settings.Subtitle,
		KeyIcon:       agg.Settings.Icon,
		KeyLiters:     agg.Settings.Liters.String(),
		KeyDarkMode:   strconv.FormatBool(agg.Settings.DarkMode),
		KeyMobileMode: strconv.FormatBool(agg.Settings.MobileMode),
		KeyLockedMode: strconv.FormatBool(agg.Settings.LockedMode),
	}
	docs := map[string]any{
		KeyWater:       nonNil(agg.Water),
		KeyDayTemplate: agg.DayTemplate,
		KeyThresholds:  agg.Settings.WaterThresholds,
		KeyAnimals:     nonNil(agg.Settings.Animals),
		KeyAirReadings: nonNil(agg.Settings.AirReadings),
	}
	for key, v := range docs {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		entries[key] = string(raw)
	}
	return entries, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Token returns the stored remote access token, "" when absent.
func (s *Store) Token(ctx context.Context) (string, error) {
	v, _, err := s.kv.Get(ctx, KeyToken)
	return v, err
}

// SetToken stores the remote access token.
func (s *Store) SetToken(ctx context.Context, token string) error {
	return s.kv.SetMany(ctx, map[string]string{KeyToken: token})
}

// ClearToken forgets the remote access token.
func (s *Store) ClearToken(ctx context.Context) error {
	return s.kv.Delete(ctx, KeyToken)
}
