package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/tia2694/paludario/internal/model"
)

var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseWhen reads an absolute timestamp ("2025-03-14T18:30") or a natural
// expression ("yesterday 9am", "2 hours ago") relative to now. Empty means now.
func parseWhen(s string, now time.Time) (model.Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return model.NewTimestamp(now.Truncate(time.Minute)), nil
	}
	if ts, err := model.ParseTimestamp(s); err == nil {
		return ts, nil
	}
	r, err := dateParser.Parse(s, now)
	if err != nil {
		return model.Timestamp{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	if r == nil {
		return model.Timestamp{}, fmt.Errorf("invalid date %q", s)
	}
	return model.NewTimestamp(r.Time.Truncate(time.Minute)), nil
}

// parseKeyframes reads "HH:MM=value" pairs.
func parseKeyframes(args []string) ([]model.Keyframe, error) {
	out := make([]model.Keyframe, 0, len(args))
	for _, arg := range args {
		at, val, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid keyframe %q: expected HH:MM=value", arg)
		}
		t, err := model.ParseClock(at)
		if err != nil {
			return nil, fmt.Errorf("invalid keyframe %q: %w", arg, err)
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(val), ",", "."), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid keyframe %q: %w", arg, err)
		}
		out = append(out, model.Keyframe{Time: t, Value: v})
	}
	return out, nil
}

// parseValue accepts a decimal comma; empty or invalid input yields nil.
func parseValue(s string) *float64 {
	return model.ParseValue(strings.ReplaceAll(s, ",", "."))
}

// parseRequired reads a number that must be present.
func parseRequired(name, s string) (*float64, error) {
	v := parseValue(s)
	if v == nil {
		return nil, fmt.Errorf("%s: %q is not a number", name, s)
	}
	return v, nil
}

// formatValue prints a reading value, "-" when missing.
func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// parseIndex reads a 1-based position.
func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid position %q: expected a number from 1", s)
	}
	return n - 1, nil
}
