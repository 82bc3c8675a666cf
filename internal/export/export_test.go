package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/tia2694/paludario/internal/model"
)

func ptr(v float64) *float64 { return &v }

func sample(t *testing.T) model.Aggregate {
	t.Helper()
	agg := model.DefaultAggregate()
	agg.Water = []model.WaterReading{
		{ID: "w2", Timestamp: model.NewTimestamp(time.Date(2025, 3, 15, 9, 0, 0, 0, time.Local)), PH: ptr(6.9), Temp: ptr(24)},
		{ID: "w1", Timestamp: model.NewTimestamp(time.Date(2025, 3, 14, 9, 0, 0, 0, time.Local)), PH: ptr(7.1)},
	}
	spray, err := model.NewInterval("08:00", "08:05")
	require.NoError(t, err)
	agg.DayTemplate.Spray = []model.Interval{spray}
	require.NoError(t, agg.DayTemplate.SetChannel(1, []model.Keyframe{{Time: 480, Value: 80}}))
	agg.Settings.Icon = "🐸"
	agg.Settings.Animals = []model.Animal{{
		ID: "a1", Species: "Neocaridina", Type: model.AnimalType("crustacean"), Count: 10,
		PurchaseDate: "2025-01-10", Status: model.AnimalStatus("alive"),
	}}
	return agg
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"json", FormatJSON},
		{"YAML", FormatYAML},
		{".yml", FormatYAML},
		{"toml", FormatTOML},
		{"excel", FormatXLSX},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseFormat("csv")
	assert.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	agg := sample(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, agg, FormatJSON))
	assert.Contains(t, buf.String(), "🐸")

	var back model.Aggregate
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Len(t, back.Water, 2)
	assert.Equal(t, agg.Settings.Animals, back.Settings.Animals)
	assert.Equal(t, agg.DayTemplate.Spray, back.DayTemplate.Spray)
}

func TestYAMLUsesJSONNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sample(t), FormatYAML))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	require.Contains(t, doc, "dayTemplate")

	settings := doc["settings"].(map[string]any)
	assert.Equal(t, "🐸", settings["icon"])

	water := doc["water"].([]any)
	first := water[0].(map[string]any)
	assert.Equal(t, 6.9, first["ph"])
	assert.NotContains(t, first, "kh")
}

func TestTOMLDropsNulls(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sample(t), FormatTOML))

	var doc map[string]any
	_, err := toml.Decode(buf.String(), &doc)
	require.NoError(t, err)

	water := doc["water"].([]map[string]any)
	require.Len(t, water, 2)
	assert.NotContains(t, water[1], "temp")

	animals := doc["settings"].(map[string]any)["animals"].([]map[string]any)
	assert.Equal(t, int64(10), animals[0]["count"])
}

func TestWorkbookSheets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sample(t), FormatXLSX))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetWater, SheetSchedule, SheetLights, SheetAnimals, SheetAir}, f.GetSheetList())

	rows, err := f.GetRows(SheetWater)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID", "Date", "PH", "KH", "GH", "NO2", "NO3", "NH4", "TEMP", "COND"}, rows[0])
	assert.Equal(t, "w1", rows[1][0], "water rows are chronological")
	assert.Equal(t, "7.1", rows[1][2])

	sched, err := f.GetRows(SheetSchedule)
	require.NoError(t, err)
	require.Len(t, sched, 2)
	assert.Equal(t, []string{"spray", "08:00", "08:05"}, sched[1])

	animals, err := f.GetRows(SheetAnimals)
	require.NoError(t, err)
	require.Len(t, animals, 2)
	assert.Equal(t, "Neocaridina", animals[1][1])
}

func TestUnsupportedFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, model.DefaultAggregate(), Format("csv")))
}
