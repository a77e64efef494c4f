package shared

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/peterldowns/testy/assert"
	"github.com/tidwall/gjson"
)

func TestParseBars(t *testing.T) {
	data := `[{"time":1700000000,"open":10,"high":15,"low":8,"close":12,"volume":5},
	{"time":1700003600,"open":12,"high":13,"low":11,"close":11.5,"volume":7.5}]`

	// Ensure bars can be parsed.
	bars, err := ParseBars(gjson.Parse(data).Array())
	assert.NoError(t, err)
	want := []Bar{
		{Time: 1700000000, Open: 10, High: 15, Low: 8, Close: 12, Volume: 5},
		{Time: 1700003600, Open: 12, High: 13, Low: 11, Close: 11.5, Volume: 7.5},
	}
	if !cmp.Equal(bars, want) {
		t.Errorf("mismatching bars: %v", cmp.Diff(want, bars))
	}

	// Ensure bars without a time error.
	_, err = ParseBars(gjson.Parse(`[{"open":10}]`).Array())
	assert.Error(t, err)

	// Ensure non-object bars error.
	_, err = ParseBars(gjson.Parse(`[1, 2]`).Array())
	assert.Error(t, err)

	// Ensure an empty set parses to an empty set.
	bars, err = ParseBars(gjson.Parse(`[]`).Array())
	assert.NoError(t, err)
	assert.Equal(t, len(bars), 0)
}

func TestParseOverlays(t *testing.T) {
	data := `{
		"extremum": [
			{"timestamp": 1700000000000, "value": 20.5, "type": "maximum"},
			{"timestamp": 1700003600000, "value": 18, "type": "minimum"}
		],
		"wave": [
			{"start": 1700000000000, "end": 1700007200000, "startValue": 20, "endValue": 0},
			{"start": 1700007200000, "end": 1700010800000, "startValue": 19},
			{"start": 1700010800000, "end": 1700014400000, "startValue": 19, "endValue": null}
		],
		"trends": [
			{
				"direction": "U",
				"startTrend": {"timestamp": 1700000000000, "value": 10},
				"endTrend": {"timestamp": 1700007200000, "value": 20},
				"breakTrend": {"timestamp": 1700010800000, "value": 15},
				"maxVolumeZone": {"startPrice": 12, "endPrice": 14}
			}
		]
	}`

	overlays, err := ParseOverlays(gjson.Parse(data))
	assert.NoError(t, err)

	// Ensure extrema are parsed.
	wantExtrema := []Extremum{
		{Timestamp: 1700000000000, Value: 20.5, Kind: Maximum},
		{Timestamp: 1700003600000, Value: 18, Kind: Minimum},
	}
	if !cmp.Equal(overlays.Extrema, wantExtrema) {
		t.Errorf("mismatching extrema: %v", cmp.Diff(wantExtrema, overlays.Extrema))
	}

	// Ensure a zero end value is kept distinct from an absent or null one.
	assert.Equal(t, len(overlays.Waves), 3)
	assert.True(t, overlays.Waves[0].EndValue != nil)
	assert.Equal(t, *overlays.Waves[0].EndValue, 0)
	assert.True(t, overlays.Waves[1].EndValue == nil)
	assert.True(t, overlays.Waves[2].EndValue == nil)

	// Ensure trends are parsed.
	wantTrends := []Trend{{
		Direction:     Up,
		Start:         TrendPoint{Timestamp: 1700000000000, Value: 10},
		End:           TrendPoint{Timestamp: 1700007200000, Value: 20},
		Break:         TrendPoint{Timestamp: 1700010800000, Value: 15},
		MaxVolumeZone: VolumeZone{StartPrice: 12, EndPrice: 14},
	}}
	if !cmp.Equal(overlays.Trends, wantTrends) {
		t.Errorf("mismatching trends: %v", cmp.Diff(wantTrends, overlays.Trends))
	}

	// Ensure absent overlay sets are left nil.
	overlays, err = ParseOverlays(gjson.Parse(`{"wave": []}`))
	assert.NoError(t, err)
	assert.True(t, overlays.Extrema == nil)
	assert.True(t, overlays.Trends == nil)
	assert.Equal(t, len(overlays.Waves), 0)

	// Ensure non-object payloads error.
	_, err = ParseOverlays(gjson.Parse(`[]`))
	assert.Error(t, err)
}
