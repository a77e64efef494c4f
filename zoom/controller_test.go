package zoom

import (
	"errors"
	"testing"

	"github.com/dnldd/chartview/shared"
	"github.com/peterldowns/testy/assert"
)

func TestComputeThresholds(t *testing.T) {
	tests := []struct {
		name string
		tf   shared.Timeframe
		want Thresholds
	}{
		{name: "finest clamps finer neighbour", tf: shared.OneMinute, want: Thresholds{ZoomInBars: 50, ZoomOutBars: 3000}},
		{name: "five minute", tf: shared.FiveMinute, want: Thresholds{ZoomInBars: 50, ZoomOutBars: 2100}},
		{name: "fifteen minute", tf: shared.FifteenMinute, want: Thresholds{ZoomInBars: 50, ZoomOutBars: 2800}},
		{name: "one hour", tf: shared.OneHour, want: Thresholds{ZoomInBars: 50, ZoomOutBars: 2800}},
		{name: "four hour", tf: shared.FourHour, want: Thresholds{ZoomInBars: 50, ZoomOutBars: 3000}},
		{name: "coarsest clamps coarser neighbour", tf: shared.OneDay, want: Thresholds{ZoomInBars: 50, ZoomOutBars: 700}},
	}

	for _, test := range tests {
		th, err := ComputeThresholds(test.tf)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.name, err)
			continue
		}

		if th != test.want {
			t.Errorf("%s: expected %+v, got %+v", test.name, test.want, th)
		}
	}

	// Ensure unknown timeframes are rejected.
	_, err := ComputeThresholds(shared.Timeframe(42))
	assert.True(t, errors.Is(err, shared.ErrUnknownTimeframe))
}

func TestDecide(t *testing.T) {
	th := Thresholds{ZoomInBars: 50, ZoomOutBars: 2800}

	tests := []struct {
		name    string
		visible int
		want    Direction
	}{
		{name: "above zoom out", visible: 2801, want: ZoomOut},
		{name: "at zoom out", visible: 2800, want: NoChange},
		{name: "comfortable range", visible: 700, want: NoChange},
		{name: "at zoom in", visible: 50, want: NoChange},
		{name: "below zoom in", visible: 49, want: ZoomIn},
		{name: "just above guard", visible: 6, want: ZoomIn},
		{name: "at guard", visible: 5, want: NoChange},
		{name: "nothing visible", visible: 0, want: NoChange},
	}

	for _, test := range tests {
		got := Decide(test.visible, th)
		if got != test.want {
			t.Errorf("%s: expected %s, got %s", test.name, test.want, got)
		}
	}
}

func TestEvaluate(t *testing.T) {
	// Ensure a wide one hour view switches to four hours.
	decision, err := Evaluate(shared.OneHour, 6000)
	assert.NoError(t, err)
	assert.Equal(t, decision.Direction, ZoomOut)
	assert.Equal(t, decision.From, shared.OneHour)
	assert.Equal(t, decision.To, shared.FourHour)
	assert.True(t, decision.Changed())

	// Ensure a narrow one hour view switches to fifteen minutes.
	decision, err = Evaluate(shared.OneHour, 20)
	assert.NoError(t, err)
	assert.Equal(t, decision.Direction, ZoomIn)
	assert.Equal(t, decision.To, shared.FifteenMinute)

	// Ensure a comfortable view keeps the timeframe.
	decision, err = Evaluate(shared.OneHour, 700)
	assert.NoError(t, err)
	assert.Equal(t, decision.Direction, NoChange)
	assert.False(t, decision.Changed())

	// Ensure the finest timeframe never proposes going finer.
	decision, err = Evaluate(shared.OneMinute, 20)
	assert.NoError(t, err)
	assert.Equal(t, decision.Direction, NoChange)
	assert.Equal(t, decision.To, shared.OneMinute)

	// Ensure the coarsest timeframe never proposes going coarser.
	decision, err = Evaluate(shared.OneDay, 100000)
	assert.NoError(t, err)
	assert.Equal(t, decision.Direction, NoChange)
	assert.Equal(t, decision.To, shared.OneDay)

	// Ensure unknown timeframes are surfaced.
	_, err = Evaluate(shared.Timeframe(-1), 6000)
	assert.True(t, errors.Is(err, shared.ErrUnknownTimeframe))
}

func TestEvaluateStaysOnLadder(t *testing.T) {
	ladder := shared.Timeframes()
	for _, tf := range ladder {
		for _, visible := range []int{0, 3, 6, 25, 49, 50, 700, 2100, 2801, 3001, 1 << 20} {
			decision, err := Evaluate(tf, visible)
			assert.NoError(t, err)

			_, err = decision.To.Index()
			assert.NoError(t, err)

			if decision.Changed() {
				fromIdx, _ := decision.From.Index()
				toIdx, _ := decision.To.Index()
				diff := toIdx - fromIdx
				if diff != 1 && diff != -1 {
					t.Errorf("%s at %d: expected a neighbouring timeframe, got %s",
						tf, visible, decision.To)
				}
			}
		}
	}
}
