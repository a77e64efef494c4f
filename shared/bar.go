package shared

// Bar represents a unit OHLCV price sample of a series.
type Bar struct {
	// Time is the bar open time in unix seconds.
	Time   int64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// IndicatorPoint represents a derived indicator value at a bar time.
type IndicatorPoint struct {
	// Time is the unix seconds time of the bar the value was derived at.
	Time  int64
	Value float64
}

// IsOrdered asserts the provided bars have strictly increasing, unique times.
func IsOrdered(bars []Bar) bool {
	for idx := 1; idx < len(bars); idx++ {
		if bars[idx].Time <= bars[idx-1].Time {
			return false
		}
	}

	return true
}
