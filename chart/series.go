package chart

// Kind represents the drawing kind of a chart series.
type Kind int

const (
	CandlestickKind Kind = iota
	LineKind
	HistogramKind
)

// String stringifies the provided series kind.
func (k Kind) String() string {
	switch k {
	case CandlestickKind:
		return "candlestick"
	case LineKind:
		return "line"
	case HistogramKind:
		return "histogram"
	default:
		return "unknown"
	}
}

// SeriesID identifies a series rendered by a chart session.
type SeriesID string

const (
	CandlesSeries SeriesID = "candles_series"
	VolumeSeries  SeriesID = "volume_series"
	ExtremaSeries SeriesID = "extrema_series"
	WaveSeries    SeriesID = "wave_series"
	TrendSeries   SeriesID = "trend_series"
	VMA200Series  SeriesID = "vma_200"
	VMA5Series    SeriesID = "vma_5"
)

// Options represents the presentation options of a series.
type Options struct {
	Color        string
	LineWidth    int
	PriceScaleID string
}

// Series represents a declared chart series.
type Series struct {
	ID      SeriesID
	Kind    Kind
	Options Options
}

// NewCandlestickSeries declares a candlestick series.
func NewCandlestickSeries(id SeriesID) Series {
	return Series{ID: id, Kind: CandlestickKind, Options: Options{PriceScaleID: "right"}}
}

// NewLineSeries declares a line series.
func NewLineSeries(id SeriesID, color string, width int) Series {
	return Series{ID: id, Kind: LineKind, Options: Options{Color: color, LineWidth: width, PriceScaleID: "right"}}
}

// NewHistogramSeries declares a histogram series drawn on its own price scale.
func NewHistogramSeries(id SeriesID, color string, priceScaleID string) Series {
	return Series{ID: id, Kind: HistogramKind, Options: Options{Color: color, PriceScaleID: priceScaleID}}
}

// DefaultSeries returns the series set of a chart session.
func DefaultSeries() []Series {
	return []Series{
		NewCandlestickSeries(CandlesSeries),
		NewHistogramSeries(VolumeSeries, "#26a69a", "volume"),
		NewLineSeries(ExtremaSeries, "orange", 1),
		NewLineSeries(WaveSeries, "green", 2),
		NewLineSeries(TrendSeries, "white", 2),
		NewLineSeries(VMA200Series, "purple", 1),
		NewLineSeries(VMA5Series, "aqua", 1),
	}
}
