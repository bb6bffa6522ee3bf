package session

// Scale converts between video time and chart pixels. It is supplied by
// whatever draws the chart.
type Scale interface {
	TimeToPixel(t float64) float64
	PixelToTime(x float64) float64
}

// LinearScale maps the time domain [T0, T1] onto the pixel range [X0, X1].
type LinearScale struct {
	T0, T1 float64
	X0, X1 float64
}

// NewLinearScale covers a whole video of the given duration drawn across
// width pixels starting at offset.
func NewLinearScale(duration, offset, width float64) LinearScale {
	return LinearScale{T0: 0, T1: duration, X0: offset, X1: offset + width}
}

func (s LinearScale) TimeToPixel(t float64) float64 {
	if s.T1 == s.T0 {
		return s.X0
	}
	return s.X0 + (t-s.T0)*(s.X1-s.X0)/(s.T1-s.T0)
}

func (s LinearScale) PixelToTime(x float64) float64 {
	if s.X1 == s.X0 {
		return s.T0
	}
	return s.T0 + (x-s.X0)*(s.T1-s.T0)/(s.X1-s.X0)
}
