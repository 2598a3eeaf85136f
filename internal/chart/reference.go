// Package chart builds axial-length growth chart configurations.
// The server produces a declarative chart description; rendering happens in
// the client with a Plotly-style library.
package chart

// Percentile identifies a reference growth curve.
type Percentile int

// Reference percentiles plotted on every growth chart.
var Percentiles = []Percentile{5, 25, 50, 75, 95}

// referenceAges are the ages (in years) the reference curves are sampled at.
var referenceAges = []float64{4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18}

// referenceCurves holds axial length in millimeters per percentile, sampled
// at referenceAges. Values follow published population growth data for
// emmetropic children: rapid growth until ~10 years, then flattening.
var referenceCurves = map[Percentile][]float64{
	5:  {21.20, 21.45, 21.65, 21.82, 21.96, 22.08, 22.18, 22.26, 22.33, 22.39, 22.44, 22.48, 22.51, 22.53, 22.55},
	25: {21.75, 22.02, 22.24, 22.42, 22.57, 22.70, 22.81, 22.90, 22.98, 23.04, 23.09, 23.13, 23.16, 23.19, 23.21},
	50: {22.30, 22.58, 22.81, 23.00, 23.16, 23.30, 23.42, 23.52, 23.60, 23.67, 23.72, 23.76, 23.80, 23.83, 23.85},
	75: {22.85, 23.14, 23.38, 23.58, 23.75, 23.90, 24.03, 24.14, 24.23, 24.30, 24.36, 24.41, 24.45, 24.48, 24.50},
	95: {23.40, 23.72, 23.99, 24.22, 24.42, 24.59, 24.74, 24.87, 24.98, 25.07, 25.14, 25.20, 25.25, 25.29, 25.32},
}

// ReferenceSeries returns the percentile reference curves as chart series.
func ReferenceSeries() []Series {
	series := make([]Series, 0, len(Percentiles))
	for _, p := range Percentiles {
		values := referenceCurves[p]
		points := make([]Point, len(referenceAges))
		for i, age := range referenceAges {
			points[i] = Point{X: age, Y: values[i]}
		}
		series = append(series, Series{
			Name:       percentileName(p),
			Kind:       SeriesReference,
			Percentile: p,
			Points:     points,
		})
	}
	return series
}

func percentileName(p Percentile) string {
	switch p {
	case 5:
		return "5th percentile"
	case 25:
		return "25th percentile"
	case 50:
		return "50th percentile (median)"
	case 75:
		return "75th percentile"
	case 95:
		return "95th percentile"
	default:
		return "percentile"
	}
}
