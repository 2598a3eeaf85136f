package chart

import (
	"sort"
)

// SeriesKind distinguishes reference curves from patient measurements.
type SeriesKind string

const (
	// SeriesReference is a population percentile curve.
	SeriesReference SeriesKind = "reference"

	// SeriesMeasurement is the patient's own measurement trace.
	SeriesMeasurement SeriesKind = "measurement"
)

// Point is a single (age, axial length) sample.
type Point struct {
	// X is age in years.
	X float64 `json:"x"`

	// Y is axial length in millimeters.
	Y float64 `json:"y"`
}

// Series is one plotted line.
type Series struct {
	Name       string     `json:"name"`
	Kind       SeriesKind `json:"kind"`
	Percentile Percentile `json:"percentile,omitempty"`
	Points     []Point    `json:"points"`
}

// Axis describes one chart axis, mirroring the layout the front end feeds
// to its plotting library.
type Axis struct {
	Title    string  `json:"title"`
	TickMode string  `json:"tickMode"`
	Tick0    float64 `json:"tick0,omitempty"`
	DTick    float64 `json:"dtick"`
	ShowGrid bool    `json:"showGrid"`
}

// Config is the complete chart description returned to the client.
type Config struct {
	Title  string   `json:"title"`
	XAxis  Axis     `json:"xaxis"`
	YAxis  Axis     `json:"yaxis"`
	Series []Series `json:"series"`
}

// Measurement is one recorded axial length reading for a patient.
type Measurement struct {
	// AgeYears is the patient's age at measurement time.
	AgeYears float64 `json:"ageYears"`

	// AxialLengthMM is the measured axial length in millimeters.
	AxialLengthMM float64 `json:"axialLengthMM"`

	// Eye identifies the measured eye ("OD" or "OS"). Optional.
	Eye string `json:"eye,omitempty"`
}

// Build assembles a growth chart for a patient: the percentile reference
// curves plus the patient's measurements sorted by age. Works with zero
// measurements; the reference curves alone are still a valid chart.
func Build(patientName string, measurements []Measurement) Config {
	series := ReferenceSeries()

	if len(measurements) > 0 {
		sorted := make([]Measurement, len(measurements))
		copy(sorted, measurements)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].AgeYears < sorted[j].AgeYears
		})

		points := make([]Point, len(sorted))
		for i, m := range sorted {
			points[i] = Point{X: m.AgeYears, Y: m.AxialLengthMM}
		}

		name := patientName
		if name == "" {
			name = "Patient"
		}
		series = append(series, Series{
			Name:   name,
			Kind:   SeriesMeasurement,
			Points: points,
		})
	}

	return Config{
		Title: "Axial Length Growth Chart",
		XAxis: Axis{
			Title:    "Age (years)",
			TickMode: "linear",
			Tick0:    4,
			DTick:    2,
			ShowGrid: true,
		},
		YAxis: Axis{
			Title:    "Axial Length (mm)",
			TickMode: "linear",
			DTick:    1,
			ShowGrid: true,
		},
		Series: series,
	}
}
