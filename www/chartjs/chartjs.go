package chartjs

import (
	"fmt"
	"time"
)

const NoOfHours = 24

var colors = []string{"#ffc107d4", "#f44336d4", "#2196f3d4", "#4caf50d4"}

var units = map[string]string{
	"temperature":        "°C",
	"temperature_avg":    "°C",
	"temperature_max":    "°C",
	"temperature_min":    "°C",
	"humidity":           "%",
	"relative_humidity":  "%",
	"wind_speed":         "m/s",
	"wind_speed_avg":     "m/s",
	"wind_speed_max":     "m/s",
	"wind_speed_min":     "m/s",
	"wind_direction":     "°",
	"rain_accumulated":   "mm",
	"rain_intensity_max": "mm/h",
	"air_pressure":       "hPa",
}

// Parameters with a fixed scale, others are scaled to the data.
var limits = map[string][2]float64{
	"humidity":          {0, 100},
	"relative_humidity": {0, 100},
	"wind_direction":    {0, 360},
}

type Chart struct {
	Type    string  `json:"type"`
	Data    Data    `json:"data"`
	Options Options `json:"options"`
}

type Data struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type Dataset struct {
	Label       string     `json:"label"`
	Data        []*float64 `json:"data"`
	BorderWidth int        `json:"borderWidth"`
	BorderColor string     `json:"borderColor"`
	Tension     float64    `json:"tension"`
	SpanGaps    bool       `json:"spanGaps"`
	YAxisID     string     `json:"yAxisID"`
}

type Options struct {
	Responsive bool             `json:"responsive"`
	Plugins    Plugins          `json:"plugins"`
	Scales     map[string]Scale `json:"scales"`
}

type Plugins struct {
	Legend Toggle `json:"legend"`
	Title  Toggle `json:"title"`
}

type Toggle struct {
	Display bool   `json:"display"`
	Text    string `json:"text,omitempty"`
}

type Scale struct {
	Type     string   `json:"type"`
	Position string   `json:"position"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Title    Axis     `json:"title"`
}

type Axis struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
	Color   string `json:"color"`
}

// Unit returns the unit FMI reports the parameter in, or "" if unknown.
func Unit(parameter string) string {
	return units[parameter]
}

// NewChart creates an hourly line chart of NoOfHours hours starting at from,
// labeled with the hours in loc. Every parameter gets a dataset drawn against
// an axis of its own, alternating left and right.
func NewChart(title string, from time.Time, loc *time.Location, parameters ...string) Chart {
	labels := make([]string, NoOfHours)
	for i := range labels {
		labels[i] = fmt.Sprintf("%02d:00", from.Add(time.Duration(i)*time.Hour).In(loc).Hour())
	}

	chart := Chart{
		Type: "line",
		Data: Data{Labels: labels},
		Options: Options{
			Responsive: true,
			Plugins: Plugins{
				Legend: Toggle{Display: len(parameters) > 1},
				Title:  Toggle{Display: title != "", Text: title},
			},
			Scales: make(map[string]Scale, len(parameters)),
		},
	}

	for i, p := range parameters {
		axisID := fmt.Sprintf("y%d", i)
		color := colors[i%len(colors)]
		position := "left"
		if i%2 == 1 {
			position = "right"
		}

		chart.Data.Datasets = append(chart.Data.Datasets, Dataset{
			Label:       p,
			Data:        make([]*float64, NoOfHours),
			BorderWidth: 1,
			BorderColor: color,
			Tension:     0.4,
			SpanGaps:    true,
			YAxisID:     axisID,
		})

		scale := Scale{
			Type:     "linear",
			Position: position,
			Title:    Axis{Display: true, Text: axisTitle(p), Color: color},
		}
		if l, ok := limits[p]; ok {
			scale = scale.WithMinAndMax(l[0], l[1])
		}
		chart.Options.Scales[axisID] = scale
	}

	return chart
}

func axisTitle(parameter string) string {
	if u := Unit(parameter); u != "" {
		return fmt.Sprintf("%s (%s)", parameter, u)
	}
	return parameter
}

func (s Scale) WithMinAndMax(min, max float64) Scale {
	s.Min = &min
	s.Max = &max
	return s
}
