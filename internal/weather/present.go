package weather

import (
	"fmt"
	"time"
)

// TravelDayMark is appended to rows inside the travel window.
const TravelDayMark = "（旅行日）"

var weekdays = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// MissingValue stands in for a temperature the forecast left null.
const MissingValue = "–"

// Day is one display row. Code, Max and Min are nil when the forecast had no
// value for that day.
type Day struct {
	Date      string   `json:"date"`
	Label     string   `json:"label"`
	Code      *int     `json:"code"`
	Max       *float64 `json:"max"`
	Min       *float64 `json:"min"`
	TravelDay bool     `json:"travel_day"`
	Text      string   `json:"text"`
}

// Now summarizes current conditions.
type Now struct {
	Label       string  `json:"label"`
	Code        int     `json:"code"`
	Temperature float64 `json:"temperature"`
	WindSpeed   float64 `json:"wind_speed"`
	Text        string  `json:"text"`
}

// Summary is a forecast ready for display.
type Summary struct {
	Current *Now  `json:"current,omitempty"`
	Days    []Day `json:"days"`
}

// Empty reports whether there is nothing to show.
func (s Summary) Empty() bool { return s.Current == nil && len(s.Days) == 0 }

// Lines renders the summary as plain text lines.
func (s Summary) Lines() []string {
	var out []string
	if s.Current != nil {
		out = append(out, s.Current.Text)
	}
	for _, d := range s.Days {
		out = append(out, d.Text)
	}
	return out
}

// Present aligns a forecast to the display window and flags travel days.
//
// At most daysToShow rows are shown, and never more than the shortest of the
// four daily arrays. With a start date, rows within
// [start, start+tripLength-1] are travel days; when none of the shown rows fall
// in that range the single row closest to start is flagged instead (the
// earliest one on a tie). Present never fails: a nil window gives an empty
// summary.
func Present(w *Window, start *time.Time, tripLength, daysToShow int) Summary {
	s := Summary{Days: []Day{}}
	if w == nil {
		return s
	}

	if w.Current != nil {
		label := Label(w.Current.WeatherCode)
		s.Current = &Now{
			Label:       label,
			Code:        w.Current.WeatherCode,
			Temperature: w.Current.Temperature,
			WindSpeed:   w.Current.WindSpeed,
			Text:        fmt.Sprintf("現在: %s %.1f℃ 風速%.1fkm/h", label, w.Current.Temperature, w.Current.WindSpeed),
		}
	}

	d := w.Daily
	n := min(daysToShow, len(d.Time), len(d.TemperatureMax), len(d.TemperatureMin), len(d.WeatherCode))
	if n <= 0 {
		return s
	}

	for i := 0; i < n; i++ {
		label := UnknownLabel
		if code := d.WeatherCode[i]; code != nil {
			label = Label(*code)
		}
		s.Days = append(s.Days, Day{
			Date:  d.Time[i],
			Label: label,
			Code:  clone(d.WeatherCode[i]),
			Max:   clone(d.TemperatureMax[i]),
			Min:   clone(d.TemperatureMin[i]),
		})
	}

	if start != nil {
		markTravelDays(s.Days, dateOnly(*start), max(tripLength, 1))
	}
	for i := range s.Days {
		s.Days[i].Text = renderDay(s.Days[i])
	}
	return s
}

// markTravelDays flags rows whose day offset from start lies in [0, length).
// Rows with unparseable dates are never flagged.
func markTravelDays(days []Day, start time.Time, length int) {
	offsets := make([]int, len(days))
	valid := make([]bool, len(days))
	hit := false
	for i := range days {
		t, err := time.Parse(dateLayout, days[i].Date)
		if err != nil {
			continue
		}
		off := dayOffset(start, t)
		offsets[i], valid[i] = off, true
		if off >= 0 && off < length {
			days[i].TravelDay = true
			hit = true
		}
	}
	if hit {
		return
	}

	best := -1
	var bestOff, bestDist int
	for i := range days {
		if !valid[i] {
			continue
		}
		dist := offsets[i]
		if dist < 0 {
			dist = -dist
		}
		if best < 0 || dist < bestDist || (dist == bestDist && offsets[i] < bestOff) {
			best, bestOff, bestDist = i, offsets[i], dist
		}
	}
	if best >= 0 {
		days[best].TravelDay = true
	}
}

func renderDay(d Day) string {
	date := d.Date
	if t, err := time.Parse(dateLayout, d.Date); err == nil {
		date = fmt.Sprintf("%d/%d(%s)", t.Month(), t.Day(), weekdays[t.Weekday()])
	}
	line := fmt.Sprintf("%s %s 最高%s / 最低%s", date, d.Label, formatTemp(d.Max), formatTemp(d.Min))
	if d.TravelDay {
		line += " " + TravelDayMark
	}
	return line
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// clone keeps rows from aliasing the cached window.
func clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func formatTemp(v *float64) string {
	if v == nil {
		return MissingValue
	}
	return fmt.Sprintf("%.1f℃", *v)
}

// dayOffset counts whole days from start to t; both are UTC midnights.
func dayOffset(start, t time.Time) int {
	return int((t.Unix() - start.Unix()) / 86400)
}
