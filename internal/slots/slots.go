// Package slots derives the bookable interview slots from a SlotConfig.
// Everything here is pure: no storage access and no clock reads.
package slots

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"interview-scheduler/internal/model"
)

// Slot DTO
type Slot struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	StartAt   time.Time `json:"startAt"`
	EndAt     time.Time `json:"endAt"`
}

// Generate returns the slots of the booking horizon: tomorrow through
// tomorrow+NumberOfDays-1 in loc. Today is never offered.
func Generate(cfg model.SlotConfig, now time.Time, loc *time.Location) []Slot {
	local := now.In(loc)
	y, m, d := local.Date()
	first := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	return GenerateRange(cfg, first, cfg.NumberOfDays, loc)
}

// GenerateRange walks the configured hours for days consecutive dates
// starting at the calendar date of first.
func GenerateRange(cfg model.SlotConfig, first time.Time, days int, loc *time.Location) []Slot {
	if cfg.SlotDurationMinutes <= 0 {
		return nil
	}
	step := cfg.SlotDurationMinutes + cfg.BreakDurationMinutes
	startMin := cfg.StartHour * 60
	endMin := cfg.EndHour * 60

	fy, fm, fd := first.In(loc).Date()
	var out []Slot
	for i := 0; i < days; i++ {
		day := time.Date(fy, fm, fd+i, 0, 0, 0, 0, loc)
		date := day.Format(model.DateLayout)
		y, m, d := day.Date()

		for cur := startMin; cur < endMin; cur += step {
			end := cur + cfg.SlotDurationMinutes
			if end > endMin && !cfg.AllowOverrun {
				break
			}
			out = append(out, Slot{
				ID:        ID(date, cur),
				Date:      date,
				StartTime: FormatMinutes(cur),
				EndTime:   FormatMinutes(end),
				StartAt:   time.Date(y, m, d, 0, cur, 0, 0, loc),
				EndAt:     time.Date(y, m, d, 0, end, 0, 0, loc),
			})
		}
	}
	return out
}

// ForDate returns the slots of a single date, or an error if date is malformed.
func ForDate(cfg model.SlotConfig, date string, loc *time.Location) ([]Slot, error) {
	day, err := time.ParseInLocation(model.DateLayout, date, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", date)
	}
	return GenerateRange(cfg, day, 1, loc), nil
}

// ID is the composite slot identifier "YYYY-MM-DD:HH-MM".
func ID(date string, startMinutes int) string {
	return fmt.Sprintf("%s:%02d-%02d", date, startMinutes/60, startMinutes%60)
}

// ParseID splits a slot id into its date and start minute of day.
func ParseID(id string) (string, int, error) {
	date, clock, ok := strings.Cut(id, ":")
	if !ok {
		return "", 0, fmt.Errorf("invalid slot id %q", id)
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return "", 0, fmt.Errorf("invalid slot id %q", id)
	}
	hh, mm, ok := strings.Cut(clock, "-")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return "", 0, fmt.Errorf("invalid slot id %q", id)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return "", 0, fmt.Errorf("invalid slot id %q", id)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return "", 0, fmt.Errorf("invalid slot id %q", id)
	}
	return date, h*60 + m, nil
}

// FormatMinutes renders a minute-of-day offset as HH:MM. Offsets past
// midnight keep counting hours ("24:30").
func FormatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
