// Package model holds the records persisted by the booking store and the
// configuration that drives slot generation.
package model

import (
	"fmt"
	"strings"
	"time"
)

// MaxNumberOfDays caps the booking horizon.
const MaxNumberOfDays = 90

// SlotConfig describes the business hours and slot layout. It is read on every
// generation call and replaced wholesale by an admin update.
type SlotConfig struct {
	StartHour            int      `json:"startHour"`
	EndHour              int      `json:"endHour"`
	SlotDurationMinutes  int      `json:"slotDurationMinutes"`
	BreakDurationMinutes int      `json:"breakDurationMinutes"`
	NumberOfDays         int      `json:"numberOfDays"`
	WhatsappTemplate     string   `json:"whatsappTemplate"`
	AllowOverrun         bool     `json:"allowOverrun"`
	FinalRoundDates      []string `json:"finalRoundDates,omitempty"`
	// JoiningOptions lists the accepted joining preferences.
	JoiningOptions       []string `json:"joiningOptions,omitempty"`
}

// Validate rejects configurations the generator cannot walk.
func (c SlotConfig) Validate() error {
	if c.StartHour < 0 || c.StartHour > 24 || c.EndHour < 0 || c.EndHour > 24 {
		return fmt.Errorf("hours must be between 0 and 24")
	}
	if c.StartHour >= c.EndHour {
		return fmt.Errorf("startHour must be before endHour")
	}
	if c.SlotDurationMinutes <= 0 {
		return fmt.Errorf("slotDurationMinutes must be positive")
	}
	if c.BreakDurationMinutes < 0 {
		return fmt.Errorf("breakDurationMinutes must not be negative")
	}
	if c.NumberOfDays < 1 || c.NumberOfDays > MaxNumberOfDays {
		return fmt.Errorf("numberOfDays must be between 1 and %d", MaxNumberOfDays)
	}
	for _, d := range c.FinalRoundDates {
		if _, err := time.Parse(DateLayout, d); err != nil {
			return fmt.Errorf("invalid final round date %q", d)
		}
	}
	for _, o := range c.JoiningOptions {
		if strings.TrimSpace(o) == "" {
			return fmt.Errorf("joining options must not be blank")
		}
	}
	return nil
}

// JoiningOption returns the configured option equal to v ignoring case.
func (c SlotConfig) JoiningOption(v string) (string, bool) {
	for _, o := range c.JoiningOptions {
		if strings.EqualFold(strings.TrimSpace(o), strings.TrimSpace(v)) {
			return o, true
		}
	}
	return "", false
}

// IsFinalRoundDate reports whether slots on date belong to the final round.
func (c SlotConfig) IsFinalRoundDate(date string) bool {
	for _, d := range c.FinalRoundDates {
		if d == date {
			return true
		}
	}
	return false
}

// DateLayout is the calendar date format used in keys and payloads.
const DateLayout = "2006-01-02"
