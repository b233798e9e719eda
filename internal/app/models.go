package app

import (
	"time"

	"interview-scheduler/internal/booking"
	"interview-scheduler/internal/calendar"
	"interview-scheduler/internal/model"
)

type loginReq struct {
	Secret string `json:"secret"`
}

type loginResp struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type bookingResp struct {
	Booking         model.Booking `json:"booking"`
	WhatsappMessage string        `json:"whatsappMessage"`
}

type verifyReq struct {
	Contact string `json:"contact"`
}

// verifyResp carries the fields the final round form is prefilled with.
type verifyResp struct {
	Eligible          bool   `json:"eligible"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Whatsapp          string `json:"whatsapp"`
	JoiningPreference string `json:"joiningPreference"`
}

type rescheduleReq struct {
	NewDate   string `json:"newDate"`
	NewSlotID string `json:"newSlotId"`
}

type finalRoundReq struct {
	Eligible *bool `json:"eligible"`
}

type bookingsResp struct {
	Bookings []booking.BookingView `json:"bookings"`
	Count    int                   `json:"count"`
}

type configResp struct {
	Config   model.SlotConfig `json:"config"`
	Timezone string           `json:"timezone"`
}

type calendarStatusResp struct {
	Configured bool       `json:"configured"`
	Connected  bool       `json:"connected"`
	Expiry     *time.Time `json:"expiry,omitempty"`
}

type calendarEventsResp struct {
	Events []calendar.Event `json:"events"`
	Count  int              `json:"count"`
}

type jobReq struct {
	Title         string   `json:"title" validate:"required,max=200"`
	Description   string   `json:"description" validate:"required,max=10000"`
	Salary        string   `json:"salary" validate:"max=200"`
	ApplyLink     string   `json:"applyLink" validate:"omitempty,http_url"`
	ContactEmails []string `json:"contactEmails" validate:"dive,email,max=200"`
	IsPublished   bool     `json:"isPublished"`
}

type jobsResp struct {
	Jobs  []model.JobPost `json:"jobs"`
	Count int             `json:"count"`
}
