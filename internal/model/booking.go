package model

import "time"

// Booking is the single record stored per booked slot.
type Booking struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Whatsapp           string    `json:"whatsapp"`
	JoiningPreference  string    `json:"joiningPreference"`
	Date               string    `json:"date"`
	SlotID             string    `json:"slotId"`
	StartTime          string    `json:"startTime"`
	EndTime            string    `json:"endTime"`
	BookedAt           time.Time `json:"bookedAt"`
	MeetLink           string    `json:"meetLink,omitempty"`
	ExternalEventID    string    `json:"externalEventId,omitempty"`
	FinalRound         bool      `json:"finalRound,omitempty"`
	FinalRoundEligible bool      `json:"finalRoundEligible,omitempty"`
	CurrentCTC         string    `json:"currentCtc,omitempty"`
	ExpectedCTC        string    `json:"expectedCtc,omitempty"`
}

// JobPost is a job board entry managed by the admin.
type JobPost struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Salary        string    `json:"salary,omitempty"`
	ApplyLink     string    `json:"applyLink,omitempty"`
	ContactEmails []string  `json:"contactEmails,omitempty"`
	IsPublished   bool      `json:"isPublished"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
