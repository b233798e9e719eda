package store

import "strings"

const (
	bookingPrefix   = "booking:"
	slotBlockPrefix = "block:slot:"
	dayBlockPrefix  = "block:day:"
	jobPrefix       = "job:"

	slotConfigKey       = "config:slots"
	integrationTokenKey = "integration:calendar-token"
)

// Slot ids already carry the date ("2024-01-02:09-00") but the date is kept
// as its own segment so a date prefix scan never depends on the id format.

func bookingKey(date, slotID string) string {
	return bookingPrefix + date + "/" + slotID
}

func bookingDatePrefix(date string) string {
	return bookingPrefix + date + "/"
}

func slotBlockKey(date, slotID string) string {
	return slotBlockPrefix + date + "/" + slotID
}

func slotBlockDatePrefix(date string) string {
	return slotBlockPrefix + date + "/"
}

func dayBlockKey(date string) string {
	return dayBlockPrefix + date
}

func jobKey(id string) string {
	return jobPrefix + id
}

// splitDated parses "<prefix><date>/<slotID>".
func splitDated(key, prefix string) (date, slotID string, ok bool) {
	rest, found := strings.CutPrefix(key, prefix)
	if !found {
		return "", "", false
	}
	return strings.Cut(rest, "/")
}
