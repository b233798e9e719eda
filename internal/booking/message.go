package booking

import (
	"net/url"
	"strings"

	"interview-scheduler/internal/model"
)

// RenderMessage fills the WhatsApp template placeholders for b.
func RenderMessage(template string, b model.Booking) string {
	meet := b.MeetLink
	if meet == "" {
		meet = "will be shared soon"
	}
	r := strings.NewReplacer(
		"{name}", b.Name,
		"{date}", b.Date,
		"{time}", b.StartTime+" - "+b.EndTime,
		"{startTime}", b.StartTime,
		"{endTime}", b.EndTime,
		"{meetLink}", meet,
		"{email}", b.Email,
	)
	return r.Replace(template)
}

// WhatsappLink builds a wa.me click-to-chat link with text prefilled.
func WhatsappLink(phone, text string) string {
	var digits strings.Builder
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	if digits.Len() == 0 {
		return ""
	}
	return "https://wa.me/" + digits.String() + "?text=" + url.QueryEscape(text)
}
