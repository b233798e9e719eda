// Package booking implements availability resolution, the booking
// transaction and admin management on top of the store contracts.
//
// The package holds no mutable booking state of its own: every allocation
// decision is settled by store.BookingStore.CreateBooking.
package booking

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"

	"interview-scheduler/internal/apperror"
	"interview-scheduler/internal/model"
	"interview-scheduler/internal/store"
	"interview-scheduler/internal/validation"
)

// Store is the persistence the service needs.
type Store interface {
	store.BookingStore
	store.BlockStore
	store.SettingsStore
}

// Clock abstracts "now" so tests can pin it.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// EventRequest describes the calendar event created for a booking.
type EventRequest struct {
	Summary     string
	Description string
	Name        string
	Email       string
	Start       time.Time
	End         time.Time
}

// Event is what the calendar returns for a created event.
type Event struct {
	ID       string
	MeetLink string
}

// Calendar is the best-effort external calendar. A nil Calendar disables
// event creation entirely.
type Calendar interface {
	CreateEvent(ctx context.Context, req EventRequest) (*Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// DefaultWhatsappPattern accepts Bangladeshi mobile numbers with the 880
// country prefix, with or without the leading '+'.
var DefaultWhatsappPattern = regexp.MustCompile(`^\+?8801[3-9][0-9]{8}$`)

// DefaultJoiningOptions are offered when the configuration names none.
var DefaultJoiningOptions = []string{
	"Immediately",
	"Within 15 days",
	"Within 1 month",
	"Within 2 months",
	"Within 3 months",
}

const DefaultWhatsappTemplate = "Hello {name}, your interview is confirmed for {date} at {time}. Meeting link: {meetLink}"

type Options struct {
	Location        *time.Location
	Defaults        model.SlotConfig
	WhatsappPattern *regexp.Regexp
	Calendar        Calendar
	CalendarTimeout time.Duration
	InterviewTitle  string
	Clock           Clock
	Logger          *slog.Logger
}

type Service struct {
	store           Store
	loc             *time.Location
	defaults        model.SlotConfig
	whatsapp        *regexp.Regexp
	calendar        Calendar
	calendarTimeout time.Duration
	title           string
	clock           Clock
	log             *slog.Logger
	rules           *validator.Validate
}

// NewService returns a Service using st for all persistence.
func NewService(st Store, opts Options) *Service {
	s := &Service{
		store:           st,
		loc:             opts.Location,
		defaults:        opts.Defaults,
		whatsapp:        opts.WhatsappPattern,
		calendar:        opts.Calendar,
		calendarTimeout: opts.CalendarTimeout,
		title:           opts.InterviewTitle,
		clock:           opts.Clock,
		log:             opts.Logger,
		rules:           validation.New(),
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.whatsapp == nil {
		s.whatsapp = DefaultWhatsappPattern
	}
	if s.calendarTimeout <= 0 {
		s.calendarTimeout = 10 * time.Second
	}
	if s.title == "" {
		s.title = "Interview"
	}
	if s.clock == nil {
		s.clock = RealClock{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.defaults.WhatsappTemplate == "" {
		s.defaults.WhatsappTemplate = DefaultWhatsappTemplate
	}
	if len(s.defaults.JoiningOptions) == 0 {
		s.defaults.JoiningOptions = DefaultJoiningOptions
	}
	s.registerRules()
	return s
}

// Location is the business timezone.
func (s *Service) Location() *time.Location { return s.loc }

// EffectiveConfig returns the stored config, or the defaults when none was
// saved. A stored record that fails validation is ignored with a warning.
func (s *Service) EffectiveConfig(ctx context.Context) (model.SlotConfig, error) {
	cfg, err := s.store.GetSlotConfig(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return s.defaults, nil
	case errors.Is(err, store.ErrCorruptRecord):
		s.log.Warn("stored slot config rejected, using defaults", "err", err)
		return s.defaults, nil
	case err != nil:
		return model.SlotConfig{}, apperror.Transient(err)
	}
	if cfg.WhatsappTemplate == "" {
		cfg.WhatsappTemplate = s.defaults.WhatsappTemplate
	}
	if len(cfg.JoiningOptions) == 0 {
		cfg.JoiningOptions = s.defaults.JoiningOptions
	}
	return *cfg, nil
}

func (s *Service) now() time.Time {
	return s.clock.Now().In(s.loc)
}
