package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"interview-scheduler/internal/apperror"
	"interview-scheduler/internal/model"
	"interview-scheduler/internal/slots"
	"interview-scheduler/internal/store"
)

// Result is returned by a successful Book.
type Result struct {
	Booking         model.Booking `json:"booking"`
	WhatsappMessage string        `json:"whatsappMessage"`
}

// eventOutcome is the calendar step's own result. It is logged on failure
// and never joined into the booking error path.
type eventOutcome struct {
	event *Event
	err   error
}

// Book runs the booking transaction. asAdmin skips the block checks and the
// horizon check, never the atomic create.
func (s *Service) Book(ctx context.Context, req BookRequest, asAdmin bool) (*Result, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	cfg, err := s.EffectiveConfig(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkJoiningPreference(cfg, &req); err != nil {
		return nil, err
	}
	if !asAdmin && !s.inHorizon(cfg, req.Date) {
		return nil, apperror.NotFound("slot not found")
	}

	st, err := s.lookupSlot(ctx, cfg, req.Date, req.SlotID)
	if err != nil {
		return nil, err
	}
	if st.past {
		return nil, apperror.Unavailable("slot is in the past")
	}
	if st.booked {
		return nil, apperror.Conflict("slot already booked")
	}
	if !asAdmin && (st.blocked || st.dayBlocked) {
		return nil, apperror.Unavailable("slot is not available")
	}
	if req.FinalRound != st.finalRound {
		if st.finalRound {
			return nil, apperror.Unavailable("slot is reserved for final round interviews")
		}
		return nil, apperror.Unavailable("no final round interviews on this date")
	}
	if req.FinalRound && !asAdmin {
		if err := s.checkFinalRoundEligible(ctx, req); err != nil {
			return nil, err
		}
	}

	b := model.Booking{
		ID:                uuid.NewString(),
		Name:              req.Name,
		Email:             req.Email,
		Whatsapp:          req.Whatsapp,
		JoiningPreference: req.JoiningPreference,
		Date:              req.Date,
		SlotID:            req.SlotID,
		StartTime:         st.slot.StartTime,
		EndTime:           st.slot.EndTime,
		BookedAt:          s.clock.Now().UTC(),
		FinalRound:        req.FinalRound,
		CurrentCTC:        req.CurrentCTC,
		ExpectedCTC:       req.ExpectedCTC,
	}

	outcome := <-s.createEvent(ctx, &b, st.slot)
	if outcome.err != nil {
		s.log.Warn("calendar event not created", "slot", b.SlotID, "err", outcome.err)
	} else if outcome.event != nil {
		b.MeetLink = outcome.event.MeetLink
		b.ExternalEventID = outcome.event.ID
	}

	ok, err := s.store.CreateBooking(ctx, &b)
	if err != nil {
		return nil, apperror.Transient(err)
	}
	if !ok {
		if b.ExternalEventID != "" {
			s.log.Info("calendar event left without booking", "event_id", b.ExternalEventID, "slot", b.SlotID)
		}
		return nil, apperror.Conflict("slot already booked")
	}

	s.log.Info("booking created", "id", b.ID, "slot", b.SlotID, "final_round", b.FinalRound, "admin", asAdmin)
	return &Result{Booking: b, WhatsappMessage: RenderMessage(cfg.WhatsappTemplate, b)}, nil
}

// checkFinalRoundEligible requires an earlier booking, matched by email or
// WhatsApp number, that the admin has marked eligible.
func (s *Service) checkFinalRoundEligible(ctx context.Context, req BookRequest) error {
	prior, err := s.findByContact(ctx, req.Email, req.Whatsapp)
	if err != nil {
		return err
	}
	if prior == nil || !prior.FinalRoundEligible || prior.FinalRound {
		return apperror.Unavailable("not eligible for the final round")
	}
	return nil
}

// findByContact tries each identifier in order and returns nil if none match.
func (s *Service) findByContact(ctx context.Context, identifiers ...string) (*model.Booking, error) {
	for _, id := range identifiers {
		if id == "" {
			continue
		}
		b, err := s.store.FindBookingByContact(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, apperror.Transient(err)
		}
		return b, nil
	}
	return nil, nil
}

// createEvent starts the calendar call on its own goroutine with its own
// deadline. The channel always receives exactly one outcome.
func (s *Service) createEvent(ctx context.Context, b *model.Booking, slot slots.Slot) <-chan eventOutcome {
	ch := make(chan eventOutcome, 1)
	if s.calendar == nil {
		ch <- eventOutcome{}
		return ch
	}
	req := EventRequest{
		Summary:     fmt.Sprintf("%s: %s", s.title, b.Name),
		Description: eventDescription(b),
		Name:        b.Name,
		Email:       b.Email,
		Start:       slot.StartAt,
		End:         slot.EndAt,
	}
	evCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.calendarTimeout)
	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				ch <- eventOutcome{err: fmt.Errorf("calendar panic: %v", r)}
			}
		}()
		ev, err := s.calendar.CreateEvent(evCtx, req)
		ch <- eventOutcome{event: ev, err: err}
	}()
	return ch
}

// deleteEvent is best effort.
func (s *Service) deleteEvent(ctx context.Context, eventID string) {
	if s.calendar == nil || eventID == "" {
		return
	}
	evCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.calendarTimeout)
	defer cancel()
	if err := s.calendar.DeleteEvent(evCtx, eventID); err != nil {
		s.log.Warn("calendar event not deleted", "event_id", eventID, "err", err)
	}
}

func eventDescription(b *model.Booking) string {
	desc := fmt.Sprintf("Candidate: %s\nEmail: %s\nWhatsApp: %s\nJoining: %s",
		b.Name, b.Email, b.Whatsapp, b.JoiningPreference)
	if b.FinalRound {
		desc += fmt.Sprintf("\nFinal round\nCurrent CTC: %s\nExpected CTC: %s", b.CurrentCTC, b.ExpectedCTC)
	}
	return desc
}
