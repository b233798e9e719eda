package booking

import (
	"context"
	"sort"
	"strings"

	"interview-scheduler/internal/apperror"
	"interview-scheduler/internal/model"
)

// BookingView is a booking as listed to the admin.
type BookingView struct {
	model.Booking
	WhatsappLink string `json:"whatsappLink"`
}

// ListBookings returns bookings ordered by date and start time. An empty
// date lists everything (a full scan).
func (s *Service) ListBookings(ctx context.Context, date string) ([]BookingView, error) {
	var all []model.Booking
	if date != "" {
		if err := validateDate(date); err != nil {
			return nil, err
		}
		day, err := s.store.ListBookingsByDate(ctx, date)
		if err != nil {
			return nil, apperror.Transient(err)
		}
		for _, b := range day {
			all = append(all, b)
		}
	} else {
		byDate, err := s.store.ListAllBookings(ctx)
		if err != nil {
			return nil, apperror.Transient(err)
		}
		for _, day := range byDate {
			for _, b := range day {
				all = append(all, b)
			}
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Date != all[j].Date {
			return all[i].Date < all[j].Date
		}
		return all[i].StartTime < all[j].StartTime
	})

	cfg, err := s.EffectiveConfig(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]BookingView, 0, len(all))
	for _, b := range all {
		out = append(out, BookingView{
			Booking:      b,
			WhatsappLink: WhatsappLink(b.Whatsapp, RenderMessage(cfg.WhatsappTemplate, b)),
		})
	}
	return out, nil
}

// Cancel deletes the booking and then, best effort, its calendar event.
func (s *Service) Cancel(ctx context.Context, date, slotID string) (*model.Booking, error) {
	if err := validateSlotRef(date, slotID); err != nil {
		return nil, err
	}
	b, err := s.store.GetBooking(ctx, date, slotID)
	if isNotFound(err) {
		return nil, apperror.NotFound("booking not found")
	}
	if err != nil {
		return nil, apperror.Transient(err)
	}
	// Conditional on the id read above: a booking made in between survives.
	ok, err := s.store.DeleteBooking(ctx, date, slotID, b.ID)
	if err != nil {
		return nil, apperror.Transient(err)
	}
	if !ok {
		return nil, apperror.NotFound("booking not found")
	}
	s.deleteEvent(ctx, b.ExternalEventID)
	s.log.Info("booking cancelled", "id", b.ID, "slot", slotID)
	return b, nil
}

// Reschedule moves a booking to another slot. The new key is created before
// the old one is deleted, so a failure in between leaves a duplicate rather
// than a lost booking. Blocks do not apply; past slots, taken slots and the
// round of the target date do. If the old key stops holding this booking
// before it is removed, the copy is rolled back and Conflict returned.
func (s *Service) Reschedule(ctx context.Context, date, slotID, newDate, newSlotID string) (*model.Booking, error) {
	if err := validateSlotRef(date, slotID); err != nil {
		return nil, err
	}
	if err := validateSlotRef(newDate, newSlotID); err != nil {
		return nil, err
	}
	if date == newDate && slotID == newSlotID {
		return nil, apperror.Validation("new slot is the current slot")
	}

	old, err := s.store.GetBooking(ctx, date, slotID)
	if isNotFound(err) {
		return nil, apperror.NotFound("booking not found")
	}
	if err != nil {
		return nil, apperror.Transient(err)
	}

	cfg, err := s.EffectiveConfig(ctx)
	if err != nil {
		return nil, err
	}
	st, err := s.lookupSlot(ctx, cfg, newDate, newSlotID)
	if err != nil {
		return nil, err
	}
	if st.past {
		return nil, apperror.Unavailable("slot is in the past")
	}
	if st.booked {
		return nil, apperror.Conflict("slot already booked")
	}
	if old.FinalRound != st.finalRound {
		if st.finalRound {
			return nil, apperror.Unavailable("slot is reserved for final round interviews")
		}
		return nil, apperror.Unavailable("no final round interviews on this date")
	}

	moved := *old
	moved.Date = newDate
	moved.SlotID = newSlotID
	moved.StartTime = st.slot.StartTime
	moved.EndTime = st.slot.EndTime
	moved.MeetLink = ""
	moved.ExternalEventID = ""

	outcome := <-s.createEvent(ctx, &moved, st.slot)
	if outcome.err != nil {
		s.log.Warn("calendar event not created", "slot", newSlotID, "err", outcome.err)
	} else if outcome.event != nil {
		moved.MeetLink = outcome.event.MeetLink
		moved.ExternalEventID = outcome.event.ID
	}

	ok, err := s.store.CreateBooking(ctx, &moved)
	if err != nil {
		return nil, apperror.Transient(err)
	}
	if !ok {
		return nil, apperror.Conflict("slot already booked")
	}

	removed, err := s.store.DeleteBooking(ctx, date, slotID, old.ID)
	if err != nil {
		s.log.Error("rescheduled booking left at old slot", "id", old.ID, "slot", slotID, "err", err)
		return nil, apperror.Transient(err)
	}
	if !removed {
		// The old booking was cancelled meanwhile; whatever holds its slot now
		// belongs to someone else. Undo the copy instead of resurrecting it.
		if _, err := s.store.DeleteBooking(ctx, newDate, newSlotID, moved.ID); err != nil {
			s.log.Error("rescheduled copy not removed", "id", moved.ID, "slot", newSlotID, "err", err)
		}
		s.deleteEvent(ctx, moved.ExternalEventID)
		s.log.Warn("reschedule abandoned, booking changed", "id", old.ID, "slot", slotID)
		return nil, apperror.Conflict("booking changed during reschedule")
	}
	s.deleteEvent(ctx, old.ExternalEventID)

	s.log.Info("booking rescheduled", "id", old.ID, "from", slotID, "to", newSlotID)
	return &moved, nil
}

// SetFinalRoundEligible flips the bookkeeping flag used by final round
// verification.
func (s *Service) SetFinalRoundEligible(ctx context.Context, date, slotID string, eligible bool) (*model.Booking, error) {
	if err := validateSlotRef(date, slotID); err != nil {
		return nil, err
	}
	b, err := s.store.GetBooking(ctx, date, slotID)
	if isNotFound(err) {
		return nil, apperror.NotFound("booking not found")
	}
	if err != nil {
		return nil, apperror.Transient(err)
	}
	b.FinalRoundEligible = eligible
	ok, err := s.store.UpdateBooking(ctx, b)
	if err != nil {
		return nil, apperror.Transient(err)
	}
	if !ok {
		return nil, apperror.NotFound("booking not found")
	}
	return b, nil
}

// VerifyFinalRound returns the applicant's earlier booking when it is
// eligible for the final round.
func (s *Service) VerifyFinalRound(ctx context.Context, contact string) (*model.Booking, error) {
	contact = strings.TrimSpace(contact)
	if contact == "" {
		return nil, apperror.Validation("contact is required")
	}
	ids := []string{contact}
	if phone, ok := s.normalizeWhatsapp(contact); ok {
		ids = append(ids, phone)
	}
	prior, err := s.findByContact(ctx, ids...)
	if err != nil {
		return nil, err
	}
	if prior == nil {
		return nil, apperror.NotFound("no booking found for this contact")
	}
	if !prior.FinalRoundEligible || prior.FinalRound {
		return nil, apperror.Unavailable("not eligible for the final round")
	}
	return prior, nil
}

// BlockSlot marks one slot unavailable. It is idempotent.
func (s *Service) BlockSlot(ctx context.Context, date, slotID string) error {
	if err := validateSlotRef(date, slotID); err != nil {
		return err
	}
	if _, err := s.store.BlockSlot(ctx, date, slotID); err != nil {
		return apperror.Transient(err)
	}
	return nil
}

func (s *Service) UnblockSlot(ctx context.Context, date, slotID string) error {
	if err := validateSlotRef(date, slotID); err != nil {
		return err
	}
	if _, err := s.store.UnblockSlot(ctx, date, slotID); err != nil {
		return apperror.Transient(err)
	}
	return nil
}

// BlockDay marks every slot of date unavailable. It is idempotent.
func (s *Service) BlockDay(ctx context.Context, date string) error {
	if err := validateDate(date); err != nil {
		return err
	}
	if _, err := s.store.BlockDay(ctx, date); err != nil {
		return apperror.Transient(err)
	}
	return nil
}

func (s *Service) UnblockDay(ctx context.Context, date string) error {
	if err := validateDate(date); err != nil {
		return err
	}
	if _, err := s.store.UnblockDay(ctx, date); err != nil {
		return apperror.Transient(err)
	}
	return nil
}

// UpdateConfig validates and replaces the stored configuration.
func (s *Service) UpdateConfig(ctx context.Context, cfg model.SlotConfig) (model.SlotConfig, error) {
	if err := cfg.Validate(); err != nil {
		return model.SlotConfig{}, apperror.Validation(err.Error())
	}
	if strings.TrimSpace(cfg.WhatsappTemplate) == "" {
		cfg.WhatsappTemplate = s.defaults.WhatsappTemplate
	}
	if len(cfg.JoiningOptions) == 0 {
		cfg.JoiningOptions = s.defaults.JoiningOptions
	}
	sort.Strings(cfg.FinalRoundDates)
	if err := s.store.PutSlotConfig(ctx, cfg); err != nil {
		return model.SlotConfig{}, apperror.Transient(err)
	}
	s.log.Info("slot config updated",
		"start_hour", cfg.StartHour, "end_hour", cfg.EndHour,
		"duration", cfg.SlotDurationMinutes, "break", cfg.BreakDurationMinutes,
		"days", cfg.NumberOfDays)
	return cfg, nil
}
