package booking

import (
	"context"
	"errors"
	"time"

	"interview-scheduler/internal/apperror"
	"interview-scheduler/internal/model"
	"interview-scheduler/internal/slots"
	"interview-scheduler/internal/store"
)

// View selects which caller the availability is computed for.
type View int

const (
	// ViewPublic hides day-blocked dates and filters by round.
	ViewPublic View = iota
	// ViewAdmin returns every generated slot so blocks can be lifted.
	ViewAdmin
)

const (
	RoundFirst = "first"
	RoundFinal = "final"
)

// Query selects the slots to resolve. From/Days are honoured by ViewAdmin
// only; the public view is always the booking horizon.
type Query struct {
	View  View
	Round string
	From  string
	Days  int
}

// AvailableSlot is a generated slot annotated with store state.
type AvailableSlot struct {
	slots.Slot
	IsBooked     bool `json:"isBooked"`
	IsBlocked    bool `json:"isBlocked"`
	IsDayBlocked bool `json:"isDayBlocked"`
	IsPast       bool `json:"isPast"`
	IsFinalRound bool `json:"isFinalRound"`
}

// Availability is the resolver output.
type Availability struct {
	Config    model.SlotConfig `json:"config"`
	Timezone  string           `json:"timezone"`
	Slots     []AvailableSlot  `json:"slots"`
	DayBlocks map[string]bool  `json:"dayBlocks"`
}

// IsPast reports whether slot has already started at now.
func IsPast(slot slots.Slot, now time.Time) bool {
	return !slot.StartAt.After(now)
}

// Availability resolves slots against bookings and blocks. Listing reads are
// not atomic with concurrent writes; the booking transaction re-checks.
func (s *Service) Availability(ctx context.Context, q Query) (*Availability, error) {
	cfg, err := s.EffectiveConfig(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()

	var candidates []slots.Slot
	if q.View == ViewAdmin && q.From != "" {
		first, err := time.ParseInLocation(model.DateLayout, q.From, s.loc)
		if err != nil {
			return nil, apperror.Validation("invalid from date")
		}
		days := q.Days
		if days <= 0 {
			days = cfg.NumberOfDays
		}
		if days > model.MaxNumberOfDays {
			return nil, apperror.Validation("days is too large")
		}
		candidates = slots.GenerateRange(cfg, first, days, s.loc)
	} else {
		candidates = slots.Generate(cfg, now, s.loc)
	}

	round := q.Round
	if round == "" && q.View == ViewPublic {
		round = RoundFirst
	}
	if round != "" && round != RoundFirst && round != RoundFinal {
		return nil, apperror.Validation("round must be first or final")
	}

	dayList, err := s.store.ListDayBlocks(ctx)
	if err != nil {
		return nil, apperror.Transient(err)
	}
	dayBlocked := make(map[string]bool, len(dayList))
	for _, d := range dayList {
		dayBlocked[d] = true
	}

	type dateState struct {
		booked  map[string]bool
		blocked map[string]bool
	}
	states := make(map[string]*dateState)

	out := &Availability{
		Config:    cfg,
		Timezone:  s.loc.String(),
		Slots:     make([]AvailableSlot, 0, len(candidates)),
		DayBlocks: make(map[string]bool),
	}
	for _, slot := range candidates {
		if dayBlocked[slot.Date] {
			out.DayBlocks[slot.Date] = true
			if q.View == ViewPublic {
				continue
			}
		}
		final := cfg.IsFinalRoundDate(slot.Date)
		if (round == RoundFirst && final) || (round == RoundFinal && !final) {
			continue
		}

		st, ok := states[slot.Date]
		if !ok {
			booked, err := s.store.ListBookedSlots(ctx, slot.Date)
			if err != nil {
				return nil, apperror.Transient(err)
			}
			blocked, err := s.store.ListSlotBlocks(ctx, slot.Date)
			if err != nil {
				return nil, apperror.Transient(err)
			}
			st = &dateState{booked: booked, blocked: blocked}
			states[slot.Date] = st
		}

		out.Slots = append(out.Slots, AvailableSlot{
			Slot:         slot,
			IsBooked:     st.booked[slot.ID],
			IsBlocked:    st.blocked[slot.ID] || dayBlocked[slot.Date],
			IsDayBlocked: dayBlocked[slot.Date],
			IsPast:       IsPast(slot, now),
			IsFinalRound: final,
		})
	}
	return out, nil
}

// slotStatus is the live state of one slot, read at call time.
type slotStatus struct {
	slot       slots.Slot
	booked     bool
	blocked    bool
	dayBlocked bool
	past       bool
	finalRound bool
}

// lookupSlot finds slotID on date and reads its current status from the
// store. It returns NotFound if the configuration does not generate it.
func (s *Service) lookupSlot(ctx context.Context, cfg model.SlotConfig, date, slotID string) (*slotStatus, error) {
	daySlots, err := slots.ForDate(cfg, date, s.loc)
	if err != nil {
		return nil, apperror.Validation("invalid date")
	}
	var found *slots.Slot
	for i := range daySlots {
		if daySlots[i].ID == slotID {
			found = &daySlots[i]
			break
		}
	}
	if found == nil {
		return nil, apperror.NotFound("slot not found")
	}

	st := &slotStatus{
		slot:       *found,
		past:       IsPast(*found, s.now()),
		finalRound: cfg.IsFinalRoundDate(date),
	}
	_, err = s.store.GetBooking(ctx, date, slotID)
	switch {
	case err == nil:
		st.booked = true
	case errors.Is(err, store.ErrCorruptRecord):
		// The key is occupied even if unreadable; CreateBooking would fail too.
		s.log.Warn("unreadable booking record", "date", date, "slot", slotID, "err", err)
		st.booked = true
	case !isNotFound(err):
		return nil, apperror.Transient(err)
	}
	if st.blocked, err = s.store.IsSlotBlocked(ctx, date, slotID); err != nil {
		return nil, apperror.Transient(err)
	}
	if st.dayBlocked, err = s.store.IsDayBlocked(ctx, date); err != nil {
		return nil, apperror.Transient(err)
	}
	return st, nil
}

// inHorizon reports whether date is offered to the public at now.
func (s *Service) inHorizon(cfg model.SlotConfig, date string) bool {
	day, err := time.ParseInLocation(model.DateLayout, date, s.loc)
	if err != nil {
		return false
	}
	y, m, d := s.now().Date()
	first := time.Date(y, m, d+1, 0, 0, 0, 0, s.loc)
	last := time.Date(y, m, d+cfg.NumberOfDays, 0, 0, 0, 0, s.loc)
	return !day.Before(first) && !day.After(last)
}
