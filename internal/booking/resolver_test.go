package booking_test

import (
	"context"
	"testing"
	"time"

	"interview-scheduler/internal/apperror"
	"interview-scheduler/internal/booking"
	"interview-scheduler/internal/slots"
)

func TestIsPast(t *testing.T) {
	loc := dhaka(t)
	now := time.Date(2024, 1, 2, 10, 30, 0, 0, loc)

	earlier := slots.Slot{
		Date:    "2024-01-02",
		StartAt: time.Date(2024, 1, 2, 9, 0, 0, 0, loc),
		EndAt:   time.Date(2024, 1, 2, 10, 0, 0, 0, loc),
	}
	if !booking.IsPast(earlier, now) {
		t.Fatalf("slot ending at 10:00 should be past at 10:30")
	}

	running := slots.Slot{
		StartAt: time.Date(2024, 1, 2, 10, 0, 0, 0, loc),
		EndAt:   time.Date(2024, 1, 2, 11, 0, 0, 0, loc),
	}
	if !booking.IsPast(running, now) {
		t.Fatalf("a slot that already started should be past")
	}

	for _, hour := range []int{0, 9, 23} {
		tomorrow := slots.Slot{
			StartAt: time.Date(2024, 1, 3, hour, 0, 0, 0, loc),
			EndAt:   time.Date(2024, 1, 3, hour, 30, 0, 0, loc),
		}
		if booking.IsPast(tomorrow, now) {
			t.Fatalf("slot on the next day at %02d:00 reported past", hour)
		}
	}
}

func TestAvailability_AdminWindowMarksPast(t *testing.T) {
	loc := dhaka(t)
	f := newFixture(t, baseConfig(), time.Date(2024, 1, 2, 10, 30, 0, 0, loc))

	av, err := f.svc.Availability(context.Background(), booking.Query{View: booking.ViewAdmin, From: "2024-01-02", Days: 2})
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if len(av.Slots) != 6 {
		t.Fatalf("expected 6 slots, got %d", len(av.Slots))
	}
	for _, s := range av.Slots {
		wantPast := s.Date == "2024-01-02" && s.StartTime != "11:00"
		if s.IsPast != wantPast {
			t.Errorf("%s isPast=%v, want %v", s.ID, s.IsPast, wantPast)
		}
	}
}

func TestAvailability_DayBlockPrecedence(t *testing.T) {
	loc := dhaka(t)
	f := newFixture(t, baseConfig(), time.Date(2024, 1, 1, 12, 0, 0, 0, loc))
	ctx := context.Background()

	if err := f.svc.BlockDay(ctx, "2024-01-02"); err != nil {
		t.Fatalf("block day: %v", err)
	}
	if err := f.svc.BlockSlot(ctx, "2024-01-02", "2024-01-02:10-00"); err != nil {
		t.Fatalf("block slot: %v", err)
	}
	if err := f.svc.UnblockSlot(ctx, "2024-01-02", "2024-01-02:10-00"); err != nil {
		t.Fatalf("unblock slot: %v", err)
	}

	av, err := f.svc.Availability(ctx, booking.Query{View: booking.ViewAdmin})
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	for _, s := range av.Slots {
		if !s.IsBlocked || !s.IsDayBlocked {
			t.Errorf("%s should be blocked by the day block", s.ID)
		}
	}

	if err := f.svc.UnblockDay(ctx, "2024-01-02"); err != nil {
		t.Fatalf("unblock day: %v", err)
	}
	av, _ = f.svc.Availability(ctx, booking.Query{View: booking.ViewPublic})
	if len(av.Slots) != 3 {
		t.Fatalf("expected the day back in the public view, got %d slots", len(av.Slots))
	}
	for _, s := range av.Slots {
		if s.IsBlocked {
			t.Errorf("%s still blocked", s.ID)
		}
	}
}

func TestAvailability_RoundFilter(t *testing.T) {
	loc := dhaka(t)
	cfg := baseConfig()
	cfg.NumberOfDays = 3
	cfg.FinalRoundDates = []string{"2024-01-03"}
	f := newFixture(t, cfg, time.Date(2024, 1, 1, 12, 0, 0, 0, loc))
	ctx := context.Background()

	first, err := f.svc.Availability(ctx, booking.Query{View: booking.ViewPublic})
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	for _, s := range first.Slots {
		if s.Date == "2024-01-03" || s.IsFinalRound {
			t.Fatalf("final round slot %s in first round view", s.ID)
		}
	}
	if len(first.Slots) != 6 {
		t.Fatalf("expected 6 first round slots, got %d", len(first.Slots))
	}

	final, _ := f.svc.Availability(ctx, booking.Query{View: booking.ViewPublic, Round: booking.RoundFinal})
	if len(final.Slots) != 3 {
		t.Fatalf("expected 3 final round slots, got %d", len(final.Slots))
	}
	for _, s := range final.Slots {
		if !s.IsFinalRound {
			t.Fatalf("%s not flagged final round", s.ID)
		}
	}

	admin, _ := f.svc.Availability(ctx, booking.Query{View: booking.ViewAdmin})
	if len(admin.Slots) != 9 {
		t.Fatalf("admin view should list every slot, got %d", len(admin.Slots))
	}

	_, err = f.svc.Availability(ctx, booking.Query{View: booking.ViewPublic, Round: "third"})
	wantCode(t, err, apperror.CodeValidation)
}

func TestAvailability_UsesStoredConfig(t *testing.T) {
	loc := dhaka(t)
	f := newFixture(t, baseConfig(), time.Date(2024, 1, 1, 12, 0, 0, 0, loc))
	ctx := context.Background()

	cfg := baseConfig()
	cfg.EndHour = 10
	cfg.SlotDurationMinutes = 30
	if _, err := f.svc.UpdateConfig(ctx, cfg); err != nil {
		t.Fatalf("update config: %v", err)
	}
	av, err := f.svc.Availability(ctx, booking.Query{View: booking.ViewPublic})
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if len(av.Slots) != 2 || av.Slots[1].StartTime != "09:30" {
		t.Fatalf("stored config not applied: %+v", av.Slots)
	}
	if av.Config.WhatsappTemplate != booking.DefaultWhatsappTemplate {
		t.Fatalf("expected default template, got %q", av.Config.WhatsappTemplate)
	}
	if av.Timezone != "Asia/Dhaka" {
		t.Fatalf("unexpected timezone %q", av.Timezone)
	}
}

func TestAvailability_InvalidAdminWindow(t *testing.T) {
	loc := dhaka(t)
	f := newFixture(t, baseConfig(), time.Date(2024, 1, 1, 12, 0, 0, 0, loc))

	_, err := f.svc.Availability(context.Background(), booking.Query{View: booking.ViewAdmin, From: "01/02/2024"})
	wantCode(t, err, apperror.CodeValidation)
	_, err = f.svc.Availability(context.Background(), booking.Query{View: booking.ViewAdmin, From: "2024-01-02", Days: 365})
	wantCode(t, err, apperror.CodeValidation)
}

func TestAvailability_UnreadableBookingStillOccupiesSlot(t *testing.T) {
	loc := dhaka(t)
	f := newFixture(t, baseConfig(), time.Date(2024, 5, 1, 12, 0, 0, 0, loc))
	ctx := context.Background()

	if _, err := f.svc.Book(ctx, validRequest("2024-05-02", "2024-05-02:09-00"), false); err != nil {
		t.Fatalf("book: %v", err)
	}
	if err := f.kv.Set(ctx, "booking:2024-05-02/2024-05-02:10-00", []byte("garbage")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	av, err := f.svc.Availability(ctx, booking.Query{View: booking.ViewPublic})
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	booked := map[string]bool{}
	for _, s := range av.Slots {
		booked[s.ID] = s.IsBooked
	}
	if !booked["2024-05-02:09-00"] || !booked["2024-05-02:10-00"] || booked["2024-05-02:11-00"] {
		t.Fatalf("unexpected booked flags %v", booked)
	}

	views, err := f.svc.ListBookings(ctx, "2024-05-02")
	if err != nil {
		t.Fatalf("list bookings: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected the readable booking only, got %d", len(views))
	}

	req := validRequest("2024-05-02", "2024-05-02:10-00")
	req.Email = "karim@example.com"
	_, err = f.svc.Book(ctx, req, false)
	wantCode(t, err, apperror.CodeConflict)

	// The contact scan still reaches the readable booking.
	_, err = f.svc.VerifyFinalRound(ctx, "rahim@example.com")
	wantCode(t, err, apperror.CodeUnavailable)
}
