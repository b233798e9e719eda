package booking_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"interview-scheduler/internal/apperror"
	"interview-scheduler/internal/booking"
	"interview-scheduler/internal/store"
)

func TestBook_EndToEnd(t *testing.T) {
	loc := dhaka(t)
	f := newFixture(t, baseConfig(), time.Date(2024, 5, 1, 12, 0, 0, 0, loc))
	ctx := context.Background()

	av, err := f.svc.Availability(ctx, booking.Query{View: booking.ViewPublic})
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	var got []string
	for _, s := range av.Slots {
		got = append(got, s.Date+" "+s.StartTime+"-"+s.EndTime)
	}
	want := []string{"2024-05-02 09:00-10:00", "2024-05-02 10:00-11:00", "2024-05-02 11:00-12:00"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}

	res, err := f.svc.Book(ctx, validRequest("2024-05-02", "2024-05-02:10-00"), false)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if res.Booking.ID == "" || res.Booking.StartTime != "10:00" || res.Booking.EndTime != "11:00" {
		t.Fatalf("unexpected booking %+v", res.Booking)
	}

	av, _ = f.svc.Availability(ctx, booking.Query{View: booking.ViewPublic})
	for _, s := range av.Slots {
		if s.IsBooked != (s.ID == "2024-05-02:10-00") {
			t.Fatalf("slot %s isBooked=%v", s.ID, s.IsBooked)
		}
	}

	second := validRequest("2024-05-02", "2024-05-02:10-00")
	second.Email = "karim@example.com"
	_, err = f.svc.Book(ctx, second, false)
	wantCode(t, err, apperror.CodeConflict)

	if err := f.svc.BlockSlot(ctx, "2024-05-02", "2024-05-02:09-00"); err != nil {
		t.Fatalf("block slot: %v", err)
	}
	av, _ = f.svc.Availability(ctx, booking.Query{View: booking.ViewPublic})
	for _, s := range av.Slots {
		if s.IsBlocked != (s.ID == "2024-05-02:09-00") {
			t.Fatalf("slot %s isBlocked=%v", s.ID, s.IsBlocked)
		}
	}

	if err := f.svc.BlockDay(ctx, "2024-05-02"); err != nil {
		t.Fatalf("block day: %v", err)
	}
	av, _ = f.svc.Availability(ctx, booking.Query{View: booking.ViewPublic})
	if len(av.Slots) != 0 {
		t.Fatalf("public view should hide a blocked day, got %d slots", len(av.Slots))
	}
	if !av.DayBlocks["2024-05-02"] {
		t.Fatalf("day block flag missing from public view")
	}
	av, _ = f.svc.Availability(ctx, booking.Query{View: booking.ViewAdmin})
	if len(av.Slots) != 3 {
		t.Fatalf("admin view should keep all slots, got %d", len(av.Slots))
	}
}

func TestBook_ConcurrentAttemptsOneWinner(t *testing.T) {
	loc := dhaka(t)
	f := newFixture(t, baseConfig(), time.Date(2024, 5, 1, 12, 0, 0, 0, loc))
	ctx := context.Background()

	const n = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := validRequest("2024-05-02", "2024-05-02:11-00")
			req.Email = fmt.Sprintf("applicant%d@example.com", i)
			_, err := f.svc.Book(ctx, req, false)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case apperror.CodeOf(err) == apperror.CodeConflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 || conflicts != n-1 {
		t.Fatalf("expected 1 win and %d conflicts, got %d and %d", n-1, wins, conflicts)
	}
	day, err := f.store.ListBookingsByDate(ctx, "2024-05-02")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(day) != 1 {
		t.Fatalf("expected exactly one booking, got %d", len(day))
	}
}

func TestBook_ValidationFailsBeforeStore(t *testing.T) {
	loc := dhaka(t)
	svc := booking.NewService(nilStore{}, booking.Options{
		Location: loc,
		Defaults: baseConfig(),
		Clock:    fixedClock{time.Date(2024, 5, 1, 12, 0, 0, 0, loc)},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	cases := map[string]func(r *booking.BookRequest){
		"missing name":      func(r *booking.BookRequest) { r.Name = "  " },
		"short name":        func(r *booking.BookRequest) { r.Name = "A" },
		"long name":         func(r *booking.BookRequest) { r.Name = strings.Repeat("a", 101) },
		"bad email":         func(r *booking.BookRequest) { r.Email = "not-an-email" },
		"double dot domain": func(r *booking.BookRequest) { r.Email = "a@b..c" },
		"leading dot host":  func(r *booking.BookRequest) { r.Email = "a@.b.c" },
		"comma in local":    func(r *booking.BookRequest) { r.Email = "a,b@c.d" },
		"long email":        func(r *booking.BookRequest) { r.Email = strings.Repeat("a", 190) + "@example.com" },
		"bad phone":         func(r *booking.BookRequest) { r.Whatsapp = "01712345678" },
		"foreign phone":     func(r *booking.BookRequest) { r.Whatsapp = "+14155550100" },
		"missing joining":   func(r *booking.BookRequest) { r.JoiningPreference = "" },
		"bad slot id":       func(r *booking.BookRequest) { r.SlotID = "tomorrow" },
		"mismatched date":   func(r *booking.BookRequest) { r.Date = "2024-05-03" },
		"final without ctc": func(r *booking.BookRequest) { r.FinalRound = true },
		"long ctc": func(r *booking.BookRequest) {
			r.FinalRound = true
			r.CurrentCTC = strings.Repeat("9", 201)
			r.ExpectedCTC = "1"
		},
	}
	for name, mutate := range cases {
		req := validRequest("2024-05-02", "2024-05-02:10-00")
		mutate(&req)
		_, err := svc.Book(context.Background(), req, false)
		if apperror.CodeOf(err) != apperror.CodeValidation {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestBook_JoiningPreference(t *testing.T) {
	loc := dhaka(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, loc)
	ctx := context.Background()

	f := newFixture(t, baseConfig(), now)
	req := validRequest("2024-05-02", "2024-05-02:09-00")
	req.JoiningPreference = "within 1 MONTH"
	res, err := f.svc.Book(ctx, req, false)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if res.Booking.JoiningPreference != "Within 1 month" {
		t.Fatalf("preference not canonicalised: %q", res.Booking.JoiningPreference)
	}

	req = validRequest("2024-05-02", "2024-05-02:10-00")
	req.JoiningPreference = "Next year"
	_, err = f.svc.Book(ctx, req, false)
	wantCode(t, err, apperror.CodeValidation)

	cfg := baseConfig()
	cfg.JoiningOptions = []string{"Negotiable"}
	custom := newFixture(t, cfg, now)
	_, err = custom.svc.Book(ctx, validRequest("2024-05-02", "2024-05-02:09-00"), false)
	wantCode(t, err, apperror.CodeValidation)
	req = validRequest("2024-05-02", "2024-05-02:09-00")
	req.JoiningPreference = "Negotiable"
	if _, err := custom.svc.Book(ctx, req, true); err != nil {
		t.Fatalf("configured option rejected: %v", err)
	}
}

func TestBook_NormalizesWhatsapp(t *testing.T) {
	loc := dhaka(t)
	f := newFixture(t, baseConfig(), time.Date(2024, 5, 1, 12, 0, 0, 0, loc))

	req := validRequest("2024-05-02", "2024-05-02:09-00")
	req.Whatsapp = "880 1712-345678"
	req.Email = "  Rahim@Example.COM "
	res, err := f.svc.Book(context.Background(), req, false)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if res.Booking.Whatsapp != "+8801712345678" {
		t.Fatalf("whatsapp not normalized: %q", res.Booking.Whatsapp)
	}
	if res.Booking.Email != "rahim@example.com" {
		t.Fatalf("email not normalized: %q", res.Booking.Email)
	}
}

func TestBook_SlotChecks(t *testing.T) {
	loc := dhaka(t)
	cfg := baseConfig()
	cfg.NumberOfDays = 2
	f := newFixture(t, cfg, time.Date(2024, 5, 1, 12, 0, 0, 0, loc))
	ctx := context.Background()

	_, err := f.svc.Book(ctx, validRequest("2024-05-02", "2024-05-02:09-30"), false)
	wantCode(t, err, apperror.CodeNotFound)

	_, err = f.svc.Book(ctx, validRequest("2024-05-01", "2024-05-01:09-00"), false)
	wantCode(t, err, apperror.CodeNotFound)

	_, err = f.svc.Book(ctx, validRequest("2024-05-04", "2024-05-04:09-00"), false)
	wantCode(t, err, apperror.CodeNotFound)

	if err := f.svc.BlockSlot(ctx, "2024-05-02", "2024-05-02:09-00"); err != nil {
		t.Fatalf("block: %v", err)
	}
	_, err = f.svc.Book(ctx, validRequest("2024-05-02", "2024-05-02:09-00"), false)
	wantCode(t, err, apperror.CodeUnavailable)

	if err := f.svc.BlockDay(ctx, "2024-05-03"); err != nil {
		t.Fatalf("block day: %v", err)
	}
	_, err = f.svc.Book(ctx, validRequest("2024-05-03", "2024-05-03:10-00"), false)
	wantCode(t, err, apperror.CodeUnavailable)
}

func TestBook_AdminBypassesBlocksNotUniqueness(t *testing.T) {
	loc := dhaka(t)
	f := newFixture(t, baseConfig(), time.Date(2024, 5, 1, 12, 0, 0, 0, loc))
	ctx := context.Background()

	if err := f.svc.BlockDay(ctx, "2024-05-02"); err != nil {
		t.Fatalf("block day: %v", err)
	}
	if _, err := f.svc.Book(ctx, validRequest("2024-05-02", "2024-05-02:09-00"), true); err != nil {
		t.Fatalf("admin booking on blocked day: %v", err)
	}
	_, err := f.svc.Book(ctx, validRequest("2024-05-02", "2024-05-02:09-00"), true)
	wantCode(t, err, apperror.CodeConflict)
}

func TestBook_AdminCannotBookPast(t *testing.T) {
	loc := dhaka(t)
	f := newFixture(t, baseConfig(), time.Date(2024, 5, 2, 10, 30, 0, 0, loc))

	_, err := f.svc.Book(context.Background(), validRequest("2024-05-02", "2024-05-02:09-00"), true)
	wantCode(t, err, apperror.CodeUnavailable)
}

func TestBook_CalendarFailureDoesNotAbort(t *testing.T) {
	loc := dhaka(t)
	f := newFixture(t, baseConfig(), time.Date(2024, 5, 1, 12, 0, 0, 0, loc))
	f.cal.fail = errors.New("calendar quota exceeded")

	res, err := f.svc.Book(context.Background(), validRequest("2024-05-02", "2024-05-02:09-00"), false)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if res.Booking.MeetLink != "" || res.Booking.ExternalEventID != "" {
		t.Fatalf("expected no meeting link, got %+v", res.Booking)
	}
	if !strings.Contains(res.WhatsappMessage, "will be shared soon") {
		t.Fatalf("unexpected message %q", res.WhatsappMessage)
	}
}

func TestBook_CalendarEventAttached(t *testing.T) {
	loc := dhaka(t)
	f := newFixture(t, baseConfig(), time.Date(2024, 5, 1, 12, 0, 0, 0, loc))
	ctx := context.Background()

	res, err := f.svc.Book(ctx, validRequest("2024-05-02", "2024-05-02:09-00"), false)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if res.Booking.ExternalEventID == "" || res.Booking.MeetLink == "" {
		t.Fatalf("expected event details, got %+v", res.Booking)
	}
	stored, err := f.store.GetBooking(ctx, "2024-05-02", "2024-05-02:09-00")
	if err != nil || stored.MeetLink != res.Booking.MeetLink {
		t.Fatalf("stored booking = %+v, %v", stored, err)
	}
	ev := f.cal.created[0]
	if !ev.Start.Equal(time.Date(2024, 5, 2, 9, 0, 0, 0, loc)) || ev.End.Sub(ev.Start) != time.Hour {
		t.Fatalf("unexpected event window %v - %v", ev.Start, ev.End)
	}
	if !strings.Contains(res.WhatsappMessage, res.Booking.MeetLink) {
		t.Fatalf("message missing meet link: %q", res.WhatsappMessage)
	}
}

func TestBook_TransientStoreError(t *testing.T) {
	loc := dhaka(t)
	svc := booking.NewService(store.New(failingKV{}), booking.Options{
		Location: loc,
		Defaults: baseConfig(),
		Clock:    fixedClock{time.Date(2024, 5, 1, 12, 0, 0, 0, loc)},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	_, err := svc.Book(context.Background(), validRequest("2024-05-02", "2024-05-02:09-00"), false)
	wantCode(t, err, apperror.CodeInternal)
	if !errors.Is(err, errBackendDown) {
		t.Fatalf("cause not preserved: %v", err)
	}
}

func TestBook_FinalRound(t *testing.T) {
	loc := dhaka(t)
	cfg := baseConfig()
	cfg.NumberOfDays = 2
	cfg.FinalRoundDates = []string{"2024-05-03"}
	f := newFixture(t, cfg, time.Date(2024, 5, 1, 12, 0, 0, 0, loc))
	ctx := context.Background()

	first, err := f.svc.Book(ctx, validRequest("2024-05-02", "2024-05-02:09-00"), false)
	if err != nil {
		t.Fatalf("first round: %v", err)
	}

	_, err = f.svc.Book(ctx, validRequest("2024-05-03", "2024-05-03:09-00"), false)
	wantCode(t, err, apperror.CodeUnavailable)

	final := validRequest("2024-05-03", "2024-05-03:09-00")
	final.FinalRound = true
	final.CurrentCTC = "50000"
	final.ExpectedCTC = "70000"
	_, err = f.svc.Book(ctx, final, false)
	wantCode(t, err, apperror.CodeUnavailable)

	if _, err := f.svc.SetFinalRoundEligible(ctx, first.Booking.Date, first.Booking.SlotID, true); err != nil {
		t.Fatalf("mark eligible: %v", err)
	}
	res, err := f.svc.Book(ctx, final, false)
	if err != nil {
		t.Fatalf("final round booking: %v", err)
	}
	if !res.Booking.FinalRound || res.Booking.ExpectedCTC != "70000" {
		t.Fatalf("unexpected final booking %+v", res.Booking)
	}

	wrongRound := final
	wrongRound.Date = "2024-05-02"
	wrongRound.SlotID = "2024-05-02:10-00"
	_, err = f.svc.Book(ctx, wrongRound, false)
	wantCode(t, err, apperror.CodeUnavailable)
}
