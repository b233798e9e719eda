package booking_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"interview-scheduler/internal/apperror"
	"interview-scheduler/internal/booking"
	"interview-scheduler/internal/model"
	"interview-scheduler/internal/store"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeCalendar struct {
	mu       sync.Mutex
	fail     error
	created  []booking.EventRequest
	deleted  []string
	sequence int
	// onCreate runs once, before the next event is created.
	onCreate func()
}

func (f *fakeCalendar) CreateEvent(_ context.Context, req booking.EventRequest) (*booking.Event, error) {
	f.mu.Lock()
	hook := f.onCreate
	f.onCreate = nil
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	f.sequence++
	f.created = append(f.created, req)
	id := fmt.Sprintf("evt-%d", f.sequence)
	return &booking.Event{ID: id, MeetLink: "https://meet.google.com/" + id}, nil
}

func (f *fakeCalendar) DeleteEvent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

// failingKV fails every call, standing in for an unreachable backend.
type failingKV struct{}

var errBackendDown = errors.New("connection refused")

func (failingKV) SetNX(context.Context, string, []byte) (bool, error)   { return false, errBackendDown }
func (failingKV) Set(context.Context, string, []byte) error             { return errBackendDown }
func (failingKV) Replace(context.Context, string, []byte) (bool, error) { return false, errBackendDown }
func (failingKV) ReplaceIf(context.Context, string, []byte, []byte) (bool, error) {
	return false, errBackendDown
}
func (failingKV) DeleteIf(context.Context, string, []byte) (bool, error) {
	return false, errBackendDown
}
func (failingKV) Get(context.Context, string) ([]byte, error)           { return nil, errBackendDown }
func (failingKV) Delete(context.Context, string) (bool, error)          { return false, errBackendDown }
func (failingKV) Scan(context.Context, string) (map[string][]byte, error) {
	return nil, errBackendDown
}

// nilStore panics on any call; used to prove a code path never reaches storage.
type nilStore struct{ booking.Store }

func dhaka(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Dhaka")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func baseConfig() model.SlotConfig {
	return model.SlotConfig{
		StartHour:            9,
		EndHour:              12,
		SlotDurationMinutes:  60,
		BreakDurationMinutes: 0,
		NumberOfDays:         1,
	}
}

type fixture struct {
	svc   *booking.Service
	store *store.Store
	kv    *store.MemoryKV
	cal   *fakeCalendar
	loc   *time.Location
}

func newFixture(t *testing.T, cfg model.SlotConfig, now time.Time) *fixture {
	t.Helper()
	loc := dhaka(t)
	kv := store.NewMemoryKV()
	st := store.New(kv)
	cal := &fakeCalendar{}
	svc := booking.NewService(st, booking.Options{
		Location:        loc,
		Defaults:        cfg,
		Calendar:        cal,
		CalendarTimeout: time.Second,
		Clock:           fixedClock{now},
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return &fixture{svc: svc, store: st, kv: kv, cal: cal, loc: loc}
}

func validRequest(date, slotID string) booking.BookRequest {
	return booking.BookRequest{
		Name:              "Rahim Uddin",
		Email:             "rahim@example.com",
		Whatsapp:          "+8801712345678",
		JoiningPreference: "Immediately",
		Date:              date,
		SlotID:            slotID,
	}
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if got := apperror.CodeOf(err); got != code {
		t.Fatalf("expected %s error, got %s (%v)", code, got, err)
	}
}
