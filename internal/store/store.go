package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"interview-scheduler/internal/model"
)

// BookingStore holds at most one Booking per (date, slotID).
type BookingStore interface {
	// CreateBooking is the atomic create-if-absent. It returns false, with no
	// side effect, when the slot already holds a booking.
	CreateBooking(ctx context.Context, b *model.Booking) (bool, error)
	GetBooking(ctx context.Context, date, slotID string) (*model.Booking, error)
	// UpdateBooking overwrites the booking stored at b's key only while that
	// key still holds a booking with b.ID. It returns false otherwise.
	UpdateBooking(ctx context.Context, b *model.Booking) (bool, error)
	// DeleteBooking removes the booking at (date, slotID) only if its id is
	// id. A booking made at the same key after the caller's read survives.
	DeleteBooking(ctx context.Context, date, slotID, id string) (bool, error)
	// ListBookingsByDate and ListAllBookings skip unreadable records.
	ListBookingsByDate(ctx context.Context, date string) (map[string]model.Booking, error)
	ListAllBookings(ctx context.Context) (map[string]map[string]model.Booking, error)
	// ListBookedSlots reports every occupied slot key of date, readable or not.
	ListBookedSlots(ctx context.Context, date string) (map[string]bool, error)
	// FindBookingByContact returns the most recent booking whose email or
	// WhatsApp number matches identifier.
	FindBookingByContact(ctx context.Context, identifier string) (*model.Booking, error)
}

// BlockStore keeps presence-only block markers.
type BlockStore interface {
	BlockSlot(ctx context.Context, date, slotID string) (bool, error)
	UnblockSlot(ctx context.Context, date, slotID string) (bool, error)
	IsSlotBlocked(ctx context.Context, date, slotID string) (bool, error)
	ListSlotBlocks(ctx context.Context, date string) (map[string]bool, error)
	BlockDay(ctx context.Context, date string) (bool, error)
	UnblockDay(ctx context.Context, date string) (bool, error)
	IsDayBlocked(ctx context.Context, date string) (bool, error)
	ListDayBlocks(ctx context.Context) ([]string, error)
}

// SettingsStore keeps the single configuration and integration token records.
type SettingsStore interface {
	GetSlotConfig(ctx context.Context) (*model.SlotConfig, error)
	PutSlotConfig(ctx context.Context, cfg model.SlotConfig) error
	GetIntegrationToken(ctx context.Context) ([]byte, error)
	PutIntegrationToken(ctx context.Context, token []byte) error
	DeleteIntegrationToken(ctx context.Context) (bool, error)
}

// JobStore keeps job board posts.
type JobStore interface {
	CreateJob(ctx context.Context, j *model.JobPost) (bool, error)
	GetJob(ctx context.Context, id string) (*model.JobPost, error)
	UpdateJob(ctx context.Context, j *model.JobPost) (bool, error)
	DeleteJob(ctx context.Context, id string) (bool, error)
	ListJobs(ctx context.Context) ([]model.JobPost, error)
}

// Store implements every contract on top of a KV backend.
type Store struct {
	kv  KV
	log *slog.Logger
}

var (
	_ BookingStore  = (*Store)(nil)
	_ BlockStore    = (*Store)(nil)
	_ SettingsStore = (*Store)(nil)
	_ JobStore      = (*Store)(nil)
)

// New wraps kv. Skipped records are reported through the default slog
// logger.
func New(kv KV) *Store {
	return &Store{kv: kv, log: slog.Default().With("component", "store")}
}

// ── Bookings ────────────────────────────────────────────────────────────────

func (s *Store) CreateBooking(ctx context.Context, b *model.Booking) (bool, error) {
	if err := checkBooking(b); err != nil {
		return false, err
	}
	raw, err := encode(KindBooking, b)
	if err != nil {
		return false, err
	}
	ok, err := s.kv.SetNX(ctx, bookingKey(b.Date, b.SlotID), raw)
	if err != nil {
		return false, fmt.Errorf("create booking %s: %w", b.SlotID, err)
	}
	return ok, nil
}

func (s *Store) GetBooking(ctx context.Context, date, slotID string) (*model.Booking, error) {
	raw, err := s.kv.Get(ctx, bookingKey(date, slotID))
	if err != nil {
		return nil, err
	}
	return decodeBooking(raw)
}

func (s *Store) UpdateBooking(ctx context.Context, b *model.Booking) (bool, error) {
	if err := checkBooking(b); err != nil {
		return false, err
	}
	raw, err := encode(KindBooking, b)
	if err != nil {
		return false, err
	}
	key := bookingKey(b.Date, b.SlotID)
	ok, err := s.compareBooking(ctx, key, b.ID, func(current []byte) (bool, error) {
		return s.kv.ReplaceIf(ctx, key, current, raw)
	})
	if err != nil {
		return false, fmt.Errorf("update booking %s: %w", b.SlotID, err)
	}
	return ok, nil
}

func (s *Store) DeleteBooking(ctx context.Context, date, slotID, id string) (bool, error) {
	key := bookingKey(date, slotID)
	ok, err := s.compareBooking(ctx, key, id, func(current []byte) (bool, error) {
		return s.kv.DeleteIf(ctx, key, current)
	})
	if err != nil {
		return false, fmt.Errorf("delete booking %s: %w", slotID, err)
	}
	return ok, nil
}

// casAttempts bounds the retries when a record with the expected id changes
// between the read and the conditional write.
const casAttempts = 3

// compareBooking reads key and, while it holds a booking with id, runs write
// conditioned on the exact bytes read.
func (s *Store) compareBooking(ctx context.Context, key, id string, write func(current []byte) (bool, error)) (bool, error) {
	if id == "" {
		return false, errors.New("booking id is required")
	}
	for range casAttempts {
		current, err := s.kv.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		b, err := decodeBooking(current)
		if err != nil {
			return false, err
		}
		if b.ID != id {
			return false, nil
		}
		ok, err := write(current)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (s *Store) ListBookingsByDate(ctx context.Context, date string) (map[string]model.Booking, error) {
	prefix := bookingDatePrefix(date)
	raws, err := s.kv.Scan(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list bookings %s: %w", date, err)
	}
	out := make(map[string]model.Booking, len(raws))
	for key, raw := range raws {
		b, err := decodeBooking(raw)
		if err != nil {
			s.log.Warn("skipping unreadable booking", "key", key, "err", err)
			continue
		}
		out[strings.TrimPrefix(key, prefix)] = *b
	}
	return out, nil
}

func (s *Store) ListAllBookings(ctx context.Context) (map[string]map[string]model.Booking, error) {
	raws, err := s.kv.Scan(ctx, bookingPrefix)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	out := make(map[string]map[string]model.Booking)
	for key, raw := range raws {
		date, slotID, ok := splitDated(key, bookingPrefix)
		if !ok {
			s.log.Warn("skipping malformed booking key", "key", key)
			continue
		}
		b, err := decodeBooking(raw)
		if err != nil {
			s.log.Warn("skipping unreadable booking", "key", key, "err", err)
			continue
		}
		if out[date] == nil {
			out[date] = make(map[string]model.Booking)
		}
		out[date][slotID] = *b
	}
	return out, nil
}

func (s *Store) ListBookedSlots(ctx context.Context, date string) (map[string]bool, error) {
	prefix := bookingDatePrefix(date)
	raws, err := s.kv.Scan(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list booked slots %s: %w", date, err)
	}
	out := make(map[string]bool, len(raws))
	for key := range raws {
		out[strings.TrimPrefix(key, prefix)] = true
	}
	return out, nil
}

// FindBookingByContact scans every booking. A secondary index can replace
// it behind BookingStore.
func (s *Store) FindBookingByContact(ctx context.Context, identifier string) (*model.Booking, error) {
	needle := normalizeContact(identifier)
	if needle == "" {
		return nil, ErrNotFound
	}
	all, err := s.ListAllBookings(ctx)
	if err != nil {
		return nil, err
	}
	var best *model.Booking
	for _, day := range all {
		for _, b := range day {
			if normalizeContact(b.Email) != needle && normalizeContact(b.Whatsapp) != needle {
				continue
			}
			if best == nil || b.BookedAt.After(best.BookedAt) {
				b := b
				best = &b
			}
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

// normalizeContact lowercases emails and strips phone punctuation so
// "+880 1712-345678" and "8801712345678" compare equal.
func normalizeContact(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.Contains(s, "@") {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func decodeBooking(raw []byte) (*model.Booking, error) {
	var b model.Booking
	if err := decode(raw, KindBooking, &b); err != nil {
		return nil, err
	}
	if err := checkBooking(&b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &b, nil
}

func checkBooking(b *model.Booking) error {
	if b == nil || b.ID == "" || b.Date == "" || b.SlotID == "" {
		return errors.New("booking requires id, date and slotId")
	}
	return nil
}

// ── Blocks ──────────────────────────────────────────────────────────────────

func (s *Store) BlockSlot(ctx context.Context, date, slotID string) (bool, error) {
	return s.setMarker(ctx, slotBlockKey(date, slotID), KindSlotBlock)
}

func (s *Store) UnblockSlot(ctx context.Context, date, slotID string) (bool, error) {
	return s.kv.Delete(ctx, slotBlockKey(date, slotID))
}

func (s *Store) IsSlotBlocked(ctx context.Context, date, slotID string) (bool, error) {
	return s.hasMarker(ctx, slotBlockKey(date, slotID), KindSlotBlock)
}

func (s *Store) ListSlotBlocks(ctx context.Context, date string) (map[string]bool, error) {
	prefix := slotBlockDatePrefix(date)
	raws, err := s.kv.Scan(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list slot blocks %s: %w", date, err)
	}
	out := make(map[string]bool, len(raws))
	for key, raw := range raws {
		if err := decode(raw, KindSlotBlock, nil); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[strings.TrimPrefix(key, prefix)] = true
	}
	return out, nil
}

// ListAllSlotBlocks returns date -> blocked slot ids.
func (s *Store) ListAllSlotBlocks(ctx context.Context) (map[string][]string, error) {
	raws, err := s.kv.Scan(ctx, slotBlockPrefix)
	if err != nil {
		return nil, fmt.Errorf("list slot blocks: %w", err)
	}
	out := make(map[string][]string)
	for key := range raws {
		date, slotID, ok := splitDated(key, slotBlockPrefix)
		if !ok {
			continue
		}
		out[date] = append(out[date], slotID)
	}
	return out, nil
}

func (s *Store) BlockDay(ctx context.Context, date string) (bool, error) {
	return s.setMarker(ctx, dayBlockKey(date), KindDayBlock)
}

func (s *Store) UnblockDay(ctx context.Context, date string) (bool, error) {
	return s.kv.Delete(ctx, dayBlockKey(date))
}

func (s *Store) IsDayBlocked(ctx context.Context, date string) (bool, error) {
	return s.hasMarker(ctx, dayBlockKey(date), KindDayBlock)
}

func (s *Store) ListDayBlocks(ctx context.Context) ([]string, error) {
	raws, err := s.kv.Scan(ctx, dayBlockPrefix)
	if err != nil {
		return nil, fmt.Errorf("list day blocks: %w", err)
	}
	out := make([]string, 0, len(raws))
	for key, raw := range raws {
		if err := decode(raw, KindDayBlock, nil); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out = append(out, strings.TrimPrefix(key, dayBlockPrefix))
	}
	sort.Strings(out)
	return out, nil
}

// setMarker reports false when the marker was already present.
func (s *Store) setMarker(ctx context.Context, key string, kind Kind) (bool, error) {
	raw, err := encode(kind, nil)
	if err != nil {
		return false, err
	}
	return s.kv.SetNX(ctx, key, raw)
}

func (s *Store) hasMarker(ctx context.Context, key string, kind Kind) (bool, error) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := decode(raw, kind, nil); err != nil {
		return false, err
	}
	return true, nil
}

// ── Settings ────────────────────────────────────────────────────────────────

func (s *Store) GetSlotConfig(ctx context.Context) (*model.SlotConfig, error) {
	raw, err := s.kv.Get(ctx, slotConfigKey)
	if err != nil {
		return nil, err
	}
	var cfg model.SlotConfig
	if err := decode(raw, KindSlotConfig, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &cfg, nil
}

func (s *Store) PutSlotConfig(ctx context.Context, cfg model.SlotConfig) error {
	raw, err := encode(KindSlotConfig, cfg)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, slotConfigKey, raw)
}

type tokenRecord struct {
	Token []byte `json:"token"`
}

func (s *Store) GetIntegrationToken(ctx context.Context) ([]byte, error) {
	raw, err := s.kv.Get(ctx, integrationTokenKey)
	if err != nil {
		return nil, err
	}
	var rec tokenRecord
	if err := decode(raw, KindIntegrationToken, &rec); err != nil {
		return nil, err
	}
	if len(rec.Token) == 0 {
		return nil, fmt.Errorf("%w: empty integration token", ErrCorruptRecord)
	}
	return rec.Token, nil
}

func (s *Store) PutIntegrationToken(ctx context.Context, token []byte) error {
	raw, err := encode(KindIntegrationToken, tokenRecord{Token: token})
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, integrationTokenKey, raw)
}

func (s *Store) DeleteIntegrationToken(ctx context.Context) (bool, error) {
	return s.kv.Delete(ctx, integrationTokenKey)
}

// ── Jobs ────────────────────────────────────────────────────────────────────

func (s *Store) CreateJob(ctx context.Context, j *model.JobPost) (bool, error) {
	if j == nil || j.ID == "" {
		return false, errors.New("job post requires id")
	}
	raw, err := encode(KindJobPost, j)
	if err != nil {
		return false, err
	}
	return s.kv.SetNX(ctx, jobKey(j.ID), raw)
}

func (s *Store) GetJob(ctx context.Context, id string) (*model.JobPost, error) {
	raw, err := s.kv.Get(ctx, jobKey(id))
	if err != nil {
		return nil, err
	}
	var j model.JobPost
	if err := decode(raw, KindJobPost, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *Store) UpdateJob(ctx context.Context, j *model.JobPost) (bool, error) {
	if j == nil || j.ID == "" {
		return false, errors.New("job post requires id")
	}
	raw, err := encode(KindJobPost, j)
	if err != nil {
		return false, err
	}
	return s.kv.Replace(ctx, jobKey(j.ID), raw)
}

func (s *Store) DeleteJob(ctx context.Context, id string) (bool, error) {
	return s.kv.Delete(ctx, jobKey(id))
}

// ListJobs returns posts newest first.
func (s *Store) ListJobs(ctx context.Context) ([]model.JobPost, error) {
	raws, err := s.kv.Scan(ctx, jobPrefix)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	out := make([]model.JobPost, 0, len(raws))
	for key, raw := range raws {
		var j model.JobPost
		if err := decode(raw, KindJobPost, &j); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out, nil
}
