package booking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"venuebook/backend/internal/availability"
	"venuebook/backend/internal/domain"
	"venuebook/backend/internal/store"
)

// memReader is a fixed read view: one restaurant venue open Tuesdays 11:00-14:00.
type memReader struct {
	bookings []domain.Booking
}

var (
	memVenue   = domain.Venue{ID: 1, Name: "v", Category: domain.VenueCategoryRestaurant}
	memService = domain.Service{ID: 10, VenueID: 1, Name: "s", DurationMinutes: 60, Capacity: 2}
)

func (m *memReader) GetVenue(ctx context.Context, id int64) (domain.Venue, error) {
	if id != memVenue.ID {
		return domain.Venue{}, store.ErrNotFound
	}
	return memVenue, nil
}

func (m *memReader) GetService(ctx context.Context, id int64) (domain.Service, error) {
	if id != memService.ID {
		return domain.Service{}, store.ErrNotFound
	}
	return memService, nil
}

func (m *memReader) GetStaffMember(ctx context.Context, id int64) (domain.StaffMember, error) {
	return domain.StaffMember{}, store.ErrNotFound
}

func (m *memReader) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	for _, b := range m.bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return domain.Booking{}, store.ErrNotFound
}

func (m *memReader) ListVenueRules(ctx context.Context, venueID int64, day domain.Weekday) ([]domain.AvailabilityRule, error) {
	if venueID != memVenue.ID || day != domain.Tuesday {
		return nil, nil
	}
	return []domain.AvailabilityRule{{
		VenueID:   &memVenue.ID,
		DayOfWeek: domain.Tuesday,
		StartTime: domain.MustTimeOfDay("11:00"),
		EndTime:   domain.MustTimeOfDay("14:00"),
		IsActive:  true,
	}}, nil
}

func (m *memReader) ListStaffRules(ctx context.Context, staffID int64, day domain.Weekday) ([]domain.AvailabilityRule, error) {
	return nil, nil
}

func (m *memReader) StaffCanPerform(ctx context.Context, staffID, serviceID int64) (bool, error) {
	return false, nil
}

func (m *memReader) ListCapableStaff(ctx context.Context, venueID, serviceID int64) ([]domain.StaffMember, error) {
	return nil, nil
}

func (m *memReader) ListActiveBookings(ctx context.Context, f store.BookingFilter) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.Status.Active() && b.Date == f.Date && b.ID != f.ExcludeID {
			out = append(out, b)
		}
	}
	return out, nil
}

type memTx struct {
	*memReader
	insertFn func(ctx context.Context, b domain.Booking) (domain.Booking, error)
}

func (t memTx) InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	if t.insertFn == nil {
		panic("InsertBooking not configured")
	}
	return t.insertFn(ctx, b)
}

type fakeRepo struct {
	reader   *memReader
	insertFn func(ctx context.Context, b domain.Booking) (domain.Booking, error)
	lockKeys []string
	setFn    func(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus) (domain.Booking, error)
}

func (f *fakeRepo) InSnapshot(ctx context.Context, fn func(ctx context.Context, r store.Reader) error) error {
	return fn(ctx, f.reader)
}

func (f *fakeRepo) InBookingTransaction(ctx context.Context, lockKey string, fn func(ctx context.Context, tx store.BookingTx) error) error {
	f.lockKeys = append(f.lockKeys, lockKey)
	return fn(ctx, memTx{memReader: f.reader, insertFn: f.insertFn})
}

func (f *fakeRepo) SetBookingStatus(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus) (domain.Booking, error) {
	if f.setFn == nil {
		panic("SetBookingStatus not configured")
	}
	return f.setFn(ctx, id, from, to)
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC) }
}

func newTestService(repo store.BookingRepository, opts ...Option) *Service {
	opts = append([]Option{WithClock(fixedClock()), WithLocation(time.UTC)}, opts...)
	return NewService(repo, opts...)
}

func lunch() CreateBookingInput {
	return CreateBookingInput{BookingRequest: BookingRequest{
		VenueID:   memVenue.ID,
		ServiceID: memService.ID,
		Date:      "2026-11-03",
		StartTime: "12:00",
		EndTime:   "13:00",
		PartySize: 1,
	}}
}

func TestCreateBooking_LocksCapacityKeyAndInsertsPending(t *testing.T) {
	var got domain.Booking
	repo := &fakeRepo{
		reader: &memReader{},
		insertFn: func(ctx context.Context, b domain.Booking) (domain.Booking, error) {
			got = b
			return b, nil
		},
	}
	svc := newTestService(repo, WithTokenGenerator(func() (string, error) { return "tok", nil }))

	if _, err := svc.CreateBooking(context.Background(), lunch(), false); err != nil {
		t.Fatalf("CreateBooking error: %v", err)
	}
	if len(repo.lockKeys) != 1 || repo.lockKeys[0] != "capacity:1:10:2026-11-03" {
		t.Fatalf("lock keys = %v", repo.lockKeys)
	}
	if got.Status != domain.BookingPending {
		t.Fatalf("status = %s, want pending", got.Status)
	}
	if got.Token != "tok" {
		t.Fatalf("token = %q, want %q", got.Token, "tok")
	}
	if got.StartTime.String() != "12:00" || got.EndTime.String() != "13:00" {
		t.Fatalf("interval = %s-%s", got.StartTime, got.EndTime)
	}
}

func TestCreateBooking_TokenLengthOption(t *testing.T) {
	var got domain.Booking
	repo := &fakeRepo{
		reader: &memReader{},
		insertFn: func(ctx context.Context, b domain.Booking) (domain.Booking, error) {
			got = b
			return b, nil
		},
	}
	svc := newTestService(repo, WithTokenLength(32))

	if _, err := svc.CreateBooking(context.Background(), lunch(), false); err != nil {
		t.Fatalf("CreateBooking error: %v", err)
	}
	if len(got.Token) != 32 {
		t.Fatalf("token %q has length %d, want 32", got.Token, len(got.Token))
	}
	if strings.Trim(got.Token, tokenAlphabet) != "" {
		t.Fatalf("token %q uses characters outside the alphabet", got.Token)
	}
}

func TestCreateBooking_RecheckFailureIsConflict(t *testing.T) {
	reader := &memReader{}
	repo := &fakeRepo{
		reader: reader,
		insertFn: func(ctx context.Context, b domain.Booking) (domain.Booking, error) {
			panic("insert must not run when the recheck fails")
		},
	}
	// The interval fills up between the snapshot and the locked recheck.
	svc := newTestService(&racingRepo{fakeRepo: repo, onLock: func() {
		for i := 0; i < 2; i++ {
			reader.bookings = append(reader.bookings, domain.Booking{
				ID:        uuid.New(),
				Date:      "2026-11-03",
				StartTime: domain.MustTimeOfDay("12:30"),
				EndTime:   domain.MustTimeOfDay("13:30"),
				PartySize: 1,
				Status:    domain.BookingConfirmed,
			})
		}
	}})

	_, err := svc.CreateBooking(context.Background(), lunch(), false)
	var cErr *ConflictError
	if !errors.As(err, &cErr) {
		t.Fatalf("error = %v (%T), want *ConflictError", err, err)
	}
	if cErr.Reason != availability.ReasonCapacityExceeded {
		t.Fatalf("reason = %s, want %s", cErr.Reason, availability.ReasonCapacityExceeded)
	}
}

type racingRepo struct {
	*fakeRepo
	onLock func()
}

func (r *racingRepo) InBookingTransaction(ctx context.Context, lockKey string, fn func(ctx context.Context, tx store.BookingTx) error) error {
	r.onLock()
	return r.fakeRepo.InBookingTransaction(ctx, lockKey, fn)
}

func TestCreateBooking_ExcludeIDStopsBeforeStore(t *testing.T) {
	repo := &fakeRepo{reader: &memReader{}}
	svc := newTestService(repo)

	in := lunch()
	in.ExcludeBookingID = uuid.New()
	_, err := svc.CreateBooking(context.Background(), in, false)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v (%T), want *ValidationError", err, err)
	}
	if vErr.Violations[0].Code != availability.ViolationInvalidRequest {
		t.Fatalf("code = %s", vErr.Violations[0].Code)
	}
	if len(repo.lockKeys) != 0 {
		t.Fatalf("expected no transaction, got %v", repo.lockKeys)
	}
}

func TestCreateBooking_TokenFailureStopsBeforeStore(t *testing.T) {
	boom := errors.New("entropy exhausted")
	repo := &fakeRepo{reader: &memReader{}}
	svc := newTestService(repo, WithTokenGenerator(func() (string, error) { return "", boom }))

	_, err := svc.CreateBooking(context.Background(), lunch(), false)
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
	if len(repo.lockKeys) != 0 {
		t.Fatalf("expected no transaction, got %v", repo.lockKeys)
	}
}

func TestCreateBooking_IdempotencyKeyDeterministicID(t *testing.T) {
	var ids []uuid.UUID
	repo := &fakeRepo{
		reader: &memReader{},
		insertFn: func(ctx context.Context, b domain.Booking) (domain.Booking, error) {
			ids = append(ids, b.ID)
			return b, nil
		},
	}
	svc := newTestService(repo)

	for _, key := range []string{"k1", "k1", "k2"} {
		in := lunch()
		in.IdempotencyKey = key
		if _, err := svc.CreateBooking(context.Background(), in, false); err != nil {
			t.Fatalf("CreateBooking error: %v", err)
		}
	}
	if ids[0] == uuid.Nil || ids[0] != ids[1] {
		t.Fatalf("same key produced ids %s and %s", ids[0], ids[1])
	}
	if ids[0] == ids[2] {
		t.Fatalf("different keys produced the same id %s", ids[0])
	}
}

func TestCreateBooking_IdempotencyKeyTooLong(t *testing.T) {
	svc := newTestService(&fakeRepo{reader: &memReader{}})

	in := lunch()
	in.IdempotencyKey = strings.Repeat("k", maxIdempotencyKeyLen+1)

	_, err := svc.CreateBooking(context.Background(), in, false)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if vErr.Error() != "idempotency_key too long" {
		t.Fatalf("error = %q", vErr.Error())
	}
}

func TestIsTimeSlotAvailable_EndBeforeStart(t *testing.T) {
	svc := newTestService(&fakeRepo{reader: &memReader{}})

	_, err := svc.IsTimeSlotAvailable(context.Background(), SlotCheck{
		VenueID:   memVenue.ID,
		ServiceID: memService.ID,
		Date:      "2026-11-03",
		StartTime: "13:00",
		EndTime:   "12:00",
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if vErr.Violations[0].Code != availability.ViolationEndBeforeStart {
		t.Fatalf("code = %s", vErr.Violations[0].Code)
	}
}

func TestUpdateBookingStatus_StaleStatusIsConflict(t *testing.T) {
	b := domain.Booking{ID: uuid.New(), VenueID: memVenue.ID, Date: "2026-11-03", Status: domain.BookingPending}
	repo := &fakeRepo{
		reader: &memReader{bookings: []domain.Booking{b}},
		setFn: func(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus) (domain.Booking, error) {
			if from != domain.BookingPending || to != domain.BookingConfirmed {
				t.Fatalf("transition %s -> %s", from, to)
			}
			return domain.Booking{}, store.ErrConflict
		},
	}
	svc := newTestService(repo)

	_, err := svc.UpdateBookingStatus(context.Background(), UpdateStatusInput{BookingID: b.ID, Status: domain.BookingConfirmed})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("error = %v, want %v", err, store.ErrConflict)
	}

	_, err = svc.UpdateBookingStatus(context.Background(), UpdateStatusInput{BookingID: b.ID, Status: "archived"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
}
