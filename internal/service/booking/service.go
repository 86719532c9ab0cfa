package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"venuebook/backend/internal/availability"
	"venuebook/backend/internal/domain"
	"venuebook/backend/internal/store"
)

const (
	tokenAlphabet        = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	tokenLength          = 21
	maxIdempotencyKeyLen = 256
	daysPerWeek          = 7
)

type Service struct {
	repo     store.BookingRepository
	now      func() time.Time
	loc      *time.Location
	log      *slog.Logger
	newToken func() (string, error)
}

type Option func(*Service)

// WithClock overrides the wall clock used for past and advance-notice checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone booking dates and times are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithTokenGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newToken = gen }
}

// WithTokenLength keeps the default alphabet and changes only the token length.
func WithTokenLength(n int) Option {
	return func(s *Service) {
		if n <= 0 {
			return
		}
		s.newToken = func() (string, error) { return gonanoid.Generate(tokenAlphabet, n) }
	}
}

func NewService(repo store.BookingRepository, opts ...Option) *Service {
	s := &Service{
		repo: repo,
		now:  time.Now,
		loc:  time.Local,
		log:  slog.Default(),
		newToken: func() (string, error) {
			return gonanoid.Generate(tokenAlphabet, tokenLength)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "booking")
	return s
}

type DayAvailability struct {
	Date      string            `json:"date"`
	DayOfWeek domain.Weekday    `json:"day_of_week"`
	TimeSlots []domain.TimeSlot `json:"time_slots"`
}

type SlotQuery struct {
	VenueID       int64
	ServiceID     int64
	Date          string
	StaffMemberID *int64
	PartySize     int
	// From and To optionally restrict slots to those inside [From, To), as HH:MM.
	From             string
	To               string
	ExcludeBookingID uuid.UUID
}

type WeekQuery struct {
	VenueID       int64
	ServiceID     int64
	StartDate     string
	StaffMemberID *int64
	PartySize     int
}

// SlotCheck identifies one concrete interval.
type SlotCheck struct {
	VenueID          int64
	ServiceID        int64
	StaffMemberID    *int64
	Date             string
	StartTime        string
	EndTime          string
	PartySize        int
	ExcludeBookingID uuid.UUID
}

type SlotAvailability struct {
	Available bool                `json:"available"`
	Reason    availability.Reason `json:"reason,omitempty"`
}

type BookingRequest = SlotCheck

type CreateBookingInput struct {
	BookingRequest
	CustomerName   string
	Notes          string
	IdempotencyKey string
}

type UpdateStatusInput struct {
	BookingID                uuid.UUID
	Status                   domain.BookingStatus
	BypassCancellationWindow bool
}

// scope is the resolved venue and service of a request.
type scope struct {
	venue   domain.Venue
	service domain.Service
}

func notFound(err error, resource string, id any) error {
	if errors.Is(err, store.ErrNotFound) {
		return &NotFoundError{Resource: resource, ID: fmt.Sprint(id)}
	}
	return err
}

// loadScope resolves the entities of a request. A service or staff member belonging
// to another venue, or an inactive staff member, is reported as not found.
func loadScope(ctx context.Context, r store.Reader, venueID, serviceID int64, staffID *int64) (scope, error) {
	venue, err := r.GetVenue(ctx, venueID)
	if err != nil {
		return scope{}, notFound(err, "venue", venueID)
	}
	svc, err := r.GetService(ctx, serviceID)
	if err != nil {
		return scope{}, notFound(err, "service", serviceID)
	}
	if svc.VenueID != venue.ID {
		return scope{}, &NotFoundError{Resource: "service", ID: strconv.FormatInt(serviceID, 10)}
	}
	if staffID != nil {
		m, err := r.GetStaffMember(ctx, *staffID)
		if err != nil {
			return scope{}, notFound(err, "staff member", *staffID)
		}
		if m.VenueID != venue.ID || !m.IsActive {
			return scope{}, &NotFoundError{Resource: "staff member", ID: strconv.FormatInt(*staffID, 10)}
		}
	}
	return scope{venue: venue, service: svc}, nil
}

func (s *Service) parseDate(field, value string) (time.Time, error) {
	d, err := domain.ParseDate(value, s.loc)
	if err != nil {
		return time.Time{}, &InputFormatError{Field: field, Value: value}
	}
	return d, nil
}

func parseTime(field, value string) (domain.TimeOfDay, error) {
	t, err := domain.ParseTimeOfDay(value)
	if err != nil {
		return 0, &InputFormatError{Field: field, Value: value}
	}
	return t, nil
}

// timeWindow turns optional From/To bounds into an interval; an open end extends to
// the start or end of the day.
func timeWindow(from, to string) (*domain.Interval, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" && to == "" {
		return nil, nil
	}
	w := domain.Interval{Start: 0, End: domain.TimeOfDay(domain.MinutesPerDay)}
	if from != "" {
		t, err := parseTime("from", from)
		if err != nil {
			return nil, err
		}
		w.Start = t
	}
	if to != "" {
		t, err := parseTime("to", to)
		if err != nil {
			return nil, err
		}
		w.End = t
	}
	if !w.Valid() {
		return nil, validationError(availability.ViolationEndBeforeStart, "to must be after from")
	}
	return &w, nil
}

func (s *Service) day(ctx context.Context, c *availability.Checker, sc scope, date time.Time, staffID *int64, party int, within *domain.Interval, exclude uuid.UUID) (DayAvailability, error) {
	slots, err := c.DaySlots(ctx, availability.Request{
		Venue:            sc.venue,
		Service:          sc.service,
		StaffMemberID:    staffID,
		Date:             date,
		PartySize:        party,
		ExcludeBookingID: exclude,
	}, within)
	if err != nil {
		return DayAvailability{}, err
	}
	return DayAvailability{
		Date:      date.Format(domain.DateLayout),
		DayOfWeek: domain.WeekdayOf(date),
		TimeSlots: slots,
	}, nil
}

func (s *Service) GetAvailableSlots(ctx context.Context, q SlotQuery) (DayAvailability, error) {
	date, err := s.parseDate("date", q.Date)
	if err != nil {
		return DayAvailability{}, err
	}
	within, err := timeWindow(q.From, q.To)
	if err != nil {
		return DayAvailability{}, err
	}

	var out DayAvailability
	err = s.repo.InSnapshot(ctx, func(ctx context.Context, r store.Reader) error {
		sc, err := loadScope(ctx, r, q.VenueID, q.ServiceID, q.StaffMemberID)
		if err != nil {
			return err
		}
		out, err = s.day(ctx, availability.NewChecker(r), sc, date, q.StaffMemberID, q.PartySize, within, q.ExcludeBookingID)
		return err
	})
	if err != nil {
		return DayAvailability{}, err
	}
	return out, nil
}

// GetWeekAvailability lists seven consecutive days starting at StartDate from a single
// read view.
func (s *Service) GetWeekAvailability(ctx context.Context, q WeekQuery) ([]DayAvailability, error) {
	start, err := s.parseDate("start_date", q.StartDate)
	if err != nil {
		return nil, err
	}

	out := make([]DayAvailability, 0, daysPerWeek)
	err = s.repo.InSnapshot(ctx, func(ctx context.Context, r store.Reader) error {
		sc, err := loadScope(ctx, r, q.VenueID, q.ServiceID, q.StaffMemberID)
		if err != nil {
			return err
		}
		c := availability.NewChecker(r)
		for i := 0; i < daysPerWeek; i++ {
			d, err := s.day(ctx, c, sc, start.AddDate(0, 0, i), q.StaffMemberID, q.PartySize, nil, uuid.Nil)
			if err != nil {
				return err
			}
			out = append(out, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) parseSlot(in SlotCheck) (time.Time, domain.Interval, error) {
	date, err := s.parseDate("date", in.Date)
	if err != nil {
		return time.Time{}, domain.Interval{}, err
	}
	start, err := parseTime("start_time", in.StartTime)
	if err != nil {
		return time.Time{}, domain.Interval{}, err
	}
	end, err := parseTime("end_time", in.EndTime)
	if err != nil {
		return time.Time{}, domain.Interval{}, err
	}
	iv := domain.Interval{Start: start, End: end}
	if !iv.Valid() {
		return time.Time{}, domain.Interval{}, validationError(availability.ViolationEndBeforeStart, "end_time must be after start_time")
	}
	return date, iv, nil
}

// IsTimeSlotAvailable checks opening hours, staff and capacity for one interval. It
// skips the past and advance-notice rules.
func (s *Service) IsTimeSlotAvailable(ctx context.Context, in SlotCheck) (SlotAvailability, error) {
	date, iv, err := s.parseSlot(in)
	if err != nil {
		return SlotAvailability{}, err
	}

	var out SlotAvailability
	err = s.repo.InSnapshot(ctx, func(ctx context.Context, r store.Reader) error {
		sc, err := loadScope(ctx, r, in.VenueID, in.ServiceID, in.StaffMemberID)
		if err != nil {
			return err
		}
		v, err := availability.NewChecker(r).Evaluate(ctx, availability.Request{
			Venue:            sc.venue,
			Service:          sc.service,
			StaffMemberID:    in.StaffMemberID,
			Date:             date,
			Interval:         iv,
			PartySize:        in.PartySize,
			ExcludeBookingID: in.ExcludeBookingID,
		})
		if err != nil {
			return err
		}
		out = SlotAvailability{Available: v.Available, Reason: v.Reason}
		return nil
	})
	if err != nil {
		return SlotAvailability{}, err
	}
	return out, nil
}

func (s *Service) validationInput(sc scope, in BookingRequest, bypassAdvanceHours bool) availability.ValidationInput {
	return availability.ValidationInput{
		Venue:              sc.venue,
		Service:            sc.service,
		StaffMemberID:      in.StaffMemberID,
		Date:               in.Date,
		StartTime:          in.StartTime,
		EndTime:            in.EndTime,
		PartySize:          in.PartySize,
		ExcludeBookingID:   in.ExcludeBookingID,
		BypassAdvanceHours: bypassAdvanceHours,
		Now:                s.now().In(s.loc),
	}
}

// ValidateBookingRequest returns every rule the request breaks. Unknown entities are
// returned as *NotFoundError; everything else is reported in the result.
func (s *Service) ValidateBookingRequest(ctx context.Context, in BookingRequest) (availability.ValidationResult, error) {
	var out availability.ValidationResult
	err := s.repo.InSnapshot(ctx, func(ctx context.Context, r store.Reader) error {
		sc, err := loadScope(ctx, r, in.VenueID, in.ServiceID, in.StaffMemberID)
		if err != nil {
			return err
		}
		out, err = availability.NewChecker(r).Validate(ctx, s.validationInput(sc, in, false))
		return err
	})
	if err != nil {
		return availability.ValidationResult{}, err
	}
	return out, nil
}

func (s *Service) CanStaffPerformService(ctx context.Context, staffID, serviceID int64) (bool, error) {
	var ok bool
	err := s.repo.InSnapshot(ctx, func(ctx context.Context, r store.Reader) error {
		if _, err := r.GetStaffMember(ctx, staffID); err != nil {
			return notFound(err, "staff member", staffID)
		}
		if _, err := r.GetService(ctx, serviceID); err != nil {
			return notFound(err, "service", serviceID)
		}
		var err error
		ok, err = availability.NewChecker(r).CanStaffPerformService(ctx, staffID, serviceID)
		return err
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// lockKey names the resource a booking consumes: the staff member's day for
// staff-based services, the service's day otherwise.
func lockKey(svc domain.Service, staffID *int64, date string) string {
	if svc.RequiresStaff && staffID != nil {
		return fmt.Sprintf("staff:%d:%s", *staffID, date)
	}
	return fmt.Sprintf("capacity:%d:%d:%s", svc.VenueID, svc.ID, date)
}

func conflictReason(res availability.ValidationResult) availability.Reason {
	for _, v := range res.Errors {
		if v.Code == availability.ViolationStaffUnavailable {
			return availability.ReasonStaffUnavailable
		}
	}
	return availability.ReasonCapacityExceeded
}

func idempotentID(key string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("venuebook:create_booking:"+key))
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// samePayload reports whether a stored booking was created from the same request.
func samePayload(b domain.Booking, want domain.Booking) bool {
	return b.VenueID == want.VenueID &&
		b.ServiceID == want.ServiceID &&
		int64PtrEqual(b.StaffMemberID, want.StaffMemberID) &&
		b.Date == want.Date &&
		b.StartTime == want.StartTime &&
		b.EndTime == want.EndTime &&
		b.PartySize == want.PartySize &&
		b.CustomerName == want.CustomerName &&
		b.Notes == want.Notes
}

// replay looks up a booking created earlier under the same idempotency key.
func replay(ctx context.Context, r store.Reader, want domain.Booking) (domain.Booking, bool, error) {
	existing, err := r.GetBooking(ctx, want.ID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Booking{}, false, nil
	}
	if err != nil {
		return domain.Booking{}, false, err
	}
	if !samePayload(existing, want) {
		return domain.Booking{}, false, store.ErrIdempotencyConflict
	}
	return existing, true, nil
}

// CreateBooking validates the request against a snapshot, then re-checks availability
// and inserts under the resource lock. Losing the interval to a concurrent booking
// yields *ConflictError. A new booking never frees another one, so ExcludeBookingID
// is rejected, and a staff member is only recorded for staff-based services.
func (s *Service) CreateBooking(ctx context.Context, in CreateBookingInput, bypassAdvanceHours bool) (domain.Booking, error) {
	if in.ExcludeBookingID != uuid.Nil {
		return domain.Booking{}, validationError(availability.ViolationInvalidRequest, "exclude_booking_id cannot be used when creating a booking")
	}

	want := domain.Booking{
		VenueID:       in.VenueID,
		ServiceID:     in.ServiceID,
		StaffMemberID: in.StaffMemberID,
		Date:          strings.TrimSpace(in.Date),
		PartySize:     availability.PartySizeOrDefault(in.PartySize),
		Status:        domain.BookingPending,
		CustomerName:  strings.TrimSpace(in.CustomerName),
		Notes:         in.Notes,
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if len(key) > maxIdempotencyKeyLen {
			return domain.Booking{}, validationError(availability.ViolationInvalidRequest, "idempotency_key too long")
		}
		want.ID = idempotentID(key)
	}

	token, err := s.newToken()
	if err != nil {
		return domain.Booking{}, fmt.Errorf("generate booking token: %w", err)
	}
	want.Token = token

	var (
		sc       scope
		replayed *domain.Booking
	)
	err = s.repo.InSnapshot(ctx, func(ctx context.Context, r store.Reader) error {
		var err error
		sc, err = loadScope(ctx, r, in.VenueID, in.ServiceID, in.StaffMemberID)
		if err != nil {
			return err
		}
		if sc.service.RequiresStaff {
			want.PartySize = 1
		} else {
			in.StaffMemberID = nil
			want.StaffMemberID = nil
		}
		if want.ID != uuid.Nil {
			start, startErr := domain.ParseTimeOfDay(in.StartTime)
			end, endErr := domain.ParseTimeOfDay(in.EndTime)
			if startErr == nil && endErr == nil {
				probe := want
				probe.StartTime, probe.EndTime = start, end
				existing, ok, err := replay(ctx, r, probe)
				if err != nil {
					return err
				}
				if ok {
					replayed = &existing
					return nil
				}
			}
		}

		res, err := availability.NewChecker(r).Validate(ctx, s.validationInput(sc, in.BookingRequest, bypassAdvanceHours))
		if err != nil {
			return err
		}
		if res.Valid {
			return nil
		}
		if res.OnlyAvailability() {
			return &ConflictError{Reason: conflictReason(res)}
		}
		return &ValidationError{Violations: res.Errors}
	})
	if err != nil {
		return domain.Booking{}, err
	}
	if replayed != nil {
		s.log.Debug("idempotent replay", "booking_id", replayed.ID.String())
		return *replayed, nil
	}

	date, iv, err := s.parseSlot(in.BookingRequest)
	if err != nil {
		return domain.Booking{}, err
	}
	want.Date = date.Format(domain.DateLayout)
	want.StartTime, want.EndTime = iv.Start, iv.End

	lk := lockKey(sc.service, in.StaffMemberID, want.Date)
	var created domain.Booking
	err = s.repo.InBookingTransaction(ctx, lk, func(ctx context.Context, tx store.BookingTx) error {
		if want.ID != uuid.Nil {
			existing, ok, err := replay(ctx, tx, want)
			if err != nil {
				return err
			}
			if ok {
				created = existing
				return nil
			}
		}

		v, err := availability.NewChecker(tx).Evaluate(ctx, availability.Request{
			Venue:         sc.venue,
			Service:       sc.service,
			StaffMemberID: in.StaffMemberID,
			Date:          date,
			Interval:      iv,
			PartySize:     want.PartySize,
		})
		if err != nil {
			return err
		}
		if !v.Available {
			return &ConflictError{Reason: v.Reason}
		}

		created, err = tx.InsertBooking(ctx, want)
		return err
	})
	if err != nil {
		return domain.Booking{}, err
	}

	s.log.Debug("booking inserted", "booking_id", created.ID.String(), "lock_key", lk)
	return created, nil
}

// UpdateBookingStatus applies one state-machine transition. Cancelling inside the
// venue's cancellation window is refused unless bypassed.
func (s *Service) UpdateBookingStatus(ctx context.Context, in UpdateStatusInput) (domain.Booking, error) {
	if in.BookingID == uuid.Nil {
		return domain.Booking{}, validationError(availability.ViolationInvalidRequest, "booking_id is required")
	}
	if !in.Status.Valid() {
		return domain.Booking{}, validationError(availability.ViolationInvalidRequest, fmt.Sprintf("unknown status %q", in.Status))
	}

	var (
		cur   domain.Booking
		venue domain.Venue
	)
	err := s.repo.InSnapshot(ctx, func(ctx context.Context, r store.Reader) error {
		var err error
		cur, err = r.GetBooking(ctx, in.BookingID)
		if err != nil {
			return notFound(err, "booking", in.BookingID)
		}
		venue, err = r.GetVenue(ctx, cur.VenueID)
		return notFound(err, "venue", cur.VenueID)
	})
	if err != nil {
		return domain.Booking{}, err
	}

	if !cur.Status.CanTransitionTo(in.Status) {
		return domain.Booking{}, fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, cur.Status, in.Status)
	}
	if in.Status == domain.BookingCancelled && !in.BypassCancellationWindow && venue.CancellationWindowHours > 0 {
		date, err := domain.ParseDate(cur.Date, s.loc)
		if err != nil {
			return domain.Booking{}, err
		}
		deadline := cur.StartTime.On(date).Add(-time.Duration(venue.CancellationWindowHours) * time.Hour)
		if s.now().After(deadline) {
			return domain.Booking{}, ErrCancellationWindow
		}
	}

	updated, err := s.repo.SetBookingStatus(ctx, in.BookingID, cur.Status, in.Status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Booking{}, notFound(err, "booking", in.BookingID)
		}
		return domain.Booking{}, err
	}
	s.log.Debug("booking status updated",
		"booking_id", updated.ID.String(),
		"from", string(cur.Status),
		"to", string(updated.Status),
	)
	return updated, nil
}
