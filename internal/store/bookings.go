package store

import (
	"context"

	"github.com/google/uuid"

	"venuebook/backend/internal/domain"
)

// BookingFilter selects active bookings on one date. Capacity lookups set VenueID and
// ServiceID; staff lookups set StaffMemberID only.
type BookingFilter struct {
	VenueID       int64
	ServiceID     int64
	StaffMemberID int64
	Date          string
	ExcludeID     uuid.UUID
}

// Reader is a consistent read view over rules, services, staff and bookings.
type Reader interface {
	GetVenue(ctx context.Context, id int64) (domain.Venue, error)
	GetService(ctx context.Context, id int64) (domain.Service, error)
	GetStaffMember(ctx context.Context, id int64) (domain.StaffMember, error)
	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)

	ListVenueRules(ctx context.Context, venueID int64, day domain.Weekday) ([]domain.AvailabilityRule, error)
	ListStaffRules(ctx context.Context, staffID int64, day domain.Weekday) ([]domain.AvailabilityRule, error)

	StaffCanPerform(ctx context.Context, staffID, serviceID int64) (bool, error)
	// ListCapableStaff returns active staff of the venue able to perform the service, by ascending id.
	ListCapableStaff(ctx context.Context, venueID, serviceID int64) ([]domain.StaffMember, error)

	ListActiveBookings(ctx context.Context, f BookingFilter) ([]domain.Booking, error)
}

// BookingTx is a Reader bound to a write transaction that holds the resource lock.
type BookingTx interface {
	Reader
	InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
}

type BookingRepository interface {
	// InSnapshot runs fn against a single read view.
	InSnapshot(ctx context.Context, fn func(ctx context.Context, r Reader) error) error
	// InBookingTransaction serializes fn with every other transaction on the same lock key.
	InBookingTransaction(ctx context.Context, lockKey string, fn func(ctx context.Context, tx BookingTx) error) error
	// SetBookingStatus moves a booking from one status to another, failing with
	// ErrConflict when the stored status is no longer from.
	SetBookingStatus(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus) (domain.Booking, error)
}
