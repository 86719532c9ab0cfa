package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
	BookingNoShow    BookingStatus = "no_show"
)

// ActiveBookingStatuses are the statuses that consume capacity or staff time.
var ActiveBookingStatuses = []BookingStatus{BookingPending, BookingConfirmed}

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCancelled, BookingCompleted, BookingNoShow},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted, BookingNoShow:
		return true
	}
	return false
}

// Active reports whether a booking in this status counts against availability.
func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingConfirmed
}

func (s BookingStatus) Terminal() bool {
	return s.Valid() && len(bookingTransitions[s]) == 0
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID            uuid.UUID     `bun:"id,pk,type:uuid"`
	VenueID       int64         `bun:"venue_id,notnull"`
	ServiceID     int64         `bun:"service_id,notnull"`
	StaffMemberID *int64        `bun:"staff_member_id"`
	Date          string        `bun:"booking_date,notnull,type:varchar(10)"`
	StartTime     TimeOfDay     `bun:"start_time,notnull,type:varchar(5)"`
	EndTime       TimeOfDay     `bun:"end_time,notnull,type:varchar(5)"`
	PartySize     int           `bun:"party_size,notnull"`
	Status        BookingStatus `bun:"status,notnull"`
	Token         string        `bun:"token,notnull,unique"`
	CustomerName  string        `bun:"customer_name"`
	Notes         string        `bun:"notes"`
	CreatedAt     time.Time     `bun:"created_at,notnull"`
	UpdatedAt     time.Time     `bun:"updated_at,notnull"`
}

func (b Booking) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}

// TimeSlot is a derived candidate interval annotated with its availability.
type TimeSlot struct {
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	Available         bool   `json:"available"`
	RemainingCapacity int    `json:"remaining_capacity"`
	StaffMemberID     *int64 `json:"staff_member_id,omitempty"`
}
