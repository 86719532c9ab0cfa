package grpc

import (
	"time"

	"venuebook/backend/internal/availability"
	"venuebook/backend/internal/domain"
	"venuebook/backend/internal/service/booking"
)

type GetAvailableSlotsRequest struct {
	VenueID          int64  `json:"venue_id"`
	ServiceID        int64  `json:"service_id"`
	Date             string `json:"date"`
	StaffMemberID    *int64 `json:"staff_member_id,omitempty"`
	PartySize        int    `json:"party_size,omitempty"`
	From             string `json:"from,omitempty"`
	To               string `json:"to,omitempty"`
	ExcludeBookingID string `json:"exclude_booking_id,omitempty"`
}

type GetAvailableSlotsResponse struct {
	Availability booking.DayAvailability `json:"availability"`
}

type GetWeekAvailabilityRequest struct {
	VenueID       int64  `json:"venue_id"`
	ServiceID     int64  `json:"service_id"`
	StartDate     string `json:"start_date"`
	StaffMemberID *int64 `json:"staff_member_id,omitempty"`
	PartySize     int    `json:"party_size,omitempty"`
}

type GetWeekAvailabilityResponse struct {
	Days []booking.DayAvailability `json:"days"`
}

// SlotRequest identifies one interval; it is shared by the point check and validation RPCs.
type SlotRequest struct {
	VenueID          int64  `json:"venue_id"`
	ServiceID        int64  `json:"service_id"`
	StaffMemberID    *int64 `json:"staff_member_id,omitempty"`
	Date             string `json:"date"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	PartySize        int    `json:"party_size,omitempty"`
	ExcludeBookingID string `json:"exclude_booking_id,omitempty"`
}

type IsTimeSlotAvailableResponse struct {
	Available bool                `json:"available"`
	Reason    availability.Reason `json:"reason,omitempty"`
}

type ValidateBookingRequestResponse struct {
	Valid  bool                     `json:"valid"`
	Errors []availability.Violation `json:"errors"`
}

type CreateBookingRequest struct {
	SlotRequest
	CustomerName       string `json:"customer_name,omitempty"`
	Notes              string `json:"notes,omitempty"`
	BypassAdvanceHours bool   `json:"bypass_advance_hours,omitempty"`
}

type BookingResponse struct {
	Booking Booking `json:"booking"`
}

type CanStaffPerformServiceRequest struct {
	StaffMemberID int64 `json:"staff_member_id"`
	ServiceID     int64 `json:"service_id"`
}

type CanStaffPerformServiceResponse struct {
	CanPerform bool `json:"can_perform"`
}

type UpdateBookingStatusRequest struct {
	BookingID                string `json:"booking_id"`
	Status                   string `json:"status"`
	BypassCancellationWindow bool   `json:"bypass_cancellation_window,omitempty"`
}

type Booking struct {
	ID            string    `json:"id"`
	VenueID       int64     `json:"venue_id"`
	ServiceID     int64     `json:"service_id"`
	StaffMemberID *int64    `json:"staff_member_id,omitempty"`
	Date          string    `json:"date"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	PartySize     int       `json:"party_size"`
	Status        string    `json:"status"`
	Token         string    `json:"token"`
	CustomerName  string    `json:"customer_name,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toWireBooking(b domain.Booking) Booking {
	return Booking{
		ID:            b.ID.String(),
		VenueID:       b.VenueID,
		ServiceID:     b.ServiceID,
		StaffMemberID: b.StaffMemberID,
		Date:          b.Date,
		StartTime:     b.StartTime.String(),
		EndTime:       b.EndTime.String(),
		PartySize:     b.PartySize,
		Status:        string(b.Status),
		Token:         b.Token,
		CustomerName:  b.CustomerName,
		Notes:         b.Notes,
		CreatedAt:     b.CreatedAt.UTC(),
		UpdatedAt:     b.UpdatedAt.UTC(),
	}
}
