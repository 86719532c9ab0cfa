package availability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"venuebook/backend/internal/domain"
)

// Reason explains why an interval is not bookable.
type Reason string

const (
	ReasonOutsideHours       Reason = "outside_hours"
	ReasonCapacityExceeded   Reason = "capacity_exceeded"
	ReasonStaffUnavailable   Reason = "staff_unavailable"
	ReasonStaffCannotPerform Reason = "staff_cannot_perform"
)

// Request is one concrete interval to evaluate. Date must be midnight of the booking
// day; StaffMemberID is optional for staff-based services.
type Request struct {
	Venue            domain.Venue
	Service          domain.Service
	StaffMemberID    *int64
	Date             time.Time
	Interval         domain.Interval
	PartySize        int
	ExcludeBookingID uuid.UUID
}

func (r Request) dateKey() string {
	return r.Date.Format(domain.DateLayout)
}

// PartySizeOrDefault treats an unspecified party size as 1.
func PartySizeOrDefault(n int) int {
	if n == 0 {
		return 1
	}
	return n
}

type Verdict struct {
	Available         bool
	Reason            Reason
	RemainingCapacity int
	StaffMemberID     *int64
}

// Evaluate combines the opening-hours, staff, party-size and conflict checks and
// reports the first failing reason. Slot listings and single-interval checks both go
// through here.
func (c *Checker) Evaluate(ctx context.Context, req Request) (Verdict, error) {
	day := domain.WeekdayOf(req.Date)
	date := req.dateKey()

	windows, err := c.VenueWindows(ctx, req.Venue.ID, day)
	if err != nil {
		return Verdict{}, err
	}
	if !Covered(req.Interval, windows) {
		return Verdict{Reason: ReasonOutsideHours}, nil
	}

	if req.Service.RequiresStaff {
		return c.evaluateStaff(ctx, req, date, day)
	}

	party := PartySizeOrDefault(req.PartySize)
	remaining, err := c.RemainingCapacity(ctx, req.Service, date, req.Interval, req.ExcludeBookingID)
	if err != nil {
		return Verdict{}, err
	}
	v := Verdict{RemainingCapacity: remaining}
	if party < 1 || party > req.Service.Capacity || remaining < party {
		v.Reason = ReasonCapacityExceeded
		return v, nil
	}
	v.Available = true
	return v, nil
}

func (c *Checker) evaluateStaff(ctx context.Context, req Request, date string, day domain.Weekday) (Verdict, error) {
	if req.StaffMemberID == nil {
		free, err := c.FreeStaff(ctx, req.Service, date, day, req.Interval, req.ExcludeBookingID)
		if err != nil {
			return Verdict{}, err
		}
		if len(free) == 0 {
			return Verdict{Reason: ReasonStaffUnavailable}, nil
		}
		id := free[0].ID
		return Verdict{Available: true, RemainingCapacity: len(free), StaffMemberID: &id}, nil
	}

	staffID := *req.StaffMemberID
	ok, err := c.CanStaffPerformService(ctx, staffID, req.Service.ID)
	if err != nil {
		return Verdict{}, err
	}
	if !ok {
		return Verdict{Reason: ReasonStaffCannotPerform, StaffMemberID: &staffID}, nil
	}
	working, err := c.StaffWorking(ctx, staffID, day, req.Interval)
	if err != nil {
		return Verdict{}, err
	}
	if !working {
		return Verdict{Reason: ReasonStaffUnavailable, StaffMemberID: &staffID}, nil
	}
	free, err := c.StaffFree(ctx, staffID, date, req.Interval, req.ExcludeBookingID)
	if err != nil {
		return Verdict{}, err
	}
	if !free {
		return Verdict{Reason: ReasonStaffUnavailable, StaffMemberID: &staffID}, nil
	}
	return Verdict{Available: true, RemainingCapacity: 1, StaffMemberID: &staffID}, nil
}

// DaySlots generates the candidate slots for one day and evaluates each of them.
// With a staff member the generator walks that member's windows, otherwise the venue's.
func (c *Checker) DaySlots(ctx context.Context, req Request, within *domain.Interval) ([]domain.TimeSlot, error) {
	day := domain.WeekdayOf(req.Date)

	var (
		windows []domain.Interval
		err     error
	)
	if req.Service.RequiresStaff && req.StaffMemberID != nil {
		windows, err = c.StaffWindows(ctx, *req.StaffMemberID, day)
	} else {
		windows, err = c.VenueWindows(ctx, req.Venue.ID, day)
	}
	if err != nil {
		return nil, err
	}

	out := []domain.TimeSlot{}
	for iv := range Slots(windows, req.Service.DurationMinutes, req.Venue.SlotStepMinutes) {
		if within != nil && !iv.Within(*within) {
			continue
		}
		slotReq := req
		slotReq.Interval = iv
		v, err := c.Evaluate(ctx, slotReq)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.TimeSlot{
			StartTime:         iv.Start.String(),
			EndTime:           iv.End.String(),
			Available:         v.Available,
			RemainingCapacity: v.RemainingCapacity,
			StaffMemberID:     v.StaffMemberID,
		})
	}
	return out, nil
}
