package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"venuebook/backend/internal/domain"
)

type ViolationCode string

const (
	ViolationInvalidDate        ViolationCode = "invalid_date"
	ViolationInvalidTime        ViolationCode = "invalid_time"
	ViolationEndBeforeStart     ViolationCode = "end_before_start"
	ViolationInPast             ViolationCode = "in_past"
	ViolationOutsideHours       ViolationCode = "outside_hours"
	ViolationStaffRequired      ViolationCode = "staff_required"
	ViolationStaffCannotPerform ViolationCode = "staff_cannot_perform"
	ViolationStaffOutsideHours  ViolationCode = "staff_outside_hours"
	ViolationInvalidPartySize   ViolationCode = "invalid_party_size"
	ViolationCapacityExceeded   ViolationCode = "capacity_exceeded"
	ViolationStaffUnavailable   ViolationCode = "staff_unavailable"
	ViolationAdvanceNotice      ViolationCode = "advance_notice"
	ViolationInvalidRequest     ViolationCode = "invalid_request"
)

// Availability reports whether the violation only says the resource is taken, which
// is an expected outcome of contention rather than a malformed request.
func (c ViolationCode) Availability() bool {
	return c == ViolationCapacityExceeded || c == ViolationStaffUnavailable
}

type Violation struct {
	Code    ViolationCode `json:"code"`
	Message string        `json:"message"`
}

type ValidationResult struct {
	Valid  bool        `json:"valid"`
	Errors []Violation `json:"errors"`
}

// OnlyAvailability reports whether every violation is an availability conflict.
func (r ValidationResult) OnlyAvailability() bool {
	if len(r.Errors) == 0 {
		return false
	}
	for _, v := range r.Errors {
		if !v.Code.Availability() {
			return false
		}
	}
	return true
}

// ValidationInput carries the raw request; Venue, Service and (if set) the staff
// member must already have been resolved.
type ValidationInput struct {
	Venue              domain.Venue
	Service            domain.Service
	StaffMemberID      *int64
	Date               string
	StartTime          string
	EndTime            string
	PartySize          int
	ExcludeBookingID   uuid.UUID
	BypassAdvanceHours bool
	Now                time.Time
}

type violations []Violation

func (v *violations) add(code ViolationCode, format string, args ...any) {
	*v = append(*v, Violation{Code: code, Message: fmt.Sprintf(format, args...)})
}

// Validate runs every business rule and returns all failures. A check that depends on
// a value that failed to parse is skipped; the parse failure is reported instead.
func (c *Checker) Validate(ctx context.Context, in ValidationInput) (ValidationResult, error) {
	var errs violations
	now := in.Now
	loc := now.Location()

	date, dateErr := domain.ParseDate(in.Date, loc)
	if dateErr != nil {
		errs.add(ViolationInvalidDate, "date must be a real calendar date in YYYY-MM-DD form")
	}
	start, startErr := domain.ParseTimeOfDay(in.StartTime)
	if startErr != nil {
		errs.add(ViolationInvalidTime, "start_time must be HH:MM between 00:00 and 23:59")
	}
	end, endErr := domain.ParseTimeOfDay(in.EndTime)
	if endErr != nil {
		errs.add(ViolationInvalidTime, "end_time must be HH:MM between 00:00 and 23:59")
	}

	timesOK := startErr == nil && endErr == nil
	iv := domain.Interval{Start: start, End: end}
	if timesOK && !iv.Valid() {
		errs.add(ViolationEndBeforeStart, "end_time must be after start_time")
	}
	intervalOK := timesOK && iv.Valid()
	know := dateErr == nil && intervalOK
	day := domain.WeekdayOf(date)

	var startsAt time.Time
	inPast := false
	if dateErr == nil && startErr == nil {
		startsAt = start.On(date)
		if startsAt.Before(now) {
			inPast = true
			errs.add(ViolationInPast, "booking cannot start in the past")
		}
	}

	if know {
		windows, err := c.VenueWindows(ctx, in.Venue.ID, day)
		if err != nil {
			return ValidationResult{}, err
		}
		if !Covered(iv, windows) {
			errs.add(ViolationOutsideHours, "%s is outside opening hours on %s", iv, day)
		}
	}

	staffOK := false
	if in.Service.RequiresStaff {
		if in.StaffMemberID == nil {
			errs.add(ViolationStaffRequired, "service requires a staff member")
		} else {
			can, err := c.CanStaffPerformService(ctx, *in.StaffMemberID, in.Service.ID)
			if err != nil {
				return ValidationResult{}, err
			}
			if !can {
				errs.add(ViolationStaffCannotPerform, "staff member cannot perform this service")
			}
			staffOK = can
			if know {
				working, err := c.StaffWorking(ctx, *in.StaffMemberID, day, iv)
				if err != nil {
					return ValidationResult{}, err
				}
				if !working {
					errs.add(ViolationStaffOutsideHours, "%s is outside the staff member's hours on %s", iv, day)
					staffOK = false
				}
			}
		}
	}

	party := PartySizeOrDefault(in.PartySize)
	partyOK := true
	if in.Service.RequiresStaff {
		party = 1
	} else if party < 1 || party > in.Service.Capacity {
		partyOK = false
		errs.add(ViolationInvalidPartySize, "party_size must be between 1 and %d", in.Service.Capacity)
	}

	if know {
		dateKey := date.Format(domain.DateLayout)
		switch {
		case !in.Service.RequiresStaff && partyOK:
			remaining, err := c.RemainingCapacity(ctx, in.Service, dateKey, iv, in.ExcludeBookingID)
			if err != nil {
				return ValidationResult{}, err
			}
			if remaining < party {
				errs.add(ViolationCapacityExceeded, "only %d of %d places left for %s", remaining, in.Service.Capacity, iv)
			}
		case in.Service.RequiresStaff && staffOK:
			free, err := c.StaffFree(ctx, *in.StaffMemberID, dateKey, iv, in.ExcludeBookingID)
			if err != nil {
				return ValidationResult{}, err
			}
			if !free {
				errs.add(ViolationStaffUnavailable, "staff member is already booked for %s", iv)
			}
		}
	}

	if !in.BypassAdvanceHours && !startsAt.IsZero() && !inPast && in.Venue.BookingAdvanceHours > 0 {
		earliest := now.Add(time.Duration(in.Venue.BookingAdvanceHours) * time.Hour)
		if startsAt.Before(earliest) {
			errs.add(ViolationAdvanceNotice, "bookings must be made at least %d hours in advance", in.Venue.BookingAdvanceHours)
		}
	}

	if errs == nil {
		errs = violations{}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}, nil
}
