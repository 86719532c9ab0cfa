package availability

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"venuebook/backend/internal/domain"
	"venuebook/backend/internal/store"
)

// Checker answers capacity and staff-freedom questions against one read view.
// It memoizes rule and booking reads, so one Checker must not outlive its snapshot.
type Checker struct {
	r store.Reader

	bookings   map[store.BookingFilter][]domain.Booking
	venueRules map[ruleKey][]domain.Interval
	staffRules map[ruleKey][]domain.Interval
	capable    map[[2]int64]bool
	staff      map[[2]int64][]domain.StaffMember
}

type ruleKey struct {
	owner int64
	day   domain.Weekday
}

func NewChecker(r store.Reader) *Checker {
	return &Checker{
		r:          r,
		bookings:   make(map[store.BookingFilter][]domain.Booking),
		venueRules: make(map[ruleKey][]domain.Interval),
		staffRules: make(map[ruleKey][]domain.Interval),
		capable:    make(map[[2]int64]bool),
		staff:      make(map[[2]int64][]domain.StaffMember),
	}
}

// VenueWindows returns the active rule windows of a venue for a weekday.
func (c *Checker) VenueWindows(ctx context.Context, venueID int64, day domain.Weekday) ([]domain.Interval, error) {
	key := ruleKey{owner: venueID, day: day}
	if w, ok := c.venueRules[key]; ok {
		return w, nil
	}
	rules, err := c.r.ListVenueRules(ctx, venueID, day)
	if err != nil {
		return nil, fmt.Errorf("list venue rules: %w", err)
	}
	w := ruleWindows(rules)
	c.venueRules[key] = w
	return w, nil
}

// StaffWindows returns the active rule windows of a staff member for a weekday.
func (c *Checker) StaffWindows(ctx context.Context, staffID int64, day domain.Weekday) ([]domain.Interval, error) {
	key := ruleKey{owner: staffID, day: day}
	if w, ok := c.staffRules[key]; ok {
		return w, nil
	}
	rules, err := c.r.ListStaffRules(ctx, staffID, day)
	if err != nil {
		return nil, fmt.Errorf("list staff rules: %w", err)
	}
	w := ruleWindows(rules)
	c.staffRules[key] = w
	return w, nil
}

func (c *Checker) activeBookings(ctx context.Context, f store.BookingFilter) ([]domain.Booking, error) {
	if b, ok := c.bookings[f]; ok {
		return b, nil
	}
	b, err := c.r.ListActiveBookings(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list active bookings: %w", err)
	}
	c.bookings[f] = b
	return b, nil
}

// CanStaffPerformService is a pure capability lookup.
func (c *Checker) CanStaffPerformService(ctx context.Context, staffID, serviceID int64) (bool, error) {
	key := [2]int64{staffID, serviceID}
	if ok, cached := c.capable[key]; cached {
		return ok, nil
	}
	ok, err := c.r.StaffCanPerform(ctx, staffID, serviceID)
	if err != nil {
		return false, fmt.Errorf("staff capability: %w", err)
	}
	c.capable[key] = ok
	return ok, nil
}

// RemainingCapacity is service capacity minus the party sizes of overlapping active
// bookings for the same venue, service and date, clamped to [0, capacity].
func (c *Checker) RemainingCapacity(ctx context.Context, svc domain.Service, date string, iv domain.Interval, exclude uuid.UUID) (int, error) {
	bookings, err := c.activeBookings(ctx, store.BookingFilter{
		VenueID:   svc.VenueID,
		ServiceID: svc.ID,
		Date:      date,
		ExcludeID: exclude,
	})
	if err != nil {
		return 0, err
	}
	return remainingCapacity(svc.Capacity, bookings, iv, exclude), nil
}

func remainingCapacity(capacity int, bookings []domain.Booking, iv domain.Interval, exclude uuid.UUID) int {
	used := 0
	for _, b := range bookings {
		if b.ID == exclude && exclude != uuid.Nil {
			continue
		}
		if !b.Status.Active() || !b.Interval().Overlaps(iv) {
			continue
		}
		used += b.PartySize
	}
	remaining := capacity - used
	if remaining < 0 {
		return 0
	}
	if remaining > capacity {
		return capacity
	}
	return remaining
}

// StaffFree reports whether the staff member has no overlapping active booking on date.
func (c *Checker) StaffFree(ctx context.Context, staffID int64, date string, iv domain.Interval, exclude uuid.UUID) (bool, error) {
	bookings, err := c.activeBookings(ctx, store.BookingFilter{
		StaffMemberID: staffID,
		Date:          date,
		ExcludeID:     exclude,
	})
	if err != nil {
		return false, err
	}
	for _, b := range bookings {
		if b.ID == exclude && exclude != uuid.Nil {
			continue
		}
		if b.Status.Active() && b.Interval().Overlaps(iv) {
			return false, nil
		}
	}
	return true, nil
}

// StaffWorking reports whether iv lies inside the staff member's own windows for day.
func (c *Checker) StaffWorking(ctx context.Context, staffID int64, day domain.Weekday, iv domain.Interval) (bool, error) {
	windows, err := c.StaffWindows(ctx, staffID, day)
	if err != nil {
		return false, err
	}
	return Covered(iv, windows), nil
}

// FreeStaff lists capable, working and free staff for iv by ascending id.
// The first element is the deterministic auto-assignment.
func (c *Checker) FreeStaff(ctx context.Context, svc domain.Service, date string, day domain.Weekday, iv domain.Interval, exclude uuid.UUID) ([]domain.StaffMember, error) {
	staff, err := c.capableStaff(ctx, svc)
	if err != nil {
		return nil, err
	}
	var out []domain.StaffMember
	for _, m := range staff {
		working, err := c.StaffWorking(ctx, m.ID, day, iv)
		if err != nil {
			return nil, err
		}
		if !working {
			continue
		}
		free, err := c.StaffFree(ctx, m.ID, date, iv, exclude)
		if err != nil {
			return nil, err
		}
		if free {
			out = append(out, m)
		}
	}
	return out, nil
}

func (c *Checker) capableStaff(ctx context.Context, svc domain.Service) ([]domain.StaffMember, error) {
	key := [2]int64{svc.VenueID, svc.ID}
	if s, ok := c.staff[key]; ok {
		return s, nil
	}
	staff, err := c.r.ListCapableStaff(ctx, svc.VenueID, svc.ID)
	if err != nil {
		return nil, fmt.Errorf("list capable staff: %w", err)
	}
	staff = slices.Clone(staff)
	slices.SortFunc(staff, func(a, b domain.StaffMember) int { return cmp.Compare(a.ID, b.ID) })
	c.staff[key] = staff
	return staff, nil
}
