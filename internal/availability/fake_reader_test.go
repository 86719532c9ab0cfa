package availability

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"venuebook/backend/internal/domain"
	"venuebook/backend/internal/store"
)

type fakeReader struct {
	venues   map[int64]domain.Venue
	services map[int64]domain.Service
	staff    map[int64]domain.StaffMember
	rules    []domain.AvailabilityRule
	capable  map[[2]int64]bool
	bookings []domain.Booking

	bookingReads int
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		venues:   map[int64]domain.Venue{},
		services: map[int64]domain.Service{},
		staff:    map[int64]domain.StaffMember{},
		capable:  map[[2]int64]bool{},
	}
}

func (f *fakeReader) venueRule(venueID int64, day domain.Weekday, start, end string) {
	id := venueID
	f.rules = append(f.rules, domain.AvailabilityRule{
		VenueID: &id, DayOfWeek: day,
		StartTime: domain.MustTimeOfDay(start), EndTime: domain.MustTimeOfDay(end),
		IsActive: true,
	})
}

func (f *fakeReader) staffRule(staffID int64, day domain.Weekday, start, end string) {
	id := staffID
	f.rules = append(f.rules, domain.AvailabilityRule{
		StaffMemberID: &id, DayOfWeek: day,
		StartTime: domain.MustTimeOfDay(start), EndTime: domain.MustTimeOfDay(end),
		IsActive: true,
	})
}

func (f *fakeReader) book(b domain.Booking) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = domain.BookingConfirmed
	}
	f.bookings = append(f.bookings, b)
}

func (f *fakeReader) GetVenue(ctx context.Context, id int64) (domain.Venue, error) {
	v, ok := f.venues[id]
	if !ok {
		return domain.Venue{}, store.ErrNotFound
	}
	return v, nil
}

func (f *fakeReader) GetService(ctx context.Context, id int64) (domain.Service, error) {
	s, ok := f.services[id]
	if !ok {
		return domain.Service{}, store.ErrNotFound
	}
	return s, nil
}

func (f *fakeReader) GetStaffMember(ctx context.Context, id int64) (domain.StaffMember, error) {
	s, ok := f.staff[id]
	if !ok {
		return domain.StaffMember{}, store.ErrNotFound
	}
	return s, nil
}

func (f *fakeReader) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	for _, b := range f.bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return domain.Booking{}, store.ErrNotFound
}

func (f *fakeReader) ListVenueRules(ctx context.Context, venueID int64, day domain.Weekday) ([]domain.AvailabilityRule, error) {
	var out []domain.AvailabilityRule
	for _, r := range f.rules {
		if r.VenueID != nil && *r.VenueID == venueID && r.DayOfWeek == day && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReader) ListStaffRules(ctx context.Context, staffID int64, day domain.Weekday) ([]domain.AvailabilityRule, error) {
	var out []domain.AvailabilityRule
	for _, r := range f.rules {
		if r.StaffMemberID != nil && *r.StaffMemberID == staffID && r.DayOfWeek == day && r.IsActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReader) StaffCanPerform(ctx context.Context, staffID, serviceID int64) (bool, error) {
	return f.capable[[2]int64{staffID, serviceID}], nil
}

func (f *fakeReader) ListCapableStaff(ctx context.Context, venueID, serviceID int64) ([]domain.StaffMember, error) {
	var out []domain.StaffMember
	for _, m := range f.staff {
		if m.VenueID == venueID && m.IsActive && f.capable[[2]int64{m.ID, serviceID}] {
			out = append(out, m)
		}
	}
	// map order is random; the checker must sort on its own
	slices.Reverse(out)
	return out, nil
}

func (f *fakeReader) ListActiveBookings(ctx context.Context, filter store.BookingFilter) ([]domain.Booking, error) {
	f.bookingReads++
	var out []domain.Booking
	for _, b := range f.bookings {
		if b.Date != filter.Date || !b.Status.Active() {
			continue
		}
		if filter.ExcludeID != uuid.Nil && b.ID == filter.ExcludeID {
			continue
		}
		if filter.StaffMemberID != 0 {
			if b.StaffMemberID == nil || *b.StaffMemberID != filter.StaffMemberID {
				continue
			}
		} else if b.VenueID != filter.VenueID || b.ServiceID != filter.ServiceID {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}
