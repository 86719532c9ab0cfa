package domain

import "github.com/uptrace/bun"

type VenueCategory string

const (
	VenueCategoryRestaurant VenueCategory = "restaurant"
	VenueCategorySalon      VenueCategory = "salon"
)

// RequiresStaffByDefault reports whether services of this category are staff-based
// unless configured otherwise.
func (c VenueCategory) RequiresStaffByDefault() bool {
	return c == VenueCategorySalon
}

type Venue struct {
	bun.BaseModel `bun:"table:venues"`

	ID       int64         `bun:"id,pk,autoincrement"`
	Name     string        `bun:"name,notnull"`
	Category VenueCategory `bun:"category,notnull"`

	// Per-venue booking policy, read at validation time.
	BookingAdvanceHours     int `bun:"booking_advance_hours,notnull,default:0"`
	CancellationWindowHours int `bun:"cancellation_window_hours,notnull,default:0"`
	// SlotStepMinutes is the grid used for slot generation; 0 means the service duration.
	SlotStepMinutes int `bun:"slot_step_minutes,notnull,default:0"`
}

type Service struct {
	bun.BaseModel `bun:"table:services"`

	ID              int64   `bun:"id,pk,autoincrement"`
	VenueID         int64   `bun:"venue_id,notnull"`
	Name            string  `bun:"name,notnull"`
	DurationMinutes int     `bun:"duration_minutes,notnull"`
	Capacity        int     `bun:"capacity,notnull"`
	RequiresStaff   bool    `bun:"requires_staff,notnull"`
	Price           float64 `bun:"price,notnull,default:0"`
}

type StaffMember struct {
	bun.BaseModel `bun:"table:staff_members,alias:staff_member"`

	ID       int64  `bun:"id,pk,autoincrement"`
	VenueID  int64  `bun:"venue_id,notnull"`
	Name     string `bun:"name,notnull"`
	IsActive bool   `bun:"is_active,notnull"`
}

// StaffService records that a staff member may perform a service.
type StaffService struct {
	bun.BaseModel `bun:"table:staff_services"`

	StaffMemberID int64 `bun:"staff_member_id,pk"`
	ServiceID     int64 `bun:"service_id,pk"`
}

// AvailabilityRule is a recurring weekly window owned by either a venue or a staff member.
// Several rules may exist for the same owner and day; they are never merged.
type AvailabilityRule struct {
	bun.BaseModel `bun:"table:availability_rules"`

	ID            int64     `bun:"id,pk,autoincrement"`
	VenueID       *int64    `bun:"venue_id"`
	StaffMemberID *int64    `bun:"staff_member_id"`
	DayOfWeek     Weekday   `bun:"day_of_week,notnull"`
	StartTime     TimeOfDay `bun:"start_time,notnull,type:varchar(5)"`
	EndTime       TimeOfDay `bun:"end_time,notnull,type:varchar(5)"`
	IsActive      bool      `bun:"is_active,notnull"`
}

func (r AvailabilityRule) Window() Interval {
	return Interval{Start: r.StartTime, End: r.EndTime}
}
