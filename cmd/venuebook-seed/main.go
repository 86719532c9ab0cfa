package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"venuebook/backend/internal/config"
	"venuebook/backend/internal/domain"
	"venuebook/backend/internal/store/sqlstore"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "venuebook-seed"),
	)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	db, err := sqlstore.Open(cfg.Database.URL, sqlstore.PoolConfig{MaxOpenConns: 1})
	if err != nil {
		log.Error("database connection failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := sqlstore.Close(db); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if !sqlstore.IsPostgresURL(cfg.Database.URL) {
		if err := sqlstore.CreateSchema(ctx, db); err != nil {
			log.Error("schema create failed", slog.Any("err", err))
			os.Exit(1)
		}
	}

	if err := seed(ctx, log, sqlstore.NewCatalogRepo(db)); err != nil {
		log.Error("seed failed", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("seed complete")
}

func weekly(venueID, staffID *int64, days []domain.Weekday, start, end string) []domain.AvailabilityRule {
	rules := make([]domain.AvailabilityRule, 0, len(days))
	for _, d := range days {
		rules = append(rules, domain.AvailabilityRule{
			VenueID:       venueID,
			StaffMemberID: staffID,
			DayOfWeek:     d,
			StartTime:     domain.MustTimeOfDay(start),
			EndTime:       domain.MustTimeOfDay(end),
			IsActive:      true,
		})
	}
	return rules
}

var (
	weekdays = []domain.Weekday{domain.Tuesday, domain.Wednesday, domain.Thursday, domain.Friday, domain.Saturday}
	allWeek  = []domain.Weekday{domain.Monday, domain.Tuesday, domain.Wednesday, domain.Thursday, domain.Friday, domain.Saturday}
)

// seed creates one restaurant with lunch and dinner sittings and one salon with two
// stylists on different shifts.
func seed(ctx context.Context, log *slog.Logger, catalog *sqlstore.CatalogRepo) error {
	bistro, err := catalog.CreateVenue(ctx, domain.Venue{
		Name:                    "Harbour Bistro",
		Category:                domain.VenueCategoryRestaurant,
		BookingAdvanceHours:     2,
		CancellationWindowHours: 24,
	})
	if err != nil {
		return fmt.Errorf("create venue: %w", err)
	}
	table, err := catalog.CreateService(ctx, domain.Service{
		VenueID:         bistro.ID,
		Name:            "Dinner table",
		DurationMinutes: 90,
		Capacity:        40,
		RequiresStaff:   bistro.Category.RequiresStaffByDefault(),
	})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	var rules []domain.AvailabilityRule
	rules = append(rules, weekly(&bistro.ID, nil, weekdays, "11:30", "15:00")...)
	rules = append(rules, weekly(&bistro.ID, nil, weekdays, "17:00", "22:00")...)
	rules = append(rules, weekly(&bistro.ID, nil, []domain.Weekday{domain.Monday}, "17:00", "22:00")...)

	salon, err := catalog.CreateVenue(ctx, domain.Venue{
		Name:                    "Studio Cut",
		Category:                domain.VenueCategorySalon,
		CancellationWindowHours: 12,
		SlotStepMinutes:         15,
	})
	if err != nil {
		return fmt.Errorf("create venue: %w", err)
	}
	cut, err := catalog.CreateService(ctx, domain.Service{
		VenueID:         salon.ID,
		Name:            "Haircut",
		DurationMinutes: 45,
		Capacity:        1,
		RequiresStaff:   salon.Category.RequiresStaffByDefault(),
		Price:           35,
	})
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	rules = append(rules, weekly(&salon.ID, nil, allWeek, "09:00", "19:00")...)

	for _, shift := range []struct {
		name       string
		start, end string
	}{
		{"Mara", "09:00", "15:00"},
		{"Jonas", "13:00", "19:00"},
	} {
		m, err := catalog.CreateStaffMember(ctx, domain.StaffMember{VenueID: salon.ID, Name: shift.name, IsActive: true}, cut.ID)
		if err != nil {
			return fmt.Errorf("create staff member: %w", err)
		}
		rules = append(rules, weekly(nil, &m.ID, allWeek, shift.start, shift.end)...)
	}

	if err := catalog.AddRules(ctx, rules...); err != nil {
		return fmt.Errorf("add rules: %w", err)
	}

	log.Info("seeded",
		slog.Int64("restaurant_id", bistro.ID),
		slog.Int64("restaurant_service_id", table.ID),
		slog.Int64("salon_id", salon.ID),
		slog.Int64("salon_service_id", cut.ID),
		slog.Int("rules", len(rules)),
	)
	return nil
}
