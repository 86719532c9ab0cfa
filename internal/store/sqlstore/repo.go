package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"venuebook/backend/internal/domain"
	"venuebook/backend/internal/store"
)

type BookingRepo struct {
	db *bun.DB
}

var _ store.BookingRepository = (*BookingRepo)(nil)

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

// reader implements store.Reader over any bun executor, so the same queries serve
// read snapshots and locked write transactions.
type reader struct {
	db bun.IDB
}

type bookingTx struct {
	reader
	tx bun.Tx
}

func (r *BookingRepo) snapshotOptions() *sql.TxOptions {
	if isPostgres(r.db) {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

func (r *BookingRepo) InSnapshot(ctx context.Context, fn func(ctx context.Context, rd store.Reader) error) error {
	return r.db.RunInTx(ctx, r.snapshotOptions(), func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, reader{db: tx})
	})
}

func (r *BookingRepo) InBookingTransaction(ctx context.Context, lockKey string, fn func(ctx context.Context, tx store.BookingTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockResource(ctx, tx, lockKey); err != nil {
			return err
		}
		return fn(ctx, bookingTx{reader: reader{db: tx}, tx: tx})
	})
}

// lockResource serializes booking transactions on the same resource key until commit.
// SQLite pools are a single connection, so transactions are already serial there.
func lockResource(ctx context.Context, tx bun.Tx, key string) error {
	if !isPostgres(tx) {
		return nil
	}
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", key).Exec(ctx)
	return err
}

func (r *BookingRepo) SetBookingStatus(ctx context.Context, id uuid.UUID, from, to domain.BookingStatus) (domain.Booking, error) {
	var out domain.Booking
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*domain.Booking)(nil)).
			Set("status = ?", to).
			Set("updated_at = ?", time.Now().UTC()).
			Where("id = ?", id).
			Where("status = ?", from).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			if _, err := (reader{db: tx}).GetBooking(ctx, id); err != nil {
				return err
			}
			return store.ErrConflict
		}
		b, err := (reader{db: tx}).GetBooking(ctx, id)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return out, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func (r reader) GetVenue(ctx context.Context, id int64) (domain.Venue, error) {
	var v domain.Venue
	if err := r.db.NewSelect().Model(&v).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return domain.Venue{}, notFound(err)
	}
	return v, nil
}

func (r reader) GetService(ctx context.Context, id int64) (domain.Service, error) {
	var s domain.Service
	if err := r.db.NewSelect().Model(&s).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return domain.Service{}, notFound(err)
	}
	return s, nil
}

func (r reader) GetStaffMember(ctx context.Context, id int64) (domain.StaffMember, error) {
	var m domain.StaffMember
	if err := r.db.NewSelect().Model(&m).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return domain.StaffMember{}, notFound(err)
	}
	return m, nil
}

func (r reader) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	if err := r.db.NewSelect().Model(&b).Where("id = ?", id).Limit(1).Scan(ctx); err != nil {
		return domain.Booking{}, notFound(err)
	}
	return b, nil
}

func (r reader) ListVenueRules(ctx context.Context, venueID int64, day domain.Weekday) ([]domain.AvailabilityRule, error) {
	return r.listRules(ctx, "venue_id", venueID, day)
}

func (r reader) ListStaffRules(ctx context.Context, staffID int64, day domain.Weekday) ([]domain.AvailabilityRule, error) {
	return r.listRules(ctx, "staff_member_id", staffID, day)
}

func (r reader) listRules(ctx context.Context, ownerColumn string, ownerID int64, day domain.Weekday) ([]domain.AvailabilityRule, error) {
	var rows []domain.AvailabilityRule
	err := r.db.NewSelect().
		Model(&rows).
		Where("? = ?", bun.Ident(ownerColumn), ownerID).
		Where("day_of_week = ?", day).
		Where("is_active = ?", true).
		OrderExpr("start_time ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r reader) StaffCanPerform(ctx context.Context, staffID, serviceID int64) (bool, error) {
	return r.db.NewSelect().
		Model((*domain.StaffService)(nil)).
		Where("staff_member_id = ?", staffID).
		Where("service_id = ?", serviceID).
		Exists(ctx)
}

func (r reader) ListCapableStaff(ctx context.Context, venueID, serviceID int64) ([]domain.StaffMember, error) {
	var rows []domain.StaffMember
	err := r.db.NewSelect().
		Model(&rows).
		Join("JOIN staff_services AS ss ON ss.staff_member_id = staff_member.id").
		Where("staff_member.venue_id = ?", venueID).
		Where("staff_member.is_active = ?", true).
		Where("ss.service_id = ?", serviceID).
		OrderExpr("staff_member.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r reader) ListActiveBookings(ctx context.Context, f store.BookingFilter) ([]domain.Booking, error) {
	var rows []domain.Booking
	q := r.db.NewSelect().
		Model(&rows).
		Where("booking_date = ?", f.Date).
		Where("status IN (?)", bun.In(domain.ActiveBookingStatuses))
	if f.StaffMemberID != 0 {
		q = q.Where("staff_member_id = ?", f.StaffMemberID)
	} else {
		q = q.Where("venue_id = ?", f.VenueID).Where("service_id = ?", f.ServiceID)
	}
	if f.ExcludeID != uuid.Nil {
		q = q.Where("id <> ?", f.ExcludeID)
	}
	if err := q.OrderExpr("start_time ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (t bookingTx) InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	m := b
	_, err := t.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" && pgErr.ConstraintName == "bookings_pkey" {
				return domain.Booking{}, store.ErrIdempotencyConflict
			}
		}
		return domain.Booking{}, err
	}
	return m, nil
}
