package sqlstore

import (
	"context"

	"github.com/uptrace/bun"

	"venuebook/backend/internal/domain"
)

// CatalogRepo writes venues, services, staff and rules. Owners manage these through
// the admin surface; the booking engine only reads them.
type CatalogRepo struct {
	db bun.IDB
}

func NewCatalogRepo(db bun.IDB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

func (r *CatalogRepo) CreateVenue(ctx context.Context, v domain.Venue) (domain.Venue, error) {
	if _, err := r.db.NewInsert().Model(&v).Returning("id").Exec(ctx); err != nil {
		return domain.Venue{}, err
	}
	return v, nil
}

func (r *CatalogRepo) CreateService(ctx context.Context, s domain.Service) (domain.Service, error) {
	if _, err := r.db.NewInsert().Model(&s).Returning("id").Exec(ctx); err != nil {
		return domain.Service{}, err
	}
	return s, nil
}

func (r *CatalogRepo) CreateStaffMember(ctx context.Context, m domain.StaffMember, serviceIDs ...int64) (domain.StaffMember, error) {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
			return err
		}
		if len(serviceIDs) == 0 {
			return nil
		}
		links := make([]domain.StaffService, 0, len(serviceIDs))
		for _, id := range serviceIDs {
			links = append(links, domain.StaffService{StaffMemberID: m.ID, ServiceID: id})
		}
		_, err := tx.NewInsert().Model(&links).Exec(ctx)
		return err
	})
	if err != nil {
		return domain.StaffMember{}, err
	}
	return m, nil
}

func (r *CatalogRepo) AddRules(ctx context.Context, rules ...domain.AvailabilityRule) error {
	if len(rules) == 0 {
		return nil
	}
	_, err := r.db.NewInsert().Model(&rules).Exec(ctx)
	return err
}
