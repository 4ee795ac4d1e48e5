package space

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Honeysuckle52/interior/core"
)

var (
	// errors
	ErrNotFound      = errors.New("space not found")
	ErrPriceNotFound = errors.New("price not found")
	ErrSlugExists    = errors.New("a space with this title already exists")
)

type (
	Repository interface {
		CreateSpace(ctx context.Context, sp Space) (Space, error)
		// QuerySpaces applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Title, Address or Description.
		// Inactive spaces are excluded unless includeInactive is set.
		QuerySpaces(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, includeInactive bool) ([]Space, error)
		GetSpace(ctx context.Context, filter GetFilter) (Space, error)
		UpdateSpace(ctx context.Context, sp Space) (Space, error)
		IncrementSpaceViews(ctx context.Context, id string) error
		DeleteSpacesByID(ctx context.Context, ids []string) (int, error)

		QueryCategories(ctx context.Context) ([]Category, error)
		QueryCities(ctx context.Context) ([]City, error)
		QueryPricingPeriods(ctx context.Context) ([]PricingPeriod, error)
		GetPricingPeriod(ctx context.Context, id string) (PricingPeriod, error)
		GetPrice(ctx context.Context, spaceID, periodID string) (Price, error)
	}

	Service interface {
		Create(ns NewSpace, ownerID string) (Space, error)
		Query(filter *QueryFilter, ordering []core.DBOrdering) ([]Space, error)
		Featured() ([]Space, error)
		GetByID(id string) (Space, error)
		GetBySlug(slug string) (Space, error)
		// View returns the space and bumps its view counter.
		View(id string) (Space, error)
		Update(sp Space) (Space, error)
		Delete(ids ...string) error

		Categories() ([]Category, error)
		Cities() ([]City, error)
		PricingPeriods() ([]PricingPeriod, error)
		PricingPeriod(id string) (PricingPeriod, error)
		Price(spaceID, periodID string) (Price, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ns NewSpace, ownerID string) (Space, error) {
	now := time.Now().UTC()
	sp := Space{
		Title:       ns.Title,
		Slug:        Slugify(ns.Title),
		Address:     ns.Address,
		CityID:      ns.CityID,
		CategoryID:  ns.CategoryID,
		AreaSqm:     ns.AreaSqm,
		MaxCapacity: ns.MaxCapacity,
		Description: ns.Description,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	active := true
	sp.IsActive = &active

	sp, err := svc.repo.CreateSpace(context.TODO(), sp)
	if err != nil {
		if errors.Cause(err) == ErrSlugExists {
			return Space{}, core.NewValidationError(err, core.FieldError{Field: "title", Error: err.Error()})
		}
		return Space{}, err
	}
	return sp, nil
}

func (svc *service) Query(filter *QueryFilter, ordering []core.DBOrdering) ([]Space, error) {
	return svc.repo.QuerySpaces(context.TODO(), filter, ordering, false)
}

func (svc *service) Featured() ([]Space, error) {
	featured := true
	return svc.repo.QuerySpaces(context.TODO(), &QueryFilter{Featured: &featured}, nil, false)
}

func (svc *service) GetByID(id string) (Space, error) {
	return svc.repo.GetSpace(context.TODO(), GetFilter{ID: id})
}

func (svc *service) GetBySlug(slug string) (Space, error) {
	return svc.repo.GetSpace(context.TODO(), GetFilter{Slug: core.CleanString(slug, true /* lower */)})
}

func (svc *service) View(id string) (Space, error) {
	sp, err := svc.GetByID(id)
	if err != nil {
		return Space{}, err
	}
	if err := svc.repo.IncrementSpaceViews(context.TODO(), id); err != nil {
		return Space{}, errors.Wrap(err, "incrementing views")
	}
	sp.ViewsCount++
	return sp, nil
}

func (svc *service) Update(sp Space) (Space, error) {
	sp.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSpace(context.TODO(), sp)
}

func (svc *service) Delete(ids ...string) error {
	_, err := svc.repo.DeleteSpacesByID(context.TODO(), ids)
	return err
}

func (svc *service) Categories() ([]Category, error) {
	return svc.repo.QueryCategories(context.TODO())
}

func (svc *service) Cities() ([]City, error) {
	return svc.repo.QueryCities(context.TODO())
}

func (svc *service) PricingPeriods() ([]PricingPeriod, error) {
	return svc.repo.QueryPricingPeriods(context.TODO())
}

func (svc *service) PricingPeriod(id string) (PricingPeriod, error) {
	return svc.repo.GetPricingPeriod(context.TODO(), id)
}

func (svc *service) Price(spaceID, periodID string) (Price, error) {
	return svc.repo.GetPrice(context.TODO(), spaceID, periodID)
}
