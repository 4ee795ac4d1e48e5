package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/Honeysuckle52/interior/core"
	"github.com/Honeysuckle52/interior/core/space"
)

type spaceRepository struct {
	db *sqlx.DB
}

var _ space.Repository = (*spaceRepository)(nil) // interface compliance check

func NewSpaceRepository(db *sqlx.DB) space.Repository {
	return &spaceRepository{db: db}
}

type spaceRow struct {
	ID          string          `db:"id"`
	OwnerID     string          `db:"owner_id"`
	CityID      string          `db:"city_id"`
	CategoryID  string          `db:"category_id"`
	Title       string          `db:"title"`
	Slug        string          `db:"slug"`
	Description string          `db:"description"`
	Address     string          `db:"address"`
	AreaSqm     decimal.Decimal `db:"area_sqm"`
	MaxCapacity int             `db:"max_capacity"`
	IsActive    null.Bool       `db:"is_active"`
	IsFeatured  bool            `db:"is_featured"`
	ViewsCount  int             `db:"views_count"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`

	AvgRating float64         `db:"avg_rating"`
	MinPrice  decimal.Decimal `db:"min_price"`
}

type imageRow struct {
	ID        string `db:"id"`
	SpaceID   string `db:"space_id"`
	URL       string `db:"url"`
	AltText   string `db:"alt_text"`
	IsPrimary bool   `db:"is_primary"`
	SortOrder int    `db:"sort_order"`
}

type priceRow struct {
	ID         string          `db:"id"`
	SpaceID    string          `db:"space_id"`
	PeriodID   string          `db:"period_id"`
	Price      decimal.Decimal `db:"price"`
	IsActive   null.Bool       `db:"is_active"`
	MinPeriods int             `db:"min_periods"`
	MaxPeriods int             `db:"max_periods"`
}

// selectSpaces pulls spaces along with their approved average rating and
// lowest active price.
const selectSpaces = `
	SELECT s.*,
	       COALESCE((SELECT AVG(r.rating) FROM review r WHERE r.space_id = s.id AND r.is_approved), 0)          AS avg_rating,
	       COALESCE((SELECT MIN(p.price) FROM space_price p WHERE p.space_id = s.id AND COALESCE(p.is_active, TRUE)), 0) AS min_price
	FROM space s`

func (repo spaceRepository) row(sp space.Space) spaceRow {
	return spaceRow{
		ID:          sp.ID,
		OwnerID:     sp.OwnerID,
		CityID:      sp.CityID,
		CategoryID:  sp.CategoryID,
		Title:       sp.Title,
		Slug:        sp.Slug,
		Description: sp.Description,
		Address:     sp.Address,
		AreaSqm:     sp.AreaSqm,
		MaxCapacity: sp.MaxCapacity,
		IsActive:    null.BoolFromPtr(sp.IsActive),
		IsFeatured:  sp.IsFeatured,
		ViewsCount:  sp.ViewsCount,
		CreatedAt:   sp.CreatedAt.UTC(),
		UpdatedAt:   sp.UpdatedAt.UTC(),
	}
}

func (repo spaceRepository) unrow(row spaceRow) space.Space {
	return space.Space{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		CityID:      row.CityID,
		CategoryID:  row.CategoryID,
		Title:       row.Title,
		Slug:        row.Slug,
		Description: row.Description,
		Address:     row.Address,
		AreaSqm:     row.AreaSqm,
		MaxCapacity: row.MaxCapacity,
		IsActive:    row.IsActive.Ptr(),
		IsFeatured:  row.IsFeatured,
		ViewsCount:  row.ViewsCount,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		AvgRating:   row.AvgRating,
		MinPrice:    row.MinPrice,
	}
}

// trapNoRowsErr maps psql "no rows" err to space.ErrNotFound
func (repo spaceRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return space.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo spaceRepository) CreateSpace(ctx context.Context, sp space.Space) (space.Space, error) {
	sp.ID = uuid.New().String()
	row := repo.row(sp)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO space (id, owner_id, city_id, category_id, title, slug, description, address, area_sqm, max_capacity, is_active, is_featured, views_count, created_at, updated_at)
		VALUES (:id, :owner_id, :city_id, :category_id, :title, :slug, :description, :address, :area_sqm, :max_capacity, :is_active, :is_featured, :views_count, :created_at, :updated_at)`,
		row)
	if err != nil {
		if strings.Contains(err.Error(), "space_slug_key") {
			return space.Space{}, space.ErrSlugExists
		}
		return space.Space{}, errors.Wrap(err, "inserting space")
	}
	sp.Images = nil
	sp.Prices = nil
	return sp, nil
}

func (repo spaceRepository) QuerySpaces(ctx context.Context, filter *space.QueryFilter, ordering []core.DBOrdering, includeInactive bool) ([]space.Space, error) {
	var conds []string
	var args []interface{}

	if !includeInactive {
		conds = append(conds, "COALESCE(s.is_active, FALSE)")
	}
	if filter != nil {
		if filter.Search != "" {
			conds = append(conds, "(s.title ILIKE ? OR s.address ILIKE ? OR s.description ILIKE ?)")
			val := "%" + filter.Search + "%"
			args = append(args, val, val, val)
		}
		if filter.CityID != "" {
			conds = append(conds, "s.city_id = ?")
			args = append(args, filter.CityID)
		}
		if filter.CategoryID != "" {
			conds = append(conds, "s.category_id = ?")
			args = append(args, filter.CategoryID)
		}
		if filter.MinCapacity > 0 {
			conds = append(conds, "s.max_capacity >= ?")
			args = append(args, filter.MinCapacity)
		}
		if !filter.MaxPrice.IsZero() {
			conds = append(conds, `EXISTS (
				SELECT 1 FROM space_price p
				WHERE p.space_id = s.id AND COALESCE(p.is_active, TRUE) AND p.price <= ?)`)
			args = append(args, filter.MaxPrice)
		}
		if filter.Featured != nil {
			conds = append(conds, "s.is_featured = ?")
			args = append(args, *filter.Featured)
		}
	}

	query := selectSpaces
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY " + orderBy(ordering, "s.created_at DESC")

	var rows []spaceRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "querying spaces")
	}

	spaces := make([]space.Space, 0, len(rows))
	for _, row := range rows {
		spaces = append(spaces, repo.unrow(row))
	}
	if err := repo.loadRelations(ctx, spaces); err != nil {
		return nil, err
	}
	return spaces, nil
}

func (repo spaceRepository) GetSpace(ctx context.Context, filter space.GetFilter) (space.Space, error) {
	var cond string
	var arg interface{}
	switch {
	case filter.ID != "":
		cond, arg = "s.id = ?", filter.ID
	case filter.Slug != "":
		cond, arg = "s.slug = ?", filter.Slug
	default:
		return space.Space{}, space.ErrNotFound
	}

	var row spaceRow
	query := selectSpaces + " WHERE " + cond
	if err := repo.db.GetContext(ctx, &row, repo.db.Rebind(query), arg); err != nil {
		return space.Space{}, repo.trapNoRowsErr(err, "getting space")
	}

	spaces := []space.Space{repo.unrow(row)}
	if err := repo.loadRelations(ctx, spaces); err != nil {
		return space.Space{}, err
	}
	return spaces[0], nil
}

func (repo spaceRepository) UpdateSpace(ctx context.Context, sp space.Space) (space.Space, error) {
	sp.UpdatedAt = time.Now().UTC()
	row := repo.row(sp)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE space
		SET city_id = :city_id, category_id = :category_id, title = :title, slug = :slug,
		    description = :description, address = :address, area_sqm = :area_sqm,
		    max_capacity = :max_capacity, is_active = :is_active, is_featured = :is_featured,
		    updated_at = :updated_at
		WHERE id = :id`,
		row)
	if err != nil {
		return space.Space{}, errors.Wrap(err, "updating space")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return space.Space{}, space.ErrNotFound
	}
	return repo.GetSpace(ctx, space.GetFilter{ID: sp.ID})
}

func (repo spaceRepository) IncrementSpaceViews(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx,
		repo.db.Rebind("UPDATE space SET views_count = views_count + 1 WHERE id = ?"), id)
	return errors.Wrap(err, "incrementing space views")
}

func (repo spaceRepository) DeleteSpacesByID(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In("DELETE FROM space WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting spaces")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting spaces")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// loadRelations populates Images and Prices for the given spaces in two
// queries.
func (repo spaceRepository) loadRelations(ctx context.Context, spaces []space.Space) error {
	if len(spaces) == 0 {
		return nil
	}
	ids := make([]string, 0, len(spaces))
	index := make(map[string]*space.Space, len(spaces))
	for i := range spaces {
		ids = append(ids, spaces[i].ID)
		index[spaces[i].ID] = &spaces[i]
	}

	query, args, err := sqlx.In("SELECT * FROM space_image WHERE space_id IN (?) ORDER BY sort_order", ids)
	if err != nil {
		return errors.Wrap(err, "loading space images")
	}
	var images []imageRow
	if err := repo.db.SelectContext(ctx, &images, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "loading space images")
	}
	for _, img := range images {
		sp := index[img.SpaceID]
		sp.Images = append(sp.Images, space.Image{
			ID:        img.ID,
			SpaceID:   img.SpaceID,
			URL:       img.URL,
			AltText:   img.AltText,
			IsPrimary: img.IsPrimary,
			SortOrder: img.SortOrder,
		})
	}

	query, args, err = sqlx.In("SELECT * FROM space_price WHERE space_id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "loading space prices")
	}
	var prices []priceRow
	if err := repo.db.SelectContext(ctx, &prices, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "loading space prices")
	}
	for _, pr := range prices {
		sp := index[pr.SpaceID]
		sp.Prices = append(sp.Prices, space.Price{
			ID:         pr.ID,
			SpaceID:    pr.SpaceID,
			PeriodID:   pr.PeriodID,
			Price:      pr.Price,
			IsActive:   pr.IsActive.Ptr(),
			MinPeriods: pr.MinPeriods,
			MaxPeriods: pr.MaxPeriods,
		})
	}
	return nil
}

func (repo spaceRepository) QueryCategories(ctx context.Context) ([]space.Category, error) {
	var rows []struct {
		ID          string    `db:"id"`
		Name        string    `db:"name"`
		Slug        string    `db:"slug"`
		Icon        string    `db:"icon"`
		Description string    `db:"description"`
		IsActive    null.Bool `db:"is_active"`
	}
	if err := repo.db.SelectContext(ctx, &rows, "SELECT * FROM space_category ORDER BY name"); err != nil {
		return nil, errors.Wrap(err, "querying categories")
	}
	cats := make([]space.Category, 0, len(rows))
	for _, row := range rows {
		cats = append(cats, space.Category{
			ID:          row.ID,
			Name:        row.Name,
			Slug:        row.Slug,
			Icon:        row.Icon,
			Description: row.Description,
			IsActive:    row.IsActive.Ptr(),
		})
	}
	return cats, nil
}

func (repo spaceRepository) QueryCities(ctx context.Context) ([]space.City, error) {
	var rows []struct {
		ID       string    `db:"id"`
		RegionID string    `db:"region_id"`
		Name     string    `db:"name"`
		IsActive null.Bool `db:"is_active"`
	}
	if err := repo.db.SelectContext(ctx, &rows, "SELECT * FROM city ORDER BY name"); err != nil {
		return nil, errors.Wrap(err, "querying cities")
	}
	cities := make([]space.City, 0, len(rows))
	for _, row := range rows {
		cities = append(cities, space.City{
			ID:       row.ID,
			Name:     row.Name,
			RegionID: row.RegionID,
			IsActive: row.IsActive.Ptr(),
		})
	}
	return cities, nil
}

type periodRow struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	HoursCount  int    `db:"hours_count"`
	SortOrder   int    `db:"sort_order"`
}

func (repo spaceRepository) QueryPricingPeriods(ctx context.Context) ([]space.PricingPeriod, error) {
	var rows []periodRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT * FROM pricing_period ORDER BY sort_order"); err != nil {
		return nil, errors.Wrap(err, "querying pricing periods")
	}
	periods := make([]space.PricingPeriod, 0, len(rows))
	for _, row := range rows {
		periods = append(periods, space.PricingPeriod(row))
	}
	return periods, nil
}

func (repo spaceRepository) GetPricingPeriod(ctx context.Context, id string) (space.PricingPeriod, error) {
	var row periodRow
	if err := repo.db.GetContext(ctx, &row,
		repo.db.Rebind("SELECT * FROM pricing_period WHERE id = ?"), id); err != nil {
		return space.PricingPeriod{}, repo.trapNoRowsErr(err, "getting pricing period")
	}
	return space.PricingPeriod(row), nil
}

func (repo spaceRepository) GetPrice(ctx context.Context, spaceID, periodID string) (space.Price, error) {
	var row priceRow
	err := repo.db.GetContext(ctx, &row,
		repo.db.Rebind("SELECT * FROM space_price WHERE space_id = ? AND period_id = ? AND COALESCE(is_active, TRUE)"),
		spaceID, periodID)
	if err != nil {
		if err == sql.ErrNoRows {
			return space.Price{}, space.ErrPriceNotFound
		}
		return space.Price{}, errors.Wrap(err, "getting price")
	}
	return space.Price{
		ID:         row.ID,
		SpaceID:    row.SpaceID,
		PeriodID:   row.PeriodID,
		Price:      row.Price,
		IsActive:   row.IsActive.Ptr(),
		MinPeriods: row.MinPeriods,
		MaxPeriods: row.MaxPeriods,
	}, nil
}
