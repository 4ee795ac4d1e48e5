package space

import (
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Honeysuckle52/interior/core"
)

type (
	// Region is a reference row grouping cities.
	Region struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Code string `json:"code"`
	}

	City struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		RegionID string `json:"region_id"`
		IsActive *bool  `json:"is_active"`
	}

	// Category classifies spaces (office, loft, photo studio, ...).
	Category struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Slug        string `json:"slug"`
		Icon        string `json:"icon"`
		Description string `json:"description,omitempty"`
		IsActive    *bool  `json:"is_active"`
	}

	// PricingPeriod is a rental period unit (hour, day, week, month).
	PricingPeriod struct {
		ID          string `json:"id"`
		Name        string `json:"name"` // code: hour, day, week, month
		Description string `json:"description"`
		HoursCount  int    `json:"hours_count"`
		SortOrder   int    `json:"sort_order"`
	}

	Space struct {
		ID          string          `json:"id"`
		Title       string          `json:"title"`
		Slug        string          `json:"slug"`
		Address     string          `json:"address"`
		CityID      string          `json:"city_id"`
		CategoryID  string          `json:"category_id"`
		AreaSqm     decimal.Decimal `json:"area_sqm"`
		MaxCapacity int             `json:"max_capacity"`
		Description string          `json:"description"`
		OwnerID     string          `json:"owner_id"`
		IsActive    *bool           `json:"is_active"`
		IsFeatured  bool            `json:"is_featured"`
		ViewsCount  int             `json:"views_count"`
		CreatedAt   time.Time       `json:"created_at"` // UTC
		UpdatedAt   time.Time       `json:"updated_at"` // UTC

		// denormalized relations, populated by the repository on reads
		Images    []Image         `json:"images,omitempty"`
		Prices    []Price         `json:"prices,omitempty"`
		AvgRating float64         `json:"avg_rating"`
		MinPrice  decimal.Decimal `json:"min_price"`
	}

	Image struct {
		ID        string `json:"id"`
		SpaceID   string `json:"space_id"`
		URL       string `json:"url"`
		AltText   string `json:"alt_text,omitempty"`
		IsPrimary bool   `json:"is_primary"`
		SortOrder int    `json:"sort_order"`
	}

	// Price is a space's price for one pricing period.
	Price struct {
		ID         string          `json:"id"`
		SpaceID    string          `json:"space_id"`
		PeriodID   string          `json:"period_id"`
		Price      decimal.Decimal `json:"price"`
		IsActive   *bool           `json:"is_active"`
		MinPeriods int             `json:"min_periods"`
		MaxPeriods int             `json:"max_periods"`
	}
)

// MainImage returns the primary image, falling back to the first one.
func (s *Space) MainImage() *Image {
	var first *Image
	for i := range s.Images {
		if s.Images[i].IsPrimary {
			return &s.Images[i]
		}
		if first == nil {
			first = &s.Images[i]
		}
	}
	return first
}

// ActivePrice returns the space's active price for the given period.
func (s *Space) ActivePrice(periodID string) (Price, bool) {
	for _, p := range s.Prices {
		if p.PeriodID == periodID && (p.IsActive == nil || *p.IsActive) {
			return p, true
		}
	}
	return Price{}, false
}

var slugUnwantedRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-friendly slug from a title.
func Slugify(title string) string {
	slug := slugUnwantedRegex.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

// NewSpace contains information needed to list a new Space.
type NewSpace struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Address     string          `json:"address" validate:"required,max=300"`
	CityID      string          `json:"city_id" validate:"required"`
	CategoryID  string          `json:"category_id" validate:"required"`
	AreaSqm     decimal.Decimal `json:"area_sqm"`
	MaxCapacity int             `json:"max_capacity" validate:"required,min=1"`
	Description string          `json:"description" validate:"required"`
}

func (ns *NewSpace) Validate(validate *validator.Validate) error {
	ns.Title = core.CleanString(ns.Title)
	ns.Address = core.CleanString(ns.Address)
	ns.Description = core.CleanString(ns.Description)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	if ns.AreaSqm.LessThanOrEqual(decimal.Zero) {
		return core.NewValidationError(nil, core.FieldError{Field: "area_sqm", Error: "must be greater than 0"})
	}
	return nil
}

// QueryFilter narrows space listings; all fields are ANDed.
type QueryFilter struct {
	Search      string          `query:"search"`
	CityID      string          `query:"city"`
	CategoryID  string          `query:"category"`
	MinCapacity int             `query:"min_capacity"`
	MaxPrice    decimal.Decimal `query:"max_price"`
	Featured    *bool           `query:"featured"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.CityID == "" && qf.CategoryID == "" &&
		qf.MinCapacity == 0 && qf.MaxPrice.IsZero() && qf.Featured == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single Space by ID or slug.
type GetFilter struct {
	ID   string
	Slug string
}
