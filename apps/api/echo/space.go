package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/Honeysuckle52/interior/core"
	"github.com/Honeysuckle52/interior/core/booking"
	"github.com/Honeysuckle52/interior/core/review"
	"github.com/Honeysuckle52/interior/core/space"
	"github.com/Honeysuckle52/interior/core/user"
)

type spaceApi struct {
	svc        space.Service
	reviewSvc  review.Service
	bookingSvc booking.Service
	userSvc    user.Service
	validate   *validator.Validate
}

func registerSpaceAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc space.Service,
	reviewSvc review.Service,
	bookingSvc booking.Service,
	userSvc user.Service,
	validate *validator.Validate,
) {
	api := spaceApi{
		svc:        svc,
		reviewSvc:  reviewSvc,
		bookingSvc: bookingSvc,
		userSvc:    userSvc,
		validate:   validate,
	}

	sg := g.Group("/spaces")

	// public catalog endpoints
	sg.GET("", api.query)
	sg.GET("/featured", api.featured)
	sg.GET("/categories", api.queryCategories)
	sg.GET("/cities", api.queryCities)
	sg.GET("/pricing-periods", api.queryPricingPeriods)
	sg.GET("/slug/:slug", api.retrieveBySlug)
	sg.GET("/:id", api.retrieve)
	sg.GET("/:id/reviews", api.queryReviews)
	sg.GET("/:id/availability", api.checkAvailability)
	sg.GET("/:id/quote", api.quote)

	// authed endpoints
	ag := sg.Group("", jwt)
	ag.POST("", api.create, adminMiddleware())
	ag.PUT("/:id", api.update, adminMiddleware())
	ag.DELETE("", api.destroyMultiple, adminMiddleware())
	ag.POST("/:id/reviews", api.createReview)
}

// Handlers

func (api *spaceApi) query(ctx echo.Context) error {
	filter := new(space.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []space.Space{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	spaces, err := api.svc.Query(filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying spaces")
	}
	if spaces == nil {
		spaces = []space.Space{}
	}
	return ctx.JSON(http.StatusOK, spaces)
}

func (api *spaceApi) featured(ctx echo.Context) error {
	spaces, err := api.svc.Featured()
	if err != nil {
		return errors.Wrap(err, "querying featured spaces")
	}
	if spaces == nil {
		spaces = []space.Space{}
	}
	return ctx.JSON(http.StatusOK, spaces)
}

func (api *spaceApi) retrieve(ctx echo.Context) error {
	// a retrieve counts as a visit
	sp, err := api.svc.View(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == space.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "retrieving space")
	}
	return ctx.JSON(http.StatusOK, sp)
}

func (api *spaceApi) retrieveBySlug(ctx echo.Context) error {
	sp, err := api.svc.GetBySlug(ctx.Param("slug"))
	if err != nil {
		if errors.Cause(err) == space.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "retrieving space by slug")
	}
	return ctx.JSON(http.StatusOK, sp)
}

func (api *spaceApi) create(ctx echo.Context) error {
	var data space.NewSpace
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSpace")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sp, err := api.svc.Create(data, ctxUsr.ID)
	if err != nil {
		return errors.Wrap(err, "creating space")
	}
	return ctx.JSON(http.StatusCreated, sp)
}

func (api *spaceApi) update(ctx echo.Context) error {
	sp, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == space.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "retrieving space")
	}

	var data UpdateSpaceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSpaceRequest")
	}
	data.apply(&sp)
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sp, err = api.svc.Update(sp)
	if err != nil {
		return errors.Wrap(err, "updating space")
	}
	return ctx.JSON(http.StatusOK, sp)
}

func (api *spaceApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(query.IDs...); err != nil {
		return errors.Wrap(err, "deleting spaces")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *spaceApi) queryCategories(ctx echo.Context) error {
	cats, err := api.svc.Categories()
	if err != nil {
		return errors.Wrap(err, "querying categories")
	}
	return ctx.JSON(http.StatusOK, cats)
}

func (api *spaceApi) queryCities(ctx echo.Context) error {
	cities, err := api.svc.Cities()
	if err != nil {
		return errors.Wrap(err, "querying cities")
	}
	return ctx.JSON(http.StatusOK, cities)
}

func (api *spaceApi) queryPricingPeriods(ctx echo.Context) error {
	periods, err := api.svc.PricingPeriods()
	if err != nil {
		return errors.Wrap(err, "querying pricing periods")
	}
	return ctx.JSON(http.StatusOK, periods)
}

func (api *spaceApi) queryReviews(ctx echo.Context) error {
	revs, err := api.reviewSvc.ListForSpace(ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying space reviews")
	}
	if revs == nil {
		revs = []review.Review{}
	}
	return ctx.JSON(http.StatusOK, revs)
}

func (api *spaceApi) createReview(ctx echo.Context) error {
	var data review.NewReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReview")
	}
	data.SpaceID = ctx.Param("id")
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.svc.GetByID(data.SpaceID); err != nil {
		if errors.Cause(err) == space.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "retrieving space")
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rev, err := api.reviewSvc.Create(data, ctxUsr)
	if err != nil {
		if errors.Cause(err) == review.ErrAlreadyReviewed {
			return core.NewValidationError(err)
		}
		return errors.Wrap(err, "creating review")
	}
	return ctx.JSON(http.StatusCreated, rev)
}

func (api *spaceApi) checkAvailability(ctx echo.Context) error {
	var query AvailabilityRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to AvailabilityRequest")
	}
	start, end, err := query.Window()
	if err != nil {
		return err
	}

	available, err := api.bookingSvc.CheckAvailability(ctx.Param("id"), start, end)
	if err != nil {
		return errors.Wrap(err, "checking availability")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"available": available})
}

func (api *spaceApi) quote(ctx echo.Context) error {
	var query QuoteRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to QuoteRequest")
	}
	if err := query.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.bookingSvc.Quote(ctx.Param("id"), query.PeriodID, query.PeriodsCount)
	if err != nil {
		if errors.Cause(err) == space.ErrPriceNotFound || errors.Cause(err) == space.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "quoting booking")
	}
	return ctx.JSON(http.StatusOK, q)
}

type (
	UpdateSpaceRequest struct {
		Title       string           `json:"title"`
		Address     string           `json:"address"`
		CityID      string           `json:"city_id"`
		CategoryID  string           `json:"category_id"`
		MaxCapacity int              `json:"max_capacity"`
		Description string           `json:"description"`
		IsActive    *bool            `json:"is_active"`
		IsFeatured  *bool            `json:"is_featured"`
		AreaSqm     *decimal.Decimal `json:"area_sqm"`
	}

	AvailabilityRequest struct {
		Start string `query:"start"`
		End   string `query:"end"`
	}

	QuoteRequest struct {
		PeriodID     string `query:"period" validate:"required"`
		PeriodsCount int    `query:"count" validate:"required,min=1"`
	}
)

// apply merges the provided fields onto the space.
func (us *UpdateSpaceRequest) apply(sp *space.Space) {
	if title := core.CleanString(us.Title); title != "" {
		sp.Title = title
		sp.Slug = space.Slugify(title)
	}
	if addr := core.CleanString(us.Address); addr != "" {
		sp.Address = addr
	}
	if us.CityID != "" {
		sp.CityID = us.CityID
	}
	if us.CategoryID != "" {
		sp.CategoryID = us.CategoryID
	}
	if us.MaxCapacity > 0 {
		sp.MaxCapacity = us.MaxCapacity
	}
	if desc := core.CleanString(us.Description); desc != "" {
		sp.Description = desc
	}
	if us.IsActive != nil {
		sp.IsActive = us.IsActive
	}
	if us.IsFeatured != nil {
		sp.IsFeatured = *us.IsFeatured
	}
	if us.AreaSqm != nil && us.AreaSqm.GreaterThan(decimal.Zero) {
		sp.AreaSqm = *us.AreaSqm
	}
}

func (us *UpdateSpaceRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(us)
}

func (qr *QuoteRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(qr)
}

// Window parses the requested [start, end) interval.
func (ar *AvailabilityRequest) Window() (start, end time.Time, err error) {
	start, err = time.Parse(time.RFC3339, ar.Start)
	if err != nil {
		return start, end, core.NewValidationError(nil, core.FieldError{Field: "start", Error: "invalid datetime, expected RFC3339"})
	}
	end, err = time.Parse(time.RFC3339, ar.End)
	if err != nil {
		return start, end, core.NewValidationError(nil, core.FieldError{Field: "end", Error: "invalid datetime, expected RFC3339"})
	}
	if !end.After(start) {
		return start, end, core.NewValidationError(nil, core.FieldError{Field: "end", Error: "must be after start"})
	}
	return start, end, nil
}
