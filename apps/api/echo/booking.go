package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Honeysuckle52/interior/core"
	"github.com/Honeysuckle52/interior/core/booking"
	"github.com/Honeysuckle52/interior/core/user"
)

type bookingApi struct {
	svc      booking.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerBookingAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc booking.Service,
	userSvc user.Service,
	validate *validator.Validate,
) {
	api := bookingApi{svc: svc, userSvc: userSvc, validate: validate}

	bg := g.Group("/bookings", jwt)
	bg.POST("", api.create)
	bg.GET("", api.query)
	bg.GET("/statuses", api.queryStatuses)

	dg := bg.Group("/:id", api.ownerOrModeratorMiddleware())
	dg.GET("", api.retrieve)
	dg.POST("/cancel", api.cancel)
	dg.GET("/transactions", api.queryTransactions)

	mg := bg.Group("/:id", moderatorMiddleware())
	mg.POST("/confirm", api.confirm)
	mg.POST("/complete", api.complete)
}

// ownerOrModeratorMiddleware loads the booking into the context; only its
// tenant and moderators may see it.
func (api *bookingApi) ownerOrModeratorMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			bkg, err := api.svc.GetByID(ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == booking.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "retrieving booking")
			}

			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if bkg.TenantID != claims.Subject && !(claims.IsModerator || claims.IsAdmin) {
				return errHttpNotFound
			}
			ctx.Set("object", bkg)
			return next(ctx)
		}
	}
}

// Handlers

func (api *bookingApi) create(ctx echo.Context) error {
	var data booking.NewBooking
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBooking")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	bkg, err := api.svc.Create(data, ctxUsr)
	if err != nil {
		switch errors.Cause(err) {
		case booking.ErrUnavailable:
			return core.NewValidationError(nil, core.FieldError{Field: "start_datetime", Error: booking.ErrUnavailable.Error()})
		default:
			return errors.Wrap(err, "creating booking")
		}
	}
	return ctx.JSON(http.StatusCreated, bkg)
}

func (api *bookingApi) query(ctx echo.Context) error {
	var filter booking.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []booking.Booking{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	// regular users only see their own bookings
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if !(claims.IsModerator || claims.IsAdmin) {
		filter.TenantID = claims.Subject
	}

	bookings, err := api.svc.Query(filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying bookings")
	}
	if bookings == nil {
		bookings = []booking.Booking{}
	}
	return ctx.JSON(http.StatusOK, bookings)
}

func (api *bookingApi) retrieve(ctx echo.Context) error {
	bkg, ok := ctx.Get("object").(booking.Booking)
	if !ok {
		return errors.New("booking object not found in echo.Context")
	}
	return ctx.JSON(http.StatusOK, bkg)
}

func (api *bookingApi) cancel(ctx echo.Context) error {
	bkg, ok := ctx.Get("object").(booking.Booking)
	if !ok {
		return errors.New("booking object not found in echo.Context")
	}

	var data ModerationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ModerationRequest")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	bkg, err = api.svc.Cancel(bkg.ID, core.CleanString(data.Comment), claims.IsModerator || claims.IsAdmin)
	if err != nil {
		switch errors.Cause(err) {
		case booking.ErrInvalidTransition, booking.ErrCancellationClosed:
			return core.NewValidationError(err)
		default:
			return errors.Wrap(err, "cancelling booking")
		}
	}
	return ctx.JSON(http.StatusOK, bkg)
}

func (api *bookingApi) confirm(ctx echo.Context) error {
	var data ModerationRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ModerationRequest")
	}

	bkg, err := api.svc.Confirm(ctx.Param("id"), core.CleanString(data.Comment))
	if err != nil {
		switch errors.Cause(err) {
		case booking.ErrNotFound:
			return errHttpNotFound
		case booking.ErrInvalidTransition:
			return core.NewValidationError(err)
		default:
			return errors.Wrap(err, "confirming booking")
		}
	}
	return ctx.JSON(http.StatusOK, bkg)
}

func (api *bookingApi) complete(ctx echo.Context) error {
	bkg, err := api.svc.Complete(ctx.Param("id"))
	if err != nil {
		switch errors.Cause(err) {
		case booking.ErrNotFound:
			return errHttpNotFound
		case booking.ErrInvalidTransition:
			return core.NewValidationError(err)
		default:
			return errors.Wrap(err, "completing booking")
		}
	}
	return ctx.JSON(http.StatusOK, bkg)
}

func (api *bookingApi) queryStatuses(ctx echo.Context) error {
	statuses, err := api.svc.Statuses()
	if err != nil {
		return errors.Wrap(err, "querying booking statuses")
	}
	return ctx.JSON(http.StatusOK, statuses)
}

func (api *bookingApi) queryTransactions(ctx echo.Context) error {
	bkg, ok := ctx.Get("object").(booking.Booking)
	if !ok {
		return errors.New("booking object not found in echo.Context")
	}
	txs, err := api.svc.Transactions(bkg.ID)
	if err != nil {
		return errors.Wrap(err, "querying transactions")
	}
	if txs == nil {
		txs = []booking.Transaction{}
	}
	return ctx.JSON(http.StatusOK, txs)
}

// ModerationRequest carries an optional comment for a status change.
type ModerationRequest struct {
	Comment string `json:"comment"`
}
