package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Honeysuckle52/interior/core/review"
	"github.com/Honeysuckle52/interior/core/user"
)

type reviewApi struct {
	svc      review.Service
	userSvc  user.Service
	validate *validator.Validate
}

func registerReviewAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc review.Service,
	userSvc user.Service,
	validate *validator.Validate,
) {
	api := reviewApi{svc: svc, userSvc: userSvc, validate: validate}

	rg := g.Group("/reviews", jwt)

	// moderation endpoints
	rg.GET("", api.query, moderatorMiddleware())
	rg.GET("/stats", api.stats, moderatorMiddleware())
	rg.POST("/:id/approve", api.approve, moderatorMiddleware())

	// author or moderator
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id", api.update)
	rg.DELETE("/:id", api.destroy)
}

// Handlers

func (api *reviewApi) query(ctx echo.Context) error {
	var filter review.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []review.Review{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	revs, err := api.svc.Query(filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying reviews")
	}
	if revs == nil {
		revs = []review.Review{}
	}
	return ctx.JSON(http.StatusOK, revs)
}

func (api *reviewApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats()
	if err != nil {
		return errors.Wrap(err, "querying review stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *reviewApi) retrieve(ctx echo.Context) error {
	rev, _, err := api.getForContext(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rev)
}

// update lets the author edit their review (back to moderation) and
// moderators edit any review without resetting approval.
func (api *reviewApi) update(ctx echo.Context) error {
	rev, claims, err := api.getForContext(ctx)
	if err != nil {
		return err
	}

	var data review.UpdateReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateReview")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if rev.AuthorID == claims.Subject {
		ctxUsr, err := getContextUser(ctx, api.userSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		rev, err = api.svc.Update(rev.ID, data, ctxUsr)
		if err != nil {
			return errors.Wrap(err, "updating review")
		}
	} else {
		rev, err = api.svc.Moderate(rev.ID, data)
		if err != nil {
			return errors.Wrap(err, "moderating review")
		}
	}
	return ctx.JSON(http.StatusOK, rev)
}

func (api *reviewApi) approve(ctx echo.Context) error {
	rev, err := api.svc.Approve(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == review.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "approving review")
	}
	return ctx.JSON(http.StatusOK, rev)
}

func (api *reviewApi) destroy(ctx echo.Context) error {
	rev, _, err := api.getForContext(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(rev.ID); err != nil {
		return errors.Wrap(err, "deleting review")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// getForContext fetches the review and checks the caller is its author or a
// moderator; others get a 404.
func (api *reviewApi) getForContext(ctx echo.Context) (review.Review, Claims, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return review.Review{}, Claims{}, errors.Wrap(err, "getting context claims")
	}

	rev, err := api.svc.GetByID(ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == review.ErrNotFound {
			return review.Review{}, Claims{}, errHttpNotFound
		}
		return review.Review{}, Claims{}, errors.Wrap(err, "retrieving review")
	}
	if rev.AuthorID != claims.Subject && !(claims.IsModerator || claims.IsAdmin) {
		return review.Review{}, Claims{}, errHttpNotFound
	}
	return rev, claims, nil
}
