package echoapi

import (
	"net/http"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Honeysuckle52/interior/core/favorite"
	"github.com/Honeysuckle52/interior/core/space"
	"github.com/Honeysuckle52/interior/core/user"
)

type favoriteApi struct {
	svc     favorite.Service
	userSvc user.Service
}

// registerFavoriteWeb wires the endpoints the favorites widget talks to.
func registerFavoriteWeb(g *echo.Group, sessionJWT echo.MiddlewareFunc, svc favorite.Service, userSvc user.Service) {
	api := favoriteApi{svc: svc, userSvc: userSvc}

	g.POST("/spaces/:id/favorite", api.toggle, sessionJWT)
	g.GET("/spaces/:id/check-favorite", api.check)
	g.GET("/favorites", api.listSpaces, sessionJWT)
}

func registerFavoriteAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc favorite.Service, userSvc user.Service) {
	api := favoriteApi{svc: svc, userSvc: userSvc}

	fg := g.Group("/favorites", jwt)
	fg.GET("", api.listSpaces)
	fg.POST("/:id", api.toggle)
}

// Handlers

func (api *favoriteApi) toggle(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.svc.Toggle(ctxUsr, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == space.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "toggling favorite")
	}
	return ctx.JSON(http.StatusOK, res)
}

// check reports whether the space is in the visitor's favorites; anonymous
// visitors just get false.
func (api *favoriteApi) check(ctx echo.Context) error {
	usr, ok := api.sessionUser(ctx)
	if !ok {
		return ctx.JSON(http.StatusOK, favorite.CheckResult{})
	}

	res, err := api.svc.Check(usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "checking favorite")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *favoriteApi) listSpaces(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	spaces, err := api.svc.ListSpaces(ctxUsr)
	if err != nil {
		return errors.Wrap(err, "listing favorite spaces")
	}
	if spaces == nil {
		spaces = []space.Space{}
	}
	return ctx.JSON(http.StatusOK, spaces)
}

// sessionUser resolves the user from the session cookie without requiring it.
func (api *favoriteApi) sessionUser(ctx echo.Context) (user.User, bool) {
	cookie, err := ctx.Cookie(authConf.Server.SessionCookie)
	if err != nil || cookie.Value == "" {
		return user.User{}, false
	}

	claims := new(Claims)
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(*jwt.Token) (interface{}, error) {
		return appJWTConfig.SigningKey, nil
	})
	if err != nil || !token.Valid {
		return user.User{}, false
	}

	usr, err := api.userSvc.GetByID(claims.Subject)
	if err != nil {
		return user.User{}, false
	}
	return usr, true
}
