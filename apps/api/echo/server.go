package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/Honeysuckle52/interior/core"
	"github.com/Honeysuckle52/interior/core/booking"
	"github.com/Honeysuckle52/interior/core/favorite"
	"github.com/Honeysuckle52/interior/core/review"
	"github.com/Honeysuckle52/interior/core/space"
	"github.com/Honeysuckle52/interior/core/user"
)

type (
	ServerDeps struct {
		Conf        *core.Config
		Logger      core.Logger
		UserSvc     user.Service
		SpaceSvc    space.Service
		BookingSvc  booking.Service
		ReviewSvc   review.Service
		FavoriteSvc favorite.Service
		Validate    *validator.Validate
		Translator  ut.Translator
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errs     chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	jwt, sessionJWT := configureAuth(conf)

	// browser-facing endpoints: session cookie auth + CSRF
	web := s.app.Group("", middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup: "header:" + headerCSRFToken,
		CookieName:  conf.Server.CSRFCookie,
		CookiePath:  "/",
	}))
	registerAuthWeb(web, sessionJWT, s.deps.UserSvc, s.deps.Validate)
	registerFavoriteWeb(web, sessionJWT, s.deps.FavoriteSvc, s.deps.UserSvc)

	v1 := s.app.Group("/v1")
	registerUserAPI(v1, jwt, s.deps.UserSvc, s.deps.Validate, s.deps.Translator)
	registerSpaceAPI(v1, jwt, s.deps.SpaceSvc, s.deps.ReviewSvc, s.deps.BookingSvc, s.deps.UserSvc, s.deps.Validate)
	registerBookingAPI(v1, jwt, s.deps.BookingSvc, s.deps.UserSvc, s.deps.Validate)
	registerReviewAPI(v1, jwt, s.deps.ReviewSvc, s.deps.UserSvc, s.deps.Validate)
	registerFavoriteAPI(v1, jwt, s.deps.FavoriteSvc, s.deps.UserSvc)
}

func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errs <- err
	}
}

// Errors reports fatal server errors.
func (s *Server) Errors() <-chan error { return s.errs }

// ShutdownSignal receives SIGINT/SIGTERM and programmatic shutdown requests.
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown requests a graceful shutdown, e.g. on an integrity error.
func (s *Server) SignalShutdown() { s.shutdown <- syscall.SIGTERM }

func (s *Server) Shutdown(ctx context.Context) error { return s.app.Shutdown(ctx) }

func (s *Server) Close() error { return s.app.Close() }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Interior API!")
}
