package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/book"
	"github.com/trezcool/soma/core/class"
	"github.com/trezcool/soma/core/reading"
	"github.com/trezcool/soma/core/suggestion"
	"github.com/trezcool/soma/core/user"
)

type (
	ServerDeps struct {
		Logger        core.Logger
		UserSvc       user.Service
		BookSvc       book.Service
		ClassSvc      class.Service
		ReadingSvc    reading.Service
		SuggestionSvc suggestion.Service
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !core.Conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig())

	registerUserAPI(v1, jwt, s.deps.UserSvc)
	registerBookAPI(v1, jwt, s.deps.BookSvc)
	registerClassAPI(v1, jwt, s.deps.ClassSvc, s.deps.UserSvc)
	registerReadingAPI(v1, jwt, s.deps.ReadingSvc, s.deps.UserSvc)
	registerSuggestionAPI(v1, jwt, s.deps.SuggestionSvc, s.deps.UserSvc)
}

func (s *Server) Start() {
	if err := s.app.Start(core.Conf.ServerAddress()); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error            { return s.errors }
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Soma API!")
}
