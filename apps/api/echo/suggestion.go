package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/soma/core/book"
	"github.com/trezcool/soma/core/suggestion"
	"github.com/trezcool/soma/core/user"
)

type suggestionApi struct {
	svc    suggestion.Service
	usrSvc user.Service
}

func registerSuggestionAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc suggestion.Service, usrSvc user.Service) {
	api := suggestionApi{svc: svc, usrSvc: usrSvc}

	// teacher -> student book suggestions
	tg := g.Group("/suggestions", jwt)
	tg.POST("", api.suggestToStudent, teacherOrAdminMiddleware())
	tg.GET("/me", api.queryMine, studentMiddleware())
	tg.POST("/me/:id/accept", api.accept, studentMiddleware())

	// student "add this book" suggestions
	bg := g.Group("/book-suggestions", jwt)
	bg.POST("/me", api.createBookSuggestion, studentMiddleware())
	bg.GET("/me", api.queryMyBookSuggestions, studentMiddleware())
	bg.GET("", api.queryBookSuggestions, adminMiddleware())
	bg.POST("/:id/review", api.reviewBookSuggestion, adminMiddleware())

	// student book correction suggestions
	eg := g.Group("/edit-suggestions", jwt)
	eg.POST("/me", api.createEditSuggestion, studentMiddleware())
	eg.GET("/me", api.queryMyEditSuggestions, studentMiddleware())
	eg.GET("", api.queryEditSuggestions, adminMiddleware())
	eg.POST("/:id/review", api.reviewEditSuggestion, adminMiddleware())
}

// Teacher suggestion handlers

func (api *suggestionApi) suggestToStudent(ctx echo.Context) error {
	var data suggestion.NewTeacherSuggestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeacherSuggestion")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ts, err := api.svc.SuggestToStudent(ctx.Request().Context(), data, ctxUsr)
	if err != nil {
		if cause := errors.Cause(err); cause == user.ErrNotFound || cause == book.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusCreated, ts)
}

func (api *suggestionApi) queryMine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	pending, err := api.svc.PendingForStudent(ctx.Request().Context(), claims.UserID())
	if err != nil {
		return errors.Wrap(err, "querying pending suggestions")
	}
	if pending == nil {
		pending = []suggestion.TeacherSuggestion{}
	}
	return ctx.JSON(http.StatusOK, pending)
}

func (api *suggestionApi) accept(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	ts, err := api.svc.Accept(ctx.Request().Context(), id, claims.UserID())
	if err != nil {
		if errors.Cause(err) == suggestion.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, ts)
}

// Student book suggestion handlers

func (api *suggestionApi) createBookSuggestion(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data suggestion.NewBookSuggestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBookSuggestion")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	bs, err := api.svc.CreateBookSuggestion(ctx.Request().Context(), claims.UserID(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, bs)
}

func (api *suggestionApi) queryMyBookSuggestions(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	return api.renderBookSuggestions(ctx, claims.UserID())
}

func (api *suggestionApi) queryBookSuggestions(ctx echo.Context) error {
	studentID, _ := strconv.Atoi(ctx.QueryParam("student_id")) // 0 = all
	return api.renderBookSuggestions(ctx, studentID)
}

func (api *suggestionApi) renderBookSuggestions(ctx echo.Context, studentID int) error {
	suggestions, err := api.svc.ListBookSuggestions(ctx.Request().Context(), studentID, ctx.QueryParam("status"))
	if err != nil {
		return errors.Wrap(err, "querying book suggestions")
	}
	if suggestions == nil {
		suggestions = []suggestion.BookSuggestion{}
	}
	return ctx.JSON(http.StatusOK, suggestions)
}

func (api *suggestionApi) reviewBookSuggestion(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	var data suggestion.ReviewDecision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewDecision")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	bs, err := api.svc.ReviewBookSuggestion(ctx.Request().Context(), id, data, ctxUsr)
	if err != nil {
		if errors.Cause(err) == suggestion.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, bs)
}

// Student edit suggestion handlers

func (api *suggestionApi) createEditSuggestion(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data suggestion.NewEditSuggestion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEditSuggestion")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	es, err := api.svc.CreateEditSuggestion(ctx.Request().Context(), claims.UserID(), data)
	if err != nil {
		if errors.Cause(err) == book.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusCreated, es)
}

func (api *suggestionApi) queryMyEditSuggestions(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	return api.renderEditSuggestions(ctx, claims.UserID())
}

func (api *suggestionApi) queryEditSuggestions(ctx echo.Context) error {
	studentID, _ := strconv.Atoi(ctx.QueryParam("student_id")) // 0 = all
	return api.renderEditSuggestions(ctx, studentID)
}

func (api *suggestionApi) renderEditSuggestions(ctx echo.Context, studentID int) error {
	suggestions, err := api.svc.ListEditSuggestions(ctx.Request().Context(), studentID, ctx.QueryParam("status"))
	if err != nil {
		return errors.Wrap(err, "querying edit suggestions")
	}
	if suggestions == nil {
		suggestions = []suggestion.BookEditSuggestion{}
	}
	return ctx.JSON(http.StatusOK, suggestions)
}

func (api *suggestionApi) reviewEditSuggestion(ctx echo.Context) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	var data suggestion.ReviewDecision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewDecision")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	es, err := api.svc.ReviewEditSuggestion(ctx.Request().Context(), id, data, ctxUsr)
	if err != nil {
		if errors.Cause(err) == suggestion.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, es)
}
