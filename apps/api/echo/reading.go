package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/soma/core/book"
	"github.com/trezcool/soma/core/reading"
	"github.com/trezcool/soma/core/user"
)

type readingApi struct {
	svc    reading.Service
	usrSvc user.Service
}

func registerReadingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc reading.Service, usrSvc user.Service) {
	api := readingApi{svc: svc, usrSvc: usrSvc}

	// the logged-in student's own log
	mg := g.Group("/me", jwt, studentMiddleware())
	mg.GET("/reading-list", api.queryList)
	mg.POST("/reading-list", api.addToList)
	mg.DELETE("/reading-list/:bookID", api.removeFromList)
	mg.GET("/reads", api.queryReads)
	mg.POST("/reads", api.markRead)
	mg.GET("/reviews", api.queryReviews)
	mg.POST("/reviews", api.writeReview)
	mg.GET("/stats", api.stats)

	// teacher/admin views of a student's log
	sg := g.Group("/students/:id", jwt, teacherOrAdminMiddleware(), studentObjectMiddleware(api.usrSvc))
	sg.GET("/reading-list", api.queryStudentList)
	sg.GET("/reads", api.queryStudentReads)
	sg.GET("/reviews", api.queryStudentReviews)
	sg.GET("/stats", api.studentStats)

	g.GET("/reviews/recent", api.recentReviews, jwt, teacherOrAdminMiddleware())
	g.GET("/books/:id/reviews", api.queryBookReviews, jwt)
}

// Handlers

func (api *readingApi) queryList(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	return api.listForUser(ctx, claims.UserID())
}

func (api *readingApi) addToList(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data BookRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BookRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	item, err := api.svc.AddToList(ctx.Request().Context(), claims.UserID(), data.BookID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, item)
}

func (api *readingApi) removeFromList(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	bookID, err := strconv.Atoi(ctx.Param("bookID"))
	if err != nil {
		return errHttpNotFound
	}
	if err := api.svc.RemoveFromList(ctx.Request().Context(), claims.UserID(), bookID); err != nil {
		if errors.Cause(err) == reading.ErrItemNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "removing reading list item")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *readingApi) queryReads(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	return api.readsForUser(ctx, claims.UserID())
}

func (api *readingApi) markRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data BookRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BookRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	br, err := api.svc.MarkRead(ctx.Request().Context(), claims.UserID(), data.BookID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, br)
}

func (api *readingApi) queryReviews(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	return api.reviewsForUser(ctx, claims.UserID())
}

func (api *readingApi) writeReview(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data reading.NewReview
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReview")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	rev, err := api.svc.WriteReview(ctx.Request().Context(), claims.UserID(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rev)
}

func (api *readingApi) stats(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	stats, err := api.svc.UserStats(ctx.Request().Context(), claims.UserID())
	if err != nil {
		return errors.Wrap(err, "computing stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *readingApi) queryStudentList(ctx echo.Context) error {
	student := ctx.Get("student").(user.User)
	return api.listForUser(ctx, student.ID)
}

func (api *readingApi) queryStudentReads(ctx echo.Context) error {
	student := ctx.Get("student").(user.User)
	return api.readsForUser(ctx, student.ID)
}

func (api *readingApi) queryStudentReviews(ctx echo.Context) error {
	student := ctx.Get("student").(user.User)
	return api.reviewsForUser(ctx, student.ID)
}

func (api *readingApi) studentStats(ctx echo.Context) error {
	student := ctx.Get("student").(user.User)

	stats, err := api.svc.UserStats(ctx.Request().Context(), student.ID)
	if err != nil {
		return errors.Wrap(err, "computing stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *readingApi) recentReviews(ctx echo.Context) error {
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	if limit <= 0 {
		limit = 20
	}

	reviews, err := api.svc.RecentReviews(ctx.Request().Context(), limit)
	if err != nil {
		return errors.Wrap(err, "querying recent reviews")
	}
	if reviews == nil {
		reviews = []reading.Review{}
	}
	return ctx.JSON(http.StatusOK, reviews)
}

func (api *readingApi) queryBookReviews(ctx echo.Context) error {
	bookID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}

	reviews, err := api.svc.ReviewsForBook(ctx.Request().Context(), bookID)
	if err != nil {
		return errors.Wrap(err, "querying book reviews")
	}
	if reviews == nil {
		reviews = []reading.Review{}
	}
	return ctx.JSON(http.StatusOK, reviews)
}

// shared renderers

func (api *readingApi) listForUser(ctx echo.Context, userID int) error {
	items, err := api.svc.ListForUser(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "querying reading list")
	}
	if items == nil {
		items = []reading.ReadingListItem{}
	}
	return ctx.JSON(http.StatusOK, items)
}

func (api *readingApi) readsForUser(ctx echo.Context, userID int) error {
	filter := new(book.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		filter = nil
	} else {
		filter.Clean()
	}

	reads, err := api.svc.ListRead(ctx.Request().Context(), userID, filter)
	if err != nil {
		return errors.Wrap(err, "querying reads")
	}
	if reads == nil {
		reads = []reading.BookRead{}
	}
	return ctx.JSON(http.StatusOK, reads)
}

func (api *readingApi) reviewsForUser(ctx echo.Context, userID int) error {
	reviews, err := api.svc.ReviewsForUser(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "querying reviews")
	}
	if reviews == nil {
		reviews = []reading.Review{}
	}
	return ctx.JSON(http.StatusOK, reviews)
}

// studentObjectMiddleware loads the target student into the context.
func studentObjectMiddleware(usrSvc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := strconv.Atoi(ctx.Param("id"))
			if err != nil {
				return errHttpNotFound
			}
			usr, err := usrSvc.GetByID(ctx.Request().Context(), id)
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding user by ID")
			}
			if !usr.IsStudent() {
				return errHttpNotFound
			}
			ctx.Set("student", usr)
			return next(ctx)
		}
	}
}
