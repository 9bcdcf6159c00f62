package echoapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/book"
)

type bookApi struct {
	svc book.Service
}

func registerBookAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc book.Service) {
	api := bookApi{svc: svc}

	bg := g.Group("/books", jwt)

	bg.GET("", api.query)
	bg.POST("", api.create, teacherOrAdminMiddleware())
	bg.POST("/bulk", api.bulkUpdate, adminMiddleware())

	// taxonomy
	bg.GET("/genres", api.queryGenres)
	bg.POST("/genres", api.createGenre, adminMiddleware())
	bg.DELETE("/genres/:id", api.destroyGenre, adminMiddleware())
	bg.GET("/sub-genres", api.querySubGenres)
	bg.POST("/sub-genres", api.createSubGenre, adminMiddleware())
	bg.DELETE("/sub-genres/:id", api.destroySubGenre, adminMiddleware())
	bg.GET("/topics", api.queryTopics)
	bg.POST("/topics", api.createTopic, adminMiddleware())
	bg.DELETE("/topics/:id", api.destroyTopic, adminMiddleware())
	bg.GET("/genre-map", api.queryGenreMap, adminMiddleware())
	bg.POST("/genre-map", api.createGenreMapping, adminMiddleware())
	bg.DELETE("/genre-map/:id", api.destroyGenreMapping, adminMiddleware())

	bg.POST("/import", api.importCSV, teacherOrAdminMiddleware())
	bg.GET("/import/sample", api.sampleCSV, teacherOrAdminMiddleware())
	bg.GET("/openlibrary", api.searchOpenLibrary, teacherOrAdminMiddleware())
	bg.POST("/openlibrary", api.addFromOpenLibrary, teacherOrAdminMiddleware())
	bg.POST("/enrich", api.enrichMissing, adminMiddleware())

	dg := bg.Group("/:id", bookObjectMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, teacherOrAdminMiddleware())
	dg.DELETE("", api.destroy, adminMiddleware())
}

// Handlers

func (api *bookApi) create(ctx echo.Context) error {
	var data book.NewBook
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewBook")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	bk, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, bk)
}

func (api *bookApi) query(ctx echo.Context) error {
	filter := new(book.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []book.Book{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	books, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying books")
	}
	if books == nil {
		books = []book.Book{}
	}
	return ctx.JSON(http.StatusOK, books)
}

func (api *bookApi) retrieve(ctx echo.Context) error {
	bk, ok := ctx.Get("object").(book.Book)
	if !ok {
		return errors.New("book object not found in echo.Context")
	}
	return ctx.JSON(http.StatusOK, bk)
}

func (api *bookApi) update(ctx echo.Context) error {
	bk, ok := ctx.Get("object").(book.Book)
	if !ok {
		return errors.New("book object not found in echo.Context")
	}

	var data book.UpdateBook
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBook")
	}
	if err := data.Validate(bk); err != nil {
		return err
	}

	bk, err := api.svc.Update(ctx.Request().Context(), bk.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, bk)
}

func (api *bookApi) destroy(ctx echo.Context) error {
	bk, ok := ctx.Get("object").(book.Book)
	if !ok {
		return errors.New("book object not found in echo.Context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), bk.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *bookApi) importCSV(ctx echo.Context) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "a CSV file is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()

	res, err := api.svc.ImportCSV(ctx.Request().Context(), f)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *bookApi) sampleCSV(ctx echo.Context) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="books-sample.csv"`)
	return ctx.Blob(http.StatusOK, "text/csv", api.svc.SampleCSV())
}

func (api *bookApi) searchOpenLibrary(ctx echo.Context) error {
	query := core.CleanString(ctx.QueryParam("q"))
	if query == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "q", Error: "this field is required"})
	}
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))

	results, err := api.svc.SearchOpenLibrary(ctx.Request().Context(), query, limit)
	if err != nil {
		return errors.Wrap(err, "searching OpenLibrary")
	}
	if results == nil {
		results = []book.Metadata{}
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *bookApi) addFromOpenLibrary(ctx echo.Context) error {
	var data OpenLibraryRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to OpenLibraryRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	bk, err := api.svc.AddFromOpenLibrary(ctx.Request().Context(), data.ISBN, data.OLID)
	if err != nil {
		if errors.Cause(err) == book.ErrNotFound {
			if data.OLID != "" {
				return core.NewValidationError(nil, core.FieldError{Field: "olid", Error: "no book found for this OLID"})
			}
			return core.NewValidationError(nil, core.FieldError{Field: "isbn", Error: "no book found for this ISBN"})
		}
		return err
	}
	return ctx.JSON(http.StatusCreated, bk)
}

func (api *bookApi) bulkUpdate(ctx echo.Context) error {
	var data book.BulkAction
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BulkAction")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	affected, err := api.svc.BulkUpdate(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, BulkResponse{Affected: affected})
}

func (api *bookApi) enrichMissing(ctx echo.Context) error {
	count, err := api.svc.EnrichMissing(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "enriching books")
	}
	return ctx.JSON(http.StatusOK, EnrichResponse{Enriched: count})
}

func (api *bookApi) queryGenres(ctx echo.Context) error {
	genres, err := api.svc.Genres(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying genres")
	}
	if genres == nil {
		genres = []book.Genre{}
	}
	return ctx.JSON(http.StatusOK, genres)
}

func (api *bookApi) querySubGenres(ctx echo.Context) error {
	subGenres, err := api.svc.SubGenres(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying sub-genres")
	}
	if subGenres == nil {
		subGenres = []book.SubGenre{}
	}
	return ctx.JSON(http.StatusOK, subGenres)
}

func (api *bookApi) queryTopics(ctx echo.Context) error {
	topics, err := api.svc.Topics(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying topics")
	}
	if topics == nil {
		topics = []book.Topic{}
	}
	return ctx.JSON(http.StatusOK, topics)
}

func (api *bookApi) createGenre(ctx echo.Context) error {
	var data TaxonomyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TaxonomyRequest")
	}

	g, err := api.svc.CreateGenre(ctx.Request().Context(), data.Name)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, g)
}

func (api *bookApi) destroyGenre(ctx echo.Context) error {
	return api.destroyTaxonomy(ctx, api.svc.DeleteGenre)
}

func (api *bookApi) createSubGenre(ctx echo.Context) error {
	var data TaxonomyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TaxonomyRequest")
	}

	sg, err := api.svc.CreateSubGenre(ctx.Request().Context(), data.Name, data.GenreID)
	if err != nil {
		if errors.Cause(err) == book.ErrTaxonomyNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusCreated, sg)
}

func (api *bookApi) destroySubGenre(ctx echo.Context) error {
	return api.destroyTaxonomy(ctx, api.svc.DeleteSubGenre)
}

func (api *bookApi) createTopic(ctx echo.Context) error {
	var data TaxonomyRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TaxonomyRequest")
	}

	tp, err := api.svc.CreateTopic(ctx.Request().Context(), data.Name)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, tp)
}

func (api *bookApi) destroyTopic(ctx echo.Context) error {
	return api.destroyTaxonomy(ctx, api.svc.DeleteTopic)
}

func (api *bookApi) queryGenreMap(ctx echo.Context) error {
	mappings, err := api.svc.GenreMappings(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying genre mappings")
	}
	if mappings == nil {
		mappings = []book.GenreMapping{}
	}
	return ctx.JSON(http.StatusOK, mappings)
}

func (api *bookApi) createGenreMapping(ctx echo.Context) error {
	var data GenreMapRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenreMapRequest")
	}

	gm, err := api.svc.CreateGenreMapping(ctx.Request().Context(), data.FromName, data.ToGenre)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, gm)
}

func (api *bookApi) destroyGenreMapping(ctx echo.Context) error {
	return api.destroyTaxonomy(ctx, api.svc.DeleteGenreMapping)
}

func (api *bookApi) destroyTaxonomy(ctx echo.Context, del func(context.Context, int) error) error {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return errHttpNotFound
	}
	if err = del(ctx.Request().Context(), id); err != nil {
		if errors.Cause(err) == book.ErrTaxonomyNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func bookObjectMiddleware(svc book.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			id, err := strconv.Atoi(ctx.Param("id"))
			if err != nil {
				return errHttpNotFound
			}
			bk, err := svc.GetByID(ctx.Request().Context(), id)
			if err != nil {
				if errors.Cause(err) == book.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding book by ID")
			}
			ctx.Set("object", bk)
			return next(ctx)
		}
	}
}

type (
	OpenLibraryRequest struct {
		ISBN string `json:"isbn" validate:"omitempty,isbn_digits"`
		OLID string `json:"olid"`
	}

	TaxonomyRequest struct {
		Name    string `json:"name"`
		GenreID int    `json:"genre_id"` // sub-genres only
	}

	GenreMapRequest struct {
		FromName string `json:"from_name"`
		ToGenre  string `json:"to_genre"`
	}

	EnrichResponse struct {
		Enriched int `json:"enriched"`
	}

	BulkResponse struct {
		Affected int `json:"affected"`
	}
)

func (or *OpenLibraryRequest) Validate() error {
	or.ISBN = core.CleanString(or.ISBN)
	or.OLID = core.CleanString(or.OLID)
	if or.ISBN == "" && or.OLID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "isbn", Error: "an ISBN or OLID is required"})
	}
	return core.Validate.Struct(or)
}
