package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/soma/core/class"
	"github.com/trezcool/soma/core/user"
)

type classApi struct {
	svc    class.Service
	usrSvc user.Service
}

func registerClassAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc class.Service, usrSvc user.Service) {
	api := classApi{svc: svc, usrSvc: usrSvc}

	cg := g.Group("/classes", jwt)

	cg.POST("", api.create, teacherOrAdminMiddleware())
	cg.GET("", api.query, teacherOrAdminMiddleware())
	cg.GET("/me", api.queryMine, studentMiddleware())

	// detail endpoints; the owning teacher or an admin only
	dg := cg.Group("/:id", classOwnerMiddleware(api.svc, api.usrSvc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/students", api.queryStudents)
	dg.POST("/students", api.addStudent)
	dg.DELETE("/students/:studentID", api.removeStudent)
	dg.GET("/books", api.queryAssignedBooks)
	dg.POST("/books", api.assignBook)
	dg.DELETE("/books/:bookID", api.unassignBook)
}

// Handlers

func (api *classApi) create(ctx echo.Context) error {
	var data class.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}

	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	// teachers can only create their own classes
	if !ctxUsr.IsAdmin() || data.TeacherID == 0 {
		data.TeacherID = ctxUsr.ID
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cls, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *classApi) query(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	teacherID := ctxUsr.ID
	if ctxUsr.IsAdmin() {
		teacherID, _ = strconv.Atoi(ctx.QueryParam("teacher_id")) // 0 = all
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	classes, err := api.svc.Query(ctx.Request().Context(), teacherID, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) queryMine(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	classes, err := api.svc.ClassesForStudent(ctx.Request().Context(), claims.UserID())
	if err != nil {
		return errors.Wrap(err, "querying student classes")
	}
	if classes == nil {
		classes = []class.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *classApi) retrieve(ctx echo.Context) error {
	cls, ok := ctx.Get("object").(class.Class)
	if !ok {
		return errors.New("class object not found in echo.Context")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) update(ctx echo.Context) error {
	cls, ok := ctx.Get("object").(class.Class)
	if !ok {
		return errors.New("class object not found in echo.Context")
	}

	var data class.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err := data.Validate(cls); err != nil {
		return err
	}

	cls, err := api.svc.Update(ctx.Request().Context(), cls.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *classApi) destroy(ctx echo.Context) error {
	cls, ok := ctx.Get("object").(class.Class)
	if !ok {
		return errors.New("class object not found in echo.Context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), cls.ID); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) queryStudents(ctx echo.Context) error {
	cls := ctx.Get("object").(class.Class)

	students, err := api.svc.Students(ctx.Request().Context(), cls.ID)
	if err != nil {
		return errors.Wrap(err, "querying class students")
	}
	if students == nil {
		students = []user.User{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *classApi) addStudent(ctx echo.Context) error {
	cls := ctx.Get("object").(class.Class)

	var data StudentRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StudentRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.AddStudent(ctx.Request().Context(), cls.ID, data.StudentID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) removeStudent(ctx echo.Context) error {
	cls := ctx.Get("object").(class.Class)

	studentID, err := strconv.Atoi(ctx.Param("studentID"))
	if err != nil {
		return errHttpNotFound
	}
	if err := api.svc.RemoveStudent(ctx.Request().Context(), cls.ID, studentID); err != nil {
		return errors.Wrap(err, "removing class student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) queryAssignedBooks(ctx echo.Context) error {
	cls := ctx.Get("object").(class.Class)

	books, err := api.svc.AssignedBooks(ctx.Request().Context(), cls.ID)
	if err != nil {
		return errors.Wrap(err, "querying assigned books")
	}
	if books == nil {
		books = []class.AssignedBook{}
	}
	return ctx.JSON(http.StatusOK, books)
}

func (api *classApi) assignBook(ctx echo.Context) error {
	cls := ctx.Get("object").(class.Class)

	var data BookRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to BookRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.AssignBook(ctx.Request().Context(), cls.ID, data.BookID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *classApi) unassignBook(ctx echo.Context) error {
	cls := ctx.Get("object").(class.Class)

	bookID, err := strconv.Atoi(ctx.Param("bookID"))
	if err != nil {
		return errHttpNotFound
	}
	if err := api.svc.UnassignBook(ctx.Request().Context(), cls.ID, bookID); err != nil {
		return errors.Wrap(err, "unassigning class book")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// classOwnerMiddleware loads the class and only lets its teacher or an admin through.
func classOwnerMiddleware(svc class.Service, usrSvc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx, usrSvc)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}

			id, err := strconv.Atoi(ctx.Param("id"))
			if err != nil {
				return errHttpNotFound
			}
			cls, err := svc.GetByID(ctx.Request().Context(), id)
			if err != nil {
				if errors.Cause(err) == class.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding class by ID")
			}

			if cls.TeacherID == ctxUsr.ID || ctxUsr.IsAdmin() {
				ctx.Set("object", cls)
				return next(ctx)
			}
			return errHttpNotFound
		}
	}
}

type (
	StudentRequest struct {
		StudentID int `json:"student_id" validate:"required"`
	}

	BookRequest struct {
		BookID int `json:"book_id" validate:"required"`
	}
)

func (sr *StudentRequest) Validate() error { return validateStruct(sr) }
func (br *BookRequest) Validate() error    { return validateStruct(br) }
