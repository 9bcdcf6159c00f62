package class

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/user"
)

var (
	// errors
	ErrNotFound       = errors.New("class not found")
	ErrStudentInClass = errors.New("student is already in this class")
	ErrNotAStudent    = errors.New("user is not a student")
	ErrBookAssigned   = errors.New("book is already assigned to this class")
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClassByID(ctx context.Context, id int) (Class, error)
		// QueryClasses returns all classes when teacherID is 0.
		QueryClasses(ctx context.Context, teacherID int, ordering []core.DBOrdering) ([]Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		DeleteClass(ctx context.Context, id int) error
		AddClassStudent(ctx context.Context, classID, studentID int) error
		RemoveClassStudent(ctx context.Context, classID, studentID int) error
		ClassStudents(ctx context.Context, classID int) ([]user.User, error)
		StudentClasses(ctx context.Context, studentID int) ([]Class, error)
		AssignClassBook(ctx context.Context, classID, bookID int) error
		UnassignClassBook(ctx context.Context, classID, bookID int) error
		ClassAssignedBooks(ctx context.Context, classID int) ([]AssignedBook, error)
	}

	Service interface {
		Create(ctx context.Context, nc NewClass) (Class, error)
		GetByID(ctx context.Context, id int) (Class, error)
		Query(ctx context.Context, teacherID int, ordering []core.DBOrdering) ([]Class, error)
		Update(ctx context.Context, id int, uc UpdateClass) (Class, error)
		Delete(ctx context.Context, id int) error
		AddStudent(ctx context.Context, classID, studentID int) error
		RemoveStudent(ctx context.Context, classID, studentID int) error
		Students(ctx context.Context, classID int) ([]user.User, error)
		ClassesForStudent(ctx context.Context, studentID int) ([]Class, error)
		AssignBook(ctx context.Context, classID, bookID int) error
		UnassignBook(ctx context.Context, classID, bookID int) error
		AssignedBooks(ctx context.Context, classID int) ([]AssignedBook, error)
	}

	service struct {
		repo   Repository
		usrSvc user.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service) Service {
	return &service{repo: repo, usrSvc: usrSvc}
}

func (svc *service) Create(ctx context.Context, nc NewClass) (Class, error) {
	now := time.Now().UTC()
	cls := Class{
		Name:        nc.Name,
		Description: nc.Description,
		TeacherID:   nc.TeacherID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateClass(ctx, cls)
}

func (svc *service) GetByID(ctx context.Context, id int) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *service) Query(ctx context.Context, teacherID int, ordering []core.DBOrdering) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, teacherID, ordering)
}

func (svc *service) Update(ctx context.Context, id int, uc UpdateClass) (Class, error) {
	cls := Class{
		ID:          id,
		Name:        uc.Name,
		Description: uc.Description,
		UpdatedAt:   time.Now().UTC(),
	}
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *service) Delete(ctx context.Context, id int) error {
	return svc.repo.DeleteClass(ctx, id)
}

func (svc *service) AddStudent(ctx context.Context, classID, studentID int) error {
	student, err := svc.usrSvc.GetByID(ctx, studentID)
	if err != nil {
		if err == user.ErrNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
		}
		return err
	}
	if !student.IsStudent() {
		return core.NewValidationError(ErrNotAStudent, core.FieldError{Field: "student_id", Error: ErrNotAStudent.Error()})
	}
	if err = svc.repo.AddClassStudent(ctx, classID, studentID); err != nil {
		if err == ErrStudentInClass {
			return core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) RemoveStudent(ctx context.Context, classID, studentID int) error {
	return svc.repo.RemoveClassStudent(ctx, classID, studentID)
}

func (svc *service) Students(ctx context.Context, classID int) ([]user.User, error) {
	return svc.repo.ClassStudents(ctx, classID)
}

func (svc *service) ClassesForStudent(ctx context.Context, studentID int) ([]Class, error) {
	return svc.repo.StudentClasses(ctx, studentID)
}

func (svc *service) AssignBook(ctx context.Context, classID, bookID int) error {
	if err := svc.repo.AssignClassBook(ctx, classID, bookID); err != nil {
		if err == ErrBookAssigned {
			return core.NewValidationError(err, core.FieldError{Field: "book_id", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) UnassignBook(ctx context.Context, classID, bookID int) error {
	return svc.repo.UnassignClassBook(ctx, classID, bookID)
}

func (svc *service) AssignedBooks(ctx context.Context, classID int) ([]AssignedBook, error) {
	return svc.repo.ClassAssignedBooks(ctx, classID)
}
