package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/class"
	"github.com/trezcool/soma/core/user"
)

type classRow struct {
	ID          int       `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	TeacherID   int       `db:"teacher_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r classRow) class() class.Class {
	return class.Class{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		TeacherID:   r.TeacherID,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func classRowsToClasses(rows []classRow) []class.Class {
	classes := make([]class.Class, 0, len(rows))
	for _, r := range rows {
		classes = append(classes, r.class())
	}
	return classes
}

var classOrderCols = map[string]bool{
	"id": true, "name": true, "created_at": true, "updated_at": true,
}

type classRepository struct {
	db *sqlx.DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *sqlx.DB) *classRepository {
	return &classRepository{db: db}
}

func (repo classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	q := `
		INSERT INTO classes (name, description, teacher_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, q, cls.Name, cls.Description, cls.TeacherID, cls.CreatedAt.UTC(), cls.UpdatedAt.UTC(),
	).Scan(&cls.ID)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "inserting class")
	}
	return cls, nil
}

func (repo classRepository) GetClassByID(ctx context.Context, id int) (class.Class, error) {
	var r classRow
	if err := repo.db.GetContext(ctx, &r, "SELECT * FROM classes WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return class.Class{}, class.ErrNotFound
		}
		return class.Class{}, errors.Wrap(err, "finding class")
	}
	return r.class(), nil
}

func (repo classRepository) QueryClasses(ctx context.Context, teacherID int, ordering []core.DBOrdering) ([]class.Class, error) {
	q := "SELECT * FROM classes"
	var args []interface{}
	if teacherID > 0 {
		q += " WHERE teacher_id = $1"
		args = append(args, teacherID)
	}
	q += " ORDER BY " + orderClause(ordering, classOrderCols, "name ASC")

	var rows []classRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}
	return classRowsToClasses(rows), nil
}

func (repo classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	q := `
		UPDATE classes SET name = $1, description = $2, updated_at = $3
		WHERE id = $4
		RETURNING *`
	var r classRow
	if err := repo.db.GetContext(ctx, &r, q, cls.Name, cls.Description, cls.UpdatedAt.UTC(), cls.ID); err != nil {
		if err == sql.ErrNoRows {
			return class.Class{}, class.ErrNotFound
		}
		return class.Class{}, errors.Wrap(err, "updating class")
	}
	return r.class(), nil
}

func (repo classRepository) DeleteClass(ctx context.Context, id int) error {
	_, err := repo.db.ExecContext(ctx, "DELETE FROM classes WHERE id = $1", id)
	return errors.Wrap(err, "deleting class")
}

func (repo classRepository) AddClassStudent(ctx context.Context, classID, studentID int) error {
	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO class_students (class_id, student_id) VALUES ($1, $2)", classID, studentID)
	if err != nil {
		if isUniqueViolation(err) {
			return class.ErrStudentInClass
		}
		return errors.Wrap(err, "adding class student")
	}
	return nil
}

func (repo classRepository) RemoveClassStudent(ctx context.Context, classID, studentID int) error {
	_, err := repo.db.ExecContext(ctx,
		"DELETE FROM class_students WHERE class_id = $1 AND student_id = $2", classID, studentID)
	return errors.Wrap(err, "removing class student")
}

func (repo classRepository) ClassStudents(ctx context.Context, classID int) ([]user.User, error) {
	q := `
		SELECT u.* FROM users u
		JOIN class_students cs ON cs.student_id = u.id
		WHERE cs.class_id = $1
		ORDER BY u.name`
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, classID); err != nil {
		return nil, errors.Wrap(err, "querying class students")
	}
	students := make([]user.User, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.user())
	}
	return students, nil
}

func (repo classRepository) StudentClasses(ctx context.Context, studentID int) ([]class.Class, error) {
	q := `
		SELECT c.* FROM classes c
		JOIN class_students cs ON cs.class_id = c.id
		WHERE cs.student_id = $1
		ORDER BY c.name`
	var rows []classRow
	if err := repo.db.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying student classes")
	}
	return classRowsToClasses(rows), nil
}

func (repo classRepository) AssignClassBook(ctx context.Context, classID, bookID int) error {
	_, err := repo.db.ExecContext(ctx,
		"INSERT INTO assigned_readings (class_id, book_id) VALUES ($1, $2)", classID, bookID)
	if err != nil {
		if isUniqueViolation(err) {
			return class.ErrBookAssigned
		}
		return errors.Wrap(err, "assigning class book")
	}
	return nil
}

func (repo classRepository) UnassignClassBook(ctx context.Context, classID, bookID int) error {
	_, err := repo.db.ExecContext(ctx,
		"DELETE FROM assigned_readings WHERE class_id = $1 AND book_id = $2", classID, bookID)
	return errors.Wrap(err, "unassigning class book")
}

func (repo classRepository) ClassAssignedBooks(ctx context.Context, classID int) ([]class.AssignedBook, error) {
	q := `
		SELECT b.*, ar.assigned_at FROM books b
		JOIN assigned_readings ar ON ar.book_id = b.id
		WHERE ar.class_id = $1
		ORDER BY ar.assigned_at DESC`
	rows, err := repo.db.QueryxContext(ctx, q, classID)
	if err != nil {
		return nil, errors.Wrap(err, "querying assigned books")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer rows.Close()

	var assigned []class.AssignedBook
	for rows.Next() {
		var r struct {
			bookRow
			AssignedAt time.Time `db:"assigned_at"`
		}
		if err = rows.StructScan(&r); err != nil {
			return nil, errors.Wrap(err, "scanning assigned book")
		}
		assigned = append(assigned, class.AssignedBook{Book: r.book(), AssignedAt: r.AssignedAt})
	}
	return assigned, errors.Wrap(rows.Err(), "querying assigned books")
}
