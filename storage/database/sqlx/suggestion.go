package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/soma/core/suggestion"
)

type teacherSuggestionRow struct {
	ID            int       `db:"ts_id"`
	StudentID     int       `db:"student_id"`
	BookID        int       `db:"book_id"`
	SuggestedByID int       `db:"suggested_by_id"`
	Reason        string    `db:"reason"`
	IsAccepted    bool      `db:"is_accepted"`
	SuggestedAt   time.Time `db:"suggested_at"`
	bookRow
}

func (r teacherSuggestionRow) suggestion() suggestion.TeacherSuggestion {
	return suggestion.TeacherSuggestion{
		ID:            r.ID,
		StudentID:     r.StudentID,
		BookID:        r.BookID,
		SuggestedByID: r.SuggestedByID,
		Reason:        r.Reason,
		IsAccepted:    r.IsAccepted,
		SuggestedAt:   r.SuggestedAt,
		Book:          r.book(),
	}
}

type bookSuggestionRow struct {
	ID           int       `db:"id"`
	StudentID    int       `db:"student_id"`
	Title        string    `db:"title"`
	Author       string    `db:"author"`
	Reason       string    `db:"reason"`
	Status       string    `db:"status"`
	SuggestedAt  time.Time `db:"suggested_at"`
	ReviewedAt   null.Time `db:"reviewed_at"`
	ReviewedByID null.Int  `db:"reviewed_by_id"`
	AdminNotes   string    `db:"admin_notes"`
	BookID       null.Int  `db:"book_id"`
}

func (r bookSuggestionRow) suggestion() suggestion.BookSuggestion {
	return suggestion.BookSuggestion{
		ID:           r.ID,
		StudentID:    r.StudentID,
		Title:        r.Title,
		Author:       r.Author,
		Reason:       r.Reason,
		Status:       r.Status,
		SuggestedAt:  r.SuggestedAt,
		ReviewedAt:   r.ReviewedAt,
		ReviewedByID: r.ReviewedByID,
		AdminNotes:   r.AdminNotes,
		BookID:       r.BookID,
	}
}

type editSuggestionRow struct {
	ID           int         `db:"id"`
	BookID       int         `db:"book_id"`
	StudentID    int         `db:"student_id"`
	Title        null.String `db:"suggested_title"`
	Author       null.String `db:"suggested_author"`
	ISBN         null.String `db:"suggested_isbn"`
	Type         null.String `db:"suggested_book_type"`
	Genre        null.String `db:"suggested_genre"`
	SubGenre     null.String `db:"suggested_sub_genre"`
	Topic        null.String `db:"suggested_topic"`
	LexileRating null.String `db:"suggested_lexile_rating"`
	Grade        null.Int    `db:"suggested_grade"`
	Owned        null.String `db:"suggested_owned"`
	Reason       string      `db:"reason"`
	Status       string      `db:"status"`
	SuggestedAt  time.Time   `db:"suggested_at"`
	ReviewedAt   null.Time   `db:"reviewed_at"`
	ReviewedByID null.Int    `db:"reviewed_by_id"`
	AdminNotes   string      `db:"admin_notes"`
}

func (r editSuggestionRow) suggestion() suggestion.BookEditSuggestion {
	return suggestion.BookEditSuggestion{
		ID:           r.ID,
		BookID:       r.BookID,
		StudentID:    r.StudentID,
		Title:        r.Title,
		Author:       r.Author,
		ISBN:         r.ISBN,
		Type:         r.Type,
		Genre:        r.Genre,
		SubGenre:     r.SubGenre,
		Topic:        r.Topic,
		LexileRating: r.LexileRating,
		Grade:        r.Grade,
		Owned:        r.Owned,
		Reason:       r.Reason,
		Status:       r.Status,
		SuggestedAt:  r.SuggestedAt,
		ReviewedAt:   r.ReviewedAt,
		ReviewedByID: r.ReviewedByID,
		AdminNotes:   r.AdminNotes,
	}
}

type suggestionRepository struct {
	db *sqlx.DB
}

var _ suggestion.Repository = (*suggestionRepository)(nil) // interface compliance check

func NewSuggestionRepository(db *sqlx.DB) *suggestionRepository {
	return &suggestionRepository{db: db}
}

// Teacher suggestions

const teacherSuggestionSelect = `
	SELECT sb.id AS ts_id, sb.student_id, sb.suggested_by_id, sb.reason, sb.is_accepted, sb.suggested_at, b.*
	FROM suggested_books sb
	JOIN books b ON b.id = sb.book_id`

func (repo suggestionRepository) CreateTeacherSuggestion(ctx context.Context, ts suggestion.TeacherSuggestion) (suggestion.TeacherSuggestion, error) {
	q := `
		INSERT INTO suggested_books (student_id, book_id, suggested_by_id, reason, is_accepted, suggested_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, q, ts.StudentID, ts.BookID, ts.SuggestedByID, ts.Reason, ts.IsAccepted, ts.SuggestedAt.UTC(),
	).Scan(&ts.ID)
	if err != nil {
		if isUniqueViolation(err, "uq_suggested_student_book") {
			return suggestion.TeacherSuggestion{}, suggestion.ErrAlreadySuggested
		}
		return suggestion.TeacherSuggestion{}, errors.Wrap(err, "inserting teacher suggestion")
	}
	return ts, nil
}

func (repo suggestionRepository) GetTeacherSuggestion(ctx context.Context, id int) (suggestion.TeacherSuggestion, error) {
	var r teacherSuggestionRow
	if err := repo.db.GetContext(ctx, &r, teacherSuggestionSelect+" WHERE sb.id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return suggestion.TeacherSuggestion{}, suggestion.ErrNotFound
		}
		return suggestion.TeacherSuggestion{}, errors.Wrap(err, "finding teacher suggestion")
	}
	ts := r.suggestion()
	ts.BookID = ts.Book.ID
	return ts, nil
}

func (repo suggestionRepository) PendingTeacherSuggestions(ctx context.Context, studentID int) ([]suggestion.TeacherSuggestion, error) {
	var rows []teacherSuggestionRow
	q := teacherSuggestionSelect + " WHERE sb.student_id = $1 AND NOT sb.is_accepted ORDER BY sb.suggested_at DESC"
	if err := repo.db.SelectContext(ctx, &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying pending teacher suggestions")
	}
	suggestions := make([]suggestion.TeacherSuggestion, 0, len(rows))
	for _, r := range rows {
		ts := r.suggestion()
		ts.BookID = ts.Book.ID
		suggestions = append(suggestions, ts)
	}
	return suggestions, nil
}

func (repo suggestionRepository) UpdateTeacherSuggestion(ctx context.Context, ts suggestion.TeacherSuggestion) (suggestion.TeacherSuggestion, error) {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE suggested_books SET is_accepted = $1, reason = $2 WHERE id = $3",
		ts.IsAccepted, ts.Reason, ts.ID)
	if err != nil {
		return suggestion.TeacherSuggestion{}, errors.Wrap(err, "updating teacher suggestion")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return suggestion.TeacherSuggestion{}, suggestion.ErrNotFound
	}
	return ts, nil
}

// Student book suggestions

func (repo suggestionRepository) CreateBookSuggestion(ctx context.Context, bs suggestion.BookSuggestion) (suggestion.BookSuggestion, error) {
	q := `
		INSERT INTO book_suggestions (student_id, title, author, reason, status, suggested_at, admin_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, q, bs.StudentID, bs.Title, bs.Author, bs.Reason, bs.Status, bs.SuggestedAt.UTC(), bs.AdminNotes,
	).Scan(&bs.ID)
	if err != nil {
		return suggestion.BookSuggestion{}, errors.Wrap(err, "inserting book suggestion")
	}
	return bs, nil
}

func (repo suggestionRepository) GetBookSuggestion(ctx context.Context, id int) (suggestion.BookSuggestion, error) {
	var r bookSuggestionRow
	if err := repo.db.GetContext(ctx, &r, "SELECT * FROM book_suggestions WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return suggestion.BookSuggestion{}, suggestion.ErrNotFound
		}
		return suggestion.BookSuggestion{}, errors.Wrap(err, "finding book suggestion")
	}
	return r.suggestion(), nil
}

func (repo suggestionRepository) QueryBookSuggestions(ctx context.Context, studentID int, status string) ([]suggestion.BookSuggestion, error) {
	var (
		where []string
		args  []interface{}
	)
	if studentID > 0 {
		args = append(args, studentID)
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if status != "" {
		args = append(args, status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	q := "SELECT * FROM book_suggestions"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY suggested_at DESC"

	var rows []bookSuggestionRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying book suggestions")
	}
	suggestions := make([]suggestion.BookSuggestion, 0, len(rows))
	for _, r := range rows {
		suggestions = append(suggestions, r.suggestion())
	}
	return suggestions, nil
}

func (repo suggestionRepository) UpdateBookSuggestion(ctx context.Context, bs suggestion.BookSuggestion) (suggestion.BookSuggestion, error) {
	q := `
		UPDATE book_suggestions SET
			status = $1, admin_notes = $2, reviewed_at = $3, reviewed_by_id = $4, book_id = $5
		WHERE id = $6`
	res, err := repo.db.ExecContext(ctx, q, bs.Status, bs.AdminNotes, bs.ReviewedAt, bs.ReviewedByID, bs.BookID, bs.ID)
	if err != nil {
		return suggestion.BookSuggestion{}, errors.Wrap(err, "updating book suggestion")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return suggestion.BookSuggestion{}, suggestion.ErrNotFound
	}
	return bs, nil
}

// Student edit suggestions

func (repo suggestionRepository) CreateEditSuggestion(ctx context.Context, es suggestion.BookEditSuggestion) (suggestion.BookEditSuggestion, error) {
	q := `
		INSERT INTO book_edit_suggestions (
			book_id, student_id, suggested_title, suggested_author, suggested_isbn,
			suggested_book_type, suggested_genre, suggested_sub_genre, suggested_topic,
			suggested_lexile_rating, suggested_grade, suggested_owned, reason, status, suggested_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, q,
		es.BookID, es.StudentID, es.Title, es.Author, es.ISBN,
		es.Type, es.Genre, es.SubGenre, es.Topic,
		es.LexileRating, es.Grade, es.Owned, es.Reason, es.Status, es.SuggestedAt.UTC(),
	).Scan(&es.ID)
	if err != nil {
		return suggestion.BookEditSuggestion{}, errors.Wrap(err, "inserting edit suggestion")
	}
	return es, nil
}

func (repo suggestionRepository) GetEditSuggestion(ctx context.Context, id int) (suggestion.BookEditSuggestion, error) {
	var r editSuggestionRow
	if err := repo.db.GetContext(ctx, &r, "SELECT * FROM book_edit_suggestions WHERE id = $1", id); err != nil {
		if err == sql.ErrNoRows {
			return suggestion.BookEditSuggestion{}, suggestion.ErrNotFound
		}
		return suggestion.BookEditSuggestion{}, errors.Wrap(err, "finding edit suggestion")
	}
	return r.suggestion(), nil
}

func (repo suggestionRepository) QueryEditSuggestions(ctx context.Context, studentID int, status string) ([]suggestion.BookEditSuggestion, error) {
	var (
		where []string
		args  []interface{}
	)
	if studentID > 0 {
		args = append(args, studentID)
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if status != "" {
		args = append(args, status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	q := "SELECT * FROM book_edit_suggestions"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY suggested_at DESC"

	var rows []editSuggestionRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying edit suggestions")
	}
	suggestions := make([]suggestion.BookEditSuggestion, 0, len(rows))
	for _, r := range rows {
		suggestions = append(suggestions, r.suggestion())
	}
	return suggestions, nil
}

func (repo suggestionRepository) UpdateEditSuggestion(ctx context.Context, es suggestion.BookEditSuggestion) (suggestion.BookEditSuggestion, error) {
	q := `
		UPDATE book_edit_suggestions SET
			status = $1, admin_notes = $2, reviewed_at = $3, reviewed_by_id = $4
		WHERE id = $5`
	res, err := repo.db.ExecContext(ctx, q, es.Status, es.AdminNotes, es.ReviewedAt, es.ReviewedByID, es.ID)
	if err != nil {
		return suggestion.BookEditSuggestion{}, errors.Wrap(err, "updating edit suggestion")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return suggestion.BookEditSuggestion{}, suggestion.ErrNotFound
	}
	return es, nil
}
