package suggestion

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/book"
)

// Book suggestion statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusAdded    = "added" // approved and created in the catalog
)

type (
	// TeacherSuggestion is a catalog book a teacher recommends to a student.
	TeacherSuggestion struct {
		ID            int       `json:"id"`
		StudentID     int       `json:"student_id"`
		BookID        int       `json:"book_id"`
		SuggestedByID int       `json:"suggested_by_id"`
		Reason        string    `json:"reason"`
		IsAccepted    bool      `json:"is_accepted"`
		SuggestedAt   time.Time `json:"suggested_at"` // UTC
		Book          book.Book `json:"book"`
	}

	// BookSuggestion is a student's proposal of a book absent from the catalog.
	BookSuggestion struct {
		ID           int       `json:"id"`
		StudentID    int       `json:"student_id"`
		Title        string    `json:"title"`
		Author       string    `json:"author"`
		Reason       string    `json:"reason"`
		Status       string    `json:"status"`
		SuggestedAt  time.Time `json:"suggested_at"` // UTC
		ReviewedAt   null.Time `json:"reviewed_at"`
		ReviewedByID null.Int  `json:"reviewed_by_id"`
		AdminNotes   string    `json:"admin_notes"`
		BookID       null.Int  `json:"book_id"` // set when Status == added
	}

	// BookEditSuggestion is a student's proposed correction to a catalog record.
	// Only non-null suggested fields are applied on approval.
	BookEditSuggestion struct {
		ID           int       `json:"id"`
		BookID       int       `json:"book_id"`
		StudentID    int       `json:"student_id"`
		Title        null.String `json:"suggested_title"`
		Author       null.String `json:"suggested_author"`
		ISBN         null.String `json:"suggested_isbn"`
		Type         null.String `json:"suggested_book_type"`
		Genre        null.String `json:"suggested_genre"`
		SubGenre     null.String `json:"suggested_sub_genre"`
		Topic        null.String `json:"suggested_topic"`
		LexileRating null.String `json:"suggested_lexile_rating"`
		Grade        null.Int    `json:"suggested_grade"`
		Owned        null.String `json:"suggested_owned"`
		Reason       string      `json:"reason"`
		Status       string      `json:"status"`
		SuggestedAt  time.Time   `json:"suggested_at"` // UTC
		ReviewedAt   null.Time   `json:"reviewed_at"`
		ReviewedByID null.Int    `json:"reviewed_by_id"`
		AdminNotes   string      `json:"admin_notes"`
	}
)

// NewTeacherSuggestion contains information needed to suggest a catalog book to a student.
type NewTeacherSuggestion struct {
	StudentID int    `json:"student_id" validate:"required"`
	BookID    int    `json:"book_id" validate:"required"`
	Reason    string `json:"reason"`
}

func (ns *NewTeacherSuggestion) Validate() error {
	ns.Reason = core.CleanString(ns.Reason)
	return core.Validate.Struct(ns)
}

// NewBookSuggestion contains a student's proposal for a book to add to the library.
type NewBookSuggestion struct {
	Title  string `json:"title" validate:"required"`
	Author string `json:"author"`
	Reason string `json:"reason"`
}

func (ns *NewBookSuggestion) Validate() error {
	ns.Title = core.CleanString(ns.Title)
	ns.Author = core.CleanString(ns.Author)
	ns.Reason = core.CleanString(ns.Reason)
	return core.Validate.Struct(ns)
}

// NewEditSuggestion contains a student's proposed field corrections for a Book.
type NewEditSuggestion struct {
	BookID       int         `json:"book_id" validate:"required"`
	Title        null.String `json:"suggested_title"`
	Author       null.String `json:"suggested_author"`
	ISBN         null.String `json:"suggested_isbn"`
	Type         null.String `json:"suggested_book_type"`
	Genre        null.String `json:"suggested_genre"`
	SubGenre     null.String `json:"suggested_sub_genre"`
	Topic        null.String `json:"suggested_topic"`
	LexileRating null.String `json:"suggested_lexile_rating"`
	Grade        null.Int    `json:"suggested_grade"`
	Owned        null.String `json:"suggested_owned"`
	Reason       string      `json:"reason"`
}

func (ns *NewEditSuggestion) Validate() error {
	ns.Reason = core.CleanString(ns.Reason)
	if err := core.Validate.Struct(ns); err != nil {
		return err
	}

	var flds []core.FieldError
	if ns.Type.Valid && !contains(book.Types, ns.Type.String) {
		flds = append(flds, core.FieldError{Field: "suggested_book_type", Error: "invalid book type"})
	}
	if ns.Owned.Valid && !contains(book.OwnedEnum, ns.Owned.String) {
		flds = append(flds, core.FieldError{Field: "suggested_owned", Error: "invalid owned value"})
	}
	if ns.Grade.Valid && (ns.Grade.Int < 1 || ns.Grade.Int > 12) {
		flds = append(flds, core.FieldError{Field: "suggested_grade", Error: "grade must be between 1 and 12"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(errInvalidEdit, flds...)
	}
	return nil
}

func contains(vals []string, val string) bool {
	for _, v := range vals {
		if v == val {
			return true
		}
	}
	return false
}

// ReviewDecision is an admin's verdict on a pending suggestion.
type ReviewDecision struct {
	Status     string `json:"status" validate:"required,oneof=approved rejected added"`
	AdminNotes string `json:"admin_notes"`
}

func (rd *ReviewDecision) Validate() error {
	rd.AdminNotes = core.CleanString(rd.AdminNotes)
	return core.Validate.Struct(rd)
}
