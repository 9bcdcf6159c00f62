package book

import (
	"regexp"
	"strings"
	"time"

	"github.com/trezcool/soma/core"
)

// Book types
const (
	TypeFiction    = "Fiction"
	TypeNonFiction = "Non-Fiction"
)

// Ownership states
const (
	OwnedPhysical = "Physical"
	OwnedKindle   = "Kindle"
	OwnedAudible  = "Audible"
	OwnedNot      = "Not Owned"
)

var (
	Types     = []string{TypeFiction, TypeNonFiction}
	OwnedEnum = []string{OwnedPhysical, OwnedKindle, OwnedAudible, OwnedNot}

	punctRegex = regexp.MustCompile(`[^\w\s]`)
	spaceRegex = regexp.MustCompile(`\s+`)
)

// Normalize lowercases s, strips punctuation and collapses runs of whitespace.
// Duplicate detection compares normalized (author, title) pairs so that
// "The Hobbit!" and "the hobbit" land on the same record.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = punctRegex.ReplaceAllString(s, "")
	return spaceRegex.ReplaceAllString(s, " ")
}

type Book struct {
	ID              int       `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn"`
	OpenLibraryID   string    `json:"open_library_id"`
	Type            string    `json:"book_type"`
	Genre           string    `json:"genre"`
	SubGenre        string    `json:"sub_genre"`
	Topic           string    `json:"topic"`
	LexileRating    string    `json:"lexile_rating"`
	Grade           int       `json:"grade"` // 1..12; 0 = unset
	Owned           string    `json:"owned"`
	Description     string    `json:"description"`
	CoverURL        string    `json:"cover_url"`
	PublicationYear int       `json:"publication_year"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

func (b *Book) NormalizedTitle() string  { return Normalize(b.Title) }
func (b *Book) NormalizedAuthor() string { return Normalize(b.Author) }

// Taxonomy

type Genre struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type SubGenre struct {
	ID      int    `json:"id" db:"id"`
	Name    string `json:"name" db:"name"`
	GenreID int    `json:"genre_id" db:"genre_id"`
}

type Topic struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// GenreMapping aliases a raw genre name to its canonical form.
type GenreMapping struct {
	ID       int    `json:"id" db:"id"`
	FromName string `json:"from_name" db:"from_name"`
	ToGenre  string `json:"to_genre" db:"to_genre"`
}

// NewBook contains information needed to create a new Book.
type NewBook struct {
	Title           string `json:"title" validate:"required"`
	Author          string `json:"author"`
	ISBN            string `json:"isbn" validate:"omitempty,isbn_digits"`
	Type            string `json:"book_type" validate:"omitempty,booktype"`
	Genre           string `json:"genre"`
	SubGenre        string `json:"sub_genre"`
	Topic           string `json:"topic"`
	LexileRating    string `json:"lexile_rating"`
	Grade           int    `json:"grade" validate:"omitempty,min=1,max=12"`
	Owned           string `json:"owned" validate:"omitempty,bookowned"`
	Description     string `json:"description"`
	CoverURL        string `json:"cover_url"`
	PublicationYear int    `json:"publication_year"`
	Enrich          bool   `json:"enrich"` // fill missing fields from OpenLibrary when an ISBN is present
}

func (nb *NewBook) Validate() error {
	nb.Title = core.CleanString(nb.Title)
	nb.Author = core.CleanString(nb.Author)
	nb.ISBN = cleanISBN(nb.ISBN)
	nb.Genre = core.CleanString(nb.Genre)
	nb.SubGenre = core.CleanString(nb.SubGenre)
	nb.Topic = core.CleanString(nb.Topic)
	nb.LexileRating = core.CleanString(nb.LexileRating)
	return core.Validate.Struct(nb)
}

// UpdateBook defines what information may be provided to modify an existing Book.
// Empty fields keep their current values.
type UpdateBook struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	ISBN            string `json:"isbn" validate:"omitempty,isbn_digits"`
	Type            string `json:"book_type" validate:"omitempty,booktype"`
	Genre           string `json:"genre"`
	SubGenre        string `json:"sub_genre"`
	Topic           string `json:"topic"`
	LexileRating    string `json:"lexile_rating"`
	Grade           int    `json:"grade" validate:"omitempty,min=1,max=12"`
	Owned           string `json:"owned" validate:"omitempty,bookowned"`
	Description     string `json:"description"`
	CoverURL        string `json:"cover_url"`
	PublicationYear int    `json:"publication_year"`
}

func (ub *UpdateBook) Validate(orig Book) error {
	if title := core.CleanString(ub.Title); title != "" {
		ub.Title = title
	} else {
		ub.Title = orig.Title
	}
	if author := core.CleanString(ub.Author); author != "" {
		ub.Author = author
	} else {
		ub.Author = orig.Author
	}
	if isbn := cleanISBN(ub.ISBN); isbn != "" {
		ub.ISBN = isbn
	} else {
		ub.ISBN = orig.ISBN
	}
	if ub.Type == "" {
		ub.Type = orig.Type
	}
	if ub.Genre = core.CleanString(ub.Genre); ub.Genre == "" {
		ub.Genre = orig.Genre
	}
	if ub.SubGenre = core.CleanString(ub.SubGenre); ub.SubGenre == "" {
		ub.SubGenre = orig.SubGenre
	}
	if ub.Topic = core.CleanString(ub.Topic); ub.Topic == "" {
		ub.Topic = orig.Topic
	}
	if ub.LexileRating = core.CleanString(ub.LexileRating); ub.LexileRating == "" {
		ub.LexileRating = orig.LexileRating
	}
	if ub.Grade == 0 {
		ub.Grade = orig.Grade
	}
	if ub.Owned == "" {
		ub.Owned = orig.Owned
	}
	if ub.Description == "" {
		ub.Description = orig.Description
	}
	if ub.CoverURL == "" {
		ub.CoverURL = orig.CoverURL
	}
	if ub.PublicationYear == 0 {
		ub.PublicationYear = orig.PublicationYear
	}
	return core.Validate.Struct(ub)
}

// cleanISBN strips hyphens and spaces so "978-0-395-19395-8" matches its bare form.
func cleanISBN(isbn string) string {
	isbn = strings.ToUpper(strings.TrimSpace(isbn))
	isbn = strings.ReplaceAll(isbn, "-", "")
	return strings.ReplaceAll(isbn, " ", "")
}

// Bulk actions
const (
	BulkDelete   = "delete"
	BulkSetType  = "set_type"
	BulkSetOwned = "set_owned"
	BulkSetGenre = "set_genre"
)

// BulkAction applies one action to a selection of catalog books.
type BulkAction struct {
	Action  string `json:"action" validate:"required,oneof=delete set_type set_owned set_genre"`
	BookIDs []int  `json:"book_ids" validate:"required"`
	Type    string `json:"book_type" validate:"omitempty,booktype"`
	Owned   string `json:"owned" validate:"omitempty,bookowned"`
	Genre   string `json:"genre"`
}

func (ba *BulkAction) Validate() error {
	ba.Genre = core.CleanString(ba.Genre)
	if err := core.Validate.Struct(ba); err != nil {
		return err
	}
	switch {
	case ba.Action == BulkSetType && ba.Type == "":
		return core.NewValidationError(nil, core.FieldError{Field: "book_type", Error: "this field is required"})
	case ba.Action == BulkSetOwned && ba.Owned == "":
		return core.NewValidationError(nil, core.FieldError{Field: "owned", Error: "this field is required"})
	case ba.Action == BulkSetGenre && ba.Genre == "":
		return core.NewValidationError(nil, core.FieldError{Field: "genre", Error: "this field is required"})
	}
	return nil
}

type QueryFilter struct {
	Search    string `query:"search"` // matches title or author
	Type      string `query:"book_type"`
	Genre     string `query:"genre"`
	SubGenre  string `query:"sub_genre"`
	Topic     string `query:"topic"`
	Owned     string `query:"owned"`
	GradeFrom int    `query:"grade_from"`
	GradeTo   int    `query:"grade_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Type == "" && qf.Genre == "" && qf.SubGenre == "" &&
		qf.Topic == "" && qf.Owned == "" && qf.GradeFrom == 0 && qf.GradeTo == 0
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
