package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/book"
)

type bookRow struct {
	ID               int       `db:"id"`
	Title            string    `db:"title"`
	Author           string    `db:"author"`
	ISBN             string    `db:"isbn"`
	OpenLibraryID    string    `db:"open_library_id"`
	Type             string    `db:"book_type"`
	Genre            string    `db:"genre"`
	SubGenre         string    `db:"sub_genre"`
	Topic            string    `db:"topic"`
	LexileRating     string    `db:"lexile_rating"`
	Grade            int       `db:"grade"`
	Owned            string    `db:"owned"`
	Description      string    `db:"description"`
	CoverURL         string    `db:"cover_url"`
	PublicationYear  int       `db:"publication_year"`
	NormalizedTitle  string    `db:"normalized_title"`
	NormalizedAuthor string    `db:"normalized_author"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r bookRow) book() book.Book {
	return book.Book{
		ID:              r.ID,
		Title:           r.Title,
		Author:          r.Author,
		ISBN:            r.ISBN,
		OpenLibraryID:   r.OpenLibraryID,
		Type:            r.Type,
		Genre:           r.Genre,
		SubGenre:        r.SubGenre,
		Topic:           r.Topic,
		LexileRating:    r.LexileRating,
		Grade:           r.Grade,
		Owned:           r.Owned,
		Description:     r.Description,
		CoverURL:        r.CoverURL,
		PublicationYear: r.PublicationYear,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func bookRowsToBooks(rows []bookRow) []book.Book {
	books := make([]book.Book, 0, len(rows))
	for _, r := range rows {
		books = append(books, r.book())
	}
	return books
}

var bookOrderCols = map[string]bool{
	"id": true, "title": true, "author": true, "book_type": true, "genre": true,
	"grade": true, "publication_year": true, "created_at": true, "updated_at": true,
}

type bookRepository struct {
	db *sqlx.DB
}

var _ book.Repository = (*bookRepository)(nil) // interface compliance check

func NewBookRepository(db *sqlx.DB) *bookRepository {
	return &bookRepository{db: db}
}

func (repo bookRepository) CreateBook(ctx context.Context, bk book.Book) (book.Book, error) {
	q := `
		INSERT INTO books (
			title, author, isbn, open_library_id, book_type, genre, sub_genre, topic,
			lexile_rating, grade, owned, description, cover_url, publication_year,
			normalized_title, normalized_author, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, q,
		bk.Title, bk.Author, bk.ISBN, bk.OpenLibraryID, bk.Type, bk.Genre, bk.SubGenre, bk.Topic,
		bk.LexileRating, bk.Grade, bk.Owned, bk.Description, bk.CoverURL, bk.PublicationYear,
		bk.NormalizedTitle(), bk.NormalizedAuthor(), bk.CreatedAt.UTC(), bk.UpdatedAt.UTC(),
	).Scan(&bk.ID)
	if err != nil {
		if isUniqueViolation(err, "uq_author_title") {
			return book.Book{}, book.ErrBookExists
		}
		if isUniqueViolation(err, "uq_books_isbn") {
			return book.Book{}, book.ErrISBNExists
		}
		return book.Book{}, errors.Wrap(err, "inserting book")
	}
	return bk, nil
}

func (repo bookRepository) QueryBooks(ctx context.Context, filter *book.QueryFilter, ordering []core.DBOrdering) ([]book.Book, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			where = append(where, fmt.Sprintf("(title ILIKE %[1]s OR author ILIKE %[1]s)", arg(val)))
		}
		if filter.Type != "" {
			where = append(where, "book_type = "+arg(filter.Type))
		}
		if filter.Genre != "" {
			where = append(where, "genre ILIKE "+arg(filter.Genre))
		}
		if filter.SubGenre != "" {
			where = append(where, "sub_genre ILIKE "+arg(filter.SubGenre))
		}
		if filter.Topic != "" {
			where = append(where, "topic ILIKE "+arg(filter.Topic))
		}
		if filter.Owned != "" {
			where = append(where, "owned = "+arg(filter.Owned))
		}
		if filter.GradeFrom > 0 {
			where = append(where, "grade >= "+arg(filter.GradeFrom))
		}
		if filter.GradeTo > 0 {
			where = append(where, "grade <= "+arg(filter.GradeTo))
		}
	}

	q := "SELECT * FROM books"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + orderClause(ordering, bookOrderCols, "title ASC")

	var rows []bookRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying books")
	}
	return bookRowsToBooks(rows), nil
}

func (repo bookRepository) getBook(ctx context.Context, q string, args ...interface{}) (book.Book, error) {
	var r bookRow
	if err := repo.db.GetContext(ctx, &r, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return book.Book{}, book.ErrNotFound
		}
		return book.Book{}, errors.Wrap(err, "finding book")
	}
	return r.book(), nil
}

func (repo bookRepository) GetBookByID(ctx context.Context, id int) (book.Book, error) {
	return repo.getBook(ctx, "SELECT * FROM books WHERE id = $1", id)
}

func (repo bookRepository) GetBookByISBN(ctx context.Context, isbn string) (book.Book, error) {
	return repo.getBook(ctx, "SELECT * FROM books WHERE isbn = $1 AND isbn <> ''", isbn)
}

func (repo bookRepository) GetBookByNormalizedTitleAuthor(ctx context.Context, title, author string) (book.Book, error) {
	return repo.getBook(ctx,
		"SELECT * FROM books WHERE normalized_title = $1 AND normalized_author = $2", title, author)
}

func (repo bookRepository) UpdateBook(ctx context.Context, bk book.Book) (book.Book, error) {
	q := `
		UPDATE books SET
			title = $1, author = $2, isbn = $3, open_library_id = $4, book_type = $5,
			genre = $6, sub_genre = $7, topic = $8, lexile_rating = $9, grade = $10,
			owned = $11, description = $12, cover_url = $13, publication_year = $14,
			normalized_title = $15, normalized_author = $16, updated_at = $17
		WHERE id = $18
		RETURNING *`
	var r bookRow
	err := repo.db.GetContext(
		ctx, &r, q,
		bk.Title, bk.Author, bk.ISBN, bk.OpenLibraryID, bk.Type,
		bk.Genre, bk.SubGenre, bk.Topic, bk.LexileRating, bk.Grade,
		bk.Owned, bk.Description, bk.CoverURL, bk.PublicationYear,
		bk.NormalizedTitle(), bk.NormalizedAuthor(), bk.UpdatedAt.UTC(), bk.ID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return book.Book{}, book.ErrNotFound
		}
		if isUniqueViolation(err, "uq_author_title") {
			return book.Book{}, book.ErrBookExists
		}
		if isUniqueViolation(err, "uq_books_isbn") {
			return book.Book{}, book.ErrISBNExists
		}
		return book.Book{}, errors.Wrap(err, "updating book")
	}
	return r.book(), nil
}

func (repo bookRepository) DeleteBook(ctx context.Context, id int) error {
	_, err := repo.db.ExecContext(ctx, "DELETE FROM books WHERE id = $1", id)
	return errors.Wrap(err, "deleting book")
}

func (repo bookRepository) CountBookReviews(ctx context.Context, bookID int) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM reviews WHERE book_id = $1", bookID)
	return count, errors.Wrap(err, "counting book reviews")
}

func (repo bookRepository) ClearBookSuggestions(ctx context.Context, bookID int) error {
	_, err := repo.db.ExecContext(ctx, "DELETE FROM suggested_books WHERE book_id = $1", bookID)
	return errors.Wrap(err, "clearing book suggestions")
}

func (repo bookRepository) Genres(ctx context.Context) ([]book.Genre, error) {
	var genres []book.Genre
	err := repo.db.SelectContext(ctx, &genres, "SELECT id, name FROM genres ORDER BY name")
	return genres, errors.Wrap(err, "querying genres")
}

func (repo bookRepository) SubGenres(ctx context.Context) ([]book.SubGenre, error) {
	var subGenres []book.SubGenre
	err := repo.db.SelectContext(ctx, &subGenres,
		`SELECT id, name, genre_id AS "genre_id" FROM sub_genres ORDER BY name`)
	return subGenres, errors.Wrap(err, "querying sub-genres")
}

func (repo bookRepository) Topics(ctx context.Context) ([]book.Topic, error) {
	var topics []book.Topic
	err := repo.db.SelectContext(ctx, &topics, "SELECT id, name FROM topics ORDER BY name")
	return topics, errors.Wrap(err, "querying topics")
}

func (repo bookRepository) CreateGenre(ctx context.Context, g book.Genre) (book.Genre, error) {
	err := repo.db.QueryRowContext(ctx,
		"INSERT INTO genres (name) VALUES ($1) RETURNING id", g.Name).Scan(&g.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return book.Genre{}, book.ErrGenreExists
		}
		return book.Genre{}, errors.Wrap(err, "inserting genre")
	}
	return g, nil
}

func (repo bookRepository) DeleteGenre(ctx context.Context, id int) error {
	_, err := repo.db.ExecContext(ctx, "DELETE FROM genres WHERE id = $1", id)
	return errors.Wrap(err, "deleting genre")
}

func (repo bookRepository) CreateSubGenre(ctx context.Context, sg book.SubGenre) (book.SubGenre, error) {
	err := repo.db.QueryRowContext(ctx,
		"INSERT INTO sub_genres (name, genre_id) VALUES ($1, $2) RETURNING id", sg.Name, sg.GenreID).Scan(&sg.ID)
	if err != nil {
		if isUniqueViolation(err, "uq_sub_genre_name") {
			return book.SubGenre{}, book.ErrSubGenreExists
		}
		if isForeignKeyViolation(err) {
			return book.SubGenre{}, book.ErrTaxonomyNotFound
		}
		return book.SubGenre{}, errors.Wrap(err, "inserting sub-genre")
	}
	return sg, nil
}

func (repo bookRepository) DeleteSubGenre(ctx context.Context, id int) error {
	_, err := repo.db.ExecContext(ctx, "DELETE FROM sub_genres WHERE id = $1", id)
	return errors.Wrap(err, "deleting sub-genre")
}

func (repo bookRepository) CreateTopic(ctx context.Context, tp book.Topic) (book.Topic, error) {
	err := repo.db.QueryRowContext(ctx,
		"INSERT INTO topics (name) VALUES ($1) RETURNING id", tp.Name).Scan(&tp.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return book.Topic{}, book.ErrTopicExists
		}
		return book.Topic{}, errors.Wrap(err, "inserting topic")
	}
	return tp, nil
}

func (repo bookRepository) DeleteTopic(ctx context.Context, id int) error {
	_, err := repo.db.ExecContext(ctx, "DELETE FROM topics WHERE id = $1", id)
	return errors.Wrap(err, "deleting topic")
}

func (repo bookRepository) GenreMappings(ctx context.Context) ([]book.GenreMapping, error) {
	var mappings []book.GenreMapping
	err := repo.db.SelectContext(ctx, &mappings,
		"SELECT id, from_name, to_genre FROM genre_map ORDER BY from_name")
	return mappings, errors.Wrap(err, "querying genre mappings")
}

func (repo bookRepository) CreateGenreMapping(ctx context.Context, gm book.GenreMapping) (book.GenreMapping, error) {
	err := repo.db.QueryRowContext(ctx,
		"INSERT INTO genre_map (from_name, to_genre) VALUES ($1, $2) RETURNING id", gm.FromName, gm.ToGenre).Scan(&gm.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return book.GenreMapping{}, book.ErrMappingExists
		}
		return book.GenreMapping{}, errors.Wrap(err, "inserting genre mapping")
	}
	return gm, nil
}

func (repo bookRepository) DeleteGenreMapping(ctx context.Context, id int) error {
	_, err := repo.db.ExecContext(ctx, "DELETE FROM genre_map WHERE id = $1", id)
	return errors.Wrap(err, "deleting genre mapping")
}

func (repo bookRepository) CanonicalGenre(ctx context.Context, name string) (string, error) {
	var canonical string
	err := repo.db.GetContext(ctx, &canonical,
		"SELECT to_genre FROM genre_map WHERE lower(from_name) = lower($1)", name)
	if err == sql.ErrNoRows {
		return name, nil
	}
	if err != nil {
		return name, errors.Wrap(err, "resolving genre")
	}
	return canonical, nil
}
