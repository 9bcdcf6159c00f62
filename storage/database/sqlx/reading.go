package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/soma/core/book"
	"github.com/trezcool/soma/core/reading"
)

type reviewRow struct {
	ID           int       `db:"id"`
	UserID       int       `db:"user_id"`
	BookID       int       `db:"book_id"`
	Rating       int       `db:"rating"`
	WhatLiked    string    `db:"what_liked"`
	WhatLearned  string    `db:"what_learned"`
	RecommendTo  string    `db:"recommend_to"`
	FavoritePart string    `db:"favorite_part"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r reviewRow) review() reading.Review {
	return reading.Review{
		ID:           r.ID,
		UserID:       r.UserID,
		BookID:       r.BookID,
		Rating:       r.Rating,
		WhatLiked:    r.WhatLiked,
		WhatLearned:  r.WhatLearned,
		RecommendTo:  r.RecommendTo,
		FavoritePart: r.FavoritePart,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func reviewRowsToReviews(rows []reviewRow) []reading.Review {
	reviews := make([]reading.Review, 0, len(rows))
	for _, r := range rows {
		reviews = append(reviews, r.review())
	}
	return reviews
}

type readingRepository struct {
	db *sqlx.DB
}

var _ reading.Repository = (*readingRepository)(nil) // interface compliance check

func NewReadingRepository(db *sqlx.DB) *readingRepository {
	return &readingRepository{db: db}
}

func (repo readingRepository) AddListItem(ctx context.Context, item reading.ReadingListItem) (reading.ReadingListItem, error) {
	q := `
		INSERT INTO reading_list_items (user_id, book_id, position, added_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := repo.db.QueryRowContext(
		ctx, q, item.UserID, item.BookID, item.Position, item.AddedAt.UTC(),
	).Scan(&item.ID)
	if err != nil {
		if isUniqueViolation(err, "uq_list_user_book") {
			return reading.ReadingListItem{}, reading.ErrAlreadyInList
		}
		return reading.ReadingListItem{}, errors.Wrap(err, "inserting reading list item")
	}
	return item, nil
}

func (repo readingRepository) MaxListPosition(ctx context.Context, userID int) (int, error) {
	var max int
	err := repo.db.GetContext(ctx, &max,
		"SELECT COALESCE(MAX(position), 0) FROM reading_list_items WHERE user_id = $1", userID)
	return max, errors.Wrap(err, "querying max list position")
}

func (repo readingRepository) RemoveListItem(ctx context.Context, userID, bookID int) error {
	res, err := repo.db.ExecContext(ctx,
		"DELETE FROM reading_list_items WHERE user_id = $1 AND book_id = $2", userID, bookID)
	if err != nil {
		return errors.Wrap(err, "removing reading list item")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return reading.ErrItemNotFound
	}
	return nil
}

func (repo readingRepository) UserListItems(ctx context.Context, userID int) ([]reading.ReadingListItem, error) {
	q := `
		SELECT li.id AS item_id, li.user_id, li.book_id, li.position, li.added_at, b.*
		FROM reading_list_items li
		JOIN books b ON b.id = li.book_id
		WHERE li.user_id = $1
		ORDER BY li.position`
	rows, err := repo.db.QueryxContext(ctx, q, userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying reading list")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer rows.Close()

	var items []reading.ReadingListItem
	for rows.Next() {
		var r struct {
			ItemID   int       `db:"item_id"`
			UserID   int       `db:"user_id"`
			BookID   int       `db:"book_id"`
			Position int       `db:"position"`
			AddedAt  time.Time `db:"added_at"`
			bookRow
		}
		if err = rows.StructScan(&r); err != nil {
			return nil, errors.Wrap(err, "scanning reading list item")
		}
		bk := r.book()
		items = append(items, reading.ReadingListItem{
			ID:       r.ItemID,
			UserID:   r.UserID,
			BookID:   r.BookID,
			Position: r.Position,
			AddedAt:  r.AddedAt,
			Book:     bk,
		})
	}
	return items, errors.Wrap(rows.Err(), "querying reading list")
}

func (repo readingRepository) CreateBookRead(ctx context.Context, br reading.BookRead) (reading.BookRead, error) {
	q := `
		INSERT INTO book_reads (user_id, book_id, completed_at)
		VALUES ($1, $2, $3)
		RETURNING id`
	err := repo.db.QueryRowContext(ctx, q, br.UserID, br.BookID, br.CompletedAt.UTC()).Scan(&br.ID)
	if err != nil {
		if isUniqueViolation(err, "uq_read_user_book") {
			return reading.BookRead{}, reading.ErrAlreadyRead
		}
		return reading.BookRead{}, errors.Wrap(err, "inserting book read")
	}
	return br, nil
}

func (repo readingRepository) GetBookRead(ctx context.Context, userID, bookID int) (reading.BookRead, error) {
	var r struct {
		ID          int       `db:"id"`
		UserID      int       `db:"user_id"`
		BookID      int       `db:"book_id"`
		CompletedAt time.Time `db:"completed_at"`
	}
	err := repo.db.GetContext(ctx, &r,
		"SELECT * FROM book_reads WHERE user_id = $1 AND book_id = $2", userID, bookID)
	if err != nil {
		if err == sql.ErrNoRows {
			return reading.BookRead{}, reading.ErrReadNotFound
		}
		return reading.BookRead{}, errors.Wrap(err, "finding book read")
	}
	return reading.BookRead{ID: r.ID, UserID: r.UserID, BookID: r.BookID, CompletedAt: r.CompletedAt}, nil
}

func (repo readingRepository) UserBookReads(ctx context.Context, userID int, filter *book.QueryFilter) ([]reading.BookRead, error) {
	where := []string{"br.user_id = $1"}
	args := []interface{}{userID}
	arg := func(val interface{}) string {
		args = append(args, val)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			where = append(where, fmt.Sprintf("(b.title ILIKE %[1]s OR b.author ILIKE %[1]s)", arg(val)))
		}
		if filter.Type != "" {
			where = append(where, "b.book_type = "+arg(filter.Type))
		}
		if filter.Genre != "" {
			where = append(where, "b.genre ILIKE "+arg(filter.Genre))
		}
		if filter.SubGenre != "" {
			where = append(where, "b.sub_genre ILIKE "+arg(filter.SubGenre))
		}
		if filter.Owned != "" {
			where = append(where, "b.owned = "+arg(filter.Owned))
		}
		if filter.GradeFrom > 0 {
			where = append(where, "b.grade >= "+arg(filter.GradeFrom))
		}
		if filter.GradeTo > 0 {
			where = append(where, "b.grade <= "+arg(filter.GradeTo))
		}
	}

	q := fmt.Sprintf(`
		SELECT br.id AS read_id, br.user_id, br.book_id, br.completed_at, b.*
		FROM book_reads br
		JOIN books b ON b.id = br.book_id
		WHERE %s
		ORDER BY br.completed_at DESC`, strings.Join(where, " AND "))

	rows, err := repo.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying book reads")
	}
	//goland:noinspection GoUnhandledErrorResult
	defer rows.Close()

	var reads []reading.BookRead
	for rows.Next() {
		var r struct {
			ReadID      int       `db:"read_id"`
			UserID      int       `db:"user_id"`
			BookID      int       `db:"book_id"`
			CompletedAt time.Time `db:"completed_at"`
			bookRow
		}
		if err = rows.StructScan(&r); err != nil {
			return nil, errors.Wrap(err, "scanning book read")
		}
		bk := r.book()
		reads = append(reads, reading.BookRead{
			ID:          r.ReadID,
			UserID:      r.UserID,
			BookID:      r.BookID,
			CompletedAt: r.CompletedAt,
			Book:        bk,
		})
	}
	return reads, errors.Wrap(rows.Err(), "querying book reads")
}

func (repo readingRepository) UpsertReview(ctx context.Context, rev reading.Review) (reading.Review, error) {
	q := `
		INSERT INTO reviews (user_id, book_id, rating, what_liked, what_learned, recommend_to, favorite_part, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT ON CONSTRAINT uq_review_user_book DO UPDATE SET
			rating = EXCLUDED.rating,
			what_liked = EXCLUDED.what_liked,
			what_learned = EXCLUDED.what_learned,
			recommend_to = EXCLUDED.recommend_to,
			favorite_part = EXCLUDED.favorite_part,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`
	err := repo.db.QueryRowContext(
		ctx, q,
		rev.UserID, rev.BookID, rev.Rating, rev.WhatLiked, rev.WhatLearned,
		rev.RecommendTo, rev.FavoritePart, rev.CreatedAt.UTC(), rev.UpdatedAt.UTC(),
	).Scan(&rev.ID, &rev.CreatedAt)
	if err != nil {
		return reading.Review{}, errors.Wrap(err, "upserting review")
	}
	return rev, nil
}

func (repo readingRepository) GetReview(ctx context.Context, userID, bookID int) (reading.Review, error) {
	var r reviewRow
	err := repo.db.GetContext(ctx, &r,
		"SELECT * FROM reviews WHERE user_id = $1 AND book_id = $2", userID, bookID)
	if err != nil {
		if err == sql.ErrNoRows {
			return reading.Review{}, reading.ErrReviewNotFound
		}
		return reading.Review{}, errors.Wrap(err, "finding review")
	}
	return r.review(), nil
}

func (repo readingRepository) UserReviews(ctx context.Context, userID int) ([]reading.Review, error) {
	var rows []reviewRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT * FROM reviews WHERE user_id = $1 ORDER BY updated_at DESC", userID)
	if err != nil {
		return nil, errors.Wrap(err, "querying user reviews")
	}
	return reviewRowsToReviews(rows), nil
}

func (repo readingRepository) BookReviews(ctx context.Context, bookID int) ([]reading.Review, error) {
	var rows []reviewRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT * FROM reviews WHERE book_id = $1 ORDER BY updated_at DESC", bookID)
	if err != nil {
		return nil, errors.Wrap(err, "querying book reviews")
	}
	return reviewRowsToReviews(rows), nil
}

func (repo readingRepository) RecentReviews(ctx context.Context, limit int) ([]reading.Review, error) {
	var rows []reviewRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT * FROM reviews ORDER BY updated_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying recent reviews")
	}
	return reviewRowsToReviews(rows), nil
}
