package reading

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/book"
)

var (
	// errors
	ErrItemNotFound   = errors.New("reading list item not found")
	ErrReadNotFound   = errors.New("read record not found")
	ErrReviewNotFound = errors.New("review not found")
	ErrAlreadyInList  = errors.New("book is already on the reading list")
	ErrAlreadyRead    = errors.New("book is already marked as read")
	ErrNotRead        = errors.New("book must be marked as read before it can be reviewed")
)

type (
	Repository interface {
		AddListItem(ctx context.Context, item ReadingListItem) (ReadingListItem, error)
		MaxListPosition(ctx context.Context, userID int) (int, error)
		RemoveListItem(ctx context.Context, userID, bookID int) error
		// UserListItems returns items ordered by position.
		UserListItems(ctx context.Context, userID int) ([]ReadingListItem, error)
		CreateBookRead(ctx context.Context, br BookRead) (BookRead, error)
		GetBookRead(ctx context.Context, userID, bookID int) (BookRead, error)
		// UserBookReads returns reads newest first, optionally filtered on book fields.
		UserBookReads(ctx context.Context, userID int, filter *book.QueryFilter) ([]BookRead, error)
		UpsertReview(ctx context.Context, rev Review) (Review, error)
		GetReview(ctx context.Context, userID, bookID int) (Review, error)
		UserReviews(ctx context.Context, userID int) ([]Review, error)
		BookReviews(ctx context.Context, bookID int) ([]Review, error)
		RecentReviews(ctx context.Context, limit int) ([]Review, error)
	}

	Service interface {
		AddToList(ctx context.Context, userID, bookID int) (ReadingListItem, error)
		RemoveFromList(ctx context.Context, userID, bookID int) error
		ListForUser(ctx context.Context, userID int) ([]ReadingListItem, error)
		MarkRead(ctx context.Context, userID, bookID int) (BookRead, error)
		ListRead(ctx context.Context, userID int, filter *book.QueryFilter) ([]BookRead, error)
		WriteReview(ctx context.Context, userID int, nr NewReview) (Review, error)
		ReviewsForUser(ctx context.Context, userID int) ([]Review, error)
		ReviewsForBook(ctx context.Context, bookID int) ([]Review, error)
		RecentReviews(ctx context.Context, limit int) ([]Review, error)
		UserStats(ctx context.Context, userID int) (Stats, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// AddToList appends the book at the end of the student's list.
func (svc *service) AddToList(ctx context.Context, userID, bookID int) (ReadingListItem, error) {
	maxPos, err := svc.repo.MaxListPosition(ctx, userID)
	if err != nil {
		return ReadingListItem{}, err
	}
	item := ReadingListItem{
		UserID:   userID,
		BookID:   bookID,
		Position: maxPos + 1,
		AddedAt:  time.Now().UTC(),
	}
	item, err = svc.repo.AddListItem(ctx, item)
	if err == ErrAlreadyInList {
		return ReadingListItem{}, core.NewValidationError(err, core.FieldError{Field: "book_id", Error: err.Error()})
	}
	return item, err
}

func (svc *service) RemoveFromList(ctx context.Context, userID, bookID int) error {
	return svc.repo.RemoveListItem(ctx, userID, bookID)
}

func (svc *service) ListForUser(ctx context.Context, userID int) ([]ReadingListItem, error) {
	return svc.repo.UserListItems(ctx, userID)
}

// MarkRead records a completion and drops any matching reading list item.
func (svc *service) MarkRead(ctx context.Context, userID, bookID int) (BookRead, error) {
	br := BookRead{
		UserID:      userID,
		BookID:      bookID,
		CompletedAt: time.Now().UTC(),
	}
	br, err := svc.repo.CreateBookRead(ctx, br)
	if err != nil {
		if err == ErrAlreadyRead {
			return BookRead{}, core.NewValidationError(err, core.FieldError{Field: "book_id", Error: err.Error()})
		}
		return BookRead{}, err
	}
	if err = svc.repo.RemoveListItem(ctx, userID, bookID); err != nil && err != ErrItemNotFound {
		return br, err
	}
	return br, nil
}

func (svc *service) ListRead(ctx context.Context, userID int, filter *book.QueryFilter) ([]BookRead, error) {
	return svc.repo.UserBookReads(ctx, userID, filter)
}

// WriteReview creates or updates the student's review for a read book.
func (svc *service) WriteReview(ctx context.Context, userID int, nr NewReview) (Review, error) {
	if _, err := svc.repo.GetBookRead(ctx, userID, nr.BookID); err != nil {
		if err == ErrReadNotFound {
			return Review{}, core.NewValidationError(ErrNotRead, core.FieldError{Field: "book_id", Error: ErrNotRead.Error()})
		}
		return Review{}, err
	}

	now := time.Now().UTC()
	rev := Review{
		UserID:       userID,
		BookID:       nr.BookID,
		Rating:       nr.Rating,
		WhatLiked:    nr.WhatLiked,
		WhatLearned:  nr.WhatLearned,
		RecommendTo:  nr.RecommendTo,
		FavoritePart: nr.FavoritePart,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if existing, err := svc.repo.GetReview(ctx, userID, nr.BookID); err == nil {
		rev.ID = existing.ID
		rev.CreatedAt = existing.CreatedAt
	}
	return svc.repo.UpsertReview(ctx, rev)
}

func (svc *service) ReviewsForUser(ctx context.Context, userID int) ([]Review, error) {
	return svc.repo.UserReviews(ctx, userID)
}

func (svc *service) ReviewsForBook(ctx context.Context, bookID int) ([]Review, error) {
	return svc.repo.BookReviews(ctx, bookID)
}

func (svc *service) RecentReviews(ctx context.Context, limit int) ([]Review, error) {
	return svc.repo.RecentReviews(ctx, limit)
}

// UserStats aggregates the student's read log by type, genre and grade.
func (svc *service) UserStats(ctx context.Context, userID int) (Stats, error) {
	reads, err := svc.repo.UserBookReads(ctx, userID, nil)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		TotalRead: len(reads),
		ByType:    make(map[string]int),
		ByGenre:   make(map[string]int),
		ByGrade:   make(map[int]int),
	}
	for _, br := range reads {
		if br.Book.Type != "" {
			stats.ByType[br.Book.Type]++
		}
		if br.Book.Genre != "" {
			stats.ByGenre[br.Book.Genre]++
		}
		if br.Book.Grade > 0 {
			stats.ByGrade[br.Book.Grade]++
		}
	}
	return stats, nil
}
