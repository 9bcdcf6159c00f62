package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/soma/core/book"
	"github.com/trezcool/soma/core/reading"
)

type readingRepository struct {
	db *DB
}

var _ reading.Repository = (*readingRepository)(nil)

func NewReadingRepository(db *DB) *readingRepository {
	return &readingRepository{db: db}
}

func (repo *readingRepository) AddListItem(_ context.Context, item reading.ReadingListItem) (reading.ReadingListItem, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, li := range repo.db.listItems {
		if li.UserID == item.UserID && li.BookID == item.BookID {
			return reading.ReadingListItem{}, reading.ErrAlreadyInList
		}
	}
	item.ID = repo.db.nextPK()
	if bk, ok := repo.db.books[item.BookID]; ok {
		item.Book = *bk
	}
	repo.db.listItems[item.ID] = &item
	return item, nil
}

func (repo *readingRepository) MaxListPosition(_ context.Context, userID int) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var max int
	for _, li := range repo.db.listItems {
		if li.UserID == userID && li.Position > max {
			max = li.Position
		}
	}
	return max, nil
}

func (repo *readingRepository) RemoveListItem(_ context.Context, userID, bookID int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, li := range repo.db.listItems {
		if li.UserID == userID && li.BookID == bookID {
			delete(repo.db.listItems, id)
			return nil
		}
	}
	return reading.ErrItemNotFound
}

func (repo *readingRepository) UserListItems(_ context.Context, userID int) ([]reading.ReadingListItem, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	items := make([]reading.ReadingListItem, 0)
	for _, li := range repo.db.listItems {
		if li.UserID != userID {
			continue
		}
		item := *li
		if bk, ok := repo.db.books[li.BookID]; ok {
			item.Book = *bk
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	return items, nil
}

func (repo *readingRepository) CreateBookRead(_ context.Context, br reading.BookRead) (reading.BookRead, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.bookReads {
		if existing.UserID == br.UserID && existing.BookID == br.BookID {
			return reading.BookRead{}, reading.ErrAlreadyRead
		}
	}
	br.ID = repo.db.nextPK()
	if bk, ok := repo.db.books[br.BookID]; ok {
		br.Book = *bk
	}
	repo.db.bookReads[br.ID] = &br
	return br, nil
}

func (repo *readingRepository) GetBookRead(_ context.Context, userID, bookID int) (reading.BookRead, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, br := range repo.db.bookReads {
		if br.UserID == userID && br.BookID == bookID {
			return *br, nil
		}
	}
	return reading.BookRead{}, reading.ErrReadNotFound
}

func (repo *readingRepository) UserBookReads(_ context.Context, userID int, filter *book.QueryFilter) ([]reading.BookRead, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reads := make([]reading.BookRead, 0)
	for _, br := range repo.db.bookReads {
		if br.UserID != userID {
			continue
		}
		read := *br
		if bk, ok := repo.db.books[br.BookID]; ok {
			read.Book = *bk
		}
		if filter != nil && !matchesBookFilter(read.Book, filter) {
			continue
		}
		reads = append(reads, read)
	}
	sort.Slice(reads, func(i, j int) bool { return reads[i].CompletedAt.After(reads[j].CompletedAt) })
	return reads, nil
}

func (repo *readingRepository) UpsertReview(_ context.Context, rev reading.Review) (reading.Review, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if rev.ID == 0 {
		for _, existing := range repo.db.reviews {
			if existing.UserID == rev.UserID && existing.BookID == rev.BookID {
				rev.ID = existing.ID
				rev.CreatedAt = existing.CreatedAt
				break
			}
		}
	}
	if rev.ID == 0 {
		rev.ID = repo.db.nextPK()
	}
	repo.db.reviews[rev.ID] = &rev
	return rev, nil
}

func (repo *readingRepository) GetReview(_ context.Context, userID, bookID int) (reading.Review, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, rev := range repo.db.reviews {
		if rev.UserID == userID && rev.BookID == bookID {
			return *rev, nil
		}
	}
	return reading.Review{}, reading.ErrReviewNotFound
}

func (repo *readingRepository) reviews(match func(rev reading.Review) bool) []reading.Review {
	reviews := make([]reading.Review, 0)
	for _, rev := range repo.db.reviews {
		if match(*rev) {
			reviews = append(reviews, *rev)
		}
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].UpdatedAt.After(reviews[j].UpdatedAt) })
	return reviews
}

func (repo *readingRepository) UserReviews(_ context.Context, userID int) ([]reading.Review, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.reviews(func(rev reading.Review) bool { return rev.UserID == userID }), nil
}

func (repo *readingRepository) BookReviews(_ context.Context, bookID int) ([]reading.Review, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.reviews(func(rev reading.Review) bool { return rev.BookID == bookID }), nil
}

func (repo *readingRepository) RecentReviews(_ context.Context, limit int) ([]reading.Review, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reviews := repo.reviews(func(reading.Review) bool { return true })
	if limit > 0 && len(reviews) > limit {
		reviews = reviews[:limit]
	}
	return reviews, nil
}
