package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/book"
)

type bookRepository struct {
	db *DB
}

var _ book.Repository = (*bookRepository)(nil)

func NewBookRepository(db *DB) *bookRepository {
	return &bookRepository{db: db}
}

// query must be called with db.mutex held.
func (repo *bookRepository) query() []book.Book {
	books := make([]book.Book, 0, len(repo.db.books))
	for _, b := range repo.db.books {
		books = append(books, *b)
	}
	return books
}

func (repo *bookRepository) CreateBook(_ context.Context, bk book.Book) (book.Book, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, b := range repo.db.books {
		if b.NormalizedTitle() == bk.NormalizedTitle() && b.NormalizedAuthor() == bk.NormalizedAuthor() {
			return book.Book{}, book.ErrBookExists
		}
		if bk.ISBN != "" && b.ISBN == bk.ISBN {
			return book.Book{}, book.ErrISBNExists
		}
	}
	bk.ID = repo.db.nextPK()
	repo.db.books[bk.ID] = &bk
	return bk, nil
}

func (repo *bookRepository) QueryBooks(_ context.Context, filter *book.QueryFilter, ordering []core.DBOrdering) ([]book.Book, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	books := make([]book.Book, 0)
	for _, bk := range repo.query() {
		if filter != nil && !matchesBookFilter(bk, filter) {
			continue
		}
		books = append(books, bk)
	}

	sort.Slice(books, func(i, j int) bool {
		if len(ordering) > 0 {
			ord := ordering[0]
			var less bool
			switch ord.Field {
			case "author":
				less = lower(books[i].Author) < lower(books[j].Author)
			case "grade":
				less = books[i].Grade < books[j].Grade
			case "created_at":
				less = books[i].CreatedAt.Before(books[j].CreatedAt)
			case "id":
				less = books[i].ID < books[j].ID
			default:
				less = lower(books[i].Title) < lower(books[j].Title)
			}
			if ord.Ascending {
				return less
			}
			return !less
		}
		return lower(books[i].Title) < lower(books[j].Title)
	})
	return books, nil
}

func matchesBookFilter(bk book.Book, filter *book.QueryFilter) bool {
	if filter.Search != "" {
		s := lower(filter.Search)
		if !strings.Contains(lower(bk.Title), s) && !strings.Contains(lower(bk.Author), s) {
			return false
		}
	}
	if filter.Type != "" && bk.Type != filter.Type {
		return false
	}
	if filter.Genre != "" && !strings.EqualFold(bk.Genre, filter.Genre) {
		return false
	}
	if filter.SubGenre != "" && !strings.EqualFold(bk.SubGenre, filter.SubGenre) {
		return false
	}
	if filter.Topic != "" && !strings.EqualFold(bk.Topic, filter.Topic) {
		return false
	}
	if filter.Owned != "" && bk.Owned != filter.Owned {
		return false
	}
	if filter.GradeFrom > 0 && bk.Grade < filter.GradeFrom {
		return false
	}
	if filter.GradeTo > 0 && bk.Grade > filter.GradeTo {
		return false
	}
	return true
}

func (repo *bookRepository) GetBookByID(_ context.Context, id int) (book.Book, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if bk, ok := repo.db.books[id]; ok {
		return *bk, nil
	}
	return book.Book{}, book.ErrNotFound
}

func (repo *bookRepository) GetBookByISBN(_ context.Context, isbn string) (book.Book, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if isbn != "" {
		for _, bk := range repo.query() {
			if bk.ISBN == isbn {
				return bk, nil
			}
		}
	}
	return book.Book{}, book.ErrNotFound
}

func (repo *bookRepository) GetBookByNormalizedTitleAuthor(_ context.Context, title, author string) (book.Book, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, bk := range repo.query() {
		if bk.NormalizedTitle() == title && bk.NormalizedAuthor() == author {
			return bk, nil
		}
	}
	return book.Book{}, book.ErrNotFound
}

func (repo *bookRepository) UpdateBook(_ context.Context, bk book.Book) (book.Book, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.books[bk.ID]
	if !ok {
		return book.Book{}, book.ErrNotFound
	}
	bk.CreatedAt = orig.CreatedAt
	repo.db.books[bk.ID] = &bk
	return bk, nil
}

func (repo *bookRepository) DeleteBook(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.books, id)
	return nil
}

func (repo *bookRepository) CountBookReviews(_ context.Context, bookID int) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var count int
	for _, rev := range repo.db.reviews {
		if rev.BookID == bookID {
			count++
		}
	}
	return count, nil
}

func (repo *bookRepository) ClearBookSuggestions(_ context.Context, bookID int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, ts := range repo.db.teacherSuggestions {
		if ts.BookID == bookID {
			delete(repo.db.teacherSuggestions, id)
		}
	}
	return nil
}

func (repo *bookRepository) Genres(_ context.Context) ([]book.Genre, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	genres := make([]book.Genre, 0, len(repo.db.genres))
	for _, g := range repo.db.genres {
		genres = append(genres, *g)
	}
	sort.Slice(genres, func(i, j int) bool { return genres[i].Name < genres[j].Name })
	return genres, nil
}

func (repo *bookRepository) SubGenres(_ context.Context) ([]book.SubGenre, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subGenres := make([]book.SubGenre, 0, len(repo.db.subGenres))
	for _, sg := range repo.db.subGenres {
		subGenres = append(subGenres, *sg)
	}
	sort.Slice(subGenres, func(i, j int) bool { return subGenres[i].Name < subGenres[j].Name })
	return subGenres, nil
}

func (repo *bookRepository) Topics(_ context.Context) ([]book.Topic, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	topics := make([]book.Topic, 0, len(repo.db.topics))
	for _, t := range repo.db.topics {
		topics = append(topics, *t)
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })
	return topics, nil
}

func (repo *bookRepository) CreateGenre(_ context.Context, g book.Genre) (book.Genre, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, cand := range repo.db.genres {
		if cand.Name == g.Name {
			return book.Genre{}, book.ErrGenreExists
		}
	}
	g.ID = repo.db.nextPK()
	repo.db.genres[g.ID] = &g
	return g, nil
}

func (repo *bookRepository) DeleteGenre(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	delete(repo.db.genres, id)
	for sgID, sg := range repo.db.subGenres {
		if sg.GenreID == id {
			delete(repo.db.subGenres, sgID)
		}
	}
	return nil
}

func (repo *bookRepository) CreateSubGenre(_ context.Context, sg book.SubGenre) (book.SubGenre, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.genres[sg.GenreID]; !ok {
		return book.SubGenre{}, book.ErrTaxonomyNotFound
	}
	for _, cand := range repo.db.subGenres {
		if cand.GenreID == sg.GenreID && cand.Name == sg.Name {
			return book.SubGenre{}, book.ErrSubGenreExists
		}
	}
	sg.ID = repo.db.nextPK()
	repo.db.subGenres[sg.ID] = &sg
	return sg, nil
}

func (repo *bookRepository) DeleteSubGenre(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.subGenres, id)
	return nil
}

func (repo *bookRepository) CreateTopic(_ context.Context, tp book.Topic) (book.Topic, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, cand := range repo.db.topics {
		if cand.Name == tp.Name {
			return book.Topic{}, book.ErrTopicExists
		}
	}
	tp.ID = repo.db.nextPK()
	repo.db.topics[tp.ID] = &tp
	return tp, nil
}

func (repo *bookRepository) DeleteTopic(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.topics, id)
	return nil
}

func (repo *bookRepository) GenreMappings(_ context.Context) ([]book.GenreMapping, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	mappings := make([]book.GenreMapping, 0, len(repo.db.genreMappings))
	for _, gm := range repo.db.genreMappings {
		mappings = append(mappings, *gm)
	}
	sort.Slice(mappings, func(i, j int) bool { return mappings[i].FromName < mappings[j].FromName })
	return mappings, nil
}

func (repo *bookRepository) CreateGenreMapping(_ context.Context, gm book.GenreMapping) (book.GenreMapping, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, cand := range repo.db.genreMappings {
		if cand.FromName == gm.FromName {
			return book.GenreMapping{}, book.ErrMappingExists
		}
	}
	gm.ID = repo.db.nextPK()
	repo.db.genreMappings[gm.ID] = &gm
	return gm, nil
}

func (repo *bookRepository) DeleteGenreMapping(_ context.Context, id int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.genreMappings, id)
	return nil
}

func (repo *bookRepository) CanonicalGenre(_ context.Context, name string) (string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, gm := range repo.db.genreMappings {
		if lower(gm.FromName) == lower(name) {
			return gm.ToGenre, nil
		}
	}
	return name, nil
}
