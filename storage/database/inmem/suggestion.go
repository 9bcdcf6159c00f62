package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/soma/core/suggestion"
)

type suggestionRepository struct {
	db *DB
}

var _ suggestion.Repository = (*suggestionRepository)(nil)

func NewSuggestionRepository(db *DB) *suggestionRepository {
	return &suggestionRepository{db: db}
}

func (repo *suggestionRepository) CreateTeacherSuggestion(_ context.Context, ts suggestion.TeacherSuggestion) (suggestion.TeacherSuggestion, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.teacherSuggestions {
		if existing.StudentID == ts.StudentID && existing.BookID == ts.BookID {
			return suggestion.TeacherSuggestion{}, suggestion.ErrAlreadySuggested
		}
	}
	ts.ID = repo.db.nextPK()
	if bk, ok := repo.db.books[ts.BookID]; ok {
		ts.Book = *bk
	}
	repo.db.teacherSuggestions[ts.ID] = &ts
	return ts, nil
}

func (repo *suggestionRepository) GetTeacherSuggestion(_ context.Context, id int) (suggestion.TeacherSuggestion, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	ts, ok := repo.db.teacherSuggestions[id]
	if !ok {
		return suggestion.TeacherSuggestion{}, suggestion.ErrNotFound
	}
	res := *ts
	if bk, ok := repo.db.books[ts.BookID]; ok {
		res.Book = *bk
	}
	return res, nil
}

func (repo *suggestionRepository) PendingTeacherSuggestions(_ context.Context, studentID int) ([]suggestion.TeacherSuggestion, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	pending := make([]suggestion.TeacherSuggestion, 0)
	for _, ts := range repo.db.teacherSuggestions {
		if ts.StudentID != studentID || ts.IsAccepted {
			continue
		}
		res := *ts
		if bk, ok := repo.db.books[ts.BookID]; ok {
			res.Book = *bk
		}
		pending = append(pending, res)
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].SuggestedAt.After(pending[j].SuggestedAt) })
	return pending, nil
}

func (repo *suggestionRepository) UpdateTeacherSuggestion(_ context.Context, ts suggestion.TeacherSuggestion) (suggestion.TeacherSuggestion, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.teacherSuggestions[ts.ID]; !ok {
		return suggestion.TeacherSuggestion{}, suggestion.ErrNotFound
	}
	if bk, ok := repo.db.books[ts.BookID]; ok {
		ts.Book = *bk
	}
	repo.db.teacherSuggestions[ts.ID] = &ts
	return ts, nil
}

func (repo *suggestionRepository) CreateBookSuggestion(_ context.Context, bs suggestion.BookSuggestion) (suggestion.BookSuggestion, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	bs.ID = repo.db.nextPK()
	repo.db.bookSuggestions[bs.ID] = &bs
	return bs, nil
}

func (repo *suggestionRepository) GetBookSuggestion(_ context.Context, id int) (suggestion.BookSuggestion, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if bs, ok := repo.db.bookSuggestions[id]; ok {
		return *bs, nil
	}
	return suggestion.BookSuggestion{}, suggestion.ErrNotFound
}

func (repo *suggestionRepository) QueryBookSuggestions(_ context.Context, studentID int, status string) ([]suggestion.BookSuggestion, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	suggestions := make([]suggestion.BookSuggestion, 0)
	for _, bs := range repo.db.bookSuggestions {
		if studentID > 0 && bs.StudentID != studentID {
			continue
		}
		if status != "" && bs.Status != status {
			continue
		}
		suggestions = append(suggestions, *bs)
	}
	sort.Slice(suggestions, func(i, j int) bool { return suggestions[i].SuggestedAt.After(suggestions[j].SuggestedAt) })
	return suggestions, nil
}

func (repo *suggestionRepository) UpdateBookSuggestion(_ context.Context, bs suggestion.BookSuggestion) (suggestion.BookSuggestion, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.bookSuggestions[bs.ID]; !ok {
		return suggestion.BookSuggestion{}, suggestion.ErrNotFound
	}
	repo.db.bookSuggestions[bs.ID] = &bs
	return bs, nil
}

func (repo *suggestionRepository) CreateEditSuggestion(_ context.Context, es suggestion.BookEditSuggestion) (suggestion.BookEditSuggestion, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	es.ID = repo.db.nextPK()
	repo.db.editSuggestions[es.ID] = &es
	return es, nil
}

func (repo *suggestionRepository) GetEditSuggestion(_ context.Context, id int) (suggestion.BookEditSuggestion, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if es, ok := repo.db.editSuggestions[id]; ok {
		return *es, nil
	}
	return suggestion.BookEditSuggestion{}, suggestion.ErrNotFound
}

func (repo *suggestionRepository) QueryEditSuggestions(_ context.Context, studentID int, status string) ([]suggestion.BookEditSuggestion, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	suggestions := make([]suggestion.BookEditSuggestion, 0)
	for _, es := range repo.db.editSuggestions {
		if studentID > 0 && es.StudentID != studentID {
			continue
		}
		if status != "" && es.Status != status {
			continue
		}
		suggestions = append(suggestions, *es)
	}
	sort.Slice(suggestions, func(i, j int) bool { return suggestions[i].SuggestedAt.After(suggestions[j].SuggestedAt) })
	return suggestions, nil
}

func (repo *suggestionRepository) UpdateEditSuggestion(_ context.Context, es suggestion.BookEditSuggestion) (suggestion.BookEditSuggestion, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.editSuggestions[es.ID]; !ok {
		return suggestion.BookEditSuggestion{}, suggestion.ErrNotFound
	}
	repo.db.editSuggestions[es.ID] = &es
	return es, nil
}
