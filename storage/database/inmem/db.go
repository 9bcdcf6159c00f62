// Package inmemdb provides map-backed repositories for tests.
package inmemdb

import (
	"sync"
	"time"

	"github.com/trezcool/soma/core/book"
	"github.com/trezcool/soma/core/class"
	"github.com/trezcool/soma/core/reading"
	"github.com/trezcool/soma/core/suggestion"
	"github.com/trezcool/soma/core/user"
)

type DB struct {
	mutex sync.RWMutex
	pk    int

	users              map[int]*user.User
	books              map[int]*book.Book
	genres             map[int]*book.Genre
	subGenres          map[int]*book.SubGenre
	topics             map[int]*book.Topic
	genreMappings      map[int]*book.GenreMapping
	classes            map[int]*class.Class
	classStudents      map[int]map[int]bool      // classID -> studentID set
	assignedBooks      map[int]map[int]time.Time // classID -> bookID -> assignedAt
	listItems          map[int]*reading.ReadingListItem
	bookReads          map[int]*reading.BookRead
	reviews            map[int]*reading.Review
	teacherSuggestions map[int]*suggestion.TeacherSuggestion
	bookSuggestions    map[int]*suggestion.BookSuggestion
	editSuggestions    map[int]*suggestion.BookEditSuggestion
}

func NewDB() *DB {
	return &DB{
		users:              make(map[int]*user.User),
		books:              make(map[int]*book.Book),
		genres:             make(map[int]*book.Genre),
		subGenres:          make(map[int]*book.SubGenre),
		topics:             make(map[int]*book.Topic),
		genreMappings:      make(map[int]*book.GenreMapping),
		classes:            make(map[int]*class.Class),
		classStudents:      make(map[int]map[int]bool),
		assignedBooks:      make(map[int]map[int]time.Time),
		listItems:          make(map[int]*reading.ReadingListItem),
		bookReads:          make(map[int]*reading.BookRead),
		reviews:            make(map[int]*reading.Review),
		teacherSuggestions: make(map[int]*suggestion.TeacherSuggestion),
		bookSuggestions:    make(map[int]*suggestion.BookSuggestion),
		editSuggestions:    make(map[int]*suggestion.BookEditSuggestion),
	}
}

// nextPK must be called with db.mutex held.
func (db *DB) nextPK() int {
	db.pk++
	return db.pk
}

// AddGenreMapping registers a genre alias for CanonicalGenre lookups.
func (db *DB) AddGenreMapping(fromName, toGenre string) book.GenreMapping {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	gm := book.GenreMapping{ID: db.nextPK(), FromName: fromName, ToGenre: toGenre}
	db.genreMappings[gm.ID] = &gm
	return gm
}

func (db *DB) AddGenre(name string) book.Genre {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	g := book.Genre{ID: db.nextPK(), Name: name}
	db.genres[g.ID] = &g
	return g
}

func (db *DB) AddSubGenre(name string, genreID int) book.SubGenre {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	sg := book.SubGenre{ID: db.nextPK(), Name: name, GenreID: genreID}
	db.subGenres[sg.ID] = &sg
	return sg
}

func (db *DB) AddTopic(name string) book.Topic {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	t := book.Topic{ID: db.nextPK(), Name: name}
	db.topics[t.ID] = &t
	return t
}
