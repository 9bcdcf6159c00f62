package book

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/trezcool/soma/core"
)

var (
	// errors
	ErrNotFound         = errors.New("book not found")
	ErrBookExists       = errors.New("a book with this author and title already exists")
	ErrISBNExists       = errors.New("a book with this ISBN already exists")
	ErrHasReviews       = errors.New("book cannot be deleted while student reviews exist")
	ErrBulkHasReviews   = errors.New("some selected books have student reviews and cannot be deleted")
	ErrTaxonomyNotFound = errors.New("taxonomy entry not found")
	ErrGenreExists      = errors.New("this genre already exists")
	ErrSubGenreExists   = errors.New("this sub-genre already exists for the genre")
	ErrTopicExists      = errors.New("this topic already exists")
	ErrMappingExists    = errors.New("a mapping for this name already exists")
	ErrTaxonomyInUse    = errors.New("books still use this name")
)

type (
	Repository interface {
		CreateBook(ctx context.Context, bk Book) (Book, error)
		// QueryBooks applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Book.Title or Book.Author.
		QueryBooks(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Book, error)
		GetBookByID(ctx context.Context, id int) (Book, error)
		GetBookByISBN(ctx context.Context, isbn string) (Book, error)
		GetBookByNormalizedTitleAuthor(ctx context.Context, title, author string) (Book, error)
		UpdateBook(ctx context.Context, bk Book) (Book, error)
		DeleteBook(ctx context.Context, id int) error
		CountBookReviews(ctx context.Context, bookID int) (int, error)
		ClearBookSuggestions(ctx context.Context, bookID int) error
		Genres(ctx context.Context) ([]Genre, error)
		SubGenres(ctx context.Context) ([]SubGenre, error)
		Topics(ctx context.Context) ([]Topic, error)
		CreateGenre(ctx context.Context, g Genre) (Genre, error)
		DeleteGenre(ctx context.Context, id int) error
		CreateSubGenre(ctx context.Context, sg SubGenre) (SubGenre, error)
		DeleteSubGenre(ctx context.Context, id int) error
		CreateTopic(ctx context.Context, tp Topic) (Topic, error)
		DeleteTopic(ctx context.Context, id int) error
		GenreMappings(ctx context.Context) ([]GenreMapping, error)
		CreateGenreMapping(ctx context.Context, gm GenreMapping) (GenreMapping, error)
		DeleteGenreMapping(ctx context.Context, id int) error
		// CanonicalGenre resolves a raw genre name through the genre_map table;
		// unmapped names come back unchanged.
		CanonicalGenre(ctx context.Context, name string) (string, error)
	}

	// Metadata is an external catalog record used to enrich a Book.
	Metadata struct {
		Title           string   `json:"title"`
		Author          string   `json:"author"`
		ISBN            string   `json:"isbn"`
		OpenLibraryID   string   `json:"open_library_id"`
		Description     string   `json:"description"`
		CoverURL        string   `json:"cover_url"`
		PublicationYear int      `json:"publication_year"`
		Subjects        []string `json:"subjects"`
	}

	// MetadataFinder looks up book metadata in an external catalog.
	MetadataFinder interface {
		FindByISBN(ctx context.Context, isbn string) (Metadata, error)
		FindByOLID(ctx context.Context, olid string) (Metadata, error)
		Search(ctx context.Context, title, author string) (Metadata, error)
		SearchWorks(ctx context.Context, query string, limit int) ([]Metadata, error)
	}

	Service interface {
		Create(ctx context.Context, nb NewBook) (Book, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Book, error)
		GetByID(ctx context.Context, id int) (Book, error)
		Update(ctx context.Context, id int, ub UpdateBook) (Book, error)
		Delete(ctx context.Context, id int) error
		ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error)
		SampleCSV() []byte
		SearchOpenLibrary(ctx context.Context, query string, limit int) ([]Metadata, error)
		AddFromOpenLibrary(ctx context.Context, isbn, olid string) (Book, error)
		EnrichMissing(ctx context.Context) (int, error)
		BulkUpdate(ctx context.Context, ba BulkAction) (int, error)
		Genres(ctx context.Context) ([]Genre, error)
		SubGenres(ctx context.Context) ([]SubGenre, error)
		Topics(ctx context.Context) ([]Topic, error)
		CreateGenre(ctx context.Context, name string) (Genre, error)
		DeleteGenre(ctx context.Context, id int) error
		CreateSubGenre(ctx context.Context, name string, genreID int) (SubGenre, error)
		DeleteSubGenre(ctx context.Context, id int) error
		CreateTopic(ctx context.Context, name string) (Topic, error)
		DeleteTopic(ctx context.Context, id int) error
		GenreMappings(ctx context.Context) ([]GenreMapping, error)
		CreateGenreMapping(ctx context.Context, fromName, toGenre string) (GenreMapping, error)
		DeleteGenreMapping(ctx context.Context, id int) error
	}

	service struct {
		repo   Repository
		finder MetadataFinder // nil disables OpenLibrary lookups
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, finder MetadataFinder) Service {
	return &service{repo: repo, finder: finder}
}

func (svc *service) Create(ctx context.Context, nb NewBook) (Book, error) {
	if err := svc.checkDuplicates(ctx, nb.Title, nb.Author, nb.ISBN); err != nil {
		return Book{}, err
	}

	now := time.Now().UTC()
	bk := Book{
		Title:           nb.Title,
		Author:          nb.Author,
		ISBN:            nb.ISBN,
		Type:            nb.Type,
		Genre:           nb.Genre,
		SubGenre:        nb.SubGenre,
		Topic:           nb.Topic,
		LexileRating:    nb.LexileRating,
		Grade:           nb.Grade,
		Owned:           nb.Owned,
		Description:     nb.Description,
		CoverURL:        nb.CoverURL,
		PublicationYear: nb.PublicationYear,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if bk.Genre != "" {
		if canonical, err := svc.repo.CanonicalGenre(ctx, bk.Genre); err == nil {
			bk.Genre = canonical
		}
	}
	if nb.Enrich && nb.ISBN != "" && svc.finder != nil {
		// lookup failures never block creation
		if meta, err := svc.finder.FindByISBN(ctx, nb.ISBN); err == nil {
			svc.fillFromMetadata(&bk, meta)
		}
	}
	return svc.repo.CreateBook(ctx, bk)
}

// checkDuplicates surfaces normalized author+title and ISBN collisions as field errors.
func (svc *service) checkDuplicates(ctx context.Context, title, author, isbn string, exclIDs ...int) error {
	excluded := func(id int) bool {
		for _, exclID := range exclIDs {
			if id == exclID {
				return true
			}
		}
		return false
	}

	if existing, err := svc.repo.GetBookByNormalizedTitleAuthor(ctx, Normalize(title), Normalize(author)); err == nil {
		if !excluded(existing.ID) {
			return core.NewValidationError(
				ErrBookExists,
				core.FieldError{Field: "title", Error: ErrBookExists.Error()},
				core.FieldError{Field: "author", Error: ErrBookExists.Error()},
			)
		}
	}
	if isbn != "" {
		if existing, err := svc.repo.GetBookByISBN(ctx, isbn); err == nil {
			if !excluded(existing.ID) {
				return core.NewValidationError(ErrISBNExists, core.FieldError{Field: "isbn", Error: ErrISBNExists.Error()})
			}
		}
	}
	return nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Book, error) {
	return svc.repo.QueryBooks(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id int) (Book, error) {
	return svc.repo.GetBookByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id int, ub UpdateBook) (Book, error) {
	if err := svc.checkDuplicates(ctx, ub.Title, ub.Author, ub.ISBN, id); err != nil {
		return Book{}, err
	}
	orig, err := svc.repo.GetBookByID(ctx, id)
	if err != nil {
		return Book{}, err
	}
	bk := Book{
		ID:              id,
		OpenLibraryID:   orig.OpenLibraryID,
		Title:           ub.Title,
		Author:          ub.Author,
		ISBN:            ub.ISBN,
		Type:            ub.Type,
		Genre:           ub.Genre,
		SubGenre:        ub.SubGenre,
		Topic:           ub.Topic,
		LexileRating:    ub.LexileRating,
		Grade:           ub.Grade,
		Owned:           ub.Owned,
		Description:     ub.Description,
		CoverURL:        ub.CoverURL,
		PublicationYear: ub.PublicationYear,
		UpdatedAt:       time.Now().UTC(),
	}
	if bk.Genre != "" {
		if canonical, err := svc.repo.CanonicalGenre(ctx, bk.Genre); err == nil {
			bk.Genre = canonical
		}
	}
	return svc.repo.UpdateBook(ctx, bk)
}

func (svc *service) Delete(ctx context.Context, id int) error {
	count, err := svc.repo.CountBookReviews(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return core.NewValidationError(ErrHasReviews)
	}
	if err = svc.repo.ClearBookSuggestions(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteBook(ctx, id)
}

// SearchOpenLibrary runs a free-form catalog search for the add-book flow.
func (svc *service) SearchOpenLibrary(ctx context.Context, query string, limit int) ([]Metadata, error) {
	if svc.finder == nil {
		return []Metadata{}, nil
	}
	return svc.finder.SearchWorks(ctx, query, limit)
}

// AddFromOpenLibrary creates a catalog book from an external record,
// looked up by work id when olid is given and by ISBN otherwise.
func (svc *service) AddFromOpenLibrary(ctx context.Context, isbn, olid string) (Book, error) {
	if svc.finder == nil {
		return Book{}, ErrNotFound
	}
	var (
		meta Metadata
		err  error
	)
	if olid != "" {
		meta, err = svc.finder.FindByOLID(ctx, olid)
	} else {
		meta, err = svc.finder.FindByISBN(ctx, cleanISBN(isbn))
	}
	if err != nil {
		return Book{}, err
	}
	nb := NewBook{
		Title:           meta.Title,
		Author:          meta.Author,
		ISBN:            meta.ISBN,
		Type:            InferType(meta.Subjects),
		SubGenre:        PreferredSubGenre(meta.Subjects),
		Description:     meta.Description,
		CoverURL:        meta.CoverURL,
		PublicationYear: meta.PublicationYear,
	}
	if err = nb.Validate(); err != nil {
		return Book{}, err
	}
	bk, err := svc.Create(ctx, nb)
	if err != nil {
		return Book{}, err
	}
	if meta.OpenLibraryID != "" {
		bk.OpenLibraryID = meta.OpenLibraryID
		bk, err = svc.repo.UpdateBook(ctx, bk)
	}
	return bk, err
}

// EnrichMissing backfills type and sub-genre for books that are missing
// them, by ISBN when one is recorded and by best title/author match
// otherwise. Returns the number of books updated.
func (svc *service) EnrichMissing(ctx context.Context) (int, error) {
	if svc.finder == nil {
		return 0, nil
	}
	books, err := svc.repo.QueryBooks(ctx, nil, nil)
	if err != nil {
		return 0, err
	}

	var count int
	for _, bk := range books {
		if bk.Type != "" && bk.SubGenre != "" {
			continue
		}
		var meta Metadata
		if bk.ISBN != "" {
			meta, err = svc.finder.FindByISBN(ctx, bk.ISBN)
		} else {
			meta, err = svc.finder.Search(ctx, bk.Title, bk.Author)
		}
		if err != nil {
			continue
		}
		orig := bk
		svc.fillFromMetadata(&bk, meta)
		if bk == orig {
			continue
		}
		bk.UpdatedAt = time.Now().UTC()
		if _, err = svc.repo.UpdateBook(ctx, bk); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// fillFromMetadata fills empty Book fields in place; existing values win.
func (svc *service) fillFromMetadata(bk *Book, meta Metadata) {
	if bk.Author == "" {
		bk.Author = meta.Author
	}
	if bk.OpenLibraryID == "" {
		bk.OpenLibraryID = meta.OpenLibraryID
	}
	if bk.Type == "" {
		bk.Type = InferType(meta.Subjects)
	}
	if bk.SubGenre == "" {
		bk.SubGenre = PreferredSubGenre(meta.Subjects)
	}
	if bk.Description == "" {
		bk.Description = meta.Description
	}
	if bk.CoverURL == "" {
		bk.CoverURL = meta.CoverURL
	}
	if bk.PublicationYear == 0 {
		bk.PublicationYear = meta.PublicationYear
	}
}

// BulkUpdate applies one action to a set of books. Deletion is all-or-nothing:
// a single reviewed book in the selection blocks the whole batch.
func (svc *service) BulkUpdate(ctx context.Context, ba BulkAction) (int, error) {
	if ba.Action == BulkDelete {
		for _, id := range ba.BookIDs {
			count, err := svc.repo.CountBookReviews(ctx, id)
			if err != nil {
				return 0, err
			}
			if count > 0 {
				return 0, core.NewValidationError(ErrBulkHasReviews)
			}
		}
		var affected int
		for _, id := range ba.BookIDs {
			if err := svc.repo.ClearBookSuggestions(ctx, id); err != nil {
				return affected, err
			}
			if err := svc.repo.DeleteBook(ctx, id); err != nil {
				return affected, err
			}
			affected++
		}
		return affected, nil
	}

	genre := ba.Genre
	if genre != "" {
		if canonical, err := svc.repo.CanonicalGenre(ctx, genre); err == nil {
			genre = canonical
		}
	}

	var affected int
	for _, id := range ba.BookIDs {
		bk, err := svc.repo.GetBookByID(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return affected, err
		}
		switch ba.Action {
		case BulkSetType:
			bk.Type = ba.Type
		case BulkSetOwned:
			bk.Owned = ba.Owned
		case BulkSetGenre:
			bk.Genre = genre
		}
		bk.UpdatedAt = time.Now().UTC()
		if _, err = svc.repo.UpdateBook(ctx, bk); err != nil {
			return affected, err
		}
		affected++
	}
	return affected, nil
}

func (svc *service) Genres(ctx context.Context) ([]Genre, error)       { return svc.repo.Genres(ctx) }
func (svc *service) SubGenres(ctx context.Context) ([]SubGenre, error) { return svc.repo.SubGenres(ctx) }
func (svc *service) Topics(ctx context.Context) ([]Topic, error)      { return svc.repo.Topics(ctx) }

func (svc *service) CreateGenre(ctx context.Context, name string) (Genre, error) {
	name = core.CleanString(name)
	if name == "" {
		return Genre{}, requiredFieldError("name")
	}
	g, err := svc.repo.CreateGenre(ctx, Genre{Name: name})
	if err == ErrGenreExists {
		return Genre{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
	}
	return g, err
}

func (svc *service) DeleteGenre(ctx context.Context, id int) error {
	genres, err := svc.repo.Genres(ctx)
	if err != nil {
		return err
	}
	var g Genre
	for _, cand := range genres {
		if cand.ID == id {
			g = cand
			break
		}
	}
	if g.ID == 0 {
		return ErrTaxonomyNotFound
	}
	if err = svc.checkUnused(ctx, &QueryFilter{Genre: g.Name}); err != nil {
		return err
	}
	return svc.repo.DeleteGenre(ctx, id)
}

func (svc *service) CreateSubGenre(ctx context.Context, name string, genreID int) (SubGenre, error) {
	name = core.CleanString(name)
	if name == "" {
		return SubGenre{}, requiredFieldError("name")
	}
	if genreID == 0 {
		return SubGenre{}, requiredFieldError("genre_id")
	}
	sg, err := svc.repo.CreateSubGenre(ctx, SubGenre{Name: name, GenreID: genreID})
	if err == ErrSubGenreExists {
		return SubGenre{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
	}
	return sg, err
}

func (svc *service) DeleteSubGenre(ctx context.Context, id int) error {
	subGenres, err := svc.repo.SubGenres(ctx)
	if err != nil {
		return err
	}
	var sg SubGenre
	for _, cand := range subGenres {
		if cand.ID == id {
			sg = cand
			break
		}
	}
	if sg.ID == 0 {
		return ErrTaxonomyNotFound
	}
	if err = svc.checkUnused(ctx, &QueryFilter{SubGenre: sg.Name}); err != nil {
		return err
	}
	return svc.repo.DeleteSubGenre(ctx, id)
}

func (svc *service) CreateTopic(ctx context.Context, name string) (Topic, error) {
	name = core.CleanString(name)
	if name == "" {
		return Topic{}, requiredFieldError("name")
	}
	tp, err := svc.repo.CreateTopic(ctx, Topic{Name: name})
	if err == ErrTopicExists {
		return Topic{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
	}
	return tp, err
}

func (svc *service) DeleteTopic(ctx context.Context, id int) error {
	topics, err := svc.repo.Topics(ctx)
	if err != nil {
		return err
	}
	var tp Topic
	for _, cand := range topics {
		if cand.ID == id {
			tp = cand
			break
		}
	}
	if tp.ID == 0 {
		return ErrTaxonomyNotFound
	}
	if err = svc.checkUnused(ctx, &QueryFilter{Topic: tp.Name}); err != nil {
		return err
	}
	return svc.repo.DeleteTopic(ctx, id)
}

func (svc *service) GenreMappings(ctx context.Context) ([]GenreMapping, error) {
	return svc.repo.GenreMappings(ctx)
}

func (svc *service) CreateGenreMapping(ctx context.Context, fromName, toGenre string) (GenreMapping, error) {
	fromName = core.CleanString(fromName)
	toGenre = core.CleanString(toGenre)
	if fromName == "" {
		return GenreMapping{}, requiredFieldError("from_name")
	}
	if toGenre == "" {
		return GenreMapping{}, requiredFieldError("to_genre")
	}
	gm, err := svc.repo.CreateGenreMapping(ctx, GenreMapping{FromName: fromName, ToGenre: toGenre})
	if err == ErrMappingExists {
		return GenreMapping{}, core.NewValidationError(err, core.FieldError{Field: "from_name", Error: err.Error()})
	}
	return gm, err
}

func (svc *service) DeleteGenreMapping(ctx context.Context, id int) error {
	mappings, err := svc.repo.GenreMappings(ctx)
	if err != nil {
		return err
	}
	for _, gm := range mappings {
		if gm.ID == id {
			return svc.repo.DeleteGenreMapping(ctx, id)
		}
	}
	return ErrTaxonomyNotFound
}

// checkUnused blocks taxonomy deletion while any book still carries the name.
func (svc *service) checkUnused(ctx context.Context, filter *QueryFilter) error {
	books, err := svc.repo.QueryBooks(ctx, filter, nil)
	if err != nil {
		return err
	}
	if len(books) > 0 {
		return core.NewValidationError(ErrTaxonomyInUse)
	}
	return nil
}

func requiredFieldError(field string) error {
	return core.NewValidationError(nil, core.FieldError{Field: field, Error: "this field is required"})
}

// InferType derives Fiction/Non-Fiction from external subject tags.
func InferType(subjects []string) string {
	for _, subj := range subjects {
		low := strings.ToLower(subj)
		if strings.Contains(low, "nonfiction") || strings.Contains(low, "non-fiction") {
			return TypeNonFiction
		}
	}
	for _, subj := range subjects {
		if strings.Contains(strings.ToLower(subj), "fiction") {
			return TypeFiction
		}
	}
	return ""
}

// PreferredSubGenre picks the first subject that is not a fiction marker.
func PreferredSubGenre(subjects []string) string {
	for _, subj := range subjects {
		low := strings.ToLower(subj)
		if strings.Contains(low, "fiction") || strings.Contains(low, "non") {
			continue
		}
		return strings.TrimSpace(subj)
	}
	return ""
}
