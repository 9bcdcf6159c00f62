package suggestion

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/book"
	"github.com/trezcool/soma/core/reading"
	"github.com/trezcool/soma/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("suggestion not found")
	ErrAlreadyAccepted  = errors.New("suggestion has already been accepted")
	ErrAlreadyReviewed  = errors.New("suggestion has already been reviewed")
	ErrAlreadySuggested = errors.New("this book has already been suggested to this student")
	errInvalidEdit      = errors.New("invalid suggested fields")
	errInvalidStatus    = errors.New("invalid status")
)

type (
	Repository interface {
		CreateTeacherSuggestion(ctx context.Context, ts TeacherSuggestion) (TeacherSuggestion, error)
		GetTeacherSuggestion(ctx context.Context, id int) (TeacherSuggestion, error)
		// PendingTeacherSuggestions returns unaccepted suggestions, newest first.
		PendingTeacherSuggestions(ctx context.Context, studentID int) ([]TeacherSuggestion, error)
		UpdateTeacherSuggestion(ctx context.Context, ts TeacherSuggestion) (TeacherSuggestion, error)

		CreateBookSuggestion(ctx context.Context, bs BookSuggestion) (BookSuggestion, error)
		GetBookSuggestion(ctx context.Context, id int) (BookSuggestion, error)
		// QueryBookSuggestions filters on studentID (0 = all) and status ("" = all).
		QueryBookSuggestions(ctx context.Context, studentID int, status string) ([]BookSuggestion, error)
		UpdateBookSuggestion(ctx context.Context, bs BookSuggestion) (BookSuggestion, error)

		CreateEditSuggestion(ctx context.Context, es BookEditSuggestion) (BookEditSuggestion, error)
		GetEditSuggestion(ctx context.Context, id int) (BookEditSuggestion, error)
		QueryEditSuggestions(ctx context.Context, studentID int, status string) ([]BookEditSuggestion, error)
		UpdateEditSuggestion(ctx context.Context, es BookEditSuggestion) (BookEditSuggestion, error)
	}

	Service interface {
		SuggestToStudent(ctx context.Context, ns NewTeacherSuggestion, suggestedBy user.User) (TeacherSuggestion, error)
		PendingForStudent(ctx context.Context, studentID int) ([]TeacherSuggestion, error)
		Accept(ctx context.Context, id, studentID int) (TeacherSuggestion, error)

		CreateBookSuggestion(ctx context.Context, studentID int, ns NewBookSuggestion) (BookSuggestion, error)
		ListBookSuggestions(ctx context.Context, studentID int, status string) ([]BookSuggestion, error)
		ReviewBookSuggestion(ctx context.Context, id int, rd ReviewDecision, reviewer user.User) (BookSuggestion, error)

		CreateEditSuggestion(ctx context.Context, studentID int, ns NewEditSuggestion) (BookEditSuggestion, error)
		ListEditSuggestions(ctx context.Context, studentID int, status string) ([]BookEditSuggestion, error)
		ReviewEditSuggestion(ctx context.Context, id int, rd ReviewDecision, reviewer user.User) (BookEditSuggestion, error)
	}

	service struct {
		repo       Repository
		bookSvc    book.Service
		readingSvc reading.Service
		usrSvc     user.Service
		mailSvc    core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	bookSvc book.Service,
	readingSvc reading.Service,
	usrSvc user.Service,
	mailSvc core.EmailService,
) Service {
	return &service{
		repo:       repo,
		bookSvc:    bookSvc,
		readingSvc: readingSvc,
		usrSvc:     usrSvc,
		mailSvc:    mailSvc,
	}
}

// Teacher suggestions

func (svc *service) SuggestToStudent(ctx context.Context, ns NewTeacherSuggestion, suggestedBy user.User) (TeacherSuggestion, error) {
	student, err := svc.usrSvc.GetByID(ctx, ns.StudentID)
	if err != nil {
		return TeacherSuggestion{}, err
	}
	bk, err := svc.bookSvc.GetByID(ctx, ns.BookID)
	if err != nil {
		return TeacherSuggestion{}, err
	}

	ts := TeacherSuggestion{
		StudentID:     ns.StudentID,
		BookID:        ns.BookID,
		SuggestedByID: suggestedBy.ID,
		Reason:        ns.Reason,
		SuggestedAt:   time.Now().UTC(),
	}
	ts, err = svc.repo.CreateTeacherSuggestion(ctx, ts)
	if err != nil {
		if err == ErrAlreadySuggested {
			return TeacherSuggestion{}, core.NewValidationError(err, core.FieldError{Field: "book_id", Error: err.Error()})
		}
		return TeacherSuggestion{}, err
	}
	ts.Book = bk

	if student.Email != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: student.Name, Address: student.Email}},
			Subject:      "A book was suggested for you",
			TemplateName: "book-suggested",
			TemplateData: struct {
				Student   user.User
				Teacher   user.User
				Book      book.Book
				Reason    string
			}{student, suggestedBy, bk, ns.Reason},
		})
	}
	return ts, nil
}

func (svc *service) PendingForStudent(ctx context.Context, studentID int) ([]TeacherSuggestion, error) {
	return svc.repo.PendingTeacherSuggestions(ctx, studentID)
}

// Accept marks the suggestion accepted and appends the book to the
// student's reading list. Only the target student may accept.
func (svc *service) Accept(ctx context.Context, id, studentID int) (TeacherSuggestion, error) {
	ts, err := svc.repo.GetTeacherSuggestion(ctx, id)
	if err != nil {
		return TeacherSuggestion{}, err
	}
	if ts.StudentID != studentID {
		return TeacherSuggestion{}, ErrNotFound
	}
	if ts.IsAccepted {
		return TeacherSuggestion{}, core.NewValidationError(ErrAlreadyAccepted)
	}

	if _, err = svc.readingSvc.AddToList(ctx, studentID, ts.BookID); err != nil {
		// already on the list is fine; the acceptance still sticks
		if _, ok := err.(*core.ValidationError); !ok {
			return TeacherSuggestion{}, err
		}
	}
	ts.IsAccepted = true
	return svc.repo.UpdateTeacherSuggestion(ctx, ts)
}

// Student book suggestions

func (svc *service) CreateBookSuggestion(ctx context.Context, studentID int, ns NewBookSuggestion) (BookSuggestion, error) {
	bs := BookSuggestion{
		StudentID:   studentID,
		Title:       ns.Title,
		Author:      ns.Author,
		Reason:      ns.Reason,
		Status:      StatusPending,
		SuggestedAt: time.Now().UTC(),
	}
	bs, err := svc.repo.CreateBookSuggestion(ctx, bs)
	if err != nil {
		return BookSuggestion{}, err
	}

	if admins := core.Conf.AdminEmails(); len(admins) > 0 {
		student, _ := svc.usrSvc.GetByID(ctx, studentID)
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           admins,
			Subject:      "New book suggestion",
			TemplateName: "suggestion-submitted",
			TemplateData: struct {
				Student    user.User
				Suggestion BookSuggestion
			}{student, bs},
		})
	}
	return bs, nil
}

func (svc *service) ListBookSuggestions(ctx context.Context, studentID int, status string) ([]BookSuggestion, error) {
	return svc.repo.QueryBookSuggestions(ctx, studentID, status)
}

// ReviewBookSuggestion records an admin verdict on a pending suggestion.
// "added" creates the catalog book and links it.
func (svc *service) ReviewBookSuggestion(ctx context.Context, id int, rd ReviewDecision, reviewer user.User) (BookSuggestion, error) {
	bs, err := svc.repo.GetBookSuggestion(ctx, id)
	if err != nil {
		return BookSuggestion{}, err
	}
	if bs.Status != StatusPending {
		return BookSuggestion{}, core.NewValidationError(ErrAlreadyReviewed)
	}

	if rd.Status == StatusAdded {
		nb := book.NewBook{Title: bs.Title, Author: bs.Author, Enrich: true}
		if err = nb.Validate(); err != nil {
			return BookSuggestion{}, err
		}
		bk, err := svc.bookSvc.Create(ctx, nb)
		if err != nil {
			return BookSuggestion{}, err
		}
		bs.BookID = null.IntFrom(bk.ID)
	}

	bs.Status = rd.Status
	bs.AdminNotes = rd.AdminNotes
	bs.ReviewedAt = null.TimeFrom(time.Now().UTC())
	bs.ReviewedByID = null.IntFrom(reviewer.ID)
	bs, err = svc.repo.UpdateBookSuggestion(ctx, bs)
	if err != nil {
		return BookSuggestion{}, err
	}

	if student, err := svc.usrSvc.GetByID(ctx, bs.StudentID); err == nil && student.Email != "" {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: student.Name, Address: student.Email}},
			Subject:      "Your book suggestion was reviewed",
			TemplateName: "suggestion-reviewed",
			TemplateData: struct {
				Student    user.User
				Suggestion BookSuggestion
			}{student, bs},
		})
	}
	return bs, nil
}

// Student edit suggestions

func (svc *service) CreateEditSuggestion(ctx context.Context, studentID int, ns NewEditSuggestion) (BookEditSuggestion, error) {
	if _, err := svc.bookSvc.GetByID(ctx, ns.BookID); err != nil {
		return BookEditSuggestion{}, err
	}
	es := BookEditSuggestion{
		BookID:       ns.BookID,
		StudentID:    studentID,
		Title:        ns.Title,
		Author:       ns.Author,
		ISBN:         ns.ISBN,
		Type:         ns.Type,
		Genre:        ns.Genre,
		SubGenre:     ns.SubGenre,
		Topic:        ns.Topic,
		LexileRating: ns.LexileRating,
		Grade:        ns.Grade,
		Owned:        ns.Owned,
		Reason:       ns.Reason,
		Status:       StatusPending,
		SuggestedAt:  time.Now().UTC(),
	}
	return svc.repo.CreateEditSuggestion(ctx, es)
}

func (svc *service) ListEditSuggestions(ctx context.Context, studentID int, status string) ([]BookEditSuggestion, error) {
	return svc.repo.QueryEditSuggestions(ctx, studentID, status)
}

// ReviewEditSuggestion approves or rejects a pending edit; approval
// applies the non-null suggested fields to the book.
func (svc *service) ReviewEditSuggestion(ctx context.Context, id int, rd ReviewDecision, reviewer user.User) (BookEditSuggestion, error) {
	if rd.Status == StatusAdded {
		return BookEditSuggestion{}, core.NewValidationError(errInvalidStatus, core.FieldError{Field: "status", Error: errInvalidStatus.Error()})
	}

	es, err := svc.repo.GetEditSuggestion(ctx, id)
	if err != nil {
		return BookEditSuggestion{}, err
	}
	if es.Status != StatusPending {
		return BookEditSuggestion{}, core.NewValidationError(ErrAlreadyReviewed)
	}

	if rd.Status == StatusApproved {
		if err = svc.applyEdit(ctx, es); err != nil {
			return BookEditSuggestion{}, err
		}
	}
	es.Status = rd.Status
	es.AdminNotes = rd.AdminNotes
	es.ReviewedAt = null.TimeFrom(time.Now().UTC())
	es.ReviewedByID = null.IntFrom(reviewer.ID)
	return svc.repo.UpdateEditSuggestion(ctx, es)
}

func (svc *service) applyEdit(ctx context.Context, es BookEditSuggestion) error {
	orig, err := svc.bookSvc.GetByID(ctx, es.BookID)
	if err != nil {
		return err
	}
	ub := book.UpdateBook{
		Title:           orig.Title,
		Author:          orig.Author,
		ISBN:            orig.ISBN,
		Type:            orig.Type,
		Genre:           orig.Genre,
		SubGenre:        orig.SubGenre,
		Topic:           orig.Topic,
		LexileRating:    orig.LexileRating,
		Grade:           orig.Grade,
		Owned:           orig.Owned,
		Description:     orig.Description,
		CoverURL:        orig.CoverURL,
		PublicationYear: orig.PublicationYear,
	}
	if es.Title.Valid {
		ub.Title = es.Title.String
	}
	if es.Author.Valid {
		ub.Author = es.Author.String
	}
	if es.ISBN.Valid {
		ub.ISBN = es.ISBN.String
	}
	if es.Type.Valid {
		ub.Type = es.Type.String
	}
	if es.Genre.Valid {
		ub.Genre = es.Genre.String
	}
	if es.SubGenre.Valid {
		ub.SubGenre = es.SubGenre.String
	}
	if es.Topic.Valid {
		ub.Topic = es.Topic.String
	}
	if es.LexileRating.Valid {
		ub.LexileRating = es.LexileRating.String
	}
	if es.Grade.Valid {
		ub.Grade = es.Grade.Int
	}
	if es.Owned.Valid {
		ub.Owned = es.Owned.String
	}
	if err = ub.Validate(orig); err != nil {
		return err
	}
	_, err = svc.bookSvc.Update(ctx, es.BookID, ub)
	return err
}
