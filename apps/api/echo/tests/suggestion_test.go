package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/soma/core/book"
	"github.com/trezcool/soma/core/suggestion"
	"github.com/trezcool/soma/core/user"
	"github.com/trezcool/soma/services/email"
	"github.com/trezcool/soma/tests"
)

func Test_suggestionApi_teacherSuggestions(t *testing.T) {
	app := setup(t)

	zara := testutil.CreateUser(t, usrRepo, "Zara", "zara01", "zara@test.cd", "", []string{user.RoleStudent}, true)
	abel := testutil.CreateUser(t, usrRepo, "Abel", "abel01", "abel@test.cd", "", []string{user.RoleStudent}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	hobbit := testutil.CreateBook(t, bookRepo, "The Hobbit", "J.R.R. Tolkien")

	zaraToken := getToken(t, zara)
	teacherToken := getToken(t, teacher)

	var created suggestion.TeacherSuggestion

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/suggestions")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("teacher or admin required", func(t *testing.T) {
		body := marchallObj(t, suggestion.NewTeacherSuggestion{StudentID: zara.ID, BookID: hobbit.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/suggestions", zaraToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("required fields", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/suggestions", teacherToken, []byte("{}"))
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"student_id": "this field is required",
				"book_id":    "this field is required",
			}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("unknown student", func(t *testing.T) {
		body := marchallObj(t, suggestion.NewTeacherSuggestion{StudentID: 999, BookID: hobbit.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/suggestions", teacherToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})

	t.Run("unknown book", func(t *testing.T) {
		body := marchallObj(t, suggestion.NewTeacherSuggestion{StudentID: zara.ID, BookID: 999})
		req, rec := newAuthRequest(http.MethodPost, "/v1/suggestions", teacherToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})

	t.Run("suggest a book", func(t *testing.T) {
		emailsvc.SentMessages = nil // reset

		body := marchallObj(t, suggestion.NewTeacherSuggestion{StudentID: zara.ID, BookID: hobbit.ID, Reason: "You'll love the riddles"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/suggestions", teacherToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusCreated, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if created.ID == 0 || created.StudentID != zara.ID || created.BookID != hobbit.ID || created.SuggestedByID != teacher.ID {
			t.Errorf("failed! got %+v", created)
		}
		if created.IsAccepted {
			t.Error("failed! IsAccepted = true; want false")
		}
		if created.Book.Title != hobbit.Title {
			t.Errorf("failed! Book.Title = %q; want %q", created.Book.Title, hobbit.Title)
		}

		if len(emailsvc.SentMessages) != 1 {
			t.Fatalf("failed! len(SentMessages) = %d; want 1", len(emailsvc.SentMessages))
		}
		msg := emailsvc.SentMessages[0]
		if msg.To[0].Address != zara.Email {
			t.Errorf("failed! To = %v; want %v", msg.To[0].Address, zara.Email)
		}
		if msg.Subject != "A book was suggested for you" {
			t.Errorf("failed! Subject = %q", msg.Subject)
		}
	})

	t.Run("duplicate suggestion", func(t *testing.T) {
		body := marchallObj(t, suggestion.NewTeacherSuggestion{StudentID: zara.ID, BookID: hobbit.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/suggestions", teacherToken, body)
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"book_id": suggestion.ErrAlreadySuggested.Error()}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("students see their pending suggestions", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/suggestions/me", teacherToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)

		req, rec = newAuthRequest(http.MethodGet, "/v1/suggestions/me", zaraToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, created)}, rec)

		req, rec = newAuthRequest(http.MethodGet, "/v1/suggestions/me", getToken(t, abel))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)
	})

	t.Run("only the target student may accept", func(t *testing.T) {
		path := "/v1/suggestions/me/" + strconv.Itoa(created.ID) + "/accept"
		req, rec := newAuthRequest(http.MethodPost, path, getToken(t, abel))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})

	t.Run("accept unknown suggestion", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/suggestions/me/999/accept", zaraToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)

		req, rec = newAuthRequest(http.MethodPost, "/v1/suggestions/me/lol/accept", zaraToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})

	t.Run("accept adds the book to the reading list", func(t *testing.T) {
		path := "/v1/suggestions/me/" + strconv.Itoa(created.ID) + "/accept"
		req, rec := newAuthRequest(http.MethodPost, path, zaraToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var ts suggestion.TeacherSuggestion
		if err := json.Unmarshal(rec.Body.Bytes(), &ts); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if !ts.IsAccepted {
			t.Error("failed! IsAccepted = false; want true")
		}

		items, err := readingRepo.UserListItems(context.Background(), zara.ID)
		if err != nil {
			t.Fatalf("UserListItems() failed: %v", err)
		}
		if len(items) != 1 || items[0].BookID != hobbit.ID {
			t.Errorf("failed! items = %+v", items)
		}

		// no longer pending
		req, rec = newAuthRequest(http.MethodGet, "/v1/suggestions/me", zaraToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)
	})

	t.Run("accept twice", func(t *testing.T) {
		path := "/v1/suggestions/me/" + strconv.Itoa(created.ID) + "/accept"
		req, rec := newAuthRequest(http.MethodPost, path, zaraToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: suggestion.ErrAlreadyAccepted.Error()})}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_suggestionApi_bookSuggestions(t *testing.T) {
	app := setup(t)

	zara := testutil.CreateUser(t, usrRepo, "Zara", "zara01", "zara@test.cd", "", []string{user.RoleStudent}, true)
	abel := testutil.CreateUser(t, usrRepo, "Abel", "abel01", "abel@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	testutil.CreateBook(t, bookRepo, "The Hobbit", "J.R.R. Tolkien")

	zaraToken := getToken(t, zara)
	abelToken := getToken(t, abel)
	adminToken := getToken(t, admin)

	suggest := func(t *testing.T, token string, ns suggestion.NewBookSuggestion) suggestion.BookSuggestion {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, "/v1/book-suggestions/me", token, marchallObj(t, ns))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var bs suggestion.BookSuggestion
		if err := json.Unmarshal(rec.Body.Bytes(), &bs); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		return bs
	}
	review := func(t *testing.T, id int, rd suggestion.ReviewDecision, wantCode int) *httptest.ResponseRecorder {
		t.Helper()
		path := "/v1/book-suggestions/" + strconv.Itoa(id) + "/review"
		req, rec := newAuthRequest(http.MethodPost, path, adminToken, marchallObj(t, rd))
		app.ServeHTTP(rec, req)
		if rec.Code != wantCode {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, wantCode, rec.Body.String())
		}
		return rec
	}

	t.Run("student required", func(t *testing.T) {
		body := marchallObj(t, suggestion.NewBookSuggestion{Title: "Dune"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/book-suggestions/me", adminToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("title required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/book-suggestions/me", zaraToken, []byte("{}"))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"title": "this field is required"})}
		checkCodeAndData(t, tt, rec)
	})

	emailsvc.SentMessages = nil // reset
	dune := suggest(t, zaraToken, suggestion.NewBookSuggestion{Title: "Dune", Author: "Frank Herbert", Reason: "We only have fantasy"})
	matilda := suggest(t, abelToken, suggestion.NewBookSuggestion{Title: "Matilda", Author: "Roald Dahl"})
	hobbitDup := suggest(t, abelToken, suggestion.NewBookSuggestion{Title: "The Hobbit!", Author: "J.R.R. Tolkien"})

	t.Run("create notifies admins", func(t *testing.T) {
		if dune.Status != suggestion.StatusPending || dune.StudentID != zara.ID {
			t.Errorf("failed! got %+v", dune)
		}
		if len(emailsvc.SentMessages) != 3 {
			t.Fatalf("failed! len(SentMessages) = %d; want 3", len(emailsvc.SentMessages))
		}
		msg := emailsvc.SentMessages[0]
		if msg.Subject != "New book suggestion" {
			t.Errorf("failed! Subject = %q", msg.Subject)
		}
	})

	t.Run("students see their own suggestions", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/book-suggestions/me", zaraToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, dune)}, rec)
	})

	t.Run("admin listing and filters", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/book-suggestions", zaraToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)

		req, rec = newAuthRequest(http.MethodGet, "/v1/book-suggestions?student_id="+strconv.Itoa(abel.ID), adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, hobbitDup, matilda)}, rec)

		req, rec = newAuthRequest(http.MethodGet, "/v1/book-suggestions?status="+suggestion.StatusApproved, adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)
	})

	t.Run("review requires a valid status", func(t *testing.T) {
		path := "/v1/book-suggestions/" + strconv.Itoa(dune.ID) + "/review"
		req, rec := newAuthRequest(http.MethodPost, path, adminToken, marchallObj(t, suggestion.ReviewDecision{Status: "lol"}))
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"status": "status must be one of [approved rejected added]"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("review unknown suggestion", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/book-suggestions/999/review", adminToken, marchallObj(t, suggestion.ReviewDecision{Status: suggestion.StatusRejected}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})

	t.Run("reject", func(t *testing.T) {
		emailsvc.SentMessages = nil // reset

		rec := review(t, matilda.ID, suggestion.ReviewDecision{Status: suggestion.StatusRejected, AdminNotes: "Already on order"}, http.StatusOK)
		var bs suggestion.BookSuggestion
		if err := json.Unmarshal(rec.Body.Bytes(), &bs); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if bs.Status != suggestion.StatusRejected || bs.AdminNotes != "Already on order" {
			t.Errorf("failed! got %+v", bs)
		}
		if !bs.ReviewedByID.Valid || bs.ReviewedByID.Int != admin.ID {
			t.Errorf("failed! ReviewedByID = %+v; want %d", bs.ReviewedByID, admin.ID)
		}
		if bs.BookID.Valid {
			t.Errorf("failed! BookID = %+v; want null", bs.BookID)
		}

		if len(emailsvc.SentMessages) != 1 {
			t.Fatalf("failed! len(SentMessages) = %d; want 1", len(emailsvc.SentMessages))
		}
		if msg := emailsvc.SentMessages[0]; msg.Subject != "Your book suggestion was reviewed" {
			t.Errorf("failed! Subject = %q", msg.Subject)
		}
	})

	t.Run("review twice", func(t *testing.T) {
		rec := review(t, matilda.ID, suggestion.ReviewDecision{Status: suggestion.StatusApproved}, http.StatusBadRequest)
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: suggestion.ErrAlreadyReviewed.Error()})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("added creates the catalog book", func(t *testing.T) {
		rec := review(t, dune.ID, suggestion.ReviewDecision{Status: suggestion.StatusAdded}, http.StatusOK)
		var bs suggestion.BookSuggestion
		if err := json.Unmarshal(rec.Body.Bytes(), &bs); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if bs.Status != suggestion.StatusAdded {
			t.Errorf("failed! Status = %q; want %q", bs.Status, suggestion.StatusAdded)
		}
		if !bs.BookID.Valid {
			t.Fatal("failed! BookID is null")
		}
		bk, err := bookRepo.GetBookByID(context.Background(), bs.BookID.Int)
		if err != nil {
			t.Fatalf("GetBookByID() failed: %v", err)
		}
		if bk.Title != "Dune" || bk.Author != "Frank Herbert" {
			t.Errorf("failed! got %+v", bk)
		}
	})

	t.Run("added rejects catalog duplicates", func(t *testing.T) {
		rec := review(t, hobbitDup.ID, suggestion.ReviewDecision{Status: suggestion.StatusAdded}, http.StatusBadRequest)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"title":  book.ErrBookExists.Error(),
				"author": book.ErrBookExists.Error(),
			}),
		}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_suggestionApi_editSuggestions(t *testing.T) {
	app := setup(t)

	zara := testutil.CreateUser(t, usrRepo, "Zara", "zara01", "zara@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	hobbit := testutil.CreateBook(t, bookRepo, "The Hobbit", "J.R.R. Tolkien", func(bk *book.Book) {
		bk.Type = book.TypeFiction
		bk.Grade = 6
	})

	zaraToken := getToken(t, zara)
	adminToken := getToken(t, admin)

	suggest := func(t *testing.T, ns suggestion.NewEditSuggestion) suggestion.BookEditSuggestion {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, "/v1/edit-suggestions/me", zaraToken, marchallObj(t, ns))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var es suggestion.BookEditSuggestion
		if err := json.Unmarshal(rec.Body.Bytes(), &es); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		return es
	}
	review := func(t *testing.T, id int, rd suggestion.ReviewDecision, wantCode int) *httptest.ResponseRecorder {
		t.Helper()
		path := "/v1/edit-suggestions/" + strconv.Itoa(id) + "/review"
		req, rec := newAuthRequest(http.MethodPost, path, adminToken, marchallObj(t, rd))
		app.ServeHTTP(rec, req)
		if rec.Code != wantCode {
			t.Fatalf("failed! code = %v; wantCode %v; data = %v", rec.Code, wantCode, rec.Body.String())
		}
		return rec
	}

	t.Run("book_id required", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/edit-suggestions/me", zaraToken, []byte("{}"))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"book_id": "this field is required"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("unknown book", func(t *testing.T) {
		body := marchallObj(t, suggestion.NewEditSuggestion{BookID: 999, Genre: null.StringFrom("Fantasy")})
		req, rec := newAuthRequest(http.MethodPost, "/v1/edit-suggestions/me", zaraToken, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})

	t.Run("invalid suggested fields", func(t *testing.T) {
		body := marchallObj(t, suggestion.NewEditSuggestion{
			BookID: hobbit.ID,
			Type:   null.StringFrom("Poetry"),
			Owned:  null.StringFrom("Borrowed"),
			Grade:  null.IntFrom(13),
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/edit-suggestions/me", zaraToken, body)
		app.ServeHTTP(rec, req)
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"suggested_book_type": "invalid book type",
				"suggested_owned":     "invalid owned value",
				"suggested_grade":     "grade must be between 1 and 12",
			}),
		}
		checkCodeAndData(t, tt, rec)
	})

	genreEdit := suggest(t, suggestion.NewEditSuggestion{
		BookID: hobbit.ID,
		Genre:  null.StringFrom("Fantasy"),
		Grade:  null.IntFrom(7),
		Reason: "It is shelved as fantasy at the library",
	})
	titleEdit := suggest(t, suggestion.NewEditSuggestion{
		BookID: hobbit.ID,
		Title:  null.StringFrom("The Hobbit, or There and Back Again"),
	})

	t.Run("create", func(t *testing.T) {
		if genreEdit.Status != suggestion.StatusPending || genreEdit.StudentID != zara.ID || genreEdit.BookID != hobbit.ID {
			t.Errorf("failed! got %+v", genreEdit)
		}
	})

	t.Run("students see their own suggestions", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/edit-suggestions/me", adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)

		req, rec = newAuthRequest(http.MethodGet, "/v1/edit-suggestions/me", zaraToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var suggestions []suggestion.BookEditSuggestion
		if err := json.Unmarshal(rec.Body.Bytes(), &suggestions); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(suggestions) != 2 {
			t.Errorf("failed! len(suggestions) = %d; want 2", len(suggestions))
		}
	})

	t.Run("admin filters by status", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/edit-suggestions?status="+suggestion.StatusApproved, adminToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)
	})

	t.Run("added is not a valid verdict", func(t *testing.T) {
		rec := review(t, genreEdit.ID, suggestion.ReviewDecision{Status: suggestion.StatusAdded}, http.StatusBadRequest)
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"status": "invalid status"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("approval applies the edit", func(t *testing.T) {
		rec := review(t, genreEdit.ID, suggestion.ReviewDecision{Status: suggestion.StatusApproved}, http.StatusOK)
		var es suggestion.BookEditSuggestion
		if err := json.Unmarshal(rec.Body.Bytes(), &es); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if es.Status != suggestion.StatusApproved {
			t.Errorf("failed! Status = %q; want %q", es.Status, suggestion.StatusApproved)
		}
		if !es.ReviewedByID.Valid || es.ReviewedByID.Int != admin.ID {
			t.Errorf("failed! ReviewedByID = %+v; want %d", es.ReviewedByID, admin.ID)
		}

		bk, err := bookRepo.GetBookByID(context.Background(), hobbit.ID)
		if err != nil {
			t.Fatalf("GetBookByID() failed: %v", err)
		}
		if bk.Genre != "Fantasy" || bk.Grade != 7 {
			t.Errorf("failed! got %+v", bk)
		}
		if bk.Title != hobbit.Title || bk.Type != hobbit.Type {
			t.Errorf("failed! untouched fields changed: %+v", bk)
		}
	})

	t.Run("review twice", func(t *testing.T) {
		rec := review(t, genreEdit.ID, suggestion.ReviewDecision{Status: suggestion.StatusRejected}, http.StatusBadRequest)
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: suggestion.ErrAlreadyReviewed.Error()})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("rejection leaves the book alone", func(t *testing.T) {
		rec := review(t, titleEdit.ID, suggestion.ReviewDecision{Status: suggestion.StatusRejected, AdminNotes: "Keep the short title"}, http.StatusOK)
		var es suggestion.BookEditSuggestion
		if err := json.Unmarshal(rec.Body.Bytes(), &es); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if es.Status != suggestion.StatusRejected || es.AdminNotes != "Keep the short title" {
			t.Errorf("failed! got %+v", es)
		}

		bk, err := bookRepo.GetBookByID(context.Background(), hobbit.ID)
		if err != nil {
			t.Fatalf("GetBookByID() failed: %v", err)
		}
		if bk.Title != hobbit.Title {
			t.Errorf("failed! Title = %q; want %q", bk.Title, hobbit.Title)
		}
	})
}
