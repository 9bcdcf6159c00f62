package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	. "github.com/trezcool/soma/apps/api/echo"
	"github.com/trezcool/soma/core/class"
	"github.com/trezcool/soma/core/user"
	"github.com/trezcool/soma/tests"
)

func Test_classApi_classCreate(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	teacherToken := getToken(t, teacher)
	adminToken := getToken(t, admin)

	type wantClass struct {
		name      string
		teacherID int
	}
	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Teacher or admin required", token: getToken(t, student), wantCode: http.StatusForbidden,
			body: marchallObj(t, class.NewClass{Name: "Grade 6 English"}), wantData: marchallObj(t, errForbidden),
		},
		{
			name: "name required", token: teacherToken, wantCode: http.StatusBadRequest,
			body:     []byte("{}"),
			wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "teacher owns their classes", token: teacherToken, wantCode: http.StatusCreated,
			body:  marchallObj(t, class.NewClass{Name: "Grade 6 English", TeacherID: admin.ID}), // ignored
			extra: wantClass{name: "Grade 6 English", teacherID: teacher.ID},
		},
		{
			name: "admin creates for a teacher", token: adminToken, wantCode: http.StatusCreated,
			body:  marchallObj(t, class.NewClass{Name: "Grade 7 Science", TeacherID: teacher.ID}),
			extra: wantClass{name: "Grade 7 Science", teacherID: teacher.ID},
		},
		{
			name: "admin defaults to themselves", token: adminToken, wantCode: http.StatusCreated,
			body:  marchallObj(t, class.NewClass{Name: "Grade 8 History"}),
			extra: wantClass{name: "Grade 8 History", teacherID: admin.ID},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/classes"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if want, ok := tt.extra.(wantClass); ok {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var cls class.Class
				if err := json.Unmarshal(rec.Body.Bytes(), &cls); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if cls.ID == 0 {
					t.Error("failed! empty class ID")
				}
				if cls.Name != want.name || cls.TeacherID != want.teacherID {
					t.Errorf("failed! got %+v; want %+v", cls, want)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_classApi_classQuery(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	teacher1 := testutil.CreateUser(t, usrRepo, "Teacher One", "teach1", "t1@test.cd", "", []string{user.RoleTeacher}, true)
	teacher2 := testutil.CreateUser(t, usrRepo, "Teacher Two", "teach2", "t2@test.cd", "", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	math := testutil.CreateClass(t, classRepo, "Math", teacher1.ID)
	bio := testutil.CreateClass(t, classRepo, "Biology", teacher1.ID)
	art := testutil.CreateClass(t, classRepo, "Art", teacher2.ID)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/classes", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Teacher or admin required", path: "/v1/classes", token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "teacher sees own classes", path: "/v1/classes", token: getToken(t, teacher1), wantData: marchallList(t, bio, math)},
		{name: "other teacher sees own classes", path: "/v1/classes", token: getToken(t, teacher2), wantData: marchallList(t, art)},
		{name: "admin sees all", path: "/v1/classes", token: getToken(t, admin), wantData: marchallList(t, art, bio, math)},
		{
			name: "admin filters by teacher", path: "/v1/classes?teacher_id=" + strconv.Itoa(teacher1.ID),
			token: getToken(t, admin), wantData: marchallList(t, bio, math),
		},
		{
			name: "teacher cannot filter by teacher", path: "/v1/classes?teacher_id=" + strconv.Itoa(teacher2.ID),
			token: getToken(t, teacher1), wantData: marchallList(t, bio, math),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_classApi_classQueryMine(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	math := testutil.CreateClass(t, classRepo, "Math", teacher.ID)
	testutil.CreateClass(t, classRepo, "Biology", teacher.ID)

	if err := classRepo.AddClassStudent(context.Background(), math.ID, student.ID); err != nil {
		t.Fatalf("AddClassStudent() failed: %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Student required", token: getToken(t, teacher), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{name: "student classes", token: getToken(t, student), wantCode: http.StatusOK, wantData: marchallList(t, math)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = "/v1/classes/me"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_classApi_classRetrieveUpdateDestroy(t *testing.T) {
	app := setup(t)

	teacher1 := testutil.CreateUser(t, usrRepo, "Teacher One", "teach1", "t1@test.cd", "", []string{user.RoleTeacher}, true)
	teacher2 := testutil.CreateUser(t, usrRepo, "Teacher Two", "teach2", "t2@test.cd", "", []string{user.RoleTeacher}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	math := testutil.CreateClass(t, classRepo, "Math", teacher1.ID)

	teacher1Token := getToken(t, teacher1)
	detail := func(id int) string { return "/v1/classes/" + strconv.Itoa(id) }

	t.Run("retrieve: owner", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, detail(math.ID), teacher1Token)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, math)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("retrieve: other teacher is hidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, detail(math.ID), getToken(t, teacher2))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("retrieve: admin", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, detail(math.ID), getToken(t, admin))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, math)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("retrieve: unknown class", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, detail(999), teacher1Token)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("update", func(t *testing.T) {
		body := marchallObj(t, class.UpdateClass{Description: "Numbers and shapes"})
		req, rec := newAuthRequest(http.MethodPut, detail(math.ID), teacher1Token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var cls class.Class
		if err := json.Unmarshal(rec.Body.Bytes(), &cls); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if cls.Name != math.Name || cls.Description != "Numbers and shapes" {
			t.Errorf("failed! got %+v", cls)
		}
		if cls.TeacherID != teacher1.ID {
			t.Errorf("failed! TeacherID = %d; want %d", cls.TeacherID, teacher1.ID)
		}
	})

	t.Run("destroy", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, detail(math.ID), teacher1Token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}
		req, rec = newAuthRequest(http.MethodGet, detail(math.ID), teacher1Token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_classApi_classStudents(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	zara := testutil.CreateUser(t, usrRepo, "Zara", "zara01", "zara@test.cd", "", []string{user.RoleStudent}, true)
	abel := testutil.CreateUser(t, usrRepo, "Abel", "abel01", "abel@test.cd", "", []string{user.RoleStudent}, true)

	math := testutil.CreateClass(t, classRepo, "Math", teacher.ID)

	teacherToken := getToken(t, teacher)
	studentsPath := "/v1/classes/" + strconv.Itoa(math.ID) + "/students"

	addStudent := func(t *testing.T, id int, wantCode int, wantData []byte) {
		t.Helper()
		body := marchallObj(t, StudentRequest{StudentID: id})
		req, rec := newAuthRequest(http.MethodPost, studentsPath, teacherToken, body)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: wantCode, wantData: wantData}
		if wantData == nil {
			if rec.Code != wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, wantCode)
			}
			return
		}
		checkCodeAndData(t, tt, rec)
	}

	t.Run("add students", func(t *testing.T) {
		addStudent(t, zara.ID, http.StatusNoContent, nil)
		addStudent(t, abel.ID, http.StatusNoContent, nil)
	})

	t.Run("duplicate student", func(t *testing.T) {
		addStudent(t, zara.ID, http.StatusBadRequest, marchallObj(t, map[string]string{"student_id": class.ErrStudentInClass.Error()}))
	})

	t.Run("not a student", func(t *testing.T) {
		addStudent(t, teacher.ID, http.StatusBadRequest, marchallObj(t, map[string]string{"student_id": class.ErrNotAStudent.Error()}))
	})

	t.Run("unknown user", func(t *testing.T) {
		addStudent(t, 999, http.StatusBadRequest, marchallObj(t, map[string]string{"student_id": user.ErrNotFound.Error()}))
	})

	t.Run("roster is sorted by name", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, studentsPath, teacherToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallList(t, abel, zara)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("remove student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, studentsPath+"/"+strconv.Itoa(zara.ID), teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}

		req, rec = newAuthRequest(http.MethodGet, studentsPath, teacherToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallList(t, abel)}
		checkCodeAndData(t, tt, rec)
	})
}

func Test_classApi_classBooks(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	math := testutil.CreateClass(t, classRepo, "Math", teacher.ID)

	hobbit := testutil.CreateBook(t, bookRepo, "The Hobbit", "J.R.R. Tolkien")
	dune := testutil.CreateBook(t, bookRepo, "Dune", "Frank Herbert")

	teacherToken := getToken(t, teacher)
	booksPath := "/v1/classes/" + strconv.Itoa(math.ID) + "/books"

	assign := func(t *testing.T, id int, wantCode int, wantData []byte) {
		t.Helper()
		body := marchallObj(t, BookRequest{BookID: id})
		req, rec := newAuthRequest(http.MethodPost, booksPath, teacherToken, body)
		app.ServeHTTP(rec, req)
		if wantData == nil {
			if rec.Code != wantCode {
				t.Fatalf("failed! code = %v; wantCode %v", rec.Code, wantCode)
			}
			return
		}
		checkCodeAndData(t, httpTest{wantCode: wantCode, wantData: wantData}, rec)
	}

	t.Run("assign books", func(t *testing.T) {
		assign(t, hobbit.ID, http.StatusNoContent, nil)
		assign(t, dune.ID, http.StatusNoContent, nil)
	})

	t.Run("duplicate assignment", func(t *testing.T) {
		assign(t, hobbit.ID, http.StatusBadRequest, marchallObj(t, map[string]string{"book_id": class.ErrBookAssigned.Error()}))
	})

	t.Run("assigned books (most recent first)", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, booksPath, teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var assigned []class.AssignedBook
		if err := json.Unmarshal(rec.Body.Bytes(), &assigned); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(assigned) != 2 {
			t.Fatalf("failed! len(assigned) = %d; want 2", len(assigned))
		}
		if assigned[0].Book.ID != dune.ID || assigned[1].Book.ID != hobbit.ID {
			t.Errorf("failed! got [%d %d]; want [%d %d]", assigned[0].Book.ID, assigned[1].Book.ID, dune.ID, hobbit.ID)
		}
	})

	t.Run("unassign book", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, booksPath+"/"+strconv.Itoa(hobbit.ID), teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}

		req, rec = newAuthRequest(http.MethodGet, booksPath, teacherToken)
		app.ServeHTTP(rec, req)
		var assigned []class.AssignedBook
		if err := json.Unmarshal(rec.Body.Bytes(), &assigned); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(assigned) != 1 || assigned[0].Book.ID != dune.ID {
			t.Errorf("failed! assigned = %+v", assigned)
		}
	})
}
