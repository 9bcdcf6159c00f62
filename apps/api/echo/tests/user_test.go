package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/trezcool/soma/apps/api/echo"
	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/user"
	"github.com/trezcool/soma/services/email"
	"github.com/trezcool/soma/tests"
)

func Test_userApi_userLogin(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero01", "hero@test.cd", "LolC@t123", []string{user.RoleStudent}, true)
	testutil.CreateUser(t, usrRepo, "N Dog", "ndog01", "ndog@test.cd", "LolC@t123", []string{user.RoleStudent}, false)

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "empty body", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "Request body can't be empty"}),
		},
		{
			name: "required fields", wantCode: http.StatusBadRequest, body: []byte("{}"),
			wantData: marchallObj(t, echoapi.LoginRequest{Username: reqMsg, Password: reqMsg}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Username: "lol", Password: "lol"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, echoapi.LoginRequest{Username: student.Username, Password: "lol"}),
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "inactive user", wantCode: http.StatusForbidden,
			body:     marchallObj(t, echoapi.LoginRequest{Username: "ndog01", Password: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "login with username", wantCode: http.StatusOK,
			body: marchallObj(t, echoapi.LoginRequest{Username: student.Username, Password: "LolC@t123"}),
		},
		{
			name: "login with email", wantCode: http.StatusOK,
			body: marchallObj(t, echoapi.LoginRequest{Username: student.Email, Password: "LolC@t123"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userQuery(t *testing.T) {
	app := setup(t)

	path := func(search, ordering string, createdFrom, createdTo time.Time, isActive *bool, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		if !createdFrom.IsZero() {
			v.Add("created_from", createdFrom.Format(time.RFC3339))
		}
		if !createdTo.IsZero() {
			v.Add("created_to", createdTo.Format(time.RFC3339))
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/v1/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	// whole seconds so RFC3339 round-trips exactly
	now := time.Now().Truncate(time.Second)
	t1 := now.Add(1 * time.Hour)
	t2 := now.Add(2 * time.Hour)
	t3 := now.Add(3 * time.Hour)
	t4 := now.Add(4 * time.Hour)
	t5 := now.Add(5 * time.Hour)

	usr1 := testutil.CreateUser(t, usrRepo, "User", "awe001", "awe@test.cd", "", nil, true, t1)
	usr2 := testutil.CreateUser(t, usrRepo, "King", "user02", "king@test.cd", "", nil, true, now.Add(-2*time.Hour))
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true, now.Add(-1*time.Hour))
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true, t2)
	owner := testutil.CreateUser(t, usrRepo, "Owner", "owner1", "owner@test.cd", "", []string{user.RoleAdminOwner}, true, now.Add(-3*time.Hour))
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teach1", "teacher@test.cd", "", []string{user.RoleTeacher}, true, t3)
	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog01", "ndog@test.cd", "", []string{user.RoleStudent}, false, now)

	adminToken := getToken(t, admin)
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users", token: getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Get all", path: "/v1/users", token: adminToken,
			wantData: marchallList(t, teacher, admin, usr1, naughty, student, usr2, owner),
		},
		// filtering
		{name: "search (unknown)", path: path("lol", "", time.Time{}, time.Time{}, nil), token: adminToken, wantData: empty},
		{
			name: "search=USE", path: path("USE", "", time.Time{}, time.Time{}, nil),
			token: adminToken, wantData: marchallList(t, usr1, usr2),
		},
		{name: "role (unknown)", path: path("", "", time.Time{}, time.Time{}, nil, "lol"), token: adminToken, wantData: empty},
		{
			name: "role=admin:", path: path("", "", time.Time{}, time.Time{}, nil, user.RoleAdmin),
			token: adminToken, wantData: marchallList(t, admin, owner),
		},
		{
			name: "role=teacher:", path: path("", "", time.Time{}, time.Time{}, nil, user.RoleTeacher),
			token: adminToken, wantData: marchallList(t, teacher),
		},
		{
			name: "role=teacher:,student:", path: path("", "", time.Time{}, time.Time{}, nil, user.RoleTeacher, user.RoleStudent),
			token: adminToken, wantData: marchallList(t, teacher, naughty, student),
		},
		{
			name: "is_active=true", path: path("", "", time.Time{}, time.Time{}, bPtr(true)),
			token: adminToken, wantData: marchallList(t, teacher, admin, usr1, student, usr2, owner),
		},
		{name: "is_active=false", path: path("", "", time.Time{}, time.Time{}, bPtr(false)), token: adminToken, wantData: marchallList(t, naughty)},
		{
			name: "created_from", path: path("", "", t1, time.Time{}, nil),
			token: adminToken, wantData: marchallList(t, teacher, admin, usr1),
		},
		{
			name: "created_to", path: path("", "", time.Time{}, t2, nil),
			token: adminToken, wantData: marchallList(t, admin, usr1, naughty, student, usr2, owner),
		},
		{name: "created_from - created_to (empty)", path: path("", "", t4, t5, nil), token: adminToken, wantData: empty},
		{name: "created_from - created_to (found)", path: path("", "", t1, t2, nil), token: adminToken, wantData: marchallList(t, admin, usr1)},
		{name: "all combo (empty)", path: path("USE", "", t1, t5, bPtr(true), user.RoleAdminOwner), token: adminToken, wantData: empty},
		{
			name: "all combo (found)", path: path("tea", "", t1, t5, bPtr(true), user.RoleTeacher),
			token: adminToken, wantData: marchallList(t, teacher),
		},
		// ordering
		{
			name: "order by created_at", path: path("", "created_at", time.Time{}, time.Time{}, nil), token: adminToken,
			wantData: marchallList(t, owner, usr2, student, naughty, usr1, admin, teacher),
		},
		{
			name: "order by -created_at", path: path("", "-created_at", time.Time{}, time.Time{}, nil), token: adminToken,
			wantData: marchallList(t, teacher, admin, usr1, naughty, student, usr2, owner),
		},
		{
			name: "order by name", path: path("", "name", time.Time{}, time.Time{}, nil), token: adminToken,
			wantData: marchallList(t, admin, student, usr2, naughty, owner, teacher, usr1),
		},
		{
			name: "order by -name", path: path("", "-name", time.Time{}, time.Time{}, nil), token: adminToken,
			wantData: marchallList(t, usr1, teacher, owner, naughty, usr2, student, admin),
		},
		// filtering & ordering
		{
			name: "filtering & ordering", path: path("", "name", time.Time{}, time.Time{}, nil, user.RoleTeacher, user.RoleStudent), token: adminToken,
			wantData: marchallList(t, student, naughty, teacher),
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

func Test_userApi_userCreate(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	adminToken := getToken(t, admin)

	type wantUser struct {
		name     string
		username string
		email    string
		roles    []string
	}
	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, student), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name: "username or email required", token: adminToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, user.NewUser{Name: "New Hero", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, map[string]string{
				"username": "one of username or email is required",
				"email":    "one of username or email is required",
			}),
		},
		{
			name: "duplicate username", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.NewUser{Name: "New Hero", Username: student.Username, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, map[string]string{"username": "a user with this username already exists"}),
		},
		{
			name: "duplicate email", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.NewUser{Name: "New Hero", Email: student.Email, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
		{
			name: "invalid roles", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.NewUser{Name: "New Hero", Username: "hero02", Password: "LolC@t123", PasswordConfirm: "LolC@t123", Roles: []string{"lol"}}),
			wantData: marchallObj(t, map[string]string{"roles": "invalid roles"}),
		},
		{
			name: "cannot set higher role", token: adminToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.NewUser{Name: "Boss", Username: "boss01", Password: "LolC@t123", PasswordConfirm: "LolC@t123", Roles: []string{user.RoleAdminOwner}}),
			wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
		{
			name: "create student", token: adminToken, wantCode: http.StatusCreated,
			body:  marchallObj(t, user.NewUser{Name: "New Hero", Username: "hero02", Email: "hero2@test.cd", Password: "LolC@t123", PasswordConfirm: "LolC@t123", Roles: []string{user.RoleStudent}}),
			extra: wantUser{name: "New Hero", username: "hero02", email: "hero2@test.cd", roles: []string{user.RoleStudent}},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/register"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if want, ok := tt.extra.(wantUser); ok {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var usr user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if usr.ID == 0 {
					t.Error("failed! empty user ID")
				}
				if usr.Name != want.name || usr.Username != want.username || usr.Email != want.email {
					t.Errorf("failed! got %v; want %+v", usr, want)
				}
				if !usr.IsActive {
					t.Error("expected an active user")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userRetrieveUpdateDestroy(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	other := testutil.CreateUser(t, usrRepo, "Other", "other1", "other@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	studentToken := getToken(t, student)
	adminToken := getToken(t, admin)

	detail := func(id int) string { return "/v1/users/" + strconv.Itoa(id) }

	t.Run("retrieve: self", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, detail(student.ID), studentToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, student)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("retrieve: other is hidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, detail(other.ID), studentToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("retrieve: admin can see all", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, detail(other.ID), adminToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, other)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("retrieve: unknown user", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, detail(999), adminToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("update: self", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{Name: "Super Hero"})
		req, rec := newAuthRequest(http.MethodPut, detail(student.ID), studentToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if usr.Name != "Super Hero" {
			t.Errorf("failed! Name = %s; want Super Hero", usr.Name)
		}
	})

	t.Run("update: non-admin cannot change roles", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{Roles: []string{user.RoleTeacher}})
		req, rec := newAuthRequest(http.MethodPut, detail(student.ID), studentToken, body)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("update: admin can change roles", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{Roles: []string{user.RoleTeacher}})
		req, rec := newAuthRequest(http.MethodPut, detail(other.ID), adminToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(usr.Roles) != 1 || usr.Roles[0] != user.RoleTeacher {
			t.Errorf("failed! Roles = %v; want [%s]", usr.Roles, user.RoleTeacher)
		}
	})

	t.Run("destroy: admin only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, detail(student.ID), studentToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("destroy: admin cannot delete themselves", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, detail(admin.ID), adminToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("destroy", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, detail(other.ID), adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}
		if _, err := usrRepo.GetUserByID(context.Background(), other.ID); err != user.ErrNotFound {
			t.Errorf("GetUserByID() error = %v; want %v", err, user.ErrNotFound)
		}
	})
}

func Test_userApi_userDestroyMultiple(t *testing.T) {
	app := setup(t)

	usr1 := testutil.CreateUser(t, usrRepo, "User 1", "user01", "usr1@test.cd", "", []string{user.RoleStudent}, true)
	usr2 := testutil.CreateUser(t, usrRepo, "User 2", "user02", "usr2@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	adminToken := getToken(t, admin)

	path := func(ids ...int) string {
		v := make(url.Values)
		for _, id := range ids {
			v.Add("id", strconv.Itoa(id))
		}
		return "/v1/users?" + v.Encode()
	}

	t.Run("cannot delete themselves", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, path(usr1.ID, admin.ID), adminToken)
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("delete multiple", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, path(usr1.ID, usr2.ID), adminToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
		}
		for _, id := range []int{usr1.ID, usr2.ID} {
			if _, err := usrRepo.GetUserByID(context.Background(), id); err != user.ErrNotFound {
				t.Errorf("GetUserByID(%d) error = %v; want %v", id, err, user.ErrNotFound)
			}
		}
	})
}

func Test_userApi_userQueryRoles(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	tt := httpTest{
		method: http.MethodGet, path: "/v1/users/roles", token: getToken(t, admin),
		wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles),
	}
	req, rec := newAuthRequest(tt.method, tt.path, tt.token)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}

func Test_userApi_userRefreshToken(t *testing.T) {
	app := setup(t)

	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog01", "ndog@test.cd", "", []string{user.RoleStudent}, false)
	student := testutil.CreateUser(t, usrRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)

	now := time.Now()
	unrefreshableClaims := &echoapi.Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   strconv.Itoa(student.ID),
			Audience:  "Soma",
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		OrigIssuedAt: now.Add(-2 * core.Conf.Server.JWTRefreshExpirationDelta).Unix(), // older than threshold
		IsStudent:    student.IsStudent(),
		IsTeacher:    student.IsTeacher(),
		IsAdmin:      student.IsAdmin(),
		Roles:        student.Roles,
	}
	unrefreshableToken, err := echoapi.GenerateToken(unrefreshableClaims)
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: getToken(t, student), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/token-refresh"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userResetPassword(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero01", "hero@test.cd", "", []string{user.RoleStudent}, true)
	successData := marchallObj(t, echoapi.SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})

	pathRegex, err := regexp.Compile("/password-reset/.+/.+")
	if err != nil {
		t.Fatalf("regexp.Compile(): %v", err)
	}

	type extraTest struct {
		emailSent bool
		to        mail.Address
	}
	tests := []httpTest{
		{name: "required fields", wantCode: http.StatusBadRequest, body: []byte("{}"), wantData: marchallObj(t, echoapi.PasswordResetRequest{Email: "this field is required"})},
		{
			name: "invalid email", wantCode: http.StatusBadRequest, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol"}),
			wantData: marchallObj(t, echoapi.PasswordResetRequest{Email: "email must be a valid email address"}),
		},
		{
			name: "unknown email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol@test.com"}),
			wantData: successData, extra: extraTest{emailSent: false},
		},
		{
			name: "known email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: student.Email}),
			wantData: successData, extra: extraTest{emailSent: true, to: mail.Address{Name: student.Name, Address: student.Email}},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/password-reset"

		t.Run(tt.name, func(t *testing.T) {
			emailsvc.SentMessages = nil // reset

			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if extra, ok := tt.extra.(extraTest); ok {
				if extra.emailSent {
					if len(emailsvc.SentMessages) != 1 {
						t.Fatalf("failed! len(SentMessages) = %d; want 1", len(emailsvc.SentMessages))
					}
					msg := emailsvc.SentMessages[0]
					if msg.To[0] != extra.to {
						t.Errorf("failed! To = %v; want %v", msg.To[0], extra.to)
					}
					if !strings.Contains(msg.TextContent, extra.to.Name) {
						t.Errorf("failed! text content does not contain recipient's name \"%s\"", extra.to.Name)
					}
					if !strings.Contains(msg.HTMLContent, extra.to.Name) {
						t.Errorf("failed! HTML content does not contain recipient's name \"%s\"", extra.to.Name)
					}
					if !pathRegex.MatchString(msg.TextContent) {
						t.Errorf("failed! text content does not match pathRegex %v", pathRegex)
					}
					if !pathRegex.MatchString(msg.HTMLContent) {
						t.Errorf("failed! HTML content does not match pathRegex %v", pathRegex)
					}
				} else {
					if len(emailsvc.SentMessages) > 0 {
						t.Errorf("failed! len(SentMessages) = %d; want 0", len(emailsvc.SentMessages))
					}
				}
			}
		})
	}
}

func Test_userApi_userConfirmPasswordReset(t *testing.T) {
	app := setup(t)

	student := testutil.CreateUser(t, usrRepo, "Hero", "hero01", "hero@test.cd", "lol", []string{user.RoleStudent}, true)
	validUID := user.EncodeUID(student)
	validToken, err := user.MakeToken(student)
	if err != nil {
		t.Fatalf("MakeToken(): %v", err)
	}

	// generate an expired token
	dayLate := core.Conf.PasswordResetTimeoutDelta + (24 * time.Hour)
	user.NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := user.MakeToken(student)
	if err != nil {
		t.Fatalf("MakeToken(): %v", err)
	}
	user.NowFunc = time.Now // reset

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest, body: []byte("{}"),
			wantData: marchallObj(t, user.ResetUserPassword{Token: reqMsg, UID: reqMsg, Password: reqMsg, PasswordConfirm: reqMsg}),
		},
		{
			name: "invalid pwd: min len", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "lol", PasswordConfirm: "lol"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must contain at least 8 characters"}),
		},
		{
			name: "invalid pwd: no whitespace", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "l o loll", PasswordConfirm: "l o loll"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must not contain whitespace"}),
		},
		{
			name: "invalid pwd: not all numeric", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "12345678", PasswordConfirm: "12345678"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password cannot be entirely numeric"}),
		},
		{
			name: "invalid pwd: complexity", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "lol12345", PasswordConfirm: "lol12345"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"}),
		},
		{
			name: "invalid pwd: too common", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "P@$$w0rd", PasswordConfirm: "P@$$w0rd"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password is too common"}),
		},
		{
			name: "PasswordConfirm must = Password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "LolC@t123", PasswordConfirm: "lol"}),
			wantData: marchallObj(t, user.ResetUserPassword{PasswordConfirm: "password_confirm must be equal to Password"}),
		},
		{
			name: "invalid uid", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "bG9s!", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "invalid token"}),
		},
		{
			name: "user not found", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "OTk5", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "invalid token"}),
		},
		{
			name: "invalid token", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "HE4TS-sigsig-sig", UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "invalid token"}),
		},
		{
			name: "expired token", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: expiredToken, UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "token expired"}),
		},
		{
			name: "valid token", wantCode: http.StatusOK,
			body:     marchallObj(t, user.ResetUserPassword{Token: validToken, UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/password-reset-confirm"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				refreshedStudent, err := usrRepo.GetUserByID(context.Background(), student.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed, %v", err)
				}
				if bytes.Equal(refreshedStudent.PasswordHash, student.PasswordHash) {
					t.Fatalf("failed to update new password")
				}
			}
		})
	}
}
