package tests

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/soma/apps/api/echo"
	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/book"
	"github.com/trezcool/soma/core/class"
	"github.com/trezcool/soma/core/reading"
	"github.com/trezcool/soma/core/suggestion"
	"github.com/trezcool/soma/core/user"
	"github.com/trezcool/soma/services/email"
	"github.com/trezcool/soma/services/logger"
	"github.com/trezcool/soma/storage/database/inmem"
	"github.com/trezcool/soma/tests"
)

var (
	db             *inmemdb.DB
	usrRepo        user.Repository
	bookRepo       book.Repository
	bookFinder     book.MetadataFinder // optional catalog stub; set before setup
	classRepo      class.Repository
	readingRepo    reading.Repository
	suggestionRepo suggestion.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

func setup(t *testing.T) *Server {
	t.Helper()
	testutil.InitConfig()

	// set up DB & repos
	db = inmemdb.NewDB()
	usrRepo = inmemdb.NewUserRepository(db)
	bookRepo = inmemdb.NewBookRepository(db)
	classRepo = inmemdb.NewClassRepository(db)
	readingRepo = inmemdb.NewReadingRepository(db)
	suggestionRepo = inmemdb.NewSuggestionRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc := user.NewServiceMock(usrRepo, mailSvc)
	bookSvc := book.NewService(bookRepo, bookFinder)
	classSvc := class.NewService(classRepo, usrSvc)
	readingSvc := reading.NewService(readingRepo)
	suggestionSvc := suggestion.NewService(suggestionRepo, bookSvc, readingSvc, usrSvc, mailSvc)

	logger := logsvc.NewRollbarLogger(log.New(ioutil.Discard, "TEST : ", 0), core.Conf)
	logger.Enable(false)

	// set up server
	return NewServer(
		ServerDeps{
			Logger:        logger,
			UserSvc:       usrSvc,
			BookSvc:       bookSvc,
			ClassSvc:      classSvc,
			ReadingSvc:    readingSvc,
			SuggestionSvc: suggestionSvc,
		},
	)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// nolint
func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
