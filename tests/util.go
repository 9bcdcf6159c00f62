package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/book"
	"github.com/trezcool/soma/core/class"
	"github.com/trezcool/soma/core/reading"
	"github.com/trezcool/soma/core/user"
)

// InitConfig installs a minimal test configuration.
func InitConfig() {
	if core.Conf != nil && core.Conf.TestMode {
		return
	}
	core.Conf = &core.Config{
		AppName:                   "Soma",
		Env:                       "TEST",
		TestMode:                  true,
		SecretKey:                 []byte("s3cr3t"),
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromName:           "Soma",
		DefaultFromAddr:           "noreply@test.cd",
		AdminEmail:                "admin@test.cd",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        7 * 24 * time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateBook(t *testing.T, repo book.Repository, title, author string, opts ...func(*book.Book)) book.Book {
	t.Helper()

	now := time.Now().UTC()
	bk := book.Book{
		Title:     title,
		Author:    author,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(&bk)
	}
	bk, err := repo.CreateBook(context.Background(), bk)
	if err != nil {
		t.Fatalf("CreateBook() failed: %v", err)
	}
	return bk
}

func CreateClass(t *testing.T, repo class.Repository, name string, teacherID int) class.Class {
	t.Helper()

	now := time.Now().UTC()
	cls, err := repo.CreateClass(context.Background(), class.Class{
		Name:      name,
		TeacherID: teacherID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

func MarkRead(t *testing.T, repo reading.Repository, userID, bookID int) reading.BookRead {
	t.Helper()

	br, err := repo.CreateBookRead(context.Background(), reading.BookRead{
		UserID:      userID,
		BookID:      bookID,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("MarkRead() failed: %v", err)
	}
	return br
}
