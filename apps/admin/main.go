package main

import (
	"log"
	"os"

	"github.com/trezcool/soma/core"
	"github.com/trezcool/soma/core/book"
	logsvc "github.com/trezcool/soma/services/logger"
	openlibrary "github.com/trezcool/soma/services/openlibrary"
	"github.com/trezcool/soma/storage/database"
	sqlxrepos "github.com/trezcool/soma/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	svcLogger := logsvc.NewRollbarLogger(logger, conf)
	svcLogger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Connect(conf)
	errAndDie(err)
	defer db.Close()

	// start CLI
	cli := commandLine{
		db:      db.DB,
		usrRepo: sqlxrepos.NewUserRepository(db),
		bookSvc: book.NewService(sqlxrepos.NewBookRepository(db), openlibrary.NewClient(svcLogger)),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
