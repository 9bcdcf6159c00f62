package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/soma/core/book"
	"github.com/trezcool/soma/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db      *sql.DB
	usrRepo user.Repository
	bookSvc book.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run database migrations (goose commands)")
	fmt.Println("  createsuperuser -username USERNAME -email EMAIL - create or update an admin user")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Println("  importbooks -file PATH - import books from a CSV file")
	fmt.Println("  enrichbooks - backfill book metadata from OpenLibrary")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createSuperUserCmd := flag.NewFlagSet("createsuperuser", flag.ExitOnError)
	createSuperUserUname := createSuperUserCmd.String("username", "", "The admin's username. The password will be prompted next.")
	createSuperUserEmail := createSuperUserCmd.String("email", "", "The admin's email.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	importBooksCmd := flag.NewFlagSet("importbooks", flag.ExitOnError)
	importBooksFile := importBooksCmd.String("file", "", "Path to the CSV file to import.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "createsuperuser":
		if err := createSuperUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createSuperUserUname == "" && *createSuperUserEmail == "" {
			createSuperUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			createSuperUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*createSuperUserUname, *createSuperUserEmail, pwd, true /* isAdmin */)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	case "importbooks":
		if err := importBooksCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *importBooksFile == "" {
			importBooksCmd.Usage()
			return errHelp
		}
		return cli.importBooks(*importBooksFile)
	case "enrichbooks":
		return cli.enrichBooks()
	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
