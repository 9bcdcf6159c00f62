package book

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/soma/core"
)

// csvHeader is the required import header, in order.
var csvHeader = []string{
	"title", "author", "isbn", "book_type", "genre",
	"sub_genre", "topic", "lexile_rating", "grade", "owned",
}

var errBadHeader = fmt.Errorf("invalid CSV header; expected: %s", strings.Join(csvHeader, ","))

type (
	// RowError records a failed import row; Row is 1-based and counts the header.
	RowError struct {
		Row   int    `json:"row"`
		Error string `json:"error"`
	}

	ImportResult struct {
		BatchID   uuid.UUID  `json:"batch_id"`
		Created   []Book     `json:"created"`
		RowErrors []RowError `json:"row_errors"`
	}
)

// ImportCSV reads book rows from r and creates them one by one.
// Invalid rows and duplicates are collected as RowErrors; the import
// continues past them and past OpenLibrary lookup failures.
func (svc *service) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	res := ImportResult{BatchID: uuid.New()}

	rdr := csv.NewReader(r)
	rdr.TrimLeadingSpace = true

	header, err := rdr.Read()
	if err != nil {
		return res, core.NewValidationError(errors.New("empty or unreadable CSV file"))
	}
	if !matchesHeader(header) {
		return res, core.NewValidationError(errBadHeader)
	}

	for row := 2; ; row++ {
		record, err := rdr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.RowErrors = append(res.RowErrors, RowError{Row: row, Error: err.Error()})
			continue
		}

		nb, err := rowToNewBook(record)
		if err != nil {
			res.RowErrors = append(res.RowErrors, RowError{Row: row, Error: err.Error()})
			continue
		}
		if err = nb.Validate(); err != nil {
			res.RowErrors = append(res.RowErrors, RowError{Row: row, Error: err.Error()})
			continue
		}
		bk, err := svc.Create(ctx, nb)
		if err != nil {
			if vErr, ok := err.(*core.ValidationError); ok {
				res.RowErrors = append(res.RowErrors, RowError{Row: row, Error: vErr.Error()})
				continue
			}
			return res, err
		}
		res.Created = append(res.Created, bk)
	}
	return res, nil
}

func matchesHeader(header []string) bool {
	if len(header) != len(csvHeader) {
		return false
	}
	for i, col := range header {
		if core.CleanString(col, true /* lower */) != csvHeader[i] {
			return false
		}
	}
	return true
}

func rowToNewBook(record []string) (NewBook, error) {
	if len(record) != len(csvHeader) {
		return NewBook{}, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(record))
	}
	nb := NewBook{
		Title:        record[0],
		Author:       record[1],
		ISBN:         record[2],
		Type:         core.CleanString(record[3]),
		Genre:        record[4],
		SubGenre:     record[5],
		Topic:        record[6],
		LexileRating: record[7],
		Owned:        core.CleanString(record[9]),
		Enrich:       true,
	}
	if grade := core.CleanString(record[8]); grade != "" {
		g, err := strconv.Atoi(grade)
		if err != nil {
			return NewBook{}, fmt.Errorf("invalid grade %q", grade)
		}
		nb.Grade = g
	}
	return nb, nil
}

// SampleCSV returns a downloadable import template.
func (svc *service) SampleCSV() []byte {
	var sb strings.Builder
	sb.WriteString(strings.Join(csvHeader, ","))
	sb.WriteString("\n")
	sb.WriteString("The Hobbit,J.R.R. Tolkien,9780345339683,Fiction,Fantasy,High Fantasy,Adventure,1000L,6,Physical\n")
	sb.WriteString("A Short History of Nearly Everything,Bill Bryson,9780767908184,Non-Fiction,Science,,History of Science,1190L,9,Kindle\n")
	return []byte(sb.String())
}
