package main

import (
	"context"
	"fmt"
	"os"
)

func (cli *commandLine) importBooks(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := cli.bookSvc.ImportCSV(context.Background(), f)
	if err != nil {
		return err
	}

	fmt.Printf("batch %s: %d book(s) created, %d row error(s)\n", res.BatchID, len(res.Created), len(res.RowErrors))
	for _, rowErr := range res.RowErrors {
		fmt.Printf("  row %d: %s\n", rowErr.Row, rowErr.Error)
	}
	return nil
}
